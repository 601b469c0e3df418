//go:build integration

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/FACorreiaa/go-pedidos-api/config"
	"github.com/FACorreiaa/go-pedidos-api/internal/container"
)

// E2ETestSuite drives the real router against the database configured by the
// APP_REPOSITORIES_POSTGRES_* environment.
type E2ETestSuite struct {
	suite.Suite
	container  *container.Container
	server     *httptest.Server
	client     *http.Client
	adminEmail string
	adminToken string
}

const testPassword = "s3cret-pass"

func (s *E2ETestSuite) SetupSuite() {
	if os.Getenv("APP_JWT_SECRETKEY") == "" {
		s.Require().NoError(os.Setenv("APP_JWT_SECRETKEY", "e2e-secret"))
	}
	cfg, err := config.InitConfig()
	s.Require().NoError(err)

	s.adminEmail = fmt.Sprintf("admin+%s@example.com", uuid.NewString()[:8])
	cfg.Bootstrap.AdminEmail = s.adminEmail
	cfg.Bootstrap.AdminPassword = testPassword
	cfg.RateLimit.TokenRequests = 0

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.container, err = container.NewContainer(ctx, &cfg, logger)
	s.Require().NoError(err)
	s.Require().True(s.container.WaitForDB(ctx))
	s.Require().NoError(s.container.BootstrapAdmin(ctx))

	s.server = httptest.NewServer(s.container.Router())
	s.client = &http.Client{Timeout: 10 * time.Second}
	s.adminToken = s.login(s.adminEmail, testPassword)["access"]
}

func (s *E2ETestSuite) TearDownSuite() {
	if s.server != nil {
		s.server.Close()
	}
	if s.container != nil {
		s.container.Close()
	}
}

func (s *E2ETestSuite) do(method, path, token string, body any) (int, []byte) {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, s.server.URL+path, &buf)
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.client.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	var out bytes.Buffer
	_, err = out.ReadFrom(resp.Body)
	s.Require().NoError(err)
	return resp.StatusCode, out.Bytes()
}

func (s *E2ETestSuite) decode(raw []byte) map[string]any {
	var m map[string]any
	s.Require().NoError(json.Unmarshal(raw, &m), string(raw))
	return m
}

func (s *E2ETestSuite) login(email, password string) map[string]string {
	status, raw := s.do(http.MethodPost, "/token/", "", map[string]string{"email": email, "password": password})
	s.Require().Equal(http.StatusOK, status, string(raw))
	var pair map[string]string
	s.Require().NoError(json.Unmarshal(raw, &pair))
	return pair
}

// register creates a user and returns its id and access token.
func (s *E2ETestSuite) register(name string) (string, string) {
	email := fmt.Sprintf("%s+%s@example.com", name, uuid.NewString()[:8])
	status, raw := s.do(http.MethodPost, "/usuarios/", "", map[string]string{
		"username": name, "email": email, "password": testPassword,
		"cpf": "213.111.333-22", "rg": "1231212", "endereco": "Rua " + name,
	})
	s.Require().Equal(http.StatusCreated, status, string(raw))
	return s.decode(raw)["id"].(string), s.login(email, testPassword)["access"]
}

func (s *E2ETestSuite) createProduct(nome string) string {
	status, raw := s.do(http.MethodPost, "/produtos/", s.adminToken, map[string]string{"nome": nome, "descricao": "desc"})
	s.Require().Equal(http.StatusCreated, status, string(raw))
	return s.decode(raw)["id"].(string)
}

func (s *E2ETestSuite) TestRegistrationAndLogin() {
	_, token := s.register("ana")
	s.NotEmpty(token)

	status, _ := s.do(http.MethodPost, "/token/", "", map[string]string{"email": "nobody@example.com", "password": "x"})
	s.Equal(http.StatusUnauthorized, status)

	status, raw := s.do(http.MethodPost, "/usuarios/", "", map[string]string{
		"username": "x", "email": "bad", "password": "p", "cpf": "0000.000-00", "rg": "test", "endereco": "e",
	})
	s.Equal(http.StatusBadRequest, status)
	fields := s.decode(raw)["fields"].(map[string]any)
	s.Contains(fields, "cpf")
	s.Contains(fields, "rg")
	s.Contains(fields, "email")
}

func (s *E2ETestSuite) TestRefreshIsSingleUse() {
	pair := s.login(s.adminEmail, testPassword)

	status, raw := s.do(http.MethodPost, "/token/refresh/", "", map[string]string{"refresh": pair["refresh"]})
	s.Require().Equal(http.StatusOK, status, string(raw))
	s.NotEmpty(s.decode(raw)["access"])

	status, _ = s.do(http.MethodPost, "/token/refresh/", "", map[string]string{"refresh": pair["refresh"]})
	s.Equal(http.StatusUnauthorized, status)
}

func (s *E2ETestSuite) TestUserSelfAccess() {
	aliceID, alice := s.register("alice")
	bobID, _ := s.register("bob")

	status, _ := s.do(http.MethodGet, "/usuarios/"+aliceID+"/", alice, nil)
	s.Equal(http.StatusOK, status)
	status, _ = s.do(http.MethodGet, "/usuarios/"+bobID+"/", alice, nil)
	s.Equal(http.StatusForbidden, status)
	status, _ = s.do(http.MethodGet, "/usuarios/", alice, nil)
	s.Equal(http.StatusForbidden, status)
	status, _ = s.do(http.MethodGet, "/usuarios/", s.adminToken, nil)
	s.Equal(http.StatusOK, status)
}

func (s *E2ETestSuite) TestOrderLifecycle() {
	aliceID, alice := s.register("carol")
	_, bob := s.register("dave")
	productID := s.createProduct("Caneta")

	status, raw := s.do(http.MethodPost, "/pedidos/", alice, map[string]string{"endereco": "Rua A", "usuario": uuid.NewString()})
	s.Require().Equal(http.StatusCreated, status, string(raw))
	o := s.decode(raw)
	s.Equal(aliceID, o["usuario"])
	orderID := o["id"].(string)

	status, _ = s.do(http.MethodGet, "/pedidos/"+orderID+"/", bob, nil)
	s.Equal(http.StatusNotFound, status)
	status, _ = s.do(http.MethodGet, "/pedidos/"+orderID+"/", s.adminToken, nil)
	s.Equal(http.StatusOK, status)

	items := "/pedidos/" + orderID + "/produtos/"
	status, raw = s.do(http.MethodPost, items, alice, map[string]any{"produto": productID, "quantidade": 2})
	s.Require().Equal(http.StatusCreated, status, string(raw))
	itemID := s.decode(raw)["id"].(string)

	status, _ = s.do(http.MethodPost, items, alice, map[string]any{"produto": productID, "quantidade": 1})
	s.Equal(http.StatusConflict, status)
	status, _ = s.do(http.MethodPost, items, alice, map[string]any{"produto": productID, "quantidade": 0})
	s.Equal(http.StatusBadRequest, status)
	status, _ = s.do(http.MethodPost, items, alice, map[string]any{"produto": uuid.NewString(), "quantidade": 1})
	s.Equal(http.StatusBadRequest, status)
	status, _ = s.do(http.MethodGet, items, bob, nil)
	s.Equal(http.StatusNotFound, status)

	status, raw = s.do(http.MethodPatch, items+itemID+"/", alice, map[string]any{"quantidade": 5})
	s.Require().Equal(http.StatusOK, status, string(raw))
	s.EqualValues(5, s.decode(raw)["quantidade"])

	status, _ = s.do(http.MethodDelete, "/pedidos/"+orderID+"/", alice, nil)
	s.Equal(http.StatusNoContent, status)
	status, _ = s.do(http.MethodGet, items+itemID+"/", alice, nil)
	s.Equal(http.StatusNotFound, status)
}

func (s *E2ETestSuite) TestDeletingProductCascadesToLines() {
	_, alice := s.register("erin")
	productID := s.createProduct("Lapis")

	_, raw := s.do(http.MethodPost, "/pedidos/", alice, map[string]string{"endereco": "Rua B"})
	orderID := s.decode(raw)["id"].(string)
	items := "/pedidos/" + orderID + "/produtos/"
	status, _ := s.do(http.MethodPost, items, alice, map[string]any{"produto": productID, "quantidade": 1})
	s.Require().Equal(http.StatusCreated, status)

	status, _ = s.do(http.MethodDelete, "/produtos/"+productID+"/", s.adminToken, nil)
	s.Require().Equal(http.StatusNoContent, status)

	status, raw = s.do(http.MethodGet, items, alice, nil)
	s.Require().Equal(http.StatusOK, status)
	s.JSONEq("[]", string(raw))
}

func (s *E2ETestSuite) TestDeletingUserRevokesAccess() {
	id, token := s.register("frank")

	status, _ := s.do(http.MethodDelete, "/usuarios/"+id+"/", token, nil)
	s.Require().Equal(http.StatusNoContent, status)

	status, _ = s.do(http.MethodGet, "/pedidos/", token, nil)
	s.Equal(http.StatusUnauthorized, status)
}

func TestE2E(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping end-to-end tests in short mode")
	}
	suite.Run(t, new(E2ETestSuite))
}
