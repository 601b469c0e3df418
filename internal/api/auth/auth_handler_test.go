package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-pedidos-api/internal/types"
)

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Login(ctx context.Context, email, password string) (*types.TokenPair, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.TokenPair), args.Error(1)
}

func (m *MockAuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	args := m.Called(ctx, refreshToken)
	return args.String(0), args.Error(1)
}

func (m *MockAuthService) CallerFromToken(ctx context.Context, accessToken string) (*types.Caller, error) {
	args := m.Called(ctx, accessToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Caller), args.Error(1)
}

func (m *MockAuthService) BootstrapAdmin(ctx context.Context, email, password string) error {
	args := m.Called(ctx, email, password)
	return args.Error(0)
}

func postJSON(path string, body any) *http.Request {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBuffer(b))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestLoginHandler(t *testing.T) {
	mockService := new(MockAuthService)
	handler := NewHandlerImpl(mockService, slog.Default())

	t.Run("Success", func(t *testing.T) {
		mockService.On("Login", mock.Anything, "maria@example.com", "s3cret").
			Return(&types.TokenPair{Access: "access-token", Refresh: "refresh-token"}, nil).Once()

		w := httptest.NewRecorder()
		handler.Login(w, postJSON("/token/", map[string]string{"email": "maria@example.com", "password": "s3cret"}))

		assert.Equal(t, http.StatusOK, w.Code)
		var resp map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "access-token", resp["access"])
		assert.Equal(t, "refresh-token", resp["refresh"])
	})

	t.Run("Invalid credentials", func(t *testing.T) {
		mockService.On("Login", mock.Anything, "maria@example.com", "bad").
			Return(nil, types.ErrUnauthenticated).Once()

		w := httptest.NewRecorder()
		handler.Login(w, postJSON("/token/", map[string]string{"email": "maria@example.com", "password": "bad"}))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), invalidCredentials)
	})

	t.Run("Missing fields", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.Login(w, postJSON("/token/", map[string]string{}))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var resp types.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Contains(t, resp.Fields, "email")
		assert.Contains(t, resp.Fields, "password")
	})

	t.Run("Malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/token/", bytes.NewBufferString("{"))
		w := httptest.NewRecorder()
		handler.Login(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Service failure", func(t *testing.T) {
		mockService.On("Login", mock.Anything, "maria@example.com", "s3cret").
			Return(nil, errors.New("db down")).Once()

		w := httptest.NewRecorder()
		handler.Login(w, postJSON("/token/", map[string]string{"email": "maria@example.com", "password": "s3cret"}))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	mockService.AssertExpectations(t)
}

func TestRefreshHandler(t *testing.T) {
	mockService := new(MockAuthService)
	handler := NewHandlerImpl(mockService, slog.Default())

	t.Run("Success", func(t *testing.T) {
		mockService.On("Refresh", mock.Anything, "r1").Return("new-access", nil).Once()

		w := httptest.NewRecorder()
		handler.Refresh(w, postJSON("/token/refresh/", map[string]string{"refresh": "r1"}))

		assert.Equal(t, http.StatusOK, w.Code)
		var resp map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "new-access", resp["access"])
		assert.NotContains(t, resp, "refresh")
	})

	t.Run("Reused token", func(t *testing.T) {
		mockService.On("Refresh", mock.Anything, "r1").Return("", types.ErrUnauthenticated).Once()

		w := httptest.NewRecorder()
		handler.Refresh(w, postJSON("/token/refresh/", map[string]string{"refresh": "r1"}))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Missing token", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.Refresh(w, postJSON("/token/refresh/", map[string]string{}))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	mockService.AssertExpectations(t)
}

func TestAuthenticateMiddleware(t *testing.T) {
	userID := uuid.New()
	var seen *types.Caller
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = CallerFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	t.Run("Anonymous passes through", func(t *testing.T) {
		mockService := new(MockAuthService)
		seen = &types.Caller{}
		w := httptest.NewRecorder()
		Authenticate(slog.Default(), mockService)(next).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/produtos/", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Nil(t, seen)
		mockService.AssertNotCalled(t, "CallerFromToken", mock.Anything, mock.Anything)
	})

	t.Run("Valid token sets caller", func(t *testing.T) {
		mockService := new(MockAuthService)
		caller := &types.Caller{UserID: userID}
		mockService.On("CallerFromToken", mock.Anything, "good").Return(caller, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/pedidos/", nil)
		req.Header.Set("Authorization", "Bearer good")
		w := httptest.NewRecorder()
		Authenticate(slog.Default(), mockService)(next).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, caller, seen)
	})

	t.Run("Invalid token is rejected", func(t *testing.T) {
		mockService := new(MockAuthService)
		mockService.On("CallerFromToken", mock.Anything, "bad").Return(nil, types.ErrUnauthenticated).Once()

		req := httptest.NewRequest(http.MethodGet, "/produtos/", nil)
		req.Header.Set("Authorization", "Bearer bad")
		w := httptest.NewRecorder()
		Authenticate(slog.Default(), mockService)(next).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.NotEmpty(t, w.Header().Get("WWW-Authenticate"))
	})

	t.Run("Wrong scheme", func(t *testing.T) {
		mockService := new(MockAuthService)
		req := httptest.NewRequest(http.MethodGet, "/produtos/", nil)
		req.Header.Set("Authorization", "Basic abc")
		w := httptest.NewRecorder()
		Authenticate(slog.Default(), mockService)(next).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
