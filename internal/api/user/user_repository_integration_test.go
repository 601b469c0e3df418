//go:build integration

package user

import (
	"context"
	"log"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	database "github.com/FACorreiaa/go-pedidos-api/app/db"
	"github.com/FACorreiaa/go-pedidos-api/internal/types"
)

var testDB *pgxpool.Pool

func TestMain(m *testing.M) {
	if err := godotenv.Load("../../../.env.test"); err != nil {
		log.Println("Warning: .env.test file not found for user integration tests.")
	}

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		log.Fatal("TEST_DATABASE_URL environment variable is not set for user integration tests")
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
	if err := database.RunMigrations(dbURL, logger); err != nil {
		log.Fatalf("Unable to migrate test database: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	var err error
	testDB, err = database.Init(ctx, dbURL, logger)
	cancel()
	if err != nil {
		log.Fatalf("Unable to create connection pool for user tests: %v", err)
	}

	code := m.Run()
	testDB.Close()
	os.Exit(code)
}

func seedUser(t *testing.T, repo *PostgresUserRepo, email string) *types.User {
	t.Helper()
	u := &types.User{
		ID: uuid.New(), Username: "seed", Email: email, PasswordHash: "hash",
		CPF: "213.111.333-22", RG: "1", Endereco: "Rua A",
	}
	require.NoError(t, repo.Create(context.Background(), u))
	return u
}

func uniqueEmail() string {
	return "it+" + uuid.NewString()[:8] + "@example.com"
}

func TestPostgresUserRepo_EmailUniqueness_Integration(t *testing.T) {
	ctx := context.Background()
	repo := NewPostgresUserRepo(testDB, slog.Default())
	email := uniqueEmail()
	u := seedUser(t, repo, email)

	dup := &types.User{ID: uuid.New(), Username: "dup", Email: strings.ToUpper(email), PasswordHash: "h", CPF: u.CPF, RG: u.RG, Endereco: u.Endereco}
	assert.ErrorIs(t, repo.Create(ctx, dup), types.ErrConflict)

	require.NoError(t, repo.SoftDelete(ctx, u.ID))
	assert.NoError(t, repo.Create(ctx, dup), "email is free again once the holder is deleted")
}

func TestPostgresUserRepo_SoftDeleteCascade_Integration(t *testing.T) {
	ctx := context.Background()
	repo := NewPostgresUserRepo(testDB, slog.Default())
	u := seedUser(t, repo, uniqueEmail())

	orderID, productID, itemID := uuid.New(), uuid.New(), uuid.New()
	_, err := testDB.Exec(ctx, `INSERT INTO products (id, nome, descricao) VALUES ($1, 'p', 'd')`, productID)
	require.NoError(t, err)
	_, err = testDB.Exec(ctx, `INSERT INTO orders (id, user_id, endereco) VALUES ($1, $2, 'Rua A')`, orderID, u.ID)
	require.NoError(t, err)
	_, err = testDB.Exec(ctx, `INSERT INTO order_items (id, order_id, product_id, quantidade) VALUES ($1, $2, $3, 1)`, itemID, orderID, productID)
	require.NoError(t, err)
	_, err = testDB.Exec(ctx, `INSERT INTO refresh_tokens (id, user_id, token, expires_at) VALUES ($1, $2, $3, NOW() + INTERVAL '1 hour')`,
		uuid.New(), u.ID, uuid.NewString())
	require.NoError(t, err)

	require.NoError(t, repo.SoftDelete(ctx, u.ID))

	var orderDeleted, itemDeleted, productDeleted bool
	require.NoError(t, testDB.QueryRow(ctx, `SELECT deleted FROM orders WHERE id = $1`, orderID).Scan(&orderDeleted))
	require.NoError(t, testDB.QueryRow(ctx, `SELECT deleted FROM order_items WHERE id = $1`, itemID).Scan(&itemDeleted))
	require.NoError(t, testDB.QueryRow(ctx, `SELECT deleted FROM products WHERE id = $1`, productID).Scan(&productDeleted))
	assert.True(t, orderDeleted)
	assert.True(t, itemDeleted)
	assert.False(t, productDeleted)

	var live int
	require.NoError(t, testDB.QueryRow(ctx,
		`SELECT COUNT(*) FROM refresh_tokens WHERE user_id = $1 AND revoked_at IS NULL`, u.ID).Scan(&live))
	assert.Zero(t, live)

	_, err = repo.GetByID(ctx, u.ID)
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.ErrorIs(t, repo.SoftDelete(ctx, u.ID), types.ErrNotFound)
}
