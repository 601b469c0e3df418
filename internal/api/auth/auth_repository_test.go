package auth

import (
	"context"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-pedidos-api/internal/types"
)

func newMockRepo(t *testing.T) (pgxmock.PgxPoolIface, *PostgresAuthRepo) {
	t.Helper()
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool, NewPostgresAuthRepo(pool, slog.Default())
}

func TestPostgresAuthRepo_GetUserByEmail(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		pool, repo := newMockRepo(t)
		id := uuid.New()
		rows := pool.NewRows([]string{"id", "username", "email", "password_hash", "cpf", "rg", "endereco", "is_admin"}).
			AddRow(id, "maria", "Maria@Example.com", "hash", "213.111.333-22", "1231212", "Rua A", false)
		pool.ExpectQuery(regexp.QuoteMeta("WHERE LOWER(email) = LOWER($1) AND NOT deleted")).
			WithArgs("maria@example.com").
			WillReturnRows(rows)

		u, err := repo.GetUserByEmail(ctx, "maria@example.com")
		require.NoError(t, err)
		assert.Equal(t, id, u.ID)
		assert.Equal(t, "hash", u.PasswordHash)
		assert.NoError(t, pool.ExpectationsWereMet())
	})

	t.Run("missing", func(t *testing.T) {
		pool, repo := newMockRepo(t)
		pool.ExpectQuery("FROM users").WithArgs("ghost@example.com").WillReturnError(pgx.ErrNoRows)

		_, err := repo.GetUserByEmail(ctx, "ghost@example.com")
		assert.ErrorIs(t, err, types.ErrNotFound)
		assert.NoError(t, pool.ExpectationsWereMet())
	})
}

func TestPostgresAuthRepo_FindCaller(t *testing.T) {
	ctx := context.Background()
	pool, repo := newMockRepo(t)
	id := uuid.New()

	pool.ExpectQuery(regexp.QuoteMeta("SELECT id, is_admin FROM users WHERE id = $1 AND NOT deleted")).
		WithArgs(id).
		WillReturnRows(pool.NewRows([]string{"id", "is_admin"}).AddRow(id, true))

	c, err := repo.FindCaller(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, &types.Caller{UserID: id, IsAdmin: true}, c)
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestPostgresAuthRepo_RefreshTokens(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("store", func(t *testing.T) {
		pool, repo := newMockRepo(t)
		expires := time.Now().Add(time.Hour)
		pool.ExpectExec("INSERT INTO refresh_tokens").
			WithArgs(pgxmock.AnyArg(), userID, "tok", expires).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, repo.StoreRefreshToken(ctx, userID, "tok", expires))
		assert.NoError(t, pool.ExpectationsWereMet())
	})

	t.Run("consume once", func(t *testing.T) {
		pool, repo := newMockRepo(t)
		pool.ExpectQuery(regexp.QuoteMeta("SET revoked_at = NOW()")).
			WithArgs("tok").
			WillReturnRows(pool.NewRows([]string{"user_id"}).AddRow(userID))
		pool.ExpectQuery(regexp.QuoteMeta("SET revoked_at = NOW()")).
			WithArgs("tok").
			WillReturnError(pgx.ErrNoRows)

		got, err := repo.ConsumeRefreshToken(ctx, "tok")
		require.NoError(t, err)
		assert.Equal(t, userID, got)

		_, err = repo.ConsumeRefreshToken(ctx, "tok")
		assert.ErrorIs(t, err, types.ErrNotFound)
		assert.NoError(t, pool.ExpectationsWereMet())
	})
}

func TestPostgresAuthRepo_CreateAdminIfMissing(t *testing.T) {
	ctx := context.Background()
	pool, repo := newMockRepo(t)
	u := &types.User{ID: uuid.New(), Username: "root", Email: "root@example.com", PasswordHash: "h", CPF: "000.000.000-00", RG: "0"}

	pool.ExpectExec("INSERT INTO users").
		WithArgs(u.ID, u.Username, u.Email, u.PasswordHash, u.CPF, u.RG, u.Endereco).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	created, err := repo.CreateAdminIfMissing(ctx, u)
	require.NoError(t, err)
	assert.False(t, created)
	assert.NoError(t, pool.ExpectationsWereMet())
}
