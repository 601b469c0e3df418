package order

import (
	"context"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-pedidos-api/internal/access"
	"github.com/FACorreiaa/go-pedidos-api/internal/types"
)

func newMockRepo(t *testing.T) (pgxmock.PgxPoolIface, *PostgresOrderRepo) {
	t.Helper()
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool, NewPostgresOrderRepo(pool, slog.Default())
}

var orderCols = []string{"id", "user_id", "endereco", "feito", "updated_at"}

func TestPostgresOrderRepo_Create(t *testing.T) {
	ctx := context.Background()
	o := &types.Order{ID: uuid.New(), UserID: uuid.New(), Endereco: "Rua A"}

	t.Run("stamps feito", func(t *testing.T) {
		pool, repo := newMockRepo(t)
		now := time.Now()
		pool.ExpectQuery("INSERT INTO orders").
			WithArgs(o.ID, o.UserID, o.Endereco).
			WillReturnRows(pool.NewRows([]string{"feito", "updated_at"}).AddRow(now, now))

		require.NoError(t, repo.Create(ctx, o))
		assert.Equal(t, now, o.Feito)
		assert.NoError(t, pool.ExpectationsWereMet())
	})

	t.Run("unknown user", func(t *testing.T) {
		pool, repo := newMockRepo(t)
		pool.ExpectQuery("INSERT INTO orders").
			WithArgs(o.ID, o.UserID, o.Endereco).
			WillReturnError(&pgconn.PgError{Code: "23503"})

		assert.ErrorIs(t, repo.Create(ctx, o), types.ErrNotFound)
	})
}

func TestPostgresOrderRepo_ListScoped(t *testing.T) {
	owner := uuid.New()
	now := time.Now()

	t.Run("owner", func(t *testing.T) {
		pool, repo := newMockRepo(t)
		pool.ExpectQuery(regexp.QuoteMeta("($1::boolean OR user_id = $2)")).
			WithArgs(false, owner).
			WillReturnRows(pool.NewRows(orderCols).AddRow(uuid.New(), owner, "Rua A", now, now))

		orders, err := repo.List(context.Background(), access.Scope{OwnerID: owner})
		require.NoError(t, err)
		require.Len(t, orders, 1)
		assert.Equal(t, owner, orders[0].UserID)
		assert.NoError(t, pool.ExpectationsWereMet())
	})

	t.Run("admin", func(t *testing.T) {
		pool, repo := newMockRepo(t)
		pool.ExpectQuery("FROM orders").
			WithArgs(true, uuid.Nil).
			WillReturnRows(pool.NewRows(orderCols))

		orders, err := repo.List(context.Background(), access.Scope{All: true})
		require.NoError(t, err)
		assert.Empty(t, orders)
		assert.NotNil(t, orders)
	})
}

func TestPostgresOrderRepo_GetByID(t *testing.T) {
	pool, repo := newMockRepo(t)
	id, other := uuid.New(), uuid.New()
	pool.ExpectQuery(regexp.QuoteMeta("WHERE id = $1 AND NOT deleted")).
		WithArgs(id, false, other).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByID(context.Background(), id, access.Scope{OwnerID: other})
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestPostgresOrderRepo_UpdateEndereco(t *testing.T) {
	pool, repo := newMockRepo(t)
	id, owner := uuid.New(), uuid.New()
	now := time.Now()
	pool.ExpectQuery("UPDATE orders SET endereco").
		WithArgs(id, false, owner, "Rua B").
		WillReturnRows(pool.NewRows(orderCols).AddRow(id, owner, "Rua B", now, now))

	o, err := repo.UpdateEndereco(context.Background(), id, access.Scope{OwnerID: owner}, "Rua B")
	require.NoError(t, err)
	assert.Equal(t, "Rua B", o.Endereco)
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestPostgresOrderRepo_SoftDelete(t *testing.T) {
	ctx := context.Background()
	id, owner := uuid.New(), uuid.New()
	scope := access.Scope{OwnerID: owner}

	t.Run("cascades to items", func(t *testing.T) {
		pool, repo := newMockRepo(t)
		pool.ExpectBegin()
		pool.ExpectExec("UPDATE orders SET deleted = TRUE").WithArgs(id, false, owner).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		pool.ExpectExec(regexp.QuoteMeta("UPDATE order_items SET deleted = TRUE, updated_at = NOW() WHERE order_id = $1")).
			WithArgs(id).WillReturnResult(pgxmock.NewResult("UPDATE", 2))
		pool.ExpectCommit()

		require.NoError(t, repo.SoftDelete(ctx, id, scope))
		assert.NoError(t, pool.ExpectationsWereMet())
	})

	t.Run("out of scope", func(t *testing.T) {
		pool, repo := newMockRepo(t)
		pool.ExpectBegin()
		pool.ExpectExec("UPDATE orders SET deleted = TRUE").WithArgs(id, false, owner).WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		pool.ExpectRollback()

		assert.ErrorIs(t, repo.SoftDelete(ctx, id, scope), types.ErrNotFound)
		assert.NoError(t, pool.ExpectationsWereMet())
	})
}
