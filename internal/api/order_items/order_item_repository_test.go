package orderItem

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

	"github.com/FACorreiaa/go-pedidos-api/internal/types"
)

func newMockRepo(t *testing.T) (pgxmock.PgxPoolIface, *PostgresOrderItemRepo) {
	t.Helper()
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool, NewPostgresOrderItemRepo(pool, slog.Default())
}

var itemCols = []string{"id", "order_id", "product_id", "quantidade", "created_at", "updated_at"}

func TestPostgresOrderItemRepo_OrderOwnedBy(t *testing.T) {
	orderID, owner := uuid.New(), uuid.New()

	t.Run("owned", func(t *testing.T) {
		pool, repo := newMockRepo(t)
		pool.ExpectQuery(regexp.QuoteMeta("FROM orders WHERE id = $1 AND user_id = $2 AND NOT deleted")).
			WithArgs(orderID, owner).
			WillReturnRows(pool.NewRows([]string{"?column?"}).AddRow(1))

		assert.NoError(t, repo.OrderOwnedBy(context.Background(), orderID, owner))
	})

	t.Run("someone else's", func(t *testing.T) {
		pool, repo := newMockRepo(t)
		pool.ExpectQuery("FROM orders").WithArgs(orderID, owner).WillReturnError(pgx.ErrNoRows)

		assert.ErrorIs(t, repo.OrderOwnedBy(context.Background(), orderID, owner), types.ErrNotFound)
	})
}

func TestPostgresOrderItemRepo_Create(t *testing.T) {
	ctx := context.Background()
	it := &types.OrderItem{ID: uuid.New(), OrderID: uuid.New(), ProductID: uuid.New(), Quantidade: 3}

	t.Run("inserted", func(t *testing.T) {
		pool, repo := newMockRepo(t)
		now := time.Now()
		pool.ExpectQuery("INSERT INTO order_items").
			WithArgs(it.ID, it.OrderID, it.ProductID, it.Quantidade).
			WillReturnRows(pool.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

		require.NoError(t, repo.Create(ctx, it))
		assert.NoError(t, pool.ExpectationsWereMet())
	})

	t.Run("duplicate pair", func(t *testing.T) {
		pool, repo := newMockRepo(t)
		pool.ExpectQuery("INSERT INTO order_items").
			WithArgs(it.ID, it.OrderID, it.ProductID, it.Quantidade).
			WillReturnError(&pgconn.PgError{Code: "23505"})

		assert.ErrorIs(t, repo.Create(ctx, it), types.ErrConflict)
	})

	t.Run("unknown product", func(t *testing.T) {
		pool, repo := newMockRepo(t)
		pool.ExpectQuery("INSERT INTO order_items").
			WithArgs(it.ID, it.OrderID, it.ProductID, it.Quantidade).
			WillReturnError(&pgconn.PgError{Code: "23503"})

		assert.ErrorIs(t, repo.Create(ctx, it), errProductMissing)
	})
}

func TestPostgresOrderItemRepo_ListAndDelete(t *testing.T) {
	ctx := context.Background()
	orderID, id := uuid.New(), uuid.New()
	now := time.Now()

	pool, repo := newMockRepo(t)
	pool.ExpectQuery(regexp.QuoteMeta("WHERE order_id = $1 AND NOT deleted")).
		WithArgs(orderID).
		WillReturnRows(pool.NewRows(itemCols).AddRow(id, orderID, uuid.New(), 1, now, now))
	pool.ExpectExec("UPDATE order_items SET deleted = TRUE").
		WithArgs(id, orderID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	pool.ExpectExec("UPDATE order_items SET deleted = TRUE").
		WithArgs(id, orderID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	items, err := repo.List(ctx, orderID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, id, items[0].ID)

	require.NoError(t, repo.SoftDelete(ctx, orderID, id))
	assert.ErrorIs(t, repo.SoftDelete(ctx, orderID, id), types.ErrNotFound)
	assert.NoError(t, pool.ExpectationsWereMet())
}
