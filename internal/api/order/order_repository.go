package order

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	database "github.com/FACorreiaa/go-pedidos-api/app/db"
	"github.com/FACorreiaa/go-pedidos-api/internal/access"
	"github.com/FACorreiaa/go-pedidos-api/internal/types"
)

var _ OrderRepo = (*PostgresOrderRepo)(nil)

// OrderRepo persists orders. Reads and writes are limited to rows the scope
// allows; anything outside it behaves as if it did not exist.
type OrderRepo interface {
	Create(ctx context.Context, o *types.Order) error
	List(ctx context.Context, scope access.Scope) ([]types.Order, error)
	GetByID(ctx context.Context, id uuid.UUID, scope access.Scope) (*types.Order, error)
	UpdateEndereco(ctx context.Context, id uuid.UUID, scope access.Scope, endereco string) (*types.Order, error)
	// SoftDelete marks the order and its line items deleted in one transaction.
	SoftDelete(ctx context.Context, id uuid.UUID, scope access.Scope) error
}

type PostgresOrderRepo struct {
	logger *slog.Logger
	pgpool database.Pool
}

func NewPostgresOrderRepo(pgpool database.Pool, logger *slog.Logger) *PostgresOrderRepo {
	return &PostgresOrderRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

const orderColumns = `id, user_id, endereco, feito, updated_at`

// scopeFilter is appended to every WHERE clause; $2 and $3 carry the scope.
const scopeFilter = ` AND NOT deleted AND ($2::boolean OR user_id = $3)`

func scanOrder(row pgx.Row) (*types.Order, error) {
	var o types.Order
	if err := row.Scan(&o.ID, &o.UserID, &o.Endereco, &o.Feito, &o.UpdatedAt); err != nil {
		return nil, err
	}
	return &o, nil
}

func startSpan(ctx context.Context, op string) (context.Context, trace.Span) {
	return otel.Tracer("OrderRepo").Start(ctx, op, trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "orders"),
	))
}

func (r *PostgresOrderRepo) Create(ctx context.Context, o *types.Order) (err error) {
	ctx, span := startSpan(ctx, "Create")
	defer span.End()
	defer database.Observe(ctx, "orders.create", time.Now(), &err)

	err = r.pgpool.QueryRow(ctx, `
		INSERT INTO orders (id, user_id, endereco) VALUES ($1, $2, $3)
		RETURNING feito, updated_at`,
		o.ID, o.UserID, o.Endereco).Scan(&o.Feito, &o.UpdatedAt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		if database.PgErrorCode(err) == database.ForeignKeyViolation {
			return fmt.Errorf("%w: user", types.ErrNotFound)
		}
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}

func (r *PostgresOrderRepo) List(ctx context.Context, scope access.Scope) (_ []types.Order, err error) {
	ctx, span := startSpan(ctx, "List")
	defer span.End()
	defer database.Observe(ctx, "orders.list", time.Now(), &err)

	rows, err := r.pgpool.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE NOT deleted AND ($1::boolean OR user_id = $2)
		ORDER BY feito, id`, scope.All, scope.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := []types.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	span.SetAttributes(attribute.Int("orders.count", len(orders)))
	return orders, nil
}

func (r *PostgresOrderRepo) GetByID(ctx context.Context, id uuid.UUID, scope access.Scope) (_ *types.Order, err error) {
	defer database.Observe(ctx, "orders.get", time.Now(), &err)

	o, err := scanOrder(r.pgpool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`+scopeFilter,
		id, scope.All, scope.OwnerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

func (r *PostgresOrderRepo) UpdateEndereco(ctx context.Context, id uuid.UUID, scope access.Scope, endereco string) (_ *types.Order, err error) {
	defer database.Observe(ctx, "orders.update", time.Now(), &err)

	o, err := scanOrder(r.pgpool.QueryRow(ctx, `
		UPDATE orders SET endereco = $4, updated_at = NOW()
		WHERE id = $1`+scopeFilter+`
		RETURNING `+orderColumns,
		id, scope.All, scope.OwnerID, endereco))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("update order: %w", err)
	}
	return o, nil
}

func (r *PostgresOrderRepo) SoftDelete(ctx context.Context, id uuid.UUID, scope access.Scope) (err error) {
	ctx, span := startSpan(ctx, "SoftDelete")
	defer span.End()
	defer database.Observe(ctx, "orders.soft_delete", time.Now(), &err)

	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	tag, err := tx.Exec(ctx,
		`UPDATE orders SET deleted = TRUE, updated_at = NOW() WHERE id = $1`+scopeFilter,
		id, scope.All, scope.OwnerID)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		err = types.ErrNotFound
		return err
	}
	if _, err = tx.Exec(ctx, `UPDATE order_items SET deleted = TRUE, updated_at = NOW() WHERE order_id = $1 AND NOT deleted`, id); err != nil {
		return fmt.Errorf("cascade order items: %w", err)
	}
	if err = tx.Commit(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("commit: %w", err)
	}
	r.logger.DebugContext(ctx, "Order soft-deleted", slog.String("order_id", id.String()))
	return nil
}
