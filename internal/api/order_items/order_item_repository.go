package orderItem

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
	"github.com/FACorreiaa/go-pedidos-api/internal/types"
)

var _ OrderItemRepo = (*PostgresOrderItemRepo)(nil)

// errProductMissing reports a write that referenced a product id the
// products table does not hold.
var errProductMissing = errors.New("referenced product does not exist")

// OrderItemRepo persists the line items of an order. Every item operation is
// keyed by its parent order id; callers check ownership of that order first.
type OrderItemRepo interface {
	// OrderOwnedBy returns types.ErrNotFound unless the order exists, is not
	// deleted and belongs to ownerID.
	OrderOwnedBy(ctx context.Context, orderID, ownerID uuid.UUID) error
	ProductActive(ctx context.Context, productID uuid.UUID) (bool, error)
	// Create returns types.ErrConflict when the order already has an active
	// line for the product.
	Create(ctx context.Context, item *types.OrderItem) error
	List(ctx context.Context, orderID uuid.UUID) ([]types.OrderItem, error)
	GetByID(ctx context.Context, orderID, id uuid.UUID) (*types.OrderItem, error)
	Update(ctx context.Context, orderID, id uuid.UUID, productID *uuid.UUID, quantidade *int) (*types.OrderItem, error)
	SoftDelete(ctx context.Context, orderID, id uuid.UUID) error
}

type PostgresOrderItemRepo struct {
	logger *slog.Logger
	pgpool database.Pool
}

func NewPostgresOrderItemRepo(pgpool database.Pool, logger *slog.Logger) *PostgresOrderItemRepo {
	return &PostgresOrderItemRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

const itemColumns = `id, order_id, product_id, quantidade, created_at, updated_at`

func scanItem(row pgx.Row) (*types.OrderItem, error) {
	var it types.OrderItem
	if err := row.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantidade, &it.CreatedAt, &it.UpdatedAt); err != nil {
		return nil, err
	}
	return &it, nil
}

func startSpan(ctx context.Context, op string) (context.Context, trace.Span) {
	return otel.Tracer("OrderItemRepo").Start(ctx, op, trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "order_items"),
	))
}

// mapWriteError translates constraint violations raised by inserts and updates.
func mapWriteError(err error) error {
	switch database.PgErrorCode(err) {
	case database.UniqueViolation:
		return fmt.Errorf("%w: product already in order", types.ErrConflict)
	case database.ForeignKeyViolation:
		return errProductMissing
	case database.CheckViolation:
		return types.FieldErrors{"quantidade": {"Ensure this value is greater than or equal to 1."}}
	}
	return fmt.Errorf("write order item: %w", err)
}

func (r *PostgresOrderItemRepo) OrderOwnedBy(ctx context.Context, orderID, ownerID uuid.UUID) (err error) {
	defer database.Observe(ctx, "order_items.parent", time.Now(), &err)

	var one int
	err = r.pgpool.QueryRow(ctx,
		`SELECT 1 FROM orders WHERE id = $1 AND user_id = $2 AND NOT deleted`,
		orderID, ownerID).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return types.ErrNotFound
		}
		return fmt.Errorf("check order owner: %w", err)
	}
	return nil
}

func (r *PostgresOrderItemRepo) ProductActive(ctx context.Context, productID uuid.UUID) (_ bool, err error) {
	defer database.Observe(ctx, "order_items.product", time.Now(), &err)

	var exists bool
	err = r.pgpool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM products WHERE id = $1 AND NOT deleted)`,
		productID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check product: %w", err)
	}
	return exists, nil
}

func (r *PostgresOrderItemRepo) Create(ctx context.Context, item *types.OrderItem) (err error) {
	ctx, span := startSpan(ctx, "Create")
	defer span.End()
	defer database.Observe(ctx, "order_items.create", time.Now(), &err)

	err = r.pgpool.QueryRow(ctx, `
		INSERT INTO order_items (id, order_id, product_id, quantidade) VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`,
		item.ID, item.OrderID, item.ProductID, item.Quantidade).Scan(&item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return mapWriteError(err)
	}
	return nil
}

func (r *PostgresOrderItemRepo) List(ctx context.Context, orderID uuid.UUID) (_ []types.OrderItem, err error) {
	defer database.Observe(ctx, "order_items.list", time.Now(), &err)

	rows, err := r.pgpool.Query(ctx, `
		SELECT `+itemColumns+` FROM order_items
		WHERE order_id = $1 AND NOT deleted
		ORDER BY created_at, id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	defer rows.Close()

	items := []types.OrderItem{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, *it)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}
	return items, nil
}

func (r *PostgresOrderItemRepo) GetByID(ctx context.Context, orderID, id uuid.UUID) (_ *types.OrderItem, err error) {
	defer database.Observe(ctx, "order_items.get", time.Now(), &err)

	it, err := scanItem(r.pgpool.QueryRow(ctx,
		`SELECT `+itemColumns+` FROM order_items WHERE id = $1 AND order_id = $2 AND NOT deleted`,
		id, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("get order item: %w", err)
	}
	return it, nil
}

func (r *PostgresOrderItemRepo) Update(ctx context.Context, orderID, id uuid.UUID, productID *uuid.UUID, quantidade *int) (_ *types.OrderItem, err error) {
	ctx, span := startSpan(ctx, "Update")
	defer span.End()
	defer database.Observe(ctx, "order_items.update", time.Now(), &err)

	it, err := scanItem(r.pgpool.QueryRow(ctx, `
		UPDATE order_items SET
			product_id = COALESCE($3, product_id),
			quantidade = COALESCE($4, quantidade),
			updated_at = NOW()
		WHERE id = $1 AND order_id = $2 AND NOT deleted
		RETURNING `+itemColumns,
		id, orderID, productID, quantidade))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		span.RecordError(err)
		return nil, mapWriteError(err)
	}
	return it, nil
}

func (r *PostgresOrderItemRepo) SoftDelete(ctx context.Context, orderID, id uuid.UUID) (err error) {
	defer database.Observe(ctx, "order_items.soft_delete", time.Now(), &err)

	tag, err := r.pgpool.Exec(ctx,
		`UPDATE order_items SET deleted = TRUE, updated_at = NOW() WHERE id = $1 AND order_id = $2 AND NOT deleted`,
		id, orderID)
	if err != nil {
		return fmt.Errorf("delete order item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}
