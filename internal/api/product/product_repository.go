package product

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

var _ ProductRepo = (*PostgresProductRepo)(nil)

type ProductRepo interface {
	Create(ctx context.Context, p *types.Product) error
	List(ctx context.Context) ([]types.Product, error)
	GetByID(ctx context.Context, id uuid.UUID) (*types.Product, error)
	Update(ctx context.Context, id uuid.UUID, nome, descricao *string) (*types.Product, error)
	// SoftDelete also marks every line item referencing the product deleted.
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

type PostgresProductRepo struct {
	logger *slog.Logger
	pgpool database.Pool
}

func NewPostgresProductRepo(pgpool database.Pool, logger *slog.Logger) *PostgresProductRepo {
	return &PostgresProductRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

const productColumns = `id, nome, descricao, created_at, updated_at`

func scanProduct(row pgx.Row) (*types.Product, error) {
	var p types.Product
	if err := row.Scan(&p.ID, &p.Nome, &p.Descricao, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PostgresProductRepo) Create(ctx context.Context, p *types.Product) (err error) {
	ctx, span := otel.Tracer("ProductRepo").Start(ctx, "Create", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "products"),
	))
	defer span.End()
	defer database.Observe(ctx, "products.create", time.Now(), &err)

	err = r.pgpool.QueryRow(ctx, `
		INSERT INTO products (id, nome, descricao) VALUES ($1, $2, $3)
		RETURNING created_at, updated_at`,
		p.ID, p.Nome, p.Descricao).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

func (r *PostgresProductRepo) List(ctx context.Context) (_ []types.Product, err error) {
	defer database.Observe(ctx, "products.list", time.Now(), &err)

	rows, err := r.pgpool.Query(ctx, `SELECT `+productColumns+` FROM products WHERE NOT deleted ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := []types.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return products, nil
}

func (r *PostgresProductRepo) GetByID(ctx context.Context, id uuid.UUID) (_ *types.Product, err error) {
	defer database.Observe(ctx, "products.get", time.Now(), &err)

	p, err := scanProduct(r.pgpool.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1 AND NOT deleted`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

func (r *PostgresProductRepo) Update(ctx context.Context, id uuid.UUID, nome, descricao *string) (_ *types.Product, err error) {
	defer database.Observe(ctx, "products.update", time.Now(), &err)

	p, err := scanProduct(r.pgpool.QueryRow(ctx, `
		UPDATE products SET
			nome       = COALESCE($2, nome),
			descricao  = COALESCE($3, descricao),
			updated_at = NOW()
		WHERE id = $1 AND NOT deleted
		RETURNING `+productColumns,
		id, nome, descricao))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("update product: %w", err)
	}
	return p, nil
}

func (r *PostgresProductRepo) SoftDelete(ctx context.Context, id uuid.UUID) (err error) {
	ctx, span := otel.Tracer("ProductRepo").Start(ctx, "SoftDelete", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "products"),
	))
	defer span.End()
	defer database.Observe(ctx, "products.soft_delete", time.Now(), &err)

	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	tag, err := tx.Exec(ctx, `UPDATE products SET deleted = TRUE, updated_at = NOW() WHERE id = $1 AND NOT deleted`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		err = types.ErrNotFound
		return err
	}
	if _, err = tx.Exec(ctx, `UPDATE order_items SET deleted = TRUE, updated_at = NOW() WHERE product_id = $1 AND NOT deleted`, id); err != nil {
		return fmt.Errorf("cascade order items: %w", err)
	}
	if err = tx.Commit(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
