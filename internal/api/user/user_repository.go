package user

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

var _ UserRepo = (*PostgresUserRepo)(nil)

// UserRepo persists users. Every read ignores soft-deleted rows.
type UserRepo interface {
	// Create returns types.ErrConflict when an active user already has the email.
	Create(ctx context.Context, u *types.User) error
	List(ctx context.Context) ([]types.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*types.User, error)
	// Update writes the non-nil columns of changes.
	Update(ctx context.Context, id uuid.UUID, changes types.UserChanges) (*types.User, error)
	// SoftDelete marks the user, their orders and those orders' items deleted
	// and revokes their refresh tokens, all in one transaction.
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

type PostgresUserRepo struct {
	logger *slog.Logger
	pgpool database.Pool
}

func NewPostgresUserRepo(pgpool database.Pool, logger *slog.Logger) *PostgresUserRepo {
	return &PostgresUserRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

const userColumns = `id, username, email, cpf, rg, endereco, is_admin, created_at, updated_at`

func scanUser(row pgx.Row) (*types.User, error) {
	var u types.User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.CPF, &u.RG, &u.Endereco, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func startSpan(ctx context.Context, op string) (context.Context, trace.Span) {
	return otel.Tracer("UserRepo").Start(ctx, op, trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "users"),
	))
}

func (r *PostgresUserRepo) Create(ctx context.Context, u *types.User) (err error) {
	ctx, span := startSpan(ctx, "Create")
	defer span.End()
	defer database.Observe(ctx, "users.create", time.Now(), &err)

	err = r.pgpool.QueryRow(ctx, `
		INSERT INTO users (id, username, email, password_hash, cpf, rg, endereco)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.CPF, u.RG, u.Endereco).
		Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if database.PgErrorCode(err) == database.UniqueViolation {
			return fmt.Errorf("%w: email already registered", types.ErrConflict)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *PostgresUserRepo) List(ctx context.Context) (_ []types.User, err error) {
	ctx, span := startSpan(ctx, "List")
	defer span.End()
	defer database.Observe(ctx, "users.list", time.Now(), &err)

	rows, err := r.pgpool.Query(ctx, `SELECT `+userColumns+` FROM users WHERE NOT deleted ORDER BY created_at, id`)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []types.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

func (r *PostgresUserRepo) GetByID(ctx context.Context, id uuid.UUID) (_ *types.User, err error) {
	defer database.Observe(ctx, "users.get", time.Now(), &err)

	u, err := scanUser(r.pgpool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1 AND NOT deleted`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (r *PostgresUserRepo) Update(ctx context.Context, id uuid.UUID, c types.UserChanges) (_ *types.User, err error) {
	ctx, span := startSpan(ctx, "Update")
	defer span.End()
	defer database.Observe(ctx, "users.update", time.Now(), &err)

	u, err := scanUser(r.pgpool.QueryRow(ctx, `
		UPDATE users SET
			username      = COALESCE($2, username),
			email         = COALESCE($3, email),
			password_hash = COALESCE($4, password_hash),
			cpf           = COALESCE($5, cpf),
			rg            = COALESCE($6, rg),
			endereco      = COALESCE($7, endereco),
			updated_at    = NOW()
		WHERE id = $1 AND NOT deleted
		RETURNING `+userColumns,
		id, c.Username, c.Email, c.PasswordHash, c.CPF, c.RG, c.Endereco))
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return nil, types.ErrNotFound
		case database.PgErrorCode(err) == database.UniqueViolation:
			return nil, fmt.Errorf("%w: email already registered", types.ErrConflict)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return nil, fmt.Errorf("update user: %w", err)
	}
	return u, nil
}

func (r *PostgresUserRepo) SoftDelete(ctx context.Context, id uuid.UUID) (err error) {
	ctx, span := startSpan(ctx, "SoftDelete")
	defer span.End()
	defer database.Observe(ctx, "users.soft_delete", time.Now(), &err)

	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	tag, err := tx.Exec(ctx, `UPDATE users SET deleted = TRUE, updated_at = NOW() WHERE id = $1 AND NOT deleted`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		err = types.ErrNotFound
		return err
	}
	if _, err = tx.Exec(ctx, `
		UPDATE order_items SET deleted = TRUE, updated_at = NOW()
		WHERE NOT deleted AND order_id IN (SELECT id FROM orders WHERE user_id = $1 AND NOT deleted)`, id); err != nil {
		return fmt.Errorf("cascade order items: %w", err)
	}
	if _, err = tx.Exec(ctx, `UPDATE orders SET deleted = TRUE, updated_at = NOW() WHERE user_id = $1 AND NOT deleted`, id); err != nil {
		return fmt.Errorf("cascade orders: %w", err)
	}
	if _, err = tx.Exec(ctx, `UPDATE refresh_tokens SET revoked_at = NOW() WHERE user_id = $1 AND revoked_at IS NULL`, id); err != nil {
		return fmt.Errorf("revoke refresh tokens: %w", err)
	}
	if err = tx.Commit(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
