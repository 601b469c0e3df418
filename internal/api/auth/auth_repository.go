package auth

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

var _ AuthRepo = (*PostgresAuthRepo)(nil)

type AuthRepo interface {
	// GetUserByEmail matches email case-insensitively among active users.
	GetUserByEmail(ctx context.Context, email string) (*types.User, error)
	// FindCaller returns types.ErrNotFound for unknown or soft-deleted users.
	FindCaller(ctx context.Context, userID uuid.UUID) (*types.Caller, error)
	StoreRefreshToken(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error
	// ConsumeRefreshToken revokes a live token and returns its owner.
	// A token can be consumed once; afterwards it is types.ErrNotFound.
	ConsumeRefreshToken(ctx context.Context, token string) (uuid.UUID, error)
	// CreateAdminIfMissing inserts u unless an active user already has its email.
	CreateAdminIfMissing(ctx context.Context, u *types.User) (bool, error)
}

type PostgresAuthRepo struct {
	logger *slog.Logger
	pgpool database.Pool
}

func NewPostgresAuthRepo(pgpool database.Pool, logger *slog.Logger) *PostgresAuthRepo {
	return &PostgresAuthRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

func (r *PostgresAuthRepo) GetUserByEmail(ctx context.Context, email string) (_ *types.User, err error) {
	ctx, span := otel.Tracer("AuthRepo").Start(ctx, "GetUserByEmail", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "users"),
	))
	defer span.End()
	defer database.Observe(ctx, "auth.get_user_by_email", time.Now(), &err)

	var u types.User
	err = r.pgpool.QueryRow(ctx, `
		SELECT id, username, email, password_hash, cpf, rg, endereco, is_admin
		FROM users
		WHERE LOWER(email) = LOWER($1) AND NOT deleted`, email).
		Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CPF, &u.RG, &u.Endereco, &u.IsAdmin)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return &u, nil
}

func (r *PostgresAuthRepo) FindCaller(ctx context.Context, userID uuid.UUID) (_ *types.Caller, err error) {
	defer database.Observe(ctx, "auth.find_caller", time.Now(), &err)

	c := types.Caller{}
	err = r.pgpool.QueryRow(ctx,
		`SELECT id, is_admin FROM users WHERE id = $1 AND NOT deleted`, userID).
		Scan(&c.UserID, &c.IsAdmin)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("find caller: %w", err)
	}
	return &c, nil
}

func (r *PostgresAuthRepo) StoreRefreshToken(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) (err error) {
	defer database.Observe(ctx, "auth.store_refresh_token", time.Now(), &err)

	_, err = r.pgpool.Exec(ctx,
		`INSERT INTO refresh_tokens (id, user_id, token, expires_at) VALUES ($1, $2, $3, $4)`,
		uuid.New(), userID, token, expiresAt)
	if err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	return nil
}

func (r *PostgresAuthRepo) ConsumeRefreshToken(ctx context.Context, token string) (_ uuid.UUID, err error) {
	ctx, span := otel.Tracer("AuthRepo").Start(ctx, "ConsumeRefreshToken", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "refresh_tokens"),
	))
	defer span.End()
	defer database.Observe(ctx, "auth.consume_refresh_token", time.Now(), &err)

	var userID uuid.UUID
	err = r.pgpool.QueryRow(ctx, `
		UPDATE refresh_tokens
		SET revoked_at = NOW()
		WHERE token = $1 AND revoked_at IS NULL AND expires_at > NOW()
		RETURNING user_id`, token).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, types.ErrNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return uuid.Nil, fmt.Errorf("consume refresh token: %w", err)
	}
	return userID, nil
}

func (r *PostgresAuthRepo) CreateAdminIfMissing(ctx context.Context, u *types.User) (_ bool, err error) {
	defer database.Observe(ctx, "auth.create_admin", time.Now(), &err)

	tag, err := r.pgpool.Exec(ctx, `
		INSERT INTO users (id, username, email, password_hash, cpf, rg, endereco, is_admin)
		VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE)
		ON CONFLICT ((LOWER(email))) WHERE NOT deleted DO NOTHING`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.CPF, u.RG, u.Endereco)
	if err != nil {
		return false, fmt.Errorf("create admin: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
