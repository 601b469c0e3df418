package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"

	"github.com/FACorreiaa/go-pedidos-api/app/observability/metrics"
	"github.com/FACorreiaa/go-pedidos-api/internal/types"
	"github.com/FACorreiaa/go-pedidos-api/internal/validation"
)

var _ UserService = (*UserServiceImpl)(nil)

type UserService interface {
	Register(ctx context.Context, in types.UserInput) (*types.User, error)
	List(ctx context.Context) ([]types.User, error)
	Get(ctx context.Context, id uuid.UUID) (*types.User, error)
	// Update applies a full (PUT) or partial (PATCH) update.
	Update(ctx context.Context, id uuid.UUID, in types.UserInput, partial bool) (*types.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type UserServiceImpl struct {
	logger    *slog.Logger
	repo      UserRepo
	validator *validation.RequestValidator
	hashCost  int
}

func NewUserService(repo UserRepo, validator *validation.RequestValidator, logger *slog.Logger) *UserServiceImpl {
	return &UserServiceImpl{
		logger:    logger,
		repo:      repo,
		validator: validator,
		hashCost:  bcrypt.DefaultCost,
	}
}

func emailConflict(err error) error {
	return errors.Join(err, types.FieldErrors{"email": {"usuario with this email already exists."}})
}

func (s *UserServiceImpl) Register(ctx context.Context, in types.UserInput) (*types.User, error) {
	ctx, span := otel.Tracer("UserService").Start(ctx, "Register")
	defer span.End()
	l := s.logger.With(slog.String("method", "Register"))

	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(*in.Password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &types.User{
		ID:           uuid.New(),
		Username:     *in.Username,
		Email:        *in.Email,
		PasswordHash: string(hash),
		CPF:          *in.CPF,
		RG:           *in.RG,
		Endereco:     *in.Endereco,
	}
	if err = s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, types.ErrConflict) {
			return nil, emailConflict(err)
		}
		l.ErrorContext(ctx, "Failed to create user", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "create failed")
		return nil, fmt.Errorf("register: %w", err)
	}

	metrics.Get().RegisterRequestsTotal.Add(ctx, 1)
	l.InfoContext(ctx, "User registered", slog.String("user_id", u.ID.String()))
	return u, nil
}

func (s *UserServiceImpl) List(ctx context.Context) ([]types.User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *UserServiceImpl) Get(ctx context.Context, id uuid.UUID) (*types.User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *UserServiceImpl) Update(ctx context.Context, id uuid.UUID, in types.UserInput, partial bool) (*types.User, error) {
	ctx, span := otel.Tracer("UserService").Start(ctx, "Update", trace.WithAttributes(
		attribute.String("user.id", id.String()),
		attribute.Bool("partial", partial),
	))
	defer span.End()

	var err error
	if partial {
		err = s.validator.Partial(in, in.Provided())
	} else {
		err = s.validator.Struct(in)
	}
	if err != nil {
		return nil, err
	}

	changes := types.UserChanges{
		Username: in.Username,
		Email:    in.Email,
		CPF:      in.CPF,
		RG:       in.RG,
		Endereco: in.Endereco,
	}
	if in.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*in.Password), s.hashCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		h := string(hash)
		changes.PasswordHash = &h
	}

	u, err := s.repo.Update(ctx, id, changes)
	if err != nil {
		if errors.Is(err, types.ErrConflict) {
			return nil, emailConflict(err)
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return u, nil
}

func (s *UserServiceImpl) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	s.logger.InfoContext(ctx, "User deleted", slog.String("user_id", id.String()))
	return nil
}
