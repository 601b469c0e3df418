package order

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-pedidos-api/app/observability/metrics"
	"github.com/FACorreiaa/go-pedidos-api/internal/access"
	"github.com/FACorreiaa/go-pedidos-api/internal/types"
	"github.com/FACorreiaa/go-pedidos-api/internal/validation"
)

var _ OrderService = (*OrderServiceImpl)(nil)

type OrderService interface {
	// Create places an order owned by userID.
	Create(ctx context.Context, userID uuid.UUID, in types.OrderInput) (*types.Order, error)
	List(ctx context.Context, scope access.Scope) ([]types.Order, error)
	Get(ctx context.Context, id uuid.UUID, scope access.Scope) (*types.Order, error)
	Update(ctx context.Context, id uuid.UUID, scope access.Scope, in types.OrderInput, partial bool) (*types.Order, error)
	Delete(ctx context.Context, id uuid.UUID, scope access.Scope) error
}

type OrderServiceImpl struct {
	logger    *slog.Logger
	repo      OrderRepo
	validator *validation.RequestValidator
}

func NewOrderService(repo OrderRepo, validator *validation.RequestValidator, logger *slog.Logger) *OrderServiceImpl {
	return &OrderServiceImpl{
		logger:    logger,
		repo:      repo,
		validator: validator,
	}
}

func (s *OrderServiceImpl) Create(ctx context.Context, userID uuid.UUID, in types.OrderInput) (*types.Order, error) {
	ctx, span := otel.Tracer("OrderService").Start(ctx, "Create", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}
	o := &types.Order{ID: uuid.New(), UserID: userID, Endereco: *in.Endereco}
	if err := s.repo.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	metrics.Get().OrdersCreatedTotal.Add(ctx, 1)
	s.logger.InfoContext(ctx, "Order created",
		slog.String("order_id", o.ID.String()),
		slog.String("user_id", userID.String()))
	return o, nil
}

func (s *OrderServiceImpl) List(ctx context.Context, scope access.Scope) ([]types.Order, error) {
	orders, err := s.repo.List(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

func (s *OrderServiceImpl) Get(ctx context.Context, id uuid.UUID, scope access.Scope) (*types.Order, error) {
	o, err := s.repo.GetByID(ctx, id, scope)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

// Update only ever touches endereco, so a PATCH without it is a no-op read.
func (s *OrderServiceImpl) Update(ctx context.Context, id uuid.UUID, scope access.Scope, in types.OrderInput, partial bool) (*types.Order, error) {
	var err error
	if partial {
		err = s.validator.Partial(in, in.Provided())
	} else {
		err = s.validator.Struct(in)
	}
	if err != nil {
		return nil, err
	}
	if in.Endereco == nil {
		return s.Get(ctx, id, scope)
	}
	o, err := s.repo.UpdateEndereco(ctx, id, scope, *in.Endereco)
	if err != nil {
		return nil, fmt.Errorf("update order: %w", err)
	}
	return o, nil
}

func (s *OrderServiceImpl) Delete(ctx context.Context, id uuid.UUID, scope access.Scope) error {
	if err := s.repo.SoftDelete(ctx, id, scope); err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	s.logger.InfoContext(ctx, "Order deleted", slog.String("order_id", id.String()))
	return nil
}
