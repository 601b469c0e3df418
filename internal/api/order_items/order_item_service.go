package orderItem

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-pedidos-api/internal/access"
	"github.com/FACorreiaa/go-pedidos-api/internal/types"
	"github.com/FACorreiaa/go-pedidos-api/internal/validation"
)

var _ OrderItemService = (*OrderItemServiceImpl)(nil)

// OrderItemService manages the lines of one order. Every method first checks
// that the scope owns the parent order and answers types.ErrNotFound if not.
type OrderItemService interface {
	Create(ctx context.Context, scope access.Scope, orderID uuid.UUID, in types.OrderItemInput) (*types.OrderItem, error)
	List(ctx context.Context, scope access.Scope, orderID uuid.UUID) ([]types.OrderItem, error)
	Get(ctx context.Context, scope access.Scope, orderID, id uuid.UUID) (*types.OrderItem, error)
	Update(ctx context.Context, scope access.Scope, orderID, id uuid.UUID, in types.OrderItemInput, partial bool) (*types.OrderItem, error)
	Delete(ctx context.Context, scope access.Scope, orderID, id uuid.UUID) error
}

type OrderItemServiceImpl struct {
	logger    *slog.Logger
	repo      OrderItemRepo
	validator *validation.RequestValidator
}

func NewOrderItemService(repo OrderItemRepo, validator *validation.RequestValidator, logger *slog.Logger) *OrderItemServiceImpl {
	return &OrderItemServiceImpl{
		logger:    logger,
		repo:      repo,
		validator: validator,
	}
}

func missingProduct(id uuid.UUID) types.FieldErrors {
	return types.FieldErrors{"produto": {fmt.Sprintf("Invalid pk %q - object does not exist.", id.String())}}
}

func duplicateLine(err error) error {
	return errors.Join(err, types.FieldErrors{"non_field_errors": {"The fields pedido, produto must make a unique set."}})
}

func (s *OrderItemServiceImpl) parent(ctx context.Context, scope access.Scope, orderID uuid.UUID) error {
	if scope.OwnerID == uuid.Nil {
		return types.ErrNotFound
	}
	if err := s.repo.OrderOwnedBy(ctx, orderID, scope.OwnerID); err != nil {
		return fmt.Errorf("order %s: %w", orderID, err)
	}
	return nil
}

func (s *OrderItemServiceImpl) checkProduct(ctx context.Context, productID *uuid.UUID) error {
	if productID == nil {
		return nil
	}
	ok, err := s.repo.ProductActive(ctx, *productID)
	if err != nil {
		return err
	}
	if !ok {
		return missingProduct(*productID)
	}
	return nil
}

// writeError maps store failures of Create and Update onto client errors.
func writeError(err error, productID *uuid.UUID) error {
	switch {
	case errors.Is(err, types.ErrConflict):
		return duplicateLine(err)
	case errors.Is(err, errProductMissing) && productID != nil:
		return missingProduct(*productID)
	}
	return err
}

func (s *OrderItemServiceImpl) Create(ctx context.Context, scope access.Scope, orderID uuid.UUID, in types.OrderItemInput) (*types.OrderItem, error) {
	ctx, span := otel.Tracer("OrderItemService").Start(ctx, "Create", trace.WithAttributes(
		attribute.String("order.id", orderID.String()),
	))
	defer span.End()

	if err := s.parent(ctx, scope, orderID); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}
	if err := s.checkProduct(ctx, in.ProductID); err != nil {
		return nil, err
	}

	item := &types.OrderItem{
		ID:         uuid.New(),
		OrderID:    orderID,
		ProductID:  *in.ProductID,
		Quantidade: *in.Quantidade,
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("create order item: %w", writeError(err, in.ProductID))
	}
	s.logger.InfoContext(ctx, "Order item added",
		slog.String("order_id", orderID.String()),
		slog.String("product_id", item.ProductID.String()))
	return item, nil
}

func (s *OrderItemServiceImpl) List(ctx context.Context, scope access.Scope, orderID uuid.UUID) ([]types.OrderItem, error) {
	if err := s.parent(ctx, scope, orderID); err != nil {
		return nil, err
	}
	items, err := s.repo.List(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	return items, nil
}

func (s *OrderItemServiceImpl) Get(ctx context.Context, scope access.Scope, orderID, id uuid.UUID) (*types.OrderItem, error) {
	if err := s.parent(ctx, scope, orderID); err != nil {
		return nil, err
	}
	it, err := s.repo.GetByID(ctx, orderID, id)
	if err != nil {
		return nil, fmt.Errorf("get order item: %w", err)
	}
	return it, nil
}

func (s *OrderItemServiceImpl) Update(ctx context.Context, scope access.Scope, orderID, id uuid.UUID, in types.OrderItemInput, partial bool) (*types.OrderItem, error) {
	if err := s.parent(ctx, scope, orderID); err != nil {
		return nil, err
	}
	var err error
	if partial {
		err = s.validator.Partial(in, in.Provided())
	} else {
		err = s.validator.Struct(in)
	}
	if err != nil {
		return nil, err
	}
	if err = s.checkProduct(ctx, in.ProductID); err != nil {
		return nil, err
	}

	it, err := s.repo.Update(ctx, orderID, id, in.ProductID, in.Quantidade)
	if err != nil {
		return nil, fmt.Errorf("update order item: %w", writeError(err, in.ProductID))
	}
	return it, nil
}

func (s *OrderItemServiceImpl) Delete(ctx context.Context, scope access.Scope, orderID, id uuid.UUID) error {
	if err := s.parent(ctx, scope, orderID); err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, orderID, id); err != nil {
		return fmt.Errorf("delete order item: %w", err)
	}
	return nil
}
