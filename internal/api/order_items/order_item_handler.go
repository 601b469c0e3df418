package orderItem

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/FACorreiaa/go-pedidos-api/internal/access"
	"github.com/FACorreiaa/go-pedidos-api/internal/api"
	"github.com/FACorreiaa/go-pedidos-api/internal/api/auth"
	"github.com/FACorreiaa/go-pedidos-api/internal/types"
)

var _ Handler = (*HandlerImpl)(nil)

type Handler interface {
	List(w http.ResponseWriter, r *http.Request)
	Create(w http.ResponseWriter, r *http.Request)
	Retrieve(w http.ResponseWriter, r *http.Request)
	Update(w http.ResponseWriter, r *http.Request)
	PartialUpdate(w http.ResponseWriter, r *http.Request)
	Delete(w http.ResponseWriter, r *http.Request)
}

type HandlerImpl struct {
	orderItemService OrderItemService
	logger           *slog.Logger
}

func NewHandlerImpl(orderItemService OrderItemService, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		orderItemService: orderItemService,
		logger:           logger,
	}
}

type target struct {
	scope   access.Scope
	orderID uuid.UUID
	id      uuid.UUID
}

// resolve authorizes the action and parses the order id, plus the item id
// when detail is set. Any malformed id answers 404.
func (h *HandlerImpl) resolve(w http.ResponseWriter, r *http.Request, action access.Action, detail bool) (target, bool) {
	caller := auth.CallerFromContext(r.Context())
	if err := access.Authorize(access.OrderItem, action, caller, access.Target{}); err != nil {
		api.AccessError(w, r, err)
		return target{}, false
	}
	t := target{scope: access.ScopeFor(access.OrderItem, caller)}
	var ok bool
	if t.orderID, ok = api.PathUUID(r, "pedido_id"); !ok {
		api.NotFound(w, r)
		return target{}, false
	}
	if detail {
		if t.id, ok = api.PathUUID(r, "id"); !ok {
			api.NotFound(w, r)
			return target{}, false
		}
	}
	return t, true
}

// List godoc
// @Summary      List the lines of an order
// @Tags         PedidoProdutos
// @Produce      json
// @Param        pedido_id path string true "Order ID"
// @Success      200 {array} types.OrderItem
// @Failure      401 {object} types.Response
// @Failure      404 {object} types.Response
// @Security     BearerAuth
// @Router       /pedidos/{pedido_id}/produtos/ [get]
func (h *HandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("method", "List"))
	t, ok := h.resolve(w, r, access.List, false)
	if !ok {
		return
	}
	items, err := h.orderItemService.List(r.Context(), t.scope, t.orderID)
	if err != nil {
		api.ServiceError(w, r, l, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, items)
}

// Create godoc
// @Summary      Add a product to an order
// @Tags         PedidoProdutos
// @Accept       json
// @Produce      json
// @Param        pedido_id path string true "Order ID"
// @Param        item body types.OrderItemInput true "Line item"
// @Success      201 {object} types.OrderItem
// @Failure      400 {object} types.Response
// @Failure      404 {object} types.Response
// @Failure      409 {object} types.Response
// @Security     BearerAuth
// @Router       /pedidos/{pedido_id}/produtos/ [post]
func (h *HandlerImpl) Create(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("method", "Create"))
	t, ok := h.resolve(w, r, access.Create, false)
	if !ok {
		return
	}
	var in types.OrderItemInput
	if err := api.DecodeJSONBody(w, r, &in); err != nil {
		api.DecodeError(w, r, err)
		return
	}
	item, err := h.orderItemService.Create(r.Context(), t.scope, t.orderID, in)
	if err != nil {
		api.ServiceError(w, r, l, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusCreated, item)
}

// Retrieve godoc
// @Summary      Get a line of an order
// @Tags         PedidoProdutos
// @Produce      json
// @Param        pedido_id path string true "Order ID"
// @Param        id path string true "Line item ID"
// @Success      200 {object} types.OrderItem
// @Failure      404 {object} types.Response
// @Security     BearerAuth
// @Router       /pedidos/{pedido_id}/produtos/{id}/ [get]
func (h *HandlerImpl) Retrieve(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("method", "Retrieve"))
	t, ok := h.resolve(w, r, access.Retrieve, true)
	if !ok {
		return
	}
	item, err := h.orderItemService.Get(r.Context(), t.scope, t.orderID, t.id)
	if err != nil {
		api.ServiceError(w, r, l, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, item)
}

// Update godoc
// @Summary      Replace a line of an order
// @Tags         PedidoProdutos
// @Accept       json
// @Produce      json
// @Param        pedido_id path string true "Order ID"
// @Param        id path string true "Line item ID"
// @Param        item body types.OrderItemInput true "Line item"
// @Success      200 {object} types.OrderItem
// @Failure      400 {object} types.Response
// @Failure      404 {object} types.Response
// @Failure      409 {object} types.Response
// @Security     BearerAuth
// @Router       /pedidos/{pedido_id}/produtos/{id}/ [put]
func (h *HandlerImpl) Update(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, access.Update, false)
}

// PartialUpdate godoc
// @Summary      Update some fields of a line
// @Tags         PedidoProdutos
// @Accept       json
// @Produce      json
// @Param        pedido_id path string true "Order ID"
// @Param        id path string true "Line item ID"
// @Param        item body types.OrderItemInput true "Fields to change"
// @Success      200 {object} types.OrderItem
// @Failure      400 {object} types.Response
// @Failure      404 {object} types.Response
// @Security     BearerAuth
// @Router       /pedidos/{pedido_id}/produtos/{id}/ [patch]
func (h *HandlerImpl) PartialUpdate(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, access.PartialUpdate, true)
}

func (h *HandlerImpl) update(w http.ResponseWriter, r *http.Request, action access.Action, partial bool) {
	l := h.logger.With(slog.String("method", string(action)))
	t, ok := h.resolve(w, r, action, true)
	if !ok {
		return
	}
	var in types.OrderItemInput
	if err := api.DecodeJSONBody(w, r, &in); err != nil {
		api.DecodeError(w, r, err)
		return
	}
	item, err := h.orderItemService.Update(r.Context(), t.scope, t.orderID, t.id, in, partial)
	if err != nil {
		api.ServiceError(w, r, l, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, item)
}

// Delete godoc
// @Summary      Remove a line from an order
// @Tags         PedidoProdutos
// @Param        pedido_id path string true "Order ID"
// @Param        id path string true "Line item ID"
// @Success      204
// @Failure      404 {object} types.Response
// @Security     BearerAuth
// @Router       /pedidos/{pedido_id}/produtos/{id}/ [delete]
func (h *HandlerImpl) Delete(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("method", "Delete"))
	t, ok := h.resolve(w, r, access.Delete, true)
	if !ok {
		return
	}
	if err := h.orderItemService.Delete(r.Context(), t.scope, t.orderID, t.id); err != nil {
		api.ServiceError(w, r, l, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusNoContent, nil)
}
