package order

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
	orderService OrderService
	logger       *slog.Logger
}

func NewHandlerImpl(orderService OrderService, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		orderService: orderService,
		logger:       logger,
	}
}

func (h *HandlerImpl) authorize(w http.ResponseWriter, r *http.Request, action access.Action) (*types.Caller, bool) {
	caller := auth.CallerFromContext(r.Context())
	if err := access.Authorize(access.Order, action, caller, access.Target{}); err != nil {
		api.AccessError(w, r, err)
		return nil, false
	}
	return caller, true
}

// detail authorizes a detail action and resolves the path id.
func (h *HandlerImpl) detail(w http.ResponseWriter, r *http.Request, action access.Action) (uuid.UUID, access.Scope, bool) {
	caller, ok := h.authorize(w, r, action)
	if !ok {
		return uuid.Nil, access.Scope{}, false
	}
	id, ok := api.PathUUID(r, "id")
	if !ok {
		api.NotFound(w, r)
		return uuid.Nil, access.Scope{}, false
	}
	return id, access.ScopeFor(access.Order, caller), true
}

// List godoc
// @Summary      List orders
// @Description  Regular users see their own orders; administrators see all.
// @Tags         Pedidos
// @Produce      json
// @Success      200 {array} types.Order
// @Failure      401 {object} types.Response
// @Security     BearerAuth
// @Router       /pedidos/ [get]
func (h *HandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("method", "List"))
	caller, ok := h.authorize(w, r, access.List)
	if !ok {
		return
	}
	orders, err := h.orderService.List(r.Context(), access.ScopeFor(access.Order, caller))
	if err != nil {
		api.ServiceError(w, r, l, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, orders)
}

// Create godoc
// @Summary      Place an order
// @Description  The order always belongs to the authenticated user.
// @Tags         Pedidos
// @Accept       json
// @Produce      json
// @Param        order body types.OrderInput true "Order"
// @Success      201 {object} types.Order
// @Failure      400 {object} types.Response
// @Failure      401 {object} types.Response
// @Security     BearerAuth
// @Router       /pedidos/ [post]
func (h *HandlerImpl) Create(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("method", "Create"))
	caller, ok := h.authorize(w, r, access.Create)
	if !ok {
		return
	}
	var in types.OrderInput
	if err := api.DecodeJSONBody(w, r, &in); err != nil {
		api.DecodeError(w, r, err)
		return
	}
	o, err := h.orderService.Create(r.Context(), caller.UserID, in)
	if err != nil {
		api.ServiceError(w, r, l, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusCreated, o)
}

// Retrieve godoc
// @Summary      Get an order
// @Tags         Pedidos
// @Produce      json
// @Param        id path string true "Order ID"
// @Success      200 {object} types.Order
// @Failure      401 {object} types.Response
// @Failure      404 {object} types.Response
// @Security     BearerAuth
// @Router       /pedidos/{id}/ [get]
func (h *HandlerImpl) Retrieve(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("method", "Retrieve"))
	id, scope, ok := h.detail(w, r, access.Retrieve)
	if !ok {
		return
	}
	o, err := h.orderService.Get(r.Context(), id, scope)
	if err != nil {
		api.ServiceError(w, r, l, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, o)
}

// Update godoc
// @Summary      Replace an order
// @Tags         Pedidos
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID"
// @Param        order body types.OrderInput true "Order"
// @Success      200 {object} types.Order
// @Failure      400 {object} types.Response
// @Failure      404 {object} types.Response
// @Security     BearerAuth
// @Router       /pedidos/{id}/ [put]
func (h *HandlerImpl) Update(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, access.Update, false)
}

// PartialUpdate godoc
// @Summary      Update some fields of an order
// @Tags         Pedidos
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID"
// @Param        order body types.OrderInput true "Fields to change"
// @Success      200 {object} types.Order
// @Failure      400 {object} types.Response
// @Failure      404 {object} types.Response
// @Security     BearerAuth
// @Router       /pedidos/{id}/ [patch]
func (h *HandlerImpl) PartialUpdate(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, access.PartialUpdate, true)
}

func (h *HandlerImpl) update(w http.ResponseWriter, r *http.Request, action access.Action, partial bool) {
	l := h.logger.With(slog.String("method", string(action)))
	id, scope, ok := h.detail(w, r, action)
	if !ok {
		return
	}
	var in types.OrderInput
	if err := api.DecodeJSONBody(w, r, &in); err != nil {
		api.DecodeError(w, r, err)
		return
	}
	o, err := h.orderService.Update(r.Context(), id, scope, in, partial)
	if err != nil {
		api.ServiceError(w, r, l, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, o)
}

// Delete godoc
// @Summary      Delete an order
// @Description  Soft-deletes the order and its line items.
// @Tags         Pedidos
// @Param        id path string true "Order ID"
// @Success      204
// @Failure      404 {object} types.Response
// @Security     BearerAuth
// @Router       /pedidos/{id}/ [delete]
func (h *HandlerImpl) Delete(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("method", "Delete"))
	id, scope, ok := h.detail(w, r, access.Delete)
	if !ok {
		return
	}
	if err := h.orderService.Delete(r.Context(), id, scope); err != nil {
		api.ServiceError(w, r, l, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusNoContent, nil)
}
