package product

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
	productService ProductService
	logger         *slog.Logger
}

func NewHandlerImpl(productService ProductService, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		productService: productService,
		logger:         logger,
	}
}

// authorize runs the access rule and, for detail routes, parses the path id.
func (h *HandlerImpl) authorize(w http.ResponseWriter, r *http.Request, action access.Action, detail bool) (uuid.UUID, bool) {
	caller := auth.CallerFromContext(r.Context())
	if err := access.Authorize(access.Product, action, caller, access.Target{}); err != nil {
		api.AccessError(w, r, err)
		return uuid.Nil, false
	}
	if !detail {
		return uuid.Nil, true
	}
	id, ok := api.PathUUID(r, "id")
	if !ok {
		api.NotFound(w, r)
		return uuid.Nil, false
	}
	return id, true
}

// List godoc
// @Summary      List products
// @Tags         Produtos
// @Produce      json
// @Success      200 {array} types.Product
// @Router       /produtos/ [get]
func (h *HandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authorize(w, r, access.List, false); !ok {
		return
	}
	products, err := h.productService.List(r.Context())
	if err != nil {
		api.ServiceError(w, r, h.logger.With(slog.String("method", "List")), err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, products)
}

// Create godoc
// @Summary      Create a product
// @Description  Administrators only.
// @Tags         Produtos
// @Accept       json
// @Produce      json
// @Param        product body types.ProductInput true "Product"
// @Success      201 {object} types.Product
// @Failure      400 {object} types.Response
// @Failure      401 {object} types.Response
// @Failure      403 {object} types.Response
// @Security     BearerAuth
// @Router       /produtos/ [post]
func (h *HandlerImpl) Create(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authorize(w, r, access.Create, false); !ok {
		return
	}
	var in types.ProductInput
	if err := api.DecodeJSONBody(w, r, &in); err != nil {
		api.DecodeError(w, r, err)
		return
	}
	p, err := h.productService.Create(r.Context(), in)
	if err != nil {
		api.ServiceError(w, r, h.logger.With(slog.String("method", "Create")), err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusCreated, p)
}

// Retrieve godoc
// @Summary      Get a product
// @Tags         Produtos
// @Produce      json
// @Param        id path string true "Product ID"
// @Success      200 {object} types.Product
// @Failure      404 {object} types.Response
// @Router       /produtos/{id}/ [get]
func (h *HandlerImpl) Retrieve(w http.ResponseWriter, r *http.Request) {
	id, ok := h.authorize(w, r, access.Retrieve, true)
	if !ok {
		return
	}
	p, err := h.productService.Get(r.Context(), id)
	if err != nil {
		api.ServiceError(w, r, h.logger.With(slog.String("method", "Retrieve")), err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, p)
}

// Update godoc
// @Summary      Replace a product
// @Tags         Produtos
// @Accept       json
// @Produce      json
// @Param        id path string true "Product ID"
// @Param        product body types.ProductInput true "Product"
// @Success      200 {object} types.Product
// @Security     BearerAuth
// @Router       /produtos/{id}/ [put]
func (h *HandlerImpl) Update(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, access.Update, false)
}

// PartialUpdate godoc
// @Summary      Update some fields of a product
// @Tags         Produtos
// @Accept       json
// @Produce      json
// @Param        id path string true "Product ID"
// @Param        product body types.ProductInput true "Fields to change"
// @Success      200 {object} types.Product
// @Security     BearerAuth
// @Router       /produtos/{id}/ [patch]
func (h *HandlerImpl) PartialUpdate(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, access.PartialUpdate, true)
}

func (h *HandlerImpl) update(w http.ResponseWriter, r *http.Request, action access.Action, partial bool) {
	id, ok := h.authorize(w, r, action, true)
	if !ok {
		return
	}
	var in types.ProductInput
	if err := api.DecodeJSONBody(w, r, &in); err != nil {
		api.DecodeError(w, r, err)
		return
	}
	p, err := h.productService.Update(r.Context(), id, in, partial)
	if err != nil {
		api.ServiceError(w, r, h.logger.With(slog.String("method", string(action))), err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, p)
}

// Delete godoc
// @Summary      Delete a product
// @Description  Soft-deletes the product and every order item that references it.
// @Tags         Produtos
// @Param        id path string true "Product ID"
// @Success      204
// @Security     BearerAuth
// @Router       /produtos/{id}/ [delete]
func (h *HandlerImpl) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.authorize(w, r, access.Delete, true)
	if !ok {
		return
	}
	if err := h.productService.Delete(r.Context(), id); err != nil {
		api.ServiceError(w, r, h.logger.With(slog.String("method", "Delete")), err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusNoContent, nil)
}
