package user

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
	userService UserService
	logger      *slog.Logger
}

func NewHandlerImpl(userService UserService, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		userService: userService,
		logger:      logger,
	}
}

// List godoc
// @Summary      List users
// @Description  Administrators only.
// @Tags         Usuarios
// @Produce      json
// @Success      200 {array} types.User
// @Failure      401 {object} types.Response
// @Failure      403 {object} types.Response
// @Security     BearerAuth
// @Router       /usuarios/ [get]
func (h *HandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("method", "List"))
	if err := access.Authorize(access.User, access.List, auth.CallerFromContext(r.Context()), access.Target{}); err != nil {
		api.AccessError(w, r, err)
		return
	}
	users, err := h.userService.List(r.Context())
	if err != nil {
		api.ServiceError(w, r, l, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, users)
}

// Create godoc
// @Summary      Register a user
// @Tags         Usuarios
// @Accept       json
// @Produce      json
// @Param        user body types.UserInput true "User"
// @Success      201 {object} types.User
// @Failure      400 {object} types.Response
// @Failure      409 {object} types.Response
// @Router       /usuarios/ [post]
func (h *HandlerImpl) Create(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("method", "Create"))
	if err := access.Authorize(access.User, access.Create, auth.CallerFromContext(r.Context()), access.Target{}); err != nil {
		api.AccessError(w, r, err)
		return
	}
	var in types.UserInput
	if err := api.DecodeJSONBody(w, r, &in); err != nil {
		api.DecodeError(w, r, err)
		return
	}
	u, err := h.userService.Register(r.Context(), in)
	if err != nil {
		api.ServiceError(w, r, l, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusCreated, u)
}

// Retrieve godoc
// @Summary      Get a user
// @Description  A user may only read their own record.
// @Tags         Usuarios
// @Produce      json
// @Param        id path string true "User ID"
// @Success      200 {object} types.User
// @Failure      401 {object} types.Response
// @Failure      403 {object} types.Response
// @Failure      404 {object} types.Response
// @Security     BearerAuth
// @Router       /usuarios/{id}/ [get]
func (h *HandlerImpl) Retrieve(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("method", "Retrieve"))
	id, ok := h.authorizeDetail(w, r, access.Retrieve)
	if !ok {
		return
	}
	u, err := h.userService.Get(r.Context(), id)
	if err != nil {
		api.ServiceError(w, r, l, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, u)
}

// Update godoc
// @Summary      Replace a user
// @Tags         Usuarios
// @Accept       json
// @Produce      json
// @Param        id path string true "User ID"
// @Param        user body types.UserInput true "User"
// @Success      200 {object} types.User
// @Failure      400 {object} types.Response
// @Failure      403 {object} types.Response
// @Security     BearerAuth
// @Router       /usuarios/{id}/ [put]
func (h *HandlerImpl) Update(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, access.Update, false)
}

// PartialUpdate godoc
// @Summary      Update some fields of a user
// @Tags         Usuarios
// @Accept       json
// @Produce      json
// @Param        id path string true "User ID"
// @Param        user body types.UserInput true "Fields to change"
// @Success      200 {object} types.User
// @Failure      400 {object} types.Response
// @Failure      403 {object} types.Response
// @Security     BearerAuth
// @Router       /usuarios/{id}/ [patch]
func (h *HandlerImpl) PartialUpdate(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, access.PartialUpdate, true)
}

func (h *HandlerImpl) update(w http.ResponseWriter, r *http.Request, action access.Action, partial bool) {
	l := h.logger.With(slog.String("method", string(action)))
	id, ok := h.authorizeDetail(w, r, action)
	if !ok {
		return
	}
	var in types.UserInput
	if err := api.DecodeJSONBody(w, r, &in); err != nil {
		api.DecodeError(w, r, err)
		return
	}
	u, err := h.userService.Update(r.Context(), id, in, partial)
	if err != nil {
		api.ServiceError(w, r, l, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, u)
}

// Delete godoc
// @Summary      Delete a user
// @Description  Soft-deletes the user together with their orders and order items.
// @Tags         Usuarios
// @Param        id path string true "User ID"
// @Success      204
// @Failure      403 {object} types.Response
// @Security     BearerAuth
// @Router       /usuarios/{id}/ [delete]
func (h *HandlerImpl) Delete(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("method", "Delete"))
	id, ok := h.authorizeDetail(w, r, access.Delete)
	if !ok {
		return
	}
	if err := h.userService.Delete(r.Context(), id); err != nil {
		api.ServiceError(w, r, l, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusNoContent, nil)
}

// authorizeDetail checks the self-only rule against the path id before any
// lookup. A malformed id can never name the caller, so it is forbidden too.
func (h *HandlerImpl) authorizeDetail(w http.ResponseWriter, r *http.Request, action access.Action) (uuid.UUID, bool) {
	id, _ := api.PathUUID(r, "id")
	if err := access.Authorize(access.User, action, auth.CallerFromContext(r.Context()), access.Target{ID: id}); err != nil {
		api.AccessError(w, r, err)
		return uuid.Nil, false
	}
	return id, true
}
