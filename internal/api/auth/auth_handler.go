package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/FACorreiaa/go-pedidos-api/internal/api"
	"github.com/FACorreiaa/go-pedidos-api/internal/types"
)

const invalidCredentials = "No active account found with the given credentials"

var _ Handler = (*HandlerImpl)(nil)

type Handler interface {
	Login(w http.ResponseWriter, r *http.Request)
	Refresh(w http.ResponseWriter, r *http.Request)
}

type HandlerImpl struct {
	authService AuthService
	logger      *slog.Logger
}

func NewHandlerImpl(authService AuthService, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		authService: authService,
		logger:      logger,
	}
}

// Login godoc
// @Summary      Obtain a token pair
// @Description  Exchanges email and password for an access and a refresh token.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        credentials body types.LoginRequest true "Credentials"
// @Success      200 {object} types.TokenPair
// @Failure      400 {object} types.Response
// @Failure      401 {object} types.Response
// @Router       /token/ [post]
func (h *HandlerImpl) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("method", "Login"))

	var req types.LoginRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.DecodeError(w, r, err)
		return
	}
	fields := types.FieldErrors{}
	if req.Email == "" {
		fields.Add("email", "This field is required.")
	}
	if req.Password == "" {
		fields.Add("password", "This field is required.")
	}
	if len(fields) > 0 {
		api.FieldErrorResponse(w, r, http.StatusBadRequest, "validation failed", fields)
		return
	}

	pair, err := h.authService.Login(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, types.ErrUnauthenticated) {
			api.ErrorResponse(w, r, http.StatusUnauthorized, invalidCredentials)
			return
		}
		l.ErrorContext(ctx, "Login failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Internal server error.")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, pair)
}

// Refresh godoc
// @Summary      Refresh the access token
// @Description  Consumes a refresh token and returns a new access token. Each refresh token works once.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        refresh body types.RefreshRequest true "Refresh token"
// @Success      200 {object} types.AccessToken
// @Failure      400 {object} types.Response
// @Failure      401 {object} types.Response
// @Router       /token/refresh/ [post]
func (h *HandlerImpl) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("method", "Refresh"))

	var req types.RefreshRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.DecodeError(w, r, err)
		return
	}
	if req.Refresh == "" {
		api.FieldErrorResponse(w, r, http.StatusBadRequest, "validation failed",
			types.FieldErrors{"refresh": {"This field is required."}})
		return
	}

	access, err := h.authService.Refresh(ctx, req.Refresh)
	if err != nil {
		if errors.Is(err, types.ErrUnauthenticated) {
			api.ErrorResponse(w, r, http.StatusUnauthorized, "Token is invalid or expired")
			return
		}
		l.ErrorContext(ctx, "Refresh failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Internal server error.")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, types.AccessToken{Access: access})
}
