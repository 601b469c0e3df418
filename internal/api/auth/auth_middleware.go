package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/FACorreiaa/go-pedidos-api/internal/api"
	"github.com/FACorreiaa/go-pedidos-api/internal/types"
)

type contextKey string

const callerKey contextKey = "caller"

// Authenticate resolves the bearer token, if any, into a *types.Caller on the
// request context. Requests without an Authorization header continue as
// anonymous; a header that does not yield an active user is rejected with 401.
func Authenticate(logger *slog.Logger, service AuthService) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			l := logger.With(slog.String("middleware", "Authenticate"))

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}

			scheme, token, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
				l.WarnContext(ctx, "Invalid Authorization header format")
				unauthorized(w, r, "Authorization header format must be Bearer {token}")
				return
			}

			caller, err := service.CallerFromToken(ctx, strings.TrimSpace(token))
			if err != nil {
				if errors.Is(err, types.ErrUnauthenticated) {
					l.DebugContext(ctx, "Token rejected", slog.Any("error", err))
					unauthorized(w, r, "Given token not valid for any token type")
					return
				}
				l.ErrorContext(ctx, "Failed to resolve caller", slog.Any("error", err))
				api.ErrorResponse(w, r, http.StatusInternalServerError, "Internal server error.")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithCaller(ctx, caller)))
		})
	}
}

func unauthorized(w http.ResponseWriter, r *http.Request, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
	api.ErrorResponse(w, r, http.StatusUnauthorized, msg)
}

func WithCaller(ctx context.Context, caller *types.Caller) context.Context {
	return context.WithValue(ctx, callerKey, caller)
}

// CallerFromContext returns nil for anonymous requests.
func CallerFromContext(ctx context.Context) *types.Caller {
	c, _ := ctx.Value(callerKey).(*types.Caller)
	return c
}
