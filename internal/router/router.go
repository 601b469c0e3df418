package router

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/FACorreiaa/go-pedidos-api/docs"

	appLogger "github.com/FACorreiaa/go-pedidos-api/app/logger"
	appMiddleware "github.com/FACorreiaa/go-pedidos-api/app/middleware"
	"github.com/FACorreiaa/go-pedidos-api/internal/api"
	"github.com/FACorreiaa/go-pedidos-api/internal/api/auth"
	"github.com/FACorreiaa/go-pedidos-api/internal/api/order"
	orderItem "github.com/FACorreiaa/go-pedidos-api/internal/api/order_items"
	"github.com/FACorreiaa/go-pedidos-api/internal/api/product"
	"github.com/FACorreiaa/go-pedidos-api/internal/api/user"
)

// Config contains dependencies needed for the router setup.
type Config struct {
	Logger           *slog.Logger
	AuthService      auth.AuthService
	AuthHandler      *auth.HandlerImpl
	UserHandler      *user.HandlerImpl
	ProductHandler   *product.HandlerImpl
	OrderHandler     *order.HandlerImpl
	OrderItemHandler *orderItem.HandlerImpl

	AllowedOrigins []string
	RequestTimeout time.Duration
	// TokenRequests per TokenWindow per client IP on the /token endpoints.
	TokenRequests int
	TokenWindow   time.Duration
}

// SetupRouter builds the whole HTTP surface. Paths are canonical with a
// trailing slash; StripSlashes lets clients omit it.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(appLogger.StructuredLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}
	r.Use(middleware.Compress(5, "application/json"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Link", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(appMiddleware.HTTPMetrics)

	r.NotFound(api.NotFound)
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		api.ErrorResponse(w, r, http.StatusMethodNotAllowed, "Method not allowed.")
	})

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("pong"))
	})
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	r.Route("/token", func(r chi.Router) {
		if cfg.TokenRequests > 0 {
			r.Use(appMiddleware.RateLimitByIP(cfg.TokenRequests, cfg.TokenWindow))
		}
		r.Post("/", cfg.AuthHandler.Login)
		r.Post("/refresh", cfg.AuthHandler.Refresh)
	})

	// Authentication is optional here; each handler applies its own access rule.
	r.Group(func(r chi.Router) {
		r.Use(auth.Authenticate(cfg.Logger, cfg.AuthService))

		r.Route("/usuarios", func(r chi.Router) {
			r.Get("/", cfg.UserHandler.List)
			r.Post("/", cfg.UserHandler.Create)
			r.Get("/{id}", cfg.UserHandler.Retrieve)
			r.Put("/{id}", cfg.UserHandler.Update)
			r.Patch("/{id}", cfg.UserHandler.PartialUpdate)
			r.Delete("/{id}", cfg.UserHandler.Delete)
		})

		r.Route("/produtos", func(r chi.Router) {
			r.Get("/", cfg.ProductHandler.List)
			r.Post("/", cfg.ProductHandler.Create)
			r.Get("/{id}", cfg.ProductHandler.Retrieve)
			r.Put("/{id}", cfg.ProductHandler.Update)
			r.Patch("/{id}", cfg.ProductHandler.PartialUpdate)
			r.Delete("/{id}", cfg.ProductHandler.Delete)
		})

		r.Route("/pedidos", func(r chi.Router) {
			r.Get("/", cfg.OrderHandler.List)
			r.Post("/", cfg.OrderHandler.Create)
			r.Get("/{id}", cfg.OrderHandler.Retrieve)
			r.Put("/{id}", cfg.OrderHandler.Update)
			r.Patch("/{id}", cfg.OrderHandler.PartialUpdate)
			r.Delete("/{id}", cfg.OrderHandler.Delete)

			r.Route("/{pedido_id}/produtos", func(r chi.Router) {
				r.Get("/", cfg.OrderItemHandler.List)
				r.Post("/", cfg.OrderItemHandler.Create)
				r.Get("/{id}", cfg.OrderItemHandler.Retrieve)
				r.Put("/{id}", cfg.OrderItemHandler.Update)
				r.Patch("/{id}", cfg.OrderItemHandler.PartialUpdate)
				r.Delete("/{id}", cfg.OrderItemHandler.Delete)
			})
		})
	})

	return r
}
