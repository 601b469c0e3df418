package container

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	database "github.com/FACorreiaa/go-pedidos-api/app/db"
	"github.com/FACorreiaa/go-pedidos-api/config"
	"github.com/FACorreiaa/go-pedidos-api/internal/api/auth"
	"github.com/FACorreiaa/go-pedidos-api/internal/api/order"
	orderItem "github.com/FACorreiaa/go-pedidos-api/internal/api/order_items"
	"github.com/FACorreiaa/go-pedidos-api/internal/api/product"
	"github.com/FACorreiaa/go-pedidos-api/internal/api/user"
	"github.com/FACorreiaa/go-pedidos-api/internal/router"
	"github.com/FACorreiaa/go-pedidos-api/internal/validation"
)

// Container holds all application dependencies
type Container struct {
	Config           *config.Config
	Logger           *slog.Logger
	Pool             *pgxpool.Pool
	AuthService      auth.AuthService
	AuthHandler      *auth.HandlerImpl
	UserHandler      *user.HandlerImpl
	ProductHandler   *product.HandlerImpl
	OrderHandler     *order.HandlerImpl
	OrderItemHandler *orderItem.HandlerImpl
}

// NewContainer runs migrations, opens the pool and wires every feature.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	dbConfig, err := database.NewDatabaseConfig(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("database config: %w", err)
	}

	if err = database.RunMigrations(dbConfig.ConnectionURL, logger); err != nil {
		return nil, fmt.Errorf("migrations: %w", err)
	}

	pool, err := database.Init(ctx, dbConfig.ConnectionURL, logger)
	if err != nil {
		return nil, fmt.Errorf("database pool: %w", err)
	}

	c := New(cfg, pool, logger)
	c.Pool = pool
	return c, nil
}

// New wires repositories, services and handlers on top of an open pool.
func New(cfg *config.Config, pool database.Pool, logger *slog.Logger) *Container {
	validator := validation.New()

	authRepo := auth.NewPostgresAuthRepo(pool, logger)
	authService := auth.NewAuthService(authRepo, cfg.JWT, logger)
	authHandler := auth.NewHandlerImpl(authService, logger)

	userRepo := user.NewPostgresUserRepo(pool, logger)
	userService := user.NewUserService(userRepo, validator, logger)
	userHandler := user.NewHandlerImpl(userService, logger)

	productRepo := product.NewPostgresProductRepo(pool, logger)
	productService := product.NewProductService(productRepo, validator, cfg.Cache.ProductTTL, cfg.Cache.CleanupInterval, logger)
	productHandler := product.NewHandlerImpl(productService, logger)

	orderRepo := order.NewPostgresOrderRepo(pool, logger)
	orderService := order.NewOrderService(orderRepo, validator, logger)
	orderHandler := order.NewHandlerImpl(orderService, logger)

	orderItemRepo := orderItem.NewPostgresOrderItemRepo(pool, logger)
	orderItemService := orderItem.NewOrderItemService(orderItemRepo, validator, logger)
	orderItemHandler := orderItem.NewHandlerImpl(orderItemService, logger)

	return &Container{
		Config:           cfg,
		Logger:           logger,
		AuthService:      authService,
		AuthHandler:      authHandler,
		UserHandler:      userHandler,
		ProductHandler:   productHandler,
		OrderHandler:     orderHandler,
		OrderItemHandler: orderItemHandler,
	}
}

// Router builds the HTTP handler for the API server.
func (c *Container) Router() http.Handler {
	return router.SetupRouter(&router.Config{
		Logger:           c.Logger,
		AuthService:      c.AuthService,
		AuthHandler:      c.AuthHandler,
		UserHandler:      c.UserHandler,
		ProductHandler:   c.ProductHandler,
		OrderHandler:     c.OrderHandler,
		OrderItemHandler: c.OrderItemHandler,
		AllowedOrigins:   c.Config.CORS.AllowedOrigins,
		RequestTimeout:   c.Config.Server.Timeout,
		TokenRequests:    c.Config.RateLimit.TokenRequests,
		TokenWindow:      c.Config.RateLimit.Window,
	})
}

// BootstrapAdmin seeds the configured administrator, if any.
func (c *Container) BootstrapAdmin(ctx context.Context) error {
	return c.AuthService.BootstrapAdmin(ctx, c.Config.Bootstrap.AdminEmail, c.Config.Bootstrap.AdminPassword)
}

// Close releases all resources held by the container
func (c *Container) Close() {
	if c.Pool != nil {
		c.Pool.Close()
	}
}

// WaitForDB waits for the database to be ready
func (c *Container) WaitForDB(ctx context.Context) bool {
	return database.WaitForDB(ctx, c.Pool, c.Logger)
}
