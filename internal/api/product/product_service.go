package product

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/FACorreiaa/go-pedidos-api/internal/types"
	"github.com/FACorreiaa/go-pedidos-api/internal/validation"
)

var _ ProductService = (*ProductServiceImpl)(nil)

type ProductService interface {
	Create(ctx context.Context, in types.ProductInput) (*types.Product, error)
	List(ctx context.Context) ([]types.Product, error)
	Get(ctx context.Context, id uuid.UUID) (*types.Product, error)
	Update(ctx context.Context, id uuid.UUID, in types.ProductInput, partial bool) (*types.Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ProductServiceImpl can keep the public catalogue in an in-process cache.
// Every committed write bumps gen and drops every entry. A read only stores
// what it fetched if no write finished while it was in the store, so a
// deleted product is never served after its delete returned.
// The cache is per process: enable it only for single-replica deployments.
type ProductServiceImpl struct {
	logger    *slog.Logger
	repo      ProductRepo
	validator *validation.RequestValidator
	cache     *cache.Cache // nil when caching is off

	mu  sync.Mutex
	gen atomic.Uint64
}

// NewProductService builds the service. A ttl of zero or less disables caching.
func NewProductService(repo ProductRepo, validator *validation.RequestValidator, ttl, cleanup time.Duration, logger *slog.Logger) *ProductServiceImpl {
	s := &ProductServiceImpl{
		logger:    logger,
		repo:      repo,
		validator: validator,
	}
	if ttl > 0 {
		s.cache = cache.New(ttl, cleanup)
	}
	return s
}

const listKey = "products:all"

func itemKey(id uuid.UUID) string { return "product:" + id.String() }

func (s *ProductServiceImpl) lookup(key string) (any, bool) {
	if s.cache == nil {
		return nil, false
	}
	return s.cache.Get(key)
}

// store caches v unless a write finished after the read began at gen.
func (s *ProductServiceImpl) store(key string, v any, gen uint64) {
	if s.cache == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen.Load() == gen {
		s.cache.Set(key, v, cache.DefaultExpiration)
	}
}

// invalidate runs after a write has committed.
func (s *ProductServiceImpl) invalidate() {
	if s.cache == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen.Add(1)
	s.cache.Flush()
}

func (s *ProductServiceImpl) Create(ctx context.Context, in types.ProductInput) (*types.Product, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}
	p := &types.Product{ID: uuid.New(), Nome: *in.Nome, Descricao: *in.Descricao}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	s.invalidate()
	s.logger.InfoContext(ctx, "Product created", slog.String("product_id", p.ID.String()))
	return p, nil
}

func (s *ProductServiceImpl) List(ctx context.Context) ([]types.Product, error) {
	ctx, span := otel.Tracer("ProductService").Start(ctx, "List")
	defer span.End()
	span.SetAttributes(attribute.String("cache.key", listKey))

	if cached, found := s.lookup(listKey); found {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return cached.([]types.Product), nil
	}
	gen := s.gen.Load()
	products, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	s.store(listKey, products, gen)
	return products, nil
}

func (s *ProductServiceImpl) Get(ctx context.Context, id uuid.UUID) (*types.Product, error) {
	key := itemKey(id)
	if cached, found := s.lookup(key); found {
		p := cached.(types.Product)
		return &p, nil
	}
	gen := s.gen.Load()
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	s.store(key, *p, gen)
	return p, nil
}

func (s *ProductServiceImpl) Update(ctx context.Context, id uuid.UUID, in types.ProductInput, partial bool) (*types.Product, error) {
	var err error
	if partial {
		err = s.validator.Partial(in, in.Provided())
	} else {
		err = s.validator.Struct(in)
	}
	if err != nil {
		return nil, err
	}
	p, err := s.repo.Update(ctx, id, in.Nome, in.Descricao)
	if err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	s.invalidate()
	return p, nil
}

func (s *ProductServiceImpl) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	s.invalidate()
	s.logger.InfoContext(ctx, "Product deleted", slog.String("product_id", id.String()))
	return nil
}
