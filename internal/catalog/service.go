// Package catalog serves the read side of the storefront: the public product
// list, the admin product listing, order browsing and dashboard figures.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/storage"
)

const publicKey = "catalog:public"

type API interface {
	PublicProducts(ctx context.Context) ([]domain.Product, error)
	AdminProducts(ctx context.Context, q domain.ProductQuery) (domain.ProductPage, error)
	Orders(ctx context.Context, q domain.OrderQuery) ([]domain.Order, error)
}

type Service struct {
	api    API
	cache  storage.Store
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
	sfg    singleflight.Group // Prevents concurrent duplicate fetches
}

type Option func(*Service)

// WithCache keeps the public product list in store for ttl.
func WithCache(store storage.Store, ttl time.Duration) Option {
	return func(s *Service) {
		if store != nil && ttl > 0 {
			s.cache = store
			s.ttl = ttl
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewService(api API, opts ...Option) *Service {
	s := &Service{
		api:    api,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type cachedProducts struct {
	FetchedAt time.Time        `json:"fetchedAt"`
	Products  []domain.Product `json:"products"`
}

// Public returns the shopper-facing catalog. Concurrent callers share one
// fetch; a fresh cached copy skips the network entirely.
func (s *Service) Public(ctx context.Context) ([]domain.Product, error) {
	v, err, _ := s.sfg.Do(publicKey, func() (interface{}, error) {
		if products, ok := s.cached(ctx); ok {
			return products, nil
		}

		products, err := s.api.PublicProducts(ctx)
		if err != nil {
			return nil, err
		}
		s.store(ctx, products)
		return products, nil
	})
	if err != nil {
		return nil, err
	}

	products := v.([]domain.Product)
	out := make([]domain.Product, len(products))
	copy(out, products)
	return out, nil
}

// Invalidate drops the cached public catalog, e.g. after a product write.
func (s *Service) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, publicKey); err != nil {
		s.logger.WarnContext(ctx, "catalog cache delete failed", slog.String("error", err.Error()))
	}
}

func (s *Service) cached(ctx context.Context) ([]domain.Product, bool) {
	if s.cache == nil {
		return nil, false
	}
	data, err := s.cache.Get(ctx, publicKey)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.WarnContext(ctx, "catalog cache get failed", slog.String("error", err.Error()))
		}
		return nil, false
	}

	var entry cachedProducts
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false
	}
	if s.now().Sub(entry.FetchedAt) >= s.ttl {
		return nil, false
	}
	if entry.Products == nil {
		entry.Products = []domain.Product{}
	}
	return entry.Products, true
}

func (s *Service) store(ctx context.Context, products []domain.Product) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(cachedProducts{FetchedAt: s.now(), Products: products})
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, publicKey, data); err != nil {
		s.logger.WarnContext(ctx, "catalog cache set failed", slog.String("error", err.Error()))
	}
}

// AdminProducts lists products for management views. Paging defaults to the
// first page of 20.
func (s *Service) AdminProducts(ctx context.Context, q domain.ProductQuery) (domain.ProductPage, error) {
	if q.PageNumber < 1 {
		q.PageNumber = 1
	}
	if q.PageSize < 1 {
		q.PageSize = 20
	}
	return s.api.AdminProducts(ctx, q)
}
