// Package app wires the storefront components together and runs CLI commands
// against them.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/catalog"
	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/fjod/go_cart/storefront/internal/config"
	"github.com/fjod/go_cart/storefront/internal/gateway"
	"github.com/fjod/go_cart/storefront/internal/metrics"
	"github.com/fjod/go_cart/storefront/internal/session"
	"github.com/fjod/go_cart/storefront/internal/storage"
	"github.com/fjod/go_cart/storefront/internal/token"
)

// App holds one instance of every component. It is built once per process and
// handed to whatever needs it.
type App struct {
	Config   config.Config
	Logger   *slog.Logger
	Store    storage.Store
	Tokens   *token.Store
	Session  *session.Manager
	Cart     *cart.Store
	API      *gateway.Client
	Checkout *checkout.Orchestrator
	Catalog  *catalog.Service
	Metrics  *metrics.Collector
}

// New opens storage and builds the component graph. transport may be nil.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger, transport http.RoundTripper) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	scope, err := cart.ParseScope(cfg.CartScope)
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(ctx, storage.Options{
		Backend:       cfg.StorageBackend,
		SQLitePath:    cfg.SQLitePath,
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
		RedisTTL:      cfg.RedisTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	a := &App{
		Config:  cfg,
		Logger:  logger,
		Store:   store,
		Metrics: metrics.NewCollector(nil),
	}

	a.Tokens = token.NewStore(store, logger.With(slog.String("component", "token")))
	a.Session = session.NewManager(a.Tokens,
		session.WithTables(session.Tables{
			Role:    session.ClaimTable(cfg.RoleClaims),
			Subject: session.ClaimTable(cfg.SubjectClaims),
			Name:    session.ClaimTable(cfg.NameClaims),
		}),
		session.WithLogger(logger.With(slog.String("component", "session"))),
	)

	a.Cart = cart.NewStore(store, logger.With(slog.String("component", "cart")))
	if scope == cart.ScopeSubject {
		a.Cart.Bind(a.Session.Identity().Subject)
		a.Session.OnChange(func(ev session.Event) {
			if ev.SubjectChanged() {
				a.Cart.Bind(ev.Current.Subject)
			}
		})
	}

	a.API, err = gateway.NewClient(cfg.APIBaseURL, a.Tokens,
		&http.Client{Timeout: cfg.RequestTimeout, Transport: transport},
		gateway.WithLogger(logger.With(slog.String("component", "gateway"))),
		gateway.WithRecorder(a.Metrics),
		gateway.WithRateLimit(cfg.RateLimit, cfg.RateBurst),
		gateway.WithBreaker(gateway.BreakerSettings{
			ConsecutiveFailures: cfg.BreakerFailures,
			OpenTimeout:         cfg.BreakerTimeout,
		}),
		gateway.WithUnauthorizedHook(a.Session.Logout),
	)
	if err != nil {
		store.Close()
		return nil, err
	}

	a.Checkout = checkout.NewOrchestrator(a.Session, a.Cart, a.API,
		checkout.WithLogger(logger.With(slog.String("component", "checkout"))),
		checkout.WithRecorder(a.Metrics),
	)
	a.Checkout.Watch(a.Session)

	a.Catalog = catalog.NewService(a.API,
		catalog.WithCache(store, cfg.CatalogCacheTTL),
		catalog.WithLogger(logger.With(slog.String("component", "catalog"))),
	)

	return a, nil
}

// Close flushes metrics when a textfile is configured and releases storage.
func (a *App) Close() error {
	var errs []error
	if a.Config.MetricsTextfile != "" {
		if err := a.Metrics.WriteTextfile(a.Config.MetricsTextfile); err != nil {
			errs = append(errs, err)
		}
	}
	if err := a.Store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close storage: %w", err))
	}
	return errors.Join(errs...)
}
