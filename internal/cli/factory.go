// Package cli assembles the lettergraph engine and its adapters from
// configuration for the command-line entry points.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/aretw0/lettergraph"
	"github.com/aretw0/lettergraph/internal/config"
	"github.com/aretw0/lettergraph/internal/logging"
	"github.com/aretw0/lettergraph/pkg/adapters/memory"
	"github.com/aretw0/lettergraph/pkg/adapters/provider"
	redisCache "github.com/aretw0/lettergraph/pkg/adapters/redis"
	"github.com/aretw0/lettergraph/pkg/observability"
	"github.com/aretw0/lettergraph/pkg/ports"
	"github.com/aretw0/lettergraph/pkg/redact"
	"github.com/aretw0/lettergraph/pkg/registry"
)

// App is a fully wired engine plus the pieces the servers expose.
type App struct {
	Engine    *lettergraph.Engine
	Config    *config.Config
	Logger    *slog.Logger
	Redactor  *redact.Redactor
	Metrics   *observability.Metrics
	Registry  *prometheus.Registry
	Cache     ports.GraphCache
	Providers *registry.Providers

	health  func(ctx context.Context) error
	closers []func() error
}

// NewRedactor returns the redactor cfg asks for, or nil when redaction is off.
func NewRedactor(cfg *config.Config) (*redact.Redactor, error) {
	if !cfg.Redact {
		return nil, nil
	}
	if len(cfg.RedactPatterns) == 0 {
		return redact.Default(), nil
	}
	return redact.New(cfg.RedactPatterns...)
}

// NewLogger builds the process logger from cfg.
func NewLogger(cfg *config.Config, r *redact.Redactor) *slog.Logger {
	return logging.NewWithOptions(logging.Options{
		Level:    logging.ParseLevel(cfg.LogLevel),
		JSON:     cfg.LogFormat == "json",
		Redactor: r,
	})
}

// Build wires an engine from cfg: graph cache (Redis when an address is set,
// memory otherwise), HTTP data providers, metrics and log hooks.
func Build(cfg *config.Config, logger *slog.Logger, r *redact.Redactor) (*App, error) {
	app := &App{
		Config:    cfg,
		Logger:    logger,
		Redactor:  r,
		Registry:  prometheus.NewRegistry(),
		Providers: registry.NewProviders(),
	}
	app.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	app.Metrics = observability.NewMetrics(app.Registry)

	if cfg.RedisAddr != "" {
		cache := redisCache.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, redisCache.WithTTL(cfg.GraphCacheTTL))
		app.Cache = cache
		app.health = cache.Ping
		app.closers = append(app.closers, cache.Close)
		logger.Info("graph cache", "backend", "redis", "addr", cfg.RedisAddr, "ttl", cfg.GraphCacheTTL)
	} else {
		app.Cache = memory.NewCache(cfg.GraphCacheTTL)
		logger.Debug("graph cache", "backend", "memory", "ttl", cfg.GraphCacheTTL)
	}

	if err := app.registerProviders(); err != nil {
		_ = app.Close()
		return nil, err
	}

	opts := []lettergraph.Option{
		lettergraph.WithLogger(logger),
		lettergraph.WithGraphCache(app.Cache),
		lettergraph.WithProvider(app.Providers),
		lettergraph.WithLifecycleHooks(observability.Combine(app.Metrics.Hooks(), observability.LogHooks(logger))),
		lettergraph.WithMaxNodeVisits(cfg.MaxNodeVisits),
		lettergraph.WithProviderTimeout(cfg.ProviderTimeout),
		lettergraph.WithRetries(cfg.Retries),
	}
	if cfg.ContentDir != "" {
		opts = append(opts, lettergraph.WithContentDir(cfg.ContentDir))
	}
	if cfg.StrictExprs {
		opts = append(opts, lettergraph.WithStrictExpressions())
	}

	eng, err := lettergraph.New(cfg.GraphDir, opts...)
	if err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	app.Engine = eng
	return app, nil
}

func (a *App) registerProviders() error {
	names := make([]string, 0, len(a.Config.ProviderURLs))
	for name := range a.Config.ProviderURLs {
		names = append(names, name)
	}
	slices.Sort(names)

	client := &http.Client{}
	for _, name := range names {
		opts := []provider.Option{provider.WithClient(client), provider.WithLogger(a.Logger)}
		if key := a.Config.ProviderAPIKey; key != "" {
			opts = append(opts, provider.WithHeader("Authorization", "Bearer "+key))
		}
		p, err := provider.NewHTTP(a.Config.ProviderURLs[name], opts...)
		if err != nil {
			return fmt.Errorf("provider %s: %w", name, err)
		}
		a.Providers.Register(name, p)
		a.Logger.Debug("data provider registered", "provider", name)
	}
	return nil
}

// Health reports whether the graph cache backend is reachable.
func (a *App) Health(ctx context.Context) error {
	if a.health == nil {
		return nil
	}
	return a.health(ctx)
}

// Close releases the cache connection, if any.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	a.closers = nil
	return errors.Join(errs...)
}
