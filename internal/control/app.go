// Package control wires configuration into a runnable collection.
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/vietddude/fanstats/internal/chartmetric"
	"github.com/vietddude/fanstats/internal/collector"
	"github.com/vietddude/fanstats/internal/core/config"
	"github.com/vietddude/fanstats/internal/health"
	"github.com/vietddude/fanstats/internal/infra/api"
	"github.com/vietddude/fanstats/internal/infra/api/transport"
	redisclient "github.com/vietddude/fanstats/internal/infra/redis"
	"github.com/vietddude/fanstats/internal/infra/storage"
	csvsink "github.com/vietddude/fanstats/internal/infra/storage/csv"
	"github.com/vietddude/fanstats/internal/infra/storage/memory"
	"github.com/vietddude/fanstats/internal/metrics"
)

// App is one configured collection with its supporting services.
type App struct {
	cfg          *config.AppConfig
	stores       *Stores
	sink         storage.ResultSink
	transport    *transport.HTTPTransport
	chartmetric  *chartmetric.Client
	collector    *collector.Collector
	healthMon    *health.Monitor
	healthServer *health.Server
	log          *slog.Logger
}

// NewApp creates an App with all dependencies initialized.
func NewApp(ctx context.Context, cfg *config.AppConfig) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	// 1. Initialize Storage
	stores, err := OpenStores(ctx, cfg)
	if err != nil {
		return nil, err
	}
	sink, err := openSink(cfg, stores)
	if err != nil {
		stores.Close()
		return nil, err
	}

	// 2. Initialize API client
	client, err := NewChartmetric(cfg, stores)
	if err != nil {
		sink.Close()
		stores.Close()
		return nil, err
	}

	// 3. Collector and health
	coll := collector.New(cfg.Collector, client.cm, sink, stores.Failed)
	healthMon := health.NewMonitor(coll.Progress(), client.transport.Monitor, stores.Failed)

	app := &App{
		cfg:         cfg,
		stores:      stores,
		sink:        sink,
		transport:   client.transport,
		chartmetric: client.cm,
		collector:   coll,
		healthMon:   healthMon,
		log:         slog.With("run_id", coll.RunID()),
	}
	if cfg.Server.Port > 0 {
		app.healthServer = health.NewServer(healthMon, cfg.Server.Port)
	}
	return app, nil
}

// ChartmetricClient bundles the endpoint client with its transport.
type ChartmetricClient struct {
	cm        *chartmetric.Client
	transport *transport.HTTPTransport
}

// Client returns the endpoint client.
func (c *ChartmetricClient) Client() *chartmetric.Client { return c.cm }

// Close releases idle connections.
func (c *ChartmetricClient) Close() { c.transport.Close() }

// NewChartmetric builds an authenticated Chartmetric client. The access
// token is shared through Redis when stores has a Redis connection.
func NewChartmetric(cfg *config.AppConfig, stores *Stores) (*ChartmetricClient, error) {
	apiClient, tr, err := api.New(api.Config{
		BaseURL:   cfg.API.BaseURL,
		Timeout:   cfg.API.Timeout,
		Admission: cfg.Admission,
	}, cfg.Retry.ToPolicy())
	if err != nil {
		return nil, err
	}
	cm, err := chartmetric.NewClient(apiClient, cfg.API.RefreshToken, nil)
	if err != nil {
		tr.Close()
		return nil, err
	}
	if stores != nil && stores.Redis != nil {
		cm.Tokens().SetCache(redisclient.NewTokenCache(stores.Redis, "chartmetric"))
	}
	return &ChartmetricClient{cm: cm, transport: tr}, nil
}

func openSink(cfg *config.AppConfig, stores *Stores) (storage.ResultSink, error) {
	switch cfg.Sink.Kind {
	case config.SinkPostgres:
		if stores.Results == nil {
			return nil, errors.New("postgres sink requires database.url")
		}
		return stores.Results, nil
	case config.SinkMemory:
		mem := stores.Memory
		if mem == nil {
			mem = memory.NewMemoryStorage()
		}
		return memory.NewResultSink(mem), nil
	default:
		sink, err := csvsink.NewSink(cfg.Sink.ArtistsFile, cfg.Sink.TracksFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open csv sink: %w", err)
		}
		return sink, nil
	}
}

// Collector returns the collector run by Run.
func (a *App) Collector() *collector.Collector { return a.collector }

// Sink returns the result sink.
func (a *App) Sink() storage.ResultSink { return a.sink }

// Handler serves the health and metrics endpoints.
func (a *App) Handler() http.Handler {
	return health.NewServer(a.healthMon, 0).Handler()
}

// Run starts the supporting services and collects until done or ctx ends.
func (a *App) Run(ctx context.Context) error {
	// Start Health Server
	if a.healthServer != nil {
		go func() {
			if err := a.healthServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.log.Error("Health server failed", "error", err)
			}
		}()
		a.log.Info("Health server listening", "port", a.cfg.Server.Port)
	}

	// Start DB Metrics Collector
	if a.stores.DB != nil {
		a.stores.DB.StartMetricsCollector(ctx)
	}

	if count, err := a.stores.Failed.Count(ctx); err == nil {
		metrics.FailedRequests.Set(float64(count))
	}

	return a.collector.Run(ctx)
}

// Stop stops the health server and releases all resources.
func (a *App) Stop(ctx context.Context) error {
	a.log.Info("Stopping collection...")

	var errs []error
	if a.healthServer != nil {
		errs = append(errs, a.healthServer.Stop(ctx))
	}
	if err := a.sink.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close sink: %w", err))
	}
	a.transport.Close()
	if err := a.stores.Close(); err != nil {
		a.log.Warn("Failed to close stores", "error", err)
	}
	return errors.Join(errs...)
}
