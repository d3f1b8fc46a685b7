// Package app wires the storefront's dependencies and runs it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/utafrali/storefront/internal/config"
	"github.com/utafrali/storefront/internal/engine"
	"github.com/utafrali/storefront/internal/event"
	handler "github.com/utafrali/storefront/internal/handler/http"
	"github.com/utafrali/storefront/pkg/health"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/tracing"
)

// App wires together all dependencies and runs the storefront service.
type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      *store
	producer   *pkgkafka.Producer
	registry   *engine.Registry
	tracing    tracing.Shutdown
	httpServer *http.Server
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	initCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	shutdownTracing, err := tracing.Init(initCtx, cfg.Tracing())
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	st, err := openStore(initCtx, cfg, prometheus.DefaultRegisterer, logger)
	if err != nil {
		_ = shutdownTracing(ctx)
		return nil, err
	}

	healthHandler := health.NewHandler(config.ServiceName, 5*time.Second)
	healthHandler.Register(st.driver, st.check)

	backend, err := NewBackend(cfg, logger)
	if err != nil {
		st.close()
		_ = shutdownTracing(ctx)
		return nil, err
	}

	opts := engine.Options{
		Store:       st,
		Evaluator:   NewEvaluator(cfg),
		Events:      event.NopPublisher{},
		Logger:      logger,
		IdleTimeout: cfg.EngineIdleTimeout(),
	}
	if backend != nil {
		opts.Backend = backend
		opts.Discounts = engine.LoadDiscounts(initCtx, backend, logger)
		healthHandler.RegisterOptional("commerce", backend.Check)
	} else {
		logger.Warn("no commerce endpoint configured, free shipping and checkout are disabled")
	}

	var producer *pkgkafka.Producer
	if cfg.EventsEnabled {
		producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		opts.Events = event.NewProducer(producer, logger)
		healthHandler.RegisterOptional("kafka", producer.Ping)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	registry := engine.NewRegistry(opts)
	router := handler.NewRouter(
		handler.NewHandler(registry, opts.Evaluator, logger),
		healthHandler,
		logger,
		handler.RouterConfig{
			CORSAllowedOrigins: cfg.CORSAllowedOrigins,
			PprofAllowedCIDRs:  cfg.PprofAllowedCIDRs,
			RateLimitRPS:       cfg.RateLimitRPS,
			RateLimitBurst:     cfg.RateLimitBurst,
		},
	)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 45 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &App{
		cfg:        cfg,
		logger:     logger,
		store:      st,
		producer:   producer,
		registry:   registry,
		tracing:    shutdownTracing,
		httpServer: httpServer,
	}, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	sweepCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	go a.registry.RunSweeper(sweepCtx, 0)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
			slog.String("display_currency", a.cfg.DisplayCurrency),
			slog.String("store", a.store.driver),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		stopSweeper()
		a.Shutdown()
		return err
	}

	stopSweeper()
	a.Shutdown()
	return nil
}

// Shutdown stops accepting requests, flushes every cart to the store and
// closes all components.
func (a *App) Shutdown() {
	a.logger.Info("shutting down application...")

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout())
	defer cancel()

	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}
	if err := a.registry.Close(ctx); err != nil {
		a.logger.Error("failed to flush carts", slog.String("error", err.Error()))
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		}
	}
	a.store.close()
	if err := a.tracing(ctx); err != nil {
		a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
	}

	a.logger.Info("application shutdown complete")
}
