package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker/v2"

	"github.com/utafrali/storefront/internal/commerce"
	"github.com/utafrali/storefront/internal/config"
	"github.com/utafrali/storefront/internal/money"
	"github.com/utafrali/storefront/internal/pricing"
	"github.com/utafrali/storefront/internal/repository"
	pgstore "github.com/utafrali/storefront/internal/repository/postgres"
	"github.com/utafrali/storefront/internal/repository/postgres/migrations"
	redisstore "github.com/utafrali/storefront/internal/repository/redis"
	"github.com/utafrali/storefront/pkg/database"
	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/httpclient"
)

// NewEvaluator builds the pricing evaluator for the configured display
// currency and exchange rates.
func NewEvaluator(cfg *config.Config) *pricing.Evaluator {
	return pricing.NewEvaluator(money.NewConverter(cfg.Rates()), cfg.DisplayCurrency)
}

// Backend is a commerce backend together with the breaker guarding its reads.
type Backend struct {
	commerce.Backend
	breaker *httpclient.CircuitBreakerClient
}

// Check reports the backend as down while its circuit breaker is open.
func (b *Backend) Check(context.Context) error {
	if b.breaker.State() == gobreaker.StateOpen {
		return errors.New(b.Name() + " circuit breaker is open")
	}
	return nil
}

// NewBackend creates the configured commerce backend. Reads go through a
// retrying client behind a circuit breaker; order creation uses the same
// transport without retries. It returns nil when no endpoint is configured.
func NewBackend(cfg *config.Config, logger *slog.Logger) (*Backend, error) {
	if cfg.CommerceEndpoint == "" {
		return nil, nil
	}
	client := httpclient.New(cfg.HTTPClient())
	breaker := httpclient.NewCircuitBreakerClient(client, cfg.Breaker(), logger)

	backend, err := commerce.New(commerce.Options{
		Kind:     cfg.CommerceBackend,
		Endpoint: cfg.CommerceEndpoint,
		Token:    cfg.CommerceToken,
		Currency: cfg.DisplayCurrency,
		Query:    breaker,
		Mutation: client.WithoutRetries(),
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create commerce backend: %w", err)
	}
	return &Backend{Backend: backend, breaker: breaker}, nil
}

// store is an opened key-value store with its health check and closer.
type store struct {
	repository.Store
	driver string
	check  health.Checker
	close  func()
}

// openStore connects the configured store driver. PostgreSQL is migrated
// and its pool statistics are exported to reg.
func openStore(ctx context.Context, cfg *config.Config, reg prometheus.Registerer, logger *slog.Logger) (*store, error) {
	switch cfg.StoreDriver {
	case config.DriverRedis:
		client, err := database.NewRedisClient(ctx, cfg.Redis())
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info("connected to Redis",
			slog.String("addr", cfg.Redis().Addr()),
			slog.Int("db", cfg.RedisDB),
		)
		return &store{
			Store:  redisstore.NewStore(client, cfg.StorePrefix, cfg.StoreTTL()),
			driver: config.DriverRedis,
			check:  func(ctx context.Context) error { return client.Ping(ctx).Err() },
			close: func() {
				if err := client.Close(); err != nil {
					logger.Error("redis close error", slog.String("error", err.Error()))
				}
			},
		}, nil

	case config.DriverPostgres:
		pool, err := database.NewPostgresPool(ctx, cfg.Postgres(), logger)
		if err != nil {
			return nil, err
		}
		if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
			pool.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		if err := database.RegisterPoolMetrics(reg, pool, config.ServiceName); err != nil {
			logger.Warn("failed to register pool metrics", slog.String("error", err.Error()))
		}
		database.SetSlowQueryLogging(cfg.SlowQueryThreshold(), logger)
		logger.Info("connected to PostgreSQL",
			slog.String("host", cfg.PostgresHost),
			slog.String("db", cfg.PostgresDB),
		)
		return &store{
			Store:  pgstore.NewStore(pool),
			driver: config.DriverPostgres,
			check:  pool.Ping,
			close:  pool.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
