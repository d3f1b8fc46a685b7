package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/utafrali/storefront/internal/commerce"
	"github.com/utafrali/storefront/internal/money"
	pkgconfig "github.com/utafrali/storefront/pkg/config"
	"github.com/utafrali/storefront/pkg/database"
	"github.com/utafrali/storefront/pkg/httpclient"
	"github.com/utafrali/storefront/pkg/tracing"
)

// Store drivers.
const (
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

// ServiceName identifies the storefront in logs, metrics and traces.
const ServiceName = "storefront"

// Config holds all configuration for the storefront service.
type Config struct {
	Environment    string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
	ServiceVersion string `env:"SERVICE_VERSION" envDefault:"dev"`

	// HTTP server
	HTTPPort               int      `env:"STOREFRONT_HTTP_PORT" envDefault:"8080"`
	ShutdownTimeoutSeconds int      `env:"SHUTDOWN_TIMEOUT_SECONDS" envDefault:"15"`
	CORSAllowedOrigins     []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	PprofAllowedCIDRs      []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"127.0.0.1/32,::1/128" envSeparator:","`
	RateLimitRPS           float64  `env:"RATE_LIMIT_RPS" envDefault:"10"`
	RateLimitBurst         int      `env:"RATE_LIMIT_BURST" envDefault:"30"`

	// Pricing
	DisplayCurrency string            `env:"DISPLAY_CURRENCY" envDefault:"USD"`
	ExchangeRates   map[string]string `env:"EXCHANGE_RATES" envSeparator:"," envKeyValSeparator:":"`

	// Persistence
	StoreDriver   string `env:"STORE_DRIVER" envDefault:"redis"`
	StoreTTLHours int    `env:"STORE_TTL_HOURS" envDefault:"720"`
	StorePrefix   string `env:"STORE_KEY_PREFIX" envDefault:"storefront:"`
	// Carts and wishlists unused for this long are flushed and dropped from
	// memory.
	EngineIdleMinutes int `env:"ENGINE_IDLE_MINUTES" envDefault:"30"`

	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisPoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"20"`

	PostgresHost     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort     int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser     string `env:"POSTGRES_USER" envDefault:"storefront"`
	PostgresPassword string `env:"POSTGRES_PASSWORD" envDefault:""`
	PostgresDB       string `env:"POSTGRES_DB" envDefault:"storefront"`
	PostgresSSLMode  string `env:"POSTGRES_SSLMODE" envDefault:"disable"`

	DBMaxConns        int32 `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns        int32 `env:"DB_MIN_CONNS" envDefault:"1"`
	DBSlowQueryMillis int   `env:"DB_SLOW_QUERY_MS" envDefault:"200"`

	// Commerce backend. An empty endpoint runs without a backend: no
	// discounts and checkout unavailable.
	CommerceBackend        string `env:"COMMERCE_BACKEND" envDefault:"shopify"`
	CommerceEndpoint       string `env:"COMMERCE_ENDPOINT" envDefault:""`
	CommerceToken          string `env:"COMMERCE_TOKEN" envDefault:""`
	CommerceTimeoutSeconds int    `env:"COMMERCE_TIMEOUT_SECONDS" envDefault:"15"`
	CommerceMaxRetries     int    `env:"COMMERCE_MAX_RETRIES" envDefault:"3"`

	// Circuit breaker around backend reads
	CBMaxRequests     uint32  `env:"CB_MAX_REQUESTS" envDefault:"1"`
	CBIntervalSeconds int     `env:"CB_INTERVAL_SECONDS" envDefault:"60"`
	CBTimeoutSeconds  int     `env:"CB_TIMEOUT_SECONDS" envDefault:"30"`
	CBFailureRatio    float64 `env:"CB_FAILURE_RATIO" envDefault:"0.5"`
	CBMinRequests     uint32  `env:"CB_MIN_REQUESTS" envDefault:"5"`

	// Kafka
	EventsEnabled bool     `env:"EVENTS_ENABLED" envDefault:"false"`
	KafkaBrokers  []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_ENDPOINT" envDefault:"localhost:4318"`
	OTELInsecure   bool    `env:"OTEL_INSECURE" envDefault:"true"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	rates map[string]decimal.Decimal
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	c.DisplayCurrency = money.NormalizeCode(c.DisplayCurrency)
	if len(c.DisplayCurrency) != 3 {
		return fmt.Errorf("DISPLAY_CURRENCY must be a 3-letter code, got %q", c.DisplayCurrency)
	}
	rates, err := money.ParseRates(c.ExchangeRates)
	if err != nil {
		return fmt.Errorf("EXCHANGE_RATES: %w", err)
	}
	c.rates = rates

	c.StoreDriver = strings.ToLower(c.StoreDriver)
	if !slices.Contains([]string{DriverRedis, DriverPostgres}, c.StoreDriver) {
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.StoreTTLHours < 0 {
		return fmt.Errorf("STORE_TTL_HOURS must not be negative")
	}
	if c.EngineIdleMinutes < 1 {
		return fmt.Errorf("ENGINE_IDLE_MINUTES must be positive")
	}

	c.CommerceBackend = strings.ToLower(c.CommerceBackend)
	if !slices.Contains([]string{commerce.KindShopify, commerce.KindBagisto}, c.CommerceBackend) {
		return fmt.Errorf("unknown COMMERCE_BACKEND %q", c.CommerceBackend)
	}
	if c.CommerceEndpoint != "" {
		u, err := url.Parse(c.CommerceEndpoint)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("COMMERCE_ENDPOINT must be an absolute http(s) URL, got %q", c.CommerceEndpoint)
		}
	}
	if c.CommerceTimeoutSeconds < 1 {
		return fmt.Errorf("COMMERCE_TIMEOUT_SECONDS must be positive")
	}
	if c.CBFailureRatio <= 0 || c.CBFailureRatio > 1 {
		return fmt.Errorf("CB_FAILURE_RATIO must be in (0, 1]")
	}

	if c.EventsEnabled && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when EVENTS_ENABLED is set")
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %v", c.OTELSampleRate)
	}
	return nil
}

// Rates returns the exchange-rate overrides parsed from EXCHANGE_RATES.
func (c *Config) Rates() map[string]decimal.Decimal {
	return c.rates
}

// StoreTTL is how long persisted carts live without being touched.
func (c *Config) StoreTTL() time.Duration {
	return time.Duration(c.StoreTTLHours) * time.Hour
}

// EngineIdleTimeout is how long an unused cart stays in memory.
func (c *Config) EngineIdleTimeout() time.Duration {
	return time.Duration(c.EngineIdleMinutes) * time.Minute
}

// ShutdownTimeout bounds graceful shutdown.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

// Redis returns the Redis connection settings.
func (c *Config) Redis() database.RedisConfig {
	return database.RedisConfig{
		Host:     c.RedisHost,
		Port:     c.RedisPort,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
		PoolSize: c.RedisPoolSize,
	}
}

// Postgres returns the PostgreSQL pool settings.
func (c *Config) Postgres() *database.PostgresConfig {
	return &database.PostgresConfig{
		Host:            c.PostgresHost,
		Port:            c.PostgresPort,
		User:            c.PostgresUser,
		Password:        c.PostgresPassword,
		DBName:          c.PostgresDB,
		SSLMode:         c.PostgresSSLMode,
		MaxConns:        c.DBMaxConns,
		MinConns:        c.DBMinConns,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
	}
}

// SlowQueryThreshold is the duration above which SQL statements are logged.
func (c *Config) SlowQueryThreshold() time.Duration {
	return time.Duration(c.DBSlowQueryMillis) * time.Millisecond
}

// HTTPClient returns the transport settings for the commerce backend.
func (c *Config) HTTPClient() httpclient.Config {
	cfg := httpclient.DefaultConfig()
	cfg.Timeout = time.Duration(c.CommerceTimeoutSeconds) * time.Second
	cfg.MaxRetries = c.CommerceMaxRetries
	return cfg
}

// Breaker returns the circuit-breaker settings for backend reads.
func (c *Config) Breaker() httpclient.CircuitBreakerConfig {
	return httpclient.CircuitBreakerConfig{
		Name:         "commerce-" + c.CommerceBackend,
		MaxRequests:  c.CBMaxRequests,
		Interval:     time.Duration(c.CBIntervalSeconds) * time.Second,
		Timeout:      time.Duration(c.CBTimeoutSeconds) * time.Second,
		FailureRatio: c.CBFailureRatio,
		MinRequests:  c.CBMinRequests,
	}
}

// Tracing returns the OpenTelemetry exporter settings.
func (c *Config) Tracing() tracing.Config {
	return tracing.Config{
		ServiceName:    ServiceName,
		ServiceVersion: c.ServiceVersion,
		Environment:    c.Environment,
		Endpoint:       c.OTELEndpoint,
		Insecure:       c.OTELInsecure,
		SampleRate:     c.OTELSampleRate,
		Enabled:        c.OTELEnabled,
	}
}
