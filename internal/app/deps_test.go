package app

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/config"
	"github.com/utafrali/storefront/internal/repository"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewBackend_NoEndpoint(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	backend, err := NewBackend(cfg, discardLogger())

	require.NoError(t, err)
	assert.Nil(t, backend)
}

func TestNewBackend_Bagisto(t *testing.T) {
	t.Setenv("COMMERCE_BACKEND", "bagisto")
	t.Setenv("COMMERCE_ENDPOINT", "http://shop.example.test/graphql")
	cfg, err := config.Load()
	require.NoError(t, err)

	backend, err := NewBackend(cfg, discardLogger())

	require.NoError(t, err)
	require.NotNil(t, backend)
	assert.Equal(t, "bagisto", backend.Name())
	assert.NoError(t, backend.Check(context.Background()))
}

func TestOpenStore_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	t.Setenv("REDIS_HOST", mr.Host())
	t.Setenv("REDIS_PORT", mr.Port())
	t.Setenv("STORE_KEY_PREFIX", "test:")
	cfg, err := config.Load()
	require.NoError(t, err)
	ctx := context.Background()

	s, err := openStore(ctx, cfg, prometheus.NewRegistry(), discardLogger())
	require.NoError(t, err)
	defer s.close()

	assert.Equal(t, config.DriverRedis, s.driver)
	assert.NoError(t, s.check(ctx))

	key := repository.CartKey("device-1")
	require.NoError(t, s.Set(ctx, key, `[]`))
	got, err := mr.Get("test:" + key)
	require.NoError(t, err)
	assert.Equal(t, `[]`, got)
}

func TestOpenStore_RedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	host, port := mr.Host(), mr.Port()
	mr.Close()

	t.Setenv("REDIS_HOST", host)
	t.Setenv("REDIS_PORT", port)
	cfg, err := config.Load()
	require.NoError(t, err)

	_, err = openStore(context.Background(), cfg, prometheus.NewRegistry(), discardLogger())

	assert.ErrorContains(t, err, "connect to redis")
}

func TestOpenStore_UnknownDriver(t *testing.T) {
	cfg := &config.Config{StoreDriver: "memcached"}

	_, err := openStore(context.Background(), cfg, prometheus.NewRegistry(), discardLogger())

	assert.ErrorContains(t, err, `unknown store driver "memcached"`)
}
