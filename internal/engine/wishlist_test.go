package engine

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

func (f *fixture) openWishlist(t *testing.T, id string) *Wishlist {
	t.Helper()
	w := OpenWishlist(context.Background(), id, f.opts)
	t.Cleanup(func() { _ = w.Close(context.Background()) })
	return w
}

func TestWishlist_AddIsIdempotent(t *testing.T) {
	f := newFixture()
	w := f.openWishlist(t, "device-1")
	ctx := context.Background()

	added, err := w.Add(ctx, product("p1", "v1", 10, true))
	require.NoError(t, err)
	assert.True(t, added)

	added, err = w.Add(ctx, product("p1-alt", "v1", 10, true))
	require.NoError(t, err)
	assert.False(t, added)

	assert.Len(t, w.Items(), 1)
	assert.True(t, w.Contains("v1"))
	assert.True(t, w.Contains("p1"))
}

func TestWishlist_AddRequiresID(t *testing.T) {
	f := newFixture()
	w := f.openWishlist(t, "device-1")

	_, err := w.Add(context.Background(), domain.Product{Name: "nameless"})

	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestWishlist_Toggle(t *testing.T) {
	f := newFixture()
	w := f.openWishlist(t, "device-1")
	ctx := context.Background()
	p := product("p1", "v1", 10, true)

	saved, err := w.Toggle(ctx, p)
	require.NoError(t, err)
	assert.True(t, saved)

	saved, err = w.Toggle(ctx, p)
	require.NoError(t, err)
	assert.False(t, saved)
	assert.Empty(t, w.Items())
}

func TestWishlist_RemoveAndClear(t *testing.T) {
	f := newFixture()
	w := f.openWishlist(t, "device-1")
	ctx := context.Background()
	_, _ = w.Add(ctx, product("p1", "v1", 10, true))
	_, _ = w.Add(ctx, product("p2", "v2", 10, true))

	assert.True(t, w.Remove(ctx, "p1"))
	assert.False(t, w.Remove(ctx, "p1"))
	assert.Len(t, w.Items(), 1)

	w.Clear(ctx)
	assert.Empty(t, w.Items())
}

func TestWishlist_MoveToCart(t *testing.T) {
	f := newFixture()
	w := f.openWishlist(t, "device-1")
	e := f.open(t, "device-1")
	ctx := context.Background()
	_, _ = w.Add(ctx, product("p1", "v1", 10, true))

	snap, err := w.MoveToCart(ctx, "v1", e)

	require.NoError(t, err)
	require.Len(t, snap.Items, 1)
	assert.Equal(t, 1, snap.Items[0].Quantity)
	assert.False(t, w.Contains("p1"))

	_, err = w.MoveToCart(ctx, "v1", e)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestWishlist_PersistsAndRestores(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	w := OpenWishlist(ctx, "device-1", f.opts)
	_, _ = w.Add(ctx, product("p1", "v1", 10, true))
	require.NoError(t, w.Close(ctx))

	raw, ok := f.store.value(repository.WishlistKey("device-1"))
	require.True(t, ok)
	var stored []domain.Product
	require.NoError(t, json.Unmarshal([]byte(raw), &stored))
	require.Len(t, stored, 1)

	restored := f.openWishlist(t, "device-1")
	assert.True(t, restored.Contains("p1"))
}

func TestWishlist_CorruptStateIsDiscarded(t *testing.T) {
	f := newFixture()
	key := repository.WishlistKey("device-1")
	f.store.data[key] = `"just a string"`

	w := f.openWishlist(t, "device-1")

	assert.Empty(t, w.Items())
	assert.Contains(t, f.store.removed, key)
}

// --- Registry ---

func TestRegistry_SharesEnginePerOwner(t *testing.T) {
	f := newFixture()
	r := NewRegistry(f.opts)
	t.Cleanup(func() { _ = r.Close(context.Background()) })
	ctx := context.Background()

	a, err := r.Cart(ctx, "device-1")
	require.NoError(t, err)
	b, err := r.Cart(ctx, "device-1")
	require.NoError(t, err)
	c, err := r.Cart(ctx, "device-2")
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)

	wa, err := r.Wishlist(ctx, "device-1")
	require.NoError(t, err)
	wb, err := r.Wishlist(ctx, "device-1")
	require.NoError(t, err)
	assert.Same(t, wa, wb)
}

func TestRegistry_RejectsInvalidOwnerID(t *testing.T) {
	r := NewRegistry(newFixture().opts)

	_, err := r.Cart(context.Background(), "")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))

	long := make([]byte, maxOwnerIDLength+1)
	for i := range long {
		long[i] = 'x'
	}
	_, err = r.Wishlist(context.Background(), string(long))
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestRegistry_CloseFlushesCarts(t *testing.T) {
	f := newFixture()
	r := NewRegistry(f.opts)
	ctx := context.Background()
	e, err := r.Cart(ctx, "device-1")
	require.NoError(t, err)
	_, err = e.AddItem(ctx, product("p1", "v1", 10, true), 1)
	require.NoError(t, err)

	require.NoError(t, r.Close(ctx))

	_, ok := f.store.value(repository.CartKey("device-1"))
	assert.True(t, ok)
}

func TestRegistry_SweepFlushesIdleCartAndReloadsIt(t *testing.T) {
	f := newFixture()
	f.opts.IdleTimeout = time.Minute
	r := NewRegistry(f.opts)
	t.Cleanup(func() { _ = r.Close(context.Background()) })
	now := time.Now()
	r.now = func() time.Time { return now }
	ctx := context.Background()

	e, err := r.Cart(ctx, "device-1")
	require.NoError(t, err)
	_, err = e.AddItem(ctx, product("p1", "v1", 10, true), 2)
	require.NoError(t, err)

	assert.Zero(t, r.Sweep(ctx), "recently used carts stay")

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 1, r.Sweep(ctx))

	raw, ok := f.store.value(repository.CartKey("device-1"))
	require.True(t, ok, "eviction flushes the cart")
	assert.Contains(t, raw, `"p1"`)

	reloaded, err := r.Cart(ctx, "device-1")
	require.NoError(t, err)
	assert.NotSame(t, e, reloaded)
	require.Len(t, reloaded.Items(), 1)
	assert.Equal(t, 2, reloaded.Items()[0].Quantity)
}

func TestRegistry_SweepSkipsLeasedOwners(t *testing.T) {
	f := newFixture()
	f.opts.IdleTimeout = time.Minute
	r := NewRegistry(f.opts)
	t.Cleanup(func() { _ = r.Close(context.Background()) })
	now := time.Now()
	r.now = func() time.Time { return now }
	ctx := context.Background()

	release := r.Acquire("device-1")
	_, err := r.Cart(ctx, "device-1")
	require.NoError(t, err)
	_, err = r.Wishlist(ctx, "device-1")
	require.NoError(t, err)

	now = now.Add(time.Hour)
	assert.Zero(t, r.Sweep(ctx))

	release()
	release()
	assert.Equal(t, 2, r.Sweep(ctx))
}

// gatedStore blocks reads of one key until gate is closed.
type gatedStore struct {
	*memStore
	slowKey  string
	gate     chan struct{}
	entered  chan struct{}
	once     sync.Once
	slowGets atomic.Int32
}

func (s *gatedStore) Get(ctx context.Context, key string) (string, error) {
	if key == s.slowKey {
		s.slowGets.Add(1)
		s.once.Do(func() { close(s.entered) })
		<-s.gate
	}
	return s.memStore.Get(ctx, key)
}

func TestRegistry_SlowOpenDoesNotBlockOtherOwners(t *testing.T) {
	f := newFixture()
	store := &gatedStore{
		memStore: f.store,
		slowKey:  repository.CartKey("slow"),
		gate:     make(chan struct{}),
		entered:  make(chan struct{}),
	}
	f.opts.Store = store
	r := NewRegistry(f.opts)
	t.Cleanup(func() { _ = r.Close(context.Background()) })
	ctx := context.Background()

	const callers = 5
	results := make(chan *Engine, callers)
	for range callers {
		go func() {
			e, _ := r.Cart(ctx, "slow")
			results <- e
		}()
	}
	<-store.entered

	fast := make(chan error, 1)
	go func() {
		_, err := r.Cart(ctx, "fast")
		fast <- err
	}()
	select {
	case err := <-fast:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		close(store.gate)
		t.Fatal("opening another installation waited for a pending store read")
	}

	close(store.gate)
	first := <-results
	require.NotNil(t, first)
	for range callers - 1 {
		assert.Same(t, first, <-results)
	}
	assert.Equal(t, int32(1), store.slowGets.Load())
}
