package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

const maxOwnerIDLength = 128

// DefaultIdleTimeout is how long an unused cart or wishlist stays in memory.
const DefaultIdleTimeout = 30 * time.Minute

// Registry hosts one cart and one wishlist per installation, opened lazily
// on first use and shared by every request for that installation. Engines
// idle for longer than the idle timeout are flushed and dropped by Sweep;
// the next request restores them from the store.
type Registry struct {
	opts        Options
	idleTimeout time.Duration
	logger      *slog.Logger
	now         func() time.Time

	carts     *pool[*Engine]
	wishlists *pool[*Wishlist]

	leaseMu sync.Mutex
	leases  map[string]int
}

// NewRegistry creates a registry whose engines share opts.
func NewRegistry(opts Options) *Registry {
	opts = opts.withDefaults()
	r := &Registry{
		opts:        opts,
		idleTimeout: opts.IdleTimeout,
		logger:      opts.Logger,
		now:         time.Now,
		leases:      make(map[string]int),
	}
	r.carts = newPool("cart", func(ctx context.Context, id string) *Engine {
		return Open(ctx, id, r.opts)
	})
	r.wishlists = newPool("wishlist", func(ctx context.Context, id string) *Wishlist {
		return OpenWishlist(ctx, id, r.opts)
	})
	return r
}

// Discounts returns the discount set shared by every cart.
func (r *Registry) Discounts() *Discounts {
	return r.opts.Discounts
}

// Cart returns the cart of ownerID, restoring it from the store on first use.
func (r *Registry) Cart(ctx context.Context, ownerID string) (*Engine, error) {
	if err := validateOwnerID(ownerID); err != nil {
		return nil, err
	}
	return r.carts.get(ctx, ownerID, r.now()), nil
}

// Wishlist returns the wishlist of ownerID, restoring it on first use.
func (r *Registry) Wishlist(ctx context.Context, ownerID string) (*Wishlist, error) {
	if err := validateOwnerID(ownerID); err != nil {
		return nil, err
	}
	return r.wishlists.get(ctx, ownerID, r.now()), nil
}

// Acquire keeps ownerID's engines from being evicted until the returned
// release function is called. Requests hold a lease for their duration.
func (r *Registry) Acquire(ownerID string) (release func()) {
	r.leaseMu.Lock()
	r.leases[ownerID]++
	r.leaseMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.leaseMu.Lock()
			defer r.leaseMu.Unlock()
			if r.leases[ownerID]--; r.leases[ownerID] <= 0 {
				delete(r.leases, ownerID)
			}
		})
	}
}

func (r *Registry) leased(ownerID string) bool {
	r.leaseMu.Lock()
	defer r.leaseMu.Unlock()
	return r.leases[ownerID] > 0
}

// Sweep flushes and drops every cart and wishlist unused for longer than the
// idle timeout and not currently leased. It returns how many were evicted.
func (r *Registry) Sweep(ctx context.Context) int {
	cutoff := r.now().Add(-r.idleTimeout)
	evicted := r.carts.evictIdle(ctx, cutoff, r.leased, r.logger)
	evicted += r.wishlists.evictIdle(ctx, cutoff, r.leased, r.logger)
	return evicted
}

// RunSweeper calls Sweep periodically until ctx is canceled.
func (r *Registry) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = r.idleTimeout / 2
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(ctx); n > 0 {
				r.logger.Debug("evicted idle engines", slog.Int("count", n))
			}
		}
	}
}

// Close flushes every cart and wishlist.
func (r *Registry) Close(ctx context.Context) error {
	return errors.Join(r.carts.closeAll(ctx), r.wishlists.closeAll(ctx))
}

func validateOwnerID(id string) error {
	if id == "" {
		return apperrors.InvalidInput("installation id is required")
	}
	if len(id) > maxOwnerIDLength {
		return apperrors.InvalidInput("installation id is too long")
	}
	return nil
}

type closer interface {
	Close(ctx context.Context) error
}

type slot[T closer] struct {
	value    T
	lastUsed time.Time
}

// pool holds one T per owner. Opening and evicting an owner run through the
// same singleflight key, so a request never sees an engine that is being
// flushed and never reads the store before that flush completes.
type pool[T closer] struct {
	kind  string
	open  func(ctx context.Context, id string) T
	group singleflight.Group

	mu    sync.Mutex
	slots map[string]*slot[T]
}

func newPool[T closer](kind string, open func(ctx context.Context, id string) T) *pool[T] {
	return &pool[T]{kind: kind, open: open, slots: make(map[string]*slot[T])}
}

func (p *pool[T]) lookup(id string, now time.Time) (T, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.slots[id]
	if !ok {
		var zero T
		return zero, false
	}
	if now.After(s.lastUsed) {
		s.lastUsed = now
	}
	return s.value, true
}

func (p *pool[T]) get(ctx context.Context, id string, now time.Time) T {
	for {
		if v, ok := p.lookup(id, now); ok {
			return v
		}
		res, _, _ := p.group.Do(id, func() (any, error) {
			if v, ok := p.lookup(id, now); ok {
				return v, nil
			}
			// The store read outlives the caller that happened to trigger it.
			v := p.open(context.WithoutCancel(ctx), id)
			p.mu.Lock()
			p.slots[id] = &slot[T]{value: v, lastUsed: now}
			activeOwners.WithLabelValues(p.kind).Set(float64(len(p.slots)))
			p.mu.Unlock()
			return v, nil
		})
		// An eviction of id was in flight; look again now that it finished.
		if v, ok := res.(T); ok {
			return v
		}
	}
}

func (p *pool[T]) idleIDs(cutoff time.Time) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var ids []string
	for id, s := range p.slots {
		if s.lastUsed.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	return ids
}

func (p *pool[T]) evictIdle(ctx context.Context, cutoff time.Time, leased func(string) bool, logger *slog.Logger) int {
	evicted := 0
	for _, id := range p.idleIDs(cutoff) {
		res, _, _ := p.group.Do(id, func() (any, error) {
			p.mu.Lock()
			s, ok := p.slots[id]
			if !ok || !s.lastUsed.Before(cutoff) || leased(id) {
				p.mu.Unlock()
				return false, nil
			}
			delete(p.slots, id)
			activeOwners.WithLabelValues(p.kind).Set(float64(len(p.slots)))
			p.mu.Unlock()

			if err := s.value.Close(ctx); err != nil {
				logger.Error("failed to flush evicted engine",
					slog.String("kind", p.kind),
					slog.String("owner_id", id),
					slog.String("error", err.Error()),
				)
			}
			evictions.WithLabelValues(p.kind).Inc()
			return true, nil
		})
		if done, _ := res.(bool); done {
			evicted++
		}
	}
	return evicted
}

func (p *pool[T]) closeAll(ctx context.Context) error {
	p.mu.Lock()
	slots := make([]*slot[T], 0, len(p.slots))
	for _, s := range p.slots {
		slots = append(slots, s)
	}
	p.mu.Unlock()

	errs := make([]error, 0, len(slots))
	for _, s := range slots {
		errs = append(errs, s.value.Close(ctx))
	}
	return errors.Join(errs...)
}
