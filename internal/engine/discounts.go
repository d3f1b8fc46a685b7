package engine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/utafrali/storefront/internal/commerce"
	"github.com/utafrali/storefront/internal/domain"
)

// Discounts holds the shipping discounts fetched from the commerce backend.
// A failed fetch leaves the set empty; the cart works without free shipping.
type Discounts struct {
	mu   sync.RWMutex
	list []domain.ShippingDiscount
}

// NewDiscounts returns a discount set holding list.
func NewDiscounts(list []domain.ShippingDiscount) *Discounts {
	d := &Discounts{}
	d.set(list)
	return d
}

// LoadDiscounts fetches the discounts from backend once.
func LoadDiscounts(ctx context.Context, backend commerce.Backend, logger *slog.Logger) *Discounts {
	d := &Discounts{}
	d.Refresh(ctx, backend, logger)
	return d
}

// Refresh replaces the set with the backend's current discounts. On failure
// the set becomes empty and the error is only logged.
func (d *Discounts) Refresh(ctx context.Context, backend commerce.Backend, logger *slog.Logger) {
	list, err := backend.GetShippingDiscounts(ctx)
	if err != nil {
		discountFetchFailures.Inc()
		logger.WarnContext(ctx, "failed to fetch shipping discounts",
			slog.String("backend", backend.Name()),
			slog.String("error", err.Error()),
		)
		list = nil
	}
	d.set(list)
	logger.InfoContext(ctx, "shipping discounts loaded",
		slog.String("backend", backend.Name()),
		slog.Int("count", len(list)),
	)
}

// List returns a copy of the discounts in declaration order.
func (d *Discounts) List() []domain.ShippingDiscount {
	if d == nil {
		return nil
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]domain.ShippingDiscount, len(d.list))
	copy(out, d.list)
	return out
}

func (d *Discounts) set(list []domain.ShippingDiscount) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.list = make([]domain.ShippingDiscount, len(list))
	copy(d.list, list)
}
