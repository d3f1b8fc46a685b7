// Package engine owns a storefront cart: it applies cart transitions under a
// single lock, prices the cart, persists it and runs checkout.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/utafrali/storefront/internal/cart"
	"github.com/utafrali/storefront/internal/commerce"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/pricing"
	"github.com/utafrali/storefront/internal/repository"
)

// Options configures an engine. Store, Evaluator and Backend are required.
type Options struct {
	Store     repository.Store
	Backend   commerce.Backend
	Evaluator *pricing.Evaluator
	Discounts *Discounts
	Events    event.Publisher
	Logger    *slog.Logger
	// PersistTimeout bounds each background store write.
	PersistTimeout time.Duration
	// IdleTimeout is how long a registry keeps an unused cart or wishlist
	// in memory. Zero uses DefaultIdleTimeout.
	IdleTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.Events == nil {
		o.Events = event.NopPublisher{}
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Discounts == nil {
		o.Discounts = NewDiscounts(nil)
	}
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = DefaultIdleTimeout
	}
	return o
}

// Snapshot is a priced, read-only view of a cart.
type Snapshot struct {
	CartID       string               `json:"cart_id"`
	Items        []domain.LineItem    `json:"items"`
	ShippingRate *domain.ShippingRate `json:"shipping_rate,omitempty"`
	Summary      pricing.Summary      `json:"summary"`
}

// Engine is one installation's cart. All methods are safe for concurrent use.
type Engine struct {
	id        string
	backend   commerce.Backend
	eval      *pricing.Evaluator
	discounts *Discounts
	events    event.Publisher
	logger    *slog.Logger

	mu          sync.Mutex
	state       cart.State
	persist     *persister
	closed      bool
	checkingOut bool
}

// Open creates the engine for cartID and restores its persisted line items.
// A missing or malformed persisted cart starts empty.
func Open(ctx context.Context, cartID string, opts Options) *Engine {
	opts = opts.withDefaults()
	key := repository.CartKey(cartID)
	logger := opts.Logger.With(slog.String("cart_id", cartID))

	items := loadList[domain.LineItem](ctx, opts.Store, key, "cart", logger)

	return &Engine{
		id:        cartID,
		backend:   opts.Backend,
		eval:      opts.Evaluator,
		discounts: opts.Discounts,
		events:    opts.Events,
		logger:    logger,
		state:     cart.Reduce(cart.State{}, cart.Hydrate{Items: items}),
		persist:   newPersister(opts.Store, key, "cart", opts.PersistTimeout, logger),
	}
}

// ID returns the cart identifier.
func (e *Engine) ID() string { return e.id }

// DisplayCurrency returns the currency totals are expressed in.
func (e *Engine) DisplayCurrency() string { return e.eval.DisplayCurrency() }

// Snapshot returns the current cart, priced.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	state := e.state
	e.mu.Unlock()
	return e.view(state)
}

// Items returns a copy of the current line items.
func (e *Engine) Items() []domain.LineItem {
	e.mu.Lock()
	defer e.mu.Unlock()
	return domain.CloneItems(e.state.Items)
}

// Summary prices the current cart.
func (e *Engine) Summary() pricing.Summary {
	return e.Snapshot().Summary
}

// Discounts returns the shipping discounts in effect.
func (e *Engine) Discounts() []domain.ShippingDiscount {
	return e.discounts.List()
}

// Tiers returns the free-shipping tiers ordered by threshold.
func (e *Engine) Tiers() []pricing.Tier {
	return e.eval.Tiers(e.discounts.List())
}

// AddItem adds quantity of product, merging with an existing line for the
// same product or variant.
func (e *Engine) AddItem(ctx context.Context, product domain.Product, quantity int) (Snapshot, error) {
	return e.AddItems(ctx, []cart.Entry{{Product: product, Quantity: quantity}})
}

// AddItems adds a batch of products in one transition. An invalid entry
// rejects the whole batch.
func (e *Engine) AddItems(ctx context.Context, entries []cart.Entry) (Snapshot, error) {
	if err := cart.ValidateEntries(entries); err != nil {
		return Snapshot{}, err
	}
	return e.dispatch(ctx, "add_items", cart.AddItems{Entries: entries}), nil
}

// RemoveItem removes the line matching identity, a product or variant ID.
// Removing an absent item is a no-op.
func (e *Engine) RemoveItem(ctx context.Context, identity string) Snapshot {
	return e.dispatch(ctx, "remove_item", cart.RemoveItem{Identity: identity})
}

// UpdateQuantity sets the quantity of the line matching identity. A
// quantity of zero or less removes the line.
func (e *Engine) UpdateQuantity(ctx context.Context, identity string, quantity int) Snapshot {
	return e.dispatch(ctx, "update_quantity", cart.UpdateQuantity{Identity: identity, Quantity: quantity})
}

// Clear empties the cart. The selected shipping rate is kept.
func (e *Engine) Clear(ctx context.Context) Snapshot {
	return e.dispatch(ctx, "clear", cart.Clear{})
}

// SelectShippingRate selects rate for shipping; nil deselects.
func (e *Engine) SelectShippingRate(ctx context.Context, rate *domain.ShippingRate) Snapshot {
	return e.dispatch(ctx, "select_shipping_rate", cart.SelectShippingRate{Rate: rate})
}

// Close flushes pending persistence. The engine keeps serving reads but no
// longer persists mutations.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	if err := e.persist.close(ctx); err != nil {
		return fmt.Errorf("flush cart %s: %w", e.id, err)
	}
	return nil
}

// dispatch applies action to the current state, queues the result for
// persistence and publishes the matching event.
func (e *Engine) dispatch(ctx context.Context, name string, action cart.Action) Snapshot {
	e.mu.Lock()
	e.state = cart.Reduce(e.state, action)
	state := e.state
	e.save(ctx, state)
	e.mu.Unlock()

	mutationsTotal.WithLabelValues(name).Inc()
	e.logger.DebugContext(ctx, "cart updated",
		slog.String("action", name),
		slog.Int("lines", len(state.Items)),
	)

	snap := e.view(state)
	e.publish(ctx, action, snap)
	return snap
}

// save must be called with e.mu held.
func (e *Engine) save(ctx context.Context, state cart.State) {
	if e.closed {
		e.logger.WarnContext(ctx, "cart closed, mutation not persisted")
		return
	}
	value, err := encodeList(state.Items)
	if err != nil {
		persistFailures.WithLabelValues("cart").Inc()
		e.logger.ErrorContext(ctx, "failed to encode cart", slog.String("error", err.Error()))
		return
	}
	e.persist.submit(value)
}

func (e *Engine) publish(ctx context.Context, action cart.Action, snap Snapshot) {
	var err error
	switch action.(type) {
	case cart.Clear:
		err = e.events.PublishCartCleared(ctx, e.id)
	case cart.SelectShippingRate:
		return
	default:
		err = e.events.PublishCartUpdated(ctx, e.id, snap.Items, snap.Summary)
	}
	if err != nil {
		e.logger.ErrorContext(ctx, "failed to publish cart event", slog.String("error", err.Error()))
	}
}

func (e *Engine) view(state cart.State) Snapshot {
	snap := Snapshot{
		CartID: e.id,
		Items:  domain.CloneItems(state.Items),
	}
	if state.ShippingRate != nil {
		rate := *state.ShippingRate
		snap.ShippingRate = &rate
	}
	snap.Summary = e.eval.Summarize(snap.Items, snap.ShippingRate, e.discounts.List())
	return snap
}
