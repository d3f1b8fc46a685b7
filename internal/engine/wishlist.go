package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// Wishlist is an installation's saved products. It is persisted the same way
// as the cart, under its own key.
type Wishlist struct {
	id     string
	logger *slog.Logger

	mu       sync.Mutex
	products []domain.Product
	persist  *persister
	closed   bool
}

// OpenWishlist restores the wishlist of ownerID. Malformed persisted data is
// discarded.
func OpenWishlist(ctx context.Context, ownerID string, opts Options) *Wishlist {
	opts = opts.withDefaults()
	key := repository.WishlistKey(ownerID)
	logger := opts.Logger.With(slog.String("wishlist_id", ownerID))

	stored := loadList[domain.Product](ctx, opts.Store, key, "wishlist", logger)
	products := make([]domain.Product, 0, len(stored))
	for _, p := range stored {
		if p.ID == "" || indexOf(products, p) >= 0 {
			continue
		}
		products = append(products, p)
	}

	return &Wishlist{
		id:       ownerID,
		logger:   logger,
		products: products,
		persist:  newPersister(opts.Store, key, "wishlist", opts.PersistTimeout, logger),
	}
}

// Items returns a copy of the saved products in the order they were added.
func (w *Wishlist) Items() []domain.Product {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]domain.Product, len(w.products))
	copy(out, w.products)
	return out
}

// Contains reports whether a product matching identity is saved.
func (w *Wishlist) Contains(identity string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return findIdentity(w.products, identity) >= 0
}

// Add saves product. Adding a saved product is a no-op; the result reports
// whether it was added.
func (w *Wishlist) Add(ctx context.Context, product domain.Product) (bool, error) {
	if product.ID == "" {
		return false, apperrors.InvalidInput("product id is required")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if indexOf(w.products, product) >= 0 {
		return false, nil
	}
	w.products = append(w.products, product)
	w.save(ctx)
	return true, nil
}

// Remove deletes the product matching identity and reports whether one was
// saved.
func (w *Wishlist) Remove(ctx context.Context, identity string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.removeLocked(ctx, identity)
}

// Toggle saves product when absent and removes it when present. It returns
// whether the product is saved afterwards.
func (w *Wishlist) Toggle(ctx context.Context, product domain.Product) (bool, error) {
	if product.ID == "" {
		return false, apperrors.InvalidInput("product id is required")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if idx := indexOf(w.products, product); idx >= 0 {
		w.products = append(w.products[:idx:idx], w.products[idx+1:]...)
		w.save(ctx)
		return false, nil
	}
	w.products = append(w.products, product)
	w.save(ctx)
	return true, nil
}

// Clear removes every saved product.
func (w *Wishlist) Clear(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.products = []domain.Product{}
	w.save(ctx)
}

// MoveToCart adds one unit of the saved product matching identity to cart
// and then removes it from the wishlist.
func (w *Wishlist) MoveToCart(ctx context.Context, identity string, cart *Engine) (Snapshot, error) {
	w.mu.Lock()
	idx := findIdentity(w.products, identity)
	if idx < 0 {
		w.mu.Unlock()
		return Snapshot{}, apperrors.NotFound("wishlist item", identity)
	}
	product := w.products[idx]
	w.mu.Unlock()

	snap, err := cart.AddItem(ctx, product, 1)
	if err != nil {
		return Snapshot{}, fmt.Errorf("move %s to cart: %w", identity, err)
	}
	w.Remove(ctx, identity)
	return snap, nil
}

// Close flushes pending persistence.
func (w *Wishlist) Close(ctx context.Context) error {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	if err := w.persist.close(ctx); err != nil {
		return fmt.Errorf("flush wishlist %s: %w", w.id, err)
	}
	return nil
}

func (w *Wishlist) removeLocked(ctx context.Context, identity string) bool {
	idx := findIdentity(w.products, identity)
	if idx < 0 {
		return false
	}
	w.products = append(w.products[:idx:idx], w.products[idx+1:]...)
	w.save(ctx)
	return true
}

func (w *Wishlist) save(ctx context.Context) {
	if w.closed {
		w.logger.WarnContext(ctx, "wishlist closed, mutation not persisted")
		return
	}
	value, err := encodeList(w.products)
	if err != nil {
		persistFailures.WithLabelValues("wishlist").Inc()
		w.logger.ErrorContext(ctx, "failed to encode wishlist", slog.String("error", err.Error()))
		return
	}
	w.persist.submit(value)
}

func indexOf(products []domain.Product, product domain.Product) int {
	for i := range products {
		if products[i].SameSlot(product) {
			return i
		}
	}
	return -1
}

func findIdentity(products []domain.Product, identity string) int {
	for i := range products {
		if products[i].Matches(identity) {
			return i
		}
	}
	return -1
}
