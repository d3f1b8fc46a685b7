// Package repository defines the key-value persistence used for cart and
// wishlist durability.
package repository

import "context"

// Store is a string key-value store.
type Store interface {
	// Get returns the value stored under key, or an error wrapping
	// apperrors.ErrNotFound when the key is absent.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
}

// CartKey returns the store key of an installation's cart.
func CartKey(ownerID string) string {
	return "cart:" + ownerID
}

// WishlistKey returns the store key of an installation's wishlist.
func WishlistKey(ownerID string) string {
	return "wishlist:" + ownerID
}
