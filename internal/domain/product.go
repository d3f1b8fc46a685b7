package domain

import "github.com/shopspring/decimal"

// Product is a purchasable catalog entry as seen by the cart. It is owned by
// the commerce backend and never mutated by the cart.
type Product struct {
	ID           string          `json:"id"`
	VariantID    string          `json:"variant_id,omitempty"`
	Name         string          `json:"name"`
	Brand        string          `json:"brand,omitempty"`
	Image        string          `json:"image,omitempty"`
	Price        decimal.Decimal `json:"price"`
	CurrencyCode string          `json:"currency_code"`
	InStock      bool            `json:"in_stock"`
}

// SameSlot reports whether two products occupy the same cart slot: their
// product IDs match, or both carry the same non-empty variant ID.
func (p Product) SameSlot(other Product) bool {
	if p.ID != "" && p.ID == other.ID {
		return true
	}
	return p.VariantID != "" && p.VariantID == other.VariantID
}

// Matches reports whether identity names this product, either by product
// ID or by variant ID.
func (p Product) Matches(identity string) bool {
	if identity == "" {
		return false
	}
	return p.ID == identity || p.VariantID == identity
}

// DisplayName returns the product name, falling back to its ID.
func (p Product) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.ID
}
