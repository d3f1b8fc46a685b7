package http

import (
	"github.com/shopspring/decimal"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/engine"
	"github.com/utafrali/storefront/internal/money"
	"github.com/utafrali/storefront/internal/pricing"
)

// --- Request DTOs ---

// UpdateQuantityRequest sets a line item's quantity. Zero or less removes it.
type UpdateQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required,max=9999"`
}

// ShippingRateRequest selects a shipping option.
type ShippingRateRequest struct {
	ID           string          `json:"id" validate:"required,max=255"`
	Title        string          `json:"title" validate:"required,max=255"`
	Price        decimal.Decimal `json:"price"`
	CurrencyCode string          `json:"currency_code" validate:"omitempty,iso4217"`
}

func (req ShippingRateRequest) toDomain(display string) *domain.ShippingRate {
	currency := money.NormalizeCode(req.CurrencyCode)
	if currency == "" {
		currency = display
	}
	return &domain.ShippingRate{
		ID:           req.ID,
		Title:        req.Title,
		Price:        req.Price,
		CurrencyCode: currency,
	}
}

// --- Response DTOs ---

// CartResponse is a priced cart with display strings for the totals.
type CartResponse struct {
	engine.Snapshot
	Formatted FormattedTotals `json:"formatted"`
}

// FormattedTotals holds the summary amounts rendered for display.
type FormattedTotals struct {
	Subtotal  string `json:"subtotal"`
	Shipping  string `json:"shipping"`
	Total     string `json:"total"`
	Remaining string `json:"remaining,omitempty"`
}

func newCartResponse(snap engine.Snapshot) CartResponse {
	s := snap.Summary
	resp := CartResponse{
		Snapshot: snap,
		Formatted: FormattedTotals{
			Subtotal: money.Format(s.Subtotal, s.Currency),
			Shipping: money.Format(s.Shipping, s.Currency),
			Total:    money.Format(s.Total, s.Currency),
		},
	}
	if s.Nearest != nil {
		resp.Formatted.Remaining = money.Format(s.Remaining, s.Currency)
	}
	return resp
}

// CheckoutResponse is returned when an order was placed.
type CheckoutResponse struct {
	Order domain.OrderResult `json:"order"`
	Cart  CartResponse       `json:"cart"`
}

// WishlistResponse lists saved products.
type WishlistResponse struct {
	Items []domain.Product `json:"items"`
	Count int              `json:"count"`
}

func newWishlistResponse(items []domain.Product) WishlistResponse {
	return WishlistResponse{Items: items, Count: len(items)}
}

// SavedResponse reports whether a product is in the wishlist.
type SavedResponse struct {
	Identity string `json:"identity"`
	Saved    bool   `json:"saved"`
}

// DiscountsResponse lists the free-shipping tiers in display currency.
type DiscountsResponse struct {
	Currency string         `json:"currency"`
	Tiers    []TierResponse `json:"tiers"`
}

// TierResponse is one free-shipping tier.
type TierResponse struct {
	pricing.Tier
	Formatted string `json:"formatted_threshold"`
}
