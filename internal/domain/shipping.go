package domain

import "github.com/shopspring/decimal"

// DiscountTypeFreeShipping is the only discount type the cart evaluates.
const DiscountTypeFreeShipping = "FREE_SHIPPING"

// ShippingDiscount is a tiered free-shipping promotion configured in the
// commerce backend.
type ShippingDiscount struct {
	ID                 string          `json:"id"`
	Title              string          `json:"title"`
	Code               string          `json:"code"`
	MinimumOrderAmount decimal.Decimal `json:"minimum_order_amount"`
	CurrencyCode       string          `json:"currency_code"`
	Type               string          `json:"type"`
}

// IsFreeShipping reports whether the discount is a free-shipping promotion.
func (d ShippingDiscount) IsFreeShipping() bool {
	return d.Type == DiscountTypeFreeShipping
}

// ShippingRate is a shipping option selected during checkout.
type ShippingRate struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	Price        decimal.Decimal `json:"price"`
	CurrencyCode string          `json:"currency_code"`
}

// ShippingInfo is the customer and address data collected by the checkout form.
type ShippingInfo struct {
	FullName string `json:"full_name" validate:"required,notblank,max=200"`
	Email    string `json:"email" validate:"omitempty,email"`
	Phone    string `json:"phone" validate:"omitempty,max=32"`
	Address1 string `json:"address1" validate:"required,notblank,max=255"`
	Address2 string `json:"address2" validate:"omitempty,max=255"`
	City     string `json:"city" validate:"required,notblank,max=100"`
	Province string `json:"province" validate:"omitempty,max=100"`
	Zip      string `json:"zip" validate:"omitempty,max=20"`
	Country  string `json:"country" validate:"required,notblank,max=100"`
}
