package domain

import "github.com/shopspring/decimal"

// OrderRequest is the canonical order-creation payload handed to a commerce
// backend adapter.
type OrderRequest struct {
	IdempotencyKey  string          `json:"idempotency_key"`
	LineItems       []OrderLine     `json:"line_items"`
	Customer        Customer        `json:"customer"`
	ShippingAddress ShippingAddress `json:"shipping_address"`
	ShippingLine    *ShippingLine   `json:"shipping_line,omitempty"`
	DiscountCode    string          `json:"discount_code,omitempty"`
	Currency        string          `json:"currency"`
}

// OrderLine is a single purchased variant.
type OrderLine struct {
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
}

// Customer identifies the buyer.
type Customer struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// ShippingAddress is the delivery address of an order.
type ShippingAddress struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Address1  string `json:"address1"`
	Address2  string `json:"address2,omitempty"`
	City      string `json:"city"`
	Province  string `json:"province,omitempty"`
	Zip       string `json:"zip,omitempty"`
	Country   string `json:"country"`
	Phone     string `json:"phone,omitempty"`
}

// ShippingLine describes the shipping charge of an order.
type ShippingLine struct {
	Code         string          `json:"code"`
	Title        string          `json:"title"`
	Price        decimal.Decimal `json:"price"`
	CurrencyCode string          `json:"currency_code"`
}

// OrderResult identifies an order created by the backend.
type OrderResult struct {
	OrderID   string `json:"order_id"`
	OrderName string `json:"order_name"`
}
