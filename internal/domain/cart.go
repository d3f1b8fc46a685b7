package domain

import "github.com/shopspring/decimal"

// LineItem is one product and its quantity within the cart.
type LineItem struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// LineTotal returns price * quantity in the product's own currency.
func (li LineItem) LineTotal() decimal.Decimal {
	return li.Product.Price.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// ItemCount returns the sum of quantities across all line items.
func ItemCount(items []LineItem) int {
	var count int
	for _, item := range items {
		count += item.Quantity
	}
	return count
}

// FindItemIndex returns the index of the line item sharing a slot with the
// given product, or -1.
func FindItemIndex(items []LineItem, product Product) int {
	for i := range items {
		if items[i].Product.SameSlot(product) {
			return i
		}
	}
	return -1
}

// FindIdentityIndex returns the index of the line item matching identity by
// product or variant ID, or -1.
func FindIdentityIndex(items []LineItem, identity string) int {
	for i := range items {
		if items[i].Product.Matches(identity) {
			return i
		}
	}
	return -1
}

// CloneItems returns a copy of items that shares no backing array.
func CloneItems(items []LineItem) []LineItem {
	out := make([]LineItem, len(items))
	copy(out, items)
	return out
}
