// Package cart holds the cart state and the pure transitions applied to it.
// Every mutation of a cart is expressed as an Action and applied with Reduce.
package cart

import (
	"github.com/utafrali/storefront/internal/domain"
)

// State is the mutable part of a cart: its line items and the selected
// shipping rate.
type State struct {
	Items        []domain.LineItem    `json:"items"`
	ShippingRate *domain.ShippingRate `json:"shipping_rate,omitempty"`
}

// MaxQuantity is the largest quantity a single line item may hold. Adds and
// updates beyond it are capped.
const MaxQuantity = 9999

// Entry is one product/quantity pair of an add operation.
type Entry struct {
	Product  domain.Product `json:"product"`
	Quantity int            `json:"quantity"`
}

// Action is a cart transition.
type Action interface {
	action()
}

// AddItems merges every entry into the cart by product identity.
type AddItems struct{ Entries []Entry }

// RemoveItem deletes the line item matching Identity.
type RemoveItem struct{ Identity string }

// UpdateQuantity sets the quantity of the line item matching Identity.
// A quantity of zero or less removes it; one above MaxQuantity is capped.
type UpdateQuantity struct {
	Identity string
	Quantity int
}

// Clear empties the line items.
type Clear struct{}

// Deduct subtracts the quantities of Items from the matching line items,
// removing lines that reach zero. Lines added after Items was taken are left
// alone.
type Deduct struct{ Items []domain.LineItem }

// SelectShippingRate replaces the selected shipping rate; nil deselects.
type SelectShippingRate struct{ Rate *domain.ShippingRate }

// Hydrate replaces the line items with previously persisted ones.
type Hydrate struct{ Items []domain.LineItem }

func (AddItems) action()           {}
func (RemoveItem) action()         {}
func (UpdateQuantity) action()     {}
func (Clear) action()              {}
func (Deduct) action()             {}
func (SelectShippingRate) action() {}
func (Hydrate) action()            {}

// Reduce applies action to state and returns the next state. The input state
// is never modified; unknown actions return it unchanged.
func Reduce(state State, action Action) State {
	next := State{
		Items:        domain.CloneItems(state.Items),
		ShippingRate: state.ShippingRate,
	}

	switch a := action.(type) {
	case AddItems:
		for _, e := range a.Entries {
			next.Items = merge(next.Items, e.Product, e.Quantity)
		}

	case RemoveItem:
		next.Items = remove(next.Items, a.Identity)

	case UpdateQuantity:
		if a.Quantity <= 0 {
			next.Items = remove(next.Items, a.Identity)
			break
		}
		if idx := domain.FindIdentityIndex(next.Items, a.Identity); idx >= 0 {
			next.Items[idx].Quantity = min(a.Quantity, MaxQuantity)
		}

	case Clear:
		next.Items = []domain.LineItem{}

	case Deduct:
		for _, item := range a.Items {
			next.Items = deduct(next.Items, item.Product, item.Quantity)
		}

	case SelectShippingRate:
		if a.Rate != nil {
			rate := *a.Rate
			next.ShippingRate = &rate
		} else {
			next.ShippingRate = nil
		}

	case Hydrate:
		next.Items = []domain.LineItem{}
		for _, item := range a.Items {
			if item.Quantity < 1 || item.Product.ID == "" {
				continue
			}
			next.Items = merge(next.Items, item.Product, item.Quantity)
		}
	}

	return next
}

func merge(items []domain.LineItem, product domain.Product, quantity int) []domain.LineItem {
	if idx := domain.FindItemIndex(items, product); idx >= 0 {
		items[idx].Quantity = capped(items[idx].Quantity, quantity)
		return items
	}
	return append(items, domain.LineItem{Product: product, Quantity: min(quantity, MaxQuantity)})
}

// capped adds two non-negative quantities without exceeding MaxQuantity.
func capped(current, add int) int {
	if add >= MaxQuantity-current {
		return MaxQuantity
	}
	return current + add
}

func deduct(items []domain.LineItem, product domain.Product, quantity int) []domain.LineItem {
	idx := domain.FindItemIndex(items, product)
	if idx < 0 {
		return items
	}
	if items[idx].Quantity <= quantity {
		return append(items[:idx], items[idx+1:]...)
	}
	items[idx].Quantity -= quantity
	return items
}

func remove(items []domain.LineItem, identity string) []domain.LineItem {
	idx := domain.FindIdentityIndex(items, identity)
	if idx < 0 {
		return items
	}
	return append(items[:idx], items[idx+1:]...)
}
