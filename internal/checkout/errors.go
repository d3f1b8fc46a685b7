package checkout

import (
	"errors"
	"strings"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

var (
	ErrEmptyCart        = errors.New("cart is empty")
	ErrItemsUnavailable = errors.New("items unavailable")
)

// UnavailableItemsError names the products that blocked a checkout.
type UnavailableItemsError struct {
	Products []domain.Product
}

func (e *UnavailableItemsError) Error() string {
	return "unavailable: " + strings.Join(e.Names(), ", ")
}

func (e *UnavailableItemsError) Unwrap() error {
	return ErrItemsUnavailable
}

// Names returns the display names of the offending products.
func (e *UnavailableItemsError) Names() []string {
	names := make([]string, len(e.Products))
	for i, p := range e.Products {
		names[i] = p.DisplayName()
	}
	return names
}

// EmptyCart returns the error reported when checking out an empty cart.
func EmptyCart() *apperrors.AppError {
	return apperrors.Unprocessable("EMPTY_CART", "cart is empty", ErrEmptyCart)
}

// ItemsUnavailable returns the error reported when products cannot be ordered.
func ItemsUnavailable(products []domain.Product) *apperrors.AppError {
	cause := &UnavailableItemsError{Products: products}
	return apperrors.Unprocessable(
		"ITEMS_UNAVAILABLE",
		"some items are no longer available: "+strings.Join(cause.Names(), ", "),
		cause,
	)
}
