package cart

import (
	"fmt"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// ValidateEntries checks a whole add batch before it is applied. A single
// bad entry rejects the batch.
func ValidateEntries(entries []Entry) error {
	if len(entries) == 0 {
		return apperrors.InvalidInput("at least one item is required")
	}
	for i, e := range entries {
		if e.Product.ID == "" {
			return apperrors.InvalidInput(fmt.Sprintf("item %d: product id is required", i))
		}
		if e.Quantity < 1 {
			return apperrors.InvalidInput(fmt.Sprintf("item %d: quantity must be at least 1", i))
		}
		if e.Quantity > MaxQuantity {
			return apperrors.InvalidInput(fmt.Sprintf("item %d: quantity must be at most %d", i, MaxQuantity))
		}
	}
	return nil
}
