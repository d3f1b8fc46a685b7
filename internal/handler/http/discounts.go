package http

import (
	"net/http"

	"github.com/utafrali/storefront/internal/money"
	"github.com/utafrali/storefront/pkg/httputil"
)

// ListDiscounts handles GET /api/v1/discounts. Tiers are sorted by their
// threshold in the display currency.
func (h *Handler) ListDiscounts(w http.ResponseWriter, _ *http.Request) {
	currency := h.eval.DisplayCurrency()
	tiers := h.eval.Tiers(h.registry.Discounts().List())

	resp := DiscountsResponse{Currency: currency, Tiers: make([]TierResponse, len(tiers))}
	for i, t := range tiers {
		resp.Tiers[i] = TierResponse{Tier: t, Formatted: money.Format(t.Threshold, currency)}
	}
	httputil.WriteData(w, http.StatusOK, resp)
}
