package http

import (
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/utafrali/storefront/internal/cart"
	"github.com/utafrali/storefront/internal/commerce"
	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/validator"
)

// GetCart handles GET /api/v1/cart
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	e, err := h.cart(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, newCartResponse(e.Snapshot()))
}

// ClearCart handles DELETE /api/v1/cart
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	e, err := h.cart(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, newCartResponse(e.Clear(r.Context())))
}

// AddItems handles POST /api/v1/cart/items. The body is a single
// {product, quantity} entry, an array of them, or {"items": [...]}. Products
// may use any backend's field names; a missing quantity counts as one.
func (h *Handler) AddItems(w http.ResponseWriter, r *http.Request) {
	body, err := readJSON(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	entries := h.entries(body)
	if len(entries) == 0 {
		h.writeError(w, r, apperrors.InvalidInput("no items in request body"))
		return
	}

	e, err := h.cart(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	snap, err := e.AddItems(r.Context(), entries)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, newCartResponse(snap))
}

func (h *Handler) entries(body gjson.Result) []cart.Entry {
	list := body
	switch {
	case body.IsArray():
	case body.Get("items").IsArray():
		list = body.Get("items")
	case body.IsObject():
		list = gjson.Parse("[" + body.Raw + "]")
	default:
		return nil
	}

	items := commerce.NormalizeLineItems(list, h.eval.DisplayCurrency())
	entries := make([]cart.Entry, len(items))
	for i, item := range items {
		entries[i] = cart.Entry{Product: item.Product, Quantity: item.Quantity}
	}
	return entries
}

// UpdateItemQuantity handles PUT /api/v1/cart/items/{identity}
func (h *Handler) UpdateItemQuantity(w http.ResponseWriter, r *http.Request) {
	var req UpdateQuantityRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	e, err := h.cart(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	snap := e.UpdateQuantity(r.Context(), identity(r), *req.Quantity)
	httputil.WriteData(w, http.StatusOK, newCartResponse(snap))
}

// RemoveItem handles DELETE /api/v1/cart/items/{identity}
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	e, err := h.cart(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	snap := e.RemoveItem(r.Context(), identity(r))
	httputil.WriteData(w, http.StatusOK, newCartResponse(snap))
}

// SelectShippingRate handles PUT /api/v1/cart/shipping-rate
func (h *Handler) SelectShippingRate(w http.ResponseWriter, r *http.Request) {
	var req ShippingRateRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.Price.IsNegative() {
		h.writeError(w, r, apperrors.InvalidInput("shipping rate price must not be negative"))
		return
	}

	e, err := h.cart(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	snap := e.SelectShippingRate(r.Context(), req.toDomain(h.eval.DisplayCurrency()))
	httputil.WriteData(w, http.StatusOK, newCartResponse(snap))
}

// ClearShippingRate handles DELETE /api/v1/cart/shipping-rate
func (h *Handler) ClearShippingRate(w http.ResponseWriter, r *http.Request) {
	e, err := h.cart(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, newCartResponse(e.SelectShippingRate(r.Context(), nil)))
}

// Checkout handles POST /api/v1/cart/checkout
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var info domain.ShippingInfo
	if err := validator.Decode(r, &info); err != nil {
		h.writeError(w, r, err)
		return
	}

	e, err := h.cart(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	order, err := e.CompleteCheckout(r.Context(), info)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteData(w, http.StatusCreated, CheckoutResponse{
		Order: *order,
		Cart:  newCartResponse(e.Snapshot()),
	})
}
