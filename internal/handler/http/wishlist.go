package http

import (
	"net/http"

	"github.com/utafrali/storefront/internal/commerce"
	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httputil"
)

// GetWishlist handles GET /api/v1/wishlist
func (h *Handler) GetWishlist(w http.ResponseWriter, r *http.Request) {
	wl, err := h.wishlist(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, newWishlistResponse(wl.Items()))
}

// ClearWishlist handles DELETE /api/v1/wishlist
func (h *Handler) ClearWishlist(w http.ResponseWriter, r *http.Request) {
	wl, err := h.wishlist(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	wl.Clear(r.Context())
	httputil.WriteData(w, http.StatusOK, newWishlistResponse(wl.Items()))
}

// AddToWishlist handles POST /api/v1/wishlist/items. Adding a saved product
// answers 200, a new one 201.
func (h *Handler) AddToWishlist(w http.ResponseWriter, r *http.Request) {
	product, err := h.product(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	wl, err := h.wishlist(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	added, err := wl.Add(r.Context(), product)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	httputil.WriteData(w, status, newWishlistResponse(wl.Items()))
}

// ToggleWishlist handles POST /api/v1/wishlist/toggle
func (h *Handler) ToggleWishlist(w http.ResponseWriter, r *http.Request) {
	product, err := h.product(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	wl, err := h.wishlist(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	saved, err := wl.Toggle(r.Context(), product)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, SavedResponse{Identity: product.ID, Saved: saved})
}

// WishlistContains handles GET /api/v1/wishlist/items/{identity}
func (h *Handler) WishlistContains(w http.ResponseWriter, r *http.Request) {
	wl, err := h.wishlist(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	id := identity(r)
	httputil.WriteData(w, http.StatusOK, SavedResponse{Identity: id, Saved: wl.Contains(id)})
}

// RemoveFromWishlist handles DELETE /api/v1/wishlist/items/{identity}
func (h *Handler) RemoveFromWishlist(w http.ResponseWriter, r *http.Request) {
	wl, err := h.wishlist(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	id := identity(r)
	if !wl.Remove(r.Context(), id) {
		h.writeError(w, r, apperrors.NotFound("wishlist item", id))
		return
	}
	httputil.WriteData(w, http.StatusOK, newWishlistResponse(wl.Items()))
}

// MoveToCart handles POST /api/v1/wishlist/items/{identity}/move-to-cart
func (h *Handler) MoveToCart(w http.ResponseWriter, r *http.Request) {
	wl, err := h.wishlist(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	e, err := h.cart(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	snap, err := wl.MoveToCart(r.Context(), identity(r), e)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, newCartResponse(snap))
}

// product reads a product in any backend's shape, bare or under "product".
func (h *Handler) product(w http.ResponseWriter, r *http.Request) (domain.Product, error) {
	body, err := readJSON(w, r)
	if err != nil {
		return domain.Product{}, err
	}
	if p := body.Get("product"); p.IsObject() {
		body = p
	}
	if !body.IsObject() {
		return domain.Product{}, apperrors.InvalidInput("request body must be a product object")
	}
	return commerce.NormalizeProduct(body, h.eval.DisplayCurrency()), nil
}
