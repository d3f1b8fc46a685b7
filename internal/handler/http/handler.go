// Package http exposes the storefront cart and wishlist to the mobile
// client as a JSON API.
package http

import (
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/tidwall/gjson"

	"github.com/utafrali/storefront/internal/engine"
	"github.com/utafrali/storefront/internal/pricing"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/logger"
	"github.com/utafrali/storefront/pkg/validator"
)

// Handler serves the cart, wishlist and discount endpoints. Each request
// operates on the engines of the installation named by the request header.
type Handler struct {
	registry *engine.Registry
	eval     *pricing.Evaluator
	logger   *slog.Logger
}

// NewHandler creates a handler over registry.
func NewHandler(registry *engine.Registry, eval *pricing.Evaluator, logger *slog.Logger) *Handler {
	return &Handler{
		registry: registry,
		eval:     eval,
		logger:   logger,
	}
}

func (h *Handler) cart(r *http.Request) (*engine.Engine, error) {
	return h.registry.Cart(r.Context(), logger.InstallationIDFromContext(r.Context()))
}

func (h *Handler) wishlist(r *http.Request) (*engine.Wishlist, error) {
	return h.registry.Wishlist(r.Context(), logger.InstallationIDFromContext(r.Context()))
}

// HoldInstallation keeps the request's cart and wishlist from being evicted
// while the request runs.
func (h *Handler) HoldInstallation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := logger.InstallationIDFromContext(r.Context()); id != "" {
			release := h.registry.Acquire(id)
			defer release()
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	httputil.WriteError(w, r, err, h.logger)
}

// readJSON reads the raw request body for gjson-based normalization.
func readJSON(w http.ResponseWriter, r *http.Request) (gjson.Result, error) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, validator.MaxBodyBytes))
	if err != nil {
		return gjson.Result{}, apperrors.InvalidInput("invalid request body: " + err.Error())
	}
	if len(raw) == 0 {
		return gjson.Result{}, apperrors.InvalidInput("request body is required")
	}
	if !gjson.ValidBytes(raw) {
		return gjson.Result{}, apperrors.InvalidInput("invalid request body: malformed JSON")
	}
	return gjson.ParseBytes(raw), nil
}

// identity returns the {identity} path parameter. Backend IDs such as
// Shopify GIDs contain slashes and arrive percent-encoded.
func identity(r *http.Request) string {
	raw := chi.URLParam(r, "identity")
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}
