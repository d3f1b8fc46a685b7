// Package commerce talks to the e-commerce backends that own the catalog,
// the shipping-discount rules and order creation. Backend-specific payloads
// are normalized into domain types at this boundary.
package commerce

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httpclient"
)

// Supported backend kinds.
const (
	KindShopify = "shopify"
	KindBagisto = "bagisto"
)

// Backend is a commerce API the cart depends on.
type Backend interface {
	// Name identifies the backend in logs and metrics.
	Name() string

	// GetShippingDiscounts returns the configured free-shipping promotions.
	GetShippingDiscounts(ctx context.Context) ([]domain.ShippingDiscount, error)

	// CreateOrder places an order. It is sent exactly once.
	CreateOrder(ctx context.Context, req *domain.OrderRequest) (*domain.OrderResult, error)
}

// Error is a failure reported inside a backend's GraphQL response.
type Error struct {
	Backend  string
	Op       string
	Messages []string
	// Rejected is set when the backend refused the input (user errors)
	// rather than failing to process it.
	Rejected bool
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Backend, e.Op, strings.Join(e.Messages, "; "))
}

func (e *Error) Unwrap() error {
	if e.Rejected {
		return apperrors.ErrUnprocessable
	}
	return apperrors.ErrBadGateway
}

// Options configures a backend.
type Options struct {
	Kind     string
	Endpoint string
	Token    string
	// Currency is assumed for amounts whose payload names no currency.
	Currency string
	// Query executes read requests and may retry.
	Query httpclient.Doer
	// Mutation executes order creation and must not retry.
	Mutation httpclient.Doer
	Logger   *slog.Logger
}

// New creates the backend selected by opts.Kind.
func New(opts Options) (Backend, error) {
	if opts.Mutation == nil {
		opts.Mutation = opts.Query
	}
	switch strings.ToLower(opts.Kind) {
	case KindShopify:
		return NewShopify(opts), nil
	case KindBagisto:
		return NewBagisto(opts), nil
	default:
		return nil, fmt.Errorf("unknown commerce backend %q", opts.Kind)
	}
}
