package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/utafrali/storefront/internal/cart"
	"github.com/utafrali/storefront/internal/checkout"
	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

var tracer = otel.Tracer("github.com/utafrali/storefront/internal/engine")

// CompleteCheckout places an order for the current cart. The cart must be
// non-empty with every item in stock, and info must pass validation; neither
// failure reaches the backend. On success the ordered quantities are removed
// from the cart; items added while the order was being placed stay. Backend
// failures are returned wrapped and leave the cart unchanged. Only one
// checkout per cart runs at a time; a second one fails with a conflict.
func (e *Engine) CompleteCheckout(ctx context.Context, info domain.ShippingInfo) (*domain.OrderResult, error) {
	ctx, span := tracer.Start(ctx, "engine.CompleteCheckout")
	defer span.End()
	span.SetAttributes(attribute.String("cart.id", e.id))

	e.mu.Lock()
	if e.checkingOut {
		e.mu.Unlock()
		checkoutsTotal.WithLabelValues("conflict").Inc()
		return nil, apperrors.Conflict("checkout already in progress")
	}
	e.checkingOut = true
	state := e.state
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.checkingOut = false
		e.mu.Unlock()
	}()

	if err := checkout.Validate(state.Items); err != nil {
		checkoutsTotal.WithLabelValues("rejected").Inc()
		e.logger.InfoContext(ctx, "checkout rejected", slog.String("error", err.Error()))
		return nil, err
	}
	if err := checkout.ValidateShippingInfo(info); err != nil {
		checkoutsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}
	if e.backend == nil {
		checkoutsTotal.WithLabelValues("failed").Inc()
		return nil, apperrors.ServiceUnavailable("no commerce backend configured")
	}

	snap := e.view(state)
	req := checkout.BuildOrderRequest(checkout.Input{
		IdempotencyKey: uuid.NewString(),
		Items:          snap.Items,
		Rate:           snap.ShippingRate,
		Info:           info,
		Summary:        snap.Summary,
	})
	span.SetAttributes(
		attribute.String("commerce.backend", e.backend.Name()),
		attribute.Int("order.lines", len(req.LineItems)),
		attribute.Bool("order.free_shipping", snap.Summary.FreeShipping),
	)

	start := time.Now()
	result, err := e.backend.CreateOrder(ctx, req)
	checkoutDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		checkoutsTotal.WithLabelValues("failed").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger.ErrorContext(ctx, "order creation failed",
			slog.String("backend", e.backend.Name()),
			slog.String("idempotency_key", req.IdempotencyKey),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("create order: %w", err)
	}

	e.mu.Lock()
	e.state = cart.Reduce(e.state, cart.Deduct{Items: state.Items})
	remaining := e.state
	e.save(ctx, remaining)
	e.mu.Unlock()

	checkoutsTotal.WithLabelValues("placed").Inc()
	mutationsTotal.WithLabelValues("deduct_ordered").Inc()
	span.SetAttributes(attribute.String("order.id", result.OrderID))
	e.logger.InfoContext(ctx, "order placed",
		slog.String("order_id", result.OrderID),
		slog.String("order_name", result.OrderName),
		slog.String("total", snap.Summary.Total.StringFixed(2)),
		slog.String("currency", snap.Summary.Currency),
	)

	if err := e.events.PublishOrderPlaced(ctx, e.id, *result, snap.Summary); err != nil {
		e.logger.ErrorContext(ctx, "failed to publish order event", slog.String("error", err.Error()))
	}
	if len(remaining.Items) == 0 {
		err = e.events.PublishCartCleared(ctx, e.id)
	} else {
		left := e.view(remaining)
		err = e.events.PublishCartUpdated(ctx, e.id, left.Items, left.Summary)
	}
	if err != nil {
		e.logger.ErrorContext(ctx, "failed to publish cart event", slog.String("error", err.Error()))
	}

	return result, nil
}
