// Package event publishes storefront domain events to Kafka.
package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/pricing"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/logger"
)

// Kafka topics for storefront events.
const (
	TopicCartUpdated = "storefront.cart.updated"
	TopicCartCleared = "storefront.cart.cleared"
	TopicOrderPlaced = "storefront.order.placed"
)

const (
	AggregateTypeCart = "cart"
	SourceStorefront  = "storefront"
)

// Publisher is what the cart engine needs from an event sink.
type Publisher interface {
	PublishCartUpdated(ctx context.Context, cartID string, items []domain.LineItem, summary pricing.Summary) error
	PublishCartCleared(ctx context.Context, cartID string) error
	PublishOrderPlaced(ctx context.Context, cartID string, order domain.OrderResult, summary pricing.Summary) error
}

// CartUpdatedData is the payload for a cart.updated event.
type CartUpdatedData struct {
	CartID    string          `json:"cart_id"`
	Items     []ItemData      `json:"items"`
	ItemCount int             `json:"item_count"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Total     decimal.Decimal `json:"total"`
	Currency  string          `json:"currency"`
}

// ItemData is one line item within cart events.
type ItemData struct {
	ProductID string          `json:"product_id"`
	VariantID string          `json:"variant_id,omitempty"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Currency  string          `json:"currency"`
	Quantity  int             `json:"quantity"`
}

// CartClearedData is the payload for a cart.cleared event.
type CartClearedData struct {
	CartID string `json:"cart_id"`
}

// OrderPlacedData is the payload for an order.placed event.
type OrderPlacedData struct {
	CartID       string          `json:"cart_id"`
	OrderID      string          `json:"order_id"`
	OrderName    string          `json:"order_name"`
	ItemCount    int             `json:"item_count"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	Shipping     decimal.Decimal `json:"shipping"`
	Total        decimal.Decimal `json:"total"`
	Currency     string          `json:"currency"`
	FreeShipping bool            `json:"free_shipping"`
	DiscountCode string          `json:"discount_code,omitempty"`
}

// Producer publishes storefront events through a Kafka producer.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates an event producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{kafka: kafka, logger: logger}
}

// PublishCartUpdated publishes a cart.updated event.
func (p *Producer) PublishCartUpdated(ctx context.Context, cartID string, items []domain.LineItem, summary pricing.Summary) error {
	data := CartUpdatedData{
		CartID:    cartID,
		Items:     make([]ItemData, len(items)),
		ItemCount: summary.ItemCount,
		Subtotal:  summary.Subtotal,
		Total:     summary.Total,
		Currency:  summary.Currency,
	}
	for i, item := range items {
		data.Items[i] = ItemData{
			ProductID: item.Product.ID,
			VariantID: item.Product.VariantID,
			Name:      item.Product.Name,
			Price:     item.Product.Price,
			Currency:  item.Product.CurrencyCode,
			Quantity:  item.Quantity,
		}
	}

	if err := p.publish(ctx, TopicCartUpdated, "cart.updated", cartID, data); err != nil {
		return err
	}
	p.logger.DebugContext(ctx, "published cart.updated event",
		slog.String("cart_id", cartID),
		slog.Int("item_count", summary.ItemCount),
	)
	return nil
}

// PublishCartCleared publishes a cart.cleared event.
func (p *Producer) PublishCartCleared(ctx context.Context, cartID string) error {
	return p.publish(ctx, TopicCartCleared, "cart.cleared", cartID, CartClearedData{CartID: cartID})
}

// PublishOrderPlaced publishes an order.placed event.
func (p *Producer) PublishOrderPlaced(ctx context.Context, cartID string, order domain.OrderResult, summary pricing.Summary) error {
	data := OrderPlacedData{
		CartID:       cartID,
		OrderID:      order.OrderID,
		OrderName:    order.OrderName,
		ItemCount:    summary.ItemCount,
		Subtotal:     summary.Subtotal,
		Shipping:     summary.Shipping,
		Total:        summary.Total,
		Currency:     summary.Currency,
		FreeShipping: summary.FreeShipping,
	}
	if summary.Applicable != nil {
		data.DiscountCode = summary.Applicable.Discount.Code
	}

	if err := p.publish(ctx, TopicOrderPlaced, "order.placed", cartID, data); err != nil {
		return err
	}
	p.logger.InfoContext(ctx, "published order.placed event",
		slog.String("cart_id", cartID),
		slog.String("order_id", order.OrderID),
	)
	return nil
}

func (p *Producer) publish(ctx context.Context, topic, eventType, cartID string, data any) error {
	event, err := pkgkafka.NewEvent(eventType, cartID, AggregateTypeCart, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", eventType, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		event.WithCorrelationID(id)
	}
	if id := logger.InstallationIDFromContext(ctx); id != "" {
		event.WithInstallationID(id)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", eventType, err)
	}
	return nil
}

// NopPublisher drops every event. It is used when events are disabled.
type NopPublisher struct{}

func (NopPublisher) PublishCartUpdated(context.Context, string, []domain.LineItem, pricing.Summary) error {
	return nil
}

func (NopPublisher) PublishCartCleared(context.Context, string) error { return nil }

func (NopPublisher) PublishOrderPlaced(context.Context, string, domain.OrderResult, pricing.Summary) error {
	return nil
}
