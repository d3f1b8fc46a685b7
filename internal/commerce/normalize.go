package commerce

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/money"
)

// first returns the first of paths present and non-null in r.
func first(r gjson.Result, paths ...string) gjson.Result {
	for _, p := range paths {
		if v := r.Get(p); v.Exists() && v.Type != gjson.Null {
			return v
		}
	}
	return gjson.Result{}
}

func firstString(r gjson.Result, paths ...string) string {
	return strings.TrimSpace(first(r, paths...).String())
}

// amount reads a monetary value that may be a number, a numeric string or a
// money object ({amount|value, currencyCode}). Unparseable values are zero.
func amount(v gjson.Result) decimal.Decimal {
	switch {
	case v.Type == gjson.Number:
		if d, err := decimal.NewFromString(v.Raw); err == nil {
			return d
		}
		return money.FromFloat(v.Float())
	case v.Type == gjson.String:
		s := strings.TrimSpace(strings.ReplaceAll(v.Str, ",", ""))
		if d, err := decimal.NewFromString(s); err == nil {
			return d
		}
	case v.IsObject():
		return amount(first(v, "amount", "value", "price"))
	}
	return decimal.Zero
}

// NormalizeDiscount maps a backend discount node into a ShippingDiscount.
// ok is false for nodes that are not free-shipping promotions.
func NormalizeDiscount(node gjson.Result, fallbackCurrency string) (d domain.ShippingDiscount, ok bool) {
	if node.Get("codeDiscount").Exists() {
		// Shopify wraps the discount body in codeDiscount.
		body := node.Get("codeDiscount")
		if t := body.Get("__typename").String(); t != "" && t != "DiscountCodeFreeShipping" {
			return d, false
		}
		node = mergeID(body, node.Get("id"))
	}

	kind := strings.ToUpper(firstString(node, "type", "discountType", "discount_type", "actionType", "action_type"))
	if kind != "" && kind != domain.DiscountTypeFreeShipping && kind != "FREE_SHIPPING_DISCOUNT" && kind != "FREESHIPPING" {
		return d, false
	}

	minimum := first(node,
		"minimumRequirement.greaterThanOrEqualToSubtotal",
		"minimumOrderAmount",
		"minimum_order_amount",
		"minSubtotal",
		"conditions.minimumSubtotal",
	)

	currency := firstString(node,
		"minimumRequirement.greaterThanOrEqualToSubtotal.currencyCode",
		"minimumOrderAmount.currencyCode",
		"currencyCode",
		"currency_code",
		"currency",
	)
	if currency == "" {
		currency = fallbackCurrency
	}

	d = domain.ShippingDiscount{
		ID:                 firstString(node, "id"),
		Title:              firstString(node, "title", "name"),
		Code:               firstString(node, "codes.nodes.0.code", "codes.edges.0.node.code", "code", "couponCode", "coupon_code"),
		MinimumOrderAmount: amount(minimum),
		CurrencyCode:       money.NormalizeCode(currency),
		Type:               domain.DiscountTypeFreeShipping,
	}
	if d.ID == "" {
		return d, false
	}
	return d, true
}

// mergeID returns body with id set when body lacks its own.
func mergeID(body, id gjson.Result) gjson.Result {
	if body.Get("id").Exists() || !id.Exists() {
		return body
	}
	raw := strings.TrimSpace(body.Raw)
	if raw == "{}" || raw == "" {
		return gjson.Parse(`{"id":` + id.Raw + `}`)
	}
	return gjson.Parse(`{"id":` + id.Raw + `,` + raw[1:])
}

// NormalizeDiscounts maps every node of list, skipping non-free-shipping ones.
func NormalizeDiscounts(list gjson.Result, fallbackCurrency string) []domain.ShippingDiscount {
	out := make([]domain.ShippingDiscount, 0)
	list.ForEach(func(_, node gjson.Result) bool {
		if n := node.Get("node"); n.Exists() {
			node = n
		}
		if d, ok := NormalizeDiscount(node, fallbackCurrency); ok {
			out = append(out, d)
		}
		return true
	})
	return out
}

// NormalizeOrder maps a created-order object into an OrderResult.
func NormalizeOrder(order gjson.Result) domain.OrderResult {
	id := firstString(order, "id", "orderId", "order_id")
	name := firstString(order, "name", "incrementId", "increment_id", "orderNumber", "order_number")
	if name == "" {
		name = id
	}
	return domain.OrderResult{OrderID: id, OrderName: name}
}

// NormalizeProduct maps a catalog product in any supported shape into a
// Product. Missing currencies default to fallbackCurrency.
func NormalizeProduct(p gjson.Result, fallbackCurrency string) domain.Product {
	price := first(p,
		"price",
		"priceRange.minVariantPrice",
		"selectedVariant.price",
		"variants.nodes.0.price",
		"variants.edges.0.node.price",
		"priceHtml.finalPrice",
		"price_html.final_price",
		"minPrice",
	)

	currency := firstString(p,
		"currencyCode",
		"currency_code",
		"price.currencyCode",
		"priceRange.minVariantPrice.currencyCode",
		"selectedVariant.price.currencyCode",
		"variants.nodes.0.price.currencyCode",
		"priceHtml.currencyCode",
		"currency",
	)
	if currency == "" {
		currency = fallbackCurrency
	}

	inStock := first(p, "inStock", "in_stock", "availableForSale", "isSaleable", "is_saleable", "selectedVariant.availableForSale")

	return domain.Product{
		ID:        firstString(p, "id", "productId", "product_id"),
		VariantID: firstString(p, "variantId", "variant_id", "selectedVariant.id", "variants.nodes.0.id", "variants.edges.0.node.id"),
		Name:      firstString(p, "name", "title"),
		Brand:     firstString(p, "brand", "vendor", "manufacturer"),
		Image: firstString(p,
			"image.url", "image.src", "featuredImage.url", "baseImage.url", "base_image.url",
			"images.0.url", "images.nodes.0.url", "image",
		),
		Price:        amount(price),
		CurrencyCode: money.NormalizeCode(currency),
		InStock:      inStock.Bool(),
	}
}

// NormalizeLineItems maps a list of {product, quantity} entries. Entries
// without a product are skipped; a missing quantity counts as one.
func NormalizeLineItems(list gjson.Result, fallbackCurrency string) []domain.LineItem {
	items := make([]domain.LineItem, 0)
	list.ForEach(func(_, entry gjson.Result) bool {
		p := first(entry, "product", "merchandise")
		if !p.IsObject() {
			return true
		}
		qty := 1
		if q := first(entry, "quantity", "qty"); q.Exists() {
			qty = int(q.Int())
		}
		items = append(items, domain.LineItem{
			Product:  NormalizeProduct(p, fallbackCurrency),
			Quantity: qty,
		})
		return true
	})
	return items
}

// NormalizeShippingRate maps a shipping option in any supported shape into
// a ShippingRate.
func NormalizeShippingRate(r gjson.Result, fallbackCurrency string) domain.ShippingRate {
	price := first(r, "price", "priceV2", "amount", "cost")
	currency := firstString(r,
		"currencyCode",
		"currency_code",
		"price.currencyCode",
		"priceV2.currencyCode",
		"currency",
	)
	if currency == "" {
		currency = fallbackCurrency
	}
	return domain.ShippingRate{
		ID:           firstString(r, "id", "handle", "code", "method"),
		Title:        firstString(r, "title", "name", "label", "method_title"),
		Price:        amount(price),
		CurrencyCode: money.NormalizeCode(currency),
	}
}
