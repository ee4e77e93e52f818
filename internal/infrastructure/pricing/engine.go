package pricing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	domain "github.com/lumashop/orderflow/internal/domain/pricing"
)

var ErrNoItems = errors.New("pricing: at least one item is required")

// Shipping base cost per method; unknown methods ship free and are rejected
// later by the dispatcher.
var shippingByMethod = map[string]float64{
	"standard": 5.00,
	"express":  12.00,
}

// Engine prices orders and refunds from catalog, promotion, and tax rules.
type Engine struct {
	catalog    domain.Catalog
	promotions domain.Promotions
}

func NewEngine(catalog domain.Catalog, promotions domain.Promotions) *Engine {
	return &Engine{catalog: catalog, promotions: promotions}
}

type pricedLine struct {
	product  *domain.Product
	quantity int
	subtotal float64
	discount float64
}

func (e *Engine) resolve(ctx context.Context, lines map[string]int) ([]pricedLine, error) {
	if len(lines) == 0 {
		return nil, ErrNoItems
	}

	skus := make([]string, 0, len(lines))
	for sku := range lines {
		skus = append(skus, sku)
	}
	sort.Strings(skus)

	out := make([]pricedLine, 0, len(skus))
	for _, sku := range skus {
		qty := lines[sku]
		if qty <= 0 {
			return nil, fmt.Errorf("pricing: quantity for %s must be positive", sku)
		}
		p, err := e.catalog.Get(ctx, sku)
		if err != nil {
			return nil, fmt.Errorf("pricing: %s: %w", sku, err)
		}
		out = append(out, pricedLine{
			product:  p,
			quantity: qty,
			subtotal: p.Price * float64(qty),
		})
	}
	return out, nil
}

// bulkDiscount applies the quantity tier to one line: 5+ units 7%,
// 10+ units 12%, 20+ units 15%.
func bulkDiscount(line pricedLine) float64 {
	switch {
	case line.quantity >= 20:
		return round2(line.subtotal * 0.15)
	case line.quantity >= 10:
		return round2(line.subtotal * 0.12)
	case line.quantity >= 5:
		return round2(line.subtotal * 0.07)
	}
	return 0
}

// bulkShippingSurcharge grows with total units: $3 at 10+, $6 at 20+.
func bulkShippingSurcharge(units int) float64 {
	switch {
	case units >= 20:
		return 6.0
	case units >= 10:
		return 3.0
	}
	return 0
}

func (e *Engine) Calculate(ctx context.Context, req domain.QuoteRequest) (*domain.Breakdown, error) {
	lines, err := e.resolve(ctx, req.Lines)
	if err != nil {
		return nil, err
	}

	items := make([]domain.LineItem, 0, len(lines))
	subtotal := 0.0
	units := 0
	for i := range lines {
		items = append(items, domain.LineItem{Product: lines[i].product, Quantity: lines[i].quantity})
		subtotal += lines[i].subtotal
		units += lines[i].quantity
	}

	promo := e.promotions.ApplyCoupon(ctx, items, req.CouponCode)

	discount := promo.Discount
	for i := range lines {
		lines[i].discount = bulkDiscount(lines[i]) +
			e.promotions.CategoryDiscount(lines[i].product)*float64(lines[i].quantity)
		discount += lines[i].discount
	}
	// Prorate the coupon across lines by subtotal share so taxation sees it.
	if promo.Discount > 0 && subtotal > 0 {
		for i := range lines {
			lines[i].discount += promo.Discount * lines[i].subtotal / subtotal
		}
	}

	shipping := 0.0
	if !promo.FreeShipping {
		shipping = shippingByMethod[req.ShippingMethod] + bulkShippingSurcharge(units)
	}

	tax := 0.0
	for _, line := range lines {
		if line.product.IsTaxExempt {
			continue
		}
		taxable := line.subtotal - line.discount
		if taxable < 0 {
			taxable = 0
		}
		tax += taxable * taxRate(req.Region, line.product.Category)
	}
	tax += shipping * taxRate(req.Region, "default")

	effective := subtotal - discount
	if effective < 0 {
		effective = 0
	}
	total := effective + shipping + round2(tax) - req.LoyaltyCredit
	if total < 0 {
		total = 0
	}

	return &domain.Breakdown{
		Subtotal:      round2(subtotal),
		Discount:      round2(discount),
		Shipping:      shipping,
		Tax:           round2(tax),
		Total:         round2(total),
		CouponApplied: promo.AppliedCode,
		Reason:        promo.Reason,
	}, nil
}

// CalculateRefund prices a partial return: the original discount is prorated
// over the returned subtotal, shipping is not refunded, and tax-exempt
// products carry no tax back either.
func (e *Engine) CalculateRefund(ctx context.Context, req domain.RefundRequest) (*domain.Breakdown, error) {
	lines, err := e.resolve(ctx, req.Lines)
	if err != nil {
		return nil, err
	}

	subtotal := 0.0
	for _, line := range lines {
		subtotal += line.subtotal
	}

	discount := 0.0
	if req.OriginalSubtotal > 0 && req.OriginalDiscount > 0 {
		discount = req.OriginalDiscount * subtotal / req.OriginalSubtotal
	}

	tax := 0.0
	for _, line := range lines {
		if line.product.IsTaxExempt {
			continue
		}
		taxable := line.subtotal
		if subtotal > 0 {
			taxable -= discount * line.subtotal / subtotal
		}
		if taxable < 0 {
			taxable = 0
		}
		tax += taxable * taxRate(req.Region, line.product.Category)
	}

	total := subtotal - discount + round2(tax)
	if total < 0 {
		total = 0
	}

	return &domain.Breakdown{
		Subtotal: round2(subtotal),
		Discount: round2(discount),
		Tax:      round2(tax),
		Total:    round2(total),
	}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
