package pricing

import (
	"context"
	"errors"
)

var ErrUnknownProduct = errors.New("pricing: unknown product")

// Product carries the catalog metadata pricing and shipping depend on.
type Product struct {
	SKU         string
	Name        string
	Price       float64
	WeightKg    float64
	Category    string
	IsFragile   bool
	IsHazardous bool
	IsTaxExempt bool
}

// LineItem pairs a resolved product with an ordered quantity.
type LineItem struct {
	Product  *Product
	Quantity int
}

// Breakdown is the price decomposition for one order or refund.
// Produced once, read-only downstream.
type Breakdown struct {
	Subtotal      float64 `json:"subtotal"`
	Discount      float64 `json:"discount"`
	Shipping      float64 `json:"shipping"`
	Tax           float64 `json:"tax"`
	Total         float64 `json:"total"`
	CouponApplied string  `json:"coupon_applied,omitempty"`
	Reason        string  `json:"reason,omitempty"`
}

// EffectiveSubtotal is the subtotal after discounts, floored at zero.
func (b Breakdown) EffectiveSubtotal() float64 {
	if b.Subtotal <= b.Discount {
		return 0
	}
	return b.Subtotal - b.Discount
}

// QuoteRequest is the input to the forward pricing path.
type QuoteRequest struct {
	Lines          map[string]int
	Region         string
	ShippingMethod string
	CouponCode     string
	LoyaltyCredit  float64
}

// RefundRequest is the input to the refund path. OriginalSubtotal and
// OriginalDiscount come from the breakdown the order was charged with, so the
// refund can honor the discounts that were actually applied.
type RefundRequest struct {
	Lines            map[string]int
	Region           string
	OriginalSubtotal float64
	OriginalDiscount float64
}

// Engine computes price breakdowns. Stateless; safe for concurrent use.
type Engine interface {
	Calculate(ctx context.Context, req QuoteRequest) (*Breakdown, error)
	CalculateRefund(ctx context.Context, req RefundRequest) (*Breakdown, error)
}

// Catalog resolves SKUs to products.
type Catalog interface {
	Get(ctx context.Context, sku string) (*Product, error)
}

// PromotionResult is the evaluation of a coupon against the order lines.
type PromotionResult struct {
	Discount     float64
	FreeShipping bool
	AppliedCode  string
	Reason       string
}

// Promotions evaluates coupon codes and category promotions.
type Promotions interface {
	ApplyCoupon(ctx context.Context, items []LineItem, code string) PromotionResult
	CategoryDiscount(p *Product) float64
}
