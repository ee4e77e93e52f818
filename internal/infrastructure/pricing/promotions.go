package pricing

import (
	"context"
	"strings"

	domain "github.com/lumashop/orderflow/internal/domain/pricing"
)

const (
	save10Cap        = 25.0
	hardwareDiscount = 0.05
)

// Promotions evaluates coupon codes and category promotions.
type Promotions struct{}

func NewPromotions() *Promotions { return &Promotions{} }

func (*Promotions) ApplyCoupon(ctx context.Context, items []domain.LineItem, code string) domain.PromotionResult {
	_ = ctx
	if code == "" {
		return domain.PromotionResult{}
	}

	subtotal := 0.0
	for _, it := range items {
		subtotal += it.Product.Price * float64(it.Quantity)
	}

	switch strings.ToLower(code) {
	case "save10":
		discount := subtotal * 0.10
		if discount > save10Cap {
			discount = save10Cap
		}
		return domain.PromotionResult{Discount: round2(discount), AppliedCode: code}
	case "freeship":
		return domain.PromotionResult{FreeShipping: true, AppliedCode: code}
	case "bogo":
		// One free unit of the cheapest line holding at least two.
		best := 0.0
		for _, it := range items {
			if it.Quantity < 2 {
				continue
			}
			if best == 0 || it.Product.Price < best {
				best = it.Product.Price
			}
		}
		if best > 0 {
			return domain.PromotionResult{Discount: best, AppliedCode: code}
		}
	}

	return domain.PromotionResult{Reason: "coupon_not_applied"}
}

func (*Promotions) CategoryDiscount(p *domain.Product) float64 {
	if p.Category == "hardware" {
		return round2(p.Price * hardwareDiscount)
	}
	return 0
}
