package pricing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	domain "github.com/lumashop/orderflow/internal/domain/pricing"
)

func newEngine() *Engine {
	return NewEngine(NewCatalog(nil), NewPromotions())
}

func TestEngine_Calculate_NoDiscounts(t *testing.T) {
	breakdown, err := newEngine().Calculate(context.Background(), domain.QuoteRequest{
		Lines:          map[string]int{"widget-basic": 1},
		Region:         "US",
		ShippingMethod: "standard",
	})
	require.NoError(t, err)

	require.InDelta(t, 25.00, breakdown.Subtotal, 1e-9)
	require.InDelta(t, 0.0, breakdown.Discount, 1e-9)
	require.InDelta(t, 5.00, breakdown.Shipping, 1e-9)
	require.InDelta(t, 2.10, breakdown.Tax, 1e-9) // 7% on goods and shipping
	require.InDelta(t, 32.10, breakdown.Total, 1e-9)
}

func TestEngine_Calculate_BulkTiers(t *testing.T) {
	cases := []struct {
		name     string
		qty      int
		discount float64
		shipping float64
		total    float64
	}{
		{"five units take 7 percent", 5, 8.75, 5.00, 129.74},
		{"ten units take 12 percent and surcharge", 10, 30.00, 8.00, 243.96},
		{"twenty units take 15 percent and surcharge", 20, 75.00, 11.00, 466.52},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			breakdown, err := newEngine().Calculate(context.Background(), domain.QuoteRequest{
				Lines:          map[string]int{"widget-basic": tc.qty},
				Region:         "US",
				ShippingMethod: "standard",
			})
			require.NoError(t, err)
			require.InDelta(t, tc.discount, breakdown.Discount, 1e-9)
			require.InDelta(t, tc.shipping, breakdown.Shipping, 1e-9)
			require.InDelta(t, tc.total, breakdown.Total, 1e-9)
		})
	}
}

func TestEngine_Calculate_Save10CapsAt25(t *testing.T) {
	breakdown, err := newEngine().Calculate(context.Background(), domain.QuoteRequest{
		Lines:          map[string]int{"widget-pro": 5},
		Region:         "US",
		ShippingMethod: "standard",
		CouponCode:     "save10",
	})
	require.NoError(t, err)

	// bulk 7% of 300 plus the coupon capped at 25
	require.InDelta(t, 46.00, breakdown.Discount, 1e-9)
	require.Equal(t, "save10", breakdown.CouponApplied)
}

func TestEngine_Calculate_FreeShipWaivesShippingAndSurcharge(t *testing.T) {
	breakdown, err := newEngine().Calculate(context.Background(), domain.QuoteRequest{
		Lines:          map[string]int{"widget-basic": 10},
		Region:         "US",
		ShippingMethod: "standard",
		CouponCode:     "freeship",
	})
	require.NoError(t, err)

	require.InDelta(t, 0.0, breakdown.Shipping, 1e-9)
	require.Equal(t, "freeship", breakdown.CouponApplied)
}

func TestEngine_Calculate_BogoDiscountsCheapestEligibleLine(t *testing.T) {
	breakdown, err := newEngine().Calculate(context.Background(), domain.QuoteRequest{
		Lines:          map[string]int{"widget-basic": 2, "widget-pro": 2},
		Region:         "US",
		ShippingMethod: "standard",
		CouponCode:     "bogo",
	})
	require.NoError(t, err)
	require.InDelta(t, 25.00, breakdown.Discount, 1e-9)
	require.Equal(t, "bogo", breakdown.CouponApplied)

	// no line reaches two units: coupon silently not applied
	breakdown, err = newEngine().Calculate(context.Background(), domain.QuoteRequest{
		Lines:          map[string]int{"widget-basic": 1},
		Region:         "US",
		ShippingMethod: "standard",
		CouponCode:     "bogo",
	})
	require.NoError(t, err)
	require.InDelta(t, 0.0, breakdown.Discount, 1e-9)
	require.Empty(t, breakdown.CouponApplied)
	require.Equal(t, "coupon_not_applied", breakdown.Reason)
}

func TestEngine_Calculate_HardwareCategoryDiscountAndRate(t *testing.T) {
	breakdown, err := newEngine().Calculate(context.Background(), domain.QuoteRequest{
		Lines:          map[string]int{"bolt-pack": 2},
		Region:         "US",
		ShippingMethod: "standard",
	})
	require.NoError(t, err)

	require.InDelta(t, 1.50, breakdown.Discount, 1e-9) // 5% of 15.00 per unit
	// hardware taxed at 8%, shipping at the default 7%
	require.InDelta(t, 2.63, breakdown.Tax, 1e-9)
	require.InDelta(t, 36.13, breakdown.Total, 1e-9)
}

func TestEngine_Calculate_RegionalRates(t *testing.T) {
	req := domain.QuoteRequest{
		Lines:          map[string]int{"widget-basic": 1},
		ShippingMethod: "standard",
	}

	req.Region = "EU"
	breakdown, err := newEngine().Calculate(context.Background(), req)
	require.NoError(t, err)
	require.InDelta(t, 6.00, breakdown.Tax, 1e-9)

	req.Region = "UK"
	breakdown, err = newEngine().Calculate(context.Background(), req)
	require.NoError(t, err)
	require.InDelta(t, 5.10, breakdown.Tax, 1e-9)

	req.Region = "CA"
	breakdown, err = newEngine().Calculate(context.Background(), req)
	require.NoError(t, err)
	require.InDelta(t, 0.0, breakdown.Tax, 1e-9)
}

func TestEngine_Calculate_TaxExemptProduct(t *testing.T) {
	breakdown, err := newEngine().Calculate(context.Background(), domain.QuoteRequest{
		Lines:          map[string]int{"gift-card": 1},
		Region:         "US",
		ShippingMethod: "standard",
	})
	require.NoError(t, err)

	// only the shipping leg is taxed
	require.InDelta(t, 0.35, breakdown.Tax, 1e-9)
	require.InDelta(t, 55.35, breakdown.Total, 1e-9)
}

func TestEngine_Calculate_LoyaltyCreditClampsAtZero(t *testing.T) {
	breakdown, err := newEngine().Calculate(context.Background(), domain.QuoteRequest{
		Lines:          map[string]int{"widget-basic": 1},
		Region:         "US",
		ShippingMethod: "standard",
		LoyaltyCredit:  100.0,
	})
	require.NoError(t, err)
	require.InDelta(t, 0.0, breakdown.Total, 1e-9)
}

func TestEngine_Calculate_RejectsBadInput(t *testing.T) {
	_, err := newEngine().Calculate(context.Background(), domain.QuoteRequest{Region: "US"})
	require.ErrorIs(t, err, ErrNoItems)

	_, err = newEngine().Calculate(context.Background(), domain.QuoteRequest{
		Lines:  map[string]int{"no-such-sku": 1},
		Region: "US",
	})
	require.ErrorIs(t, err, domain.ErrUnknownProduct)

	_, err = newEngine().Calculate(context.Background(), domain.QuoteRequest{
		Lines:  map[string]int{"widget-basic": 0},
		Region: "US",
	})
	require.Error(t, err)
}

func TestEngine_CalculateRefund_ProratesOriginalDiscount(t *testing.T) {
	breakdown, err := newEngine().CalculateRefund(context.Background(), domain.RefundRequest{
		Lines:            map[string]int{"widget-basic": 4},
		Region:           "US",
		OriginalSubtotal: 250.00,
		OriginalDiscount: 30.00,
	})
	require.NoError(t, err)

	require.InDelta(t, 100.00, breakdown.Subtotal, 1e-9)
	require.InDelta(t, 12.00, breakdown.Discount, 1e-9) // 30 * 100/250
	require.InDelta(t, 6.16, breakdown.Tax, 1e-9)
	require.InDelta(t, 94.16, breakdown.Total, 1e-9)
	require.InDelta(t, 0.0, breakdown.Shipping, 1e-9) // shipping is never refunded
}

func TestEngine_CalculateRefund_TaxExempt(t *testing.T) {
	breakdown, err := newEngine().CalculateRefund(context.Background(), domain.RefundRequest{
		Lines:  map[string]int{"gift-card": 1},
		Region: "US",
	})
	require.NoError(t, err)
	require.InDelta(t, 0.0, breakdown.Tax, 1e-9)
	require.InDelta(t, 50.00, breakdown.Total, 1e-9)
}
