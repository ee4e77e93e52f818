package order

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	dominv "github.com/lumashop/orderflow/internal/domain/inventory"
	domain "github.com/lumashop/orderflow/internal/domain/order"
	dompay "github.com/lumashop/orderflow/internal/domain/payment"
	dompricing "github.com/lumashop/orderflow/internal/domain/pricing"
	domrisk "github.com/lumashop/orderflow/internal/domain/risk"
	domship "github.com/lumashop/orderflow/internal/domain/shipping"
	"github.com/lumashop/orderflow/internal/observability"
)

// step is one named stage of the placement sequence. The order of the slice
// returned by attempt.steps is the business's causal order: reordering it is
// a reviewable change, not an accident of call sites.
type step struct {
	name string
	run  func(ctx context.Context) error
}

// compensation reverses one applied side effect. Pushed as effects are
// applied, popped in reverse exactly once on failure.
type compensation struct {
	name string
	undo func(ctx context.Context) error
}

type reservation struct {
	sku string
	qty int
}

// attempt is the mutable state of one workflow execution.
type attempt struct {
	uc  *PlaceOrderUseCase
	ord *domain.Order
	log observability.Logger

	credit       float64
	redeemed     int
	breakdown    *dompricing.Breakdown
	assessment   *domrisk.Assessment
	label        *domship.Label
	reservations []reservation
	buffered     bool

	compensations []compensation
	result        *domain.Result
}

func (a *attempt) steps() []step {
	return []step{
		{"stock_checked", a.checkStock},
		{"loyalty_applied", a.applyLoyalty},
		{"priced", a.price},
		{"risk_assessed", a.assessRisk},
		{"paid", a.chargePayment},
		{"reserved", a.reserveInventory},
		{"shipped", a.createLabel},
		{"points_accrued", a.accruePoints},
	}
}

func (a *attempt) push(name string, undo func(ctx context.Context) error) {
	a.compensations = append(a.compensations, compensation{name: name, undo: undo})
}

// compensate unwinds every applied effect in reverse order. Each entry runs
// once: the stack is cleared before returning, so a duplicate call cannot
// re-run a restore or release.
func (a *attempt) compensate(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	for i := len(a.compensations) - 1; i >= 0; i-- {
		c := a.compensations[i]
		if err := c.undo(ctx); err != nil {
			a.log.Error("compensation_failed",
				observability.F("order_id", a.ord.ID),
				observability.F("compensation", c.name),
				observability.F("error", err),
			)
		} else {
			a.log.Debug("compensation_applied",
				observability.F("order_id", a.ord.ID),
				observability.F("compensation", c.name),
			)
		}
		a.uc.compCounter.Add(1,
			observability.L("use_case", useCasePlaceOrder),
			observability.L("step", c.name),
		)
	}
	a.compensations = nil
}

// commit discards the compensation stack: from here on every effect is
// permanent and reservations may only be consumed, never released.
func (a *attempt) commit() {
	a.compensations = nil
}

func (a *attempt) fail(outcome domain.Outcome, reason string) {
	a.result = &domain.Result{
		Outcome:    outcome,
		Reason:     reason,
		Pricing:    a.breakdown,
		Assessment: a.assessment,
		Label:      a.label,
	}
}

func (a *attempt) checkStock(ctx context.Context) error {
	for _, sku := range sortedSKUs(a.ord.Lines) {
		if !a.uc.stock.HasEnough(ctx, sku, a.ord.Lines[sku]) {
			a.fail(domain.OutcomeInsufficientStock, dominv.ReasonOutOfStock)
			return nil
		}
	}
	return nil
}

func (a *attempt) applyLoyalty(ctx context.Context) error {
	if a.ord.RedeemPoints <= 0 {
		return nil
	}

	credit, err := a.uc.points.Redeem(ctx, a.ord.AccountID, a.ord.RedeemPoints)
	if err != nil {
		return fmt.Errorf("loyalty redemption: %w", err)
	}
	a.credit = credit
	a.redeemed = a.ord.RedeemPoints
	a.push("restore_points", func(ctx context.Context) error {
		return a.uc.points.Restore(ctx, a.ord.AccountID, a.redeemed)
	})
	return nil
}

func (a *attempt) price(ctx context.Context) error {
	breakdown, err := a.uc.pricer.Calculate(ctx, dompricing.QuoteRequest{
		Lines:          a.ord.Lines,
		Region:         a.ord.Region,
		ShippingMethod: a.ord.ShippingMethod,
		CouponCode:     a.ord.CouponCode,
		LoyaltyCredit:  a.credit,
	})
	if err != nil {
		return fmt.Errorf("pricing: calculate: %w", err)
	}
	a.breakdown = breakdown
	return nil
}

func (a *attempt) assessRisk(ctx context.Context) error {
	var assessment domrisk.Assessment
	err := a.uc.external(ctx, "risk", "score", a.uc.cfg.RiskTimeout, func(ctx context.Context) error {
		assessment = a.uc.assessor.Score(ctx, a.breakdown.Total, a.ord.Region)
		return nil
	})
	if err != nil {
		return fmt.Errorf("risk: score: %w", err)
	}
	a.assessment = &assessment

	switch {
	case assessment.Blocked():
		a.fail(domain.OutcomeFraudBlocked, assessment.Reason)
	case assessment.NeedsReview():
		a.fail(domain.OutcomeFraudReview, assessment.Reason)
	}
	return nil
}

func (a *attempt) chargePayment(ctx context.Context) error {
	total := a.breakdown.Total

	var lastErr error
	for i := 0; i < a.uc.cfg.PaymentAttempts; i++ {
		lastErr = a.uc.external(ctx, "payment", "charge", a.uc.cfg.PaymentTimeout, func(ctx context.Context) error {
			return a.uc.charger.Charge(ctx, a.ord.ID, total)
		})
		if lastErr == nil {
			break
		}

		var perr *dompay.Error
		if errors.As(lastErr, &perr) && !perr.Transient {
			// definitive decline: do not retry
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(a.uc.cfg.PaymentBackoff):
		}
	}
	if lastErr != nil {
		a.fail(domain.OutcomePaymentFailed, lastErr.Error())
		return nil
	}

	a.push("refund_payment", func(ctx context.Context) error {
		return a.uc.external(ctx, "payment", "refund", a.uc.cfg.PaymentTimeout, func(ctx context.Context) error {
			return a.uc.refunder.Refund(ctx, a.ord.ID, total)
		})
	})
	return nil
}

func (a *attempt) reserveInventory(ctx context.Context) error {
	a.buffered = a.ord.SafetyStock > 0

	for _, sku := range sortedSKUs(a.ord.Lines) {
		sku, qty := sku, a.ord.Lines[sku]

		if a.buffered {
			if err := a.uc.stock.ReserveWithBuffer(ctx, sku, qty, a.ord.SafetyStock); err != nil {
				if errors.Is(err, dominv.ErrInsufficientStockWithBuffer) {
					// payment already captured; the compensation stack
					// refunds it before this outcome is returned
					a.fail(domain.OutcomeInsufficientStock, dominv.ReasonBufferViolated)
					return nil
				}
				return fmt.Errorf("inventory: reserve %s: %w", sku, err)
			}
			a.reservations = append(a.reservations, reservation{sku: sku, qty: qty})
			a.push("release_"+sku, func(ctx context.Context) error {
				return a.uc.stock.Release(ctx, sku, qty)
			})
			continue
		}

		if err := a.uc.stock.Remove(ctx, sku, qty); err != nil {
			if errors.Is(err, dominv.ErrInsufficientStock) {
				// lost the race since the step-1 gate
				a.fail(domain.OutcomeInsufficientStock, dominv.ReasonOutOfStock)
				return nil
			}
			return fmt.Errorf("inventory: remove %s: %w", sku, err)
		}
		a.push("restock_"+sku, func(ctx context.Context) error {
			return a.uc.stock.AddItem(ctx, sku, qty)
		})
	}
	return nil
}

func (a *attempt) createLabel(ctx context.Context) error {
	if a.ord.Address == nil {
		return nil
	}

	attrs, err := a.shipmentAttributes(ctx)
	if err != nil {
		return err
	}

	var label *domship.Label
	err = a.uc.external(ctx, "shipping", "create_label", a.uc.cfg.ShippingTimeout, func(ctx context.Context) error {
		var cerr error
		label, cerr = a.uc.shipper.CreateLabel(ctx, a.ord.ID, *a.ord.Address, a.ord.ShippingMethod, attrs)
		return cerr
	})
	if err != nil {
		a.fail(domain.OutcomeShippingFailed, err.Error())
		return nil
	}
	a.label = label
	return nil
}

func (a *attempt) shipmentAttributes(ctx context.Context) (domship.Attributes, error) {
	var attrs domship.Attributes
	for _, sku := range sortedSKUs(a.ord.Lines) {
		p, err := a.uc.catalog.Get(ctx, sku)
		if err != nil {
			return attrs, fmt.Errorf("catalog: %s: %w", sku, err)
		}
		attrs.WeightKg += p.WeightKg * float64(a.ord.Lines[sku])
		attrs.Fragile = attrs.Fragile || p.IsFragile
		attrs.Hazardous = attrs.Hazardous || p.IsHazardous
	}
	return attrs, nil
}

// accruePoints is the commit point: reservations become permanent stock
// decrements, accrual lands, and the fulfilled result is assembled. Nothing
// past commit() may fail the attempt.
func (a *attempt) accruePoints(ctx context.Context) error {
	a.commit()
	ctx = context.WithoutCancel(ctx)

	for _, r := range a.reservations {
		if err := a.uc.stock.Consume(ctx, r.sku, r.qty); err != nil {
			// contract violation: the reservation was held by this attempt
			a.log.Error("reservation_consume_failed",
				observability.F("order_id", a.ord.ID),
				observability.F("sku", r.sku),
				observability.F("error", err),
			)
		}
	}

	awarded, err := a.uc.points.Accrue(ctx, a.ord.AccountID, a.breakdown.Total)
	if err != nil {
		a.log.Error("points_accrue_failed",
			observability.F("order_id", a.ord.ID),
			observability.F("error", err),
		)
	}

	a.result = &domain.Result{
		Outcome:       domain.OutcomeFulfilled,
		Pricing:       a.breakdown,
		Assessment:    a.assessment,
		Label:         a.label,
		PointsAwarded: awarded,
	}
	return nil
}

func sortedSKUs(lines map[string]int) []string {
	skus := make([]string, 0, len(lines))
	for sku := range lines {
		skus = append(skus, sku)
	}
	sort.Strings(skus)
	return skus
}

func lineSKUs(lines map[string]int) string {
	return strings.Join(sortedSKUs(lines), ",")
}
