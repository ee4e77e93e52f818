package returns

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	domaudit "github.com/lumashop/orderflow/internal/domain/audit"
	dominv "github.com/lumashop/orderflow/internal/domain/inventory"
	domloyalty "github.com/lumashop/orderflow/internal/domain/loyalty"
	domorder "github.com/lumashop/orderflow/internal/domain/order"
	domoutbox "github.com/lumashop/orderflow/internal/domain/outbox"
	dompay "github.com/lumashop/orderflow/internal/domain/payment"
	dompricing "github.com/lumashop/orderflow/internal/domain/pricing"
	domain "github.com/lumashop/orderflow/internal/domain/returns"
	domship "github.com/lumashop/orderflow/internal/domain/shipping"
	"github.com/lumashop/orderflow/internal/observability"
	"github.com/lumashop/orderflow/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	returnService        = "return-workflow"
	useCaseProcessReturn = "return.process"
)

var (
	ErrNotFound     = domorder.ErrNotFound
	ErrNotFulfilled = errors.New("returns: original order was not fulfilled")
	ErrValidation   = errors.New("returns: invalid request")
)

// IDGenerator issues return identifiers.
type IDGenerator interface {
	NewID() string
}

// Config bounds the external collaborator calls of the return flow.
type Config struct {
	RefundTimeout   time.Duration
	ShippingTimeout time.Duration
	PublishTimeout  time.Duration
	RefundAttempts  int
	RefundBackoff   time.Duration
}

func (c Config) withDefaults() Config {
	if c.RefundTimeout <= 0 {
		c.RefundTimeout = 5 * time.Second
	}
	if c.ShippingTimeout <= 0 {
		c.ShippingTimeout = 5 * time.Second
	}
	if c.PublishTimeout <= 0 {
		c.PublishTimeout = 300 * time.Millisecond
	}
	if c.RefundAttempts <= 0 {
		c.RefundAttempts = 3
	}
	if c.RefundBackoff <= 0 {
		c.RefundBackoff = 100 * time.Millisecond
	}
	return c
}

// Deps wires the collaborators required by the return flow.
type Deps struct {
	Orders    domorder.Store
	Inventory dominv.Ledger
	Loyalty   domloyalty.Ledger
	Pricer    dompricing.Engine
	Catalog   dompricing.Catalog
	Refunder  dompay.Refunder
	Shipper   domship.Dispatcher
	Auditor   domaudit.Sink
	Publisher domoutbox.Publisher
	IDs       IDGenerator
}

// ProcessReturnUseCase runs the return flow: refund, restock, clawback,
// return label, audit — in that order. Effects applied before a label
// failure are deliberately not rolled back: the goods genuinely came back.
type ProcessReturnUseCase struct {
	orders    domorder.Store
	stock     dominv.Ledger
	points    domloyalty.Ledger
	pricer    dompricing.Engine
	catalog   dompricing.Catalog
	refunder  dompay.Refunder
	shipper   domship.Dispatcher
	auditor   domaudit.Sink
	publisher domoutbox.Publisher
	ids       IDGenerator
	cfg       Config

	tel observability.Observability
	log observability.Logger

	reqCounter   observability.Counter
	durHistogram observability.Histogram
	extCounter   observability.Counter
	extHistogram observability.Histogram
}

// NewProcessReturnUseCase wires the dependencies required to execute the flow.
func NewProcessReturnUseCase(deps Deps, cfg Config, tel observability.Observability) *ProcessReturnUseCase {
	if tel == nil {
		tel = observability.Nop()
	}
	metrics := tel.Metrics()

	return &ProcessReturnUseCase{
		orders:    deps.Orders,
		stock:     deps.Inventory,
		points:    deps.Loyalty,
		pricer:    deps.Pricer,
		catalog:   deps.Catalog,
		refunder:  deps.Refunder,
		shipper:   deps.Shipper,
		auditor:   deps.Auditor,
		publisher: deps.Publisher,
		ids:       deps.IDs,
		cfg:       cfg.withDefaults(),

		tel: tel,
		log: tel.Logger().With(observability.F("service", returnService)),

		reqCounter:   metrics.Counter(observability.MUsecaseRequests),
		durHistogram: metrics.Histogram(observability.MUsecaseDuration),
		extCounter:   metrics.Counter(observability.MExternalRequests),
		extHistogram: metrics.Histogram(observability.MExternalRequestDuration),
	}
}

// ProcessReturnInput asks for a refund of part of a fulfilled order.
type ProcessReturnInput struct {
	OrderID string
	Lines   map[string]int
	Reason  string
	Address *domship.Address
	Method  string
}

// Execute runs the return flow and returns the terminal result. Business
// failures come back as a result with the matching outcome and a nil error.
func (uc *ProcessReturnUseCase) Execute(ctx context.Context, cmd ProcessReturnInput) (_ *domain.Result, err error) {
	logger := logctx.FromOr(ctx, uc.log).With(observability.F("use_case", useCaseProcessReturn))

	ctx, span := uc.tel.Tracer().Start(ctx, "UC.ProcessReturn",
		attribute.String("use_case", useCaseProcessReturn),
		attribute.String("return.order_id", cmd.OrderID),
	)
	start := time.Now()
	outcome, statusText := "success", "OK"

	defer func() {
		lat := time.Since(start).Seconds()

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, statusText)
		} else {
			span.SetStatus(codes.Ok, statusText)
		}
		span.End()

		uc.reqCounter.Add(1,
			observability.L("use_case", useCaseProcessReturn),
			observability.L("outcome", outcome),
		)
		uc.durHistogram.Observe(lat,
			observability.L("use_case", useCaseProcessReturn),
		)

		fields := []observability.Field{
			observability.F("outcome", outcome),
			observability.F("status", statusText),
			observability.F("latency_seconds", lat),
		}
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			fields = append(fields,
				observability.F("trace_id", sc.TraceID().String()),
				observability.F("span_id", sc.SpanID().String()),
			)
		}
		if err != nil {
			fields = append(fields, observability.F("error", err.Error()))
		}
		logger.Info("use_case_done", fields...)
	}()

	if cmd.OrderID == "" {
		outcome, statusText = "error", "ORDER_ID_REQUIRED"
		return nil, newValidation("original order id is required")
	}
	if len(cmd.Lines) == 0 {
		outcome, statusText = "error", "LINES_REQUIRED"
		return nil, newValidation("at least one line is required")
	}

	original, lookupErr := uc.orders.Get(ctx, cmd.OrderID)
	if lookupErr != nil {
		outcome, statusText = "error", "ORDER_LOOKUP_FAILED"
		if errors.Is(lookupErr, domorder.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("returns: lookup order: %w", lookupErr)
	}
	if !original.Result.Fulfilled() {
		outcome, statusText = "error", "ORDER_NOT_FULFILLED"
		return nil, ErrNotFulfilled
	}

	returnID := uc.ids.NewID()
	span.SetAttributes(attribute.String("return.id", returnID))

	// step 1: returned quantities never exceed what was purchased
	for _, sku := range sortedSKUs(cmd.Lines) {
		qty := cmd.Lines[sku]
		purchased, bought := original.Lines[sku]
		if qty <= 0 || !bought || qty > purchased {
			result := &domain.Result{Outcome: domain.OutcomeInvalidQuantity, Reason: domain.ReasonInvalidQuantity}
			uc.audit(ctx, domaudit.KindReturnRejected, original, returnID,
				fmt.Sprintf("requested %d of %s, purchased %d", qty, sku, purchased))
			outcome, statusText = string(result.Outcome), result.Reason
			return result, nil
		}
	}

	// step 2: refund breakdown honoring the original discounts
	var originalSubtotal, originalDiscount float64
	if p := original.Result.Pricing; p != nil {
		originalSubtotal = p.Subtotal
		originalDiscount = p.Discount
	}
	refund, perr := uc.pricer.CalculateRefund(ctx, dompricing.RefundRequest{
		Lines:            cmd.Lines,
		Region:           original.Region,
		OriginalSubtotal: originalSubtotal,
		OriginalDiscount: originalDiscount,
	})
	if perr != nil {
		outcome, statusText = "error", "REFUND_PRICING_FAILED"
		return nil, fmt.Errorf("returns: refund pricing: %w", perr)
	}

	// step 3: refund through the payment network; nothing mutated on failure
	if rerr := uc.refund(ctx, cmd.OrderID, refund.Total); rerr != nil {
		result := &domain.Result{Outcome: domain.OutcomeRefundFailed, Reason: rerr.Error(), Refund: refund}
		uc.audit(ctx, domaudit.KindRefundFailed, original, returnID, rerr.Error())
		outcome, statusText = string(result.Outcome), "REFUND_FAILED"
		return result, nil
	}

	// step 4: restock
	for _, sku := range sortedSKUs(cmd.Lines) {
		if aerr := uc.stock.AddItem(ctx, sku, cmd.Lines[sku]); aerr != nil {
			uc.log.Error("restock_failed",
				observability.F("return_id", returnID),
				observability.F("sku", sku),
				observability.F("error", aerr),
			)
		}
	}

	// step 5: claw back the points earned on the returned portion
	clawed := int(math.Floor(refund.Total))
	shortfall := 0
	if clawed > 0 {
		var cerr error
		shortfall, cerr = uc.points.Clawback(ctx, original.AccountID, clawed)
		if cerr != nil {
			uc.log.Error("clawback_failed",
				observability.F("return_id", returnID),
				observability.F("error", cerr),
			)
		} else if shortfall > 0 {
			uc.log.Warn("clawback_shortfall",
				observability.F("return_id", returnID),
				observability.F("account_id", original.AccountID),
				observability.F("shortfall", shortfall),
			)
		}
	}

	// step 6: return label. Restock and clawback stand on failure: the
	// physical return happened, the label problem is reported separately.
	label, serr := uc.createLabel(ctx, returnID, cmd)
	if serr != nil {
		result := &domain.Result{
			Outcome:           domain.OutcomeShippingFailed,
			Reason:            serr.Error(),
			Refund:            refund,
			PointsClawedBack:  clawed - shortfall,
			ClawbackShortfall: shortfall,
		}
		uc.audit(ctx, domaudit.KindShippingFailed, original, returnID, serr.Error())
		outcome, statusText = string(result.Outcome), "LABEL_FAILED"
		return result, nil
	}

	result := &domain.Result{
		Outcome:           domain.OutcomeCompleted,
		Refund:            refund,
		Label:             label,
		PointsClawedBack:  clawed - shortfall,
		ClawbackShortfall: shortfall,
	}

	uc.audit(ctx, domaudit.KindReturnCompleted, original, returnID,
		fmt.Sprintf("refunded=%.2f, points_clawed_back=%d", refund.Total, result.PointsClawedBack))
	uc.publish(ctx, domain.NewReturnCompletedEvent(returnID, original.ID, original.AccountID, refund.Total))

	return result, nil
}

func (uc *ProcessReturnUseCase) refund(ctx context.Context, orderID string, amount float64) error {
	var lastErr error
	for i := 0; i < uc.cfg.RefundAttempts; i++ {
		lastErr = uc.external(ctx, "payment", "refund", uc.cfg.RefundTimeout, func(ctx context.Context) error {
			return uc.refunder.Refund(ctx, orderID, amount)
		})
		if lastErr == nil {
			return nil
		}

		var perr *dompay.Error
		if errors.As(lastErr, &perr) && !perr.Transient {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(uc.cfg.RefundBackoff):
		}
	}
	return lastErr
}

func (uc *ProcessReturnUseCase) createLabel(ctx context.Context, returnID string, cmd ProcessReturnInput) (*domship.Label, error) {
	if cmd.Address == nil {
		return nil, &domship.MissingFieldError{Field: "name"}
	}

	method := cmd.Method
	if method == "" {
		method = domship.MethodStandard
	}

	var attrs domship.Attributes
	for _, sku := range sortedSKUs(cmd.Lines) {
		p, err := uc.catalog.Get(ctx, sku)
		if err != nil {
			return nil, fmt.Errorf("catalog: %s: %w", sku, err)
		}
		attrs.WeightKg += p.WeightKg * float64(cmd.Lines[sku])
		attrs.Fragile = attrs.Fragile || p.IsFragile
		attrs.Hazardous = attrs.Hazardous || p.IsHazardous
	}

	var label *domship.Label
	err := uc.external(ctx, "shipping", "create_label", uc.cfg.ShippingTimeout, func(ctx context.Context) error {
		var cerr error
		label, cerr = uc.shipper.CreateLabel(ctx, returnID, *cmd.Address, method, attrs)
		return cerr
	})
	if err != nil {
		return nil, err
	}
	return label, nil
}

func (uc *ProcessReturnUseCase) audit(ctx context.Context, kind string, original *domorder.Order, returnID, details string) {
	uc.auditor.Log(context.WithoutCancel(ctx), domaudit.Entry{
		Kind:      kind,
		OrderID:   original.ID,
		AccountID: original.AccountID,
		SKU:       returnID,
		Details:   details,
	})
}

func (uc *ProcessReturnUseCase) publish(ctx context.Context, event domoutbox.Event) {
	if uc.publisher == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), uc.cfg.PublishTimeout)
	defer cancel()

	start := time.Now()
	pubOutcome := "success"
	if err := uc.publisher.Publish(pubCtx, event); err != nil {
		pubOutcome = "error"
		uc.log.Warn("event_publish_failed",
			observability.F("event", event.EventName()),
			observability.F("error", err),
		)
	}
	uc.extCounter.Add(1,
		observability.L("peer", "outbox"),
		observability.L("endpoint", event.EventName()),
		observability.L("outcome", pubOutcome),
	)
	uc.extHistogram.Observe(time.Since(start).Seconds(),
		observability.L("peer", "outbox"),
		observability.L("endpoint", event.EventName()),
	)
}

func (uc *ProcessReturnUseCase) external(ctx context.Context, peer, endpoint string, timeout time.Duration, fn func(ctx context.Context) error) error {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	err := fn(cctx)

	callOutcome := "success"
	if err != nil {
		callOutcome = "error"
	}
	uc.extCounter.Add(1,
		observability.L("peer", peer),
		observability.L("endpoint", endpoint),
		observability.L("outcome", callOutcome),
	)
	uc.extHistogram.Observe(time.Since(start).Seconds(),
		observability.L("peer", peer),
		observability.L("endpoint", endpoint),
	)
	return err
}

func sortedSKUs(lines map[string]int) []string {
	skus := make([]string, 0, len(lines))
	for sku := range lines {
		skus = append(skus, sku)
	}
	sort.Strings(skus)
	return skus
}

func newValidation(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}
