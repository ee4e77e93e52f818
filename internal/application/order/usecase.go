package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	domaudit "github.com/lumashop/orderflow/internal/domain/audit"
	dominv "github.com/lumashop/orderflow/internal/domain/inventory"
	domloyalty "github.com/lumashop/orderflow/internal/domain/loyalty"
	domain "github.com/lumashop/orderflow/internal/domain/order"
	domoutbox "github.com/lumashop/orderflow/internal/domain/outbox"
	dompay "github.com/lumashop/orderflow/internal/domain/payment"
	dompricing "github.com/lumashop/orderflow/internal/domain/pricing"
	domrisk "github.com/lumashop/orderflow/internal/domain/risk"
	domship "github.com/lumashop/orderflow/internal/domain/shipping"
	"github.com/lumashop/orderflow/internal/observability"
	"github.com/lumashop/orderflow/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	orderService      = "order-workflow"
	useCasePlaceOrder = "order.place"
	spanPrefix        = "UC."
)

var (
	ErrConflict   = domain.ErrConflict
	ErrNotFound   = domain.ErrNotFound
	ErrRepository = errors.New("order: repository failure")
	ErrValidation = errors.New("order: invalid request")
)

// PlaceOrderUseCase runs the order-placement workflow: a fixed sequence of
// steps against the ledgers and external collaborators, with a compensation
// stack that unwinds every applied side effect when a later step fails.
type PlaceOrderUseCase struct {
	orders    domain.Store
	stock     dominv.Ledger
	points    domloyalty.Ledger
	pricer    dompricing.Engine
	catalog   dompricing.Catalog
	assessor  domrisk.Assessor
	charger   dompay.Charger
	refunder  dompay.Refunder
	shipper   domship.Dispatcher
	auditor   domaudit.Sink
	publisher domoutbox.Publisher
	ids       IDGenerator
	cfg       Config

	tel observability.Observability
	log observability.Logger

	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}
	extCounter   observability.Counter   // external_requests_total{peer,endpoint,outcome}
	extHistogram observability.Histogram // external_request_duration_seconds{peer,endpoint}
	compCounter  observability.Counter   // workflow_compensations_total{use_case,step}
}

// Deps wires the collaborators required by the workflow.
type Deps struct {
	Orders    domain.Store
	Inventory dominv.Ledger
	Loyalty   domloyalty.Ledger
	Pricer    dompricing.Engine
	Catalog   dompricing.Catalog
	Assessor  domrisk.Assessor
	Charger   dompay.Charger
	Refunder  dompay.Refunder
	Shipper   domship.Dispatcher
	Auditor   domaudit.Sink
	Publisher domoutbox.Publisher
	IDs       IDGenerator
}

// NewPlaceOrderUseCase wires the dependencies required to execute the workflow.
func NewPlaceOrderUseCase(deps Deps, cfg Config, tel observability.Observability) *PlaceOrderUseCase {
	if tel == nil {
		tel = observability.Nop()
	}
	metrics := tel.Metrics()

	return &PlaceOrderUseCase{
		orders:    deps.Orders,
		stock:     deps.Inventory,
		points:    deps.Loyalty,
		pricer:    deps.Pricer,
		catalog:   deps.Catalog,
		assessor:  deps.Assessor,
		charger:   deps.Charger,
		refunder:  deps.Refunder,
		shipper:   deps.Shipper,
		auditor:   deps.Auditor,
		publisher: deps.Publisher,
		ids:       deps.IDs,
		cfg:       cfg.withDefaults(),

		tel: tel,
		log: tel.Logger().With(observability.F("service", orderService)),

		reqCounter:   metrics.Counter(observability.MUsecaseRequests),
		durHistogram: metrics.Histogram(observability.MUsecaseDuration),
		extCounter:   metrics.Counter(observability.MExternalRequests),
		extHistogram: metrics.Histogram(observability.MExternalRequestDuration),
		compCounter:  metrics.Counter(observability.MCompensationsRun),
	}
}

// PlaceOrderInput is the placement request. SafetyStock > 0 switches the
// inventory step to the buffered reservation path.
type PlaceOrderInput struct {
	IdempotencyKey string
	AccountID      string
	Lines          map[string]int
	Region         string
	ShippingMethod string
	Address        *domship.Address
	CouponCode     string
	RedeemPoints   int
	SafetyStock    int
}

// Execute runs the placement workflow and returns the terminal result.
// Business failures (stock, fraud, payment, shipping) come back as a result
// with the matching outcome and a nil error; an error return means the
// request never reached a terminal outcome (validation, storage failure,
// cancellation) and every applied side effect has been compensated.
func (uc *PlaceOrderUseCase) Execute(ctx context.Context, cmd PlaceOrderInput) (_ *domain.Result, err error) {
	logger := logctx.FromOr(ctx, uc.log).With(observability.F("use_case", useCasePlaceOrder))

	ctx, span := uc.tel.Tracer().Start(ctx, spanPrefix+"PlaceOrder",
		attribute.String("use_case", useCasePlaceOrder),
		attribute.String("order.account_id", cmd.AccountID),
		attribute.Int("order.lines", len(cmd.Lines)),
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
			observability.L("use_case", useCasePlaceOrder),
			observability.L("outcome", outcome),
		)
		uc.durHistogram.Observe(lat,
			observability.L("use_case", useCasePlaceOrder),
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

	if cmd.AccountID == "" {
		outcome, statusText = "error", "ACCOUNT_ID_REQUIRED"
		return nil, newValidation("account id is required")
	}
	if len(cmd.Lines) == 0 {
		outcome, statusText = "error", "LINES_REQUIRED"
		return nil, newValidation("at least one line is required")
	}
	for sku, qty := range cmd.Lines {
		if qty <= 0 {
			outcome, statusText = "error", "QUANTITY_INVALID"
			return nil, newValidation(fmt.Sprintf("quantity for %s must be greater than zero", sku))
		}
	}
	if cmd.RedeemPoints < 0 {
		outcome, statusText = "error", "REDEEM_POINTS_INVALID"
		return nil, newValidation("redeem points must not be negative")
	}
	if err := ctx.Err(); err != nil {
		outcome, statusText = "error", "CONTEXT_CANCELED"
		return nil, err
	}

	if cmd.IdempotencyKey != "" {
		existing, repoErr := uc.orders.FindByIdempotency(ctx, cmd.AccountID, cmd.IdempotencyKey)
		switch {
		case repoErr == nil:
			if existing.Result == nil {
				outcome, statusText = "error", "ATTEMPT_IN_FLIGHT"
				return nil, ErrConflict
			}
			statusText = "IDEMPOTENT_REPLAY"
			outcome = string(existing.Result.Outcome)
			span.AddEvent("order.idempotent_replay",
				trace.WithAttributes(attribute.String("order.id", existing.ID)),
			)
			return existing.Result, nil
		case errors.Is(repoErr, domain.ErrNotFound):
			// first attempt for this key
		default:
			outcome, statusText = "error", "IDEMPOTENCY_LOOKUP_FAILED"
			return nil, wrapRepositoryError(repoErr)
		}
	}

	ord, derr := domain.New(uc.ids.NewID(), cmd.AccountID, cmd.Region, cmd.Lines)
	if derr != nil {
		outcome, statusText = "error", "DOMAIN_CONSTRUCTION_FAILED"
		return nil, fmt.Errorf("order: construct: %w", derr)
	}
	if cmd.ShippingMethod != "" {
		ord.ShippingMethod = cmd.ShippingMethod
	}
	ord.Address = cmd.Address
	ord.CouponCode = cmd.CouponCode
	ord.RedeemPoints = cmd.RedeemPoints
	ord.SafetyStock = cmd.SafetyStock
	ord.IdempotencyKey = cmd.IdempotencyKey
	span.SetAttributes(attribute.String("order.id", ord.ID))

	if err := uc.orders.Insert(ctx, ord); err != nil {
		if errors.Is(err, domain.ErrConflict) && cmd.IdempotencyKey != "" {
			if existing, lookupErr := uc.orders.FindByIdempotency(ctx, cmd.AccountID, cmd.IdempotencyKey); lookupErr == nil && existing.Result != nil {
				statusText = "IDEMPOTENT_REPLAY"
				outcome = string(existing.Result.Outcome)
				return existing.Result, nil
			}
		}
		outcome, statusText = "error", "REPO_INSERT_FAILED"
		return nil, wrapRepositoryError(err)
	}

	att := &attempt{uc: uc, ord: ord, log: logger}

	for _, s := range att.steps() {
		if cerr := ctx.Err(); cerr != nil {
			att.compensate(ctx)
			ord.Cancel()
			_ = uc.orders.Update(context.WithoutCancel(ctx), ord)
			outcome, statusText = "error", "CONTEXT_CANCELED"
			return nil, cerr
		}

		if serr := s.run(ctx); serr != nil {
			att.compensate(ctx)
			ord.Cancel()
			_ = uc.orders.Update(context.WithoutCancel(ctx), ord)
			outcome, statusText = "error", "STEP_"+s.name
			return nil, serr
		}

		span.AddEvent("order." + s.name)

		if att.result != nil && !att.result.Fulfilled() {
			att.compensate(ctx)
			uc.finish(ctx, ord, att.result)
			outcome = string(att.result.Outcome)
			statusText = att.result.Reason
			if statusText == "" {
				statusText = outcome
			}
			return att.result, nil
		}
	}

	uc.finish(ctx, ord, att.result)
	span.SetAttributes(attribute.String("order.outcome", string(att.result.Outcome)))
	return att.result, nil
}

// Get loads an order with its stored result.
func (uc *PlaceOrderUseCase) Get(ctx context.Context, id string) (*domain.Order, error) {
	if id == "" {
		return nil, newValidation("order id is required")
	}
	ord, err := uc.orders.Get(ctx, id)
	if err != nil {
		return nil, wrapRepositoryError(err)
	}
	return ord, nil
}

// finish persists the terminal result, audits it, and publishes the
// matching event. Audit and publish are best-effort and never alter the
// outcome.
func (uc *PlaceOrderUseCase) finish(ctx context.Context, ord *domain.Order, result *domain.Result) {
	ctx = context.WithoutCancel(ctx)

	ord.Finish(result)
	if err := uc.orders.Update(ctx, ord); err != nil {
		uc.log.Error("order_update_failed",
			observability.F("order_id", ord.ID),
			observability.F("error", err),
		)
	}

	details := result.Reason
	if result.Fulfilled() && result.Pricing != nil {
		details = fmt.Sprintf("charged=%.2f, points_awarded=%d", result.Pricing.Total, result.PointsAwarded)
	}
	uc.auditor.Log(ctx, domaudit.Entry{
		Kind:      auditKind(result.Outcome),
		OrderID:   ord.ID,
		AccountID: ord.AccountID,
		SKU:       lineSKUs(ord.Lines),
		Details:   details,
	})

	var event domoutbox.Event
	if result.Fulfilled() {
		event = domain.NewOrderFulfilledEvent(ord)
	} else {
		event = domain.NewOrderRejectedEvent(ord, result.Outcome, result.Reason)
	}
	uc.publish(ctx, event)
}

func (uc *PlaceOrderUseCase) publish(ctx context.Context, event domoutbox.Event) {
	if uc.publisher == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(ctx, uc.cfg.PublishTimeout)
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

// external runs one collaborator call under a timeout and records the RED
// metrics for it.
func (uc *PlaceOrderUseCase) external(ctx context.Context, peer, endpoint string, timeout time.Duration, fn func(ctx context.Context) error) error {
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

func auditKind(o domain.Outcome) string {
	switch o {
	case domain.OutcomeFulfilled:
		return domaudit.KindOrderFulfilled
	case domain.OutcomeInsufficientStock:
		return domaudit.KindInsufficientStock
	case domain.OutcomeFraudBlocked:
		return domaudit.KindFraudBlocked
	case domain.OutcomeFraudReview:
		return domaudit.KindFraudReview
	case domain.OutcomePaymentFailed:
		return domaudit.KindPaymentFailed
	case domain.OutcomeShippingFailed:
		return domaudit.KindShippingFailed
	}
	return string(o)
}

func wrapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, domain.ErrConflict):
		return ErrConflict
	default:
		return fmt.Errorf("%w: %w", ErrRepository, err)
	}
}

func newValidation(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}
