package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appOrder "github.com/lumashop/orderflow/internal/application/order"
	appReturns "github.com/lumashop/orderflow/internal/application/returns"
	httptransport "github.com/lumashop/orderflow/internal/infrastructure/http"
	"github.com/lumashop/orderflow/internal/infrastructure/id"
	"github.com/lumashop/orderflow/internal/infrastructure/memory"
	"github.com/lumashop/orderflow/internal/infrastructure/notification"
	"github.com/lumashop/orderflow/internal/infrastructure/observability/oteltrace"
	"github.com/lumashop/orderflow/internal/infrastructure/observability/prometrics"
	"github.com/lumashop/orderflow/internal/infrastructure/observability/telemetry"
	"github.com/lumashop/orderflow/internal/infrastructure/observability/zaplogger"
	"github.com/lumashop/orderflow/internal/infrastructure/outbox"
	"github.com/lumashop/orderflow/internal/infrastructure/payment"
	"github.com/lumashop/orderflow/internal/infrastructure/pricing"
	"github.com/lumashop/orderflow/internal/infrastructure/risk"
	"github.com/lumashop/orderflow/internal/infrastructure/shipping"
	"github.com/lumashop/orderflow/internal/observability"
	"github.com/lumashop/orderflow/internal/pkg/logging"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	serviceName := getenvDefault("SERVICE_NAME", "orderflow")
	env := getenvDefault("ENV", "dev")

	baseLogger := logging.MustNewLogger(serviceName, env)
	defer func() { _ = baseLogger.Sync() }()
	zap.ReplaceGlobals(baseLogger)

	systemLogger := logging.WithTrace(baseLogger, logging.SystemTraceID, logging.SystemSpanID)
	logger := zaplogger.Wrap(baseLogger)

	metrics := prometrics.New("", "")
	tel := telemetry.New(
		oteltrace.New(serviceName),
		logger,
		map[observability.MetricKey]observability.Counter{
			observability.MUsecaseRequests: metrics.Counter(
				string(observability.MUsecaseRequests),
				"Total number of use case invocations.",
				"use_case", "outcome",
			),
			observability.MHTTPRequests: metrics.Counter(
				string(observability.MHTTPRequests),
				"Total number of HTTP requests served.",
				"method", "route", "status",
			),
			observability.MExternalRequests: metrics.Counter(
				string(observability.MExternalRequests),
				"Total number of external collaborator calls.",
				"peer", "endpoint", "outcome",
			),
			observability.MCompensationsRun: metrics.Counter(
				string(observability.MCompensationsRun),
				"Compensations executed while unwinding a workflow.",
				"use_case", "step",
			),
		},
		map[observability.MetricKey]observability.Histogram{
			observability.MUsecaseDuration: metrics.Histogram(
				string(observability.MUsecaseDuration),
				"Duration of use case execution in seconds.",
				prometheus.DefBuckets,
				"use_case",
			),
			observability.MHTTPRequestDuration: metrics.Histogram(
				string(observability.MHTTPRequestDuration),
				"Duration of HTTP request handling in seconds.",
				prometheus.DefBuckets,
				"method", "route", "status",
			),
			observability.MExternalRequestDuration: metrics.Histogram(
				string(observability.MExternalRequestDuration),
				"Duration of external collaborator calls in seconds.",
				prometheus.DefBuckets,
				"peer", "endpoint",
			),
		},
	)

	// Stores and ledgers
	orderStore := memory.NewOrderStore()
	stock := memory.NewInventoryLedger()
	points := memory.NewLoyaltyLedger()
	auditLog := memory.NewAuditLog()

	// Collaborators
	catalog := pricing.NewCatalog(nil)
	pricer := pricing.NewEngine(catalog, pricing.NewPromotions())
	assessor := risk.NewAssessor()
	gateway := payment.NewGateway(10_000)
	dispatcher := shipping.NewDispatcher("lumapost")
	ids := id.NewUUIDGenerator()

	seedCtx := context.Background()
	seedInventory(seedCtx, stock, systemLogger)
	seedLoyalty(seedCtx, points, systemLogger)

	// In-memory event bus carries post-commit notifications
	bus := outbox.NewBus(tel.Logger())
	bus.Start(context.Background())
	defer bus.Stop(context.Background())

	notifier := notification.New(bus, tel.Logger())
	notifier.Start()

	deps := appOrder.Deps{
		Orders:    orderStore,
		Inventory: stock,
		Loyalty:   points,
		Pricer:    pricer,
		Catalog:   catalog,
		Assessor:  assessor,
		Charger:   gateway,
		Refunder:  gateway,
		Shipper:   dispatcher,
		Auditor:   auditLog,
		Publisher: bus,
		IDs:       ids,
	}
	placeOrder := appOrder.NewPlaceOrderUseCase(deps, appOrder.Config{}, tel)
	processReturn := appReturns.NewProcessReturnUseCase(appReturns.Deps{
		Orders:    orderStore,
		Inventory: stock,
		Loyalty:   points,
		Pricer:    pricer,
		Catalog:   catalog,
		Refunder:  gateway,
		Shipper:   dispatcher,
		Auditor:   auditLog,
		Publisher: bus,
		IDs:       ids,
	}, appReturns.Config{}, tel)

	handler := httptransport.NewHandler(placeOrder, processReturn)
	observe := httptransport.ObservabilityMiddleware(tel)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", observe(handler.Router()))

	server := &http.Server{
		Addr:    getenvDefault("ADDR", ":8080"),
		Handler: mux,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		systemLogger.Info("http_server_start",
			zap.String("addr", server.Addr),
		)
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			systemLogger.Error("http_server_error",
				zap.Error(err),
			)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		systemLogger.Error("http_server_shutdown_error",
			zap.Error(err),
		)
	} else {
		systemLogger.Info("http_server_stopped")
	}
}

func seedInventory(ctx context.Context, stock *memory.InventoryLedger, logger *zap.Logger) {
	for sku, qty := range map[string]int{
		"widget-basic": 120,
		"widget-pro":   40,
		"bolt-pack":    300,
		"solvent-can":  25,
		"gift-card":    1000,
	} {
		if err := stock.AddItem(ctx, sku, qty); err != nil {
			logger.Error("seed_inventory_failed",
				zap.String("sku", sku),
				zap.Error(err),
			)
		}
	}
}

func seedLoyalty(ctx context.Context, points *memory.LoyaltyLedger, logger *zap.Logger) {
	for account, balance := range map[string]int{
		"acct-demo":  500,
		"acct-gold":  2500,
		"acct-fresh": 0,
	} {
		if balance == 0 {
			continue
		}
		if err := points.Restore(ctx, account, balance); err != nil {
			logger.Error("seed_loyalty_failed",
				zap.String("account_id", account),
				zap.Error(err),
			)
		}
	}
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
