package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/sierra-distribution/sierra/internal/accounts"
	"github.com/sierra-distribution/sierra/internal/app"
	"github.com/sierra-distribution/sierra/internal/audit"
	audithttp "github.com/sierra-distribution/sierra/internal/audit/http"
	"github.com/sierra-distribution/sierra/internal/auth"
	"github.com/sierra-distribution/sierra/internal/inventory"
	jobmetrics "github.com/sierra-distribution/sierra/internal/jobs"
	"github.com/sierra-distribution/sierra/internal/masterdata/customers"
	"github.com/sierra-distribution/sierra/internal/masterdata/suppliers"
	"github.com/sierra-distribution/sierra/internal/observability"
	"github.com/sierra-distribution/sierra/internal/payments"
	"github.com/sierra-distribution/sierra/internal/platform/cache"
	"github.com/sierra-distribution/sierra/internal/platform/db"
	"github.com/sierra-distribution/sierra/internal/procurement"
	"github.com/sierra-distribution/sierra/internal/rbac"
	"github.com/sierra-distribution/sierra/internal/reconcile"
	"github.com/sierra-distribution/sierra/internal/reports"
	"github.com/sierra-distribution/sierra/internal/sales"
	"github.com/sierra-distribution/sierra/internal/shared"
	"github.com/sierra-distribution/sierra/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	jobMetrics := jobmetrics.NewMetrics(metrics.Registerer())

	auditLogger := shared.NewAuditLogger(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)
	reportCache := reports.NewCache(redisClient, cfg.ReportCacheTTL)

	rbacService := rbac.NewService(rbac.NewRepository(dbpool))
	rbacMiddleware := rbac.Middleware{Service: rbacService, Logger: logger}
	verifier := auth.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer)

	customerService := customers.NewService(customers.NewRepository(dbpool))
	supplierService := suppliers.NewService(suppliers.NewRepository(dbpool))

	inventoryService := inventory.NewService(inventory.NewRepository(dbpool), auditLogger, idempotencyStore, reportCache, logger)
	paymentService := payments.NewService(payments.NewRepository(dbpool), auditLogger, idempotencyStore, reportCache, logger)
	salesService := sales.NewService(sales.NewRepository(dbpool), paymentService, auditLogger, idempotencyStore, reportCache, logger)
	procurementService := procurement.NewService(procurement.NewRepository(dbpool), auditLogger, idempotencyStore, reportCache, logger)
	accountService := accounts.NewService(accounts.NewRepository(dbpool), auditLogger, idempotencyStore, reportCache, logger)
	reportService := reports.NewService(reports.NewRepository(dbpool), reportCache, logger)
	reconcileService := reconcile.NewService(reconcile.NewRepository(dbpool), cache.NewLocker(redisClient), jobMetrics, logger)
	auditService := audit.NewService(audit.NewRepository(dbpool))

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient := jobs.NewClient(redisOpts)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		Verifier:           verifier,
		Metrics:            metrics,
		AuthHandler:        auth.NewHandler(logger, rbacService),
		CustomersHandler:   customers.NewHandler(customerService, rbacMiddleware, logger),
		SuppliersHandler:   suppliers.NewHandler(supplierService, rbacMiddleware, logger),
		InventoryHandler:   inventory.NewHandler(logger, inventoryService, rbacMiddleware),
		SalesHandler:       sales.NewHandler(logger, salesService, rbacMiddleware),
		PaymentsHandler:    payments.NewHandler(logger, paymentService, rbacMiddleware),
		ProcurementHandler: procurement.NewHandler(logger, procurementService, rbacMiddleware),
		AccountsHandler:    accounts.NewHandler(logger, accountService, rbacMiddleware),
		ReportsHandler:     reports.NewHandler(logger, reportService, rbacMiddleware),
		ReconcileHandler:   reconcile.NewHandler(logger, reconcileService, jobClient, rbacMiddleware),
		AuditHandler:       audithttp.NewHandler(logger, auditService, rbacMiddleware),
		JobHandler:         jobs.NewHandler(inspector, logger),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("env", cfg.AppEnv))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
