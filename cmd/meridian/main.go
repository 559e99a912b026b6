package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"

	"github.com/meridian-erp/meridian-erp/internal/ap"
	"github.com/meridian-erp/meridian-erp/internal/app"
	"github.com/meridian-erp/meridian-erp/internal/ar"
	"github.com/meridian-erp/meridian-erp/internal/auth"
	"github.com/meridian-erp/meridian-erp/internal/inventory"
	"github.com/meridian-erp/meridian-erp/internal/ledger"
	"github.com/meridian-erp/meridian-erp/internal/masterdata"
	"github.com/meridian-erp/meridian-erp/internal/observability"
	"github.com/meridian-erp/meridian-erp/internal/platform/cache"
	"github.com/meridian-erp/meridian-erp/internal/platform/db"
	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/procurement"
	"github.com/meridian-erp/meridian-erp/internal/report"
	"github.com/meridian-erp/meridian-erp/internal/sequence"
	"github.com/meridian-erp/meridian-erp/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

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

	seq := sequence.NewRepository(pool)
	if err := seq.Initialize(ctx, sequence.AllSequences()...); err != nil {
		logger.Error("initialize sequences", slog.Any("error", err))
		os.Exit(1)
	}

	validate := validator.New()
	errw := httpx.ErrorWriter{Logger: logger, Verbose: !cfg.IsProduction()}

	issuer := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
	authService := auth.NewService(auth.NewRepository(pool))
	authHandler := auth.NewHandler(logger, authService, issuer, errw)
	authMW := auth.NewMiddleware(issuer)
	adminOnly := authMW.RequireRole()

	mdService := masterdata.NewService(masterdata.NewRepository(pool, seq))
	mdHandler := masterdata.NewHandler(logger, mdService, validate, errw).WithAdminGuard(adminOnly)

	apService := ap.NewService(ap.NewRepository(pool, seq))
	apHandler := ap.NewHandler(logger, apService, validate, errw).WithAdminGuard(adminOnly)

	arService := ar.NewService(ar.NewRepository(pool, seq), mdService)
	arHandler := ar.NewHandler(logger, arService, validate, errw)

	ledgerService := ledger.NewService(ledger.NewRepository(pool, seq))
	ledgerHandler := ledger.NewHandler(logger, ledgerService, validate, errw).WithAdminGuard(adminOnly)

	invService := inventory.NewService(inventory.NewRepository(pool, seq))
	invHandler := inventory.NewHandler(logger, invService, validate, errw)

	procService := procurement.NewService(procurement.NewRepository(pool, seq), apService)
	procHandler := procurement.NewHandler(logger, procService, validate, errw)

	reportService := report.NewService(logger, redisClient, apService, arService).
		WithTTL(cfg.ReportCacheTTL)
	reportHandler := report.NewHandler(logger, reportService, errw)

	redisOpt := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient := jobs.NewClient(redisOpt)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(asynq.NewInspector(redisOpt), jobClient, logger)

	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		Metrics:            metrics,
		AuthMiddleware:     authMW,
		AuthHandler:        authHandler,
		APHandler:          apHandler,
		ARHandler:          arHandler,
		LedgerHandler:      ledgerHandler,
		MasterDataHandler:  mdHandler,
		InventoryHandler:   invHandler,
		ProcurementHandler: procHandler,
		ReportHandler:      reportHandler,
		JobHandler:         jobHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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
