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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hibiken/asynq"

	"github.com/gasnusa/gasnusa/internal/app"
	"github.com/gasnusa/gasnusa/internal/observability"
	"github.com/gasnusa/gasnusa/internal/platform/cache"
	"github.com/gasnusa/gasnusa/internal/platform/db"
	"github.com/gasnusa/gasnusa/internal/recon"
	"github.com/gasnusa/gasnusa/internal/shared"
	"github.com/gasnusa/gasnusa/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	metrics := observability.NewMetrics()
	reportCache := recon.NewRedisReportCache(redisClient, cfg.ReportCacheTTL)
	reconRepo := recon.NewRepository(pool)
	activity := shared.NewActivityLogger(pool)
	reconService := recon.NewService(reconRepo, reportCache, activity, metrics, logger)

	auditJob := jobs.NewSyncAuditJob(reconService, logger, metrics)
	resyncJob := jobs.NewResyncJob(reconService, logger, metrics)
	idemJob := jobs.NewIdemCleanupJob(shared.NewIdempotencyStore(pool), logger, metrics)

	auditTask, err := jobs.NewSyncAuditTask(7)
	if err != nil {
		logger.Error("build sync audit task", slog.Any("error", err))
		os.Exit(1)
	}
	idemTask, err := jobs.NewIdemCleanupTask(cfg.IdemRetentionDays)
	if err != nil {
		logger.Error("build idem cleanup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskSyncAudit, Handler: auditJob.Handle},
			{Type: jobs.TaskResync, Handler: resyncJob.Handle},
			{Type: jobs.TaskIdemCleanup, Handler: idemJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.SyncAuditCron, Task: auditTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: cfg.IdemCleanupCron, Task: idemTask, Options: []asynq.Option{asynq.MaxRetry(1)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	opsServer := &http.Server{
		Addr:              cfg.OpsAddr,
		Handler:           opsMux(metrics),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("ops server listening", slog.String("addr", cfg.OpsAddr))
		if err := opsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("ops server", slog.Any("error", err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := opsServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("ops server shutdown", slog.Any("error", err))
		}
	}()

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}

func opsMux(metrics *observability.Metrics) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Handle("/metrics", metrics.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	return r
}
