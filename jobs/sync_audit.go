package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/gasnusa/gasnusa/internal/observability"
	"github.com/gasnusa/gasnusa/internal/recon"
	"github.com/gasnusa/gasnusa/internal/shared"
)

// SyncAuditJob runs the scheduled drift check over the trailing window.
type SyncAuditJob struct {
	Service *recon.Service
	Logger  *slog.Logger
	Metrics *observability.Metrics
	clock   func() time.Time
}

// NewSyncAuditJob initialises the audit handler.
func NewSyncAuditJob(service *recon.Service, logger *slog.Logger, metrics *observability.Metrics) *SyncAuditJob {
	return &SyncAuditJob{
		Service: service,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes one audit run.
func (j *SyncAuditJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Service == nil {
		return errors.New("sync audit: handler not configured")
	}
	var payload SyncAuditPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.WindowDays <= 0 {
		payload.WindowDays = 7
	}

	tracker := j.Metrics.Track(TaskSyncAudit)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	now := j.now()
	window := shared.NewDateRange(now.AddDate(0, 0, -(payload.WindowDays-1)), now)
	logger := j.logger().With(slog.String("window", window.String()))
	logger.Info("starting sync audit")

	// Always recompute: a cached report can predate today's completions.
	report, err := j.Service.CheckSyncFresh(ctx, window)
	if err != nil {
		resultErr = err
		logger.Error("sync audit failed", slog.Any("error", err))
		return resultErr
	}

	if report.InSync {
		logger.Info("sync audit clean")
		return nil
	}
	logger.Warn("sync audit found drift",
		slog.Int64("planned", report.Planned),
		slog.Int64("distributed", report.Distributed),
		slog.Int64("order_items", report.OrderItemsTotal),
		slog.Int64("stock_out", report.StockOutTotal),
		slog.Int64("drift", report.Drift()),
	)
	return nil
}

func (j *SyncAuditJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskSyncAudit))
	}
	return slog.Default().With(slog.String("job", TaskSyncAudit))
}

func (j *SyncAuditJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
