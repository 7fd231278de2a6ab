package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/gasnusa/gasnusa/internal/observability"
	"github.com/gasnusa/gasnusa/internal/recon"
)

// ResyncJob rebuilds the derived tables for an explicitly requested window.
// Only ever enqueued by an administrator, never by the order flow.
type ResyncJob struct {
	Service *recon.Service
	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// NewResyncJob initialises the resync handler.
func NewResyncJob(service *recon.Service, logger *slog.Logger, metrics *observability.Metrics) *ResyncJob {
	return &ResyncJob{Service: service, Logger: logger, Metrics: metrics}
}

// Handle executes one resync run.
func (j *ResyncJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Service == nil {
		return errors.New("resync: handler not configured")
	}
	var payload ResyncPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	window, err := payload.Window()
	if err != nil {
		j.logger().Error("invalid resync window", slog.Any("error", err))
		return asynq.SkipRetry
	}

	tracker := j.Metrics.Track(TaskResync)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(
		slog.String("window", window.String()),
		slog.Int64("actor_id", payload.ActorID),
	)
	logger.Info("starting resync")

	if err := j.Service.Resync(ctx, window, payload.ActorID); err != nil {
		resultErr = err
		logger.Error("resync failed", slog.Any("error", err))
		return resultErr
	}

	report, err := j.Service.CheckSyncFresh(ctx, window)
	if err != nil {
		logger.Warn("post-resync check failed", slog.Any("error", err))
		return nil
	}
	logger.Info("resync verified", slog.Bool("in_sync", report.InSync))
	return nil
}

func (j *ResyncJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskResync))
	}
	return slog.Default().With(slog.String("job", TaskResync))
}
