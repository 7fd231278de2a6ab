package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/gasnusa/gasnusa/internal/observability"
	"github.com/gasnusa/gasnusa/internal/shared"
)

// IdemCleanupJob trims completion guard keys older than retention. Keys
// commit together with their order, so anything past retention belongs to
// long-settled completions.
type IdemCleanupJob struct {
	Store   *shared.IdempotencyStore
	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// NewIdemCleanupJob initialises the cleanup handler.
func NewIdemCleanupJob(store *shared.IdempotencyStore, logger *slog.Logger, metrics *observability.Metrics) *IdemCleanupJob {
	return &IdemCleanupJob{Store: store, Logger: logger, Metrics: metrics}
}

// Handle executes one cleanup run.
func (j *IdemCleanupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Store == nil {
		return errors.New("idem cleanup: handler not configured")
	}
	var payload IdemCleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.RetentionDays <= 0 {
		payload.RetentionDays = 30
	}

	tracker := j.Metrics.Track(TaskIdemCleanup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	retention := time.Duration(payload.RetentionDays) * 24 * time.Hour
	if err := j.Store.Cleanup(ctx, retention); err != nil {
		resultErr = err
		j.logger().Error("idem cleanup failed", slog.Any("error", err))
		return resultErr
	}
	j.logger().Info("idem cleanup complete", slog.Int("retention_days", payload.RetentionDays))
	return nil
}

func (j *IdemCleanupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskIdemCleanup))
	}
	return slog.Default().With(slog.String("job", TaskIdemCleanup))
}
