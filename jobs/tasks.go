package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/gasnusa/gasnusa/internal/shared"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSyncAudit verifies agreement between the planner, the
	// distribution records, the order lines and the stock ledger.
	TaskSyncAudit = "recon:sync_audit"
	// TaskResync rebuilds the derived tables from the order source of
	// truth for a window.
	TaskResync = "recon:resync"
	// TaskIdemCleanup trims completion guard keys past retention.
	TaskIdemCleanup = "orders:idem_cleanup"
)

const dateLayout = "2006-01-02"

// SyncAuditPayload scopes a scheduled audit to the trailing N days.
type SyncAuditPayload struct {
	WindowDays int `json:"window_days"`
}

// NewSyncAuditTask constructs the nightly audit task.
func NewSyncAuditTask(windowDays int) (*asynq.Task, error) {
	if windowDays <= 0 {
		windowDays = 7
	}
	data, err := json.Marshal(SyncAuditPayload{WindowDays: windowDays})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSyncAudit, data), nil
}

// IdemCleanupPayload bounds how long completion guard keys are kept.
type IdemCleanupPayload struct {
	RetentionDays int `json:"retention_days"`
}

// NewIdemCleanupTask constructs the scheduled key retention task.
func NewIdemCleanupTask(retentionDays int) (*asynq.Task, error) {
	if retentionDays <= 0 {
		retentionDays = 30
	}
	data, err := json.Marshal(IdemCleanupPayload{RetentionDays: retentionDays})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdemCleanup, data), nil
}

// ResyncPayload names the window to rebuild and who asked for it.
type ResyncPayload struct {
	From    string `json:"from"`
	To      string `json:"to"`
	ActorID int64  `json:"actor_id"`
}

// NewResyncTask constructs an administrative resync task.
func NewResyncTask(rng shared.DateRange, actorID int64) (*asynq.Task, error) {
	if err := rng.Validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(ResyncPayload{
		From:    rng.From.Format(dateLayout),
		To:      rng.To.Format(dateLayout),
		ActorID: actorID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskResync, data), nil
}

// Window parses the payload bounds back into a DateRange.
func (p ResyncPayload) Window() (shared.DateRange, error) {
	from, err := time.Parse(dateLayout, p.From)
	if err != nil {
		return shared.DateRange{}, fmt.Errorf("parse from: %w", err)
	}
	to, err := time.Parse(dateLayout, p.To)
	if err != nil {
		return shared.DateRange{}, fmt.Errorf("parse to: %w", err)
	}
	rng := shared.NewDateRange(from, to)
	if err := rng.Validate(); err != nil {
		return shared.DateRange{}, err
	}
	return rng, nil
}
