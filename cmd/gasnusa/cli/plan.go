package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gasnusa/gasnusa/internal/allocation"
)

// PlanCLI maintains daily allocation plans from the terminal.
type PlanCLI struct {
	svc *allocation.Service
}

// NewPlanCLI wires the planner against the pool.
func NewPlanCLI(pool *pgxpool.Pool) *PlanCLI {
	return &PlanCLI{svc: allocation.NewService(allocation.NewRepository(pool))}
}

// Set upserts the plan for one pangkalan and day.
func (c *PlanCLI) Set(ctx context.Context, input allocation.PlanInput) error {
	if c == nil || c.svc == nil {
		return errors.New("plan cli: not configured")
	}
	return c.svc.UpsertDailyPlan(ctx, input)
}

// Summary renders the month totals against the ceiling.
func (c *PlanCLI) Summary(ctx context.Context, pangkalanID int64, month time.Time) (string, error) {
	if c == nil || c.svc == nil {
		return "", errors.New("plan cli: not configured")
	}
	summary, err := c.svc.PlanSummary(ctx, pangkalanID, month)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("pangkalan=%d month=%s normal=%d fakultatif=%d total=%d ceiling=%d",
		pangkalanID, month.Format("2006-01"), summary.Normal, summary.Fakultatif, summary.Total(), summary.MonthlyCeiling), nil
}
