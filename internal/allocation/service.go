package allocation

import (
	"context"
	"fmt"
	"time"

	"github.com/gasnusa/gasnusa/internal/shared"
)

// Repository abstracts plan persistence.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Upsert(ctx context.Context, plan Plan) error
	GetRange(ctx context.Context, pangkalanID int64, rng shared.DateRange) ([]Plan, error)
	MonthTotals(ctx context.Context, pangkalanID int64, month time.Time) (MonthSummary, error)
}

// TxRepository exposes the operations used inside the bulk replace
// transaction.
type TxRepository interface {
	DeleteRange(ctx context.Context, pangkalanID int64, rng shared.DateRange) error
	Upsert(ctx context.Context, plan Plan) error
}

// Service maintains the daily allocation plan (perencanaan).
type Service struct {
	repo Repository
}

// NewService builds Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// UpsertDailyPlan replaces the plan for (pangkalan, date) with the given
// values. A second call for the same key overwrites, never accumulates.
// Non-operating-day policy lives in the caller: the planner accepts entries
// on any date.
func (s *Service) UpsertDailyPlan(ctx context.Context, input PlanInput) error {
	if err := validateInput(input); err != nil {
		return err
	}
	return s.repo.Upsert(ctx, Plan{
		PangkalanID:    input.PangkalanID,
		Date:           shared.Day(input.Date),
		Normal:         input.Normal,
		Fakultatif:     input.Fakultatif,
		MonthlyCeiling: input.MonthlyCeiling,
	})
}

// BulkUpsertRange replaces the whole plan window for a pangkalan: existing
// rows inside the range are cleared, then the provided entries inserted,
// all in one transaction so a reader never observes a half-cleared window.
func (s *Service) BulkUpsertRange(ctx context.Context, pangkalanID int64, rng shared.DateRange, entries []PlanInput) error {
	if pangkalanID <= 0 {
		return fmt.Errorf("%w: pangkalan reference required", shared.ErrValidation)
	}
	if err := rng.Validate(); err != nil {
		return err
	}
	for _, entry := range entries {
		if err := validateInput(entry); err != nil {
			return err
		}
		if entry.PangkalanID != pangkalanID {
			return fmt.Errorf("%w: entry pangkalan %d does not match %d", shared.ErrValidation, entry.PangkalanID, pangkalanID)
		}
		if !rng.Contains(entry.Date) {
			return fmt.Errorf("%w: entry date %s outside range %s", shared.ErrValidation, entry.Date.Format("2006-01-02"), rng)
		}
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.DeleteRange(ctx, pangkalanID, rng); err != nil {
			return err
		}
		for _, entry := range entries {
			plan := Plan{
				PangkalanID:    entry.PangkalanID,
				Date:           shared.Day(entry.Date),
				Normal:         entry.Normal,
				Fakultatif:     entry.Fakultatif,
				MonthlyCeiling: entry.MonthlyCeiling,
			}
			if err := tx.Upsert(ctx, plan); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetPlan lists plan rows for a pangkalan inside the range.
func (s *Service) GetPlan(ctx context.Context, pangkalanID int64, rng shared.DateRange) ([]Plan, error) {
	if pangkalanID <= 0 {
		return nil, fmt.Errorf("%w: pangkalan reference required", shared.ErrValidation)
	}
	if err := rng.Validate(); err != nil {
		return nil, err
	}
	return s.repo.GetRange(ctx, pangkalanID, rng)
}

// PlanSummary totals a month's plan against the denormalised ceiling. A
// reporting aid only; nothing is enforced.
func (s *Service) PlanSummary(ctx context.Context, pangkalanID int64, month time.Time) (MonthSummary, error) {
	if pangkalanID <= 0 {
		return MonthSummary{}, fmt.Errorf("%w: pangkalan reference required", shared.ErrValidation)
	}
	if month.IsZero() {
		return MonthSummary{}, fmt.Errorf("%w: month required", shared.ErrValidation)
	}
	return s.repo.MonthTotals(ctx, pangkalanID, month)
}
