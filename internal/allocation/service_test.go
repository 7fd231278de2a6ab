package allocation

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gasnusa/gasnusa/internal/shared"
)

type memoryRepo struct {
	plans map[string]Plan
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{plans: make(map[string]Plan)}
}

func planKey(pangkalanID int64, date time.Time) string {
	return fmt.Sprintf("%d#%s", pangkalanID, date.Format("2006-01-02"))
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, r)
}

func (r *memoryRepo) Upsert(ctx context.Context, plan Plan) error {
	r.plans[planKey(plan.PangkalanID, plan.Date)] = plan
	return nil
}

func (r *memoryRepo) DeleteRange(ctx context.Context, pangkalanID int64, rng shared.DateRange) error {
	for key, plan := range r.plans {
		if plan.PangkalanID == pangkalanID && rng.Contains(plan.Date) {
			delete(r.plans, key)
		}
	}
	return nil
}

func (r *memoryRepo) GetRange(ctx context.Context, pangkalanID int64, rng shared.DateRange) ([]Plan, error) {
	result := []Plan{}
	for _, plan := range r.plans {
		if plan.PangkalanID == pangkalanID && rng.Contains(plan.Date) {
			result = append(result, plan)
		}
	}
	return result, nil
}

func (r *memoryRepo) MonthTotals(ctx context.Context, pangkalanID int64, month time.Time) (MonthSummary, error) {
	summary := MonthSummary{PangkalanID: pangkalanID}
	for _, plan := range r.plans {
		if plan.PangkalanID != pangkalanID {
			continue
		}
		if plan.Date.Year() != month.Year() || plan.Date.Month() != month.Month() {
			continue
		}
		summary.Normal += plan.Normal
		summary.Fakultatif += plan.Fakultatif
		if plan.MonthlyCeiling > summary.MonthlyCeiling {
			summary.MonthlyCeiling = plan.MonthlyCeiling
		}
	}
	return summary, nil
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestUpsertReplacesNotAccumulates(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()
	d := day("2026-08-10")

	err := svc.UpsertDailyPlan(ctx, PlanInput{PangkalanID: 1, Date: d, Normal: 80, MonthlyCeiling: 2000})
	require.NoError(t, err)
	err = svc.UpsertDailyPlan(ctx, PlanInput{PangkalanID: 1, Date: d, Normal: 90, MonthlyCeiling: 2000})
	require.NoError(t, err)

	plans, err := svc.GetPlan(ctx, 1, shared.SingleDay(d))
	require.NoError(t, err)
	require.Len(t, plans, 1)
	require.Equal(t, int64(90), plans[0].Normal)
	require.Equal(t, int64(0), plans[0].Fakultatif)
}

func TestBulkUpsertReplacesWindow(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()
	rng := shared.NewDateRange(day("2026-08-01"), day("2026-08-31"))

	// Existing rows inside the window must disappear.
	err := svc.UpsertDailyPlan(ctx, PlanInput{PangkalanID: 1, Date: day("2026-08-05"), Normal: 40})
	require.NoError(t, err)
	// Rows outside the window must survive.
	err = svc.UpsertDailyPlan(ctx, PlanInput{PangkalanID: 1, Date: day("2026-07-30"), Normal: 70})
	require.NoError(t, err)

	entries := []PlanInput{
		{PangkalanID: 1, Date: day("2026-08-01"), Normal: 80, MonthlyCeiling: 2000},
		{PangkalanID: 1, Date: day("2026-08-02"), Fakultatif: 20, MonthlyCeiling: 2000},
	}
	err = svc.BulkUpsertRange(ctx, 1, rng, entries)
	require.NoError(t, err)

	plans, err := svc.GetPlan(ctx, 1, rng)
	require.NoError(t, err)
	require.Len(t, plans, 2)

	outside, err := svc.GetPlan(ctx, 1, shared.SingleDay(day("2026-07-30")))
	require.NoError(t, err)
	require.Len(t, outside, 1)
	require.Equal(t, int64(70), outside[0].Normal)
}

func TestBulkUpsertRejectsEntriesOutsideRange(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()
	rng := shared.NewDateRange(day("2026-08-01"), day("2026-08-31"))

	err := svc.BulkUpsertRange(ctx, 1, rng, []PlanInput{
		{PangkalanID: 1, Date: day("2026-09-01"), Normal: 10},
	})
	require.ErrorIs(t, err, shared.ErrValidation)

	err = svc.BulkUpsertRange(ctx, 1, rng, []PlanInput{
		{PangkalanID: 2, Date: day("2026-08-01"), Normal: 10},
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestPlanValidation(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	err := svc.UpsertDailyPlan(ctx, PlanInput{PangkalanID: 0, Date: day("2026-08-01")})
	require.ErrorIs(t, err, shared.ErrValidation)

	err = svc.UpsertDailyPlan(ctx, PlanInput{PangkalanID: 1})
	require.ErrorIs(t, err, shared.ErrValidation)

	err = svc.UpsertDailyPlan(ctx, PlanInput{PangkalanID: 1, Date: day("2026-08-01"), Normal: -1})
	require.ErrorIs(t, err, shared.ErrValidation)

	// Both sub-quotas populated is permitted; conventions live upstream.
	err = svc.UpsertDailyPlan(ctx, PlanInput{PangkalanID: 1, Date: day("2026-08-01"), Normal: 10, Fakultatif: 5})
	require.NoError(t, err)
}

func TestPlanSummary(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	require.NoError(t, svc.UpsertDailyPlan(ctx, PlanInput{PangkalanID: 1, Date: day("2026-08-01"), Normal: 80, MonthlyCeiling: 2000}))
	require.NoError(t, svc.UpsertDailyPlan(ctx, PlanInput{PangkalanID: 1, Date: day("2026-08-02"), Fakultatif: 30, MonthlyCeiling: 2000}))
	require.NoError(t, svc.UpsertDailyPlan(ctx, PlanInput{PangkalanID: 1, Date: day("2026-09-01"), Normal: 99, MonthlyCeiling: 2100}))

	summary, err := svc.PlanSummary(ctx, 1, day("2026-08-15"))
	require.NoError(t, err)
	require.Equal(t, int64(80), summary.Normal)
	require.Equal(t, int64(30), summary.Fakultatif)
	require.Equal(t, int64(110), summary.Total())
	require.Equal(t, int64(2000), summary.MonthlyCeiling)
}
