package allocation

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gasnusa/gasnusa/internal/shared"
)

// PGRepository persists allocation plans in PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs PGRepository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

type dbtx interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *PGRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("allocation repository not initialised")
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	wrapper := &txRepository{tx: tx}
	if err := fn(ctx, wrapper); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func (r *PGRepository) Upsert(ctx context.Context, plan Plan) error {
	return upsertPlan(ctx, r.pool, plan)
}

func (r *txRepository) Upsert(ctx context.Context, plan Plan) error {
	return upsertPlan(ctx, r.tx, plan)
}

func upsertPlan(ctx context.Context, q dbtx, plan Plan) error {
	_, err := q.Exec(ctx, `INSERT INTO allocation_plans (pangkalan_id, plan_date, normal, fakultatif, monthly_ceiling, updated_at)
VALUES ($1,$2,$3,$4,$5,NOW())
ON CONFLICT (pangkalan_id, plan_date) DO UPDATE SET normal=EXCLUDED.normal, fakultatif=EXCLUDED.fakultatif, monthly_ceiling=EXCLUDED.monthly_ceiling, updated_at=NOW()`,
		plan.PangkalanID, plan.Date, plan.Normal, plan.Fakultatif, plan.MonthlyCeiling)
	return err
}

func (r *txRepository) DeleteRange(ctx context.Context, pangkalanID int64, rng shared.DateRange) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM allocation_plans WHERE pangkalan_id=$1 AND plan_date BETWEEN $2 AND $3`,
		pangkalanID, rng.From, rng.To)
	return err
}

func (r *PGRepository) GetRange(ctx context.Context, pangkalanID int64, rng shared.DateRange) ([]Plan, error) {
	rows, err := r.pool.Query(ctx, `SELECT pangkalan_id, plan_date, normal, fakultatif, monthly_ceiling, updated_at
FROM allocation_plans
WHERE pangkalan_id=$1 AND plan_date BETWEEN $2 AND $3
ORDER BY plan_date ASC`, pangkalanID, rng.From, rng.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	plans := []Plan{}
	for rows.Next() {
		var p Plan
		if err := rows.Scan(&p.PangkalanID, &p.Date, &p.Normal, &p.Fakultatif, &p.MonthlyCeiling, &p.UpdatedAt); err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

func (r *PGRepository) MonthTotals(ctx context.Context, pangkalanID int64, month time.Time) (MonthSummary, error) {
	start := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, -1)
	summary := MonthSummary{PangkalanID: pangkalanID}
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(normal),0), COALESCE(SUM(fakultatif),0), COALESCE(MAX(monthly_ceiling),0)
FROM allocation_plans
WHERE pangkalan_id=$1 AND plan_date BETWEEN $2 AND $3`, pangkalanID, start, end).
		Scan(&summary.Normal, &summary.Fakultatif, &summary.MonthlyCeiling)
	return summary, err
}
