package distribution

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gasnusa/gasnusa/internal/shared"
)

// PGRepository persists distribution records in PostgreSQL.
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

func (r *PGRepository) ApplyIncrement(ctx context.Context, in Increment) error {
	return applyIncrement(ctx, r.pool, in)
}

// ApplyIncrementTx accumulates inside the caller's transaction. Order
// completion uses this so the increment commits or rolls back together with
// the ledger rows and the status flip.
func ApplyIncrementTx(ctx context.Context, tx pgx.Tx, in Increment) error {
	return applyIncrement(ctx, tx, in)
}

// The increment happens in the store itself; two concurrent completions for
// the same key serialise on the row and both land.
func applyIncrement(ctx context.Context, q dbtx, in Increment) error {
	_, err := q.Exec(ctx, `INSERT INTO distribution_records (pangkalan_id, record_date, variant, normal, fakultatif, payment_type, updated_at)
VALUES ($1,$2,$3,$4,0,$5,NOW())
ON CONFLICT (pangkalan_id, record_date, variant) DO UPDATE SET normal = distribution_records.normal + EXCLUDED.normal, payment_type = EXCLUDED.payment_type, updated_at = NOW()`,
		in.PangkalanID, in.Date, in.Variant, in.Qty, in.PaymentType)
	return err
}

func (r *PGRepository) ClearRange(ctx context.Context, pangkalanID int64, rng shared.DateRange) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM distribution_records WHERE pangkalan_id=$1 AND record_date BETWEEN $2 AND $3`,
		pangkalanID, rng.From, rng.To)
	return err
}

func (r *PGRepository) GetRange(ctx context.Context, pangkalanID int64, rng shared.DateRange) ([]Record, error) {
	rows, err := r.pool.Query(ctx, `SELECT pangkalan_id, record_date, variant, normal, fakultatif, payment_type, updated_at
FROM distribution_records
WHERE pangkalan_id=$1 AND record_date BETWEEN $2 AND $3
ORDER BY record_date ASC, variant ASC`, pangkalanID, rng.From, rng.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	records := []Record{}
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.PangkalanID, &rec.Date, &rec.Variant, &rec.Normal, &rec.Fakultatif, &rec.PaymentType, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
