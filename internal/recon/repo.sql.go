package recon

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gasnusa/gasnusa/internal/distribution"
	"github.com/gasnusa/gasnusa/internal/ledger"
	"github.com/gasnusa/gasnusa/internal/platform/db"
	"github.com/gasnusa/gasnusa/internal/shared"
)

// PGRepository reads totals across the four tables.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func (r *PGRepository) PlannedTotal(ctx context.Context, rng shared.DateRange) (int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(normal + fakultatif), 0)
FROM allocation_plans
WHERE plan_date BETWEEN $1 AND $2`, rng.From, rng.To).Scan(&total)
	return total, err
}

func (r *PGRepository) DistributedTotal(ctx context.Context, rng shared.DateRange) (int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(normal + fakultatif), 0)
FROM distribution_records
WHERE record_date BETWEEN $1 AND $2`, rng.From, rng.To).Scan(&total)
	return total, err
}

func (r *PGRepository) OrderItemsTotal(ctx context.Context, rng shared.DateRange) (int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(oi.qty), 0)
FROM order_items oi
JOIN orders o ON o.id = oi.order_id
WHERE o.status = 'SELESAI' AND o.order_date BETWEEN $1 AND $2`, rng.From, rng.To).Scan(&total)
	return total, err
}

func (r *PGRepository) StockOutTotal(ctx context.Context, rng shared.DateRange) (int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(m.qty), 0)
FROM stock_movements m
JOIN orders o ON o.id = m.order_id
WHERE m.movement_type = 'OUT' AND o.order_date BETWEEN $1 AND $2`, rng.From, rng.To).Scan(&total)
	return total, err
}

func (r *PGRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &pgTxRepository{tx: tx})
	})
}

type pgTxRepository struct {
	tx pgx.Tx
}

func (r *pgTxRepository) ClearDistributionRange(ctx context.Context, rng shared.DateRange) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM distribution_records WHERE record_date BETWEEN $1 AND $2`,
		rng.From, rng.To)
	return err
}

func (r *pgTxRepository) ClearOrderStockOut(ctx context.Context, rng shared.DateRange) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM stock_movements
WHERE movement_type = 'OUT'
  AND order_id IN (SELECT id FROM orders WHERE order_date BETWEEN $1 AND $2)`,
		rng.From, rng.To)
	return err
}

func (r *pgTxRepository) CompletedLines(ctx context.Context, rng shared.DateRange) ([]CompletedLine, error) {
	// LEFT JOIN keeps lines whose variant lost its product row; the
	// replay rejects them instead of silently dropping their movements.
	rows, err := r.tx.Query(ctx, `SELECT o.id, o.pangkalan_id, o.order_date, p.id, oi.variant, oi.qty
FROM order_items oi
JOIN orders o ON o.id = oi.order_id
LEFT JOIN products p ON p.variant_code = oi.variant
WHERE o.status = 'SELESAI' AND o.order_date BETWEEN $1 AND $2
ORDER BY o.id, oi.id`, rng.From, rng.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []CompletedLine
	for rows.Next() {
		var line CompletedLine
		var productID *int64
		if err := rows.Scan(&line.OrderID, &line.PangkalanID, &line.OrderDate, &productID, &line.Variant, &line.Qty); err != nil {
			return nil, err
		}
		if productID != nil {
			line.ProductID = *productID
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func (r *pgTxRepository) InsertStockOut(ctx context.Context, m ledger.Movement) error {
	_, err := ledger.InsertTx(ctx, r.tx, m)
	return err
}

func (r *pgTxRepository) ApplyDistributionIncrement(ctx context.Context, in distribution.Increment) error {
	return distribution.ApplyIncrementTx(ctx, r.tx, in)
}
