package ledger

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGRepository persists the stock ledger in PostgreSQL.
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

func (r *PGRepository) Insert(ctx context.Context, m Movement) (int64, error) {
	return insertMovement(ctx, r.pool, m)
}

// InsertTx appends a movement inside the caller's transaction. Order
// completion uses this so ledger rows commit or roll back together with the
// status flip.
func InsertTx(ctx context.Context, tx pgx.Tx, m Movement) (int64, error) {
	return insertMovement(ctx, tx, m)
}

func insertMovement(ctx context.Context, q dbtx, m Movement) (int64, error) {
	var id int64
	err := q.QueryRow(ctx, `INSERT INTO stock_movements (code, product_id, movement_type, qty, note, order_id, actor_id, recorded_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id`,
		m.Code, m.ProductID, string(m.Type), m.Qty, m.Note, nullInt(m.OrderID), nullInt(m.ActorID), m.RecordedAt).Scan(&id)
	return id, err
}

func (r *PGRepository) SumBalance(ctx context.Context, productID int64, asOf time.Time) (int64, error) {
	var balance int64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(CASE movement_type WHEN 'IN' THEN qty WHEN 'OUT' THEN -qty ELSE qty END), 0)
FROM stock_movements
WHERE product_id=$1 AND ($2::timestamptz IS NULL OR recorded_at <= $2)`, productID, nullTime(asOf)).Scan(&balance)
	return balance, err
}

func (r *PGRepository) ListByProduct(ctx context.Context, productID int64, limit int) ([]Movement, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.pool.Query(ctx, `SELECT id, code, product_id, movement_type, qty, note, COALESCE(order_id, 0), COALESCE(actor_id, 0), recorded_at
FROM stock_movements
WHERE product_id=$1
ORDER BY recorded_at DESC, id DESC
LIMIT $2`, productID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	movements := []Movement{}
	for rows.Next() {
		var m Movement
		var movementType string
		if err := rows.Scan(&m.ID, &m.Code, &m.ProductID, &movementType, &m.Qty, &m.Note, &m.OrderID, &m.ActorID, &m.RecordedAt); err != nil {
			return nil, err
		}
		m.Type = MovementType(movementType)
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

func nullInt(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
