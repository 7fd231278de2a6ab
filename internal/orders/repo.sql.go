package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/gasnusa/gasnusa/internal/distribution"
	"github.com/gasnusa/gasnusa/internal/ledger"
	"github.com/gasnusa/gasnusa/internal/platform/db"
	"github.com/gasnusa/gasnusa/internal/shared"
)

// PGRepository persists orders in PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs PGRepository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

type pgTxRepository struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *PGRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &pgTxRepository{tx: tx})
	})
}

const orderColumns = `id, pangkalan_id, driver_id, status, order_date, total_amount, is_paid, is_down_payment, payment_method, amount_paid, created_by, created_at, updated_at`

func (r *PGRepository) Get(ctx context.Context, id int64) (Order, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id)
	order, err := scanOrder(row)
	if err != nil {
		return Order{}, err
	}
	order.Items, err = loadItems(ctx, r.pool, id)
	return order, err
}

func (r *PGRepository) List(ctx context.Context, req ListRequest) ([]Order, error) {
	conditions := []string{"TRUE"}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if req.PangkalanID != nil {
		conditions = append(conditions, "pangkalan_id="+arg(*req.PangkalanID))
	}
	if req.Status != nil {
		conditions = append(conditions, "status="+arg(string(*req.Status)))
	}
	if req.Range != nil {
		conditions = append(conditions, "order_date BETWEEN "+arg(req.Range.From)+" AND "+arg(req.Range.To))
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + orderColumns + ` FROM orders WHERE ` + strings.Join(conditions, " AND ") +
		` ORDER BY order_date DESC, id DESC LIMIT ` + arg(limit) + ` OFFSET ` + arg(req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := []Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, order)
	}
	return result, rows.Err()
}

func (r *pgTxRepository) Insert(ctx context.Context, order Order) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO orders (pangkalan_id, driver_id, status, order_date, total_amount, is_paid, is_down_payment, payment_method, amount_paid, created_by, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,NOW(),NOW()) RETURNING id`,
		order.PangkalanID, order.DriverID, string(order.Status), order.OrderDate, order.TotalAmount,
		order.IsPaid, order.IsDownPayment, order.PaymentMethod, order.AmountPaid, order.CreatedBy).Scan(&id)
	return id, err
}

func (r *pgTxRepository) InsertItem(ctx context.Context, item Item) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO order_items (order_id, variant, qty, unit_price, taxable)
VALUES ($1,$2,$3,$4,$5) RETURNING id`,
		item.OrderID, item.Variant, item.Qty, item.UnitPrice, item.Taxable).Scan(&id)
	return id, err
}

func (r *pgTxRepository) DeleteItems(ctx context.Context, orderID int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM order_items WHERE order_id=$1`, orderID)
	return err
}

// GetForUpdate takes the row lock immediately; a held lock surfaces as a
// lock-not-available error the service maps to the conflict taxonomy.
func (r *pgTxRepository) GetForUpdate(ctx context.Context, id int64) (Order, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1 FOR UPDATE NOWAIT`, id)
	order, err := scanOrder(row)
	if err != nil {
		return Order{}, err
	}
	order.Items, err = loadItems(ctx, r.tx, id)
	return order, err
}

func (r *pgTxRepository) UpdateStatus(ctx context.Context, id int64, status Status, actorID int64) error {
	tag, err := r.tx.Exec(ctx, `UPDATE orders SET status=$2, updated_at=NOW() WHERE id=$1`, id, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *pgTxRepository) UpdateTotal(ctx context.Context, id int64, total decimal.Decimal) error {
	_, err := r.tx.Exec(ctx, `UPDATE orders SET total_amount=$2, updated_at=NOW() WHERE id=$1`, id, total)
	return err
}

func (r *pgTxRepository) UpdatePayment(ctx context.Context, id int64, p PaymentInput) error {
	_, err := r.tx.Exec(ctx, `UPDATE orders SET is_paid=$2, is_down_payment=$3, payment_method=$4, amount_paid=$5, updated_at=NOW() WHERE id=$1`,
		id, p.IsPaid, p.IsDownPayment, p.Method, p.AmountPaid)
	return err
}

func (r *pgTxRepository) InsertStockOut(ctx context.Context, m ledger.Movement) (int64, error) {
	return ledger.InsertTx(ctx, r.tx, m)
}

func (r *pgTxRepository) ApplyDistributionIncrement(ctx context.Context, in distribution.Increment) error {
	return distribution.ApplyIncrementTx(ctx, r.tx, in)
}

func (r *pgTxRepository) InsertIdempotencyKey(ctx context.Context, key, module string) error {
	return shared.InsertKeyTx(ctx, r.tx, key, module)
}

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	var status string
	err := row.Scan(&o.ID, &o.PangkalanID, &o.DriverID, &status, &o.OrderDate, &o.TotalAmount,
		&o.IsPaid, &o.IsDownPayment, &o.PaymentMethod, &o.AmountPaid, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, shared.ErrNotFound
		}
		return Order{}, err
	}
	o.Status = Status(status)
	return o, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func loadItems(ctx context.Context, q querier, orderID int64) ([]Item, error) {
	rows, err := q.Query(ctx, `SELECT id, order_id, variant, qty, unit_price, taxable FROM order_items WHERE order_id=$1 ORDER BY id ASC`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Item{}
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ID, &item.OrderID, &item.Variant, &item.Qty, &item.UnitPrice, &item.Taxable); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
