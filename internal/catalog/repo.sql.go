package catalog

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gasnusa/gasnusa/internal/shared"
)

// PGRepository persists catalog data in PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs PGRepository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const productColumns = `id, variant_code, name, size_kg, category, cost_price, sell_price, is_active, created_at, updated_at`

func (r *PGRepository) Insert(ctx context.Context, p Product) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO products (variant_code, name, size_kg, category, cost_price, sell_price, is_active, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,NOW(),NOW()) RETURNING id`,
		p.VariantCode, p.Name, p.SizeKg, string(p.Category), p.CostPrice, p.SellPrice, p.IsActive).Scan(&id)
	return id, err
}

func (r *PGRepository) Update(ctx context.Context, id int64, p Product) error {
	tag, err := r.pool.Exec(ctx, `UPDATE products SET variant_code=$2, name=$3, size_kg=$4, category=$5, cost_price=$6, sell_price=$7, is_active=$8, updated_at=NOW() WHERE id=$1`,
		id, p.VariantCode, p.Name, p.SizeKg, string(p.Category), p.CostPrice, p.SellPrice, p.IsActive)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *PGRepository) Get(ctx context.Context, id int64) (Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, id)
	return scanProduct(row)
}

func (r *PGRepository) GetByVariant(ctx context.Context, code string) (Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE variant_code=$1`, code)
	return scanProduct(row)
}

func (r *PGRepository) List(ctx context.Context, includeInactive bool) ([]Product, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products WHERE is_active OR $1 ORDER BY size_kg ASC`, includeInactive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	products := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *PGRepository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE products SET is_active=$2, updated_at=NOW() WHERE id=$1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *PGRepository) IsReferenced(ctx context.Context, id int64) (bool, error) {
	var referenced bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM stock_movements WHERE product_id=$1)`, id).Scan(&referenced)
	return referenced, err
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	var category string
	err := row.Scan(&p.ID, &p.VariantCode, &p.Name, &p.SizeKg, &category, &p.CostPrice, &p.SellPrice, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, shared.ErrNotFound
		}
		return Product{}, err
	}
	p.Category = Category(category)
	return p, nil
}
