package pangkalan

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gasnusa/gasnusa/internal/shared"
)

// PGRepository persists pangkalan data in PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs PGRepository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const columns = `id, code, name, address, phone, is_active, created_at, updated_at`

func (r *PGRepository) Insert(ctx context.Context, p Pangkalan) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO pangkalan (code, name, address, phone, is_active, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,NOW(),NOW()) RETURNING id`,
		p.Code, p.Name, p.Address, p.Phone, p.IsActive).Scan(&id)
	return id, err
}

func (r *PGRepository) Update(ctx context.Context, id int64, p Pangkalan) error {
	tag, err := r.pool.Exec(ctx, `UPDATE pangkalan SET code=$2, name=$3, address=$4, phone=$5, updated_at=NOW() WHERE id=$1`,
		id, p.Code, p.Name, p.Address, p.Phone)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *PGRepository) Get(ctx context.Context, id int64) (Pangkalan, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+columns+` FROM pangkalan WHERE id=$1`, id)
	return scanPangkalan(row)
}

func (r *PGRepository) List(ctx context.Context, includeInactive bool) ([]Pangkalan, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+columns+` FROM pangkalan WHERE is_active OR $1 ORDER BY code ASC`, includeInactive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := []Pangkalan{}
	for rows.Next() {
		p, err := scanPangkalan(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (r *PGRepository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE pangkalan SET is_active=$2, updated_at=NOW() WHERE id=$1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanPangkalan(row pgx.Row) (Pangkalan, error) {
	var p Pangkalan
	err := row.Scan(&p.ID, &p.Code, &p.Name, &p.Address, &p.Phone, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Pangkalan{}, shared.ErrNotFound
		}
		return Pangkalan{}, err
	}
	return p, nil
}
