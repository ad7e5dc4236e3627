package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.SKURepository = (*SKURepo)(nil)

// SKURepo implementación de SKURepository sobre PostgreSQL (usable con pool o tx).
type SKURepo struct {
	q Querier
}

// NewSKURepository construye el adaptador de SKU. Pasar pool o tx (Querier).
func NewSKURepository(q Querier) *SKURepo {
	return &SKURepo{q: q}
}

const skuColumns = `id, company_id, code, name, cost_price, damaged_stock, created_at, updated_at`

func scanSKU(row interface{ Scan(...any) error }) (*entity.SKU, error) {
	var s entity.SKU
	err := row.Scan(&s.ID, &s.CompanyID, &s.Code, &s.Name, &s.CostPrice, &s.DamagedStock, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Create inserta un SKU. Código repetido en la empresa → domain.ErrDuplicate.
func (r *SKURepo) Create(ctx context.Context, sku *entity.SKU) error {
	if sku.ID == "" {
		sku.ID = uuid.New().String()
	}
	now := time.Now()
	sku.CreatedAt, sku.UpdatedAt = now, now
	_, err := r.q.Exec(ctx, `
		INSERT INTO skus (`+skuColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		sku.ID, sku.CompanyID, sku.Code, sku.Name, sku.CostPrice, sku.DamagedStock, sku.CreatedAt, sku.UpdatedAt,
	)
	return wrap("create sku", err)
}

func (r *SKURepo) GetByID(ctx context.Context, companyID, id string) (*entity.SKU, error) {
	s, err := scanSKU(r.q.QueryRow(ctx, `SELECT `+skuColumns+` FROM skus WHERE company_id = $1 AND id = $2`, companyID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrap("get sku", err)
	}
	return s, nil
}

func (r *SKURepo) GetByCode(ctx context.Context, companyID, code string) (*entity.SKU, error) {
	s, err := scanSKU(r.q.QueryRow(ctx, `SELECT `+skuColumns+` FROM skus WHERE company_id = $1 AND code = $2`, companyID, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrap("get sku by code", err)
	}
	return s, nil
}

func (r *SKURepo) ListByIDs(ctx context.Context, companyID string, ids []string) ([]*entity.SKU, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.q.Query(ctx, `SELECT `+skuColumns+` FROM skus WHERE company_id = $1 AND id = ANY($2) ORDER BY code`, companyID, ids)
	if err != nil {
		return nil, wrap("list skus", err)
	}
	defer rows.Close()
	var list []*entity.SKU
	for rows.Next() {
		s, err := scanSKU(rows)
		if err != nil {
			return nil, wrap("scan sku", err)
		}
		list = append(list, s)
	}
	return list, wrap("list skus", rows.Err())
}

// AdjustDamagedStock suma delta en una sola sentencia y devuelve el nuevo valor.
func (r *SKURepo) AdjustDamagedStock(ctx context.Context, companyID, id string, delta int64) (int64, error) {
	var out int64
	err := r.q.QueryRow(ctx, `
		UPDATE skus SET damaged_stock = damaged_stock + $3, updated_at = now()
		WHERE company_id = $1 AND id = $2
		RETURNING damaged_stock`, companyID, id, delta).Scan(&out)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrNotFound
		}
		return 0, wrap("adjust damaged stock", err)
	}
	return out, nil
}
