package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.CurrentStockRepository = (*CurrentStockRepo)(nil)

// CurrentStockRepo contador agregado por (empresa, SKU). Sin SELECT FOR UPDATE: la escritura es
// condicional a la versión leída.
type CurrentStockRepo struct {
	q Querier
}

// NewCurrentStockRepository construye el adaptador. Pasar pool o tx (Querier).
func NewCurrentStockRepository(q Querier) *CurrentStockRepo {
	return &CurrentStockRepo{q: q}
}

// Get devuelve cero con Version 0 si la fila no existe.
func (r *CurrentStockRepo) Get(ctx context.Context, companyID, skuID string) (*entity.CurrentStock, error) {
	var s entity.CurrentStock
	err := r.q.QueryRow(ctx, `
		SELECT company_id, sku_id, quantity_available, version, updated_at
		FROM current_stock WHERE company_id = $1 AND sku_id = $2`, companyID, skuID).Scan(
		&s.CompanyID, &s.SKUID, &s.QuantityAvailable, &s.Version, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &entity.CurrentStock{CompanyID: companyID, SKUID: skuID}, nil
		}
		return nil, wrap("get current stock", err)
	}
	return &s, nil
}

// Save inserta la fila (expectedVersion 0) o la actualiza si la versión coincide.
func (r *CurrentStockRepo) Save(ctx context.Context, stock *entity.CurrentStock, expectedVersion int64) (*entity.CurrentStock, error) {
	var (
		out entity.CurrentStock
		err error
	)
	if expectedVersion == 0 {
		err = r.q.QueryRow(ctx, `
			INSERT INTO current_stock (company_id, sku_id, quantity_available, version, updated_at)
			VALUES ($1, $2, $3, 1, now())
			ON CONFLICT (company_id, sku_id) DO NOTHING
			RETURNING company_id, sku_id, quantity_available, version, updated_at`,
			stock.CompanyID, stock.SKUID, stock.QuantityAvailable,
		).Scan(&out.CompanyID, &out.SKUID, &out.QuantityAvailable, &out.Version, &out.UpdatedAt)
	} else {
		err = r.q.QueryRow(ctx, `
			UPDATE current_stock
			SET quantity_available = $3, version = version + 1, updated_at = now()
			WHERE company_id = $1 AND sku_id = $2 AND version = $4
			RETURNING company_id, sku_id, quantity_available, version, updated_at`,
			stock.CompanyID, stock.SKUID, stock.QuantityAvailable, expectedVersion,
		).Scan(&out.CompanyID, &out.SKUID, &out.QuantityAvailable, &out.Version, &out.UpdatedAt)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrVersionConflict
		}
		return nil, wrap("save current stock", err)
	}
	return &out, nil
}

func (r *CurrentStockRepo) ListByCompany(ctx context.Context, companyID string) ([]*entity.CurrentStock, error) {
	rows, err := r.q.Query(ctx, `
		SELECT company_id, sku_id, quantity_available, version, updated_at
		FROM current_stock WHERE company_id = $1 ORDER BY sku_id`, companyID)
	if err != nil {
		return nil, wrap("list current stock", err)
	}
	defer rows.Close()
	var list []*entity.CurrentStock
	for rows.Next() {
		var s entity.CurrentStock
		if err := rows.Scan(&s.CompanyID, &s.SKUID, &s.QuantityAvailable, &s.Version, &s.UpdatedAt); err != nil {
			return nil, wrap("scan current stock", err)
		}
		list = append(list, &s)
	}
	return list, wrap("list current stock", rows.Err())
}
