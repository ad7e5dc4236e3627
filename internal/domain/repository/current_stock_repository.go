package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// CurrentStockRepository puerto del contador agregado de stock por (empresa, SKU).
type CurrentStockRepository interface {
	// Get nunca devuelve nil: una fila inexistente se lee como cero con Version 0.
	Get(ctx context.Context, companyID, skuID string) (*entity.CurrentStock, error)
	// Save inserta (expectedVersion 0) o actualiza si la versión coincide; si no, domain.ErrVersionConflict.
	Save(ctx context.Context, stock *entity.CurrentStock, expectedVersion int64) (*entity.CurrentStock, error)
	ListByCompany(ctx context.Context, companyID string) ([]*entity.CurrentStock, error)
}
