package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// SKURepository define el puerto de persistencia para SKU (DIP).
// GetByID y GetByCode devuelven nil, nil si no existe.
type SKURepository interface {
	Create(ctx context.Context, sku *entity.SKU) error
	GetByID(ctx context.Context, companyID, id string) (*entity.SKU, error)
	GetByCode(ctx context.Context, companyID, code string) (*entity.SKU, error)
	ListByIDs(ctx context.Context, companyID string, ids []string) ([]*entity.SKU, error)
	// AdjustDamagedStock suma delta al stock dañado y devuelve el nuevo valor.
	AdjustDamagedStock(ctx context.Context, companyID, id string, delta int64) (int64, error)
}
