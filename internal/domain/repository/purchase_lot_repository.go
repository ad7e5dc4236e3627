package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// PurchaseLotRepository define el puerto de persistencia para lotes de compra.
type PurchaseLotRepository interface {
	Create(ctx context.Context, lot *entity.PurchaseLot) error
	BulkCreate(ctx context.Context, lots []*entity.PurchaseLot) error
	GetByID(ctx context.Context, companyID, id string) (*entity.PurchaseLot, error)
	// ListAvailableBySKU lotes con QuantityRemaining > 0 del SKU.
	ListAvailableBySKU(ctx context.Context, companyID, skuID string) ([]*entity.PurchaseLot, error)
	ListByImportBatch(ctx context.Context, companyID, importBatchID string) ([]*entity.PurchaseLot, error)
	ListByCompany(ctx context.Context, companyID string) ([]*entity.PurchaseLot, error)
	// UpdateRemaining escribe QuantityRemaining solo si Version == expectedVersion (CAS).
	// Devuelve el lote actualizado o domain.ErrVersionConflict.
	UpdateRemaining(ctx context.Context, companyID, id string, remaining, expectedVersion int64) (*entity.PurchaseLot, error)
	Delete(ctx context.Context, companyID, id string) error
}
