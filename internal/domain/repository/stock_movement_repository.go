package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// StockMovementRepository define el puerto del libro de movimientos (solo inserción).
// Delete existe únicamente para deshacer una devolución.
type StockMovementRepository interface {
	Create(ctx context.Context, movement *entity.StockMovement) error
	BulkCreate(ctx context.Context, movements []*entity.StockMovement) error
	GetByID(ctx context.Context, companyID, id string) (*entity.StockMovement, error)
	ListBySKU(ctx context.Context, companyID, skuID string) ([]*entity.StockMovement, error)
	// SumBySKU suma con signo de las cantidades por SKU (conciliación).
	SumBySKU(ctx context.Context, companyID string) (map[string]int64, error)
	Delete(ctx context.Context, companyID, id string) error
}
