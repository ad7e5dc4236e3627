package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// OrderRepository define el puerto de persistencia para órdenes.
type OrderRepository interface {
	Create(ctx context.Context, order *entity.Order) error
	GetByID(ctx context.Context, companyID, id string) (*entity.Order, error)
	ListByImportBatch(ctx context.Context, companyID, importBatchID string) ([]*entity.Order, error)
	Update(ctx context.Context, order *entity.Order) error
	Delete(ctx context.Context, companyID, id string) error
}

// OrderLineRepository define el puerto de persistencia para líneas de orden.
type OrderLineRepository interface {
	Create(ctx context.Context, line *entity.OrderLine) error
	GetByID(ctx context.Context, companyID, id string) (*entity.OrderLine, error)
	ListByOrder(ctx context.Context, companyID, orderID string) ([]*entity.OrderLine, error)
	Update(ctx context.Context, line *entity.OrderLine) error
	DeleteByOrder(ctx context.Context, companyID, orderID string) error
}
