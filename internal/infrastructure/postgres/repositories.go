package postgres

import "github.com/jhoicas/stock-ledger/internal/domain/repository"

// NewRepositories arma todos los puertos del motor sobre el mismo pool.
func NewRepositories(q Querier) repository.Repositories {
	return repository.Repositories{
		SKUs:       NewSKURepository(q),
		Lots:       NewPurchaseLotRepository(q),
		Stock:      NewCurrentStockRepository(q),
		Orders:     NewOrderRepository(q),
		OrderLines: NewOrderLineRepository(q),
		Movements:  NewStockMovementRepository(q),
	}
}
