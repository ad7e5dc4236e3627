package repository

// Repositories agrupa los puertos que consume el motor de stock.
type Repositories struct {
	SKUs       SKURepository
	Lots       PurchaseLotRepository
	Stock      CurrentStockRepository
	Orders     OrderRepository
	OrderLines OrderLineRepository
	Movements  StockMovementRepository
}
