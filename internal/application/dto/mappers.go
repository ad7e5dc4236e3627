package dto

import "github.com/jhoicas/stock-ledger/internal/domain/entity"

// OrderFromEntity respuesta HTTP de una orden.
func OrderFromEntity(o *entity.Order) OrderResponse {
	return OrderResponse{
		ID:                  o.ID,
		OrderNumber:         o.OrderNumber,
		Status:              string(o.Status),
		NetRevenue:          o.NetRevenue,
		TotalCost:           o.TotalCost,
		ProfitLoss:          o.ProfitLoss,
		ProfitMarginPercent: o.ProfitMarginPercent,
		FulfilledAt:         o.FulfilledAt,
	}
}

// LotFromEntity respuesta HTTP de un lote de compra.
func LotFromEntity(l *entity.PurchaseLot) PurchaseLotResponse {
	return PurchaseLotResponse{
		ID:                l.ID,
		SKUID:             l.SKUID,
		ImportBatchID:     l.ImportBatchID,
		PurchaseDate:      l.PurchaseDate,
		CostPerUnit:       l.CostPerUnit,
		QuantityPurchased: l.QuantityPurchased,
		QuantityRemaining: l.QuantityRemaining,
	}
}
