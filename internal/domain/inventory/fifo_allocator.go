package inventory

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// LotConsumption cantidad tomada de un lote y su costo.
type LotConsumption struct {
	LotID    string
	Quantity int64
	UnitCost decimal.Decimal
	Cost     decimal.Decimal
}

// Allocation plan de consumo FIFO para un SKU (servicio de dominio, sin efectos).
// LineCost incluye el faltante costeado a SKU.CostPrice.
type Allocation struct {
	SKUID         string
	Quantity      int64
	LineCost      decimal.Decimal
	Consumption   []LotConsumption
	ShortfallQty  int64
	ShortfallCost decimal.Decimal
}

// ConsumedFromLots unidades cubiertas por lotes (Quantity - ShortfallQty).
func (a *Allocation) ConsumedFromLots() int64 {
	return a.Quantity - a.ShortfallQty
}

// Allocate recorre los lotes del más antiguo al más reciente tomando min(restante, lote.QuantityRemaining).
// Empates de fecha se resuelven por ID de lote ascendente. No modifica los lotes recibidos.
func Allocate(sku *entity.SKU, quantityNeeded int64, lots []*entity.PurchaseLot) (*Allocation, error) {
	if sku == nil {
		return nil, domain.NewValidationError("SKU requerido")
	}
	if quantityNeeded <= 0 {
		return nil, domain.NewValidationError("cantidad a consumir inválida: %d", quantityNeeded)
	}

	ordered := make([]*entity.PurchaseLot, 0, len(lots))
	for _, lot := range lots {
		if lot == nil {
			continue
		}
		if lot.CompanyID != sku.CompanyID || lot.SKUID != sku.ID {
			return nil, domain.NewValidationError("el lote %s no pertenece al SKU %s", lot.ID, sku.Code)
		}
		if lot.QuantityRemaining <= 0 {
			continue
		}
		ordered = append(ordered, lot)
	}
	SortFIFO(ordered)

	alloc := &Allocation{SKUID: sku.ID, Quantity: quantityNeeded, LineCost: decimal.Zero, ShortfallCost: decimal.Zero}
	remaining := quantityNeeded
	for _, lot := range ordered {
		if remaining == 0 {
			break
		}
		take := min(remaining, lot.QuantityRemaining)
		cost := lot.CostPerUnit.Mul(decimal.NewFromInt(take))
		alloc.Consumption = append(alloc.Consumption, LotConsumption{
			LotID:    lot.ID,
			Quantity: take,
			UnitCost: lot.CostPerUnit,
			Cost:     cost,
		})
		alloc.LineCost = alloc.LineCost.Add(cost)
		remaining -= take
	}

	if remaining > 0 {
		// Sin historial suficiente: el faltante se costea al costo estático del SKU
		alloc.ShortfallQty = remaining
		alloc.ShortfallCost = sku.CostPrice.Mul(decimal.NewFromInt(remaining))
		alloc.LineCost = alloc.LineCost.Add(alloc.ShortfallCost)
	}
	return alloc, nil
}

// SortFIFO ordena por PurchaseDate ascendente y luego por ID.
func SortFIFO(lots []*entity.PurchaseLot) {
	sort.SliceStable(lots, func(i, j int) bool {
		a, b := lots[i], lots[j]
		if !a.PurchaseDate.Equal(b.PurchaseDate) {
			return a.PurchaseDate.Before(b.PurchaseDate)
		}
		return a.ID < b.ID
	})
}
