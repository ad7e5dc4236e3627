package inventory

import "github.com/shopspring/decimal"

// UnitCost costo unitario promedio de una línea: CostoLínea / Cantidad, redondeado a 4 decimales.
func UnitCost(lineCost decimal.Decimal, qty int64) decimal.Decimal {
	if qty <= 0 {
		return decimal.Zero
	}
	return lineCost.Div(decimal.NewFromInt(qty)).Round(4)
}

// ComputeProfit utilidad = ingreso neto - costo total; margen = utilidad / ingreso * 100.
// Con ingreso cero el margen es nil.
func ComputeProfit(netRevenue, totalCost decimal.Decimal) (profit decimal.Decimal, marginPct *decimal.Decimal) {
	profit = netRevenue.Sub(totalCost)
	if netRevenue.IsZero() {
		return profit, nil
	}
	m := profit.Div(netRevenue).Mul(decimal.NewFromInt(100)).Round(2)
	return profit, &m
}
