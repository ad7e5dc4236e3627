package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// SKU producto del catálogo de una empresa.
// CostPrice es el costo unitario de respaldo cuando no hay lotes de compra que cubran un consumo.
type SKU struct {
	ID           string
	CompanyID    string
	Code         string // único por empresa
	Name         string
	CostPrice    decimal.Decimal
	DamagedStock int64 // unidades devueltas en mal estado
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
