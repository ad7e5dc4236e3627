package entity

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain"
)

// PurchaseLot lote de compra: una cantidad comprada a un costo unitario en una fecha.
// Se consume en orden FIFO. QuantityPurchased es inmutable tras la creación.
type PurchaseLot struct {
	ID                string
	CompanyID         string
	SKUID             string
	ImportBatchID     string // vacío si se registró manualmente
	PurchaseDate      time.Time
	CostPerUnit       decimal.Decimal
	QuantityPurchased int64
	QuantityRemaining int64
	Version           int64 // control optimista (CAS) de QuantityRemaining
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Validate comprueba 0 ≤ QuantityRemaining ≤ QuantityPurchased y costo no negativo.
func (l *PurchaseLot) Validate() error {
	if l.CompanyID == "" || l.SKUID == "" {
		return domain.NewValidationError("el lote requiere empresa y SKU")
	}
	if l.QuantityPurchased <= 0 {
		return domain.NewValidationError("cantidad comprada inválida: %d", l.QuantityPurchased)
	}
	if l.QuantityRemaining < 0 || l.QuantityRemaining > l.QuantityPurchased {
		return domain.NewValidationError("cantidad restante %d fuera de rango [0, %d]", l.QuantityRemaining, l.QuantityPurchased)
	}
	if l.CostPerUnit.IsNegative() {
		return domain.NewValidationError("costo unitario negativo")
	}
	return nil
}
