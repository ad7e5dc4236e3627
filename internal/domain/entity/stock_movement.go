package entity

import "time"

// MovementType tipo de movimiento del libro de stock.
type MovementType string

const (
	MovementTypePurchase         MovementType = "purchase"
	MovementTypeOrderFulfillment MovementType = "order_fulfillment"
	MovementTypeReturn           MovementType = "return"
	MovementTypeBatchDelete      MovementType = "batch_delete"
	MovementTypeManual           MovementType = "manual"
)

// Tipos de referencia para trazabilidad del movimiento.
const (
	ReferenceTypeOrderLine = "order_line"
	ReferenceTypePurchase  = "purchase"
)

// ReturnCondition estado físico de una unidad devuelta.
type ReturnCondition string

const (
	ReturnConditionNone    ReturnCondition = ""
	ReturnConditionSound   ReturnCondition = "sound"   // vuelve al stock disponible
	ReturnConditionDamaged ReturnCondition = "damaged" // va a stock dañado del SKU
	ReturnConditionMissing ReturnCondition = "missing" // pérdida total, sin efecto en stock
)

// IsValid indica si la condición es una de sound, damaged o missing.
func (c ReturnCondition) IsValid() bool {
	return c == ReturnConditionSound || c == ReturnConditionDamaged || c == ReturnConditionMissing
}

// StockMovement evento inmutable con cantidad con signo: negativo consumo, positivo entrada.
// Solo se elimina al deshacer la devolución que lo originó.
type StockMovement struct {
	ID              string
	CompanyID       string
	SKUID           string
	Type            MovementType
	Quantity        int64
	ReferenceType   string
	ReferenceID     string
	ReturnCondition ReturnCondition // solo para movimientos de devolución
	MovementDate    time.Time
	Notes           string
	CreatedAt       time.Time
	CreatedBy       string
}
