package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus estado de una orden; solo lo cambia la máquina de estados de despacho.
type OrderStatus string

const (
	OrderStatusPending           OrderStatus = "pending"
	OrderStatusFulfilled         OrderStatus = "fulfilled"
	OrderStatusPartiallyReturned OrderStatus = "partially_returned"
	OrderStatusFullyReturned     OrderStatus = "fully_returned"
)

// IsValid indica si el estado es conocido.
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusFulfilled, OrderStatusPartiallyReturned, OrderStatusFullyReturned:
		return true
	}
	return false
}

// Order cabecera de una orden de venta.
type Order struct {
	ID                  string
	CompanyID           string
	OrderNumber         string
	ImportBatchID       string
	Status              OrderStatus
	NetRevenue          decimal.Decimal
	TotalCost           decimal.Decimal
	ProfitLoss          decimal.Decimal
	ProfitMarginPercent *decimal.Decimal // nil si NetRevenue es cero
	FulfilledAt         *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// OrderLine línea de una orden. UnitCost y LineTotalCost los calcula el asignador FIFO al despachar.
type OrderLine struct {
	ID              string
	CompanyID       string
	OrderID         string
	SKUID           string
	Quantity        int64
	UnitCost        decimal.Decimal
	LineTotalCost   decimal.Decimal
	IsReturned      bool
	ReturnDate      *time.Time
	ReturnCondition ReturnCondition
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
