package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain"
)

// ReturnLineRequest línea a devolver con su condición física.
type ReturnLineRequest struct {
	LineID    string `json:"line_id" validate:"required"`
	Condition string `json:"condition" validate:"required,oneof=sound damaged missing"`
}

// ProcessReturnRequest body para POST /api/orders/:id/returns.
type ProcessReturnRequest struct {
	Lines []ReturnLineRequest `json:"lines" validate:"required,min=1,dive"`
}

// LotConsumptionDTO unidades tomadas de un lote.
type LotConsumptionDTO struct {
	LotID    string          `json:"lot_id"`
	Quantity int64           `json:"quantity"`
	UnitCost decimal.Decimal `json:"unit_cost"`
	Cost     decimal.Decimal `json:"cost"`
}

// LineCostDTO costo FIFO de una línea.
type LineCostDTO struct {
	LineID        string              `json:"line_id"`
	SKUID         string              `json:"sku_id"`
	Quantity      int64               `json:"quantity"`
	UnitCost      decimal.Decimal     `json:"unit_cost"`
	LineTotalCost decimal.Decimal     `json:"line_total_cost"`
	ShortfallQty  int64               `json:"shortfall_qty"`
	Consumption   []LotConsumptionDTO `json:"consumption"`
}

// CostPreviewResponse respuesta de GET /api/orders/:id/cost-preview.
// Shortages presente cuando el despacho sería rechazado.
type CostPreviewResponse struct {
	OrderID             string            `json:"order_id"`
	TotalCost           decimal.Decimal   `json:"total_cost"`
	NetRevenue          decimal.Decimal   `json:"net_revenue"`
	ProfitLoss          decimal.Decimal   `json:"profit_loss"`
	ProfitMarginPercent *decimal.Decimal  `json:"profit_margin_percent"`
	Lines               []LineCostDTO     `json:"lines"`
	Shortages           []domain.Shortage `json:"shortages,omitempty"`
}

// OrderResponse estado de una orden tras despachar o devolver.
type OrderResponse struct {
	ID                  string           `json:"id"`
	OrderNumber         string           `json:"order_number"`
	Status              string           `json:"status"`
	NetRevenue          decimal.Decimal  `json:"net_revenue"`
	TotalCost           decimal.Decimal  `json:"total_cost"`
	ProfitLoss          decimal.Decimal  `json:"profit_loss"`
	ProfitMarginPercent *decimal.Decimal `json:"profit_margin_percent"`
	FulfilledAt         *time.Time       `json:"fulfilled_at,omitempty"`
}

// UndoReturnResponse orden tras deshacer una devolución.
type UndoReturnResponse struct {
	MovementID string        `json:"movement_id"`
	Order      OrderResponse `json:"order"`
}
