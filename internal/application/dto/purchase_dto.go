package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain"
)

// RecordPurchaseRequest body para POST /api/purchases.
type RecordPurchaseRequest struct {
	SKUID        string          `json:"sku_id" validate:"required"`
	PurchaseDate time.Time       `json:"purchase_date" validate:"required"`
	CostPerUnit  decimal.Decimal `json:"cost_per_unit"`
	Quantity     int64           `json:"quantity" validate:"gt=0"`
}

// PurchaseImportRow fila cruda extraída de un CSV/XLSX. Line es el número de fila en el archivo.
type PurchaseImportRow struct {
	Line         int    `json:"line"`
	SKUCode      string `json:"sku_code" validate:"required"`
	PurchaseDate string `json:"purchase_date" validate:"required,datetime=2006-01-02"`
	CostPerUnit  string `json:"cost_per_unit" validate:"required,numeric"`
	Quantity     string `json:"quantity" validate:"required,number"`
}

// ImportRowError fila rechazada en una importación.
type ImportRowError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// ImportPurchasesResponse resultado de POST /api/purchases/import.
type ImportPurchasesResponse struct {
	ImportBatchID string           `json:"import_batch_id"`
	Created       int              `json:"created"`
	Rejected      []ImportRowError `json:"rejected"`
}

// PurchaseLotResponse lote de compra.
type PurchaseLotResponse struct {
	ID                string          `json:"id"`
	SKUID             string          `json:"sku_id"`
	ImportBatchID     string          `json:"import_batch_id,omitempty"`
	PurchaseDate      time.Time       `json:"purchase_date"`
	CostPerUnit       decimal.Decimal `json:"cost_per_unit"`
	QuantityPurchased int64           `json:"quantity_purchased"`
	QuantityRemaining int64           `json:"quantity_remaining"`
}

// LotDeletionPreviewResponse se devuelve con 409 cuando falta elegir deduct|keep.
type LotDeletionPreviewResponse struct {
	Code             string                   `json:"code"`
	Message          string                   `json:"message"`
	LotID            string                   `json:"lot_id"`
	CurrentAvailable int64                    `json:"current_available"`
	DeductQuantity   int64                    `json:"deduct_quantity"`
	Options          []string                 `json:"options"`
	Warning          *domain.IntegrityWarning `json:"warning,omitempty"`
}
