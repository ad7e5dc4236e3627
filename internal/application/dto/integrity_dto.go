package dto

// IntegrityIssueDTO SKU cuyo agregado no cuadra con el libro o con lotes fuera de rango.
type IntegrityIssueDTO struct {
	SKUID             string   `json:"sku_id"`
	SKUCode           string   `json:"sku_code"`
	QuantityAvailable int64    `json:"quantity_available"`
	MovementSum       int64    `json:"movement_sum"`
	Drift             int64    `json:"drift"`        // QuantityAvailable - MovementSum
	InvalidLots       []string `json:"invalid_lots"` // lotes fuera de 0 ≤ restante ≤ comprado
	NegativeStock     bool     `json:"negative_stock"`
}

// IntegrityReportDTO respuesta de GET /api/inventory/integrity.
type IntegrityReportDTO struct {
	CheckedSKUs int                 `json:"checked_skus"`
	Issues      []IntegrityIssueDTO `json:"issues"`
}
