package dto

// StartBatchRequest body para POST /api/batches.
// DeletionMode solo aplica (y es obligatorio) en delete_purchases y delete_purchase_import.
// Los ítems no pueden repetirse.
type StartBatchRequest struct {
	Operation    string   `json:"operation" validate:"required,oneof=fulfill_orders delete_orders delete_import_batch delete_purchases delete_purchase_import"`
	ItemIDs      []string `json:"item_ids" validate:"required,min=1,unique,dive,required"`
	DeletionMode string   `json:"deletion_mode,omitempty" validate:"omitempty,oneof=deduct keep"`
}

// StartBatchResponse respuesta 202 con el identificador de la corrida.
type StartBatchResponse struct {
	RunID string `json:"run_id"`
	Total int    `json:"total"`
}
