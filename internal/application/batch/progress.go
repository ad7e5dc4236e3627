// Package batch coordina operaciones sobre muchos ítems (despacho y eliminación) con progreso
// observable. Ningún ítem aborta la corrida y no hay rollback: cada ítem recibe su resultado.
package batch

import (
	"context"
	"time"

	appinv "github.com/jhoicas/stock-ledger/internal/application/inventory"
)

// Operation tipo de operación de lote.
type Operation string

const (
	OperationFulfillOrders     Operation = "fulfill_orders"
	OperationDeleteOrders      Operation = "delete_orders"
	OperationDeleteImportBatch Operation = "delete_import_batch"
	OperationDeletePurchases   Operation = "delete_purchases"
	// OperationDeletePurchaseImport expande cada lote de importación de compras a sus lotes.
	OperationDeletePurchaseImport Operation = "delete_purchase_import"
)

// IsValid indica si la operación es conocida.
func (o Operation) IsValid() bool {
	switch o {
	case OperationFulfillOrders, OperationDeleteOrders, OperationDeleteImportBatch,
		OperationDeletePurchases, OperationDeletePurchaseImport:
		return true
	}
	return false
}

// deletesPurchases operaciones que exigen modo de eliminación de compras.
func (o Operation) deletesPurchases() bool {
	return o == OperationDeletePurchases || o == OperationDeletePurchaseImport
}

// Request corrida solicitada. PurchaseDeletionMode es obligatorio en delete_purchases y
// delete_purchase_import.
type Request struct {
	CompanyID            string
	UserID               string
	Operation            Operation
	ItemIDs              []string
	PurchaseDeletionMode appinv.DeletionMode
}

// LogEntry resultado de un ítem.
type LogEntry struct {
	Label   string `json:"label"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Progress instantánea de una corrida. Cada evento emitido es una copia independiente.
type Progress struct {
	RunID        string     `json:"run_id"`
	Operation    Operation  `json:"operation"`
	Current      int        `json:"current"`
	Total        int        `json:"total"`
	SuccessCount int        `json:"success_count"`
	FailCount    int        `json:"fail_count"`
	Log          []LogEntry `json:"log"`
	Done         bool       `json:"done"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

func (p *Progress) record(label string, err error) {
	p.Current++
	entry := LogEntry{Label: label, Success: err == nil}
	if err != nil {
		p.FailCount++
		entry.Error = err.Error()
	} else {
		p.SuccessCount++
	}
	p.Log = append(p.Log, entry)
}

// Snapshot copia profunda (Log incluido).
func (p Progress) Snapshot() Progress {
	out := p
	out.Log = append([]LogEntry(nil), p.Log...)
	if p.FinishedAt != nil {
		t := *p.FinishedAt
		out.FinishedAt = &t
	}
	return out
}

// ReportGenerator puerto de salida: documento imprimible de una corrida.
type ReportGenerator interface {
	GenerateReport(ctx context.Context, p Progress) ([]byte, error)
}
