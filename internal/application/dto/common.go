package dto

import "github.com/jhoicas/stock-ledger/internal/domain"

// ErrorResponse cuerpo de error HTTP. Shortages acompaña a INSUFFICIENT_STOCK.
type ErrorResponse struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Shortages []domain.Shortage `json:"shortages,omitempty"`
}
