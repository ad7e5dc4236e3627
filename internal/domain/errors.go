package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrInvalidInput      = errors.New("entrada inválida")
	ErrDuplicate         = errors.New("recurso duplicado")
	ErrUnauthorized      = errors.New("no autorizado")
	ErrForbidden         = errors.New("acceso denegado")
	ErrConflict          = errors.New("conflicto con el estado actual")
	ErrInsufficientStock = errors.New("stock insuficiente")
	ErrInvalidTransition = errors.New("transición de estado no permitida")
	ErrLedgerConflict    = errors.New("conflicto en el libro de stock")
	ErrVersionConflict   = errors.New("la versión del registro cambió")
	ErrRateLimited       = errors.New("límite de peticiones excedido")
	ErrChoiceRequired    = errors.New("se requiere elegir cómo tratar el stock")
	ErrBatchInProgress   = errors.New("ya hay un lote en ejecución para esta empresa")
	ErrVerifyMismatch    = errors.New("la lectura posterior no coincide con lo escrito")
)

// Shortage describe un SKU sin stock suficiente para una orden.
type Shortage struct {
	SKUID     string `json:"sku_id"`
	SKUCode   string `json:"sku_code"`
	Needed    int64  `json:"needed"`
	Available int64  `json:"available"`
}

// ValidationError rechazo previo a cualquier escritura. Siempre recuperable y se muestra tal cual.
// Kind es el sentinel de la causa (ErrInvalidInput, ErrInsufficientStock, ErrNotFound...).
type ValidationError struct {
	Kind      error
	Message   string
	Shortages []Shortage
}

func (e *ValidationError) Error() string {
	if len(e.Shortages) == 0 {
		return e.Message
	}
	codes := make([]string, 0, len(e.Shortages))
	for _, s := range e.Shortages {
		label := s.SKUCode
		if label == "" {
			label = s.SKUID
		}
		codes = append(codes, fmt.Sprintf("%s (requiere %d, disponible %d)", label, s.Needed, s.Available))
	}
	return e.Message + ": " + strings.Join(codes, ", ")
}

func (e *ValidationError) Unwrap() error {
	if e.Kind == nil {
		return ErrInvalidInput
	}
	return e.Kind
}

// NewValidationError construye un ValidationError de entrada inválida.
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Kind: ErrInvalidInput, Message: fmt.Sprintf(format, args...)}
}

// InsufficientStockError rechazo de una orden completa nombrando los SKUs cortos.
func InsufficientStockError(shortages []Shortage) *ValidationError {
	return &ValidationError{
		Kind:      ErrInsufficientStock,
		Message:   "no se puede despachar: stock insuficiente",
		Shortages: shortages,
	}
}

// LedgerConflictError una lectura fresca mostró que el estado cambió bajo una operación en curso.
// Solo falla el ítem afectado; el lote continúa.
type LedgerConflictError struct {
	Entity   string // purchase_lot | current_stock
	ID       string
	Expected int64
	Actual   int64
	Cause    error
}

func (e *LedgerConflictError) Error() string {
	msg := fmt.Sprintf("conflicto en el libro de stock: %s %s esperaba %d, encontró %d", e.Entity, e.ID, e.Expected, e.Actual)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *LedgerConflictError) Unwrap() error { return ErrLedgerConflict }

// IntegrityWarning advertencia no bloqueante: se presenta al usuario como una elección explícita.
type IntegrityWarning struct {
	SKUID              string `json:"sku_id"`
	CurrentAvailable   int64  `json:"current_available"`
	Delta              int64  `json:"delta"`
	ResultingAvailable int64  `json:"resulting_available"`
	Message            string `json:"message"`
}

// IsRateLimited indica si el error es transitorio por límite de peticiones (único reintentable).
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}
