package ports

import "time"

// MetricsRecorder puerto de salida para métricas del motor de stock.
// El adaptador Prometheus vive en infrastructure/metrics; NopMetrics sirve para tests.
type MetricsRecorder interface {
	// ItemProcessed cuenta un ítem de lote por operación y resultado (success|failure).
	ItemProcessed(operation, outcome string)
	// LedgerConflict cuenta conflictos detectados en lectura fresca (purchase_lot|current_stock).
	LedgerConflict(entity string)
	// RateLimitRetry cuenta reintentos por límite de peticiones.
	RateLimitRetry(operation string)
	// BatchFinished registra la duración de una corrida completa.
	BatchFinished(operation string, d time.Duration)
}

// NopMetrics implementación vacía.
type NopMetrics struct{}

func (NopMetrics) ItemProcessed(string, string)        {}
func (NopMetrics) LedgerConflict(string)               {}
func (NopMetrics) RateLimitRetry(string)               {}
func (NopMetrics) BatchFinished(string, time.Duration) {}
