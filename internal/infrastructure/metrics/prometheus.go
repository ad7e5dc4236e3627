// Package metrics adaptador Prometheus de ports.MetricsRecorder.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/stock-ledger/internal/application/ports"
)

var _ ports.MetricsRecorder = (*Recorder)(nil)

// Recorder métricas del motor de stock registradas en un registry propio.
type Recorder struct {
	registry *prometheus.Registry

	batchItems      *prometheus.CounterVec
	ledgerConflicts *prometheus.CounterVec
	rateLimitRetry  *prometheus.CounterVec
	batchDuration   *prometheus.HistogramVec
}

// NewRecorder crea las métricas con el prefijo dado (ej. "stock_ledger").
func NewRecorder(prefix string) *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		batchItems: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_batch_items_total",
				Help: "Ítems procesados en corridas de lote",
			},
			[]string{"operation", "outcome"},
		),
		ledgerConflicts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_ledger_conflicts_total",
				Help: "Conflictos detectados al releer lotes o stock antes de escribir",
			},
			[]string{"entity"},
		),
		rateLimitRetry: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_rate_limit_retries_total",
				Help: "Reintentos por límite de peticiones del almacén",
			},
			[]string{"operation"},
		),
		batchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    prefix + "_batch_duration_seconds",
				Help:    "Duración de corridas de lote completas",
				Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) ItemProcessed(operation, outcome string) {
	r.batchItems.WithLabelValues(operation, outcome).Inc()
}

func (r *Recorder) LedgerConflict(entity string) {
	r.ledgerConflicts.WithLabelValues(entity).Inc()
}

func (r *Recorder) RateLimitRetry(operation string) {
	r.rateLimitRetry.WithLabelValues(operation).Inc()
}

func (r *Recorder) BatchFinished(operation string, d time.Duration) {
	r.batchDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// Registry para tests o para registrar colectores adicionales.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler expone el registry en formato de texto Prometheus.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
