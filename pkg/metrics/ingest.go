package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Resultados posibles de un documento en la ingesta.
const (
	OutcomeImported  = "imported"
	OutcomeDuplicate = "duplicate"
	OutcomeFailed    = "failed"
)

// IngestMetrics contadores e histogramas de la ingesta y del ledger.
// Todos los métodos aceptan receptor nil.
type IngestMetrics struct {
	documents *prometheus.CounterVec
	movements prometheus.Counter
	batch     prometheus.Histogram
	apply     prometheus.Histogram
	drift     prometheus.Gauge
}

// NewIngestMetrics registra las métricas en el registerer dado; nil devuelve un recolector inerte.
func NewIngestMetrics(reg prometheus.Registerer) *IngestMetrics {
	if reg == nil {
		return &IngestMetrics{}
	}
	documents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nfe_ingest_documents_total",
		Help: "Documentos procesados por resultado.",
	}, []string{"outcome"})
	movements := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nfe_ledger_movements_total",
		Help: "Movimientos escritos en el ledger.",
	})
	batch := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "nfe_ingest_batch_duration_seconds",
		Help:    "Duración de un lote de ingesta.",
		Buckets: prometheus.DefBuckets,
	})
	apply := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "nfe_ledger_apply_duration_seconds",
		Help:    "Duración de la transacción Apply.",
		Buckets: prometheus.DefBuckets,
	})
	drift := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "nfe_stock_projection_drift_products",
		Help: "Productos cuya proyección difiere del replay del ledger en la última verificación.",
	})
	reg.MustRegister(documents, movements, batch, apply, drift)
	return &IngestMetrics{documents: documents, movements: movements, batch: batch, apply: apply, drift: drift}
}

// IncDocument incrementa el contador del resultado dado.
func (m *IngestMetrics) IncDocument(outcome string) {
	if m == nil || m.documents == nil {
		return
	}
	m.documents.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// AddMovements suma movimientos escritos.
func (m *IngestMetrics) AddMovements(n int) {
	if m == nil || m.movements == nil {
		return
	}
	m.movements.Add(float64(n))
}

// ObserveBatch registra la duración de un lote.
func (m *IngestMetrics) ObserveBatch(d time.Duration) {
	if m == nil || m.batch == nil {
		return
	}
	m.batch.Observe(d.Seconds())
}

// ObserveApply registra la duración de una transacción Apply.
func (m *IngestMetrics) ObserveApply(d time.Duration) {
	if m == nil || m.apply == nil {
		return
	}
	m.apply.Observe(d.Seconds())
}

// SetDrift publica la cantidad de productos con diferencia.
func (m *IngestMetrics) SetDrift(n int) {
	if m == nil || m.drift == nil {
		return
	}
	m.drift.Set(float64(n))
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
