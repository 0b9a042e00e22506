package metrics

import "github.com/prometheus/client_golang/prometheus"

// CartMetrics counts background cart persistence outcomes per backend.
type CartMetrics struct {
	persistFailures *prometheus.CounterVec
	persistWrites   *prometheus.CounterVec
}

func NewCartMetrics(reg prometheus.Registerer) *CartMetrics {
	if reg == nil {
		return &CartMetrics{}
	}
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_persist_failures_total",
		Help: "Cart snapshots that failed to persist.",
	}, []string{"backend"})
	writes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_persist_writes_total",
		Help: "Cart snapshots written to the backend.",
	}, []string{"backend"})
	reg.MustRegister(failures, writes)
	return &CartMetrics{persistFailures: failures, persistWrites: writes}
}

func (m *CartMetrics) IncPersistFailure(backend string) {
	if m == nil || m.persistFailures == nil {
		return
	}
	m.persistFailures.WithLabelValues(normalizeLabel(backend)).Inc()
}

func (m *CartMetrics) IncPersistWrite(backend string) {
	if m == nil || m.persistWrites == nil {
		return
	}
	m.persistWrites.WithLabelValues(normalizeLabel(backend)).Inc()
}

// UploadMetrics counts relay outcomes such as stored, rejected or compensated.
type UploadMetrics struct {
	outcomes *prometheus.CounterVec
	bytes    prometheus.Counter
}

const (
	UploadOutcomeStored      = "stored"
	UploadOutcomeRejected    = "rejected"
	UploadOutcomeFailed      = "failed"
	UploadOutcomeCompensated = "compensated"
)

func NewUploadMetrics(reg prometheus.Registerer) *UploadMetrics {
	if reg == nil {
		return &UploadMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "uploads_total",
		Help: "Upload relay attempts by outcome.",
	}, []string{"outcome"})
	bytes := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "upload_bytes_total",
		Help: "Bytes relayed into object storage.",
	})
	reg.MustRegister(outcomes, bytes)
	return &UploadMetrics{outcomes: outcomes, bytes: bytes}
}

func (m *UploadMetrics) Inc(outcome string) {
	if m == nil || m.outcomes == nil {
		return
	}
	m.outcomes.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *UploadMetrics) AddBytes(n int64) {
	if m == nil || m.bytes == nil || n <= 0 {
		return
	}
	m.bytes.Add(float64(n))
}
