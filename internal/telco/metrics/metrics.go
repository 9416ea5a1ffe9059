package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for telco_registry_operations_total.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Metrics provides observability for the telco registry.
// Tracks per-operation outcomes, critical path durations and directory size.
type Metrics struct {
	Operations        *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	Telcos            *prometheus.GaugeVec
}

// New creates a Metrics instance registered with reg. A nil reg falls back
// to the default Prometheus registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		Operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "telco_registry_operations_total",
			Help: "Total number of registry operations by outcome",
		}, []string{"operation", "outcome"}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "telco_registry_operation_duration_seconds",
			Help:    "Duration of registry operations including the durable commit",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation"}),
		Telcos: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "telco_registry_telcos",
			Help: "Number of telco records in the directory by verification status",
		}, []string{"status"}),
	}
}

// ObserveOperation records one operation outcome and its duration.
// Call with time.Now() taken at the start of the operation.
func (m *Metrics) ObserveOperation(operation, outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(operation, outcome).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// SetTelcoCounts publishes the directory size split by status.
func (m *Metrics) SetTelcoCounts(unverified, verified int) {
	if m == nil {
		return
	}
	m.Telcos.WithLabelValues("unverified").Set(float64(unverified))
	m.Telcos.WithLabelValues("verified").Set(float64(verified))
}
