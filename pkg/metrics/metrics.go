package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics. A nil *Metrics is valid and turns
// every record method into a no-op, so packages under test need no registry.
type Metrics struct {
	// Ledger metrics
	LedgerAppends      *prometheus.CounterVec
	LedgerReads        *prometheus.CounterVec
	ChainVerifications *prometheus.CounterVec
	PatientChains      prometheus.Gauge

	// Emergency metrics
	EmergencyFiled       *prometheus.CounterVec
	EmergencyTransitions *prometheus.CounterVec

	// Outbox relay metrics
	OutboxEventsProcessed   prometheus.Counter
	OutboxEventsFailed      prometheus.Counter
	OutboxProcessingLatency prometheus.Histogram

	// Integrity sweep metrics
	IntegritySweeps prometheus.Counter
	TamperDetected  prometheus.Counter
}

// NewMetrics creates and registers all application metrics
func NewMetrics(namespace, subsystem string) *Metrics {
	return &Metrics{
		LedgerAppends: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "ledger_appends_total",
			Help:      "Total number of ledger append attempts by outcome",
		}, []string{"outcome"}),
		LedgerReads: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "ledger_reads_total",
			Help:      "Total number of history reads by outcome",
		}, []string{"outcome"}),
		ChainVerifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "chain_verifications_total",
			Help:      "Total number of chain verifications by result",
		}, []string{"result"}),
		PatientChains: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "patient_chains",
			Help:      "Number of patient chains held by the ledger",
		}),
		EmergencyFiled: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "emergencies_filed_total",
			Help:      "Total number of emergency requests filed by triage level",
		}, []string{"triage_level"}),
		EmergencyTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "emergency_transitions_total",
			Help:      "Total number of emergency status transitions",
		}, []string{"to_status"}),
		OutboxEventsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "outbox_events_processed_total",
			Help:      "Total number of successfully relayed outbox events",
		}),
		OutboxEventsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "outbox_events_failed_total",
			Help:      "Total number of outbox events that failed to relay",
		}),
		OutboxProcessingLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "outbox_processing_duration_seconds",
			Help:      "Time spent relaying outbox events",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		IntegritySweeps: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "integrity_sweeps_total",
			Help:      "Total number of completed integrity sweeps",
		}),
		TamperDetected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "chain_tamper_detected_total",
			Help:      "Total number of chains that failed verification",
		}),
	}
}

func (m *Metrics) RecordAppend(outcome string) {
	if m == nil {
		return
	}
	m.LedgerAppends.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordRead(outcome string) {
	if m == nil {
		return
	}
	m.LedgerReads.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordVerification(valid bool) {
	if m == nil {
		return
	}
	result := "valid"
	if !valid {
		result = "invalid"
	}
	m.ChainVerifications.WithLabelValues(result).Inc()
}

func (m *Metrics) SetPatientChains(n int) {
	if m == nil {
		return
	}
	m.PatientChains.Set(float64(n))
}

func (m *Metrics) RecordEmergencyFiled(level string) {
	if m == nil {
		return
	}
	m.EmergencyFiled.WithLabelValues(level).Inc()
}

func (m *Metrics) RecordEmergencyTransition(to string) {
	if m == nil {
		return
	}
	m.EmergencyTransitions.WithLabelValues(to).Inc()
}
