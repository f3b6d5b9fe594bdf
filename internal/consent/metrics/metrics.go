package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for the consent engine.
type Metrics struct {
	Decisions         *prometheus.CounterVec
	ReconsentTriggers *prometheus.CounterVec
	AutoOptOuts       *prometheus.CounterVec
	InvalidPayloads   prometheus.Counter
	ActiveSessions    prometheus.Gauge
}

// New registers and returns consent metrics collectors.
func New() *Metrics {
	return &Metrics{
		Decisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "custos_consent_decisions_total",
			Help: "Consent mutations, labeled by action",
		}, []string{"action"}),
		ReconsentTriggers: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "custos_consent_reconsent_triggers_total",
			Help: "Stored decisions invalidated at load, labeled by reason",
		}, []string{"reason"}),
		AutoOptOuts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "custos_consent_auto_opt_outs_total",
			Help: "Automatic necessary-only decisions, labeled by signal",
		}, []string{"signal"}),
		InvalidPayloads: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custos_consent_invalid_payloads_total",
			Help: "Stored payloads rejected by sanitization",
		}),
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "custos_consent_active_sessions",
			Help: "Visitor sessions currently held in memory",
		}),
	}
}

// IncrementDecision records one consent mutation by action.
func (m *Metrics) IncrementDecision(action string) {
	m.Decisions.WithLabelValues(action).Inc()
}

// IncrementReconsent records one invalidated stored decision by reason.
func (m *Metrics) IncrementReconsent(reason string) {
	m.ReconsentTriggers.WithLabelValues(reason).Inc()
}

// IncrementAutoOptOut records one signal-driven automatic decision.
func (m *Metrics) IncrementAutoOptOut(signal string) {
	m.AutoOptOuts.WithLabelValues(signal).Inc()
}
