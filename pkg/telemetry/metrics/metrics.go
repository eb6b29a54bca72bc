// Package metrics exposes Prometheus instrumentation for the warden
// pipeline: compilation, validation, ledger writes and live distribution.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Config contains metric naming configuration.
type Config struct {
	// Namespace prefixes every metric name. Default: "warden".
	Namespace string `yaml:"namespace"`

	// Subsystem is the optional second name component.
	Subsystem string `yaml:"subsystem"`
}

// DefaultConfig returns the default metrics configuration.
func DefaultConfig() *Config {
	return &Config{Namespace: "warden"}
}

// Metrics tracks the pipeline's operational counters.
//
// Metrics:
//   - warden_clauses_compiled_total: compiled rules by severity
//   - warden_clauses_skipped_total: clauses that failed compilation
//   - warden_events_evaluated_total: fact events evaluated by event type
//   - warden_evaluation_duration_seconds: per-event evaluation duration
//   - warden_violations_total: violations detected by rule and severity
//   - warden_ledger_appends_total: ledger append attempts by outcome
//   - warden_stream_subscribers: currently attached live subscribers
type Metrics struct {
	clausesCompiled *prometheus.CounterVec
	clausesSkipped  prometheus.Counter

	eventsEvaluated    *prometheus.CounterVec
	evaluationDuration *prometheus.HistogramVec

	violationsTotal *prometheus.CounterVec

	ledgerAppends     *prometheus.CounterVec
	streamSubscribers prometheus.Gauge
}

// New creates and registers the pipeline metrics with the provided registry.
func New(cfg *Config, registry *prometheus.Registry) *Metrics {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	m := &Metrics{
		clausesCompiled: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "clauses_compiled_total",
				Help:      "Total number of clause frames compiled into rules",
			},
			[]string{"severity"},
		),

		clausesSkipped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "clauses_skipped_total",
				Help:      "Total number of malformed clause frames skipped during compilation",
			},
		),

		eventsEvaluated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "events_evaluated_total",
				Help:      "Total number of fact events evaluated",
			},
			[]string{"event_type"},
		),

		evaluationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "evaluation_duration_seconds",
				Help:      "Duration of fact event evaluation in seconds",
				// Evaluation is a rule-set scan plus a bundle read.
				Buckets: prometheus.ExponentialBuckets(0.00001, 2, 15), // 10µs to 160ms
			},
			[]string{"event_type"},
		),

		violationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "violations_total",
				Help:      "Total number of violations detected",
			},
			[]string{"rule_id", "severity"},
		),

		ledgerAppends: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "ledger_appends_total",
				Help:      "Total number of ledger append attempts",
			},
			[]string{"outcome"},
		),

		streamSubscribers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "stream_subscribers",
				Help:      "Number of currently attached live subscribers",
			},
		),
	}

	registry.MustRegister(
		m.clausesCompiled,
		m.clausesSkipped,
		m.eventsEvaluated,
		m.evaluationDuration,
		m.violationsTotal,
		m.ledgerAppends,
		m.streamSubscribers,
	)

	return m
}

// RecordCompiled records one successfully compiled rule.
func (m *Metrics) RecordCompiled(severity string) {
	m.clausesCompiled.WithLabelValues(severity).Inc()
}

// RecordSkipped records one clause that failed compilation.
func (m *Metrics) RecordSkipped() {
	m.clausesSkipped.Inc()
}

// RecordEvaluation records one fact event evaluation.
func (m *Metrics) RecordEvaluation(eventType string, duration time.Duration) {
	m.eventsEvaluated.WithLabelValues(eventType).Inc()
	m.evaluationDuration.WithLabelValues(eventType).Observe(duration.Seconds())
}

// RecordViolation records one detected violation.
func (m *Metrics) RecordViolation(ruleID, severity string) {
	m.violationsTotal.WithLabelValues(ruleID, severity).Inc()
}

// RecordLedgerAppend records a ledger append attempt.
func (m *Metrics) RecordLedgerAppend(outcome string) {
	m.ledgerAppends.WithLabelValues(outcome).Inc()
}

// SetStreamSubscribers updates the live subscriber gauge.
func (m *Metrics) SetStreamSubscribers(n int) {
	m.streamSubscribers.Set(float64(n))
}
