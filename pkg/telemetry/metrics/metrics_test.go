package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsRecording(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(nil, registry)

	m.RecordCompiled("HIGH")
	m.RecordCompiled("HIGH")
	m.RecordCompiled("MEDIUM")
	m.RecordSkipped()
	m.RecordEvaluation("fee_post", 2*time.Millisecond)
	m.RecordViolation("R-c1", "HIGH")
	m.RecordLedgerAppend("ok")
	m.SetStreamSubscribers(2)

	if got := testutil.ToFloat64(m.clausesCompiled.WithLabelValues("HIGH")); got != 2 {
		t.Errorf("clauses_compiled_total{severity=HIGH} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.clausesSkipped); got != 1 {
		t.Errorf("clauses_skipped_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.eventsEvaluated.WithLabelValues("fee_post")); got != 1 {
		t.Errorf("events_evaluated_total{event_type=fee_post} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.violationsTotal.WithLabelValues("R-c1", "HIGH")); got != 1 {
		t.Errorf("violations_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ledgerAppends.WithLabelValues("ok")); got != 1 {
		t.Errorf("ledger_appends_total{outcome=ok} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.streamSubscribers); got != 2 {
		t.Errorf("stream_subscribers = %v, want 2", got)
	}
}

func TestMetricsNamespace(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(&Config{Namespace: "warden", Subsystem: "pipeline"}, registry)

	m.RecordSkipped()

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("Gather returned error: %v", err)
	}

	found := false
	for _, f := range families {
		if f.GetName() == "warden_pipeline_clauses_skipped_total" {
			found = true
		}
	}
	if !found {
		t.Error("namespaced metric warden_pipeline_clauses_skipped_total not registered")
	}
}
