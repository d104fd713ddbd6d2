package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSettlementMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSettlementMetrics(reg)

	m.ObserveDuration("committed", 250*time.Millisecond)
	m.IncSuccess()
	m.IncFailure("CONFLICT")
	m.IncFailure("CONFLICT")
	m.IncFailure("")

	if got := testutil.ToFloat64(m.success); got != 1 {
		t.Fatalf("expected success=1, got %f", got)
	}
	if got := testutil.ToFloat64(m.failure.WithLabelValues("CONFLICT")); got != 2 {
		t.Fatalf("expected CONFLICT failures=2, got %f", got)
	}
	if got := testutil.ToFloat64(m.failure.WithLabelValues("unknown")); got != 1 {
		t.Fatalf("expected empty code to land on unknown, got %f", got)
	}

	count, err := testutil.GatherAndCount(reg, "settlement_duration_seconds")
	if err != nil {
		t.Fatalf("gather histogram: %v", err)
	}
	if count == 0 {
		t.Fatal("expected a duration series to be exported")
	}
}

func TestSettlementMetricsNilSafe(t *testing.T) {
	var m *SettlementMetrics
	m.ObserveDuration("committed", time.Second)
	m.IncSuccess()
	m.IncFailure("CONFLICT")

	empty := NewSettlementMetrics(nil)
	empty.IncSuccess()
	empty.IncFailure("CONFLICT")
}
