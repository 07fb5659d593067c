package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterTwice(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := Register(reg); err != nil {
		t.Fatalf("expected duplicate registration to be ignored, got %v", err)
	}
}

func TestObserveFetchCounts(t *testing.T) {
	before := testutil.ToFloat64(sourceFetchesTotal.WithLabelValues("benchmark", OutcomeError))
	ObserveFetch("benchmark", OutcomeError)
	after := testutil.ToFloat64(sourceFetchesTotal.WithLabelValues("benchmark", OutcomeError))
	if after-before != 1 {
		t.Fatalf("expected counter to increase by 1, got %v", after-before)
	}
}

func TestObserveCycleNormalisesOutcome(t *testing.T) {
	before := testutil.ToFloat64(cyclesTotal.WithLabelValues(OutcomeSuccess))
	ObserveCycle(-time.Second, "anything")
	after := testutil.ToFloat64(cyclesTotal.WithLabelValues(OutcomeSuccess))
	if after-before != 1 {
		t.Fatalf("expected success counter to increase, got %v", after-before)
	}
}

func TestSetStoreSize(t *testing.T) {
	SetStoreSize(3, map[string]int{"observatory": 2})
	if got := testutil.ToFloat64(storeSummaries); got != 3 {
		t.Fatalf("expected 3 summaries, got %v", got)
	}
	if got := testutil.ToFloat64(storeSignals.WithLabelValues("observatory")); got != 2 {
		t.Fatalf("expected 2 observatory signals, got %v", got)
	}
}

func TestSetCycleLatency(t *testing.T) {
	SetCycleLatency(1500*time.Millisecond, 250*time.Millisecond)
	if got := testutil.ToFloat64(cycleLatencySeconds.WithLabelValues("p95")); got != 1.5 {
		t.Fatalf("expected p95 1.5, got %v", got)
	}
	if got := testutil.ToFloat64(cycleLatencySeconds.WithLabelValues("mean")); got != 0.25 {
		t.Fatalf("expected mean 0.25, got %v", got)
	}
}
