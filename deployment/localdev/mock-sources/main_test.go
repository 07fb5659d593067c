package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/miradorstack/intelligence-core/internal/engine"
	"github.com/miradorstack/intelligence-core/internal/schemas"
	"github.com/miradorstack/intelligence-core/internal/sources"
)

func TestMockSourcesRejectGet(t *testing.T) {
	srv := httptest.NewServer(newMux(scenario{now: time.Now}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/drift")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.StatusCode)
	}
}

func TestMockSourcesFeedAggregator(t *testing.T) {
	now := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(newMux(scenario{drift: true, critical: true, now: func() time.Time { return now }}))
	defer srv.Close()

	opts := func(path string) sources.HTTPOptions {
		return sources.HTTPOptions{BaseURL: srv.URL, Path: path, Timeout: time.Second}
	}
	set := sources.Set{
		Drift:       sources.NewObservatoryClient(opts("/api/v1/drift")),
		Performance: sources.NewLatencyLensClient(opts("/api/v1/performance")),
		Benchmark:   sources.NewBenchmarkClient(opts("/api/v1/benchmarks/latest")),
		Telemetry:   sources.NewTelemetryClient(opts("/api/v1/metrics/latest")),
		Anomaly:     sources.NewAnomalyClient(opts("/api/v1/anomalies/latest")),
	}
	registry, err := schemas.NewRegistry()
	if err != nil {
		t.Fatalf("compile schemas: %v", err)
	}

	agg := engine.NewAggregator(nil, set, engine.WithValidator(registry))
	cycle := agg.Run(context.Background())
	summary := cycle.Summary
	if len(cycle.Signals) != 5 {
		t.Fatalf("expected a signal from each source, got %d", len(cycle.Signals))
	}
	if !summary.DriftAnalysis.DriftDetected || len(summary.DriftAnalysis.AffectedSchemas) != 2 {
		t.Fatalf("expected drift across 2 schemas, got %+v", summary.DriftAnalysis)
	}
	if summary.CriticalAnomalies() != 1 || len(summary.Anomalies) != 2 {
		t.Fatalf("expected 2 anomalies with 1 critical, got %+v", summary.Anomalies)
	}
	want := "Drift detected (high severity) affecting 2 schemas. Performance: avg=65ms, p95=120ms, p99=250ms. 2 anomalies detected (1 critical)."
	if summary.Narrative != want {
		t.Fatalf("expected narrative %q, got %q", want, summary.Narrative)
	}
}
