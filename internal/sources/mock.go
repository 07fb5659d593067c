package sources

import "context"

// MockObservatory serves a fixed "no drift" report.
type MockObservatory struct{}

func (MockObservatory) FetchDrift(context.Context, string) (any, error) {
	return map[string]any{
		"driftDetected":   false,
		"affectedSchemas": []any{},
		"severity":        "low",
		"details":         map[string]any{},
	}, nil
}

// MockLatencyLens serves a fixed performance profile.
type MockLatencyLens struct{}

func (MockLatencyLens) FetchPerformance(context.Context, string) (any, error) {
	return map[string]any{
		"avgLatency": 65.0,
		"p95Latency": 120.0,
		"p99Latency": 250.0,
		"throughput": 1500.0,
	}, nil
}

// MockBenchmark serves a single benchmark result.
type MockBenchmark struct{}

func (MockBenchmark) FetchBenchmarkResults(context.Context) (any, error) {
	return []any{
		map[string]any{"benchmarkId": "bench-1", "score": 85.0, "taskType": "latency"},
	}, nil
}

// MockTelemetry serves a single service snapshot.
type MockTelemetry struct{}

func (MockTelemetry) FetchTelemetry(context.Context) (any, error) {
	return []any{
		map[string]any{"serviceId": "service-1", "cpu": 45.5, "memory": 2048.0, "requests": 10000.0, "errors": 5.0},
	}, nil
}

// MockAnomaly serves a single medium-severity anomaly.
type MockAnomaly struct{}

func (MockAnomaly) FetchAnomalies(context.Context) (any, error) {
	return []any{
		map[string]any{
			"anomalyId":   "anomaly-1",
			"type":        "latency-spike",
			"severity":    "medium",
			"description": "Latency spike detected",
		},
	}, nil
}

// NewMockSet wires every mock adapter.
func NewMockSet() Set {
	return Set{
		Drift:       MockObservatory{},
		Performance: MockLatencyLens{},
		Benchmark:   MockBenchmark{},
		Telemetry:   MockTelemetry{},
		Anomaly:     MockAnomaly{},
	}
}
