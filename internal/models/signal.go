package models

import "time"

// Source tags, listed in registration order.
const (
	SourceObservatory = "observatory"
	SourceLatencyLens = "latency-lens"
	SourceBenchmark   = "benchmark"
	SourceTelemetry   = "telemetry"
	SourceAnomaly     = "anomaly"
)

// SourceTags returns every known source tag in registration order.
func SourceTags() []string {
	return []string{SourceObservatory, SourceLatencyLens, SourceBenchmark, SourceTelemetry, SourceAnomaly}
}

// Signal is a timestamped payload collected from one upstream source.
// Signals are never mutated after collection.
type Signal struct {
	Source    string         `json:"source"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   any            `json:"payload"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Validation is the outcome of checking a payload against its source schema.
type Validation struct {
	Schema string
	Valid  bool
	Errors []string
}
