package models

import "time"

// The payload records below are the canonical view of what each upstream
// kind may send. Pointer fields are nil when the field was absent or had the
// wrong type; Extra keeps every key that is not part of the record.

// DriftPayload is the canonical observatory record.
type DriftPayload struct {
	DriftDetected   *bool
	AffectedSchemas []string
	Severity        *Severity
	Details         map[string]any
	Extra           map[string]any
}

// PerformancePayload is the canonical latency-lens record.
type PerformancePayload struct {
	AvgLatency *float64
	P50Latency *float64
	P95Latency *float64
	P99Latency *float64
	Throughput *float64
	Trends     map[string]any
	Extra      map[string]any
}

// AnomalyPayload is one canonical element of an anomaly source batch.
type AnomalyPayload struct {
	Type        *string
	Severity    *Severity
	Description *string
	Timestamp   *time.Time
	Extra       map[string]any
}
