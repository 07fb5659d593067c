package models

import "time"

// Severity captures impact levels.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank orders severities from low (1) to critical (4). Unknown values rank 0.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// DriftAnalysis reports schema drift observed during one aggregation cycle.
type DriftAnalysis struct {
	DriftDetected   bool           `json:"driftDetected"`
	AffectedSchemas []string       `json:"affectedSchemas"`
	Severity        Severity       `json:"severity"`
	Details         map[string]any `json:"details"`
}

// DefaultDriftAnalysis is used when the drift source is absent or returned nothing usable.
func DefaultDriftAnalysis() DriftAnalysis {
	return DriftAnalysis{
		DriftDetected:   false,
		AffectedSchemas: []string{},
		Severity:        SeverityLow,
		Details:         map[string]any{},
	}
}

// PerformanceOverview holds latency percentiles (milliseconds) and throughput.
type PerformanceOverview struct {
	AvgLatency float64        `json:"avgLatency"`
	P95Latency float64        `json:"p95Latency"`
	P99Latency float64        `json:"p99Latency"`
	Throughput float64        `json:"throughput"`
	Trends     map[string]any `json:"trends"`
}

// DefaultPerformanceOverview is used when the performance source is absent.
func DefaultPerformanceOverview() PerformanceOverview {
	return PerformanceOverview{Trends: map[string]any{}}
}

// Correlation is a heuristic link between two signal categories seen in the same cycle.
type Correlation struct {
	Type        string  `json:"type"`
	Confidence  float64 `json:"confidence"`
	Description string  `json:"description"`
}

// CorrelatedSignals groups collected payloads by category together with derived correlations.
type CorrelatedSignals struct {
	Benchmarks   []any         `json:"benchmarks"`
	Telemetry    []any         `json:"telemetry"`
	Anomalies    []any         `json:"anomalies"`
	Correlations []Correlation `json:"correlations"`
}

// AnomalyReport is a normalized anomaly extracted from the anomaly source.
type AnomalyReport struct {
	Type        string    `json:"type"`
	Severity    Severity  `json:"severity"`
	Timestamp   time.Time `json:"timestamp"`
	Description string    `json:"description"`
}

// Summary is the point-in-time output of one aggregation cycle.
type Summary struct {
	ID                  string              `json:"id"`
	Timestamp           time.Time           `json:"timestamp"`
	DriftAnalysis       DriftAnalysis       `json:"driftAnalysis"`
	PerformanceOverview PerformanceOverview `json:"performanceOverview"`
	CorrelatedSignals   CorrelatedSignals   `json:"correlatedSignals"`
	Anomalies           []AnomalyReport     `json:"anomalies"`
	Narrative           string              `json:"narrative"`
}

// CriticalAnomalies counts anomalies with critical severity.
func (s Summary) CriticalAnomalies() int {
	count := 0
	for _, a := range s.Anomalies {
		if a.Severity == SeverityCritical {
			count++
		}
	}
	return count
}
