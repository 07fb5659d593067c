package engine

import (
	"encoding/json"
	"slices"
	"strings"
	"time"

	"github.com/miradorstack/intelligence-core/internal/models"
	"github.com/miradorstack/intelligence-core/internal/utils"
)

var (
	driftKeys       = []string{"driftDetected", "affectedSchemas", "severity", "details"}
	performanceKeys = []string{"avgLatency", "p50Latency", "p95Latency", "p99Latency", "throughput", "trends"}
	anomalyKeys     = []string{"type", "severity", "description", "timestamp"}
)

// DecodeDrift maps a raw observatory payload onto its canonical record.
// ok is false when the payload is not an object.
func DecodeDrift(raw any) (models.DriftPayload, bool) {
	obj, ok := asObject(raw)
	if !ok {
		return models.DriftPayload{}, false
	}
	var out models.DriftPayload
	if v, ok := obj["driftDetected"].(bool); ok {
		out.DriftDetected = &v
	}
	if list, ok := asList(obj["affectedSchemas"]); ok {
		out.AffectedSchemas = make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out.AffectedSchemas = append(out.AffectedSchemas, s)
			}
		}
	}
	if sev, ok := parseSeverity(obj["severity"], false); ok {
		out.Severity = &sev
	}
	if details, ok := asObject(obj["details"]); ok {
		out.Details = details
	}
	out.Extra = extra(obj, driftKeys)
	return out, true
}

// NormalizeDrift produces a DriftAnalysis, falling back field by field to the
// defaults. Non-object payloads yield the full default.
func NormalizeDrift(raw any) models.DriftAnalysis {
	analysis := models.DefaultDriftAnalysis()
	payload, ok := DecodeDrift(raw)
	if !ok {
		return analysis
	}
	if payload.DriftDetected != nil {
		analysis.DriftDetected = *payload.DriftDetected
	}
	if payload.AffectedSchemas != nil {
		analysis.AffectedSchemas = payload.AffectedSchemas
	}
	if payload.Severity != nil {
		analysis.Severity = *payload.Severity
	}
	if payload.Details != nil {
		analysis.Details = payload.Details
	}
	return analysis
}

// DecodePerformance maps a raw latency-lens payload onto its canonical record.
// Negative or non-numeric values are treated as absent.
func DecodePerformance(raw any) (models.PerformancePayload, bool) {
	obj, ok := asObject(raw)
	if !ok {
		return models.PerformancePayload{}, false
	}
	out := models.PerformancePayload{
		AvgLatency: nonNegative(obj["avgLatency"]),
		P50Latency: nonNegative(obj["p50Latency"]),
		P95Latency: nonNegative(obj["p95Latency"]),
		P99Latency: nonNegative(obj["p99Latency"]),
		Throughput: nonNegative(obj["throughput"]),
	}
	if trends, ok := asObject(obj["trends"]); ok {
		out.Trends = trends
	}
	out.Extra = extra(obj, performanceKeys)
	return out, true
}

// NormalizePerformance produces a PerformanceOverview. The average latency
// falls back to the p50 latency, then to zero.
func NormalizePerformance(raw any) models.PerformanceOverview {
	overview := models.DefaultPerformanceOverview()
	payload, ok := DecodePerformance(raw)
	if !ok {
		return overview
	}
	switch {
	case payload.AvgLatency != nil:
		overview.AvgLatency = *payload.AvgLatency
	case payload.P50Latency != nil:
		overview.AvgLatency = *payload.P50Latency
	}
	overview.P95Latency = valueOr(payload.P95Latency, 0)
	overview.P99Latency = valueOr(payload.P99Latency, 0)
	overview.Throughput = valueOr(payload.Throughput, 0)
	if payload.Trends != nil {
		overview.Trends = payload.Trends
	}
	return overview
}

// DecodeAnomaly maps one element of an anomaly batch onto its canonical record.
func DecodeAnomaly(raw any) (models.AnomalyPayload, bool) {
	obj, ok := asObject(raw)
	if !ok {
		return models.AnomalyPayload{}, false
	}
	var out models.AnomalyPayload
	if v, ok := obj["type"].(string); ok {
		out.Type = &v
	}
	if sev, ok := parseSeverity(obj["severity"], true); ok {
		out.Severity = &sev
	}
	if v, ok := obj["description"].(string); ok {
		out.Description = &v
	}
	if ts, ok := parseTimestamp(obj["timestamp"]); ok {
		out.Timestamp = &ts
	}
	out.Extra = extra(obj, anomalyKeys)
	return out, true
}

// ExtractAnomalies reads anomaly-tagged signals whose payload is a list and
// turns every object element into an AnomalyReport. Other elements are skipped.
func ExtractAnomalies(signals []models.Signal, now time.Time) []models.AnomalyReport {
	reports := []models.AnomalyReport{}
	for _, signal := range signals {
		if signal.Source != models.SourceAnomaly {
			continue
		}
		items, ok := asList(signal.Payload)
		if !ok {
			continue
		}
		for _, item := range items {
			payload, ok := DecodeAnomaly(item)
			if !ok {
				continue
			}
			reports = append(reports, models.AnomalyReport{
				Type:        valueOr(payload.Type, "unknown"),
				Severity:    valueOr(payload.Severity, models.SeverityLow),
				Description: valueOr(payload.Description, ""),
				Timestamp:   valueOr(payload.Timestamp, now),
			})
		}
	}
	return reports
}

func asObject(v any) (map[string]any, bool) {
	obj, ok := v.(map[string]any)
	if !ok || obj == nil {
		return nil, false
	}
	return obj, true
}

func asList(v any) ([]any, bool) {
	switch list := v.(type) {
	case []any:
		return list, true
	case []map[string]any:
		out := make([]any, len(list))
		for i, item := range list {
			out[i] = item
		}
		return out, true
	default:
		return nil, false
	}
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func nonNegative(v any) *float64 {
	n, ok := asNumber(v)
	if !ok || n < 0 {
		return nil
	}
	return &n
}

func parseSeverity(v any, allowCritical bool) (models.Severity, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	switch sev := models.Severity(strings.ToLower(s)); sev {
	case models.SeverityLow, models.SeverityMedium, models.SeverityHigh:
		return sev, true
	case models.SeverityCritical:
		return sev, allowCritical
	default:
		return "", false
	}
}

func parseTimestamp(v any) (time.Time, bool) {
	if s, ok := v.(string); ok {
		t, err := utils.ParseRFC3339(s)
		return t, err == nil
	}
	if ms, ok := asNumber(v); ok {
		return utils.FromEpochMillis(ms)
	}
	return time.Time{}, false
}

func extra(obj map[string]any, known []string) map[string]any {
	var out map[string]any
	for key, value := range obj {
		if slices.Contains(known, key) {
			continue
		}
		if out == nil {
			out = make(map[string]any)
		}
		out[key] = value
	}
	return out
}

func valueOr[T any](p *T, fallback T) T {
	if p == nil {
		return fallback
	}
	return *p
}
