// Package sources defines the fetch contract of the upstream systems and
// provides mock and HTTP implementations of it.
package sources

import (
	"context"

	"github.com/miradorstack/intelligence-core/internal/models"
)

// DriftSource reports schema drift for a scope.
type DriftSource interface {
	FetchDrift(ctx context.Context, scope string) (any, error)
}

// PerformanceSource reports latency and throughput for a scope.
type PerformanceSource interface {
	FetchPerformance(ctx context.Context, scope string) (any, error)
}

// BenchmarkSource returns the latest benchmark results.
type BenchmarkSource interface {
	FetchBenchmarkResults(ctx context.Context) (any, error)
}

// TelemetrySource returns the latest telemetry snapshots.
type TelemetrySource interface {
	FetchTelemetry(ctx context.Context) (any, error)
}

// AnomalySource returns the latest detected anomalies.
type AnomalySource interface {
	FetchAnomalies(ctx context.Context) (any, error)
}

// Set holds at most one implementation per capability. A nil field means the
// capability is not available.
type Set struct {
	Drift       DriftSource
	Performance PerformanceSource
	Benchmark   BenchmarkSource
	Telemetry   TelemetrySource
	Anomaly     AnomalySource
}

// Fetcher is a present capability bound to its source tag.
type Fetcher struct {
	Source string
	Fetch  func(ctx context.Context) (any, error)
}

// Fetchers returns the present capabilities in registration order together
// with the tags of the absent ones.
func (s Set) Fetchers(scope string) (present []Fetcher, missing []string) {
	add := func(source string, ok bool, fetch func(ctx context.Context) (any, error)) {
		if !ok {
			missing = append(missing, source)
			return
		}
		present = append(present, Fetcher{Source: source, Fetch: fetch})
	}

	add(models.SourceObservatory, s.Drift != nil, func(ctx context.Context) (any, error) {
		return s.Drift.FetchDrift(ctx, scope)
	})
	add(models.SourceLatencyLens, s.Performance != nil, func(ctx context.Context) (any, error) {
		return s.Performance.FetchPerformance(ctx, scope)
	})
	add(models.SourceBenchmark, s.Benchmark != nil, func(ctx context.Context) (any, error) {
		return s.Benchmark.FetchBenchmarkResults(ctx)
	})
	add(models.SourceTelemetry, s.Telemetry != nil, func(ctx context.Context) (any, error) {
		return s.Telemetry.FetchTelemetry(ctx)
	})
	add(models.SourceAnomaly, s.Anomaly != nil, func(ctx context.Context) (any, error) {
		return s.Anomaly.FetchAnomalies(ctx)
	})
	return present, missing
}
