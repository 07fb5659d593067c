package sources

import (
	"fmt"
	"log/slog"

	"github.com/miradorstack/intelligence-core/internal/cache"
	"github.com/miradorstack/intelligence-core/internal/config"
)

// Build assembles the source set described by cfg. Disabled sources, and in
// HTTP mode sources without a base URL, are left out of the set.
func Build(cfg config.SourcesConfig, provider cache.Provider, logger *slog.Logger) (Set, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Mode {
	case config.SourceModeMock:
		set := NewMockSet()
		if !cfg.Observatory.Enabled {
			set.Drift = nil
		}
		if !cfg.LatencyLens.Enabled {
			set.Performance = nil
		}
		if !cfg.Benchmark.Enabled {
			set.Benchmark = nil
		}
		if !cfg.Telemetry.Enabled {
			set.Telemetry = nil
		}
		if !cfg.Anomaly.Enabled {
			set.Anomaly = nil
		}
		return set, nil
	case config.SourceModeHTTP:
		var set Set
		if opts, ok := httpOptions(cfg.Observatory, provider, logger); ok {
			set.Drift = NewObservatoryClient(opts)
		}
		if opts, ok := httpOptions(cfg.LatencyLens, provider, logger); ok {
			set.Performance = NewLatencyLensClient(opts)
		}
		if opts, ok := httpOptions(cfg.Benchmark, provider, logger); ok {
			set.Benchmark = NewBenchmarkClient(opts)
		}
		if opts, ok := httpOptions(cfg.Telemetry, provider, logger); ok {
			set.Telemetry = NewTelemetryClient(opts)
		}
		if opts, ok := httpOptions(cfg.Anomaly, provider, logger); ok {
			set.Anomaly = NewAnomalyClient(opts)
		}
		return set, nil
	default:
		return Set{}, fmt.Errorf("unknown sources mode %q", cfg.Mode)
	}
}

func httpOptions(src config.SourceConfig, provider cache.Provider, logger *slog.Logger) (HTTPOptions, bool) {
	if !src.Enabled || src.BaseURL == "" {
		return HTTPOptions{}, false
	}
	return HTTPOptions{
		BaseURL:       src.BaseURL,
		Path:          src.Path,
		Timeout:       src.Timeout,
		RatePerSecond: src.RatePerSecond,
		CacheTTL:      src.CacheTTL,
		Cache:         provider,
		Logger:        logger,
	}, true
}
