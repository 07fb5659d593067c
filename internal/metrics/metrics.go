package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels successful cycles and fetches.
	OutcomeSuccess = "success"
	// OutcomeError labels failed cycles and fetches.
	OutcomeError = "error"
	// OutcomeSkipped labels sources without the requested capability.
	OutcomeSkipped = "skipped"
)

var (
	cyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "intelligence_core",
			Name:      "aggregation_cycles_total",
			Help:      "Total number of aggregation cycles, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	cycleDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "intelligence_core",
			Name:      "aggregation_cycle_seconds",
			Help:      "Aggregation cycle latency in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
	)

	cycleLatencySeconds = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "intelligence_core",
			Name:      "aggregation_cycle_latency_seconds",
			Help:      "Rolling aggregation cycle latency over recent cycles, by statistic.",
		},
		[]string{"stat"},
	)

	sourceFetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "intelligence_core",
			Name:      "source_fetches_total",
			Help:      "Upstream fetches, partitioned by source tag and outcome.",
		},
		[]string{"source", "outcome"},
	)

	schemaViolationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "intelligence_core",
			Name:      "schema_violations_total",
			Help:      "Collected payloads that failed schema validation.",
		},
		[]string{"source"},
	)

	storeSummaries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "intelligence_core",
			Name:      "store_summaries",
			Help:      "Summaries currently held by the query store.",
		},
	)

	storeSignals = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "intelligence_core",
			Name:      "store_signals",
			Help:      "Signals currently held by the query store, per system.",
		},
		[]string{"system"},
	)
)

// Register attaches intelligence-core collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		cyclesTotal,
		cycleDurationSeconds,
		cycleLatencySeconds,
		sourceFetchesTotal,
		schemaViolationsTotal,
		storeSummaries,
		storeSignals,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveCycle records an aggregation cycle duration and outcome label.
func ObserveCycle(duration time.Duration, outcome string) {
	label := outcome
	if label != OutcomeError {
		label = OutcomeSuccess
	}
	cyclesTotal.WithLabelValues(label).Inc()
	if duration < 0 {
		duration = 0
	}
	cycleDurationSeconds.Observe(duration.Seconds())
}

// SetCycleLatency publishes the rolling p95 and mean cycle latency.
func SetCycleLatency(p95, mean time.Duration) {
	cycleLatencySeconds.WithLabelValues("p95").Set(p95.Seconds())
	cycleLatencySeconds.WithLabelValues("mean").Set(mean.Seconds())
}

// ObserveFetch counts one upstream fetch attempt.
func ObserveFetch(source, outcome string) {
	sourceFetchesTotal.WithLabelValues(source, outcome).Inc()
}

// ObserveSchemaViolation counts a payload that failed validation.
func ObserveSchemaViolation(source string) {
	schemaViolationsTotal.WithLabelValues(source).Inc()
}

// SetStoreSize publishes the current store occupancy.
func SetStoreSize(summaries int, signals map[string]int) {
	storeSummaries.Set(float64(summaries))
	storeSignals.Reset()
	for system, count := range signals {
		storeSignals.WithLabelValues(system).Set(float64(count))
	}
}
