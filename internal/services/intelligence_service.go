package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/miradorstack/intelligence-core/internal/engine"
	"github.com/miradorstack/intelligence-core/internal/metrics"
	"github.com/miradorstack/intelligence-core/internal/models"
	"github.com/miradorstack/intelligence-core/internal/patterns"
	"github.com/miradorstack/intelligence-core/internal/store"
	"github.com/miradorstack/intelligence-core/internal/utils"
)

// ErrNotInitialized is returned by read operations issued before the first
// aggregation cycle completed.
var ErrNotInitialized = models.ErrNotInitialized

// ErrInvalidQuery marks malformed query arguments.
var ErrInvalidQuery = models.ErrInvalidQuery

// systemsPageLimit bounds each per-system result of an unfiltered signal query.
const systemsPageLimit = 10

// IntelligenceService wires Aggregator output into the Store and serves the
// read API. Cycles are serialised; reads run concurrently.
type IntelligenceService struct {
	logger     *slog.Logger
	aggregator *engine.Aggregator
	store      *store.Store
	miner      *patterns.Miner
	latencies  *utils.LatencyTracker

	cycleMu     sync.Mutex
	initialized atomic.Bool
}

// NewIntelligenceService constructs the façade. A nil store or miner is
// replaced by a default instance.
func NewIntelligenceService(logger *slog.Logger, aggregator *engine.Aggregator, st *store.Store, miner *patterns.Miner) *IntelligenceService {
	if logger == nil {
		logger = slog.Default()
	}
	if st == nil {
		st = store.New(store.Options{})
	}
	if miner == nil {
		miner = patterns.NewMiner(logger)
	}
	return &IntelligenceService{
		logger:     logger,
		aggregator: aggregator,
		store:      st,
		miner:      miner,
		latencies:  utils.NewLatencyTracker(1024),
	}
}

// RunCycle runs one aggregation cycle and stores its summary and signals.
func (s *IntelligenceService) RunCycle(ctx context.Context) (models.Summary, error) {
	if s.aggregator == nil {
		return models.Summary{}, utils.NewAppError("run cycle", "aggregator not configured", nil)
	}
	if err := ctx.Err(); err != nil {
		metrics.ObserveCycle(0, metrics.OutcomeError)
		return models.Summary{}, utils.NewAppError("run cycle", "context done", err)
	}

	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	start := time.Now()
	cycle := s.aggregator.Run(ctx)
	s.store.StoreSignals(cycle.Signals)
	s.store.StoreSummary(cycle.Summary)
	s.initialized.Store(true)
	duration := time.Since(start)

	s.latencies.Observe(duration)
	metrics.ObserveCycle(duration, metrics.OutcomeSuccess)
	p95, mean := s.CycleLatency()
	metrics.SetCycleLatency(p95, mean)
	stats := s.store.Stats()
	metrics.SetStoreSize(stats.Summaries, stats.Signals)

	s.logger.Debug("aggregation cycle completed",
		slog.String("summary_id", cycle.Summary.ID),
		slog.Int("signals", len(cycle.Signals)),
		slog.Int("anomalies", len(cycle.Summary.Anomalies)),
		slog.Duration("duration", duration))
	if count := s.latencies.Count(); count >= 20 && count%20 == 0 {
		s.logger.Info("aggregation latency",
			slog.Duration("p95", p95),
			slog.Duration("mean", mean),
			slog.Int("samples", count))
	}
	return cycle.Summary, nil
}

// Start runs an initial cycle and then one cycle per interval until ctx is
// done. A non-positive interval runs only the initial cycle.
func (s *IntelligenceService) Start(ctx context.Context, interval time.Duration) {
	if _, err := s.RunCycle(ctx); err != nil {
		s.logger.Warn("initial aggregation cycle failed", slog.Any("error", err))
	}
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("aggregation loop started", slog.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("aggregation loop stopped")
			return
		case <-ticker.C:
			if _, err := s.RunCycle(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("aggregation cycle failed", slog.Any("error", err))
			}
		}
	}
}

// Reset clears the store and returns the service to the uninitialized state.
func (s *IntelligenceService) Reset() {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	s.store.Clear()
	s.initialized.Store(false)
	metrics.SetStoreSize(0, nil)
}

// Initialized reports whether at least one cycle has been stored.
func (s *IntelligenceService) Initialized() bool {
	return s.initialized.Load()
}

// Summary returns the newest stored summary.
func (s *IntelligenceService) Summary(context.Context) (models.Summary, error) {
	if err := s.ensureInitialized("get summary"); err != nil {
		return models.Summary{}, err
	}
	summary, ok := s.store.LatestSummary()
	if !ok {
		return models.Summary{}, notInitialized("get summary")
	}
	return summary, nil
}

// Drift fetches and normalizes the current drift report.
func (s *IntelligenceService) Drift(ctx context.Context) (models.DriftAnalysis, error) {
	if err := s.ensureInitialized("get drift"); err != nil {
		return models.DriftAnalysis{}, err
	}
	return s.aggregator.DriftAnalysis(ctx), nil
}

// Performance fetches and normalizes the current performance profile.
func (s *IntelligenceService) Performance(ctx context.Context) (models.PerformanceOverview, error) {
	if err := s.ensureInitialized("get performance"); err != nil {
		return models.PerformanceOverview{}, err
	}
	return s.aggregator.PerformanceOverview(ctx), nil
}

// QuerySignals answers a signal query. The result shape depends on which
// filters are set: a system yields one system result, a time range alone
// yields the correlated payloads of matching summaries as tagged signals, and
// no filter yields one result per known system.
func (s *IntelligenceService) QuerySignals(_ context.Context, q models.SignalQuery) (models.SignalsResult, error) {
	if err := s.ensureInitialized("query signals"); err != nil {
		return models.SignalsResult{}, err
	}
	if err := validateQuery(q); err != nil {
		return models.SignalsResult{}, err
	}

	switch q.ResultKind() {
	case models.ResultSystem:
		var result models.SystemQueryResult
		if q.TimeRange != nil {
			result = s.store.QueryBySystemAndTimeRange(q.System, *q.TimeRange, q.Options)
		} else {
			result = s.store.QueryBySystem(q.System, q.Options)
		}
		return models.SignalsResult{Kind: models.ResultSystem, System: &result}, nil
	case models.ResultSignals:
		summaries := s.store.QueryByTimeRange(*q.TimeRange, q.Options)
		return models.SignalsResult{Kind: models.ResultSignals, Signals: flattenSummaries(summaries)}, nil
	default:
		opts := models.QueryOptions{Limit: systemsPageLimit, SortOrder: q.Options.SortOrder}
		systems := s.store.Systems()
		results := make([]models.SystemQueryResult, 0, len(systems))
		for _, system := range systems {
			results = append(results, s.store.QueryBySystem(system, opts))
		}
		return models.SignalsResult{Kind: models.ResultSystems, Systems: results}, nil
	}
}

// Systems lists the known signal sources in first-seen order.
func (s *IntelligenceService) Systems(context.Context) ([]string, error) {
	if err := s.ensureInitialized("list systems"); err != nil {
		return nil, err
	}
	return s.store.Systems(), nil
}

// Patterns mines recurring anomaly types from the stored summaries.
func (s *IntelligenceService) Patterns(context.Context) ([]models.AnomalyPattern, error) {
	if err := s.ensureInitialized("get patterns"); err != nil {
		return nil, err
	}
	return s.miner.Mine(s.store.Summaries()), nil
}

// CycleLatency returns the p95 and mean latency of recent cycles.
func (s *IntelligenceService) CycleLatency() (p95, mean time.Duration) {
	if s.latencies == nil {
		return 0, 0
	}
	return s.latencies.Percentile(95), s.latencies.Mean()
}

func (s *IntelligenceService) ensureInitialized(op string) error {
	if !s.initialized.Load() {
		return notInitialized(op)
	}
	return nil
}

func notInitialized(op string) error {
	return utils.NewAppError(op, "no aggregation cycle has completed", ErrNotInitialized)
}

func validateQuery(q models.SignalQuery) error {
	switch q.Options.SortOrder {
	case "", models.SortAsc, models.SortDesc:
	default:
		return utils.NewAppError("query signals", fmt.Sprintf("sort order must be %q or %q", models.SortAsc, models.SortDesc), ErrInvalidQuery)
	}
	if q.TimeRange != nil && q.TimeRange.End.Before(q.TimeRange.Start) {
		return utils.NewAppError("query signals", "end time precedes start time", ErrInvalidQuery)
	}
	return nil
}

// flattenSummaries expands each summary's correlated payloads into signals
// stamped with the summary timestamp: benchmarks, then telemetry, then
// anomalies.
func flattenSummaries(summaries []models.Summary) []models.Signal {
	signals := make([]models.Signal, 0)
	for _, summary := range summaries {
		groups := []struct {
			source   string
			payloads []any
		}{
			{models.SourceBenchmark, summary.CorrelatedSignals.Benchmarks},
			{models.SourceTelemetry, summary.CorrelatedSignals.Telemetry},
			{models.SourceAnomaly, summary.CorrelatedSignals.Anomalies},
		}
		for _, group := range groups {
			for _, payload := range group.payloads {
				signals = append(signals, models.Signal{
					Source:    group.source,
					Timestamp: summary.Timestamp,
					Payload:   payload,
				})
			}
		}
	}
	return signals
}
