package engine

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/miradorstack/intelligence-core/internal/metrics"
	"github.com/miradorstack/intelligence-core/internal/models"
	"github.com/miradorstack/intelligence-core/internal/sources"
)

const tracerName = "github.com/miradorstack/intelligence-core/internal/engine"

// DefaultScope is passed to scoped fetches unless overridden.
const DefaultScope = "default"

// Validator checks a collected payload against the schema of its source.
type Validator interface {
	Validate(source string, payload any) (models.Validation, bool)
}

// Cycle is the output of one aggregation run.
type Cycle struct {
	Summary models.Summary
	Signals []models.Signal
}

// Aggregator collects upstream payloads and derives summaries from them. It
// holds no mutable state besides its configuration.
type Aggregator struct {
	logger      *slog.Logger
	sources     sources.Set
	rules       *RuleSet
	validator   Validator
	scope       string
	concurrency int
	now         func() time.Time
	newID       func() string
	tracer      trace.Tracer
}

// Option customises an Aggregator.
type Option func(*Aggregator)

// WithRules replaces the built-in correlation rules.
func WithRules(rules *RuleSet) Option {
	return func(a *Aggregator) {
		if rules != nil {
			a.rules = rules
		}
	}
}

// WithValidator annotates collected signals with schema validation results.
func WithValidator(v Validator) Option {
	return func(a *Aggregator) { a.validator = v }
}

// WithScope sets the scope passed to drift and performance fetches.
func WithScope(scope string) Option {
	return func(a *Aggregator) {
		if scope != "" {
			a.scope = scope
		}
	}
}

// WithConcurrency bounds the number of sources fetched at once.
func WithConcurrency(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		if now != nil {
			a.now = now
		}
	}
}

// WithIDGenerator overrides summary id generation.
func WithIDGenerator(newID func() string) Option {
	return func(a *Aggregator) {
		if newID != nil {
			a.newID = newID
		}
	}
}

// NewAggregator wires an Aggregator over the given source set.
func NewAggregator(logger *slog.Logger, set sources.Set, opts ...Option) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Aggregator{
		logger:      logger,
		sources:     set,
		rules:       NewRuleSet(DefaultRules()),
		scope:       DefaultScope,
		concurrency: 1,
		now:         time.Now,
		newID:       uuid.NewString,
		tracer:      otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Collect fetches every present capability and wraps each result in a Signal.
// Failed fetches are logged and dropped. The output keeps registration order.
func (a *Aggregator) Collect(ctx context.Context) []models.Signal {
	ctx, span := a.tracer.Start(ctx, "aggregator.collect")
	defer span.End()

	fetchers, missing := a.sources.Fetchers(a.scope)
	for _, source := range missing {
		metrics.ObserveFetch(source, metrics.OutcomeSkipped)
	}

	slots := make([]*models.Signal, len(fetchers))
	var g errgroup.Group
	g.SetLimit(a.concurrency)
	for i, fetcher := range fetchers {
		g.Go(func() error {
			payload, err := a.fetch(ctx, fetcher)
			if err != nil {
				return nil
			}
			signal := models.Signal{Source: fetcher.Source, Timestamp: a.now(), Payload: payload}
			a.annotate(&signal)
			slots[i] = &signal
			return nil
		})
	}
	_ = g.Wait()

	signals := make([]models.Signal, 0, len(slots))
	for _, slot := range slots {
		if slot != nil {
			signals = append(signals, *slot)
		}
	}
	span.SetAttributes(attribute.Int("signals", len(signals)))
	return signals
}

func (a *Aggregator) fetch(ctx context.Context, fetcher sources.Fetcher) (any, error) {
	ctx, span := a.tracer.Start(ctx, "source.fetch", trace.WithAttributes(attribute.String("source", fetcher.Source)))
	defer span.End()

	payload, err := fetcher.Fetch(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, "fetch failed")
		metrics.ObserveFetch(fetcher.Source, metrics.OutcomeError)
		a.logger.DebugContext(ctx, "source fetch failed", slog.String("source", fetcher.Source), slog.Any("error", err))
		return nil, err
	}
	metrics.ObserveFetch(fetcher.Source, metrics.OutcomeSuccess)
	return payload, nil
}

func (a *Aggregator) annotate(signal *models.Signal) {
	if a.validator == nil {
		return
	}
	result, ok := a.validator.Validate(signal.Source, signal.Payload)
	if !ok {
		return
	}
	signal.Metadata = map[string]any{
		"schema":      result.Schema,
		"schemaValid": result.Valid,
	}
	if !result.Valid {
		signal.Metadata["schemaErrors"] = result.Errors
		metrics.ObserveSchemaViolation(signal.Source)
		a.logger.Debug("payload failed schema validation",
			slog.String("source", signal.Source),
			slog.Any("errors", result.Errors))
	}
}

// Correlate groups payloads by category and applies the correlation rules.
func (a *Aggregator) Correlate(signals []models.Signal) models.CorrelatedSignals {
	out := models.CorrelatedSignals{
		Benchmarks: []any{},
		Telemetry:  []any{},
		Anomalies:  []any{},
	}
	counts := make(map[string]int, len(signals))
	for _, signal := range signals {
		counts[signal.Source]++
		switch signal.Source {
		case models.SourceBenchmark:
			out.Benchmarks = append(out.Benchmarks, signal.Payload)
		case models.SourceTelemetry:
			out.Telemetry = append(out.Telemetry, signal.Payload)
		case models.SourceAnomaly:
			out.Anomalies = append(out.Anomalies, signal.Payload)
		}
	}
	out.Correlations = a.rules.Evaluate(counts)
	return out
}

// DriftAnalysis fetches the drift report for the configured scope. A missing
// source or failed fetch yields the default analysis.
func (a *Aggregator) DriftAnalysis(ctx context.Context) models.DriftAnalysis {
	if a.sources.Drift == nil {
		return models.DefaultDriftAnalysis()
	}
	payload, err := a.fetch(ctx, sources.Fetcher{
		Source: models.SourceObservatory,
		Fetch: func(ctx context.Context) (any, error) {
			return a.sources.Drift.FetchDrift(ctx, a.scope)
		},
	})
	if err != nil {
		return models.DefaultDriftAnalysis()
	}
	return NormalizeDrift(payload)
}

// PerformanceOverview fetches the performance profile for the configured scope.
func (a *Aggregator) PerformanceOverview(ctx context.Context) models.PerformanceOverview {
	if a.sources.Performance == nil {
		return models.DefaultPerformanceOverview()
	}
	payload, err := a.fetch(ctx, sources.Fetcher{
		Source: models.SourceLatencyLens,
		Fetch: func(ctx context.Context) (any, error) {
			return a.sources.Performance.FetchPerformance(ctx, a.scope)
		},
	})
	if err != nil {
		return models.DefaultPerformanceOverview()
	}
	return NormalizePerformance(payload)
}

// Run performs one aggregation cycle. Drift and performance are derived from
// the signals of the same collection, so each source is fetched once.
func (a *Aggregator) Run(ctx context.Context) Cycle {
	ctx, span := a.tracer.Start(ctx, "aggregator.run")
	defer span.End()

	signals := a.Collect(ctx)
	correlated := a.Correlate(signals)

	drift := models.DefaultDriftAnalysis()
	if signal, ok := firstBySource(signals, models.SourceObservatory); ok {
		drift = NormalizeDrift(signal.Payload)
	}
	performance := models.DefaultPerformanceOverview()
	if signal, ok := firstBySource(signals, models.SourceLatencyLens); ok {
		performance = NormalizePerformance(signal.Payload)
	}

	now := a.now()
	anomalies := ExtractAnomalies(signals, now)
	summary := models.Summary{
		ID:                  a.newID(),
		Timestamp:           now,
		DriftAnalysis:       drift,
		PerformanceOverview: performance,
		CorrelatedSignals:   correlated,
		Anomalies:           anomalies,
		Narrative:           Narrative(drift, performance, anomalies),
	}
	span.SetAttributes(
		attribute.String("summary.id", summary.ID),
		attribute.Int("anomalies", len(anomalies)),
		attribute.Int("correlations", len(correlated.Correlations)),
	)
	return Cycle{Summary: summary, Signals: signals}
}

// GenerateSummary runs a cycle and returns only its summary.
func (a *Aggregator) GenerateSummary(ctx context.Context) models.Summary {
	return a.Run(ctx).Summary
}

// Narrative renders the one-line description of a summary.
func Narrative(drift models.DriftAnalysis, performance models.PerformanceOverview, anomalies []models.AnomalyReport) string {
	parts := make([]string, 0, 3)
	if drift.DriftDetected {
		parts = append(parts, "Drift detected ("+string(drift.Severity)+" severity) affecting "+
			strconv.Itoa(len(drift.AffectedSchemas))+" schemas.")
	}
	parts = append(parts, "Performance: avg="+formatNumber(performance.AvgLatency)+
		"ms, p95="+formatNumber(performance.P95Latency)+
		"ms, p99="+formatNumber(performance.P99Latency)+"ms.")
	if len(anomalies) > 0 {
		clause := strconv.Itoa(len(anomalies)) + " anomalies detected"
		critical := 0
		for _, anomaly := range anomalies {
			if anomaly.Severity == models.SeverityCritical {
				critical++
			}
		}
		if critical > 0 {
			clause += " (" + strconv.Itoa(critical) + " critical)"
		}
		parts = append(parts, clause+".")
	}
	return strings.Join(parts, " ")
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func firstBySource(signals []models.Signal, source string) (models.Signal, bool) {
	for _, signal := range signals {
		if signal.Source == source {
			return signal, true
		}
	}
	return models.Signal{}, false
}
