package services

import (
	"fmt"
	"log/slog"

	"github.com/miradorstack/intelligence-core/internal/cache"
	"github.com/miradorstack/intelligence-core/internal/config"
	"github.com/miradorstack/intelligence-core/internal/engine"
	"github.com/miradorstack/intelligence-core/internal/patterns"
	"github.com/miradorstack/intelligence-core/internal/schemas"
	"github.com/miradorstack/intelligence-core/internal/sources"
	"github.com/miradorstack/intelligence-core/internal/store"
)

// NewFromConfig wires sources, rules, schema validation, aggregator, store and
// miner into a façade as described by cfg.
func NewFromConfig(cfg *config.Config, provider cache.Provider, logger *slog.Logger) (*IntelligenceService, error) {
	if logger == nil {
		logger = slog.Default()
	}

	set, err := sources.Build(cfg.Sources, provider, logger)
	if err != nil {
		return nil, fmt.Errorf("build sources: %w", err)
	}

	rules, err := engine.LoadRuleSet(cfg.Rules.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("load correlation rules: %w", err)
	}

	opts := []engine.Option{
		engine.WithRules(rules),
		engine.WithScope(cfg.Aggregation.Scope),
		engine.WithConcurrency(cfg.Aggregation.FetchConcurrency),
	}
	if cfg.Aggregation.ValidateSchemas {
		registry, err := schemas.NewRegistry()
		if err != nil {
			return nil, fmt.Errorf("compile payload schemas: %w", err)
		}
		opts = append(opts, engine.WithValidator(registry))
	}

	aggregator := engine.NewAggregator(logger, set, opts...)
	st := store.New(store.Options{
		MaxSummaries:        cfg.Store.MaxSummaries,
		MaxSignalsPerSystem: cfg.Store.MaxSignalsPerSystem,
	})
	return NewIntelligenceService(logger, aggregator, st, patterns.NewMiner(logger)), nil
}
