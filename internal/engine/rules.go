package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/miradorstack/intelligence-core/internal/models"
)

// CorrelationRule emits a correlation when every required source produced at
// least one signal in the cycle.
type CorrelationRule struct {
	Type        string   `yaml:"type"`
	Requires    []string `yaml:"requires"`
	Confidence  float64  `yaml:"confidence"`
	Description string   `yaml:"description"`
}

// RulePackFile is the YAML root structure.
type RulePackFile struct {
	Rules []CorrelationRule `yaml:"rules"`
}

// RuleSet evaluates correlation rules in pack order.
type RuleSet struct {
	rules []CorrelationRule
}

// DefaultRules returns the built-in rule pack.
func DefaultRules() []CorrelationRule {
	return []CorrelationRule{
		{
			Type:        "benchmark-anomaly",
			Requires:    []string{models.SourceBenchmark, models.SourceAnomaly},
			Confidence:  0.8,
			Description: "Benchmark results correlated with detected anomalies",
		},
		{
			Type:        "telemetry-anomaly",
			Requires:    []string{models.SourceTelemetry, models.SourceAnomaly},
			Confidence:  0.75,
			Description: "Telemetry patterns correlated with anomalies",
		},
	}
}

// NewRuleSet wraps rules, clamping confidences to [0,1].
func NewRuleSet(rules []CorrelationRule) *RuleSet {
	out := make([]CorrelationRule, 0, len(rules))
	for _, rule := range rules {
		rule.Confidence = clamp(rule.Confidence, 0, 1)
		out = append(out, rule)
	}
	return &RuleSet{rules: out}
}

// LoadRuleSet reads a rule pack from path. An empty path or a missing file
// yields the built-in pack.
func LoadRuleSet(path string, logger *slog.Logger) (*RuleSet, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if path == "" {
		return NewRuleSet(DefaultRules()), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Debug("correlation rule pack not found, using built-in rules", slog.String("path", path))
			return NewRuleSet(DefaultRules()), nil
		}
		return nil, fmt.Errorf("read rule pack: %w", err)
	}
	var file RulePackFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse rule pack: %w", err)
	}
	for i, rule := range file.Rules {
		if rule.Type == "" {
			return nil, fmt.Errorf("rule %d: type is required", i)
		}
		if len(rule.Requires) == 0 {
			return nil, fmt.Errorf("rule %s: requires must list at least one source", rule.Type)
		}
		for _, source := range rule.Requires {
			if !slices.Contains(models.SourceTags(), source) {
				logger.Warn("correlation rule references unknown source",
					slog.String("rule", rule.Type), slog.String("source", source))
			}
		}
	}
	return NewRuleSet(file.Rules), nil
}

// Rules returns a copy of the active rules.
func (r *RuleSet) Rules() []CorrelationRule {
	if r == nil {
		return nil
	}
	return slices.Clone(r.rules)
}

// Evaluate fires every rule whose required sources all have a positive count.
func (r *RuleSet) Evaluate(counts map[string]int) []models.Correlation {
	correlations := []models.Correlation{}
	if r == nil {
		return correlations
	}
	for _, rule := range r.rules {
		if !allPresent(rule.Requires, counts) {
			continue
		}
		correlations = append(correlations, models.Correlation{
			Type:        rule.Type,
			Confidence:  rule.Confidence,
			Description: rule.Description,
		})
	}
	return correlations
}

func allPresent(required []string, counts map[string]int) bool {
	if len(required) == 0 {
		return false
	}
	for _, source := range required {
		if counts[source] == 0 {
			return false
		}
	}
	return true
}

func clamp(value, minValue, maxValue float64) float64 {
	if value < minValue {
		return minValue
	}
	if value > maxValue {
		return maxValue
	}
	return value
}
