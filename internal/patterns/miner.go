package patterns

import (
	"log/slog"
	"sort"
	"time"

	"github.com/miradorstack/intelligence-core/internal/models"
)

// Miner mines recurring anomaly types from summary history.
type Miner struct {
	logger *slog.Logger
}

// NewMiner constructs a Miner.
func NewMiner(logger *slog.Logger) *Miner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Miner{logger: logger}
}

// Mine groups the anomalies of every summary by type. Prevalence is the share
// of summaries that reported the type at least once.
func (m *Miner) Mine(summaries []models.Summary) []models.AnomalyPattern {
	if len(summaries) == 0 {
		return []models.AnomalyPattern{}
	}

	stats := make(map[string]*typeAggregate)
	for _, summary := range summaries {
		seen := make(map[string]struct{})
		for _, anomaly := range summary.Anomalies {
			agg := ensureAggregate(stats, anomaly.Type)
			agg.occurrences++
			agg.observe(anomaly.Timestamp)
			if anomaly.Severity.Rank() > agg.maxSeverity.Rank() {
				agg.maxSeverity = anomaly.Severity
			}
			seen[agg.name] = struct{}{}
		}
		for name := range seen {
			stats[name].summaries++
		}
	}

	patterns := make([]models.AnomalyPattern, 0, len(stats))
	for _, agg := range stats {
		patterns = append(patterns, models.AnomalyPattern{
			Type:        agg.name,
			Occurrences: agg.occurrences,
			Prevalence:  float64(agg.summaries) / float64(len(summaries)),
			MaxSeverity: agg.maxSeverity,
			FirstSeen:   agg.firstSeen,
			LastSeen:    agg.lastSeen,
		})
	}

	sort.Slice(patterns, func(i, j int) bool {
		if patterns[i].Prevalence != patterns[j].Prevalence {
			return patterns[i].Prevalence > patterns[j].Prevalence
		}
		if patterns[i].Occurrences != patterns[j].Occurrences {
			return patterns[i].Occurrences > patterns[j].Occurrences
		}
		return patterns[i].Type < patterns[j].Type
	})

	m.logger.Debug("anomaly patterns mined",
		slog.Int("summaries", len(summaries)),
		slog.Int("patterns", len(patterns)))
	return patterns
}

type typeAggregate struct {
	name        string
	occurrences int
	summaries   int
	maxSeverity models.Severity
	firstSeen   time.Time
	lastSeen    time.Time
}

func ensureAggregate(m map[string]*typeAggregate, anomalyType string) *typeAggregate {
	if anomalyType == "" {
		anomalyType = "unknown"
	}
	agg, ok := m[anomalyType]
	if !ok {
		agg = &typeAggregate{name: anomalyType, maxSeverity: models.SeverityLow}
		m[anomalyType] = agg
	}
	return agg
}

func (agg *typeAggregate) observe(ts time.Time) {
	if agg.firstSeen.IsZero() || ts.Before(agg.firstSeen) {
		agg.firstSeen = ts
	}
	if ts.After(agg.lastSeen) {
		agg.lastSeen = ts
	}
}
