package patterns

import (
	"testing"
	"time"

	"github.com/miradorstack/intelligence-core/internal/models"
)

func TestMinerMinesPatterns(t *testing.T) {
	miner := NewMiner(nil)

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	summaries := []models.Summary{
		{
			Timestamp: now.Add(10 * time.Minute),
			Anomalies: []models.AnomalyReport{
				{Type: "latency-spike", Severity: models.SeverityMedium, Timestamp: now.Add(10 * time.Minute)},
				{Type: "latency-spike", Severity: models.SeverityCritical, Timestamp: now.Add(9 * time.Minute)},
				{Type: "error-burst", Severity: models.SeverityHigh, Timestamp: now.Add(8 * time.Minute)},
			},
		},
		{
			Timestamp: now,
			Anomalies: []models.AnomalyReport{
				{Type: "latency-spike", Severity: models.SeverityLow, Timestamp: now},
			},
		},
		{Timestamp: now.Add(-time.Minute)},
		{
			Timestamp: now.Add(-2 * time.Minute),
			Anomalies: []models.AnomalyReport{
				{Type: "disk-pressure", Timestamp: now.Add(-2 * time.Minute)},
			},
		},
	}

	patterns := miner.Mine(summaries)
	if len(patterns) != 3 {
		t.Fatalf("expected 3 patterns, got %d", len(patterns))
	}

	top := patterns[0]
	if top.Type != "latency-spike" || top.Occurrences != 3 || top.Prevalence != 0.5 {
		t.Fatalf("unexpected top pattern %+v", top)
	}
	if top.MaxSeverity != models.SeverityCritical {
		t.Fatalf("expected critical max severity, got %q", top.MaxSeverity)
	}
	if !top.FirstSeen.Equal(now) || !top.LastSeen.Equal(now.Add(10*time.Minute)) {
		t.Fatalf("unexpected window %v - %v", top.FirstSeen, top.LastSeen)
	}

	if patterns[1].Type != "disk-pressure" || patterns[2].Type != "error-burst" {
		t.Fatalf("expected ties broken by type, got %s then %s", patterns[1].Type, patterns[2].Type)
	}
	if patterns[1].MaxSeverity != models.SeverityLow {
		t.Fatalf("expected missing severity to rank as low, got %q", patterns[1].MaxSeverity)
	}
}

func TestMinerEmptyHistory(t *testing.T) {
	patterns := NewMiner(nil).Mine(nil)
	if patterns == nil || len(patterns) != 0 {
		t.Fatalf("expected empty patterns, got %v", patterns)
	}
}
