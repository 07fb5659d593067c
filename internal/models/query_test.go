package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestQueryOptionsWithDefaults(t *testing.T) {
	got := QueryOptions{Limit: -5, Offset: -1, SortOrder: "sideways"}.WithDefaults()
	if got.Limit != DefaultLimit || got.Offset != 0 || got.SortOrder != SortDesc {
		t.Fatalf("unexpected defaults %+v", got)
	}

	kept := QueryOptions{Limit: 7, Offset: 3, SortOrder: SortAsc}.WithDefaults()
	if kept.Limit != 7 || kept.Offset != 3 || kept.SortOrder != SortAsc {
		t.Fatalf("expected explicit options to survive, got %+v", kept)
	}
}

func TestTimeRangeContainsIsInclusive(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	r := TimeRange{Start: start, End: end}

	if !r.Contains(start) || !r.Contains(end) {
		t.Fatalf("expected both bounds to be inside the range")
	}
	if r.Contains(start.Add(-time.Nanosecond)) || r.Contains(end.Add(time.Nanosecond)) {
		t.Fatalf("expected instants outside the bounds to be excluded")
	}
}

func TestSignalQueryResultKind(t *testing.T) {
	r := &TimeRange{}
	cases := []struct {
		query SignalQuery
		want  SignalsResultKind
	}{
		{SignalQuery{}, ResultSystems},
		{SignalQuery{TimeRange: r}, ResultSignals},
		{SignalQuery{System: "benchmark"}, ResultSystem},
		{SignalQuery{System: "benchmark", TimeRange: r}, ResultSystem},
	}
	for _, tc := range cases {
		if got := tc.query.ResultKind(); got != tc.want {
			t.Fatalf("expected %s for %+v, got %s", tc.want, tc.query, got)
		}
	}
}

func TestSignalsResultMarshalActiveVariant(t *testing.T) {
	data, err := json.Marshal(SignalsResult{Kind: ResultSignals})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "[]" {
		t.Fatalf("expected empty list, got %s", data)
	}

	data, err = json.Marshal(SignalsResult{Kind: ResultSystem, System: &SystemQueryResult{System: "anomaly", Signals: []Signal{}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != `{"system":"anomaly","signals":[],"count":0}` {
		t.Fatalf("unexpected system encoding %s", data)
	}

	if _, err := json.Marshal(SignalsResult{}); err == nil {
		t.Fatalf("expected error for unset kind")
	}
}

func TestSignalsResultUnmarshalSniffsKind(t *testing.T) {
	cases := []struct {
		doc  string
		want SignalsResultKind
	}{
		{`{"system":"benchmark","signals":[],"count":0}`, ResultSystem},
		{`[{"system":"benchmark","signals":[],"count":0}]`, ResultSystems},
		{`[{"source":"benchmark","timestamp":"2025-01-01T00:00:00Z","payload":{}}]`, ResultSignals},
		{`[]`, ResultSignals},
	}
	for _, tc := range cases {
		var got SignalsResult
		if err := json.Unmarshal([]byte(tc.doc), &got); err != nil {
			t.Fatalf("unexpected error for %s: %v", tc.doc, err)
		}
		if got.Kind != tc.want {
			t.Fatalf("expected %s for %s, got %s", tc.want, tc.doc, got.Kind)
		}
	}

	explicit := SignalsResult{Kind: ResultSystems}
	if err := json.Unmarshal([]byte(`[]`), &explicit); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if explicit.Kind != ResultSystems || explicit.Systems == nil {
		t.Fatalf("expected preset kind to win, got %+v", explicit)
	}
}
