package store

import (
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/miradorstack/intelligence-core/internal/models"
)

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func summaryAt(id string, offset time.Duration) models.Summary {
	return models.Summary{ID: id, Timestamp: base.Add(offset)}
}

func summaryIDs(summaries []models.Summary) string {
	ids := make([]string, 0, len(summaries))
	for _, s := range summaries {
		ids = append(ids, s.ID)
	}
	return strings.Join(ids, ",")
}

func TestLatestSummaryEmpty(t *testing.T) {
	s := New(Options{})
	if _, ok := s.LatestSummary(); ok {
		t.Fatalf("expected no summary in empty store")
	}
}

func TestLatestSummaryIsNewestRegardlessOfInsertOrder(t *testing.T) {
	s := New(Options{})
	s.StoreSummary(summaryAt("mid", time.Minute))
	s.StoreSummary(summaryAt("new", 2*time.Minute))
	s.StoreSummary(summaryAt("old", 0))

	latest, ok := s.LatestSummary()
	if !ok || latest.ID != "new" {
		t.Fatalf("expected newest summary, got %+v", latest)
	}
	if got := summaryIDs(s.Summaries()); got != "new,mid,old" {
		t.Fatalf("expected descending order, got %s", got)
	}
}

func TestStoreSummaryTiesKeepInsertionOrder(t *testing.T) {
	s := New(Options{})
	s.StoreSummary(summaryAt("first", 0))
	s.StoreSummary(summaryAt("second", 0))
	s.StoreSummary(summaryAt("third", 0))

	if got := summaryIDs(s.Summaries()); got != "first,second,third" {
		t.Fatalf("expected insertion order among ties, got %s", got)
	}
	latest, _ := s.LatestSummary()
	if latest.ID != "first" {
		t.Fatalf("expected first inserted summary to win the tie, got %s", latest.ID)
	}
}

func TestQueryByTimeRangeInclusive(t *testing.T) {
	for _, order := range [][]string{{"older", "now"}, {"now", "older"}} {
		s := New(Options{})
		for _, id := range order {
			if id == "older" {
				s.StoreSummary(summaryAt(id, -time.Second))
			} else {
				s.StoreSummary(summaryAt(id, 0))
			}
		}

		got := s.QueryByTimeRange(models.TimeRange{Start: base.Add(-4 * time.Second), End: base.Add(time.Millisecond)}, models.QueryOptions{})
		if len(got) != 2 {
			t.Fatalf("expected both summaries, got %d", len(got))
		}
		if summaryIDs(got) != "now,older" {
			t.Fatalf("expected descending order, got %s", summaryIDs(got))
		}
	}

	s := New(Options{})
	s.StoreSummary(summaryAt("edge", 0))
	if got := s.QueryByTimeRange(models.TimeRange{Start: base, End: base}, models.QueryOptions{}); len(got) != 1 {
		t.Fatalf("expected range bounds to be inclusive, got %d", len(got))
	}
}

func TestQueryByTimeRangeSortAndPaginate(t *testing.T) {
	s := New(Options{})
	for i, id := range []string{"a", "b", "c", "d", "e"} {
		s.StoreSummary(summaryAt(id, time.Duration(i)*time.Minute))
	}
	s.StoreSummary(summaryAt("outside", time.Hour))
	r := models.TimeRange{Start: base, End: base.Add(4 * time.Minute)}

	asc := s.QueryByTimeRange(r, models.QueryOptions{SortOrder: models.SortAsc, Offset: 1, Limit: 2})
	if got := summaryIDs(asc); got != "b,c" {
		t.Fatalf("expected filter, sort asc, then paginate, got %s", got)
	}

	desc := s.QueryByTimeRange(r, models.QueryOptions{Limit: 2})
	if got := summaryIDs(desc); got != "e,d" {
		t.Fatalf("expected newest two in range, got %s", got)
	}

	again := s.QueryByTimeRange(r, models.QueryOptions{Limit: 2})
	if summaryIDs(again) != summaryIDs(desc) {
		t.Fatalf("expected repeated query to be identical")
	}

	if got := s.QueryByTimeRange(r, models.QueryOptions{Offset: 10}); len(got) != 0 || got == nil {
		t.Fatalf("expected empty page past the end, got %v", got)
	}
}

func TestQueryBySystemScenario(t *testing.T) {
	s := New(Options{})
	t1, t2, t3 := base, base.Add(time.Second), base.Add(2*time.Second)
	s.StoreSignals([]models.Signal{
		{Source: models.SourceObservatory, Timestamp: t1, Payload: "first"},
		{Source: models.SourceObservatory, Timestamp: t2, Payload: "second"},
		{Source: models.SourceBenchmark, Timestamp: t3},
	})

	if got := strings.Join(s.Systems(), ","); got != "observatory,benchmark" {
		t.Fatalf("expected systems in first-seen order, got %s", got)
	}

	result := s.QueryBySystem(models.SourceObservatory, models.QueryOptions{})
	if result.System != models.SourceObservatory || result.Count != 2 || len(result.Signals) != 2 {
		t.Fatalf("unexpected result %+v", result)
	}
	if !result.Signals[0].Timestamp.Equal(t2) || !result.Signals[1].Timestamp.Equal(t1) {
		t.Fatalf("expected T2 before T1, got %v then %v", result.Signals[0].Timestamp, result.Signals[1].Timestamp)
	}

	asc := s.QueryBySystem(models.SourceObservatory, models.QueryOptions{SortOrder: models.SortAsc})
	if asc.Signals[0].Payload != "first" {
		t.Fatalf("expected ascending order, got %v", asc.Signals[0].Payload)
	}
}

func TestQueryBySystemCountIgnoresLimit(t *testing.T) {
	s := New(Options{})
	signals := make([]models.Signal, 7)
	for i := range signals {
		signals[i] = models.Signal{Source: "x", Timestamp: base.Add(time.Duration(i) * time.Second)}
	}
	s.StoreSignals(signals)

	page := s.QueryBySystem("x", models.QueryOptions{Limit: 3})
	if len(page.Signals) != 3 || page.Count != 7 {
		t.Fatalf("expected 3 signals of 7, got %d of %d", len(page.Signals), page.Count)
	}

	all := s.QueryBySystem("x", models.QueryOptions{Limit: len(signals)})
	if len(all.Signals) != 7 || all.Count != 7 {
		t.Fatalf("expected round trip of all signals, got %d of %d", len(all.Signals), all.Count)
	}
}

func TestQueryBySystemUnknown(t *testing.T) {
	result := New(Options{}).QueryBySystem("missing", models.QueryOptions{})
	if result.Count != 0 || result.Signals == nil || len(result.Signals) != 0 {
		t.Fatalf("expected empty result, got %+v", result)
	}
}

func TestQueryBySystemAndTimeRangeCountsFiltered(t *testing.T) {
	s := New(Options{})
	for i := 0; i < 10; i++ {
		s.StoreSignals([]models.Signal{{Source: "x", Timestamp: base.Add(time.Duration(i) * time.Minute)}})
	}

	r := models.TimeRange{Start: base.Add(2 * time.Minute), End: base.Add(6 * time.Minute)}
	result := s.QueryBySystemAndTimeRange("x", r, models.QueryOptions{Limit: 2})
	if result.Count != 5 {
		t.Fatalf("expected filtered count 5, got %d", result.Count)
	}
	if len(result.Signals) != 2 || !result.Signals[0].Timestamp.Equal(base.Add(6*time.Minute)) {
		t.Fatalf("unexpected page %+v", result.Signals)
	}
}

func TestRetentionCaps(t *testing.T) {
	s := New(Options{MaxSummaries: 2, MaxSignalsPerSystem: 3})
	for i := 0; i < 4; i++ {
		s.StoreSummary(summaryAt(string(rune('a'+i)), time.Duration(i)*time.Minute))
		s.StoreSignals([]models.Signal{{Source: "x", Timestamp: base.Add(time.Duration(i) * time.Minute), Payload: i}})
	}

	if got := summaryIDs(s.Summaries()); got != "d,c" {
		t.Fatalf("expected oldest summaries dropped, got %s", got)
	}
	result := s.QueryBySystem("x", models.QueryOptions{SortOrder: models.SortAsc})
	if result.Count != 3 || result.Signals[0].Payload != 1 {
		t.Fatalf("expected oldest signal dropped, got %+v", result)
	}
}

func TestStatsAndClear(t *testing.T) {
	s := New(Options{})
	s.StoreSummary(summaryAt("a", 0))
	s.StoreSignals([]models.Signal{{Source: "x"}, {Source: "x"}, {Source: "y"}})

	stats := s.Stats()
	if stats.Summaries != 1 || stats.Signals["x"] != 2 || stats.Signals["y"] != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	s.Clear()
	if _, ok := s.LatestSummary(); ok {
		t.Fatalf("expected no summary after clear")
	}
	if len(s.Systems()) != 0 {
		t.Fatalf("expected no systems after clear")
	}
}

func TestPaginationBounds(t *testing.T) {
	s := New(Options{})
	s.StoreSignals([]models.Signal{
		{Source: "x", Timestamp: base, Payload: "old"},
		{Source: "x", Timestamp: base.Add(time.Minute), Payload: "new"},
	})

	cases := []struct {
		name string
		opts models.QueryOptions
		want []string
	}{
		{"max limit with offset", models.QueryOptions{Limit: math.MaxInt, Offset: 1}, []string{"old"}},
		{"max limit without offset", models.QueryOptions{Limit: math.MaxInt}, []string{"new", "old"}},
		{"offset at last item", models.QueryOptions{Limit: 5, Offset: 1}, []string{"old"}},
		{"offset at length", models.QueryOptions{Limit: 5, Offset: 2}, []string{}},
		{"offset past length", models.QueryOptions{Limit: math.MaxInt, Offset: math.MaxInt}, []string{}},
	}
	for _, tc := range cases {
		result := s.QueryBySystem("x", tc.opts)
		if result.Count != 2 {
			t.Fatalf("%s: expected count 2, got %d", tc.name, result.Count)
		}
		if len(result.Signals) != len(tc.want) {
			t.Fatalf("%s: expected %d signals, got %+v", tc.name, len(tc.want), result.Signals)
		}
		for i, want := range tc.want {
			if result.Signals[i].Payload != want {
				t.Fatalf("%s: expected %q at %d, got %v", tc.name, want, i, result.Signals[i].Payload)
			}
		}
	}

	window := models.TimeRange{Start: base, End: base.Add(time.Hour)}
	ranged := s.QueryBySystemAndTimeRange("x", window, models.QueryOptions{Limit: math.MaxInt, Offset: 1})
	if len(ranged.Signals) != 1 || ranged.Signals[0].Payload != "old" {
		t.Fatalf("expected the older signal only, got %+v", ranged.Signals)
	}

	s.StoreSummary(summaryAt("a", 0))
	s.StoreSummary(summaryAt("b", time.Minute))
	got := s.QueryByTimeRange(models.TimeRange{Start: base, End: base.Add(time.Hour)}, models.QueryOptions{Limit: math.MaxInt, Offset: 1})
	if summaryIDs(got) != "a" {
		t.Fatalf("expected only the older summary, got %q", summaryIDs(got))
	}
}

func TestReturnedSlicesAreCopies(t *testing.T) {
	s := New(Options{})
	s.StoreSignals([]models.Signal{{Source: "x", Payload: "original"}})

	systems := s.Systems()
	systems[0] = "mutated"
	result := s.QueryBySystem("x", models.QueryOptions{})
	result.Signals[0].Payload = "mutated"

	if s.Systems()[0] != "x" {
		t.Fatalf("expected systems to be unaffected by caller mutation")
	}
	if s.QueryBySystem("x", models.QueryOptions{}).Signals[0].Payload != "original" {
		t.Fatalf("expected bucket to be unaffected by caller mutation")
	}
}

func TestReturnedCopiesAreShallow(t *testing.T) {
	s := New(Options{})
	s.StoreSignals([]models.Signal{{Source: "x", Metadata: map[string]any{"schemaValid": true}}})

	first := s.QueryBySystem("x", models.QueryOptions{})
	second := s.QueryBySystem("x", models.QueryOptions{})
	if &first.Signals[0] == &second.Signals[0] {
		t.Fatalf("expected each query to return its own slice")
	}
	first.Signals[0].Metadata["schemaValid"] = false
	if second.Signals[0].Metadata["schemaValid"] != false {
		t.Fatalf("expected metadata maps to be shared between results")
	}
}

func TestConcurrentAccess(t *testing.T) {
	s := New(Options{MaxSignalsPerSystem: 50})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.StoreSummary(summaryAt("s", time.Duration(j)*time.Second))
				s.StoreSignals([]models.Signal{{Source: "x", Timestamp: base}})
				_ = s.QueryBySystem("x", models.QueryOptions{Limit: 5})
				_, _ = s.LatestSummary()
			}
		}(i)
	}
	wg.Wait()

	if got := s.Stats().Summaries; got != 800 {
		t.Fatalf("expected 800 summaries, got %d", got)
	}
	if got := s.Stats().Signals["x"]; got != 50 {
		t.Fatalf("expected bucket capped at 50, got %d", got)
	}
}
