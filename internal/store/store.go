package store

import (
	"slices"
	"sort"
	"sync"

	"github.com/miradorstack/intelligence-core/internal/models"
)

// Options bounds store retention. Zero values mean unbounded.
type Options struct {
	MaxSummaries        int
	MaxSignalsPerSystem int
}

// Stats reports store occupancy.
type Stats struct {
	Summaries int
	Signals   map[string]int
}

// Store is the in-memory query store. Summaries are kept newest first and
// signals are bucketed per source tag in insertion order. All methods are
// safe for concurrent use and return shallow copies of the stored slices:
// maps inside summaries and signal payloads are shared and must be treated
// as read-only.
type Store struct {
	mu        sync.RWMutex
	summaries []models.Summary
	buckets   map[string][]models.Signal
	systems   []string
	opts      Options
}

// New constructs an empty Store.
func New(opts Options) *Store {
	return &Store{
		buckets: make(map[string][]models.Signal),
		opts:    opts,
	}
}

// StoreSummary inserts a summary keeping descending timestamp order. A summary
// whose timestamp equals existing ones is placed after them.
func (s *Store) StoreSummary(summary models.Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := sort.Search(len(s.summaries), func(i int) bool {
		return s.summaries[i].Timestamp.Before(summary.Timestamp)
	})
	s.summaries = slices.Insert(s.summaries, idx, summary)

	if limit := s.opts.MaxSummaries; limit > 0 && len(s.summaries) > limit {
		clear(s.summaries[limit:])
		s.summaries = s.summaries[:limit]
	}
}

// StoreSignals appends each signal to the bucket of its source.
func (s *Store) StoreSignals(signals []models.Signal) {
	if len(signals) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, signal := range signals {
		bucket, ok := s.buckets[signal.Source]
		if !ok {
			s.systems = append(s.systems, signal.Source)
		}
		bucket = append(bucket, signal)
		if limit := s.opts.MaxSignalsPerSystem; limit > 0 && len(bucket) > limit {
			bucket = slices.Delete(bucket, 0, len(bucket)-limit)
		}
		s.buckets[signal.Source] = bucket
	}
}

// LatestSummary returns the newest summary.
func (s *Store) LatestSummary() (models.Summary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.summaries) == 0 {
		return models.Summary{}, false
	}
	return s.summaries[0], true
}

// Summaries returns every stored summary, newest first.
func (s *Store) Summaries() []models.Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.summaries)
}

// QueryByTimeRange filters summaries to the inclusive range, orders them and
// applies pagination, in that order.
func (s *Store) QueryByTimeRange(r models.TimeRange, opts models.QueryOptions) []models.Summary {
	opts = opts.WithDefaults()

	s.mu.RLock()
	matched := make([]models.Summary, 0)
	for _, summary := range s.summaries {
		if r.Contains(summary.Timestamp) {
			matched = append(matched, summary)
		}
	}
	s.mu.RUnlock()

	if opts.SortOrder == models.SortAsc {
		slices.SortStableFunc(matched, func(a, b models.Summary) int {
			return a.Timestamp.Compare(b.Timestamp)
		})
	}
	return paginate(matched, opts)
}

// QueryBySystem pages through one bucket. Count is the bucket size before
// pagination.
func (s *Store) QueryBySystem(system string, opts models.QueryOptions) models.SystemQueryResult {
	s.mu.RLock()
	signals := slices.Clone(s.buckets[system])
	s.mu.RUnlock()

	return systemResult(system, signals, opts)
}

// QueryBySystemAndTimeRange pages through the part of one bucket that falls in
// the inclusive range. Count is the filtered size before pagination.
func (s *Store) QueryBySystemAndTimeRange(system string, r models.TimeRange, opts models.QueryOptions) models.SystemQueryResult {
	s.mu.RLock()
	signals := make([]models.Signal, 0)
	for _, signal := range s.buckets[system] {
		if r.Contains(signal.Timestamp) {
			signals = append(signals, signal)
		}
	}
	s.mu.RUnlock()

	return systemResult(system, signals, opts)
}

// Systems lists bucket names in first-seen order.
func (s *Store) Systems() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, len(s.systems))
	copy(out, s.systems)
	return out
}

// Stats reports the number of summaries and signals per bucket.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{Summaries: len(s.summaries), Signals: make(map[string]int, len(s.buckets))}
	for system, bucket := range s.buckets {
		stats.Signals[system] = len(bucket)
	}
	return stats
}

// Clear drops all summaries and buckets.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.summaries = nil
	s.buckets = make(map[string][]models.Signal)
	s.systems = nil
}

func systemResult(system string, signals []models.Signal, opts models.QueryOptions) models.SystemQueryResult {
	opts = opts.WithDefaults()
	if signals == nil {
		signals = []models.Signal{}
	}
	slices.SortStableFunc(signals, func(a, b models.Signal) int {
		if opts.SortOrder == models.SortAsc {
			return a.Timestamp.Compare(b.Timestamp)
		}
		return b.Timestamp.Compare(a.Timestamp)
	})
	return models.SystemQueryResult{
		System:  system,
		Signals: paginate(signals, opts),
		Count:   len(signals),
	}
}

func paginate[T any](items []T, opts models.QueryOptions) []T {
	if opts.Offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if opts.Limit < len(items)-opts.Offset {
		end = opts.Offset + opts.Limit
	}
	return items[opts.Offset:end]
}
