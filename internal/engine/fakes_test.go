package engine

import (
	"context"
	"sync"

	"github.com/miradorstack/intelligence-core/internal/models"
)

type fakeDrift struct {
	mu      sync.Mutex
	payload any
	err     error
	calls   int
	scope   string
}

func (f *fakeDrift) FetchDrift(_ context.Context, scope string) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.scope = scope
	return f.payload, f.err
}

type fakePerformance struct {
	mu      sync.Mutex
	payload any
	err     error
	calls   int
}

func (f *fakePerformance) FetchPerformance(context.Context, string) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.payload, f.err
}

type fakeBenchmark struct {
	payload any
	err     error
}

func (f *fakeBenchmark) FetchBenchmarkResults(context.Context) (any, error) {
	return f.payload, f.err
}

type fakeTelemetry struct {
	payload any
	err     error
}

func (f *fakeTelemetry) FetchTelemetry(context.Context) (any, error) {
	return f.payload, f.err
}

type fakeAnomaly struct {
	payload any
	err     error
}

func (f *fakeAnomaly) FetchAnomalies(context.Context) (any, error) {
	return f.payload, f.err
}

type fakeValidator struct {
	invalid map[string]bool
}

func (f fakeValidator) Validate(source string, _ any) (models.Validation, bool) {
	if source == models.SourceTelemetry {
		return models.Validation{}, false
	}
	if f.invalid[source] {
		return models.Validation{Schema: source + ".v1", Valid: false, Errors: []string{"/: type"}}, true
	}
	return models.Validation{Schema: source + ".v1", Valid: true}, true
}
