package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/miradorstack/intelligence-core/internal/cache"
	"github.com/miradorstack/intelligence-core/internal/models"
)

const (
	// consecutiveFailuresToTrip opens a source breaker after this many failures in a row.
	consecutiveFailuresToTrip = 5

	// fillLockTTL bounds how long one fetcher holds the right to refill a key.
	fillLockTTL = 10 * time.Second
	// fillWaitInterval and fillWaitAttempts bound how long a fetcher waits on
	// another fetcher's refill before calling the upstream itself.
	fillWaitInterval = 50 * time.Millisecond
	fillWaitAttempts = 5
)

// HTTPOptions configures one upstream HTTP adapter.
type HTTPOptions struct {
	BaseURL       string
	Path          string
	Timeout       time.Duration
	RatePerSecond float64
	CacheTTL      time.Duration
	Cache         cache.Provider
	Client        *http.Client
	Logger        *slog.Logger
}

// httpFetcher POSTs a JSON request to one upstream endpoint and decodes the
// reply into a loosely-typed value.
type httpFetcher struct {
	source     string
	endpoint   string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	limiter    *rate.Limiter
	cache      cache.Provider
	cacheTTL   time.Duration
	logger     *slog.Logger
}

type cachedPayload struct {
	Value any `json:"value"`
}

func newHTTPFetcher(source string, opts HTTPOptions) *httpFetcher {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	provider := opts.Cache
	if provider == nil {
		provider = cache.NoopProvider{}
	}

	var limiter *rate.Limiter
	if opts.RatePerSecond > 0 {
		burst := int(math.Ceil(opts.RatePerSecond))
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), max(burst, 1))
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        source,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= consecutiveFailuresToTrip
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("source circuit breaker state change",
				slog.String("source", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	})

	return &httpFetcher{
		source:     source,
		endpoint:   resolvePath(opts.BaseURL, opts.Path),
		httpClient: client,
		breaker:    breaker,
		limiter:    limiter,
		cache:      provider,
		cacheTTL:   opts.CacheTTL,
		logger:     logger,
	}
}

func (f *httpFetcher) fetch(ctx context.Context, scope string) (any, error) {
	if f.endpoint == "" {
		return nil, fmt.Errorf("%s base URL not configured", f.source)
	}

	key := cacheKey(f.source, scope)
	if f.cacheTTL > 0 {
		if value, ok := f.readCache(ctx, key); ok {
			return value, nil
		}
		release, acquired := f.lockFill(ctx, key)
		if acquired {
			defer release()
		} else if value, ok := f.awaitFill(ctx, key); ok {
			return value, nil
		}
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%s rate limiter: %w", f.source, err)
		}
	}

	body := map[string]any{}
	if scope != "" {
		body["scope"] = scope
	}
	result, err := f.breaker.Execute(func() (any, error) {
		return f.postJSON(ctx, body)
	})
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", f.source, err)
	}

	if f.cacheTTL > 0 {
		if err := cache.SetJSON(ctx, f.cache, key, cachedPayload{Value: result}, f.cacheTTL); err != nil {
			f.logger.Debug("source cache write failed", slog.String("source", f.source), slog.Any("error", err))
		}
	}
	return result, nil
}

func cacheKey(source, scope string) string {
	return "intel:source:" + source + ":" + scope
}

func fillLockKey(key string) string {
	return key + ":fill"
}

func (f *httpFetcher) readCache(ctx context.Context, key string) (any, bool) {
	var cached cachedPayload
	err := cache.GetJSON(ctx, f.cache, key, &cached)
	if err == nil {
		return cached.Value, true
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		f.logger.Debug("source cache read failed", slog.String("source", f.source), slog.Any("error", err))
	}
	return nil, false
}

// lockFill claims the refill of key so concurrent misses do not all reach the
// upstream. A lock error counts as acquired.
func (f *httpFetcher) lockFill(ctx context.Context, key string) (func(), bool) {
	lockKey := fillLockKey(key)
	ok, err := f.cache.SetNX(ctx, lockKey, []byte(f.source), fillLockTTL)
	if err != nil {
		f.logger.Debug("source cache lock failed", slog.String("source", f.source), slog.Any("error", err))
		return func() {}, true
	}
	if !ok {
		return nil, false
	}
	return func() {
		if err := f.cache.Del(context.WithoutCancel(ctx), lockKey); err != nil {
			f.logger.Debug("source cache unlock failed", slog.String("source", f.source), slog.Any("error", err))
		}
	}, true
}

// awaitFill polls the cache while another fetcher refills key.
func (f *httpFetcher) awaitFill(ctx context.Context, key string) (any, bool) {
	timer := time.NewTimer(fillWaitInterval)
	defer timer.Stop()
	for i := 0; i < fillWaitAttempts; i++ {
		select {
		case <-ctx.Done():
			return nil, false
		case <-timer.C:
		}
		if value, ok := f.readCache(ctx, key); ok {
			return value, true
		}
		timer.Reset(fillWaitInterval)
	}
	return nil, false
}

func (f *httpFetcher) postJSON(ctx context.Context, payload any) (any, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNoContent:
		return nil, nil
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%s returned %s", f.source, resp.Status)
	}

	var out any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return out, nil
}

func resolvePath(baseURL, p string) string {
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		return ""
	}
	cleaned := "/" + strings.TrimLeft(p, "/")
	u, err := url.Parse(baseURL)
	if err != nil {
		return baseURL + cleaned
	}
	u.Path = path.Join(u.Path, cleaned)
	return u.String()
}

// ObservatoryClient fetches drift reports over HTTP.
type ObservatoryClient struct{ f *httpFetcher }

// NewObservatoryClient builds the drift adapter.
func NewObservatoryClient(opts HTTPOptions) *ObservatoryClient {
	return &ObservatoryClient{f: newHTTPFetcher(models.SourceObservatory, opts)}
}

func (c *ObservatoryClient) FetchDrift(ctx context.Context, scope string) (any, error) {
	return c.f.fetch(ctx, scope)
}

// LatencyLensClient fetches performance profiles over HTTP.
type LatencyLensClient struct{ f *httpFetcher }

// NewLatencyLensClient builds the performance adapter.
func NewLatencyLensClient(opts HTTPOptions) *LatencyLensClient {
	return &LatencyLensClient{f: newHTTPFetcher(models.SourceLatencyLens, opts)}
}

func (c *LatencyLensClient) FetchPerformance(ctx context.Context, scope string) (any, error) {
	return c.f.fetch(ctx, scope)
}

// BenchmarkClient fetches benchmark results over HTTP.
type BenchmarkClient struct{ f *httpFetcher }

// NewBenchmarkClient builds the benchmark adapter.
func NewBenchmarkClient(opts HTTPOptions) *BenchmarkClient {
	return &BenchmarkClient{f: newHTTPFetcher(models.SourceBenchmark, opts)}
}

func (c *BenchmarkClient) FetchBenchmarkResults(ctx context.Context) (any, error) {
	return c.f.fetch(ctx, "")
}

// TelemetryClient fetches telemetry snapshots over HTTP.
type TelemetryClient struct{ f *httpFetcher }

// NewTelemetryClient builds the telemetry adapter.
func NewTelemetryClient(opts HTTPOptions) *TelemetryClient {
	return &TelemetryClient{f: newHTTPFetcher(models.SourceTelemetry, opts)}
}

func (c *TelemetryClient) FetchTelemetry(ctx context.Context) (any, error) {
	return c.f.fetch(ctx, "")
}

// AnomalyClient fetches detected anomalies over HTTP.
type AnomalyClient struct{ f *httpFetcher }

// NewAnomalyClient builds the anomaly adapter.
func NewAnomalyClient(opts HTTPOptions) *AnomalyClient {
	return &AnomalyClient{f: newHTTPFetcher(models.SourceAnomaly, opts)}
}

func (c *AnomalyClient) FetchAnomalies(ctx context.Context) (any, error) {
	return c.f.fetch(ctx, "")
}
