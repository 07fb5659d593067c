package main

import (
	"encoding/json"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"time"
)

type driftReport struct {
	DriftDetected   bool           `json:"driftDetected"`
	AffectedSchemas []string       `json:"affectedSchemas"`
	Severity        string         `json:"severity"`
	Details         map[string]any `json:"details"`
}

type performanceProfile struct {
	AvgLatency float64        `json:"avgLatency"`
	P95Latency float64        `json:"p95Latency"`
	P99Latency float64        `json:"p99Latency"`
	Throughput float64        `json:"throughput"`
	Trends     map[string]any `json:"trends"`
}

type benchmarkResult struct {
	BenchmarkID string  `json:"benchmarkId"`
	TaskType    string  `json:"taskType"`
	Score       float64 `json:"score"`
}

type serviceSnapshot struct {
	ServiceID string  `json:"serviceId"`
	CPU       float64 `json:"cpu"`
	Memory    float64 `json:"memory"`
	Requests  float64 `json:"requests"`
	Errors    float64 `json:"errors"`
}

type anomaly struct {
	AnomalyID   string    `json:"anomalyId"`
	Type        string    `json:"type"`
	Severity    string    `json:"severity"`
	Timestamp   time.Time `json:"timestamp"`
	Description string    `json:"description"`
}

type scenario struct {
	drift    bool
	critical bool
	now      func() time.Time
}

func main() {
	addr := flag.String("addr", ":8091", "listen address")
	drift := flag.Bool("drift", false, "report schema drift")
	critical := flag.Bool("critical", false, "report a critical anomaly")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil)).With(slog.String("component", "mock-sources"))
	srv := &http.Server{
		Addr:              *addr,
		Handler:           logRequests(logger, newMux(scenario{drift: *drift, critical: *critical, now: time.Now})),
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("listening", slog.String("address", *addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", slog.Any("error", err))
		os.Exit(1)
	}
}

func newMux(sc scenario) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/api/v1/drift", post(func() any {
		if !sc.drift {
			return driftReport{AffectedSchemas: []string{}, Severity: "low", Details: map[string]any{}}
		}
		return driftReport{
			DriftDetected:   true,
			AffectedSchemas: []string{"orders.v2", "payments.v1"},
			Severity:        "high",
			Details:         map[string]any{"orders.v2": "field total changed type"},
		}
	}))

	mux.HandleFunc("/api/v1/performance", post(func() any {
		return performanceProfile{
			AvgLatency: 65,
			P95Latency: 120,
			P99Latency: 250,
			Throughput: 1500,
			Trends:     map[string]any{"latency": "stable"},
		}
	}))

	mux.HandleFunc("/api/v1/benchmarks/latest", post(func() any {
		return []benchmarkResult{
			{BenchmarkID: "bench-1", TaskType: "latency", Score: 85},
			{BenchmarkID: "bench-2", TaskType: "throughput", Score: 72.5},
		}
	}))

	mux.HandleFunc("/api/v1/metrics/latest", post(func() any {
		return []serviceSnapshot{
			{ServiceID: "checkout", CPU: 45.5, Memory: 2048, Requests: 10000, Errors: 5},
			{ServiceID: "payments", CPU: 71.2, Memory: 4096, Requests: 3200, Errors: 41},
		}
	}))

	mux.HandleFunc("/api/v1/anomalies/latest", post(func() any {
		now := sc.now().UTC()
		found := []anomaly{{
			AnomalyID:   "anomaly-1",
			Type:        "latency-spike",
			Severity:    "medium",
			Timestamp:   now.Add(-2 * time.Minute),
			Description: "Latency spike detected on checkout",
		}}
		if sc.critical {
			found = append(found, anomaly{
				AnomalyID:   "anomaly-2",
				Type:        "error-burst",
				Severity:    "critical",
				Timestamp:   now.Add(-30 * time.Second),
				Description: "Error rate above 5% on payments",
			})
		}
		return found
	}))
	return mux
}

func post(payload func() any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(payload()); err != nil {
			slog.Error("encode response", slog.Any("error", err))
		}
	}
}

func logRequests(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		logger.Info("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rw.status),
			slog.Duration("latency", time.Since(start)))
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
