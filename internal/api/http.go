package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/miradorstack/intelligence-core/internal/models"
	"github.com/miradorstack/intelligence-core/internal/utils"
)

const (
	serviceName    = "intelligence-core"
	serviceVersion = "0.1.0"
)

// Intelligence is the read and control surface served over HTTP.
type Intelligence interface {
	RunCycle(ctx context.Context) (models.Summary, error)
	Summary(ctx context.Context) (models.Summary, error)
	Drift(ctx context.Context) (models.DriftAnalysis, error)
	Performance(ctx context.Context) (models.PerformanceOverview, error)
	QuerySignals(ctx context.Context, q models.SignalQuery) (models.SignalsResult, error)
	Systems(ctx context.Context) ([]string, error)
	Patterns(ctx context.Context) ([]models.AnomalyPattern, error)
}

// RouterConfig toggles optional middleware.
type RouterConfig struct {
	// TracingService enables otelgin spans under this service name when set.
	TracingService string
}

// NewRouter builds the gin engine serving the JSON API.
func NewRouter(logger *slog.Logger, svc Intelligence, cfg RouterConfig) *gin.Engine {
	if logger == nil {
		logger = slog.Default()
	}
	router := gin.New()

	// otel span first so recovery and request logs carry the trace context
	if cfg.TracingService != "" {
		router.Use(otelgin.Middleware(cfg.TracingService))
	}
	router.Use(recovery(logger))
	router.Use(requestLogger(logger))

	h := &handlers{svc: svc, logger: logger}
	router.GET("/", h.health)
	router.GET("/health", h.health)
	router.GET("/summary", h.summary)
	router.GET("/drift", h.drift)
	router.GET("/performance", h.performance)
	router.GET("/signals", h.signals)
	router.GET("/systems", h.systems)
	router.GET("/patterns", h.patterns)
	router.POST("/cycle", h.runCycle)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})
	return router
}

type handlers struct {
	svc    Intelligence
	logger *slog.Logger
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": serviceName,
		"version": serviceVersion,
	})
}

func (h *handlers) summary(c *gin.Context) {
	summary, err := h.svc.Summary(c.Request.Context())
	h.respond(c, summary, err)
}

func (h *handlers) drift(c *gin.Context) {
	drift, err := h.svc.Drift(c.Request.Context())
	h.respond(c, drift, err)
}

func (h *handlers) performance(c *gin.Context) {
	perf, err := h.svc.Performance(c.Request.Context())
	h.respond(c, perf, err)
}

func (h *handlers) signals(c *gin.Context) {
	q, err := ParseQuery(QueryParams{
		System: c.Query("system"),
		Start:  c.Query("start"),
		End:    c.Query("end"),
		Limit:  c.Query("limit"),
		Offset: c.Query("offset"),
		Sort:   c.Query("sort"),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	result, err := h.svc.QuerySignals(c.Request.Context(), q)
	h.respond(c, result, err)
}

func (h *handlers) systems(c *gin.Context) {
	systems, err := h.svc.Systems(c.Request.Context())
	h.respond(c, systems, err)
}

func (h *handlers) patterns(c *gin.Context) {
	patterns, err := h.svc.Patterns(c.Request.Context())
	h.respond(c, patterns, err)
}

func (h *handlers) runCycle(c *gin.Context) {
	summary, err := h.svc.RunCycle(c.Request.Context())
	h.respond(c, summary, err)
}

func (h *handlers) respond(c *gin.Context, body any, err error) {
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, body)
}

func (h *handlers) fail(c *gin.Context, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.ErrorContext(c.Request.Context(), "request failed",
			slog.String("path", c.Request.URL.Path),
			slog.String("op", utils.OpOf(err)),
			slog.Any("error", err))
	}
	_ = c.Error(err)
	c.JSON(status, gin.H{"error": err.Error()})
}

// StatusFor maps a service error onto an HTTP status code.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, models.ErrNotInitialized):
		return http.StatusServiceUnavailable
	case errors.Is(err, models.ErrInvalidQuery):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func recovery(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.ErrorContext(c.Request.Context(), "panic recovered",
					slog.Any("error", rec),
					slog.String("method", c.Request.Method),
					slog.String("path", c.Request.URL.Path),
					slog.String("stack", string(debug.Stack())))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			}
		}()
		c.Next()
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if c.Request.URL.RawQuery != "" {
			path = path + "?" + c.Request.URL.RawQuery
		}

		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.Int("status", status),
			slog.Int64("latency_ms", time.Since(start).Milliseconds()),
			slog.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, slog.String("errors", c.Errors.String()))
		}

		ctx := c.Request.Context()
		switch {
		case status >= 500:
			logger.ErrorContext(ctx, "request failed", attrs...)
		case status >= 400:
			logger.WarnContext(ctx, "request error", attrs...)
		default:
			logger.DebugContext(ctx, "request", attrs...)
		}
	}
}

// HTTPServer wraps the JSON API listener.
type HTTPServer struct {
	server   *http.Server
	listener net.Listener
}

// NewHTTPServer binds handler to addr.
func NewHTTPServer(addr string, handler http.Handler) (*HTTPServer, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	return &HTTPServer{
		listener: lis,
		server: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
	}, nil
}

// Start serves until Shutdown. A clean shutdown returns nil.
func (s *HTTPServer) Start() error {
	if err := s.server.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and drains in-flight requests.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Address exposes the bound listener address.
func (s *HTTPServer) Address() string {
	return s.listener.Addr().String()
}
