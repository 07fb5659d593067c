package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/miradorstack/intelligence-core/internal/api"
	"github.com/miradorstack/intelligence-core/internal/cache"
	"github.com/miradorstack/intelligence-core/internal/config"
	"github.com/miradorstack/intelligence-core/internal/metrics"
	"github.com/miradorstack/intelligence-core/internal/services"
	"github.com/miradorstack/intelligence-core/internal/telemetry"
	"github.com/miradorstack/intelligence-core/internal/utils"
)

const version = "0.1.0"

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tel, err := telemetry.Setup(ctx, cfg.Telemetry, version)
	if err != nil {
		slog.Error("failed to set up telemetry", slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	if tel != nil {
		logger = utils.NewTelemetryLogger(cfg.Logging.Level, cfg.Logging.JSON, cfg.Telemetry.ServiceName)
	}
	slog.SetDefault(logger)
	logger.Info("starting intelligence-core",
		slog.String("http_address", cfg.Server.HTTPAddress),
		slog.String("grpc_address", cfg.Server.GRPCAddress),
		slog.String("sources_mode", cfg.Sources.Mode))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	cacheProvider := newCacheProvider(cfg.Cache, logger)
	defer cacheProvider.Close()

	core, err := services.NewFromConfig(cfg, cacheProvider, logger)
	if err != nil {
		logger.Error("failed to build intelligence service", slog.Any("error", err))
		os.Exit(1)
	}

	gin.SetMode(gin.ReleaseMode)
	routerCfg := api.RouterConfig{}
	if tel != nil {
		routerCfg.TracingService = cfg.Telemetry.ServiceName
	}
	httpServer, err := api.NewHTTPServer(cfg.Server.HTTPAddress, api.NewRouter(logger, core, routerCfg))
	if err != nil {
		logger.Error("failed to create HTTP server", slog.Any("error", err))
		os.Exit(1)
	}

	var grpcServer *api.Server
	if cfg.Server.GRPCAddress != "" {
		grpcServer, err = api.NewServer(cfg.Server, services.NewGRPCService(logger, core))
		if err != nil {
			logger.Error("failed to create gRPC server", slog.Any("error", err))
			os.Exit(1)
		}
	}

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	go func() {
		logger.Info("http server listening", slog.String("address", httpServer.Address()))
		if err := httpServer.Start(); err != nil {
			logger.Error("http server exited", slog.Any("error", err))
			stop()
		}
	}()

	if grpcServer != nil {
		go func() {
			logger.Info("grpc server listening", slog.String("address", grpcServer.Address()))
			if err := grpcServer.Start(); err != nil {
				logger.Error("gRPC server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		core.Start(ctx, cfg.Aggregation.Interval)
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server shutdown", slog.Any("error", err))
	}
	if grpcServer != nil {
		grpcServer.Shutdown(shutdownCtx)
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
	}

	select {
	case <-loopDone:
	case <-shutdownCtx.Done():
		logger.Warn("aggregation loop did not stop before the graceful timeout")
	}

	if err := tel.Shutdown(shutdownCtx); err != nil {
		logger.Warn("telemetry shutdown", slog.Any("error", err))
	}
	logger.Info("intelligence-core stopped")
}

func newCacheProvider(cfg config.CacheConfig, logger *slog.Logger) cache.Provider {
	if !cfg.Enabled {
		return cache.NoopProvider{}
	}
	if cfg.Mode == config.CacheModeMemory {
		return cache.NewMemoryProvider()
	}

	provider, err := cache.NewRedisProvider(cache.RedisConfig{
		Addr:         cfg.Addr,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		MaxRetries:   cfg.MaxRetries,
		TLS:          cfg.TLS,
	})
	if err != nil {
		logger.Warn("redis cache unavailable, continuing without cache", slog.Any("error", err))
		return cache.NoopProvider{}
	}
	return provider
}
