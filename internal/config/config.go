package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Source modes.
const (
	SourceModeMock = "mock"
	SourceModeHTTP = "http"
)

// Cache modes.
const (
	CacheModeMemory = "memory"
	CacheModeRedis  = "redis"
)

// Config captures every setting required to boot intelligence-core.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Aggregation AggregationConfig `yaml:"aggregation"`
	Sources     SourcesConfig     `yaml:"sources"`
	Store       StoreConfig       `yaml:"store"`
	Logging     LoggingConfig     `yaml:"logging"`
	Rules       RulesConfig       `yaml:"rules"`
	Cache       CacheConfig       `yaml:"cache"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
}

// ServerConfig controls the HTTP, gRPC and metrics listeners.
type ServerConfig struct {
	HTTPAddress     string        `yaml:"httpAddress"`
	GRPCAddress     string        `yaml:"grpcAddress"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// AggregationConfig controls the aggregation cycle.
type AggregationConfig struct {
	Scope            string        `yaml:"scope"`
	Interval         time.Duration `yaml:"interval"`
	FetchConcurrency int           `yaml:"fetchConcurrency"`
	ValidateSchemas  bool          `yaml:"validateSchemas"`
}

// SourcesConfig selects the upstream adapters.
type SourcesConfig struct {
	Mode        string       `yaml:"mode"`
	Observatory SourceConfig `yaml:"observatory"`
	LatencyLens SourceConfig `yaml:"latencyLens"`
	Benchmark   SourceConfig `yaml:"benchmark"`
	Telemetry   SourceConfig `yaml:"telemetry"`
	Anomaly     SourceConfig `yaml:"anomaly"`
}

// SourceConfig configures one upstream system.
type SourceConfig struct {
	Enabled       bool          `yaml:"enabled"`
	BaseURL       string        `yaml:"baseURL"`
	Path          string        `yaml:"path"`
	Timeout       time.Duration `yaml:"timeout"`
	RatePerSecond float64       `yaml:"ratePerSecond"`
	CacheTTL      time.Duration `yaml:"cacheTTL"`
}

// StoreConfig bounds the in-memory query store. Zero means unbounded.
type StoreConfig struct {
	MaxSummaries        int `yaml:"maxSummaries"`
	MaxSignalsPerSystem int `yaml:"maxSignalsPerSystem"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// RulesConfig points at the correlation rule pack.
type RulesConfig struct {
	Path string `yaml:"path"`
}

// CacheConfig controls caching of upstream payloads.
type CacheConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Mode         string        `yaml:"mode"`
	Addr         string        `yaml:"addr"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	MaxRetries   int           `yaml:"maxRetries"`
	TLS          bool          `yaml:"tls"`
}

// TelemetryConfig controls OpenTelemetry export. An empty endpoint disables it.
type TelemetryConfig struct {
	Endpoint    string `yaml:"endpoint"`
	Headers     string `yaml:"headers"`
	ServiceName string `yaml:"serviceName"`
}

// Enabled reports whether an OTLP endpoint is configured.
func (t TelemetryConfig) Enabled() bool {
	return t.Endpoint != ""
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("INTEL_CORE_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			HTTPAddress:     ":8080",
			GRPCAddress:     ":50051",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		Aggregation: AggregationConfig{
			Scope:            "default",
			Interval:         30 * time.Second,
			FetchConcurrency: 5,
			ValidateSchemas:  true,
		},
		Sources: SourcesConfig{
			Mode:        SourceModeMock,
			Observatory: defaultSource("/api/v1/drift"),
			LatencyLens: defaultSource("/api/v1/performance"),
			Benchmark:   defaultSource("/api/v1/benchmarks/latest"),
			Telemetry:   defaultSource("/api/v1/metrics/latest"),
			Anomaly:     defaultSource("/api/v1/anomalies/latest"),
		},
		Store:   StoreConfig{MaxSummaries: 1000, MaxSignalsPerSystem: 5000},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Rules:   RulesConfig{Path: "configs/correlations.yaml"},
		Cache: CacheConfig{
			Enabled:      false,
			Mode:         CacheModeMemory,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
			MaxRetries:   2,
		},
		Telemetry: TelemetryConfig{ServiceName: "intelligence-core"},
	}
}

func defaultSource(path string) SourceConfig {
	return SourceConfig{
		Enabled:       true,
		Path:          path,
		Timeout:       5 * time.Second,
		RatePerSecond: 5,
		CacheTTL:      0,
	}
}

func (c *Config) validate() error {
	switch c.Sources.Mode {
	case SourceModeMock, SourceModeHTTP:
	default:
		return fmt.Errorf("invalid sources.mode %q: expected %q or %q", c.Sources.Mode, SourceModeMock, SourceModeHTTP)
	}
	switch c.Cache.Mode {
	case CacheModeMemory, CacheModeRedis:
	default:
		return fmt.Errorf("invalid cache.mode %q: expected %q or %q", c.Cache.Mode, CacheModeMemory, CacheModeRedis)
	}
	if c.Aggregation.Interval < 0 {
		return fmt.Errorf("aggregation.interval must not be negative")
	}
	if c.Aggregation.Scope == "" {
		c.Aggregation.Scope = "default"
	}
	if c.Aggregation.FetchConcurrency <= 0 {
		c.Aggregation.FetchConcurrency = 1
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.HTTPAddress = ":" + strings.TrimPrefix(v, ":")
	}
	if v := os.Getenv("INTEL_CORE_HTTP_ADDRESS"); v != "" {
		cfg.Server.HTTPAddress = v
	}
	if v, ok := os.LookupEnv("INTEL_CORE_GRPC_ADDRESS"); ok {
		cfg.Server.GRPCAddress = v
	}
	if v, ok := os.LookupEnv("INTEL_CORE_METRICS_ADDRESS"); ok {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("INTEL_CORE_GRACEFUL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.GracefulTimeout = d
		}
	}
	if v := os.Getenv("INTEL_CORE_SCOPE"); v != "" {
		cfg.Aggregation.Scope = v
	}
	if v := os.Getenv("INTEL_CORE_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Aggregation.Interval = d
		}
	}
	if v := os.Getenv("INTEL_CORE_FETCH_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Aggregation.FetchConcurrency = n
		}
	}
	if v := os.Getenv("INTEL_CORE_VALIDATE_SCHEMAS"); v != "" {
		cfg.Aggregation.ValidateSchemas = parseBool(v)
	}
	if v := os.Getenv("INTEL_CORE_SOURCES_MODE"); v != "" {
		cfg.Sources.Mode = strings.ToLower(v)
	}
	overrideSource(&cfg.Sources.Observatory, "OBSERVATORY")
	overrideSource(&cfg.Sources.LatencyLens, "LATENCY_LENS")
	overrideSource(&cfg.Sources.Benchmark, "BENCHMARK")
	overrideSource(&cfg.Sources.Telemetry, "TELEMETRY")
	overrideSource(&cfg.Sources.Anomaly, "ANOMALY")
	if v := os.Getenv("INTEL_CORE_STORE_MAX_SUMMARIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Store.MaxSummaries = n
		}
	}
	if v := os.Getenv("INTEL_CORE_STORE_MAX_SIGNALS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Store.MaxSignalsPerSystem = n
		}
	}
	if v := os.Getenv("INTEL_CORE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("INTEL_CORE_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("INTEL_CORE_RULES_PATH"); v != "" {
		cfg.Rules.Path = v
	}
	if v := os.Getenv("INTEL_CORE_CACHE_ENABLED"); v != "" {
		cfg.Cache.Enabled = parseBool(v)
	}
	if v := os.Getenv("INTEL_CORE_CACHE_MODE"); v != "" {
		cfg.Cache.Mode = strings.ToLower(v)
	}
	if v := os.Getenv("INTEL_CORE_CACHE_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := os.Getenv("INTEL_CORE_CACHE_USERNAME"); v != "" {
		cfg.Cache.Username = v
	}
	if v := os.Getenv("INTEL_CORE_CACHE_PASSWORD"); v != "" {
		cfg.Cache.Password = v
	}
	if v := os.Getenv("INTEL_CORE_CACHE_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Cache.DB = db
		}
	}
	if v := os.Getenv("INTEL_CORE_CACHE_TLS"); parseBool(v) {
		cfg.Cache.TLS = true
	}
	if v := os.Getenv("INTEL_CORE_CACHE_MAX_RETRIES"); v != "" {
		if retry, err := strconv.Atoi(v); err == nil {
			cfg.Cache.MaxRetries = retry
		}
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.Telemetry.Endpoint = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"); v != "" {
		cfg.Telemetry.Headers = v
	}
	if v := os.Getenv("OTEL_SERVICE_NAME"); v != "" {
		cfg.Telemetry.ServiceName = v
	}
}

func overrideSource(src *SourceConfig, name string) {
	prefix := "INTEL_CORE_" + name + "_"
	if v := os.Getenv(prefix + "ENABLED"); v != "" {
		src.Enabled = parseBool(v)
	}
	if v := os.Getenv(prefix + "URL"); v != "" {
		src.BaseURL = v
	}
	if v := os.Getenv(prefix + "PATH"); v != "" {
		src.Path = v
	}
	if v := os.Getenv(prefix + "TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			src.Timeout = d
		}
	}
	if v := os.Getenv(prefix + "RATE"); v != "" {
		if r, err := strconv.ParseFloat(v, 64); err == nil {
			src.RatePerSecond = r
		}
	}
	if v := os.Getenv(prefix + "CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			src.CacheTTL = d
		}
	}
}

func parseBool(v string) bool {
	return strings.EqualFold(v, "true") || v == "1"
}
