package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("INTEL_CORE_CONFIG", "")
	t.Setenv("PORT", "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.HTTPAddress != ":8080" {
		t.Fatalf("expected default http address, got %q", cfg.Server.HTTPAddress)
	}
	if cfg.Aggregation.Scope != "default" {
		t.Fatalf("expected default scope, got %q", cfg.Aggregation.Scope)
	}
	if cfg.Sources.Mode != SourceModeMock {
		t.Fatalf("expected mock sources by default, got %q", cfg.Sources.Mode)
	}
	if !cfg.Sources.Anomaly.Enabled {
		t.Fatalf("expected anomaly source enabled by default")
	}
	if cfg.Telemetry.Enabled() {
		t.Fatalf("expected telemetry disabled by default")
	}
}

func TestLoadYAMLAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(`server:
  httpAddress: ":9000"
aggregation:
  interval: 1m
sources:
  mode: http
  observatory:
    enabled: true
    baseURL: http://observatory:8080
store:
  maxSummaries: 10
`), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("PORT", "")
	t.Setenv("INTEL_CORE_LOG_LEVEL", "debug")
	t.Setenv("INTEL_CORE_ANOMALY_URL", "http://sentinel:9000")
	t.Setenv("INTEL_CORE_ANOMALY_TIMEOUT", "750ms")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.HTTPAddress != ":9000" {
		t.Fatalf("expected yaml http address, got %q", cfg.Server.HTTPAddress)
	}
	if cfg.Aggregation.Interval != time.Minute {
		t.Fatalf("expected 1m interval, got %v", cfg.Aggregation.Interval)
	}
	if cfg.Sources.Observatory.BaseURL != "http://observatory:8080" {
		t.Fatalf("unexpected observatory url %q", cfg.Sources.Observatory.BaseURL)
	}
	if cfg.Sources.Observatory.Path != "/api/v1/drift" {
		t.Fatalf("expected default path to survive partial yaml, got %q", cfg.Sources.Observatory.Path)
	}
	if cfg.Sources.Anomaly.BaseURL != "http://sentinel:9000" || cfg.Sources.Anomaly.Timeout != 750*time.Millisecond {
		t.Fatalf("expected anomaly env overrides, got %+v", cfg.Sources.Anomaly)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected env log level, got %q", cfg.Logging.Level)
	}
	if cfg.Store.MaxSummaries != 10 {
		t.Fatalf("expected max summaries 10, got %d", cfg.Store.MaxSummaries)
	}
}

func TestLoadPortOverride(t *testing.T) {
	t.Setenv("INTEL_CORE_CONFIG", "")
	t.Setenv("PORT", "3000")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.HTTPAddress != ":3000" {
		t.Fatalf("expected :3000, got %q", cfg.Server.HTTPAddress)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestLoadRejectsUnknownSourceMode(t *testing.T) {
	t.Setenv("INTEL_CORE_CONFIG", "")
	t.Setenv("INTEL_CORE_SOURCES_MODE", "carrier-pigeon")

	if _, err := Load(""); err == nil {
		t.Fatalf("expected invalid mode error")
	}
}
