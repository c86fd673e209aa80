package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/multierr"
)

func TestFromEnv_ParsesAndDefaults(t *testing.T) {
	t.Setenv("SUBPROBE_CONCURRENCY", "12")
	t.Setenv("SUBPROBE_MIN_DELAY_MS", "50")
	t.Setenv("SUBPROBE_MAX_RETRIES", "6")
	t.Setenv("SUBPROBE_HTTP_FALLBACK", "true")
	t.Setenv("SUBPROBE_USER_AGENT", "probe-test/1.0")
	t.Setenv("SUBPROBE_CONNECT_TIMEOUT_MS", "1500")
	t.Setenv("SUBPROBE_TOTAL_TIMEOUT_MS", "3000")
	t.Setenv("SUBPROBE_RATE", "2.5")
	t.Setenv("LOG_DIR", "./_testlogs")
	t.Setenv("API_KEYS", "k1, k2,,")

	cfg := FromEnv()
	p := cfg.Probe
	if p.Concurrency != 12 || p.MaxRetries != 6 || !p.HTTPFallback {
		t.Fatalf("probe settings wrong: %+v", p)
	}
	if p.MinDelay != 50*time.Millisecond || p.ConnectTimeout != 1500*time.Millisecond || p.TotalTimeout != 3*time.Second {
		t.Fatalf("durations wrong: %+v", p)
	}
	if p.UserAgent != "probe-test/1.0" || p.RatePerSecond != 2.5 {
		t.Fatalf("ua/rate wrong: %+v", p)
	}
	if cfg.LogDir != "./_testlogs" {
		t.Fatalf("log dir wrong: %q", cfg.LogDir)
	}
	if len(cfg.APIKeys) != 2 || cfg.APIKeys[1] != "k2" {
		t.Fatalf("api keys wrong: %+v", cfg.APIKeys)
	}

	// garbage values keep the defaults
	t.Setenv("SUBPROBE_CONCURRENCY", "lots")
	t.Setenv("SUBPROBE_MAX_RETRIES", "0")
	cfg = FromEnv()
	if cfg.Probe.Concurrency != Default().Probe.Concurrency || cfg.Probe.MaxRetries != Default().Probe.MaxRetries {
		t.Fatalf("expected defaults on bad input, got %+v", cfg.Probe)
	}
}

func TestLoad_YAMLOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "subprobe.yaml")
	body := `
probe:
  concurrency: 20
  min_delay: 1s
  max_retries: 3
  http_fallback: true
  total_timeout: 4s
output: out/results.csv
status_addr: 127.0.0.1:9090
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Probe.Concurrency != 20 || cfg.Probe.MinDelay != time.Second || cfg.Probe.MaxRetries != 3 {
		t.Fatalf("yaml not applied: %+v", cfg.Probe)
	}
	if cfg.Probe.TotalTimeout != 4*time.Second || cfg.Probe.ConnectTimeout != Default().Probe.ConnectTimeout {
		t.Fatalf("timeouts wrong: %+v", cfg.Probe)
	}
	if cfg.Output != "out/results.csv" || cfg.StatusAddr != "127.0.0.1:9090" {
		t.Fatalf("top-level fields wrong: %+v", cfg)
	}
	if cfg.Probe.UserAgent != DefaultUserAgent {
		t.Fatalf("default user agent lost: %q", cfg.Probe.UserAgent)
	}
}

func TestLoad_MissingFileFallsBack(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Probe.Concurrency != Default().Probe.Concurrency {
		t.Fatalf("expected defaults, got %+v", cfg.Probe)
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	cfg := Default()
	cfg.Probe.Concurrency = 0
	cfg.Probe.MaxRetries = 0
	cfg.Probe.TotalTimeout = 0
	cfg.Output = " "
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	if n := len(multierr.Errors(err)); n != 4 {
		t.Fatalf("want 4 problems, got %d: %v", n, err)
	}
	if !strings.Contains(err.Error(), "max_retries") {
		t.Fatalf("missing max_retries problem: %v", err)
	}
}
