package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// Probe holds the per-run probing knobs. It is shared read-only by every task.
type Probe struct {
	Concurrency    int           `yaml:"concurrency"`
	MinDelay       time.Duration `yaml:"min_delay"`
	MaxRetries     int           `yaml:"max_retries"`
	HTTPFallback   bool          `yaml:"http_fallback"`
	UserAgent      string        `yaml:"user_agent"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	TotalTimeout   time.Duration `yaml:"total_timeout"`
	RatePerSecond  float64       `yaml:"rate_per_second"` // 0 disables the global request cap
}

type Config struct {
	Probe Probe `yaml:"probe"`

	Output       string   `yaml:"output"`      // CSV destination
	SyncWrites   bool     `yaml:"sync_writes"` // fsync after every row
	LogDir       string   `yaml:"log_dir"`
	LogLevel     string   `yaml:"log_level"`
	StatusAddr   string   `yaml:"status_addr"` // empty disables the status API
	APIKeys      []string `yaml:"api_keys"`
	SlackWebhook string   `yaml:"slack_webhook_url"`
}

const DefaultUserAgent = "SubdomainChecker/1.0 (+contact@example.com)"

func Default() Config {
	return Config{
		Probe: Probe{
			Concurrency:    5,
			MinDelay:       200 * time.Millisecond,
			MaxRetries:     4,
			UserAgent:      DefaultUserAgent,
			ConnectTimeout: 5 * time.Second,
			TotalTimeout:   10 * time.Second,
		},
		Output:   "results.csv",
		LogDir:   "logs",
		LogLevel: "info",
	}
}

// Load reads a YAML file over the defaults. An empty path or a missing file
// yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	content, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides cfg with any SUBPROBE_* and ambient variables that are
// set and parse cleanly.
func ApplyEnv(cfg Config) Config {
	p := &cfg.Probe
	if n, ok := envInt("SUBPROBE_CONCURRENCY"); ok && n > 0 {
		p.Concurrency = n
	}
	if ms, ok := envInt("SUBPROBE_MIN_DELAY_MS"); ok && ms >= 0 {
		p.MinDelay = time.Duration(ms) * time.Millisecond
	}
	if n, ok := envInt("SUBPROBE_MAX_RETRIES"); ok && n > 0 {
		p.MaxRetries = n
	}
	if v := os.Getenv("SUBPROBE_HTTP_FALLBACK"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			p.HTTPFallback = b
		}
	}
	if v := os.Getenv("SUBPROBE_USER_AGENT"); v != "" {
		p.UserAgent = v
	}
	if ms, ok := envInt("SUBPROBE_CONNECT_TIMEOUT_MS"); ok && ms > 0 {
		p.ConnectTimeout = time.Duration(ms) * time.Millisecond
	}
	if ms, ok := envInt("SUBPROBE_TOTAL_TIMEOUT_MS"); ok && ms > 0 {
		p.TotalTimeout = time.Duration(ms) * time.Millisecond
	}
	if v := os.Getenv("SUBPROBE_RATE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			p.RatePerSecond = f
		}
	}
	if v := os.Getenv("SUBPROBE_OUTPUT"); v != "" {
		cfg.Output = v
	}
	if v := os.Getenv("LOG_DIR"); v != "" {
		cfg.LogDir = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("STATUS_ADDR"); v != "" {
		cfg.StatusAddr = v
	}
	if v := os.Getenv("API_KEYS"); v != "" {
		cfg.APIKeys = splitList(v)
	}
	if v := os.Getenv("SLACK_WEBHOOK_URL"); v != "" {
		cfg.SlackWebhook = v
	}
	return cfg
}

// FromEnv is Default with environment overrides applied.
func FromEnv() Config {
	return ApplyEnv(Default())
}

// Validate reports every problem at once.
func (c Config) Validate() error {
	var err error
	p := c.Probe
	if p.Concurrency <= 0 {
		err = multierr.Append(err, fmt.Errorf("concurrency must be positive, got %d", p.Concurrency))
	}
	if p.MinDelay < 0 {
		err = multierr.Append(err, fmt.Errorf("min_delay must not be negative, got %s", p.MinDelay))
	}
	if p.MaxRetries < 1 {
		err = multierr.Append(err, fmt.Errorf("max_retries must be at least 1, got %d", p.MaxRetries))
	}
	if p.ConnectTimeout <= 0 {
		err = multierr.Append(err, fmt.Errorf("connect_timeout must be positive, got %s", p.ConnectTimeout))
	}
	if p.TotalTimeout <= 0 {
		err = multierr.Append(err, fmt.Errorf("total_timeout must be positive, got %s", p.TotalTimeout))
	}
	if p.RatePerSecond < 0 {
		err = multierr.Append(err, fmt.Errorf("rate_per_second must not be negative, got %g", p.RatePerSecond))
	}
	if strings.TrimSpace(c.Output) == "" {
		err = multierr.Append(err, errors.New("output path is required"))
	}
	return err
}

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
