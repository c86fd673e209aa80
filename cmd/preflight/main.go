// cmd/preflight/main.go
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"go.uber.org/multierr"

	"github.com/hamed0406/subprobe/internal/config"
	"github.com/hamed0406/subprobe/internal/domain"
)

type report struct {
	out, errOut io.Writer
	failed      bool
}

func (r *report) ok(msg string)   { color.New(color.FgGreen).Fprintln(r.out, "✔", msg) }
func (r *report) warn(msg string) { color.New(color.FgYellow).Fprintln(r.errOut, "⚠", msg) }
func (r *report) fail(msg string) {
	r.failed = true
	color.New(color.FgRed).Fprintln(r.errOut, "✖", msg)
}

func main() {
	configPath := flag.String("config", "subprobe.yaml", "path to configuration file (YAML)")
	hosts := flag.String("hosts", "", "hosts file to check (optional)")
	flag.Parse()

	r := &report{out: os.Stdout, errOut: os.Stderr}
	check(r, *configPath, *hosts)
	if r.failed {
		os.Exit(1)
	}
	r.ok("preflight passed")
}

func check(r *report, configPath, hostsPath string) {
	cfg, err := config.Load(configPath)
	if err != nil {
		r.fail(err.Error())
		return
	}
	cfg = config.ApplyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		for _, e := range multierr.Errors(err) {
			r.fail(e.Error())
		}
	} else {
		p := cfg.Probe
		r.ok(fmt.Sprintf("probe: concurrency=%d min_delay=%s max_retries=%d http_fallback=%t",
			p.Concurrency, p.MinDelay, p.MaxRetries, p.HTTPFallback))
	}

	if cfg.Probe.UserAgent == config.DefaultUserAgent {
		r.warn("user agent is the default; set SUBPROBE_USER_AGENT with a real contact address")
	}

	if err := writableDir(filepath.Dir(cfg.Output)); err != nil {
		r.fail(fmt.Sprintf("output %s: %v", cfg.Output, err))
	} else {
		r.ok("output=" + cfg.Output)
	}

	if cfg.StatusAddr == "" {
		r.warn("STATUS_ADDR empty; status API disabled.")
	} else {
		r.ok("STATUS_ADDR=" + cfg.StatusAddr)
		if len(cfg.APIKeys) == 0 {
			r.warn("API_KEYS empty; status API is open to anyone who can reach it.")
		}
	}
	if cfg.SlackWebhook == "" {
		r.warn("SLACK_WEBHOOK_URL empty; no run report will be sent.")
	} else {
		r.ok("SLACK_WEBHOOK_URL present")
	}

	if hostsPath != "" {
		n, err := countLabels(hostsPath)
		switch {
		case err != nil:
			r.fail(err.Error())
		case n == 0:
			r.fail(hostsPath + " has no host labels")
		default:
			r.ok(fmt.Sprintf("%s: %d host labels", hostsPath, n))
		}
	}
}

func countLabels(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	labels, err := domain.ReadLabels(f)
	return len(labels), err
}

// writableDir creates dir if needed and proves a file can be created in it.
func writableDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".preflight-*")
	if err != nil {
		return err
	}
	name := f.Name()
	return multierr.Combine(f.Close(), os.Remove(name))
}
