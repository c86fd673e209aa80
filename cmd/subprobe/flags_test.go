package main

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hamed0406/subprobe/internal/config"
	"github.com/hamed0406/subprobe/internal/domain"
)

func TestParseArgs_OnlyExplicitFlagsOverride(t *testing.T) {
	o, err := parseArgs([]string{"-c", "12", "-d", "0.5", "-http-fallback", "-total-timeout", "2.5", "subs.txt", "example.com"}, io.Discard)
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if o.hostsFile != "subs.txt" || o.domain != "example.com" {
		t.Fatalf("positional args: %+v", o)
	}

	base := config.Default()
	base.Probe.MaxRetries = 9 // e.g. from YAML; -r not given
	cfg := o.apply(base)

	if cfg.Probe.Concurrency != 12 {
		t.Fatalf("concurrency = %d", cfg.Probe.Concurrency)
	}
	if cfg.Probe.MinDelay != 500*time.Millisecond {
		t.Fatalf("min delay = %s", cfg.Probe.MinDelay)
	}
	if cfg.Probe.TotalTimeout != 2500*time.Millisecond {
		t.Fatalf("total timeout = %s", cfg.Probe.TotalTimeout)
	}
	if !cfg.Probe.HTTPFallback {
		t.Fatal("http fallback not applied")
	}
	if cfg.Probe.MaxRetries != 9 {
		t.Fatalf("unset flag overrode config: max retries = %d", cfg.Probe.MaxRetries)
	}
}

func TestParseArgs_RequiresHostsFileAndDomain(t *testing.T) {
	var stderr strings.Builder
	_, err := parseArgs([]string{"subs.txt"}, &stderr)
	if !errors.Is(err, errUsage) {
		t.Fatalf("want usage error, got %v", err)
	}
	if !strings.Contains(stderr.String(), "usage: subprobe") {
		t.Fatalf("usage not printed: %q", stderr.String())
	}
}

func TestLoadTargets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subs.txt")
	if err := os.WriteFile(path, []byte("www\n\n# staging\napi\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := loadTargets(path, "example.com")
	if err != nil {
		t.Fatalf("loadTargets: %v", err)
	}
	want := []domain.HostTarget{{Name: "www.example.com"}, {Name: "api.example.com"}}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("got %+v", got)
	}

	if _, err := loadTargets(filepath.Join(t.TempDir(), "missing.txt"), "example.com"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("want not-exist error, got %v", err)
	}
}

func TestConsole_WritesOneLinePerHost(t *testing.T) {
	var b strings.Builder
	c := &console{out: &b}
	_ = c.Write(context.Background(), domain.ProbeResult{Host: "www.example.com", Status: 200, Tries: 1})
	_ = c.Write(context.Background(), domain.ProbeResult{Host: "dead.example.com", Tries: 3, Error: "Timeout"})

	out := b.String()
	for _, want := range []string{"www.example.com: status=200 (tries=1)", "dead.example.com: status=0 (tries=3) Timeout"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in %q", want, out)
		}
	}
}
