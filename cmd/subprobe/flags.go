package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/hamed0406/subprobe/internal/config"
)

var errUsage = errors.New("usage: subprobe [flags] <hosts_file> <domain>")

type options struct {
	hostsFile  string
	domain     string
	configPath string

	set map[string]bool // flags given explicitly

	concurrency    int
	minDelay       float64 // seconds
	maxRetries     int
	output         string
	httpFallback   bool
	userAgent      string
	connectTimeout float64 // seconds
	totalTimeout   float64 // seconds
	rate           float64
	statusAddr     string
	logDir         string
	syncWrites     bool
}

func parseArgs(args []string, stderr io.Writer) (options, error) {
	var o options
	def := config.Default()

	fs := flag.NewFlagSet("subprobe", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.configPath, "config", "subprobe.yaml", "path to configuration file (YAML)")
	fs.IntVar(&o.concurrency, "c", def.Probe.Concurrency, "number of concurrent workers")
	fs.Float64Var(&o.minDelay, "d", def.Probe.MinDelay.Seconds(), "minimum delay in seconds per worker between requests")
	fs.IntVar(&o.maxRetries, "r", def.Probe.MaxRetries, "maximum attempts per host")
	fs.StringVar(&o.output, "o", def.Output, "CSV output file")
	fs.BoolVar(&o.httpFallback, "http-fallback", false, "if HTTPS gets no response, try plain HTTP once")
	fs.StringVar(&o.userAgent, "user-agent", def.Probe.UserAgent, "User-Agent header")
	fs.Float64Var(&o.connectTimeout, "connect-timeout", def.Probe.ConnectTimeout.Seconds(), "connect timeout in seconds")
	fs.Float64Var(&o.totalTimeout, "total-timeout", def.Probe.TotalTimeout.Seconds(), "total request timeout in seconds")
	fs.Float64Var(&o.rate, "rate", 0, "global request cap per second (0 = unlimited)")
	fs.StringVar(&o.statusAddr, "status-addr", "", "address for the status API (empty disables it)")
	fs.StringVar(&o.logDir, "log-dir", def.LogDir, "directory for the rotating log file")
	fs.BoolVar(&o.syncWrites, "sync", false, "fsync the CSV after every row")
	fs.Usage = func() {
		fmt.Fprintln(stderr, errUsage)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if fs.NArg() != 2 {
		fs.Usage()
		return o, errUsage
	}
	o.hostsFile, o.domain = fs.Arg(0), fs.Arg(1)

	o.set = make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { o.set[f.Name] = true })
	return o, nil
}

// apply layers explicitly given flags over cfg.
func (o options) apply(cfg config.Config) config.Config {
	p := &cfg.Probe
	if o.set["c"] {
		p.Concurrency = o.concurrency
	}
	if o.set["d"] {
		p.MinDelay = seconds(o.minDelay)
	}
	if o.set["r"] {
		p.MaxRetries = o.maxRetries
	}
	if o.set["http-fallback"] {
		p.HTTPFallback = o.httpFallback
	}
	if o.set["user-agent"] {
		p.UserAgent = o.userAgent
	}
	if o.set["connect-timeout"] {
		p.ConnectTimeout = seconds(o.connectTimeout)
	}
	if o.set["total-timeout"] {
		p.TotalTimeout = seconds(o.totalTimeout)
	}
	if o.set["rate"] {
		p.RatePerSecond = o.rate
	}
	if o.set["o"] {
		cfg.Output = o.output
	}
	if o.set["status-addr"] {
		cfg.StatusAddr = o.statusAddr
	}
	if o.set["log-dir"] {
		cfg.LogDir = o.logDir
	}
	if o.set["sync"] {
		cfg.SyncWrites = o.syncWrites
	}
	return cfg
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
