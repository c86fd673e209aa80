package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hamed0406/subprobe/internal/config"
	"github.com/hamed0406/subprobe/internal/domain"
	"github.com/hamed0406/subprobe/internal/httpapi"
	"github.com/hamed0406/subprobe/internal/logging"
	"github.com/hamed0406/subprobe/internal/notify"
	"github.com/hamed0406/subprobe/internal/probe"
	"github.com/hamed0406/subprobe/internal/repo"
	"github.com/hamed0406/subprobe/internal/repo/csvsink"
	"github.com/hamed0406/subprobe/internal/repo/memory"
	"github.com/hamed0406/subprobe/internal/scheduler"
)

const recentKept = 500

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	opts, err := parseArgs(args, os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		return 2
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	cfg = opts.apply(config.ApplyEnv(cfg))
	if err := cfg.Validate(); err != nil {
		for _, e := range multierr.Errors(err) {
			fmt.Fprintln(os.Stderr, "config:", e)
		}
		return 2
	}

	logger, err := logging.NewLogger(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer logger.Sync()

	targets, err := loadTargets(opts.hostsFile, opts.domain)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	out, err := csvsink.Open(cfg.Output, cfg.SyncWrites)
	if err != nil {
		logger.Error("output_open_failed", zap.String("path", cfg.Output), zap.Error(err))
		return 1
	}
	store := memory.New(recentKept)
	sink := repo.Tee{out, store, &console{out: os.Stdout}}

	prober := probe.New(cfg.Probe, logger)
	runner := scheduler.NewRunner(logger, prober, sink, cfg.Probe.Concurrency, cfg.Probe.MinDelay)

	ctx, stop := interruptContext(logger)
	defer stop()

	apiCtx, stopAPI := context.WithCancel(context.Background())
	defer stopAPI()
	if cfg.StatusAddr != "" {
		api := httpapi.NewServer(logger, runner, store)
		go func() {
			if err := api.Serve(apiCtx, cfg.StatusAddr, api.Router(cfg.APIKeys, 600, 60)); err != nil {
				logger.Error("status_api_failed", zap.Error(err))
			}
		}()
	}

	banner(color.FgHiCyan, "%s Starting: domain=%s, subdomains=%d, concurrency=%d",
		now(), opts.domain, len(targets), cfg.Probe.Concurrency)
	started := time.Now()

	runErr := runner.Run(ctx, targets)
	closeErr := sink.Close()

	title, text := notify.RunReport(runner.RunID, opts.domain, store.Summary(), time.Since(started), runErr)
	if slack := notify.NewSlack(cfg.SlackWebhook); slack != nil {
		sendCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		if err := slack.Send(sendCtx, title, text); err != nil {
			logger.Warn("run_report_failed", zap.Error(err))
		}
		cancel()
	}

	if err := multierr.Combine(runErr, closeErr); err != nil {
		logger.Error("run_failed", zap.String("run_id", runner.RunID), zap.Error(err))
		banner(color.FgHiRed, "%s Stopped: %v. Partial results in %s", now(), err, cfg.Output)
		return 1
	}
	banner(color.FgHiGreen, "%s Done. Results written to %s", now(), cfg.Output)
	return 0
}

func loadTargets(path, root string) ([]domain.HostTarget, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("hosts file: %w", err)
	}
	defer f.Close()
	labels, err := domain.ReadLabels(f)
	if err != nil {
		return nil, fmt.Errorf("hosts file %s: %w", path, err)
	}
	return domain.Targets(labels, root), nil
}

// interruptContext is cancelled by the first SIGINT/SIGTERM, which lets the
// runner drain. A second signal exits at once; every row already written
// has been flushed.
func interruptContext(logger *zap.Logger) (context.Context, func()) {
	ctx, cancel := context.WithCancel(context.Background())
	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigs:
		case <-ctx.Done():
			return
		}
		logger.Warn("interrupt_received", zap.String("action", "draining in-flight probes"))
		color.New(color.FgYellow).Fprintln(os.Stderr, "interrupted: finishing in-flight hosts, press Ctrl-C again to quit now")
		cancel()
		<-sigs
		logger.Warn("interrupt_received", zap.String("action", "exit"))
		_ = logger.Sync()
		os.Exit(130)
	}()
	return ctx, func() {
		signal.Stop(sigs)
		cancel()
	}
}

func banner(attr color.Attribute, format string, a ...any) {
	c := color.New(attr)
	fmt.Println()
	fmt.Println("\t---------------------")
	c.Printf(format+"\n", a...)
	fmt.Println("\t---------------------")
	fmt.Println()
}

func now() string {
	return time.Now().UTC().Format(csvsink.TimeLayout)
}
