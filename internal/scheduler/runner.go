package scheduler

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hamed0406/subprobe/internal/domain"
	"github.com/hamed0406/subprobe/internal/probe"
	"github.com/hamed0406/subprobe/internal/repo"
)

// Prober turns a host into its single recorded result.
type Prober interface {
	Probe(ctx context.Context, target domain.HostTarget) domain.ProbeResult
}

// Progress is a point-in-time view of a run.
type Progress struct {
	RunID        string    `json:"run_id"`
	Total        int       `json:"total"`
	Admitted     int64     `json:"admitted"`
	InFlight     int64     `json:"in_flight"`
	Completed    int64     `json:"completed"`
	PeakInFlight int64     `json:"peak_in_flight"`
	Concurrency  int       `json:"concurrency"`
	StartedAt    time.Time `json:"started_at"`
	Done         bool      `json:"done"`
}

// Runner fans one task per host out through the Limiter. It does not look at
// results beyond handing them to the Sink.
type Runner struct {
	Logger   *zap.Logger
	Prober   Prober
	Sink     repo.ResultSink
	Limiter  *Limiter
	MinDelay time.Duration // per-slot pacing after every host
	RunID    string

	Sleep func(ctx context.Context, d time.Duration) error

	total     atomic.Int64
	admitted  atomic.Int64
	completed atomic.Int64
	started   atomic.Int64 // unix nanos
	done      atomic.Bool
}

func NewRunner(logger *zap.Logger, p Prober, sink repo.ResultSink, concurrency int, minDelay time.Duration) *Runner {
	if minDelay < 0 {
		minDelay = 0
	}
	return &Runner{
		Logger:   logger,
		Prober:   p,
		Sink:     sink,
		Limiter:  NewLimiter(concurrency),
		MinDelay: minDelay,
		RunID:    uuid.NewString(),
	}
}

// Run probes every target and returns once all admitted tasks have written
// their row. Cancelling ctx stops admission; tasks already running finish
// and are recorded. A sink failure is fatal: admission stops, running probes
// are cancelled and the error is returned.
func (r *Runner) Run(ctx context.Context, targets []domain.HostTarget) error {
	log := r.Logger.With(zap.String("run_id", r.RunID))
	r.total.Store(int64(len(targets)))
	r.started.Store(time.Now().UnixNano())
	defer r.done.Store(true)

	// in-flight probes outlive an interrupt, but not a sink failure
	taskCtx, abort := context.WithCancel(context.WithoutCancel(ctx))
	defer abort()

	g, admitCtx := errgroup.WithContext(ctx)

	log.Info("run_started",
		zap.Int("hosts", len(targets)),
		zap.Int("concurrency", r.Limiter.Size()),
	)
	for _, tgt := range targets {
		err := admitCtx.Err()
		if err == nil {
			err = r.Limiter.Acquire(admitCtx)
		}
		if err != nil {
			log.Warn("run_admission_stopped",
				zap.Int64("admitted", r.admitted.Load()),
				zap.Error(err),
			)
			break
		}
		r.admitted.Add(1)

		t := tgt
		g.Go(func() error {
			defer r.Limiter.Release()

			res := r.Prober.Probe(taskCtx, t)
			if err := r.Sink.Write(taskCtx, res); err != nil {
				abort()
				return fmt.Errorf("record %s: %w", t.Name, err)
			}
			r.completed.Add(1)
			log.Info("probe_recorded",
				zap.String("host", res.Host),
				zap.Int("status", res.Status),
				zap.Int("tries", res.Tries),
				zap.String("error", res.Error),
			)

			_ = r.sleep(taskCtx, r.pace())
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Error("run_failed", zap.Error(err))
		return err
	}
	if err := ctx.Err(); err != nil && r.completed.Load() < int64(len(targets)) {
		log.Warn("run_interrupted",
			zap.Int64("completed", r.completed.Load()),
			zap.Int("hosts", len(targets)),
		)
		return fmt.Errorf("run interrupted after %d of %d hosts: %w", r.completed.Load(), len(targets), err)
	}
	log.Info("run_finished",
		zap.Int64("completed", r.completed.Load()),
		zap.Int64("peak_in_flight", r.Limiter.Peak()),
	)
	return nil
}

// Progress is safe to call while Run is in progress.
func (r *Runner) Progress() Progress {
	p := Progress{
		RunID:        r.RunID,
		Total:        int(r.total.Load()),
		Admitted:     r.admitted.Load(),
		InFlight:     r.Limiter.InFlight(),
		Completed:    r.completed.Load(),
		PeakInFlight: r.Limiter.Peak(),
		Concurrency:  r.Limiter.Size(),
		Done:         r.done.Load(),
	}
	if ns := r.started.Load(); ns != 0 {
		p.StartedAt = time.Unix(0, ns).UTC()
	}
	return p
}

// pace returns minDelay plus uniform jitter in [0, minDelay).
func (r *Runner) pace() time.Duration {
	if r.MinDelay <= 0 {
		return 0
	}
	return r.MinDelay + time.Duration(rand.Int64N(int64(r.MinDelay)))
}

func (r *Runner) sleep(ctx context.Context, d time.Duration) error {
	if r.Sleep != nil {
		return r.Sleep(ctx, d)
	}
	return probe.Sleep(ctx, d)
}
