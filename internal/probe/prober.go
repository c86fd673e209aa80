package probe

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hamed0406/subprobe/internal/config"
	"github.com/hamed0406/subprobe/internal/domain"
)

// Prober drives one host through HEAD/GET tries, 429 backoff and the
// optional plaintext fallback. A single Prober is shared by all tasks.
type Prober struct {
	Client  *http.Client
	Config  config.Probe
	Backoff Backoff
	Limiter *rate.Limiter // optional cap on requests per second across all hosts
	Logger  *zap.Logger
	Sleep   func(ctx context.Context, d time.Duration) error
	Now     func() time.Time
}

func New(cfg config.Probe, logger *zap.Logger) *Prober {
	p := &Prober{
		Client: NewClient(cfg),
		Config: cfg,
		Logger: logger,
	}
	if cfg.RatePerSecond > 0 {
		p.Limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1)
	}
	return p
}

// Probe always returns exactly one result, whatever happened on the wire.
func (p *Prober) Probe(ctx context.Context, target domain.HostTarget) domain.ProbeResult {
	log := p.logger().With(zap.String("host", target.Name))

	maxTries := p.Config.MaxRetries
	if maxTries < 1 {
		maxTries = 1
	}
	// keep one unit of the budget for the plaintext fallback
	netTries := maxTries
	if p.Config.HTTPFallback && maxTries > 1 {
		netTries = maxTries - 1
	}

	var (
		tries int
		last  Attempt
	)
loop:
	for {
		tries++
		last = p.try(ctx, SchemeHTTPS, target.Name, tries)

		switch last.Kind {
		case KindThrottled:
			wait := p.Backoff.Wait(last.RetryAfter, tries)
			log.Info("probe_throttled",
				zap.Int("try", tries),
				zap.String("retry_after", last.RetryAfter),
				zap.Duration("wait", wait),
			)
			if err := p.sleep(ctx, wait); err != nil {
				break loop
			}
			if tries >= maxTries {
				log.Warn("probe_gave_up", zap.Int("tries", tries), zap.Int("status", last.Status))
				break loop
			}
		case KindNetwork, KindTimeout:
			log.Debug("probe_attempt_failed",
				zap.Int("try", tries),
				zap.Stringer("kind", last.Kind),
				zap.String("error", last.Err),
			)
			if tries >= netTries || ctx.Err() != nil {
				break loop
			}
		default:
			break loop
		}
	}

	if last.Status == 0 && p.Config.HTTPFallback && tries < maxTries {
		tries++
		last = p.do(ctx, SchemeHTTP, http.MethodGet, target.Name, tries)
		log.Debug("probe_http_fallback",
			zap.Int("status", last.Status),
			zap.String("error", last.Err),
		)
	}

	return domain.ProbeResult{
		Host:       target.Name,
		Status:     last.Status,
		Tries:      tries,
		Error:      last.Err,
		RecordedAt: p.now().UTC(),
	}
}

func (p *Prober) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	return Sleep(ctx, d)
}

func (p *Prober) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p *Prober) logger() *zap.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return zap.NewNop()
}
