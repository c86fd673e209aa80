package probe

import (
	"context"
	"time"
)

const (
	SchemeHTTPS = "https"
	SchemeHTTP  = "http"
)

// Kind classifies the outcome of a single attempt.
type Kind uint8

const (
	// KindStatus is any received HTTP status other than 429. It is terminal.
	KindStatus Kind = iota
	// KindThrottled is a 429 response; it drives the backoff loop.
	KindThrottled
	// KindNetwork covers refused connections, DNS and TLS failures.
	KindNetwork
	// KindTimeout is a connect or total deadline being exceeded.
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindStatus:
		return "status"
	case KindThrottled:
		return "throttled"
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	}
	return "unknown"
}

// Attempt is one request issued against a host.
type Attempt struct {
	Try        int
	Scheme     string
	Method     string
	Status     int // 0 when no HTTP response was obtained
	Err        string
	Kind       Kind
	RetryAfter string // raw Retry-After header of a 429
}

// Failed reports whether no HTTP response was obtained.
func (a Attempt) Failed() bool {
	return a.Kind == KindNetwork || a.Kind == KindTimeout
}

// Sleep waits for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
