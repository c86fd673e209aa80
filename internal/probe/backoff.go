package probe

import (
	"math"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Backoff computes how long to wait after a throttled response.
// Now and Rand default to time.Now and a uniform [0,1) source.
type Backoff struct {
	Now  func() time.Time
	Rand func() float64
}

// Seconds honours Retry-After when it is a non-negative integer or an
// HTTP-date, and otherwise falls back to 2^(try-1) plus up to one second of
// jitter. try is the 1-based number of tries made so far. The result is
// never negative.
func (b Backoff) Seconds(retryAfter string, try int) float64 {
	if v := strings.TrimSpace(retryAfter); v != "" {
		if n, err := strconv.ParseUint(v, 10, 63); err == nil {
			return float64(n)
		}
		if at, err := http.ParseTime(v); err == nil {
			return math.Max(0, at.Sub(b.now()).Seconds())
		}
	}
	if try < 1 {
		try = 1
	}
	return math.Pow(2, float64(try-1)) + b.jitter()
}

// Wait is Seconds as a time.Duration.
func (b Backoff) Wait(retryAfter string, try int) time.Duration {
	return time.Duration(b.Seconds(retryAfter, try) * float64(time.Second))
}

// WaitSeconds uses the wall clock and the default jitter source.
func WaitSeconds(retryAfter string, try int) float64 {
	return Backoff{}.Seconds(retryAfter, try)
}

func (b Backoff) now() time.Time {
	if b.Now != nil {
		return b.Now()
	}
	return time.Now()
}

func (b Backoff) jitter() float64 {
	if b.Rand != nil {
		return b.Rand()
	}
	return rand.Float64()
}
