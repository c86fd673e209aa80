package scheduler

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Limiter caps the number of probes in flight. Waiters are admitted in
// FIFO order, so every queued task is eventually served.
type Limiter struct {
	sem      *semaphore.Weighted
	size     int64
	inFlight atomic.Int64
	peak     atomic.Int64
}

func NewLimiter(size int) *Limiter {
	if size < 1 {
		size = 1
	}
	return &Limiter{sem: semaphore.NewWeighted(int64(size)), size: int64(size)}
}

// Acquire blocks until a slot is free or ctx is done.
func (l *Limiter) Acquire(ctx context.Context) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	n := l.inFlight.Add(1)
	for {
		p := l.peak.Load()
		if n <= p || l.peak.CompareAndSwap(p, n) {
			break
		}
	}
	return nil
}

// Release returns a slot taken by Acquire.
func (l *Limiter) Release() {
	l.inFlight.Add(-1)
	l.sem.Release(1)
}

func (l *Limiter) Size() int       { return int(l.size) }
func (l *Limiter) InFlight() int64 { return l.inFlight.Load() }

// Peak is the highest number of slots ever held at once.
func (l *Limiter) Peak() int64 { return l.peak.Load() }
