// Package csvsink writes probe results as CSV rows, one flushed row per host.
package csvsink

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"go.uber.org/multierr"

	"github.com/hamed0406/subprobe/internal/domain"
)

// TimeLayout is RFC 3339 with microseconds and an explicit numeric offset.
const TimeLayout = "2006-01-02T15:04:05.000000-07:00"

var Header = []string{"timestamp", "subdomain", "status", "tries", "error"}

var ErrClosed = errors.New("csvsink: closed")

// Sink serialises writers behind a mutex and flushes after every row, so a
// killed process leaves a valid prefix of complete rows.
type Sink struct {
	mu         sync.Mutex
	f          *os.File
	w          *csv.Writer
	syncWrites bool
	closed     bool
}

// Open truncates path and writes the header. With syncWrites every row is
// also fsynced.
func Open(path string, syncWrites bool) (*Sink, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure output directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open output: %w", err)
	}
	s := &Sink{f: f, w: csv.NewWriter(f), syncWrites: syncWrites}
	if err := s.writeRecord(Header); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("write header: %w", err)
	}
	return s, nil
}

func (s *Sink) Write(_ context.Context, r domain.ProbeResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return s.writeRecord(Record(r))
}

// Record renders a result in column order.
func Record(r domain.ProbeResult) []string {
	return []string{
		r.RecordedAt.UTC().Format(TimeLayout),
		r.Host,
		strconv.Itoa(r.Status),
		strconv.Itoa(r.Tries),
		r.Error,
	}
}

func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.w.Flush()
	err := s.w.Error()
	if s.syncWrites {
		err = multierr.Append(err, s.f.Sync())
	}
	return multierr.Append(err, s.f.Close())
}

// writeRecord must be called with mu held (or before the sink is shared).
func (s *Sink) writeRecord(rec []string) error {
	if err := s.w.Write(rec); err != nil {
		return err
	}
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		return err
	}
	if s.syncWrites {
		return s.f.Sync()
	}
	return nil
}
