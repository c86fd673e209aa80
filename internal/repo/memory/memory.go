package memory

import (
	"context"
	"sync"

	"github.com/hamed0406/subprobe/internal/domain"
)

// Store is an in-process sink that keeps the most recent results and a
// running summary for the status API and the end-of-run report.
type Store struct {
	mu      sync.RWMutex
	recent  []domain.ProbeResult // ring buffer
	next    int
	full    bool
	summary domain.Summary
}

func New(keep int) *Store {
	if keep < 1 {
		keep = 1
	}
	return &Store{
		recent:  make([]domain.ProbeResult, keep),
		summary: domain.Summary{ByStatus: make(map[int]int)},
	}
}

func (m *Store) Write(ctx context.Context, r domain.ProbeResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recent[m.next] = r
	m.next = (m.next + 1) % len(m.recent)
	if m.next == 0 {
		m.full = true
	}
	m.summary.Add(r)
	return nil
}

func (m *Store) Close() error { return nil }

// Latest returns up to limit results, newest first. limit <= 0 means all kept.
func (m *Store) Latest(limit int) []domain.ProbeResult {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := m.next
	if m.full {
		n = len(m.recent)
	}
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]domain.ProbeResult, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (m.next - i + len(m.recent)) % len(m.recent)
		out = append(out, m.recent[idx])
	}
	return out
}

// Summary returns a copy of the running totals.
func (m *Store) Summary() domain.Summary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := m.summary
	s.ByStatus = make(map[int]int, len(m.summary.ByStatus))
	for k, v := range m.summary.ByStatus {
		s.ByStatus[k] = v
	}
	return s
}
