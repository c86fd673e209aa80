package domain

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"
)

// HostTarget is one fully qualified hostname to probe.
type HostTarget struct {
	Name string `json:"name"`
}

// ProbeResult is the single recorded outcome for a HostTarget.
//
// Status is the status of the last attempt made (0 when no HTTP response
// was obtained). Tries counts every request issued on the host's behalf,
// including the plaintext fallback.
type ProbeResult struct {
	Host       string    `json:"host"`
	Status     int       `json:"status"`
	Tries      int       `json:"tries"`
	Error      string    `json:"error,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Responded reports whether any HTTP response was obtained.
func (r ProbeResult) Responded() bool { return r.Status != 0 }

// Targets joins every non-blank label with the root domain.
func Targets(labels []string, root string) []HostTarget {
	root = strings.Trim(strings.TrimSpace(root), ".")
	out := make([]HostTarget, 0, len(labels))
	for _, l := range labels {
		l = strings.Trim(strings.TrimSpace(l), ".")
		if l == "" {
			continue
		}
		out = append(out, HostTarget{Name: l + "." + root})
	}
	return out
}

// ReadLabels reads one subdomain label per line. Blank lines and lines
// starting with '#' are skipped.
func ReadLabels(r io.Reader) ([]string, error) {
	var labels []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		labels = append(labels, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read labels: %w", err)
	}
	return labels, nil
}
