package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/hamed0406/subprobe/internal/domain"
)

// RunReport renders the end-of-run message for domain root.
func RunReport(runID, root string, s domain.Summary, elapsed time.Duration, runErr error) (title, text string) {
	title = fmt.Sprintf("subprobe %s: %d hosts probed", root, s.Hosts)
	if runErr != nil {
		title = fmt.Sprintf("subprobe %s: run stopped after %d hosts", root, s.Hosts)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "run %s finished in %s\n", runID, elapsed.Round(time.Second))
	fmt.Fprintf(&b, "responded: %d, no response: %d, throttled: %d, attempts: %d\n",
		s.Responded, s.NoResponse, s.Throttled, s.TotalTries)
	if codes := s.Statuses(); len(codes) > 0 {
		parts := make([]string, 0, len(codes))
		for _, code := range codes {
			label := fmt.Sprint(code)
			if code == 0 {
				label = "none"
			}
			parts = append(parts, fmt.Sprintf("%s=%d", label, s.ByStatus[code]))
		}
		b.WriteString("statuses: " + strings.Join(parts, " ") + "\n")
	}
	if runErr != nil {
		b.WriteString("error: " + runErr.Error() + "\n")
	}
	return title, strings.TrimRight(b.String(), "\n")
}
