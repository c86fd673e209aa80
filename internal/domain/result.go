package domain

import "sort"

// Summary aggregates the results of one run.
type Summary struct {
	Hosts      int         `json:"hosts"`
	Responded  int         `json:"responded"`
	NoResponse int         `json:"no_response"`
	Throttled  int         `json:"throttled"`
	TotalTries int         `json:"total_tries"`
	ByStatus   map[int]int `json:"by_status"`
}

// Add folds one result into the summary.
func (s *Summary) Add(r ProbeResult) {
	if s.ByStatus == nil {
		s.ByStatus = make(map[int]int)
	}
	s.Hosts++
	s.TotalTries += r.Tries
	s.ByStatus[r.Status]++
	switch {
	case r.Status == 0:
		s.NoResponse++
	case r.Status == 429:
		s.Throttled++
		s.Responded++
	default:
		s.Responded++
	}
}

// Statuses returns the observed status codes in ascending order.
func (s Summary) Statuses() []int {
	out := make([]int, 0, len(s.ByStatus))
	for code := range s.ByStatus {
		out = append(out, code)
	}
	sort.Ints(out)
	return out
}
