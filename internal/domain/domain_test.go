package domain

import (
	"strings"
	"testing"
	"time"
)

func TestTargets_JoinsAndSkipsBlanks(t *testing.T) {
	got := Targets([]string{"www", "  ", "", " api ", "mail."}, "example.com")
	want := []string{"www.example.com", "api.example.com", "mail.example.com"}
	if len(got) != len(want) {
		t.Fatalf("want %d targets, got %d: %+v", len(want), len(got), got)
	}
	for i, w := range want {
		if got[i].Name != w {
			t.Fatalf("target %d: want %q got %q", i, w, got[i].Name)
		}
	}
}

func TestReadLabels_SkipsBlankAndComments(t *testing.T) {
	in := "www\n\n# staging hosts\napi\r\n   \nmail\n"
	got, err := ReadLabels(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadLabels: %v", err)
	}
	if strings.Join(got, ",") != "www,api,mail" {
		t.Fatalf("unexpected labels: %q", got)
	}
}

func TestSummary_Add(t *testing.T) {
	var s Summary
	now := time.Now().UTC()
	for _, r := range []ProbeResult{
		{Host: "a", Status: 200, Tries: 1, RecordedAt: now},
		{Host: "b", Status: 0, Tries: 4, Error: "Timeout", RecordedAt: now},
		{Host: "c", Status: 429, Tries: 4, RecordedAt: now},
		{Host: "d", Status: 200, Tries: 2, RecordedAt: now},
	} {
		s.Add(r)
	}
	if s.Hosts != 4 || s.Responded != 3 || s.NoResponse != 1 || s.Throttled != 1 {
		t.Fatalf("unexpected summary: %+v", s)
	}
	if s.TotalTries != 11 {
		t.Fatalf("want 11 tries, got %d", s.TotalTries)
	}
	if s.ByStatus[200] != 2 {
		t.Fatalf("want two 200s, got %d", s.ByStatus[200])
	}
	codes := s.Statuses()
	if len(codes) != 3 || codes[0] != 0 || codes[2] != 429 {
		t.Fatalf("unexpected status order: %v", codes)
	}
}
