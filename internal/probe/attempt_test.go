package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/subprobe/internal/domain"
)

func tlsProber(t *testing.T, s *httptest.Server, maxRetries int, total time.Duration) (*Prober, domain.HostTarget) {
	t.Helper()
	cfg := testConfig(maxRetries, false)
	cfg.TotalTimeout = total
	p := New(cfg, zap.NewNop())
	p.Client = s.Client()
	return p, domain.HostTarget{Name: strings.TrimPrefix(s.URL, "https://")}
}

func TestProbe_TLSServerHEADRejected(t *testing.T) {
	var heads, gets int32
	var ua atomic.Value
	s := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua.Store(r.Header.Get("User-Agent"))
		if r.Method == http.MethodHead {
			atomic.AddInt32(&heads, 1)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		atomic.AddInt32(&gets, 1)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}))
	defer s.Close()

	p, host := tlsProber(t, s, 3, 2*time.Second)
	res := p.Probe(context.Background(), host)
	if res.Status != 200 || res.Tries != 1 || res.Error != "" {
		t.Fatalf("want 200 in one try, got %+v", res)
	}
	if atomic.LoadInt32(&heads) != 1 || atomic.LoadInt32(&gets) != 1 {
		t.Fatalf("want one HEAD and one GET, got %d/%d", heads, gets)
	}
	if got, _ := ua.Load().(string); got != "subprobe-test/1.0" {
		t.Fatalf("user agent not sent, got %q", got)
	}
}

func TestProbe_TLSServerRetryAfter(t *testing.T) {
	var n int32
	s := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&n, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer s.Close()

	p, host := tlsProber(t, s, 3, 2*time.Second)
	res := p.Probe(context.Background(), host)
	if res.Status != 200 || res.Tries != 2 {
		t.Fatalf("want 200 on the second try, got %+v", res)
	}
}

func TestProbe_TimeoutSetsStatusZero(t *testing.T) {
	// Server sleeps longer than the per-attempt timeout
	s := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(200)
	}))
	defer s.Close()

	p, host := tlsProber(t, s, 1, 50*time.Millisecond)
	res := p.Probe(context.Background(), host)
	if res.Status != 0 {
		t.Fatalf("want status 0 on timeout, got %d", res.Status)
	}
	if res.Error != "Timeout" {
		t.Fatalf("want Timeout, got %q", res.Error)
	}
}

func TestProbe_ConnectionRefused(t *testing.T) {
	s := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	p, host := tlsProber(t, s, 2, time.Second)
	s.Close()

	res := p.Probe(context.Background(), host)
	if res.Status != 0 || res.Tries != 2 {
		t.Fatalf("want two failed tries, got %+v", res)
	}
	if res.Error == "" || res.Error == "Timeout" {
		t.Fatalf("want the underlying network error, got %q", res.Error)
	}
}

func TestNewClient_UsesConnectTimeout(t *testing.T) {
	cfg := testConfig(1, false)
	cfg.ConnectTimeout = 3 * time.Second
	c := NewClient(cfg)
	tr, ok := c.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("unexpected transport %T", c.Transport)
	}
	if tr.TLSHandshakeTimeout != 3*time.Second {
		t.Fatalf("handshake timeout = %s", tr.TLSHandshakeTimeout)
	}
	if c.Timeout != 0 {
		t.Fatalf("total timeout is per attempt, client timeout should be unset")
	}
}
