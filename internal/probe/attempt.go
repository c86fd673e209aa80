package probe

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/hamed0406/subprobe/internal/config"
)

const (
	timeoutMessage = "Timeout"
	drainLimit     = 64 << 10
)

// NewClient builds the shared client. The dialer and TLS handshake honour
// the connect timeout; the total timeout is applied per attempt.
func NewClient(cfg config.Probe) *http.Client {
	dialer := &net.Dialer{
		Timeout:   cfg.ConnectTimeout,
		KeepAlive: 30 * time.Second,
	}
	return &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           dialer.DialContext,
			TLSHandshakeTimeout:   cfg.ConnectTimeout,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   2,
			IdleConnTimeout:       90 * time.Second,
			ExpectContinueTimeout: time.Second,
			// a custom DialContext without ForceAttemptHTTP2 keeps us on HTTP/1.1
		},
	}
}

// try issues HEAD and, if the server rejects the method with 405, a GET on
// the same scheme under the same try number.
func (p *Prober) try(ctx context.Context, scheme, host string, n int) Attempt {
	a := p.do(ctx, scheme, http.MethodHead, host, n)
	if a.Kind == KindStatus && a.Status == http.StatusMethodNotAllowed {
		a = p.do(ctx, scheme, http.MethodGet, host, n)
	}
	return a
}

func (p *Prober) do(ctx context.Context, scheme, method, host string, n int) Attempt {
	a := Attempt{Try: n, Scheme: scheme, Method: method}
	if p.Limiter != nil {
		if err := p.Limiter.Wait(ctx); err != nil {
			return a.failed(err)
		}
	}
	if p.Config.TotalTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Config.TotalTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, method, scheme+"://"+host+"/", nil)
	if err != nil {
		return a.failed(err)
	}
	if p.Config.UserAgent != "" {
		req.Header.Set("User-Agent", p.Config.UserAgent)
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		return a.failed(err)
	}
	defer resp.Body.Close()
	// drain so the connection can be reused
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, drainLimit))

	a.Status = resp.StatusCode
	if resp.StatusCode == http.StatusTooManyRequests {
		a.Kind = KindThrottled
		a.RetryAfter = resp.Header.Get("Retry-After")
	}
	return a
}

func (a Attempt) failed(err error) Attempt {
	a.Status = 0
	if isTimeout(err) {
		a.Kind = KindTimeout
		a.Err = timeoutMessage
		return a
	}
	a.Kind = KindNetwork
	a.Err = describe(err)
	return a
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// describe drops the `Head "https://..."` prefix the client adds.
func describe(err error) string {
	var ue *url.Error
	if errors.As(err, &ue) && ue.Err != nil {
		return ue.Err.Error()
	}
	return err.Error()
}
