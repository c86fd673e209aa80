package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hamed0406/subprobe/internal/domain"
	apimw "github.com/hamed0406/subprobe/internal/httpapi/middleware"
	"github.com/hamed0406/subprobe/internal/scheduler"
)

const (
	defaultLatest = 50
	maxLatest     = 1000
)

type ProgressSource interface {
	Progress() scheduler.Progress
}

type ResultView interface {
	Latest(limit int) []domain.ProbeResult
	Summary() domain.Summary
}

// Server exposes a read-only view of a running probe.
type Server struct {
	Logger       *zap.Logger
	Progress     ProgressSource
	Results      ResultView
	PushInterval time.Duration // websocket progress cadence
}

func NewServer(l *zap.Logger, p ProgressSource, rv ResultView) *Server {
	return &Server{Logger: l, Progress: p, Results: rv, PushInterval: time.Second}
}

func (s *Server) Router(keys []string, reqPerMin, burst int) http.Handler {
	r := chi.NewRouter()
	r.Use(cors.AllowAll().Handler)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(apimw.RateLimit(reqPerMin, burst))
		r.Use(apimw.RequireKey(keys))
		r.Get("/api/progress", s.handleProgress)
		r.Get("/api/progress/ws", s.handleProgressWS)
		r.Get("/api/results/latest", s.handleLatest)
		r.Get("/api/summary", s.handleSummary)
	})
	return r
}

// Serve runs the API on addr until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.Logger.Info("status_api_listen", zap.String("addr", addr))

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Progress.Progress())
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	limit := defaultLatest
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxLatest)
	}
	writeJSON(w, http.StatusOK, s.Results.Latest(limit))
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Results.Summary())
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
