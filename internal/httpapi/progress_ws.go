package httpapi

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/hamed0406/subprobe/internal/scheduler"
)

const progressWriteTimeout = 5 * time.Second

var progressUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return strings.EqualFold(strings.TrimSpace(r.Host), strings.TrimSpace(u.Host))
	},
}

func (s *Server) handleProgressWS(w http.ResponseWriter, r *http.Request) {
	conn, err := progressUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.Logger.Debug("progress_ws_open", zap.String("remote", r.RemoteAddr))
	s.serveProgress(conn)
}

// serveProgress pushes a snapshot immediately, then on every tick until the
// run is done or the client goes away. The final snapshot has Done set.
func (s *Server) serveProgress(conn *websocket.Conn) {
	defer conn.Close()

	if !s.push(conn) {
		return
	}

	interval := s.PushInterval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ticker.C:
			if !s.push(conn) {
				return
			}
		case <-done:
			return
		}
	}
}

// push reports whether the stream should continue.
func (s *Server) push(conn *websocket.Conn) bool {
	snap := s.Progress.Progress()
	if err := writeProgress(conn, snap); err != nil {
		return false
	}
	if snap.Done {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "run finished")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(progressWriteTimeout))
		return false
	}
	return true
}

func writeProgress(conn *websocket.Conn, p scheduler.Progress) error {
	_ = conn.SetWriteDeadline(time.Now().Add(progressWriteTimeout))
	return conn.WriteJSON(p)
}
