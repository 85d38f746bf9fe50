package daemon

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"easel/internal/logging"
	"easel/internal/progress"
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The API binds to loopback; cross-origin browser access is not a
	// supported deployment.
	CheckOrigin: func(*http.Request) bool { return true },
}

// handleRunEvents streams a run's progress over Server-Sent Events. The
// replay snapshot goes out first, then live events until the run reaches a
// terminal state or the client disconnects. Idle periods carry ping events so
// intermediaries do not reap the connection.
func (s *apiServer) handleRunEvents(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	replay, sub := s.daemon.manager.Subscribe(id)
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	for _, event := range replay {
		if err := writeSSE(w, event); err != nil {
			return
		}
		if event.Terminal() {
			flusher.Flush()
			return
		}
	}
	flusher.Flush()

	keepalive := time.NewTicker(s.keepaliveInterval())
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepalive.C:
			if err := writeSSE(w, progress.Ping()); err != nil {
				return
			}
			flusher.Flush()
		case event, open := <-sub.Events():
			if !open {
				return
			}
			if err := writeSSE(w, event); err != nil {
				return
			}
			flusher.Flush()
			if event.Terminal() {
				return
			}
		}
	}
}

// handleRunWS streams the same event sequence over a WebSocket.
func (s *apiServer) handleRunWS(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		s.logger.Debug("websocket upgrade failed", logging.Error(err))
		return
	}
	defer conn.Close()

	replay, sub := s.daemon.manager.Subscribe(id)
	defer sub.Close()

	// Reader goroutine notices client-side closes.
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	write := func(event progress.Event) error {
		_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		return conn.WriteJSON(event)
	}

	for _, event := range replay {
		if err := write(event); err != nil {
			return
		}
		if event.Terminal() {
			s.closeWS(conn)
			return
		}
	}

	keepalive := time.NewTicker(s.keepaliveInterval())
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-clientGone:
			return
		case <-keepalive.C:
			if err := write(progress.Ping()); err != nil {
				return
			}
		case event, open := <-sub.Events():
			if !open {
				return
			}
			if err := write(event); err != nil {
				return
			}
			if event.Terminal() {
				s.closeWS(conn)
				return
			}
		}
	}
}

func (s *apiServer) closeWS(conn *websocket.Conn) {
	message := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "run finished")
	_ = conn.WriteControl(websocket.CloseMessage, message, time.Now().Add(time.Second))
}

func (s *apiServer) keepaliveInterval() time.Duration {
	seconds := s.daemon.cfg.Workflow.KeepaliveSeconds
	if seconds <= 0 {
		seconds = 15
	}
	return time.Duration(seconds) * time.Second
}

func writeSSE(w http.ResponseWriter, event progress.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, payload)
	return err
}
