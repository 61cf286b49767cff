// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yapmint/yapmint/internal/domain/eligibility"
)

const (
	// streamWriteTimeout is the deadline for a single write to a client.
	streamWriteTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allow all origins. CORS policy belongs at the reverse proxy.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// StreamDependencies defines the interface for live countdown streams.
type StreamDependencies interface {
	StartCountdown(ctx context.Context) (*eligibility.Countdown, error)
}

// StreamHandler streams eligibility countdown updates over a WebSocket. One
// countdown runs per connection; it stops when the client goes away or the
// account becomes eligible.
type StreamHandler struct {
	deps StreamDependencies
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(deps StreamDependencies) *StreamHandler {
	return &StreamHandler{deps: deps}
}

// HandleStream handles GET /eligibility/stream requests.
func (h *StreamHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	countdown, err := h.deps.StartCountdown(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader has already written the error response.
		countdown.Stop()
		return
	}
	defer func() {
		countdown.Stop()
		_ = conn.Close()
	}()

	// Discard client messages; reads only surface close frames.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case status, ok := <-countdown.Updates():
			if !ok {
				deadline := time.Now().Add(streamWriteTimeout)
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := conn.WriteJSON(status); err != nil {
				return
			}
		}
	}
}
