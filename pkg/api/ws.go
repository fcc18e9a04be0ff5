// Package api pkg/api/ws.go streams trace events over a websocket.
package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
)

// The HTTP API already allows any origin, so the socket does too.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// streamTrace upgrades the connection, replays the recent history, and
// then pushes every trace event as a JSON message until the client
// disconnects or falls too far behind.
func (s *Server) streamTrace(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	// Snapshot and subscription are taken atomically so a client that
	// attaches mid-run misses nothing between history and live events.
	sub, history := s.bus.SubscribeWithReplay(defaultTraceLimit)

	defer func() {
		s.bus.Unsubscribe(sub)
		_ = conn.Close()
	}()

	for _, event := range history {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))

		if err := conn.WriteJSON(event); err != nil {
			return
		}
	}

	// Discard inbound frames; their only purpose is surfacing closes.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-sub.Events():
			if !ok {
				// The bus dropped us as a slow subscriber.
				return
			}

			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))

			if err := conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))

			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
