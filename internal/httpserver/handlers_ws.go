package httpserver

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/shreyansh232/plandrift/internal/domain"
)

const wsWriteTimeout = 5 * time.Second

// handleWebSocket streams snapshot changes to an attached UI client. The
// current snapshot is sent immediately on attach, then every change until the
// client disconnects.
func (s *Server) handleWebSocket(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		return nil
	}

	clientID := uuid.NewString()

	if err := s.hub.register(conn); err != nil {
		slog.Warn("Rejecting UI client", "client_id", clientID, "error", err)
		_ = conn.Close()
		return nil
	}
	slog.Debug("UI client attached", "client_id", clientID, "remote", conn.RemoteAddr())
	defer slog.Debug("UI client detached", "client_id", clientID)
	defer s.hub.unregister(conn)
	defer conn.Close()

	snapCh, cancel := s.controller.Watch()
	defer cancel()

	// Reader goroutine: we never expect client messages, but reading is how
	// close frames are noticed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := writeSnapshot(conn, s.controller.Snapshot()); err != nil {
		return nil
	}

	for {
		select {
		case snap := <-snapCh:
			if err := writeSnapshot(conn, snap); err != nil {
				return nil
			}
		case <-done:
			return nil
		}
	}
}

func writeSnapshot(conn *websocket.Conn, snapshot domain.Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}
