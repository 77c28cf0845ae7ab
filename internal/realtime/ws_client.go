package realtime

import (
	"context"
	"time"

	"github.com/gorilla/websocket"

	"grievance/backend/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// Serve writes msgs to conn as JSON until ctx is done, msgs is closed or the
// peer goes away. It closes conn before returning.
func (s *Stream) Serve(ctx context.Context, conn *websocket.Conn, msgs <-chan models.TimelineMessage) {
	gone := make(chan struct{})
	go s.readPump(conn, gone)
	s.writePump(ctx, conn, msgs, gone)
}

// readPump only handles control frames; the stream is one way.
func (s *Stream) readPump(conn *websocket.Conn, gone chan<- struct{}) {
	defer close(gone)

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("websocket read failed", "error", err)
			}
			return
		}
	}
}

func (s *Stream) writePump(ctx context.Context, conn *websocket.Conn, msgs <-chan models.TimelineMessage, gone <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case <-gone:
			return
		case <-ctx.Done():
			s.closeFrame(conn)
			return
		case msg, ok := <-msgs:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.closeFrame(conn)
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				s.logger.Debug("websocket write failed", "complaint_id", msg.ComplaintID, "error", err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Stream) closeFrame(conn *websocket.Conn) {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
