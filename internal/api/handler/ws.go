package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"grievance/backend/internal/apperrors"
)

// The default origin check rejects cross-origin handshakes.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// ServeTimeline streams new timeline events of a complaint the caller may
// see over a WebSocket.
func (h *Handler) ServeTimeline(c *gin.Context) {
	if h.Stream == nil {
		h.respondError(c, apperrors.NewPreconditionError("live timeline is not available"))
		return
	}
	id, err := idParam(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	if _, err := h.Complaints.Get(c.Request.Context(), id, identity(c)); err != nil {
		h.respondError(c, err)
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// Subscribe before the upgrade so no event between handshake and
	// subscription is lost.
	msgs, err := h.Stream.Subscribe(ctx, id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Logger.Warn("websocket upgrade failed", "complaint_id", id, "error", err)
		return
	}
	h.Logger.Debug("live timeline opened", "complaint_id", id, "user_id", identity(c).UserID)
	h.Stream.Serve(ctx, conn, msgs)
}
