package handler

import (
	"context"
	"net/http"

	"github.com/Temutjin2k/driver-engine/internal/domain/models"
	"github.com/Temutjin2k/driver-engine/internal/domain/types"
	"github.com/Temutjin2k/driver-engine/pkg/logger"
	wrap "github.com/Temutjin2k/driver-engine/pkg/logger/wrapper"
	ws "github.com/Temutjin2k/driver-engine/pkg/wsHub"
	"github.com/gorilla/websocket"
)

// Snapshotter provides the state sent to a client right after it connects.
type Snapshotter interface {
	Snapshot() models.Snapshot
}

// Stream upgrades UI clients to a websocket that receives session notices.
type Stream struct {
	hub      *ws.ConnectionHub
	session  Snapshotter
	upgrader websocket.Upgrader
	l        logger.Logger
}

func NewStream(hub *ws.ConnectionHub, session Snapshotter, l logger.Logger) *Stream {
	return &Stream{
		hub:     hub,
		session: session,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// the control API is served to the local UI only
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		l: l,
	}
}

// HandleWS godoc
// @Summary      Session notice stream
// @Description  Websocket. Sends a snapshot on connect, then notices and snapshots as they happen.
// @Tags         Session
// @Router       /ws [get]
func (h *Stream) HandleWS(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "ws_connect")

	raw, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response
		h.l.Warn(ctx, "websocket upgrade failed", "error", err)
		return
	}

	conn := ws.NewConn(context.WithoutCancel(ctx), raw)
	if err := h.hub.Add(conn); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to register websocket client", err)
		conn.Close()
		return
	}

	_ = conn.Send(models.WebSocketMessage{Type: types.NoticeSnapshot, Data: h.session.Snapshot()})

	go conn.WritePump()
	conn.ReadPump()

	if err := h.hub.Delete(conn.ID()); err != nil {
		h.l.Debug(ctx, "websocket client already removed", "conn_id", conn.ID())
	}
	h.l.Debug(ctx, "websocket client disconnected", "conn_id", conn.ID())
}
