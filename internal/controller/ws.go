package controller

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sharetube/watchparty/pkg/ctxlogger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10
)

// wsConn reads straight from the socket and queues every write, so the
// connection's writer goroutine stays the only one touching the socket.
type wsConn struct {
	conn         *websocket.Conn
	connectionID string
	connRepo     iConnRepo
}

func (w *wsConn) ReadJSON(v any) error {
	return w.conn.ReadJSON(v)
}

func (w *wsConn) WriteJSON(v any) error {
	msg, err := json.Marshal(v)
	if err != nil {
		return err
	}

	return w.connRepo.Send(w.connectionID, msg)
}

func (c *controller) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to upgrade to websocket", "error", err)
		return
	}

	connectionID := uuid.NewString()
	ctx := ctxlogger.AppendCtx(r.Context(), slog.String("connection_id", connectionID))
	ctx = context.WithValue(ctx, connectionIDCtxKey, connectionID)

	queue, err := c.connRepo.Add(connectionID)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to register connection", "error", err)
		conn.Close()
		return
	}

	c.logger.InfoContext(ctx, "connection opened")

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		c.writePump(ctx, conn, queue)
	}()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	err = c.wsRouter.ServeConn(ctx, &wsConn{
		conn:         conn,
		connectionID: connectionID,
		connRepo:     c.connRepo,
	})
	if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		c.logger.InfoContext(ctx, "connection lost", "error", err)
	}

	// a dropped connection leaves its room like an explicit leave
	c.roomService.DisconnectMember(ctx, connectionID)
	if err := c.connRepo.Remove(connectionID); err != nil {
		c.logger.WarnContext(ctx, "failed to remove connection", "error", err)
	}
	<-writerDone

	c.logger.InfoContext(ctx, "connection closed")
}

// writePump drains the connection queue until it is closed or a write fails.
func (c *controller) writePump(ctx context.Context, conn *websocket.Conn, queue <-chan []byte) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case msg, ok := <-queue:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.logger.DebugContext(ctx, "failed to write message", "error", err)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.DebugContext(ctx, "failed to write ping", "error", err)
				return
			}
		}
	}
}
