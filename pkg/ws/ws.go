// Package ws exposes the change feed over WebSocket using gorilla/websocket.
// Each connection is one more viewer on the shared sse.Hub, so SSE and
// WebSocket clients see the same events in the same order.
//
//	r.Get("/ws", "ws.orders", func(w http.ResponseWriter, r *http.Request) {
//	    ws.Upgrade(w, r, hub)
//	})
package ws

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teastall/teastall/pkg/logger"
	"github.com/teastall/teastall/pkg/sse"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024 // viewers only send control frames
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// SetCheckOrigin replaces the default (allow-all) origin checker. The kernel
// installs the CORS origin list here at startup.
func SetCheckOrigin(fn func(r *http.Request) bool) {
	upgrader.CheckOrigin = fn
}

type client struct {
	hub  *sse.Hub
	sub  *sse.Subscriber
	conn *websocket.Conn
}

// readPump discards inbound data and detects the viewer going away, which
// unsubscribes it and in turn stops writePump.
func (c *client) readPump() {
	defer func() {
		c.hub.Unsubscribe(c.sub)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("ws: unexpected close", "viewer", c.sub.ID, "error", err)
			}
			return
		}
	}
}

// writePump forwards hub events until the subscription closes.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.hub.Unsubscribe(c.sub)
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.sub.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg.Data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Upgrade switches the connection to WebSocket and subscribes it to hub.
func Upgrade(w http.ResponseWriter, r *http.Request, hub *sse.Hub) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WithCtx(r.Context()).Warn("ws: upgrade failed", "error", err)
		return
	}
	c := &client{hub: hub, sub: hub.Subscribe(), conn: conn}
	go c.writePump()
	go c.readPump()
}
