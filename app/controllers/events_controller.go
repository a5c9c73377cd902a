package controllers

import (
	"time"

	"github.com/teastall/teastall/pkg/ctx"
	"github.com/teastall/teastall/pkg/sse"
	"github.com/teastall/teastall/pkg/ws"
)

// EventsController exposes the live order feed over SSE and WebSocket.
// Both transports read from the same hub.
type EventsController struct {
	hub       *sse.Hub
	heartbeat time.Duration
}

func NewEventsController(hub *sse.Hub, heartbeat time.Duration) *EventsController {
	return &EventsController{hub: hub, heartbeat: heartbeat}
}

// Stream holds the connection open until the viewer leaves. GET /api/events
func (ec *EventsController) Stream(c *ctx.Context) {
	ec.hub.Serve(c.W, c.R, ec.heartbeat)
}

// Socket upgrades to WebSocket. GET /api/ws
func (ec *EventsController) Socket(c *ctx.Context) {
	ws.Upgrade(c.W, c.R, ec.hub)
}
