package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teastall/teastall/pkg/logger"
	"github.com/teastall/teastall/pkg/metrics"
)

// DefaultBuffer is the per-viewer queue depth.
const DefaultBuffer = 16

// ConnectedType is the type of the first event every viewer receives. It is
// sent once the viewer is registered, so anything published after it
// arrives reaches that viewer.
const ConnectedType = "connected"

// Message is one serialized event.
type Message struct {
	Type string
	Data []byte
}

// Subscriber is one open viewer. C is closed when the viewer is removed
// from the hub, whether by Unsubscribe, by falling behind or by Close.
type Subscriber struct {
	ID string
	C  <-chan Message

	ch chan Message
}

// Hub is the registry of open viewers. Publish delivers at most once: a
// viewer whose queue is full is dropped rather than waited on, and nothing
// is replayed to viewers that subscribe later.
type Hub struct {
	mu     sync.Mutex
	subs   map[string]*Subscriber
	buffer int
	closed bool
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{subs: make(map[string]*Subscriber), buffer: buffer}
}

// Subscribe registers a viewer whose first message is a synthetic
// "connected" event.
func (h *Hub) Subscribe() *Subscriber {
	ch := make(chan Message, h.buffer)
	sub := &Subscriber{ID: uuid.NewString(), C: ch, ch: ch}
	ch <- Message{Type: ConnectedType, Data: []byte(`{"type":"` + ConnectedType + `"}`)}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return sub
	}
	h.subs[sub.ID] = sub
	metrics.Viewers.Set(float64(len(h.subs)))
	return sub
}

// Unsubscribe removes the viewer and closes its channel. Safe to call after
// the hub already dropped it.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(sub.ID)
}

func (h *Hub) removeLocked(id string) {
	sub, ok := h.subs[id]
	if !ok {
		return
	}
	delete(h.subs, id)
	close(sub.ch)
	metrics.Viewers.Set(float64(len(h.subs)))
}

// Publish marshals v once and queues it to every viewer open right now. It
// returns how many viewers accepted the event.
func (h *Hub) Publish(eventType string, v any) (int, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return 0, fmt.Errorf("sse: marshal %s: %w", eventType, err)
	}
	msg := Message{Type: eventType, Data: data}

	h.mu.Lock()
	defer h.mu.Unlock()

	delivered := 0
	for id, sub := range h.subs {
		select {
		case sub.ch <- msg:
			delivered++
		default:
			h.removeLocked(id)
			metrics.ViewerDrops.Inc()
			logger.Warn("dropped slow viewer", "viewer", id, "event", eventType)
		}
	}
	metrics.Broadcasts.WithLabelValues(eventType).Inc()
	return delivered, nil
}

// Len returns the number of open viewers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close drops every viewer and refuses new ones. Open streams end, which
// lets a graceful HTTP shutdown finish.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id := range h.subs {
		h.removeLocked(id)
	}
}

// Serve streams hub events to one HTTP client until it disconnects or the
// hub drops it. A heartbeat of zero disables keepalive comments.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, heartbeat time.Duration) {
	stream, err := New(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	sub := h.Subscribe()
	defer h.Unsubscribe(sub)

	log := logger.WithCtx(r.Context()).With("viewer", sub.ID)
	log.Debug("viewer connected")
	defer log.Debug("viewer disconnected")

	var tick <-chan time.Time
	if heartbeat > 0 {
		t := time.NewTicker(heartbeat)
		defer t.Stop()
		tick = t.C
	}

	for {
		select {
		case <-stream.Done():
			return
		case msg, ok := <-sub.C:
			if !ok {
				return
			}
			if err := stream.Data(msg.Data); err != nil {
				return
			}
		case <-tick:
			if err := stream.Comment("ping"); err != nil {
				return
			}
		}
	}
}
