// Package sse implements the server-sent events push channel: a Stream
// writes frames to one client and a Hub fans events out to every open
// stream.
package sse

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrUnsupported is returned when the ResponseWriter cannot flush.
var ErrUnsupported = errors.New("sse: streaming not supported")

// Stream is an open event stream to one client.
type Stream struct {
	w       http.ResponseWriter
	r       *http.Request
	flusher http.Flusher
}

// New sets the event-stream headers and flushes them so the client sees the
// connection open immediately.
func New(w http.ResponseWriter, r *http.Request) (*Stream, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrUnsupported
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no") // nginx

	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return &Stream{w: w, r: r, flusher: flusher}, nil
}

// Data writes one unnamed frame ("data: ...\n\n").
func (s *Stream) Data(payload []byte) error {
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// Comment writes a comment frame, used as a keepalive.
func (s *Stream) Comment(msg string) error {
	if _, err := fmt.Fprintf(s.w, ": %s\n\n", msg); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// Done is closed when the client goes away.
func (s *Stream) Done() <-chan struct{} { return s.r.Context().Done() }
