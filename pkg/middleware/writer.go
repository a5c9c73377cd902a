package middleware

import (
	"bufio"
	"errors"
	"net"
	"net/http"
)

// statusWriter captures the status code while keeping the streaming and
// hijacking capabilities of the wrapped writer reachable; the event stream
// needs Flush and the websocket upgrade needs Hijack.
type statusWriter struct {
	http.ResponseWriter
	statusCode int
	wrote      bool
}

func (sw *statusWriter) WriteHeader(code int) {
	if !sw.wrote {
		sw.statusCode = code
		sw.wrote = true
	}
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	sw.wrote = true
	return sw.ResponseWriter.Write(b)
}

func (sw *statusWriter) Flush() {
	if f, ok := sw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sw *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := sw.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, errors.New("middleware: response writer does not support hijacking")
}

func (sw *statusWriter) Unwrap() http.ResponseWriter { return sw.ResponseWriter }
