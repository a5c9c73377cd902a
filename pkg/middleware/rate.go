package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/teastall/teastall/pkg/cache"
	"github.com/teastall/teastall/pkg/logger"
	"github.com/teastall/teastall/pkg/response"
)

// RateLimit rejects callers whose IP exceeds the limiter's budget with 429.
// A limiter error lets the request through.
func RateLimit(l cache.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, err := l.Allow(r.Context(), clientIP(r))
			if err != nil {
				logger.WithCtx(r.Context()).Warn("rate limiter unavailable", "error", err)
			}
			if !ok && err == nil {
				response.TooManyRequests(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP prefers the first X-Forwarded-For hop, then the remote address
// without its port.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
