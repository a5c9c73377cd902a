package middleware

import (
	"net/http"
	"time"

	"github.com/teastall/teastall/pkg/logger"
	"github.com/teastall/teastall/pkg/reqid"
)

// Logger logs each request with method, path, status, duration and IP, and
// injects a request-scoped logger tagged with the request_id set by
// reqid.Middleware. Wire reqid.Middleware before it.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		reqLog := logger.L.With("request_id", reqid.FromCtx(r.Context()))
		r = r.WithContext(logger.InjectLogger(r.Context(), reqLog))

		sw := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(sw, r)

		reqLog.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.statusCode,
			"duration", time.Since(start).String(),
			"ip", clientIP(r),
		)
	})
}
