// Package reqid generates request IDs and carries them on the context.
//
// The ID is forwarded via the X-Request-ID header and attached to every log
// line through logger.WithCtx(ctx):
//
//	log := logger.WithCtx(r.Context())
//	log.Info("order updated", "order_id", id)
//	// → time=... level=INFO msg="order updated" request_id=3f0c... order_id=...
package reqid

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type ctxKey struct{}

// Header is the HTTP header name used to propagate the request ID.
const Header = "X-Request-ID"

// New returns a random UUIDv4 string.
func New() string {
	return uuid.NewString()
}

// WithValue stores id in ctx and returns the new context.
func WithValue(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromCtx extracts the request ID from ctx, or "" if none is present.
func FromCtx(ctx context.Context) string {
	if id, ok := ctx.Value(ctxKey{}).(string); ok {
		return id
	}
	return ""
}

// Middleware reuses an incoming X-Request-ID or mints a new one, echoes it
// on the response and stores it on the request context.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(Header)
			if id == "" || len(id) > 128 {
				id = New()
			}

			w.Header().Set(Header, id)
			next.ServeHTTP(w, r.WithContext(WithValue(r.Context(), id)))
		})
	}
}
