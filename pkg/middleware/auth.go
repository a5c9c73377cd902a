// Package middleware provides the HTTP middleware stack shared by every route.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/teastall/teastall/pkg/auth"
	"github.com/teastall/teastall/pkg/logger"
	"github.com/teastall/teastall/pkg/response"
)

// RoleResolver looks up the stored role of a user. It lets a promotion take
// effect without reissuing the caller's token.
type RoleResolver interface {
	RoleOf(ctx context.Context, userID string) (string, error)
}

// Auth verifies the bearer token and stores the caller's identity on the
// request context. Requests without a valid token get 401.
func Auth(roles RoleResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := identify(r, roles)
			if !ok {
				response.Unauthorized(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

// BearerToken extracts the token from the Authorization header, falling back
// to the access_token query parameter for EventSource clients, which cannot
// set headers.
func BearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return r.URL.Query().Get("access_token")
}

func identify(r *http.Request, roles RoleResolver) (auth.Identity, bool) {
	token := BearerToken(r)
	if token == "" {
		return auth.Identity{}, false
	}

	claims, err := auth.ValidateToken(token)
	if err != nil {
		logger.WithCtx(r.Context()).Debug("rejected bearer token", "error", err)
		return auth.Identity{}, false
	}

	id := auth.Identity{UserID: claims.Subject, Email: claims.Email, Role: claims.Role}
	if roles != nil {
		if role, err := roles.RoleOf(r.Context(), id.UserID); err == nil && role != "" {
			id.Role = role
		}
	}
	if id.Role == "" {
		id.Role = auth.RoleUser
	}
	return id, true
}

// RoleFromCtx returns the authenticated caller's role.
func RoleFromCtx(r *http.Request) (string, bool) {
	id, ok := auth.FromContext(r.Context())
	return id.Role, ok
}
