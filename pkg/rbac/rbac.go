// Package rbac provides role-based access control middleware.
package rbac

import (
	"net/http"

	"github.com/teastall/teastall/pkg/middleware"
	"github.com/teastall/teastall/pkg/response"
)

// HasRole allows only callers whose role is one of roles. Requests without an
// identity get 401 and the wrong role gets 403. middleware.Auth must run first.
func HasRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := middleware.RoleFromCtx(r)
			if !ok {
				response.Unauthorized(w)
				return
			}
			if !allowed[role] {
				response.Forbidden(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
