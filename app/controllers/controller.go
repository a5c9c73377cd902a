// Package controllers turns HTTP requests into service calls and service
// errors into the response envelope.
package controllers

import (
	"errors"
	"net/http"

	"github.com/teastall/teastall/app/services"
	"github.com/teastall/teastall/pkg/auth"
	"github.com/teastall/teastall/pkg/ctx"
	"github.com/teastall/teastall/pkg/logger"
)

// fail classifies err. Anything unrecognised is logged and answered with a
// generic 500 so store errors never leak to clients.
func fail(c *ctx.Context, err error) {
	switch {
	case errors.Is(err, services.ErrOrderNotFound),
		errors.Is(err, services.ErrProductNotFound),
		errors.Is(err, services.ErrCategoryNotFound),
		errors.Is(err, services.ErrPostNotFound),
		errors.Is(err, services.ErrUserNotFound):
		c.NotFound(err.Error())
	case errors.Is(err, services.ErrInvalidStatus):
		c.Error(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, services.ErrInvalidTransition):
		c.Conflict(err.Error())
	case errors.Is(err, services.ErrForbidden):
		c.Forbidden()
	default:
		logger.WithCtx(c.Context()).Error("request failed",
			"method", c.R.Method,
			"path", c.R.URL.Path,
			"error", err,
		)
		c.Error(http.StatusInternalServerError, "Internal Server Error")
	}
}

// caller returns the authenticated identity or answers 401.
func caller(c *ctx.Context) (auth.Identity, bool) {
	id, ok := c.Identity()
	if !ok || id.UserID == "" {
		c.Unauthorized()
		return auth.Identity{}, false
	}
	return id, true
}
