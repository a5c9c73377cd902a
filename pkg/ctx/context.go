// Package ctx gives handlers a single request context instead of the
// (http.ResponseWriter, *http.Request) pair:
//
//	func ShowOrder(c *ctx.Context) {
//	    order, err := svc.Get(c.Context(), c.Param("id"))
//	    ...
//	    c.Success(order)
//	}
//
//	r.Get("/orders/{id}", "orders.show", ctx.Wrap(ShowOrder))
package ctx

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/teastall/teastall/pkg/auth"
	"github.com/teastall/teastall/pkg/bind"
	"github.com/teastall/teastall/pkg/response"
	"github.com/teastall/teastall/pkg/validate"
)

// HandlerFunc is the context-aware handler signature.
type HandlerFunc func(c *Context)

// Wrap converts a HandlerFunc to a standard http.HandlerFunc.
func Wrap(h HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := acquire(w, r)
		defer release(c)
		h(c)
	}
}

// Context wraps a request/response pair.
type Context struct {
	W      http.ResponseWriter
	R      *http.Request
	status int // 0 until something is written
}

var pool = sync.Pool{
	New: func() any { return &Context{} },
}

func acquire(w http.ResponseWriter, r *http.Request) *Context {
	c := pool.Get().(*Context)
	c.W = w
	c.R = r
	c.status = 0
	return c
}

func release(c *Context) {
	c.W = nil
	c.R = nil
	pool.Put(c)
}

// ─── Request helpers ──────────────────────────────────────────────────────────

// Param returns a URL path parameter ("/orders/{id}" → c.Param("id")).
func (c *Context) Param(key string) string {
	return chi.URLParam(c.R, key)
}

// Query returns a query-string value, "" if absent.
func (c *Context) Query(key string) string {
	return c.R.URL.Query().Get(key)
}

// QueryInt parses a query-string integer, returning def when absent or malformed.
func (c *Context) QueryInt(key string, def int) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return n
}

// Header returns the value of a request header.
func (c *Context) Header(key string) string {
	return c.R.Header.Get(key)
}

// ClientIP returns the caller's IP, respecting X-Forwarded-For.
func (c *Context) ClientIP() string {
	if fwd := c.R.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	if real := c.R.Header.Get("X-Real-Ip"); real != "" {
		return real
	}
	if host, _, err := net.SplitHostPort(c.R.RemoteAddr); err == nil {
		return host
	}
	return c.R.RemoteAddr
}

// Context returns the underlying request context.
func (c *Context) Context() context.Context { return c.R.Context() }

// Identity returns the authenticated caller, if any.
func (c *Context) Identity() (auth.Identity, bool) {
	return auth.FromContext(c.R.Context())
}

// ─── Binding ──────────────────────────────────────────────────────────────────

// BindJSON decodes and validates the body into dest. On failure it has
// already answered 400 (bad JSON) or 422 (field errors) and returns false.
func (c *Context) BindJSON(dest any) bool {
	errs, err := bind.JSON(c.R, dest)
	if err != nil {
		c.Error(http.StatusBadRequest, err.Error())
		return false
	}
	if validate.HasErrors(errs) {
		c.ValidationError(errs)
		return false
	}
	return true
}

// ─── Response helpers ─────────────────────────────────────────────────────────

// SetHeader sets a response header.
func (c *Context) SetHeader(key, value string) {
	c.W.Header().Set(key, value)
}

// Status writes just the status code with an empty body.
func (c *Context) Status(code int) {
	c.status = code
	c.W.WriteHeader(code)
}

// JSON writes v as a bare JSON body.
func (c *Context) JSON(code int, v any) {
	c.W.Header().Set("Content-Type", "application/json")
	c.W.WriteHeader(code)
	c.status = code
	json.NewEncoder(c.W).Encode(v) //nolint:errcheck
}

func (c *Context) envelope(code int, body response.Envelope) {
	c.status = code
	response.Write(c.W, code, body)
}

// Success sends a 200 envelope.
func (c *Context) Success(data any) {
	c.envelope(http.StatusOK, response.Envelope{Status: http.StatusOK, Data: data})
}

// Created sends a 201 envelope.
func (c *Context) Created(data any) {
	c.envelope(http.StatusCreated, response.Envelope{Status: http.StatusCreated, Data: data})
}

// Error sends an error envelope.
func (c *Context) Error(code int, message string) {
	c.envelope(code, response.Envelope{Status: code, Message: message})
}

// ValidationError sends a 422 with field-level errors.
func (c *Context) ValidationError(errs map[string]string) {
	c.envelope(http.StatusUnprocessableEntity, response.Envelope{
		Status:  http.StatusUnprocessableEntity,
		Message: "Validation failed",
		Errors:  errs,
	})
}

func (c *Context) Unauthorized(message ...string) {
	c.Error(http.StatusUnauthorized, first(message, "Unauthorized"))
}

func (c *Context) Forbidden(message ...string) {
	c.Error(http.StatusForbidden, first(message, "Forbidden"))
}

func (c *Context) NotFound(message ...string) {
	c.Error(http.StatusNotFound, first(message, "Not found"))
}

func (c *Context) Conflict(message ...string) {
	c.Error(http.StatusConflict, first(message, "Conflict"))
}

// WrittenStatus returns the status written so far, or 0.
func (c *Context) WrittenStatus() int { return c.status }

func first(msgs []string, def string) string {
	if len(msgs) > 0 && msgs[0] != "" {
		return msgs[0]
	}
	return def
}
