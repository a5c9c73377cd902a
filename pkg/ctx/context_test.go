package ctx_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teastall/teastall/pkg/auth"
	appctx "github.com/teastall/teastall/pkg/ctx"
	"github.com/teastall/teastall/pkg/response"
)

func TestWrapAndJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	appctx.Wrap(func(c *appctx.Context) {
		c.JSON(http.StatusOK, map[string]any{"ok": true})
	})(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok":true`)
}

func TestSuccessEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	var written int
	appctx.Wrap(func(c *appctx.Context) {
		c.Success(map[string]any{"id": "abc"})
		written = c.WrittenStatus()
	})(rec, req)

	var env response.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, http.StatusOK, env.Status)
	assert.Equal(t, map[string]any{"id": "abc"}, env.Data)
	assert.Equal(t, http.StatusOK, written)
}

func TestBindJSONValid(t *testing.T) {
	rec := httptest.NewRecorder()
	body := `{"name":"Masala Chai","quantity":2}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	appctx.Wrap(func(c *appctx.Context) {
		var input struct {
			Name     string `json:"name" validate:"required"`
			Quantity int    `json:"quantity" validate:"gte=1"`
		}
		require.True(t, c.BindJSON(&input))
		assert.Equal(t, "Masala Chai", input.Name)
		c.Success(nil)
	})(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBindJSONInvalid(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":""}`))

	appctx.Wrap(func(c *appctx.Context) {
		var input struct {
			Name string `json:"name" validate:"required"`
		}
		assert.False(t, c.BindJSON(&input))
	})(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name"`)
}

func TestBindJSONMalformed(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))

	appctx.Wrap(func(c *appctx.Context) {
		var input struct {
			Name string `json:"name"`
		}
		assert.False(t, c.BindJSON(&input))
	})(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestParamAndQuery(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/orders/{id}", appctx.Wrap(func(c *appctx.Context) {
		assert.Equal(t, "abc", c.Param("id"))
		assert.Equal(t, 5, c.QueryInt("limit", 20))
		assert.Equal(t, 20, c.QueryInt("missing", 20))
		c.Status(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/abc?limit=5", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "1.2.3.4, 10.0.0.1")

	appctx.Wrap(func(c *appctx.Context) {
		assert.Equal(t, "1.2.3.4", c.ClientIP())
	})(httptest.NewRecorder(), req)
}

func TestIdentity(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	appctx.Wrap(func(c *appctx.Context) {
		_, ok := c.Identity()
		assert.False(t, ok)
	})(httptest.NewRecorder(), req)

	id := auth.Identity{UserID: "u1", Email: "a@b.c", Role: auth.RoleAdmin}
	req = req.WithContext(auth.WithIdentity(req.Context(), id))
	appctx.Wrap(func(c *appctx.Context) {
		got, ok := c.Identity()
		assert.True(t, ok)
		assert.Equal(t, id, got)
	})(httptest.NewRecorder(), req)
}

func TestErrorHelpers(t *testing.T) {
	cases := []struct {
		fn   func(c *appctx.Context)
		code int
		msg  string
	}{
		{func(c *appctx.Context) { c.NotFound("Order not found") }, http.StatusNotFound, "Order not found"},
		{func(c *appctx.Context) { c.Forbidden() }, http.StatusForbidden, "Forbidden"},
		{func(c *appctx.Context) { c.Unauthorized() }, http.StatusUnauthorized, "Unauthorized"},
		{func(c *appctx.Context) { c.Conflict("illegal transition") }, http.StatusConflict, "illegal transition"},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		appctx.Wrap(tc.fn)(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		var env response.Envelope
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
		assert.Equal(t, tc.code, rec.Code)
		assert.Equal(t, tc.msg, env.Message)
	}
}
