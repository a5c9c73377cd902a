package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

func TestMiddlewareLabelsByRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/api/orders/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	for _, id := range []string{"a", "b"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/orders/"+id, nil))
	}

	rec := httptest.NewRecorder()
	Handler()(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()

	assert.Contains(t, body, `teastall_http_requests_total{method="GET",route="/api/orders/{id}",status="418"} 2`)
	assert.NotContains(t, body, `route="/api/orders/a"`)
}

func TestRecorderKeepsFlusher(t *testing.T) {
	rec := httptest.NewRecorder()
	var w http.ResponseWriter = &responseRecorder{ResponseWriter: rec, status: http.StatusOK}

	f, ok := w.(http.Flusher)
	assert.True(t, ok)
	f.Flush()
	assert.True(t, rec.Flushed)
}

func TestHandlerExposesRegistry(t *testing.T) {
	ObserveDBQuery("orders.find", time.Now())

	rec := httptest.NewRecorder()
	Handler()(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "teastall_db_query_duration_seconds"))
}
