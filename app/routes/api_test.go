package routes_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teastall/teastall/app/models"
	"github.com/teastall/teastall/app/repositories"
	"github.com/teastall/teastall/app/routes"
	"github.com/teastall/teastall/app/services"
	"github.com/teastall/teastall/pkg/auth"
	stallhttp "github.com/teastall/teastall/pkg/http"
	"github.com/teastall/teastall/pkg/router"
	"github.com/teastall/teastall/pkg/sse"
	"github.com/teastall/teastall/pkg/storage"
	"github.com/teastall/teastall/pkg/testkit"
)

const adminSecret = "counter-key"

type fixture struct {
	handler http.Handler
	hub     *sse.Hub
	vars    map[string]string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	hash, err := auth.HashSecret(adminSecret)
	require.NoError(t, err)

	hub := sse.NewHub(sse.DefaultBuffer)
	t.Cleanup(hub.Close)

	r := router.New()
	routes.RegisterAPI(r, routes.Deps{
		Stores:          repositories.NewMemoryStores(),
		Hub:             hub,
		Disk:            storage.NewLocalDisk(t.TempDir(), "/storage"),
		AdminSecretHash: func() string { return hash },
	})

	token := func(id, email, role string) string {
		tok, err := auth.GenerateToken(id, email, role, time.Hour)
		require.NoError(t, err)
		return tok
	}

	return &fixture{
		handler: r.Handler(),
		hub:     hub,
		vars: map[string]string{
			"customerId":    "user_customer",
			"customerToken": token("user_customer", "chai@example.com", auth.RoleUser),
			"strangerToken": token("user_stranger", "other@example.com", auth.RoleUser),
			"adminToken":    token("user_admin", "admin@example.com", auth.RoleAdmin),
			"adminSecret":   adminSecret,
		},
	}
}

func TestAPIScenarios(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "*.json"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	// Every scenario gets its own stores so they cannot see each other's data.
	for _, path := range paths {
		f := newFixture(t)
		testkit.Run(t, f.handler, path, testkit.WithVars(f.vars))
	}
}

func TestEventsStreamDeliversUpdates(t *testing.T) {
	f := newFixture(t)
	srv := httptest.NewServer(f.handler)
	defer srv.Close()

	transport := stallhttp.WithTransport(srv.Client().Transport)
	customer := stallhttp.New(srv.URL, stallhttp.WithToken(f.vars["customerToken"]), transport)
	admin := stallhttp.New(srv.URL, stallhttp.WithToken(f.vars["adminToken"]), transport)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var order models.Order
	require.NoError(t, customer.Do(ctx, http.MethodPost, "/api/orders", map[string]any{
		"items":         []map[string]any{{"name": "Masala Chai", "unitPrice": 20, "quantity": 2}},
		"totalAmount":   40,
		"paymentMethod": "cash",
	}, &order))

	streamCtx, stop := context.WithCancel(ctx)
	frames := make(chan []byte, 8)
	done := make(chan error, 1)
	go func() {
		done <- customer.Stream(streamCtx, "/api/events", func(frame []byte) error {
			frames <- frame
			return nil
		})
	}()

	select {
	case frame := <-frames:
		assert.JSONEq(t, `{"type":"connected"}`, string(frame))
	case <-ctx.Done():
		t.Fatal("no connected event")
	}

	var updated models.Order
	require.NoError(t, admin.Do(ctx, http.MethodPatch, "/api/orders/"+order.ID.Hex(),
		map[string]string{"status": models.StatusPreparing}, &updated))

	select {
	case frame := <-frames:
		var ev services.OrderEvent
		require.NoError(t, json.Unmarshal(frame, &ev))
		assert.Equal(t, services.EventOrderUpdate, ev.Type)
		assert.Equal(t, order.ID.Hex(), ev.OrderID)
		assert.Equal(t, models.StatusPreparing, ev.Order.Status)
		assert.Equal(t, 40.0, ev.Order.TotalAmount)
	case <-ctx.Done():
		t.Fatal("no order_update event")
	}

	stop()
	assert.NoError(t, <-done)
}

func TestEventsRequireToken(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, f.hub.Len())
}

func TestRouteTable(t *testing.T) {
	r := router.New()
	routes.RegisterAPI(r, routes.Deps{
		Stores: repositories.NewMemoryStores(),
		Hub:    sse.NewHub(0),
		Disk:   storage.NewLocalDisk(t.TempDir(), ""),
	})

	path, ok := r.Path("orders.payment")
	require.True(t, ok)
	assert.Equal(t, "/api/orders/{id}/payment", path)

	url, err := r.URL("orders.show", map[string]string{"id": "abc"})
	require.NoError(t, err)
	assert.Equal(t, "/api/orders/abc", url)
}
