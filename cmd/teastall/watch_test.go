package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

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

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type watchFixture struct {
	hub    *sse.Hub
	orders *services.OrderService
	order  *models.Order
	client *stallhttp.Client
}

// newWatchFixture serves the API over a real listener. onEvents, when set,
// runs as each /api/events request arrives and before it subscribes.
func newWatchFixture(t *testing.T, onEvents func(f *watchFixture)) *watchFixture {
	t.Helper()
	stores := repositories.NewMemoryStores()
	hub := sse.NewHub(sse.DefaultBuffer)
	t.Cleanup(hub.Close)

	orders := services.NewOrderService(stores.Orders, hub, services.OrderOptions{})
	o, err := orders.Create(context.Background(), "user_customer", services.NewOrder{
		Items:         []models.LineItem{{Name: "Masala Chai", UnitPrice: 20, Quantity: 2}},
		TotalAmount:   40,
		PaymentMethod: "upi",
	})
	require.NoError(t, err)

	token, err := auth.GenerateToken("user_customer", "chai@example.com", auth.RoleUser, time.Hour)
	require.NoError(t, err)

	f := &watchFixture{hub: hub, orders: orders, order: o}

	r := router.New()
	routes.RegisterAPI(r, routes.Deps{
		Stores: stores,
		Hub:    hub,
		Disk:   storage.NewLocalDisk(t.TempDir(), "/storage"),
	})
	api := r.Handler()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if onEvents != nil && req.URL.Path == "/api/events" {
			onEvents(f)
		}
		api.ServeHTTP(w, req)
	}))
	t.Cleanup(srv.Close)

	f.client = stallhttp.New(srv.URL, stallhttp.WithToken(token))
	return f
}

func (f *watchFixture) set(t *testing.T, status string) {
	t.Helper()
	_, err := f.orders.Update(context.Background(), f.order.ID.Hex(), services.OrderChange{Status: &status})
	require.NoError(t, err)
}

func TestWatchPushFollowsUntilCompleted(t *testing.T) {
	f := newWatchFixture(t, nil)
	out := &lockedBuffer{}
	w := &watcher{client: f.client, id: f.order.ID.Hex(), out: out}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.run(ctx, "push") }()

	require.Eventually(t, func() bool { return strings.Contains(out.String(), "status=pending") }, 2*time.Second, 5*time.Millisecond)
	require.Equal(t, 1, f.hub.Len())
	f.set(t, models.StatusPreparing)
	f.set(t, models.StatusCompleted)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-ctx.Done():
		t.Fatal("watch did not stop on a completed order")
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "status=pending")
	assert.Contains(t, lines[1], "status=preparing")
	assert.Contains(t, lines[2], "status=completed")
}

func TestWatchPushReadsStateAfterSubscribing(t *testing.T) {
	// The order moves on while the stream request is in flight, before the
	// subscription exists. No event for that change will ever arrive, so
	// the watcher must read the order only after the stream is open.
	var once sync.Once
	f := newWatchFixture(t, func(f *watchFixture) {
		once.Do(func() {
			status := models.StatusPreparing
			_, err := f.orders.Update(context.Background(), f.order.ID.Hex(), services.OrderChange{Status: &status})
			assert.NoError(t, err)
		})
	})
	out := &lockedBuffer{}
	w := &watcher{client: f.client, id: f.order.ID.Hex(), out: out}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.run(ctx, "push") }()

	require.Eventually(t, func() bool { return strings.Contains(out.String(), "status=preparing") }, 2*time.Second, 5*time.Millisecond)
	f.set(t, models.StatusCompleted)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-ctx.Done():
		t.Fatal("watch did not stop on a completed order")
	}
	assert.NotContains(t, out.String(), "status=pending")
}

func TestWatchPollWalksCannedStatuses(t *testing.T) {
	base := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	order := func(status string, minute int) models.Order {
		return models.Order{
			ID:            primitive.NewObjectID(),
			Status:        status,
			PaymentStatus: models.PaymentPending,
			UpdatedAt:     base.Add(time.Duration(minute) * time.Minute),
		}
	}
	fake := testkit.NewFakeStall().Handle("GET", "/api/orders/{id}",
		testkit.Data(200, order(models.StatusPending, 0)),
		testkit.Data(200, order(models.StatusPending, 0)),
		testkit.Data(200, order(models.StatusReady, 5)),
		testkit.Data(200, order(models.StatusCompleted, 9)),
	)
	out := &bytes.Buffer{}
	w := &watcher{
		client:   stallhttp.New("http://stall.test", stallhttp.WithTransport(fake)),
		id:       "665f1c2e9b1e8a0012345678",
		interval: time.Millisecond,
		out:      out,
	}

	require.NoError(t, w.run(context.Background(), "poll"))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "status=pending")
	assert.Contains(t, lines[1], "status=ready")
	assert.Contains(t, lines[2], "status=completed")
	assert.Equal(t, 4, fake.Calls("GET", "/api/orders/{id}"))
}

func TestObserveDropsStaleEvents(t *testing.T) {
	out := &bytes.Buffer{}
	w := &watcher{out: out}
	at := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

	require.NoError(t, w.observe(&models.Order{Status: models.StatusReady, UpdatedAt: at}))
	require.NoError(t, w.observe(&models.Order{Status: models.StatusPreparing, UpdatedAt: at.Add(-time.Minute)}))

	assert.Equal(t, 1, strings.Count(out.String(), "\n"))
	assert.NotContains(t, out.String(), "status=preparing")
}

func TestWatchPollPrintsOnlyChanges(t *testing.T) {
	f := newWatchFixture(t, nil)
	out := &lockedBuffer{}
	w := &watcher{client: f.client, id: f.order.ID.Hex(), interval: 5 * time.Millisecond, out: out}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.run(ctx, "poll") }()

	require.Eventually(t, func() bool { return strings.Contains(out.String(), "status=pending") }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	f.set(t, models.StatusCancelled)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-ctx.Done():
		t.Fatal("watch did not stop on a cancelled order")
	}

	assert.Equal(t, 1, strings.Count(out.String(), "status=pending"))
	assert.Contains(t, out.String(), "status=cancelled")
}

func TestWatchRejectsUnknownMode(t *testing.T) {
	w := &watcher{client: stallhttp.New("http://127.0.0.1:1"), id: "x", out: &bytes.Buffer{}}
	assert.Error(t, w.run(context.Background(), "carrier-pigeon"))
}

func TestPrintRoutes(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printRoutes(&out))
	assert.Contains(t, out.String(), "/api/orders/{id}/payment")
	assert.Contains(t, out.String(), "orders.payment")
}
