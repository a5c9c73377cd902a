package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/teastall/teastall/app/models"
	"github.com/teastall/teastall/app/repositories"
	"github.com/teastall/teastall/app/services"
	"github.com/teastall/teastall/pkg/auth"
	"github.com/teastall/teastall/pkg/sse"
)

func ptr[T any](v T) *T { return &v }

// fakeClock advances one second every time it is read.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type recorded struct {
	Type  string
	Event services.OrderEvent
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recorded
}

func (p *recordingPublisher) Publish(eventType string, v any) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ev := v.(services.OrderEvent)
	p.events = append(p.events, recorded{Type: eventType, Event: ev})
	return 1, nil
}

func (p *recordingPublisher) all() []recorded {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]recorded(nil), p.events...)
}

// failingOrders fails the Nth Update call.
type failingOrders struct {
	repositories.OrderRepository
	failOn int
	calls  int
}

func (f *failingOrders) Update(ctx context.Context, id string, u models.OrderUpdate) error {
	f.calls++
	if f.calls == f.failOn {
		return errors.New("write concern timeout")
	}
	return f.OrderRepository.Update(ctx, id, u)
}

var (
	customer = auth.Identity{UserID: "user_chai", Role: auth.RoleUser}
	admin    = auth.Identity{UserID: "user_admin", Role: auth.RoleAdmin}
)

func chaiOrder() services.NewOrder {
	return services.NewOrder{
		Items:         []models.LineItem{{Name: "Masala Chai", UnitPrice: 20, Quantity: 2}},
		TotalAmount:   40,
		PaymentMethod: "cash",
	}
}

func newOrderService(t *testing.T, opts services.OrderOptions) (*services.OrderService, *recordingPublisher) {
	t.Helper()
	pub := &recordingPublisher{}
	if opts.Now == nil {
		opts.Now = newClock().Now
	}
	return services.NewOrderService(repositories.NewMemoryStores().Orders, pub, opts), pub
}

func TestCreateThenReadRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc, pub := newOrderService(t, services.OrderOptions{})

	created, err := svc.Create(ctx, customer.UserID, chaiOrder())
	require.NoError(t, err)

	got, err := svc.Get(ctx, created.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)
	assert.Equal(t, models.PaymentPending, got.PaymentStatus)
	assert.Equal(t, chaiOrder().Items, got.Items)
	assert.Equal(t, 40.0, got.TotalAmount)
	assert.Equal(t, got.CreatedAt, got.UpdatedAt)
	assert.Empty(t, pub.all(), "creation does not broadcast")
}

func TestGetUnknownOrder(t *testing.T) {
	svc, _ := newOrderService(t, services.OrderOptions{})
	_, err := svc.Get(context.Background(), primitive.NewObjectID().Hex())
	assert.ErrorIs(t, err, services.ErrOrderNotFound)

	_, err = svc.Get(context.Background(), "garbage")
	assert.ErrorIs(t, err, services.ErrOrderNotFound)

	_, err = svc.Update(context.Background(), primitive.NewObjectID().Hex(), services.OrderChange{Status: ptr(models.StatusReady)})
	assert.ErrorIs(t, err, services.ErrOrderNotFound)
}

func TestUpdateTouchesOnlyStatusFields(t *testing.T) {
	ctx := context.Background()
	svc, _ := newOrderService(t, services.OrderOptions{})
	o, err := svc.Create(ctx, customer.UserID, chaiOrder())
	require.NoError(t, err)

	updated, err := svc.Update(ctx, o.ID.Hex(), services.OrderChange{Status: ptr(models.StatusPreparing)})
	require.NoError(t, err)

	assert.Equal(t, o.Items, updated.Items)
	assert.Equal(t, o.TotalAmount, updated.TotalAmount)
	assert.Equal(t, o.UserID, updated.UserID)
	assert.Equal(t, o.CreatedAt, updated.CreatedAt)
	assert.True(t, updated.UpdatedAt.After(updated.CreatedAt))
}

func TestSameUpdateTwiceKeepsLatestTimestamp(t *testing.T) {
	ctx := context.Background()
	svc, _ := newOrderService(t, services.OrderOptions{})
	o, _ := svc.Create(ctx, customer.UserID, chaiOrder())

	first, err := svc.Update(ctx, o.ID.Hex(), services.OrderChange{Status: ptr(models.StatusReady)})
	require.NoError(t, err)
	second, err := svc.Update(ctx, o.ID.Hex(), services.OrderChange{Status: ptr(models.StatusReady)})
	require.NoError(t, err)

	assert.Equal(t, models.StatusReady, second.Status)
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt))
}

func TestPermissiveByDefault(t *testing.T) {
	ctx := context.Background()
	svc, _ := newOrderService(t, services.OrderOptions{})
	o, _ := svc.Create(ctx, customer.UserID, chaiOrder())

	_, err := svc.Update(ctx, o.ID.Hex(), services.OrderChange{Status: ptr(models.StatusCompleted)})
	require.NoError(t, err)
	back, err := svc.Update(ctx, o.ID.Hex(), services.OrderChange{Status: ptr(models.StatusPending)})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, back.Status)
}

func TestUnknownStatusRejected(t *testing.T) {
	ctx := context.Background()
	svc, pub := newOrderService(t, services.OrderOptions{})
	o, _ := svc.Create(ctx, customer.UserID, chaiOrder())

	_, err := svc.Update(ctx, o.ID.Hex(), services.OrderChange{Status: ptr("shipped")})
	assert.ErrorIs(t, err, services.ErrInvalidStatus)
	_, err = svc.UpdatePayment(ctx, admin, o.ID.Hex(), "refunded")
	assert.ErrorIs(t, err, services.ErrInvalidStatus)
	assert.Empty(t, pub.all())
}

func TestHappyPath(t *testing.T) {
	ctx := context.Background()
	svc, pub := newOrderService(t, services.OrderOptions{})
	o, _ := svc.Create(ctx, customer.UserID, chaiOrder())
	id := o.ID.Hex()

	got, err := svc.UpdatePayment(ctx, customer, id, models.PaymentSubmitted)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentSubmitted, got.PaymentStatus)
	assert.Equal(t, models.StatusPending, got.Status)

	got, err = svc.UpdatePayment(ctx, admin, id, models.PaymentCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCompleted, got.PaymentStatus)
	assert.Equal(t, models.StatusPaid, got.Status)

	for _, s := range []string{models.StatusPreparing, models.StatusReady, models.StatusCompleted} {
		_, err := svc.Update(ctx, id, services.OrderChange{Status: ptr(s)})
		require.NoError(t, err)
		read, err := svc.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, s, read.Status)
	}

	events := pub.all()
	require.Len(t, events, 5)
	assert.Equal(t, services.EventPaymentUpdate, events[0].Type)
	assert.Equal(t, services.EventPaymentUpdate, events[1].Type)
	assert.Equal(t, models.PaymentCompleted, events[1].Event.PaymentStatus)
	assert.Equal(t, models.StatusPaid, events[1].Event.Order.Status)
	assert.Equal(t, services.EventOrderUpdate, events[4].Type)
	assert.Equal(t, id, events[4].Event.OrderID)
	assert.Equal(t, models.StatusCompleted, events[4].Event.Order.Status)
}

func TestRejectionKeepsStatus(t *testing.T) {
	ctx := context.Background()
	svc, _ := newOrderService(t, services.OrderOptions{})
	o, _ := svc.Create(ctx, customer.UserID, chaiOrder())
	id := o.ID.Hex()

	_, err := svc.UpdatePayment(ctx, customer, id, models.PaymentSubmitted)
	require.NoError(t, err)

	got, err := svc.Update(ctx, id, services.OrderChange{
		PaymentStatus: ptr(models.PaymentFailed),
		AdminReason:   ptr("insufficient cash"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentFailed, got.PaymentStatus)
	assert.Equal(t, models.StatusPending, got.Status)
	assert.Equal(t, "insufficient cash", got.AdminReason)
}

func TestCancellationVisibleToCustomer(t *testing.T) {
	ctx := context.Background()
	svc, _ := newOrderService(t, services.OrderOptions{})
	o, _ := svc.Create(ctx, customer.UserID, chaiOrder())
	id := o.ID.Hex()

	_, err := svc.Update(ctx, id, services.OrderChange{Status: ptr(models.StatusPreparing)})
	require.NoError(t, err)
	_, err = svc.Update(ctx, id, services.OrderChange{
		Status:      ptr(models.StatusCancelled),
		AdminReason: ptr("out of stock"),
	})
	require.NoError(t, err)

	mine, err := svc.ListForUser(ctx, customer.UserID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, models.StatusCancelled, mine[0].Status)
	assert.Equal(t, "out of stock", mine[0].AdminReason)

	viewed, err := svc.GetFor(ctx, customer, id)
	require.NoError(t, err)
	assert.Equal(t, "out of stock", viewed.AdminReason)

	_, err = svc.GetFor(ctx, auth.Identity{UserID: "someone_else"}, id)
	assert.ErrorIs(t, err, services.ErrForbidden)
}

func TestCustomerPaymentRestrictions(t *testing.T) {
	ctx := context.Background()
	svc, _ := newOrderService(t, services.OrderOptions{})
	o, _ := svc.Create(ctx, customer.UserID, chaiOrder())

	_, err := svc.UpdatePayment(ctx, customer, o.ID.Hex(), models.PaymentCompleted)
	assert.ErrorIs(t, err, services.ErrForbidden, "customers cannot approve their own payment")

	_, err = svc.UpdatePayment(ctx, auth.Identity{UserID: "stranger"}, o.ID.Hex(), models.PaymentSubmitted)
	assert.ErrorIs(t, err, services.ErrForbidden)
}

func TestExplicitStatusOverridesPaidCoupling(t *testing.T) {
	ctx := context.Background()
	svc, _ := newOrderService(t, services.OrderOptions{})
	o, _ := svc.Create(ctx, customer.UserID, chaiOrder())

	got, err := svc.Update(ctx, o.ID.Hex(), services.OrderChange{
		PaymentStatus: ptr(models.PaymentCompleted),
		Status:        ptr(models.StatusPreparing),
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPreparing, got.Status)
}

func TestPaidCouplingOnGeneralUpdate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newOrderService(t, services.OrderOptions{})
	o, _ := svc.Create(ctx, customer.UserID, chaiOrder())

	got, err := svc.Update(ctx, o.ID.Hex(), services.OrderChange{PaymentStatus: ptr(models.PaymentCompleted)})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaid, got.Status)
}

func TestSecondPaymentWriteFailure(t *testing.T) {
	ctx := context.Background()
	store := repositories.NewMemoryStores().Orders
	flaky := &failingOrders{OrderRepository: store, failOn: 2}
	pub := &recordingPublisher{}
	svc := services.NewOrderService(flaky, pub, services.OrderOptions{Now: newClock().Now})

	o, err := svc.Create(ctx, customer.UserID, chaiOrder())
	require.NoError(t, err)

	_, err = svc.UpdatePayment(ctx, admin, o.ID.Hex(), models.PaymentCompleted)
	require.Error(t, err)
	assert.NotErrorIs(t, err, services.ErrOrderNotFound)
	assert.Empty(t, pub.all(), "nothing is broadcast when the update fails")

	stored, err := store.Find(ctx, o.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCompleted, stored.PaymentStatus, "first write is durable")
	assert.Equal(t, models.StatusPending, stored.Status, "status not yet advanced")
}

func TestAtomicPaymentSingleWrite(t *testing.T) {
	ctx := context.Background()
	store := repositories.NewMemoryStores().Orders
	flaky := &failingOrders{OrderRepository: store, failOn: 2}
	svc := services.NewOrderService(flaky, &recordingPublisher{}, services.OrderOptions{
		AtomicPayment: true,
		Now:           newClock().Now,
	})

	o, _ := svc.Create(ctx, customer.UserID, chaiOrder())
	got, err := svc.UpdatePayment(ctx, admin, o.ID.Hex(), models.PaymentCompleted)
	require.NoError(t, err)
	assert.Equal(t, 1, flaky.calls)
	assert.Equal(t, models.StatusPaid, got.Status)
	assert.Equal(t, models.PaymentCompleted, got.PaymentStatus)
}

func TestStrictTransitions(t *testing.T) {
	ctx := context.Background()
	svc, pub := newOrderService(t, services.OrderOptions{Strict: true})
	o, _ := svc.Create(ctx, customer.UserID, chaiOrder())
	id := o.ID.Hex()

	_, err := svc.Update(ctx, id, services.OrderChange{Status: ptr(models.StatusReady)})
	assert.ErrorIs(t, err, services.ErrInvalidTransition)

	_, err = svc.UpdatePayment(ctx, admin, id, models.PaymentCompleted)
	assert.ErrorIs(t, err, services.ErrInvalidTransition, "payment must be submitted first")

	_, err = svc.UpdatePayment(ctx, customer, id, models.PaymentSubmitted)
	require.NoError(t, err)
	got, err := svc.UpdatePayment(ctx, admin, id, models.PaymentCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaid, got.Status)

	for _, s := range []string{models.StatusPreparing, models.StatusReady, models.StatusReady, models.StatusCompleted} {
		_, err := svc.Update(ctx, id, services.OrderChange{Status: ptr(s)})
		require.NoError(t, err, s)
	}

	_, err = svc.Update(ctx, id, services.OrderChange{Status: ptr(models.StatusCancelled)})
	assert.ErrorIs(t, err, services.ErrInvalidTransition, "terminal orders stay terminal")
	assert.Len(t, pub.all(), 6)
}

func TestAllowedTransitionTable(t *testing.T) {
	cases := []struct {
		from, to string
		want     bool
	}{
		{models.StatusPending, models.StatusPaid, true},
		{models.StatusPending, models.StatusCancelled, true},
		{models.StatusPaid, models.StatusPreparing, true},
		{models.StatusReady, models.StatusCompleted, true},
		{models.StatusCompleted, models.StatusPending, false},
		{models.StatusCancelled, models.StatusPaid, false},
		{models.StatusPreparing, models.StatusPaid, false},
		{models.StatusReady, models.StatusReady, true},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, services.AllowedStatus(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
	assert.True(t, services.AllowedPayment(models.PaymentSubmitted, models.PaymentFailed))
	assert.False(t, services.AllowedPayment(models.PaymentFailed, models.PaymentCompleted))
}

func TestBroadcastReachesOpenViewersOnly(t *testing.T) {
	ctx := context.Background()
	hub := sse.NewHub(8)
	defer hub.Close()
	svc := services.NewOrderService(repositories.NewMemoryStores().Orders, hub, services.OrderOptions{Now: newClock().Now})

	o, _ := svc.Create(ctx, customer.UserID, chaiOrder())

	a, b := hub.Subscribe(), hub.Subscribe()
	for _, sub := range []*sse.Subscriber{a, b} {
		assert.Equal(t, "connected", (<-sub.C).Type)
	}

	_, err := svc.Update(ctx, o.ID.Hex(), services.OrderChange{Status: ptr(models.StatusPreparing)})
	require.NoError(t, err)

	late := hub.Subscribe()
	assert.Equal(t, "connected", (<-late.C).Type)

	for _, sub := range []*sse.Subscriber{a, b} {
		msg := <-sub.C
		var ev services.OrderEvent
		require.NoError(t, json.Unmarshal(msg.Data, &ev))
		assert.Equal(t, services.EventOrderUpdate, ev.Type)
		assert.Equal(t, o.ID.Hex(), ev.OrderID)
		assert.Equal(t, models.StatusPreparing, ev.Order.Status)
		assert.Empty(t, sub.C, "exactly one event per update")
	}
	assert.Empty(t, late.C, "late viewers get no replay")
}
