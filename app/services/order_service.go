package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/teastall/teastall/app/models"
	"github.com/teastall/teastall/app/repositories"
	"github.com/teastall/teastall/pkg/auth"
	"github.com/teastall/teastall/pkg/logger"
	"github.com/teastall/teastall/pkg/metrics"
)

// Event types pushed to live viewers.
const (
	EventOrderUpdate   = "order_update"
	EventPaymentUpdate = "payment_update"
)

// OrderEvent is the payload broadcast after every applied change.
type OrderEvent struct {
	Type          string        `json:"type"`
	OrderID       string        `json:"orderId"`
	PaymentStatus string        `json:"paymentStatus,omitempty"`
	Order         *models.Order `json:"order"`
}

// Publisher fans an event out to connected viewers. *sse.Hub implements it.
type Publisher interface {
	Publish(eventType string, v any) (int, error)
}

// OrderChange is a partial status update. Nil fields are left alone.
type OrderChange struct {
	Status        *string
	PaymentStatus *string
	AdminReason   *string
}

// NewOrder is what checkout submits. totalAmount is stored as sent.
type NewOrder struct {
	Items         []models.LineItem
	TotalAmount   float64
	PaymentMethod string
}

type OrderOptions struct {
	// Strict rejects status pairs outside the documented lifecycle.
	Strict bool
	// AtomicPayment writes paymentStatus=completed and status=paid together.
	AtomicPayment bool
	// Now overrides the clock. Defaults to time.Now.
	Now func() time.Time
}

type OrderService struct {
	orders repositories.OrderRepository
	pub    Publisher
	strict bool
	atomic bool
	now    func() time.Time
}

func NewOrderService(orders repositories.OrderRepository, pub Publisher, opts OrderOptions) *OrderService {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &OrderService{
		orders: orders,
		pub:    pub,
		strict: opts.Strict,
		atomic: opts.AtomicPayment,
		now:    now,
	}
}

// timestamp is UTC at millisecond precision, which is what MongoDB keeps.
func (s *OrderService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

func (s *OrderService) Create(ctx context.Context, userID string, in NewOrder) (*models.Order, error) {
	now := s.timestamp()
	o := &models.Order{
		UserID:        userID,
		Items:         append([]models.LineItem(nil), in.Items...),
		TotalAmount:   in.TotalAmount,
		PaymentMethod: in.PaymentMethod,
		Status:        models.StatusPending,
		PaymentStatus: models.PaymentPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("services: create order: %w", err)
	}
	metrics.OrdersCreated.Inc()
	logger.WithCtx(ctx).Info("order created", "order_id", o.ID.Hex(), "user_id", userID, "total", o.TotalAmount)
	return o, nil
}

func (s *OrderService) Get(ctx context.Context, id string) (*models.Order, error) {
	o, err := s.orders.Find(ctx, id)
	if err != nil {
		return nil, mapOrderErr(err)
	}
	return o, nil
}

// GetFor returns the order when viewer owns it or is an admin.
func (s *OrderService) GetFor(ctx context.Context, viewer auth.Identity, id string) (*models.Order, error) {
	o, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !viewer.IsAdmin() && o.UserID != viewer.UserID {
		return nil, ErrForbidden
	}
	return o, nil
}

// List returns every order, newest first.
func (s *OrderService) List(ctx context.Context) ([]models.Order, error) {
	return s.orders.List(ctx)
}

func (s *OrderService) ListForUser(ctx context.Context, userID string) ([]models.Order, error) {
	return s.orders.ListByUser(ctx, userID)
}

// Update applies an admin change and broadcasts order_update.
func (s *OrderService) Update(ctx context.Context, id string, ch OrderChange) (*models.Order, error) {
	return s.apply(ctx, id, ch, EventOrderUpdate)
}

// UpdatePayment applies a payment status change on behalf of actor and
// broadcasts payment_update. Customers may only mark their own order's
// payment as submitted.
func (s *OrderService) UpdatePayment(ctx context.Context, actor auth.Identity, id, paymentStatus string) (*models.Order, error) {
	if !actor.IsAdmin() {
		if paymentStatus != models.PaymentSubmitted {
			return nil, ErrForbidden
		}
		current, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if current.UserID != actor.UserID {
			return nil, ErrForbidden
		}
	}
	return s.apply(ctx, id, OrderChange{PaymentStatus: &paymentStatus}, EventPaymentUpdate)
}

func (s *OrderService) apply(ctx context.Context, id string, ch OrderChange, eventType string) (*models.Order, error) {
	log := logger.WithCtx(ctx).With("order_id", id)

	if ch.Status != nil && !models.IsOrderStatus(*ch.Status) {
		return nil, fmt.Errorf("%w: status %q", ErrInvalidStatus, *ch.Status)
	}
	if ch.PaymentStatus != nil && !models.IsPaymentStatus(*ch.PaymentStatus) {
		return nil, fmt.Errorf("%w: paymentStatus %q", ErrInvalidStatus, *ch.PaymentStatus)
	}

	// An explicit status in the same request takes precedence over the
	// completed-payment coupling.
	markPaid := ch.PaymentStatus != nil && *ch.PaymentStatus == models.PaymentCompleted && ch.Status == nil

	if s.strict {
		current, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := checkTransition(current, ch); err != nil {
			return nil, err
		}
		// Strict mode never moves an order backwards to paid.
		markPaid = markPaid && current.Status == models.StatusPending
	}

	now := s.timestamp()
	first := models.OrderUpdate{
		Status:        ch.Status,
		PaymentStatus: ch.PaymentStatus,
		AdminReason:   ch.AdminReason,
		UpdatedAt:     now,
	}
	paid := models.StatusPaid
	if markPaid && s.atomic {
		first.Status = &paid
		markPaid = false
	}

	if err := s.orders.Update(ctx, id, first); err != nil {
		return nil, mapOrderErr(err)
	}
	if markPaid {
		// The payment write above is already durable. A failure here leaves
		// paymentStatus=completed with the previous status until retried.
		if err := s.orders.Update(ctx, id, models.OrderUpdate{Status: &paid, UpdatedAt: now}); err != nil {
			log.Warn("payment completed but status not advanced", "error", err)
			return nil, fmt.Errorf("services: mark order %s paid: %w", id, mapOrderErr(err))
		}
	}

	o, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	metrics.OrderTransitions.WithLabelValues(o.Status, o.PaymentStatus).Inc()
	log.Info("order updated", "status", o.Status, "payment_status", o.PaymentStatus)

	ev := OrderEvent{Type: eventType, OrderID: id, Order: o}
	if eventType == EventPaymentUpdate {
		ev.PaymentStatus = o.PaymentStatus
	}
	if s.pub != nil {
		n, err := s.pub.Publish(eventType, ev)
		if err != nil {
			log.Error("broadcast failed", "error", err)
		} else {
			log.Debug("broadcast", "type", eventType, "viewers", n)
		}
	}
	return o, nil
}

func mapOrderErr(err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrOrderNotFound
	}
	return err
}
