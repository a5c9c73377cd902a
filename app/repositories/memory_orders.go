package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/teastall/teastall/app/models"
)

type orderDoc = models.Order

type memoryOrders struct {
	t *table[orderDoc]
}

func orderCreated(o orderDoc) time.Time { return o.CreatedAt }

func (r *memoryOrders) Create(_ context.Context, o *models.Order) error {
	if o.ID.IsZero() {
		o.ID = primitive.NewObjectID()
	}
	r.t.insert(o.ID, *o.Clone())
	return nil
}

func (r *memoryOrders) Find(_ context.Context, id string) (*models.Order, error) {
	o, err := r.t.get(id)
	if err != nil {
		return nil, err
	}
	return o.Clone(), nil
}

func (r *memoryOrders) List(_ context.Context) ([]models.Order, error) {
	return cloneOrders(r.t.newest(orderCreated, nil, 0)), nil
}

func (r *memoryOrders) ListByUser(_ context.Context, userID string) ([]models.Order, error) {
	keep := func(o orderDoc) bool { return o.UserID == userID }
	return cloneOrders(r.t.newest(orderCreated, keep, 0)), nil
}

func (r *memoryOrders) Update(_ context.Context, id string, u models.OrderUpdate) error {
	return r.t.mutate(id, func(o *orderDoc) {
		if u.Status != nil {
			o.Status = *u.Status
		}
		if u.PaymentStatus != nil {
			o.PaymentStatus = *u.PaymentStatus
		}
		if u.AdminReason != nil {
			o.AdminReason = *u.AdminReason
		}
		o.UpdatedAt = u.UpdatedAt
	})
}

func (r *memoryOrders) Count(_ context.Context) (int64, error) {
	return r.t.count(), nil
}

func (r *memoryOrders) Revenue(_ context.Context, statuses []string) (float64, error) {
	in := make(map[string]bool, len(statuses))
	for _, s := range statuses {
		in[s] = true
	}
	var total float64
	for _, o := range r.t.newest(orderCreated, func(o orderDoc) bool { return in[o.Status] }, 0) {
		total += o.TotalAmount
	}
	return total, nil
}

func cloneOrders(in []orderDoc) []models.Order {
	out := make([]models.Order, len(in))
	for i := range in {
		out[i] = *in[i].Clone()
	}
	return out
}
