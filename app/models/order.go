// Package models holds the documents persisted by the stall.
package models

import (
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Order statuses.
const (
	StatusPending   = "pending"
	StatusPaid      = "paid"
	StatusPreparing = "preparing"
	StatusReady     = "ready"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Payment statuses.
const (
	PaymentPending   = "pending"
	PaymentSubmitted = "submitted"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
)

var (
	orderStatuses   = []string{StatusPending, StatusPaid, StatusPreparing, StatusReady, StatusCompleted, StatusCancelled}
	paymentStatuses = []string{PaymentPending, PaymentSubmitted, PaymentCompleted, PaymentFailed}
)

func IsOrderStatus(s string) bool   { return contains(orderStatuses, s) }
func IsPaymentStatus(s string) bool { return contains(paymentStatuses, s) }

// IsTerminal reports whether no further lifecycle step follows s.
func IsTerminal(s string) bool { return s == StatusCompleted || s == StatusCancelled }

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// LineItem is a snapshot of a product taken at checkout. It is never
// re-synced with the catalog.
type LineItem struct {
	ProductID string  `bson:"productId,omitempty" json:"productId,omitempty"`
	Name      string  `bson:"name" json:"name"`
	UnitPrice float64 `bson:"unitPrice" json:"unitPrice"`
	Quantity  int     `bson:"quantity" json:"quantity"`
}

// Order is one customer order.
type Order struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID        string             `bson:"userId" json:"userId"`
	Items         []LineItem         `bson:"items" json:"items"`
	TotalAmount   float64            `bson:"totalAmount" json:"totalAmount"`
	PaymentMethod string             `bson:"paymentMethod" json:"paymentMethod"`
	Status        string             `bson:"status" json:"status"`
	PaymentStatus string             `bson:"paymentStatus" json:"paymentStatus"`
	AdminReason   string             `bson:"adminReason,omitempty" json:"adminReason,omitempty"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Clone returns a copy that shares no slices with o. Items is never nil on
// the copy.
func (o *Order) Clone() *Order {
	c := *o
	c.Items = slices.Clone(o.Items)
	if c.Items == nil {
		c.Items = []LineItem{}
	}
	return &c
}

// OrderUpdate is the only shape a status change can write. Nil fields are
// left untouched.
type OrderUpdate struct {
	Status        *string
	PaymentStatus *string
	AdminReason   *string
	UpdatedAt     time.Time
}
