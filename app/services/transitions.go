package services

import (
	"fmt"

	"github.com/teastall/teastall/app/models"
)

var statusTransitions = map[string][]string{
	models.StatusPending:   {models.StatusPaid, models.StatusCancelled},
	models.StatusPaid:      {models.StatusPreparing, models.StatusCancelled},
	models.StatusPreparing: {models.StatusReady, models.StatusCancelled},
	models.StatusReady:     {models.StatusCompleted, models.StatusCancelled},
}

var paymentTransitions = map[string][]string{
	models.PaymentPending:   {models.PaymentSubmitted},
	models.PaymentSubmitted: {models.PaymentCompleted, models.PaymentFailed},
}

// AllowedStatus reports whether from may move to to in the lifecycle.
// Re-applying the current value is always allowed.
func AllowedStatus(from, to string) bool {
	return from == to || allowed(statusTransitions, from, to)
}

func AllowedPayment(from, to string) bool {
	return from == to || allowed(paymentTransitions, from, to)
}

func allowed(table map[string][]string, from, to string) bool {
	for _, next := range table[from] {
		if next == to {
			return true
		}
	}
	return false
}

func checkTransition(current *models.Order, ch OrderChange) error {
	if ch.Status != nil && !AllowedStatus(current.Status, *ch.Status) {
		return fmt.Errorf("%w: status %s -> %s", ErrInvalidTransition, current.Status, *ch.Status)
	}
	if ch.PaymentStatus != nil && !AllowedPayment(current.PaymentStatus, *ch.PaymentStatus) {
		return fmt.Errorf("%w: paymentStatus %s -> %s", ErrInvalidTransition, current.PaymentStatus, *ch.PaymentStatus)
	}
	return nil
}
