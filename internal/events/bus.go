package events

import (
	"gorm.io/gorm"

	"ta3lem-app/internal/domain/orders"
	"ta3lem-app/logger"
)

// Handlers run synchronously, in registration order, inside the same
// transaction that flipped the order status. A handler error aborts
// the whole transaction, so either the order completes together with
// all of its side effects or none of them land.
type PaymentCompletedHandler func(tx *gorm.DB, order *orders.Order) error

type PaymentFailedHandler func(tx *gorm.DB, order *orders.Order, reason string) error

type Bus struct {
	completed []PaymentCompletedHandler
	failed    []PaymentFailedHandler
}

func NewBus() *Bus {
	return &Bus{}
}

func (b *Bus) OnPaymentCompleted(h PaymentCompletedHandler) {
	b.completed = append(b.completed, h)
}

func (b *Bus) OnPaymentFailed(h PaymentFailedHandler) {
	b.failed = append(b.failed, h)
}

// EmitPaymentCompleted fans out to every listener, stopping at the
// first error so the caller can roll back.
func (b *Bus) EmitPaymentCompleted(tx *gorm.DB, order *orders.Order) error {
	for _, h := range b.completed {
		if err := h(tx, order); err != nil {
			logger.Log.WithError(err).WithField("order_number", order.OrderNumber).
				Error("payment completed listener failed")
			return err
		}
	}
	return nil
}

func (b *Bus) EmitPaymentFailed(tx *gorm.DB, order *orders.Order, reason string) error {
	for _, h := range b.failed {
		if err := h(tx, order, reason); err != nil {
			logger.Log.WithError(err).WithField("order_number", order.OrderNumber).
				Error("payment failed listener failed")
			return err
		}
	}
	return nil
}
