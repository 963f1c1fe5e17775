package events

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"ta3lem-app/internal/domain/orders"
)

func TestEmitPaymentCompletedRunsInOrder(t *testing.T) {
	bus := NewBus()
	var calls []string
	bus.OnPaymentCompleted(func(tx *gorm.DB, o *orders.Order) error {
		calls = append(calls, "enroll")
		return nil
	})
	bus.OnPaymentCompleted(func(tx *gorm.DB, o *orders.Order) error {
		calls = append(calls, "earnings")
		return nil
	})
	bus.OnPaymentCompleted(func(tx *gorm.DB, o *orders.Order) error {
		calls = append(calls, "receipt")
		return nil
	})

	err := bus.EmitPaymentCompleted(nil, &orders.Order{OrderNumber: "TA3-20260301-AAAAA"})
	assert.NoError(t, err)
	assert.Equal(t, []string{"enroll", "earnings", "receipt"}, calls)
}

func TestEmitPaymentCompletedStopsAtFirstError(t *testing.T) {
	bus := NewBus()
	boom := errors.New("earning insert failed")
	var calls []string
	bus.OnPaymentCompleted(func(tx *gorm.DB, o *orders.Order) error {
		calls = append(calls, "first")
		return nil
	})
	bus.OnPaymentCompleted(func(tx *gorm.DB, o *orders.Order) error {
		calls = append(calls, "second")
		return boom
	})
	bus.OnPaymentCompleted(func(tx *gorm.DB, o *orders.Order) error {
		calls = append(calls, "third")
		return nil
	})

	err := bus.EmitPaymentCompleted(nil, &orders.Order{OrderNumber: "TA3-20260301-BBBBB"})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"first", "second"}, calls, "later listeners must not run after a failure")
}

func TestEmitPaymentFailedPassesReason(t *testing.T) {
	bus := NewBus()
	var got string
	bus.OnPaymentFailed(func(tx *gorm.DB, o *orders.Order, reason string) error {
		got = reason
		return nil
	})

	err := bus.EmitPaymentFailed(nil, &orders.Order{OrderNumber: "TA3-20260301-CCCCC"}, "gateway declined")
	assert.NoError(t, err)
	assert.Equal(t, "gateway declined", got)
}

func TestEmitWithNoListeners(t *testing.T) {
	bus := NewBus()
	assert.NoError(t, bus.EmitPaymentCompleted(nil, &orders.Order{}))
	assert.NoError(t, bus.EmitPaymentFailed(nil, &orders.Order{}, ""))
}
