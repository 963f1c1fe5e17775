package subscriptions

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestPeriodDays(t *testing.T) {
	assert.Equal(t, 30, CycleMonthly.PeriodDays())
	assert.Equal(t, 90, CycleQuarterly.PeriodDays())
	assert.Equal(t, 365, CycleYearly.PeriodDays())
	assert.Equal(t, 30, BillingCycle("weird").PeriodDays())
}

func TestIsActive(t *testing.T) {
	sub := UserSubscription{Status: StatusActive, CurrentPeriodEnd: now.AddDate(0, 0, 5)}
	assert.True(t, sub.IsActive(now))

	sub.Status = StatusTrial
	assert.True(t, sub.IsActive(now))

	sub.Status = StatusPastDue
	assert.False(t, sub.IsActive(now))

	sub.Status = StatusActive
	sub.CurrentPeriodEnd = now.Add(-time.Minute)
	assert.False(t, sub.IsActive(now), "lapsed period must not grant access even before the sweep runs")
}

func TestDaysRemaining(t *testing.T) {
	sub := UserSubscription{Status: StatusActive, CurrentPeriodEnd: now.AddDate(0, 0, 7)}
	assert.Equal(t, 7, sub.DaysRemaining(now))

	sub.CurrentPeriodEnd = now.Add(-time.Hour)
	assert.Equal(t, 0, sub.DaysRemaining(now))
}

func TestRenewExtendsFromPeriodEnd(t *testing.T) {
	end := now.AddDate(0, 0, 10)
	orderID := uint(42)
	sub := UserSubscription{
		Status:             StatusActive,
		CurrentPeriodStart: now.AddDate(0, 0, -20),
		CurrentPeriodEnd:   end,
		CancelAtPeriodEnd:  true,
	}

	sub.Renew(now, 30, &orderID)

	assert.Equal(t, end, sub.CurrentPeriodStart, "early renewal stacks onto the remaining time")
	assert.Equal(t, end.AddDate(0, 0, 30), sub.CurrentPeriodEnd)
	assert.Equal(t, StatusActive, sub.Status)
	assert.False(t, sub.CancelAtPeriodEnd, "renewal clears a deferred cancellation")
	assert.Equal(t, orderID, *sub.OrderID)
}

func TestRenewPastDueKeepsRemainingPeriod(t *testing.T) {
	end := now.AddDate(0, 0, 10)
	sub := UserSubscription{
		Status:           StatusPastDue,
		CurrentPeriodEnd: end,
	}

	sub.Renew(now, 30, nil)

	assert.Equal(t, end, sub.CurrentPeriodStart, "remaining paid time is not forfeited")
	assert.Equal(t, end.AddDate(0, 0, 30), sub.CurrentPeriodEnd)
	assert.Equal(t, StatusActive, sub.Status)
}

func TestRenewAfterLapseStartsNow(t *testing.T) {
	sub := UserSubscription{
		Status:           StatusExpired,
		CurrentPeriodEnd: now.AddDate(0, 0, -15),
	}

	sub.Renew(now, 30, nil)

	assert.Equal(t, now, sub.CurrentPeriodStart)
	assert.Equal(t, now.AddDate(0, 0, 30), sub.CurrentPeriodEnd)
	assert.Equal(t, StatusActive, sub.Status)
}

func TestCancelImmediately(t *testing.T) {
	sub := UserSubscription{Status: StatusActive, CurrentPeriodEnd: now.AddDate(0, 0, 20)}

	sub.Cancel(now, true, "refund requested")

	assert.Equal(t, StatusCancelled, sub.Status)
	assert.Equal(t, now, sub.CurrentPeriodEnd)
	assert.False(t, sub.IsActive(now))
	assert.Equal(t, "refund requested", sub.CancellationReason)
	assert.NotNil(t, sub.CancelledAt)
}

func TestCancelAtPeriodEnd(t *testing.T) {
	end := now.AddDate(0, 0, 20)
	sub := UserSubscription{Status: StatusActive, CurrentPeriodEnd: end}

	sub.Cancel(now, false, "")

	assert.Equal(t, StatusActive, sub.Status, "deferred cancel keeps access until the period ends")
	assert.Equal(t, end, sub.CurrentPeriodEnd)
	assert.True(t, sub.CancelAtPeriodEnd)
	assert.True(t, sub.IsActive(now))
}
