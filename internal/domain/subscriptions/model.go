package subscriptions

import (
	"time"

	"ta3lem-app/internal/domain/users"
)

type Status string

const (
	StatusTrial     Status = "trial"
	StatusActive    Status = "active"
	StatusPastDue   Status = "past_due"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

// UserSubscription is one period-bounded access grant. A user may
// accumulate many rows over time; at most one should be active.
type UserSubscription struct {
	ID     uint             `gorm:"primaryKey"`
	UserID uint             `gorm:"not null;index:idx_user_subscriptions_user_status"`
	User   users.User       `gorm:"constraint:OnDelete:CASCADE"`
	PlanID uint             `gorm:"not null"`
	Plan   SubscriptionPlan `gorm:"foreignKey:PlanID"`

	Status Status `gorm:"type:varchar(20);not null;default:'active';index:idx_user_subscriptions_user_status"`

	StartedAt          time.Time `gorm:"autoCreateTime"`
	CurrentPeriodStart time.Time `gorm:"not null"`
	CurrentPeriodEnd   time.Time `gorm:"not null;index"`
	CancelledAt        *time.Time

	// Order that paid for the current period, if any.
	OrderID *uint

	GatewaySubscriptionID string `gorm:"type:varchar(100)"`
	AutoRenew             bool   `gorm:"default:true"`

	CancelAtPeriodEnd  bool
	CancellationReason string `gorm:"type:text"`

	UpdatedAt time.Time
}

// IsActive reports whether the subscription currently grants access:
// status active or trial, and the period has not elapsed.
func (s *UserSubscription) IsActive(now time.Time) bool {
	if s.Status != StatusActive && s.Status != StatusTrial {
		return false
	}
	return s.CurrentPeriodEnd.After(now)
}

func (s *UserSubscription) DaysRemaining(now time.Time) int {
	if !s.IsActive(now) {
		return 0
	}
	days := int(s.CurrentPeriodEnd.Sub(now).Hours() / 24)
	if days < 0 {
		days = 0
	}
	return days
}

// Renew extends the subscription by one plan period, starting from the
// current period end, or from now if the period already lapsed. Any
// deferred cancellation is cleared. The caller persists the row.
func (s *UserSubscription) Renew(now time.Time, periodDays int, orderID *uint) {
	start := s.CurrentPeriodEnd
	if start.Before(now) {
		start = now
	}
	s.CurrentPeriodStart = start
	s.CurrentPeriodEnd = start.AddDate(0, 0, periodDays)
	s.Status = StatusActive
	s.CancelAtPeriodEnd = false
	if orderID != nil {
		s.OrderID = orderID
	}
}

// Cancel stops the subscription. Immediate cancellation clamps the
// period end to now so IsActive flips at once; otherwise the deferred
// flag is honored by the expiry sweep.
func (s *UserSubscription) Cancel(now time.Time, immediately bool, reason string) {
	t := now
	s.CancelledAt = &t
	s.CancellationReason = reason
	if immediately {
		s.Status = StatusCancelled
		s.CurrentPeriodEnd = now
	} else {
		s.CancelAtPeriodEnd = true
	}
}
