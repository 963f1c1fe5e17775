package settings

import (
	"time"
)

// PlatformSettings is a single-row table (pk fixed at 1) holding the
// knobs admins can change at runtime without a redeploy.
type PlatformSettings struct {
	ID uint `gorm:"primaryKey" json:"id"`

	CommissionRate float64 `gorm:"not null;default:20" json:"commission_rate"`
	MinimumPayout  float64 `gorm:"not null;default:500000" json:"minimum_payout"`

	PayoutRequiresApproval bool `gorm:"not null;default:true" json:"payout_requires_approval"`

	DefaultCurrency string `gorm:"type:varchar(10);not null;default:'IDR'" json:"default_currency"`

	EnableSubscriptions   bool `gorm:"not null;default:true" json:"enable_subscriptions"`
	EnableOneTimePurchase bool `gorm:"not null;default:true" json:"enable_one_time_purchase"`
	EnableFreeCourses     bool `gorm:"not null;default:true" json:"enable_free_courses"`

	OrderExpiryHours int `gorm:"not null;default:24" json:"order_expiry_hours"`

	UpdatedAt time.Time `json:"updated_at"`
}

func (PlatformSettings) TableName() string {
	return "platform_settings"
}
