package subscriptions

import "time"

type BillingCycle string

const (
	CycleMonthly   BillingCycle = "monthly"
	CycleQuarterly BillingCycle = "quarterly"
	CycleYearly    BillingCycle = "yearly"
)

// PeriodDays maps a billing cycle to its period length. Unknown cycles
// fall back to monthly.
func (c BillingCycle) PeriodDays() int {
	switch c {
	case CycleQuarterly:
		return 90
	case CycleYearly:
		return 365
	default:
		return 30
	}
}

// SubscriptionPlan grants access to all subscription-gated courses for
// one billing period.
type SubscriptionPlan struct {
	ID          uint   `gorm:"primaryKey"`
	Name        string `gorm:"not null"`
	Slug        string `gorm:"not null;uniqueIndex:idx_subscription_plans_slug"`
	Description string `gorm:"type:text"`

	Price        float64      `gorm:"not null"`
	Currency     string       `gorm:"type:varchar(3);not null;default:'IDR'"`
	BillingCycle BillingCycle `gorm:"type:varchar(20);not null"`

	TrialDays    int `gorm:"not null;default:0"`
	IsActive     bool
	IsFeatured   bool
	DisplayOrder int `gorm:"not null;default:0"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Purchasable

func (p *SubscriptionPlan) GetPrice() float64 { return p.Price }

func (p *SubscriptionPlan) GetCurrency() string { return p.Currency }

func (p *SubscriptionPlan) GetDisplayName() string { return p.Name }
