package courses

import (
	"errors"
	"time"

	"ta3lem-app/internal/domain/users"
)

type PricingMode string

const (
	PricingFree             PricingMode = "free"
	PricingOneTime          PricingMode = "one_time"
	PricingSubscriptionOnly PricingMode = "subscription_only"
	PricingBoth             PricingMode = "both"
)

type CourseStatus string

const (
	StatusDraft     CourseStatus = "draft"
	StatusPublished CourseStatus = "published"
	StatusArchived  CourseStatus = "archived"
)

const (
	EnrollmentOpen       = "open"
	EnrollmentApproval   = "approval"
	EnrollmentRestricted = "restricted"
)

type Course struct {
	ID      uint       `gorm:"primaryKey"`
	OwnerID uint       `gorm:"not null;index"`
	Owner   users.User `gorm:"foreignKey:OwnerID"`

	Title    string `gorm:"not null"`
	Slug     string `gorm:"not null;uniqueIndex:idx_courses_slug"`
	Overview string `gorm:"type:text"`

	PricingMode PricingMode `gorm:"type:varchar(20);not null;default:'free'"`
	Price       *float64    `gorm:"check:chk_courses_price,price IS NULL OR price > 0"`
	Currency    string      `gorm:"type:varchar(3);not null;default:'IDR'"`

	EnrollmentType  string `gorm:"type:varchar(20);not null;default:'open'"`
	MaxCapacity     *int   `gorm:"check:chk_courses_capacity,max_capacity IS NULL OR max_capacity > 0"`
	WaitlistEnabled bool   `gorm:"default:true"`

	Status      CourseStatus `gorm:"type:varchar(20);not null;default:'draft';index"`
	PublishedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// RequiresPrice reports whether the pricing mode needs a one-time price.
func (m PricingMode) RequiresPrice() bool {
	return m == PricingOneTime || m == PricingBoth
}

func (m PricingMode) AllowsSubscription() bool {
	return m == PricingSubscriptionOnly || m == PricingBoth
}

var ErrInvalidPricing = errors.New("price must be set (and > 0) exactly when pricing mode is one_time or both")

// ValidatePricing enforces the price-iff-paid-mode invariant before persisting.
func (c *Course) ValidatePricing() error {
	if c.PricingMode.RequiresPrice() {
		if c.Price == nil || *c.Price <= 0 {
			return ErrInvalidPricing
		}
		return nil
	}
	if c.Price != nil {
		return ErrInvalidPricing
	}
	return nil
}

// IsFull reports whether the given active-enrollment count hits capacity.
func (c *Course) IsFull(enrolledCount int64) bool {
	if c.MaxCapacity == nil {
		return false
	}
	return enrolledCount >= int64(*c.MaxCapacity)
}

func (c *Course) AvailableSpots(enrolledCount int64) *int64 {
	if c.MaxCapacity == nil {
		return nil
	}
	n := int64(*c.MaxCapacity) - enrolledCount
	if n < 0 {
		n = 0
	}
	return &n
}

// Purchasable

func (c *Course) GetPrice() float64 {
	if c.Price == nil {
		return 0
	}
	return *c.Price
}

func (c *Course) GetCurrency() string { return c.Currency }

func (c *Course) GetDisplayName() string { return c.Title }
