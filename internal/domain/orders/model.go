package orders

import (
	"crypto/rand"
	"fmt"
	"time"

	"ta3lem-app/internal/domain/users"
)

// ItemType tags the polymorphic purchased-item reference. The set is
// closed: an order is for a course or for a subscription plan.
type ItemType string

const (
	ItemCourse           ItemType = "course"
	ItemSubscriptionPlan ItemType = "subscription_plan"
)

type Status string

const (
	StatusPending              Status = "pending"
	StatusAwaitingVerification Status = "awaiting_verification"
	StatusProcessing           Status = "processing"
	StatusCompleted            Status = "completed"
	StatusFailed               Status = "failed"
	StatusCancelled            Status = "cancelled"
	StatusRefunded             Status = "refunded"
	StatusExpired              Status = "expired"
)

// Order is the central payment transaction.
type Order struct {
	ID          uint       `gorm:"primaryKey"`
	OrderNumber string     `gorm:"type:varchar(50);not null;uniqueIndex:idx_orders_number"`
	UserID      uint       `gorm:"not null;index:idx_orders_user_status"`
	User        users.User `gorm:"constraint:OnDelete:CASCADE"`

	ItemType ItemType `gorm:"type:varchar(20);not null"`
	ItemID   uint     `gorm:"not null"`

	Subtotal       float64 `gorm:"not null"`
	DiscountAmount float64 `gorm:"not null;default:0"`
	TaxAmount      float64 `gorm:"not null;default:0"`
	TotalAmount    float64 `gorm:"not null"`
	Currency       string  `gorm:"type:varchar(3);not null;default:'IDR'"`

	PaymentProviderID *uint            `gorm:"index"`
	PaymentProvider   *PaymentProvider `gorm:"foreignKey:PaymentProviderID"`
	Status            Status           `gorm:"type:varchar(25);not null;default:'pending';index:idx_orders_user_status"`

	GatewayOrderID   string `gorm:"type:varchar(100);index"`
	GatewayPaymentID string `gorm:"type:varchar(100)"`

	// Manual transfer fields.
	BankAccountID  *uint
	BankAccount    *BankAccount
	PaymentProof   string `gorm:"type:varchar(255)"` // opaque storage reference
	TransferAmount *float64
	TransferDate   *time.Time
	TransferNotes  string `gorm:"type:text"`

	VerifiedByID      *uint
	VerifiedAt        *time.Time
	VerificationNotes string `gorm:"type:text"`
	RejectionReason   string `gorm:"type:text"`

	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
	PaidAt    *time.Time
	ExpiresAt *time.Time

	IPAddress string `gorm:"type:varchar(45)"`
	UserAgent string `gorm:"type:text"`
}

// IsTerminal reports whether no further business transition applies
// (refund from completed is administrative, handled separately).
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled, StatusRefunded, StatusExpired:
		return true
	}
	return false
}

func (o *Order) IsExpired(now time.Time) bool {
	if o.ExpiresAt == nil {
		return false
	}
	return now.After(*o.ExpiresAt)
}

const orderNumberCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewOrderNumber builds a human-readable order number, e.g.
// TA3-20260901-7KQ2M. Uniqueness is enforced by the DB index, not by
// pre-checking.
func NewOrderNumber(now time.Time) string {
	suffix := make([]byte, 5)
	rand.Read(suffix)
	for i, b := range suffix {
		suffix[i] = orderNumberCharset[int(b)%len(orderNumberCharset)]
	}
	return fmt.Sprintf("TA3-%s-%s", now.Format("20060102"), suffix)
}
