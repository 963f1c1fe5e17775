package earnings

import (
	"math"
	"time"

	"ta3lem-app/internal/domain/orders"
	"ta3lem-app/internal/domain/users"
)

// InstructorEarning is created exactly once per completed course order.
// The unique index on OrderID is what enforces "at most once", not
// application re-checks.
type InstructorEarning struct {
	ID           uint         `gorm:"primaryKey"`
	OrderID      uint         `gorm:"not null;uniqueIndex:idx_earnings_order"`
	Order        orders.Order `gorm:"constraint:OnDelete:CASCADE"`
	InstructorID uint         `gorm:"not null;index:idx_earnings_instructor_paid"`
	Instructor   users.User   `gorm:"foreignKey:InstructorID"`

	OrderAmount    float64 `gorm:"not null"`
	CommissionRate float64 `gorm:"not null"` // snapshot at completion time
	PlatformFee    float64 `gorm:"not null"`
	Earning        float64 `gorm:"column:instructor_earning;not null"`
	Currency       string  `gorm:"type:varchar(3);not null;default:'IDR'"`

	IsPaidOut bool    `gorm:"index:idx_earnings_instructor_paid"`
	PayoutID  *uint   `gorm:"index"`
	Payout    *Payout `gorm:"foreignKey:PayoutID"`

	CreatedAt time.Time `gorm:"index"`
}

type PayoutStatus string

const (
	PayoutPending    PayoutStatus = "pending"
	PayoutApproved   PayoutStatus = "approved"
	PayoutProcessing PayoutStatus = "processing"
	PayoutCompleted  PayoutStatus = "completed"
	PayoutRejected   PayoutStatus = "rejected"
)

// Payout is an instructor's request to withdraw accumulated earnings.
type Payout struct {
	ID           uint       `gorm:"primaryKey"`
	PayoutNumber string     `gorm:"type:varchar(40);not null;uniqueIndex:idx_payouts_number"`
	InstructorID uint       `gorm:"not null;index:idx_payouts_instructor_status"`
	Instructor   users.User `gorm:"foreignKey:InstructorID"`

	Amount   float64      `gorm:"not null"`
	Currency string       `gorm:"type:varchar(3);not null;default:'IDR'"`
	Status   PayoutStatus `gorm:"type:varchar(20);not null;default:'pending';index:idx_payouts_instructor_status"`

	BankName          string `gorm:"not null"`
	BankAccountNumber string `gorm:"type:varchar(50);not null"`
	BankAccountHolder string `gorm:"not null"`

	RequestedAt       time.Time `gorm:"autoCreateTime"`
	ProcessedByID     *uint
	ProcessedAt       *time.Time
	TransferReference string `gorm:"type:varchar(100)"`
	Notes             string `gorm:"type:text"`
	RejectionReason   string `gorm:"type:text"`
}

// Reserving reports whether the payout currently counts against the
// instructor's available balance.
func (s PayoutStatus) Reserving() bool {
	switch s {
	case PayoutPending, PayoutApproved, PayoutProcessing:
		return true
	}
	return false
}

// Split divides an order amount into platform fee and instructor
// earning for the given commission percentage. The fee is rounded to
// the cent; fee + earning always equals the order amount exactly.
func Split(orderAmount, commissionRate float64) (platformFee, earning float64) {
	platformFee = math.Round(orderAmount*commissionRate) / 100
	earning = math.Round((orderAmount-platformFee)*100) / 100
	return platformFee, earning
}
