package enrollments

import (
	"math"
	"time"

	"ta3lem-app/internal/domain/courses"
	"ta3lem-app/internal/domain/users"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusEnrolled  Status = "enrolled"
	StatusCompleted Status = "completed"
	StatusPaused    Status = "paused"
	StatusWithdrawn Status = "withdrawn"
	StatusRejected  Status = "rejected"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
	PaymentFree     PaymentStatus = "free"
)

type AccessType string

const (
	AccessFree         AccessType = "free"
	AccessPurchased    AccessType = "purchased"
	AccessSubscription AccessType = "subscription"
)

// Enrollment is the single record tying a student to a course.
// The (student, course) pair is unique; enrollment state is soft
// (withdrawn/rejected rows stay around), never row deletion.
type Enrollment struct {
	ID        uint           `gorm:"primaryKey"`
	StudentID uint           `gorm:"not null;uniqueIndex:idx_enrollments_student_course"`
	Student   users.User     `gorm:"foreignKey:StudentID;constraint:OnDelete:CASCADE"`
	CourseID  uint           `gorm:"not null;uniqueIndex:idx_enrollments_student_course"`
	Course    courses.Course `gorm:"constraint:OnDelete:CASCADE"`

	Status        Status        `gorm:"type:varchar(15);not null;default:'enrolled';index:idx_enrollments_student_status"`
	PaymentStatus PaymentStatus `gorm:"type:varchar(15);not null;default:'free'"`
	AccessType    AccessType    `gorm:"type:varchar(15);not null;default:'free'"`

	// Settlement linkage. OrderID for purchases, SubscriptionID for
	// subscription grants; both optional.
	OrderID        *uint
	SubscriptionID *uint `gorm:"index"`

	PaymentAmount    *float64 `gorm:"check:chk_enrollments_payment,(payment_status = 'free' AND payment_amount IS NULL) OR (payment_status <> 'free' AND payment_amount IS NOT NULL)"`
	PaymentDate      *time.Time
	PaymentReference string `gorm:"type:varchar(100)"`

	ProgressPercentage float64 `gorm:"not null;default:0"`
	EnrolledOn         time.Time
	CompletedOn        *time.Time
	LastAccessed       *time.Time

	ApprovalRequestedAt *time.Time
	ApprovedByID        *uint
	ApprovedAt          *time.Time
	RejectionReason     string `gorm:"type:text"`

	UpdatedAt time.Time
}

// GateOpen is the enrollment-side half of the access decision: the
// enrollment must be live (enrolled/completed/paused) and settled
// (paid or free). Access-type checks live in the access package.
func (e *Enrollment) GateOpen() bool {
	switch e.Status {
	case StatusEnrolled, StatusCompleted, StatusPaused:
	default:
		return false
	}
	return e.PaymentStatus == PaymentPaid || e.PaymentStatus == PaymentFree
}

// Progress computes the percentage of completed contents, rounded to
// two decimals and clamped to [0, 100]. Zero contents means zero
// progress.
func Progress(completed, total int64) float64 {
	if total <= 0 || completed <= 0 {
		return 0
	}
	if completed >= total {
		return 100
	}
	return math.Round(float64(completed)/float64(total)*100*100) / 100
}
