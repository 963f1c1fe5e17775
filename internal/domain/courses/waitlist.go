package courses

import (
	"time"

	"ta3lem-app/internal/domain/users"
)

// WaitlistEntry queues a student for a course at capacity.
// Ordering is by priority (lower first), then join time.
type WaitlistEntry struct {
	ID        uint       `gorm:"primaryKey"`
	CourseID  uint       `gorm:"not null;uniqueIndex:idx_waitlist_course_student"`
	Course    Course     `gorm:"constraint:OnDelete:CASCADE"`
	StudentID uint       `gorm:"not null;uniqueIndex:idx_waitlist_course_student"`
	Student   users.User `gorm:"foreignKey:StudentID;constraint:OnDelete:CASCADE"`

	Priority          int `gorm:"not null;default:1"`
	NotifiedOfOpening bool
	JoinedAt          time.Time `gorm:"autoCreateTime"`
}
