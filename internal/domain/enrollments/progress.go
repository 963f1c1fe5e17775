package enrollments

import (
	"time"

	"ta3lem-app/internal/domain/courses"
)

// ContentProgress records a student's completion of one content item.
// Unique per (enrollment, content); recreated views only bump ViewCount.
type ContentProgress struct {
	ID           uint            `gorm:"primaryKey"`
	EnrollmentID uint            `gorm:"not null;uniqueIndex:idx_content_progress_enrollment_content"`
	Enrollment   Enrollment      `gorm:"constraint:OnDelete:CASCADE"`
	ContentID    uint            `gorm:"not null;uniqueIndex:idx_content_progress_enrollment_content"`
	Content      courses.Content `gorm:"constraint:OnDelete:CASCADE"`

	IsCompleted bool `gorm:"index"`
	ViewCount   int  `gorm:"not null;default:0"`
	StartedAt   time.Time
	CompletedAt *time.Time
	LastViewed  time.Time `gorm:"autoUpdateTime"`
}
