package courses

import "time"

// Module groups contents inside a course, ordered by Position.
type Module struct {
	ID       uint   `gorm:"primaryKey"`
	CourseID uint   `gorm:"not null;index"`
	Course   Course `gorm:"constraint:OnDelete:CASCADE"`

	Title       string `gorm:"not null"`
	Description string `gorm:"type:text"`
	Position    int    `gorm:"not null;default:0"`

	Contents []Content `gorm:"foreignKey:ModuleID"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Content is the unit of progress tracking. The actual material (text,
// video embed, file) is delivered elsewhere; the settlement/access core
// only counts contents.
type Content struct {
	ID       uint   `gorm:"primaryKey"`
	ModuleID uint   `gorm:"not null;index"`
	Module   Module `gorm:"constraint:OnDelete:CASCADE"`

	Title    string `gorm:"not null"`
	Position int    `gorm:"not null;default:0"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
