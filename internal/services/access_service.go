package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"ta3lem-app/internal/domain/access"
	"ta3lem-app/internal/domain/courses"
	"ta3lem-app/internal/domain/enrollments"
	"ta3lem-app/internal/domain/subscriptions"
	"ta3lem-app/internal/platform/settings"
)

// AccessService loads the state the pure evaluator needs and delegates
// the decision to it.
type AccessService struct {
	db       *gorm.DB
	settings *settings.Store
}

func NewAccessService(db *gorm.DB, settings *settings.Store) *AccessService {
	return &AccessService{db: db, settings: settings}
}

func (s *AccessService) hasActiveSubscription(userID uint, now time.Time) (bool, error) {
	var n int64
	err := s.db.Model(&subscriptions.UserSubscription{}).
		Where("user_id = ? AND status IN ? AND current_period_end > ?",
			userID,
			[]subscriptions.Status{subscriptions.StatusActive, subscriptions.StatusTrial},
			now).
		Count(&n).Error
	return n > 0, err
}

func (s *AccessService) buildInput(userID uint, course *courses.Course) (access.Input, error) {
	now := time.Now()
	in := access.Input{Now: now, Course: course}

	var enr enrollments.Enrollment
	err := s.db.Where("student_id = ? AND course_id = ?", userID, course.ID).
		First(&enr).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return in, nil
	case err != nil:
		return in, err
	}
	in.Enrollment = &enr

	if enr.AccessType == enrollments.AccessSubscription {
		if enr.SubscriptionID != nil {
			var sub subscriptions.UserSubscription
			if err := s.db.First(&sub, *enr.SubscriptionID).Error; err == nil {
				in.LinkedSubscription = &sub
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return in, err
			}
		}
		if in.LinkedSubscription == nil || !in.LinkedSubscription.IsActive(now) {
			ok, err := s.hasActiveSubscription(userID, now)
			if err != nil {
				return in, err
			}
			in.HasOtherActiveSubscription = ok
		}
	}
	return in, nil
}

// CanAccess decides whether the user may view the course content.
func (s *AccessService) CanAccess(userID uint, course *courses.Course) (bool, access.Reason, error) {
	in, err := s.buildInput(userID, course)
	if err != nil {
		return false, access.ReasonUnknown, err
	}
	allowed, reason := access.Evaluate(in)
	return allowed, reason, nil
}

// EnrollmentOptions derives the open paths into a course for a user.
func (s *AccessService) EnrollmentOptions(userID uint, course *courses.Course) (access.EnrollmentOptions, error) {
	in, err := s.buildInput(userID, course)
	if err != nil {
		return access.EnrollmentOptions{}, err
	}

	hasSub, err := s.hasActiveSubscription(userID, in.Now)
	if err != nil {
		return access.EnrollmentOptions{}, err
	}

	var count int64
	err = s.db.Model(&enrollments.Enrollment{}).
		Where("course_id = ? AND status IN ?", course.ID, liveStatuses).
		Count(&count).Error
	if err != nil {
		return access.EnrollmentOptions{}, err
	}

	cfg := s.settings.Current()
	return access.Options(access.OptionsInput{
		Access:                in,
		HasActiveSubscription: hasSub,
		EnrolledCount:         count,
		SubscriptionsEnabled:  cfg.EnableSubscriptions,
		OneTimeEnabled:        cfg.EnableOneTimePurchase,
		FreeCoursesEnabled:    cfg.EnableFreeCourses,
	}), nil
}
