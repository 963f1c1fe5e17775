package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ta3lem-app/internal/domain/courses"
	"ta3lem-app/internal/domain/enrollments"
	"ta3lem-app/internal/domain/orders"
	"ta3lem-app/internal/domain/subscriptions"
	"ta3lem-app/logger"
)

var (
	ErrCourseNotPublished   = errors.New("course is not published")
	ErrCourseFull           = errors.New("course is at capacity")
	ErrNotFreeCourse        = errors.New("course is not free to enroll")
	ErrAlreadyEnrolled      = errors.New("already enrolled in this course")
	ErrEnrollmentNotPending = errors.New("enrollment is not pending approval")
	ErrNotEnrolled          = errors.New("no enrollment for this course")
	ErrAlreadyOnWaitlist    = errors.New("already on the waitlist")
	ErrNotOnWaitlist        = errors.New("not on the waitlist")
	ErrContentNotInCourse   = errors.New("content does not belong to this course")
)

type EnrollmentService struct {
	db *gorm.DB
}

func NewEnrollmentService(db *gorm.DB) *EnrollmentService {
	return &EnrollmentService{db: db}
}

// liveStatuses are the enrollment states that occupy a seat.
var liveStatuses = []enrollments.Status{
	enrollments.StatusEnrolled,
	enrollments.StatusCompleted,
	enrollments.StatusPaused,
}

func (s *EnrollmentService) liveCount(tx *gorm.DB, courseID uint) (int64, error) {
	var n int64
	err := tx.Model(&enrollments.Enrollment{}).
		Where("course_id = ? AND status IN ?", courseID, liveStatuses).
		Count(&n).Error
	return n, err
}

// EnrollFree enrolls a student into a free course. Re-enrolling is
// idempotent: an existing live row is returned untouched, a withdrawn
// or rejected row is reactivated.
func (s *EnrollmentService) EnrollFree(studentID uint, course *courses.Course) (*enrollments.Enrollment, error) {
	if course.Status != courses.StatusPublished {
		return nil, ErrCourseNotPublished
	}
	if course.PricingMode != courses.PricingFree {
		return nil, ErrNotFreeCourse
	}

	var enr *enrollments.Enrollment
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var existing enrollments.Enrollment
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("student_id = ? AND course_id = ?", studentID, course.ID).
			First(&existing).Error
		switch {
		case err == nil:
			if existing.Status == enrollments.StatusWithdrawn || existing.Status == enrollments.StatusRejected {
				return s.reactivate(tx, &existing, course, &enr)
			}
			enr = &existing
			return nil
		case errors.Is(err, gorm.ErrRecordNotFound):
			// fall through to create
		default:
			return err
		}

		n, err := s.liveCount(tx, course.ID)
		if err != nil {
			return err
		}
		if course.IsFull(n) {
			return ErrCourseFull
		}

		now := time.Now()
		row := enrollments.Enrollment{
			StudentID:     studentID,
			CourseID:      course.ID,
			Status:        enrollments.StatusEnrolled,
			PaymentStatus: enrollments.PaymentFree,
			AccessType:    enrollments.AccessFree,
			EnrolledOn:    now,
		}
		if course.EnrollmentType == courses.EnrollmentApproval {
			row.Status = enrollments.StatusPending
			row.ApprovalRequestedAt = &now
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		enr = &row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return enr, nil
}

func (s *EnrollmentService) reactivate(tx *gorm.DB, row *enrollments.Enrollment, course *courses.Course, out **enrollments.Enrollment) error {
	n, err := s.liveCount(tx, course.ID)
	if err != nil {
		return err
	}
	if course.IsFull(n) {
		return ErrCourseFull
	}
	now := time.Now()
	row.Status = enrollments.StatusEnrolled
	row.RejectionReason = ""
	row.EnrolledOn = now
	if course.EnrollmentType == courses.EnrollmentApproval {
		row.Status = enrollments.StatusPending
		row.ApprovalRequestedAt = &now
	}
	if err := tx.Save(row).Error; err != nil {
		return err
	}
	*out = row
	return nil
}

// EnrollWithSubscriptionTx grants course access under an active
// subscription. Purchased access is never downgraded: an existing
// purchased row only gets its status revived, its access type stays.
func (s *EnrollmentService) EnrollWithSubscriptionTx(tx *gorm.DB, studentID uint, course *courses.Course, sub *subscriptions.UserSubscription) (*enrollments.Enrollment, error) {
	if course.Status != courses.StatusPublished {
		return nil, ErrCourseNotPublished
	}
	if !course.PricingMode.AllowsSubscription() {
		return nil, fmt.Errorf("course %d does not allow subscription access", course.ID)
	}

	var existing enrollments.Enrollment
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("student_id = ? AND course_id = ?", studentID, course.ID).
		First(&existing).Error
	if err == nil {
		if existing.AccessType == enrollments.AccessPurchased {
			if existing.Status == enrollments.StatusWithdrawn {
				existing.Status = enrollments.StatusEnrolled
				if err := tx.Save(&existing).Error; err != nil {
					return nil, err
				}
			}
			return &existing, nil
		}
		existing.Status = enrollments.StatusEnrolled
		existing.PaymentStatus = enrollments.PaymentPaid
		existing.AccessType = enrollments.AccessSubscription
		existing.SubscriptionID = &sub.ID
		if existing.PaymentAmount == nil {
			zero := 0.0
			existing.PaymentAmount = &zero
		}
		if err := tx.Save(&existing).Error; err != nil {
			return nil, err
		}
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	n, err := s.liveCount(tx, course.ID)
	if err != nil {
		return nil, err
	}
	if course.IsFull(n) {
		return nil, ErrCourseFull
	}

	zero := 0.0
	row := enrollments.Enrollment{
		StudentID:      studentID,
		CourseID:       course.ID,
		Status:         enrollments.StatusEnrolled,
		PaymentStatus:  enrollments.PaymentPaid,
		AccessType:     enrollments.AccessSubscription,
		SubscriptionID: &sub.ID,
		PaymentAmount:  &zero,
		EnrolledOn:     time.Now(),
	}
	if err := tx.Create(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// EnrollWithPurchaseTx grants lifetime access from a completed order.
// It runs inside the settlement transaction; any existing row is
// upgraded to purchased, whatever it held before.
func (s *EnrollmentService) EnrollWithPurchaseTx(tx *gorm.DB, order *orders.Order, course *courses.Course) (*enrollments.Enrollment, error) {
	now := time.Now()

	var existing enrollments.Enrollment
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("student_id = ? AND course_id = ?", order.UserID, course.ID).
		First(&existing).Error
	if err == nil {
		existing.Status = enrollments.StatusEnrolled
		existing.PaymentStatus = enrollments.PaymentPaid
		existing.AccessType = enrollments.AccessPurchased
		existing.OrderID = &order.ID
		existing.SubscriptionID = nil
		existing.PaymentAmount = &order.TotalAmount
		existing.PaymentDate = &now
		existing.PaymentReference = order.OrderNumber
		if err := tx.Save(&existing).Error; err != nil {
			return nil, err
		}
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	row := enrollments.Enrollment{
		StudentID:        order.UserID,
		CourseID:         course.ID,
		Status:           enrollments.StatusEnrolled,
		PaymentStatus:    enrollments.PaymentPaid,
		AccessType:       enrollments.AccessPurchased,
		OrderID:          &order.ID,
		PaymentAmount:    &order.TotalAmount,
		PaymentDate:      &now,
		PaymentReference: order.OrderNumber,
		EnrolledOn:       now,
	}
	if err := tx.Create(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// RevokeSubscriptionAccessTx pauses every enrolled row granted by the
// given subscriptions. Purchased and free enrollments are untouched.
func (s *EnrollmentService) RevokeSubscriptionAccessTx(tx *gorm.DB, subscriptionIDs []uint) (int64, error) {
	if len(subscriptionIDs) == 0 {
		return 0, nil
	}
	res := tx.Model(&enrollments.Enrollment{}).
		Where("subscription_id IN ? AND access_type = ? AND status = ?",
			subscriptionIDs, enrollments.AccessSubscription, enrollments.StatusEnrolled).
		Update("status", enrollments.StatusPaused)
	return res.RowsAffected, res.Error
}

// RestoreSubscriptionAccessTx revives rows paused by an earlier revoke
// of the same subscription, as when a lapsed period is paid for again.
// Rows paused under other subscriptions stay paused; re-enrolling
// under the new subscription reactivates them.
func (s *EnrollmentService) RestoreSubscriptionAccessTx(tx *gorm.DB, userID uint, sub *subscriptions.UserSubscription) (int64, error) {
	res := tx.Model(&enrollments.Enrollment{}).
		Where("student_id = ? AND subscription_id = ? AND access_type = ? AND status = ?",
			userID, sub.ID, enrollments.AccessSubscription, enrollments.StatusPaused).
		Update("status", enrollments.StatusEnrolled)
	return res.RowsAffected, res.Error
}

// Approve moves a pending enrollment to enrolled. Capacity is
// re-checked under lock: seats may have filled while the request sat
// in the queue.
func (s *EnrollmentService) Approve(enrollmentID, approverID uint) (*enrollments.Enrollment, error) {
	var enr enrollments.Enrollment
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Preload("Course").
			First(&enr, enrollmentID).Error; err != nil {
			return err
		}
		if enr.Status != enrollments.StatusPending {
			return ErrEnrollmentNotPending
		}
		n, err := s.liveCount(tx, enr.CourseID)
		if err != nil {
			return err
		}
		if enr.Course.IsFull(n) {
			return ErrCourseFull
		}
		now := time.Now()
		enr.Status = enrollments.StatusEnrolled
		enr.ApprovedByID = &approverID
		enr.ApprovedAt = &now
		enr.EnrolledOn = now
		return tx.Save(&enr).Error
	})
	if err != nil {
		return nil, err
	}
	return &enr, nil
}

func (s *EnrollmentService) Reject(enrollmentID, approverID uint, reason string) (*enrollments.Enrollment, error) {
	var enr enrollments.Enrollment
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&enr, enrollmentID).Error; err != nil {
			return err
		}
		if enr.Status != enrollments.StatusPending {
			return ErrEnrollmentNotPending
		}
		now := time.Now()
		enr.Status = enrollments.StatusRejected
		enr.ApprovedByID = &approverID
		enr.ApprovedAt = &now
		enr.RejectionReason = reason
		return tx.Save(&enr).Error
	})
	if err != nil {
		return nil, err
	}
	return &enr, nil
}

// Withdraw marks the student's enrollment withdrawn. The row stays; a
// later re-enrollment reactivates it. A seat opening up notifies the
// head of the waitlist.
func (s *EnrollmentService) Withdraw(studentID, courseID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var enr enrollments.Enrollment
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("student_id = ? AND course_id = ?", studentID, courseID).
			First(&enr).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotEnrolled
		}
		if err != nil {
			return err
		}
		switch enr.Status {
		case enrollments.StatusEnrolled, enrollments.StatusPending, enrollments.StatusPaused:
		default:
			return ErrNotEnrolled
		}
		enr.Status = enrollments.StatusWithdrawn
		if err := tx.Save(&enr).Error; err != nil {
			return err
		}
		return s.notifyNextOnWaitlist(tx, courseID)
	})
}

// JoinWaitlist queues a student for a full course.
func (s *EnrollmentService) JoinWaitlist(studentID uint, course *courses.Course) (*courses.WaitlistEntry, error) {
	if !course.WaitlistEnabled {
		return nil, errors.New("course has no waitlist")
	}
	entry := courses.WaitlistEntry{
		CourseID:  course.ID,
		StudentID: studentID,
	}
	err := s.db.Where(courses.WaitlistEntry{CourseID: course.ID, StudentID: studentID}).
		FirstOrCreate(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// WaitlistPosition reports the student's 1-based place in the queue.
func (s *EnrollmentService) WaitlistPosition(studentID, courseID uint) (int64, error) {
	var entry courses.WaitlistEntry
	err := s.db.Where("course_id = ? AND student_id = ?", courseID, studentID).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrNotOnWaitlist
	}
	if err != nil {
		return 0, err
	}
	var ahead int64
	err = s.db.Model(&courses.WaitlistEntry{}).
		Where("course_id = ? AND (priority < ? OR (priority = ? AND joined_at < ?))",
			courseID, entry.Priority, entry.Priority, entry.JoinedAt).
		Count(&ahead).Error
	if err != nil {
		return 0, err
	}
	return ahead + 1, nil
}

func (s *EnrollmentService) LeaveWaitlist(studentID, courseID uint) error {
	return s.db.
		Where("course_id = ? AND student_id = ?", courseID, studentID).
		Delete(&courses.WaitlistEntry{}).Error
}

// ApproveFromWaitlist converts a waitlist entry into an enrollment and
// discards the entry. Free courses enroll directly (or to pending when
// the course needs approval); paid courses get a pending enrollment
// that settlement upgrades once the student pays.
func (s *EnrollmentService) ApproveFromWaitlist(entryID uint) (*enrollments.Enrollment, error) {
	var enr *enrollments.Enrollment
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var entry courses.WaitlistEntry
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Preload("Course").
			First(&entry, entryID).Error
		if err != nil {
			return err
		}
		course := &entry.Course

		n, err := s.liveCount(tx, course.ID)
		if err != nil {
			return err
		}
		if course.IsFull(n) {
			return ErrCourseFull
		}

		now := time.Now()
		row := enrollments.Enrollment{
			StudentID:  entry.StudentID,
			CourseID:   course.ID,
			EnrolledOn: now,
		}
		if course.PricingMode == courses.PricingFree {
			row.Status = enrollments.StatusEnrolled
			row.PaymentStatus = enrollments.PaymentFree
			row.AccessType = enrollments.AccessFree
			if course.EnrollmentType == courses.EnrollmentApproval {
				row.Status = enrollments.StatusPending
				row.ApprovalRequestedAt = &now
			}
		} else {
			price := course.GetPrice()
			row.Status = enrollments.StatusPending
			row.PaymentStatus = enrollments.PaymentPending
			row.AccessType = enrollments.AccessPurchased
			row.PaymentAmount = &price
		}

		var existing enrollments.Enrollment
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("student_id = ? AND course_id = ?", entry.StudentID, course.ID).
			First(&existing).Error
		switch {
		case err == nil && (existing.GateOpen() || existing.PaymentStatus == enrollments.PaymentPaid):
			// The student already holds access, typically via a
			// checkout that raced the waitlist. Never downgrade it;
			// just drop the entry.
			enr = &existing
		case err == nil:
			existing.Status = row.Status
			existing.PaymentStatus = row.PaymentStatus
			existing.AccessType = row.AccessType
			existing.PaymentAmount = row.PaymentAmount
			existing.ApprovalRequestedAt = row.ApprovalRequestedAt
			existing.EnrolledOn = now
			if err := tx.Save(&existing).Error; err != nil {
				return err
			}
			enr = &existing
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
			enr = &row
		default:
			return err
		}

		return tx.Delete(&entry).Error
	})
	if err != nil {
		return nil, err
	}
	return enr, nil
}

// RemoveWaitlistEntry discards a waitlist entry without enrolling.
func (s *EnrollmentService) RemoveWaitlistEntry(entryID uint) error {
	return s.db.Delete(&courses.WaitlistEntry{}, entryID).Error
}

func (s *EnrollmentService) notifyNextOnWaitlist(tx *gorm.DB, courseID uint) error {
	var entry courses.WaitlistEntry
	err := tx.Where("course_id = ? AND notified_of_opening = ?", courseID, false).
		Order("priority ASC, joined_at ASC").
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	logger.Log.WithFields(map[string]interface{}{
		"course_id":  courseID,
		"student_id": entry.StudentID,
	}).Info("waitlist opening, notifying next student")
	return tx.Model(&entry).Update("notified_of_opening", true).Error
}

// MarkContentCompleted records completion of one content item and
// recomputes the enrollment's progress. Completing the last item
// completes the enrollment.
func (s *EnrollmentService) MarkContentCompleted(enrollmentID, contentID uint) (*enrollments.Enrollment, error) {
	var enr enrollments.Enrollment
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&enr, enrollmentID).Error; err != nil {
			return err
		}

		// Only contents of the enrollment's own course may count
		// toward its progress.
		var belongs int64
		err := tx.Model(&courses.Content{}).
			Joins("JOIN modules ON modules.id = contents.module_id").
			Where("contents.id = ? AND modules.course_id = ?", contentID, enr.CourseID).
			Count(&belongs).Error
		if err != nil {
			return err
		}
		if belongs == 0 {
			return ErrContentNotInCourse
		}

		now := time.Now()
		var cp enrollments.ContentProgress
		err = tx.Where("enrollment_id = ? AND content_id = ?", enrollmentID, contentID).
			First(&cp).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			cp = enrollments.ContentProgress{
				EnrollmentID: enrollmentID,
				ContentID:    contentID,
				IsCompleted:  true,
				ViewCount:    1,
				StartedAt:    now,
				CompletedAt:  &now,
			}
			if err := tx.Create(&cp).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			cp.ViewCount++
			if !cp.IsCompleted {
				cp.IsCompleted = true
				cp.CompletedAt = &now
			}
			if err := tx.Save(&cp).Error; err != nil {
				return err
			}
		}

		return s.RecomputeProgressTx(tx, &enr)
	})
	if err != nil {
		return nil, err
	}
	return &enr, nil
}

// RecomputeProgressTx recalculates the cached progress percentage from
// content completion counts. Progress hits 100 only when every content
// item is completed, and that flips the enrollment to completed.
func (s *EnrollmentService) RecomputeProgressTx(tx *gorm.DB, enr *enrollments.Enrollment) error {
	var total int64
	err := tx.Model(&courses.Content{}).
		Joins("JOIN modules ON modules.id = contents.module_id").
		Where("modules.course_id = ?", enr.CourseID).
		Count(&total).Error
	if err != nil {
		return err
	}

	var completed int64
	err = tx.Model(&enrollments.ContentProgress{}).
		Where("enrollment_id = ? AND is_completed = ?", enr.ID, true).
		Count(&completed).Error
	if err != nil {
		return err
	}

	enr.ProgressPercentage = enrollments.Progress(completed, total)
	now := time.Now()
	enr.LastAccessed = &now

	if total > 0 && completed == total && enr.Status == enrollments.StatusEnrolled {
		enr.Status = enrollments.StatusCompleted
		enr.CompletedOn = &now
	}
	return tx.Save(enr).Error
}
