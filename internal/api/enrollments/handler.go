package enrollments

import (
	"errors"
	"net/http"

	"gorm.io/gorm"

	"ta3lem-app/database"
	"ta3lem-app/internal/domain/courses"
	"ta3lem-app/internal/domain/enrollments"
	"ta3lem-app/internal/services"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	enrollments   *services.EnrollmentService
	subscriptions *services.SubscriptionService
}

func NewHandler(enr *services.EnrollmentService, subs *services.SubscriptionService) *Handler {
	return &Handler{enrollments: enr, subscriptions: subs}
}

func (h *Handler) loadCourse(c *gin.Context) (*courses.Course, bool) {
	var course courses.Course
	err := database.DB.Where("slug = ?", c.Param("slug")).First(&course).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Course not found"})
		return nil, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load course"})
		return nil, false
	}
	return &course, true
}

// GET /enrollments
func (h *Handler) ListMine(c *gin.Context) {
	var rows []enrollments.Enrollment
	err := database.DB.Preload("Course").
		Where("student_id = ?", c.GetUint("user_id")).
		Order("enrolled_on DESC").
		Find(&rows).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load enrollments"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"enrollments": rows})
}

// POST /courses/:slug/enroll handles free courses only; paid paths go
// through checkout.
func (h *Handler) EnrollFree(c *gin.Context) {
	course, ok := h.loadCourse(c)
	if !ok {
		return
	}

	enr, err := h.enrollments.EnrollFree(c.GetUint("user_id"), course)
	switch {
	case errors.Is(err, services.ErrCourseFull):
		c.JSON(http.StatusConflict, gin.H{"error": "Course is full", "waitlist_available": course.WaitlistEnabled})
	case errors.Is(err, services.ErrNotFreeCourse):
		c.JSON(http.StatusBadRequest, gin.H{"error": "This course requires payment"})
	case errors.Is(err, services.ErrCourseNotPublished):
		c.JSON(http.StatusNotFound, gin.H{"error": "Course not found"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to enroll"})
	default:
		c.JSON(http.StatusOK, gin.H{"enrollment": enr})
	}
}

// POST /courses/:slug/enroll-subscription grants access under the
// caller's active subscription.
func (h *Handler) EnrollWithSubscription(c *gin.Context) {
	course, ok := h.loadCourse(c)
	if !ok {
		return
	}

	userID := c.GetUint("user_id")
	sub, err := h.subscriptions.ActiveFor(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check subscription"})
		return
	}
	if sub == nil {
		c.JSON(http.StatusPaymentRequired, gin.H{"error": "An active subscription is required"})
		return
	}

	var enr *enrollments.Enrollment
	err = database.DB.Transaction(func(tx *gorm.DB) error {
		var txErr error
		enr, txErr = h.enrollments.EnrollWithSubscriptionTx(tx, userID, course, sub)
		return txErr
	})
	switch {
	case errors.Is(err, services.ErrCourseFull):
		c.JSON(http.StatusConflict, gin.H{"error": "Course is full", "waitlist_available": course.WaitlistEnabled})
	case errors.Is(err, services.ErrCourseNotPublished):
		c.JSON(http.StatusNotFound, gin.H{"error": "Course not found"})
	case err != nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, gin.H{"enrollment": enr})
	}
}

// POST /courses/:slug/withdraw
func (h *Handler) Withdraw(c *gin.Context) {
	course, ok := h.loadCourse(c)
	if !ok {
		return
	}
	err := h.enrollments.Withdraw(c.GetUint("user_id"), course.ID)
	if errors.Is(err, services.ErrNotEnrolled) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not enrolled in this course"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to withdraw"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Withdrawn from course"})
}

// POST /courses/:slug/waitlist
func (h *Handler) JoinWaitlist(c *gin.Context) {
	course, ok := h.loadCourse(c)
	if !ok {
		return
	}
	entry, err := h.enrollments.JoinWaitlist(c.GetUint("user_id"), course)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"waitlist_entry": entry})
}

// GET /courses/:slug/waitlist
func (h *Handler) WaitlistPosition(c *gin.Context) {
	course, ok := h.loadCourse(c)
	if !ok {
		return
	}
	pos, err := h.enrollments.WaitlistPosition(c.GetUint("user_id"), course.ID)
	if errors.Is(err, services.ErrNotOnWaitlist) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not on the waitlist"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load waitlist position"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"position": pos})
}

// DELETE /courses/:slug/waitlist
func (h *Handler) LeaveWaitlist(c *gin.Context) {
	course, ok := h.loadCourse(c)
	if !ok {
		return
	}
	if err := h.enrollments.LeaveWaitlist(c.GetUint("user_id"), course.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to leave waitlist"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Removed from waitlist"})
}

// POST /enrollments/:id/contents/:content_id/complete
func (h *Handler) CompleteContent(c *gin.Context) {
	enrollmentID, ok := uintParam(c, "id")
	if !ok {
		return
	}
	contentID, ok := uintParam(c, "content_id")
	if !ok {
		return
	}

	var enr enrollments.Enrollment
	if err := database.DB.First(&enr, enrollmentID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Enrollment not found"})
		return
	}
	if enr.StudentID != c.GetUint("user_id") {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not your enrollment"})
		return
	}
	if !enr.GateOpen() {
		c.JSON(http.StatusForbidden, gin.H{"error": "Enrollment does not grant access"})
		return
	}

	updated, err := h.enrollments.MarkContentCompleted(enr.ID, contentID)
	switch {
	case errors.Is(err, services.ErrContentNotInCourse):
		c.JSON(http.StatusNotFound, gin.H{"error": "Content not found in this course"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record progress"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"progress_percentage": updated.ProgressPercentage,
		"status":              updated.Status,
	})
}

// Instructor side: approval queue for own courses.

// GET /instructor/courses/:slug/pending
func (h *Handler) ListPending(c *gin.Context) {
	course, ok := h.loadOwnCourse(c)
	if !ok {
		return
	}
	var rows []enrollments.Enrollment
	err := database.DB.Preload("Student").
		Where("course_id = ? AND status = ?", course.ID, enrollments.StatusPending).
		Order("approval_requested_at ASC").
		Find(&rows).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load pending enrollments"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"pending": rows})
}

// POST /instructor/enrollments/:id/approve
func (h *Handler) Approve(c *gin.Context) {
	enr, ok := h.loadOwnEnrollment(c)
	if !ok {
		return
	}
	approved, err := h.enrollments.Approve(enr.ID, c.GetUint("user_id"))
	switch {
	case errors.Is(err, services.ErrEnrollmentNotPending):
		c.JSON(http.StatusConflict, gin.H{"error": "Enrollment is not pending"})
	case errors.Is(err, services.ErrCourseFull):
		c.JSON(http.StatusConflict, gin.H{"error": "Course filled up in the meantime"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to approve"})
	default:
		c.JSON(http.StatusOK, gin.H{"enrollment": approved})
	}
}

// POST /instructor/enrollments/:id/reject
func (h *Handler) Reject(c *gin.Context) {
	enr, ok := h.loadOwnEnrollment(c)
	if !ok {
		return
	}
	var body struct {
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	rejected, err := h.enrollments.Reject(enr.ID, c.GetUint("user_id"), body.Reason)
	if errors.Is(err, services.ErrEnrollmentNotPending) {
		c.JSON(http.StatusConflict, gin.H{"error": "Enrollment is not pending"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reject"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"enrollment": rejected})
}

// GET /instructor/courses/:slug/waitlist
func (h *Handler) ListWaitlist(c *gin.Context) {
	course, ok := h.loadOwnCourse(c)
	if !ok {
		return
	}
	var rows []courses.WaitlistEntry
	err := database.DB.Preload("Student").
		Where("course_id = ?", course.ID).
		Order("priority ASC, joined_at ASC").
		Find(&rows).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load waitlist"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"waitlist": rows})
}

// POST /instructor/courses/:slug/waitlist/:id/approve
func (h *Handler) ApproveFromWaitlist(c *gin.Context) {
	entry, ok := h.loadOwnWaitlistEntry(c)
	if !ok {
		return
	}
	enr, err := h.enrollments.ApproveFromWaitlist(entry.ID)
	switch {
	case errors.Is(err, services.ErrCourseFull):
		c.JSON(http.StatusConflict, gin.H{"error": "Course is still full"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to approve waitlist entry"})
	default:
		c.JSON(http.StatusOK, gin.H{"enrollment": enr})
	}
}

// DELETE /instructor/courses/:slug/waitlist/:id
func (h *Handler) RemoveWaitlistEntry(c *gin.Context) {
	entry, ok := h.loadOwnWaitlistEntry(c)
	if !ok {
		return
	}
	if err := h.enrollments.RemoveWaitlistEntry(entry.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove waitlist entry"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Waitlist entry removed"})
}

func (h *Handler) loadOwnWaitlistEntry(c *gin.Context) (*courses.WaitlistEntry, bool) {
	course, ok := h.loadOwnCourse(c)
	if !ok {
		return nil, false
	}
	id, ok := uintParam(c, "id")
	if !ok {
		return nil, false
	}
	var entry courses.WaitlistEntry
	err := database.DB.Where("id = ? AND course_id = ?", id, course.ID).First(&entry).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Waitlist entry not found"})
		return nil, false
	}
	return &entry, true
}

func (h *Handler) loadOwnCourse(c *gin.Context) (*courses.Course, bool) {
	course, ok := h.loadCourse(c)
	if !ok {
		return nil, false
	}
	if course.OwnerID != c.GetUint("user_id") && c.GetString("role") != "admin" {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not your course"})
		return nil, false
	}
	return course, true
}

func (h *Handler) loadOwnEnrollment(c *gin.Context) (*enrollments.Enrollment, bool) {
	id, ok := uintParam(c, "id")
	if !ok {
		return nil, false
	}
	var enr enrollments.Enrollment
	if err := database.DB.Preload("Course").First(&enr, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Enrollment not found"})
		return nil, false
	}
	if enr.Course.OwnerID != c.GetUint("user_id") && c.GetString("role") != "admin" {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not your course"})
		return nil, false
	}
	return &enr, true
}
