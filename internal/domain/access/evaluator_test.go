package access

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"ta3lem-app/internal/domain/courses"
	"ta3lem-app/internal/domain/enrollments"
	"ta3lem-app/internal/domain/subscriptions"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func paidCourse() *courses.Course {
	price := 250000.0
	return &courses.Course{
		PricingMode: courses.PricingOneTime,
		Price:       &price,
		Status:      courses.StatusPublished,
	}
}

func freeCourse() *courses.Course {
	return &courses.Course{
		PricingMode: courses.PricingFree,
		Status:      courses.StatusPublished,
	}
}

func activeSub() *subscriptions.UserSubscription {
	return &subscriptions.UserSubscription{
		Status:           subscriptions.StatusActive,
		CurrentPeriodEnd: now.AddDate(0, 0, 10),
	}
}

func expiredSub() *subscriptions.UserSubscription {
	return &subscriptions.UserSubscription{
		Status:           subscriptions.StatusExpired,
		CurrentPeriodEnd: now.AddDate(0, 0, -3),
	}
}

func TestEvaluateFreeCourse(t *testing.T) {
	tests := []struct {
		name       string
		enrollment *enrollments.Enrollment
		allowed    bool
		reason     Reason
	}{
		{"no enrollment", nil, false, ReasonNotEnrolled},
		{"enrolled", &enrollments.Enrollment{Status: enrollments.StatusEnrolled}, true, ReasonFree},
		{"completed", &enrollments.Enrollment{Status: enrollments.StatusCompleted}, true, ReasonFree},
		{"paused", &enrollments.Enrollment{Status: enrollments.StatusPaused}, true, ReasonFree},
		{"pending approval", &enrollments.Enrollment{Status: enrollments.StatusPending}, false, ReasonNotEnrolled},
		{"withdrawn", &enrollments.Enrollment{Status: enrollments.StatusWithdrawn}, false, ReasonNotEnrolled},
		{"rejected", &enrollments.Enrollment{Status: enrollments.StatusRejected}, false, ReasonNotEnrolled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			allowed, reason := Evaluate(Input{Now: now, Course: freeCourse(), Enrollment: tt.enrollment})
			assert.Equal(t, tt.allowed, allowed)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestEvaluateFreeCourseIgnoresPaymentStatus(t *testing.T) {
	// Free pricing opens the gate even for an enrollment row whose
	// payment fields are in a weird historical state.
	enr := &enrollments.Enrollment{
		Status:        enrollments.StatusEnrolled,
		PaymentStatus: enrollments.PaymentPending,
		AccessType:    enrollments.AccessPurchased,
	}
	allowed, reason := Evaluate(Input{Now: now, Course: freeCourse(), Enrollment: enr})
	assert.True(t, allowed)
	assert.Equal(t, ReasonFree, reason)
}

func TestEvaluatePaidCourseNoEnrollment(t *testing.T) {
	allowed, reason := Evaluate(Input{Now: now, Course: paidCourse()})
	assert.False(t, allowed)
	assert.Equal(t, ReasonNotEnrolled, reason)
}

func TestEvaluatePaymentPending(t *testing.T) {
	for _, ps := range []enrollments.PaymentStatus{
		enrollments.PaymentPending,
		enrollments.PaymentFailed,
		enrollments.PaymentRefunded,
	} {
		enr := &enrollments.Enrollment{
			Status:        enrollments.StatusEnrolled,
			PaymentStatus: ps,
			AccessType:    enrollments.AccessPurchased,
		}
		allowed, reason := Evaluate(Input{Now: now, Course: paidCourse(), Enrollment: enr})
		assert.False(t, allowed, "payment status %s", ps)
		assert.Equal(t, ReasonPaymentPending, reason)
	}
}

func TestEvaluatePurchasedIsLifetime(t *testing.T) {
	enr := &enrollments.Enrollment{
		Status:        enrollments.StatusEnrolled,
		PaymentStatus: enrollments.PaymentPaid,
		AccessType:    enrollments.AccessPurchased,
	}
	allowed, reason := Evaluate(Input{Now: now, Course: paidCourse(), Enrollment: enr})
	assert.True(t, allowed)
	assert.Equal(t, ReasonPurchased, reason)

	// Still allowed with an expired subscription lying around.
	allowed, reason = Evaluate(Input{
		Now: now, Course: paidCourse(), Enrollment: enr,
		LinkedSubscription: expiredSub(),
	})
	assert.True(t, allowed)
	assert.Equal(t, ReasonPurchased, reason)
}

func TestEvaluateSubscriptionAccess(t *testing.T) {
	enr := &enrollments.Enrollment{
		Status:        enrollments.StatusEnrolled,
		PaymentStatus: enrollments.PaymentPaid,
		AccessType:    enrollments.AccessSubscription,
	}

	t.Run("linked active subscription", func(t *testing.T) {
		allowed, reason := Evaluate(Input{
			Now: now, Course: paidCourse(), Enrollment: enr,
			LinkedSubscription: activeSub(),
		})
		assert.True(t, allowed)
		assert.Equal(t, ReasonSubscriptionActive, reason)
	})

	t.Run("linked expired, other active grant covers", func(t *testing.T) {
		allowed, reason := Evaluate(Input{
			Now: now, Course: paidCourse(), Enrollment: enr,
			LinkedSubscription:         expiredSub(),
			HasOtherActiveSubscription: true,
		})
		assert.True(t, allowed)
		assert.Equal(t, ReasonSubscriptionActive, reason)
	})

	t.Run("expired everywhere", func(t *testing.T) {
		allowed, reason := Evaluate(Input{
			Now: now, Course: paidCourse(), Enrollment: enr,
			LinkedSubscription: expiredSub(),
		})
		assert.False(t, allowed)
		assert.Equal(t, ReasonSubscriptionExpired, reason)
	})

	t.Run("no linked subscription at all", func(t *testing.T) {
		allowed, reason := Evaluate(Input{Now: now, Course: paidCourse(), Enrollment: enr})
		assert.False(t, allowed)
		assert.Equal(t, ReasonSubscriptionExpired, reason)
	})

	t.Run("trial counts as active", func(t *testing.T) {
		sub := activeSub()
		sub.Status = subscriptions.StatusTrial
		allowed, reason := Evaluate(Input{
			Now: now, Course: paidCourse(), Enrollment: enr,
			LinkedSubscription: sub,
		})
		assert.True(t, allowed)
		assert.Equal(t, ReasonSubscriptionActive, reason)
	})
}

func TestEvaluateFreeAccessTypeOnPaidCourse(t *testing.T) {
	// Instructor-granted complimentary access.
	enr := &enrollments.Enrollment{
		Status:        enrollments.StatusEnrolled,
		PaymentStatus: enrollments.PaymentFree,
		AccessType:    enrollments.AccessFree,
	}
	allowed, reason := Evaluate(Input{Now: now, Course: paidCourse(), Enrollment: enr})
	assert.True(t, allowed)
	assert.Equal(t, ReasonFree, reason)
}

func TestEvaluateUnknownAccessType(t *testing.T) {
	enr := &enrollments.Enrollment{
		Status:        enrollments.StatusEnrolled,
		PaymentStatus: enrollments.PaymentPaid,
		AccessType:    enrollments.AccessType("legacy"),
	}
	allowed, reason := Evaluate(Input{Now: now, Course: paidCourse(), Enrollment: enr})
	assert.False(t, allowed)
	assert.Equal(t, ReasonUnknown, reason)
}
