package access

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ta3lem-app/internal/domain/courses"
	"ta3lem-app/internal/domain/enrollments"
)

func allEnabled(in Input) OptionsInput {
	return OptionsInput{
		Access:               in,
		SubscriptionsEnabled: true,
		OneTimeEnabled:       true,
		FreeCoursesEnabled:   true,
	}
}

func TestOptionsAlreadyHasAccess(t *testing.T) {
	enr := &enrollments.Enrollment{
		Status:        enrollments.StatusEnrolled,
		PaymentStatus: enrollments.PaymentPaid,
		AccessType:    enrollments.AccessPurchased,
	}
	opts := Options(allEnabled(Input{Now: now, Course: paidCourse(), Enrollment: enr}))
	assert.True(t, opts.AlreadyHasAccess)
	assert.False(t, opts.CanPurchase)
	assert.False(t, opts.CanEnrollFree)
}

func TestOptionsPaidCourse(t *testing.T) {
	opts := Options(allEnabled(Input{Now: now, Course: paidCourse()}))
	assert.False(t, opts.AlreadyHasAccess)
	assert.True(t, opts.CanPurchase)
	assert.NotNil(t, opts.Price)
	assert.Equal(t, 250000.0, *opts.Price)
	assert.False(t, opts.CanUseSubscription)
}

func TestOptionsBothModeWithSubscription(t *testing.T) {
	course := paidCourse()
	course.PricingMode = courses.PricingBoth

	in := allEnabled(Input{Now: now, Course: course})
	in.HasActiveSubscription = true
	opts := Options(in)
	assert.True(t, opts.CanPurchase)
	assert.True(t, opts.CanUseSubscription)
	assert.False(t, opts.NeedsSubscription)

	in.HasActiveSubscription = false
	opts = Options(in)
	assert.True(t, opts.CanPurchase)
	assert.False(t, opts.CanUseSubscription)
	assert.True(t, opts.NeedsSubscription)
}

func TestOptionsSubscriptionOnlyDisabledGlobally(t *testing.T) {
	course := &courses.Course{PricingMode: courses.PricingSubscriptionOnly, Status: courses.StatusPublished}
	in := allEnabled(Input{Now: now, Course: course})
	in.SubscriptionsEnabled = false
	in.HasActiveSubscription = true

	opts := Options(in)
	assert.False(t, opts.CanUseSubscription)
	assert.False(t, opts.NeedsSubscription)
}

func TestOptionsFullCourse(t *testing.T) {
	capacity := 2
	course := freeCourse()
	course.MaxCapacity = &capacity
	course.WaitlistEnabled = true

	in := allEnabled(Input{Now: now, Course: course})
	in.EnrolledCount = 2
	opts := Options(in)
	assert.True(t, opts.CourseFull)
	assert.True(t, opts.WaitlistAvailable)
	assert.False(t, opts.CanEnrollFree)

	course.WaitlistEnabled = false
	opts = Options(in)
	assert.True(t, opts.CourseFull)
	assert.False(t, opts.WaitlistAvailable)
}

func TestOptionsApprovalFlag(t *testing.T) {
	course := freeCourse()
	course.EnrollmentType = courses.EnrollmentApproval
	opts := Options(allEnabled(Input{Now: now, Course: course}))
	assert.True(t, opts.RequiresApproval)
	assert.True(t, opts.CanEnrollFree)
}
