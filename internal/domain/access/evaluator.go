package access

import (
	"time"

	"ta3lem-app/internal/domain/courses"
	"ta3lem-app/internal/domain/enrollments"
	"ta3lem-app/internal/domain/subscriptions"
)

// Input carries everything the evaluator needs, already loaded. The
// evaluator itself performs no I/O and may be called any number of
// times per request.
type Input struct {
	Now    time.Time
	Course *courses.Course

	// Enrollment is the (student, course) row, nil when none exists.
	Enrollment *enrollments.Enrollment

	// LinkedSubscription is the subscription the enrollment points at,
	// nil when unset.
	LinkedSubscription *subscriptions.UserSubscription

	// HasOtherActiveSubscription covers renewal creating a fresh
	// subscription row: the old enrollment link is stale but the user
	// still holds an active grant.
	HasOtherActiveSubscription bool
}

// Evaluate decides whether the user may view the course right now.
// Decision order, first match wins:
//
//  1. free pricing: any live enrollment opens the gate, regardless of
//     payment status
//  2. no enrollment, or enrollment not live
//  3. unsettled payment
//  4. purchased access is lifetime
//  5. subscription access needs a currently-active subscription
//  6. free access type
func Evaluate(in Input) (bool, Reason) {
	e := in.Enrollment

	if in.Course.PricingMode == courses.PricingFree {
		if e != nil && liveStatus(e.Status) {
			return true, ReasonFree
		}
		return false, ReasonNotEnrolled
	}

	if e == nil || !liveStatus(e.Status) {
		return false, ReasonNotEnrolled
	}

	if e.PaymentStatus != enrollments.PaymentPaid && e.PaymentStatus != enrollments.PaymentFree {
		return false, ReasonPaymentPending
	}

	switch e.AccessType {
	case enrollments.AccessPurchased:
		return true, ReasonPurchased

	case enrollments.AccessSubscription:
		if in.LinkedSubscription != nil && in.LinkedSubscription.IsActive(in.Now) {
			return true, ReasonSubscriptionActive
		}
		if in.HasOtherActiveSubscription {
			return true, ReasonSubscriptionActive
		}
		return false, ReasonSubscriptionExpired

	case enrollments.AccessFree:
		return true, ReasonFree
	}

	return false, ReasonUnknown
}

func liveStatus(s enrollments.Status) bool {
	switch s {
	case enrollments.StatusEnrolled, enrollments.StatusCompleted, enrollments.StatusPaused:
		return true
	}
	return false
}
