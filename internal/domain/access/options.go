package access

import (
	"ta3lem-app/internal/domain/courses"
)

// EnrollmentOptions tells the checkout page which paths into a course
// are currently open for a given user.
type EnrollmentOptions struct {
	CanEnrollFree      bool     `json:"can_enroll_free"`
	CanPurchase        bool     `json:"can_purchase"`
	CanUseSubscription bool     `json:"can_use_subscription"`
	NeedsSubscription  bool     `json:"needs_subscription"`
	Price              *float64 `json:"price,omitempty"`
	Currency           string   `json:"currency,omitempty"`
	AlreadyHasAccess   bool     `json:"already_has_access"`
	RequiresApproval   bool     `json:"requires_approval"`
	CourseFull         bool     `json:"course_full"`
	WaitlistAvailable  bool     `json:"waitlist_available"`
}

// OptionsInput mirrors Input but adds the aggregate state the options
// derivation needs beyond the yes/no access decision.
type OptionsInput struct {
	Access                Input
	HasActiveSubscription bool
	EnrolledCount         int64
	SubscriptionsEnabled  bool
	OneTimeEnabled        bool
	FreeCoursesEnabled    bool
}

// Options derives the enrollment choices for a course. It never hits
// storage; callers load the counts and flags first.
func Options(in OptionsInput) EnrollmentOptions {
	c := in.Access.Course
	allowed, _ := Evaluate(in.Access)

	opts := EnrollmentOptions{
		AlreadyHasAccess: allowed,
		RequiresApproval: c.EnrollmentType == courses.EnrollmentApproval,
	}
	if allowed {
		return opts
	}

	full := c.IsFull(in.EnrolledCount)
	opts.CourseFull = full
	opts.WaitlistAvailable = full && c.WaitlistEnabled

	if full {
		return opts
	}

	switch c.PricingMode {
	case courses.PricingFree:
		opts.CanEnrollFree = in.FreeCoursesEnabled
	case courses.PricingOneTime:
		opts.CanPurchase = in.OneTimeEnabled
		opts.Price = c.Price
		opts.Currency = c.Currency
	case courses.PricingSubscriptionOnly:
		if in.SubscriptionsEnabled {
			opts.CanUseSubscription = in.HasActiveSubscription
			opts.NeedsSubscription = !in.HasActiveSubscription
		}
	case courses.PricingBoth:
		opts.CanPurchase = in.OneTimeEnabled
		opts.Price = c.Price
		opts.Currency = c.Currency
		if in.SubscriptionsEnabled {
			opts.CanUseSubscription = in.HasActiveSubscription
			opts.NeedsSubscription = !in.HasActiveSubscription
		}
	}
	return opts
}
