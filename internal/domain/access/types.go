package access

// Reason is the machine-readable code attached to every access
// decision so the caller can route the user to the right remediation.
type Reason string

const (
	ReasonFree                Reason = "free"
	ReasonPurchased           Reason = "purchased"
	ReasonSubscriptionActive  Reason = "subscription_active"
	ReasonNotEnrolled         Reason = "not_enrolled"
	ReasonPaymentPending      Reason = "payment_pending"
	ReasonSubscriptionExpired Reason = "subscription_expired"
	ReasonUnknown             Reason = "unknown"
)
