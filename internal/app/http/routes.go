package routes

import (
	adminapi "ta3lem-app/internal/api/admin"
	authapi "ta3lem-app/internal/api/auth"
	checkoutapi "ta3lem-app/internal/api/checkout"
	coursesapi "ta3lem-app/internal/api/courses"
	earningsapi "ta3lem-app/internal/api/earnings"
	enrollmentsapi "ta3lem-app/internal/api/enrollments"
	subscriptionsapi "ta3lem-app/internal/api/subscriptions"
	usersapi "ta3lem-app/internal/api/users"
	webhooksapi "ta3lem-app/internal/api/webhooks"
	"ta3lem-app/internal/app/http/middleware"
	"ta3lem-app/internal/domain/users"

	"github.com/gin-gonic/gin"
)

// Handlers bundles the constructed API handlers for registration.
type Handlers struct {
	Users         *usersapi.Handler
	Courses       *coursesapi.Handler
	Enrollments   *enrollmentsapi.Handler
	Checkout      *checkoutapi.Handler
	Webhooks      *webhooksapi.Handler
	Subscriptions *subscriptionsapi.Handler
	Earnings      *earningsapi.Handler
	Admin         *adminapi.Handler
}

func RegisterRoutes(r *gin.Engine, h Handlers) {
	// Gateway callbacks skip sanitization: their bodies are signed.
	r.POST("/webhooks/:provider", h.Webhooks.Receive)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	public := r.Group("/")
	public.Use(middleware.SanitizeAndCleanInputMiddleware())

	public.POST("/register", authapi.Register)
	public.POST("/login", authapi.Login)
	public.GET("/verify", authapi.VerifyEmail)
	public.POST("/resend-verification", authapi.ResendVerification)
	public.POST("/request-password-reset", authapi.RequestPasswordReset)
	public.POST("/reset-password", authapi.ResetPassword)

	public.GET("/auth/google", authapi.GoogleStart)
	public.GET("/auth/google/callback", authapi.GoogleCallback)

	public.GET("/courses", h.Courses.ListCourses)
	public.GET("/plans", h.Subscriptions.ListPlans)

	// Authenticated
	auth := r.Group("/")
	auth.Use(middleware.AuthMiddleware())
	auth.GET("/me", h.Users.GetCurrentUser)
	auth.POST("/change-password", authapi.ChangePassword)

	auth.GET("/courses/:slug", h.Courses.GetCourse)
	auth.GET("/courses/:slug/options", h.Courses.GetEnrollmentOptions)
	auth.POST("/courses/:slug/enroll", h.Enrollments.EnrollFree)
	auth.POST("/courses/:slug/enroll-subscription", middleware.RequireActiveSubscription(), h.Enrollments.EnrollWithSubscription)
	auth.POST("/courses/:slug/withdraw", h.Enrollments.Withdraw)
	auth.POST("/courses/:slug/waitlist", h.Enrollments.JoinWaitlist)
	auth.GET("/courses/:slug/waitlist", h.Enrollments.WaitlistPosition)
	auth.DELETE("/courses/:slug/waitlist", h.Enrollments.LeaveWaitlist)

	auth.GET("/enrollments", h.Enrollments.ListMine)
	auth.POST("/enrollments/:id/contents/:content_id/complete", h.Enrollments.CompleteContent)

	auth.GET("/checkout/providers", h.Checkout.ListProviders)
	auth.POST("/checkout/orders", h.Checkout.CreateOrder)
	auth.GET("/checkout/orders", h.Checkout.ListOrders)
	auth.GET("/checkout/orders/:number", h.Checkout.GetOrder)
	auth.POST("/checkout/orders/:number/verify", h.Checkout.VerifyReturn)
	auth.POST("/checkout/orders/:number/proof", h.Checkout.SubmitTransferProof)
	auth.POST("/checkout/orders/:number/cancel", h.Checkout.CancelOrder)

	auth.GET("/subscriptions", h.Subscriptions.ListMine)
	auth.POST("/plans/:slug/trial", h.Subscriptions.StartTrial)
	auth.POST("/subscriptions/:id/cancel", h.Subscriptions.Cancel)

	// Instructor routes
	instructor := r.Group("/instructor")
	instructor.Use(middleware.AuthMiddleware(), middleware.RequireRole(users.RoleInstructor, users.RoleAdmin))
	instructor.POST("/courses", h.Courses.CreateCourse)
	instructor.PUT("/courses/:slug", h.Courses.UpdateCourse)
	instructor.POST("/courses/:slug/publish", h.Courses.PublishCourse)
	instructor.POST("/courses/:slug/archive", h.Courses.ArchiveCourse)
	instructor.POST("/courses/:slug/modules", h.Courses.CreateModule)
	instructor.POST("/courses/:slug/contents", h.Courses.CreateContent)

	instructor.GET("/courses/:slug/pending", h.Enrollments.ListPending)
	instructor.POST("/enrollments/:id/approve", h.Enrollments.Approve)
	instructor.POST("/enrollments/:id/reject", h.Enrollments.Reject)

	instructor.GET("/courses/:slug/waitlist", h.Enrollments.ListWaitlist)
	instructor.POST("/courses/:slug/waitlist/:id/approve", h.Enrollments.ApproveFromWaitlist)
	instructor.DELETE("/courses/:slug/waitlist/:id", h.Enrollments.RemoveWaitlistEntry)

	instructor.GET("/balance", h.Earnings.GetBalance)
	instructor.GET("/earnings", h.Earnings.ListEarnings)
	instructor.GET("/payouts", h.Earnings.ListPayouts)
	instructor.POST("/payouts", h.Earnings.RequestPayout)

	// Admin routes
	admin := r.Group("/admin")
	admin.Use(middleware.AuthMiddleware(), middleware.RequireRole(users.RoleAdmin))
	admin.GET("/users", h.Admin.ListAllUsers)
	admin.GET("/orders", h.Admin.ListOrders)
	admin.GET("/orders/pending-verification", h.Admin.ListPendingVerification)
	admin.POST("/orders/:number/verify", h.Admin.VerifyManualPayment)
	admin.POST("/orders/:number/reject", h.Admin.RejectManualPayment)
	admin.POST("/orders/:number/refund", h.Admin.RefundOrder)
	admin.GET("/revenue", h.Admin.GetRevenueSummary)
	admin.POST("/payouts/:id/approve", h.Admin.ApprovePayout)
	admin.POST("/payouts/:id/complete", h.Admin.CompletePayout)
	admin.POST("/payouts/:id/reject", h.Admin.RejectPayout)
	admin.GET("/settings", h.Admin.GetSettings)
	admin.PUT("/settings", h.Admin.UpdateSettings)
}
