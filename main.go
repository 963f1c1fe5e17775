package main

import (
	"os"
	"time"

	"ta3lem-app/config"
	"ta3lem-app/database"
	adminapi "ta3lem-app/internal/api/admin"
	authapi "ta3lem-app/internal/api/auth"
	checkoutapi "ta3lem-app/internal/api/checkout"
	coursesapi "ta3lem-app/internal/api/courses"
	earningsapi "ta3lem-app/internal/api/earnings"
	enrollmentsapi "ta3lem-app/internal/api/enrollments"
	subscriptionsapi "ta3lem-app/internal/api/subscriptions"
	usersapi "ta3lem-app/internal/api/users"
	webhooksapi "ta3lem-app/internal/api/webhooks"
	routes "ta3lem-app/internal/app/http"
	"ta3lem-app/internal/domain/courses"
	"ta3lem-app/internal/domain/orders"
	"ta3lem-app/internal/domain/users"
	"ta3lem-app/internal/events"
	"ta3lem-app/internal/infra/providers"
	"ta3lem-app/internal/platform/settings"
	"ta3lem-app/internal/services"
	cronjobs "ta3lem-app/internal/services/cron"
	"ta3lem-app/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func main() {
	// gin.SetMode(gin.ReleaseMode) uncomment only in production
	config.LoadEnv()
	database.InitDB()
	db := database.DB

	store, err := settings.NewStore(db)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to load platform settings")
	}

	// Payment gateway strategies, registered explicitly.
	registry := providers.NewRegistry()
	registry.Register(orders.ProviderStripe, providers.NewStripeProvider)
	registry.Register(orders.ProviderMidtrans, providers.NewMidtransProvider)
	registry.Register(orders.ProviderManualTransfer, providers.NewManualProvider)

	bus := events.NewBus()

	enrollmentSvc := services.NewEnrollmentService(db)
	subscriptionSvc := services.NewSubscriptionService(db, enrollmentSvc)
	accessSvc := services.NewAccessService(db, store)
	paymentSvc := services.NewPaymentService(db, registry, bus, store)
	earningsSvc := services.NewEarningsService(db, store)

	registerSettlementListeners(bus, enrollmentSvc, subscriptionSvc, earningsSvc)

	cronManager := cronjobs.NewManager(db, subscriptionSvc, paymentSvc)
	if err := cronManager.Start(); err != nil {
		logger.Log.WithError(err).Fatal("failed to start cron jobs")
	}
	defer cronManager.Stop()

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{os.Getenv("CORS_ORIGIN")},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, routes.Handlers{
		Users:         usersapi.NewHandler(subscriptionSvc),
		Courses:       coursesapi.NewHandler(accessSvc),
		Enrollments:   enrollmentsapi.NewHandler(enrollmentSvc, subscriptionSvc),
		Checkout:      checkoutapi.NewHandler(paymentSvc),
		Webhooks:      webhooksapi.NewHandler(paymentSvc),
		Subscriptions: subscriptionsapi.NewHandler(subscriptionSvc),
		Earnings:      earningsapi.NewHandler(earningsSvc),
		Admin:         adminapi.NewHandler(paymentSvc, earningsSvc, store),
	})

	r.Run(":" + config.PORT)
}

// registerSettlementListeners wires what happens when an order settles.
// Listeners run inside the settlement transaction, in this order.
func registerSettlementListeners(
	bus *events.Bus,
	enrollmentSvc *services.EnrollmentService,
	subscriptionSvc *services.SubscriptionService,
	earningsSvc *services.EarningsService,
) {
	// Grant what was bought.
	bus.OnPaymentCompleted(func(tx *gorm.DB, order *orders.Order) error {
		switch order.ItemType {
		case orders.ItemCourse:
			var course courses.Course
			if err := tx.First(&course, order.ItemID).Error; err != nil {
				return err
			}
			_, err := enrollmentSvc.EnrollWithPurchaseTx(tx, order, &course)
			return err
		case orders.ItemSubscriptionPlan:
			_, err := subscriptionSvc.ActivateFromOrderTx(tx, order)
			return err
		}
		return nil
	})

	// Record the instructor's share.
	bus.OnPaymentCompleted(func(tx *gorm.DB, order *orders.Order) error {
		return earningsSvc.CreateEarningFromOrderTx(tx, order)
	})

	// Receipt email. Mail trouble never rolls back a settlement.
	bus.OnPaymentCompleted(func(tx *gorm.DB, order *orders.Order) error {
		var user users.User
		if err := tx.First(&user, order.UserID).Error; err != nil {
			return err
		}
		if err := authapi.SendPaymentReceiptEmail(user.Email, order.OrderNumber, order.TotalAmount, order.Currency); err != nil {
			logger.Log.WithError(err).WithField("order_number", order.OrderNumber).
				Warn("receipt email failed")
		}
		return nil
	})

	// Failure is only logged; the order row already carries the reason.
	bus.OnPaymentFailed(func(tx *gorm.DB, order *orders.Order, reason string) error {
		logger.Log.WithFields(map[string]interface{}{
			"order_number": order.OrderNumber,
			"reason":       reason,
		}).Info("payment failed")
		return nil
	})
}
