package database

import (
	"log"
	"os"

	"ta3lem-app/internal/domain/courses"
	"ta3lem-app/internal/domain/earnings"
	"ta3lem-app/internal/domain/enrollments"
	"ta3lem-app/internal/domain/orders"
	"ta3lem-app/internal/domain/subscriptions"
	"ta3lem-app/internal/domain/users"
	"ta3lem-app/internal/platform/jobs"
	"ta3lem-app/internal/platform/settings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func InitDB() {
	dsn := os.Getenv("DB_URL")
	if dsn == "" {
		log.Fatal("❌ DB_URL not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("❌ Failed to connect to database:", err)
	}

	DB = db

	if err := DB.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto;`).Error; err != nil {
		log.Fatal("❌ Failed to enable pgcrypto extension:", err)
	}

	if err := DB.AutoMigrate(
		// core
		&users.User{},
		&users.VerificationToken{},

		// catalog
		&courses.Course{},
		&courses.Module{},
		&courses.Content{},
		&courses.WaitlistEntry{},

		// enrollment
		&enrollments.Enrollment{},
		&enrollments.ContentProgress{},

		// subscriptions
		&subscriptions.SubscriptionPlan{},
		&subscriptions.UserSubscription{},

		// settlement
		&orders.PaymentProvider{},
		&orders.BankAccount{},
		&orders.Order{},
		&earnings.InstructorEarning{},
		&earnings.Payout{},

		// platform
		&settings.PlatformSettings{},
		&jobs.JobLog{},
	); err != nil {
		log.Fatal("❌ AutoMigrate error:", err)
	}

	log.Println("✅ Connected and migrated successfully")
}
