package services

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"ta3lem-app/internal/domain/orders"
	"ta3lem-app/internal/events"
	"ta3lem-app/internal/infra/providers"
	"ta3lem-app/internal/platform/settings"
	"ta3lem-app/testutils"
)

func loadTestSettings(t *testing.T, db *gorm.DB, mock sqlmock.Sqlmock, subscriptionsOn bool) *settings.Store {
	t.Helper()
	mock.ExpectQuery(`SELECT \* FROM "platform_settings"`).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "commission_rate", "minimum_payout", "default_currency",
			"enable_subscriptions", "enable_one_time_purchase", "enable_free_courses",
			"order_expiry_hours",
		}).AddRow(1, 20.0, 500000.0, "IDR", subscriptionsOn, true, true, 24))
	store, err := settings.NewStore(db)
	require.NoError(t, err)
	return store
}

func TestAvailableProvidersFiltersUnregisteredAndOutOfRange(t *testing.T) {
	db, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	registry := providers.NewRegistry()
	registry.Register(orders.ProviderManualTransfer, providers.NewManualProvider)

	rows := sqlmock.NewRows([]string{
		"id", "name", "provider_type", "display_name", "is_active",
		"display_order", "supported_currencies", "min_amount",
	}).
		AddRow(1, "manual", orders.ProviderManualTransfer, "Bank Transfer", true, 0, []byte(`["IDR"]`), 0).
		AddRow(2, "stripe", orders.ProviderStripe, "Card", true, 1, []byte(`["IDR","USD"]`), 0).
		AddRow(3, "manual-vip", orders.ProviderManualTransfer, "VIP Transfer", true, 2, []byte(`["IDR"]`), 1000000)

	mock.ExpectQuery(`SELECT \* FROM "payment_providers" WHERE is_active`).
		WillReturnRows(rows)

	svc := NewPaymentService(db, registry, nil, nil)
	got, err := svc.AvailableProviders(150000, "IDR")
	require.NoError(t, err)

	// Stripe is configured but not registered, and the VIP account's
	// minimum is above the amount; only plain manual transfer remains.
	require.Len(t, got, 1)
	assert.Equal(t, "Bank Transfer", got[0].DisplayName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrderRejectsSecondActiveSubscription(t *testing.T) {
	db, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	store := loadTestSettings(t, db, mock, true)
	registry := providers.NewRegistry()
	registry.Register(orders.ProviderManualTransfer, providers.NewManualProvider)

	mock.ExpectQuery(`SELECT \* FROM "subscription_plans" WHERE "subscription_plans"\."id"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "price", "currency", "is_active"}).
			AddRow(7, "Pro", 99000.0, "IDR", true))
	mock.ExpectQuery(`SELECT \* FROM "payment_providers" WHERE provider_type`).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "provider_type", "is_active", "supports_subscription",
			"supported_currencies", "min_amount",
		}).AddRow(1, orders.ProviderManualTransfer, true, true, []byte(`["IDR"]`), 0))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "user_subscriptions" WHERE user_id`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	svc := NewPaymentService(db, registry, nil, store)
	_, err := svc.CreateOrder(CreateOrderInput{
		UserID:       2,
		ItemType:     orders.ItemSubscriptionPlan,
		ItemID:       7,
		ProviderType: orders.ProviderManualTransfer,
	})
	require.ErrorIs(t, err, ErrAlreadySubscribed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrderBlockedWhenSubscriptionsDisabled(t *testing.T) {
	db, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	store := loadTestSettings(t, db, mock, false)

	svc := NewPaymentService(db, providers.NewRegistry(), nil, store)
	_, err := svc.CreateOrder(CreateOrderInput{
		UserID:       2,
		ItemType:     orders.ItemSubscriptionPlan,
		ItemID:       7,
		ProviderType: orders.ProviderManualTransfer,
	})
	require.ErrorIs(t, err, ErrPurchasesDisabled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyManualPaymentCompletesInOneTransaction(t *testing.T) {
	db, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "orders" WHERE order_number`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_number", "user_id", "status", "total_amount"}).
			AddRow(5, "TA3-1", 2, "awaiting_verification", 150000.0))
	mock.ExpectExec(`UPDATE "orders" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	svc := NewPaymentService(db, providers.NewRegistry(), events.NewBus(), nil)
	order, err := svc.VerifyManualPayment("TA3-1", 99, "matches the bank statement")
	require.NoError(t, err)
	assert.Equal(t, orders.StatusCompleted, order.Status)
	require.NotNil(t, order.VerifiedByID)
	assert.Equal(t, uint(99), *order.VerifiedByID)
	assert.NotNil(t, order.PaidAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyManualPaymentRollsBackVerifierStamps(t *testing.T) {
	db, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	boom := errors.New("earnings split failed")
	bus := events.NewBus()
	bus.OnPaymentCompleted(func(tx *gorm.DB, o *orders.Order) error { return boom })

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "orders" WHERE order_number`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_number", "user_id", "status", "total_amount"}).
			AddRow(5, "TA3-1", 2, "awaiting_verification", 150000.0))
	mock.ExpectExec(`UPDATE "orders" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	svc := NewPaymentService(db, providers.NewRegistry(), bus, nil)
	_, err := svc.VerifyManualPayment("TA3-1", 99, "")
	require.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExpireOverdueOrders(t *testing.T) {
	db, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "orders" SET`).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	svc := NewPaymentService(db, providers.NewRegistry(), nil, nil)
	n, err := svc.ExpireOverdueOrders()
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
