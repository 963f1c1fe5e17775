package services

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ta3lem-app/internal/domain/subscriptions"
	"ta3lem-app/testutils"
)

func TestMarkContentCompletedRejectsForeignContent(t *testing.T) {
	db, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "enrollments" WHERE "enrollments"\."id"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "student_id", "course_id", "status"}).
			AddRow(9, 2, 4, "enrolled"))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "contents" JOIN modules`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectRollback()

	svc := NewEnrollmentService(db)
	_, err := svc.MarkContentCompleted(9, 77)
	require.ErrorIs(t, err, ErrContentNotInCourse)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApproveFromWaitlistKeepsPaidEnrollment(t *testing.T) {
	db, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "waitlist_entries" WHERE "waitlist_entries"\."id"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "course_id", "student_id", "priority"}).
			AddRow(3, 4, 2, 1))
	mock.ExpectQuery(`SELECT \* FROM "courses" WHERE "courses"\."id"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "pricing_mode", "price", "currency", "enrollment_type", "status"}).
			AddRow(4, "one_time", 150000.0, "IDR", "open", "published"))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "enrollments" WHERE course_id`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))
	mock.ExpectQuery(`SELECT \* FROM "enrollments" WHERE student_id`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "student_id", "course_id", "status", "payment_status", "access_type"}).
			AddRow(9, 2, 4, "enrolled", "paid", "purchased"))
	// The paid enrollment is left untouched; only the entry goes away.
	mock.ExpectExec(`DELETE FROM "waitlist_entries"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	svc := NewEnrollmentService(db)
	enr, err := svc.ApproveFromWaitlist(3)
	require.NoError(t, err)
	assert.Equal(t, "enrolled", string(enr.Status))
	assert.Equal(t, "paid", string(enr.PaymentStatus))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRestoreSubscriptionAccessScopedToSubscription(t *testing.T) {
	db, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "enrollments" SET .* WHERE student_id = \$[0-9] AND subscription_id`).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	svc := NewEnrollmentService(db)
	sub := subscriptions.UserSubscription{ID: 11, UserID: 2}
	n, err := svc.RestoreSubscriptionAccessTx(db, 2, &sub)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
