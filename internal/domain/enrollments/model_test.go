package enrollments

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgress(t *testing.T) {
	assert.Equal(t, 0.0, Progress(0, 0), "no contents means no progress")
	assert.Equal(t, 0.0, Progress(0, 10))
	assert.Equal(t, 50.0, Progress(5, 10))
	assert.Equal(t, 100.0, Progress(10, 10))
	assert.Equal(t, 33.33, Progress(1, 3))
	assert.Equal(t, 66.67, Progress(2, 3))
	assert.Equal(t, 14.29, Progress(1, 7))
}

func TestProgressClamped(t *testing.T) {
	// Stray progress rows must never push the percentage outside
	// the 0..100 range.
	assert.Equal(t, 100.0, Progress(5, 3))
	assert.Equal(t, 100.0, Progress(1000, 3))
	assert.Equal(t, 0.0, Progress(-1, 3))
	assert.Equal(t, 0.0, Progress(3, -1))
}

func TestProgressNeverHits100Early(t *testing.T) {
	// 6/7 would round to 85.71, 999/1000 to 99.9; only the full count
	// yields exactly 100.
	for total := int64(1); total <= 200; total++ {
		p := Progress(total-1, total)
		if total > 1 {
			assert.Less(t, p, 100.0, "total=%d", total)
		}
		assert.Equal(t, 100.0, Progress(total, total))
	}
}

func TestGateOpen(t *testing.T) {
	tests := []struct {
		status  Status
		payment PaymentStatus
		open    bool
	}{
		{StatusEnrolled, PaymentPaid, true},
		{StatusEnrolled, PaymentFree, true},
		{StatusCompleted, PaymentPaid, true},
		{StatusPaused, PaymentFree, true},
		{StatusEnrolled, PaymentPending, false},
		{StatusEnrolled, PaymentFailed, false},
		{StatusEnrolled, PaymentRefunded, false},
		{StatusPending, PaymentPaid, false},
		{StatusWithdrawn, PaymentPaid, false},
		{StatusRejected, PaymentFree, false},
	}
	for _, tt := range tests {
		e := Enrollment{Status: tt.status, PaymentStatus: tt.payment}
		assert.Equal(t, tt.open, e.GateOpen(), "status=%s payment=%s", tt.status, tt.payment)
	}
}
