package orders

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestNewOrderNumberFormat(t *testing.T) {
	pattern := regexp.MustCompile(`^TA3-20260301-[A-Z0-9]{5}$`)
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		n := NewOrderNumber(now)
		assert.Regexp(t, pattern, n)
		seen[n] = true
	}
	// Random suffixes: near-certain all distinct over 50 draws.
	assert.Greater(t, len(seen), 45)
}

func TestStatusIsTerminal(t *testing.T) {
	terminal := []Status{StatusCompleted, StatusFailed, StatusCancelled, StatusRefunded, StatusExpired}
	for _, s := range terminal {
		assert.True(t, s.IsTerminal(), "%s", s)
	}
	live := []Status{StatusPending, StatusAwaitingVerification, StatusProcessing}
	for _, s := range live {
		assert.False(t, s.IsTerminal(), "%s", s)
	}
}

func TestOrderIsExpired(t *testing.T) {
	var order Order
	assert.False(t, order.IsExpired(now), "no deadline means never expired")

	past := now.Add(-time.Minute)
	order.ExpiresAt = &past
	assert.True(t, order.IsExpired(now))

	future := now.Add(time.Minute)
	order.ExpiresAt = &future
	assert.False(t, order.IsExpired(now))
}

func TestProviderAvailableFor(t *testing.T) {
	max := 10000000.0
	p := PaymentProvider{
		IsActive:            true,
		SupportedCurrencies: []byte(`["IDR","USD"]`),
		MinAmount:           10000,
		MaxAmount:           &max,
	}

	assert.True(t, p.AvailableFor(50000, "IDR"))
	assert.False(t, p.AvailableFor(50000, "EUR"), "unsupported currency")
	assert.False(t, p.AvailableFor(5000, "IDR"), "below minimum")
	assert.False(t, p.AvailableFor(20000000, "IDR"), "above maximum")

	p.IsActive = false
	assert.False(t, p.AvailableFor(50000, "IDR"))
}
