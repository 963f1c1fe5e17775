package courses

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptrF(v float64) *float64 { return &v }
func ptrI(v int) *int         { return &v }

func TestPricingModeHelpers(t *testing.T) {
	assert.False(t, PricingFree.RequiresPrice())
	assert.True(t, PricingOneTime.RequiresPrice())
	assert.True(t, PricingBoth.RequiresPrice())
	assert.False(t, PricingSubscriptionOnly.RequiresPrice())

	assert.False(t, PricingFree.AllowsSubscription())
	assert.False(t, PricingOneTime.AllowsSubscription())
	assert.True(t, PricingBoth.AllowsSubscription())
	assert.True(t, PricingSubscriptionOnly.AllowsSubscription())
}

func TestValidatePricing(t *testing.T) {
	tests := []struct {
		name  string
		mode  PricingMode
		price *float64
		ok    bool
	}{
		{"free without price", PricingFree, nil, true},
		{"free with price", PricingFree, ptrF(100000), false},
		{"one_time with price", PricingOneTime, ptrF(250000), true},
		{"one_time without price", PricingOneTime, nil, false},
		{"one_time with zero price", PricingOneTime, ptrF(0), false},
		{"one_time with negative price", PricingOneTime, ptrF(-5), false},
		{"both with price", PricingBoth, ptrF(99000), true},
		{"both without price", PricingBoth, nil, false},
		{"subscription_only without price", PricingSubscriptionOnly, nil, true},
		{"subscription_only with price", PricingSubscriptionOnly, ptrF(50000), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Course{PricingMode: tt.mode, Price: tt.price}
			err := c.ValidatePricing()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidPricing)
			}
		})
	}
}

func TestCapacity(t *testing.T) {
	unlimited := Course{}
	assert.False(t, unlimited.IsFull(1_000_000))
	assert.Nil(t, unlimited.AvailableSpots(42))

	capped := Course{MaxCapacity: ptrI(30)}
	assert.False(t, capped.IsFull(29))
	assert.True(t, capped.IsFull(30))
	assert.True(t, capped.IsFull(31))

	spots := capped.AvailableSpots(29)
	if assert.NotNil(t, spots) {
		assert.Equal(t, int64(1), *spots)
	}
	// Over-capacity counts clamp to zero rather than going negative.
	spots = capped.AvailableSpots(35)
	if assert.NotNil(t, spots) {
		assert.Equal(t, int64(0), *spots)
	}
}

func TestPurchasableAccessors(t *testing.T) {
	c := Course{Title: "Intro to Batik", Currency: "IDR", Price: ptrF(150000)}
	assert.Equal(t, 150000.0, c.GetPrice())
	assert.Equal(t, "IDR", c.GetCurrency())
	assert.Equal(t, "Intro to Batik", c.GetDisplayName())

	free := Course{Title: "Open Course", Currency: "IDR"}
	assert.Equal(t, 0.0, free.GetPrice())
}
