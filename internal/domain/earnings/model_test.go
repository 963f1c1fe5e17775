package earnings

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplit(t *testing.T) {
	fee, earning := Split(100000, 20)
	assert.Equal(t, 20000.0, fee)
	assert.Equal(t, 80000.0, earning)
}

func TestSplitZeroRate(t *testing.T) {
	fee, earning := Split(150000, 0)
	assert.Equal(t, 0.0, fee)
	assert.Equal(t, 150000.0, earning)
}

func TestSplitFullRate(t *testing.T) {
	fee, earning := Split(150000, 100)
	assert.Equal(t, 150000.0, fee)
	assert.Equal(t, 0.0, earning)
}

func TestSplitConservation(t *testing.T) {
	// fee + earning must reconstruct the order amount to the cent,
	// whatever the rate.
	amounts := []float64{100000, 99999, 150000.50, 33333.33, 19.99, 0.01}
	rates := []float64{0, 2.5, 10, 15, 20, 30, 33.33, 50, 99, 100}

	for _, amount := range amounts {
		for _, rate := range rates {
			fee, earning := Split(amount, rate)
			sum := math.Round((fee+earning)*100) / 100
			assert.Equal(t, amount, sum, "amount=%v rate=%v fee=%v earning=%v", amount, rate, fee, earning)
			assert.GreaterOrEqual(t, fee, 0.0)
			assert.GreaterOrEqual(t, earning, 0.0)
		}
	}
}

func TestPayoutStatusReserving(t *testing.T) {
	assert.True(t, PayoutPending.Reserving())
	assert.True(t, PayoutApproved.Reserving())
	assert.True(t, PayoutProcessing.Reserving())
	assert.False(t, PayoutCompleted.Reserving())
	assert.False(t, PayoutRejected.Reserving())
}
