package payout

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitPrice(t *testing.T) {
	testCases := []struct {
		name           string
		totalCents     int64
		expectedFee    int64
		expectedPayout int64
	}{
		{name: "round total", totalCents: 10000, expectedFee: 1500, expectedPayout: 8500},
		{name: "rounding half-up", totalCents: 333, expectedFee: 50, expectedPayout: 283},
		{name: "tiny booking", totalCents: 1, expectedFee: 0, expectedPayout: 1},
		{name: "one dollar", totalCents: 100, expectedFee: 15, expectedPayout: 85},
		{name: "odd price", totalCents: 9999, expectedFee: 1500, expectedPayout: 8499},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fee, payout, err := SplitPrice(tc.totalCents)
			assert.NoError(t, err)
			assert.Equal(t, tc.expectedFee, fee)
			assert.Equal(t, tc.expectedPayout, payout)
			// The split must always reassemble into the original total.
			assert.Equal(t, tc.totalCents, fee+payout)
		})
	}
}

func TestSplitPrice_InvalidInput(t *testing.T) {
	for _, total := range []int64{0, -1, -10000} {
		_, _, err := SplitPrice(total)
		assert.ErrorIs(t, err, ErrInvalidPrice)
	}
}
