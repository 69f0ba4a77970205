package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitAmountCents(t *testing.T) {
	tests := []struct {
		name       string
		totalCents int64
		percent    int
		want       int64
	}{
		{name: "even half", totalCents: 10000, percent: 50, want: 5000},
		{name: "half of odd total rounds up", totalCents: 101, percent: 50, want: 51},
		{name: "zero total", totalCents: 0, percent: 50, want: 0},
		{name: "full amount", totalCents: 7500, percent: 100, want: 7500},
		{name: "uneven percent", totalCents: 10000, percent: 33, want: 3300},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitAmountCents(tt.totalCents, tt.percent))
		})
	}
}

// Jobs are priced in whole dollars, so the two halves of an even-cent
// total must reconstruct it exactly.
func TestSplitAmountsSumToTotal(t *testing.T) {
	for _, total := range []int64{0, 100, 5000, 9500, 123400} {
		first := SplitAmountCents(total, 50)
		second := SplitAmountCents(total, 50)
		assert.Equal(t, total, first+second, "total %d", total)
	}
}

func TestPayoutHoldable(t *testing.T) {
	assert.True(t, (&Payout{Status: PayoutStatusPending}).Holdable())
	assert.True(t, (&Payout{Status: PayoutStatusProcessing}).Holdable())
	assert.False(t, (&Payout{Status: PayoutStatusPaid}).Holdable())
	assert.False(t, (&Payout{Status: PayoutStatusFailed}).Holdable())
	assert.False(t, (&Payout{Status: PayoutStatusHeld}).Holdable())
}
