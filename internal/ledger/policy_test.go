package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFeePolicy_WeeksOverdue(t *testing.T) {
	today := time.Date(2024, time.March, 15, 9, 0, 0, 0, time.UTC)
	policy := DefaultPolicy()

	tests := []struct {
		name    string
		daysAgo int
		want    int
	}{
		{"same day", 0, 0},
		{"within term", 20, 0},
		{"last day of term", 34, 0},
		{"first overdue week", 35, 1},
		{"forty one days", 41, 1},
		{"ten weeks", 70, 6},
		{"future lend date", -3, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lendDate := today.AddDate(0, 0, -tt.daysAgo)
			assert.Equal(t, tt.want, policy.WeeksOverdue(lendDate, today))
		})
	}
}

func TestFeePolicy_WithoutGracePeriod(t *testing.T) {
	today := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)
	policy := NewFeePolicy(0, 5)

	for days := -10; days <= 100; days++ {
		lendDate := today.AddDate(0, 0, -days)
		got := policy.WeeksOverdue(lendDate, today)
		assert.GreaterOrEqual(t, got, 0)
		assert.Equal(t, max(0, days/7), got, "days=%d", days)
	}
}

func TestFeePolicy_IgnoresTimeOfDay(t *testing.T) {
	policy := NewFeePolicy(0, 5)
	lendDate := time.Date(2024, time.January, 1, 23, 59, 0, 0, time.UTC)
	today := time.Date(2024, time.January, 8, 0, 1, 0, 0, time.UTC)

	assert.Equal(t, 1, policy.WeeksOverdue(lendDate, today))
}

func TestFeePolicy_LateFee(t *testing.T) {
	policy := NewFeePolicy(4, 2.5)

	assert.True(t, policy.LateFee(0).IsZero())
	assert.True(t, policy.LateFee(-2).IsZero())
	assert.True(t, policy.LateFee(3).Equal(decimal.NewFromFloat(7.5)))
}

func TestNewFeePolicy_ClampsNegatives(t *testing.T) {
	policy := NewFeePolicy(-1, -5)

	assert.Equal(t, 0, policy.GracePeriodWeeks)
	assert.True(t, policy.WeeklyRate.IsZero())
}

func TestFeePolicy_DueDate(t *testing.T) {
	policy := DefaultPolicy()
	lendDate := time.Date(2024, time.February, 1, 17, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC), policy.DueDate(lendDate))
}

func TestKind(t *testing.T) {
	assert.Nil(t, Kind(nil))
	assert.Equal(t, ErrNotFound, Kind(loanNotFound("a@b.c", 1)))
	assert.Equal(t, ErrValidation, Kind(invalid("bad %s", "input")))
	assert.Equal(t, ErrDataAccess, Kind(classify("op", assert.AnError)))
	assert.ErrorIs(t, classify("op", assert.AnError), assert.AnError)
}
