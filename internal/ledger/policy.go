package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	DefaultGracePeriodWeeks = 4
	DefaultWeeklyRate       = 5
)

// FeePolicy is the single overdue rule applied by returns, fee payments and overdue scans.
type FeePolicy struct {
	GracePeriodWeeks int             // loan term; these weeks never count as overdue
	WeeklyRate       decimal.Decimal // flat charge per overdue week
}

// DefaultPolicy returns a four week loan term charged at 5 per overdue week.
func DefaultPolicy() FeePolicy {
	return FeePolicy{
		GracePeriodWeeks: DefaultGracePeriodWeeks,
		WeeklyRate:       decimal.NewFromInt(DefaultWeeklyRate),
	}
}

// NewFeePolicy builds a policy from configuration values. Negative values are clamped to zero.
func NewFeePolicy(gracePeriodWeeks int, weeklyRate float64) FeePolicy {
	if gracePeriodWeeks < 0 {
		gracePeriodWeeks = 0
	}
	rate := decimal.NewFromFloat(weeklyRate)
	if rate.IsNegative() {
		rate = decimal.Zero
	}
	return FeePolicy{GracePeriodWeeks: gracePeriodWeeks, WeeklyRate: rate}
}

// WeeksOverdue counts whole weeks past the grace period between lendDate and today.
// Only calendar days matter; a lend date in the future yields zero.
func (p FeePolicy) WeeksOverdue(lendDate, today time.Time) int {
	weeks := DaysBetween(lendDate, today)/7 - p.GracePeriodWeeks
	return max(0, weeks)
}

// LateFee is WeeklyRate * weeks, zero for non-positive week counts.
func (p FeePolicy) LateFee(weeks int) decimal.Decimal {
	if weeks <= 0 {
		return decimal.Zero
	}
	return p.WeeklyRate.Mul(decimal.NewFromInt(int64(weeks)))
}

// DueDate is the last day of the loan term for a loan starting on lendDate.
func (p FeePolicy) DueDate(lendDate time.Time) time.Time {
	return Day(lendDate).AddDate(0, 0, 7*p.GracePeriodWeeks)
}

// Day truncates t to its UTC calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SameDay reports whether a and b fall on the same UTC calendar date.
func SameDay(a, b time.Time) bool {
	return Day(a).Equal(Day(b))
}

// DaysBetween returns the number of calendar days from `from` to `to`.
func DaysBetween(from, to time.Time) int {
	return int(Day(to).Sub(Day(from)).Hours() / 24)
}
