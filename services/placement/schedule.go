package placement

import (
	"time"
)

// Settlement-day arithmetic. A settlement day of 0 means the partner has no
// fixed cycle and is paid as soon as a placement matures. Settlement days
// beyond the current month's length clamp to its last day, so the bucket
// rule and the rollover rule always agree.

func lastDayOfMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func clampPayDay(settlementDay int, year int, month time.Month) int {
	if last := lastDayOfMonth(year, month); settlementDay > last {
		return last
	}
	return settlementDay
}

// NextPayDate returns the partner's next settlement date at or after asOf.
// The second return is false when the partner has no fixed cycle.
func NextPayDate(settlementDay int, asOf time.Time) (time.Time, bool) {
	if settlementDay <= 0 {
		return time.Time{}, false
	}

	year, month, _ := asOf.Date()
	payDay := clampPayDay(settlementDay, year, month)
	payDate := time.Date(year, month, payDay, 0, 0, 0, 0, time.UTC)

	if asOf.Day() <= payDay {
		return payDate, true
	}

	firstOfNext := time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC)
	payDay = clampPayDay(settlementDay, firstOfNext.Year(), firstOfNext.Month())
	return time.Date(firstOfNext.Year(), firstOfNext.Month(), payDay, 0, 0, 0, 0, time.UTC), true
}

// DaysUntilPay returns whole days from asOf until the next settlement date,
// zero when asOf is the settlement date itself.
func DaysUntilPay(settlementDay int, asOf time.Time) (int, bool) {
	next, ok := NextPayDate(settlementDay, asOf)
	if !ok {
		return 0, false
	}
	asOfDate := time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, time.UTC)
	return int(next.Sub(asOfDate).Hours() / 24), true
}

// InPayNowBucket reports whether a mature placement is payable today: the
// partner has no cycle, or asOf has reached this month's clamped pay day.
func InPayNowBucket(settlementDay int, asOf time.Time) bool {
	if settlementDay <= 0 {
		return true
	}
	return asOf.Day() >= clampPayDay(settlementDay, asOf.Year(), asOf.Month())
}

// DaysWorked counts whole calendar days between the start date and asOf.
func DaysWorked(startDate, asOf time.Time) int {
	start := time.Date(startDate.Year(), startDate.Month(), startDate.Day(), 0, 0, 0, 0, time.UTC)
	end := time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, time.UTC)
	return int(end.Sub(start).Hours() / 24)
}
