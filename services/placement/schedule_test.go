package placement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNextPayDate(t *testing.T) {
	// Before this month's pay day.
	next, ok := NextPayDate(15, date(2026, time.March, 10))
	require.True(t, ok)
	require.Equal(t, date(2026, time.March, 15), next)

	// On the pay day itself.
	next, ok = NextPayDate(15, date(2026, time.March, 15))
	require.True(t, ok)
	require.Equal(t, date(2026, time.March, 15), next)

	// Past the pay day rolls to next month.
	next, ok = NextPayDate(15, date(2026, time.March, 20))
	require.True(t, ok)
	require.Equal(t, date(2026, time.April, 15), next)

	// December rollover crosses the year.
	next, ok = NextPayDate(5, date(2026, time.December, 10))
	require.True(t, ok)
	require.Equal(t, date(2027, time.January, 5), next)

	// No cycle.
	_, ok = NextPayDate(0, date(2026, time.March, 10))
	require.False(t, ok)
}

func TestNextPayDateClampsToMonthLength(t *testing.T) {
	// Settlement day 31 clamps to the last day of February.
	next, ok := NextPayDate(31, date(2026, time.February, 10))
	require.True(t, ok)
	require.Equal(t, date(2026, time.February, 28), next)

	// Leap year.
	next, ok = NextPayDate(31, date(2028, time.February, 10))
	require.True(t, ok)
	require.Equal(t, date(2028, time.February, 29), next)

	// Past the clamped day rolls into March, where day 31 exists.
	next, ok = NextPayDate(31, date(2026, time.February, 28))
	require.True(t, ok)
	require.Equal(t, date(2026, time.February, 28), next)

	next, ok = NextPayDate(31, date(2026, time.March, 1))
	require.True(t, ok)
	require.Equal(t, date(2026, time.March, 31), next)
}

func TestDaysUntilPay(t *testing.T) {
	days, ok := DaysUntilPay(15, date(2026, time.March, 10))
	require.True(t, ok)
	require.Equal(t, 5, days)

	days, ok = DaysUntilPay(15, date(2026, time.March, 15))
	require.True(t, ok)
	require.Equal(t, 0, days)

	_, ok = DaysUntilPay(0, date(2026, time.March, 10))
	require.False(t, ok)
}

func TestInPayNowBucket(t *testing.T) {
	// No cycle: always payable.
	require.True(t, InPayNowBucket(0, date(2026, time.March, 1)))

	// On or after the settlement day.
	require.True(t, InPayNowBucket(15, date(2026, time.March, 15)))
	require.True(t, InPayNowBucket(15, date(2026, time.March, 20)))

	// Before it.
	require.False(t, InPayNowBucket(15, date(2026, time.March, 10)))

	// Clamped settlement day keeps the rules consistent in short months.
	require.True(t, InPayNowBucket(31, date(2026, time.February, 28)))
	require.False(t, InPayNowBucket(31, date(2026, time.March, 28)))
}

func TestDaysWorked(t *testing.T) {
	require.Equal(t, 40, DaysWorked(date(2026, time.January, 1), date(2026, time.February, 10)))
	require.Equal(t, 0, DaysWorked(date(2026, time.January, 1), date(2026, time.January, 1)))
}
