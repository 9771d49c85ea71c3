package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestYearMonth(t *testing.T) {
	t.Run("formats from time", func(t *testing.T) {
		assert.Equal(t, YearMonth("2026-02"), YearMonthOf(date(2026, time.February, 15)))
	})

	t.Run("validates format", func(t *testing.T) {
		assert.True(t, YearMonth("2026-02").IsValid())
		assert.False(t, YearMonth("2026-2").IsValid())
		assert.False(t, YearMonth("2026-13").IsValid())
		assert.False(t, YearMonth("garbage").IsValid())
	})

	t.Run("next crosses year boundary", func(t *testing.T) {
		assert.Equal(t, YearMonth("2027-01"), YearMonth("2026-12").Next())
	})

	t.Run("first day", func(t *testing.T) {
		assert.Equal(t, date(2026, time.March, 1), YearMonth("2026-03").FirstDay(time.UTC))
	})
}

func TestMonthsSpanned(t *testing.T) {
	t.Run("partial window within one month", func(t *testing.T) {
		months := MonthsSpanned(date(2026, time.January, 5), date(2026, time.January, 28))
		assert.Equal(t, []YearMonth{"2026-01"}, months)
	})

	t.Run("anchor to day before next anchor is one month", func(t *testing.T) {
		months := MonthsSpanned(date(2025, time.October, 12), date(2025, time.November, 11))
		assert.Equal(t, []YearMonth{"2025-10"}, months)
	})

	t.Run("six anchored months across year boundary", func(t *testing.T) {
		months := MonthsSpanned(date(2025, time.October, 12), date(2026, time.April, 11))
		assert.Equal(t, []YearMonth{"2025-10", "2025-11", "2025-12", "2026-01", "2026-02", "2026-03"}, months)
	})

	t.Run("reaching the next anchor day opens the next month", func(t *testing.T) {
		months := MonthsSpanned(date(2025, time.October, 12), date(2025, time.November, 12))
		assert.Equal(t, []YearMonth{"2025-10", "2025-11"}, months)
	})

	t.Run("anchor 31 clamps through february", func(t *testing.T) {
		months := MonthsSpanned(date(2026, time.January, 31), date(2026, time.February, 28))
		assert.Equal(t, []YearMonth{"2026-01", "2026-02"}, months)
	})

	t.Run("end before start yields nil", func(t *testing.T) {
		assert.Nil(t, MonthsSpanned(date(2026, time.March, 1), date(2026, time.February, 1)))
	})
}

func TestClampBillingDay(t *testing.T) {
	t.Run("day 31 clamps to 28 in february", func(t *testing.T) {
		assert.Equal(t, 28, ClampBillingDay(31, 2026, time.February))
	})

	t.Run("day 31 clamps to 29 in leap february", func(t *testing.T) {
		assert.Equal(t, 29, ClampBillingDay(31, 2028, time.February))
	})

	t.Run("day 31 clamps to 30 in april", func(t *testing.T) {
		assert.Equal(t, 30, ClampBillingDay(31, 2026, time.April))
	})

	t.Run("day within month is unchanged", func(t *testing.T) {
		assert.Equal(t, 15, ClampBillingDay(15, 2026, time.February))
	})

	t.Run("day 31 is kept in long months", func(t *testing.T) {
		assert.Equal(t, 31, ClampBillingDay(31, 2026, time.March))
	})
}

func TestClassifyMonth(t *testing.T) {
	reg := date(2026, time.March, 20)
	today := date(2026, time.June, 1)

	t.Run("month before registration", func(t *testing.T) {
		assert.Equal(t, MonthPreRegistration, ClassifyMonth(reg, "2026-02", today))
	})

	t.Run("registration month is applicable", func(t *testing.T) {
		assert.Equal(t, MonthApplicable, ClassifyMonth(reg, "2026-03", today))
	})

	t.Run("month with window in the past", func(t *testing.T) {
		assert.Equal(t, MonthApplicable, ClassifyMonth(reg, "2026-05", today))
	})

	t.Run("month with window not yet reached", func(t *testing.T) {
		// June window starts on the 20th, today is June 1st
		assert.Equal(t, MonthFuture, ClassifyMonth(reg, "2026-06", today))
	})

	t.Run("far future month", func(t *testing.T) {
		assert.Equal(t, MonthFuture, ClassifyMonth(reg, "2026-09", today))
	})
}

func TestComputeBillingInfo(t *testing.T) {
	t.Run("rejects zero registration date", func(t *testing.T) {
		_, err := ComputeBillingInfo(time.Time{}, date(2026, time.June, 1))
		require.Error(t, err)
	})

	t.Run("future registration is not billable", func(t *testing.T) {
		info, err := ComputeBillingInfo(date(2026, time.September, 1), date(2026, time.June, 1))
		require.NoError(t, err)
		assert.False(t, info.Billable)
		assert.Equal(t, 1, info.BillingDay)
	})

	t.Run("window started this month", func(t *testing.T) {
		info, err := ComputeBillingInfo(date(2026, time.January, 10), date(2026, time.June, 15))
		require.NoError(t, err)
		assert.True(t, info.Billable)
		assert.Equal(t, 10, info.BillingDay)
		assert.Equal(t, YearMonth("2026-06"), info.CurrentDueYearMonth)
		assert.Equal(t, date(2026, time.June, 10), info.CurrentWindowStart)
		assert.Equal(t, date(2026, time.July, 10), info.NextWindowStart)
		assert.Equal(t, 5, info.DaysSinceDue)
		assert.Equal(t, 25, info.DaysUntilNextDue)
	})

	t.Run("before this month's window falls back a month", func(t *testing.T) {
		info, err := ComputeBillingInfo(date(2026, time.January, 20), date(2026, time.June, 5))
		require.NoError(t, err)
		assert.Equal(t, YearMonth("2026-05"), info.CurrentDueYearMonth)
		assert.Equal(t, date(2026, time.May, 20), info.CurrentWindowStart)
		assert.Equal(t, date(2026, time.June, 20), info.NextWindowStart)
	})

	t.Run("anchor 31 clamps in february", func(t *testing.T) {
		info, err := ComputeBillingInfo(date(2025, time.August, 31), date(2026, time.February, 28))
		require.NoError(t, err)
		assert.Equal(t, 31, info.BillingDay)
		assert.Equal(t, YearMonth("2026-02"), info.CurrentDueYearMonth)
		assert.Equal(t, date(2026, time.February, 28), info.CurrentWindowStart)
		assert.Equal(t, date(2026, time.March, 31), info.NextWindowStart)
	})

	t.Run("anchor 31 clamps to 29 in leap february", func(t *testing.T) {
		info, err := ComputeBillingInfo(date(2025, time.August, 31), date(2028, time.February, 29))
		require.NoError(t, err)
		assert.Equal(t, date(2028, time.February, 29), info.CurrentWindowStart)
	})

	t.Run("registration day itself is due day zero", func(t *testing.T) {
		info, err := ComputeBillingInfo(date(2026, time.June, 15), date(2026, time.June, 15))
		require.NoError(t, err)
		assert.True(t, info.Billable)
		assert.Equal(t, YearMonth("2026-06"), info.CurrentDueYearMonth)
		assert.Equal(t, 0, info.DaysSinceDue)
	})
}
