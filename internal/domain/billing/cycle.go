package billing

import (
	"time"

	"github.com/academy/backend/internal/domain/shared"
)

// YearMonth identifies a calendar month in "YYYY-MM" form. It is the
// calendar key of the coverage ledger.
type YearMonth string

const yearMonthLayout = "2006-01"

// YearMonthOf returns the YearMonth containing t
func YearMonthOf(t time.Time) YearMonth {
	return YearMonth(t.Format(yearMonthLayout))
}

// IsValid checks that the value parses as "YYYY-MM"
func (ym YearMonth) IsValid() bool {
	_, err := time.Parse(yearMonthLayout, string(ym))
	return err == nil
}

// String returns the string representation of YearMonth
func (ym YearMonth) String() string {
	return string(ym)
}

// FirstDay returns midnight on the first day of the month in loc.
// The zero time is returned for an invalid value.
func (ym YearMonth) FirstDay(loc *time.Location) time.Time {
	t, err := time.ParseInLocation(yearMonthLayout, string(ym), loc)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Next returns the following calendar month
func (ym YearMonth) Next() YearMonth {
	return YearMonthOf(ym.FirstDay(time.UTC).AddDate(0, 1, 0))
}

// MonthsSpanned returns the ordered billing months the inclusive range
// [start, end] pays for, counted in anchored windows. The anchor day is
// start's day-of-month; each successive month contributes one window opening
// on that day (clamped per ClampBillingDay), keyed by the window's calendar
// month. A range running from the anchor day to the day before the next
// anchor is exactly one month: [Oct 12, Nov 11] yields only 2025-10.
func MonthsSpanned(start, end time.Time) []YearMonth {
	if end.Before(start) {
		return nil
	}
	anchor := start.Day()
	months := make([]YearMonth, 0, 4)
	year, month := start.Year(), start.Month()
	for {
		ws := WindowStart(anchor, year, month, start.Location())
		if ws.After(end) {
			break
		}
		months = append(months, YearMonthOf(ws))
		month++
		if month > time.December {
			month = time.January
			year++
		}
	}
	return months
}

// DaysInMonth returns the number of days in the given calendar month
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, -1).Day()
}

// ClampBillingDay clamps an anchor day to the length of the target month:
// a member registered on the 31st is due on the 28th (29th in a leap year)
// of February. This is the single clamping rule; every billing-window
// boundary in the system must come through here.
func ClampBillingDay(anchorDay, year int, month time.Month) int {
	if max := DaysInMonth(year, month); anchorDay > max {
		return max
	}
	return anchorDay
}

// WindowStart returns the clamped billing-window start for the given month
func WindowStart(anchorDay int, year int, month time.Month, loc *time.Location) time.Time {
	day := ClampBillingDay(anchorDay, year, month)
	return time.Date(year, month, day, 0, 0, 0, 0, loc)
}

// MonthApplicability classifies whether a calendar month participates in a
// member's billing at all.
type MonthApplicability string

const (
	// MonthApplicable means the month has a billing window for the member
	MonthApplicable MonthApplicability = "APPLICABLE"
	// MonthPreRegistration means the month ended before the member registered
	MonthPreRegistration MonthApplicability = "PRE_REGISTRATION"
	// MonthFuture means the month's billing window has not started yet
	MonthFuture MonthApplicability = "FUTURE"
)

// ClassifyMonth reports whether a month is billable for a member given
// today. Pre-registration and future months both suppress overdue
// classification, but are distinct states.
func ClassifyMonth(registrationDate time.Time, ym YearMonth, today time.Time) MonthApplicability {
	first := ym.FirstDay(registrationDate.Location())
	regMonth := time.Date(registrationDate.Year(), registrationDate.Month(), 1, 0, 0, 0, 0, registrationDate.Location())
	if first.Before(regMonth) {
		return MonthPreRegistration
	}
	start := WindowStart(registrationDate.Day(), first.Year(), first.Month(), first.Location())
	if start.Before(registrationDate) {
		// Clamped start landing before the registration day can only happen
		// in the registration month itself; that window begins at
		// registration.
		start = registrationDate
	}
	if start.After(today) {
		return MonthFuture
	}
	return MonthApplicable
}

// BillingCycleInfo is the derived (never persisted) billing state of one
// member at a point in time.
type BillingCycleInfo struct {
	BillingDay          int       `json:"billing_day"`
	Billable            bool      `json:"billable"` // False while the registration date is in the future
	CurrentDueYearMonth YearMonth `json:"current_due_year_month"`
	CurrentWindowStart  time.Time `json:"current_window_start"`
	NextWindowStart     time.Time `json:"next_window_start"`
	DaysSinceDue        int       `json:"days_since_due"`
	DaysUntilNextDue    int       `json:"days_until_next_due"`
}

// ComputeBillingInfo derives the billing cycle state for a member from the
// registration date and today. A zero registration date is a caller
// contract violation. When the registration date is still in the future the
// result has Billable=false and callers must not evaluate due status.
func ComputeBillingInfo(registrationDate, today time.Time) (*BillingCycleInfo, error) {
	if registrationDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_REGISTRATION_DATE", "Registration date is required")
	}

	reg := truncateToDay(registrationDate)
	now := truncateToDay(today.In(reg.Location()))
	anchor := reg.Day()

	info := &BillingCycleInfo{BillingDay: anchor}
	if now.Before(reg) {
		return info, nil
	}
	info.Billable = true

	// Most recent window start <= today: try the current month, fall back
	// one month when today is still before this month's (clamped) start.
	start := WindowStart(anchor, now.Year(), now.Month(), now.Location())
	if start.After(now) {
		prev := now.AddDate(0, -1, -now.Day()+1) // first day of previous month
		start = WindowStart(anchor, prev.Year(), prev.Month(), prev.Location())
	}

	nextMonth := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, start.Location()).AddDate(0, 1, 0)
	next := WindowStart(anchor, nextMonth.Year(), nextMonth.Month(), nextMonth.Location())

	info.CurrentDueYearMonth = YearMonthOf(start)
	info.CurrentWindowStart = start
	info.NextWindowStart = next
	info.DaysSinceDue = daysBetween(start, now)
	info.DaysUntilNextDue = daysBetween(now, next)

	return info, nil
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func daysBetween(from, to time.Time) int {
	if to.Before(from) {
		return 0
	}
	return int(to.Sub(from).Hours() / 24)
}
