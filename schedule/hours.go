/*
hours.go - Hour arithmetic over entry/exit times and expected windows

PURPOSE:
  Pure arithmetic for the attendance engine:
  - WorkedHours: elapsed hours between entry and exit with midnight rollover
  - SplitOvertime: worked hours split into normal vs. extra against a window
  - ExpectedDailyHours: hours an absent employee owes for one day

ROLLOVER RULE:
  An exit at or before the entry time means the shift crossed midnight once;
  24 hours are added. Multi-day spans are a data error upstream and are not
  representable here (TimeOfDay carries no date).

ROUNDING:
  All returned quantities are decimal, rounded half-up to 2 places.
*/
package schedule

import (
	"github.com/shopspring/decimal"
)

var secondsPerHour = decimal.NewFromInt(3600)

// DefaultAbsenceHours is the fallback owed-hours value when no window is
// configured anywhere. Kept as an explicit, overridable default rather than a
// hidden constant; attendance configuration may replace it per project.
var DefaultAbsenceHours = decimal.NewFromInt(8)

// WorkedHours returns the elapsed hours between entry and exit. An exit at or
// before the entry rolls over midnight once.
func WorkedHours(entry, exit TimeOfDay) decimal.Decimal {
	seconds := int(exit) - int(entry)
	if seconds <= 0 {
		seconds += 24 * 3600
	}
	return decimal.NewFromInt(int64(seconds)).Div(secondsPerHour).Round(2)
}

// ExpectedHours returns the length of a window in hours, with the same
// rollover rule as WorkedHours.
func ExpectedHours(w Window) decimal.Decimal {
	return WorkedHours(w.Start, w.End)
}

// SplitOvertime splits worked hours into (normal, extra) against an expected
// window. A nil window means no overtime is computable: everything is normal.
func SplitOvertime(worked decimal.Decimal, window *Window) (normal, extra decimal.Decimal) {
	if window == nil {
		return worked.Round(2), decimal.Zero
	}
	expected := ExpectedHours(*window)
	if worked.GreaterThan(expected) {
		return expected.Round(2), worked.Sub(expected).Round(2)
	}
	return worked.Round(2), decimal.Zero
}

// ExpectedDailyHours returns the hours an employee is expected to work on one
// day. An active per-employee override window wins; otherwise the continuous
// window, or the sum of whichever shift windows are configured. When nothing
// is configured anywhere, fallback applies (callers pass the project's
// configured default, typically DefaultAbsenceHours).
func ExpectedDailyHours(cfg Config, override *Window, fallback decimal.Decimal) decimal.Decimal {
	if override != nil {
		return ExpectedHours(*override)
	}

	switch c := cfg.(type) {
	case Continuous:
		return ExpectedHours(c.Window)
	case Shifts:
		total := decimal.Zero
		if c.Morning != nil {
			total = total.Add(ExpectedHours(*c.Morning))
		}
		if c.Afternoon != nil {
			total = total.Add(ExpectedHours(*c.Afternoon))
		}
		if total.IsPositive() {
			return total.Round(2)
		}
	}
	return fallback
}
