/*
Package schedule provides the work-schedule primitives for the attendance engine.

PURPOSE:
  This package contains the pure, storage-free building blocks that the rest
  of the engine computes with: times of day, calendar dates, schedule
  configurations (continuous window vs. morning/afternoon shifts), shift
  classification, and hour arithmetic with midnight rollover.

KEY CONCEPTS IN THIS FILE (clock.go):
  - Clock: injectable time source so tests can freeze "now"
  - LocalZone: the fixed UTC-3 offset all attendance times are expressed in
  - TimeOfDay: a wall-clock time with no date attached (ledger times)
  - Date: a plain calendar date (mark keys)

DESIGN PRINCIPLES:
  1. Determinism: wall-clock reads go through Clock, never time.Now directly
  2. Precision: hour quantities use decimal.Decimal, rounded half-up to 2dp
  3. Type Safety: TimeOfDay and Date cannot be confused with time.Time

SEE ALSO:
  - schedule.go: Schedule configurations and shift resolution
  - hours.go: Worked/normal/overtime arithmetic
*/
package schedule

import (
	"fmt"
	"time"
)

// =============================================================================
// CLOCK - Injectable time source
// =============================================================================

// LocalZone is the fixed offset every attendance timestamp is expressed in.
// The deployment convention is UTC-3 regardless of host timezone.
var LocalZone = time.FixedZone("UTC-3", -3*60*60)

// Clock provides the current time. Production code uses SystemClock; tests
// use FrozenClock to pin "now".
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in LocalZone.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().In(LocalZone) }

// FrozenClock returns a fixed instant until advanced. Not safe for concurrent
// mutation; tests advance it between operations, not during them.
type FrozenClock struct {
	Current time.Time
}

func NewFrozenClock(t time.Time) *FrozenClock { return &FrozenClock{Current: t.In(LocalZone)} }

func (c *FrozenClock) Now() time.Time          { return c.Current }
func (c *FrozenClock) Set(t time.Time)         { c.Current = t.In(LocalZone) }
func (c *FrozenClock) Advance(d time.Duration) { c.Current = c.Current.Add(d) }

// =============================================================================
// TIME OF DAY - Wall-clock time without a date
// =============================================================================

// TimeOfDay is a second count since midnight, 0..86399.
type TimeOfDay int

// NewTimeOfDay builds a TimeOfDay from clock components.
func NewTimeOfDay(hour, minute, second int) TimeOfDay {
	return TimeOfDay(hour*3600 + minute*60 + second)
}

// TimeOfDayFrom extracts the wall-clock portion of an instant in LocalZone.
func TimeOfDayFrom(t time.Time) TimeOfDay {
	t = t.In(LocalZone)
	return NewTimeOfDay(t.Hour(), t.Minute(), t.Second())
}

// ParseTimeOfDay accepts "HH:MM:SS" or "HH:MM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var h, m, sec int
	// Sscanf reports EOF on the two-part form; the item count is the signal.
	if n, _ := fmt.Sscanf(s, "%d:%d:%d", &h, &m, &sec); n < 2 {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 || sec < 0 || sec > 59 {
		return 0, fmt.Errorf("time of day out of range %q", s)
	}
	return NewTimeOfDay(h, m, sec), nil
}

func (t TimeOfDay) Hour() int   { return int(t) / 3600 }
func (t TimeOfDay) Minute() int { return (int(t) % 3600) / 60 }
func (t TimeOfDay) Second() int { return int(t) % 60 }

func (t TimeOfDay) Before(other TimeOfDay) bool        { return t < other }
func (t TimeOfDay) After(other TimeOfDay) bool         { return t > other }
func (t TimeOfDay) BeforeOrEqual(other TimeOfDay) bool { return t <= other }
func (t TimeOfDay) AfterOrEqual(other TimeOfDay) bool  { return t >= other }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour(), t.Minute(), t.Second())
}

// =============================================================================
// DATE - Calendar date without a time
// =============================================================================

// Date is a plain calendar date in LocalZone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Year: year, Month: month, Day: day}
}

// DateOf extracts the calendar date of an instant in LocalZone.
func DateOf(t time.Time) Date {
	t = t.In(LocalZone)
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// ParseDate accepts "2006-01-02".
func ParseDate(s string) (Date, error) {
	t, err := time.ParseInLocation("2006-01-02", s, LocalZone)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q", s)
	}
	return DateOf(t), nil
}

// At combines the date with a time of day into an instant in LocalZone.
func (d Date) At(t TimeOfDay) time.Time {
	return time.Date(d.Year, d.Month, d.Day, t.Hour(), t.Minute(), t.Second(), 0, LocalZone)
}

func (d Date) Time() time.Time { return d.At(0) }

func (d Date) Before(other Date) bool { return d.Time().Before(other.Time()) }
func (d Date) After(other Date) bool  { return d.Time().After(other.Time()) }
func (d Date) Equal(other Date) bool  { return d == other }
func (d Date) IsZero() bool           { return d == Date{} }

func (d Date) AddDays(n int) Date { return DateOf(d.Time().AddDate(0, 0, n)) }

func (d Date) Weekday() time.Weekday { return d.Time().Weekday() }

func (d Date) String() string { return d.Time().Format("2006-01-02") }
