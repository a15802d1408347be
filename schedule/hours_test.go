package schedule_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/warp/attendance-engine/schedule"
)

func tod(h, m int) schedule.TimeOfDay {
	return schedule.NewTimeOfDay(h, m, 0)
}

func window(startH, startM, endH, endM int) schedule.Window {
	return schedule.Window{Start: tod(startH, startM), End: tod(endH, endM)}
}

// =============================================================================
// WORKED HOURS
// =============================================================================

func TestWorkedHours_SameDay(t *testing.T) {
	// GIVEN: Entry 09:00, exit 17:30
	// THEN: 8.5 hours
	worked := schedule.WorkedHours(tod(9, 0), tod(17, 30))
	assert.True(t, decimal.NewFromFloat(8.5).Equal(worked), "got %s", worked)
}

func TestWorkedHours_MidnightRollover(t *testing.T) {
	// GIVEN: A night shift entering at 22:00 and exiting 06:00 next day
	// THEN: Exit before entry rolls over midnight once, 8 hours
	worked := schedule.WorkedHours(tod(22, 0), tod(6, 0))
	assert.True(t, decimal.NewFromInt(8).Equal(worked), "got %s", worked)
}

func TestWorkedHours_ExitEqualsEntry(t *testing.T) {
	// GIVEN: Exit exactly at the entry time
	// THEN: Treated as a full 24h rollover, not zero
	worked := schedule.WorkedHours(tod(9, 0), tod(9, 0))
	assert.True(t, decimal.NewFromInt(24).Equal(worked), "got %s", worked)
}

func TestWorkedHours_RoundsToTwoPlaces(t *testing.T) {
	// GIVEN: 10 minutes of work (600s / 3600 = 0.1666...)
	// THEN: Rounded half-up to 0.17
	worked := schedule.WorkedHours(tod(9, 0), tod(9, 10))
	assert.Equal(t, "0.17", worked.String())
}

// =============================================================================
// OVERTIME SPLIT
// =============================================================================

func TestSplitOvertime_WithinWindow(t *testing.T) {
	w := window(9, 0, 17, 0) // 8h expected
	normal, extra := schedule.SplitOvertime(decimal.NewFromFloat(7.5), &w)
	assert.True(t, decimal.NewFromFloat(7.5).Equal(normal))
	assert.True(t, extra.IsZero())
}

func TestSplitOvertime_BeyondWindow(t *testing.T) {
	// GIVEN: 9.5h worked against an 8h window
	// THEN: 8.0 normal, 1.5 extra
	w := window(9, 0, 17, 0)
	normal, extra := schedule.SplitOvertime(decimal.NewFromFloat(9.5), &w)
	assert.True(t, decimal.NewFromInt(8).Equal(normal), "normal %s", normal)
	assert.True(t, decimal.NewFromFloat(1.5).Equal(extra), "extra %s", extra)
}

func TestSplitOvertime_NoWindow(t *testing.T) {
	// GIVEN: No expected window (unresolvable shift)
	// THEN: Everything is normal, no overtime computable
	normal, extra := schedule.SplitOvertime(decimal.NewFromInt(12), nil)
	assert.True(t, decimal.NewFromInt(12).Equal(normal))
	assert.True(t, extra.IsZero())
}

// =============================================================================
// EXPECTED DAILY HOURS
// =============================================================================

func TestExpectedDailyHours_OverrideWins(t *testing.T) {
	cfg := schedule.Continuous{Window: window(9, 0, 17, 0)}
	override := window(10, 0, 14, 0)

	owed := schedule.ExpectedDailyHours(cfg, &override, schedule.DefaultAbsenceHours)
	assert.True(t, decimal.NewFromInt(4).Equal(owed), "got %s", owed)
}

func TestExpectedDailyHours_Continuous(t *testing.T) {
	cfg := schedule.Continuous{Window: window(8, 30, 17, 30)}
	owed := schedule.ExpectedDailyHours(cfg, nil, schedule.DefaultAbsenceHours)
	assert.True(t, decimal.NewFromInt(9).Equal(owed), "got %s", owed)
}

func TestExpectedDailyHours_ShiftsSum(t *testing.T) {
	morning := window(8, 0, 12, 0)
	afternoon := window(13, 0, 18, 0)
	cfg := schedule.Shifts{Morning: &morning, Afternoon: &afternoon}

	owed := schedule.ExpectedDailyHours(cfg, nil, schedule.DefaultAbsenceHours)
	assert.True(t, decimal.NewFromInt(9).Equal(owed), "got %s", owed)
}

func TestExpectedDailyHours_FallbackWhenNothingConfigured(t *testing.T) {
	// GIVEN: A nil schedule and no override
	// THEN: The configured default applies
	fallback := decimal.NewFromInt(6)
	owed := schedule.ExpectedDailyHours(nil, nil, fallback)
	assert.True(t, fallback.Equal(owed), "got %s", owed)
}
