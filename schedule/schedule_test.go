package schedule_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/attendance-engine/schedule"
)

func shiftsConfig() schedule.Shifts {
	morning := window(8, 0, 12, 0)
	afternoon := window(13, 0, 17, 0)
	return schedule.Shifts{Morning: &morning, Afternoon: &afternoon}
}

// =============================================================================
// CLASSIFICATION
// =============================================================================

func TestClassify_MorningWindow(t *testing.T) {
	cfg := shiftsConfig()
	assert.Equal(t, schedule.ShiftMorning, schedule.Classify(cfg, tod(8, 0)), "inclusive start")
	assert.Equal(t, schedule.ShiftMorning, schedule.Classify(cfg, tod(10, 30)))
	assert.Equal(t, schedule.ShiftMorning, schedule.Classify(cfg, tod(12, 0)), "inclusive end")
}

func TestClassify_AfternoonWindow(t *testing.T) {
	cfg := shiftsConfig()
	assert.Equal(t, schedule.ShiftAfternoon, schedule.Classify(cfg, tod(13, 0)))
	assert.Equal(t, schedule.ShiftAfternoon, schedule.Classify(cfg, tod(16, 59)))
}

func TestClassify_OutsideBothWindows(t *testing.T) {
	cfg := shiftsConfig()
	assert.Equal(t, schedule.ShiftSpecial, schedule.Classify(cfg, tod(12, 30)), "gap between shifts")
	assert.Equal(t, schedule.ShiftSpecial, schedule.Classify(cfg, tod(22, 0)), "night entry")
}

func TestClassify_MorningWinsOnOverlap(t *testing.T) {
	// GIVEN: Overlapping windows (a configuration mistake)
	// THEN: First match wins, deterministically morning
	morning := window(8, 0, 14, 0)
	afternoon := window(13, 0, 17, 0)
	cfg := schedule.Shifts{Morning: &morning, Afternoon: &afternoon}

	assert.Equal(t, schedule.ShiftMorning, schedule.Classify(cfg, tod(13, 30)))
}

func TestClassify_ContinuousNeverClassifies(t *testing.T) {
	cfg := schedule.Continuous{Window: window(9, 0, 17, 0)}
	assert.Equal(t, schedule.ShiftNone, schedule.Classify(cfg, tod(10, 0)))
}

// =============================================================================
// WINDOW RESOLUTION
// =============================================================================

func TestResolveWindow_NamedShift(t *testing.T) {
	cfg := shiftsConfig()

	win, ok := schedule.ResolveWindow(cfg, schedule.ShiftAfternoon)
	require.True(t, ok)
	assert.Equal(t, tod(13, 0), win.Start)
	assert.Equal(t, tod(17, 0), win.End)
}

func TestResolveWindow_SpecialFallsBackToGeneral(t *testing.T) {
	cfg := shiftsConfig()
	general := window(8, 0, 17, 0)
	cfg.General = &general

	win, ok := schedule.ResolveWindow(cfg, schedule.ShiftSpecial)
	require.True(t, ok)
	assert.Equal(t, general, win)
}

func TestResolveWindow_SpecialWithoutGeneral(t *testing.T) {
	// GIVEN: A special entry and no general window
	// THEN: No window resolvable, no overtime computable
	_, ok := schedule.ResolveWindow(shiftsConfig(), schedule.ShiftSpecial)
	assert.False(t, ok)
}

func TestResolveWindow_MissingShiftFallsBackToGeneral(t *testing.T) {
	afternoon := window(13, 0, 17, 0)
	general := window(9, 0, 18, 0)
	cfg := schedule.Shifts{Afternoon: &afternoon, General: &general}

	win, ok := schedule.ResolveWindow(cfg, schedule.ShiftMorning)
	require.True(t, ok)
	assert.Equal(t, general, win)
}

func TestClosingTime(t *testing.T) {
	cfg := shiftsConfig()

	closing, ok := schedule.ClosingTime(cfg, schedule.ShiftMorning)
	require.True(t, ok)
	assert.Equal(t, tod(12, 0), closing)

	_, ok = schedule.ClosingTime(cfg, schedule.ShiftSpecial)
	assert.False(t, ok, "no general window, no closing time")
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestValidate(t *testing.T) {
	assert.NoError(t, schedule.Continuous{Window: window(9, 0, 17, 0)}.Validate())
	assert.Error(t, schedule.Continuous{}.Validate(), "empty window")

	assert.NoError(t, shiftsConfig().Validate())
	assert.Error(t, schedule.Shifts{}.Validate(), "no shift configured")
}

// =============================================================================
// CODEC
// =============================================================================

func TestConfigCodec_Continuous(t *testing.T) {
	cfg := schedule.Continuous{Window: window(9, 0, 17, 30)}

	data, err := schedule.EncodeConfig(cfg)
	require.NoError(t, err)

	decoded, err := schedule.DecodeConfig(data)
	require.NoError(t, err)
	assert.Equal(t, cfg, decoded)
}

func TestConfigCodec_ShiftsWithGeneral(t *testing.T) {
	cfg := shiftsConfig()
	general := window(8, 0, 18, 0)
	cfg.General = &general

	data, err := schedule.EncodeConfig(cfg)
	require.NoError(t, err)

	decoded, err := schedule.DecodeConfig(data)
	require.NoError(t, err)
	assert.Equal(t, schedule.Config(cfg), decoded)
}

func TestDecodeConfig_UnknownMode(t *testing.T) {
	_, err := schedule.DecodeConfig([]byte(`{"mode":"rotating"}`))
	assert.Error(t, err)
}

// =============================================================================
// TIME OF DAY / DATE PARSING
// =============================================================================

func TestParseTimeOfDay(t *testing.T) {
	parsed, err := schedule.ParseTimeOfDay("09:30:15")
	require.NoError(t, err)
	assert.Equal(t, schedule.NewTimeOfDay(9, 30, 15), parsed)

	parsed, err = schedule.ParseTimeOfDay("18:45")
	require.NoError(t, err)
	assert.Equal(t, schedule.NewTimeOfDay(18, 45, 0), parsed)

	_, err = schedule.ParseTimeOfDay("25:00")
	assert.Error(t, err)
}

func TestParseDate(t *testing.T) {
	d, err := schedule.ParseDate("2026-03-10")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-10", d.String())

	_, err = schedule.ParseDate("10/03/2026")
	assert.Error(t, err)
}
