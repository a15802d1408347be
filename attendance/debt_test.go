package attendance_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/schedule"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func seedDebt(t *testing.T, env *testEnv, id string, start schedule.Date, owed float64) *attendance.HourDebt {
	t.Helper()
	debt := &attendance.HourDebt{
		ID:          id,
		EmployeeID:  "emp-1",
		ProjectID:   "proj-1",
		PeriodStart: start,
		HoursOwed:   decimal.NewFromFloat(owed),
		Status:      attendance.DebtActive,
		Reason:      attendance.ReasonAbsence,
		CreatedAt:   env.clock.Now(),
		UpdatedAt:   env.clock.Now(),
	}
	require.NoError(t, env.store.SaveDebt(context.Background(), debt))
	return debt
}

// =============================================================================
// FIFO COMPENSATION
// =============================================================================

func TestProcessOvertime_CompensatesOldestFirst(t *testing.T) {
	// GIVEN: Two active debts, 2.0h (older) and 3.0h (newer)
	// WHEN: 4.0h of overtime arrive under compensate_debt
	// THEN: Older debt fully compensated, newer gets the remaining 2.0h
	env := newTestEnv(t)
	ctx := context.Background()

	seedDebt(t, env, "debt-old", schedule.NewDate(2026, time.March, 2), 2.0)
	seedDebt(t, env, "debt-new", schedule.NewDate(2026, time.March, 5), 3.0)

	leftover, err := env.debts.ProcessOvertime(ctx, "emp-1", "proj-1",
		decimal.NewFromInt(4), attendance.PolicyCompensateDebt)
	require.NoError(t, err)
	assert.True(t, leftover.IsZero(), "leftover %s", leftover)

	older, err := env.store.GetDebt(ctx, "debt-old")
	require.NoError(t, err)
	assert.Equal(t, attendance.DebtCompensated, older.Status)
	assert.True(t, decimal.NewFromInt(2).Equal(older.HoursCompensated))
	assert.True(t, older.Pending().IsZero())

	newer, err := env.store.GetDebt(ctx, "debt-new")
	require.NoError(t, err)
	assert.Equal(t, attendance.DebtActive, newer.Status, "partially compensated debt stays active")
	assert.True(t, decimal.NewFromInt(2).Equal(newer.HoursCompensated))
	assert.True(t, decimal.NewFromInt(1).Equal(newer.Pending()))
}

func TestProcessOvertime_LeftoverWhenDebtsRunOut(t *testing.T) {
	env := newTestEnv(t)

	seedDebt(t, env, "debt-1", schedule.NewDate(2026, time.March, 2), 1.5)

	leftover, err := env.debts.ProcessOvertime(context.Background(), "emp-1", "proj-1",
		decimal.NewFromInt(4), attendance.PolicyCompensateDebt)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromFloat(2.5).Equal(leftover), "leftover %s", leftover)
}

func TestProcessOvertime_BlockPolicy_NoCompensation(t *testing.T) {
	// GIVEN: block_overtime policy and an active debt
	// THEN: Extra hours pass through untouched, no debt mutation
	env := newTestEnv(t)
	ctx := context.Background()

	seedDebt(t, env, "debt-1", schedule.NewDate(2026, time.March, 2), 2.0)

	leftover, err := env.debts.ProcessOvertime(ctx, "emp-1", "proj-1",
		decimal.NewFromInt(3), attendance.PolicyBlockOvertime)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(3).Equal(leftover))

	debt, err := env.store.GetDebt(ctx, "debt-1")
	require.NoError(t, err)
	assert.True(t, debt.HoursCompensated.IsZero())
	assert.Equal(t, attendance.DebtActive, debt.Status)
}

func TestProcessOvertime_SeparateAccounts_NoCompensation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	seedDebt(t, env, "debt-1", schedule.NewDate(2026, time.March, 2), 2.0)

	leftover, err := env.debts.ProcessOvertime(ctx, "emp-1", "proj-1",
		decimal.NewFromInt(3), attendance.PolicySeparateAccounts)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(3).Equal(leftover))

	debt, err := env.store.GetDebt(ctx, "debt-1")
	require.NoError(t, err)
	assert.True(t, debt.HoursCompensated.IsZero())
}

func TestCompensate_SkipsSettledDebt(t *testing.T) {
	debt := &attendance.HourDebt{
		HoursOwed:      decimal.NewFromInt(2),
		HoursJustified: decimal.NewFromInt(2),
		Status:         attendance.DebtJustified,
	}

	leftover, applied := attendance.Compensate(debt, decimal.NewFromInt(3))
	assert.True(t, decimal.NewFromInt(3).Equal(leftover))
	assert.True(t, applied.IsZero())
}

// =============================================================================
// OVERTIME ON CLOSE
// =============================================================================

func TestClose_RoutesOvertimeIntoDebts(t *testing.T) {
	// GIVEN: An active 1.0h debt under compensate_debt
	// WHEN: A mark closes with 1.5h extra
	// THEN: The debt is fully compensated by the close itself
	env := newTestEnv(t)
	ctx := context.Background()

	seedDebt(t, env, "debt-1", schedule.NewDate(2026, time.March, 2), 1.0)

	env.entry(t, tod(8, 0))
	_, err := env.marks.MarkExit(ctx, attendance.ExitInput{
		EmployeeID: "emp-1", ProjectID: "proj-1", Time: todPtr(13, 30),
	})
	require.NoError(t, err)

	debt, err := env.store.GetDebt(ctx, "debt-1")
	require.NoError(t, err)
	assert.Equal(t, attendance.DebtCompensated, debt.Status)
	assert.True(t, decimal.NewFromInt(1).Equal(debt.HoursCompensated))
}

// =============================================================================
// DEBT OPENING
// =============================================================================

func TestOpenDebt_OwedFromSchedule(t *testing.T) {
	// GIVEN: Morning 4h + afternoon 4h configured
	// THEN: An absence owes 8h
	env := newTestEnv(t)

	debt, err := env.debts.OpenDebt(context.Background(), "emp-1", "proj-1",
		schedule.NewDate(2026, time.March, 9), attendance.ReasonAbsence)
	require.NoError(t, err)
	require.NotNil(t, debt)

	assert.True(t, decimal.NewFromInt(8).Equal(debt.HoursOwed), "owed %s", debt.HoursOwed)
	assert.Equal(t, attendance.DebtActive, debt.Status)
	assert.Equal(t, attendance.ReasonAbsence, debt.Reason)
}

func TestOpenDebt_OverrideWindowWins(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	employee, err := env.store.GetEmployee(ctx, "emp-1")
	require.NoError(t, err)
	employee.Override = &schedule.Window{Start: tod(10, 0), End: tod(14, 0)}
	require.NoError(t, env.store.SaveEmployee(ctx, employee))

	debt, err := env.debts.OpenDebt(ctx, "emp-1", "proj-1",
		schedule.NewDate(2026, time.March, 9), attendance.ReasonAbsence)
	require.NoError(t, err)
	require.NotNil(t, debt)
	assert.True(t, decimal.NewFromInt(4).Equal(debt.HoursOwed))
}

// =============================================================================
// ABSENCE DETECTION
// =============================================================================

func TestDetectAbsences_OpensDebtsForMissingEntries(t *testing.T) {
	// GIVEN: Two active employees, one marked entry yesterday
	// WHEN: Detecting absences for yesterday
	// THEN: One debt opens, for the employee with no entry
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.store.SaveEmployee(ctx, &attendance.Employee{
		ID: "emp-2", ProjectID: "proj-1", Name: "Bruno",
		Active: true, AttendanceActive: true,
	}))

	yesterday := schedule.NewDate(2026, time.March, 9)
	_, err := env.marks.MarkEntry(ctx, attendance.EntryInput{
		EmployeeID: "emp-1", ProjectID: "proj-1",
		Date: &yesterday, Time: todPtr(8, 0),
	})
	require.NoError(t, err)

	opened, err := env.debts.DetectAbsences(ctx, "proj-1", yesterday)
	require.NoError(t, err)
	assert.Equal(t, 1, opened)

	debts, err := env.store.ListActiveDebts(ctx, "emp-2", "proj-1")
	require.NoError(t, err)
	require.Len(t, debts, 1)
	assert.Equal(t, yesterday, debts[0].PeriodStart)

	none, err := env.store.ListActiveDebts(ctx, "emp-1", "proj-1")
	require.NoError(t, err)
	assert.Empty(t, none, "present employee owes nothing")
}

func TestDetectAbsences_DisabledProjectSkipped(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cfg, err := env.store.FindConfig(ctx, "proj-1")
	require.NoError(t, err)
	cfg.Enabled = false
	require.NoError(t, env.store.SaveConfig(ctx, cfg))

	opened, err := env.debts.DetectAbsences(ctx, "proj-1", schedule.NewDate(2026, time.March, 9))
	require.NoError(t, err)
	assert.Zero(t, opened)
}

func TestDetectAbsences_InactiveEmployeeIgnored(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.store.SaveEmployee(ctx, &attendance.Employee{
		ID: "emp-inactive", ProjectID: "proj-1", Name: "Gone",
		Active: false, AttendanceActive: true,
	}))

	opened, err := env.debts.DetectAbsences(ctx, "proj-1", schedule.NewDate(2026, time.March, 9))
	require.NoError(t, err)
	assert.Equal(t, 1, opened, "only the active employee counts")
}
