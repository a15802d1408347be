package sqlite_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/schedule"
	"github.com/warp/attendance-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func tod(h, m int) schedule.TimeOfDay {
	return schedule.NewTimeOfDay(h, m, 0)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// seedOpenMark inserts an open morning mark for the given employee and date.
func seedOpenMark(t *testing.T, s *sqlite.Store, id, employeeID string, date schedule.Date) *attendance.Mark {
	t.Helper()
	entry := tod(8, 0)
	mark := &attendance.Mark{
		ID:         id,
		EmployeeID: employeeID,
		ProjectID:  "proj-1",
		Date:       date,
		Shift:      schedule.ShiftMorning,
		EntryTime:  &entry,
		CreatedAt:  date.At(entry),
		UpdatedAt:  date.At(entry),
	}
	require.NoError(t, s.SaveMark(context.Background(), mark))
	return mark
}

func seedMark(t *testing.T, s *sqlite.Store, id string) *attendance.Mark {
	t.Helper()
	return seedOpenMark(t, s, id, "emp-1", schedule.NewDate(2026, time.March, 10))
}

// =============================================================================
// MARKS
// =============================================================================

func TestMark_SaveAndRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	entry := tod(8, 5)
	exit := tod(17, 30)
	lat := dec("-34.6037")
	mark := &attendance.Mark{
		ID:                     "mark-1",
		EmployeeID:             "emp-1",
		ProjectID:              "proj-1",
		Date:                   schedule.NewDate(2026, time.March, 10),
		Shift:                  schedule.ShiftMorning,
		EntryTime:              &entry,
		ExitTime:               &exit,
		EntryManual:            true,
		AdminConfirmedOvertime: true,
		EntryLat:               &lat,
		WorkedHours:            dec("9.42"),
		NormalHours:            dec("8"),
		ExtraHours:             dec("1.42"),
		Observations:           "line one\nline two",
		CreatedAt:              time.Date(2026, time.March, 10, 8, 5, 0, 0, schedule.LocalZone),
		UpdatedAt:              time.Date(2026, time.March, 10, 17, 30, 0, 0, schedule.LocalZone),
	}
	require.NoError(t, s.SaveMark(ctx, mark))

	got, err := s.GetMark(ctx, "mark-1")
	require.NoError(t, err)
	assert.Equal(t, mark.EmployeeID, got.EmployeeID)
	assert.Equal(t, mark.Date, got.Date)
	assert.Equal(t, schedule.ShiftMorning, got.Shift)
	require.NotNil(t, got.EntryTime)
	assert.Equal(t, entry, *got.EntryTime)
	require.NotNil(t, got.ExitTime)
	assert.Equal(t, exit, *got.ExitTime)
	assert.True(t, got.EntryManual)
	assert.True(t, got.AdminConfirmedOvertime)
	require.NotNil(t, got.EntryLat)
	assert.True(t, lat.Equal(*got.EntryLat))
	assert.True(t, mark.WorkedHours.Equal(got.WorkedHours))
	assert.Equal(t, "line one\nline two", got.Observations)
}

func TestMark_FindMissingReturnsNil(t *testing.T) {
	s := newTestStore(t)

	mark, err := s.FindMark(context.Background(), "emp-1", "proj-1", schedule.NewDate(2026, time.March, 10))
	require.NoError(t, err)
	assert.Nil(t, mark)
}

func TestMark_GetMissingReturnsNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetMark(context.Background(), "missing")
	assert.ErrorIs(t, err, attendance.ErrMarkNotFound)
}

func TestCloseMark_SetsExitAndAppendsObservation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedMark(t, s, "mark-1")

	exit := tod(12, 0)
	closed, err := s.CloseMark(ctx, "mark-1", attendance.MarkClose{
		ExitTime:    exit,
		Automatic:   true,
		WorkedHours: dec("4"),
		NormalHours: dec("4"),
		ExtraHours:  decimal.Zero,
		Observation: "[Exit closed automatically at 2026-03-10 12:00:00]",
		ClosedAt:    time.Date(2026, time.March, 10, 12, 0, 0, 0, schedule.LocalZone),
	})
	require.NoError(t, err)
	require.NotNil(t, closed.ExitTime)
	assert.Equal(t, exit, *closed.ExitTime)
	assert.True(t, closed.ExitAutomatic)
	assert.Equal(t, "[Exit closed automatically at 2026-03-10 12:00:00]", closed.Observations)
}

func TestCloseMark_PreservesExistingObservations(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mark := seedMark(t, s, "mark-1")
	mark.Observations = "first line"
	require.NoError(t, s.SaveMark(ctx, mark))

	closed, err := s.CloseMark(ctx, "mark-1", attendance.MarkClose{
		ExitTime:    tod(12, 0),
		WorkedHours: dec("4"),
		NormalHours: dec("4"),
		ExtraHours:  decimal.Zero,
		Observation: "second line",
		ClosedAt:    time.Now(),
	})
	require.NoError(t, err)
	assert.Equal(t, "first line\nsecond line", closed.Observations)
}

func TestCloseMark_AlreadyClosed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedMark(t, s, "mark-1")

	close := attendance.MarkClose{
		ExitTime: tod(12, 0),
		WorkedHours: dec("4"), NormalHours: dec("4"), ExtraHours: decimal.Zero,
		ClosedAt: time.Now(),
	}
	_, err := s.CloseMark(ctx, "mark-1", close)
	require.NoError(t, err)

	_, err = s.CloseMark(ctx, "mark-1", close)
	assert.ErrorIs(t, err, attendance.ErrAlreadyClosed)
}

func TestCloseMark_Missing(t *testing.T) {
	s := newTestStore(t)

	_, err := s.CloseMark(context.Background(), "missing", attendance.MarkClose{
		ExitTime: tod(12, 0),
		WorkedHours: dec("4"), NormalHours: dec("4"), ExtraHours: decimal.Zero,
		ClosedAt: time.Now(),
	})
	assert.ErrorIs(t, err, attendance.ErrMarkNotFound)
}

func TestCloseMark_ConcurrentClosers_ExactlyOneWins(t *testing.T) {
	// GIVEN: One open mark and many concurrent close attempts
	// THEN: The guarded UPDATE lets exactly one through
	s := newTestStore(t)
	seedMark(t, s, "mark-1")

	const closers = 8
	var wg sync.WaitGroup
	errs := make([]error, closers)

	for i := 0; i < closers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.CloseMark(context.Background(), "mark-1", attendance.MarkClose{
				ExitTime: tod(12, 0),
				WorkedHours: dec("4"), NormalHours: dec("4"), ExtraHours: decimal.Zero,
				ClosedAt: time.Now(),
			})
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.ErrorIs(t, err, attendance.ErrAlreadyClosed)
		}
	}
	assert.Equal(t, 1, winners)
}

func TestListOpenMarks_ExcludesClosed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedMark(t, s, "mark-open")
	seedOpenMark(t, s, "mark-closed", "emp-2", schedule.NewDate(2026, time.March, 10))
	_, err := s.CloseMark(ctx, "mark-closed", attendance.MarkClose{
		ExitTime: tod(12, 0),
		WorkedHours: dec("4"), NormalHours: dec("4"), ExtraHours: decimal.Zero,
		ClosedAt: time.Now(),
	})
	require.NoError(t, err)

	open, err := s.ListOpenMarks(ctx, "proj-1")
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "mark-open", open[0].ID)
}

func TestListMarks_DateRangeNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for day := 8; day <= 11; day++ {
		date := schedule.NewDate(2026, time.March, day)
		seedOpenMark(t, s, "mark-"+date.String(), "emp-1", date)
	}

	from := schedule.NewDate(2026, time.March, 9)
	to := schedule.NewDate(2026, time.March, 10)
	marks, err := s.ListMarks(ctx, "emp-1", "proj-1", &from, &to)
	require.NoError(t, err)
	require.Len(t, marks, 2)
	assert.Equal(t, schedule.NewDate(2026, time.March, 10), marks[0].Date)
	assert.Equal(t, schedule.NewDate(2026, time.March, 9), marks[1].Date)
}

// =============================================================================
// DEBTS
// =============================================================================

func TestDebt_RoundTripAndFIFO(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	older := &attendance.HourDebt{
		ID: "debt-older", EmployeeID: "emp-1", ProjectID: "proj-1",
		PeriodStart: schedule.NewDate(2026, time.March, 2),
		HoursOwed:   dec("2"), Reason: attendance.ReasonAbsence,
		Status:    attendance.DebtActive,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	newer := &attendance.HourDebt{
		ID: "debt-newer", EmployeeID: "emp-1", ProjectID: "proj-1",
		PeriodStart: schedule.NewDate(2026, time.March, 9),
		HoursOwed:   dec("3"), Reason: attendance.ReasonAbsence,
		Status:    attendance.DebtActive,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	settled := &attendance.HourDebt{
		ID: "debt-settled", EmployeeID: "emp-1", ProjectID: "proj-1",
		PeriodStart: schedule.NewDate(2026, time.March, 1),
		HoursOwed:   dec("1"), HoursCompensated: dec("1"),
		Reason: attendance.ReasonAbsence, Status: attendance.DebtCompensated,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	require.NoError(t, s.SaveDebt(ctx, newer))
	require.NoError(t, s.SaveDebt(ctx, older))
	require.NoError(t, s.SaveDebt(ctx, settled))

	// Oldest period first, settled debts excluded
	active, err := s.ListActiveDebts(ctx, "emp-1", "proj-1")
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "debt-older", active[0].ID)
	assert.Equal(t, "debt-newer", active[1].ID)

	got, err := s.GetDebt(ctx, "debt-older")
	require.NoError(t, err)
	assert.True(t, dec("2").Equal(got.HoursOwed))
	assert.Equal(t, attendance.ReasonAbsence, got.Reason)
	assert.True(t, older.PeriodStart.Equal(got.PeriodStart))
}

func TestDebt_ListByStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i, status := range []attendance.DebtStatus{attendance.DebtActive, attendance.DebtCompensated} {
		require.NoError(t, s.SaveDebt(ctx, &attendance.HourDebt{
			ID: "debt-" + string(status), EmployeeID: "emp-1", ProjectID: "proj-1",
			PeriodStart: schedule.NewDate(2026, time.March, 2+i),
			HoursOwed:   dec("1"), Reason: attendance.ReasonAbsence, Status: status,
			CreatedAt: time.Now(), UpdatedAt: time.Now(),
		}))
	}

	status := attendance.DebtCompensated
	debts, err := s.ListDebts(ctx, "emp-1", "proj-1", &status)
	require.NoError(t, err)
	require.Len(t, debts, 1)
	assert.Equal(t, attendance.DebtCompensated, debts[0].Status)
}

// =============================================================================
// JUSTIFICATIONS
// =============================================================================

func TestJustification_RoundTripWithAttachment(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	j := &attendance.Justification{
		ID: "just-1", DebtID: "debt-1", EmployeeID: "emp-1", ProjectID: "proj-1",
		Reason: "medical appointment", Hours: dec("3.50"),
		Attachment: &attendance.Attachment{
			Name: "certificate.pdf", ContentType: "application/pdf", URL: "https://files/abc",
		},
		Status:    attendance.JustificationPending,
		CreatedAt: time.Now(),
	}
	require.NoError(t, s.SaveJustification(ctx, j))

	got, err := s.GetJustification(ctx, "just-1")
	require.NoError(t, err)
	assert.Equal(t, "medical appointment", got.Reason)
	assert.True(t, dec("3.50").Equal(got.Hours))
	require.NotNil(t, got.Attachment)
	assert.Equal(t, "certificate.pdf", got.Attachment.Name)
	assert.Equal(t, attendance.JustificationPending, got.Status)
}

func TestSumApprovedHours_OnlyApprovedInWindow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	monthStart := time.Date(2026, time.March, 1, 0, 0, 0, 0, schedule.LocalZone)
	save := func(id string, status attendance.JustificationStatus, hours string, at time.Time) {
		require.NoError(t, s.SaveJustification(ctx, &attendance.Justification{
			ID: id, DebtID: "debt-1", EmployeeID: "emp-1", ProjectID: "proj-1",
			Reason: "x", Hours: dec(hours), Status: status,
			CreatedAt: at,
		}))
	}
	save("just-approved-1", attendance.JustificationApproved, "2.25", monthStart.AddDate(0, 0, 3))
	save("just-approved-2", attendance.JustificationApproved, "1.25", monthStart.AddDate(0, 0, 5))
	save("just-pending", attendance.JustificationPending, "9", monthStart.AddDate(0, 0, 6))
	save("just-last-month", attendance.JustificationApproved, "9", monthStart.AddDate(0, 0, -2))

	sum, err := s.SumApprovedHours(ctx, "emp-1", "proj-1", monthStart, monthStart.AddDate(0, 1, 0))
	require.NoError(t, err)
	assert.Equal(t, "3.5", sum.String())
}

// =============================================================================
// CONFIG / PROJECTS / EMPLOYEES
// =============================================================================

func TestConfig_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	cfg := attendance.DefaultConfig("proj-1", time.Now())
	cfg.Enabled = true
	cfg.OvertimePolicy = attendance.PolicySeparateAccounts
	limit := dec("10")
	cfg.JustifiableHoursLimit = &limit
	require.NoError(t, s.SaveConfig(ctx, &cfg))

	got, err := s.FindConfig(ctx, "proj-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Enabled)
	assert.Equal(t, attendance.PolicySeparateAccounts, got.OvertimePolicy)
	require.NotNil(t, got.JustifiableHoursLimit)
	assert.True(t, limit.Equal(*got.JustifiableHoursLimit))
	assert.Equal(t, cfg.EntryReminderAt, got.EntryReminderAt)

	missing, err := s.FindConfig(ctx, "other")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestProject_ScheduleRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	morning := schedule.Window{Start: tod(8, 0), End: tod(12, 0)}
	afternoon := schedule.Window{Start: tod(13, 0), End: tod(17, 0)}
	require.NoError(t, s.SaveProject(ctx, &attendance.Project{
		ID: "proj-1", Name: "Site A", OwnerID: "admin-1",
		Schedule: schedule.Shifts{Morning: &morning, Afternoon: &afternoon},
	}))

	got, err := s.GetProject(ctx, "proj-1")
	require.NoError(t, err)
	assert.Equal(t, "Site A", got.Name)
	require.NotNil(t, got.Schedule)

	win, ok := schedule.ResolveWindow(got.Schedule, schedule.ShiftAfternoon)
	require.True(t, ok)
	assert.Equal(t, afternoon, win)
}

func TestListAutoCloseProjects_FiltersOnConfig(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	window := schedule.Window{Start: tod(9, 0), End: tod(17, 0)}
	for _, id := range []string{"proj-on", "proj-off", "proj-disabled"} {
		require.NoError(t, s.SaveProject(ctx, &attendance.Project{
			ID: id, Name: id, Schedule: schedule.Continuous{Window: window},
		}))
	}

	on := attendance.DefaultConfig("proj-on", time.Now())
	on.Enabled = true
	require.NoError(t, s.SaveConfig(ctx, &on))

	off := attendance.DefaultConfig("proj-off", time.Now())
	off.Enabled = true
	off.AutoCloseExit = false
	require.NoError(t, s.SaveConfig(ctx, &off))

	disabled := attendance.DefaultConfig("proj-disabled", time.Now())
	require.NoError(t, s.SaveConfig(ctx, &disabled))

	projects, err := s.ListAutoCloseProjects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, "proj-on", projects[0].ID)
}

func TestEmployee_OverrideRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveEmployee(ctx, &attendance.Employee{
		ID: "emp-1", ProjectID: "proj-1", UserID: "user-1", Name: "Ana",
		Active: true, AttendanceActive: true,
		Override: &schedule.Window{Start: tod(10, 0), End: tod(14, 0)},
	}))
	require.NoError(t, s.SaveEmployee(ctx, &attendance.Employee{
		ID: "emp-2", ProjectID: "proj-1", Name: "Bruno",
		Active: true, AttendanceActive: false,
	}))

	got, err := s.GetEmployee(ctx, "emp-1")
	require.NoError(t, err)
	require.NotNil(t, got.Override)
	assert.Equal(t, tod(10, 0), got.Override.Start)
	assert.Equal(t, tod(14, 0), got.Override.End)

	// emp-2 opted out of attendance tracking
	active, err := s.ListActiveEmployees(ctx, "proj-1")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "emp-1", active[0].ID)
}

// =============================================================================
// DAYS / NOTIFICATIONS
// =============================================================================

func TestUpsertDay_KeepsIDOnConflict(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.UpsertDay(ctx, &attendance.DayRecord{
		EmployeeID: "emp-1", ProjectID: "proj-1",
		Date:        schedule.NewDate(2026, time.March, 10),
		WorkedHours: dec("4"),
	})
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)

	second, err := s.UpsertDay(ctx, &attendance.DayRecord{
		EmployeeID: "emp-1", ProjectID: "proj-1",
		Date:        schedule.NewDate(2026, time.March, 10),
		WorkedHours: dec("8"),
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, dec("8").Equal(second.WorkedHours))
}

func TestNotifications_NewestFirstPerUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, time.March, 10, 9, 0, 0, 0, schedule.LocalZone)
	for i, id := range []string{"n-1", "n-2"} {
		require.NoError(t, s.SaveNotification(ctx, &attendance.Notification{
			ID: id, UserID: "user-1", Kind: attendance.NotifyDebtAlert,
			Title: "t", Message: "m", CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, s.SaveNotification(ctx, &attendance.Notification{
		ID: "n-other", UserID: "user-2", Kind: attendance.NotifyDebtAlert,
		Title: "t", Message: "m", CreatedAt: base,
	}))

	list, err := s.ListNotifications(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "n-2", list[0].ID)
	assert.Equal(t, "n-1", list[1].ID)
}
