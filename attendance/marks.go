/*
marks.go - Entry/exit state machine for attendance marks

PURPOSE:
  Owns the lifecycle of a single employee-day mark:

    NoMark --MarkEntry--> EntryOpen --MarkExit/AutoClose--> Closed

  Exactly one entry per employee per date, and exactly one close: the close
  is delegated to Store.CloseMark, whose null-exit guard resolves the race
  between an interactive exit and the auto-close sweep.

HOURS:
  On close, worked hours are computed from entry/exit with midnight rollover.
  When attendance mode is active the worked hours are split into normal and
  extra against the resolved shift window; otherwise everything is normal.
  Results are written to the mark and mirrored into the daily ledger row, and
  positive extra hours are handed to the DebtLedger under the project's
  overtime policy.

ADMIN PATHS:
  EditMark overwrites times on open or closed marks (privileged), always
  recomputes, and appends a before/after audit line. It never re-triggers
  overtime processing; ConfirmOvertime is the separate explicit action for
  that, and rejection zeroes the extra hours.

SEE ALSO:
  - schedule: classification, window resolution, hour arithmetic
  - debt.go: overtime processing on close
  - api/scheduler.go: the auto-close sweep driving AutoClose
*/
package attendance

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/attendance-engine/schedule"
)

// MarkService owns the entry/exit state machine.
type MarkService struct {
	store    Store
	clock    schedule.Clock
	notifier Notifier
	debts    *DebtLedger
}

func NewMarkService(store Store, clock schedule.Clock, notifier Notifier, debts *DebtLedger) *MarkService {
	return &MarkService{store: store, clock: clock, notifier: notifier, debts: debts}
}

// =============================================================================
// ENTRY
// =============================================================================

// EntryInput marks an employee's arrival. Date and Time default to "now" in
// the project's fixed local offset.
type EntryInput struct {
	EmployeeID string
	ProjectID  string
	Date       *schedule.Date
	Time       *schedule.TimeOfDay
	Lat, Lng   *decimal.Decimal
}

// MarkEntry creates or reuses the day's mark and sets its entry.
// Fails with ErrDuplicateEntry when an entry already exists for that date.
func (s *MarkService) MarkEntry(ctx context.Context, in EntryInput) (*Mark, error) {
	employee, err := s.store.GetEmployee(ctx, in.EmployeeID)
	if err != nil {
		return nil, err
	}
	project, err := s.store.GetProject(ctx, in.ProjectID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	date := schedule.DateOf(now)
	if in.Date != nil {
		date = *in.Date
	}
	entry := schedule.TimeOfDayFrom(now)
	if in.Time != nil {
		entry = *in.Time
	}

	mark, err := s.store.FindMark(ctx, employee.ID, project.ID, date)
	if err != nil {
		return nil, err
	}
	if mark != nil && mark.EntryTime != nil {
		return nil, ErrDuplicateEntry
	}
	if mark == nil {
		mark = &Mark{
			ID:         uuid.NewString(),
			EmployeeID: employee.ID,
			ProjectID:  project.ID,
			Date:       date,
			CreatedAt:  now,
		}
	}

	mark.EntryTime = &entry
	mark.EntryManual = true
	mark.Shift = schedule.Classify(project.Schedule, entry)
	mark.EntryLat, mark.EntryLng = in.Lat, in.Lng
	mark.UpdatedAt = now

	if err := s.store.SaveMark(ctx, mark); err != nil {
		return nil, err
	}
	return mark, nil
}

// =============================================================================
// EXIT
// =============================================================================

// ExitInput closes an employee's day. ContinuityConfirmed records the
// employee's claim to still be working past the expected end.
type ExitInput struct {
	EmployeeID          string
	ProjectID           string
	Date                *schedule.Date
	Time                *schedule.TimeOfDay
	ContinuityConfirmed bool
	Lat, Lng            *decimal.Decimal
}

// MarkExit closes the day's mark manually. Fails with ErrNoOpenEntry when
// there is no entry to close and ErrAlreadyClosed when another closer won.
func (s *MarkService) MarkExit(ctx context.Context, in ExitInput) (*Mark, error) {
	project, err := s.store.GetProject(ctx, in.ProjectID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	date := schedule.DateOf(now)
	if in.Date != nil {
		date = *in.Date
	}
	exit := schedule.TimeOfDayFrom(now)
	if in.Time != nil {
		exit = *in.Time
	}

	mark, err := s.store.FindMark(ctx, in.EmployeeID, in.ProjectID, date)
	if err != nil {
		return nil, err
	}
	if mark == nil || mark.EntryTime == nil {
		return nil, ErrNoOpenEntry
	}
	if mark.ExitTime != nil {
		return nil, ErrAlreadyClosed
	}

	return s.close(ctx, mark, project, exit, closeOptions{
		manual:              true,
		continuityConfirmed: in.ContinuityConfirmed,
		lat:                 in.Lat,
		lng:                 in.Lng,
	})
}

// AutoClose force-closes an abandoned mark at its shift's closing time,
// through the same atomic close path as manual exits. The scheduler calls
// this per eligible mark; a lost race surfaces as ErrAlreadyClosed.
func (s *MarkService) AutoClose(ctx context.Context, markID string) (*Mark, error) {
	mark, err := s.store.GetMark(ctx, markID)
	if err != nil {
		return nil, err
	}
	if mark.EntryTime == nil {
		return nil, ErrNoOpenEntry
	}
	if mark.ExitTime != nil {
		return nil, ErrAlreadyClosed
	}

	project, err := s.store.GetProject(ctx, mark.ProjectID)
	if err != nil {
		return nil, err
	}
	closing, ok := schedule.ClosingTime(project.Schedule, mark.Shift)
	if !ok {
		return nil, ErrInvalidSchedule
	}

	return s.close(ctx, mark, project, closing, closeOptions{automatic: true})
}

type closeOptions struct {
	manual              bool
	automatic           bool
	continuityConfirmed bool
	lat, lng            *decimal.Decimal
}

// close computes hours, applies the atomic store close, mirrors the result
// into the daily ledger row, and routes overtime to the debt ledger.
func (s *MarkService) close(ctx context.Context, mark *Mark, project *Project, exit schedule.TimeOfDay, opts closeOptions) (*Mark, error) {
	cfg, err := getOrCreateConfig(ctx, s.store, s.clock, project.ID)
	if err != nil {
		return nil, err
	}

	worked := schedule.WorkedHours(*mark.EntryTime, exit)
	normal, extra := worked, decimal.Zero
	if cfg.Enabled {
		var window *schedule.Window
		if win, ok := schedule.ResolveWindow(project.Schedule, mark.Shift); ok {
			window = &win
		}
		normal, extra = schedule.SplitOvertime(worked, window)
	}

	now := s.clock.Now()
	var observation string
	if opts.automatic {
		observation = fmt.Sprintf("[Exit closed automatically at %s]", now.Format("2006-01-02 15:04:05"))
	}

	closed, err := s.store.CloseMark(ctx, mark.ID, MarkClose{
		ExitTime:            exit,
		Manual:              opts.manual,
		Automatic:           opts.automatic,
		ContinuityConfirmed: opts.continuityConfirmed,
		WorkedHours:         worked,
		NormalHours:         normal,
		ExtraHours:          extra,
		ExitLat:             opts.lat,
		ExitLng:             opts.lng,
		Observation:         observation,
		ClosedAt:            now,
	})
	if err != nil {
		return nil, err
	}

	// The exit is durably recorded past this point. Anything that fails now
	// is logged, not surfaced: a retry of the close would only observe
	// AlreadyClosed, so the caller gets the closed mark.
	if err := s.writeDayRow(ctx, closed); err != nil {
		log.Printf("[Attendance] day ledger update for mark %s: %v", closed.ID, err)
	}

	if opts.automatic {
		if employee, err := s.store.GetEmployee(ctx, closed.EmployeeID); err == nil {
			notify(s.notifier, autoCloseNotification(
				employee.UserID, project.ID, closed.Date.String(), exit.String()))
		}
	}

	if cfg.Enabled && extra.IsPositive() {
		if _, err := s.debts.ProcessOvertime(ctx, closed.EmployeeID, project.ID, extra, cfg.OvertimePolicy); err != nil {
			// The extra hours remain visible on the mark for a manual pass.
			log.Printf("[Attendance] overtime routing for mark %s: %v", closed.ID, err)
		}
	}

	return closed, nil
}

// writeDayRow mirrors the mark's computed hours into the daily ledger row,
// creating a minimal row when none exists, and links the mark to it.
func (s *MarkService) writeDayRow(ctx context.Context, mark *Mark) error {
	day, err := s.store.UpsertDay(ctx, &DayRecord{
		ProjectID:   mark.ProjectID,
		EmployeeID:  mark.EmployeeID,
		Date:        mark.Date,
		Weekday:     mark.Date.Weekday().String(),
		EntryTime:   mark.EntryTime,
		ExitTime:    mark.ExitTime,
		WorkedHours: mark.WorkedHours,
		ActualHours: mark.WorkedHours,
		ExtraHours:  mark.ExtraHours,
	})
	if err != nil {
		return err
	}
	if mark.DayID != day.ID {
		mark.DayID = day.ID
		return s.store.SaveMark(ctx, mark)
	}
	return nil
}

// =============================================================================
// ADMINISTRATIVE EDIT
// =============================================================================

// EditInput corrects a mark's times. The privileged path: it may overwrite
// an already-closed mark.
type EditInput struct {
	MarkID    string
	EntryTime *schedule.TimeOfDay
	ExitTime  *schedule.TimeOfDay
	Note      string
	ActorID   string
}

// EditMark overwrites entry/exit on a mark, recomputes hours, and appends a
// before/after audit line. Overtime processing is never re-triggered here;
// confirming extra hours is ConfirmOvertime's job.
func (s *MarkService) EditMark(ctx context.Context, in EditInput) (*Mark, error) {
	mark, err := s.store.GetMark(ctx, in.MarkID)
	if err != nil {
		return nil, err
	}
	project, err := s.store.GetProject(ctx, mark.ProjectID)
	if err != nil {
		return nil, err
	}

	formatTime := func(t *schedule.TimeOfDay) string {
		if t == nil {
			return "unset"
		}
		return t.String()
	}

	var changes []string
	if in.EntryTime != nil {
		changes = append(changes, fmt.Sprintf("entry %s -> %s", formatTime(mark.EntryTime), in.EntryTime))
		mark.EntryTime = in.EntryTime
	}
	if in.ExitTime != nil {
		changes = append(changes, fmt.Sprintf("exit %s -> %s", formatTime(mark.ExitTime), in.ExitTime))
		mark.ExitTime = in.ExitTime
		mark.ExitManual = true
	}
	if len(changes) == 0 {
		return mark, nil
	}

	if mark.EntryTime != nil && mark.ExitTime != nil {
		cfg, err := getOrCreateConfig(ctx, s.store, s.clock, project.ID)
		if err != nil {
			return nil, err
		}
		worked := schedule.WorkedHours(*mark.EntryTime, *mark.ExitTime)
		normal, extra := worked, decimal.Zero
		if cfg.Enabled {
			var window *schedule.Window
			if win, ok := schedule.ResolveWindow(project.Schedule, mark.Shift); ok {
				window = &win
			}
			normal, extra = schedule.SplitOvertime(worked, window)
		}
		mark.WorkedHours, mark.NormalHours, mark.ExtraHours = worked, normal, extra
	}

	now := s.clock.Now()
	changeLine := strings.Join(changes, ", ")
	audit := fmt.Sprintf("[Edited by %s at %s] %s", in.ActorID, now.Format("2006-01-02 15:04:05"), changeLine)
	if in.Note != "" {
		audit += fmt.Sprintf(" (%s)", in.Note)
	}
	mark.Observations = appendObservation(mark.Observations, audit)
	mark.UpdatedAt = now

	if err := s.store.SaveMark(ctx, mark); err != nil {
		return nil, err
	}
	if mark.Closed() {
		if err := s.writeDayRow(ctx, mark); err != nil {
			return nil, err
		}
	}

	if employee, err := s.store.GetEmployee(ctx, mark.EmployeeID); err == nil {
		notify(s.notifier, markEditedNotification(
			employee.UserID, mark.ProjectID, mark.ID, mark.Date.String(), changeLine))
	}
	return mark, nil
}

// ConfirmOvertime records the admin's verdict on a mark's extra hours.
// Rejection zeroes the extra hours and leaves the normal hours untouched.
func (s *MarkService) ConfirmOvertime(ctx context.Context, markID string, approved bool, comment, actorID string) (*Mark, error) {
	mark, err := s.store.GetMark(ctx, markID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	verdict := "confirmed"
	if !approved {
		verdict = "rejected"
		mark.ExtraHours = decimal.Zero
	}
	mark.AdminConfirmedOvertime = approved

	audit := fmt.Sprintf("[Overtime %s by %s at %s]", verdict, actorID, now.Format("2006-01-02 15:04:05"))
	if comment != "" {
		audit += fmt.Sprintf(" %s", comment)
	}
	mark.Observations = appendObservation(mark.Observations, audit)
	mark.UpdatedAt = now

	if err := s.store.SaveMark(ctx, mark); err != nil {
		return nil, err
	}
	if mark.Closed() {
		if err := s.writeDayRow(ctx, mark); err != nil {
			return nil, err
		}
	}

	if employee, err := s.store.GetEmployee(ctx, mark.EmployeeID); err == nil {
		notify(s.notifier, overtimeReviewedNotification(
			employee.UserID, mark.ProjectID, mark.ID, mark.Date.String(), approved))
	}
	return mark, nil
}

func appendObservation(existing, line string) string {
	if existing == "" {
		return line
	}
	return existing + "\n" + line
}

// RemindUnreviewedOvertime notifies each project owner about closed marks
// whose overtime still awaits review. Returns how many projects were
// reminded. The background sweep calls this every couple of hours.
func (s *MarkService) RemindUnreviewedOvertime(ctx context.Context) (int, error) {
	marks, err := s.store.ListUnreviewedOvertime(ctx)
	if err != nil {
		return 0, err
	}

	byProject := make(map[string]int)
	for _, m := range marks {
		byProject[m.ProjectID]++
	}

	reminded := 0
	for projectID, pending := range byProject {
		project, err := s.store.GetProject(ctx, projectID)
		if err != nil {
			log.Printf("[Attendance] overtime reminder for project %s: %v", projectID, err)
			continue
		}
		if project.OwnerID == "" {
			continue
		}
		notify(s.notifier, overtimeReviewRequestNotification(project.OwnerID, projectID, pending))
		reminded++
	}
	return reminded, nil
}
