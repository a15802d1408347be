/*
scheduler.go - Background auto-close and reminder sweeps

PURPOSE:
  Periodically force-closes abandoned open marks at their shift's closing
  time, and reminds project owners about overtime awaiting review.

DESIGN:
  - Two tickers in one background goroutine
  - Auto-close sweep (hourly): for every project with attendance mode and
    automatic exit closing enabled, close eligible open marks through
    MarkService.AutoClose. Eligibility:
      * mark from a previous date: always
      * mark from today: only at or past the shift's closing time, and not
        when the employee confirmed continuity
  - Reminder sweep (every 2 hours): notify owners of unreviewed overtime
  - Per-mark errors are logged and the sweep continues; a lost close race
    (someone exited at the same moment) is expected, not an error

USAGE:
  scheduler := NewAutoCloseScheduler(store, handler.Marks, clock)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - attendance/marks.go: AutoClose and RemindUnreviewedOvertime
  - handlers.go: DetectAbsences endpoint (manual absence sweep)
*/
package api

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/schedule"
)

// AutoCloseScheduler runs the periodic auto-close and reminder sweeps.
type AutoCloseScheduler struct {
	Store            attendance.Store
	Marks            *attendance.MarkService
	Clock            schedule.Clock
	CheckInterval    time.Duration
	ReminderInterval time.Duration
	Enabled          bool

	closeTicker    *time.Ticker
	reminderTicker *time.Ticker
	stop           chan bool
	wg             sync.WaitGroup
	mu             sync.Mutex
}

// NewAutoCloseScheduler creates a scheduler with default intervals.
func NewAutoCloseScheduler(store attendance.Store, marks *attendance.MarkService, clock schedule.Clock) *AutoCloseScheduler {
	return &AutoCloseScheduler{
		Store:            store,
		Marks:            marks,
		Clock:            clock,
		CheckInterval:    1 * time.Hour,
		ReminderInterval: 2 * time.Hour,
		Enabled:          true,
		stop:             make(chan bool),
	}
}

// Start begins the scheduler.
func (s *AutoCloseScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}

	s.closeTicker = time.NewTicker(s.CheckInterval)
	s.reminderTicker = time.NewTicker(s.ReminderInterval)
	s.wg.Add(1)

	go s.run()

	log.Printf("[Scheduler] Started: auto-close every %v, reminders every %v",
		s.CheckInterval, s.ReminderInterval)
}

// Stop stops the scheduler.
func (s *AutoCloseScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closeTicker != nil {
		s.closeTicker.Stop()
		s.reminderTicker.Stop()
		close(s.stop)
		s.wg.Wait()
		log.Println("[Scheduler] Stopped")
	}
}

func (s *AutoCloseScheduler) run() {
	defer s.wg.Done()

	// Run the close sweep immediately on start
	s.sweepAutoClose()

	for {
		select {
		case <-s.closeTicker.C:
			s.sweepAutoClose()
		case <-s.reminderTicker.C:
			s.sweepReminders()
		case <-s.stop:
			return
		}
	}
}

// RunNow triggers an immediate close sweep (for testing/admin).
func (s *AutoCloseScheduler) RunNow() {
	s.sweepAutoClose()
}

// sweepAutoClose closes eligible open marks across all auto-close projects.
func (s *AutoCloseScheduler) sweepAutoClose() {
	ctx := context.Background()
	now := s.Clock.Now()

	projects, err := s.Store.ListAutoCloseProjects(ctx)
	if err != nil {
		log.Printf("[Scheduler] Error listing projects: %v", err)
		return
	}

	closedCount := 0
	skippedCount := 0

	for _, project := range projects {
		open, err := s.Store.ListOpenMarks(ctx, project.ID)
		if err != nil {
			log.Printf("[Scheduler] Error listing open marks for %s: %v", project.ID, err)
			continue
		}

		for _, mark := range open {
			if !s.eligible(mark, project, now) {
				skippedCount++
				continue
			}

			_, err := s.Marks.AutoClose(ctx, mark.ID)
			switch {
			case err == nil:
				closedCount++
			case errors.Is(err, attendance.ErrAlreadyClosed):
				// Lost the race to a manual exit; nothing to do.
				skippedCount++
			default:
				log.Printf("[Scheduler] Error closing mark %s: %v", mark.ID, err)
			}
		}
	}

	if closedCount > 0 || skippedCount > 0 {
		log.Printf("[Scheduler] Auto-close completed: %d closed, %d skipped", closedCount, skippedCount)
	}
}

// eligible reports whether an open mark should be force-closed now.
func (s *AutoCloseScheduler) eligible(mark *attendance.Mark, project *attendance.Project, now time.Time) bool {
	today := schedule.DateOf(now)

	// Anything left open from a previous date is overdue.
	if mark.Date.Before(today) {
		return true
	}
	if mark.Date.After(today) {
		return false
	}

	// Today's marks wait for the shift's closing time, and the employee can
	// hold the mark open by confirming continuity.
	if mark.ContinuityConfirmed {
		return false
	}
	closing, ok := schedule.ClosingTime(project.Schedule, mark.Shift)
	if !ok {
		return false
	}
	return schedule.TimeOfDayFrom(now).AfterOrEqual(closing)
}

// sweepReminders nudges project owners about overtime awaiting review.
func (s *AutoCloseScheduler) sweepReminders() {
	reminded, err := s.Marks.RemindUnreviewedOvertime(context.Background())
	if err != nil {
		log.Printf("[Scheduler] Error sending overtime reminders: %v", err)
		return
	}
	if reminded > 0 {
		log.Printf("[Scheduler] Overtime reminders sent to %d project owner(s)", reminded)
	}
}
