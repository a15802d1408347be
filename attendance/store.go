/*
store.go - Persistence interfaces for the attendance engine

PURPOSE:
  Defines what the engine needs from storage without prescribing a backend.
  attendance/store provides an in-memory implementation for tests and dev;
  store/sqlite provides the production implementation.

THE ONE HARD REQUIREMENT:
  CloseMark must be atomic: the "exit_time is still null" check and the write
  that sets it must happen in the same update. Two concurrent closers (an
  interactive exit and the auto-close sweep) must resolve so that exactly one
  succeeds and the other gets ErrAlreadyClosed. Splitting read and write
  without re-checking at write time loses that guarantee.

CONVENTIONS:
  - Get* returns the record or a *NotFound sentinel, never (nil, nil)
  - Find* returns (nil, nil) when no record matches
  - Save* upserts by ID
*/
package attendance

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/attendance-engine/schedule"
)

// MarkStore persists attendance marks.
type MarkStore interface {
	// FindMark returns the employee's mark for a date, or (nil, nil).
	FindMark(ctx context.Context, employeeID, projectID string, date schedule.Date) (*Mark, error)

	GetMark(ctx context.Context, id string) (*Mark, error)

	SaveMark(ctx context.Context, m *Mark) error

	// CloseMark atomically sets the exit on an open mark. Returns
	// ErrAlreadyClosed when the mark is no longer open, ErrMarkNotFound when
	// it does not exist. On success the closed mark is returned.
	CloseMark(ctx context.Context, id string, close MarkClose) (*Mark, error)

	// AppendObservation appends one line to the mark's audit log.
	AppendObservation(ctx context.Context, id, note string) error

	// ListMarks returns an employee's marks, newest first. Nil bounds are
	// open-ended.
	ListMarks(ctx context.Context, employeeID, projectID string, from, to *schedule.Date) ([]*Mark, error)

	// ListOpenMarks returns every mark in the project with an entry and no
	// exit yet.
	ListOpenMarks(ctx context.Context, projectID string) ([]*Mark, error)

	// ListUnreviewedOvertime returns closed marks whose employee confirmed
	// continuity but whose overtime the admin has not reviewed yet.
	ListUnreviewedOvertime(ctx context.Context) ([]*Mark, error)
}

// DebtStore persists hour debts.
type DebtStore interface {
	GetDebt(ctx context.Context, id string) (*HourDebt, error)
	SaveDebt(ctx context.Context, d *HourDebt) error

	// ListActiveDebts returns active debts oldest-first by period start, the
	// FIFO order compensation applies them in.
	ListActiveDebts(ctx context.Context, employeeID, projectID string) ([]*HourDebt, error)

	// ListDebts returns debts newest-first, optionally filtered by status.
	ListDebts(ctx context.Context, employeeID, projectID string, status *DebtStatus) ([]*HourDebt, error)
}

// JustificationStore persists justifications.
type JustificationStore interface {
	GetJustification(ctx context.Context, id string) (*Justification, error)
	SaveJustification(ctx context.Context, j *Justification) error

	ListJustificationsByProject(ctx context.Context, projectID string, status *JustificationStatus) ([]*Justification, error)
	ListJustificationsByEmployee(ctx context.Context, employeeID, projectID string) ([]*Justification, error)

	// SumApprovedHours totals the hours of approved justifications the
	// employee created within [from, to). Used for the period limit check.
	SumApprovedHours(ctx context.Context, employeeID, projectID string, from, to time.Time) (decimal.Decimal, error)
}

// ConfigStore persists per-project attendance configuration.
type ConfigStore interface {
	// FindConfig returns the project's configuration, or (nil, nil) when it
	// has not been created yet.
	FindConfig(ctx context.Context, projectID string) (*Config, error)
	SaveConfig(ctx context.Context, c *Config) error
}

// DayStore persists the daily ledger rows the engine writes hours into.
type DayStore interface {
	// UpsertDay creates or updates the row keyed by (project, employee,
	// date) and returns it with its ID set.
	UpsertDay(ctx context.Context, d *DayRecord) (*DayRecord, error)
}

// ProjectStore is the read model for projects. Save exists for seeding and
// administration; the engine itself never mutates projects.
type ProjectStore interface {
	GetProject(ctx context.Context, id string) (*Project, error)
	SaveProject(ctx context.Context, p *Project) error

	// ListAutoCloseProjects returns projects whose configuration has both
	// attendance mode and automatic exit closing enabled.
	ListAutoCloseProjects(ctx context.Context) ([]*Project, error)
}

// EmployeeStore is the read model for employees.
type EmployeeStore interface {
	GetEmployee(ctx context.Context, id string) (*Employee, error)
	SaveEmployee(ctx context.Context, e *Employee) error

	// ListActiveEmployees returns employees with attendance tracking active,
	// the population the absence sweep scans.
	ListActiveEmployees(ctx context.Context, projectID string) ([]*Employee, error)
}

// NotificationStore persists delivered notifications for later readback.
type NotificationStore interface {
	SaveNotification(ctx context.Context, n *Notification) error
	ListNotifications(ctx context.Context, userID string) ([]*Notification, error)
}

// Store aggregates everything the engine needs from one backend.
type Store interface {
	MarkStore
	DebtStore
	JustificationStore
	ConfigStore
	DayStore
	ProjectStore
	EmployeeStore
	NotificationStore
}
