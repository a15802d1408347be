/*
Package attendance implements the attendance reconciliation engine.

PURPOSE:
  Tracks employee entry/exit marks per project, computes worked/normal/
  overtime hours against the project's schedule, maintains an hour-debt
  ledger per employee, and runs justification approval against that ledger.

KEY CONCEPTS IN THIS FILE (types.go):
  - Mark: one employee's entry/exit record for one calendar date
  - HourDebt: owed hours from an absence or shortfall
  - Justification: a request to excuse part of a debt, pending admin review
  - Config: per-project attendance configuration (one per project, lazy)
  - DayRecord: the daily ledger row the engine writes hours into

DESIGN PRINCIPLES:
  1. Closed enums per field so invalid states are unrepresentable
  2. decimal.Decimal for every hour quantity, 2dp half-up
  3. hours_pending is always derived, never stored
  4. Marks close exactly once; the store enforces the close atomically

SEE ALSO:
  - marks.go: Entry/exit state machine
  - debt.go: Debt lifecycle and overtime policies
  - justification.go: Approval workflow
  - store.go: Persistence interfaces
*/
package attendance

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/attendance-engine/schedule"
)

// =============================================================================
// ENUMS
// =============================================================================

// OvertimePolicy controls what happens to extra hours when an employee has
// outstanding debt.
type OvertimePolicy string

const (
	// PolicyCompensateDebt applies extra hours to active debts, oldest first.
	PolicyCompensateDebt OvertimePolicy = "compensate_debt"
	// PolicyBlockOvertime discards extra hours while any active debt exists.
	PolicyBlockOvertime OvertimePolicy = "block_overtime"
	// PolicySeparateAccounts keeps extra hours and debts independent.
	PolicySeparateAccounts OvertimePolicy = "separate_accounts"
)

func (p OvertimePolicy) Valid() bool {
	switch p {
	case PolicyCompensateDebt, PolicyBlockOvertime, PolicySeparateAccounts:
		return true
	}
	return false
}

// DebtStatus is the lifecycle state of an hour debt.
type DebtStatus string

const (
	DebtActive      DebtStatus = "active"
	DebtJustified   DebtStatus = "justified"
	DebtCompensated DebtStatus = "compensated"
	DebtClosed      DebtStatus = "closed"
)

// DebtReason records why the debt was opened.
type DebtReason string

const (
	ReasonAbsence    DebtReason = "absence"
	ReasonEarlyLeave DebtReason = "early_leave"
	ReasonLateEntry  DebtReason = "late_entry"
	ReasonOther      DebtReason = "other"
)

// JustificationStatus is the one-shot approval state of a justification.
type JustificationStatus string

const (
	JustificationPending  JustificationStatus = "pending"
	JustificationApproved JustificationStatus = "approved"
	JustificationRejected JustificationStatus = "rejected"
)

// LimitPeriod is the reset period for the justifiable-hours limit.
type LimitPeriod string

const (
	LimitDaily   LimitPeriod = "daily"
	LimitWeekly  LimitPeriod = "weekly"
	LimitMonthly LimitPeriod = "monthly"
	LimitYearly  LimitPeriod = "yearly"
)

func (p LimitPeriod) Valid() bool {
	switch p {
	case LimitDaily, LimitWeekly, LimitMonthly, LimitYearly:
		return true
	}
	return false
}

// =============================================================================
// MARK - One employee's entry/exit record for one calendar date
// =============================================================================

type Mark struct {
	ID         string
	EmployeeID string
	ProjectID  string
	DayID      string // linked daily ledger row, set on close
	Date       schedule.Date
	Shift      schedule.Shift

	EntryTime *schedule.TimeOfDay
	ExitTime  *schedule.TimeOfDay

	EntryManual   bool
	ExitManual    bool
	ExitAutomatic bool

	// ContinuityConfirmed means the employee claims to still be working past
	// the expected end; auto-close skips such marks.
	ContinuityConfirmed    bool
	AdminConfirmedOvertime bool

	WorkedHours decimal.Decimal
	NormalHours decimal.Decimal
	ExtraHours  decimal.Decimal

	// Observations is an append-only audit log.
	Observations string

	// Geolocation is stored as reported, never validated.
	EntryLat *decimal.Decimal
	EntryLng *decimal.Decimal
	ExitLat  *decimal.Decimal
	ExitLng  *decimal.Decimal

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Open reports whether the mark has an entry but no exit yet.
func (m *Mark) Open() bool { return m.EntryTime != nil && m.ExitTime == nil }

// Closed reports whether the exit has been set.
func (m *Mark) Closed() bool { return m.ExitTime != nil }

// MarkClose is the atomic close payload applied by Store.CloseMark.
// The store must only apply it while exit_time is still null.
type MarkClose struct {
	ExitTime            schedule.TimeOfDay
	Manual              bool
	Automatic           bool
	ContinuityConfirmed bool

	WorkedHours decimal.Decimal
	NormalHours decimal.Decimal
	ExtraHours  decimal.Decimal

	ExitLat *decimal.Decimal
	ExitLng *decimal.Decimal

	Observation string // appended to the mark's log, may be empty
	ClosedAt    time.Time
}

// =============================================================================
// HOUR DEBT
// =============================================================================

type HourDebt struct {
	ID         string
	EmployeeID string
	ProjectID  string

	PeriodStart schedule.Date
	PeriodEnd   *schedule.Date // nil = open

	HoursOwed        decimal.Decimal
	HoursJustified   decimal.Decimal
	HoursCompensated decimal.Decimal

	Status      DebtStatus
	Reason      DebtReason
	Description string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// pendingRaw is owed − justified − compensated, which may be negative when a
// debt was over-covered.
func (d *HourDebt) pendingRaw() decimal.Decimal {
	return d.HoursOwed.Sub(d.HoursJustified).Sub(d.HoursCompensated).Round(2)
}

// Pending returns the hours still owed, clamped at zero.
func (d *HourDebt) Pending() decimal.Decimal {
	p := d.pendingRaw()
	if p.IsNegative() {
		return decimal.Zero
	}
	return p
}

// Settled reports whether nothing is pending.
func (d *HourDebt) Settled() bool { return !d.pendingRaw().IsPositive() }

// =============================================================================
// JUSTIFICATION
// =============================================================================

// Attachment is opaque metadata for a file attached to a justification.
// The engine stores it; it never reads the file.
type Attachment struct {
	Name        string
	ContentType string
	URL         string
	Size        int64
}

type Justification struct {
	ID         string
	DebtID     string
	EmployeeID string
	ProjectID  string

	Reason     string
	Hours      decimal.Decimal
	Attachment *Attachment

	Status        JustificationStatus
	ReviewerID    string
	ReviewComment string
	ReviewedAt    *time.Time

	CreatedAt time.Time
}

// =============================================================================
// CONFIG - Per-project attendance configuration
// =============================================================================

type Config struct {
	ProjectID string

	Enabled        bool
	OvertimePolicy OvertimePolicy

	LateToleranceMinutes int
	AutoCloseExit        bool

	JustificationsAllowed         bool
	JustificationsRequireApproval bool
	JustifiableHoursLimit         *decimal.Decimal // nil = no limit
	LimitPeriod                   LimitPeriod

	NotifyMarkReminders bool
	NotifyDebtAlerts    bool
	EntryReminderAt     schedule.TimeOfDay
	ExitReminderAt      schedule.TimeOfDay

	// DefaultAbsenceHours is the owed-hours fallback when no schedule window
	// is configured anywhere for an absent employee.
	DefaultAbsenceHours decimal.Decimal

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DefaultConfig returns the lazy-creation defaults for a project.
func DefaultConfig(projectID string, now time.Time) Config {
	return Config{
		ProjectID:                     projectID,
		Enabled:                       false,
		OvertimePolicy:                PolicyCompensateDebt,
		LateToleranceMinutes:          15,
		AutoCloseExit:                 true,
		JustificationsAllowed:         true,
		JustificationsRequireApproval: true,
		LimitPeriod:                   LimitMonthly,
		NotifyMarkReminders:           true,
		NotifyDebtAlerts:              true,
		EntryReminderAt:               schedule.NewTimeOfDay(9, 0, 0),
		ExitReminderAt:                schedule.NewTimeOfDay(18, 0, 0),
		DefaultAbsenceHours:           schedule.DefaultAbsenceHours,
		CreatedAt:                     now,
		UpdatedAt:                     now,
	}
}

// =============================================================================
// DAY RECORD - Daily ledger row owned by the day-tracking subsystem
// =============================================================================

// DayRecord is the per-employee-per-date ledger row the engine writes computed
// hours into. The engine creates a minimal row when none exists.
type DayRecord struct {
	ID         string
	ProjectID  string
	EmployeeID string
	Date       schedule.Date
	Weekday    string

	EntryTime *schedule.TimeOfDay
	ExitTime  *schedule.TimeOfDay

	WorkedHours decimal.Decimal
	ActualHours decimal.Decimal
	ExtraHours  decimal.Decimal
}

// =============================================================================
// READ MODELS - Project and Employee (never mutated by the engine)
// =============================================================================

type Project struct {
	ID      string
	Name    string
	OwnerID string // admin user who reviews overtime and justifications

	Schedule schedule.Config
}

type Employee struct {
	ID        string
	ProjectID string
	UserID    string // linked account for notifications, may be empty
	Name      string

	Active           bool
	AttendanceActive bool

	// Override is an active per-person expected window that replaces the
	// project schedule for absence-debt calculation.
	Override *schedule.Window
}

// =============================================================================
// NOTIFICATIONS - Fire-and-forget outbound side effects
// =============================================================================

type NotificationKind string

const (
	NotifyAutoCloseExit         NotificationKind = "auto_close_exit"
	NotifyMarkEdited            NotificationKind = "mark_edited"
	NotifyOvertimeConfirmed     NotificationKind = "overtime_confirmed"
	NotifyOvertimeRejected      NotificationKind = "overtime_rejected"
	NotifyJustificationApproved NotificationKind = "justification_approved"
	NotifyJustificationRejected NotificationKind = "justification_rejected"
	NotifyDebtAlert             NotificationKind = "debt_alert"
	NotifyOvertimeReview        NotificationKind = "overtime_review_requested"
)

type Notification struct {
	ID        string
	UserID    string
	Kind      NotificationKind
	Title     string
	Message   string
	Metadata  map[string]string
	ActionURL string
	CreatedAt time.Time
}

// Notifier delivers notifications. Failures must not roll back the engine's
// own state changes; callers log and continue.
type Notifier interface {
	Notify(n Notification) error
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

func (NopNotifier) Notify(Notification) error { return nil }
