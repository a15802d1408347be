/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

WIRE FORMATS:
  - Dates: "YYYY-MM-DD"
  - Times of day: "HH:MM:SS" (seconds optional on input)
  - Hour quantities: decimal strings ("8.50"), never floats

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - schedule/schedule.go: ConfigJSON, the schedule wire form
*/
package api

import (
	"github.com/shopspring/decimal"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/schedule"
)

// =============================================================================
// MARKS
// =============================================================================

// MarkDTO represents an attendance mark in API responses.
type MarkDTO struct {
	ID         string `json:"id"`
	EmployeeID string `json:"employee_id"`
	ProjectID  string `json:"project_id"`
	Date       string `json:"date"`
	Shift      string `json:"shift,omitempty"`

	EntryTime *string `json:"entry_time"`
	ExitTime  *string `json:"exit_time"`

	EntryManual   bool `json:"entry_manual"`
	ExitManual    bool `json:"exit_manual"`
	ExitAutomatic bool `json:"exit_automatic"`

	ContinuityConfirmed    bool `json:"continuity_confirmed"`
	AdminConfirmedOvertime bool `json:"admin_confirmed_overtime"`

	WorkedHours decimal.Decimal `json:"worked_hours"`
	NormalHours decimal.Decimal `json:"normal_hours"`
	ExtraHours  decimal.Decimal `json:"extra_hours"`

	Observations string `json:"observations,omitempty"`
}

// MarkEntryRequest marks an arrival. Date and time default to "now".
type MarkEntryRequest struct {
	EmployeeID string           `json:"employee_id"`
	ProjectID  string           `json:"project_id"`
	Date       string           `json:"date,omitempty"`
	Time       string           `json:"time,omitempty"`
	Lat        *decimal.Decimal `json:"lat,omitempty"`
	Lng        *decimal.Decimal `json:"lng,omitempty"`
}

// MarkExitRequest closes the day.
type MarkExitRequest struct {
	EmployeeID          string           `json:"employee_id"`
	ProjectID           string           `json:"project_id"`
	Date                string           `json:"date,omitempty"`
	Time                string           `json:"time,omitempty"`
	ContinuityConfirmed bool             `json:"continuity_confirmed,omitempty"`
	Lat                 *decimal.Decimal `json:"lat,omitempty"`
	Lng                 *decimal.Decimal `json:"lng,omitempty"`
}

// EditMarkRequest corrects a mark's times (admin path).
type EditMarkRequest struct {
	EntryTime string `json:"entry_time,omitempty"`
	ExitTime  string `json:"exit_time,omitempty"`
	Note      string `json:"note,omitempty"`
	ActorID   string `json:"actor_id"`
}

// ConfirmOvertimeRequest reviews a mark's extra hours.
type ConfirmOvertimeRequest struct {
	Approved bool   `json:"approved"`
	Comment  string `json:"comment,omitempty"`
	ActorID  string `json:"actor_id"`
}

// DetectAbsencesRequest triggers the absence sweep for one project and date.
type DetectAbsencesRequest struct {
	ProjectID string `json:"project_id"`
	Date      string `json:"date"`
}

// DetectAbsencesResponse reports how many debts the sweep opened.
type DetectAbsencesResponse struct {
	DebtsOpened int `json:"debts_opened"`
}

// =============================================================================
// DEBTS
// =============================================================================

// DebtDTO represents an hour debt in API responses.
type DebtDTO struct {
	ID         string `json:"id"`
	EmployeeID string `json:"employee_id"`
	ProjectID  string `json:"project_id"`

	PeriodStart string  `json:"period_start"`
	PeriodEnd   *string `json:"period_end"`

	HoursOwed        decimal.Decimal `json:"hours_owed"`
	HoursJustified   decimal.Decimal `json:"hours_justified"`
	HoursCompensated decimal.Decimal `json:"hours_compensated"`
	HoursPending     decimal.Decimal `json:"hours_pending"`

	Status      string `json:"status"`
	Reason      string `json:"reason"`
	Description string `json:"description,omitempty"`
}

// =============================================================================
// JUSTIFICATIONS
// =============================================================================

// JustificationDTO represents a justification in API responses.
type JustificationDTO struct {
	ID         string `json:"id"`
	DebtID     string `json:"debt_id"`
	EmployeeID string `json:"employee_id"`
	ProjectID  string `json:"project_id"`

	Reason     string                 `json:"reason"`
	Hours      decimal.Decimal        `json:"hours"`
	Attachment *attendance.Attachment `json:"attachment,omitempty"`

	Status        string `json:"status"`
	ReviewerID    string `json:"reviewer_id,omitempty"`
	ReviewComment string `json:"review_comment,omitempty"`
}

// SubmitJustificationRequest creates a pending justification against a debt.
type SubmitJustificationRequest struct {
	DebtID      string                 `json:"debt_id"`
	RequesterID string                 `json:"requester_id"`
	Reason      string                 `json:"reason"`
	Hours       decimal.Decimal        `json:"hours"`
	Attachment  *attendance.Attachment `json:"attachment,omitempty"`
}

// ReviewJustificationRequest approves or rejects a pending justification.
type ReviewJustificationRequest struct {
	ReviewerID string `json:"reviewer_id"`
	Comment    string `json:"comment,omitempty"`
}

// =============================================================================
// CONFIG
// =============================================================================

// ConfigDTO represents a project's attendance configuration.
type ConfigDTO struct {
	ProjectID string `json:"project_id"`

	Enabled        bool   `json:"enabled"`
	OvertimePolicy string `json:"overtime_policy"`

	LateToleranceMinutes int  `json:"late_tolerance_minutes"`
	AutoCloseExit        bool `json:"auto_close_exit"`

	JustificationsAllowed         bool             `json:"justifications_allowed"`
	JustificationsRequireApproval bool             `json:"justifications_require_approval"`
	JustifiableHoursLimit         *decimal.Decimal `json:"justifiable_hours_limit"`
	LimitPeriod                   string           `json:"limit_period"`

	NotifyMarkReminders bool   `json:"notify_mark_reminders"`
	NotifyDebtAlerts    bool   `json:"notify_debt_alerts"`
	EntryReminderAt     string `json:"entry_reminder_at"`
	ExitReminderAt      string `json:"exit_reminder_at"`

	DefaultAbsenceHours decimal.Decimal `json:"default_absence_hours"`
}

// UpdateConfigRequest carries the fields an admin may change.
// Absent fields are left unchanged.
type UpdateConfigRequest struct {
	OvertimePolicy                *string          `json:"overtime_policy,omitempty"`
	LateToleranceMinutes          *int             `json:"late_tolerance_minutes,omitempty"`
	AutoCloseExit                 *bool            `json:"auto_close_exit,omitempty"`
	JustificationsAllowed         *bool            `json:"justifications_allowed,omitempty"`
	JustificationsRequireApproval *bool            `json:"justifications_require_approval,omitempty"`
	JustifiableHoursLimit         *decimal.Decimal `json:"justifiable_hours_limit,omitempty"`
	ClearJustifiableHoursLimit    bool             `json:"clear_justifiable_hours_limit,omitempty"`
	LimitPeriod                   *string          `json:"limit_period,omitempty"`
	NotifyMarkReminders           *bool            `json:"notify_mark_reminders,omitempty"`
	NotifyDebtAlerts              *bool            `json:"notify_debt_alerts,omitempty"`
	EntryReminderAt               *string          `json:"entry_reminder_at,omitempty"`
	ExitReminderAt                *string          `json:"exit_reminder_at,omitempty"`
	DefaultAbsenceHours           *decimal.Decimal `json:"default_absence_hours,omitempty"`
}

// =============================================================================
// PROJECTS / EMPLOYEES
// =============================================================================

// ProjectDTO represents a project and its schedule.
type ProjectDTO struct {
	ID       string               `json:"id"`
	Name     string               `json:"name"`
	OwnerID  string               `json:"owner_id,omitempty"`
	Schedule *schedule.ConfigJSON `json:"schedule,omitempty"`
}

// CreateProjectRequest creates or replaces a project.
type CreateProjectRequest struct {
	ID       string               `json:"id"`
	Name     string               `json:"name"`
	OwnerID  string               `json:"owner_id,omitempty"`
	Schedule *schedule.ConfigJSON `json:"schedule,omitempty"`
}

// EmployeeDTO represents an employee in API responses.
type EmployeeDTO struct {
	ID               string `json:"id"`
	ProjectID        string `json:"project_id"`
	UserID           string `json:"user_id,omitempty"`
	Name             string `json:"name"`
	Active           bool   `json:"active"`
	AttendanceActive bool   `json:"attendance_active"`

	OverrideStart string `json:"override_start,omitempty"`
	OverrideEnd   string `json:"override_end,omitempty"`
}

// CreateEmployeeRequest creates or replaces an employee.
type CreateEmployeeRequest struct {
	ID               string `json:"id"`
	ProjectID        string `json:"project_id"`
	UserID           string `json:"user_id,omitempty"`
	Name             string `json:"name"`
	Active           *bool  `json:"active,omitempty"`
	AttendanceActive *bool  `json:"attendance_active,omitempty"`
	OverrideStart    string `json:"override_start,omitempty"`
	OverrideEnd      string `json:"override_end,omitempty"`
}

// =============================================================================
// NOTIFICATIONS / ERRORS
// =============================================================================

// NotificationDTO represents a stored notification.
type NotificationDTO struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user_id"`
	Kind      string            `json:"kind"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	ActionURL string            `json:"action_url,omitempty"`
	CreatedAt string            `json:"created_at"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func toMarkDTO(m *attendance.Mark) MarkDTO {
	return MarkDTO{
		ID:                     m.ID,
		EmployeeID:             m.EmployeeID,
		ProjectID:              m.ProjectID,
		Date:                   m.Date.String(),
		Shift:                  string(m.Shift),
		EntryTime:              timeOfDayString(m.EntryTime),
		ExitTime:               timeOfDayString(m.ExitTime),
		EntryManual:            m.EntryManual,
		ExitManual:             m.ExitManual,
		ExitAutomatic:          m.ExitAutomatic,
		ContinuityConfirmed:    m.ContinuityConfirmed,
		AdminConfirmedOvertime: m.AdminConfirmedOvertime,
		WorkedHours:            m.WorkedHours,
		NormalHours:            m.NormalHours,
		ExtraHours:             m.ExtraHours,
		Observations:           m.Observations,
	}
}

func toMarkDTOs(marks []*attendance.Mark) []MarkDTO {
	dtos := make([]MarkDTO, 0, len(marks))
	for _, m := range marks {
		dtos = append(dtos, toMarkDTO(m))
	}
	return dtos
}

func toDebtDTO(d *attendance.HourDebt) DebtDTO {
	var periodEnd *string
	if d.PeriodEnd != nil {
		s := d.PeriodEnd.String()
		periodEnd = &s
	}
	return DebtDTO{
		ID:               d.ID,
		EmployeeID:       d.EmployeeID,
		ProjectID:        d.ProjectID,
		PeriodStart:      d.PeriodStart.String(),
		PeriodEnd:        periodEnd,
		HoursOwed:        d.HoursOwed,
		HoursJustified:   d.HoursJustified,
		HoursCompensated: d.HoursCompensated,
		HoursPending:     d.Pending(),
		Status:           string(d.Status),
		Reason:           string(d.Reason),
		Description:      d.Description,
	}
}

func toJustificationDTO(j *attendance.Justification) JustificationDTO {
	return JustificationDTO{
		ID:            j.ID,
		DebtID:        j.DebtID,
		EmployeeID:    j.EmployeeID,
		ProjectID:     j.ProjectID,
		Reason:        j.Reason,
		Hours:         j.Hours,
		Attachment:    j.Attachment,
		Status:        string(j.Status),
		ReviewerID:    j.ReviewerID,
		ReviewComment: j.ReviewComment,
	}
}

func toConfigDTO(c *attendance.Config) ConfigDTO {
	return ConfigDTO{
		ProjectID:                     c.ProjectID,
		Enabled:                       c.Enabled,
		OvertimePolicy:                string(c.OvertimePolicy),
		LateToleranceMinutes:          c.LateToleranceMinutes,
		AutoCloseExit:                 c.AutoCloseExit,
		JustificationsAllowed:         c.JustificationsAllowed,
		JustificationsRequireApproval: c.JustificationsRequireApproval,
		JustifiableHoursLimit:         c.JustifiableHoursLimit,
		LimitPeriod:                   string(c.LimitPeriod),
		NotifyMarkReminders:           c.NotifyMarkReminders,
		NotifyDebtAlerts:              c.NotifyDebtAlerts,
		EntryReminderAt:               c.EntryReminderAt.String(),
		ExitReminderAt:                c.ExitReminderAt.String(),
		DefaultAbsenceHours:           c.DefaultAbsenceHours,
	}
}

func toEmployeeDTO(e *attendance.Employee) EmployeeDTO {
	dto := EmployeeDTO{
		ID:               e.ID,
		ProjectID:        e.ProjectID,
		UserID:           e.UserID,
		Name:             e.Name,
		Active:           e.Active,
		AttendanceActive: e.AttendanceActive,
	}
	if e.Override != nil {
		dto.OverrideStart = e.Override.Start.String()
		dto.OverrideEnd = e.Override.End.String()
	}
	return dto
}

func toProjectDTO(p *attendance.Project) ProjectDTO {
	dto := ProjectDTO{ID: p.ID, Name: p.Name, OwnerID: p.OwnerID}
	if p.Schedule != nil {
		j := schedule.FromConfig(p.Schedule)
		dto.Schedule = &j
	}
	return dto
}

func timeOfDayString(t *schedule.TimeOfDay) *string {
	if t == nil {
		return nil
	}
	s := t.String()
	return &s
}
