/*
handlers.go - HTTP API handlers for the attendance engine

PURPOSE:
  Exposes the attendance engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Attendance:
    POST   /api/attendance/entry                      Mark arrival
    POST   /api/attendance/exit                       Mark departure
    GET    /api/attendance/today                      Today's mark for an employee
    GET    /api/attendance/marks                      Mark history
    PUT    /api/attendance/marks/{id}                 Edit a mark (admin)
    POST   /api/attendance/marks/{id}/confirm-overtime Review extra hours
    GET    /api/attendance/overtime/pending           Unreviewed overtime
    POST   /api/attendance/detect-absences            Run the absence sweep

  Debts:
    GET    /api/debts                                 Debt list per employee
    GET    /api/debts/{id}                            Debt detail

  Justifications:
    POST   /api/justifications                        Submit against a debt
    GET    /api/justifications                        List (project or employee)
    POST   /api/justifications/{id}/approve           Approve pending
    POST   /api/justifications/{id}/reject            Reject pending

  Config:
    GET    /api/projects/{id}/attendance-config       Read (lazy-created)
    PUT    /api/projects/{id}/attendance-config       Update fields
    POST   /api/projects/{id}/attendance-config/activate
    POST   /api/projects/{id}/attendance-config/deactivate

  Seeding:
    POST   /api/projects, GET /api/projects/{id}
    POST   /api/employees, GET /api/employees/{id}

  Notifications:
    GET    /api/notifications?user_id=...

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, domain rule violations
  - 404: Resource not found
  - 409: Conflict (duplicate entry, mark already closed)
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - scheduler.go: Background auto-close sweep
*/
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/schedule"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store attendance.Store
	Clock schedule.Clock

	Marks          *attendance.MarkService
	Debts          *attendance.DebtLedger
	Justifications *attendance.JustificationWorkflow
	Config         *attendance.ConfigService
}

// NewHandler wires the domain services over one store.
func NewHandler(store attendance.Store, clock schedule.Clock, notifier attendance.Notifier) *Handler {
	debts := attendance.NewDebtLedger(store, clock, notifier)
	return &Handler{
		Store:          store,
		Clock:          clock,
		Marks:          attendance.NewMarkService(store, clock, notifier, debts),
		Debts:          debts,
		Justifications: attendance.NewJustificationWorkflow(store, clock, notifier),
		Config:         attendance.NewConfigService(store, clock),
	}
}

// =============================================================================
// ATTENDANCE ENDPOINTS
// =============================================================================

// MarkEntry records an arrival.
// POST /api/attendance/entry
func (h *Handler) MarkEntry(w http.ResponseWriter, r *http.Request) {
	var req MarkEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	date, err := parseDateParam(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}
	at, err := parseTimeParam(req.Time)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid time format (use HH:MM:SS)", err)
		return
	}

	mark, err := h.Marks.MarkEntry(r.Context(), attendance.EntryInput{
		EmployeeID: req.EmployeeID,
		ProjectID:  req.ProjectID,
		Date:       date,
		Time:       at,
		Lat:        req.Lat,
		Lng:        req.Lng,
	})
	if err != nil {
		writeDomainError(w, "Failed to mark entry", err)
		return
	}

	writeJSON(w, http.StatusCreated, toMarkDTO(mark))
}

// MarkExit closes the day's mark.
// POST /api/attendance/exit
func (h *Handler) MarkExit(w http.ResponseWriter, r *http.Request) {
	var req MarkExitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	date, err := parseDateParam(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}
	at, err := parseTimeParam(req.Time)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid time format (use HH:MM:SS)", err)
		return
	}

	mark, err := h.Marks.MarkExit(r.Context(), attendance.ExitInput{
		EmployeeID:          req.EmployeeID,
		ProjectID:           req.ProjectID,
		Date:                date,
		Time:                at,
		ContinuityConfirmed: req.ContinuityConfirmed,
		Lat:                 req.Lat,
		Lng:                 req.Lng,
	})
	if err != nil {
		writeDomainError(w, "Failed to mark exit", err)
		return
	}

	writeJSON(w, http.StatusOK, toMarkDTO(mark))
}

// GetToday returns the employee's mark for the current date, or 404.
// GET /api/attendance/today?employee_id=...&project_id=...
func (h *Handler) GetToday(w http.ResponseWriter, r *http.Request) {
	employeeID := r.URL.Query().Get("employee_id")
	projectID := r.URL.Query().Get("project_id")
	if employeeID == "" || projectID == "" {
		writeError(w, http.StatusBadRequest, "employee_id and project_id are required", nil)
		return
	}

	today := schedule.DateOf(h.Clock.Now())
	mark, err := h.Store.FindMark(r.Context(), employeeID, projectID, today)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get mark", err)
		return
	}
	if mark == nil {
		writeError(w, http.StatusNotFound, "No mark for today", nil)
		return
	}

	writeJSON(w, http.StatusOK, toMarkDTO(mark))
}

// ListMarks returns an employee's mark history, newest first.
// GET /api/attendance/marks?employee_id=...&project_id=...&from=...&to=...
func (h *Handler) ListMarks(w http.ResponseWriter, r *http.Request) {
	employeeID := r.URL.Query().Get("employee_id")
	projectID := r.URL.Query().Get("project_id")
	if employeeID == "" || projectID == "" {
		writeError(w, http.StatusBadRequest, "employee_id and project_id are required", nil)
		return
	}

	from, err := parseDateParam(r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid from date", err)
		return
	}
	to, err := parseDateParam(r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid to date", err)
		return
	}

	marks, err := h.Store.ListMarks(r.Context(), employeeID, projectID, from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list marks", err)
		return
	}

	writeJSON(w, http.StatusOK, toMarkDTOs(marks))
}

// EditMark corrects a mark's times and appends an audit line.
// PUT /api/attendance/marks/{id}
func (h *Handler) EditMark(w http.ResponseWriter, r *http.Request) {
	markID := chi.URLParam(r, "id")

	var req EditMarkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ActorID == "" {
		writeError(w, http.StatusBadRequest, "actor_id is required", nil)
		return
	}

	entry, err := parseTimeParam(req.EntryTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid entry_time", err)
		return
	}
	exit, err := parseTimeParam(req.ExitTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid exit_time", err)
		return
	}

	mark, err := h.Marks.EditMark(r.Context(), attendance.EditInput{
		MarkID:    markID,
		EntryTime: entry,
		ExitTime:  exit,
		Note:      req.Note,
		ActorID:   req.ActorID,
	})
	if err != nil {
		writeDomainError(w, "Failed to edit mark", err)
		return
	}

	writeJSON(w, http.StatusOK, toMarkDTO(mark))
}

// ConfirmOvertime approves or rejects a mark's extra hours.
// POST /api/attendance/marks/{id}/confirm-overtime
func (h *Handler) ConfirmOvertime(w http.ResponseWriter, r *http.Request) {
	markID := chi.URLParam(r, "id")

	var req ConfirmOvertimeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ActorID == "" {
		writeError(w, http.StatusBadRequest, "actor_id is required", nil)
		return
	}

	mark, err := h.Marks.ConfirmOvertime(r.Context(), markID, req.Approved, req.Comment, req.ActorID)
	if err != nil {
		writeDomainError(w, "Failed to confirm overtime", err)
		return
	}

	writeJSON(w, http.StatusOK, toMarkDTO(mark))
}

// ListPendingOvertime returns closed marks awaiting overtime review.
// GET /api/attendance/overtime/pending
func (h *Handler) ListPendingOvertime(w http.ResponseWriter, r *http.Request) {
	marks, err := h.Store.ListUnreviewedOvertime(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list overtime", err)
		return
	}
	writeJSON(w, http.StatusOK, toMarkDTOs(marks))
}

// DetectAbsences opens debts for employees with no entry on a date.
// POST /api/attendance/detect-absences
func (h *Handler) DetectAbsences(w http.ResponseWriter, r *http.Request) {
	var req DetectAbsencesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	date, err := schedule.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	opened, err := h.Debts.DetectAbsences(r.Context(), req.ProjectID, date)
	if err != nil {
		writeDomainError(w, "Failed to detect absences", err)
		return
	}

	writeJSON(w, http.StatusOK, DetectAbsencesResponse{DebtsOpened: opened})
}

// =============================================================================
// DEBT ENDPOINTS
// =============================================================================

// ListDebts returns an employee's debts, newest first.
// GET /api/debts?employee_id=...&project_id=...&status=...
func (h *Handler) ListDebts(w http.ResponseWriter, r *http.Request) {
	employeeID := r.URL.Query().Get("employee_id")
	projectID := r.URL.Query().Get("project_id")
	if employeeID == "" || projectID == "" {
		writeError(w, http.StatusBadRequest, "employee_id and project_id are required", nil)
		return
	}

	var status *attendance.DebtStatus
	if s := r.URL.Query().Get("status"); s != "" {
		st := attendance.DebtStatus(s)
		status = &st
	}

	debts, err := h.Store.ListDebts(r.Context(), employeeID, projectID, status)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list debts", err)
		return
	}

	dtos := make([]DebtDTO, 0, len(debts))
	for _, d := range debts {
		dtos = append(dtos, toDebtDTO(d))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetDebt returns one debt with its derived pending hours.
// GET /api/debts/{id}
func (h *Handler) GetDebt(w http.ResponseWriter, r *http.Request) {
	debt, err := h.Store.GetDebt(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to get debt", err)
		return
	}
	writeJSON(w, http.StatusOK, toDebtDTO(debt))
}

// =============================================================================
// JUSTIFICATION ENDPOINTS
// =============================================================================

// SubmitJustification creates a pending justification against a debt.
// POST /api/justifications
func (h *Handler) SubmitJustification(w http.ResponseWriter, r *http.Request) {
	var req SubmitJustificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	j, err := h.Justifications.Submit(r.Context(), attendance.SubmitInput{
		DebtID:      req.DebtID,
		RequesterID: req.RequesterID,
		Reason:      req.Reason,
		Hours:       req.Hours,
		Attachment:  req.Attachment,
	})
	if err != nil {
		writeDomainError(w, "Failed to submit justification", err)
		return
	}

	writeJSON(w, http.StatusCreated, toJustificationDTO(j))
}

// ListJustifications lists by project (optionally by status) or by employee.
// GET /api/justifications?project_id=...&status=... or ?employee_id=...&project_id=...
func (h *Handler) ListJustifications(w http.ResponseWriter, r *http.Request) {
	projectID := r.URL.Query().Get("project_id")
	employeeID := r.URL.Query().Get("employee_id")
	if projectID == "" {
		writeError(w, http.StatusBadRequest, "project_id is required", nil)
		return
	}

	var (
		list []*attendance.Justification
		err  error
	)
	if employeeID != "" {
		list, err = h.Store.ListJustificationsByEmployee(r.Context(), employeeID, projectID)
	} else {
		var status *attendance.JustificationStatus
		if s := r.URL.Query().Get("status"); s != "" {
			st := attendance.JustificationStatus(s)
			status = &st
		}
		list, err = h.Store.ListJustificationsByProject(r.Context(), projectID, status)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list justifications", err)
		return
	}

	dtos := make([]JustificationDTO, 0, len(list))
	for _, j := range list {
		dtos = append(dtos, toJustificationDTO(j))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ApproveJustification approves a pending justification.
// POST /api/justifications/{id}/approve
func (h *Handler) ApproveJustification(w http.ResponseWriter, r *http.Request) {
	var req ReviewJustificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	j, err := h.Justifications.Approve(r.Context(), chi.URLParam(r, "id"), req.ReviewerID, req.Comment)
	if err != nil {
		writeDomainError(w, "Failed to approve justification", err)
		return
	}

	writeJSON(w, http.StatusOK, toJustificationDTO(j))
}

// RejectJustification rejects a pending justification. A comment is required.
// POST /api/justifications/{id}/reject
func (h *Handler) RejectJustification(w http.ResponseWriter, r *http.Request) {
	var req ReviewJustificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	j, err := h.Justifications.Reject(r.Context(), chi.URLParam(r, "id"), req.ReviewerID, req.Comment)
	if err != nil {
		writeDomainError(w, "Failed to reject justification", err)
		return
	}

	writeJSON(w, http.StatusOK, toJustificationDTO(j))
}

// =============================================================================
// CONFIG ENDPOINTS
// =============================================================================

// GetConfig returns the project's configuration, creating defaults lazily.
// GET /api/projects/{id}/attendance-config
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.Config.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to get config", err)
		return
	}
	writeJSON(w, http.StatusOK, toConfigDTO(cfg))
}

// UpdateConfig applies the changed fields.
// PUT /api/projects/{id}/attendance-config
func (h *Handler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	var req UpdateConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	update := attendance.ConfigUpdate{
		LateToleranceMinutes:          req.LateToleranceMinutes,
		AutoCloseExit:                 req.AutoCloseExit,
		JustificationsAllowed:         req.JustificationsAllowed,
		JustificationsRequireApproval: req.JustificationsRequireApproval,
		JustifiableHoursLimit:         req.JustifiableHoursLimit,
		ClearJustifiableHoursLimit:    req.ClearJustifiableHoursLimit,
		NotifyMarkReminders:           req.NotifyMarkReminders,
		NotifyDebtAlerts:              req.NotifyDebtAlerts,
		DefaultAbsenceHours:           req.DefaultAbsenceHours,
	}
	if req.OvertimePolicy != nil {
		p := attendance.OvertimePolicy(*req.OvertimePolicy)
		update.OvertimePolicy = &p
	}
	if req.LimitPeriod != nil {
		p := attendance.LimitPeriod(*req.LimitPeriod)
		update.LimitPeriod = &p
	}
	if req.EntryReminderAt != nil {
		t, err := schedule.ParseTimeOfDay(*req.EntryReminderAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid entry_reminder_at", err)
			return
		}
		update.EntryReminderAt = &t
	}
	if req.ExitReminderAt != nil {
		t, err := schedule.ParseTimeOfDay(*req.ExitReminderAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid exit_reminder_at", err)
			return
		}
		update.ExitReminderAt = &t
	}

	cfg, err := h.Config.Update(r.Context(), chi.URLParam(r, "id"), update)
	if err != nil {
		writeDomainError(w, "Failed to update config", err)
		return
	}

	writeJSON(w, http.StatusOK, toConfigDTO(cfg))
}

// ActivateConfig enables attendance mode. Fails when the project has no
// valid schedule.
// POST /api/projects/{id}/attendance-config/activate
func (h *Handler) ActivateConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.Config.Activate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to activate attendance", err)
		return
	}
	writeJSON(w, http.StatusOK, toConfigDTO(cfg))
}

// DeactivateConfig disables attendance mode.
// POST /api/projects/{id}/attendance-config/deactivate
func (h *Handler) DeactivateConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.Config.Deactivate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to deactivate attendance", err)
		return
	}
	writeJSON(w, http.StatusOK, toConfigDTO(cfg))
}

// =============================================================================
// PROJECT / EMPLOYEE ENDPOINTS
// =============================================================================

// CreateProject creates or replaces a project.
// POST /api/projects
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "id and name are required", nil)
		return
	}

	project := &attendance.Project{ID: req.ID, Name: req.Name, OwnerID: req.OwnerID}
	if req.Schedule != nil {
		cfg, err := req.Schedule.ToConfig()
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid schedule", err)
			return
		}
		if err := cfg.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid schedule", err)
			return
		}
		project.Schedule = cfg
	}

	if err := h.Store.SaveProject(r.Context(), project); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save project", err)
		return
	}

	writeJSON(w, http.StatusCreated, toProjectDTO(project))
}

// GetProject returns one project.
// GET /api/projects/{id}
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	project, err := h.Store.GetProject(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to get project", err)
		return
	}
	writeJSON(w, http.StatusOK, toProjectDTO(project))
}

// CreateEmployee creates or replaces an employee.
// POST /api/employees
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req CreateEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" || req.ProjectID == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "id, project_id and name are required", nil)
		return
	}

	employee := &attendance.Employee{
		ID:               req.ID,
		ProjectID:        req.ProjectID,
		UserID:           req.UserID,
		Name:             req.Name,
		Active:           true,
		AttendanceActive: true,
	}
	if req.Active != nil {
		employee.Active = *req.Active
	}
	if req.AttendanceActive != nil {
		employee.AttendanceActive = *req.AttendanceActive
	}
	if req.OverrideStart != "" && req.OverrideEnd != "" {
		start, err := schedule.ParseTimeOfDay(req.OverrideStart)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid override_start", err)
			return
		}
		end, err := schedule.ParseTimeOfDay(req.OverrideEnd)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid override_end", err)
			return
		}
		employee.Override = &schedule.Window{Start: start, End: end}
	}

	if err := h.Store.SaveEmployee(r.Context(), employee); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save employee", err)
		return
	}

	writeJSON(w, http.StatusCreated, toEmployeeDTO(employee))
}

// GetEmployee returns one employee.
// GET /api/employees/{id}
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	employee, err := h.Store.GetEmployee(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to get employee", err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(employee))
}

// =============================================================================
// NOTIFICATION ENDPOINTS
// =============================================================================

// ListNotifications returns a user's notifications.
// GET /api/notifications?user_id=...
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required", nil)
		return
	}

	list, err := h.Store.ListNotifications(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list notifications", err)
		return
	}

	dtos := make([]NotificationDTO, 0, len(list))
	for _, n := range list {
		dtos = append(dtos, NotificationDTO{
			ID:        n.ID,
			UserID:    n.UserID,
			Kind:      string(n.Kind),
			Title:     n.Title,
			Message:   n.Message,
			Metadata:  n.Metadata,
			ActionURL: n.ActionURL,
			CreatedAt: n.CreatedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// HELPERS
// =============================================================================

func parseDateParam(s string) (*schedule.Date, error) {
	if s == "" {
		return nil, nil
	}
	d, err := schedule.ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func parseTimeParam(s string) (*schedule.TimeOfDay, error) {
	if s == "" {
		return nil, nil
	}
	t, err := schedule.ParseTimeOfDay(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps engine errors onto HTTP status codes.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case attendance.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case attendance.IsConflict(err):
		writeError(w, http.StatusConflict, message, err)
	case attendance.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, fmt.Errorf("internal error: %w", err))
	}
}
