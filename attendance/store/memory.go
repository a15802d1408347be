// Package store provides an in-memory attendance.Store for tests and dev.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/schedule"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements attendance.Store with map-backed tables under one mutex.
// CloseMark performs its null-exit check and write under the same lock, which
// is what makes the manual/automatic close race safe here.
type Memory struct {
	mu sync.RWMutex

	marks          map[string]*attendance.Mark
	debts          map[string]*attendance.HourDebt
	justifications map[string]*attendance.Justification
	configs        map[string]*attendance.Config
	days           map[string]*attendance.DayRecord
	projects       map[string]*attendance.Project
	employees      map[string]*attendance.Employee
	notifications  []*attendance.Notification
}

var _ attendance.Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		marks:          make(map[string]*attendance.Mark),
		debts:          make(map[string]*attendance.HourDebt),
		justifications: make(map[string]*attendance.Justification),
		configs:        make(map[string]*attendance.Config),
		days:           make(map[string]*attendance.DayRecord),
		projects:       make(map[string]*attendance.Project),
		employees:      make(map[string]*attendance.Employee),
	}
}

// =============================================================================
// MARKS
// =============================================================================

func (m *Memory) FindMark(_ context.Context, employeeID, projectID string, date schedule.Date) (*attendance.Mark, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, mark := range m.marks {
		if mark.EmployeeID == employeeID && mark.ProjectID == projectID && mark.Date.Equal(date) {
			return cloneMark(mark), nil
		}
	}
	return nil, nil
}

func (m *Memory) GetMark(_ context.Context, id string) (*attendance.Mark, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mark, ok := m.marks[id]
	if !ok {
		return nil, attendance.ErrMarkNotFound
	}
	return cloneMark(mark), nil
}

func (m *Memory) SaveMark(_ context.Context, mark *attendance.Mark) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.marks[mark.ID] = cloneMark(mark)
	return nil
}

func (m *Memory) CloseMark(_ context.Context, id string, close attendance.MarkClose) (*attendance.Mark, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	mark, ok := m.marks[id]
	if !ok {
		return nil, attendance.ErrMarkNotFound
	}
	// Check-then-act under the same lock: the second closer fails here.
	if mark.ExitTime != nil {
		return nil, attendance.ErrAlreadyClosed
	}

	exit := close.ExitTime
	mark.ExitTime = &exit
	mark.ExitManual = close.Manual
	mark.ExitAutomatic = close.Automatic
	mark.ContinuityConfirmed = close.ContinuityConfirmed
	mark.WorkedHours = close.WorkedHours
	mark.NormalHours = close.NormalHours
	mark.ExtraHours = close.ExtraHours
	mark.ExitLat, mark.ExitLng = close.ExitLat, close.ExitLng
	if close.Observation != "" {
		mark.Observations = appendLine(mark.Observations, close.Observation)
	}
	mark.UpdatedAt = close.ClosedAt
	return cloneMark(mark), nil
}

func (m *Memory) AppendObservation(_ context.Context, id, note string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mark, ok := m.marks[id]
	if !ok {
		return attendance.ErrMarkNotFound
	}
	mark.Observations = appendLine(mark.Observations, note)
	return nil
}

func (m *Memory) ListMarks(_ context.Context, employeeID, projectID string, from, to *schedule.Date) ([]*attendance.Mark, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*attendance.Mark
	for _, mark := range m.marks {
		if mark.EmployeeID != employeeID || mark.ProjectID != projectID {
			continue
		}
		if from != nil && mark.Date.Before(*from) {
			continue
		}
		if to != nil && mark.Date.After(*to) {
			continue
		}
		result = append(result, cloneMark(mark))
	}
	sort.Slice(result, func(i, j int) bool { return result[j].Date.Before(result[i].Date) })
	return result, nil
}

func (m *Memory) ListOpenMarks(_ context.Context, projectID string) ([]*attendance.Mark, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*attendance.Mark
	for _, mark := range m.marks {
		if mark.ProjectID == projectID && mark.EntryTime != nil && mark.ExitTime == nil {
			result = append(result, cloneMark(mark))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}

func (m *Memory) ListUnreviewedOvertime(_ context.Context) ([]*attendance.Mark, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*attendance.Mark
	for _, mark := range m.marks {
		if mark.ContinuityConfirmed && !mark.AdminConfirmedOvertime && mark.ExitTime != nil {
			result = append(result, cloneMark(mark))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}

// =============================================================================
// DEBTS
// =============================================================================

func (m *Memory) GetDebt(_ context.Context, id string) (*attendance.HourDebt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	debt, ok := m.debts[id]
	if !ok {
		return nil, attendance.ErrDebtNotFound
	}
	return cloneDebt(debt), nil
}

func (m *Memory) SaveDebt(_ context.Context, debt *attendance.HourDebt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.debts[debt.ID] = cloneDebt(debt)
	return nil
}

func (m *Memory) ListActiveDebts(_ context.Context, employeeID, projectID string) ([]*attendance.HourDebt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*attendance.HourDebt
	for _, debt := range m.debts {
		if debt.EmployeeID == employeeID && debt.ProjectID == projectID && debt.Status == attendance.DebtActive {
			result = append(result, cloneDebt(debt))
		}
	}
	// FIFO: oldest period first, creation time as tiebreak.
	sort.Slice(result, func(i, j int) bool {
		if !result[i].PeriodStart.Equal(result[j].PeriodStart) {
			return result[i].PeriodStart.Before(result[j].PeriodStart)
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (m *Memory) ListDebts(_ context.Context, employeeID, projectID string, status *attendance.DebtStatus) ([]*attendance.HourDebt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*attendance.HourDebt
	for _, debt := range m.debts {
		if debt.EmployeeID != employeeID || debt.ProjectID != projectID {
			continue
		}
		if status != nil && debt.Status != *status {
			continue
		}
		result = append(result, cloneDebt(debt))
	}
	sort.Slice(result, func(i, j int) bool { return result[j].PeriodStart.Before(result[i].PeriodStart) })
	return result, nil
}

// =============================================================================
// JUSTIFICATIONS
// =============================================================================

func (m *Memory) GetJustification(_ context.Context, id string) (*attendance.Justification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.justifications[id]
	if !ok {
		return nil, attendance.ErrJustificationNotFound
	}
	return cloneJustification(j), nil
}

func (m *Memory) SaveJustification(_ context.Context, j *attendance.Justification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.justifications[j.ID] = cloneJustification(j)
	return nil
}

func (m *Memory) ListJustificationsByProject(_ context.Context, projectID string, status *attendance.JustificationStatus) ([]*attendance.Justification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*attendance.Justification
	for _, j := range m.justifications {
		if j.ProjectID != projectID {
			continue
		}
		if status != nil && j.Status != *status {
			continue
		}
		result = append(result, cloneJustification(j))
	}
	sort.Slice(result, func(i, j int) bool { return result[j].CreatedAt.Before(result[i].CreatedAt) })
	return result, nil
}

func (m *Memory) ListJustificationsByEmployee(_ context.Context, employeeID, projectID string) ([]*attendance.Justification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*attendance.Justification
	for _, j := range m.justifications {
		if j.EmployeeID == employeeID && j.ProjectID == projectID {
			result = append(result, cloneJustification(j))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[j].CreatedAt.Before(result[i].CreatedAt) })
	return result, nil
}

func (m *Memory) SumApprovedHours(_ context.Context, employeeID, projectID string, from, to time.Time) (decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := decimal.Zero
	for _, j := range m.justifications {
		if j.EmployeeID != employeeID || j.ProjectID != projectID {
			continue
		}
		if j.Status != attendance.JustificationApproved {
			continue
		}
		if j.CreatedAt.Before(from) || !j.CreatedAt.Before(to) {
			continue
		}
		total = total.Add(j.Hours)
	}
	return total, nil
}

// =============================================================================
// CONFIG
// =============================================================================

func (m *Memory) FindConfig(_ context.Context, projectID string) (*attendance.Config, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cfg, ok := m.configs[projectID]
	if !ok {
		return nil, nil
	}
	clone := *cfg
	return &clone, nil
}

func (m *Memory) SaveConfig(_ context.Context, cfg *attendance.Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *cfg
	m.configs[cfg.ProjectID] = &clone
	return nil
}

// =============================================================================
// DAYS
// =============================================================================

func dayKey(projectID, employeeID string, date schedule.Date) string {
	return projectID + "|" + employeeID + "|" + date.String()
}

func (m *Memory) UpsertDay(_ context.Context, d *attendance.DayRecord) (*attendance.DayRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := dayKey(d.ProjectID, d.EmployeeID, d.Date)
	existing, ok := m.days[key]
	if ok {
		d.ID = existing.ID
	} else if d.ID == "" {
		d.ID = uuid.NewString()
	}
	clone := *d
	m.days[key] = &clone
	result := clone
	return &result, nil
}

// =============================================================================
// PROJECTS / EMPLOYEES
// =============================================================================

func (m *Memory) GetProject(_ context.Context, id string) (*attendance.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, attendance.ErrProjectNotFound
	}
	clone := *p
	return &clone, nil
}

func (m *Memory) SaveProject(_ context.Context, p *attendance.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *p
	m.projects[p.ID] = &clone
	return nil
}

func (m *Memory) ListAutoCloseProjects(_ context.Context) ([]*attendance.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*attendance.Project
	for _, p := range m.projects {
		cfg, ok := m.configs[p.ID]
		if !ok || !cfg.Enabled || !cfg.AutoCloseExit {
			continue
		}
		clone := *p
		result = append(result, &clone)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) GetEmployee(_ context.Context, id string) (*attendance.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.employees[id]
	if !ok {
		return nil, attendance.ErrEmployeeNotFound
	}
	clone := *e
	return &clone, nil
}

func (m *Memory) SaveEmployee(_ context.Context, e *attendance.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *e
	m.employees[e.ID] = &clone
	return nil
}

func (m *Memory) ListActiveEmployees(_ context.Context, projectID string) ([]*attendance.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*attendance.Employee
	for _, e := range m.employees {
		if e.ProjectID == projectID && e.Active && e.AttendanceActive {
			clone := *e
			result = append(result, &clone)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// =============================================================================
// NOTIFICATIONS
// =============================================================================

func (m *Memory) SaveNotification(_ context.Context, n *attendance.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *n
	m.notifications = append(m.notifications, &clone)
	return nil
}

func (m *Memory) ListNotifications(_ context.Context, userID string) ([]*attendance.Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*attendance.Notification
	for _, n := range m.notifications {
		if n.UserID == userID {
			clone := *n
			result = append(result, &clone)
		}
	}
	return result, nil
}

// =============================================================================
// CLONE HELPERS
// =============================================================================

func cloneMark(m *attendance.Mark) *attendance.Mark {
	clone := *m
	clone.EntryTime = cloneTime(m.EntryTime)
	clone.ExitTime = cloneTime(m.ExitTime)
	clone.EntryLat = cloneDecimal(m.EntryLat)
	clone.EntryLng = cloneDecimal(m.EntryLng)
	clone.ExitLat = cloneDecimal(m.ExitLat)
	clone.ExitLng = cloneDecimal(m.ExitLng)
	return &clone
}

func cloneDebt(d *attendance.HourDebt) *attendance.HourDebt {
	clone := *d
	if d.PeriodEnd != nil {
		end := *d.PeriodEnd
		clone.PeriodEnd = &end
	}
	return &clone
}

func cloneJustification(j *attendance.Justification) *attendance.Justification {
	clone := *j
	if j.Attachment != nil {
		att := *j.Attachment
		clone.Attachment = &att
	}
	if j.ReviewedAt != nil {
		at := *j.ReviewedAt
		clone.ReviewedAt = &at
	}
	return &clone
}

func cloneTime(t *schedule.TimeOfDay) *schedule.TimeOfDay {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneDecimal(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	v := *d
	return &v
}

func appendLine(existing, line string) string {
	if existing == "" {
		return line
	}
	return existing + "\n" + line
}
