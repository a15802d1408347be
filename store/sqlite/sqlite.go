/*
Package sqlite provides the SQLite-backed implementation of attendance.Store.

PURPOSE:
  Persists marks, hour debts, justifications, per-project configuration,
  daily ledger rows, projects, employees, and notifications. The same
  patterns apply to PostgreSQL - only minor SQL dialect differences.

THE ATOMIC CLOSE:
  CloseMark is a single guarded UPDATE:

      UPDATE marks SET exit_time = ?, ... WHERE id = ? AND exit_time IS NULL

  RowsAffected == 0 means another closer won the race (or the mark does not
  exist); a follow-up lookup distinguishes ErrAlreadyClosed from
  ErrMarkNotFound. The check and the write are one statement, so two
  concurrent closers always resolve to exactly one winner.

ENCODINGS:
  - Dates as "YYYY-MM-DD" text
  - Times of day as "HH:MM:SS" text
  - Hour quantities as decimal strings (exact, no float drift)
  - Timestamps as RFC3339 UTC text
  - Schedule configuration as JSON (schedule.ConfigJSON)

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - attendance/store.go: Interface definitions
  - attendance/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/schedule"
)

// Store implements attendance.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ attendance.Store = (*Store)(nil)

// New creates a SQLite store at the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Attendance marks (one per employee per date)
	CREATE TABLE IF NOT EXISTS marks (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		project_id TEXT NOT NULL,
		day_id TEXT NOT NULL DEFAULT '',
		date TEXT NOT NULL,
		shift TEXT NOT NULL DEFAULT '',
		entry_time TEXT,
		exit_time TEXT,
		entry_manual BOOLEAN NOT NULL DEFAULT FALSE,
		exit_manual BOOLEAN NOT NULL DEFAULT FALSE,
		exit_automatic BOOLEAN NOT NULL DEFAULT FALSE,
		continuity_confirmed BOOLEAN NOT NULL DEFAULT FALSE,
		admin_confirmed_overtime BOOLEAN NOT NULL DEFAULT FALSE,
		worked_hours TEXT NOT NULL DEFAULT '0',
		normal_hours TEXT NOT NULL DEFAULT '0',
		extra_hours TEXT NOT NULL DEFAULT '0',
		observations TEXT NOT NULL DEFAULT '',
		entry_lat TEXT,
		entry_lng TEXT,
		exit_lat TEXT,
		exit_lng TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- One mark per employee per date per project
	CREATE UNIQUE INDEX IF NOT EXISTS idx_marks_employee_date
		ON marks(employee_id, project_id, date);

	-- Open-mark sweep (hot path for auto-close)
	CREATE INDEX IF NOT EXISTS idx_marks_project_open
		ON marks(project_id) WHERE entry_time IS NOT NULL AND exit_time IS NULL;

	-- Hour debts
	CREATE TABLE IF NOT EXISTS hour_debts (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		project_id TEXT NOT NULL,
		period_start TEXT NOT NULL,
		period_end TEXT,
		hours_owed TEXT NOT NULL,
		hours_justified TEXT NOT NULL DEFAULT '0',
		hours_compensated TEXT NOT NULL DEFAULT '0',
		status TEXT NOT NULL,
		reason TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- FIFO compensation scans active debts oldest-first
	CREATE INDEX IF NOT EXISTS idx_debts_employee_status
		ON hour_debts(employee_id, project_id, status, period_start);

	-- Justifications
	CREATE TABLE IF NOT EXISTS justifications (
		id TEXT PRIMARY KEY,
		debt_id TEXT NOT NULL,
		employee_id TEXT NOT NULL,
		project_id TEXT NOT NULL,
		reason TEXT NOT NULL,
		hours TEXT NOT NULL,
		attachment_json TEXT,
		status TEXT NOT NULL,
		reviewer_id TEXT NOT NULL DEFAULT '',
		review_comment TEXT NOT NULL DEFAULT '',
		reviewed_at TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_justifications_project_status
		ON justifications(project_id, status);
	CREATE INDEX IF NOT EXISTS idx_justifications_employee
		ON justifications(employee_id, project_id, created_at);

	-- Per-project attendance configuration
	CREATE TABLE IF NOT EXISTS attendance_configs (
		project_id TEXT PRIMARY KEY,
		enabled BOOLEAN NOT NULL DEFAULT FALSE,
		overtime_policy TEXT NOT NULL,
		late_tolerance_minutes INTEGER NOT NULL,
		auto_close_exit BOOLEAN NOT NULL,
		justifications_allowed BOOLEAN NOT NULL,
		justifications_require_approval BOOLEAN NOT NULL,
		justifiable_hours_limit TEXT,
		limit_period TEXT NOT NULL,
		notify_mark_reminders BOOLEAN NOT NULL,
		notify_debt_alerts BOOLEAN NOT NULL,
		entry_reminder_at TEXT NOT NULL,
		exit_reminder_at TEXT NOT NULL,
		default_absence_hours TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Daily ledger rows
	CREATE TABLE IF NOT EXISTS days (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		employee_id TEXT NOT NULL,
		date TEXT NOT NULL,
		weekday TEXT NOT NULL DEFAULT '',
		entry_time TEXT,
		exit_time TEXT,
		worked_hours TEXT NOT NULL DEFAULT '0',
		actual_hours TEXT NOT NULL DEFAULT '0',
		extra_hours TEXT NOT NULL DEFAULT '0',
		UNIQUE(project_id, employee_id, date)
	);

	-- Projects
	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		owner_id TEXT NOT NULL DEFAULT '',
		schedule_json TEXT
	);

	-- Employees
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		user_id TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		attendance_active BOOLEAN NOT NULL DEFAULT TRUE,
		override_start TEXT,
		override_end TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_employees_project
		ON employees(project_id, active, attendance_active);

	-- Notifications
	CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		metadata_json TEXT,
		action_url TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_notifications_user
		ON notifications(user_id, created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// MARKS
// =============================================================================

const markColumns = `id, employee_id, project_id, day_id, date, shift,
	entry_time, exit_time, entry_manual, exit_manual, exit_automatic,
	continuity_confirmed, admin_confirmed_overtime,
	worked_hours, normal_hours, extra_hours, observations,
	entry_lat, entry_lng, exit_lat, exit_lng, created_at, updated_at`

func (s *Store) FindMark(ctx context.Context, employeeID, projectID string, date schedule.Date) (*attendance.Mark, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+markColumns+` FROM marks WHERE employee_id = ? AND project_id = ? AND date = ?`,
		employeeID, projectID, date.String())

	mark, err := scanMark(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return mark, err
}

func (s *Store) GetMark(ctx context.Context, id string) (*attendance.Mark, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getMark(ctx, id)
}

func (s *Store) getMark(ctx context.Context, id string) (*attendance.Mark, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+markColumns+` FROM marks WHERE id = ?`, id)

	mark, err := scanMark(row)
	if err == sql.ErrNoRows {
		return nil, attendance.ErrMarkNotFound
	}
	return mark, err
}

func (s *Store) SaveMark(ctx context.Context, m *attendance.Mark) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO marks
		(` + markColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			day_id = excluded.day_id,
			shift = excluded.shift,
			entry_time = excluded.entry_time,
			exit_time = excluded.exit_time,
			entry_manual = excluded.entry_manual,
			exit_manual = excluded.exit_manual,
			exit_automatic = excluded.exit_automatic,
			continuity_confirmed = excluded.continuity_confirmed,
			admin_confirmed_overtime = excluded.admin_confirmed_overtime,
			worked_hours = excluded.worked_hours,
			normal_hours = excluded.normal_hours,
			extra_hours = excluded.extra_hours,
			observations = excluded.observations,
			entry_lat = excluded.entry_lat,
			entry_lng = excluded.entry_lng,
			exit_lat = excluded.exit_lat,
			exit_lng = excluded.exit_lng,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		m.ID, m.EmployeeID, m.ProjectID, m.DayID, m.Date.String(), string(m.Shift),
		nullTimeOfDay(m.EntryTime), nullTimeOfDay(m.ExitTime),
		m.EntryManual, m.ExitManual, m.ExitAutomatic,
		m.ContinuityConfirmed, m.AdminConfirmedOvertime,
		m.WorkedHours.String(), m.NormalHours.String(), m.ExtraHours.String(),
		m.Observations,
		nullDecimal(m.EntryLat), nullDecimal(m.EntryLng),
		nullDecimal(m.ExitLat), nullDecimal(m.ExitLng),
		m.CreatedAt.UTC().Format(time.RFC3339), m.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save mark: %w", err)
	}
	return nil
}

// CloseMark sets the exit on an open mark with a single guarded UPDATE. The
// WHERE clause re-checks exit_time IS NULL at write time, so a concurrent
// closer cannot slip in between a read and the write.
func (s *Store) CloseMark(ctx context.Context, id string, close attendance.MarkClose) (*attendance.Mark, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		UPDATE marks SET
			exit_time = ?,
			exit_manual = ?,
			exit_automatic = ?,
			continuity_confirmed = ?,
			worked_hours = ?,
			normal_hours = ?,
			extra_hours = ?,
			exit_lat = ?,
			exit_lng = ?,
			observations = CASE
				WHEN ? = '' THEN observations
				WHEN observations = '' THEN ?
				ELSE observations || char(10) || ?
			END,
			updated_at = ?
		WHERE id = ? AND exit_time IS NULL
	`

	result, err := s.db.ExecContext(ctx, query,
		close.ExitTime.String(),
		close.Manual, close.Automatic, close.ContinuityConfirmed,
		close.WorkedHours.String(), close.NormalHours.String(), close.ExtraHours.String(),
		nullDecimal(close.ExitLat), nullDecimal(close.ExitLng),
		close.Observation, close.Observation, close.Observation,
		close.ClosedAt.UTC().Format(time.RFC3339),
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to close mark: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to close mark: %w", err)
	}
	if affected == 0 {
		// Lost the race or no such mark; look again to tell which.
		if _, err := s.getMark(ctx, id); err != nil {
			return nil, err
		}
		return nil, attendance.ErrAlreadyClosed
	}

	return s.getMark(ctx, id)
}

func (s *Store) AppendObservation(ctx context.Context, id, note string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, `
		UPDATE marks SET observations = CASE
			WHEN observations = '' THEN ?
			ELSE observations || char(10) || ?
		END
		WHERE id = ?`,
		note, note, id)
	if err != nil {
		return fmt.Errorf("failed to append observation: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return attendance.ErrMarkNotFound
	}
	return nil
}

func (s *Store) ListMarks(ctx context.Context, employeeID, projectID string, from, to *schedule.Date) ([]*attendance.Mark, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + markColumns + ` FROM marks WHERE employee_id = ? AND project_id = ?`
	args := []any{employeeID, projectID}
	if from != nil {
		query += ` AND date >= ?`
		args = append(args, from.String())
	}
	if to != nil {
		query += ` AND date <= ?`
		args = append(args, to.String())
	}
	query += ` ORDER BY date DESC`

	return s.queryMarks(ctx, query, args...)
}

func (s *Store) ListOpenMarks(ctx context.Context, projectID string) ([]*attendance.Mark, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryMarks(ctx, `
		SELECT `+markColumns+` FROM marks
		WHERE project_id = ? AND entry_time IS NOT NULL AND exit_time IS NULL
		ORDER BY date ASC`,
		projectID)
}

func (s *Store) ListUnreviewedOvertime(ctx context.Context) ([]*attendance.Mark, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryMarks(ctx, `
		SELECT `+markColumns+` FROM marks
		WHERE continuity_confirmed = TRUE
		  AND admin_confirmed_overtime = FALSE
		  AND exit_time IS NOT NULL
		ORDER BY date ASC`)
}

func (s *Store) queryMarks(ctx context.Context, query string, args ...any) ([]*attendance.Mark, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query marks: %w", err)
	}
	defer rows.Close()

	var marks []*attendance.Mark
	for rows.Next() {
		mark, err := scanMark(rows)
		if err != nil {
			return nil, err
		}
		marks = append(marks, mark)
	}
	return marks, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMark(row rowScanner) (*attendance.Mark, error) {
	var (
		m          attendance.Mark
		date       string
		shift      string
		entryTime  sql.NullString
		exitTime   sql.NullString
		worked     string
		normal     string
		extra      string
		entryLat   sql.NullString
		entryLng   sql.NullString
		exitLat    sql.NullString
		exitLng    sql.NullString
		createdAt  string
		updatedAt  string
	)

	err := row.Scan(
		&m.ID, &m.EmployeeID, &m.ProjectID, &m.DayID, &date, &shift,
		&entryTime, &exitTime, &m.EntryManual, &m.ExitManual, &m.ExitAutomatic,
		&m.ContinuityConfirmed, &m.AdminConfirmedOvertime,
		&worked, &normal, &extra, &m.Observations,
		&entryLat, &entryLng, &exitLat, &exitLng, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if m.Date, err = schedule.ParseDate(date); err != nil {
		return nil, fmt.Errorf("failed to scan mark date: %w", err)
	}
	m.Shift = schedule.Shift(shift)
	if m.EntryTime, err = parseTimeOfDay(entryTime); err != nil {
		return nil, err
	}
	if m.ExitTime, err = parseTimeOfDay(exitTime); err != nil {
		return nil, err
	}
	if m.WorkedHours, err = decimal.NewFromString(worked); err != nil {
		return nil, fmt.Errorf("failed to scan worked hours: %w", err)
	}
	if m.NormalHours, err = decimal.NewFromString(normal); err != nil {
		return nil, fmt.Errorf("failed to scan normal hours: %w", err)
	}
	if m.ExtraHours, err = decimal.NewFromString(extra); err != nil {
		return nil, fmt.Errorf("failed to scan extra hours: %w", err)
	}
	if m.EntryLat, err = parseDecimal(entryLat); err != nil {
		return nil, err
	}
	if m.EntryLng, err = parseDecimal(entryLng); err != nil {
		return nil, err
	}
	if m.ExitLat, err = parseDecimal(exitLat); err != nil {
		return nil, err
	}
	if m.ExitLng, err = parseDecimal(exitLng); err != nil {
		return nil, err
	}
	m.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	m.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &m, nil
}

// =============================================================================
// DEBTS
// =============================================================================

const debtColumns = `id, employee_id, project_id, period_start, period_end,
	hours_owed, hours_justified, hours_compensated, status, reason, description,
	created_at, updated_at`

func (s *Store) GetDebt(ctx context.Context, id string) (*attendance.HourDebt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+debtColumns+` FROM hour_debts WHERE id = ?`, id)

	debt, err := scanDebt(row)
	if err == sql.ErrNoRows {
		return nil, attendance.ErrDebtNotFound
	}
	return debt, err
}

func (s *Store) SaveDebt(ctx context.Context, d *attendance.HourDebt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO hour_debts
		(` + debtColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			period_end = excluded.period_end,
			hours_owed = excluded.hours_owed,
			hours_justified = excluded.hours_justified,
			hours_compensated = excluded.hours_compensated,
			status = excluded.status,
			description = excluded.description,
			updated_at = excluded.updated_at
	`

	var periodEnd any
	if d.PeriodEnd != nil {
		periodEnd = d.PeriodEnd.String()
	}

	_, err := s.db.ExecContext(ctx, query,
		d.ID, d.EmployeeID, d.ProjectID, d.PeriodStart.String(), periodEnd,
		d.HoursOwed.String(), d.HoursJustified.String(), d.HoursCompensated.String(),
		string(d.Status), string(d.Reason), d.Description,
		d.CreatedAt.UTC().Format(time.RFC3339), d.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save debt: %w", err)
	}
	return nil
}

func (s *Store) ListActiveDebts(ctx context.Context, employeeID, projectID string) ([]*attendance.HourDebt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryDebts(ctx, `
		SELECT `+debtColumns+` FROM hour_debts
		WHERE employee_id = ? AND project_id = ? AND status = ?
		ORDER BY period_start ASC, created_at ASC`,
		employeeID, projectID, string(attendance.DebtActive))
}

func (s *Store) ListDebts(ctx context.Context, employeeID, projectID string, status *attendance.DebtStatus) ([]*attendance.HourDebt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + debtColumns + ` FROM hour_debts WHERE employee_id = ? AND project_id = ?`
	args := []any{employeeID, projectID}
	if status != nil {
		query += ` AND status = ?`
		args = append(args, string(*status))
	}
	query += ` ORDER BY period_start DESC`

	return s.queryDebts(ctx, query, args...)
}

func (s *Store) queryDebts(ctx context.Context, query string, args ...any) ([]*attendance.HourDebt, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query debts: %w", err)
	}
	defer rows.Close()

	var debts []*attendance.HourDebt
	for rows.Next() {
		debt, err := scanDebt(rows)
		if err != nil {
			return nil, err
		}
		debts = append(debts, debt)
	}
	return debts, rows.Err()
}

func scanDebt(row rowScanner) (*attendance.HourDebt, error) {
	var (
		d           attendance.HourDebt
		periodStart string
		periodEnd   sql.NullString
		owed        string
		justified   string
		compensated string
		status      string
		reason      string
		createdAt   string
		updatedAt   string
	)

	err := row.Scan(
		&d.ID, &d.EmployeeID, &d.ProjectID, &periodStart, &periodEnd,
		&owed, &justified, &compensated, &status, &reason, &d.Description,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if d.PeriodStart, err = schedule.ParseDate(periodStart); err != nil {
		return nil, fmt.Errorf("failed to scan debt period: %w", err)
	}
	if periodEnd.Valid {
		end, err := schedule.ParseDate(periodEnd.String)
		if err != nil {
			return nil, fmt.Errorf("failed to scan debt period: %w", err)
		}
		d.PeriodEnd = &end
	}
	if d.HoursOwed, err = decimal.NewFromString(owed); err != nil {
		return nil, fmt.Errorf("failed to scan hours owed: %w", err)
	}
	if d.HoursJustified, err = decimal.NewFromString(justified); err != nil {
		return nil, fmt.Errorf("failed to scan hours justified: %w", err)
	}
	if d.HoursCompensated, err = decimal.NewFromString(compensated); err != nil {
		return nil, fmt.Errorf("failed to scan hours compensated: %w", err)
	}
	d.Status = attendance.DebtStatus(status)
	d.Reason = attendance.DebtReason(reason)
	d.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	d.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &d, nil
}

// =============================================================================
// JUSTIFICATIONS
// =============================================================================

const justificationColumns = `id, debt_id, employee_id, project_id, reason, hours,
	attachment_json, status, reviewer_id, review_comment, reviewed_at, created_at`

func (s *Store) GetJustification(ctx context.Context, id string) (*attendance.Justification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+justificationColumns+` FROM justifications WHERE id = ?`, id)

	j, err := scanJustification(row)
	if err == sql.ErrNoRows {
		return nil, attendance.ErrJustificationNotFound
	}
	return j, err
}

func (s *Store) SaveJustification(ctx context.Context, j *attendance.Justification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var attachmentJSON any
	if j.Attachment != nil {
		data, err := json.Marshal(j.Attachment)
		if err != nil {
			return fmt.Errorf("failed to encode attachment: %w", err)
		}
		attachmentJSON = string(data)
	}

	var reviewedAt any
	if j.ReviewedAt != nil {
		reviewedAt = j.ReviewedAt.UTC().Format(time.RFC3339)
	}

	query := `
		INSERT INTO justifications
		(` + justificationColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			reviewer_id = excluded.reviewer_id,
			review_comment = excluded.review_comment,
			reviewed_at = excluded.reviewed_at
	`

	_, err := s.db.ExecContext(ctx, query,
		j.ID, j.DebtID, j.EmployeeID, j.ProjectID, j.Reason, j.Hours.String(),
		attachmentJSON, string(j.Status), j.ReviewerID, j.ReviewComment,
		reviewedAt, j.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save justification: %w", err)
	}
	return nil
}

func (s *Store) ListJustificationsByProject(ctx context.Context, projectID string, status *attendance.JustificationStatus) ([]*attendance.Justification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + justificationColumns + ` FROM justifications WHERE project_id = ?`
	args := []any{projectID}
	if status != nil {
		query += ` AND status = ?`
		args = append(args, string(*status))
	}
	query += ` ORDER BY created_at DESC`

	return s.queryJustifications(ctx, query, args...)
}

func (s *Store) ListJustificationsByEmployee(ctx context.Context, employeeID, projectID string) ([]*attendance.Justification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryJustifications(ctx, `
		SELECT `+justificationColumns+` FROM justifications
		WHERE employee_id = ? AND project_id = ?
		ORDER BY created_at DESC`,
		employeeID, projectID)
}

func (s *Store) SumApprovedHours(ctx context.Context, employeeID, projectID string, from, to time.Time) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT hours FROM justifications
		WHERE employee_id = ? AND project_id = ? AND status = ?
		  AND created_at >= ? AND created_at < ?`,
		employeeID, projectID, string(attendance.JustificationApproved),
		from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339))
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum approved hours: %w", err)
	}
	defer rows.Close()

	// Summed in Go: decimal strings don't add correctly in SQL.
	total := decimal.Zero
	for rows.Next() {
		var hours string
		if err := rows.Scan(&hours); err != nil {
			return decimal.Zero, err
		}
		h, err := decimal.NewFromString(hours)
		if err != nil {
			return decimal.Zero, fmt.Errorf("failed to scan hours: %w", err)
		}
		total = total.Add(h)
	}
	return total, rows.Err()
}

func (s *Store) queryJustifications(ctx context.Context, query string, args ...any) ([]*attendance.Justification, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query justifications: %w", err)
	}
	defer rows.Close()

	var result []*attendance.Justification
	for rows.Next() {
		j, err := scanJustification(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, j)
	}
	return result, rows.Err()
}

func scanJustification(row rowScanner) (*attendance.Justification, error) {
	var (
		j              attendance.Justification
		hours          string
		attachmentJSON sql.NullString
		status         string
		reviewedAt     sql.NullString
		createdAt      string
	)

	err := row.Scan(
		&j.ID, &j.DebtID, &j.EmployeeID, &j.ProjectID, &j.Reason, &hours,
		&attachmentJSON, &status, &j.ReviewerID, &j.ReviewComment,
		&reviewedAt, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	if j.Hours, err = decimal.NewFromString(hours); err != nil {
		return nil, fmt.Errorf("failed to scan justification hours: %w", err)
	}
	if attachmentJSON.Valid && attachmentJSON.String != "" {
		var att attendance.Attachment
		if err := json.Unmarshal([]byte(attachmentJSON.String), &att); err != nil {
			return nil, fmt.Errorf("failed to decode attachment: %w", err)
		}
		j.Attachment = &att
	}
	j.Status = attendance.JustificationStatus(status)
	if reviewedAt.Valid {
		at, _ := time.Parse(time.RFC3339, reviewedAt.String)
		j.ReviewedAt = &at
	}
	j.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &j, nil
}

// =============================================================================
// CONFIG
// =============================================================================

const configColumns = `project_id, enabled, overtime_policy, late_tolerance_minutes,
	auto_close_exit, justifications_allowed, justifications_require_approval,
	justifiable_hours_limit, limit_period, notify_mark_reminders, notify_debt_alerts,
	entry_reminder_at, exit_reminder_at, default_absence_hours, created_at, updated_at`

func (s *Store) FindConfig(ctx context.Context, projectID string) (*attendance.Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+configColumns+` FROM attendance_configs WHERE project_id = ?`, projectID)

	cfg, err := scanConfig(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return cfg, err
}

func (s *Store) SaveConfig(ctx context.Context, c *attendance.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var limit any
	if c.JustifiableHoursLimit != nil {
		limit = c.JustifiableHoursLimit.String()
	}

	query := `
		INSERT INTO attendance_configs
		(` + configColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_id) DO UPDATE SET
			enabled = excluded.enabled,
			overtime_policy = excluded.overtime_policy,
			late_tolerance_minutes = excluded.late_tolerance_minutes,
			auto_close_exit = excluded.auto_close_exit,
			justifications_allowed = excluded.justifications_allowed,
			justifications_require_approval = excluded.justifications_require_approval,
			justifiable_hours_limit = excluded.justifiable_hours_limit,
			limit_period = excluded.limit_period,
			notify_mark_reminders = excluded.notify_mark_reminders,
			notify_debt_alerts = excluded.notify_debt_alerts,
			entry_reminder_at = excluded.entry_reminder_at,
			exit_reminder_at = excluded.exit_reminder_at,
			default_absence_hours = excluded.default_absence_hours,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		c.ProjectID, c.Enabled, string(c.OvertimePolicy), c.LateToleranceMinutes,
		c.AutoCloseExit, c.JustificationsAllowed, c.JustificationsRequireApproval,
		limit, string(c.LimitPeriod), c.NotifyMarkReminders, c.NotifyDebtAlerts,
		c.EntryReminderAt.String(), c.ExitReminderAt.String(),
		c.DefaultAbsenceHours.String(),
		c.CreatedAt.UTC().Format(time.RFC3339), c.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

func scanConfig(row rowScanner) (*attendance.Config, error) {
	var (
		c               attendance.Config
		policy          string
		limit           sql.NullString
		limitPeriod     string
		entryReminderAt string
		exitReminderAt  string
		absenceHours    string
		createdAt       string
		updatedAt       string
	)

	err := row.Scan(
		&c.ProjectID, &c.Enabled, &policy, &c.LateToleranceMinutes,
		&c.AutoCloseExit, &c.JustificationsAllowed, &c.JustificationsRequireApproval,
		&limit, &limitPeriod, &c.NotifyMarkReminders, &c.NotifyDebtAlerts,
		&entryReminderAt, &exitReminderAt, &absenceHours, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.OvertimePolicy = attendance.OvertimePolicy(policy)
	c.LimitPeriod = attendance.LimitPeriod(limitPeriod)
	if limit.Valid {
		l, err := decimal.NewFromString(limit.String)
		if err != nil {
			return nil, fmt.Errorf("failed to scan hours limit: %w", err)
		}
		c.JustifiableHoursLimit = &l
	}
	if c.EntryReminderAt, err = schedule.ParseTimeOfDay(entryReminderAt); err != nil {
		return nil, fmt.Errorf("failed to scan entry reminder: %w", err)
	}
	if c.ExitReminderAt, err = schedule.ParseTimeOfDay(exitReminderAt); err != nil {
		return nil, fmt.Errorf("failed to scan exit reminder: %w", err)
	}
	if c.DefaultAbsenceHours, err = decimal.NewFromString(absenceHours); err != nil {
		return nil, fmt.Errorf("failed to scan default absence hours: %w", err)
	}
	c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	c.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &c, nil
}

// =============================================================================
// DAYS
// =============================================================================

func (s *Store) UpsertDay(ctx context.Context, d *attendance.DayRecord) (*attendance.DayRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d.ID == "" {
		d.ID = uuid.NewString()
	}

	query := `
		INSERT INTO days
		(id, project_id, employee_id, date, weekday, entry_time, exit_time,
		 worked_hours, actual_hours, extra_hours)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_id, employee_id, date) DO UPDATE SET
			weekday = excluded.weekday,
			entry_time = excluded.entry_time,
			exit_time = excluded.exit_time,
			worked_hours = excluded.worked_hours,
			actual_hours = excluded.actual_hours,
			extra_hours = excluded.extra_hours
	`

	_, err := s.db.ExecContext(ctx, query,
		d.ID, d.ProjectID, d.EmployeeID, d.Date.String(), d.Weekday,
		nullTimeOfDay(d.EntryTime), nullTimeOfDay(d.ExitTime),
		d.WorkedHours.String(), d.ActualHours.String(), d.ExtraHours.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert day: %w", err)
	}

	// The conflict path keeps the existing row's ID; read it back.
	var id string
	err = s.db.QueryRowContext(ctx,
		`SELECT id FROM days WHERE project_id = ? AND employee_id = ? AND date = ?`,
		d.ProjectID, d.EmployeeID, d.Date.String()).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to read day back: %w", err)
	}

	result := *d
	result.ID = id
	return &result, nil
}

// =============================================================================
// PROJECTS / EMPLOYEES
// =============================================================================

func (s *Store) GetProject(ctx context.Context, id string) (*attendance.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, owner_id, schedule_json FROM projects WHERE id = ?`, id)

	p, err := scanProject(row)
	if err == sql.ErrNoRows {
		return nil, attendance.ErrProjectNotFound
	}
	return p, err
}

func (s *Store) SaveProject(ctx context.Context, p *attendance.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var scheduleJSON any
	if p.Schedule != nil {
		data, err := schedule.EncodeConfig(p.Schedule)
		if err != nil {
			return fmt.Errorf("failed to encode schedule: %w", err)
		}
		scheduleJSON = string(data)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (id, name, owner_id, schedule_json)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			owner_id = excluded.owner_id,
			schedule_json = excluded.schedule_json`,
		p.ID, p.Name, p.OwnerID, scheduleJSON)
	if err != nil {
		return fmt.Errorf("failed to save project: %w", err)
	}
	return nil
}

func (s *Store) ListAutoCloseProjects(ctx context.Context) ([]*attendance.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.name, p.owner_id, p.schedule_json
		FROM projects p
		JOIN attendance_configs c ON c.project_id = p.id
		WHERE c.enabled = TRUE AND c.auto_close_exit = TRUE
		ORDER BY p.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	defer rows.Close()

	var projects []*attendance.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func scanProject(row rowScanner) (*attendance.Project, error) {
	var (
		p            attendance.Project
		scheduleJSON sql.NullString
	)
	if err := row.Scan(&p.ID, &p.Name, &p.OwnerID, &scheduleJSON); err != nil {
		return nil, err
	}
	if scheduleJSON.Valid && scheduleJSON.String != "" {
		cfg, err := schedule.DecodeConfig([]byte(scheduleJSON.String))
		if err != nil {
			return nil, fmt.Errorf("failed to decode schedule: %w", err)
		}
		p.Schedule = cfg
	}
	return &p, nil
}

func (s *Store) GetEmployee(ctx context.Context, id string) (*attendance.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, project_id, user_id, name, active, attendance_active,
		       override_start, override_end
		FROM employees WHERE id = ?`, id)

	e, err := scanEmployee(row)
	if err == sql.ErrNoRows {
		return nil, attendance.ErrEmployeeNotFound
	}
	return e, err
}

func (s *Store) SaveEmployee(ctx context.Context, e *attendance.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var overrideStart, overrideEnd any
	if e.Override != nil {
		overrideStart = e.Override.Start.String()
		overrideEnd = e.Override.End.String()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO employees
		(id, project_id, user_id, name, active, attendance_active, override_start, override_end)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			name = excluded.name,
			active = excluded.active,
			attendance_active = excluded.attendance_active,
			override_start = excluded.override_start,
			override_end = excluded.override_end`,
		e.ID, e.ProjectID, e.UserID, e.Name, e.Active, e.AttendanceActive,
		overrideStart, overrideEnd)
	if err != nil {
		return fmt.Errorf("failed to save employee: %w", err)
	}
	return nil
}

func (s *Store) ListActiveEmployees(ctx context.Context, projectID string) ([]*attendance.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, user_id, name, active, attendance_active,
		       override_start, override_end
		FROM employees
		WHERE project_id = ? AND active = TRUE AND attendance_active = TRUE
		ORDER BY id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query employees: %w", err)
	}
	defer rows.Close()

	var employees []*attendance.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, e)
	}
	return employees, rows.Err()
}

func scanEmployee(row rowScanner) (*attendance.Employee, error) {
	var (
		e             attendance.Employee
		overrideStart sql.NullString
		overrideEnd   sql.NullString
	)
	err := row.Scan(&e.ID, &e.ProjectID, &e.UserID, &e.Name, &e.Active,
		&e.AttendanceActive, &overrideStart, &overrideEnd)
	if err != nil {
		return nil, err
	}
	if overrideStart.Valid && overrideEnd.Valid {
		start, err := schedule.ParseTimeOfDay(overrideStart.String)
		if err != nil {
			return nil, fmt.Errorf("failed to scan override window: %w", err)
		}
		end, err := schedule.ParseTimeOfDay(overrideEnd.String)
		if err != nil {
			return nil, fmt.Errorf("failed to scan override window: %w", err)
		}
		e.Override = &schedule.Window{Start: start, End: end}
	}
	return &e, nil
}

// =============================================================================
// NOTIFICATIONS
// =============================================================================

func (s *Store) SaveNotification(ctx context.Context, n *attendance.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	metadataJSON, _ := json.Marshal(n.Metadata)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications
		(id, user_id, kind, title, message, metadata_json, action_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.UserID, string(n.Kind), n.Title, n.Message,
		string(metadataJSON), n.ActionURL, n.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save notification: %w", err)
	}
	return nil
}

func (s *Store) ListNotifications(ctx context.Context, userID string) ([]*attendance.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, kind, title, message, metadata_json, action_url, created_at
		FROM notifications
		WHERE user_id = ?
		ORDER BY created_at ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var result []*attendance.Notification
	for rows.Next() {
		var (
			n            attendance.Notification
			kind         string
			metadataJSON sql.NullString
			createdAt    string
		)
		err := rows.Scan(&n.ID, &n.UserID, &kind, &n.Title, &n.Message,
			&metadataJSON, &n.ActionURL, &createdAt)
		if err != nil {
			return nil, err
		}
		n.Kind = attendance.NotificationKind(kind)
		if metadataJSON.Valid && metadataJSON.String != "" && metadataJSON.String != "null" {
			_ = json.Unmarshal([]byte(metadataJSON.String), &n.Metadata)
		}
		n.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		result = append(result, &n)
	}
	return result, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

func nullTimeOfDay(t *schedule.TimeOfDay) any {
	if t == nil {
		return nil
	}
	return t.String()
}

func nullDecimal(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func parseTimeOfDay(s sql.NullString) (*schedule.TimeOfDay, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := schedule.ParseTimeOfDay(s.String)
	if err != nil {
		return nil, fmt.Errorf("failed to scan time of day: %w", err)
	}
	return &t, nil
}

func parseDecimal(s sql.NullString) (*decimal.Decimal, error) {
	if !s.Valid {
		return nil, nil
	}
	d, err := decimal.NewFromString(s.String)
	if err != nil {
		return nil, fmt.Errorf("failed to scan decimal: %w", err)
	}
	return &d, nil
}
