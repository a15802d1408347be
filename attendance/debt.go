/*
debt.go - Hour-debt lifecycle and overtime policies

PURPOSE:
  Owns HourDebt records: opening them when the absence sweep finds a missing
  entry mark, and settling them from overtime according to the project's
  policy.

POLICIES (applied to positive extra hours on mark close):
  compensate_debt:   apply extra hours to active debts oldest-first (FIFO by
                     period start) until debts or hours run out; leftover
                     hours are simply not compensated further
  block_overtime:    extra hours are discarded while any active debt exists;
                     with no debts they stay on the mark untouched
  separate_accounts: no ledger interaction at all

  Both discard outcomes are policy, not errors: the mark keeps its visible
  extra_hours; the absence of any ledger effect is the signal.

INVARIANTS:
  - hours_justified and hours_compensated only grow
  - pending = owed - justified - compensated, derived, never stored
  - status advances to compensated only once pending reaches zero

SEE ALSO:
  - marks.go: the close path that feeds ProcessOvertime
  - justification.go: the other way pending hours shrink
*/
package attendance

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/attendance-engine/schedule"
)

// DebtLedger owns the hour-debt lifecycle.
type DebtLedger struct {
	store    Store
	clock    schedule.Clock
	notifier Notifier
}

func NewDebtLedger(store Store, clock schedule.Clock, notifier Notifier) *DebtLedger {
	return &DebtLedger{store: store, clock: clock, notifier: notifier}
}

// =============================================================================
// OPENING DEBTS
// =============================================================================

// OpenDebt records owed hours for an employee. The owed amount comes from the
// employee's override window, the project schedule, or the configured
// absence default, in that order. A zero amount opens nothing.
func (l *DebtLedger) OpenDebt(ctx context.Context, employeeID, projectID string, date schedule.Date, reason DebtReason) (*HourDebt, error) {
	employee, err := l.store.GetEmployee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	project, err := l.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	cfg, err := getOrCreateConfig(ctx, l.store, l.clock, projectID)
	if err != nil {
		return nil, err
	}

	owed := schedule.ExpectedDailyHours(project.Schedule, employee.Override, cfg.DefaultAbsenceHours)
	if !owed.IsPositive() {
		return nil, nil
	}

	now := l.clock.Now()
	debt := &HourDebt{
		ID:          uuid.NewString(),
		EmployeeID:  employeeID,
		ProjectID:   projectID,
		PeriodStart: date,
		HoursOwed:   owed,
		Status:      DebtActive,
		Reason:      reason,
		Description: fmt.Sprintf("%s detected on %s", reason, date),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := l.store.SaveDebt(ctx, debt); err != nil {
		return nil, err
	}

	if cfg.NotifyDebtAlerts {
		notify(l.notifier, debtAlertNotification(employee.UserID, debt))
	}
	return debt, nil
}

// DetectAbsences opens an absence debt for every active employee with no
// entry mark on the given date. Returns how many debts were opened. Projects
// without attendance mode are skipped entirely.
func (l *DebtLedger) DetectAbsences(ctx context.Context, projectID string, date schedule.Date) (int, error) {
	cfg, err := getOrCreateConfig(ctx, l.store, l.clock, projectID)
	if err != nil {
		return 0, err
	}
	if !cfg.Enabled {
		return 0, nil
	}

	employees, err := l.store.ListActiveEmployees(ctx, projectID)
	if err != nil {
		return 0, err
	}

	opened := 0
	for _, employee := range employees {
		mark, err := l.store.FindMark(ctx, employee.ID, projectID, date)
		if err != nil {
			return opened, err
		}
		if mark != nil && mark.EntryTime != nil {
			continue
		}
		debt, err := l.OpenDebt(ctx, employee.ID, projectID, date, ReasonAbsence)
		if err != nil {
			return opened, err
		}
		if debt != nil {
			opened++
		}
	}
	return opened, nil
}

// =============================================================================
// OVERTIME PROCESSING
// =============================================================================

// ProcessOvertime routes a mark's extra hours through the project's policy.
// Returns the hours left unapplied (meaningful only under compensate_debt).
func (l *DebtLedger) ProcessOvertime(ctx context.Context, employeeID, projectID string, extra decimal.Decimal, policy OvertimePolicy) (decimal.Decimal, error) {
	if !extra.IsPositive() {
		return extra, nil
	}

	switch policy {
	case PolicyCompensateDebt:
		return l.compensateFIFO(ctx, employeeID, projectID, extra)

	case PolicyBlockOvertime:
		// Discarded while debt exists; not stored or compensated anywhere.
		// The mark keeps its extra_hours field as the visible record.
		return extra, nil

	case PolicySeparateAccounts:
		return extra, nil

	default:
		return extra, fmt.Errorf("unknown overtime policy %q", policy)
	}
}

// compensateFIFO applies extra hours to active debts oldest-first.
func (l *DebtLedger) compensateFIFO(ctx context.Context, employeeID, projectID string, extra decimal.Decimal) (decimal.Decimal, error) {
	debts, err := l.store.ListActiveDebts(ctx, employeeID, projectID)
	if err != nil {
		return extra, err
	}

	remaining := extra
	for _, debt := range debts {
		if !remaining.IsPositive() {
			break
		}
		var applied decimal.Decimal
		remaining, applied = Compensate(debt, remaining)
		if applied.IsPositive() {
			debt.UpdatedAt = l.clock.Now()
			if err := l.store.SaveDebt(ctx, debt); err != nil {
				return remaining, err
			}
		}
	}
	return remaining, nil
}

// Compensate applies extra hours to one debt in memory and returns
// (leftover, applied). A debt with nothing pending passes the hours through
// untouched. The caller persists the mutation.
func Compensate(debt *HourDebt, extra decimal.Decimal) (leftover, applied decimal.Decimal) {
	pending := debt.Pending()
	if !pending.IsPositive() {
		return extra, decimal.Zero
	}

	applied = decimal.Min(pending, extra)
	debt.HoursCompensated = debt.HoursCompensated.Add(applied).Round(2)
	if debt.Settled() {
		debt.Status = DebtCompensated
	}
	return extra.Sub(applied).Round(2), applied
}
