/*
justification.go - Approval workflow for debt justifications

PURPOSE:
  A justification asks to excuse part of a debt's pending hours. The state
  machine is one-shot:

    Pending --Approve--> Approved   (adds hours to the debt, exactly once)
    Pending --Reject---> Rejected   (comment required, no ledger mutation)

  Submission is bounded twice: by the parent debt's pending hours, and by the
  project's justifiable-hours limit for the configured reset period
  (cumulative sum of approved justifications in the period, no sliding
  window).

SEE ALSO:
  - debt.go: the pending-hours arithmetic justifications draw from
  - types.go: Justification and Attachment
*/
package attendance

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/attendance-engine/schedule"
)

// JustificationWorkflow owns the submission/approval state machine.
type JustificationWorkflow struct {
	store    Store
	clock    schedule.Clock
	notifier Notifier
}

func NewJustificationWorkflow(store Store, clock schedule.Clock, notifier Notifier) *JustificationWorkflow {
	return &JustificationWorkflow{store: store, clock: clock, notifier: notifier}
}

// =============================================================================
// SUBMISSION
// =============================================================================

type SubmitInput struct {
	DebtID      string
	RequesterID string // employee submitting, recorded as the owner
	Reason      string
	Hours       decimal.Decimal
	Attachment  *Attachment
}

// Submit creates a pending justification against a debt.
// Fails with ErrExceedsPending when the hours overshoot the debt and with
// ErrLimitExceeded when the period limit would be crossed.
func (w *JustificationWorkflow) Submit(ctx context.Context, in SubmitInput) (*Justification, error) {
	debt, err := w.store.GetDebt(ctx, in.DebtID)
	if err != nil {
		return nil, err
	}
	cfg, err := getOrCreateConfig(ctx, w.store, w.clock, debt.ProjectID)
	if err != nil {
		return nil, err
	}
	if !cfg.JustificationsAllowed {
		return nil, ErrJustificationsDisabled
	}
	if !in.Hours.IsPositive() {
		return nil, &ExceedsPendingError{DebtID: debt.ID, Pending: debt.Pending(), Requested: in.Hours}
	}

	pending := debt.Pending()
	if in.Hours.GreaterThan(pending) {
		return nil, &ExceedsPendingError{DebtID: debt.ID, Pending: pending, Requested: in.Hours}
	}

	if cfg.JustifiableHoursLimit != nil {
		from, to := limitPeriodBounds(cfg.LimitPeriod, w.clock.Now())
		used, err := w.store.SumApprovedHours(ctx, debt.EmployeeID, debt.ProjectID, from, to)
		if err != nil {
			return nil, err
		}
		if used.Add(in.Hours).GreaterThan(*cfg.JustifiableHoursLimit) {
			return nil, &LimitExceededError{
				Limit:     *cfg.JustifiableHoursLimit,
				Used:      used,
				Requested: in.Hours,
				Period:    cfg.LimitPeriod,
			}
		}
	}

	j := &Justification{
		ID:         uuid.NewString(),
		DebtID:     debt.ID,
		EmployeeID: debt.EmployeeID,
		ProjectID:  debt.ProjectID,
		Reason:     strings.TrimSpace(in.Reason),
		Hours:      in.Hours.Round(2),
		Attachment: in.Attachment,
		Status:     JustificationPending,
		CreatedAt:  w.clock.Now(),
	}
	if err := w.store.SaveJustification(ctx, j); err != nil {
		return nil, err
	}
	return j, nil
}

// =============================================================================
// REVIEW
// =============================================================================

// Approve transitions a pending justification to approved and adds its hours
// to the debt's justified total, exactly once. A second approval fails with
// ErrNotPending, which is the idempotency guard.
func (w *JustificationWorkflow) Approve(ctx context.Context, justificationID, reviewerID, comment string) (*Justification, error) {
	j, err := w.store.GetJustification(ctx, justificationID)
	if err != nil {
		return nil, err
	}
	if j.Status != JustificationPending {
		return nil, ErrNotPending
	}
	debt, err := w.store.GetDebt(ctx, j.DebtID)
	if err != nil {
		return nil, err
	}

	// The debt is credited before the justification flips to approved. If
	// the credit fails the justification stays pending and the review can be
	// retried; the reverse order would strand an approved justification the
	// NotPending guard never lets credit again.
	now := w.clock.Now()
	prevJustified := debt.HoursJustified
	prevStatus := debt.Status
	debt.HoursJustified = debt.HoursJustified.Add(j.Hours).Round(2)
	if debt.Settled() {
		debt.Status = DebtJustified
	}
	debt.UpdatedAt = now
	if err := w.store.SaveDebt(ctx, debt); err != nil {
		return nil, err
	}

	j.Status = JustificationApproved
	j.ReviewerID = reviewerID
	j.ReviewComment = comment
	j.ReviewedAt = &now
	if err := w.store.SaveJustification(ctx, j); err != nil {
		// Undo the credit so a retried approval cannot count it twice.
		debt.HoursJustified = prevJustified
		debt.Status = prevStatus
		if rbErr := w.store.SaveDebt(ctx, debt); rbErr != nil {
			log.Printf("[Justification] rollback of debt %s after failed approval of %s: %v",
				debt.ID, j.ID, rbErr)
		}
		return nil, err
	}

	w.notifyReviewed(ctx, j, true)
	return j, nil
}

// Reject transitions a pending justification to rejected. The comment is
// mandatory; the debt is untouched.
func (w *JustificationWorkflow) Reject(ctx context.Context, justificationID, reviewerID, comment string) (*Justification, error) {
	if strings.TrimSpace(comment) == "" {
		return nil, ErrCommentRequired
	}

	j, err := w.store.GetJustification(ctx, justificationID)
	if err != nil {
		return nil, err
	}
	if j.Status != JustificationPending {
		return nil, ErrNotPending
	}

	now := w.clock.Now()
	j.Status = JustificationRejected
	j.ReviewerID = reviewerID
	j.ReviewComment = comment
	j.ReviewedAt = &now
	if err := w.store.SaveJustification(ctx, j); err != nil {
		return nil, err
	}

	w.notifyReviewed(ctx, j, false)
	return j, nil
}

func (w *JustificationWorkflow) notifyReviewed(ctx context.Context, j *Justification, approved bool) {
	employee, err := w.store.GetEmployee(ctx, j.EmployeeID)
	if err != nil {
		return
	}
	notify(w.notifier, justificationReviewedNotification(employee.UserID, j, approved))
}

// =============================================================================
// PERIOD BOUNDS
// =============================================================================

// limitPeriodBounds returns [from, to) for the period containing now.
// Weeks start on Monday.
func limitPeriodBounds(period LimitPeriod, now time.Time) (time.Time, time.Time) {
	now = now.In(schedule.LocalZone)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, schedule.LocalZone)

	switch period {
	case LimitDaily:
		return midnight, midnight.AddDate(0, 0, 1)
	case LimitWeekly:
		offset := (int(now.Weekday()) + 6) % 7 // Monday = 0
		start := midnight.AddDate(0, 0, -offset)
		return start, start.AddDate(0, 0, 7)
	case LimitYearly:
		start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, schedule.LocalZone)
		return start, start.AddDate(1, 0, 0)
	default: // monthly
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, schedule.LocalZone)
		return start, start.AddDate(0, 1, 0)
	}
}
