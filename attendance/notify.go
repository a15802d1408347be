package attendance

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// STORE NOTIFIER - Persists notifications for in-app readback
// =============================================================================

// StoreNotifier saves notifications through a NotificationStore. Delivery is
// best-effort: the engine logs failures and moves on.
type StoreNotifier struct {
	store NotificationStore
}

func NewStoreNotifier(store NotificationStore) *StoreNotifier {
	return &StoreNotifier{store: store}
}

func (s *StoreNotifier) Notify(n Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	return s.store.SaveNotification(context.Background(), &n)
}

// notify is the shared fire-and-forget path. An empty userID means the
// employee has no linked account; nothing is sent.
func notify(notifier Notifier, n Notification) {
	if notifier == nil || n.UserID == "" {
		return
	}
	if err := notifier.Notify(n); err != nil {
		log.Printf("[Notify] delivery failed for %s to %s: %v", n.Kind, n.UserID, err)
	}
}

// =============================================================================
// NOTIFICATION BUILDERS
// =============================================================================

func autoCloseNotification(userID, projectID string, date, closedAt string) Notification {
	return Notification{
		UserID:  userID,
		Kind:    NotifyAutoCloseExit,
		Title:   "Exit marked automatically",
		Message: fmt.Sprintf("Your exit for %s was closed automatically at %s", date, closedAt),
		Metadata: map[string]string{
			"project_id": projectID,
			"date":       date,
		},
		ActionURL: fmt.Sprintf("/projects/%s/attendance", projectID),
	}
}

func markEditedNotification(userID, projectID, markID string, date string, changes string) Notification {
	return Notification{
		UserID:  userID,
		Kind:    NotifyMarkEdited,
		Title:   "Attendance mark corrected",
		Message: fmt.Sprintf("An administrator corrected your mark for %s", date),
		Metadata: map[string]string{
			"project_id": projectID,
			"mark_id":    markID,
			"changes":    changes,
		},
		ActionURL: fmt.Sprintf("/projects/%s/attendance", projectID),
	}
}

func overtimeReviewedNotification(userID, projectID, markID string, date string, approved bool) Notification {
	kind, title, verb := NotifyOvertimeConfirmed, "Overtime confirmed", "confirmed"
	if !approved {
		kind, title, verb = NotifyOvertimeRejected, "Overtime rejected", "rejected"
	}
	return Notification{
		UserID:  userID,
		Kind:    kind,
		Title:   title,
		Message: fmt.Sprintf("An administrator %s your overtime for %s", verb, date),
		Metadata: map[string]string{
			"project_id": projectID,
			"mark_id":    markID,
		},
		ActionURL: fmt.Sprintf("/projects/%s/attendance", projectID),
	}
}

func justificationReviewedNotification(userID string, j *Justification, approved bool) Notification {
	kind, title, verb := NotifyJustificationApproved, "Justification approved", "approved"
	if !approved {
		kind, title, verb = NotifyJustificationRejected, "Justification rejected", "rejected"
	}
	return Notification{
		UserID:  userID,
		Kind:    kind,
		Title:   title,
		Message: fmt.Sprintf("Your justification of %s hours was %s", j.Hours, verb),
		Metadata: map[string]string{
			"project_id":       j.ProjectID,
			"justification_id": j.ID,
			"debt_id":          j.DebtID,
		},
		ActionURL: fmt.Sprintf("/projects/%s/debts", j.ProjectID),
	}
}

func debtAlertNotification(userID string, d *HourDebt) Notification {
	return Notification{
		UserID:  userID,
		Kind:    NotifyDebtAlert,
		Title:   "Hour debt recorded",
		Message: fmt.Sprintf("An absence on %s added %s owed hours", d.PeriodStart, d.HoursOwed),
		Metadata: map[string]string{
			"project_id": d.ProjectID,
			"debt_id":    d.ID,
		},
		ActionURL: fmt.Sprintf("/projects/%s/debts", d.ProjectID),
	}
}

func overtimeReviewRequestNotification(adminUserID, projectID string, pending int) Notification {
	return Notification{
		UserID:  adminUserID,
		Kind:    NotifyOvertimeReview,
		Title:   "Overtime awaiting review",
		Message: fmt.Sprintf("%d mark(s) with confirmed continuity await overtime review", pending),
		Metadata: map[string]string{
			"project_id": projectID,
		},
		ActionURL: fmt.Sprintf("/projects/%s/attendance/review", projectID),
	}
}
