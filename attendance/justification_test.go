package attendance_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/schedule"
)

func newTestWorkflow(t *testing.T, env *testEnv) *attendance.JustificationWorkflow {
	t.Helper()
	return attendance.NewJustificationWorkflow(env.store, env.clock, attendance.NopNotifier{})
}

var errWriteFailed = errors.New("write failed")

// flakyStore wraps the memory store and fails selected writes, to exercise
// what state an interrupted operation leaves behind.
type flakyStore struct {
	attendance.Store
	failSaveDebt          bool
	failSaveJustification bool
	failListActiveDebts   bool
}

func (s *flakyStore) SaveDebt(ctx context.Context, d *attendance.HourDebt) error {
	if s.failSaveDebt {
		return errWriteFailed
	}
	return s.Store.SaveDebt(ctx, d)
}

func (s *flakyStore) SaveJustification(ctx context.Context, j *attendance.Justification) error {
	if s.failSaveJustification {
		return errWriteFailed
	}
	return s.Store.SaveJustification(ctx, j)
}

func (s *flakyStore) ListActiveDebts(ctx context.Context, employeeID, projectID string) ([]*attendance.HourDebt, error) {
	if s.failListActiveDebts {
		return nil, errWriteFailed
	}
	return s.Store.ListActiveDebts(ctx, employeeID, projectID)
}

// =============================================================================
// SUBMISSION
// =============================================================================

func TestSubmit_CreatesPending(t *testing.T) {
	env := newTestEnv(t)
	workflow := newTestWorkflow(t, env)
	seedDebt(t, env, "debt-1", schedule.NewDate(2026, time.March, 2), 3.0)

	j, err := workflow.Submit(context.Background(), attendance.SubmitInput{
		DebtID:      "debt-1",
		RequesterID: "emp-1",
		Reason:      "medical appointment",
		Hours:       decimal.NewFromInt(2),
	})
	require.NoError(t, err)

	assert.Equal(t, attendance.JustificationPending, j.Status)
	assert.Equal(t, "emp-1", j.EmployeeID)
	assert.True(t, decimal.NewFromInt(2).Equal(j.Hours))
}

func TestSubmit_ExceedsPendingRejected(t *testing.T) {
	// GIVEN: A debt with 3.0h pending
	// WHEN: Justifying 5.0h
	// THEN: ErrExceedsPending with the numbers attached
	env := newTestEnv(t)
	workflow := newTestWorkflow(t, env)
	seedDebt(t, env, "debt-1", schedule.NewDate(2026, time.March, 2), 3.0)

	_, err := workflow.Submit(context.Background(), attendance.SubmitInput{
		DebtID:      "debt-1",
		RequesterID: "emp-1",
		Reason:      "too much",
		Hours:       decimal.NewFromInt(5),
	})
	require.ErrorIs(t, err, attendance.ErrExceedsPending)

	var exceeds *attendance.ExceedsPendingError
	require.ErrorAs(t, err, &exceeds)
	assert.True(t, decimal.NewFromInt(3).Equal(exceeds.Pending))
	assert.True(t, decimal.NewFromInt(5).Equal(exceeds.Requested))
}

func TestSubmit_NonPositiveHoursRejected(t *testing.T) {
	env := newTestEnv(t)
	workflow := newTestWorkflow(t, env)
	seedDebt(t, env, "debt-1", schedule.NewDate(2026, time.March, 2), 3.0)

	_, err := workflow.Submit(context.Background(), attendance.SubmitInput{
		DebtID: "debt-1", RequesterID: "emp-1", Hours: decimal.Zero,
	})
	assert.ErrorIs(t, err, attendance.ErrExceedsPending)
}

func TestSubmit_DisabledByConfig(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	workflow := newTestWorkflow(t, env)
	seedDebt(t, env, "debt-1", schedule.NewDate(2026, time.March, 2), 3.0)

	cfg, err := env.store.FindConfig(ctx, "proj-1")
	require.NoError(t, err)
	cfg.JustificationsAllowed = false
	require.NoError(t, env.store.SaveConfig(ctx, cfg))

	_, err = workflow.Submit(ctx, attendance.SubmitInput{
		DebtID: "debt-1", RequesterID: "emp-1", Hours: decimal.NewFromInt(1),
	})
	assert.ErrorIs(t, err, attendance.ErrJustificationsDisabled)
}

func TestSubmit_PeriodLimitEnforced(t *testing.T) {
	// GIVEN: A monthly limit of 4.0h with 3.0h already approved this month
	// WHEN: Submitting 2.0h more
	// THEN: ErrLimitExceeded
	env := newTestEnv(t)
	ctx := context.Background()
	workflow := newTestWorkflow(t, env)

	cfg, err := env.store.FindConfig(ctx, "proj-1")
	require.NoError(t, err)
	limit := decimal.NewFromInt(4)
	cfg.JustifiableHoursLimit = &limit
	require.NoError(t, env.store.SaveConfig(ctx, cfg))

	seedDebt(t, env, "debt-1", schedule.NewDate(2026, time.March, 2), 6.0)

	first, err := workflow.Submit(ctx, attendance.SubmitInput{
		DebtID: "debt-1", RequesterID: "emp-1", Reason: "a", Hours: decimal.NewFromInt(3),
	})
	require.NoError(t, err)
	_, err = workflow.Approve(ctx, first.ID, "admin-1", "ok")
	require.NoError(t, err)

	_, err = workflow.Submit(ctx, attendance.SubmitInput{
		DebtID: "debt-1", RequesterID: "emp-1", Reason: "b", Hours: decimal.NewFromInt(2),
	})
	require.ErrorIs(t, err, attendance.ErrLimitExceeded)

	var exceeded *attendance.LimitExceededError
	require.ErrorAs(t, err, &exceeded)
	assert.True(t, decimal.NewFromInt(4).Equal(exceeded.Limit))
	assert.True(t, decimal.NewFromInt(3).Equal(exceeded.Used))
}

// =============================================================================
// REVIEW
// =============================================================================

func TestApprove_MovesHoursOntoDebt(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	workflow := newTestWorkflow(t, env)
	seedDebt(t, env, "debt-1", schedule.NewDate(2026, time.March, 2), 3.0)

	j, err := workflow.Submit(ctx, attendance.SubmitInput{
		DebtID: "debt-1", RequesterID: "emp-1", Reason: "sick", Hours: decimal.NewFromInt(3),
	})
	require.NoError(t, err)

	approved, err := workflow.Approve(ctx, j.ID, "admin-1", "verified")
	require.NoError(t, err)

	assert.Equal(t, attendance.JustificationApproved, approved.Status)
	assert.Equal(t, "admin-1", approved.ReviewerID)
	require.NotNil(t, approved.ReviewedAt)

	debt, err := env.store.GetDebt(ctx, "debt-1")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(3).Equal(debt.HoursJustified))
	assert.Equal(t, attendance.DebtJustified, debt.Status, "fully justified debt closes")
}

func TestApprove_SecondApprovalRejected(t *testing.T) {
	// GIVEN: An already-approved justification
	// WHEN: Approving again
	// THEN: ErrNotPending, the debt is not credited twice
	env := newTestEnv(t)
	ctx := context.Background()
	workflow := newTestWorkflow(t, env)
	seedDebt(t, env, "debt-1", schedule.NewDate(2026, time.March, 2), 4.0)

	j, err := workflow.Submit(ctx, attendance.SubmitInput{
		DebtID: "debt-1", RequesterID: "emp-1", Reason: "sick", Hours: decimal.NewFromInt(2),
	})
	require.NoError(t, err)

	_, err = workflow.Approve(ctx, j.ID, "admin-1", "")
	require.NoError(t, err)

	_, err = workflow.Approve(ctx, j.ID, "admin-1", "")
	assert.ErrorIs(t, err, attendance.ErrNotPending)

	debt, err := env.store.GetDebt(ctx, "debt-1")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(2).Equal(debt.HoursJustified), "credited exactly once")
}

func TestApprove_DebtWriteFailureLeavesPending(t *testing.T) {
	// GIVEN: The debt write fails during approval
	// THEN: The justification stays pending and a retry applies the credit
	//       exactly once
	env := newTestEnv(t)
	ctx := context.Background()
	workflow := newTestWorkflow(t, env)
	seedDebt(t, env, "debt-1", schedule.NewDate(2026, time.March, 2), 3.0)

	j, err := workflow.Submit(ctx, attendance.SubmitInput{
		DebtID: "debt-1", RequesterID: "emp-1", Reason: "sick", Hours: decimal.NewFromInt(2),
	})
	require.NoError(t, err)

	flaky := &flakyStore{Store: env.store, failSaveDebt: true}
	broken := attendance.NewJustificationWorkflow(flaky, env.clock, attendance.NopNotifier{})
	_, err = broken.Approve(ctx, j.ID, "admin-1", "")
	require.ErrorIs(t, err, errWriteFailed)

	stored, err := env.store.GetJustification(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, attendance.JustificationPending, stored.Status, "failed approval must stay reviewable")
	debt, err := env.store.GetDebt(ctx, "debt-1")
	require.NoError(t, err)
	assert.True(t, debt.HoursJustified.IsZero())

	_, err = workflow.Approve(ctx, j.ID, "admin-1", "")
	require.NoError(t, err)
	debt, err = env.store.GetDebt(ctx, "debt-1")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(2).Equal(debt.HoursJustified), "credited exactly once after retry")
}

func TestApprove_JustificationWriteFailureRollsBackCredit(t *testing.T) {
	// GIVEN: The debt credit lands but the justification write fails
	// THEN: The credit is rolled back so a retried approval cannot double it
	env := newTestEnv(t)
	ctx := context.Background()
	workflow := newTestWorkflow(t, env)
	seedDebt(t, env, "debt-1", schedule.NewDate(2026, time.March, 2), 3.0)

	j, err := workflow.Submit(ctx, attendance.SubmitInput{
		DebtID: "debt-1", RequesterID: "emp-1", Reason: "sick", Hours: decimal.NewFromInt(2),
	})
	require.NoError(t, err)

	flaky := &flakyStore{Store: env.store, failSaveJustification: true}
	broken := attendance.NewJustificationWorkflow(flaky, env.clock, attendance.NopNotifier{})
	_, err = broken.Approve(ctx, j.ID, "admin-1", "")
	require.ErrorIs(t, err, errWriteFailed)

	debt, err := env.store.GetDebt(ctx, "debt-1")
	require.NoError(t, err)
	assert.True(t, debt.HoursJustified.IsZero(), "credit rolled back")
	assert.Equal(t, attendance.DebtActive, debt.Status)

	_, err = workflow.Approve(ctx, j.ID, "admin-1", "")
	require.NoError(t, err)
	debt, err = env.store.GetDebt(ctx, "debt-1")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(2).Equal(debt.HoursJustified), "credited exactly once after retry")
}

func TestReject_RequiresComment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	workflow := newTestWorkflow(t, env)
	seedDebt(t, env, "debt-1", schedule.NewDate(2026, time.March, 2), 3.0)

	j, err := workflow.Submit(ctx, attendance.SubmitInput{
		DebtID: "debt-1", RequesterID: "emp-1", Reason: "sick", Hours: decimal.NewFromInt(1),
	})
	require.NoError(t, err)

	_, err = workflow.Reject(ctx, j.ID, "admin-1", "   ")
	assert.ErrorIs(t, err, attendance.ErrCommentRequired)
}

func TestReject_LeavesDebtUntouched(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	workflow := newTestWorkflow(t, env)
	seedDebt(t, env, "debt-1", schedule.NewDate(2026, time.March, 2), 3.0)

	j, err := workflow.Submit(ctx, attendance.SubmitInput{
		DebtID: "debt-1", RequesterID: "emp-1", Reason: "sick", Hours: decimal.NewFromInt(2),
	})
	require.NoError(t, err)

	rejected, err := workflow.Reject(ctx, j.ID, "admin-1", "no evidence")
	require.NoError(t, err)
	assert.Equal(t, attendance.JustificationRejected, rejected.Status)

	debt, err := env.store.GetDebt(ctx, "debt-1")
	require.NoError(t, err)
	assert.True(t, debt.HoursJustified.IsZero())
	assert.Equal(t, attendance.DebtActive, debt.Status)

	// A rejected justification is terminal
	_, err = workflow.Approve(ctx, j.ID, "admin-1", "")
	assert.ErrorIs(t, err, attendance.ErrNotPending)
}
