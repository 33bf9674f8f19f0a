package webhook

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coveplatform/mosh/internal/domain"
	"github.com/coveplatform/mosh/internal/ledger"
	"github.com/coveplatform/mosh/internal/repository"
)

var testNow = time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)

func setup(t *testing.T) (*Ingester, *repository.MemoryRepositoryManager, *domain.Task) {
	t.Helper()
	ctx := context.Background()
	repos := repository.NewMemoryRepositoryManager()
	clock := func() time.Time { return testNow }

	account := &domain.Account{ID: "owner-1", Name: "Sarah", Email: "sarah@example.com", Plan: "free"}
	require.NoError(t, repos.Accounts().Create(ctx, account))

	ledgerSvc := ledger.NewService(repos).WithClock(clock)
	require.NoError(t, ledgerSvc.Credit(ctx, account.ID, 3, domain.TransactionKindBonus, "Welcome credits", nil))

	started := testNow.Add(-2 * time.Minute)
	task := &domain.Task{
		ID:           "task-1",
		OwnerID:      account.ID,
		Kind:         domain.TaskKindCall,
		Status:       domain.TaskStatusInProgress,
		BusinessName: "Sukiyabashi Jiro",
		Country:      "Japan",
		CreditsUsed:  1,
		StartedAt:    &started,
		CreatedAt:    started,
	}
	require.NoError(t, repos.Tasks().Create(ctx, task))
	taskID := task.ID
	require.NoError(t, ledgerSvc.Debit(ctx, account.ID, 1, "Task: Sukiyabashi Jiro (Japan)", &taskID))

	return NewIngester(repos, ledgerSvc).WithClock(clock), repos, task
}

func balance(t *testing.T, repos *repository.MemoryRepositoryManager, ownerID string) int {
	t.Helper()
	sum, err := repos.Credits().SumByOwner(context.Background(), ownerID)
	require.NoError(t, err)
	return sum
}

func TestStatusUpdateMirrorsProviderStatus(t *testing.T) {
	ing, repos, task := setup(t)
	ctx := context.Background()

	require.NoError(t, ing.HandleStatusUpdate(ctx, task.ID, "ringing"))
	got, err := repos.Tasks().GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ProviderStatusRinging, got.ProviderStatus)
	assert.Equal(t, domain.TaskStatusInProgress, got.Status)
}

func TestEndOfCallSuccessNoRefund(t *testing.T) {
	ing, repos, task := setup(t)
	ctx := context.Background()

	started := testNow.Add(-90 * time.Second)
	ended := testNow
	require.NoError(t, ing.HandleEndOfCallReport(ctx, Report{
		TaskID:            task.ID,
		Transcript:        "AI: Hello\nBusiness: Confirmed for Friday 7pm.",
		Summary:           "Your table for two is booked for Friday at 7pm.",
		StructuredOutcome: "success",
		EndedReason:       "assistant-ended-call",
		StartedAt:         &started,
		EndedAt:           &ended,
	}))

	got, err := repos.Tasks().GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCompleted, got.Status)
	assert.Equal(t, domain.OutcomeSuccess, got.Outcome)
	assert.Contains(t, got.Transcript, "[Call duration: 90s]")
	assert.Contains(t, got.Transcript, "[Ended: assistant-ended-call]")
	require.NotNil(t, got.CompletedAt)
	assert.Equal(t, ended, *got.CompletedAt)

	assert.Equal(t, 2, balance(t, repos, task.OwnerID))
}

func TestEndOfCallVoicemailCompletesWithRefund(t *testing.T) {
	ing, repos, task := setup(t)
	ctx := context.Background()

	require.NoError(t, ing.HandleEndOfCallReport(ctx, Report{
		TaskID:      task.ID,
		EndedReason: "voicemail",
	}))

	got, err := repos.Tasks().GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCompleted, got.Status)
	assert.Equal(t, domain.OutcomeVoicemail, got.Outcome)
	assert.Equal(t, "Call ended: voicemail", got.Summary)

	assert.Equal(t, 3, balance(t, repos, task.OwnerID))
}

func TestEndOfCallStructuredOutcomeWinsOverEndedReason(t *testing.T) {
	ing, repos, task := setup(t)
	ctx := context.Background()

	// An explicit analysis outcome is trusted over the raw ended reason.
	require.NoError(t, ing.HandleEndOfCallReport(ctx, Report{
		TaskID:            task.ID,
		StructuredOutcome: "success",
		EndedReason:       "machine-detected",
	}))

	got, err := repos.Tasks().GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSuccess, got.Outcome)
	assert.Equal(t, domain.TaskStatusCompleted, got.Status)
	assert.Equal(t, 2, balance(t, repos, task.OwnerID))
}

func TestEndOfCallStartErrorFails(t *testing.T) {
	ing, repos, task := setup(t)
	ctx := context.Background()

	require.NoError(t, ing.HandleEndOfCallReport(ctx, Report{
		TaskID:      task.ID,
		EndedReason: "call-start-error-neither-assistant-nor-server-set",
	}))

	got, err := repos.Tasks().GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusFailed, got.Status)
	assert.Equal(t, domain.OutcomeFailed, got.Outcome)
	assert.Equal(t, 3, balance(t, repos, task.OwnerID))
}

func TestDuplicateReportDoesNotDoubleRefund(t *testing.T) {
	ing, repos, task := setup(t)
	ctx := context.Background()

	report := Report{TaskID: task.ID, EndedReason: "customer-did-not-answer"}
	require.NoError(t, ing.HandleEndOfCallReport(ctx, report))
	require.NoError(t, ing.HandleEndOfCallReport(ctx, report))
	require.NoError(t, ing.HandleEndOfCallReport(ctx, report))

	assert.Equal(t, 3, balance(t, repos, task.OwnerID))

	txns, err := repos.Credits().ListByOwner(ctx, task.OwnerID)
	require.NoError(t, err)
	refunds := 0
	for _, txn := range txns {
		if txn.Kind == domain.TransactionKindRefund {
			refunds++
		}
	}
	assert.Equal(t, 1, refunds, "exactly one refund transaction per task")
}

func TestHangFailsAndRefunds(t *testing.T) {
	ing, repos, task := setup(t)
	ctx := context.Background()

	require.NoError(t, ing.HandleHang(ctx, task.ID))

	got, err := repos.Tasks().GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusFailed, got.Status)
	assert.Equal(t, domain.OutcomeNoAnswer, got.Outcome)
	assert.Equal(t, "Call was not answered or went to voicemail.", got.Summary)
	assert.Equal(t, 3, balance(t, repos, task.OwnerID))

	// Replay after terminal state is a no-op.
	require.NoError(t, ing.HandleHang(ctx, task.ID))
	assert.Equal(t, 3, balance(t, repos, task.OwnerID))
}

func TestStatusUpdateAfterTerminalIsIgnored(t *testing.T) {
	ing, repos, task := setup(t)
	ctx := context.Background()

	require.NoError(t, ing.HandleHang(ctx, task.ID))
	require.NoError(t, ing.HandleStatusUpdate(ctx, task.ID, "ended"))

	got, err := repos.Tasks().GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusFailed, got.Status)
}

func TestDeriveOutcome(t *testing.T) {
	assert.Equal(t, domain.OutcomeSuccess, deriveOutcome("success", "assistant-ended-call"))
	assert.Equal(t, domain.OutcomeSuccess, deriveOutcome("success", "machine-detected"))
	assert.Equal(t, domain.OutcomePartial, deriveOutcome("partial", ""))
	assert.Equal(t, domain.OutcomeVoicemail, deriveOutcome("", "voicemail"))
	assert.Equal(t, domain.OutcomeNoAnswer, deriveOutcome("", "customer-busy"))
	assert.Equal(t, domain.OutcomeFailed, deriveOutcome("", "call-start-error-provider-down"))
	assert.Equal(t, domain.OutcomeUnknown, deriveOutcome("", "some-new-reason"))
}
