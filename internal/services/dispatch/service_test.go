package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coveplatform/mosh/internal/domain"
	"github.com/coveplatform/mosh/internal/ledger"
	"github.com/coveplatform/mosh/internal/provider/vapi"
	"github.com/coveplatform/mosh/internal/repository"
)

type stubPlacer struct {
	err      error
	lastReq  vapi.PlaceCallRequest
	response *vapi.PlaceCallResponse
}

func (p *stubPlacer) PlaceCall(ctx context.Context, req vapi.PlaceCallRequest) (*vapi.PlaceCallResponse, error) {
	p.lastReq = req
	if p.err != nil {
		return nil, p.err
	}
	if p.response != nil {
		return p.response, nil
	}
	return &vapi.PlaceCallResponse{ID: "call-123", Status: "queued"}, nil
}

// hookPlacer runs a callback while the provider call is in flight, standing
// in for webhooks that land before the HTTP response returns.
type hookPlacer struct {
	hook func(ctx context.Context)
	err  error
}

func (p *hookPlacer) PlaceCall(ctx context.Context, req vapi.PlaceCallRequest) (*vapi.PlaceCallResponse, error) {
	if p.hook != nil {
		p.hook(ctx)
	}
	if p.err != nil {
		return nil, p.err
	}
	return &vapi.PlaceCallResponse{ID: "call-123", Status: "queued"}, nil
}

// 03:00 UTC is 12:00 in Tokyo, inside Japan's 10-20 window.
var insideJapanHours = time.Date(2026, 3, 20, 3, 0, 0, 0, time.UTC)

// 22:00 UTC is 07:00 in Tokyo, before the window opens.
var outsideJapanHours = time.Date(2026, 3, 20, 22, 0, 0, 0, time.UTC)

func setup(t *testing.T, placer CallPlacer, now time.Time) (*Service, *repository.MemoryRepositoryManager, *domain.Task) {
	t.Helper()
	ctx := context.Background()
	repos := repository.NewMemoryRepositoryManager()
	clock := func() time.Time { return now }

	account := &domain.Account{ID: "owner-1", Name: "Sarah", Email: "sarah@example.com", Plan: "free"}
	require.NoError(t, repos.Accounts().Create(ctx, account))

	ledgerSvc := ledger.NewService(repos).WithClock(clock)
	require.NoError(t, ledgerSvc.Credit(ctx, account.ID, 3, domain.TransactionKindBonus, "Welcome credits", nil))

	task := &domain.Task{
		ID:           "task-1",
		OwnerID:      account.ID,
		Kind:         domain.TaskKindCall,
		Status:       domain.TaskStatusPending,
		BusinessName: "Sukiyabashi Jiro",
		ContactPhone: "+81312345678",
		Country:      "Japan",
		Language:     "Japanese",
		Objective:    `Book a table for two at 7pm. The caller's name is "Sarah".`,
		CreditsUsed:  1,
		CreatedAt:    now,
	}
	require.NoError(t, repos.Tasks().Create(ctx, task))
	taskID := task.ID
	require.NoError(t, ledgerSvc.Debit(ctx, account.ID, 1, "Task: Sukiyabashi Jiro (Japan)", &taskID))

	svc := NewService(repos, ledgerSvc, placer, 5*time.Second).WithClock(clock)
	return svc, repos, task
}

func TestDispatchSuccess(t *testing.T) {
	placer := &stubPlacer{}
	svc, repos, task := setup(t, placer, insideJapanHours)
	ctx := context.Background()

	require.NoError(t, svc.Dispatch(ctx, task.ID))

	got, err := repos.Tasks().GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusInProgress, got.Status)
	assert.Equal(t, "call-123", got.ProviderHandle)
	assert.Equal(t, domain.ProviderStatus("queued"), got.ProviderStatus)
	require.NotNil(t, got.StartedAt)
	assert.NotEmpty(t, got.OpeningScript)
	assert.Contains(t, got.CallPlan, "Sukiyabashi Jiro")

	assert.Equal(t, task.ID, placer.lastReq.TaskID)
	assert.Equal(t, "+81312345678", placer.lastReq.PhoneNumber)
	assert.Equal(t, "japan", placer.lastReq.Country)
	assert.Equal(t, got.OpeningScript, placer.lastReq.FirstMessage)
}

func TestDispatchOutsideCallingHoursLeavesPending(t *testing.T) {
	placer := &stubPlacer{}
	svc, repos, task := setup(t, placer, outsideJapanHours)
	ctx := context.Background()

	err := svc.Dispatch(ctx, task.ID)
	assert.ErrorIs(t, err, domain.ErrOutsideCallingHours)

	got, getErr := repos.Tasks().GetByID(ctx, task.ID)
	require.NoError(t, getErr)
	assert.Equal(t, domain.TaskStatusPending, got.Status)
	assert.Empty(t, got.ProviderHandle)

	// No refund: the task is still pending and retryable.
	balance, sumErr := repos.Credits().SumByOwner(ctx, task.OwnerID)
	require.NoError(t, sumErr)
	assert.Equal(t, 2, balance)
}

func TestDispatchProviderFailureFailsAndRefunds(t *testing.T) {
	placer := &stubPlacer{err: errors.New("provider unreachable")}
	svc, repos, task := setup(t, placer, insideJapanHours)
	ctx := context.Background()

	err := svc.Dispatch(ctx, task.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider unreachable")

	got, getErr := repos.Tasks().GetByID(ctx, task.ID)
	require.NoError(t, getErr)
	assert.Equal(t, domain.TaskStatusFailed, got.Status)
	assert.Equal(t, domain.OutcomeFailed, got.Outcome)
	assert.Contains(t, got.Summary, "Call failed to initiate: provider unreachable")
	require.NotNil(t, got.CompletedAt)

	balance, sumErr := repos.Credits().SumByOwner(ctx, task.OwnerID)
	require.NoError(t, sumErr)
	assert.Equal(t, 3, balance)

	refunded, refErr := repos.Credits().ExistsRefundForTask(ctx, task.ID)
	require.NoError(t, refErr)
	assert.True(t, refunded)
}

func TestDispatchRejectsNonPendingTask(t *testing.T) {
	placer := &stubPlacer{}
	svc, repos, task := setup(t, placer, insideJapanHours)
	ctx := context.Background()

	task.Status = domain.TaskStatusCompleted
	require.NoError(t, repos.Tasks().Update(ctx, task))

	err := svc.Dispatch(ctx, task.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestDispatchRejectsEmailTask(t *testing.T) {
	placer := &stubPlacer{}
	svc, repos, task := setup(t, placer, insideJapanHours)
	ctx := context.Background()

	task.Kind = domain.TaskKindEmail
	require.NoError(t, repos.Tasks().Update(ctx, task))

	err := svc.Dispatch(ctx, task.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestDispatchKeepsWebhookCompletion(t *testing.T) {
	placer := &hookPlacer{}
	svc, repos, task := setup(t, placer, insideJapanHours)
	ctx := context.Background()

	// The call ends before the provider's HTTP response comes back: an
	// end-of-call report settles the task mid-flight.
	placer.hook = func(ctx context.Context) {
		require.NoError(t, repos.WithTx(ctx, func(ctx context.Context, tx repository.RepositoryManager) error {
			locked, err := tx.Tasks().GetByIDForUpdate(ctx, task.ID)
			if err != nil {
				return err
			}
			done := insideJapanHours.Add(30 * time.Second)
			locked.Status = domain.TaskStatusCompleted
			locked.Outcome = domain.OutcomeSuccess
			locked.Summary = "Table booked for 7pm."
			locked.ProviderStatus = domain.ProviderStatusCompleted
			locked.CompletedAt = &done
			return tx.Tasks().Update(ctx, locked)
		}))
	}

	require.NoError(t, svc.Dispatch(ctx, task.ID))

	got, err := repos.Tasks().GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCompleted, got.Status)
	assert.Equal(t, domain.OutcomeSuccess, got.Outcome)
	assert.Equal(t, "Table booked for 7pm.", got.Summary)
	assert.Equal(t, domain.ProviderStatusCompleted, got.ProviderStatus)
	require.NotNil(t, got.CompletedAt)
	// The handle is still recorded, alongside the settled state.
	assert.Equal(t, "call-123", got.ProviderHandle)
}

func TestDispatchErrorAfterWebhookSettledKeepsOutcome(t *testing.T) {
	placer := &hookPlacer{err: errors.New("response lost")}
	svc, repos, task := setup(t, placer, insideJapanHours)
	ctx := context.Background()

	placer.hook = func(ctx context.Context) {
		require.NoError(t, repos.WithTx(ctx, func(ctx context.Context, tx repository.RepositoryManager) error {
			locked, err := tx.Tasks().GetByIDForUpdate(ctx, task.ID)
			if err != nil {
				return err
			}
			done := insideJapanHours.Add(10 * time.Second)
			locked.Status = domain.TaskStatusCompleted
			locked.Outcome = domain.OutcomeSuccess
			locked.CompletedAt = &done
			return tx.Tasks().Update(ctx, locked)
		}))
	}

	err := svc.Dispatch(ctx, task.ID)
	require.Error(t, err)

	got, getErr := repos.Tasks().GetByID(ctx, task.ID)
	require.NoError(t, getErr)
	assert.Equal(t, domain.TaskStatusCompleted, got.Status)
	assert.Equal(t, domain.OutcomeSuccess, got.Outcome)

	// No refund: the settled outcome is not refundable.
	balance, sumErr := repos.Credits().SumByOwner(ctx, task.OwnerID)
	require.NoError(t, sumErr)
	assert.Equal(t, 2, balance)
	refunded, refErr := repos.Credits().ExistsRefundForTask(ctx, task.ID)
	require.NoError(t, refErr)
	assert.False(t, refunded)
}

func TestDispatchUnknownTask(t *testing.T) {
	placer := &stubPlacer{}
	svc, _, _ := setup(t, placer, insideJapanHours)

	err := svc.Dispatch(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}
