package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/coveplatform/mosh/internal/cultural"
	"github.com/coveplatform/mosh/internal/domain"
	"github.com/coveplatform/mosh/internal/ledger"
	"github.com/coveplatform/mosh/internal/prompts"
	"github.com/coveplatform/mosh/internal/provider/vapi"
	"github.com/coveplatform/mosh/internal/repository"
	"github.com/coveplatform/mosh/pkg/logger"
)

// CallPlacer starts an outbound call with the voice provider.
type CallPlacer interface {
	PlaceCall(ctx context.Context, req vapi.PlaceCallRequest) (*vapi.PlaceCallResponse, error)
}

// Service places the provider call for a pending task. After the calling-hour
// gate passes, a task never stays pending: it ends in_progress, or failed
// with a summary and a refund.
type Service struct {
	repos   repository.RepositoryManager
	ledger  *ledger.Service
	placer  CallPlacer
	timeout time.Duration
	now     func() time.Time
}

// NewService creates a call dispatcher.
func NewService(repos repository.RepositoryManager, ledgerSvc *ledger.Service, placer CallPlacer, timeout time.Duration) *Service {
	return &Service{
		repos:   repos,
		ledger:  ledgerSvc,
		placer:  placer,
		timeout: timeout,
		now:     time.Now,
	}
}

// WithClock overrides the clock, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Dispatch places the call for a pending call-kind task.
// Returns domain.ErrOutsideCallingHours without touching the task when the
// destination country is outside its calling window.
func (s *Service) Dispatch(ctx context.Context, taskID string) error {
	task, err := s.repos.Tasks().GetByID(ctx, taskID)
	if err != nil {
		return err
	}
	if task.Kind != domain.TaskKindCall {
		return fmt.Errorf("%w: cannot dispatch %s task", domain.ErrInvalidTransition, task.Kind)
	}

	profile, ok := cultural.Lookup(task.Country)
	if !ok {
		// Country was validated at creation; a miss here means bad data.
		return s.failDispatch(ctx, task, fmt.Errorf("no cultural profile for country %q", task.Country))
	}

	// Advisory gate: refuse before any mutation so the user can simply try
	// again during business hours.
	utcHour := s.now().UTC().Hour()
	if !profile.WithinCallingHours(utcHour) {
		local := profile.LocalHour(utcHour)
		logger.Base().Info("dispatch refused outside calling hours",
			zap.String("task_id", task.ID),
			zap.String("country", profile.Country),
			zap.Int("local_hour", local))
		return fmt.Errorf("%w: it's currently %d:00 local time in %s, business hours are %d:00–%d:00",
			domain.ErrOutsideCallingHours, local, profile.Country,
			profile.CallingHours.Start, profile.CallingHours.End)
	}

	params := prompts.CallParams{
		BusinessName:    task.BusinessName,
		Country:         profile.Key,
		Language:        task.Language,
		Objective:       task.Objective,
		DetailedNotes:   task.DetailedNotes,
		TonePreference:  task.TonePreference,
		Constraints:     task.Constraints,
		FallbackOptions: task.FallbackOptions,
	}
	greeting := prompts.BuildGreeting(params, profile)
	systemPrompt := prompts.BuildSystemPrompt(params, profile)

	// Claim the task under lock so a concurrent dispatch or webhook cannot
	// interleave, then place the call outside the transaction.
	err = s.repos.WithTx(ctx, func(ctx context.Context, repos repository.RepositoryManager) error {
		locked, err := repos.Tasks().GetByIDForUpdate(ctx, task.ID)
		if err != nil {
			return err
		}
		if locked.Status != domain.TaskStatusPending {
			return fmt.Errorf("%w: cannot dispatch task in status %s", domain.ErrInvalidTransition, locked.Status)
		}
		started := s.now()
		locked.OpeningScript = greeting
		locked.CallPlan = systemPrompt
		locked.Status = domain.TaskStatusInProgress
		locked.StartedAt = &started
		locked.UpdatedAt = started
		task = locked
		return repos.Tasks().Update(ctx, locked)
	})
	if err != nil {
		return err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.placer.PlaceCall(callCtx, vapi.PlaceCallRequest{
		TaskID:       task.ID,
		PhoneNumber:  task.ContactPhone,
		Country:      profile.Key,
		SystemPrompt: systemPrompt,
		FirstMessage: greeting,
	})
	if err != nil {
		return s.failDispatch(ctx, task, err)
	}

	// Re-lock before recording the handle: the provider can emit webhooks
	// before its HTTP response returns, so the snapshot from the claim may
	// already be stale. Never overwrite a status a webhook has advanced.
	err = s.repos.WithTx(ctx, func(ctx context.Context, repos repository.RepositoryManager) error {
		locked, err := repos.Tasks().GetByIDForUpdate(ctx, task.ID)
		if err != nil {
			return err
		}
		if locked.ProviderHandle == "" {
			locked.ProviderHandle = resp.ID
		}
		if !locked.Status.Terminal() && locked.ProviderStatus == "" {
			locked.ProviderStatus = domain.ProviderStatus(resp.Status)
		}
		locked.UpdatedAt = s.now()
		return repos.Tasks().Update(ctx, locked)
	})
	if err != nil {
		return err
	}

	logger.Base().Info("call dispatched",
		zap.String("task_id", task.ID),
		zap.String("provider_handle", resp.ID))
	return nil
}

// failDispatch forces the task to failed with a descriptive summary and
// returns the credit, then surfaces the original error.
func (s *Service) failDispatch(ctx context.Context, task *domain.Task, cause error) error {
	now := s.now()
	alreadyTerminal := false
	err := s.repos.WithTx(ctx, func(ctx context.Context, repos repository.RepositoryManager) error {
		locked, err := repos.Tasks().GetByIDForUpdate(ctx, task.ID)
		if err != nil {
			return err
		}
		if locked.Status.Terminal() {
			// A webhook settled the task first; its outcome wins.
			alreadyTerminal = true
			task = locked
			return nil
		}
		locked.Status = domain.TaskStatusFailed
		locked.Outcome = domain.OutcomeFailed
		locked.Summary = fmt.Sprintf("Call failed to initiate: %s", cause.Error())
		locked.CompletedAt = &now
		locked.UpdatedAt = now
		task = locked
		return repos.Tasks().Update(ctx, locked)
	})
	if err != nil {
		logger.Base().Error("failed to mark task failed after dispatch error",
			zap.String("task_id", task.ID), zap.Error(err))
		return cause
	}
	if alreadyTerminal {
		logger.Base().Warn("dispatch error arrived after task settled",
			zap.String("task_id", task.ID),
			zap.String("status", string(task.Status)),
			zap.Error(cause))
		return cause
	}

	if refundErr := s.ledger.RefundIfEligible(ctx, task, "Credit refunded — call failed to connect"); refundErr != nil && !errors.Is(refundErr, domain.ErrRefundAlreadyIssued) {
		logger.Base().Error("refund after dispatch failure did not apply",
			zap.String("task_id", task.ID), zap.Error(refundErr))
	}

	logger.Base().Warn("dispatch failed",
		zap.String("task_id", task.ID), zap.Error(cause))
	return cause
}
