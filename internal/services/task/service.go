package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/coveplatform/mosh/internal/cultural"
	"github.com/coveplatform/mosh/internal/domain"
	"github.com/coveplatform/mosh/internal/ledger"
	"github.com/coveplatform/mosh/internal/repository"
	"github.com/coveplatform/mosh/pkg/logger"
)

// creditCost is what a single call task debits at creation time.
const creditCost = 1

const minDescriptionLength = 10

// Dispatcher places the call for a task. Satisfied by dispatch.Service.
type Dispatcher interface {
	Dispatch(ctx context.Context, taskID string) error
}

// Notifier receives fire-and-forget dispatch requests for newly created
// tasks. Satisfied by the queue bus publisher.
type Notifier interface {
	NotifyDispatch(ctx context.Context, taskID string) error
}

// Service owns the task lifecycle: creation with an atomic credit debit,
// retry, manual failure, deletion, and the stuck-task sweep.
type Service struct {
	repos      repository.RepositoryManager
	ledger     *ledger.Service
	dispatcher Dispatcher
	notifier   Notifier
	now        func() time.Time
}

func NewService(repos repository.RepositoryManager, ledgerSvc *ledger.Service, dispatcher Dispatcher, notifier Notifier) *Service {
	return &Service{
		repos:      repos,
		ledger:     ledgerSvc,
		dispatcher: dispatcher,
		notifier:   notifier,
		now:        time.Now,
	}
}

// WithClock overrides the time source, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CreateCallRequest carries the caller-supplied fields for a new call task.
type CreateCallRequest struct {
	OwnerID      string `json:"-"`
	Description  string `json:"description"`
	BusinessName string `json:"businessName"`
	Phone        string `json:"phone"`
	Country      string `json:"country"`
	Priority     string `json:"priority"`
	BookingName  string `json:"bookingName"`
}

func (r *CreateCallRequest) validate() error {
	if strings.TrimSpace(r.Phone) == "" {
		return fmt.Errorf("phone number is required")
	}
	if len(strings.TrimSpace(r.Description)) < minDescriptionLength {
		return fmt.Errorf("description must be at least %d characters", minDescriptionLength)
	}
	return nil
}

// culturalNotes is the snapshot of country etiquette stored on the task at
// creation time, so later prompt rebuilds see the same guidance.
type culturalNotes struct {
	Etiquette    []string              `json:"etiquette"`
	Tips         []string              `json:"tips"`
	CallingHours cultural.CallingHours `json:"callingHours"`
}

// Create validates the request, debits one credit, and inserts the task in
// a single transaction. Dispatch is kicked off asynchronously afterwards so
// a slow provider never holds the creation request open.
func (s *Service) Create(ctx context.Context, req CreateCallRequest) (*domain.Task, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	urgent := strings.EqualFold(req.Priority, "urgent")
	tier := domain.TierSimple
	if urgent {
		tier = domain.TierComplex
	}

	now := s.now()
	t := &domain.Task{
		ID:             uuid.NewString(),
		OwnerID:        req.OwnerID,
		Kind:           domain.TaskKindCall,
		Tier:           tier,
		Status:         domain.TaskStatusPending,
		BusinessName:   strings.TrimSpace(req.BusinessName),
		ContactPhone:   strings.TrimSpace(req.Phone),
		Country:        req.Country,
		Language:       "Unknown",
		Objective:      buildObjective(req.Description, req.BookingName, urgent),
		DetailedNotes:  buildDetailedNotes(req.BookingName, urgent),
		TonePreference: "polite",
		CreditsUsed:    creditCost,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if t.BusinessName == "" {
		t.BusinessName = "the business"
	}

	if profile, ok := cultural.Lookup(req.Country); ok {
		t.Country = profile.Country
		t.Language = profile.Language
		notes, err := json.Marshal(culturalNotes{
			Etiquette:    profile.EtiquetteNotes,
			Tips:         profile.Tips,
			CallingHours: profile.CallingHours,
		})
		if err == nil {
			t.CulturalNotes = string(notes)
		}
	}

	err := s.repos.WithTx(ctx, func(ctx context.Context, repos repository.RepositoryManager) error {
		debitDesc := fmt.Sprintf("Task: %s (%s)", t.BusinessName, t.Country)
		if err := s.ledger.DebitInTx(ctx, repos, req.OwnerID, creditCost, debitDesc, &t.ID); err != nil {
			return err
		}
		return repos.Tasks().Create(ctx, t)
	})
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyDispatch(ctx, t.ID); err != nil {
			logger.Base().Warn("failed to enqueue dispatch for new task",
				zap.String("task_id", t.ID), zap.Error(err))
		}
	}
	return t, nil
}

func buildObjective(description, bookingName string, urgent bool) string {
	objective := strings.TrimSpace(description)
	if name := strings.TrimSpace(bookingName); name != "" {
		objective += fmt.Sprintf(" The caller's name is %q.", name)
	}
	if urgent {
		objective += " This is urgent — communicate appropriate urgency."
	}
	return objective
}

func buildDetailedNotes(bookingName string, urgent bool) string {
	var parts []string
	if urgent {
		parts = append(parts, "Priority: URGENT")
	}
	if name := strings.TrimSpace(bookingName); name != "" {
		parts = append(parts, "Name: "+name)
	}
	return strings.Join(parts, " | ")
}

// Get returns the task if it exists and belongs to ownerID.
func (s *Service) Get(ctx context.Context, ownerID, taskID string) (*domain.Task, error) {
	t, err := s.repos.Tasks().GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if t.OwnerID != ownerID {
		return nil, domain.ErrTaskNotFound
	}
	return t, nil
}

// List returns the owner's tasks, newest first.
func (s *Service) List(ctx context.Context, ownerID string) ([]*domain.Task, error) {
	return s.repos.Tasks().GetByOwner(ctx, ownerID)
}

// Dispatch places the call for a pending or failed task. A failed task is
// first reset to pending with its previous outcome cleared; no additional
// credit is debited on retry.
func (s *Service) Dispatch(ctx context.Context, ownerID, taskID string) error {
	t, err := s.Get(ctx, ownerID, taskID)
	if err != nil {
		return err
	}
	if t.Kind != domain.TaskKindCall {
		return fmt.Errorf("%w: task %s is not a call task", domain.ErrInvalidTransition, taskID)
	}

	switch t.Status {
	case domain.TaskStatusPending:
		// ready as-is
	case domain.TaskStatusFailed:
		if err := s.resetForRetry(ctx, taskID); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: cannot dispatch task in status %s", domain.ErrInvalidTransition, t.Status)
	}

	return s.dispatcher.Dispatch(ctx, taskID)
}

func (s *Service) resetForRetry(ctx context.Context, taskID string) error {
	return s.repos.WithTx(ctx, func(ctx context.Context, repos repository.RepositoryManager) error {
		t, err := repos.Tasks().GetByIDForUpdate(ctx, taskID)
		if err != nil {
			return err
		}
		if t.Status != domain.TaskStatusFailed {
			return fmt.Errorf("%w: cannot retry task in status %s", domain.ErrInvalidTransition, t.Status)
		}
		t.Status = domain.TaskStatusPending
		t.Outcome = ""
		t.Summary = ""
		t.CompletedAt = nil
		t.UpdatedAt = s.now()
		return repos.Tasks().Update(ctx, t)
	})
}

// ManualFail marks a pending or in-progress call as failed and refunds its
// credit. Used when a call is stuck or clearly unresponsive.
func (s *Service) ManualFail(ctx context.Context, ownerID, taskID string) (*domain.Task, error) {
	t, err := s.Get(ctx, ownerID, taskID)
	if err != nil {
		return nil, err
	}
	return s.failTask(ctx, t.ID)
}

func (s *Service) failTask(ctx context.Context, taskID string) (*domain.Task, error) {
	var failed *domain.Task
	err := s.repos.WithTx(ctx, func(ctx context.Context, repos repository.RepositoryManager) error {
		t, err := repos.Tasks().GetByIDForUpdate(ctx, taskID)
		if err != nil {
			return err
		}
		if t.Status != domain.TaskStatusPending && t.Status != domain.TaskStatusInProgress {
			return fmt.Errorf("%w: cannot manually fail task in status %s", domain.ErrInvalidTransition, t.Status)
		}
		now := s.now()
		t.Status = domain.TaskStatusFailed
		t.Outcome = domain.OutcomeFailed
		t.Summary = "Call was manually marked as failed (stuck or unresponsive)."
		t.CompletedAt = &now
		t.UpdatedAt = now
		if err := repos.Tasks().Update(ctx, t); err != nil {
			return err
		}
		failed = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	desc := fmt.Sprintf("Refund — call to %s manually failed", failed.BusinessName)
	if err := s.ledger.RefundIfEligible(ctx, failed, desc); err != nil && !errors.Is(err, domain.ErrRefundAlreadyIssued) {
		logger.Base().Error("refund after manual fail did not apply",
			zap.String("task_id", failed.ID), zap.Error(err))
	}
	return failed, nil
}

// Delete removes a task. A pending task gets its credit refunded first; a
// terminal task is simply removed. In-progress tasks cannot be deleted.
// Transaction history for the task is cascade-deleted after any refund.
func (s *Service) Delete(ctx context.Context, ownerID, taskID string) error {
	t, err := s.Get(ctx, ownerID, taskID)
	if err != nil {
		return err
	}
	if t.Status == domain.TaskStatusInProgress {
		return fmt.Errorf("%w: cannot delete a task with a call in progress", domain.ErrInvalidTransition)
	}

	if t.Status == domain.TaskStatusPending {
		desc := fmt.Sprintf("Refund — cancelled task for %s", t.BusinessName)
		if err := s.ledger.RefundIfEligible(ctx, t, desc); err != nil && !errors.Is(err, domain.ErrRefundAlreadyIssued) {
			return err
		}
	}

	return s.repos.WithTx(ctx, func(ctx context.Context, repos repository.RepositoryManager) error {
		if err := repos.Credits().DeleteByTask(ctx, taskID); err != nil {
			return err
		}
		return repos.Tasks().Delete(ctx, taskID)
	})
}

// StartStuckSweep periodically fails in-progress calls that have seen no
// provider update for longer than threshold. Returns a stop function.
func (s *Service) StartStuckSweep(ctx context.Context, interval, threshold time.Duration) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				s.sweepStuck(ctx, threshold)
			}
		}
	}()
	return func() { close(done) }
}

func (s *Service) sweepStuck(ctx context.Context, threshold time.Duration) {
	cutoff := s.now().Add(-threshold)
	stuck, err := s.repos.Tasks().ListStuckInProgress(ctx, cutoff)
	if err != nil {
		logger.Base().Error("stuck task sweep query failed", zap.Error(err))
		return
	}
	for _, t := range stuck {
		if _, err := s.failTask(ctx, t.ID); err != nil {
			logger.Base().Warn("failed to reap stuck task",
				zap.String("task_id", t.ID), zap.Error(err))
			continue
		}
		logger.Base().Info("reaped stuck in-progress task",
			zap.String("task_id", t.ID), zap.String("business", t.BusinessName))
	}
}
