package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/coveplatform/mosh/internal/config"
	"github.com/coveplatform/mosh/internal/domain"
	"github.com/coveplatform/mosh/internal/repository"
	"github.com/coveplatform/mosh/pkg/logger"
)

// Service is the credit ledger. Every balance change is recorded as a
// transaction and applied to the account projection in the same database
// transaction, so balance == sum of transaction amounts at all times.
type Service struct {
	repos repository.RepositoryManager
	now   func() time.Time
}

// NewService creates a ledger service backed by the given repositories.
func NewService(repos repository.RepositoryManager) *Service {
	return &Service{repos: repos, now: time.Now}
}

// WithClock overrides the clock, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Debit removes amount credits from the owner. amount must be positive.
// Returns domain.ErrInsufficientCredits if the balance would go negative.
func (s *Service) Debit(ctx context.Context, ownerID string, amount int, description string, taskID *string) error {
	return s.repos.WithTx(ctx, func(ctx context.Context, repos repository.RepositoryManager) error {
		return s.DebitInTx(ctx, repos, ownerID, amount, description, taskID)
	})
}

// DebitInTx is Debit running inside the caller's transaction, so a debit
// can commit atomically with another write (task creation).
func (s *Service) DebitInTx(ctx context.Context, repos repository.RepositoryManager, ownerID string, amount int, description string, taskID *string) error {
	if amount <= 0 {
		return fmt.Errorf("debit amount must be positive, got %d", amount)
	}
	account, err := repos.Accounts().GetByIDForUpdate(ctx, ownerID)
	if err != nil {
		return err
	}
	if account.Credits < amount {
		return domain.ErrInsufficientCredits
	}
	return s.apply(ctx, repos, account, -amount, domain.TransactionKindUsage, description, taskID)
}

// Credit adds amount credits to the owner. amount must be positive except
// for informational zero-amount entries (payment failure notes).
func (s *Service) Credit(ctx context.Context, ownerID string, amount int, kind domain.TransactionKind, description string, taskID *string) error {
	if amount < 0 {
		return fmt.Errorf("credit amount must not be negative, got %d", amount)
	}
	return s.repos.WithTx(ctx, func(ctx context.Context, repos repository.RepositoryManager) error {
		account, err := repos.Accounts().GetByIDForUpdate(ctx, ownerID)
		if err != nil {
			return err
		}
		return s.apply(ctx, repos, account, amount, kind, description, taskID)
	})
}

// RefundIfEligible returns the task's credits to its owner exactly once.
// A second call for the same task returns domain.ErrRefundAlreadyIssued
// and changes nothing.
func (s *Service) RefundIfEligible(ctx context.Context, task *domain.Task, description string) error {
	if task.CreditsUsed <= 0 {
		return nil
	}
	return s.repos.WithTx(ctx, func(ctx context.Context, repos repository.RepositoryManager) error {
		exists, err := repos.Credits().ExistsRefundForTask(ctx, task.ID)
		if err != nil {
			return err
		}
		if exists {
			return domain.ErrRefundAlreadyIssued
		}
		account, err := repos.Accounts().GetByIDForUpdate(ctx, task.OwnerID)
		if err != nil {
			return err
		}
		taskID := task.ID
		return s.apply(ctx, repos, account, task.CreditsUsed, domain.TransactionKindRefund, description, &taskID)
	})
}

// RefreshToPlan moves the owner onto the given plan and resets the balance
// to the plan's monthly grant. The reset is recorded as a single signed
// delta transaction so the ledger keeps summing to the balance.
func (s *Service) RefreshToPlan(ctx context.Context, ownerID string, plan config.Plan, description string) error {
	return s.repos.WithTx(ctx, func(ctx context.Context, repos repository.RepositoryManager) error {
		account, err := repos.Accounts().GetByIDForUpdate(ctx, ownerID)
		if err != nil {
			return err
		}
		account.Plan = plan.Key
		account.CreditsMax = plan.Credits

		delta := plan.Credits - account.Credits
		if delta == 0 {
			account.UpdatedAt = s.now()
			return repos.Accounts().Update(ctx, account)
		}
		return s.apply(ctx, repos, account, delta, domain.TransactionKindSubscription, description, nil)
	})
}

// Balance returns the owner's current credit balance.
func (s *Service) Balance(ctx context.Context, ownerID string) (int, error) {
	account, err := s.repos.Accounts().GetByID(ctx, ownerID)
	if err != nil {
		return 0, err
	}
	return account.Credits, nil
}

// BalanceWithHistory returns the balance together with the transaction
// history, newest first.
func (s *Service) BalanceWithHistory(ctx context.Context, ownerID string) (int, []*domain.CreditTransaction, error) {
	account, err := s.repos.Accounts().GetByID(ctx, ownerID)
	if err != nil {
		return 0, nil, err
	}
	txns, err := s.repos.Credits().ListByOwner(ctx, ownerID)
	if err != nil {
		return 0, nil, err
	}
	return account.Credits, txns, nil
}

// apply writes the transaction and the matching balance change together.
// Callers must hold the account row lock.
func (s *Service) apply(ctx context.Context, repos repository.RepositoryManager, account *domain.Account, amount int, kind domain.TransactionKind, description string, taskID *string) error {
	txn := &domain.CreditTransaction{
		ID:          uuid.NewString(),
		OwnerID:     account.ID,
		Amount:      amount,
		Kind:        kind,
		Description: description,
		TaskID:      taskID,
		CreatedAt:   s.now(),
	}
	if err := repos.Credits().Create(ctx, txn); err != nil {
		return err
	}

	account.Credits += amount
	account.UpdatedAt = s.now()
	if err := repos.Accounts().Update(ctx, account); err != nil {
		return err
	}

	logger.Base().Debug("ledger entry applied",
		zap.String("owner_id", account.ID),
		zap.Int("amount", amount),
		zap.String("kind", string(kind)),
		zap.Int("balance", account.Credits))
	return nil
}
