package account

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/coveplatform/mosh/internal/config"
	"github.com/coveplatform/mosh/internal/domain"
	"github.com/coveplatform/mosh/internal/ledger"
	"github.com/coveplatform/mosh/internal/repository"
	"github.com/coveplatform/mosh/pkg/logger"
)

// Service provisions and looks up accounts. New accounts start on the free
// plan with its credit allowance granted as a welcome bonus transaction.
type Service struct {
	repos  repository.RepositoryManager
	ledger *ledger.Service
	now    func() time.Time
}

func NewService(repos repository.RepositoryManager, ledgerSvc *ledger.Service) *Service {
	return &Service{
		repos:  repos,
		ledger: ledgerSvc,
		now:    time.Now,
	}
}

// Ensure returns the account for ownerID, creating it on first sight.
func (s *Service) Ensure(ctx context.Context, ownerID string) (*domain.Account, error) {
	acct, err := s.repos.Accounts().GetByID(ctx, ownerID)
	if err == nil {
		return acct, nil
	}
	if !errors.Is(err, domain.ErrAccountNotFound) {
		return nil, err
	}

	plan := config.FreePlan()
	now := s.now()
	acct = &domain.Account{
		ID:         ownerID,
		Plan:       plan.Key,
		Credits:    0,
		CreditsMax: plan.Credits,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repos.Accounts().Create(ctx, acct); err != nil {
		// Lost a create race; the other writer's row wins.
		if existing, getErr := s.repos.Accounts().GetByID(ctx, ownerID); getErr == nil {
			return existing, nil
		}
		return nil, err
	}

	if err := s.ledger.Credit(ctx, ownerID, plan.Credits, domain.TransactionKindBonus, "Welcome bonus", nil); err != nil {
		return nil, err
	}
	logger.Base().Info("provisioned new account",
		zap.String("owner_id", ownerID), zap.String("plan", plan.Key))
	return s.repos.Accounts().GetByID(ctx, ownerID)
}

// Get returns the account without provisioning.
func (s *Service) Get(ctx context.Context, ownerID string) (*domain.Account, error) {
	return s.repos.Accounts().GetByID(ctx, ownerID)
}

// ApplyPlan moves the account to the given plan and resets its balance to
// the plan allowance, recording the delta in the ledger.
func (s *Service) ApplyPlan(ctx context.Context, ownerID string, plan config.Plan, description string) error {
	if _, err := s.Ensure(ctx, ownerID); err != nil {
		return err
	}
	return s.ledger.RefreshToPlan(ctx, ownerID, plan, description)
}
