package account

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coveplatform/mosh/internal/config"
	"github.com/coveplatform/mosh/internal/domain"
	"github.com/coveplatform/mosh/internal/ledger"
	"github.com/coveplatform/mosh/internal/repository"
)

func newTestService(t *testing.T) (*Service, repository.RepositoryManager, *ledger.Service) {
	t.Helper()
	repos := repository.NewMemoryRepositoryManager()
	ledgerSvc := ledger.NewService(repos)
	return NewService(repos, ledgerSvc), repos, ledgerSvc
}

func TestEnsureProvisionsWithWelcomeBonus(t *testing.T) {
	svc, repos, _ := newTestService(t)

	acct, err := svc.Ensure(context.Background(), "owner-1")
	require.NoError(t, err)
	assert.Equal(t, "free", acct.Plan)
	assert.Equal(t, 3, acct.Credits)
	assert.Equal(t, 3, acct.CreditsMax)

	txns, err := repos.Credits().ListByOwner(context.Background(), "owner-1")
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, domain.TransactionKindBonus, txns[0].Kind)
	assert.Equal(t, 3, txns[0].Amount)

	// Second call is a plain lookup, no second grant.
	again, err := svc.Ensure(context.Background(), "owner-1")
	require.NoError(t, err)
	assert.Equal(t, 3, again.Credits)
	txns, err = repos.Credits().ListByOwner(context.Background(), "owner-1")
	require.NoError(t, err)
	assert.Len(t, txns, 1)
}

func TestApplyPlanUpgradesAndDowngrades(t *testing.T) {
	svc, repos, _ := newTestService(t)

	require.NoError(t, svc.ApplyPlan(context.Background(), "owner-1", config.PlanByKey("global"), "Subscription activated: Global plan"))

	acct, err := repos.Accounts().GetByID(context.Background(), "owner-1")
	require.NoError(t, err)
	assert.Equal(t, "global", acct.Plan)
	assert.Equal(t, 50, acct.Credits)
	assert.Equal(t, 50, acct.CreditsMax)

	require.NoError(t, svc.ApplyPlan(context.Background(), "owner-1", config.FreePlan(), "Subscription cancelled, reverted to free plan"))
	acct, err = repos.Accounts().GetByID(context.Background(), "owner-1")
	require.NoError(t, err)
	assert.Equal(t, "free", acct.Plan)
	assert.Equal(t, 3, acct.Credits)

	// Balance always equals the sum of the ledger entries.
	sum, err := repos.Credits().SumByOwner(context.Background(), "owner-1")
	require.NoError(t, err)
	assert.Equal(t, acct.Credits, sum)
}
