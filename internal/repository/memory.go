package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/coveplatform/mosh/internal/domain"
)

// MemoryRepositoryManager is a simple in-memory RepositoryManager useful for
// tests. All operations share one mutex; WithTx serializes against other
// transactions but does not roll back on error, so callers must validate
// before writing (which the services do).
type MemoryRepositoryManager struct {
	mu       sync.Mutex
	tasks    map[string]domain.Task
	accounts map[string]domain.Account
	txns     []domain.CreditTransaction

	taskRepo    *memoryTaskRepo
	accountRepo *memoryAccountRepo
	creditRepo  *memoryCreditRepo
}

// NewMemoryRepositoryManager creates an empty in-memory repository manager.
func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	m := &MemoryRepositoryManager{
		tasks:    make(map[string]domain.Task),
		accounts: make(map[string]domain.Account),
	}
	m.taskRepo = &memoryTaskRepo{m: m}
	m.accountRepo = &memoryAccountRepo{m: m}
	m.creditRepo = &memoryCreditRepo{m: m}
	return m
}

func (m *MemoryRepositoryManager) Tasks() TaskRepository       { return m.taskRepo }
func (m *MemoryRepositoryManager) Accounts() AccountRepository { return m.accountRepo }
func (m *MemoryRepositoryManager) Credits() CreditRepository   { return m.creditRepo }

func (m *MemoryRepositoryManager) WithTx(ctx context.Context, fn func(ctx context.Context, repos RepositoryManager) error) error {
	return fn(ctx, m)
}

func (m *MemoryRepositoryManager) Ping(ctx context.Context) error { return nil }
func (m *MemoryRepositoryManager) Close() error                   { return nil }

type memoryTaskRepo struct{ m *MemoryRepositoryManager }

func (r *memoryTaskRepo) Create(ctx context.Context, task *domain.Task) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.tasks[task.ID] = *task
	return nil
}

func (r *memoryTaskRepo) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	t, ok := r.m.tasks[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	return &t, nil
}

func (r *memoryTaskRepo) GetByIDForUpdate(ctx context.Context, id string) (*domain.Task, error) {
	return r.GetByID(ctx, id)
}

func (r *memoryTaskRepo) GetByProviderHandle(ctx context.Context, handle string) (*domain.Task, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, t := range r.m.tasks {
		if t.ProviderHandle == handle {
			task := t
			return &task, nil
		}
	}
	return nil, domain.ErrTaskNotFound
}

func (r *memoryTaskRepo) GetByOwner(ctx context.Context, ownerID string) ([]*domain.Task, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*domain.Task
	for _, t := range r.m.tasks {
		if t.OwnerID == ownerID {
			task := t
			out = append(out, &task)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memoryTaskRepo) Update(ctx context.Context, task *domain.Task) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.tasks[task.ID]; !ok {
		return domain.ErrTaskNotFound
	}
	r.m.tasks[task.ID] = *task
	return nil
}

func (r *memoryTaskRepo) Delete(ctx context.Context, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	delete(r.m.tasks, id)
	return nil
}

func (r *memoryTaskRepo) ListStuckInProgress(ctx context.Context, cutoff time.Time) ([]*domain.Task, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*domain.Task
	for _, t := range r.m.tasks {
		if t.Status == domain.TaskStatusInProgress && t.StartedAt != nil && t.StartedAt.Before(cutoff) {
			task := t
			out = append(out, &task)
		}
	}
	return out, nil
}

type memoryAccountRepo struct{ m *MemoryRepositoryManager }

func (r *memoryAccountRepo) Create(ctx context.Context, account *domain.Account) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.accounts[account.ID] = *account
	return nil
}

func (r *memoryAccountRepo) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	a, ok := r.m.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return &a, nil
}

func (r *memoryAccountRepo) GetByIDForUpdate(ctx context.Context, id string) (*domain.Account, error) {
	return r.GetByID(ctx, id)
}

func (r *memoryAccountRepo) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, a := range r.m.accounts {
		if a.Email == email {
			account := a
			return &account, nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (r *memoryAccountRepo) Update(ctx context.Context, account *domain.Account) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.accounts[account.ID]; !ok {
		return domain.ErrAccountNotFound
	}
	r.m.accounts[account.ID] = *account
	return nil
}

type memoryCreditRepo struct{ m *MemoryRepositoryManager }

func (r *memoryCreditRepo) Create(ctx context.Context, txn *domain.CreditTransaction) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.txns = append(r.m.txns, *txn)
	return nil
}

func (r *memoryCreditRepo) ListByOwner(ctx context.Context, ownerID string) ([]*domain.CreditTransaction, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*domain.CreditTransaction
	for i := range r.m.txns {
		if r.m.txns[i].OwnerID == ownerID {
			txn := r.m.txns[i]
			out = append(out, &txn)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memoryCreditRepo) SumByOwner(ctx context.Context, ownerID string) (int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	sum := 0
	for i := range r.m.txns {
		if r.m.txns[i].OwnerID == ownerID {
			sum += r.m.txns[i].Amount
		}
	}
	return sum, nil
}

func (r *memoryCreditRepo) ExistsRefundForTask(ctx context.Context, taskID string) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for i := range r.m.txns {
		t := r.m.txns[i]
		if t.Kind == domain.TransactionKindRefund && t.TaskID != nil && *t.TaskID == taskID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryCreditRepo) DeleteByTask(ctx context.Context, taskID string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	kept := r.m.txns[:0]
	for i := range r.m.txns {
		t := r.m.txns[i]
		if t.TaskID == nil || *t.TaskID != taskID {
			kept = append(kept, t)
		}
	}
	r.m.txns = kept
	return nil
}
