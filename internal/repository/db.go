package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/coveplatform/mosh/internal/domain"
)

// TaskRepository defines the interface for task persistence
type TaskRepository interface {
	Create(ctx context.Context, task *domain.Task) error
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	// GetByIDForUpdate takes a row lock; only meaningful inside WithTx.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Task, error)
	GetByProviderHandle(ctx context.Context, handle string) (*domain.Task, error)
	GetByOwner(ctx context.Context, ownerID string) ([]*domain.Task, error)
	Update(ctx context.Context, task *domain.Task) error
	Delete(ctx context.Context, id string) error
	// ListStuckInProgress returns in-progress tasks whose call started
	// before the cutoff and never received a terminal webhook.
	ListStuckInProgress(ctx context.Context, cutoff time.Time) ([]*domain.Task, error)
}

// AccountRepository defines the interface for account persistence
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	Update(ctx context.Context, account *domain.Account) error
}

// CreditRepository defines the interface for the credit transaction ledger
type CreditRepository interface {
	Create(ctx context.Context, txn *domain.CreditTransaction) error
	ListByOwner(ctx context.Context, ownerID string) ([]*domain.CreditTransaction, error)
	SumByOwner(ctx context.Context, ownerID string) (int, error)
	ExistsRefundForTask(ctx context.Context, taskID string) (bool, error)
	DeleteByTask(ctx context.Context, taskID string) error
}

// RepositoryManager combines all repositories
type RepositoryManager interface {
	Tasks() TaskRepository
	Accounts() AccountRepository
	Credits() CreditRepository

	// WithTx executes fn inside a single database transaction; the
	// repositories on the passed manager all share that transaction.
	WithTx(ctx context.Context, fn func(ctx context.Context, repos RepositoryManager) error) error

	Ping(ctx context.Context) error
	Close() error
}

// GormRepositoryManager implements RepositoryManager using GORM
type GormRepositoryManager struct {
	db          *gorm.DB
	taskRepo    *GormTaskRepository
	accountRepo *GormAccountRepository
	creditRepo  *GormCreditRepository
}

// NewGormRepositoryManager creates a new GORM repository manager
func NewGormRepositoryManager(db *gorm.DB) *GormRepositoryManager {
	return &GormRepositoryManager{
		db:          db,
		taskRepo:    NewGormTaskRepository(db),
		accountRepo: NewGormAccountRepository(db),
		creditRepo:  NewGormCreditRepository(db),
	}
}

func (m *GormRepositoryManager) Tasks() TaskRepository       { return m.taskRepo }
func (m *GormRepositoryManager) Accounts() AccountRepository { return m.accountRepo }
func (m *GormRepositoryManager) Credits() CreditRepository   { return m.creditRepo }

// WithTx executes a function within a database transaction
func (m *GormRepositoryManager) WithTx(ctx context.Context, fn func(ctx context.Context, repos RepositoryManager) error) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, NewGormRepositoryManager(tx))
	})
}

// Ping checks the database connection
func (m *GormRepositoryManager) Ping(ctx context.Context) error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection
func (m *GormRepositoryManager) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
