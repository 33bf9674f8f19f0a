package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/coveplatform/mosh/internal/domain"
)

// GormCreditRepository implements CreditRepository using GORM
type GormCreditRepository struct {
	db *gorm.DB
}

// NewGormCreditRepository creates a new GORM credit repository
func NewGormCreditRepository(db *gorm.DB) *GormCreditRepository {
	return &GormCreditRepository{db: db}
}

func (r *GormCreditRepository) Create(ctx context.Context, txn *domain.CreditTransaction) error {
	if err := r.db.WithContext(ctx).Create(txn).Error; err != nil {
		return fmt.Errorf("failed to create credit transaction: %w", err)
	}
	return nil
}

func (r *GormCreditRepository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.CreditTransaction, error) {
	var txns []*domain.CreditTransaction
	if err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&txns).Error; err != nil {
		return nil, fmt.Errorf("failed to list credit transactions: %w", err)
	}
	return txns, nil
}

func (r *GormCreditRepository) SumByOwner(ctx context.Context, ownerID string) (int, error) {
	var sum *int
	if err := r.db.WithContext(ctx).
		Model(&domain.CreditTransaction{}).
		Select("SUM(amount)").
		Where("owner_id = ?", ownerID).
		Scan(&sum).Error; err != nil {
		return 0, fmt.Errorf("failed to sum credit transactions: %w", err)
	}
	if sum == nil {
		return 0, nil
	}
	return *sum, nil
}

func (r *GormCreditRepository) ExistsRefundForTask(ctx context.Context, taskID string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&domain.CreditTransaction{}).
		Where("task_id = ? AND kind = ?", taskID, domain.TransactionKindRefund).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check refund for task: %w", err)
	}
	return count > 0, nil
}

func (r *GormCreditRepository) DeleteByTask(ctx context.Context, taskID string) error {
	if err := r.db.WithContext(ctx).
		Delete(&domain.CreditTransaction{}, "task_id = ?", taskID).Error; err != nil {
		return fmt.Errorf("failed to delete credit transactions for task: %w", err)
	}
	return nil
}
