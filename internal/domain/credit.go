package domain

import (
	"time"
)

// TransactionKind classifies a ledger entry.
type TransactionKind string

const (
	TransactionKindBonus        TransactionKind = "bonus"
	TransactionKindSubscription TransactionKind = "subscription"
	TransactionKindUsage        TransactionKind = "usage"
	TransactionKindRefund       TransactionKind = "refund"
)

// CreditTransaction is an immutable ledger line. Positive amounts are grants
// and refunds, negative amounts are usage. The owning account's balance must
// always equal the sum of its transaction amounts.
type CreditTransaction struct {
	ID          string          `json:"id" gorm:"column:id;primaryKey"`
	OwnerID     string          `json:"owner_id" gorm:"column:owner_id;index"`
	Amount      int             `json:"amount" gorm:"column:amount"`
	Kind        TransactionKind `json:"kind" gorm:"column:kind"`
	Description string          `json:"description" gorm:"column:description"`
	TaskID      *string         `json:"task_id,omitempty" gorm:"column:task_id;index"`
	CreatedAt   time.Time       `json:"created_at" gorm:"column:created_at"`
}

func (CreditTransaction) TableName() string {
	return "credit_transactions"
}
