package domain

import (
	"time"
)

// Account is the credit-bearing owner of tasks. Authentication lives
// elsewhere; the service only sees the opaque account id. Credits is a
// projection of the ledger and is only written alongside a matching
// CreditTransaction.
type Account struct {
	ID           string    `json:"id" gorm:"column:id;primaryKey"`
	Name         string    `json:"name,omitempty" gorm:"column:name"`
	Email        string    `json:"email,omitempty" gorm:"column:email"`
	ReplyToEmail string    `json:"reply_to_email,omitempty" gorm:"column:reply_to_email"`
	Plan         string    `json:"plan" gorm:"column:plan"`
	Credits      int       `json:"credits" gorm:"column:credits"`
	CreditsMax   int       `json:"credits_max" gorm:"column:credits_max"`
	CreatedAt    time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"column:updated_at"`
}

func (Account) TableName() string {
	return "accounts"
}
