package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TransactionType string

const (
	TransactionTypeProjectPayment TransactionType = "project_payment"
	TransactionTypeWithdrawal     TransactionType = "withdrawal"
	TransactionTypeRefund         TransactionType = "refund"
)

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
)

// Transaction is a money movement record. PayerID is nil for
// platform-initiated payouts (withdrawals).
type Transaction struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID *uuid.UUID `gorm:"type:uuid;index" json:"project_id,omitempty"`
	PayerID   *uuid.UUID `gorm:"type:uuid;index" json:"payer_id,omitempty"`
	PayeeID   uuid.UUID  `gorm:"type:uuid;index;not null" json:"payee_id"`

	Amount   float64           `gorm:"not null" json:"amount"`
	Currency string            `gorm:"type:varchar(10);default:'USD'" json:"currency"`
	Type     TransactionType   `gorm:"type:varchar(30);not null;index" json:"type"`
	Status   TransactionStatus `gorm:"type:varchar(20);not null" json:"status"`

	TransactionDate time.Time `gorm:"index" json:"transaction_date"`
	CreatedAt       time.Time `json:"created_at"`
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) (err error) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.TransactionDate.IsZero() {
		t.TransactionDate = time.Now()
	}
	return
}
