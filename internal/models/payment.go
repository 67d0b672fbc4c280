package models

import (
	"time"

	"github.com/google/uuid"
)

// CommissionRate фиксированная комиссия платформы: 5% от суммы расчёта.
// Применяется одинаково при обычной выплате и при решении спора в пользу
// мастера.
const CommissionRate = 0.05

// MinWithdrawalAmount минимальная сумма вывода средств мастером.
const MinWithdrawalAmount = 500

// UserBalance баланс пользователя: доступные и замороженные средства.
type UserBalance struct {
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Available float64   `db:"available" json:"available"`
	Frozen    float64   `db:"frozen" json:"frozen"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Типы транзакций.
const (
	TransactionTypeDeposit    = "deposit"
	TransactionTypeEscrowHold = "escrow_hold"
	TransactionTypePayout     = "payout"
	TransactionTypeRefund     = "refund"
	TransactionTypeCommission = "commission"
	TransactionTypeWithdrawal = "withdrawal"
)

// Transaction запись движения средств.
type Transaction struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	UserID      uuid.UUID  `db:"user_id" json:"user_id"`
	OrderID     *uuid.UUID `db:"order_id" json:"order_id,omitempty"`
	Type        string     `db:"type" json:"type"`
	Amount      float64    `db:"amount" json:"amount"`
	Status      string     `db:"status" json:"status"`
	Description string     `db:"description" json:"description"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
}
