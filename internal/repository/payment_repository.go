package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/plevandm/repairhub-backend/internal/models"
	"github.com/plevandm/repairhub-backend/internal/pkg/apperror"
)

// ErrInsufficientFunds доступный баланс меньше запрошенной суммы.
var ErrInsufficientFunds = apperror.New(apperror.ErrCodeConflict, "недостаточно средств на балансе")

// PaymentRepository ведёт балансы пользователей и журнал транзакций.
// Баланс мастера пополняют только выплата и решение спора в его пользу,
// оба пути проходят через CreditMaster.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository создаёт новый экземпляр.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// GetBalance возвращает баланс пользователя, создаёт запись если её нет.
func (r *PaymentRepository) GetBalance(ctx context.Context, userID uuid.UUID) (*models.UserBalance, error) {
	var balance models.UserBalance
	query := `
		INSERT INTO user_balances (user_id, available, frozen)
		VALUES ($1, 0, 0)
		ON CONFLICT (user_id) DO UPDATE SET updated_at = NOW()
		RETURNING user_id, available, frozen, updated_at
	`
	if err := r.db.GetContext(ctx, &balance, query, userID); err != nil {
		return nil, fmt.Errorf("payment repository: get balance %w", err)
	}
	return &balance, nil
}

// RecordEscrow фиксирует поступление средств клиента в эскроу.
// Деньги приходят извне (карта), баланс клиента не списывается.
func (r *PaymentRepository) RecordEscrow(ctx context.Context, clientID, orderID uuid.UUID, amount float64) (*models.Transaction, error) {
	var transaction models.Transaction
	err := r.db.GetContext(ctx, &transaction, `
		INSERT INTO transactions (user_id, order_id, type, amount, status, description, completed_at)
		VALUES ($1, $2, $3, $4, 'completed', 'Средства зачислены в эскроу', NOW())
		RETURNING id, user_id, order_id, type, amount, status, description, created_at, completed_at
	`, clientID, orderID, models.TransactionTypeEscrowHold, amount)
	if err != nil {
		return nil, fmt.Errorf("payment repository: record escrow %w", err)
	}
	return &transaction, nil
}

// CreditMaster зачисляет выплату мастеру и отдельно фиксирует комиссию
// платформы. Выполняется одной транзакцией.
func (r *PaymentRepository) CreditMaster(ctx context.Context, masterID, orderID uuid.UUID, payout, commission float64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("payment repository: credit master begin %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO user_balances (user_id, available, frozen)
		VALUES ($1, $2, 0)
		ON CONFLICT (user_id) DO UPDATE SET available = user_balances.available + $2, updated_at = NOW()
	`, masterID, payout)
	if err != nil {
		return fmt.Errorf("payment repository: credit master balance %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO transactions (user_id, order_id, type, amount, status, description, completed_at)
		VALUES ($1, $2, $3, $4, 'completed', 'Выплата за выполненный заказ', NOW())
	`, masterID, orderID, models.TransactionTypePayout, payout)
	if err != nil {
		return fmt.Errorf("payment repository: credit master payout tx %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO transactions (user_id, order_id, type, amount, status, description, completed_at)
		VALUES ($1, $2, $3, $4, 'completed', 'Комиссия платформы', NOW())
	`, masterID, orderID, models.TransactionTypeCommission, commission)
	if err != nil {
		return fmt.Errorf("payment repository: credit master commission tx %w", err)
	}

	return tx.Commit()
}

// RefundClient возвращает клиенту полную сумму без удержания комиссии.
func (r *PaymentRepository) RefundClient(ctx context.Context, clientID, orderID uuid.UUID, amount float64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("payment repository: refund begin %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO user_balances (user_id, available, frozen)
		VALUES ($1, $2, 0)
		ON CONFLICT (user_id) DO UPDATE SET available = user_balances.available + $2, updated_at = NOW()
	`, clientID, amount)
	if err != nil {
		return fmt.Errorf("payment repository: refund balance %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO transactions (user_id, order_id, type, amount, status, description, completed_at)
		VALUES ($1, $2, $3, $4, 'completed', 'Возврат средств по заказу', NOW())
	`, clientID, orderID, models.TransactionTypeRefund, amount)
	if err != nil {
		return fmt.Errorf("payment repository: refund tx %w", err)
	}

	return tx.Commit()
}

// Withdraw списывает средства с доступного баланса мастера.
func (r *PaymentRepository) Withdraw(ctx context.Context, masterID uuid.UUID, amount float64) (*models.Transaction, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("payment repository: withdraw begin %w", err)
	}
	defer tx.Rollback()

	var balance models.UserBalance
	err = tx.GetContext(ctx, &balance, `SELECT user_id, available, frozen, updated_at FROM user_balances WHERE user_id = $1 FOR UPDATE`, masterID)
	if err == sql.ErrNoRows || (err == nil && balance.Available < amount) {
		return nil, ErrInsufficientFunds
	}
	if err != nil {
		return nil, fmt.Errorf("payment repository: withdraw balance %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE user_balances SET available = available - $2, updated_at = NOW() WHERE user_id = $1
	`, masterID, amount)
	if err != nil {
		return nil, fmt.Errorf("payment repository: withdraw update %w", err)
	}

	var transaction models.Transaction
	err = tx.GetContext(ctx, &transaction, `
		INSERT INTO transactions (user_id, type, amount, status, description, completed_at)
		VALUES ($1, $2, $3, 'completed', 'Вывод средств', NOW())
		RETURNING id, user_id, order_id, type, amount, status, description, created_at, completed_at
	`, masterID, models.TransactionTypeWithdrawal, amount)
	if err != nil {
		return nil, fmt.Errorf("payment repository: withdraw tx %w", err)
	}

	return &transaction, tx.Commit()
}

// ListTransactions возвращает историю транзакций пользователя.
func (r *PaymentRepository) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Transaction, error) {
	var transactions []models.Transaction
	query := `
		SELECT id, user_id, order_id, type, amount, status, description, created_at, completed_at
		FROM transactions WHERE user_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`
	if err := r.db.SelectContext(ctx, &transactions, query, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("payment repository: list transactions %w", err)
	}
	return transactions, nil
}
