package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/plevandm/repairhub-backend/internal/models"
	"github.com/plevandm/repairhub-backend/internal/pkg/apperror"
)

const orderColumns = `
	id, client_id, assigned_master_id, title, description, device_type, issue,
	city, urgency, budget, status, payment_status, dispute_status,
	agreed_price, payment_amount, escrowed_at, proposal_count,
	created_at, updated_at, completed_at, deleted_at, dispute_created_at
`

// OrderRepository отвечает за хранение заказов. Все мутации агрегата
// (заказ + его отклики) выполняются одной транзакцией с блокировкой
// строки заказа: конкурентный читатель видит каскад принятия отклика
// либо целиком, либо не видит вовсе.
type OrderRepository struct {
	db *sqlx.DB
}

// NewOrderRepository создаёт новый экземпляр.
func NewOrderRepository(db *sqlx.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create сохраняет новый заказ.
func (r *OrderRepository) Create(ctx context.Context, order *models.Order) error {
	query := `
		INSERT INTO orders (client_id, title, description, device_type, issue, city, urgency, budget, status, payment_status, dispute_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		order.ClientID, order.Title, order.Description, order.DeviceType, order.Issue,
		order.City, order.Urgency, order.Budget, order.Status, order.PaymentStatus, order.DisputeStatus,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("order repository: create %w", err)
	}
	return nil
}

// GetByID возвращает заказ по идентификатору.
func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	if err := r.db.GetContext(ctx, &order, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.ErrOrderNotFound
		}
		return nil, fmt.Errorf("order repository: get by id %w", err)
	}
	return &order, nil
}

// Save сохраняет все изменяемые поля заказа и поднимает updated_at.
// Вызывающая сторона уже провела все проверки state machine: репозиторий
// пишет состояние как есть.
func (r *OrderRepository) Save(ctx context.Context, order *models.Order) error {
	query := `
		UPDATE orders SET
			assigned_master_id = $2, status = $3, payment_status = $4, dispute_status = $5,
			agreed_price = $6, payment_amount = $7, escrowed_at = $8, proposal_count = $9,
			completed_at = $10, deleted_at = $11, dispute_created_at = $12,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		order.ID, order.AssignedMasterID, order.Status, order.PaymentStatus, order.DisputeStatus,
		order.AgreedPrice, order.PaymentAmount, order.EscrowedAt, order.ProposalCount,
		order.CompletedAt, order.DeletedAt, order.DisputeCreatedAt,
	).Scan(&order.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return apperror.ErrOrderNotFound
		}
		return fmt.Errorf("order repository: save %w", err)
	}
	return nil
}

// AcceptProposalResult итог каскадного принятия отклика.
type AcceptProposalResult struct {
	Order            *models.Order
	AcceptedProposal *models.Proposal
	RejectedMasters  []uuid.UUID
}

// AcceptProposal атомарно принимает отклик: целевой отклик становится
// accepted, все прочие отклики заказа — rejected, заказу назначается
// мастер и согласованная цена. Строка заказа блокируется на время
// транзакции, частично применённый каскад снаружи не наблюдаем.
func (r *OrderRepository) AcceptProposal(ctx context.Context, orderID, proposalID uuid.UUID) (*AcceptProposalResult, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("order repository: accept proposal begin %w", err)
	}
	defer tx.Rollback()

	var order models.Order
	if err := tx.GetContext(ctx, &order, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, orderID); err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.ErrOrderNotFound
		}
		return nil, fmt.Errorf("order repository: accept proposal lock %w", err)
	}

	var accepted models.Proposal
	err = tx.GetContext(ctx, &accepted, `
		UPDATE proposals SET status = $3, updated_at = NOW()
		WHERE id = $1 AND order_id = $2 AND status = $4
		RETURNING `+proposalColumns, proposalID, orderID, models.ProposalStatusAccepted, models.ProposalStatusPending)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.New(apperror.ErrCodeInvalidProposalState, "отклик не найден или уже обработан")
		}
		return nil, fmt.Errorf("order repository: accept proposal update %w", err)
	}

	// Каскад: все остальные отклики заказа отклоняются той же транзакцией.
	var rejectedMasters []uuid.UUID
	rows, err := tx.QueryContext(ctx, `
		UPDATE proposals SET status = $3, updated_at = NOW()
		WHERE order_id = $1 AND id <> $2 AND status = $4
		RETURNING master_id
	`, orderID, proposalID, models.ProposalStatusRejected, models.ProposalStatusPending)
	if err != nil {
		return nil, fmt.Errorf("order repository: reject cascade %w", err)
	}
	for rows.Next() {
		var masterID uuid.UUID
		if err := rows.Scan(&masterID); err != nil {
			rows.Close()
			return nil, fmt.Errorf("order repository: reject cascade scan %w", err)
		}
		rejectedMasters = append(rejectedMasters, masterID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("order repository: reject cascade rows %w", err)
	}

	order.Status = models.OrderStatusAccepted
	order.AssignedMasterID = &accepted.MasterID
	order.AgreedPrice = &accepted.Price

	err = tx.QueryRowContext(ctx, `
		UPDATE orders SET status = $2, assigned_master_id = $3, agreed_price = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`, orderID, order.Status, order.AssignedMasterID, order.AgreedPrice).Scan(&order.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("order repository: accept proposal save order %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("order repository: accept proposal commit %w", err)
	}

	return &AcceptProposalResult{
		Order:            &order,
		AcceptedProposal: &accepted,
		RejectedMasters:  rejectedMasters,
	}, nil
}

// CountActiveByClient возвращает число незавершённых заказов клиента.
func (r *OrderRepository) CountActiveByClient(ctx context.Context, clientID uuid.UUID) (int, error) {
	var count int
	query := `
		SELECT COUNT(*) FROM orders
		WHERE client_id = $1 AND status NOT IN ($2, $3, $4)
	`
	err := r.db.GetContext(ctx, &count, query, clientID,
		models.OrderStatusCompleted, models.OrderStatusCancelled, models.OrderStatusDeleted)
	if err != nil {
		return 0, fmt.Errorf("order repository: count active %w", err)
	}
	return count, nil
}

// ListByClient возвращает заказы клиента, без удалённых.
func (r *OrderRepository) ListByClient(ctx context.Context, clientID uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	query := `SELECT ` + orderColumns + ` FROM orders WHERE client_id = $1 AND status <> $2 ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &orders, query, clientID, models.OrderStatusDeleted); err != nil {
		return nil, fmt.Errorf("order repository: list by client %w", err)
	}
	return orders, nil
}

// ListByMaster возвращает заказы, назначенные мастеру.
func (r *OrderRepository) ListByMaster(ctx context.Context, masterID uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	query := `SELECT ` + orderColumns + ` FROM orders WHERE assigned_master_id = $1 ORDER BY updated_at DESC`
	if err := r.db.SelectContext(ctx, &orders, query, masterID); err != nil {
		return nil, fmt.Errorf("order repository: list by master %w", err)
	}
	return orders, nil
}

// ListOpen возвращает заказы, доступные для откликов.
func (r *OrderRepository) ListOpen(ctx context.Context, limit, offset int) ([]models.Order, error) {
	var orders []models.Order
	query := `
		SELECT ` + orderColumns + ` FROM orders
		WHERE status IN ($1, $2, $3)
		ORDER BY created_at DESC LIMIT $4 OFFSET $5
	`
	err := r.db.SelectContext(ctx, &orders, query,
		models.OrderStatusOpen, models.OrderStatusSearching, models.OrderStatusActiveSearch, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("order repository: list open %w", err)
	}
	return orders, nil
}

// ListStaleInProgress возвращает in_progress заказы, чей эскроу был
// зафиксирован раньше заданного момента. Используется планировщиком
// автовыплаты. Якорь именно escrowed_at: updated_at сдвигается любым
// сохранением заказа и сбрасывал бы отсчёт.
func (r *OrderRepository) ListStaleInProgress(ctx context.Context, cutoff time.Time) ([]models.Order, error) {
	var orders []models.Order
	query := `
		SELECT ` + orderColumns + ` FROM orders
		WHERE status = $1 AND payment_status = $2 AND escrowed_at < $3
	`
	err := r.db.SelectContext(ctx, &orders, query, models.OrderStatusInProgress, models.PaymentStatusEscrowed, cutoff)
	if err != nil {
		return nil, fmt.Errorf("order repository: list stale %w", err)
	}
	return orders, nil
}
