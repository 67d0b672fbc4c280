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

const proposalColumns = `
	id, order_id, master_id, price, description, estimated_days, status,
	cancel_reason, cancelled_at, created_at, updated_at
`

// ProposalRepository отвечает за хранение откликов мастеров.
type ProposalRepository struct {
	db *sqlx.DB
}

// NewProposalRepository создаёт новый экземпляр.
func NewProposalRepository(db *sqlx.DB) *ProposalRepository {
	return &ProposalRepository{db: db}
}

// Create сохраняет отклик и инкрементирует счётчик откликов заказа
// одной транзакцией.
func (r *ProposalRepository) Create(ctx context.Context, proposal *models.Proposal) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("proposal repository: create begin %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO proposals (order_id, master_id, price, description, estimated_days, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, proposal.OrderID, proposal.MasterID, proposal.Price, proposal.Description,
		proposal.EstimatedDays, proposal.Status).Scan(&proposal.ID, &proposal.CreatedAt)
	if err != nil {
		return fmt.Errorf("proposal repository: create %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE orders SET proposal_count = proposal_count + 1, status = $2, updated_at = NOW()
		WHERE id = $1
	`, proposal.OrderID, models.OrderStatusProposed)
	if err != nil {
		return fmt.Errorf("proposal repository: bump order %w", err)
	}

	return tx.Commit()
}

// GetByID возвращает отклик по идентификатору.
func (r *ProposalRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Proposal, error) {
	var proposal models.Proposal
	query := `SELECT ` + proposalColumns + ` FROM proposals WHERE id = $1`
	if err := r.db.GetContext(ctx, &proposal, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.ErrProposalNotFound
		}
		return nil, fmt.Errorf("proposal repository: get by id %w", err)
	}
	return &proposal, nil
}

// ListByOrder возвращает все отклики заказа.
func (r *ProposalRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Proposal, error) {
	var proposals []models.Proposal
	query := `SELECT ` + proposalColumns + ` FROM proposals WHERE order_id = $1 ORDER BY created_at`
	if err := r.db.SelectContext(ctx, &proposals, query, orderID); err != nil {
		return nil, fmt.Errorf("proposal repository: list by order %w", err)
	}
	return proposals, nil
}

// ListByMaster возвращает отклики мастера.
func (r *ProposalRepository) ListByMaster(ctx context.Context, masterID uuid.UUID) ([]models.Proposal, error) {
	var proposals []models.Proposal
	query := `SELECT ` + proposalColumns + ` FROM proposals WHERE master_id = $1 ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &proposals, query, masterID); err != nil {
		return nil, fmt.Errorf("proposal repository: list by master %w", err)
	}
	return proposals, nil
}

// HasPending сообщает, есть ли у мастера pending отклик на заказ.
// Инвариант: не более одного pending отклика на пару (заказ, мастер).
func (r *ProposalRepository) HasPending(ctx context.Context, orderID, masterID uuid.UUID) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM proposals WHERE order_id = $1 AND master_id = $2 AND status = $3`
	if err := r.db.GetContext(ctx, &count, query, orderID, masterID, models.ProposalStatusPending); err != nil {
		return false, fmt.Errorf("proposal repository: has pending %w", err)
	}
	return count > 0, nil
}

// CountPendingByMaster возвращает число активных откликов мастера.
func (r *ProposalRepository) CountPendingByMaster(ctx context.Context, masterID uuid.UUID) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM proposals WHERE master_id = $1 AND status = $2`
	if err := r.db.GetContext(ctx, &count, query, masterID, models.ProposalStatusPending); err != nil {
		return 0, fmt.Errorf("proposal repository: count pending %w", err)
	}
	return count, nil
}

// UpdateStatus переводит отклик в новый статус только из pending.
func (r *ProposalRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.ProposalStatus) (*models.Proposal, error) {
	var proposal models.Proposal
	err := r.db.GetContext(ctx, &proposal, `
		UPDATE proposals SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = $3
		RETURNING `+proposalColumns, id, status, models.ProposalStatusPending)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.New(apperror.ErrCodeInvalidProposalState, "отклик не найден или уже обработан")
		}
		return nil, fmt.Errorf("proposal repository: update status %w", err)
	}
	return &proposal, nil
}

// Cancel отменяет принятый отклик, фиксируя причину и время.
func (r *ProposalRepository) Cancel(ctx context.Context, id uuid.UUID, reason string) (*models.Proposal, error) {
	var proposal models.Proposal
	err := r.db.GetContext(ctx, &proposal, `
		UPDATE proposals SET status = $2, cancel_reason = $3, cancelled_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = $4
		RETURNING `+proposalColumns, id, models.ProposalStatusCancelled, reason, models.ProposalStatusAccepted)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.New(apperror.ErrCodeInvalidProposalState, "отменить можно только принятый отклик")
		}
		return nil, fmt.Errorf("proposal repository: cancel %w", err)
	}
	return &proposal, nil
}
