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

const disputeColumns = `
	id, order_id, client_id, master_id, initiator_id, reason, description,
	evidence_path, status, decision, resolution, resolved_by, created_at, resolved_at
`

// DisputeRepository отвечает за хранение споров.
type DisputeRepository struct {
	db *sqlx.DB
}

// NewDisputeRepository создаёт новый экземпляр.
func NewDisputeRepository(db *sqlx.DB) *DisputeRepository {
	return &DisputeRepository{db: db}
}

// Create сохраняет новый спор.
func (r *DisputeRepository) Create(ctx context.Context, d *models.Dispute) error {
	query := `
		INSERT INTO disputes (order_id, client_id, master_id, initiator_id, reason, description, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		d.OrderID, d.ClientID, d.MasterID, d.InitiatorID, d.Reason, d.Description, d.Status,
	).Scan(&d.ID, &d.CreatedAt)
	if err != nil {
		return fmt.Errorf("dispute repository: create %w", err)
	}
	return nil
}

// GetByID возвращает спор по идентификатору.
func (r *DisputeRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	var d models.Dispute
	if err := r.db.GetContext(ctx, &d, `SELECT `+disputeColumns+` FROM disputes WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.ErrDisputeNotFound
		}
		return nil, fmt.Errorf("dispute repository: get by id %w", err)
	}
	return &d, nil
}

// GetActiveByOrder возвращает открытый или расследуемый спор по заказу.
// Отсутствие активного спора ошибкой не является.
func (r *DisputeRepository) GetActiveByOrder(ctx context.Context, orderID uuid.UUID) (*models.Dispute, error) {
	var d models.Dispute
	query := `SELECT ` + disputeColumns + ` FROM disputes WHERE order_id = $1 AND status IN ($2, $3)`
	err := r.db.GetContext(ctx, &d, query, orderID, models.DisputeStatusOpen, models.DisputeStatusInvestigating)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("dispute repository: get active by order %w", err)
	}
	return &d, nil
}

// Resolve фиксирует решение администратора по спору.
func (r *DisputeRepository) Resolve(ctx context.Context, id uuid.UUID, decision models.DisputeDecision, resolution string, resolvedBy uuid.UUID) (*models.Dispute, error) {
	var d models.Dispute
	err := r.db.GetContext(ctx, &d, `
		UPDATE disputes SET status = $2, decision = $3, resolution = $4, resolved_by = $5, resolved_at = NOW()
		WHERE id = $1 AND status IN ($6, $7)
		RETURNING `+disputeColumns,
		id, models.DisputeStatusResolved, decision, resolution, resolvedBy,
		models.DisputeStatusOpen, models.DisputeStatusInvestigating)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.New(apperror.ErrCodeInvalidOrderState, "спор не найден или уже разрешён")
		}
		return nil, fmt.Errorf("dispute repository: resolve %w", err)
	}
	return &d, nil
}

// Escalate переводит спор в статус escalated.
func (r *DisputeRepository) Escalate(ctx context.Context, orderID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE disputes SET status = $2
		WHERE order_id = $1 AND status IN ($3, $4)
	`, orderID, models.DisputeStatusEscalated, models.DisputeStatusOpen, models.DisputeStatusInvestigating)
	if err != nil {
		return fmt.Errorf("dispute repository: escalate %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("dispute repository: escalate rows affected %w", err)
	}
	if affected == 0 {
		return apperror.ErrDisputeNotFound
	}
	return nil
}

// SetEvidence прикрепляет файл доказательства к спору.
func (r *DisputeRepository) SetEvidence(ctx context.Context, id uuid.UUID, path string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE disputes SET evidence_path = $2 WHERE id = $1`, id, path)
	if err != nil {
		return fmt.Errorf("dispute repository: set evidence %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("dispute repository: set evidence rows affected %w", err)
	}
	if affected == 0 {
		return apperror.ErrDisputeNotFound
	}
	return nil
}

// ListOpenOlderThan возвращает открытые споры старше заданного момента.
// Используется планировщиком автоматического разрешения.
func (r *DisputeRepository) ListOpenOlderThan(ctx context.Context, cutoff time.Time) ([]models.Dispute, error) {
	var disputes []models.Dispute
	query := `SELECT ` + disputeColumns + ` FROM disputes WHERE status = $1 AND created_at < $2`
	if err := r.db.SelectContext(ctx, &disputes, query, models.DisputeStatusOpen, cutoff); err != nil {
		return nil, fmt.Errorf("dispute repository: list open older than %w", err)
	}
	return disputes, nil
}

// ListByUser возвращает споры, в которых пользователь участвует.
func (r *DisputeRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Dispute, error) {
	var disputes []models.Dispute
	query := `
		SELECT ` + disputeColumns + ` FROM disputes
		WHERE client_id = $1 OR master_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`
	if err := r.db.SelectContext(ctx, &disputes, query, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("dispute repository: list by user %w", err)
	}
	return disputes, nil
}
