package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/plevandm/repairhub-backend/internal/models"
)

// OrderHistoryRepository ведёт журнал изменений заказов.
type OrderHistoryRepository struct {
	db *sqlx.DB
}

// NewOrderHistoryRepository создаёт новый экземпляр.
func NewOrderHistoryRepository(db *sqlx.DB) *OrderHistoryRepository {
	return &OrderHistoryRepository{db: db}
}

// Append добавляет запись в историю заказа.
func (r *OrderHistoryRepository) Append(ctx context.Context, orderID, userID uuid.UUID, action string, details interface{}) error {
	var raw json.RawMessage
	if details != nil {
		b, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("order history repository: marshal details %w", err)
		}
		raw = b
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO order_history (order_id, user_id, action, details)
		VALUES ($1, $2, $3, $4)
	`, orderID, userID, action, raw)
	if err != nil {
		return fmt.Errorf("order history repository: append %w", err)
	}
	return nil
}

// ListByOrder возвращает историю заказа в хронологическом порядке.
func (r *OrderHistoryRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderHistoryEntry, error) {
	var entries []models.OrderHistoryEntry
	query := `
		SELECT id, order_id, user_id, action, details, created_at
		FROM order_history WHERE order_id = $1 ORDER BY created_at
	`
	if err := r.db.SelectContext(ctx, &entries, query, orderID); err != nil {
		return nil, fmt.Errorf("order history repository: list %w", err)
	}
	return entries, nil
}
