package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Действия, попадающие в историю заказа.
const (
	HistoryActionCreated         = "created"
	HistoryActionStatusChanged   = "status_changed"
	HistoryActionMasterAssigned  = "master_assigned"
	HistoryActionPaymentUpdated  = "payment_updated"
	HistoryActionDisputeOpened   = "dispute_opened"
	HistoryActionDisputeResolved = "dispute_resolved"
)

// OrderHistoryEntry запись истории изменений заказа.
type OrderHistoryEntry struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	OrderID   uuid.UUID       `db:"order_id" json:"order_id"`
	UserID    uuid.UUID       `db:"user_id" json:"user_id"`
	Action    string          `db:"action" json:"action"`
	Details   json.RawMessage `db:"details" json:"details,omitempty"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}
