package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// События жизненного цикла, рассылаемые участникам.
const (
	EventProposalReceived = "proposal_received"
	EventProposalAccepted = "proposal_accepted"
	EventProposalRejected = "proposal_rejected"
	EventWorkCompleted    = "work_completed"
	EventPaymentReleased  = "payment_released"
	EventPaymentRefunded  = "payment_refunded"
	EventReviewRequested  = "review_requested"
	EventDisputeOpened    = "dispute_opened"
	EventDisputeResolved  = "dispute_resolved"
	EventDisputeEscalated = "dispute_escalated"
	EventOrderCancelled   = "order_cancelled"
)

// Notification сохранённое уведомление пользователя.
type Notification struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	UserID    uuid.UUID       `db:"user_id" json:"user_id"`
	Event     string          `db:"event" json:"event"`
	Payload   json.RawMessage `db:"payload" json:"payload"`
	IsRead    bool            `db:"is_read" json:"is_read"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}
