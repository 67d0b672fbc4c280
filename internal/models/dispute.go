package models

import (
	"time"

	"github.com/google/uuid"
)

// DisputeStatus статус спора по заказу.
type DisputeStatus string

const (
	DisputeStatusNone          DisputeStatus = "none"
	DisputeStatusOpen          DisputeStatus = "open"
	DisputeStatusInvestigating DisputeStatus = "investigating"
	DisputeStatusResolved      DisputeStatus = "resolved"
	DisputeStatusEscalated     DisputeStatus = "escalated"
)

// IsActive сообщает, блокирует ли спор открытие нового спора по заказу.
func (s DisputeStatus) IsActive() bool {
	return s == DisputeStatusOpen || s == DisputeStatusInvestigating
}

// DisputeDecision решение администратора по спору.
type DisputeDecision string

const (
	DecisionClientWins DisputeDecision = "client_wins"
	DecisionMasterWins DisputeDecision = "master_wins"
	DecisionCompromise DisputeDecision = "compromise"
)

// IsValid проверяет, что решение входит в перечисление.
func (d DisputeDecision) IsValid() bool {
	switch d {
	case DecisionClientWins, DecisionMasterWins, DecisionCompromise:
		return true
	}
	return false
}

// Dispute описывает спор между клиентом и мастером.
// Спор создаёт участник заказа, разрешает администратор.
type Dispute struct {
	ID            uuid.UUID        `db:"id" json:"id"`
	OrderID       uuid.UUID        `db:"order_id" json:"order_id"`
	ClientID      uuid.UUID        `db:"client_id" json:"client_id"`
	MasterID      uuid.UUID        `db:"master_id" json:"master_id"`
	InitiatorID   uuid.UUID        `db:"initiator_id" json:"initiator_id"`
	Reason        string           `db:"reason" json:"reason"`
	Description   string           `db:"description" json:"description"`
	EvidencePath  *string          `db:"evidence_path" json:"evidence_path,omitempty"`
	Status        DisputeStatus    `db:"status" json:"status"`
	Decision      *DisputeDecision `db:"decision" json:"decision,omitempty"`
	Resolution    *string          `db:"resolution" json:"resolution,omitempty"`
	ResolvedBy    *uuid.UUID       `db:"resolved_by" json:"resolved_by,omitempty"`
	CreatedAt     time.Time        `db:"created_at" json:"created_at"`
	ResolvedAt    *time.Time       `db:"resolved_at" json:"resolved_at,omitempty"`
}
