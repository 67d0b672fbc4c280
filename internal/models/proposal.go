package models

import (
	"time"

	"github.com/google/uuid"
)

// ProposalStatus статус отклика мастера.
type ProposalStatus string

const (
	ProposalStatusPending   ProposalStatus = "pending"
	ProposalStatusAccepted  ProposalStatus = "accepted"
	ProposalStatusRejected  ProposalStatus = "rejected"
	ProposalStatusCancelled ProposalStatus = "cancelled"
)

// IsValid проверяет, что статус входит в перечисление.
func (s ProposalStatus) IsValid() bool {
	switch s {
	case ProposalStatusPending, ProposalStatusAccepted, ProposalStatusRejected, ProposalStatusCancelled:
		return true
	}
	return false
}

// Proposal представляет отклик мастера на заказ.
// После принятия или отклонения отклик неизменяем, за исключением
// отмены принятого отклика с обязательной причиной.
type Proposal struct {
	ID            uuid.UUID      `db:"id" json:"id"`
	OrderID       uuid.UUID      `db:"order_id" json:"order_id"`
	MasterID      uuid.UUID      `db:"master_id" json:"master_id"`
	Price         float64        `db:"price" json:"price"`
	Description   string         `db:"description" json:"description"`
	EstimatedDays *int           `db:"estimated_days" json:"estimated_days,omitempty"`
	Status        ProposalStatus `db:"status" json:"status"`
	CancelReason  *string        `db:"cancel_reason" json:"cancel_reason,omitempty"`
	CancelledAt   *time.Time     `db:"cancelled_at" json:"cancelled_at,omitempty"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     *time.Time     `db:"updated_at" json:"updated_at,omitempty"`
}
