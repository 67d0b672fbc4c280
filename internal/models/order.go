package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus статус заказа. Закрытое перечисление: любые сравнения
// и переходы идут через таблицу OrderTransitions, а не через разбросанные
// строковые проверки.
type OrderStatus string

const (
	OrderStatusOpen         OrderStatus = "open"
	OrderStatusSearching    OrderStatus = "searching"
	OrderStatusActiveSearch OrderStatus = "active_search"
	OrderStatusProposed     OrderStatus = "proposed"
	OrderStatusAccepted     OrderStatus = "accepted"
	OrderStatusInProgress   OrderStatus = "in_progress"
	OrderStatusCompleted    OrderStatus = "completed"
	OrderStatusCancelled    OrderStatus = "cancelled"
	OrderStatusDeleted      OrderStatus = "deleted"
	OrderStatusDispute      OrderStatus = "dispute"
	OrderStatusEscalated    OrderStatus = "escalated_dispute"
)

// PaymentStatus статус движения средств по заказу.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusEscrowed PaymentStatus = "escrowed"
	PaymentStatusReleased PaymentStatus = "released"
	PaymentStatusRefunded PaymentStatus = "refunded"
	PaymentStatusFrozen   PaymentStatus = "frozen"
)

// OrderTransitions таблица допустимых переходов статуса заказа.
// Статусы searching и active_search эквивалентны open.
// Переходы completed → dispute и dispute → escalated_dispute выполняются
// только модулем споров и потому в таблице отсутствуют.
var OrderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusOpen:         {OrderStatusProposed, OrderStatusCancelled, OrderStatusDeleted},
	OrderStatusSearching:    {OrderStatusProposed, OrderStatusCancelled, OrderStatusDeleted},
	OrderStatusActiveSearch: {OrderStatusProposed, OrderStatusCancelled, OrderStatusDeleted},
	OrderStatusProposed:     {OrderStatusAccepted, OrderStatusCancelled, OrderStatusDeleted},
	OrderStatusAccepted:     {OrderStatusInProgress, OrderStatusCancelled},
	OrderStatusInProgress:   {OrderStatusCompleted, OrderStatusCancelled, OrderStatusDispute},
	OrderStatusCompleted:    {},
	OrderStatusCancelled:    {},
	OrderStatusDeleted:      {OrderStatusOpen},
	OrderStatusDispute:      {OrderStatusCancelled, OrderStatusInProgress, OrderStatusCompleted},
	OrderStatusEscalated:    {},
}

// IsValid проверяет, что статус входит в перечисление.
func (s OrderStatus) IsValid() bool {
	_, ok := OrderTransitions[s]
	return ok
}

// CanTransitionTo проверяет переход по таблице. Переход в текущий
// статус запрещён: повторный вызов — это ошибка, а не no-op.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	for _, allowed := range OrderTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsOpenForProposals сообщает, принимает ли заказ отклики мастеров.
func (s OrderStatus) IsOpenForProposals() bool {
	return s == OrderStatusOpen || s == OrderStatusSearching || s == OrderStatusActiveSearch
}

// IsTerminal сообщает, что из статуса нет автоматических переходов.
func (s OrderStatus) IsTerminal() bool {
	return len(OrderTransitions[s]) == 0
}

// HasAssignedMaster сообщает, должен ли быть назначен мастер в этом статусе.
// Инвариант: assigned_master_id заполнен тогда и только тогда, когда
// статус входит в это множество.
func (s OrderStatus) HasAssignedMaster() bool {
	switch s {
	case OrderStatusAccepted, OrderStatusInProgress, OrderStatusCompleted, OrderStatusDispute, OrderStatusEscalated:
		return true
	}
	return false
}

// Order описывает заказ на ремонт.
type Order struct {
	ID               uuid.UUID     `db:"id" json:"id"`
	ClientID         uuid.UUID     `db:"client_id" json:"client_id"`
	AssignedMasterID *uuid.UUID    `db:"assigned_master_id" json:"assigned_master_id,omitempty"`
	Title            string        `db:"title" json:"title"`
	Description      string        `db:"description" json:"description"`
	DeviceType       string        `db:"device_type" json:"device_type"`
	Issue            string        `db:"issue" json:"issue"`
	City             string        `db:"city" json:"city"`
	Urgency          string        `db:"urgency" json:"urgency"`
	Budget           *float64      `db:"budget" json:"budget,omitempty"`
	Status           OrderStatus   `db:"status" json:"status"`
	PaymentStatus    PaymentStatus `db:"payment_status" json:"payment_status"`
	DisputeStatus    DisputeStatus `db:"dispute_status" json:"dispute_status"`
	AgreedPrice      *float64      `db:"agreed_price" json:"agreed_price,omitempty"`
	PaymentAmount    *float64      `db:"payment_amount" json:"payment_amount,omitempty"`
	EscrowedAt       *time.Time    `db:"escrowed_at" json:"escrowed_at,omitempty"`
	ProposalCount    int           `db:"proposal_count" json:"proposal_count"`
	CreatedAt        time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time     `db:"updated_at" json:"updated_at"`
	CompletedAt      *time.Time    `db:"completed_at" json:"completed_at,omitempty"`
	DeletedAt        *time.Time    `db:"deleted_at" json:"deleted_at,omitempty"`
	DisputeCreatedAt *time.Time    `db:"dispute_created_at" json:"dispute_created_at,omitempty"`
}

// SettlementAmount возвращает каноническую сумму расчёта по заказу:
// payment_amount, если он заполнен, иначе agreed_price. Этот порядок
// зафиксирован и используется и при обычной выплате, и при арбитраже.
func (o *Order) SettlementAmount() float64 {
	if o.PaymentAmount != nil && *o.PaymentAmount > 0 {
		return *o.PaymentAmount
	}
	if o.AgreedPrice != nil {
		return *o.AgreedPrice
	}
	return 0
}

// IsParticipant сообщает, участвует ли пользователь в заказе.
func (o *Order) IsParticipant(userID uuid.UUID) bool {
	if o.ClientID == userID {
		return true
	}
	return o.AssignedMasterID != nil && *o.AssignedMasterID == userID
}
