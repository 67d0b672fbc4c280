package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/plevandm/repairhub-backend/internal/logger"
	"github.com/plevandm/repairhub-backend/internal/models"
	"github.com/plevandm/repairhub-backend/internal/pkg/apperror"
)

// OrderStore описывает взаимодействие сервиса с хранилищем заказов.
type OrderStore interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	Save(ctx context.Context, order *models.Order) error
	CountActiveByClient(ctx context.Context, clientID uuid.UUID) (int, error)
	ListByClient(ctx context.Context, clientID uuid.UUID) ([]models.Order, error)
	ListByMaster(ctx context.Context, masterID uuid.UUID) ([]models.Order, error)
	ListOpen(ctx context.Context, limit, offset int) ([]models.Order, error)
}

// HistoryStore ведёт журнал изменений заказа.
type HistoryStore interface {
	Append(ctx context.Context, orderID, userID uuid.UUID, action string, details interface{}) error
}

// Notifier отправляет событие пользователю. Ошибка доставки не влияет
// на результат операции.
type Notifier interface {
	BroadcastToUser(userID uuid.UUID, event string, data interface{}) error
}

// MaxActiveOrdersPerClient предел одновременно открытых заказов клиента.
const MaxActiveOrdersPerClient = 10

// Переходы, которые клиент может запросить для собственного заказа:
// целевой статус → множество исходных статусов.
var clientTransitions = map[models.OrderStatus]map[models.OrderStatus]struct{}{
	models.OrderStatusCancelled: {
		models.OrderStatusOpen:         {},
		models.OrderStatusSearching:    {},
		models.OrderStatusActiveSearch: {},
		models.OrderStatusProposed:     {},
		models.OrderStatusAccepted:     {},
	},
	models.OrderStatusDeleted: {
		models.OrderStatusOpen:         {},
		models.OrderStatusSearching:    {},
		models.OrderStatusActiveSearch: {},
		models.OrderStatusProposed:     {},
	},
	models.OrderStatusOpen: {
		models.OrderStatusDeleted: {},
	},
}

// Переходы, которые мастер может запросить для назначенного ему заказа.
// Заказы в open-эквивалентных статусах мастеру недоступны вовсе.
var masterTransitions = map[models.OrderStatus]map[models.OrderStatus]struct{}{
	models.OrderStatusCompleted: {
		models.OrderStatusInProgress: {},
	},
}

// OrderService реализует state machine заказа: проверку прав,
// таблицу переходов и побочные эффекты смены статуса.
type OrderService struct {
	orders  OrderStore
	history HistoryStore
	hub     Notifier
}

// NewOrderService создаёт новый сервис заказов.
func NewOrderService(orders OrderStore, history HistoryStore) *OrderService {
	return &OrderService{orders: orders, history: history}
}

// SetHub устанавливает получателя уведомлений.
func (s *OrderService) SetHub(hub Notifier) {
	s.hub = hub
}

// CreateOrderInput описывает входные данные нового заказа.
type CreateOrderInput struct {
	Title       string
	Description string
	DeviceType  string
	Issue       string
	City        string
	Urgency     string
	Budget      *float64
}

// CreateOrder создаёт заказ от имени клиента.
func (s *OrderService) CreateOrder(ctx context.Context, actor models.Principal, in CreateOrderInput) (*models.Order, error) {
	if !actor.IsClient() {
		return nil, apperror.New(apperror.ErrCodeForbidden, "создавать заказы могут только клиенты")
	}
	if in.Title == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "заголовок заказа не может быть пустым")
	}
	if in.Description == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "описание заказа не может быть пустым")
	}
	if in.Budget != nil && *in.Budget < 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "бюджет не может быть отрицательным")
	}

	active, err := s.orders.CountActiveByClient(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if active >= MaxActiveOrdersPerClient {
		return nil, apperror.Newf(apperror.ErrCodeConflict, "у вас уже %d активных заказов, завершите часть из них", active)
	}

	urgency := in.Urgency
	if urgency == "" {
		urgency = "medium"
	}

	order := &models.Order{
		ClientID:      actor.ID,
		Title:         in.Title,
		Description:   in.Description,
		DeviceType:    in.DeviceType,
		Issue:         in.Issue,
		City:          in.City,
		Urgency:       urgency,
		Budget:        in.Budget,
		Status:        models.OrderStatusOpen,
		PaymentStatus: models.PaymentStatusPending,
		DisputeStatus: models.DisputeStatusNone,
	}

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, err
	}

	s.recordHistory(ctx, order.ID, actor.ID, models.HistoryActionCreated, map[string]string{
		"device": in.DeviceType, "issue": in.Issue,
	})

	return order, nil
}

// GetOrder возвращает заказ.
func (s *OrderService) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return s.orders.GetByID(ctx, id)
}

// ListOpenOrders возвращает заказы, доступные для откликов.
func (s *OrderService) ListOpenOrders(ctx context.Context, limit, offset int) ([]models.Order, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.orders.ListOpen(ctx, limit, offset)
}

// ListMyOrders возвращает заказы пользователя в зависимости от роли.
func (s *OrderService) ListMyOrders(ctx context.Context, actor models.Principal) ([]models.Order, error) {
	if actor.IsMaster() {
		return s.orders.ListByMaster(ctx, actor.ID)
	}
	return s.orders.ListByClient(ctx, actor.ID)
}

// UpdateStatus выполняет переход статуса заказа. Порядок проверок
// фиксирован: сначала права (кто может запросить этот переход), затем
// таблица допустимых переходов. Повторный переход в текущий статус —
// ошибка InvalidTransition, а не тихий no-op.
func (s *OrderService) UpdateStatus(ctx context.Context, actor models.Principal, orderID uuid.UUID, target models.OrderStatus) (*models.Order, error) {
	if !target.IsValid() {
		return nil, apperror.Newf(apperror.ErrCodeValidation, "неизвестный статус заказа %q", target)
	}
	// Прямой перевод в спорные статусы оставил бы заказ без записи
	// спора и замороженного эскроу.
	if target == models.OrderStatusDispute || target == models.OrderStatusEscalated {
		return nil, apperror.New(apperror.ErrCodeInvalidTransition, "статусы спора меняются только через операции споров")
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := s.authorizeTransition(actor, order, target); err != nil {
		return nil, err
	}

	if !order.Status.CanTransitionTo(target) {
		return nil, apperror.InvalidTransition(string(order.Status), string(target))
	}

	from := order.Status
	s.applyTransition(order, target)

	if err := s.orders.Save(ctx, order); err != nil {
		return nil, err
	}

	s.recordHistory(ctx, order.ID, actor.ID, models.HistoryActionStatusChanged, map[string]string{
		"from": string(from), "to": string(target),
	})

	// Завершение работы уведомляет обе стороны ровно один раз.
	if target == models.OrderStatusCompleted {
		s.notify(order.ClientID, models.EventWorkCompleted, order)
		if order.AssignedMasterID != nil {
			s.notify(*order.AssignedMasterID, models.EventWorkCompleted, order)
		}
	}
	if target == models.OrderStatusCancelled {
		s.notify(order.ClientID, models.EventOrderCancelled, order)
	}

	return order, nil
}

// authorizeTransition проверяет право принципала запросить переход.
// Администратор может запросить любой переход; для клиента и мастера
// допустимые пары закодированы таблицами clientTransitions и
// masterTransitions плюс проверка принадлежности заказа.
func (s *OrderService) authorizeTransition(actor models.Principal, order *models.Order, target models.OrderStatus) error {
	if actor.IsAdmin() {
		return nil
	}

	switch actor.Role {
	case models.RoleClient:
		if order.ClientID != actor.ID {
			return apperror.New(apperror.ErrCodeForbidden, "заказ принадлежит другому клиенту")
		}
		if sources, ok := clientTransitions[target]; ok {
			if _, ok := sources[order.Status]; ok {
				return nil
			}
		}
	case models.RoleMaster:
		if order.AssignedMasterID == nil || *order.AssignedMasterID != actor.ID {
			return apperror.New(apperror.ErrCodeForbidden, "заказ не назначен этому мастеру")
		}
		if sources, ok := masterTransitions[target]; ok {
			if _, ok := sources[order.Status]; ok {
				return nil
			}
		}
	}

	return apperror.Newf(apperror.ErrCodeForbidden, "роль %s не может перевести заказ из %q в %q", actor.Role, order.Status, target)
}

// applyTransition выполняет побочные эффекты перехода. Инвариант:
// мастер назначен тогда и только тогда, когда статус этого требует.
func (s *OrderService) applyTransition(order *models.Order, target models.OrderStatus) {
	now := time.Now()
	order.Status = target

	switch target {
	case models.OrderStatusCompleted:
		order.CompletedAt = &now
	case models.OrderStatusDeleted:
		order.DeletedAt = &now
	case models.OrderStatusOpen:
		order.DeletedAt = nil
	}

	if !target.HasAssignedMaster() {
		order.AssignedMasterID = nil
	}
}

func (s *OrderService) recordHistory(ctx context.Context, orderID, userID uuid.UUID, action string, details interface{}) {
	if s.history == nil {
		return
	}
	if err := s.history.Append(ctx, orderID, userID, action, details); err != nil && logger.Log != nil {
		logger.WithOrder(orderID).WithField("action", action).Warnf("order service: не удалось записать историю: %v", err)
	}
}

func (s *OrderService) notify(userID uuid.UUID, event string, data interface{}) {
	if s.hub == nil {
		return
	}
	if err := s.hub.BroadcastToUser(userID, event, data); err != nil && logger.Log != nil {
		logger.Log.WithField("event", event).Warnf("order service: не удалось отправить уведомление: %v", err)
	}
}
