package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/plevandm/repairhub-backend/internal/goroutine"
	"github.com/plevandm/repairhub-backend/internal/logger"
	"github.com/plevandm/repairhub-backend/internal/models"
	"github.com/plevandm/repairhub-backend/internal/pkg/apperror"
	"github.com/plevandm/repairhub-backend/internal/repository"
)

// ProposalStore описывает хранилище откликов.
type ProposalStore interface {
	Create(ctx context.Context, proposal *models.Proposal) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Proposal, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Proposal, error)
	ListByMaster(ctx context.Context, masterID uuid.UUID) ([]models.Proposal, error)
	HasPending(ctx context.Context, orderID, masterID uuid.UUID) (bool, error)
	CountPendingByMaster(ctx context.Context, masterID uuid.UUID) (int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.ProposalStatus) (*models.Proposal, error)
	Cancel(ctx context.Context, id uuid.UUID, reason string) (*models.Proposal, error)
}

// ProposalOrderStore подмножество хранилища заказов, нужное откликам.
// Каскад принятия живёт в репозитории заказов: он меняет и заказ,
// и все его отклики одной транзакцией.
type ProposalOrderStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	AcceptProposal(ctx context.Context, orderID, proposalID uuid.UUID) (*repository.AcceptProposalResult, error)
}

// StatusUpdater выполняет отложенный переход статуса заказа.
type StatusUpdater interface {
	UpdateStatus(ctx context.Context, actor models.Principal, orderID uuid.UUID, target models.OrderStatus) (*models.Order, error)
}

// MaxPendingProposalsPerMaster предел одновременных pending-откликов мастера.
const MaxPendingProposalsPerMaster = 5

// ProposalService реализует переговоры по заказу: подачу, принятие,
// отклонение и отмену откликов.
type ProposalService struct {
	proposals ProposalStore
	orders    ProposalOrderStore
	statuses  StatusUpdater
	history   HistoryStore
	hub       Notifier

	// Пауза между принятием отклика и автоматическим переводом заказа
	// в in_progress.
	acceptFollowUp time.Duration
}

// NewProposalService создаёт новый сервис откликов.
func NewProposalService(proposals ProposalStore, orders ProposalOrderStore, statuses StatusUpdater, history HistoryStore, acceptFollowUp time.Duration) *ProposalService {
	return &ProposalService{
		proposals:      proposals,
		orders:         orders,
		statuses:       statuses,
		history:        history,
		acceptFollowUp: acceptFollowUp,
	}
}

// SetHub устанавливает получателя уведомлений.
func (s *ProposalService) SetHub(hub Notifier) {
	s.hub = hub
}

// SubmitProposalInput входные данные нового отклика.
type SubmitProposalInput struct {
	OrderID       uuid.UUID
	Price         float64
	Description   string
	EstimatedDays *int
}

// SubmitProposal подаёт отклик мастера на заказ.
func (s *ProposalService) SubmitProposal(ctx context.Context, actor models.Principal, in SubmitProposalInput) (*models.Proposal, error) {
	if !actor.IsMaster() {
		return nil, apperror.New(apperror.ErrCodeForbidden, "откликаться на заказы могут только мастера")
	}
	if in.Price <= 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "цена отклика должна быть положительной")
	}
	if in.Description == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "описание отклика не может быть пустым")
	}
	if in.EstimatedDays != nil && *in.EstimatedDays <= 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "срок выполнения должен быть положительным")
	}

	order, err := s.orders.GetByID(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}
	if order.ClientID == actor.ID {
		return nil, apperror.New(apperror.ErrCodeForbidden, "нельзя откликнуться на собственный заказ")
	}
	if !order.Status.IsOpenForProposals() && order.Status != models.OrderStatusProposed {
		return nil, apperror.Newf(apperror.ErrCodeInvalidOrderState, "заказ в статусе %q не принимает отклики", order.Status)
	}

	dup, err := s.proposals.HasPending(ctx, in.OrderID, actor.ID)
	if err != nil {
		return nil, err
	}
	if dup {
		return nil, apperror.ErrDuplicateProposal
	}

	pending, err := s.proposals.CountPendingByMaster(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if pending >= MaxPendingProposalsPerMaster {
		return nil, apperror.Newf(apperror.ErrCodeConflict, "у вас уже %d откликов в ожидании, дождитесь решения клиентов", pending)
	}

	proposal := &models.Proposal{
		OrderID:       in.OrderID,
		MasterID:      actor.ID,
		Price:         in.Price,
		Description:   in.Description,
		EstimatedDays: in.EstimatedDays,
		Status:        models.ProposalStatusPending,
	}
	if err := s.proposals.Create(ctx, proposal); err != nil {
		return nil, err
	}

	s.notify(order.ClientID, models.EventProposalReceived, proposal)

	return proposal, nil
}

// AcceptProposal принимает отклик от имени клиента. Каскад выполняется
// атомарно: остальные pending-отклики заказа отклоняются той же
// транзакцией. После паузы заказ автоматически переводится в
// in_progress отдельным идемпотентным переходом от имени системы.
func (s *ProposalService) AcceptProposal(ctx context.Context, actor models.Principal, proposalID uuid.UUID) (*models.Order, error) {
	proposal, err := s.proposals.GetByID(ctx, proposalID)
	if err != nil {
		return nil, err
	}

	order, err := s.orders.GetByID(ctx, proposal.OrderID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && order.ClientID != actor.ID {
		return nil, apperror.New(apperror.ErrCodeForbidden, "принимать отклики может только владелец заказа")
	}
	if order.Status != models.OrderStatusProposed && !order.Status.IsOpenForProposals() {
		return nil, apperror.Newf(apperror.ErrCodeInvalidOrderState, "заказ в статусе %q нельзя передать мастеру", order.Status)
	}

	result, err := s.orders.AcceptProposal(ctx, proposal.OrderID, proposalID)
	if err != nil {
		return nil, err
	}

	s.recordHistory(ctx, result.Order.ID, actor.ID, models.HistoryActionMasterAssigned, map[string]interface{}{
		"proposal_id": proposalID,
		"master_id":   result.AcceptedProposal.MasterID,
		"price":       result.AcceptedProposal.Price,
	})

	s.notify(result.AcceptedProposal.MasterID, models.EventProposalAccepted, result.AcceptedProposal)
	for _, masterID := range result.RejectedMasters {
		s.notify(masterID, models.EventProposalRejected, map[string]interface{}{
			"order_id": result.Order.ID,
		})
	}

	s.scheduleStart(result.Order.ID)

	return result.Order, nil
}

// scheduleStart планирует перевод заказа в in_progress. Неудача перехода
// не откатывает принятие: заказ остаётся в accepted и будет подхвачен
// планировщиком.
func (s *ProposalService) scheduleStart(orderID uuid.UUID) {
	if s.statuses == nil {
		return
	}
	goroutine.SafeGo(func() {
		time.Sleep(s.acceptFollowUp)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if _, err := s.statuses.UpdateStatus(ctx, models.SystemPrincipal(), orderID, models.OrderStatusInProgress); err != nil {
			if logger.Log != nil {
				logger.WithOrder(orderID).Warnf("proposal service: отложенный запуск работы не удался: %v", err)
			}
		}
	})
}

// RejectProposal отклоняет pending-отклик от имени клиента.
func (s *ProposalService) RejectProposal(ctx context.Context, actor models.Principal, proposalID uuid.UUID) (*models.Proposal, error) {
	proposal, err := s.proposals.GetByID(ctx, proposalID)
	if err != nil {
		return nil, err
	}

	order, err := s.orders.GetByID(ctx, proposal.OrderID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && order.ClientID != actor.ID {
		return nil, apperror.New(apperror.ErrCodeForbidden, "отклонять отклики может только владелец заказа")
	}

	updated, err := s.proposals.UpdateStatus(ctx, proposalID, models.ProposalStatusRejected)
	if err != nil {
		return nil, err
	}

	s.notify(updated.MasterID, models.EventProposalRejected, updated)

	return updated, nil
}

// CancelProposal отменяет принятый отклик мастера. Причина обязательна.
// Статус заказа при этом не меняется: отмена заказа после ухода мастера
// выполняется отдельным явным переходом.
func (s *ProposalService) CancelProposal(ctx context.Context, actor models.Principal, proposalID uuid.UUID, reason string) (*models.Proposal, error) {
	if reason == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "причина отмены обязательна")
	}

	proposal, err := s.proposals.GetByID(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && (!actor.IsMaster() || proposal.MasterID != actor.ID) {
		return nil, apperror.New(apperror.ErrCodeForbidden, "отменить отклик может только подавший его мастер")
	}
	if proposal.Status != models.ProposalStatusAccepted {
		return nil, apperror.Newf(apperror.ErrCodeInvalidProposalState, "отменить можно только принятый отклик, текущий статус %q", proposal.Status)
	}

	cancelled, err := s.proposals.Cancel(ctx, proposalID, reason)
	if err != nil {
		return nil, err
	}

	order, err := s.orders.GetByID(ctx, proposal.OrderID)
	if err == nil {
		s.notify(order.ClientID, models.EventOrderCancelled, cancelled)
	}

	return cancelled, nil
}

// GetProposal возвращает отклик с проверкой доступа.
func (s *ProposalService) GetProposal(ctx context.Context, actor models.Principal, id uuid.UUID) (*models.Proposal, error) {
	proposal, err := s.proposals.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.IsAdmin() || proposal.MasterID == actor.ID {
		return proposal, nil
	}
	order, err := s.orders.GetByID(ctx, proposal.OrderID)
	if err != nil {
		return nil, err
	}
	if order.ClientID != actor.ID {
		return nil, apperror.ErrForbidden
	}
	return proposal, nil
}

// ListOrderProposals возвращает отклики заказа. Полный список видят
// владелец заказа и администратор.
func (s *ProposalService) ListOrderProposals(ctx context.Context, actor models.Principal, orderID uuid.UUID) ([]models.Proposal, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && order.ClientID != actor.ID {
		return nil, apperror.ErrForbidden
	}
	return s.proposals.ListByOrder(ctx, orderID)
}

// ListMyProposals возвращает отклики мастера.
func (s *ProposalService) ListMyProposals(ctx context.Context, actor models.Principal) ([]models.Proposal, error) {
	return s.proposals.ListByMaster(ctx, actor.ID)
}

func (s *ProposalService) recordHistory(ctx context.Context, orderID, userID uuid.UUID, action string, details interface{}) {
	if s.history == nil {
		return
	}
	if err := s.history.Append(ctx, orderID, userID, action, details); err != nil && logger.Log != nil {
		logger.WithOrder(orderID).WithField("action", action).Warnf("proposal service: не удалось записать историю: %v", err)
	}
}

func (s *ProposalService) notify(userID uuid.UUID, event string, data interface{}) {
	if s.hub == nil {
		return
	}
	if err := s.hub.BroadcastToUser(userID, event, data); err != nil && logger.Log != nil {
		logger.Log.WithField("event", event).Warnf("proposal service: не удалось отправить уведомление: %v", err)
	}
}
