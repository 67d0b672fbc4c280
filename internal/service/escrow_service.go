package service

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/plevandm/repairhub-backend/internal/logger"
	"github.com/plevandm/repairhub-backend/internal/models"
	"github.com/plevandm/repairhub-backend/internal/pkg/apperror"
)

// EscrowOrderStore подмножество хранилища заказов для денежных операций.
type EscrowOrderStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	Save(ctx context.Context, order *models.Order) error
	ListStaleInProgress(ctx context.Context, cutoff time.Time) ([]models.Order, error)
}

// DisputeStore описывает хранилище споров.
type DisputeStore interface {
	Create(ctx context.Context, d *models.Dispute) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error)
	GetActiveByOrder(ctx context.Context, orderID uuid.UUID) (*models.Dispute, error)
	Resolve(ctx context.Context, id uuid.UUID, decision models.DisputeDecision, resolution string, resolvedBy uuid.UUID) (*models.Dispute, error)
	Escalate(ctx context.Context, orderID uuid.UUID) error
	SetEvidence(ctx context.Context, id uuid.UUID, path string) error
	ListOpenOlderThan(ctx context.Context, cutoff time.Time) ([]models.Dispute, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Dispute, error)
}

// LedgerStore описывает хранилище балансов и транзакций.
type LedgerStore interface {
	GetBalance(ctx context.Context, userID uuid.UUID) (*models.UserBalance, error)
	RecordEscrow(ctx context.Context, clientID, orderID uuid.UUID, amount float64) (*models.Transaction, error)
	CreditMaster(ctx context.Context, masterID, orderID uuid.UUID, payout, commission float64) error
	RefundClient(ctx context.Context, clientID, orderID uuid.UUID, amount float64) error
	Withdraw(ctx context.Context, masterID uuid.UUID, amount float64) (*models.Transaction, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Transaction, error)
}

// AdminDirectory отдаёт идентификаторы администраторов для рассылки
// уведомлений о спорах.
type AdminDirectory interface {
	ListAdminIDs(ctx context.Context) ([]uuid.UUID, error)
}

// DisputeWindowAfterCompletion окно, в течение которого можно открыть
// спор по завершённому заказу.
const DisputeWindowAfterCompletion = 7 * 24 * time.Hour

// CommissionFor возвращает комиссию площадки с суммы расчёта,
// округлённую до копеек. Одна и та же формула применяется при обычной
// выплате и при решении спора в пользу мастера.
func CommissionFor(amount float64) float64 {
	return math.Round(amount*models.CommissionRate*100) / 100
}

// EscrowService ведёт учёт движения средств по заказам и арбитраж споров.
type EscrowService struct {
	orders   EscrowOrderStore
	disputes DisputeStore
	ledger   LedgerStore
	admins   AdminDirectory
	history  HistoryStore
	hub      Notifier
}

// NewEscrowService создаёт новый сервис эскроу.
func NewEscrowService(orders EscrowOrderStore, disputes DisputeStore, ledger LedgerStore, admins AdminDirectory, history HistoryStore) *EscrowService {
	return &EscrowService{
		orders:   orders,
		disputes: disputes,
		ledger:   ledger,
		admins:   admins,
		history:  history,
	}
}

// SetHub устанавливает получателя уведомлений.
func (s *EscrowService) SetHub(hub Notifier) {
	s.hub = hub
}

// UpdatePayment фиксирует сумму оплаты по принятому заказу и переводит
// его в работу. Средства клиента замораживаются на эскроу.
func (s *EscrowService) UpdatePayment(ctx context.Context, actor models.Principal, orderID uuid.UUID, amount float64) (*models.Order, error) {
	if amount <= 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "сумма оплаты должна быть положительной")
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && order.ClientID != actor.ID {
		return nil, apperror.New(apperror.ErrCodeForbidden, "оплачивать заказ может только его владелец")
	}
	if order.Status != models.OrderStatusAccepted {
		return nil, apperror.Newf(apperror.ErrCodeInvalidOrderState, "оплата возможна только для принятого заказа, текущий статус %q", order.Status)
	}

	if _, err := s.ledger.RecordEscrow(ctx, order.ClientID, order.ID, amount); err != nil {
		return nil, err
	}

	now := time.Now()
	order.PaymentAmount = &amount
	order.PaymentStatus = models.PaymentStatusEscrowed
	order.EscrowedAt = &now
	order.Status = models.OrderStatusInProgress
	if err := s.orders.Save(ctx, order); err != nil {
		return nil, err
	}

	s.recordHistory(ctx, order.ID, actor.ID, models.HistoryActionPaymentUpdated, map[string]interface{}{
		"amount": amount, "payment_status": order.PaymentStatus,
	})

	return order, nil
}

// ReleasePayment выплачивает мастеру сумму расчёта за вычетом комиссии
// и завершает заказ.
func (s *EscrowService) ReleasePayment(ctx context.Context, actor models.Principal, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && order.ClientID != actor.ID {
		return nil, apperror.New(apperror.ErrCodeForbidden, "выплату подтверждает владелец заказа или администратор")
	}
	if order.Status != models.OrderStatusInProgress {
		return nil, apperror.Newf(apperror.ErrCodeInvalidOrderState, "выплата возможна только по заказу в работе, текущий статус %q", order.Status)
	}
	if order.AssignedMasterID == nil {
		return nil, apperror.New(apperror.ErrCodeInvalidOrderState, "заказу не назначен мастер")
	}

	amount := order.SettlementAmount()
	if amount <= 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "по заказу не зафиксирована сумма расчёта")
	}
	commission := CommissionFor(amount)
	payout := amount - commission

	masterID := *order.AssignedMasterID
	if err := s.ledger.CreditMaster(ctx, masterID, order.ID, payout, commission); err != nil {
		return nil, err
	}

	now := time.Now()
	order.Status = models.OrderStatusCompleted
	order.PaymentStatus = models.PaymentStatusReleased
	order.CompletedAt = &now
	if err := s.orders.Save(ctx, order); err != nil {
		return nil, err
	}

	s.recordHistory(ctx, order.ID, actor.ID, models.HistoryActionPaymentUpdated, map[string]interface{}{
		"payout": payout, "commission": commission,
	})

	s.notify(masterID, models.EventPaymentReleased, map[string]interface{}{
		"order_id": order.ID, "amount": payout,
	})
	s.notify(order.ClientID, models.EventReviewRequested, map[string]interface{}{
		"order_id": order.ID, "master_id": masterID,
	})

	return order, nil
}

// RefundPayment возвращает клиенту полную сумму без удержания комиссии
// и отменяет заказ. Доступно только администратору.
func (s *EscrowService) RefundPayment(ctx context.Context, actor models.Principal, orderID uuid.UUID) (*models.Order, error) {
	if !actor.IsAdmin() {
		return nil, apperror.New(apperror.ErrCodeForbidden, "возврат средств выполняет только администратор")
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != models.OrderStatusInProgress {
		return nil, apperror.Newf(apperror.ErrCodeInvalidOrderState, "возврат возможен только по заказу в работе, текущий статус %q", order.Status)
	}

	amount := order.SettlementAmount()
	if amount > 0 {
		if err := s.ledger.RefundClient(ctx, order.ClientID, order.ID, amount); err != nil {
			return nil, err
		}
	}

	order.Status = models.OrderStatusCancelled
	order.PaymentStatus = models.PaymentStatusRefunded
	order.AssignedMasterID = nil
	if err := s.orders.Save(ctx, order); err != nil {
		return nil, err
	}

	s.recordHistory(ctx, order.ID, actor.ID, models.HistoryActionPaymentUpdated, map[string]interface{}{
		"refund": amount,
	})

	s.notify(order.ClientID, models.EventPaymentRefunded, map[string]interface{}{
		"order_id": order.ID, "amount": amount,
	})

	return order, nil
}

// CreateDisputeInput входные данные нового спора.
type CreateDisputeInput struct {
	OrderID     uuid.UUID
	Reason      string
	Description string
}

// CreateDispute открывает спор по заказу. Эскроу-средства замораживаются,
// уведомления получают обе стороны и все администраторы.
func (s *EscrowService) CreateDispute(ctx context.Context, actor models.Principal, in CreateDisputeInput) (*models.Dispute, error) {
	if in.Reason == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "причина спора обязательна")
	}

	order, err := s.orders.GetByID(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !order.IsParticipant(actor.ID) {
		return nil, apperror.New(apperror.ErrCodeForbidden, "открыть спор может только участник заказа")
	}

	switch order.Status {
	case models.OrderStatusAccepted, models.OrderStatusInProgress:
	case models.OrderStatusCompleted:
		if order.CompletedAt != nil && time.Since(*order.CompletedAt) > DisputeWindowAfterCompletion {
			return nil, apperror.New(apperror.ErrCodeInvalidOrderState, "срок открытия спора по завершённому заказу истёк")
		}
	default:
		return nil, apperror.Newf(apperror.ErrCodeInvalidOrderState, "спор нельзя открыть по заказу в статусе %q", order.Status)
	}

	if existing, err := s.disputes.GetActiveByOrder(ctx, in.OrderID); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, apperror.New(apperror.ErrCodeConflict, "по заказу уже открыт спор")
	}

	var masterID uuid.UUID
	if order.AssignedMasterID != nil {
		masterID = *order.AssignedMasterID
	}

	dispute := &models.Dispute{
		OrderID:     order.ID,
		ClientID:    order.ClientID,
		MasterID:    masterID,
		InitiatorID: actor.ID,
		Reason:      in.Reason,
		Description: in.Description,
		Status:      models.DisputeStatusOpen,
	}
	if err := s.disputes.Create(ctx, dispute); err != nil {
		return nil, err
	}

	now := time.Now()
	order.Status = models.OrderStatusDispute
	order.DisputeStatus = models.DisputeStatusOpen
	order.DisputeCreatedAt = &now
	if order.PaymentStatus == models.PaymentStatusEscrowed {
		order.PaymentStatus = models.PaymentStatusFrozen
	}
	if err := s.orders.Save(ctx, order); err != nil {
		return nil, err
	}

	s.recordHistory(ctx, order.ID, actor.ID, models.HistoryActionDisputeOpened, map[string]string{
		"reason": in.Reason,
	})

	s.notify(order.ClientID, models.EventDisputeOpened, dispute)
	if masterID != uuid.Nil {
		s.notify(masterID, models.EventDisputeOpened, dispute)
	}
	if adminIDs, err := s.admins.ListAdminIDs(ctx); err == nil {
		for _, adminID := range adminIDs {
			s.notify(adminID, models.EventDisputeOpened, dispute)
		}
	}

	return dispute, nil
}

// ResolveDispute выносит решение по спору. Три исхода: победа клиента
// с полным возвратом, победа мастера с выплатой за вычетом комиссии,
// компромисс с заморозкой средств для ручного распределения.
func (s *EscrowService) ResolveDispute(ctx context.Context, actor models.Principal, disputeID uuid.UUID, decision models.DisputeDecision, explanation string) (*models.Dispute, error) {
	if !actor.IsAdmin() {
		return nil, apperror.New(apperror.ErrCodeForbidden, "решение по спору выносит только администратор")
	}
	if explanation == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "объяснение решения обязательно")
	}
	if !decision.IsValid() {
		return nil, apperror.Newf(apperror.ErrCodeValidation, "неизвестное решение %q", decision)
	}

	dispute, err := s.disputes.GetByID(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	// Повторное разрешение двигало бы деньги второй раз.
	if !dispute.Status.IsActive() {
		return nil, apperror.Newf(apperror.ErrCodeInvalidOrderState, "спор уже обработан, статус %q", dispute.Status)
	}

	order, err := s.orders.GetByID(ctx, dispute.OrderID)
	if err != nil {
		return nil, err
	}

	amount := order.SettlementAmount()

	switch decision {
	case models.DecisionClientWins:
		if amount > 0 && (order.PaymentStatus == models.PaymentStatusEscrowed || order.PaymentStatus == models.PaymentStatusFrozen) {
			if err := s.ledger.RefundClient(ctx, order.ClientID, order.ID, amount); err != nil {
				return nil, err
			}
		}
		order.Status = models.OrderStatusCancelled
		order.PaymentStatus = models.PaymentStatusRefunded
		order.AssignedMasterID = nil

	case models.DecisionMasterWins:
		if order.AssignedMasterID == nil {
			return nil, apperror.New(apperror.ErrCodeInvalidOrderState, "заказу не назначен мастер")
		}
		if amount <= 0 {
			return nil, apperror.New(apperror.ErrCodeValidation, "по заказу не зафиксирована сумма расчёта")
		}
		commission := CommissionFor(amount)
		if err := s.ledger.CreditMaster(ctx, *order.AssignedMasterID, order.ID, amount-commission, commission); err != nil {
			return nil, err
		}
		now := time.Now()
		order.Status = models.OrderStatusCompleted
		order.PaymentStatus = models.PaymentStatusReleased
		order.CompletedAt = &now

	case models.DecisionCompromise:
		// Средства остаются замороженными для ручного распределения.
		order.PaymentStatus = models.PaymentStatusFrozen
	}

	order.DisputeStatus = models.DisputeStatusResolved
	if err := s.orders.Save(ctx, order); err != nil {
		return nil, err
	}

	resolved, err := s.disputes.Resolve(ctx, disputeID, decision, explanation, actor.ID)
	if err != nil {
		return nil, err
	}

	s.recordHistory(ctx, order.ID, actor.ID, models.HistoryActionDisputeResolved, map[string]string{
		"decision": string(decision),
	})

	s.notify(dispute.ClientID, models.EventDisputeResolved, resolved)
	if dispute.MasterID != uuid.Nil {
		s.notify(dispute.MasterID, models.EventDisputeResolved, resolved)
	}

	return resolved, nil
}

// EscalateDispute переводит спор в ручное разбирательство. Для
// автоматики статус терминален.
func (s *EscrowService) EscalateDispute(ctx context.Context, actor models.Principal, orderID uuid.UUID) (*models.Order, error) {
	if !actor.IsAdmin() {
		return nil, apperror.New(apperror.ErrCodeForbidden, "эскалировать спор может только администратор")
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != models.OrderStatusDispute {
		return nil, apperror.Newf(apperror.ErrCodeInvalidOrderState, "эскалация возможна только из статуса dispute, текущий статус %q", order.Status)
	}

	if err := s.disputes.Escalate(ctx, orderID); err != nil {
		return nil, err
	}

	order.Status = models.OrderStatusEscalated
	order.DisputeStatus = models.DisputeStatusEscalated
	if err := s.orders.Save(ctx, order); err != nil {
		return nil, err
	}

	s.notify(order.ClientID, models.EventDisputeEscalated, order)
	if order.AssignedMasterID != nil {
		s.notify(*order.AssignedMasterID, models.EventDisputeEscalated, order)
	}

	return order, nil
}

// AttachEvidence прикрепляет к спору фотодоказательство, сохранённое
// хранилищем файлов. Доступно участникам спора до вынесения решения.
func (s *EscrowService) AttachEvidence(ctx context.Context, actor models.Principal, disputeID uuid.UUID, path string) error {
	if path == "" {
		return apperror.New(apperror.ErrCodeValidation, "путь к файлу доказательства пуст")
	}

	dispute, err := s.disputes.GetByID(ctx, disputeID)
	if err != nil {
		return err
	}
	if !actor.IsAdmin() && actor.ID != dispute.ClientID && actor.ID != dispute.MasterID {
		return apperror.New(apperror.ErrCodeForbidden, "прикреплять доказательства могут только участники спора")
	}
	if !dispute.Status.IsActive() {
		return apperror.Newf(apperror.ErrCodeConflict, "спор в статусе %q уже не принимает доказательства", dispute.Status)
	}

	return s.disputes.SetEvidence(ctx, disputeID, path)
}

// GetDispute возвращает спор с проверкой доступа.
func (s *EscrowService) GetDispute(ctx context.Context, actor models.Principal, id uuid.UUID) (*models.Dispute, error) {
	dispute, err := s.disputes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && actor.ID != dispute.ClientID && actor.ID != dispute.MasterID {
		return nil, apperror.ErrForbidden
	}
	return dispute, nil
}

// ListMyDisputes возвращает споры пользователя.
func (s *EscrowService) ListMyDisputes(ctx context.Context, actor models.Principal, limit, offset int) ([]models.Dispute, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.disputes.ListByUser(ctx, actor.ID, limit, offset)
}

// GetBalance возвращает баланс пользователя.
func (s *EscrowService) GetBalance(ctx context.Context, actor models.Principal) (*models.UserBalance, error) {
	return s.ledger.GetBalance(ctx, actor.ID)
}

// Withdraw выводит средства с доступного баланса мастера.
func (s *EscrowService) Withdraw(ctx context.Context, actor models.Principal, amount float64) (*models.Transaction, error) {
	if !actor.IsMaster() {
		return nil, apperror.New(apperror.ErrCodeForbidden, "вывод средств доступен только мастерам")
	}
	if amount < models.MinWithdrawalAmount {
		return nil, apperror.Newf(apperror.ErrCodeValidation, "минимальная сумма вывода %.0f", float64(models.MinWithdrawalAmount))
	}
	return s.ledger.Withdraw(ctx, actor.ID, amount)
}

// ListTransactions возвращает историю транзакций пользователя.
func (s *EscrowService) ListTransactions(ctx context.Context, actor models.Principal, limit, offset int) ([]models.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.ledger.ListTransactions(ctx, actor.ID, limit, offset)
}

// ReleaseStalePayments выплачивает по заказам, которые висят в работе
// дольше отведённого срока без спора. Вызывается планировщиком от имени
// системы.
func (s *EscrowService) ReleaseStalePayments(ctx context.Context, olderThan time.Duration) int {
	cutoff := time.Now().Add(-olderThan)
	orders, err := s.orders.ListStaleInProgress(ctx, cutoff)
	if err != nil {
		if logger.Log != nil {
			logger.Log.Errorf("escrow service: не удалось выбрать зависшие заказы: %v", err)
		}
		return 0
	}

	released := 0
	for i := range orders {
		if _, err := s.ReleasePayment(ctx, models.SystemPrincipal(), orders[i].ID); err != nil {
			if logger.Log != nil {
				logger.WithOrder(orders[i].ID).Warnf("escrow service: автовыплата не удалась: %v", err)
			}
			continue
		}
		released++
	}
	return released
}

// ResolveExpiredDisputes закрывает просроченные споры в пользу клиента.
// Вызывается планировщиком от имени системы.
func (s *EscrowService) ResolveExpiredDisputes(ctx context.Context, olderThan time.Duration) int {
	cutoff := time.Now().Add(-olderThan)
	disputes, err := s.disputes.ListOpenOlderThan(ctx, cutoff)
	if err != nil {
		if logger.Log != nil {
			logger.Log.Errorf("escrow service: не удалось выбрать просроченные споры: %v", err)
		}
		return 0
	}

	resolved := 0
	for i := range disputes {
		_, err := s.ResolveDispute(ctx, models.SystemPrincipal(), disputes[i].ID,
			models.DecisionClientWins, "спор закрыт автоматически: администратор не вынес решение в срок")
		if err != nil {
			if logger.Log != nil {
				logger.WithOrder(disputes[i].OrderID).Warnf("escrow service: авторазрешение спора не удалось: %v", err)
			}
			continue
		}
		resolved++
	}
	return resolved
}

func (s *EscrowService) recordHistory(ctx context.Context, orderID, userID uuid.UUID, action string, details interface{}) {
	if s.history == nil {
		return
	}
	if err := s.history.Append(ctx, orderID, userID, action, details); err != nil && logger.Log != nil {
		logger.WithOrder(orderID).WithField("action", action).Warnf("escrow service: не удалось записать историю: %v", err)
	}
}

func (s *EscrowService) notify(userID uuid.UUID, event string, data interface{}) {
	if s.hub == nil {
		return
	}
	if err := s.hub.BroadcastToUser(userID, event, data); err != nil && logger.Log != nil {
		logger.Log.WithField("event", event).Warnf("escrow service: не удалось отправить уведомление: %v", err)
	}
}
