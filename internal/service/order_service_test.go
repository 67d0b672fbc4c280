package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/plevandm/repairhub-backend/internal/models"
	"github.com/plevandm/repairhub-backend/internal/pkg/apperror"
)

type mockOrderStore struct {
	mock.Mock
}

func (m *mockOrderStore) Create(ctx context.Context, order *models.Order) error {
	args := m.Called(ctx, order)
	if args.Error(0) == nil {
		order.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *mockOrderStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *mockOrderStore) Save(ctx context.Context, order *models.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *mockOrderStore) CountActiveByClient(ctx context.Context, clientID uuid.UUID) (int, error) {
	args := m.Called(ctx, clientID)
	return args.Int(0), args.Error(1)
}

func (m *mockOrderStore) ListByClient(ctx context.Context, clientID uuid.UUID) ([]models.Order, error) {
	args := m.Called(ctx, clientID)
	return args.Get(0).([]models.Order), args.Error(1)
}

func (m *mockOrderStore) ListByMaster(ctx context.Context, masterID uuid.UUID) ([]models.Order, error) {
	args := m.Called(ctx, masterID)
	return args.Get(0).([]models.Order), args.Error(1)
}

func (m *mockOrderStore) ListOpen(ctx context.Context, limit, offset int) ([]models.Order, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]models.Order), args.Error(1)
}

type mockHistoryStore struct {
	mock.Mock
}

func (m *mockHistoryStore) Append(ctx context.Context, orderID, userID uuid.UUID, action string, details interface{}) error {
	args := m.Called(ctx, orderID, userID, action, details)
	return args.Error(0)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) BroadcastToUser(userID uuid.UUID, event string, data interface{}) error {
	args := m.Called(userID, event, data)
	return args.Error(0)
}

func clientPrincipal() models.Principal {
	return models.Principal{ID: uuid.New(), Role: models.RoleClient}
}

func masterPrincipal() models.Principal {
	return models.Principal{ID: uuid.New(), Role: models.RoleMaster}
}

func adminPrincipal() models.Principal {
	return models.Principal{ID: uuid.New(), Role: models.RoleAdmin}
}

func TestOrderService_CreateOrder_Success(t *testing.T) {
	orders := new(mockOrderStore)
	history := new(mockHistoryStore)
	svc := NewOrderService(orders, history)
	ctx := context.Background()
	client := clientPrincipal()

	orders.On("CountActiveByClient", ctx, client.ID).Return(2, nil)
	orders.On("Create", ctx, mock.AnythingOfType("*models.Order")).Return(nil)
	history.On("Append", ctx, mock.Anything, client.ID, models.HistoryActionCreated, mock.Anything).Return(nil)

	order, err := svc.CreateOrder(ctx, client, CreateOrderInput{
		Title:       "Ремонт экрана iPhone 13",
		Description: "Разбит дисплей, тач не работает",
		DeviceType:  "smartphone",
		Issue:       "разбит экран",
		City:        "Москва",
	})

	assert.NoError(t, err)
	assert.Equal(t, models.OrderStatusOpen, order.Status)
	assert.Equal(t, models.PaymentStatusPending, order.PaymentStatus)
	assert.Equal(t, models.DisputeStatusNone, order.DisputeStatus)
	assert.Equal(t, "medium", order.Urgency)
	assert.Equal(t, client.ID, order.ClientID)
	assert.Nil(t, order.AssignedMasterID)
}

func TestOrderService_CreateOrder_MasterForbidden(t *testing.T) {
	svc := NewOrderService(new(mockOrderStore), nil)

	_, err := svc.CreateOrder(context.Background(), masterPrincipal(), CreateOrderInput{
		Title:       "Ремонт",
		Description: "Описание",
	})

	assert.Error(t, err)
	assert.True(t, apperror.IsForbidden(err))
}

func TestOrderService_CreateOrder_ActiveLimit(t *testing.T) {
	orders := new(mockOrderStore)
	svc := NewOrderService(orders, nil)
	ctx := context.Background()
	client := clientPrincipal()

	orders.On("CountActiveByClient", ctx, client.ID).Return(MaxActiveOrdersPerClient, nil)

	_, err := svc.CreateOrder(ctx, client, CreateOrderInput{
		Title:       "Ещё один заказ",
		Description: "Описание",
	})

	assert.Error(t, err)
	assert.True(t, apperror.IsConflict(err))
	orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestOrderService_UpdateStatus_ClientCancels(t *testing.T) {
	orders := new(mockOrderStore)
	history := new(mockHistoryStore)
	hub := new(mockNotifier)
	svc := NewOrderService(orders, history)
	svc.SetHub(hub)
	ctx := context.Background()

	client := clientPrincipal()
	orderID := uuid.New()
	order := &models.Order{ID: orderID, ClientID: client.ID, Status: models.OrderStatusOpen}

	orders.On("GetByID", ctx, orderID).Return(order, nil)
	orders.On("Save", ctx, order).Return(nil)
	history.On("Append", ctx, orderID, client.ID, models.HistoryActionStatusChanged, mock.Anything).Return(nil)
	hub.On("BroadcastToUser", client.ID, models.EventOrderCancelled, mock.Anything).Return(nil)

	updated, err := svc.UpdateStatus(ctx, client, orderID, models.OrderStatusCancelled)

	assert.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, updated.Status)
	hub.AssertCalled(t, "BroadcastToUser", client.ID, models.EventOrderCancelled, mock.Anything)
}

func TestOrderService_UpdateStatus_MasterCompletes(t *testing.T) {
	orders := new(mockOrderStore)
	history := new(mockHistoryStore)
	hub := new(mockNotifier)
	svc := NewOrderService(orders, history)
	svc.SetHub(hub)
	ctx := context.Background()

	master := masterPrincipal()
	clientID := uuid.New()
	orderID := uuid.New()
	order := &models.Order{
		ID:               orderID,
		ClientID:         clientID,
		AssignedMasterID: &master.ID,
		Status:           models.OrderStatusInProgress,
	}

	orders.On("GetByID", ctx, orderID).Return(order, nil)
	orders.On("Save", ctx, order).Return(nil)
	history.On("Append", ctx, orderID, master.ID, models.HistoryActionStatusChanged, mock.Anything).Return(nil)
	hub.On("BroadcastToUser", mock.Anything, models.EventWorkCompleted, mock.Anything).Return(nil)

	updated, err := svc.UpdateStatus(ctx, master, orderID, models.OrderStatusCompleted)

	assert.NoError(t, err)
	assert.Equal(t, models.OrderStatusCompleted, updated.Status)
	assert.NotNil(t, updated.CompletedAt)
	// Мастер остаётся назначенным на завершённом заказе.
	assert.NotNil(t, updated.AssignedMasterID)
	// Завершение уведомляет обе стороны.
	hub.AssertCalled(t, "BroadcastToUser", clientID, models.EventWorkCompleted, mock.Anything)
	hub.AssertCalled(t, "BroadcastToUser", master.ID, models.EventWorkCompleted, mock.Anything)
}

func TestOrderService_UpdateStatus_MasterCannotCancel(t *testing.T) {
	orders := new(mockOrderStore)
	svc := NewOrderService(orders, nil)
	ctx := context.Background()

	master := masterPrincipal()
	orderID := uuid.New()
	order := &models.Order{
		ID:               orderID,
		ClientID:         uuid.New(),
		AssignedMasterID: &master.ID,
		Status:           models.OrderStatusInProgress,
	}

	orders.On("GetByID", ctx, orderID).Return(order, nil)

	_, err := svc.UpdateStatus(ctx, master, orderID, models.OrderStatusCancelled)

	assert.Error(t, err)
	assert.True(t, apperror.IsForbidden(err))
	orders.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestOrderService_UpdateStatus_ForeignOrder(t *testing.T) {
	orders := new(mockOrderStore)
	svc := NewOrderService(orders, nil)
	ctx := context.Background()

	client := clientPrincipal()
	orderID := uuid.New()
	order := &models.Order{ID: orderID, ClientID: uuid.New(), Status: models.OrderStatusOpen}

	orders.On("GetByID", ctx, orderID).Return(order, nil)

	_, err := svc.UpdateStatus(ctx, client, orderID, models.OrderStatusCancelled)

	assert.Error(t, err)
	assert.True(t, apperror.IsForbidden(err))
}

func TestOrderService_UpdateStatus_InvalidTransition(t *testing.T) {
	orders := new(mockOrderStore)
	svc := NewOrderService(orders, nil)
	ctx := context.Background()

	admin := adminPrincipal()
	orderID := uuid.New()
	order := &models.Order{ID: orderID, ClientID: uuid.New(), Status: models.OrderStatusCancelled}

	orders.On("GetByID", ctx, orderID).Return(order, nil)

	_, err := svc.UpdateStatus(ctx, admin, orderID, models.OrderStatusInProgress)

	assert.Error(t, err)
	assert.True(t, apperror.IsConflict(err))
}

func TestOrderService_UpdateStatus_SelfTransitionRejected(t *testing.T) {
	orders := new(mockOrderStore)
	svc := NewOrderService(orders, nil)
	ctx := context.Background()

	admin := adminPrincipal()
	orderID := uuid.New()
	order := &models.Order{ID: orderID, ClientID: uuid.New(), Status: models.OrderStatusOpen}

	orders.On("GetByID", ctx, orderID).Return(order, nil)

	_, err := svc.UpdateStatus(ctx, admin, orderID, models.OrderStatusOpen)

	assert.Error(t, err)
	assert.True(t, apperror.IsConflict(err))
}

func TestOrderService_UpdateStatus_DisputeStatusesRejected(t *testing.T) {
	orders := new(mockOrderStore)
	svc := NewOrderService(orders, nil)
	ctx := context.Background()

	orderID := uuid.New()
	// Прямой перевод создал бы заказ в статусе dispute без записи спора.
	for _, target := range []models.OrderStatus{models.OrderStatusDispute, models.OrderStatusEscalated} {
		_, err := svc.UpdateStatus(ctx, clientPrincipal(), orderID, target)

		assert.Error(t, err, string(target))
		assert.True(t, apperror.IsConflict(err), string(target))
	}
	orders.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestOrderService_UpdateStatus_UnknownStatus(t *testing.T) {
	svc := NewOrderService(new(mockOrderStore), nil)

	_, err := svc.UpdateStatus(context.Background(), adminPrincipal(), uuid.New(), models.OrderStatus("shipped"))

	assert.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
}

func TestOrderService_UpdateStatus_CancelClearsMaster(t *testing.T) {
	orders := new(mockOrderStore)
	hub := new(mockNotifier)
	svc := NewOrderService(orders, nil)
	svc.SetHub(hub)
	ctx := context.Background()

	client := clientPrincipal()
	masterID := uuid.New()
	orderID := uuid.New()
	order := &models.Order{
		ID:               orderID,
		ClientID:         client.ID,
		AssignedMasterID: &masterID,
		Status:           models.OrderStatusAccepted,
	}

	orders.On("GetByID", ctx, orderID).Return(order, nil)
	orders.On("Save", ctx, order).Return(nil)
	hub.On("BroadcastToUser", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	updated, err := svc.UpdateStatus(ctx, client, orderID, models.OrderStatusCancelled)

	assert.NoError(t, err)
	assert.Nil(t, updated.AssignedMasterID)
}

func TestOrderService_UpdateStatus_RestoreClearsDeletedAt(t *testing.T) {
	orders := new(mockOrderStore)
	svc := NewOrderService(orders, nil)
	ctx := context.Background()

	client := clientPrincipal()
	orderID := uuid.New()
	order := &models.Order{ID: orderID, ClientID: client.ID, Status: models.OrderStatusOpen}

	orders.On("GetByID", ctx, orderID).Return(order, nil)
	orders.On("Save", ctx, order).Return(nil)

	deleted, err := svc.UpdateStatus(ctx, client, orderID, models.OrderStatusDeleted)
	assert.NoError(t, err)
	assert.NotNil(t, deleted.DeletedAt)

	restored, err := svc.UpdateStatus(ctx, client, orderID, models.OrderStatusOpen)
	assert.NoError(t, err)
	assert.Nil(t, restored.DeletedAt)
	assert.Equal(t, models.OrderStatusOpen, restored.Status)
}

func TestOrderService_ListMyOrders_ByRole(t *testing.T) {
	orders := new(mockOrderStore)
	svc := NewOrderService(orders, nil)
	ctx := context.Background()

	client := clientPrincipal()
	master := masterPrincipal()

	orders.On("ListByClient", ctx, client.ID).Return([]models.Order{{ID: uuid.New()}}, nil)
	orders.On("ListByMaster", ctx, master.ID).Return([]models.Order{}, nil)

	clientOrders, err := svc.ListMyOrders(ctx, client)
	assert.NoError(t, err)
	assert.Len(t, clientOrders, 1)

	masterOrders, err := svc.ListMyOrders(ctx, master)
	assert.NoError(t, err)
	assert.Empty(t, masterOrders)
}

func TestOrderService_ListOpenOrders_ClampsPagination(t *testing.T) {
	orders := new(mockOrderStore)
	svc := NewOrderService(orders, nil)
	ctx := context.Background()

	orders.On("ListOpen", ctx, 20, 0).Return([]models.Order{}, nil)

	_, err := svc.ListOpenOrders(ctx, -5, -1)
	assert.NoError(t, err)
	orders.AssertCalled(t, "ListOpen", ctx, 20, 0)
}
