package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/plevandm/repairhub-backend/internal/models"
)

type mockNotificationStore struct {
	mock.Mock
}

func (m *mockNotificationStore) Create(ctx context.Context, n *models.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func (m *mockNotificationStore) List(ctx context.Context, userID uuid.UUID, limit, offset int, unreadOnly bool) ([]models.Notification, error) {
	args := m.Called(ctx, userID, limit, offset, unreadOnly)
	return args.Get(0).([]models.Notification), args.Error(1)
}

func (m *mockNotificationStore) MarkAsRead(ctx context.Context, id uuid.UUID, userID uuid.UUID) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

func (m *mockNotificationStore) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *mockNotificationStore) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func TestNotificationService_BroadcastToUser_PersistsAndForwards(t *testing.T) {
	store := new(mockNotificationStore)
	hub := new(mockNotifier)
	svc := NewNotificationService(store)
	svc.SetHub(hub)

	userID := uuid.New()
	data := map[string]string{"order_id": uuid.NewString()}

	var saved *models.Notification
	store.On("Create", mock.Anything, mock.AnythingOfType("*models.Notification")).
		Run(func(args mock.Arguments) {
			saved = args.Get(1).(*models.Notification)
		}).
		Return(nil)
	hub.On("BroadcastToUser", userID, models.EventProposalReceived, data).Return(nil)

	err := svc.BroadcastToUser(userID, models.EventProposalReceived, data)

	assert.NoError(t, err)
	assert.Equal(t, userID, saved.UserID)
	assert.Equal(t, models.EventProposalReceived, saved.Event)

	var payload map[string]string
	assert.NoError(t, json.Unmarshal(saved.Payload, &payload))
	assert.Equal(t, data, payload)
	hub.AssertCalled(t, "BroadcastToUser", userID, models.EventProposalReceived, data)
}

func TestNotificationService_BroadcastToUser_HubFailureIgnored(t *testing.T) {
	store := new(mockNotificationStore)
	hub := new(mockNotifier)
	svc := NewNotificationService(store)
	svc.SetHub(hub)

	userID := uuid.New()
	store.On("Create", mock.Anything, mock.Anything).Return(nil)
	hub.On("BroadcastToUser", userID, mock.Anything, mock.Anything).Return(errors.New("нет активных соединений"))

	// Пользователь офлайн, уведомление остаётся в ленте.
	err := svc.BroadcastToUser(userID, models.EventWorkCompleted, map[string]string{})

	assert.NoError(t, err)
}

func TestNotificationService_BroadcastToUser_StoreFailure(t *testing.T) {
	store := new(mockNotificationStore)
	svc := NewNotificationService(store)

	store.On("Create", mock.Anything, mock.Anything).Return(errors.New("база недоступна"))

	err := svc.BroadcastToUser(uuid.New(), models.EventWorkCompleted, map[string]string{})

	assert.Error(t, err)
}

func TestNotificationService_List_ClampsPagination(t *testing.T) {
	store := new(mockNotificationStore)
	svc := NewNotificationService(store)
	ctx := context.Background()

	userID := uuid.New()
	store.On("List", ctx, userID, 20, 0, true).Return([]models.Notification{}, nil)

	_, err := svc.List(ctx, userID, 500, -3, true)

	assert.NoError(t, err)
	store.AssertCalled(t, "List", ctx, userID, 20, 0, true)
}
