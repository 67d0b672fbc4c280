package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/plevandm/repairhub-backend/internal/logger"
	"github.com/plevandm/repairhub-backend/internal/models"
)

// NotificationStore описывает хранилище уведомлений.
type NotificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
	List(ctx context.Context, userID uuid.UUID, limit, offset int, unreadOnly bool) ([]models.Notification, error)
	MarkAsRead(ctx context.Context, id uuid.UUID, userID uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) error
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
}

// NotificationService сохраняет уведомления и проталкивает их в
// WebSocket-хаб. Реализует Notifier и подключается к остальным
// сервисам как единственный канал доставки событий.
type NotificationService struct {
	store NotificationStore
	hub   Notifier
}

// NewNotificationService создаёт новый сервис уведомлений.
func NewNotificationService(store NotificationStore) *NotificationService {
	return &NotificationService{store: store}
}

// SetHub устанавливает WebSocket-хаб для мгновенной доставки.
func (s *NotificationService) SetHub(hub Notifier) {
	s.hub = hub
}

// BroadcastToUser сохраняет уведомление и отправляет его в хаб.
// Доставка fire-and-forget: недоступность хаба не ломает операцию,
// уведомление останется в ленте пользователя.
func (s *NotificationService) BroadcastToUser(userID uuid.UUID, event string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	n := &models.Notification{
		UserID:  userID,
		Event:   event,
		Payload: payload,
	}
	if err := s.store.Create(ctx, n); err != nil {
		return err
	}

	if s.hub != nil {
		if err := s.hub.BroadcastToUser(userID, event, data); err != nil && logger.Log != nil {
			logger.Log.WithField("event", event).Debugf("notification service: хаб недоступен: %v", err)
		}
	}
	return nil
}

// List возвращает ленту уведомлений пользователя.
func (s *NotificationService) List(ctx context.Context, userID uuid.UUID, limit, offset int, unreadOnly bool) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.List(ctx, userID, limit, offset, unreadOnly)
}

// MarkAsRead отмечает уведомление прочитанным.
func (s *NotificationService) MarkAsRead(ctx context.Context, id, userID uuid.UUID) error {
	return s.store.MarkAsRead(ctx, id, userID)
}

// MarkAllAsRead отмечает все уведомления пользователя прочитанными.
func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	return s.store.MarkAllAsRead(ctx, userID)
}

// CountUnread возвращает число непрочитанных уведомлений.
func (s *NotificationService) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.store.CountUnread(ctx, userID)
}
