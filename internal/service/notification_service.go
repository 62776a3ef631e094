package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/rustaceolibre/marketplace-backend/internal/logger"
	"github.com/rustaceolibre/marketplace-backend/internal/models"
)

// События жизненного цикла, о которых уведомляются участники.
const (
	EventOrderCreated         = "order.created"
	EventOrderDispatched      = "order.dispatched"
	EventOrderReceived        = "order.received"
	EventOrderCancelRequested = "order.cancel_requested"
	EventOrderCancelled       = "order.cancelled"
	EventOrderClaimed         = "order.claimed"
	EventDisputeOpened        = "dispute.opened"
	EventDisputeCountered     = "dispute.countered"
	EventDisputeResolved      = "dispute.resolved"
)

// NotificationStore описывает взаимодействие сервиса с хранилищем уведомлений.
type NotificationStore interface {
	Create(ctx context.Context, notification *models.Notification) error
	ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID uuid.UUID, ids []int64) error
}

// NotificationPusher доставляет уведомление в открытое WebSocket-соединение.
type NotificationPusher interface {
	Push(userID uuid.UUID, message []byte)
}

// NotificationService сохраняет уведомления и проталкивает их онлайн-клиентам.
type NotificationService struct {
	repo   NotificationStore
	pusher NotificationPusher
}

// NewNotificationService создаёт новый сервис уведомлений.
func NewNotificationService(repo NotificationStore, pusher NotificationPusher) *NotificationService {
	return &NotificationService{repo: repo, pusher: pusher}
}

// Notify сохраняет уведомление и отправляет его в WebSocket, если клиент
// подключён. Ошибки здесь не должны срывать операцию, породившую событие,
// поэтому они только логируются.
func (s *NotificationService) Notify(ctx context.Context, userID uuid.UUID, event string, data interface{}) {
	payload, err := json.Marshal(map[string]interface{}{
		"event": event,
		"data":  data,
	})
	if err != nil {
		logger.Log.WithField("event", event).WithError(err).Error("notification service: marshal payload")
		return
	}

	notification := &models.Notification{
		UserID:  userID,
		Event:   event,
		Payload: payload,
	}

	if err := s.repo.Create(ctx, notification); err != nil {
		logger.Log.WithField("event", event).WithError(err).Error("notification service: create")
	}

	if s.pusher != nil {
		s.pusher.Push(userID, payload)
	}
}

// List возвращает уведомления пользователя.
func (s *NotificationService) List(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]models.Notification, error) {
	return s.repo.ListByUser(ctx, userID, unreadOnly)
}

// MarkRead помечает уведомления пользователя прочитанными.
func (s *NotificationService) MarkRead(ctx context.Context, userID uuid.UUID, ids []int64) error {
	if len(ids) == 0 {
		return fmt.Errorf("notification service: пустой список идентификаторов")
	}
	return s.repo.MarkRead(ctx, userID, ids)
}
