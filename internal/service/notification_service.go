package service

import (
	"context"
	"errors"
	"log"

	"github.com/google/uuid"
	"github.com/vedran77/kapsula/internal/domain"
	"github.com/vedran77/kapsula/internal/repository"
)

var ErrNotificationNotFound = errors.New("notification not found")

// Pusher delivers a notification to the user's live connections, if
// any. Implemented by the WebSocket hub notifier.
type Pusher interface {
	PushNotification(userID uuid.UUID, n *domain.Notification)
}

// NotificationService persists in-app notifications and pushes them in
// real time. It implements Notifier; delivery is best-effort and every
// failure is logged rather than returned, so a notification problem
// never surfaces in the operation that triggered it.
type NotificationService struct {
	notificationRepo repository.NotificationRepository
	pusher           Pusher
	clock            Clock
}

func NewNotificationService(notificationRepo repository.NotificationRepository, clock Clock) *NotificationService {
	return &NotificationService{
		notificationRepo: notificationRepo,
		clock:            clock,
	}
}

// SetPusher sets the real-time delivery sink (optional dependency).
func (s *NotificationService) SetPusher(p Pusher) {
	s.pusher = p
}

func (s *NotificationService) Notify(ctx context.Context, userID uuid.UUID, eventType, message string, relatedID *uuid.UUID) {
	n := &domain.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      eventType,
		Message:   message,
		RelatedID: relatedID,
		CreatedAt: s.clock.Now(),
	}

	if err := s.notificationRepo.Create(ctx, n); err != nil {
		log.Printf("notifications: storing %s for %s: %v", eventType, userID, err)
		return
	}

	if s.pusher != nil {
		s.pusher.PushNotification(userID, n)
	}
}

func (s *NotificationService) ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]domain.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	items, err := s.notificationRepo.ListByUser(ctx, userID, unreadOnly, limit)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.Notification{}
	}
	return items, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	return s.notificationRepo.MarkRead(ctx, notificationID, userID)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	return s.notificationRepo.MarkAllRead(ctx, userID)
}
