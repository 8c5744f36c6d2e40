package ws

import (
	"log"

	"github.com/google/uuid"
	"github.com/vedran77/kapsula/internal/domain"
)

// HubNotifier implements service.Pusher using the WebSocket Hub.
type HubNotifier struct {
	hub *Hub
}

func NewHubNotifier(hub *Hub) *HubNotifier {
	return &HubNotifier{hub: hub}
}

func (n *HubNotifier) PushNotification(userID uuid.UUID, notification *domain.Notification) {
	evt, err := NewEvent(EventTypeNotification, NotificationPayload{Notification: *notification})
	if err != nil {
		log.Printf("ws notifier: marshal error: %v", err)
		return
	}
	n.hub.SendToUser(userID, evt)
}
