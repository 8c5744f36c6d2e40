package domain

import (
	"time"

	"github.com/google/uuid"
)

// Notification event types.
const (
	EventCapsuleOpened  = "capsule.opened"
	EventCapsuleLocked  = "capsule.locked"
	EventAccessGranted  = "access.granted"
	EventAccessRevoked  = "access.revoked"
	EventFriendRequest  = "friend.request"
	EventFriendAccepted = "friend.accepted"
)

type Notification struct {
	ID      uuid.UUID `json:"id"`
	UserID  uuid.UUID `json:"user_id"`
	Type    string    `json:"type"`
	Message string    `json:"message"`
	// RelatedID points at the entity the notification is about
	// (capsule, friend request), if any.
	RelatedID *uuid.UUID `json:"related_id,omitempty"`
	IsRead    bool       `json:"is_read"`
	CreatedAt time.Time  `json:"created_at"`
}
