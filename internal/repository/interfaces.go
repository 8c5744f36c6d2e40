package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/kapsula/internal/domain"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}

type CapsuleRepository interface {
	Create(ctx context.Context, capsule *domain.Capsule) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Capsule, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Capsule, error)
	ListByStatus(ctx context.Context, status domain.CapsuleStatus) ([]domain.Capsule, error)
	// ListAccessible returns capsules the user owns or holds a grant on.
	ListAccessible(ctx context.Context, userID uuid.UUID) ([]domain.Capsule, error)
	UpdateMetadata(ctx context.Context, capsule *domain.Capsule) error
	// TransitionStatus atomically moves a capsule from the expected status
	// to a new status, updating is_locked and open_date in the same row
	// write. It returns false when the capsule was not in the expected
	// status anymore, which means another writer won the race.
	TransitionStatus(ctx context.Context, id uuid.UUID, expected, next domain.CapsuleStatus, isLocked bool, openDate *time.Time) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type GrantRepository interface {
	Create(ctx context.Context, grant *domain.AccessGrant) error
	GetByCapsuleAndUser(ctx context.Context, capsuleID, userID uuid.UUID) (*domain.AccessGrant, error)
	ListByCapsule(ctx context.Context, capsuleID uuid.UUID) ([]domain.AccessGrant, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role domain.GrantRole) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type FriendshipRepository interface {
	CreateRequest(ctx context.Context, req *domain.FriendRequest) error
	GetRequestByID(ctx context.Context, id uuid.UUID) (*domain.FriendRequest, error)
	GetRequestByUsers(ctx context.Context, senderID, receiverID uuid.UUID) (*domain.FriendRequest, error)
	ListIncomingRequests(ctx context.Context, userID uuid.UUID) ([]domain.FriendRequest, error)
	ListOutgoingRequests(ctx context.Context, userID uuid.UUID) ([]domain.FriendRequest, error)
	DeleteRequest(ctx context.Context, id uuid.UUID) error
	CreateFriendship(ctx context.Context, f *domain.Friendship) error
	AreFriends(ctx context.Context, user1ID, user2ID uuid.UUID) (bool, error)
	ListFriends(ctx context.Context, userID uuid.UUID) ([]domain.Friendship, error)
	DeleteFriendship(ctx context.Context, user1ID, user2ID uuid.UUID) error
}

type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]domain.Notification, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) error
}
