package domain

import (
	"time"

	"github.com/google/uuid"
)

// CapsuleStatus is the lifecycle state of a capsule.
type CapsuleStatus string

const (
	StatusUnpublished CapsuleStatus = "UNPUBLISHED"
	StatusClosed      CapsuleStatus = "CLOSED"
	StatusPublished   CapsuleStatus = "PUBLISHED"
	StatusArchived    CapsuleStatus = "ARCHIVED"
	// StatusConfiscated is set by the moderation workflow. Once a capsule
	// is confiscated no further lifecycle transitions are accepted.
	StatusConfiscated CapsuleStatus = "CONFISCATED"
)

func (s CapsuleStatus) Valid() bool {
	switch s {
	case StatusUnpublished, StatusClosed, StatusPublished, StatusArchived, StatusConfiscated:
		return true
	}
	return false
}

type Capsule struct {
	ID          uuid.UUID     `json:"id"`
	Title       string        `json:"title"`
	Description *string       `json:"description,omitempty"`
	OwnerID     uuid.UUID     `json:"owner_id"`
	Status      CapsuleStatus `json:"status"`
	// IsLocked is true exactly while status is CLOSED and the capsule
	// is counting down to OpenDate.
	IsLocked  bool       `json:"is_locked"`
	OpenDate  *time.Time `json:"open_date,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// GrantRole is the role an access grant confers on a non-owner.
type GrantRole string

const (
	RoleEditor GrantRole = "EDITOR"
	RoleViewer GrantRole = "VIEWER"
)

func (r GrantRole) Valid() bool {
	return r == RoleEditor || r == RoleViewer
}

// AccessGrant gives a non-owner user a role on a capsule. At most one
// grant exists per (capsule, user) pair.
type AccessGrant struct {
	ID        uuid.UUID `json:"id"`
	CapsuleID uuid.UUID `json:"capsule_id"`
	UserID    uuid.UUID `json:"user_id"`
	GrantedBy uuid.UUID `json:"granted_by"`
	Role      GrantRole `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	// Joined fields
	Username    string `json:"username,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// Action is an operation a subject can request on a capsule.
type Action string

const (
	ActionView         Action = "VIEW"
	ActionEdit         Action = "EDIT"
	ActionManageAccess Action = "MANAGE_ACCESS"
	ActionLock         Action = "LOCK"
	ActionUnlock       Action = "UNLOCK"
	ActionArchive      Action = "ARCHIVE"
	ActionPublish      Action = "PUBLISH"
	ActionDelete       Action = "DELETE"
)
