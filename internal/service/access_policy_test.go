package service_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/vedran77/kapsula/internal/domain"
	"github.com/vedran77/kapsula/internal/service"
)

func TestAllowed(t *testing.T) {
	owner := uuid.New()
	editor := uuid.New()
	viewer := uuid.New()
	stranger := uuid.New()

	grants := []domain.AccessGrant{
		{UserID: editor, Role: domain.RoleEditor},
		{UserID: viewer, Role: domain.RoleViewer},
	}

	capsule := func(status domain.CapsuleStatus) *domain.Capsule {
		return &domain.Capsule{ID: uuid.New(), OwnerID: owner, Status: status}
	}

	tests := []struct {
		name    string
		subject uuid.UUID
		status  domain.CapsuleStatus
		action  domain.Action
		want    bool
	}{
		{"owner can view unpublished", owner, domain.StatusUnpublished, domain.ActionView, true},
		{"owner can lock", owner, domain.StatusUnpublished, domain.ActionLock, true},
		{"owner can manage access on closed", owner, domain.StatusClosed, domain.ActionManageAccess, true},
		{"owner can archive published", owner, domain.StatusPublished, domain.ActionArchive, true},
		{"owner can delete archived", owner, domain.StatusArchived, domain.ActionDelete, true},

		{"editor can view unpublished", editor, domain.StatusUnpublished, domain.ActionView, true},
		{"editor can view closed", editor, domain.StatusClosed, domain.ActionView, true},
		{"editor cannot edit", editor, domain.StatusUnpublished, domain.ActionEdit, false},
		{"editor cannot lock", editor, domain.StatusUnpublished, domain.ActionLock, false},
		{"editor cannot manage access", editor, domain.StatusUnpublished, domain.ActionManageAccess, false},

		{"viewer cannot view unpublished", viewer, domain.StatusUnpublished, domain.ActionView, false},
		{"viewer cannot view closed", viewer, domain.StatusClosed, domain.ActionView, false},
		{"viewer can view published", viewer, domain.StatusPublished, domain.ActionView, true},
		{"viewer cannot lock", viewer, domain.StatusUnpublished, domain.ActionLock, false},
		{"viewer cannot unlock", viewer, domain.StatusClosed, domain.ActionUnlock, false},
		{"viewer cannot archive", viewer, domain.StatusPublished, domain.ActionArchive, false},

		{"stranger cannot view unpublished", stranger, domain.StatusUnpublished, domain.ActionView, false},
		{"stranger cannot view closed", stranger, domain.StatusClosed, domain.ActionView, false},
		{"stranger can view published", stranger, domain.StatusPublished, domain.ActionView, true},
		{"stranger cannot delete", stranger, domain.StatusPublished, domain.ActionDelete, false},
		{"stranger cannot publish", stranger, domain.StatusUnpublished, domain.ActionPublish, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := service.Allowed(tt.subject, capsule(tt.status), grants, tt.action)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAllowedReflectsCurrentGrants(t *testing.T) {
	owner := uuid.New()
	subject := uuid.New()
	c := &domain.Capsule{ID: uuid.New(), OwnerID: owner, Status: domain.StatusClosed}

	grants := []domain.AccessGrant{{UserID: subject, Role: domain.RoleEditor}}
	assert.True(t, service.Allowed(subject, c, grants, domain.ActionView))

	// Same call with the grant gone: decision flips immediately, there
	// is no cached state.
	assert.False(t, service.Allowed(subject, c, nil, domain.ActionView))
}
