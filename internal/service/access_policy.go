package service

import (
	"github.com/google/uuid"
	"github.com/vedran77/kapsula/internal/domain"
)

// Allowed decides whether subject may perform action on the capsule,
// given the capsule's current grants. It is a pure function of the
// arguments: decisions are never cached, so revoking a grant takes
// effect on the next call.
//
// Rules:
//   - The owner may do anything, at any status.
//   - VIEW on a PUBLISHED capsule is open to everyone.
//   - VIEW on any other status requires an EDITOR grant; VIEWER grants
//     only see published capsules.
//   - Every other action is owner-only. Grants never confer lifecycle
//     or access-management rights.
func Allowed(subjectID uuid.UUID, capsule *domain.Capsule, grants []domain.AccessGrant, action domain.Action) bool {
	if capsule.OwnerID == subjectID {
		return true
	}

	if action != domain.ActionView {
		return false
	}

	if capsule.Status == domain.StatusPublished {
		return true
	}

	for _, g := range grants {
		if g.UserID == subjectID && g.Role == domain.RoleEditor {
			return true
		}
	}
	return false
}
