package middleware

import (
	"github.com/futureguard/api/model"
)

// CanActOn implements the role hierarchy for user management: the
// superadmin can act on anyone below it, an admin only on mentors of its
// own institute, and a mentor on nobody. Self-management is handled by the
// profile routes, not here.
func CanActOn(actor, target *model.User) bool {
	if actor.ID == target.ID {
		return false
	}

	switch actor.Role {
	case model.RoleSuperAdmin:
		return target.Role != model.RoleSuperAdmin
	case model.RoleAdmin:
		if target.Role != model.RoleMentor {
			return false
		}
		return actor.InstituteID != nil && target.InstituteID != nil &&
			*actor.InstituteID == *target.InstituteID
	}
	return false
}
