package services

import (
	"github.com/medconnect/clinic-backend/internal/domain/entities"
	apperrors "github.com/medconnect/clinic-backend/pkg/errors"
)

// Actor is the authenticated caller of a service operation
type Actor struct {
	UserID string
	Role   entities.Role
}

// IsAdmin reports whether the actor holds the admin role
func (a Actor) IsAdmin() bool {
	return a.Role == entities.RoleAdmin
}

func requireRole(actor Actor, roles ...entities.Role) error {
	for _, r := range roles {
		if actor.Role == r {
			return nil
		}
	}
	return apperrors.NewForbiddenError("this action is not allowed for role " + string(actor.Role))
}
