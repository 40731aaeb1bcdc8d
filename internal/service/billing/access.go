package billing

import (
	"fmt"

	"github.com/mamadbah2/farmbilling/internal/domain/models"
)

// EffectiveOwnerFilter decides whose invoices the actor may touch.
//
// Administrators get back the requested owner id unchanged; an empty result
// means "all owners". Owners always get their own id. They are refused when
// they name somebody else or when their session carries no owner binding;
// another owner's id is rejected, never rewritten to the caller's own.
func EffectiveOwnerFilter(actor models.Actor, requestedOwnerID string) (string, error) {
	switch actor.Role {
	case models.RoleAdmin:
		return requestedOwnerID, nil
	case models.RoleOwner:
		if actor.OwnerID == "" {
			return "", fmt.Errorf("%w: session is not linked to an owner", ErrForbidden)
		}
		if requestedOwnerID != "" && requestedOwnerID != actor.OwnerID {
			return "", fmt.Errorf("%w: owners may only access their own invoices", ErrForbidden)
		}
		return actor.OwnerID, nil
	default:
		return "", fmt.Errorf("%w: unknown role %q", ErrForbidden, actor.Role)
	}
}

func requireAdmin(actor models.Actor) error {
	if !actor.IsAdmin() {
		return fmt.Errorf("%w: this action requires the ADMIN role", ErrForbidden)
	}
	return nil
}
