package membership

import (
	"admin-service/internal/permission"

	"github.com/google/uuid"
)

// Membership grants a role and its permission set to one principal. A
// principal may hold several, for example one per organization.
type Membership struct {
	ID          uuid.UUID
	PrincipalID uuid.UUID
	Role        string
	Permissions permission.Set
}

type CreateMembershipInput struct {
	PrincipalID uuid.UUID
	Role        string
	Permissions permission.Set
}

// Grants returns the permission sets of ms in order.
func Grants(ms []*Membership) []permission.Set {
	out := make([]permission.Set, 0, len(ms))
	for _, m := range ms {
		if m == nil {
			continue
		}
		out = append(out, m.Permissions)
	}
	return out
}
