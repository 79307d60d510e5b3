package accesstoken

import (
	"admin-service/internal/permission"
	"time"

	"github.com/google/uuid"
)

// AccessToken is a persisted long-lived credential bound to one principal.
// Its permission set is independent of the principal's memberships and is
// read at every verification, so editing the record changes effective access
// without reissuing the key.
type AccessToken struct {
	ID          uuid.UUID
	PrincipalID uuid.UUID
	Name        string
	Token       string
	Permissions permission.Set
	IsValid     bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type CreateAccessTokenInput struct {
	ID          uuid.UUID
	PrincipalID uuid.UUID
	Name        string
	Token       string
	Permissions permission.Set
}
