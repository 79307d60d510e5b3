package repository

import (
	"admin-service/internal/domain/accesstoken"
	"admin-service/internal/domain/membership"
	"admin-service/internal/domain/principal"
	"context"

	"github.com/google/uuid"
)

// Lookup contracts used by the auth package. They are the read-only subset of
// the repositories above.

type PrincipalFinder interface {
	GetByID(ctx context.Context, id uuid.UUID) (*principal.Principal, error)
	GetByUsername(ctx context.Context, username string) (*principal.Principal, error)
}

type MembershipFinder interface {
	ListByPrincipal(ctx context.Context, principalID uuid.UUID) ([]*membership.Membership, error)
}

type AccessTokenFinder interface {
	GetByID(ctx context.Context, id uuid.UUID) (*accesstoken.AccessToken, error)
}
