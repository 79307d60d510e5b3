package repository

import (
	"admin-service/internal/domain/accesstoken"
	"admin-service/internal/domain/membership"
	"admin-service/internal/domain/principal"
	"context"

	"github.com/google/uuid"
)

// Every implementation reports a missing record with an error matching
// pkg/errors.ErrNotFound and any driver failure with one matching
// pkg/errors.ErrPersistenceFault, so callers can tell the two apart.

// PrincipalRepository defines administrator data access operations
type PrincipalRepository interface {
	Create(ctx context.Context, input principal.CreatePrincipalInput) (*principal.Principal, error)
	GetByID(ctx context.Context, id uuid.UUID) (*principal.Principal, error)
	GetByUsername(ctx context.Context, username string) (*principal.Principal, error)
	RecordLogin(ctx context.Context, id uuid.UUID, login principal.Login) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// MembershipRepository defines role grant data access operations
type MembershipRepository interface {
	Create(ctx context.Context, input membership.CreateMembershipInput) (*membership.Membership, error)
	ListByPrincipal(ctx context.Context, principalID uuid.UUID) ([]*membership.Membership, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// AccessTokenRepository defines access token record data access operations
type AccessTokenRepository interface {
	Create(ctx context.Context, input accesstoken.CreateAccessTokenInput) (*accesstoken.AccessToken, error)
	GetByID(ctx context.Context, id uuid.UUID) (*accesstoken.AccessToken, error)
	SetValidity(ctx context.Context, id uuid.UUID, valid bool) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Store bundles the repositories of one backend.
type Store struct {
	Principals   PrincipalRepository
	Memberships  MembershipRepository
	AccessTokens AccessTokenRepository
	Close        func(ctx context.Context) error
}
