package auth

import (
	"admin-service/internal/domain/accesstoken"
	"admin-service/internal/domain/membership"
	"admin-service/internal/domain/principal"
	"admin-service/internal/permission"
	"admin-service/internal/repository"
	apperrors "admin-service/pkg/errors"
	"admin-service/pkg/logger"
	"context"
	"errors"

	"github.com/google/uuid"
)

// Subject is what a verified request carries downstream.
type Subject struct {
	Principal   *principal.Principal
	Permissions permission.Set
	Kind        Kind
	// AccessTokenID is set for access credentials only.
	AccessTokenID uuid.UUID
}

// IsAccessKey reports whether the caller authenticated with an access credential.
func (s *Subject) IsAccessKey() bool {
	return s.Kind.IsAccessCredential()
}

type ResolverConfig struct {
	Aggregation        permission.Aggregation
	AllowManagerDelete bool
	// HonorValidity rejects access credentials whose record is flagged invalid.
	HonorValidity bool
}

// Resolver computes a caller's effective permissions from memberships or from
// an access token record. Nothing is cached; every call reads storage.
type Resolver struct {
	principals   repository.PrincipalFinder
	memberships  repository.MembershipFinder
	accessTokens repository.AccessTokenFinder
	cfg          ResolverConfig
	log          logger.Logger
}

func NewResolver(
	principals repository.PrincipalFinder,
	memberships repository.MembershipFinder,
	accessTokens repository.AccessTokenFinder,
	cfg ResolverConfig,
	log logger.Logger,
) *Resolver {
	if cfg.Aggregation == "" {
		cfg.Aggregation = permission.AggregateOr
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Resolver{
		principals:   principals,
		memberships:  memberships,
		accessTokens: accessTokens,
		cfg:          cfg,
		log:          log,
	}
}

// MembershipPermissions folds every membership of p into one set, starting
// from no access.
func (r *Resolver) MembershipPermissions(ctx context.Context, p *principal.Principal) (permission.Set, error) {
	ms, err := r.memberships.ListByPrincipal(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	grants := make([]permission.Set, 0, len(ms))
	for _, m := range ms {
		if g := r.grant(m); g != nil {
			grants = append(grants, g)
		}
	}
	return permission.Aggregate(r.cfg.Aggregation, grants...), nil
}

// grant is the set one membership contributes. Memberships without stored
// permissions fall back to their predefined role; only that fallback is
// subject to the manager delete toggle.
func (r *Resolver) grant(m *membership.Membership) permission.Set {
	if m == nil {
		return nil
	}
	if len(m.Permissions) == 0 {
		set, _ := permission.Predefined(m.Role, r.cfg.AllowManagerDelete)
		return set
	}
	return m.Permissions.Clone()
}

// Resolve maps a verified bearer token onto its subject. Refresh tokens are
// never valid bearers.
func (r *Resolver) Resolve(ctx context.Context, tok *Token) (*Subject, error) {
	if tok.Claims.AID == "" {
		return nil, apperrors.InvalidCredentials(msgInvalidToken)
	}
	aid, err := uuid.Parse(tok.Claims.AID)
	if err != nil {
		return nil, apperrors.InvalidCredentials(msgInvalidToken)
	}

	switch tok.Kind {
	case KindSession:
		return r.resolveSession(ctx, tok, aid)
	case KindAccessKey, KindLegacyAccessToken:
		return r.resolveAccessCredential(ctx, tok, aid)
	case KindRefresh, KindUnknown:
		return nil, apperrors.InvalidCredentials(msgInvalidToken)
	}
	return nil, apperrors.InvalidCredentials(msgInvalidToken)
}

func (r *Resolver) resolveSession(ctx context.Context, tok *Token, aid uuid.UUID) (*Subject, error) {
	p, err := r.principal(ctx, aid)
	if err != nil {
		return nil, err
	}
	// sessions may only speak for the principal they were issued to
	if p.ID != aid {
		return nil, apperrors.InvalidCredentials(msgInvalidToken)
	}

	return &Subject{
		Principal:   p,
		Permissions: snapshot(tok.Claims.Perms),
		Kind:        tok.Kind,
	}, nil
}

func (r *Resolver) resolveAccessCredential(ctx context.Context, tok *Token, aid uuid.UUID) (*Subject, error) {
	record, err := r.accessTokens.GetByID(ctx, aid)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.InvalidCredentials(msgInvalidTokenUsed)
		}
		r.log.Error(ctx, msgLogAccessTokenLookupFailed, "access_token_id", aid.String(), "error", err)
		return nil, faultOf(err)
	}
	if r.cfg.HonorValidity && !record.IsValid {
		return nil, apperrors.Revoked(msgAccessTokenRevoked)
	}

	// the owner is read again on every call so a deleted owner disables its keys
	p, err := r.principal(ctx, record.PrincipalID)
	if err != nil {
		if errors.Is(err, apperrors.ErrPrincipalNotFound) {
			r.log.Warn(ctx, msgLogAccessTokenOwnerMissing, "access_token_id", aid.String())
		}
		return nil, err
	}

	return &Subject{
		Principal:     p,
		Permissions:   accessCredentialPermissions(tok, record),
		Kind:          tok.Kind,
		AccessTokenID: record.ID,
	}, nil
}

func accessCredentialPermissions(tok *Token, record *accesstoken.AccessToken) permission.Set {
	if tok.Kind.LivePermissions() {
		return snapshot(record.Permissions)
	}
	return snapshot(tok.Claims.Perms)
}

func (r *Resolver) principal(ctx context.Context, id uuid.UUID) (*principal.Principal, error) {
	p, err := r.principals.GetByID(ctx, id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.PrincipalNotFound(msgPrincipalNotFound)
		}
		r.log.Error(ctx, msgLogPrincipalLookupFailed, "principal_id", id.String(), "error", err)
		return nil, faultOf(err)
	}
	return p, nil
}

// snapshot copies s so later edits to the source never leak into a request.
// A missing set becomes the empty set, which denies everything.
func snapshot(s permission.Set) permission.Set {
	if s == nil {
		return permission.Set{}
	}
	return s.Clone()
}

// faultOf keeps persistence faults recognisable and turns anything unexpected
// into one, so a failed lookup never reads as a bad credential.
func faultOf(err error) error {
	if errors.Is(err, apperrors.ErrPersistenceFault) {
		return err
	}
	return apperrors.PersistenceFault(msgLookupFailed, err)
}
