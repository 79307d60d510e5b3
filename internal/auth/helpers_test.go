package auth

import (
	"admin-service/internal/domain/accesstoken"
	"admin-service/internal/domain/membership"
	"admin-service/internal/domain/principal"
	"admin-service/internal/permission"
	"admin-service/internal/repository"
	"admin-service/internal/repository/memory"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const testSecret = "k3J9xQ2mV7pL0sR8tY4wZ1aB6cD5eF3gH"

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	clock        *testClock
	principals   *memory.PrincipalRepository
	memberships  *memory.MembershipRepository
	accessTokens *memory.AccessTokenRepository
	resolver     *Resolver
	issuer       *Issuer
	verifier     *Verifier
}

type fixtureOptions struct {
	accessTTL    time.Duration
	refreshTTL   time.Duration
	cfg          ResolverConfig
	principals   repository.PrincipalFinder
	memberships  repository.MembershipFinder
	accessTokens repository.AccessTokenFinder
}

func newFixture(t *testing.T, opts fixtureOptions) *fixture {
	t.Helper()

	if opts.accessTTL == 0 {
		opts.accessTTL = 1800 * time.Second
	}
	if opts.refreshTTL == 0 {
		opts.refreshTTL = 86400 * time.Second
	}

	db := memory.New()
	f := &fixture{
		clock:        newTestClock(),
		principals:   memory.NewPrincipalRepository(db),
		memberships:  memory.NewMembershipRepository(db),
		accessTokens: memory.NewAccessTokenRepository(db),
	}

	var principals repository.PrincipalFinder = f.principals
	if opts.principals != nil {
		principals = opts.principals
	}
	var memberships repository.MembershipFinder = f.memberships
	if opts.memberships != nil {
		memberships = opts.memberships
	}
	var accessTokens repository.AccessTokenFinder = f.accessTokens
	if opts.accessTokens != nil {
		accessTokens = opts.accessTokens
	}

	f.resolver = NewResolver(principals, memberships, accessTokens, opts.cfg, nil)
	f.issuer = NewIssuer(testSecret, opts.accessTTL, opts.refreshTTL, "1.0.0", f.resolver, WithIssuerClock(f.clock.Now))
	f.verifier = NewVerifier(f.issuer, f.resolver, nil, nil)
	return f
}

func (f *fixture) principal(t *testing.T, username string) *principal.Principal {
	t.Helper()

	p, err := f.principals.Create(context.Background(), principal.CreatePrincipalInput{
		Username:  username,
		Email:     username + "@example.com",
		FirstName: "Test",
		LastName:  "Admin",
		State:     principal.StateActive,
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) grant(t *testing.T, p *principal.Principal, role string, perms permission.Set) *membership.Membership {
	t.Helper()

	m, err := f.memberships.Create(context.Background(), membership.CreateMembershipInput{
		PrincipalID: p.ID,
		Role:        role,
		Permissions: perms,
	})
	require.NoError(t, err)
	return m
}

func (f *fixture) accessToken(t *testing.T, p *principal.Principal, name string, perms permission.Set) *accesstoken.AccessToken {
	t.Helper()

	rec, err := f.accessTokens.Create(context.Background(), accesstoken.CreateAccessTokenInput{
		PrincipalID: p.ID,
		Name:        name,
		Permissions: perms,
	})
	require.NoError(t, err)
	return rec
}

func bearer(token string) string {
	return "Bearer " + token
}

var errConnReset = errors.New("connection reset by peer")

// faultyPrincipals fails every lookup as a broken connection would.
type faultyPrincipals struct{}

func (faultyPrincipals) GetByID(context.Context, uuid.UUID) (*principal.Principal, error) {
	return nil, errConnReset
}

func (faultyPrincipals) GetByUsername(context.Context, string) (*principal.Principal, error) {
	return nil, errConnReset
}

type faultyMemberships struct{}

func (faultyMemberships) ListByPrincipal(context.Context, uuid.UUID) ([]*membership.Membership, error) {
	return nil, errConnReset
}

type faultyAccessTokens struct{}

func (faultyAccessTokens) GetByID(context.Context, uuid.UUID) (*accesstoken.AccessToken, error) {
	return nil, errConnReset
}
