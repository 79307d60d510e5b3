// Package memory keeps principals, memberships and access token records in
// process memory. It backs tests and STORE_DRIVER=memory local runs.
package memory

import (
	"admin-service/internal/domain/accesstoken"
	"admin-service/internal/domain/membership"
	"admin-service/internal/domain/principal"
	"admin-service/internal/repository"
	apperrors "admin-service/pkg/errors"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	errPrincipalNotFound   = "principal not found"
	errMembershipNotFound  = "membership not found"
	errAccessTokenNotFound = "access token not found"
	errUsernameTaken       = "username already exists"
	errTokenNameTaken      = "access token name already exists for principal"
)

// DB is the shared backing state of the three repositories.
type DB struct {
	mu           sync.RWMutex
	principals   map[uuid.UUID]principal.Principal
	memberships  map[uuid.UUID]membership.Membership
	accessTokens map[uuid.UUID]accesstoken.AccessToken
	now          func() time.Time
}

func New() *DB {
	return &DB{
		principals:   make(map[uuid.UUID]principal.Principal),
		memberships:  make(map[uuid.UUID]membership.Membership),
		accessTokens: make(map[uuid.UUID]accesstoken.AccessToken),
		now:          time.Now,
	}
}

// NewStore returns a repository.Store over a fresh DB.
func NewStore() repository.Store {
	db := New()
	return repository.Store{
		Principals:   NewPrincipalRepository(db),
		Memberships:  NewMembershipRepository(db),
		AccessTokens: NewAccessTokenRepository(db),
		Close:        func(context.Context) error { return nil },
	}
}

type PrincipalRepository struct {
	db *DB
}

func NewPrincipalRepository(db *DB) *PrincipalRepository {
	return &PrincipalRepository{db: db}
}

func (r *PrincipalRepository) Create(_ context.Context, input principal.CreatePrincipalInput) (*principal.Principal, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, p := range r.db.principals {
		if p.Username == input.Username {
			return nil, apperrors.BadRequest(errUsernameTaken)
		}
	}

	now := r.db.now().UTC()
	p := principal.Principal{
		ID:           uuid.New(),
		Username:     input.Username,
		Email:        input.Email,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Phone:        input.Phone,
		PasswordHash: input.PasswordHash,
		State:        input.State,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.db.principals[p.ID] = p

	return &p, nil
}

func (r *PrincipalRepository) GetByID(_ context.Context, id uuid.UUID) (*principal.Principal, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	p, ok := r.db.principals[id]
	if !ok {
		return nil, apperrors.NotFound(errPrincipalNotFound)
	}
	return &p, nil
}

func (r *PrincipalRepository) GetByUsername(_ context.Context, username string) (*principal.Principal, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, p := range r.db.principals {
		if p.Username == username {
			return &p, nil
		}
	}
	return nil, apperrors.NotFound(errPrincipalNotFound)
}

func (r *PrincipalRepository) RecordLogin(_ context.Context, id uuid.UUID, login principal.Login) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	p, ok := r.db.principals[id]
	if !ok {
		return apperrors.NotFound(errPrincipalNotFound)
	}
	p.LastLogin = &login
	p.UpdatedAt = r.db.now().UTC()
	r.db.principals[id] = p
	return nil
}

// Delete removes the principal together with its memberships. Access token
// records are left in place; verification rejects them once the owner is gone.
func (r *PrincipalRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.principals[id]; !ok {
		return apperrors.NotFound(errPrincipalNotFound)
	}
	delete(r.db.principals, id)
	for mid, m := range r.db.memberships {
		if m.PrincipalID == id {
			delete(r.db.memberships, mid)
		}
	}
	return nil
}

type MembershipRepository struct {
	db *DB
}

func NewMembershipRepository(db *DB) *MembershipRepository {
	return &MembershipRepository{db: db}
}

func (r *MembershipRepository) Create(_ context.Context, input membership.CreateMembershipInput) (*membership.Membership, error) {
	if err := input.Permissions.Validate(); err != nil {
		return nil, apperrors.BadRequest(err.Error())
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	m := membership.Membership{
		ID:          uuid.New(),
		PrincipalID: input.PrincipalID,
		Role:        input.Role,
		Permissions: input.Permissions.Clone(),
	}
	r.db.memberships[m.ID] = m

	return &m, nil
}

func (r *MembershipRepository) ListByPrincipal(_ context.Context, principalID uuid.UUID) ([]*membership.Membership, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]*membership.Membership, 0)
	for _, m := range r.db.memberships {
		if m.PrincipalID != principalID {
			continue
		}
		m := m
		m.Permissions = m.Permissions.Clone()
		out = append(out, &m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })

	return out, nil
}

func (r *MembershipRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.memberships[id]; !ok {
		return apperrors.NotFound(errMembershipNotFound)
	}
	delete(r.db.memberships, id)
	return nil
}

type AccessTokenRepository struct {
	db *DB
}

func NewAccessTokenRepository(db *DB) *AccessTokenRepository {
	return &AccessTokenRepository{db: db}
}

func (r *AccessTokenRepository) Create(_ context.Context, input accesstoken.CreateAccessTokenInput) (*accesstoken.AccessToken, error) {
	if err := input.Permissions.Validate(); err != nil {
		return nil, apperrors.BadRequest(err.Error())
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, t := range r.db.accessTokens {
		if t.PrincipalID == input.PrincipalID && t.Name == input.Name {
			return nil, apperrors.BadRequest(errTokenNameTaken)
		}
	}

	id := input.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	now := r.db.now().UTC()
	t := accesstoken.AccessToken{
		ID:          id,
		PrincipalID: input.PrincipalID,
		Name:        input.Name,
		Token:       input.Token,
		Permissions: input.Permissions.Clone(),
		IsValid:     true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	r.db.accessTokens[t.ID] = t

	return &t, nil
}

func (r *AccessTokenRepository) GetByID(_ context.Context, id uuid.UUID) (*accesstoken.AccessToken, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	t, ok := r.db.accessTokens[id]
	if !ok {
		return nil, apperrors.NotFound(errAccessTokenNotFound)
	}
	t.Permissions = t.Permissions.Clone()
	return &t, nil
}

func (r *AccessTokenRepository) SetValidity(_ context.Context, id uuid.UUID, valid bool) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	t, ok := r.db.accessTokens[id]
	if !ok {
		return apperrors.NotFound(errAccessTokenNotFound)
	}
	t.IsValid = valid
	t.UpdatedAt = r.db.now().UTC()
	r.db.accessTokens[id] = t
	return nil
}

func (r *AccessTokenRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.accessTokens[id]; !ok {
		return apperrors.NotFound(errAccessTokenNotFound)
	}
	delete(r.db.accessTokens, id)
	return nil
}
