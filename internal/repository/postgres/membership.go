package postgres

import (
	"admin-service/internal/domain/membership"
	"admin-service/internal/permission"
	apperrors "admin-service/pkg/errors"
	"context"

	"github.com/google/uuid"
)

type MembershipRepository struct {
	db *DB
}

func NewMembershipRepository(db *DB) *MembershipRepository {
	return &MembershipRepository{db: db}
}

func (r *MembershipRepository) Create(ctx context.Context, input membership.CreateMembershipInput) (*membership.Membership, error) {
	if err := input.Permissions.Validate(); err != nil {
		return nil, apperrors.BadRequest(errInvalidPermissions)
	}

	query := `
		INSERT INTO memberships (administrator, role, perms)
		VALUES ($1, $2, $3)
		RETURNING id, administrator, role, perms
	`

	m := &membership.Membership{}
	err := r.db.Pool.QueryRow(ctx, query, input.PrincipalID, input.Role, permissionsOrEmpty(input.Permissions)).Scan(
		&m.ID,
		&m.PrincipalID,
		&m.Role,
		&m.Permissions,
	)
	if err != nil {
		return nil, apperrors.PersistenceFault(errFailedCreateMembership, err)
	}

	return m, nil
}

func (r *MembershipRepository) ListByPrincipal(ctx context.Context, principalID uuid.UUID) ([]*membership.Membership, error) {
	query := `
		SELECT id, administrator, role, perms
		FROM memberships
		WHERE administrator = $1
		ORDER BY id
	`

	rows, err := r.db.Pool.Query(ctx, query, principalID)
	if err != nil {
		return nil, apperrors.PersistenceFault(errFailedListMemberships, err)
	}
	defer rows.Close()

	out := make([]*membership.Membership, 0)
	for rows.Next() {
		m := &membership.Membership{}
		if err := rows.Scan(&m.ID, &m.PrincipalID, &m.Role, &m.Permissions); err != nil {
			return nil, apperrors.PersistenceFault(errFailedScanMembership, err)
		}
		out = append(out, m)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.PersistenceFault(errFailedListMemberships, err)
	}

	return out, nil
}

func (r *MembershipRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM memberships WHERE id = $1`, id)
	if err != nil {
		return apperrors.PersistenceFault(errFailedDeleteMembership, err)
	}

	return requireAffected(tag, errMembershipNotFound)
}

func permissionsOrEmpty(s permission.Set) permission.Set {
	if s == nil {
		return permission.Set{}
	}
	return s
}
