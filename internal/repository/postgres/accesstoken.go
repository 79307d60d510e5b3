package postgres

import (
	"admin-service/internal/domain/accesstoken"
	apperrors "admin-service/pkg/errors"
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const accessTokenColumns = `id, administrator, name, token, permissions, is_valid, created_at, updated_at`

type AccessTokenRepository struct {
	db *DB
}

func NewAccessTokenRepository(db *DB) *AccessTokenRepository {
	return &AccessTokenRepository{db: db}
}

func (r *AccessTokenRepository) Create(ctx context.Context, input accesstoken.CreateAccessTokenInput) (*accesstoken.AccessToken, error) {
	if err := input.Permissions.Validate(); err != nil {
		return nil, apperrors.BadRequest(errInvalidPermissions)
	}

	id := input.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	query := `
		INSERT INTO access_tokens (id, administrator, name, token, permissions)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + accessTokenColumns

	t, err := scanAccessToken(r.db.Pool.QueryRow(ctx, query,
		id,
		input.PrincipalID,
		input.Name,
		input.Token,
		permissionsOrEmpty(input.Permissions),
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.BadRequest(errTokenNameTaken)
		}
		return nil, apperrors.PersistenceFault(errFailedCreateAccessToken, err)
	}

	return t, nil
}

func (r *AccessTokenRepository) GetByID(ctx context.Context, id uuid.UUID) (*accesstoken.AccessToken, error) {
	query := `SELECT ` + accessTokenColumns + ` FROM access_tokens WHERE id = $1`

	t, err := scanAccessToken(r.db.Pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, classify(err, errAccessTokenNotFound, errFailedGetAccessToken)
	}

	return t, nil
}

func (r *AccessTokenRepository) SetValidity(ctx context.Context, id uuid.UUID, valid bool) error {
	tag, err := r.db.Pool.Exec(ctx, `UPDATE access_tokens SET is_valid = $2, updated_at = now() WHERE id = $1`, id, valid)
	if err != nil {
		return apperrors.PersistenceFault(errFailedUpdateAccessToken, err)
	}

	return requireAffected(tag, errAccessTokenNotFound)
}

func (r *AccessTokenRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM access_tokens WHERE id = $1`, id)
	if err != nil {
		return apperrors.PersistenceFault(errFailedDeleteAccessToken, err)
	}

	return requireAffected(tag, errAccessTokenNotFound)
}

func scanAccessToken(row pgx.Row) (*accesstoken.AccessToken, error) {
	t := &accesstoken.AccessToken{}
	err := row.Scan(
		&t.ID,
		&t.PrincipalID,
		&t.Name,
		&t.Token,
		&t.Permissions,
		&t.IsValid,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}
