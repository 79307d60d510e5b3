package postgres

import (
	"admin-service/internal/domain/principal"
	apperrors "admin-service/pkg/errors"
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const principalColumns = `id, username, email, first_name, last_name, phone, password_hash, state,
		last_login_at, last_login_ip, created_at, updated_at`

type PrincipalRepository struct {
	db *DB
}

func NewPrincipalRepository(db *DB) *PrincipalRepository {
	return &PrincipalRepository{db: db}
}

func (r *PrincipalRepository) Create(ctx context.Context, input principal.CreatePrincipalInput) (*principal.Principal, error) {
	query := `
		INSERT INTO administrators (username, email, first_name, last_name, phone, password_hash, state)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + principalColumns

	p, err := scanPrincipal(r.db.Pool.QueryRow(ctx, query,
		input.Username,
		input.Email,
		input.FirstName,
		input.LastName,
		input.Phone,
		input.PasswordHash,
		int(input.State),
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.BadRequest(errUsernameTaken)
		}
		return nil, apperrors.PersistenceFault(errFailedCreatePrincipal, err)
	}

	return p, nil
}

func (r *PrincipalRepository) GetByID(ctx context.Context, id uuid.UUID) (*principal.Principal, error) {
	query := `SELECT ` + principalColumns + ` FROM administrators WHERE id = $1`

	p, err := scanPrincipal(r.db.Pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, classify(err, errPrincipalNotFound, errFailedGetPrincipal)
	}

	return p, nil
}

func (r *PrincipalRepository) GetByUsername(ctx context.Context, username string) (*principal.Principal, error) {
	query := `SELECT ` + principalColumns + ` FROM administrators WHERE username = $1`

	p, err := scanPrincipal(r.db.Pool.QueryRow(ctx, query, username))
	if err != nil {
		return nil, classify(err, errPrincipalNotFound, errFailedGetPrincipal)
	}

	return p, nil
}

func (r *PrincipalRepository) RecordLogin(ctx context.Context, id uuid.UUID, login principal.Login) error {
	query := `
		UPDATE administrators
		SET last_login_at = $2, last_login_ip = $3, updated_at = now()
		WHERE id = $1
	`

	tag, err := r.db.Pool.Exec(ctx, query, id, login.At, login.IP)
	if err != nil {
		return apperrors.PersistenceFault(errFailedRecordLogin, err)
	}

	return requireAffected(tag, errPrincipalNotFound)
}

func (r *PrincipalRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM administrators WHERE id = $1`, id)
	if err != nil {
		return apperrors.PersistenceFault(errFailedDeletePrincipal, err)
	}

	return requireAffected(tag, errPrincipalNotFound)
}

func scanPrincipal(row pgx.Row) (*principal.Principal, error) {
	var (
		p           principal.Principal
		state       int16
		lastLoginAt *time.Time
		lastLoginIP *string
	)

	err := row.Scan(
		&p.ID,
		&p.Username,
		&p.Email,
		&p.FirstName,
		&p.LastName,
		&p.Phone,
		&p.PasswordHash,
		&state,
		&lastLoginAt,
		&lastLoginIP,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.State = principal.State(state)
	if lastLoginAt != nil {
		p.LastLogin = &principal.Login{At: *lastLoginAt}
		if lastLoginIP != nil {
			p.LastLogin.IP = *lastLoginIP
		}
	}

	return &p, nil
}
