package postgres

import (
	apperrors "admin-service/pkg/errors"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// classify turns a driver error into the repository error contract.
func classify(err error, notFoundMsg, faultMsg string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NotFound(notFoundMsg)
	}
	return apperrors.PersistenceFault(faultMsg, err)
}

// requireAffected reports a miss when a write touched no rows.
func requireAffected(tag pgconn.CommandTag, notFoundMsg string) error {
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound(notFoundMsg)
	}
	return nil
}
