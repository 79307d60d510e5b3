package handler

import (
	apperrors "admin-service/pkg/errors"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// MapToPublicError maps repository errors to a status and a message that is
// safe to show callers.
func MapToPublicError(err error) (int, string) {
	var appErr *apperrors.AppError
	switch {
	case errors.Is(err, apperrors.ErrPersistenceFault):
		return http.StatusInternalServerError, msgInternalServerError
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, "resource not found"
	case errors.Is(err, apperrors.ErrBadRequest), errors.Is(err, apperrors.ErrValidation):
		if errors.As(err, &appErr) && appErr.Message != "" {
			return http.StatusBadRequest, appErr.Message
		}
		return http.StatusBadRequest, "invalid input"
	case errors.Is(err, apperrors.ErrUnauthorized):
		return http.StatusUnauthorized, "authentication required"
	case errors.Is(err, apperrors.ErrPermissionDenied), errors.Is(err, apperrors.ErrForbidden):
		return http.StatusForbidden, "access denied"
	default:
		return http.StatusInternalServerError, msgInternalServerError
	}
}

// RespondWithMappedError responds with a mapped error, preventing information disclosure
func RespondWithMappedError(c echo.Context, err error) error {
	status, msg := MapToPublicError(err)
	return respondError(c, status, msg)
}
