package http

import (
	"errors"
	"fmt"
	"net/http"

	apperrors "admin-service/pkg/errors"
	"admin-service/pkg/logger"

	"github.com/labstack/echo/v4"
)

const msgInternalServerError = "Internal server error"

// NewHTTPErrorHandler handles all errors returned by handlers and middleware.
// It maps sentinel errors to HTTP status codes, hides internal errors and
// logs every failure with its request id.
func NewHTTPErrorHandler(log logger.Logger) echo.HTTPErrorHandler {
	if log == nil {
		log = logger.Nop()
	}

	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, message := statusOf(err)

		requestID := c.Response().Header().Get(echo.HeaderXRequestID)
		if requestID == "" {
			requestID = "unknown"
		}

		ctx := c.Request().Context()
		if code >= http.StatusInternalServerError {
			log.Error(ctx, "internal_server_error",
				"request_id", requestID,
				"status", code,
				"error", err.Error())
			message = msgInternalServerError
		} else {
			log.Warn(ctx, "client_error",
				"request_id", requestID,
				"status", code,
				"error", err.Error())
		}

		if err := c.JSON(code, map[string]any{
			"error":      message,
			"request_id": requestID,
		}); err != nil {
			log.Error(ctx, "failed to write error response", "error", err)
		}
	}
}

func statusOf(err error) (int, string) {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Code, fmt.Sprintf("%v", httpErr.Message)
	}

	code := http.StatusInternalServerError
	message := msgInternalServerError

	switch {
	case errors.Is(err, apperrors.ErrPersistenceFault):
		return http.StatusInternalServerError, msgInternalServerError
	case errors.Is(err, apperrors.ErrInvalidCredential),
		errors.Is(err, apperrors.ErrExpiredSession),
		errors.Is(err, apperrors.ErrExpiredRefresh),
		errors.Is(err, apperrors.ErrPrincipalNotFound),
		errors.Is(err, apperrors.ErrUnauthorized),
		errors.Is(err, apperrors.ErrRevoked),
		errors.Is(err, apperrors.ErrExpired):
		code = http.StatusUnauthorized
		message = "Unauthorized"
	case errors.Is(err, apperrors.ErrPermissionDenied), errors.Is(err, apperrors.ErrForbidden):
		code = http.StatusForbidden
		message = "Forbidden"
	case errors.Is(err, apperrors.ErrRateLimitExceeded):
		code = http.StatusTooManyRequests
		message = "Request rate limit exceeded"
	case errors.Is(err, apperrors.ErrNotVerified),
		errors.Is(err, apperrors.ErrBadRequest),
		errors.Is(err, apperrors.ErrValidation):
		code = http.StatusBadRequest
		message = "Bad request"
	case errors.Is(err, apperrors.ErrNotFound):
		code = http.StatusNotFound
		message = "Resource not found"
	}

	// Client errors carry the AppError message.
	var appErr *apperrors.AppError
	if code < http.StatusInternalServerError && errors.As(err, &appErr) && appErr.Message != "" {
		message = appErr.Message
	}
	return code, message
}
