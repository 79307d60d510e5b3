package errors

import (
	"errors"
	"fmt"
)

// Domain errors - Sentinel errors for use with errors.Is()
var (
	ErrNotFound           = errors.New("resource not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrBadRequest         = errors.New("bad request")
	ErrInternalServer     = errors.New("internal server error")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrExpired            = errors.New("resource expired")
	ErrRevoked            = errors.New("resource revoked")
	ErrValidation         = errors.New("validation error")

	// Authentication and admission taxonomy
	ErrExpiredSession    = errors.New("session expired")
	ErrExpiredRefresh    = errors.New("refresh token expired")
	ErrPrincipalNotFound = errors.New("principal not found")
	ErrPersistenceFault  = errors.New("persistence fault")
	ErrRateLimitExceeded = errors.New("request rate limit exceeded")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrNotVerified       = errors.New("principal not verified")
)

// ErrInvalidCredential covers bad username/password pairs and malformed or
// unverifiable bearer tokens.
var ErrInvalidCredential = ErrInvalidCredentials

// Custom error type with context
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Constructors
func NotFound(msg string) *AppError {
	return &AppError{Code: "NOT_FOUND", Message: msg, Err: ErrNotFound}
}

func Unauthorized(msg string) *AppError {
	return &AppError{Code: "UNAUTHORIZED", Message: msg, Err: ErrUnauthorized}
}

func Forbidden(msg string) *AppError {
	return &AppError{Code: "FORBIDDEN", Message: msg, Err: ErrForbidden}
}

func BadRequest(msg string) *AppError {
	return &AppError{Code: "BAD_REQUEST", Message: msg, Err: ErrBadRequest}
}

func InternalServer(msg string, err error) *AppError {
	return &AppError{Code: "INTERNAL_SERVER_ERROR", Message: msg, Err: err}
}

func InvalidCredentials(msg string) *AppError {
	return &AppError{Code: "INVALID_CREDENTIALS", Message: msg, Err: ErrInvalidCredentials}
}

func Expired(msg string) *AppError {
	return &AppError{Code: "EXPIRED", Message: msg, Err: ErrExpired}
}

func Revoked(msg string) *AppError {
	return &AppError{Code: "REVOKED", Message: msg, Err: ErrRevoked}
}

func ExpiredSession(msg string) *AppError {
	return &AppError{Code: "SESSION_EXPIRED", Message: msg, Err: ErrExpiredSession}
}

func ExpiredRefresh(msg string) *AppError {
	return &AppError{Code: "REFRESH_EXPIRED", Message: msg, Err: ErrExpiredRefresh}
}

func PrincipalNotFound(msg string) *AppError {
	return &AppError{Code: "PRINCIPAL_NOT_FOUND", Message: msg, Err: ErrPrincipalNotFound}
}

// PersistenceFault wraps a storage failure. Both the sentinel and the driver
// error stay reachable through errors.Is / errors.As.
func PersistenceFault(msg string, err error) *AppError {
	return &AppError{Code: "PERSISTENCE_FAULT", Message: msg, Err: fmt.Errorf("%w: %w", ErrPersistenceFault, err)}
}

func RateLimitExceeded(msg string) *AppError {
	return &AppError{Code: "RATE_LIMIT_EXCEEDED", Message: msg, Err: ErrRateLimitExceeded}
}

func PermissionDenied(msg string) *AppError {
	return &AppError{Code: "PERMISSION_DENIED", Message: msg, Err: ErrPermissionDenied}
}

func NotVerified(msg string) *AppError {
	return &AppError{Code: "NOT_VERIFIED", Message: msg, Err: ErrNotVerified}
}

// IsNotFound reports whether err is a lookup miss rather than a fault.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
