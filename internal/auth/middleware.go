package auth

import (
	"admin-service/internal/audit"
	"admin-service/internal/permission"
	apperrors "admin-service/pkg/errors"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

type Middleware struct {
	verifier *Verifier
	audit    *audit.Logger
}

type MiddlewareOption func(*Middleware)

// WithAudit records every refresh attempt.
func WithAudit(a *audit.Logger) MiddlewareOption {
	return func(m *Middleware) {
		m.audit = a
	}
}

func NewMiddleware(verifier *Verifier, opts ...MiddlewareOption) *Middleware {
	m := &Middleware{verifier: verifier}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// VerifyAccount authenticates /api requests. Preflight and non-API requests
// pass through without a subject.
func (m *Middleware) VerifyAccount() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			d := m.verifier.Verify(req.Context(), Request{
				Method:        req.Method,
				Path:          req.URL.Path,
				Authorization: req.Header.Get(headerAuthorization),
				RefreshToken:  req.Header.Get(HeaderRefreshToken),
			})
			if d.RefreshAttempted {
				m.auditRefresh(c, d)
			}

			if d.Outcome != Accepted {
				if origin := req.Header.Get(echo.HeaderOrigin); origin != "" {
					c.Response().Header().Set(echo.HeaderAccessControlAllowOrigin, origin)
				}
				return respondError(c, StatusOf(d.Err), rejectionMessage(d.Err))
			}

			if d.Subject == nil {
				return next(c)
			}

			// always present so clients never read a stale value
			c.Response().Header().Set(HeaderRefreshJWT, d.NewToken)
			setSubject(c, d.Subject)

			return next(c)
		}
	}
}

func (m *Middleware) auditRefresh(c echo.Context, d Decision) {
	if d.Outcome == Accepted {
		id := d.Subject.Principal.ID
		m.audit.LogFromContext(c, audit.EventRefresh, audit.OutcomeSuccess, &id, "")
		return
	}
	m.audit.LogFromContext(c, audit.EventRefresh, audit.OutcomeDenied, nil, ReasonOf(d.Err))
}

// RequireAdmin rejects requests that carry no verified principal.
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, err := GetSubject(c); err != nil {
				return respondError(c, http.StatusForbidden, msgNotAuthorized)
			}
			return next(c)
		}
	}
}

// RequirePermission checks one command bit in category.
func RequirePermission(category permission.Category, cmd permission.Command) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !allowed(c, category, cmd) {
				return respondError(c, http.StatusForbidden, msgPermissionDenied)
			}
			return next(c)
		}
	}
}

// RequireMethodPermission derives the command from the HTTP method.
func RequireMethodPermission(category permission.Category) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cmd, ok := permission.CommandForMethod(c.Request().Method)
			if !ok || !allowed(c, category, cmd) {
				return respondError(c, http.StatusForbidden, msgPermissionDenied)
			}
			return next(c)
		}
	}
}

func allowed(c echo.Context, category permission.Category, cmd permission.Command) bool {
	s, err := GetSubject(c)
	if err != nil {
		return false
	}
	return s.Permissions.Allows(category, cmd)
}

func rejectionMessage(err error) string {
	if StatusOf(err) == http.StatusInternalServerError {
		return msgInternalServerError
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return msgUnauthorized
}

// respondError matches the body shape of the shared HTTP error handler.
func respondError(c echo.Context, status int, message string) error {
	requestID := c.Response().Header().Get(echo.HeaderXRequestID)
	if requestID == "" {
		requestID = unknownRequestID
	}
	return c.JSON(status, map[string]string{jsonKeyError: message, jsonKeyRequestID: requestID})
}

func setSubject(c echo.Context, s *Subject) {
	c.Set(ContextKeySubject, s)
	c.Set(ContextKeyPrincipal, s.Principal)
	c.Set(ContextKeyPermissions, s.Permissions)
	c.Set(ContextKeyAccessKey, s.IsAccessKey())
	c.Set(ContextKeyAccessTokenID, s.AccessTokenID)
}

func GetSubject(c echo.Context) (*Subject, error) {
	raw := c.Get(ContextKeySubject)
	if raw == nil {
		return nil, apperrors.Unauthorized(msgNotAuthorized)
	}

	s, ok := raw.(*Subject)
	if !ok || s == nil {
		return nil, apperrors.InternalServer(msgInvalidSubjectCtx, nil)
	}
	return s, nil
}

func GetPermissions(c echo.Context) permission.Set {
	s, err := GetSubject(c)
	if err != nil {
		return permission.Set{}
	}
	return s.Permissions
}
