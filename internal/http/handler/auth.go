package handler

import (
	"admin-service/internal/audit"
	"admin-service/internal/domain/principal"
	apperrors "admin-service/pkg/errors"
	"admin-service/pkg/logger"
	"admin-service/pkg/password"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

type AuthHandler struct {
	principals PrincipalStore
	issuer     SessionIssuer
	audit      AuditLogger
	log        logger.Logger
	now        func() time.Time
}

func NewAuthHandler(principals PrincipalStore, issuer SessionIssuer, auditLogger AuditLogger, log logger.Logger) *AuthHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &AuthHandler{
		principals: principals,
		issuer:     issuer,
		audit:      auditLogger,
		log:        log,
		now:        time.Now,
	}
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginData struct {
	Username     string `json:"username"`
	Email        string `json:"email"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := bindStrictJSON(c, &req); err != nil {
		return handleHTTPError(c, err)
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		password.Burn(req.Password)
		h.recordEvent(c, audit.EventLogin, audit.OutcomeFailure, nil, msgInvalidCredentials)
		return respondError(c, http.StatusUnauthorized, msgInvalidCredentials)
	}

	ctx := c.Request().Context()
	p, err := h.principals.GetByUsername(ctx, req.Username)
	if err != nil {
		// Unknown usernames still pay for a bcrypt comparison.
		password.Burn(req.Password)
		if !apperrors.IsNotFound(err) {
			h.log.Error(ctx, msgLogLoginLookupFailed, "error", err)
			return respondError(c, http.StatusInternalServerError, msgInternalServerError)
		}
		h.recordEvent(c, audit.EventLogin, audit.OutcomeFailure, nil, msgInvalidCredentials)
		return respondError(c, http.StatusUnauthorized, msgInvalidCredentials)
	}

	if !password.Verify(req.Password, p.PasswordHash) {
		h.recordEvent(c, audit.EventLogin, audit.OutcomeFailure, p, msgInvalidCredentials)
		return respondError(c, http.StatusUnauthorized, msgInvalidCredentials)
	}

	if !p.IsActive() {
		h.recordEvent(c, audit.EventLogin, audit.OutcomeDenied, p, msgNotVerified)
		return respondError(c, http.StatusBadRequest, msgNotVerified)
	}

	session, err := h.issuer.IssueSession(ctx, p)
	if err != nil {
		h.log.Error(ctx, msgLogTokenIssueFailed, "kind", "session", "error", err)
		return respondError(c, http.StatusInternalServerError, msgGenerateTokenFail)
	}
	refresh, err := h.issuer.IssueRefresh(p)
	if err != nil {
		h.log.Error(ctx, msgLogTokenIssueFailed, "kind", "refresh", "error", err)
		return respondError(c, http.StatusInternalServerError, msgGenerateTokenFail)
	}

	login := principal.Login{At: h.now().UTC(), IP: c.RealIP()}
	if err := h.principals.RecordLogin(ctx, p.ID, login); err != nil {
		h.log.Warn(ctx, msgLogLoginRecordFailed, "principal_id", p.ID, "error", err)
	}

	h.recordEvent(c, audit.EventLogin, audit.OutcomeSuccess, p, "")

	c.Response().Header().Set(HeaderRefreshJWT, session)
	c.Response().Header().Set(HeaderRefreshToken, refresh)

	return respondData(c, http.StatusOK, msgLoginSuccessful, LoginData{
		Username:     p.Username,
		Email:        p.Email,
		AccessToken:  session,
		RefreshToken: refresh,
	})
}

// Logout is stateless: issued tokens stay valid until they expire.
func (h *AuthHandler) Logout(c echo.Context) error {
	h.recordEvent(c, audit.EventLogout, audit.OutcomeSuccess, nil, "")
	return respondMessage(c, http.StatusOK, msgLogoutSuccessful)
}

func (h *AuthHandler) recordEvent(c echo.Context, eventType audit.EventType, outcome audit.Outcome, p *principal.Principal, reason string) {
	if h.audit == nil {
		return
	}
	if p == nil {
		h.audit.LogFromContext(c, eventType, outcome, nil, reason)
		return
	}
	id := p.ID
	h.audit.LogFromContext(c, eventType, outcome, &id, reason)
}
