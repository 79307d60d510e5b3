package handler

import (
	"admin-service/internal/auth"
	"admin-service/internal/domain/accesstoken"
	"admin-service/internal/permission"
	"admin-service/pkg/logger"
	"admin-service/pkg/validator"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type AccessTokenHandler struct {
	tokens AccessTokenStore
	issuer AccessKeyIssuer
	log    logger.Logger
}

func NewAccessTokenHandler(tokens AccessTokenStore, issuer AccessKeyIssuer, log logger.Logger) *AccessTokenHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &AccessTokenHandler{
		tokens: tokens,
		issuer: issuer,
		log:    log,
	}
}

type CreateAccessTokenRequest struct {
	Name        string         `json:"name"`
	Permissions permission.Set `json:"permissions"`
	// Expires defaults to true. A non-expiring key carries no exp claim.
	Expires *bool `json:"expires,omitempty"`
}

type SetValidityRequest struct {
	IsValid *bool `json:"isValid"`
}

type AccessTokenResponse struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Permissions permission.Set `json:"permissions"`
	IsValid     bool           `json:"isValid"`
	CreatedAt   time.Time      `json:"created_at"`
}

type CreateAccessTokenResponse struct {
	AccessToken AccessTokenResponse `json:"access_token"`
	Token       string              `json:"token"`
}

func (h *AccessTokenHandler) Create(c echo.Context) error {
	s, err := auth.GetSubject(c)
	if err != nil {
		return respondError(c, http.StatusUnauthorized, msgNotAuthorized)
	}

	var req CreateAccessTokenRequest
	if err := bindStrictJSON(c, &req); err != nil {
		return handleHTTPError(c, err)
	}
	req.Name = strings.TrimSpace(req.Name)

	if err := validator.AccessTokenName(req.Name); err != nil {
		return respondError(c, http.StatusBadRequest, err.Error())
	}
	if len(req.Permissions) == 0 {
		return respondError(c, http.StatusBadRequest, msgPermissionsRequired)
	}
	for category := range req.Permissions {
		if !slices.Contains(permission.Categories, category) {
			return respondError(c, http.StatusBadRequest, fmt.Sprintf(msgUnknownCategoryFmt, category))
		}
	}
	if err := req.Permissions.Validate(); err != nil {
		return respondError(c, http.StatusBadRequest, err.Error())
	}
	if !withinGrant(req.Permissions, s.Permissions) {
		return respondError(c, http.StatusForbidden, msgPermissionEscalation)
	}

	expire := req.Expires == nil || *req.Expires
	id := uuid.New()
	key, err := h.issuer.IssueAccessKey(&accesstoken.AccessToken{
		ID:          id,
		PrincipalID: s.Principal.ID,
		Name:        req.Name,
		Permissions: req.Permissions,
	}, expire)
	if err != nil {
		h.log.Error(c.Request().Context(), msgLogTokenIssueFailed, "kind", "access_key", "error", err)
		return respondError(c, http.StatusInternalServerError, msgGenerateTokenFail)
	}

	record, err := h.tokens.Create(c.Request().Context(), accesstoken.CreateAccessTokenInput{
		ID:          id,
		PrincipalID: s.Principal.ID,
		Name:        req.Name,
		Token:       key,
		Permissions: req.Permissions,
	})
	if err != nil {
		return RespondWithMappedError(c, err)
	}

	return respondData(c, http.StatusCreated, msgAccessTokenCreated, CreateAccessTokenResponse{
		AccessToken: toAccessTokenResponse(record),
		Token:       key,
	})
}

func (h *AccessTokenHandler) Get(c echo.Context) error {
	record, ok, err := h.owned(c)
	if !ok {
		return err
	}
	return respondData(c, http.StatusOK, "", toAccessTokenResponse(record))
}

// SetValidity flips the isValid flag of a record the caller owns.
func (h *AccessTokenHandler) SetValidity(c echo.Context) error {
	record, ok, err := h.owned(c)
	if !ok {
		return err
	}

	var req SetValidityRequest
	if err := bindStrictJSON(c, &req); err != nil {
		return handleHTTPError(c, err)
	}
	if req.IsValid == nil {
		return respondError(c, http.StatusBadRequest, msgValidityRequired)
	}

	if err := h.tokens.SetValidity(c.Request().Context(), record.ID, *req.IsValid); err != nil {
		return RespondWithMappedError(c, err)
	}
	return respondMessage(c, http.StatusOK, msgAccessTokenUpdated)
}

func (h *AccessTokenHandler) Delete(c echo.Context) error {
	record, ok, err := h.owned(c)
	if !ok {
		return err
	}

	if err := h.tokens.Delete(c.Request().Context(), record.ID); err != nil {
		return RespondWithMappedError(c, err)
	}
	return respondMessage(c, http.StatusOK, msgAccessTokenDeleted)
}

// owned loads the record named by the id param. Records of other
// administrators are reported as missing. When ok is false the response has
// already been written.
func (h *AccessTokenHandler) owned(c echo.Context) (record *accesstoken.AccessToken, ok bool, err error) {
	s, err := auth.GetSubject(c)
	if err != nil {
		return nil, false, respondError(c, http.StatusUnauthorized, msgNotAuthorized)
	}

	id, err := uuid.Parse(c.Param(paramID))
	if err != nil {
		return nil, false, respondError(c, http.StatusBadRequest, msgInvalidAccessTokenID)
	}

	record, err = h.tokens.GetByID(c.Request().Context(), id)
	if err != nil {
		return nil, false, RespondWithMappedError(c, err)
	}
	if record.PrincipalID != s.Principal.ID {
		return nil, false, respondError(c, http.StatusNotFound, msgAccessTokenNotFound)
	}
	return record, true, nil
}

// withinGrant reports whether every bit of requested is also held by held.
func withinGrant(requested, held permission.Set) bool {
	for category, m := range requested {
		if m&^held[category] != 0 {
			return false
		}
	}
	return true
}

func toAccessTokenResponse(t *accesstoken.AccessToken) AccessTokenResponse {
	return AccessTokenResponse{
		ID:          t.ID.String(),
		Name:        t.Name,
		Permissions: t.Permissions,
		IsValid:     t.IsValid,
		CreatedAt:   t.CreatedAt,
	}
}
