package handler

import (
	"admin-service/internal/auth"
	"admin-service/internal/permission"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type AccountHandler struct{}

func NewAccountHandler() *AccountHandler {
	return &AccountHandler{}
}

type AccountResponse struct {
	ID            string         `json:"id"`
	Username      string         `json:"username"`
	Email         string         `json:"email"`
	Name          string         `json:"name"`
	State         int            `json:"state"`
	LastLogin     *time.Time     `json:"last_login,omitempty"`
	Permissions   permission.Set `json:"permissions"`
	AccessKey     bool           `json:"access_key"`
	AccessTokenID string         `json:"access_token_id,omitempty"`
}

// Me describes the verified caller and the permissions attached to this request.
func (h *AccountHandler) Me(c echo.Context) error {
	s, err := auth.GetSubject(c)
	if err != nil {
		return respondError(c, http.StatusUnauthorized, msgNotAuthorized)
	}

	p := s.Principal
	resp := AccountResponse{
		ID:          p.ID.String(),
		Username:    p.Username,
		Email:       p.Email,
		Name:        p.Name(),
		State:       int(p.State),
		Permissions: s.Permissions,
		AccessKey:   s.IsAccessKey(),
	}
	if p.LastLogin != nil {
		at := p.LastLogin.At
		resp.LastLogin = &at
	}
	if s.Kind.IsAccessCredential() {
		resp.AccessTokenID = s.AccessTokenID.String()
	}

	return respondData(c, http.StatusOK, "", resp)
}
