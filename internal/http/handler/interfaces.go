package handler

import (
	"admin-service/internal/audit"
	"admin-service/internal/domain/accesstoken"
	"admin-service/internal/domain/principal"
	"context"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Consumer-side interfaces defined by handlers
// Each interface contains only the methods needed by the specific handler

// AuthHandler interfaces
type PrincipalStore interface {
	GetByUsername(ctx context.Context, username string) (*principal.Principal, error)
	RecordLogin(ctx context.Context, id uuid.UUID, login principal.Login) error
}

type SessionIssuer interface {
	IssueSession(ctx context.Context, p *principal.Principal) (string, error)
	IssueRefresh(p *principal.Principal) (string, error)
}

// AccessTokenHandler interfaces
type AccessTokenStore interface {
	Create(ctx context.Context, input accesstoken.CreateAccessTokenInput) (*accesstoken.AccessToken, error)
	GetByID(ctx context.Context, id uuid.UUID) (*accesstoken.AccessToken, error)
	SetValidity(ctx context.Context, id uuid.UUID, valid bool) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type AccessKeyIssuer interface {
	IssueAccessKey(record *accesstoken.AccessToken, expire bool) (string, error)
}

// Shared
type AuditLogger interface {
	LogFromContext(c echo.Context, eventType audit.EventType, outcome audit.Outcome, principalID *uuid.UUID, reason string)
}
