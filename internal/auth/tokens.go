package auth

import (
	"admin-service/internal/domain/accesstoken"
	"admin-service/internal/domain/principal"
	"admin-service/internal/permission"
	apperrors "admin-service/pkg/errors"
	"admin-service/pkg/logger"
	"admin-service/pkg/metrics"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Kind tells the bearer token shapes apart. Each kind fixes where the
// caller's permissions come from.
type Kind int

const (
	KindUnknown Kind = iota
	// KindSession embeds a permission snapshot taken at issuance.
	KindSession
	// KindRefresh carries no permissions and is only accepted on the refresh header.
	KindRefresh
	// KindAccessKey reads permissions from its access token record on every request.
	KindAccessKey
	// KindLegacyAccessToken embeds its permissions like a session token.
	KindLegacyAccessToken
)

const (
	typeRefresh           = "refresh"
	typeAccessKey         = "app_access_key"
	typeLegacyAccessToken = "app_access_token"
)

func (k Kind) String() string {
	switch k {
	case KindSession:
		return "session"
	case KindRefresh:
		return "refresh"
	case KindAccessKey:
		return "access_key"
	case KindLegacyAccessToken:
		return "access_token"
	}
	return "unknown"
}

// IsAccessCredential reports whether the token stands for an access token
// record rather than a principal.
func (k Kind) IsAccessCredential() bool {
	return k == KindAccessKey || k == KindLegacyAccessToken
}

// LivePermissions reports whether permissions are loaded at verification time
// instead of being read from the token.
func (k Kind) LivePermissions() bool {
	return k == KindAccessKey
}

func kindOf(tokenType string) Kind {
	switch tokenType {
	case "":
		return KindSession
	case typeRefresh:
		return KindRefresh
	case typeAccessKey:
		return KindAccessKey
	case typeLegacyAccessToken:
		return KindLegacyAccessToken
	}
	return KindUnknown
}

// Claims is the signed payload shared by every token kind. aid is the
// principal id for sessions and refresh tokens and the access token record
// id for access credentials.
type Claims struct {
	AID      string         `json:"aid,omitempty"`
	Username string         `json:"username,omitempty"`
	Name     string         `json:"name,omitempty"`
	Perms    permission.Set `json:"perms,omitempty"`
	Type     string         `json:"type,omitempty"`
	Versions string         `json:"versions,omitempty"`
	jwt.RegisteredClaims
}

// Token is a verified bearer token.
type Token struct {
	Kind   Kind
	Claims *Claims
}

// PermissionSource resolves the membership-derived permissions of a principal.
type PermissionSource interface {
	MembershipPermissions(ctx context.Context, p *principal.Principal) (permission.Set, error)
}

type Issuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	version    string
	perms      PermissionSource
	now        func() time.Time
	metrics    *metrics.Metrics
	log        logger.Logger
}

type IssuerOption func(*Issuer)

func WithIssuerClock(now func() time.Time) IssuerOption {
	return func(i *Issuer) {
		i.now = now
	}
}

func WithIssuerMetrics(m *metrics.Metrics) IssuerOption {
	return func(i *Issuer) {
		i.metrics = m
	}
}

func WithIssuerLogger(log logger.Logger) IssuerOption {
	return func(i *Issuer) {
		i.log = log
	}
}

func NewIssuer(secret string, accessTTL, refreshTTL time.Duration, version string, perms PermissionSource, opts ...IssuerOption) *Issuer {
	i := &Issuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		version:    version,
		perms:      perms,
		now:        time.Now,
		log:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// IssueSession signs a session token with the principal's permissions as of
// now. A failed lookup embeds the no-access set instead of failing.
func (i *Issuer) IssueSession(ctx context.Context, p *principal.Principal) (string, error) {
	signed, _, err := i.issueSession(ctx, p)
	return signed, err
}

func (i *Issuer) issueSession(ctx context.Context, p *principal.Principal) (string, *Claims, error) {
	perms, err := i.perms.MembershipPermissions(ctx, p)
	if err != nil {
		i.log.Error(ctx, msgLogPermissionsUnavailable, "principal_id", p.ID.String(), "error", err)
		perms = permission.None()
	}

	claims := &Claims{
		AID:      p.ID.String(),
		Username: p.Username,
		Name:     p.Name(),
		Perms:    perms,
	}
	signed, err := i.sign(claims, i.accessTTL, KindSession)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

func (i *Issuer) IssueRefresh(p *principal.Principal) (string, error) {
	claims := &Claims{
		AID:      p.ID.String(),
		Username: p.Username,
		Name:     p.Name(),
		Type:     typeRefresh,
	}
	return i.sign(claims, i.refreshTTL, KindRefresh)
}

// IssueAccessKey signs a key for the access token record. Its permissions are
// never embedded. expire=false produces a key without an expiry.
func (i *Issuer) IssueAccessKey(record *accesstoken.AccessToken, expire bool) (string, error) {
	claims := &Claims{
		AID:      record.ID.String(),
		Type:     typeAccessKey,
		Versions: i.version,
	}

	ttl := i.accessTTL
	if !expire {
		ttl = 0
	}
	return i.sign(claims, ttl, KindAccessKey)
}

func (i *Issuer) sign(claims *Claims, ttl time.Duration, kind Kind) (string, error) {
	now := i.now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", apperrors.InternalServer(msgSigningFailed, fmt.Errorf("%w: %w", apperrors.ErrInternalServer, err))
	}

	i.metrics.ObserveTokenIssued(kind.String())
	return signed, nil
}

// Verify checks the signature and expiry of raw. Expired tokens yield
// ErrExpired, anything else that fails yields ErrInvalidCredential.
func (i *Issuer) Verify(raw string) (*Token, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf(msgUnexpectedSigningMethod, token.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(i.now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrExpired, err)
		}
		return nil, fmt.Errorf("%w: "+msgTokenParseFailed, apperrors.ErrInvalidCredential, err)
	}
	if !token.Valid {
		return nil, apperrors.InvalidCredentials(msgInvalidTokenClaims)
	}

	kind := kindOf(claims.Type)
	if kind == KindUnknown {
		return nil, apperrors.InvalidCredentials(msgUnknownTokenType)
	}

	return &Token{Kind: kind, Claims: claims}, nil
}

func (i *Issuer) AccessTTL() time.Duration {
	return i.accessTTL
}
