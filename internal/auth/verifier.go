package auth

import (
	apperrors "admin-service/pkg/errors"
	"admin-service/pkg/logger"
	"admin-service/pkg/metrics"
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type Outcome int

const (
	Accepted Outcome = iota + 1
	Rejected
	RefreshNeeded
)

func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case Rejected:
		return "rejected"
	case RefreshNeeded:
		return "refresh_needed"
	}
	return "unknown"
}

// Request is the part of an inbound call the verifier looks at.
type Request struct {
	Method        string
	Path          string
	Authorization string
	RefreshToken  string
}

// Decision is the verifier's verdict on one request.
//
// Accepted with a nil Subject means the request bypasses verification.
// Rejected carries the cause in Err. RefreshNeeded means the bearer expired
// and the request holds a refresh token worth trying.
type Decision struct {
	Outcome  Outcome
	Subject  *Subject
	Err      error
	NewToken string
	// RefreshAttempted is set by Verify when the refresh path ran.
	RefreshAttempted bool
}

func accept(s *Subject) Decision {
	return Decision{Outcome: Accepted, Subject: s}
}

func reject(err error) Decision {
	return Decision{Outcome: Rejected, Err: err}
}

type Verifier struct {
	issuer   *Issuer
	resolver *Resolver
	log      logger.Logger
	metrics  *metrics.Metrics
}

func NewVerifier(issuer *Issuer, resolver *Resolver, log logger.Logger, m *metrics.Metrics) *Verifier {
	if log == nil {
		log = logger.Nop()
	}
	return &Verifier{
		issuer:   issuer,
		resolver: resolver,
		log:      log,
		metrics:  m,
	}
}

// Decide runs the bearer token checks for req. It never attempts a refresh
// itself; callers drive that step with Refresh on RefreshNeeded.
func (v *Verifier) Decide(ctx context.Context, req Request) Decision {
	if req.Method == http.MethodOptions || !isAPIPath(req.Path) {
		return accept(nil)
	}

	raw := bearerToken(req.Authorization)
	if raw == "" {
		return reject(apperrors.InvalidCredentials(msgMissingAuthorization))
	}

	tok, err := v.issuer.Verify(raw)
	if err != nil {
		if errors.Is(err, apperrors.ErrExpired) {
			if req.RefreshToken != "" {
				return Decision{Outcome: RefreshNeeded}
			}
			return reject(apperrors.ExpiredSession(msgJWTExpired))
		}
		return reject(err)
	}

	subject, err := v.resolver.Resolve(ctx, tok)
	if err != nil {
		return reject(err)
	}
	return accept(subject)
}

// Refresh trades a refresh token for a new session token. The principal and
// its permissions are loaded again, never copied from the expired token.
func (v *Verifier) Refresh(ctx context.Context, rawRefresh string) Decision {
	tok, err := v.issuer.Verify(rawRefresh)
	if err != nil {
		if errors.Is(err, apperrors.ErrExpired) {
			return reject(apperrors.ExpiredRefresh(msgSessionExpired))
		}
		return reject(apperrors.Unauthorized(msgUnauthorized))
	}
	if tok.Kind != KindRefresh {
		return reject(apperrors.Unauthorized(msgUnauthorized))
	}

	id, err := uuid.Parse(tok.Claims.AID)
	if err != nil {
		return reject(apperrors.Unauthorized(msgUnauthorized))
	}

	p, err := v.resolver.principal(ctx, id)
	if err != nil {
		return reject(err)
	}

	signed, claims, err := v.issuer.issueSession(ctx, p)
	if err != nil {
		return reject(err)
	}

	d := accept(&Subject{
		Principal:   p,
		Permissions: snapshot(claims.Perms),
		Kind:        KindSession,
	})
	d.NewToken = signed
	return d
}

// Verify is Decide followed by Refresh when needed. Metrics and logs are
// recorded here once per request.
func (v *Verifier) Verify(ctx context.Context, req Request) Decision {
	d := v.Decide(ctx, req)
	if d.Outcome == RefreshNeeded {
		d = v.Refresh(ctx, req.RefreshToken)
		d.RefreshAttempted = true
	}

	switch d.Outcome {
	case Accepted:
		if d.Subject == nil {
			return d
		}
		if d.RefreshAttempted {
			v.metrics.ObserveDecision(metrics.OutcomeRefreshed)
			v.log.Info(ctx, msgLogSessionRefreshed, "principal_id", d.Subject.Principal.ID.String())
		} else {
			v.metrics.ObserveDecision(metrics.OutcomeAccepted)
		}
	case Rejected:
		reason := ReasonOf(d.Err)
		v.metrics.ObserveRejection(reason)
		v.logRejection(ctx, reason, d.Err)
	}
	return d
}

func (v *Verifier) logRejection(ctx context.Context, reason string, err error) {
	switch {
	case errors.Is(err, apperrors.ErrPersistenceFault):
		v.log.Error(ctx, msgLogVerificationFailed, "reason", reason, "error", err)
	case errors.Is(err, apperrors.ErrExpiredRefresh):
		v.log.Info(ctx, msgLogRefreshExpired, "reason", reason)
	default:
		v.log.Warn(ctx, msgLogVerificationFailed, "reason", reason, "error", err)
	}
}

// ReasonOf gives a short label for a rejection cause.
func ReasonOf(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrPersistenceFault):
		return "persistence_fault"
	case errors.Is(err, apperrors.ErrExpiredRefresh):
		return "expired_refresh"
	case errors.Is(err, apperrors.ErrExpiredSession):
		return "expired_session"
	case errors.Is(err, apperrors.ErrPrincipalNotFound):
		return "principal_not_found"
	case errors.Is(err, apperrors.ErrRevoked):
		return "revoked"
	case errors.Is(err, apperrors.ErrInvalidCredential):
		return "invalid_credential"
	case errors.Is(err, apperrors.ErrPermissionDenied), errors.Is(err, apperrors.ErrForbidden):
		return "permission_denied"
	}
	return "unauthorized"
}

// StatusOf maps a rejection cause to the HTTP status returned to the caller.
func StatusOf(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrPersistenceFault), errors.Is(err, apperrors.ErrInternalServer):
		return http.StatusInternalServerError
	case errors.Is(err, apperrors.ErrPermissionDenied), errors.Is(err, apperrors.ErrForbidden):
		return http.StatusForbidden
	}
	return http.StatusUnauthorized
}

func isAPIPath(path string) bool {
	return path == apiPrefix || strings.HasPrefix(path, apiPrefix+"/")
}

func bearerToken(header string) string {
	parts := strings.Fields(header)
	if len(parts) != authHeaderParts || strings.ToLower(parts[0]) != bearerScheme {
		return ""
	}
	return parts[1]
}
