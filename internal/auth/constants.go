package auth

const (
	ContextKeySubject       = "subject"
	ContextKeyPrincipal     = "account"
	ContextKeyPermissions   = "perms"
	ContextKeyAccessKey     = "access_token"
	ContextKeyAccessTokenID = "jwt_aid"

	jsonKeyError     = "error"
	jsonKeyRequestID = "request_id"
	unknownRequestID = "unknown"

	headerAuthorization = "Authorization"
	// HeaderRefreshToken carries the refresh token on requests.
	HeaderRefreshToken = "refresh-token"
	// HeaderRefreshJWT carries a newly minted session token on responses.
	HeaderRefreshJWT = "Refresh-JWT"

	apiPrefix       = "/api"
	bearerScheme    = "bearer"
	authHeaderParts = 2
)

const (
	msgMissingAuthorization    = "No auth token"
	msgInvalidToken            = "Invalid token"
	msgInvalidTokenUsed        = "Invalid token used"
	msgAccessTokenRevoked      = "Access token has been revoked"
	msgPrincipalNotFound       = "Invalid Token"
	msgJWTExpired              = "jwt expired"
	msgSessionExpired          = "session expired"
	msgUnauthorized            = "Unauthorized"
	msgInternalServerError     = "Internal server error"
	msgNotAuthorized           = "not authorized"
	msgPermissionDenied        = "You don't have permission to perform this operation"
	msgLookupFailed            = "credential lookup failed"
	msgSigningFailed           = "failed to sign token"
	msgUnexpectedSigningMethod = "unexpected signing method: %v"
	msgTokenParseFailed        = "failed to parse token: %w"
	msgInvalidTokenClaims      = "invalid token claims"
	msgUnknownTokenType        = "unknown token type"
	msgInvalidSubjectCtx       = "invalid subject in context"
)

const (
	msgLogPermissionsUnavailable  = "could not get administrator permissions"
	msgLogAccessTokenLookupFailed = "access token lookup failed"
	msgLogAccessTokenOwnerMissing = "could not find administrator for access token"
	msgLogPrincipalLookupFailed   = "administrator lookup failed"
	msgLogSessionRefreshed        = "session token refreshed"
	msgLogRefreshExpired          = "account refresh token expired"
	msgLogVerificationFailed      = "JWT verification failed"
)
