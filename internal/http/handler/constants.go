package handler

const (
	jsonKeyError   = "error"
	jsonKeyMessage = "message"

	paramID = "id"

	// HeaderRefreshJWT and HeaderRefreshToken return the tokens of a fresh login.
	HeaderRefreshJWT   = "Refresh-JWT"
	HeaderRefreshToken = "refresh-token"
)

const (
	msgContentTypeJSONRequired = "content type must be application/json"
	msgInvalidRequestBody      = "invalid request body"
	msgInternalServerError     = "Internal server error"

	msgLoginSuccessful      = "Login successful!"
	msgLogoutSuccessful     = "Logged out successful!"
	msgInvalidCredentials   = "Password or Username is incorrect"
	msgNotVerified          = "Administrator not verified, check your state"
	msgGenerateTokenFail    = "failed to generate token"
	msgNotAuthorized        = "not authorized"
	msgHelloWorld           = "Hello World"
	msgAccessTokenCreated   = "Access token created"
	msgAccessTokenUpdated   = "Access token updated"
	msgAccessTokenDeleted   = "Access token deleted"
	msgInvalidAccessTokenID = "invalid access token id"
	msgAccessTokenNotFound  = "access token not found"
	msgPermissionsRequired  = "permissions are required"
	msgPermissionEscalation = "cannot grant permissions you do not hold"
	msgUnknownCategoryFmt   = "unknown permission category %q"
	msgValidityRequired     = "isValid is required"
)

const (
	msgLogLoginRecordFailed = "failed to record last login"
	msgLogLoginLookupFailed = "administrator lookup failed during login"
	msgLogTokenIssueFailed  = "failed to issue token"
)
