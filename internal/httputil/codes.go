package httputil

// Machine-readable error codes returned alongside human-readable messages so
// clients can branch without parsing message text.
const (
	CodeInvalidRequestBody  = "invalid_request_body"
	CodeInternalError       = "internal_error"
	CodeAccountExists       = "account_exists"
	CodeInvalidCredentials  = "invalid_credentials"
	CodeAccountUnconfirmed  = "account_unconfirmed"
	CodeInvalidToken        = "invalid_token"
	CodeTokenExpired        = "token_expired"
	CodeTokenScopeMismatch  = "token_scope_mismatch"
	CodeRefreshReuse        = "refresh_reuse_detected"
	CodeRefreshRequired     = "refresh_token_required"
	CodeTokenRequired       = "token_required"
	CodeVerificationFailed  = "verification_failed"
	CodeAccountNotFound     = "account_not_found"
	CodePasswordRequired    = "password_required"
	CodePasswordTooShort    = "password_too_short"
	CodePasswordMismatch    = "password_mismatch"
	CodeInvalidEmailFormat  = "invalid_email_format"
	CodeUsernameInvalid     = "invalid_username"
	CodeInvalidAuthHeader   = "invalid_auth_header"
	CodeMissingAuth         = "missing_auth"
)
