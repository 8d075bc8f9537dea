package tokenauth

import "errors"

// Token and session failures. These are client errors: the caller should
// log in again rather than retry the same request.
var (
	// ErrTokenMissing means the expected transport channel carried no token.
	ErrTokenMissing = errors.New("token missing")
	// ErrTokenMalformed covers bad signatures, bad structure, wrong algorithm
	// and unknown claims layouts.
	ErrTokenMalformed = errors.New("token malformed")
	// ErrTokenExpired means a well-formed token is past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenCategoryMismatch means an access token was presented where a
	// refresh token was required, or the reverse.
	ErrTokenCategoryMismatch = errors.New("token category mismatch")
	// ErrSessionNotFound means no live session exists for the token's subject.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionMismatch means the subject's live session holds a different
	// token: the presented one was already rotated or revoked.
	ErrSessionMismatch = errors.New("session mismatch")
)

// ErrStoreUnavailable is the infrastructure failure class. It is never
// returned for token problems; callers should back off and retry the same
// request.
var ErrStoreUnavailable = errors.New("session store unavailable")

var (
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrLoginRateLimited    = errors.New("login rate limited")
	ErrInvalidIdentity     = errors.New("invalid identity")
	ErrUserNotFound        = errors.New("user not found")
	ErrProviderUnavailable = errors.New("user provider unavailable")
	ErrEngineNotReady      = errors.New("engine not ready")
)

// Reason returns the short machine-readable reason for err, suitable for
// response bodies and audit events. Unknown errors map to "internal_error".
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTokenMissing):
		return "token_missing"
	case errors.Is(err, ErrTokenMalformed):
		return "token_malformed"
	case errors.Is(err, ErrTokenExpired):
		return "token_expired"
	case errors.Is(err, ErrTokenCategoryMismatch):
		return "token_category_mismatch"
	case errors.Is(err, ErrSessionNotFound):
		return "session_not_found"
	case errors.Is(err, ErrSessionMismatch):
		return "session_mismatch"
	case errors.Is(err, ErrStoreUnavailable):
		return "store_unavailable"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrLoginRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrInvalidIdentity):
		return "invalid_identity"
	case errors.Is(err, ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, ErrProviderUnavailable):
		return "provider_unavailable"
	case errors.Is(err, ErrEngineNotReady):
		return "engine_not_ready"
	default:
		return "internal_error"
	}
}

// IsTokenError reports whether err belongs to the token/session taxonomy,
// i.e. whether it should surface as a 400-class response.
func IsTokenError(err error) bool {
	return errors.Is(err, ErrTokenMissing) ||
		errors.Is(err, ErrTokenMalformed) ||
		errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrTokenCategoryMismatch) ||
		errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrSessionMismatch)
}

// storeUnavailableError carries a store failure that already reads
// "session store unavailable: ..." so the prefix is not repeated.
type storeUnavailableError struct {
	cause error
}

func (e storeUnavailableError) Error() string { return e.cause.Error() }

func (e storeUnavailableError) Unwrap() []error {
	return []error{ErrStoreUnavailable, e.cause}
}
