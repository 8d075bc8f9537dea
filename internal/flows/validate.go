package flows

import (
	"errors"

	"github.com/boardhub/tokenauth/jwt"
)

// ValidateFailureKind classifies access-token validation failures.
type ValidateFailureKind int

const (
	ValidateFailureNone ValidateFailureKind = iota
	ValidateFailureMissing
	ValidateFailureMalformed
	ValidateFailureExpired
	ValidateFailureCategory
)

type ValidateResult struct {
	Failure ValidateFailureKind
	Err     error
	Claims  *jwt.Claims
}

type ValidateDeps struct {
	Parse ParseFunc
}

// RunValidateAccess accepts only access tokens. It never touches the session
// store: access tokens are not individually revocable.
func RunValidateAccess(token string, deps ValidateDeps) ValidateResult {
	if token == "" {
		return ValidateResult{Failure: ValidateFailureMissing, Err: errors.New("access token missing")}
	}
	claims, err := deps.Parse(token)
	switch jwt.Classify(err) {
	case jwt.OutcomeOK:
	case jwt.OutcomeExpired:
		return ValidateResult{Failure: ValidateFailureExpired, Err: err}
	default:
		return ValidateResult{Failure: ValidateFailureMalformed, Err: err}
	}
	if claims.Category != jwt.CategoryAccess {
		return ValidateResult{Failure: ValidateFailureCategory, Err: errors.New("token is not an access token")}
	}
	return ValidateResult{Failure: ValidateFailureNone, Claims: claims}
}
