package flows

import (
	"context"
	"errors"

	"github.com/boardhub/tokenauth/jwt"
	"github.com/boardhub/tokenauth/session"
)

// LogoutFailureKind classifies logout failures for root-level mapping.
type LogoutFailureKind int

const (
	LogoutFailureNone LogoutFailureKind = iota
	LogoutFailureMissing
	LogoutFailureMalformed
	LogoutFailureCategory
	LogoutFailureStore
)

// LogoutResult reports whether a live session was removed. A successful
// result with Revoked == false means the session was already gone.
type LogoutResult struct {
	Failure LogoutFailureKind
	Err     error
	Subject string
	Revoked bool
}

type LogoutSessionStore interface {
	LookupByToken(ctx context.Context, token string) (string, error)
	DeleteIfMatch(ctx context.Context, subject, token string) (bool, error)
}

// LogoutDeps captures logout dependencies.
type LogoutDeps struct {
	Parse        ParseFunc
	SessionStore LogoutSessionStore
}

// RunLogout revokes the session holding refreshToken. The subject comes from
// the token claims when it parses, or from the store's reverse index when it
// has already expired. Only the exact live token is deleted, so a stale
// token cannot log out a newer session.
func RunLogout(ctx context.Context, refreshToken string, deps LogoutDeps) LogoutResult {
	if refreshToken == "" {
		return LogoutResult{Failure: LogoutFailureMissing, Err: errors.New("refresh token missing")}
	}

	var subject string
	claims, err := deps.Parse(refreshToken)
	switch jwt.Classify(err) {
	case jwt.OutcomeOK:
		if claims.Category != jwt.CategoryRefresh {
			return LogoutResult{Failure: LogoutFailureCategory, Err: errors.New("token is not a refresh token")}
		}
		subject = claims.Subject
	case jwt.OutcomeExpired:
		subject, err = deps.SessionStore.LookupByToken(ctx, refreshToken)
		if errors.Is(err, session.ErrNotFound) {
			return LogoutResult{Failure: LogoutFailureNone}
		}
		if err != nil {
			return LogoutResult{Failure: LogoutFailureStore, Err: err}
		}
	default:
		return LogoutResult{Failure: LogoutFailureMalformed, Err: err}
	}

	revoked, err := deps.SessionStore.DeleteIfMatch(ctx, subject, refreshToken)
	if err != nil {
		return LogoutResult{Failure: LogoutFailureStore, Err: err, Subject: subject}
	}
	return LogoutResult{Failure: LogoutFailureNone, Subject: subject, Revoked: revoked}
}
