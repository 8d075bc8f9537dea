package flows

import (
	"context"
	"errors"
	"time"

	"github.com/boardhub/tokenauth/jwt"
	"github.com/boardhub/tokenauth/session"
)

// ReissueFailureKind classifies reissue failures, one per exit of the
// rotation state machine.
type ReissueFailureKind int

const (
	ReissueFailureNone ReissueFailureKind = iota
	ReissueFailureMissing
	ReissueFailureMalformed
	ReissueFailureExpired
	ReissueFailureCategory
	ReissueFailureSessionNotFound
	ReissueFailureSessionMismatch
	ReissueFailureStore
	ReissueFailureMint
)

// ReissueResult carries the rotated pair or failure metadata.
type ReissueResult struct {
	Failure  ReissueFailureKind
	Err      error
	Identity Identity
	Issue    IssueResult
}

type ReissueSessionStore interface {
	Get(ctx context.Context, subject string) (string, error)
	Rotate(ctx context.Context, subject, expected, next string, ttl time.Duration) error
}

// ReissueDeps captures reissue dependencies.
type ReissueDeps struct {
	Parse        ParseFunc
	Mint         MintFunc
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
	Now          func() time.Time
	SessionStore ReissueSessionStore
}

// RunReissue exchanges a live refresh token for a new pair. The presented
// token must parse, carry the refresh category, and equal the subject's
// stored token; the swap itself is a compare-and-swap, so a token can be
// redeemed at most once even under concurrent requests.
func RunReissue(ctx context.Context, refreshToken string, deps ReissueDeps) ReissueResult {
	if refreshToken == "" {
		return ReissueResult{Failure: ReissueFailureMissing, Err: errors.New("refresh token missing")}
	}

	claims, err := deps.Parse(refreshToken)
	if err != nil {
		switch jwt.Classify(err) {
		case jwt.OutcomeExpired:
			return ReissueResult{Failure: ReissueFailureExpired, Err: err}
		default:
			return ReissueResult{Failure: ReissueFailureMalformed, Err: err}
		}
	}
	if claims.Category != jwt.CategoryRefresh {
		return ReissueResult{Failure: ReissueFailureCategory, Err: errors.New("token is not a refresh token")}
	}

	id := Identity{Subject: claims.Subject, Username: claims.Username, Role: claims.Role}

	current, err := deps.SessionStore.Get(ctx, id.Subject)
	if err != nil {
		return ReissueResult{Failure: storeFailure(err), Err: err, Identity: id}
	}
	if current != refreshToken {
		return ReissueResult{Failure: ReissueFailureSessionMismatch, Err: session.ErrMismatch, Identity: id}
	}

	now := time.Now
	if deps.Now != nil {
		now = deps.Now
	}
	issuedAt := now()

	access, err := deps.Mint(jwt.CategoryAccess, id.Subject, id.Username, id.Role, deps.AccessTTL)
	if err != nil {
		return ReissueResult{Failure: ReissueFailureMint, Err: err, Identity: id}
	}
	next, err := deps.Mint(jwt.CategoryRefresh, id.Subject, id.Username, id.Role, deps.RefreshTTL)
	if err != nil {
		return ReissueResult{Failure: ReissueFailureMint, Err: err, Identity: id}
	}

	if err := deps.SessionStore.Rotate(ctx, id.Subject, refreshToken, next, deps.RefreshTTL); err != nil {
		return ReissueResult{Failure: storeFailure(err), Err: err, Identity: id}
	}

	return ReissueResult{
		Failure:  ReissueFailureNone,
		Identity: id,
		Issue: IssueResult{
			AccessToken:      access,
			RefreshToken:     next,
			AccessExpiresAt:  issuedAt.Add(deps.AccessTTL),
			RefreshExpiresAt: issuedAt.Add(deps.RefreshTTL),
		},
	}
}

func storeFailure(err error) ReissueFailureKind {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return ReissueFailureSessionNotFound
	case errors.Is(err, session.ErrMismatch):
		return ReissueFailureSessionMismatch
	default:
		return ReissueFailureStore
	}
}
