package flows

import (
	"context"
	"errors"
	"time"

	"github.com/boardhub/tokenauth/jwt"
)

// IssueFailureKind classifies issuance failures for root-level mapping.
type IssueFailureKind int

const (
	IssueFailureNone IssueFailureKind = iota
	IssueFailureInvalidIdentity
	IssueFailureMint
	IssueFailureStore
)

// IssueResult carries the minted pair or failure metadata.
type IssueResult struct {
	Failure          IssueFailureKind
	Err              error
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

type IssueSessionStore interface {
	Put(ctx context.Context, subject, token string, ttl time.Duration) error
}

// IssueDeps captures issuance dependencies.
type IssueDeps struct {
	Mint         MintFunc
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
	Now          func() time.Time
	SessionStore IssueSessionStore
}

// RunIssue mints an access/refresh pair for id and stores the refresh token
// as the subject's only live session, replacing any earlier one.
func RunIssue(ctx context.Context, id Identity, deps IssueDeps) IssueResult {
	if id.Subject == "" {
		return IssueResult{Failure: IssueFailureInvalidIdentity, Err: errors.New("identity subject is empty")}
	}
	now := time.Now
	if deps.Now != nil {
		now = deps.Now
	}

	issuedAt := now()
	access, err := deps.Mint(jwt.CategoryAccess, id.Subject, id.Username, id.Role, deps.AccessTTL)
	if err != nil {
		return IssueResult{Failure: IssueFailureMint, Err: err}
	}
	refresh, err := deps.Mint(jwt.CategoryRefresh, id.Subject, id.Username, id.Role, deps.RefreshTTL)
	if err != nil {
		return IssueResult{Failure: IssueFailureMint, Err: err}
	}

	if err := deps.SessionStore.Put(ctx, id.Subject, refresh, deps.RefreshTTL); err != nil {
		return IssueResult{Failure: IssueFailureStore, Err: err}
	}

	return IssueResult{
		Failure:          IssueFailureNone,
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  issuedAt.Add(deps.AccessTTL),
		RefreshExpiresAt: issuedAt.Add(deps.RefreshTTL),
	}
}
