package flows

import (
	"context"
	"errors"
)

// LoginFailureKind classifies login failures for root-level mapping.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureRateLimited
	LoginFailureInvalidCredentials
	LoginFailureProvider
	LoginFailureIssue
)

// LoginUserRecord is a flow-local user model.
type LoginUserRecord struct {
	Subject      string
	Username     string
	Role         string
	PasswordHash string
}

// LoginResult carries the issued pair or failure metadata. Reason is a short
// audit label for failures.
type LoginResult struct {
	Failure LoginFailureKind
	Err     error
	Reason  string
	User    LoginUserRecord
	Issue   IssueResult
}

// LoginDeps captures login dependencies. The rate functions are optional;
// when CheckLoginRate is nil no throttling happens.
type LoginDeps struct {
	PasswordUpgradeOnLogin bool

	ClientIPFromContext func(context.Context) string

	CheckLoginRate     func(context.Context, string, string) error
	IncrementLoginRate func(context.Context, string, string) error
	ResetLoginRate     func(context.Context, string, string) error

	GetUserByIdentifier func(context.Context, string) (LoginUserRecord, error)
	UserNotFound        error
	UpdatePasswordHash  func(context.Context, string, string) error

	VerifyPassword       func(string, string) (bool, error)
	PasswordNeedsUpgrade func(string) (bool, error)
	HashPassword         func(string) (string, error)

	Warn func(string, ...any)

	Issue IssueDeps
}

// RunLogin verifies identifier/password and issues a session on success.
// Every credential failure counts against the login budget.
func RunLogin(ctx context.Context, identifier, password string, deps LoginDeps) LoginResult {
	if deps.Warn == nil {
		deps.Warn = func(string, ...any) {}
	}
	ip := ""
	if deps.ClientIPFromContext != nil {
		ip = deps.ClientIPFromContext(ctx)
	}

	if deps.CheckLoginRate != nil {
		if err := deps.CheckLoginRate(ctx, identifier, ip); err != nil {
			return LoginResult{Failure: LoginFailureRateLimited, Err: err, Reason: "rate_limited"}
		}
	}

	fail := func(reason string, user LoginUserRecord) LoginResult {
		if deps.IncrementLoginRate != nil {
			if err := deps.IncrementLoginRate(ctx, identifier, ip); err != nil {
				return LoginResult{Failure: LoginFailureRateLimited, Err: err, Reason: "rate_limited", User: user}
			}
		}
		return LoginResult{Failure: LoginFailureInvalidCredentials, Reason: reason, User: user}
	}

	if identifier == "" || password == "" {
		return fail("empty_credentials", LoginUserRecord{})
	}

	user, err := deps.GetUserByIdentifier(ctx, identifier)
	if err != nil {
		if deps.UserNotFound != nil && errors.Is(err, deps.UserNotFound) {
			return fail("user_not_found", LoginUserRecord{})
		}
		return LoginResult{Failure: LoginFailureProvider, Err: err, Reason: "provider_unavailable"}
	}

	ok, err := deps.VerifyPassword(password, user.PasswordHash)
	if err != nil || !ok {
		return fail("password_mismatch", user)
	}

	if deps.PasswordUpgradeOnLogin && deps.PasswordNeedsUpgrade != nil && deps.HashPassword != nil && deps.UpdatePasswordHash != nil {
		if needsUpgrade, err := deps.PasswordNeedsUpgrade(user.PasswordHash); err == nil && needsUpgrade {
			if upgraded, err := deps.HashPassword(password); err == nil {
				if err := deps.UpdatePasswordHash(ctx, user.Subject, upgraded); err != nil {
					deps.Warn("tokenauth: password hash upgrade update failed", "subject", user.Subject)
				}
			} else {
				deps.Warn("tokenauth: password hash upgrade generation failed")
			}
		}
	}
	password = ""

	issued := RunIssue(ctx, Identity{Subject: user.Subject, Username: user.Username, Role: user.Role}, deps.Issue)
	if issued.Failure != IssueFailureNone {
		return LoginResult{Failure: LoginFailureIssue, Err: issued.Err, Reason: "issue_failed", User: user, Issue: issued}
	}

	if deps.ResetLoginRate != nil {
		if err := deps.ResetLoginRate(ctx, identifier, ip); err != nil {
			deps.Warn("tokenauth: login rate reset failed")
		}
	}

	return LoginResult{Failure: LoginFailureNone, User: user, Issue: issued}
}
