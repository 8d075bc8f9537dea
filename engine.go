package tokenauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	internalaudit "github.com/boardhub/tokenauth/internal/audit"
	internalflows "github.com/boardhub/tokenauth/internal/flows"
	"github.com/boardhub/tokenauth/internal/rate"
	"github.com/boardhub/tokenauth/jwt"
	"github.com/boardhub/tokenauth/password"
	"github.com/boardhub/tokenauth/session"
	"go.uber.org/zap"
)

// Engine issues, rotates, validates and revokes token pairs. It is safe for
// concurrent use; build one with [New].
type Engine struct {
	config       Config
	store        session.Store
	jwtManager   *jwt.Manager
	rateLimiter  *rate.Limiter
	hasher       *password.Hasher
	userProvider UserProvider
	audit        *internalaudit.Dispatcher
	metrics      *Metrics
	logger       *zap.Logger
	now          func() time.Time
	flows        internalflows.Deps
}

// Config returns a copy of the configuration the Engine was built with.
func (e *Engine) Config() Config {
	return cloneConfig(e.config)
}

// Close flushes and stops the audit dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns how many audit events were discarded because the
// dispatcher buffer was full. It is zero when auditing is disabled.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot copies the current counters and latency histograms. With
// metrics disabled both maps are empty.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// Ping checks the session store.
func (e *Engine) Ping(ctx context.Context) error {
	ctx, cancel := e.storeContext(ctx)
	defer cancel()
	if err := e.store.Ping(ctx); err != nil {
		return e.storeError(err)
	}
	return nil
}

// Issue mints a pair for an already-authenticated identity and makes the
// refresh token the subject's only live session.
func (e *Engine) Issue(ctx context.Context, id Identity) (TokenPair, error) {
	pair, err := e.issue(ctx, id)
	if err != nil {
		return TokenPair{}, err
	}
	e.emitAudit(ctx, auditEventSessionIssued, true, id.Subject, nil, nil)
	return pair, nil
}

// CompleteOAuth issues a pair for an identity resolved by an external
// provider. It differs from Issue only in the audit trail it leaves.
func (e *Engine) CompleteOAuth(ctx context.Context, id Identity, provider string) (TokenPair, error) {
	pair, err := e.issue(ctx, id)
	if err != nil {
		return TokenPair{}, err
	}
	e.metricInc(MetricOAuthIssued)
	e.emitAudit(ctx, auditEventOAuthIssued, true, id.Subject, nil, func() map[string]string {
		return map[string]string{"provider": provider}
	})
	return pair, nil
}

func (e *Engine) issue(ctx context.Context, id Identity) (TokenPair, error) {
	ctx, cancel := e.storeContext(ctx)
	defer cancel()

	res := internalflows.RunIssue(ctx, internalflows.Identity(id), e.flows.Issue)
	if res.Failure != internalflows.IssueFailureNone {
		return TokenPair{}, e.issueError(ctx, id.Subject, res)
	}
	e.metricInc(MetricSessionCreated)
	return tokenPair(res), nil
}

func (e *Engine) issueError(ctx context.Context, subject string, res internalflows.IssueResult) error {
	switch res.Failure {
	case internalflows.IssueFailureInvalidIdentity:
		return ErrInvalidIdentity
	case internalflows.IssueFailureStore:
		err := e.storeError(res.Err)
		e.emitAudit(ctx, auditEventStoreUnavailable, false, subject, err, nil)
		return err
	default:
		e.logger.Error("token mint failed", zap.String("subject", subject), zap.Error(res.Err))
		return fmt.Errorf("mint tokens: %w", res.Err)
	}
}

// Login checks identifier and password against the UserProvider and issues
// a pair on success. Every credential failure maps to
// ErrInvalidCredentials, whatever the cause.
func (e *Engine) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	if e.userProvider == nil {
		return nil, ErrEngineNotReady
	}
	ctx, cancel := e.storeContext(ctx)
	defer cancel()

	res := internalflows.RunLogin(ctx, identifier, password, e.flows.Login)
	switch res.Failure {
	case internalflows.LoginFailureNone:
	case internalflows.LoginFailureRateLimited:
		if errors.Is(res.Err, rate.ErrRedisUnavailable) {
			err := fmt.Errorf("%w: %v", ErrStoreUnavailable, res.Err)
			e.emitAudit(ctx, auditEventStoreUnavailable, false, "", err, nil)
			return nil, err
		}
		e.metricInc(MetricLoginRateLimited)
		e.emitAudit(ctx, auditEventLoginRateLimited, false, res.User.Subject, ErrLoginRateLimited, func() map[string]string {
			return map[string]string{"identifier": identifier}
		})
		return nil, ErrLoginRateLimited
	case internalflows.LoginFailureInvalidCredentials:
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, res.User.Subject, ErrInvalidCredentials, func() map[string]string {
			return map[string]string{"reason": res.Reason}
		})
		return nil, ErrInvalidCredentials
	case internalflows.LoginFailureProvider:
		e.metricInc(MetricLoginFailure)
		e.logger.Warn("user provider failed", zap.Error(res.Err))
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, res.Err)
	default:
		e.metricInc(MetricLoginFailure)
		return nil, e.issueError(ctx, res.User.Subject, res.Issue)
	}

	e.metricInc(MetricLoginSuccess)
	e.metricInc(MetricSessionCreated)
	e.emitAudit(ctx, auditEventLoginSuccess, true, res.User.Subject, nil, nil)

	return &LoginResult{
		Identity: Identity{Subject: res.User.Subject, Username: res.User.Username, Role: res.User.Role},
		Tokens:   tokenPair(res.Issue),
	}, nil
}

// Reissue redeems refreshToken for a new pair. The presented token is
// consumed: a second Reissue with it fails with ErrSessionMismatch even when
// both calls race.
func (e *Engine) Reissue(ctx context.Context, refreshToken string) (TokenPair, error) {
	start := time.Now()
	defer func() {
		if e.metrics.LatencyEnabled() {
			e.metrics.Observe(MetricReissueLatency, time.Since(start))
		}
	}()

	ctx, cancel := e.storeContext(ctx)
	defer cancel()

	res := internalflows.RunReissue(ctx, refreshToken, e.flows.Reissue)
	if res.Failure == internalflows.ReissueFailureNone {
		e.metricInc(MetricReissueSuccess)
		e.emitAudit(ctx, auditEventReissueSuccess, true, res.Identity.Subject, nil, nil)
		return tokenPair(res.Issue), nil
	}

	var err error
	switch res.Failure {
	case internalflows.ReissueFailureMissing:
		err = ErrTokenMissing
	case internalflows.ReissueFailureMalformed:
		e.metricInc(MetricTokenMalformed)
		err = ErrTokenMalformed
	case internalflows.ReissueFailureExpired:
		e.metricInc(MetricTokenExpired)
		err = ErrTokenExpired
	case internalflows.ReissueFailureCategory:
		e.metricInc(MetricTokenCategoryMismatch)
		err = ErrTokenCategoryMismatch
	case internalflows.ReissueFailureSessionNotFound:
		err = ErrSessionNotFound
	case internalflows.ReissueFailureSessionMismatch:
		e.metricInc(MetricReissueReplayDetected)
		e.logger.Warn("refresh token replay", zap.String("subject", res.Identity.Subject))
		e.emitAudit(ctx, auditEventReissueReuse, false, res.Identity.Subject, ErrSessionMismatch, nil)
		e.metricInc(MetricReissueFailure)
		return TokenPair{}, ErrSessionMismatch
	case internalflows.ReissueFailureStore:
		err = e.storeError(res.Err)
		e.emitAudit(ctx, auditEventStoreUnavailable, false, res.Identity.Subject, err, nil)
		e.metricInc(MetricReissueFailure)
		return TokenPair{}, err
	default:
		e.logger.Error("token mint failed", zap.String("subject", res.Identity.Subject), zap.Error(res.Err))
		err = fmt.Errorf("mint tokens: %w", res.Err)
	}

	e.metricInc(MetricReissueFailure)
	e.emitAudit(ctx, auditEventReissueInvalid, false, res.Identity.Subject, err, nil)
	return TokenPair{}, err
}

// Logout revokes the session holding refreshToken. It is idempotent: an
// already-revoked or rotated-away token succeeds with Revoked == false.
// Expired refresh tokens are still accepted and resolved through the
// store's reverse index.
func (e *Engine) Logout(ctx context.Context, refreshToken string) (LogoutResult, error) {
	ctx, cancel := e.storeContext(ctx)
	defer cancel()

	res := internalflows.RunLogout(ctx, refreshToken, e.flows.Logout)

	var err error
	switch res.Failure {
	case internalflows.LogoutFailureNone:
		if res.Revoked {
			e.metricInc(MetricLogout)
		} else {
			e.metricInc(MetricLogoutNoop)
		}
		e.emitAudit(ctx, auditEventLogout, true, res.Subject, nil, func() map[string]string {
			if res.Revoked {
				return map[string]string{"revoked": "true"}
			}
			return map[string]string{"revoked": "false"}
		})
		return LogoutResult{Subject: res.Subject, Revoked: res.Revoked}, nil
	case internalflows.LogoutFailureMissing:
		err = ErrTokenMissing
	case internalflows.LogoutFailureCategory:
		e.metricInc(MetricTokenCategoryMismatch)
		err = ErrTokenCategoryMismatch
	case internalflows.LogoutFailureStore:
		err = e.storeError(res.Err)
		e.emitAudit(ctx, auditEventStoreUnavailable, false, res.Subject, err, nil)
		return LogoutResult{}, err
	default:
		e.metricInc(MetricTokenMalformed)
		err = ErrTokenMalformed
	}

	e.emitAudit(ctx, auditEventLogoutInvalid, false, res.Subject, err, nil)
	return LogoutResult{}, err
}

// ValidateAccess verifies an access token and returns its claims. It never
// consults the session store, so a revoked session's access tokens stay
// valid until they expire.
func (e *Engine) ValidateAccess(ctx context.Context, token string) (*AuthResult, error) {
	start := time.Now()
	defer func() {
		if e.metrics.LatencyEnabled() {
			e.metrics.Observe(MetricValidateLatency, time.Since(start))
		}
	}()

	res := internalflows.RunValidateAccess(token, e.flows.Validate)
	switch res.Failure {
	case internalflows.ValidateFailureNone:
	case internalflows.ValidateFailureMissing:
		e.metricInc(MetricValidateFailure)
		return nil, ErrTokenMissing
	case internalflows.ValidateFailureExpired:
		e.metricInc(MetricValidateFailure)
		e.metricInc(MetricTokenExpired)
		return nil, ErrTokenExpired
	case internalflows.ValidateFailureCategory:
		e.metricInc(MetricValidateFailure)
		e.metricInc(MetricTokenCategoryMismatch)
		return nil, ErrTokenCategoryMismatch
	default:
		e.metricInc(MetricValidateFailure)
		e.metricInc(MetricTokenMalformed)
		return nil, ErrTokenMalformed
	}

	out := &AuthResult{
		Subject:  res.Claims.Subject,
		Username: res.Claims.Username,
		Role:     res.Claims.Role,
	}
	if res.Claims.IssuedAt != nil {
		out.IssuedAt = res.Claims.IssuedAt.Time
	}
	if res.Claims.ExpiresAt != nil {
		out.ExpiresAt = res.Claims.ExpiresAt.Time
	}
	return out, nil
}

// SessionActive reports whether refreshToken is the live session of some
// subject. The token is not parsed, so expired tokens are looked up too.
func (e *Engine) SessionActive(ctx context.Context, refreshToken string) (bool, error) {
	if refreshToken == "" {
		return false, ErrTokenMissing
	}
	ctx, cancel := e.storeContext(ctx)
	defer cancel()

	ok, err := session.Exists(ctx, e.store, refreshToken)
	if err != nil {
		return false, e.storeError(err)
	}
	return ok, nil
}

// RevokeSubject drops the subject's session whatever token it holds.
func (e *Engine) RevokeSubject(ctx context.Context, subject string) error {
	if subject == "" {
		return ErrInvalidIdentity
	}
	ctx, cancel := e.storeContext(ctx)
	defer cancel()

	if err := e.store.Delete(ctx, subject); err != nil {
		return e.storeError(err)
	}
	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, true, subject, nil, func() map[string]string {
		return map[string]string{"scope": "subject"}
	})
	return nil
}

// HashPassword hashes a password with the configured argon2id parameters.
func (e *Engine) HashPassword(plain string) (string, error) {
	return e.hasher.Hash(plain)
}

func (e *Engine) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, e.config.Session.OperationTimeout)
}

// storeError maps anything the store returns, other than the two session
// outcomes, to ErrStoreUnavailable.
func (e *Engine) storeError(err error) error {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return ErrSessionNotFound
	case errors.Is(err, session.ErrMismatch):
		return ErrSessionMismatch
	}
	e.metricInc(MetricStoreUnavailable)
	e.logger.Warn("session store failure", zap.Error(err))
	if errors.Is(err, session.ErrUnavailable) {
		return storeUnavailableError{cause: err}
	}
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}

func (e *Engine) buildFlowDeps() internalflows.Deps {
	issue := internalflows.IssueDeps{
		Mint:         e.jwtManager.Mint,
		AccessTTL:    e.config.JWT.AccessTTL,
		RefreshTTL:   e.config.JWT.RefreshTTL,
		Now:          e.now,
		SessionStore: e.store,
	}

	login := internalflows.LoginDeps{
		PasswordUpgradeOnLogin: e.config.Password.UpgradeOnLogin,
		ClientIPFromContext:    ClientIPFromContext,
		UserNotFound:           ErrUserNotFound,
		VerifyPassword:         e.hasher.Verify,
		PasswordNeedsUpgrade:   e.hasher.NeedsUpgrade,
		HashPassword:           e.hasher.Hash,
		Warn:                   e.logger.Sugar().Warnw,
		Issue:                  issue,
	}
	if e.userProvider != nil {
		login.GetUserByIdentifier = func(ctx context.Context, identifier string) (internalflows.LoginUserRecord, error) {
			u, err := e.userProvider.GetUserByIdentifier(ctx, identifier)
			if err != nil {
				return internalflows.LoginUserRecord{}, err
			}
			return internalflows.LoginUserRecord(u), nil
		}
		login.UpdatePasswordHash = e.userProvider.UpdatePasswordHash
	}
	if e.rateLimiter != nil {
		login.CheckLoginRate = e.rateLimiter.Check
		login.IncrementLoginRate = e.rateLimiter.Increment
		login.ResetLoginRate = e.rateLimiter.Reset
	}

	return internalflows.Deps{
		Issue: issue,
		Login: login,
		Reissue: internalflows.ReissueDeps{
			Parse:        e.jwtManager.Parse,
			Mint:         e.jwtManager.Mint,
			AccessTTL:    e.config.JWT.AccessTTL,
			RefreshTTL:   e.config.JWT.RefreshTTL,
			Now:          e.now,
			SessionStore: e.store,
		},
		Logout: internalflows.LogoutDeps{
			Parse:        e.jwtManager.Parse,
			SessionStore: e.store,
		},
		Validate: internalflows.ValidateDeps{
			Parse: e.jwtManager.Parse,
		},
	}
}

func tokenPair(res internalflows.IssueResult) TokenPair {
	return TokenPair{
		AccessToken:      res.AccessToken,
		RefreshToken:     res.RefreshToken,
		AccessExpiresAt:  res.AccessExpiresAt,
		RefreshExpiresAt: res.RefreshExpiresAt,
	}
}
