package tokenauth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	auditEventLoginSuccess     = "login_success"
	auditEventLoginFailure     = "login_failure"
	auditEventLoginRateLimited = "login_rate_limited"
	auditEventOAuthIssued      = "oauth_issued"
	auditEventSessionIssued    = "session_issued"
	auditEventReissueSuccess   = "reissue_success"
	auditEventReissueInvalid   = "reissue_invalid"
	auditEventReissueReuse     = "reissue_reuse_detected"
	auditEventLogout           = "logout"
	auditEventLogoutInvalid    = "logout_invalid"
	auditEventStoreUnavailable = "store_unavailable"
)

// emitAudit is best-effort: it never blocks the request path when the
// dispatcher is configured to drop on overflow.
func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	subject string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Subject:   subject,
		IP:        ClientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
		RequestID: RequestIDFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if err != nil {
		event.Error = Reason(err)
	}

	e.audit.Emit(ctx, event)
}
