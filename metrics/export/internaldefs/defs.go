package internaldefs

import (
	"github.com/boardhub/tokenauth"
)

type CounterDef struct {
	ID   tokenauth.MetricID
	Name string
	Help string
}

type HistogramDef struct {
	ID   tokenauth.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: tokenauth.MetricLoginSuccess, Name: "tokenauth_login_success_total", Help: "Successful password logins."},
	{ID: tokenauth.MetricLoginFailure, Name: "tokenauth_login_failure_total", Help: "Failed password logins."},
	{ID: tokenauth.MetricLoginRateLimited, Name: "tokenauth_login_rate_limited_total", Help: "Logins rejected by the attempt throttle."},
	{ID: tokenauth.MetricOAuthIssued, Name: "tokenauth_oauth_issued_total", Help: "Sessions issued after an OAuth callback."},
	{ID: tokenauth.MetricSessionCreated, Name: "tokenauth_session_created_total", Help: "Sessions created or replaced."},
	{ID: tokenauth.MetricReissueSuccess, Name: "tokenauth_reissue_success_total", Help: "Successful token reissues."},
	{ID: tokenauth.MetricReissueFailure, Name: "tokenauth_reissue_failure_total", Help: "Rejected token reissues."},
	{ID: tokenauth.MetricReissueReplayDetected, Name: "tokenauth_reissue_replay_detected_total", Help: "Reissues presenting a rotated or revoked refresh token."},
	{ID: tokenauth.MetricTokenExpired, Name: "tokenauth_token_expired_total", Help: "Tokens rejected as expired."},
	{ID: tokenauth.MetricTokenMalformed, Name: "tokenauth_token_malformed_total", Help: "Tokens rejected as malformed or badly signed."},
	{ID: tokenauth.MetricTokenCategoryMismatch, Name: "tokenauth_token_category_mismatch_total", Help: "Tokens presented in the wrong role."},
	{ID: tokenauth.MetricLogout, Name: "tokenauth_logout_total", Help: "Logouts that revoked a session."},
	{ID: tokenauth.MetricLogoutNoop, Name: "tokenauth_logout_noop_total", Help: "Logouts with no matching session."},
	{ID: tokenauth.MetricValidateFailure, Name: "tokenauth_validate_failure_total", Help: "Rejected access-token validations."},
	{ID: tokenauth.MetricStoreUnavailable, Name: "tokenauth_store_unavailable_total", Help: "Session store calls that failed."},
}

var HistogramDefs = []HistogramDef{
	{ID: tokenauth.MetricReissueLatency, Name: "tokenauth_reissue_latency_seconds", Help: "Reissue latency."},
	{ID: tokenauth.MetricValidateLatency, Name: "tokenauth_validate_latency_seconds", Help: "Access-token validation latency."},
}

const AuditDroppedName = "tokenauth_audit_dropped_total"

const AuditDroppedHelp = "Audit events dropped under dispatcher backpressure."

// HistogramBoundSuffix names the buckets for exporters that cannot carry a
// le label. The last entry is the unbounded bucket.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed-size array, zero-filling any
// missing buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
