package tokenauth

import "context"

type clientIPContextKey struct{}
type userAgentContextKey struct{}
type requestIDContextKey struct{}
type authResultContextKey struct{}

// WithClientIP attaches the caller's IP address to ctx. The Engine uses it
// for per-IP login throttling and audit events.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// WithUserAgent attaches the HTTP User-Agent string to ctx for audit events.
func WithUserAgent(ctx context.Context, userAgent string) context.Context {
	return context.WithValue(ctx, userAgentContextKey{}, userAgent)
}

// WithRequestID attaches a request correlation ID to ctx. Audit events carry
// it so they can be joined with request logs.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDContextKey{}, id)
}

// RequestIDFromContext returns the request ID set by [WithRequestID].
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDContextKey{}).(string)
	return id
}

// WithAuthResult stores the authenticated principal in ctx.
func WithAuthResult(ctx context.Context, res *AuthResult) context.Context {
	return context.WithValue(ctx, authResultContextKey{}, res)
}

// AuthResultFromContext returns the principal stored by [WithAuthResult].
func AuthResultFromContext(ctx context.Context) (*AuthResult, bool) {
	if ctx == nil {
		return nil, false
	}
	res, ok := ctx.Value(authResultContextKey{}).(*AuthResult)
	return res, ok && res != nil
}

// ClearAuthResult returns a ctx in which no principal is visible. Used after
// logout so downstream handlers do not see the revoked identity.
func ClearAuthResult(ctx context.Context) context.Context {
	return context.WithValue(ctx, authResultContextKey{}, (*AuthResult)(nil))
}

// ClientIPFromContext returns the address recorded by WithClientIP.
func ClientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}

func userAgentFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	userAgent, _ := ctx.Value(userAgentContextKey{}).(string)
	return userAgent
}
