// Package tokenauth issues short-lived access tokens and long-lived refresh
// tokens, keeps one revocable refresh session per identity in a shared
// store, rotates both tokens on reissue, and revokes sessions on logout.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// tokenauth is the public surface. It exposes [Engine], [Builder], [Config]
// and value types. Flow orchestration, rate limiting and audit dispatch live
// under internal/. Token encoding lives in the jwt package and session
// persistence in the session package, both usable on their own.
//
// HTTP delivery (cookies, headers, redirects, the logout boundary filter) is
// built on top of the Engine in httpapi and middleware.
//
// # What this package must NOT do
//
//   - Trust any claim of a token before its category has been checked.
//   - Keep more than one live refresh session per subject.
//   - Report a store outage as a token error, or a token error as an outage.
package tokenauth
