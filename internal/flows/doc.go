// Package flows contains pure-function orchestrators for every Engine operation.
//
// Each flow function (RunIssue, RunLogin, RunReissue, RunLogout,
// RunValidateAccess) accepts a typed dependency struct and returns a result
// carrying a failure kind. The root package maps failure kinds to public
// sentinel errors, metrics, and audit events.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import tokenauth (to avoid import cycles).
//   - Perform I/O directly; all I/O goes through dependency interfaces.
package flows
