// Package middleware holds the HTTP adapters that sit in front of handlers:
// access-token guards and request logging.
//
// # Guards
//
//   - [Guard] rejects requests without a valid access token (401).
//   - [Optional] attaches the caller's identity when a valid access token is
//     present and passes everything else through.
//   - [RequireRole] narrows a guarded route to a set of roles (403).
//
// Guards read the configured access header first and fall back to
// "Authorization: Bearer". They never consult the session store; the
// Engine's ValidateAccess is stateless.
package middleware
