// Package users provides tokenauth.UserProvider implementations: a
// Postgres directory (pgx) with embedded goose migrations, and an in-memory
// directory for development and tests.
//
// Identifiers are e-mail addresses, matched case-insensitively. The e-mail
// is also the token subject.
package users
