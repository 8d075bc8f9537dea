// Package session owns server-side refresh-token sessions.
//
// A session is a single record per subject whose value is the refresh token
// currently allowed to be exchanged, with a store-enforced TTL equal to the
// refresh validity window. Issuance overwrites the record, rotation swaps it
// atomically, and logout deletes it.
//
// The package does not parse tokens or make authorization decisions; it only
// compares opaque token strings.
//
// Two implementations ship with the package: [RedisStore] for production and
// [MemoryStore] for tests and single-process development.
package session
