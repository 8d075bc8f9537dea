package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

var (
	// ErrNotFound means no live session exists for the subject or token.
	ErrNotFound = errors.New("session not found")
	// ErrMismatch means a session exists but holds a different token than
	// the one presented.
	ErrMismatch = errors.New("session token mismatch")
	// ErrUnavailable wraps every infrastructure failure of a store.
	ErrUnavailable = errors.New("session store unavailable")
	// ErrInvalidTTL is returned for a non-positive TTL; stores never keep a
	// session without expiry.
	ErrInvalidTTL = errors.New("session ttl must be positive")
)

//go:generate mockgen -source=session.go -destination=../mocks/session_store.go -package=mocks Store

// Store is the refresh-session persistence contract. Implementations must be
// safe for concurrent use. Put and Delete are idempotent; Rotate and
// DeleteIfMatch are atomic with respect to each other.
type Store interface {
	// Put stores token as the live session for subject, replacing any
	// previous one.
	Put(ctx context.Context, subject, token string, ttl time.Duration) error
	// Get returns the live token for subject or ErrNotFound.
	Get(ctx context.Context, subject string) (string, error)
	// Delete removes the session for subject. Deleting an absent session
	// is not an error.
	Delete(ctx context.Context, subject string) error
	// LookupByToken returns the subject whose live session holds token, or
	// ErrNotFound.
	LookupByToken(ctx context.Context, token string) (string, error)
	// Rotate replaces expected with next for subject only if expected is
	// still the live token. It returns ErrNotFound when no session exists
	// and ErrMismatch when another token is live.
	Rotate(ctx context.Context, subject, expected, next string, ttl time.Duration) error
	// DeleteIfMatch removes the session for subject only if it holds token.
	// It reports whether a session was removed.
	DeleteIfMatch(ctx context.Context, subject, token string) (bool, error)
	// Ping checks store reachability.
	Ping(ctx context.Context) error
}

// Exists reports whether token is the live refresh token of some session.
func Exists(ctx context.Context, s Store, token string) (bool, error) {
	_, err := s.LookupByToken(ctx, token)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

// TokenDigest is the hex SHA-256 of a token. Reverse-index keys use the
// digest so raw tokens never appear in key names.
func TokenDigest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
