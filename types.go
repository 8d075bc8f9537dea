package tokenauth

import (
	"context"
	"io"
	"time"

	internalaudit "github.com/boardhub/tokenauth/internal/audit"
)

// Identity is a resolved principal: the subject key (email or another unique
// identifier), an optional display username, and a single role label.
// The Engine trusts whatever Identity the caller supplies to Issue.
type Identity struct {
	Subject  string
	Username string
	Role     string
}

// TokenPair is the result of issuance and reissue.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// LoginResult is returned by [Engine.Login].
type LoginResult struct {
	Identity Identity
	Tokens   TokenPair
}

// AuthResult is returned by [Engine.ValidateAccess].
type AuthResult struct {
	Subject   string
	Username  string
	Role      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// LogoutResult reports the outcome of [Engine.Logout]. Revoked is false when
// the session was already gone; that is still a success.
type LogoutResult struct {
	Subject string
	Revoked bool
}

//go:generate mockgen -destination=mocks/user_provider.go -package=mocks . UserProvider

// UserProvider is the credential directory consulted by [Engine.Login].
// GetUserByIdentifier must return an error wrapping [ErrUserNotFound] for
// unknown identifiers; any other error is treated as an outage.
type UserProvider interface {
	GetUserByIdentifier(ctx context.Context, identifier string) (UserRecord, error)
	UpdatePasswordHash(ctx context.Context, subject, newHash string) error
}

// UserRecord is the account record returned by [UserProvider].
type UserRecord struct {
	Subject      string
	Username     string
	Role         string
	PasswordHash string
}

// AuditEvent is the structured audit record emitted by Engine operations.
type AuditEvent = internalaudit.Event

// AuditSink receives audit events from the async dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink drops every event.
type NoOpSink = internalaudit.NoOpSink

// MultiSink delivers each event to every sink in order.
type MultiSink = internalaudit.MultiSink

// ChannelSink forwards events to a buffered channel.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink returns a ChannelSink with the given buffer.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink returns a JSONWriterSink writing to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}
