package password

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrPasswordTooShort is returned by Hash for passwords under the
	// configured minimum length.
	ErrPasswordTooShort = errors.New("password too short")
	ErrPasswordTooLong  = errors.New("password too long")
	// ErrUnknownHashFormat is returned by Verify for hashes that are neither
	// argon2id PHC strings nor bcrypt.
	ErrUnknownHashFormat = errors.New("unknown password hash format")
	ErrMalformedHash     = errors.New("malformed argon2id hash")
)

// Hasher produces argon2id hashes and verifies both argon2id and legacy
// bcrypt ($2a$, $2b$, $2y$) hashes, so accounts created by older systems can
// still log in and be upgraded in place.
type Hasher struct {
	argon *Argon2
}

// NewHasher returns a Hasher that hashes new passwords with cfg.
func NewHasher(cfg Config) (*Hasher, error) {
	a, err := NewArgon2(cfg)
	if err != nil {
		return nil, err
	}
	return &Hasher{argon: a}, nil
}

func (h *Hasher) Hash(password string) (string, error) {
	return h.argon.Hash(password)
}

// Verify reports whether password matches encodedHash. A mismatch is
// (false, nil); an error means the hash itself could not be used.
func (h *Hasher) Verify(password, encodedHash string) (bool, error) {
	switch {
	case isBcrypt(encodedHash):
		if len(password) > h.argon.config.MaxPasswordBytes {
			return false, ErrPasswordTooLong
		}
		err := bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return true, nil
	case strings.HasPrefix(encodedHash, "$"+algorithmID+"$"):
		return h.argon.Verify(password, encodedHash)
	default:
		return false, ErrUnknownHashFormat
	}
}

// NeedsUpgrade is true for every bcrypt hash and for argon2id hashes with
// weaker parameters than the configured ones.
func (h *Hasher) NeedsUpgrade(encodedHash string) (bool, error) {
	if isBcrypt(encodedHash) {
		return true, nil
	}
	return h.argon.NeedsUpgrade(encodedHash)
}

func isBcrypt(encodedHash string) bool {
	return strings.HasPrefix(encodedHash, "$2a$") ||
		strings.HasPrefix(encodedHash, "$2b$") ||
		strings.HasPrefix(encodedHash, "$2y$")
}
