package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	algorithmID  = "argon2id"
	minPassBytes = 10
)

// DefaultMaxPasswordBytes caps password input when Config.MaxPasswordBytes
// is zero.
const DefaultMaxPasswordBytes = 1024

// Floors for both configured and decoded parameters. A stored hash below
// them is rejected rather than verified.
var floor = Config{
	Memory:      8 * 1024,
	Time:        1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   16,
}

// Config holds argon2id cost parameters and the accepted password length
// range in bytes. Zero bounds take the package defaults.
type Config struct {
	Memory           uint32
	Time             uint32
	Parallelism      uint8
	SaltLength       uint32
	KeyLength        uint32
	MinPasswordBytes int
	MaxPasswordBytes int
}

// Argon2 hashes and verifies argon2id PHC strings. Safe for concurrent use.
type Argon2 struct {
	config Config
}

// phc is a decoded "$argon2id$v=19$m=..,t=..,p=..$salt$key" string.
type phc struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

func (p phc) params() string {
	return fmt.Sprintf("m=%d,t=%d,p=%d", p.memory, p.time, p.parallelism)
}

func (p phc) String() string {
	return strings.Join([]string{
		"",
		algorithmID,
		fmt.Sprintf("v=%d", argon2.Version),
		p.params(),
		base64.StdEncoding.EncodeToString(p.salt),
		base64.StdEncoding.EncodeToString(p.key),
	}, "$")
}

func (p phc) derive(password string) []byte {
	return argon2.IDKey([]byte(password), p.salt, p.time, p.memory, p.parallelism, uint32(len(p.key)))
}

func NewArgon2(cfg Config) (*Argon2, error) {
	switch {
	case cfg.Memory < floor.Memory:
		return nil, fmt.Errorf("password: memory must be >= %d KiB", floor.Memory)
	case cfg.Time < floor.Time:
		return nil, fmt.Errorf("password: time must be >= %d", floor.Time)
	case cfg.Parallelism < floor.Parallelism:
		return nil, fmt.Errorf("password: parallelism must be >= %d", floor.Parallelism)
	case cfg.SaltLength < floor.SaltLength:
		return nil, fmt.Errorf("password: salt length must be >= %d", floor.SaltLength)
	case cfg.KeyLength < floor.KeyLength:
		return nil, fmt.Errorf("password: key length must be >= %d", floor.KeyLength)
	}

	if cfg.MinPasswordBytes <= 0 {
		cfg.MinPasswordBytes = minPassBytes
	}
	if cfg.MaxPasswordBytes <= 0 {
		cfg.MaxPasswordBytes = DefaultMaxPasswordBytes
	}
	if cfg.MaxPasswordBytes < cfg.MinPasswordBytes {
		return nil, fmt.Errorf("password: max length %d below min length %d", cfg.MaxPasswordBytes, cfg.MinPasswordBytes)
	}

	return &Argon2{config: cfg}, nil
}

// Hash returns a PHC-encoded argon2id hash of password with a fresh salt.
// Password bytes are used exactly as provided (no Unicode normalization).
func (a *Argon2) Hash(password string) (string, error) {
	if len(password) < a.config.MinPasswordBytes {
		return "", fmt.Errorf("%w: at least %d bytes", ErrPasswordTooShort, a.config.MinPasswordBytes)
	}
	if err := a.checkMax(password); err != nil {
		return "", err
	}

	p := phc{
		memory:      a.config.Memory,
		time:        a.config.Time,
		parallelism: a.config.Parallelism,
		salt:        make([]byte, a.config.SaltLength),
		key:         make([]byte, a.config.KeyLength),
	}
	if _, err := rand.Read(p.salt); err != nil {
		return "", err
	}
	p.key = p.derive(password)

	return p.String(), nil
}

// Verify compares password against encodedHash in constant time. The cost
// parameters come from the hash, not from the receiver's config.
func (a *Argon2) Verify(password string, encodedHash string) (bool, error) {
	if err := a.checkMax(password); err != nil {
		return false, err
	}
	p, err := decodePHC(encodedHash)
	if err != nil {
		return false, err
	}

	return subtle.ConstantTimeCompare(p.derive(password), p.key) == 1, nil
}

// NeedsUpgrade reports whether encodedHash was produced with weaker
// parameters than the receiver's config, or with a different key length.
func (a *Argon2) NeedsUpgrade(encodedHash string) (bool, error) {
	p, err := decodePHC(encodedHash)
	if err != nil {
		return false, err
	}

	weaker := p.memory < a.config.Memory ||
		p.time < a.config.Time ||
		p.parallelism < a.config.Parallelism
	return weaker || uint32(len(p.key)) != a.config.KeyLength, nil
}

func (a *Argon2) checkMax(password string) error {
	if len(password) > a.config.MaxPasswordBytes {
		return ErrPasswordTooLong
	}
	return nil
}

func decodePHC(encodedHash string) (phc, error) {
	var p phc

	fields := strings.Split(encodedHash, "$")
	if len(fields) != 6 || fields[0] != "" || fields[1] != algorithmID {
		return p, fmt.Errorf("%w: not an argon2id PHC string", ErrMalformedHash)
	}

	var version int
	if _, err := fmt.Sscanf(fields[2], "v=%d", &version); err != nil {
		return p, fmt.Errorf("%w: version", ErrMalformedHash)
	}
	if version != argon2.Version {
		return p, fmt.Errorf("%w: unsupported argon2 version %d", ErrMalformedHash, version)
	}

	if _, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &p.memory, &p.time, &p.parallelism); err != nil {
		return p, fmt.Errorf("%w: parameters", ErrMalformedHash)
	}
	// Sscanf ignores trailing input; re-encoding catches extra or reordered fields.
	if p.params() != fields[3] {
		return p, fmt.Errorf("%w: parameters", ErrMalformedHash)
	}
	if p.memory < floor.Memory || p.time < floor.Time || p.parallelism < floor.Parallelism {
		return p, fmt.Errorf("%w: parameters below floor", ErrMalformedHash)
	}

	var err error
	if p.salt, err = base64.StdEncoding.DecodeString(fields[4]); err != nil || uint32(len(p.salt)) < floor.SaltLength {
		return p, fmt.Errorf("%w: salt", ErrMalformedHash)
	}
	if p.key, err = base64.StdEncoding.DecodeString(fields[5]); err != nil || len(p.key) == 0 {
		return p, fmt.Errorf("%w: key", ErrMalformedHash)
	}

	return p, nil
}
