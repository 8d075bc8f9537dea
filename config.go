package tokenauth

import (
	"errors"
	"net/http"
	"strings"
	"time"
)

// Config is the full Engine configuration. Start from [DefaultConfig] and
// override what differs; [Config.Validate] runs inside [Builder.Build].
type Config struct {
	JWT      JWTConfig
	Session  SessionConfig
	Cookie   CookieConfig
	Logout   LogoutConfig
	OAuth    OAuthConfig
	Password PasswordConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
	Security SecurityConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig holds token lifetimes and signing key material.
type JWTConfig struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod string // "hs256" (default) or "ed25519"
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Leeway        time.Duration
	KeyID         string
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls the refresh session store. Keys are
// RedisPrefix + ":" + subject.
type SessionConfig struct {
	RedisPrefix      string
	IndexPrefix      string
	OperationTimeout time.Duration
}

/*
====================================
TRANSPORT CONFIG
====================================
*/

// CookieConfig names the transport channels. One name is used everywhere a
// token is minted, read or cleared.
type CookieConfig struct {
	RefreshName  string
	AccessHeader string
	AccessName   string // cookie used for redirect-based delivery
	Path         string
	Domain       string
	Secure       bool
	SameSite     http.SameSite
}

// LogoutConfig is the method+path pair the logout boundary filter matches.
type LogoutConfig struct {
	Path    string
	Methods []string
}

// OAuthConfig controls redirect-based delivery after an OAuth callback.
type OAuthConfig struct {
	RedirectURL string
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds argon2id parameters for new hashes.
type PasswordConfig struct {
	Memory         uint32 // in KB
	Time           uint32
	Parallelism    uint8
	SaltLength     uint32
	KeyLength      uint32
	UpgradeOnLogin bool
}

// AuditConfig controls the async audit dispatcher. SinkTimeout bounds each
// sink write; zero disables the deadline.
type AuditConfig struct {
	Enabled     bool
	BufferSize  int
	DropIfFull  bool
	SinkTimeout time.Duration
}

type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig controls login throttling. Throttling needs Redis and is
// skipped when the Engine is built without a Redis client.
type SecurityConfig struct {
	EnableLoginThrottle   bool
	EnableIPThrottle      bool
	MaxLoginAttempts      int
	LoginCooldownDuration time.Duration
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the production defaults: 10 minute access tokens,
// 24 hour refresh sessions, Secure + SameSite=Strict cookies. Signing keys
// are left empty and must be supplied.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:     10 * time.Minute,
			RefreshTTL:    24 * time.Hour,
			SigningMethod: "hs256",
		},
		Session: SessionConfig{
			RedisPrefix:      "refreshToken",
			IndexPrefix:      "refreshTokenIndex",
			OperationTimeout: 2 * time.Second,
		},
		Cookie: CookieConfig{
			RefreshName:  "refresh_token",
			AccessHeader: "access_token",
			AccessName:   "access_token",
			Path:         "/",
			Secure:       true,
			SameSite:     http.SameSiteStrictMode,
		},
		Logout: LogoutConfig{
			Path:    "/logout",
			Methods: []string{http.MethodPost, http.MethodDelete},
		},
		OAuth: OAuthConfig{
			RedirectURL: "/",
		},
		Password: PasswordConfig{
			Memory:         65536,
			Time:           3,
			Parallelism:    2,
			SaltLength:     16,
			KeyLength:      32,
			UpgradeOnLogin: true,
		},
		Audit: AuditConfig{
			Enabled:     false,
			BufferSize:  1024,
			DropIfFull:  true,
			SinkTimeout: time.Second,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		Security: SecurityConfig{
			EnableLoginThrottle:   true,
			EnableIPThrottle:      false,
			MaxLoginAttempts:      5,
			LoginCooldownDuration: 15 * time.Minute,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	out.Logout.Methods = append([]string(nil), cfg.Logout.Methods...)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks the configuration for values the Engine cannot run with.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if c.JWT.RefreshTTL < c.JWT.AccessTTL {
		return errors.New("JWT RefreshTTL must be >= AccessTTL")
	}

	switch c.JWT.SigningMethod {
	case "hs256":
		if len(c.JWT.PrivateKey) < 32 {
			return errors.New("hs256 requires a PrivateKey of at least 32 bytes")
		}
	case "ed25519":
		if len(c.JWT.PrivateKey) == 0 {
			return errors.New("ed25519 requires PrivateKey")
		}
		if len(c.JWT.PublicKey) == 0 {
			return errors.New("ed25519 requires PublicKey")
		}
	default:
		return errors.New("unsupported JWT signing method")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}

	// Session
	if strings.TrimSpace(c.Session.RedisPrefix) == "" {
		return errors.New("Session RedisPrefix must be set")
	}
	if strings.TrimSpace(c.Session.IndexPrefix) == "" {
		return errors.New("Session IndexPrefix must be set")
	}
	if c.Session.IndexPrefix == c.Session.RedisPrefix {
		return errors.New("Session IndexPrefix must differ from RedisPrefix")
	}
	if c.Session.OperationTimeout <= 0 {
		return errors.New("Session OperationTimeout must be > 0")
	}

	// Transport
	if strings.TrimSpace(c.Cookie.RefreshName) == "" {
		return errors.New("Cookie RefreshName must be set")
	}
	if strings.TrimSpace(c.Cookie.AccessHeader) == "" {
		return errors.New("Cookie AccessHeader must be set")
	}
	if c.Cookie.SameSite == http.SameSiteNoneMode && !c.Cookie.Secure {
		return errors.New("Cookie SameSite=None requires Secure")
	}
	if !strings.HasPrefix(c.Logout.Path, "/") {
		return errors.New("Logout Path must start with /")
	}
	if len(c.Logout.Methods) == 0 {
		return errors.New("Logout Methods must not be empty")
	}
	for _, m := range c.Logout.Methods {
		if m != http.MethodPost && m != http.MethodDelete {
			return errors.New("Logout Methods may only contain POST and DELETE")
		}
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	// Security
	if c.Security.EnableLoginThrottle {
		if c.Security.MaxLoginAttempts <= 0 {
			return errors.New("Security MaxLoginAttempts must be > 0")
		}
		if c.Security.LoginCooldownDuration <= 0 {
			return errors.New("Security LoginCooldownDuration must be > 0")
		}
	}

	return nil
}
