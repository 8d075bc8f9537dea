// Package config loads tokenauthd settings from YAML and the environment
// and converts them into a tokenauth.Config.
package config

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"github.com/boardhub/tokenauth"
)

// Config is the daemon configuration. Values are resolved in this order:
//  1. explicit --config path;
//  2. CONFIG_PATH;
//  3. ./tokenauth.yaml;
//  4. environment only.
//
// Environment variables always override file values. A .env file in the
// working directory is loaded first when present.
type Config struct {
	Env      string         `yaml:"env" env:"ENV" env-default:"local"`
	HTTP     HTTPConfig     `yaml:"http"`
	Redis    RedisConfig    `yaml:"redis"`
	DB       DBConfig       `yaml:"db"`
	JWT      JWTConfig      `yaml:"jwt"`
	Session  SessionConfig  `yaml:"session"`
	Cookie   CookieConfig   `yaml:"cookie"`
	Logout   LogoutConfig   `yaml:"logout"`
	OAuth    OAuthConfig    `yaml:"oauth"`
	Password PasswordConfig `yaml:"password"`
	Security SecurityConfig `yaml:"security"`
	Audit    AuditConfig    `yaml:"audit"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Log      LogConfig      `yaml:"log"`
}

type HTTPConfig struct {
	Host            string        `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port            string        `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"10s"`
	// TrustProxy reads the client IP from X-Forwarded-For. Off, the peer
	// address is used, so clients cannot pick their own throttle bucket.
	TrustProxy      bool          `yaml:"trust_proxy" env:"HTTP_TRUST_PROXY" env-default:"false"`
}

func (h HTTPConfig) Addr() string {
	return net.JoinHostPort(h.Host, h.Port)
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

type DBConfig struct {
	DatabaseURL string `yaml:"db_url" env:"DATABASE_URL"`
}

type JWTConfig struct {
	SigningMethod  string        `yaml:"signing_method" env:"JWT_SIGNING_METHOD" env-default:"hs256"`
	Secret         string        `yaml:"secret" env:"JWT_SECRET"`
	PrivateKeyFile string        `yaml:"private_key_file" env:"JWT_PRIVATE_KEY_FILE"`
	PublicKeyFile  string        `yaml:"public_key_file" env:"JWT_PUBLIC_KEY_FILE"`
	AccessTTL      time.Duration `yaml:"access_ttl" env:"JWT_ACCESS_TTL" env-default:"10m"`
	RefreshTTL     time.Duration `yaml:"refresh_ttl" env:"JWT_REFRESH_TTL" env-default:"24h"`
	Issuer         string        `yaml:"issuer" env:"JWT_ISSUER"`
	Leeway         time.Duration `yaml:"leeway" env:"JWT_LEEWAY" env-default:"0s"`
	KeyID          string        `yaml:"key_id" env:"JWT_KEY_ID"`
}

type SessionConfig struct {
	RedisPrefix      string        `yaml:"redis_prefix" env:"SESSION_REDIS_PREFIX" env-default:"refreshToken"`
	IndexPrefix      string        `yaml:"index_prefix" env:"SESSION_INDEX_PREFIX" env-default:"refreshTokenIndex"`
	OperationTimeout time.Duration `yaml:"operation_timeout" env:"SESSION_OPERATION_TIMEOUT" env-default:"2s"`
}

type CookieConfig struct {
	RefreshName  string `yaml:"refresh_name" env:"COOKIE_REFRESH_NAME" env-default:"refresh_token"`
	AccessHeader string `yaml:"access_header" env:"COOKIE_ACCESS_HEADER" env-default:"access_token"`
	AccessName   string `yaml:"access_name" env:"COOKIE_ACCESS_NAME" env-default:"access_token"`
	Path         string `yaml:"path" env:"COOKIE_PATH" env-default:"/"`
	Domain       string `yaml:"domain" env:"COOKIE_DOMAIN"`
	Secure       bool   `yaml:"secure" env:"COOKIE_SECURE" env-default:"true"`
	SameSite     string `yaml:"same_site" env:"COOKIE_SAME_SITE" env-default:"strict"`
}

type LogoutConfig struct {
	Path    string   `yaml:"path" env:"LOGOUT_PATH" env-default:"/logout"`
	Methods []string `yaml:"methods" env:"LOGOUT_METHODS" env-default:"POST,DELETE"`
}

type OAuthConfig struct {
	RedirectURL    string `yaml:"redirect_url" env:"OAUTH_REDIRECT_URL" env-default:"/"`
	// TrustForwarded enables the callback route and takes the identity from
	// X-Forwarded-* headers set by an authenticating proxy.
	TrustForwarded bool   `yaml:"trust_forwarded" env:"OAUTH_TRUST_FORWARDED" env-default:"false"`
	DefaultRole    string `yaml:"default_role" env:"OAUTH_DEFAULT_ROLE" env-default:"ROLE_USER"`
}

type PasswordConfig struct {
	Memory         uint32 `yaml:"memory" env:"PASSWORD_MEMORY" env-default:"65536"`
	Time           uint32 `yaml:"time" env:"PASSWORD_TIME" env-default:"3"`
	Parallelism    uint8  `yaml:"parallelism" env:"PASSWORD_PARALLELISM" env-default:"2"`
	UpgradeOnLogin bool   `yaml:"upgrade_on_login" env:"PASSWORD_UPGRADE_ON_LOGIN" env-default:"true"`
}

type SecurityConfig struct {
	EnableLoginThrottle   bool          `yaml:"login_throttle" env:"SECURITY_LOGIN_THROTTLE" env-default:"true"`
	EnableIPThrottle      bool          `yaml:"ip_throttle" env:"SECURITY_IP_THROTTLE" env-default:"false"`
	MaxLoginAttempts      int           `yaml:"max_login_attempts" env:"SECURITY_MAX_LOGIN_ATTEMPTS" env-default:"5"`
	LoginCooldownDuration time.Duration `yaml:"login_cooldown" env:"SECURITY_LOGIN_COOLDOWN" env-default:"15m"`
}

type AuditConfig struct {
	Enabled     bool          `yaml:"enabled" env:"AUDIT_ENABLED" env-default:"true"`
	BufferSize  int           `yaml:"buffer_size" env:"AUDIT_BUFFER_SIZE" env-default:"1024"`
	DropIfFull  bool          `yaml:"drop_if_full" env:"AUDIT_DROP_IF_FULL" env-default:"true"`
	SinkTimeout time.Duration `yaml:"sink_timeout" env:"AUDIT_SINK_TIMEOUT" env-default:"1s"`
	NATSURL     string        `yaml:"nats_url" env:"AUDIT_NATS_URL"`
	NATSSubject string        `yaml:"nats_subject" env:"AUDIT_NATS_SUBJECT" env-default:"tokenauth.audit"`
}

type MetricsConfig struct {
	Enabled          bool `yaml:"enabled" env:"METRICS_ENABLED" env-default:"true"`
	LatencyHistogram bool `yaml:"latency_histograms" env:"METRICS_LATENCY_HISTOGRAMS" env-default:"true"`
}

type LogConfig struct {
	Level      string        `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Dev        bool          `yaml:"dev" env:"LOG_DEV" env-default:"false"`
	File       string        `yaml:"file" env:"LOG_FILE"`
	MaxAge     time.Duration `yaml:"max_age" env:"LOG_MAX_AGE" env-default:"168h"`
	RotateTime time.Duration `yaml:"rotation_time" env:"LOG_ROTATION_TIME" env-default:"24h"`
}

// MustLoad is Load that panics on error.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

func Load(path string) (*Config, error) {
	// .env is optional.
	_ = godotenv.Load()

	var cfg Config

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		if _, err := os.Stat("tokenauth.yaml"); err == nil {
			path = "tokenauth.yaml"
		}
	}

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", path, err)
		}
		// ReadConfig overlays the environment after parsing the file.
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		return &cfg, nil
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read env: %w", err)
	}
	return &cfg, nil
}

// Engine converts the file-level settings into an engine configuration and
// loads key material. The result is not validated; Builder.Build does that.
func (c *Config) Engine() (tokenauth.Config, error) {
	out := tokenauth.DefaultConfig()

	out.JWT.SigningMethod = strings.ToLower(strings.TrimSpace(c.JWT.SigningMethod))
	out.JWT.AccessTTL = c.JWT.AccessTTL
	out.JWT.RefreshTTL = c.JWT.RefreshTTL
	out.JWT.Issuer = c.JWT.Issuer
	out.JWT.Leeway = c.JWT.Leeway
	out.JWT.KeyID = c.JWT.KeyID

	switch out.JWT.SigningMethod {
	case "ed25519":
		priv, err := readKey(c.JWT.PrivateKeyFile)
		if err != nil {
			return tokenauth.Config{}, fmt.Errorf("jwt private key: %w", err)
		}
		pub, err := readKey(c.JWT.PublicKeyFile)
		if err != nil {
			return tokenauth.Config{}, fmt.Errorf("jwt public key: %w", err)
		}
		out.JWT.PrivateKey = priv
		out.JWT.PublicKey = pub
	default:
		out.JWT.PrivateKey = []byte(c.JWT.Secret)
	}

	out.Session.RedisPrefix = c.Session.RedisPrefix
	out.Session.IndexPrefix = c.Session.IndexPrefix
	out.Session.OperationTimeout = c.Session.OperationTimeout

	sameSite, err := parseSameSite(c.Cookie.SameSite)
	if err != nil {
		return tokenauth.Config{}, err
	}
	out.Cookie = tokenauth.CookieConfig{
		RefreshName:  c.Cookie.RefreshName,
		AccessHeader: c.Cookie.AccessHeader,
		AccessName:   c.Cookie.AccessName,
		Path:         c.Cookie.Path,
		Domain:       c.Cookie.Domain,
		Secure:       c.Cookie.Secure,
		SameSite:     sameSite,
	}

	out.Logout.Path = c.Logout.Path
	out.Logout.Methods = make([]string, 0, len(c.Logout.Methods))
	for _, m := range c.Logout.Methods {
		out.Logout.Methods = append(out.Logout.Methods, strings.ToUpper(strings.TrimSpace(m)))
	}
	out.OAuth.RedirectURL = c.OAuth.RedirectURL

	out.Password.Memory = c.Password.Memory
	out.Password.Time = c.Password.Time
	out.Password.Parallelism = c.Password.Parallelism
	out.Password.UpgradeOnLogin = c.Password.UpgradeOnLogin

	out.Security = tokenauth.SecurityConfig{
		EnableLoginThrottle:   c.Security.EnableLoginThrottle,
		EnableIPThrottle:      c.Security.EnableIPThrottle,
		MaxLoginAttempts:      c.Security.MaxLoginAttempts,
		LoginCooldownDuration: c.Security.LoginCooldownDuration,
	}

	out.Audit = tokenauth.AuditConfig{
		Enabled:     c.Audit.Enabled,
		BufferSize:  c.Audit.BufferSize,
		DropIfFull:  c.Audit.DropIfFull,
		SinkTimeout: c.Audit.SinkTimeout,
	}
	out.Metrics = tokenauth.MetricsConfig{
		Enabled:                 c.Metrics.Enabled,
		EnableLatencyHistograms: c.Metrics.LatencyHistogram,
	}

	return out, nil
}

func readKey(path string) ([]byte, error) {
	if path == "" {
		return nil, fmt.Errorf("key file not configured")
	}
	return os.ReadFile(path)
}

func parseSameSite(v string) (http.SameSite, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "strict":
		return http.SameSiteStrictMode, nil
	case "lax":
		return http.SameSiteLaxMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	default:
		return 0, fmt.Errorf("unknown cookie same_site %q", v)
	}
}
