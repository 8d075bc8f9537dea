package tokenauth

import (
	"errors"
	"time"

	internalaudit "github.com/boardhub/tokenauth/internal/audit"
	"github.com/boardhub/tokenauth/internal/rate"
	"github.com/boardhub/tokenauth/jwt"
	"github.com/boardhub/tokenauth/password"
	"github.com/boardhub/tokenauth/session"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Builder assembles an [Engine]. A Builder is single-use: the second call
// to Build fails.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	store  session.Store

	userProvider UserProvider
	auditSink    AuditSink
	logger       *zap.Logger
	now          func() time.Time

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis backs the session store and the login throttle with client.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithSessionStore installs a custom store. It takes precedence over the
// Redis-backed store, but Redis is still used for login throttling.
func (b *Builder) WithSessionStore(store session.Store) *Builder {
	b.store = store
	return b
}

func (b *Builder) WithUserProvider(up UserProvider) *Builder {
	b.userProvider = up
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock replaces time.Now for token minting and validation.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns a ready Engine. Either a
// Redis client or a session store must be supplied.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// -------- SESSION STORE --------
	store := b.store
	if store == nil {
		if b.redis == nil {
			return nil, errors.New("redis client or session store required")
		}
		store = session.NewRedisStore(b.redis, cfg.Session.RedisPrefix, cfg.Session.IndexPrefix)
	}

	// -------- TOKEN CODEC --------
	now := b.now
	if now == nil {
		now = time.Now
	}
	jwtManager, err := jwt.NewManager(jwt.Config{
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cfg.JWT.PrivateKey,
		PublicKey:     cfg.JWT.PublicKey,
		Issuer:        cfg.JWT.Issuer,
		Leeway:        cfg.JWT.Leeway,
		KeyID:         cfg.JWT.KeyID,
		Now:           now,
	})
	if err != nil {
		return nil, err
	}

	// -------- PASSWORDS --------
	hasher, err := password.NewHasher(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	// -------- LOGIN THROTTLE --------
	var limiter *rate.Limiter
	if b.redis != nil && cfg.Security.EnableLoginThrottle {
		limiter = rate.New(b.redis, rate.Config{
			Prefix:           cfg.Session.RedisPrefix + "LoginAttempts",
			EnableIPThrottle: cfg.Security.EnableIPThrottle,
			MaxAttempts:      cfg.Security.MaxLoginAttempts,
			Cooldown:         cfg.Security.LoginCooldownDuration,
		})
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	b.built = true

	e := &Engine{
		config:       cfg,
		store:        store,
		jwtManager:   jwtManager,
		rateLimiter:  limiter,
		hasher:       hasher,
		userProvider: b.userProvider,
		metrics:      NewMetrics(cfg.Metrics),
		logger:       logger.Named("tokenauth"),
		now:          now,
		audit: internalaudit.NewDispatcher(internalaudit.Config{
			Enabled:     cfg.Audit.Enabled,
			BufferSize:  cfg.Audit.BufferSize,
			DropIfFull:  cfg.Audit.DropIfFull,
			SinkTimeout: cfg.Audit.SinkTimeout,
		}, b.auditSink),
	}
	e.flows = e.buildFlowDeps()

	return e, nil
}
