package rate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "loginAttempts"

// Config holds the login budget. MaxAttempts failures inside Cooldown lock
// the identifier (and the IP, when EnableIPThrottle is set) until the window
// expires.
type Config struct {
	Prefix           string
	EnableIPThrottle bool
	MaxAttempts      int
	Cooldown         time.Duration
}

// Limiter counts failed logins in Redis.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	if strings.TrimSpace(cfg.Prefix) == "" {
		cfg.Prefix = defaultPrefix
	}
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

// Check returns ErrRateLimited when the identifier or IP has used up its
// budget. It does not count as an attempt.
func (l *Limiter) Check(ctx context.Context, identifier, ip string) error {
	for _, key := range l.keys(identifier, ip) {
		count, err := l.redis.Get(ctx, key).Int64()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		if count >= int64(l.config.MaxAttempts) {
			return ErrRateLimited
		}
	}
	return nil
}

// Increment records one failed attempt. It returns ErrRateLimited only when
// the counter is already past the budget, which happens when concurrent
// attempts slipped through Check.
func (l *Limiter) Increment(ctx context.Context, identifier, ip string) error {
	limited := false
	for _, key := range l.keys(identifier, ip) {
		count, err := l.incrementWithTTL(ctx, key)
		if err != nil {
			return err
		}
		if count > int64(l.config.MaxAttempts) {
			limited = true
		}
	}
	if limited {
		return ErrRateLimited
	}
	return nil
}

// Reset clears the counters after a successful login.
func (l *Limiter) Reset(ctx context.Context, identifier, ip string) error {
	if err := l.redis.Del(ctx, l.keys(identifier, ip)...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Attempts returns the failure count for identifier. Missing keys read as
// zero so the answer does not reveal whether the account exists.
func (l *Limiter) Attempts(ctx context.Context, identifier string) (int, error) {
	count, err := l.redis.Get(ctx, l.identifierKey(identifier)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

func (l *Limiter) keys(identifier, ip string) []string {
	keys := []string{l.identifierKey(identifier)}
	if l.config.EnableIPThrottle && ip != "" {
		keys = append(keys, l.ipKey(ip))
	}
	return keys
}

func (l *Limiter) identifierKey(identifier string) string {
	return l.digestKey("u", strings.ToLower(strings.TrimSpace(identifier)))
}

func (l *Limiter) ipKey(ip string) string {
	return l.digestKey("ip", ip)
}

// digestKey hashes value so client-controlled input never lands in a key verbatim.
func (l *Limiter) digestKey(kind, value string) string {
	sum := sha256.Sum256([]byte(value))
	return l.config.Prefix + ":" + kind + ":" + hex.EncodeToString(sum[:])
}

// incrScript sets the window expiry only on the first hit.
var incrScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

func (l *Limiter) incrementWithTTL(ctx context.Context, key string) (int64, error) {
	count, err := incrScript.Run(ctx, l.redis, []string{key}, l.config.Cooldown.Milliseconds()).Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return count, nil
}
