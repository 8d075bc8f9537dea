package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	rotateStatusNotFound int64 = -1
	rotateStatusMismatch int64 = 0
	rotateStatusRotated  int64 = 1
)

// KEYS[1] session key, KEYS[2] old index key, KEYS[3] new index key
// ARGV[1] expected token, ARGV[2] next token, ARGV[3] ttl ms, ARGV[4] subject
const rotateScript = `
local current = redis.call("GET", KEYS[1])
if not current then
  return -1
end
if current ~= ARGV[1] then
  return 0
end
redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
redis.call("DEL", KEYS[2])
redis.call("SET", KEYS[3], ARGV[4], "PX", ARGV[3])
return 1
`

var rotateLua = redis.NewScript(rotateScript)

// KEYS[1] session key, KEYS[2] index key; ARGV[1] token
const deleteIfMatchScript = `
local current = redis.call("GET", KEYS[1])
if current == ARGV[1] then
  redis.call("DEL", KEYS[1])
  redis.call("DEL", KEYS[2])
  return 1
end
return 0
`

var deleteIfMatchLua = redis.NewScript(deleteIfMatchScript)

// RedisStore keeps one string key per subject holding the live refresh
// token, plus a reverse index keyed by token digest. Both share the session
// TTL.
type RedisStore struct {
	redis       redis.UniversalClient
	prefix      string
	indexPrefix string
}

// NewRedisStore creates a RedisStore. Session keys are prefix + ":" +
// subject; reverse-index keys are indexPrefix + ":" + TokenDigest(token).
func NewRedisStore(rdb redis.UniversalClient, prefix, indexPrefix string) *RedisStore {
	if prefix == "" {
		prefix = "refreshToken"
	}
	if indexPrefix == "" {
		indexPrefix = prefix + "Index"
	}
	return &RedisStore{
		redis:       rdb,
		prefix:      prefix,
		indexPrefix: indexPrefix,
	}
}

func (s *RedisStore) key(subject string) string {
	return s.prefix + ":" + subject
}

func (s *RedisStore) indexKey(token string) string {
	return s.indexPrefix + ":" + TokenDigest(token)
}

// Put overwrites the session for subject.
//
//	Performance: 1 GET + 1 MULTI/EXEC (SET, SET, DEL).
func (s *RedisStore) Put(ctx context.Context, subject, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	key := s.key(subject)

	previous, err := s.redis.Get(ctx, key).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, token, ttl)
		pipe.Set(ctx, s.indexKey(token), subject, ttl)
		if previous != "" && previous != token {
			pipe.Del(ctx, s.indexKey(previous))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Get returns the live token for subject.
//
//	Performance: 1 Redis GET.
func (s *RedisStore) Get(ctx context.Context, subject string) (string, error) {
	token, err := s.redis.Get(ctx, s.key(subject)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return token, nil
}

// Delete removes the session and its index entry. Missing keys are ignored.
func (s *RedisStore) Delete(ctx context.Context, subject string) error {
	key := s.key(subject)

	token, err := s.redis.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.Del(ctx, s.indexKey(token))
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// LookupByToken resolves token through the reverse index and confirms the
// subject's live session still holds it, so stale index entries never
// resolve.
func (s *RedisStore) LookupByToken(ctx context.Context, token string) (string, error) {
	subject, err := s.redis.Get(ctx, s.indexKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	current, err := s.Get(ctx, subject)
	if err != nil {
		return "", err
	}
	if current != token {
		return "", ErrNotFound
	}
	return subject, nil
}

// Rotate swaps expected for next in a single Lua script.
//
//	Performance: 1 EVALSHA.
func (s *RedisStore) Rotate(ctx context.Context, subject, expected, next string, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	keys := []string{s.key(subject), s.indexKey(expected), s.indexKey(next)}
	status, err := rotateLua.Run(ctx, s.redis, keys, expected, next, ttl.Milliseconds(), subject).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	switch status {
	case rotateStatusRotated:
		return nil
	case rotateStatusNotFound:
		return ErrNotFound
	case rotateStatusMismatch:
		return ErrMismatch
	default:
		return fmt.Errorf("%w: unexpected rotate status %d", ErrUnavailable, status)
	}
}

// DeleteIfMatch removes the session for subject when it holds token.
func (s *RedisStore) DeleteIfMatch(ctx context.Context, subject, token string) (bool, error) {
	keys := []string{s.key(subject), s.indexKey(token)}
	deleted, err := deleteIfMatchLua.Run(ctx, s.redis, keys, token).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return deleted == 1, nil
}

// Ping checks Redis reachability.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
