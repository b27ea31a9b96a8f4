package chess

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "sparring"

var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisStore keeps sessions as JSON values with a TTL; the busy lock is a SETNX key.
type RedisStore struct {
	rdb    redis.UniversalClient
	prefix string
}

func NewRedisStore(rdb redis.UniversalClient) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: redisKeyPrefix}
}

func (s *RedisStore) keySession(id string) string {
	return s.prefix + ":session:" + strings.TrimSpace(id)
}

func (s *RedisStore) keyPlayer(id string) string {
	return s.prefix + ":player:" + strings.TrimSpace(id)
}

func (s *RedisStore) keyLock(id string) string {
	return s.prefix + ":lock:" + strings.TrimSpace(id)
}

func (s *RedisStore) Load(ctx context.Context, id string) (*Session, error) {
	raw, err := s.rdb.Get(ctx, s.keySession(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &sess, nil
}

func (s *RedisStore) FindByPlayer(ctx context.Context, playerID string) (*Session, error) {
	id, err := s.rdb.Get(ctx, s.keyPlayer(playerID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load player index: %w", err)
	}
	return s.Load(ctx, id)
}

func (s *RedisStore) Save(ctx context.Context, sess *Session, ttl time.Duration) error {
	if sess == nil {
		return errNilSession
	}
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, s.keySession(sess.ID), raw, ttl)
	if sess.PlayerID != "" {
		pipe.Set(ctx, s.keyPlayer(sess.PlayerID), sess.ID, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, sess *Session) error {
	if sess == nil {
		return nil
	}
	keys := []string{s.keySession(sess.ID)}
	if sess.PlayerID != "" {
		current, err := s.rdb.Get(ctx, s.keyPlayer(sess.PlayerID)).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("load player index: %w", err)
		}
		if current == sess.ID {
			keys = append(keys, s.keyPlayer(sess.PlayerID))
		}
	}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *RedisStore) TryLock(ctx context.Context, id string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	ok, err := s.rdb.SetNX(ctx, s.keyLock(id), token, ttl).Result()
	if err != nil {
		return "", fmt.Errorf("acquire session lock: %w", err)
	}
	if !ok {
		return "", nil
	}
	return token, nil
}

func (s *RedisStore) Unlock(ctx context.Context, id, token string) error {
	if token == "" {
		return nil
	}
	if err := unlockScript.Run(ctx, s.rdb, []string{s.keyLock(id)}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release session lock: %w", err)
	}
	return nil
}

func (s *RedisStore) Locked(ctx context.Context, id string) (bool, error) {
	n, err := s.rdb.Exists(ctx, s.keyLock(id)).Result()
	if err != nil {
		return false, fmt.Errorf("check session lock: %w", err)
	}
	return n > 0, nil
}
