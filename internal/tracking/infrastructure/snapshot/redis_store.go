package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/letsur-product-team/product-team-dashboard/internal/tracking/domain"
	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces the keys written by RedisStore.
const DefaultKeyPrefix = "dashboard:snapshot"

// publishScript sets the latest snapshot only when its generation is newer than
// the published one. KEYS: published generation, latest payload.
// ARGV: generation, payload, ttl in milliseconds (0 keeps the payload forever).
var publishScript = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
local generation = tonumber(ARGV[1])
if generation <= current then
	return 0
end
redis.call('SET', KEYS[1], ARGV[1])
redis.call('SET', KEYS[2], ARGV[2])
if tonumber(ARGV[3]) > 0 then
	redis.call('PEXPIRE', KEYS[2], ARGV[3])
end
return 1
`)

// RedisStore shares the latest snapshot between dashboard processes.
// Keys: {prefix}:generation, {prefix}:published, {prefix}:latest
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: DefaultKeyPrefix}
}

// WithPrefix changes the key namespace.
func (s *RedisStore) WithPrefix(prefix string) *RedisStore {
	if prefix != "" {
		s.prefix = prefix
	}
	return s
}

// WithTTL expires the latest snapshot after ttl. Zero disables expiry.
func (s *RedisStore) WithTTL(ttl time.Duration) *RedisStore {
	s.ttl = ttl
	return s
}

func (s *RedisStore) key(name string) string {
	return s.prefix + ":" + name
}

// NextGeneration increments the shared generation counter.
func (s *RedisStore) NextGeneration(ctx context.Context) (uint64, error) {
	n, err := s.client.Incr(ctx, s.key("generation")).Uint64()
	if err != nil {
		return 0, fmt.Errorf("redis incr generation: %w", err)
	}
	return n, nil
}

// Publish stores snapshot if it is newer than the published one.
func (s *RedisStore) Publish(ctx context.Context, snapshot *domain.Snapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	keys := []string{s.key("published"), s.key("latest")}
	applied, err := publishScript.Run(ctx, s.client, keys, snapshot.Generation, payload, s.ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("redis publish snapshot: %w", err)
	}
	if applied == 0 {
		return domain.ErrStaleSnapshot
	}
	return nil
}

// Latest loads the published snapshot.
func (s *RedisStore) Latest(ctx context.Context) (*domain.Snapshot, error) {
	data, err := s.client.Get(ctx, s.key("latest")).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("redis get snapshot: %w", err)
	}

	var snapshot domain.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snapshot, nil
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
