package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"chunkscope/internal/model"
	"chunkscope/internal/ports"
)

// Grounded on the teacher's internal/orchestrator/dedupe.go RedisDedupeStore:
// same addr-string construction, ping-on-construct, redis.Nil-as-miss idiom.

type redisCheckpointStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCheckpointStore connects to addr and pings it before returning,
// so configuration mistakes surface at startup rather than mid-run. Keys
// are prefix+RunID; ttl of zero means no expiry.
func NewRedisCheckpointStore(addr, prefix string, ttl time.Duration) (ports.CheckpointStore, error) {
	c := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &redisCheckpointStore{client: c, prefix: prefix, ttl: ttl}, nil
}

func (s *redisCheckpointStore) key(runID model.RunID) string {
	return s.prefix + string(runID)
}

func (s *redisCheckpointStore) Save(ctx context.Context, cp model.Checkpoint) error {
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}
	return s.client.Set(ctx, s.key(cp.RunID), data, s.ttl).Err()
}

func (s *redisCheckpointStore) Load(ctx context.Context, runID model.RunID) (model.Checkpoint, bool, error) {
	val, err := s.client.Get(ctx, s.key(runID)).Result()
	if err == redis.Nil {
		return model.Checkpoint{}, false, nil
	}
	if err != nil {
		return model.Checkpoint{}, false, err
	}
	var cp model.Checkpoint
	if err := json.Unmarshal([]byte(val), &cp); err != nil {
		return model.Checkpoint{}, false, nil
	}
	return cp, true, nil
}

// Close releases the underlying Redis connection pool.
func (s *redisCheckpointStore) Close() error {
	return s.client.Close()
}
