package authlockout

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"storefront/internal/ratelimit/models"
	"storefront/pkg/requestcontext"
)

const (
	fieldCount       = "count"
	fieldLastFailure = "last_failure"
	fieldLockedUntil = "locked_until"
	keyPrefix        = "lockout:"
)

// RedisAuthLockoutStore keeps each record in a hash whose TTL is the failure
// window, refreshed on every failure and moved to the lock expiry on Lock.
type RedisAuthLockoutStore struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisAuthLockoutStore {
	return &RedisAuthLockoutStore{client: client}
}

func (s *RedisAuthLockoutStore) Get(ctx context.Context, key string) (*models.AuthLockout, error) {
	fields, err := s.client.HGetAll(ctx, keyPrefix+key).Result()
	if err != nil {
		return nil, fmt.Errorf("get auth lockout: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return decodeRecord(key, fields)
}

func (s *RedisAuthLockoutStore) RecordFailure(ctx context.Context, key string, window time.Duration) (*models.AuthLockout, error) {
	now := requestcontext.Now(ctx)
	redisKey := keyPrefix + key

	var all *redis.MapStringStringCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HIncrBy(ctx, redisKey, fieldCount, 1)
		pipe.HSet(ctx, redisKey, fieldLastFailure, now.UnixNano())
		pipe.PExpire(ctx, redisKey, window)
		all = pipe.HGetAll(ctx, redisKey)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("record auth failure: %w", err)
	}
	return decodeRecord(key, all.Val())
}

func (s *RedisAuthLockoutStore) Lock(ctx context.Context, key string, until time.Time) error {
	redisKey := keyPrefix + key
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, redisKey, fieldLockedUntil, until.UnixNano())
		pipe.PExpireAt(ctx, redisKey, until)
		return nil
	})
	if err != nil {
		return fmt.Errorf("lock auth identifier: %w", err)
	}
	return nil
}

func (s *RedisAuthLockoutStore) Clear(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("clear auth lockout: %w", err)
	}
	return nil
}

func decodeRecord(key string, fields map[string]string) (*models.AuthLockout, error) {
	record := &models.AuthLockout{Identifier: key}
	if v, ok := fields[fieldCount]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("decode failure count: %w", err)
		}
		record.FailureCount = n
	}
	if v, ok := fields[fieldLastFailure]; ok {
		ns, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("decode last failure: %w", err)
		}
		record.LastFailureAt = time.Unix(0, ns).UTC()
	}
	if v, ok := fields[fieldLockedUntil]; ok {
		ns, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("decode lock expiry: %w", err)
		}
		until := time.Unix(0, ns).UTC()
		record.LockedUntil = &until
	}
	return record, nil
}
