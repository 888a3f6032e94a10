package storage

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/pizoo-client/internal/errors"
)

// RedisFlagStore persists flags in Redis so they survive engine restarts
type RedisFlagStore struct {
	client *redis.Client
	prefix string
}

// NewRedisFlagStore creates a flag store on an existing Redis client. All
// keys are placed under the given prefix.
func NewRedisFlagStore(client *redis.Client, prefix string) *RedisFlagStore {
	if prefix == "" {
		prefix = "pizoo:flags"
	}
	return &RedisFlagStore{client: client, prefix: prefix}
}

func (s *RedisFlagStore) redisKey(key, userID string) string {
	return fmt.Sprintf("%s:%s", s.prefix, flagKey(key, userID))
}

func (s *RedisFlagStore) GetInt(ctx context.Context, key, userID string) (int, error) {
	val, err := s.client.Get(ctx, s.redisKey(key, userID)).Result()
	if err == redis.Nil {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, apperrors.NewStorageError("get flag", err)
	}

	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, apperrors.NewStorageError("decode flag", err)
	}
	return n, nil
}

func (s *RedisFlagStore) SetInt(ctx context.Context, key, userID string, value int) error {
	if err := s.client.Set(ctx, s.redisKey(key, userID), value, 0).Err(); err != nil {
		return apperrors.NewStorageError("set flag", err)
	}
	return nil
}

func (s *RedisFlagStore) GetBool(ctx context.Context, key, userID string) (bool, error) {
	val, err := s.client.Get(ctx, s.redisKey(key, userID)).Result()
	if err == redis.Nil {
		return false, ErrNotFound
	}
	if err != nil {
		return false, apperrors.NewStorageError("get flag", err)
	}
	return val == "1" || val == "true", nil
}

func (s *RedisFlagStore) SetBool(ctx context.Context, key, userID string, value bool) error {
	raw := "0"
	if value {
		raw = "1"
	}
	if err := s.client.Set(ctx, s.redisKey(key, userID), raw, 0).Err(); err != nil {
		return apperrors.NewStorageError("set flag", err)
	}
	return nil
}
