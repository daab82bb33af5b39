package implementation

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/felixniemeyer/ai-mediator/internal/repository/contract"
)

// RedisBlobStore keeps blobs as plain redis string values. Redis SET is a
// whole-value replace, so the atomic write guarantee comes for free and
// there is no scope structure to create.
type RedisBlobStore struct {
	rdb    *redis.Client
	prefix string
}

var _ contract.BlobStore = (*RedisBlobStore)(nil)

func NewRedisBlobStore(rdb *redis.Client, prefix string) *RedisBlobStore {
	if prefix == "" {
		prefix = "mediator"
	}
	return &RedisBlobStore{rdb: rdb, prefix: prefix}
}

func (s *RedisBlobStore) key(key string) string {
	return s.prefix + ":" + key
}

func (s *RedisBlobStore) Put(ctx context.Context, key string, data []byte) error {
	if err := s.rdb.Set(ctx, s.key(key), data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *RedisBlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.rdb.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, contract.ErrNotFound
		}
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return data, nil
}
