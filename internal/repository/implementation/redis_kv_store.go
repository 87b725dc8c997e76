package implementation

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"voicetask/internal/entity"
	"voicetask/internal/repository/contract"

	"github.com/redis/go-redis/v9"
)

const (
	redisFieldValue   = "value"
	redisFieldVersion = "version"
)

// RedisKVStore stores every key as a hash {value, version} and uses
// WATCH/MULTI to make Put a compare-and-set.
type RedisKVStore struct {
	rdb    *redis.Client
	prefix string
}

var _ contract.KVStore = (*RedisKVStore)(nil)

func NewRedisKVStore(rdb *redis.Client, prefix string) *RedisKVStore {
	return &RedisKVStore{
		rdb:    rdb,
		prefix: prefix,
	}
}

func (s *RedisKVStore) Get(ctx context.Context, key string) (*entity.Record, error) {
	fields, err := s.rdb.HGetAll(ctx, s.prefix+key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall %s: %w", key, err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	version, err := strconv.ParseUint(fields[redisFieldVersion], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("redis key %s has invalid version %q: %w", key, fields[redisFieldVersion], err)
	}

	return &entity.Record{
		Key:     key,
		Value:   []byte(fields[redisFieldValue]),
		Version: version,
	}, nil
}

func (s *RedisKVStore) Put(ctx context.Context, key string, value []byte, expectedVersion uint64) (uint64, error) {
	redisKey := s.prefix + key
	var next uint64

	err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.HGet(ctx, redisKey, redisFieldVersion).Uint64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != expectedVersion {
			return contract.ErrVersionConflict
		}

		next = current + 1
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, redisKey, redisFieldValue, value, redisFieldVersion, next)
			return nil
		})
		return err
	}, redisKey)

	switch {
	case err == nil:
		return next, nil
	case errors.Is(err, contract.ErrVersionConflict), errors.Is(err, redis.TxFailedErr):
		return 0, contract.ErrVersionConflict
	default:
		return 0, fmt.Errorf("redis put %s: %w", key, err)
	}
}
