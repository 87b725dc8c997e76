package memory

import (
	"context"
	"sync"

	"voicetask/internal/entity"
	"voicetask/internal/repository/contract"

	"github.com/patrickmn/go-cache"
)

// KVStore keeps records in process memory. It is the default driver for
// local development and tests; nothing survives a restart.
type KVStore struct {
	// go-cache locks per call, but compare-and-set spans a read and a write.
	mu    sync.Mutex
	cache *cache.Cache
}

var _ contract.KVStore = (*KVStore)(nil)

func NewKVStore() *KVStore {
	// Records never expire and no janitor goroutine is started.
	c := cache.New(cache.NoExpiration, 0)
	return &KVStore{
		cache: c,
	}
}

func (s *KVStore) Get(_ context.Context, key string) (*entity.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	x, found := s.cache.Get(key)
	if !found {
		return nil, nil
	}
	rec := x.(entity.Record)
	return &entity.Record{
		Key:     rec.Key,
		Value:   append([]byte(nil), rec.Value...),
		Version: rec.Version,
	}, nil
}

func (s *KVStore) Put(_ context.Context, key string, value []byte, expectedVersion uint64) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current uint64
	if x, found := s.cache.Get(key); found {
		current = x.(entity.Record).Version
	}
	if current != expectedVersion {
		return 0, contract.ErrVersionConflict
	}

	next := current + 1
	s.cache.Set(key, entity.Record{
		Key:     key,
		Value:   append([]byte(nil), value...),
		Version: next,
	}, cache.NoExpiration)
	return next, nil
}
