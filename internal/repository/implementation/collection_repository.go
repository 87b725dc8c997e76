package implementation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"voicetask/internal/repository/contract"
)

const DefaultMaxRetries = 5

// collectionRepository persists a whole ordered collection under one key.
// Every write is read-modify-write guarded by the record version, so two
// writers racing on the same key never silently drop each other's changes.
type collectionRepository[T any] struct {
	store      contract.KVStore
	key        string
	maxRetries int
}

func newCollectionRepository[T any](store contract.KVStore, key string, maxRetries int) *collectionRepository[T] {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &collectionRepository[T]{
		store:      store,
		key:        key,
		maxRetries: maxRetries,
	}
}

func (r *collectionRepository[T]) load(ctx context.Context) ([]*T, uint64, error) {
	rec, err := r.store.Get(ctx, r.key)
	if err != nil {
		return nil, 0, fmt.Errorf("read %s: %w", r.key, err)
	}
	if rec == nil || len(rec.Value) == 0 {
		var version uint64
		if rec != nil {
			version = rec.Version
		}
		return []*T{}, version, nil
	}

	var items []*T
	if err := json.Unmarshal(rec.Value, &items); err != nil {
		return nil, 0, fmt.Errorf("decode %s: %w", r.key, err)
	}
	if items == nil {
		items = []*T{}
	}
	return items, rec.Version, nil
}

func (r *collectionRepository[T]) findAll(ctx context.Context) ([]*T, error) {
	items, _, err := r.load(ctx)
	return items, err
}

func (r *collectionRepository[T]) update(ctx context.Context, fn func([]*T) ([]*T, error)) ([]*T, error) {
	for attempt := 1; attempt <= r.maxRetries; attempt++ {
		items, version, err := r.load(ctx)
		if err != nil {
			return nil, err
		}

		next, err := fn(items)
		if err != nil {
			return nil, err
		}
		if next == nil {
			next = []*T{}
		}

		data, err := json.Marshal(next)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", r.key, err)
		}

		_, err = r.store.Put(ctx, r.key, data, version)
		if err == nil {
			return next, nil
		}
		if !errors.Is(err, contract.ErrVersionConflict) {
			return nil, fmt.Errorf("write %s: %w", r.key, err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
	}
	return nil, fmt.Errorf("write %s: gave up after %d attempts: %w", r.key, r.maxRetries, contract.ErrVersionConflict)
}
