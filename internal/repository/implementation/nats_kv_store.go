package implementation

import (
	"context"
	"errors"
	"fmt"

	"voicetask/internal/entity"
	"voicetask/internal/repository/contract"

	"github.com/nats-io/nats.go/jetstream"
)

// NatsKVStore maps the store onto a JetStream key-value bucket. The bucket
// revision of a key doubles as its version.
type NatsKVStore struct {
	kv jetstream.KeyValue
}

var _ contract.KVStore = (*NatsKVStore)(nil)

func NewNatsKVStore(kv jetstream.KeyValue) *NatsKVStore {
	return &NatsKVStore{kv: kv}
}

func (s *NatsKVStore) Get(ctx context.Context, key string) (*entity.Record, error) {
	entry, err := s.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("nats kv get %s: %w", key, err)
	}
	return &entity.Record{
		Key:     key,
		Value:   entry.Value(),
		Version: entry.Revision(),
	}, nil
}

func (s *NatsKVStore) Put(ctx context.Context, key string, value []byte, expectedVersion uint64) (uint64, error) {
	var (
		revision uint64
		err      error
	)
	if expectedVersion == 0 {
		revision, err = s.kv.Create(ctx, key, value)
	} else {
		revision, err = s.kv.Update(ctx, key, value, expectedVersion)
	}
	if err != nil {
		if isWrongLastSequence(err) {
			return 0, contract.ErrVersionConflict
		}
		return 0, fmt.Errorf("nats kv put %s: %w", key, err)
	}
	return revision, nil
}

func isWrongLastSequence(err error) bool {
	if errors.Is(err, jetstream.ErrKeyExists) {
		return true
	}
	var apiErr *jetstream.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode == jetstream.JSErrCodeStreamWrongLastSequence
}
