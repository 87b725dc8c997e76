package contract

import (
	"context"
	"errors"

	"voicetask/internal/entity"
)

// Logical keys of the key-value store.
const (
	KeyTasks = "tasks"
	KeyNotes = "notes"
)

// ErrVersionConflict is returned by Put when the stored version no longer
// matches the version the caller read.
var ErrVersionConflict = errors.New("kv store: version conflict")

// ErrNotFound is wrapped by repositories and services when an item id is
// not present in its collection.
var ErrNotFound = errors.New("not found")

// ErrInvalid is wrapped when a write would break a collection invariant,
// such as a task with blank text.
var ErrInvalid = errors.New("invalid")

// KVStore is a flat key-value store whose writes replace a value wholesale.
//
// Get returns nil (and no error) for an absent key. Put only succeeds when the
// current version equals expectedVersion (0 meaning "key must not exist") and
// returns the new version.
type KVStore interface {
	Get(ctx context.Context, key string) (*entity.Record, error)
	Put(ctx context.Context, key string, value []byte, expectedVersion uint64) (uint64, error)
}
