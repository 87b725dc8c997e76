package memory

import (
	"context"
	"testing"

	"voicetask/internal/repository/contract"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKVStore_GetAbsent(t *testing.T) {
	store := NewKVStore()

	rec, err := store.Get(context.Background(), contract.KeyTasks)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestKVStore_PutAndConflict(t *testing.T) {
	ctx := context.Background()
	store := NewKVStore()

	v1, err := store.Put(ctx, contract.KeyTasks, []byte(`[]`), 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), v1)

	// Creating again must fail: the key already exists.
	_, err = store.Put(ctx, contract.KeyTasks, []byte(`[1]`), 0)
	assert.ErrorIs(t, err, contract.ErrVersionConflict)

	v2, err := store.Put(ctx, contract.KeyTasks, []byte(`[2]`), v1)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), v2)

	// Stale version.
	_, err = store.Put(ctx, contract.KeyTasks, []byte(`[3]`), v1)
	assert.ErrorIs(t, err, contract.ErrVersionConflict)

	rec, err := store.Get(ctx, contract.KeyTasks)
	require.NoError(t, err)
	assert.Equal(t, []byte(`[2]`), rec.Value)
	assert.Equal(t, v2, rec.Version)
}

func TestKVStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewKVStore()

	value := []byte(`abc`)
	_, err := store.Put(ctx, contract.KeyNotes, value, 0)
	require.NoError(t, err)
	value[0] = 'x'

	rec, err := store.Get(ctx, contract.KeyNotes)
	require.NoError(t, err)
	rec.Value[1] = 'y'

	again, err := store.Get(ctx, contract.KeyNotes)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(again.Value))
}
