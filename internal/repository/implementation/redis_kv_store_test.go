package implementation

import (
	"context"
	"os"
	"testing"

	"voicetask/internal/repository/contract"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisKVStore_CompareAndSet(t *testing.T) {
	url := os.Getenv("REDIS_TEST_URL")
	if url == "" {
		t.Skip("Skipping integration test: REDIS_TEST_URL not set")
	}

	opt, err := redis.ParseURL(url)
	require.NoError(t, err)
	rdb := redis.NewClient(opt)
	t.Cleanup(func() { _ = rdb.Close() })

	ctx := context.Background()
	prefix := "voicetask-test-" + uuid.NewString() + ":"
	store := NewRedisKVStore(rdb, prefix)
	t.Cleanup(func() { rdb.Del(ctx, prefix+contract.KeyTasks) })

	rec, err := store.Get(ctx, contract.KeyTasks)
	require.NoError(t, err)
	assert.Nil(t, rec)

	v1, err := store.Put(ctx, contract.KeyTasks, []byte(`[]`), 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), v1)

	_, err = store.Put(ctx, contract.KeyTasks, []byte(`[]`), 0)
	assert.ErrorIs(t, err, contract.ErrVersionConflict)

	v2, err := store.Put(ctx, contract.KeyTasks, []byte(`["x"]`), v1)
	require.NoError(t, err)

	rec, err = store.Get(ctx, contract.KeyTasks)
	require.NoError(t, err)
	assert.Equal(t, `["x"]`, string(rec.Value))
	assert.Equal(t, v2, rec.Version)
}
