package integration

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"testing"

	"voicetask/internal/entity"
	"voicetask/internal/model"
	"voicetask/internal/repository/contract"
	"voicetask/internal/repository/implementation"
	"voicetask/pkg/database"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// prefixedStore isolates test keys from the real "tasks" and "notes" rows.
type prefixedStore struct {
	contract.KVStore
	prefix string
}

func (s prefixedStore) Get(ctx context.Context, key string) (*entity.Record, error) {
	return s.KVStore.Get(ctx, s.prefix+key)
}

func (s prefixedStore) Put(ctx context.Context, key string, value []byte, expectedVersion uint64) (uint64, error) {
	return s.KVStore.Put(ctx, s.prefix+key, value, expectedVersion)
}

func openTestDB(t *testing.T) *gorm.DB {
	// Load .env from root
	if err := godotenv.Load("../../.env"); err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	db, err := database.NewGormDBFromDSN(dsn, false, &model.KVEntry{})
	require.NoError(t, err, "Failed to connect to DB")
	return db
}

func TestGormKVStore_CompareAndSet(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	key := "it-" + uuid.NewString()[:8]
	t.Cleanup(func() { db.Where("key = ?", key).Delete(&model.KVEntry{}) })

	store := implementation.NewGormKVStore(db)

	rec, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, rec)

	v1, err := store.Put(ctx, key, []byte(`[]`), 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), v1)

	_, err = store.Put(ctx, key, []byte(`[]`), 0)
	assert.ErrorIs(t, err, contract.ErrVersionConflict)

	v2, err := store.Put(ctx, key, []byte(`[{"id":"a"}]`), v1)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), v2)

	_, err = store.Put(ctx, key, []byte(`[]`), v1)
	assert.ErrorIs(t, err, contract.ErrVersionConflict)

	rec, err = store.Get(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, v2, rec.Version)
	assert.JSONEq(t, `[{"id":"a"}]`, string(rec.Value))
}

func TestGormKVStore_ConcurrentAppendsAreNotLost(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	prefix := "it-" + uuid.NewString()[:8] + ":"
	t.Cleanup(func() { db.Where("key LIKE ?", prefix+"%").Delete(&model.KVEntry{}) })

	store := prefixedStore{KVStore: implementation.NewGormKVStore(db), prefix: prefix}
	repo := implementation.NewTaskRepository(store, 50)

	const writers = 8
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := repo.Update(ctx, func(tasks []*entity.Task) ([]*entity.Task, error) {
				return append(tasks, &entity.Task{Id: fmt.Sprintf("t%d", i), Text: fmt.Sprintf("task %d", i)}), nil
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	tasks, err := repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, tasks, writers)
}
