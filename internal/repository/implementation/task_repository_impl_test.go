package implementation

import (
	"context"
	"testing"
	"time"

	"voicetask/internal/entity"
	"voicetask/internal/repository/contract"
	"voicetask/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// racingStore lets a competing writer slip in between the repository's read
// and its write, the way the task screen can while an extraction finishes.
type racingStore struct {
	contract.KVStore
	races int
	race  func()
}

func (s *racingStore) Put(ctx context.Context, key string, value []byte, expectedVersion uint64) (uint64, error) {
	if s.races > 0 {
		s.races--
		s.race()
	}
	return s.KVStore.Put(ctx, key, value, expectedVersion)
}

type conflictStore struct {
	contract.KVStore
	puts int
}

func (s *conflictStore) Put(context.Context, string, []byte, uint64) (uint64, error) {
	s.puts++
	return 0, contract.ErrVersionConflict
}

func TestTaskRepository_FindAllEmpty(t *testing.T) {
	repo := NewTaskRepository(memory.NewKVStore(), 0)

	tasks, err := repo.FindAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, tasks)
	assert.Empty(t, tasks)
}

func TestTaskRepository_UpdateAppends(t *testing.T) {
	ctx := context.Background()
	repo := NewTaskRepository(memory.NewKVStore(), 0)

	_, err := repo.Update(ctx, func(tasks []*entity.Task) ([]*entity.Task, error) {
		return append(tasks, &entity.Task{Id: "1", Text: "buy milk"}), nil
	})
	require.NoError(t, err)

	updated, err := repo.Update(ctx, func(tasks []*entity.Task) ([]*entity.Task, error) {
		return append(tasks, &entity.Task{Id: "2", Text: "call mom"}), nil
	})
	require.NoError(t, err)
	require.Len(t, updated, 2)

	persisted, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, persisted, 2)
	assert.Equal(t, "buy milk", persisted[0].Text)
	assert.Equal(t, "call mom", persisted[1].Text)
}

func TestTaskRepository_ConcurrentEditIsNotLost(t *testing.T) {
	ctx := context.Background()
	base := memory.NewKVStore()
	seed := NewTaskRepository(base, 0)
	_, err := seed.Update(ctx, func(tasks []*entity.Task) ([]*entity.Task, error) {
		return append(tasks, &entity.Task{Id: "1", Text: "existing", CreatedAt: time.Now()}), nil
	})
	require.NoError(t, err)

	store := &racingStore{KVStore: base, races: 1}
	store.race = func() {
		// The user toggles the existing task while the merge is in flight.
		_, err := seed.Update(ctx, func(tasks []*entity.Task) ([]*entity.Task, error) {
			tasks[0].Completed = true
			return tasks, nil
		})
		require.NoError(t, err)
	}
	repo := NewTaskRepository(store, 0)

	calls := 0
	_, err = repo.Update(ctx, func(tasks []*entity.Task) ([]*entity.Task, error) {
		calls++
		return append(tasks, &entity.Task{Id: "2", Text: "new"}), nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	persisted, err := seed.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, persisted, 2)
	assert.True(t, persisted[0].Completed, "toggle must survive the merge")
	assert.Equal(t, "new", persisted[1].Text)
}

func TestTaskRepository_GivesUpAfterMaxRetries(t *testing.T) {
	store := &conflictStore{KVStore: memory.NewKVStore()}
	repo := NewTaskRepository(store, 3)

	_, err := repo.Update(context.Background(), func(tasks []*entity.Task) ([]*entity.Task, error) {
		return tasks, nil
	})
	assert.ErrorIs(t, err, contract.ErrVersionConflict)
	assert.Equal(t, 3, store.puts)
}

func TestTaskRepository_CorruptValueIsNotOverwritten(t *testing.T) {
	ctx := context.Background()
	store := memory.NewKVStore()
	_, err := store.Put(ctx, contract.KeyTasks, []byte(`{not json`), 0)
	require.NoError(t, err)

	repo := NewTaskRepository(store, 0)
	_, err = repo.Update(ctx, func(tasks []*entity.Task) ([]*entity.Task, error) {
		return append(tasks, &entity.Task{Id: "x", Text: "x"}), nil
	})
	require.Error(t, err)

	rec, err := store.Get(ctx, contract.KeyTasks)
	require.NoError(t, err)
	assert.Equal(t, `{not json`, string(rec.Value))
}
