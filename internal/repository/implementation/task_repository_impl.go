package implementation

import (
	"context"

	"voicetask/internal/entity"
	"voicetask/internal/repository/contract"
)

type TaskRepositoryImpl struct {
	collection *collectionRepository[entity.Task]
}

func NewTaskRepository(store contract.KVStore, maxRetries int) contract.TaskRepository {
	return &TaskRepositoryImpl{
		collection: newCollectionRepository[entity.Task](store, contract.KeyTasks, maxRetries),
	}
}

func (r *TaskRepositoryImpl) FindAll(ctx context.Context) ([]*entity.Task, error) {
	return r.collection.findAll(ctx)
}

func (r *TaskRepositoryImpl) Update(ctx context.Context, fn contract.TaskMutation) ([]*entity.Task, error) {
	return r.collection.update(ctx, fn)
}
