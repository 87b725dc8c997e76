package contract

import (
	"context"

	"voicetask/internal/entity"
)

// TaskMutation receives the current persisted collection and returns the
// collection to write back. Returning an error aborts the write.
type TaskMutation func(tasks []*entity.Task) ([]*entity.Task, error)

type TaskRepository interface {
	FindAll(ctx context.Context) ([]*entity.Task, error)
	// Update runs a read-modify-write cycle and retries it on version conflicts,
	// so fn may be invoked more than once and must not have side effects.
	Update(ctx context.Context, fn TaskMutation) ([]*entity.Task, error)
}
