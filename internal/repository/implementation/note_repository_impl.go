package implementation

import (
	"context"

	"voicetask/internal/entity"
	"voicetask/internal/repository/contract"
)

type NoteRepositoryImpl struct {
	collection *collectionRepository[entity.Note]
}

func NewNoteRepository(store contract.KVStore, maxRetries int) contract.NoteRepository {
	return &NoteRepositoryImpl{
		collection: newCollectionRepository[entity.Note](store, contract.KeyNotes, maxRetries),
	}
}

func (r *NoteRepositoryImpl) FindAll(ctx context.Context) ([]*entity.Note, error) {
	return r.collection.findAll(ctx)
}

func (r *NoteRepositoryImpl) Update(ctx context.Context, fn contract.NoteMutation) ([]*entity.Note, error) {
	return r.collection.update(ctx, fn)
}
