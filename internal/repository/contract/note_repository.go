package contract

import (
	"context"

	"voicetask/internal/entity"
)

type NoteMutation func(notes []*entity.Note) ([]*entity.Note, error)

type NoteRepository interface {
	FindAll(ctx context.Context) ([]*entity.Note, error)
	Update(ctx context.Context, fn NoteMutation) ([]*entity.Note, error)
}
