package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"voicetask/internal/dto"
	"voicetask/internal/entity"
	"voicetask/internal/mapper"
	"voicetask/internal/pkg/logger"
	"voicetask/internal/repository/contract"
	"voicetask/pkg/events"

	"github.com/google/uuid"
)

var (
	ErrNoteNotFound = fmt.Errorf("note %w", contract.ErrNotFound)
	ErrEmptyNote    = fmt.Errorf("%w: note title and content are both empty", contract.ErrInvalid)
)

type INoteService interface {
	Save(ctx context.Context, req *dto.SaveNoteRequest) (*dto.NoteResponse, error)
	List(ctx context.Context) ([]*dto.NoteResponse, error)
	Show(ctx context.Context, id string) (*dto.NoteResponse, error)
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, query string) ([]*dto.NoteResponse, error)
}

type noteService struct {
	repo           contract.NoteRepository
	eventPublisher events.Publisher
	mapper         *mapper.NoteMapper
	logger         logger.ILogger
	now            func() time.Time
}

func NewNoteService(repo contract.NoteRepository, eventPublisher events.Publisher, log logger.ILogger) INoteService {
	return &noteService{
		repo:           repo,
		eventPublisher: eventPublisher,
		mapper:         mapper.NewNoteMapper(),
		logger:         log,
		now:            time.Now,
	}
}

func (s *noteService) Save(ctx context.Context, req *dto.SaveNoteRequest) (*dto.NoteResponse, error) {
	title := strings.TrimSpace(req.Title)
	content := strings.TrimSpace(req.Content)
	if title == "" && content == "" {
		return nil, ErrEmptyNote
	}

	note := &entity.Note{
		Id:      req.Id,
		Title:   title,
		Content: content,
		Date:    s.now(),
	}
	if note.Id == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("generate note id: %w", err)
		}
		note.Id = id.String()
	}

	_, err := s.repo.Update(ctx, func(current []*entity.Note) ([]*entity.Note, error) {
		for i, n := range current {
			if n.Id == note.Id {
				current[i] = note
				return current, nil
			}
		}
		if req.Id != "" {
			return nil, ErrNoteNotFound
		}
		return append(current, note), nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.NoteSaved, note.Id)
	return s.mapper.ToResponse(note), nil
}

func (s *noteService) List(ctx context.Context) ([]*dto.NoteResponse, error) {
	notes, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	return s.mapper.ToResponses(notes), nil
}

func (s *noteService) Show(ctx context.Context, id string) (*dto.NoteResponse, error) {
	notes, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, n := range notes {
		if n.Id == id {
			return s.mapper.ToResponse(n), nil
		}
	}
	return nil, ErrNoteNotFound
}

func (s *noteService) Delete(ctx context.Context, id string) error {
	_, err := s.repo.Update(ctx, func(current []*entity.Note) ([]*entity.Note, error) {
		for i, n := range current {
			if n.Id == id {
				return append(current[:i:i], current[i+1:]...), nil
			}
		}
		return nil, ErrNoteNotFound
	})
	if err != nil {
		return err
	}

	s.publish(ctx, events.NoteDeleted, id)
	return nil
}

// Search matches query case-insensitively against title or content. A blank
// query returns every note.
func (s *noteService) Search(ctx context.Context, query string) ([]*dto.NoteResponse, error) {
	notes, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return s.mapper.ToResponses(notes), nil
	}

	matches := make([]*entity.Note, 0)
	for _, n := range notes {
		if strings.Contains(strings.ToLower(n.Title), q) || strings.Contains(strings.ToLower(n.Content), q) {
			matches = append(matches, n)
		}
	}
	return s.mapper.ToResponses(matches), nil
}

func (s *noteService) publish(ctx context.Context, eventType, noteId string) {
	if s.eventPublisher == nil {
		return
	}
	evt := events.New(eventType, map[string]interface{}{"note_id": noteId})
	if err := s.eventPublisher.Publish(ctx, evt); err != nil {
		s.logger.Warn("NoteService", "Failed to publish event", map[string]interface{}{
			"type":  eventType,
			"error": err.Error(),
		})
	}
}
