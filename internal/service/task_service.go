package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"voicetask/internal/dto"
	"voicetask/internal/entity"
	"voicetask/internal/mapper"
	"voicetask/internal/pkg/logger"
	"voicetask/internal/repository/contract"
	"voicetask/pkg/events"
	"voicetask/pkg/extraction"

	"github.com/google/uuid"
)

var (
	ErrTaskNotFound  = fmt.Errorf("task %w", contract.ErrNotFound)
	ErrEmptyTaskText = fmt.Errorf("%w: task text is empty", contract.ErrInvalid)
)

type ITaskService interface {
	// Merge appends the extracted tasks to the persisted collection and
	// returns the model's message unchanged.
	Merge(ctx context.Context, result *extraction.Result) (*dto.MergeTasksResponse, error)
	Add(ctx context.Context, req *dto.CreateTaskRequest) (*dto.TaskResponse, error)
	List(ctx context.Context, sorted bool) ([]*dto.TaskResponse, error)
	Toggle(ctx context.Context, id string) (*dto.TaskResponse, error)
	Delete(ctx context.Context, id string) error
	DeleteCompleted(ctx context.Context) (*dto.DeleteCompletedTasksResponse, error)
	Stats(ctx context.Context) (*dto.TaskStatsResponse, error)
}

type taskService struct {
	repo             contract.TaskRepository
	publisherService IPublisherService
	eventPublisher   events.Publisher
	mapper           *mapper.TaskMapper
	logger           logger.ILogger
	now              func() time.Time
}

// NewTaskService builds the task store. publisherService and eventPublisher
// may be nil.
func NewTaskService(
	repo contract.TaskRepository,
	publisherService IPublisherService,
	eventPublisher events.Publisher,
	log logger.ILogger,
) ITaskService {
	return &taskService{
		repo:             repo,
		publisherService: publisherService,
		eventPublisher:   eventPublisher,
		mapper:           mapper.NewTaskMapper(),
		logger:           log,
		now:              time.Now,
	}
}

func (s *taskService) newTask(text string) (*entity.Task, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate task id: %w", err)
	}
	return &entity.Task{
		Id:        id.String(),
		Text:      text,
		Completed: false,
		CreatedAt: s.now(),
	}, nil
}

func (s *taskService) Merge(ctx context.Context, result *extraction.Result) (*dto.MergeTasksResponse, error) {
	// Build new tasks once: the update below may be retried and must append
	// the same ids every time.
	added := make([]*entity.Task, 0, len(result.AddTasks))
	for _, item := range result.AddTasks {
		text := strings.TrimSpace(item.Task)
		if text == "" {
			continue
		}
		task, err := s.newTask(text)
		if err != nil {
			return nil, err
		}
		added = append(added, task)
	}

	tasks, err := s.repo.Update(ctx, func(current []*entity.Task) ([]*entity.Task, error) {
		next := make([]*entity.Task, 0, len(current)+len(added))
		next = append(next, current...)
		return append(next, added...), nil
	})
	if err != nil {
		return nil, fmt.Errorf("merge tasks: %w", err)
	}

	s.logger.Info("TaskService", "Extracted tasks merged", map[string]interface{}{
		"added":   len(added),
		"skipped": len(result.AddTasks) - len(added),
		"total":   len(tasks),
	})

	return &dto.MergeTasksResponse{
		Message: result.Message,
		Added:   s.mapper.ToResponses(added),
		Tasks:   s.mapper.ToResponses(tasks),
	}, nil
}

func (s *taskService) Add(ctx context.Context, req *dto.CreateTaskRequest) (*dto.TaskResponse, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, ErrEmptyTaskText
	}
	task, err := s.newTask(text)
	if err != nil {
		return nil, err
	}

	tasks, err := s.repo.Update(ctx, func(current []*entity.Task) ([]*entity.Task, error) {
		return append(current, task), nil
	})
	if err != nil {
		return nil, err
	}

	s.changed(ctx, events.TaskAdded, task, len(tasks))
	return s.mapper.ToResponse(task), nil
}

func (s *taskService) List(ctx context.Context, sorted bool) ([]*dto.TaskResponse, error) {
	tasks, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	if sorted {
		SortTasks(tasks)
	}
	return s.mapper.ToResponses(tasks), nil
}

// SortTasks orders pending tasks before completed ones, newest first within
// each group.
func SortTasks(tasks []*entity.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].Completed != tasks[j].Completed {
			return !tasks[i].Completed
		}
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})
}

func (s *taskService) Toggle(ctx context.Context, id string) (*dto.TaskResponse, error) {
	var toggled entity.Task
	tasks, err := s.repo.Update(ctx, func(current []*entity.Task) ([]*entity.Task, error) {
		for i, t := range current {
			if t.Id != id {
				continue
			}
			updated := *t
			updated.Completed = !t.Completed
			current[i] = &updated
			toggled = updated
			return current, nil
		}
		return nil, ErrTaskNotFound
	})
	if err != nil {
		return nil, err
	}

	s.changed(ctx, events.TaskToggled, &toggled, len(tasks))
	return s.mapper.ToResponse(&toggled), nil
}

func (s *taskService) Delete(ctx context.Context, id string) error {
	var deleted *entity.Task
	tasks, err := s.repo.Update(ctx, func(current []*entity.Task) ([]*entity.Task, error) {
		for i, t := range current {
			if t.Id == id {
				deleted = t
				return append(current[:i:i], current[i+1:]...), nil
			}
		}
		return nil, ErrTaskNotFound
	})
	if err != nil {
		return err
	}

	s.changed(ctx, events.TaskDeleted, deleted, len(tasks))
	return nil
}

func (s *taskService) DeleteCompleted(ctx context.Context) (*dto.DeleteCompletedTasksResponse, error) {
	removed := 0
	tasks, err := s.repo.Update(ctx, func(current []*entity.Task) ([]*entity.Task, error) {
		removed = 0
		kept := make([]*entity.Task, 0, len(current))
		for _, t := range current {
			if t.Completed {
				removed++
				continue
			}
			kept = append(kept, t)
		}
		return kept, nil
	})
	if err != nil {
		return nil, err
	}

	if removed > 0 {
		s.changed(ctx, events.TaskDeleted, nil, len(tasks))
	}
	return &dto.DeleteCompletedTasksResponse{Removed: removed}, nil
}

func (s *taskService) Stats(ctx context.Context) (*dto.TaskStatsResponse, error) {
	tasks, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	res := &dto.TaskStatsResponse{Total: len(tasks)}
	for _, t := range tasks {
		if t.Completed {
			res.Completed++
		}
	}
	res.Pending = res.Total - res.Completed
	return res, nil
}

// changed notifies connected clients and the event bus after a user edit.
// Failures are logged: the edit itself is already persisted.
func (s *taskService) changed(ctx context.Context, eventType string, task *entity.Task, total int) {
	if s.publisherService != nil {
		payload, _ := json.Marshal(dto.TasksChangedMessage{
			Reason:    eventType,
			Total:     total,
			ChangedAt: s.now(),
		})
		if err := s.publisherService.Publish(ctx, TopicTasksChanged, payload); err != nil {
			s.logger.Warn("TaskService", "Failed to publish tasks change", map[string]interface{}{"error": err.Error()})
		}
	}

	if s.eventPublisher != nil {
		data := map[string]interface{}{"total": total}
		if task != nil {
			data["task_id"] = task.Id
			data["completed"] = task.Completed
		}
		if err := s.eventPublisher.Publish(ctx, events.New(eventType, data)); err != nil {
			s.logger.Warn("TaskService", "Failed to publish event", map[string]interface{}{
				"type":  eventType,
				"error": err.Error(),
			})
		}
	}
}
