package mapper

import (
	"voicetask/internal/dto"
	"voicetask/internal/entity"
)

type TaskMapper struct{}

func NewTaskMapper() *TaskMapper {
	return &TaskMapper{}
}

func (m *TaskMapper) ToResponse(t *entity.Task) *dto.TaskResponse {
	if t == nil {
		return nil
	}
	return &dto.TaskResponse{
		Id:        t.Id,
		Text:      t.Text,
		Completed: t.Completed,
		CreatedAt: t.CreatedAt,
	}
}

func (m *TaskMapper) ToResponses(tasks []*entity.Task) []*dto.TaskResponse {
	res := make([]*dto.TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		res = append(res, m.ToResponse(t))
	}
	return res
}
