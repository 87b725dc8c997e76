package dto

import "time"

type CreateTaskRequest struct {
	Text string `json:"text" validate:"required,max=500"`
}

type TaskResponse struct {
	Id        string    `json:"id"`
	Text      string    `json:"text"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"createdAt"`
}

// MergeTasksResponse is the result of appending extracted tasks. Message is
// the model's summary, passed through unchanged.
type MergeTasksResponse struct {
	Message string          `json:"message"`
	Added   []*TaskResponse `json:"added"`
	Tasks   []*TaskResponse `json:"tasks"`
}

type TaskStatsResponse struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Pending   int `json:"pending"`
}

type DeleteCompletedTasksResponse struct {
	Removed int `json:"removed"`
}
