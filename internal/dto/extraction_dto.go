package dto

import "time"

type ExtractTasksRequest struct {
	Text string `json:"text" validate:"required,max=4000"`
}

// PipelineOutcome is what the UI receives for one pipeline run: either the
// updated list with the summary message, or a user-facing error string.
type PipelineOutcome struct {
	RunId      string          `json:"runId"`
	Source     string          `json:"source"`
	Message    string          `json:"message,omitempty"`
	Added      []*TaskResponse `json:"added,omitempty"`
	Tasks      []*TaskResponse `json:"tasks,omitempty"`
	Error      string          `json:"error,omitempty"`
	FinishedAt time.Time       `json:"finishedAt"`
}

func (o *PipelineOutcome) Succeeded() bool {
	return o.Error == ""
}
