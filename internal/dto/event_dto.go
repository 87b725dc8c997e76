package dto

import "time"

// TasksChangedMessage tells connected clients to refresh their task list.
type TasksChangedMessage struct {
	Reason    string    `json:"reason"`
	Total     int       `json:"total"`
	ChangedAt time.Time `json:"changedAt"`
}
