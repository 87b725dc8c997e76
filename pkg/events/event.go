package events

import (
	"context"
	"time"
)

// Event codes published on the bus. The NATS subject is "events.<code>".
const (
	TasksExtracted   = "TASKS_EXTRACTED"
	ExtractionFailed = "EXTRACTION_FAILED"
	TaskAdded        = "TASK_ADDED"
	TaskToggled      = "TASK_TOGGLED"
	TaskDeleted      = "TASK_DELETED"
	NoteSaved        = "NOTE_SAVED"
	NoteDeleted      = "NOTE_DELETED"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "TASKS_EXTRACTED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Publisher sends events to an external bus. Implementations must be safe
// for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func New(eventType string, data map[string]interface{}) BaseEvent {
	return BaseEvent{
		Type:       eventType,
		Data:       data,
		OccurredAt: time.Now(),
	}
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}
