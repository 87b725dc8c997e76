package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"voicetask/pkg/events"
)

// Publisher handles sending events to the NATS bus.
type Publisher struct {
	conn *Conn
}

// NewPublisher ensures the events stream exists and returns a publisher on conn.
func NewPublisher(ctx context.Context, conn *Conn) (*Publisher, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := conn.EnsureStream(ctx); err != nil {
		return nil, err
	}
	return &Publisher{conn: conn}, nil
}

// Publish sends an event to JetStream under "events.<type>".
func (p *Publisher) Publish(ctx context.Context, event events.Event) error {
	payload := make(map[string]interface{}, len(event.Payload())+1)
	for k, v := range event.Payload() {
		payload[k] = v
	}
	payload["occurred_at"] = event.Timestamp().UTC().Format(time.RFC3339Nano)

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	subject := SubjectPrefix + event.EventType()
	if _, err := p.conn.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("failed to publish event to subject %s: %w", subject, err)
	}
	return nil
}
