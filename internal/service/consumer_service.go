package service

import (
	"context"
	"encoding/json"

	"voicetask/internal/dto"
	"voicetask/internal/pkg/logger"
	"voicetask/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
)

// Frame types pushed to connected clients.
const (
	FrameOutcome      = "outcome"
	FrameTasksChanged = "tasks_changed"
)

// ClientDelivery pushes frames to every connected client. Implemented by the
// websocket hub.
type ClientDelivery interface {
	Broadcast(frameType string, data interface{})
}

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	subscriber     message.Subscriber
	delivery       ClientDelivery
	eventPublisher events.Publisher
	logger         logger.ILogger
}

// NewConsumerService fans pipeline outcomes and task changes out to the
// clients and, when eventPublisher is non-nil, to the external event bus.
func NewConsumerService(
	subscriber message.Subscriber,
	delivery ClientDelivery,
	eventPublisher events.Publisher,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber:     subscriber,
		delivery:       delivery,
		eventPublisher: eventPublisher,
		logger:         log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	outcomes, err := cs.subscriber.Subscribe(ctx, TopicPipelineOutcomes)
	if err != nil {
		return err
	}
	changes, err := cs.subscriber.Subscribe(ctx, TopicTasksChanged)
	if err != nil {
		return err
	}

	go func() {
		for msg := range outcomes {
			cs.processOutcome(ctx, msg)
		}
	}()
	go func() {
		for msg := range changes {
			cs.processChange(msg)
		}
	}()

	return nil
}

func (cs *consumerService) processOutcome(ctx context.Context, msg *message.Message) {
	// Undecodable messages are acked: redelivery cannot fix them.
	defer msg.Ack()

	var outcome dto.PipelineOutcome
	if err := json.Unmarshal(msg.Payload, &outcome); err != nil {
		cs.logger.Error("ConsumerService", "Failed to decode outcome", map[string]interface{}{"error": err.Error()})
		return
	}

	cs.delivery.Broadcast(FrameOutcome, outcome)
	if outcome.Succeeded() {
		cs.delivery.Broadcast(FrameTasksChanged, dto.TasksChangedMessage{
			Reason:    events.TasksExtracted,
			Total:     len(outcome.Tasks),
			ChangedAt: outcome.FinishedAt,
		})
	}

	if cs.eventPublisher == nil {
		return
	}

	evt := events.New(events.TasksExtracted, map[string]interface{}{
		"run_id": outcome.RunId,
		"source": outcome.Source,
		"added":  len(outcome.Added),
		"total":  len(outcome.Tasks),
	})
	if !outcome.Succeeded() {
		evt = events.New(events.ExtractionFailed, map[string]interface{}{
			"run_id": outcome.RunId,
			"source": outcome.Source,
			"error":  outcome.Error,
		})
	}
	if err := cs.eventPublisher.Publish(ctx, evt); err != nil {
		cs.logger.Warn("ConsumerService", "Failed to publish event", map[string]interface{}{
			"type":  evt.Type,
			"error": err.Error(),
		})
	}
}

func (cs *consumerService) processChange(msg *message.Message) {
	defer msg.Ack()

	var change dto.TasksChangedMessage
	if err := json.Unmarshal(msg.Payload, &change); err != nil {
		cs.logger.Error("ConsumerService", "Failed to decode tasks change", map[string]interface{}{"error": err.Error()})
		return
	}
	cs.delivery.Broadcast(FrameTasksChanged, change)
}
