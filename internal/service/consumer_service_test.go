package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"voicetask/internal/dto"
	"voicetask/internal/pkg/logger"
	"voicetask/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type frame struct {
	frameType string
	data      interface{}
}

type recordingDelivery struct {
	mu     sync.Mutex
	frames []frame
}

func (d *recordingDelivery) Broadcast(frameType string, data interface{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.frames = append(d.frames, frame{frameType: frameType, data: data})
}

func (d *recordingDelivery) snapshot() []frame {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]frame(nil), d.frames...)
}

func startConsumer(t *testing.T) (IPublisherService, *recordingDelivery, *recordingEvents) {
	t.Helper()
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	t.Cleanup(func() { _ = pubSub.Close() })

	delivery := &recordingDelivery{}
	evts := &recordingEvents{}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	consumer := NewConsumerService(pubSub, delivery, evts, logger.NewNopLogger())
	require.NoError(t, consumer.Consume(ctx))
	return NewPublisherService(pubSub), delivery, evts
}

func publishJSON(t *testing.T, pub IPublisherService, topic string, v interface{}) {
	t.Helper()
	payload, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, pub.Publish(context.Background(), topic, payload))
}

func TestConsumer_SuccessfulOutcome(t *testing.T) {
	pub, delivery, evts := startConsumer(t)

	publishJSON(t, pub, TopicPipelineOutcomes, dto.PipelineOutcome{
		RunId:   "run-1",
		Source:  SourceVoice,
		Message: "Added 1 task.",
		Added:   []*dto.TaskResponse{{Id: "t1", Text: "buy milk"}},
		Tasks:   []*dto.TaskResponse{{Id: "t1", Text: "buy milk"}},
	})

	require.Eventually(t, func() bool { return len(delivery.snapshot()) == 2 }, time.Second, 5*time.Millisecond)
	frames := delivery.snapshot()
	assert.Equal(t, FrameOutcome, frames[0].frameType)
	assert.Equal(t, "run-1", frames[0].data.(dto.PipelineOutcome).RunId)
	assert.Equal(t, FrameTasksChanged, frames[1].frameType)
	assert.Equal(t, 1, frames[1].data.(dto.TasksChangedMessage).Total)

	require.Eventually(t, func() bool { return len(evts.types()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{events.TasksExtracted}, evts.types())
}

func TestConsumer_FailedOutcome(t *testing.T) {
	pub, delivery, evts := startConsumer(t)

	publishJSON(t, pub, TopicPipelineOutcomes, dto.PipelineOutcome{
		RunId:  "run-2",
		Source: SourceTyped,
		Error:  MsgMalformed,
	})

	require.Eventually(t, func() bool { return len(evts.types()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{events.ExtractionFailed}, evts.types())

	frames := delivery.snapshot()
	require.Len(t, frames, 1)
	assert.Equal(t, FrameOutcome, frames[0].frameType)
}

func TestConsumer_TasksChanged(t *testing.T) {
	pub, delivery, _ := startConsumer(t)

	publishJSON(t, pub, TopicTasksChanged, dto.TasksChangedMessage{Reason: events.TaskToggled, Total: 4})

	require.Eventually(t, func() bool { return len(delivery.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	frames := delivery.snapshot()
	assert.Equal(t, FrameTasksChanged, frames[0].frameType)
	assert.Equal(t, events.TaskToggled, frames[0].data.(dto.TasksChangedMessage).Reason)
}
