package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"voicetask/internal/dto"
	"voicetask/internal/pkg/logger"
	"voicetask/internal/repository/implementation"
	"voicetask/internal/repository/memory"
	"voicetask/internal/service"
	"voicetask/pkg/extraction"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePipeline struct {
	mu        sync.Mutex
	texts     []string
	err       error
	noOutcome bool
}

func (p *fakePipeline) Run(_ context.Context, text string, source string) (*dto.PipelineOutcome, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.texts = append(p.texts, text)
	if p.err != nil && p.noOutcome {
		return nil, p.err
	}
	if p.err != nil {
		return &dto.PipelineOutcome{Source: source, Error: service.UserMessage(p.err)}, &service.PipelineError{Message: service.UserMessage(p.err), Err: p.err}
	}
	return &dto.PipelineOutcome{Source: source, Message: "ok"}, nil
}

func (p *fakePipeline) runs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.texts...)
}

func startSession(t *testing.T, pipeline *fakePipeline) (*voiceSession, *Client) {
	t.Helper()
	client := NewClient(nil, nil, "phone")
	session := newVoiceSession(client, VoiceConfig{
		Pipeline: pipeline,
		Locale:   "en-US",
		Cooldown: 0,
		Logger:   logger.NewNopLogger(),
	})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = session.gate.Run(ctx) }()
	return session, client
}

func send(t *testing.T, s *voiceSession, frame inboundFrame) {
	t.Helper()
	raw, err := json.Marshal(frame)
	require.NoError(t, err)
	s.handleMessage(context.Background(), raw)
}

func frameTypes(frames []decodedFrame) []string {
	out := make([]string, len(frames))
	for i, f := range frames {
		out[i] = f.Type
	}
	return out
}

func hasFrame(frames []decodedFrame, frameType string) bool {
	for _, f := range frames {
		if f.Type == frameType {
			return true
		}
	}
	return false
}

func waitIdle(t *testing.T, s *voiceSession) {
	t.Helper()
	require.Eventually(t, func() bool { return !s.gate.Snapshot().InFlight }, time.Second, time.Millisecond)
}

func TestVoiceSession_TurnDispatchesOnce(t *testing.T) {
	pipeline := &fakePipeline{}
	s, client := startSession(t, pipeline)

	send(t, s, inboundFrame{Type: FrameListen})
	frames := drain(t, client)
	require.Equal(t, []string{FrameIndicator, FrameListen}, frameTypes(frames))
	assert.JSONEq(t, `{"listening":true,"processing":false}`, string(frames[0].Data))
	assert.JSONEq(t, `{"locale":"en-US"}`, string(frames[1].Data))

	send(t, s, inboundFrame{Type: "start"})
	send(t, s, inboundFrame{Type: "partial", Text: "buy"})
	send(t, s, inboundFrame{Type: "result", Text: "buy milk"})
	waitIdle(t, s)
	send(t, s, inboundFrame{Type: "result", Text: "buy milk"})
	send(t, s, inboundFrame{Type: "end"})
	waitIdle(t, s)

	assert.Equal(t, []string{"buy milk"}, pipeline.runs())

	frames = drain(t, client)
	assert.Contains(t, frameTypes(frames), FrameTranscript)
	var sawProcessing bool
	for _, f := range frames {
		if f.Type == FrameIndicator && string(f.Data) == `{"listening":true,"processing":true}` {
			sawProcessing = true
		}
	}
	assert.True(t, sawProcessing, "processing indicator must be shown while extracting")
	last := frames[len(frames)-1]
	assert.Equal(t, FrameIndicator, last.Type)
	assert.JSONEq(t, `{"listening":false,"processing":false}`, string(last.Data))
}

func TestVoiceSession_PermissionDenied(t *testing.T) {
	s, client := startSession(t, &fakePipeline{})

	send(t, s, inboundFrame{Type: FrameListen})
	drain(t, client)
	send(t, s, inboundFrame{Type: "error", Code: "not-allowed"})

	frames := drain(t, client)
	require.Equal(t, []string{FrameIndicator, FrameError}, frameTypes(frames))
	assert.JSONEq(t, `{"listening":false,"processing":false}`, string(frames[0].Data))
	assert.JSONEq(t, `{"message":"`+service.MsgSessionStart+`"}`, string(frames[1].Data))
	assert.False(t, s.capture.Listening())
}

type failingExtractor struct{}

func (failingExtractor) Extract(context.Context, string) (string, error) {
	return "", &extraction.ServiceError{Op: "generate", Err: errors.New("dial")}
}

func TestVoiceSession_PipelineFailureNotifiesDeviceOnce(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	log := logger.NewNopLogger()

	bus := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	t.Cleanup(func() { _ = bus.Close() })

	hub := startHub(t)
	consumer := service.NewConsumerService(bus, hub, nil, log)
	require.NoError(t, consumer.Consume(ctx))

	publisher := service.NewPublisherService(bus)
	tasks := service.NewTaskService(implementation.NewTaskRepository(memory.NewKVStore(), 3), publisher, nil, log)
	pipeline := service.NewPipelineService(failingExtractor{}, tasks, publisher, log)

	client := NewClient(hub, nil, "phone")
	require.True(t, hub.Register(client))
	require.Eventually(t, func() bool { return hub.ConnectedDevices() == 1 }, time.Second, time.Millisecond)

	s := newVoiceSession(client, VoiceConfig{Pipeline: pipeline, Locale: "en-US", Logger: log})
	go func() { _ = s.gate.Run(ctx) }()

	send(t, s, inboundFrame{Type: "result", Text: "buy milk"})
	waitIdle(t, s)

	var frames []decodedFrame
	deadline := time.Now().Add(2 * time.Second)
	for !hasFrame(frames, service.FrameOutcome) && time.Now().Before(deadline) {
		frames = append(frames, drain(t, client)...)
		time.Sleep(5 * time.Millisecond)
	}
	require.True(t, hasFrame(frames, service.FrameOutcome), "outcome was not broadcast")
	time.Sleep(50 * time.Millisecond)
	frames = append(frames, drain(t, client)...)

	var notices []string
	for _, f := range frames {
		switch f.Type {
		case FrameError:
			notices = append(notices, string(f.Data))
		case service.FrameOutcome:
			var outcome dto.PipelineOutcome
			require.NoError(t, json.Unmarshal(f.Data, &outcome))
			if outcome.Error != "" {
				notices = append(notices, outcome.Error)
			}
		}
	}
	assert.Equal(t, []string{service.MsgServiceError}, notices)
}

func TestVoiceSession_RunWithoutOutcomeSendsErrorFrame(t *testing.T) {
	s, client := startSession(t, &fakePipeline{noOutcome: true, err: errors.New("no run id")})

	send(t, s, inboundFrame{Type: "result", Text: "buy milk"})
	waitIdle(t, s)

	var errFrames []decodedFrame
	for _, f := range drain(t, client) {
		if f.Type == FrameError {
			errFrames = append(errFrames, f)
		}
	}
	require.Len(t, errFrames, 1)
	assert.JSONEq(t, `{"message":"`+service.UserMessage(errors.New("no run id"))+`"}`, string(errFrames[0].Data))
}

func TestVoiceSession_InvalidFrame(t *testing.T) {
	s, client := startSession(t, &fakePipeline{})

	s.handleMessage(context.Background(), []byte("not json"))

	frames := drain(t, client)
	require.Len(t, frames, 1)
	assert.Equal(t, FrameError, frames[0].Type)
}
