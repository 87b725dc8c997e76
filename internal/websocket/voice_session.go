package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"voicetask/internal/pkg/logger"
	"voicetask/internal/service"
	"voicetask/pkg/voice/capture"
	"voicetask/pkg/voice/gate"

	"github.com/gofiber/websocket/v2"
)

// Device -> server frame types. Engine callbacks use the capture event
// names ("start", "partial", "result", "end", "error").
const (
	FrameListen = "listen"
	FrameStop   = "stop"
)

// Server -> device frame types.
const (
	FrameIndicator  = "indicator"
	FrameTranscript = "transcript"
	FrameError      = "error"
)

type inboundFrame struct {
	Type string `json:"type"`
	Text string `json:"text"`
	Code string `json:"code"`
}

type IndicatorData struct {
	Listening  bool `json:"listening"`
	Processing bool `json:"processing"`
}

type TranscriptData struct {
	Text  string `json:"text"`
	Final bool   `json:"final"`
}

type ErrorData struct {
	Message string `json:"message"`
}

type listenData struct {
	Locale string `json:"locale"`
}

// VoiceConfig holds what every voice session needs.
type VoiceConfig struct {
	Pipeline service.IPipelineService
	Locale   string
	Cooldown time.Duration
	Logger   logger.ILogger
}

// deviceEngine drives the speech engine on the device by sending control
// frames. Callbacks come back as inbound frames.
type deviceEngine struct {
	client *Client
}

func (e *deviceEngine) Start(_ context.Context, locale string) error {
	if !e.client.SendFrame(FrameListen, listenData{Locale: locale}) {
		return errSendBufferFull
	}
	return nil
}

func (e *deviceEngine) Stop(_ context.Context) error {
	if !e.client.SendFrame(FrameStop, nil) {
		return errSendBufferFull
	}
	return nil
}

// voiceSession owns one device connection's capture and gate.
type voiceSession struct {
	client  *Client
	capture *capture.Capture
	gate    *gate.Gate
	cfg     VoiceConfig

	mu        sync.Mutex
	indicator IndicatorData
}

func newVoiceSession(client *Client, cfg VoiceConfig) *voiceSession {
	s := &voiceSession{
		client: client,
		cfg:    cfg,
	}
	s.gate = gate.New(s.dispatch, cfg.Logger,
		gate.WithCooldown(cfg.Cooldown),
		gate.WithStateObserver(s.gateStateChanged),
	)
	s.capture = capture.New(&deviceEngine{client: client}, s.gate, s, cfg.Locale, cfg.Logger)
	return s
}

// dispatch runs the pipeline for one utterance. Success and failure both
// reach the device as the broadcast outcome frame; a direct error frame is
// only sent when the run produced no outcome to broadcast.
func (s *voiceSession) dispatch(ctx context.Context, u gate.Utterance) {
	outcome, err := s.cfg.Pipeline.Run(ctx, u.Text, service.SourceVoice)
	if err != nil && outcome == nil {
		s.client.SendFrame(FrameError, ErrorData{Message: service.UserMessage(err)})
	}
}

func (s *voiceSession) gateStateChanged(state gate.State) {
	s.updateIndicator(func(ind *IndicatorData) {
		ind.Processing = state == gate.StateProcessing
	})
}

func (s *voiceSession) ListeningChanged(listening bool) {
	s.updateIndicator(func(ind *IndicatorData) {
		ind.Listening = listening
	})
}

func (s *voiceSession) Transcript(text string, final bool) {
	s.client.SendFrame(FrameTranscript, TranscriptData{Text: text, Final: final})
}

func (s *voiceSession) Failed(err error) {
	s.client.SendFrame(FrameError, ErrorData{Message: service.UserMessage(err)})
}

func (s *voiceSession) updateIndicator(fn func(*IndicatorData)) {
	s.mu.Lock()
	before := s.indicator
	fn(&s.indicator)
	after := s.indicator
	s.mu.Unlock()

	if before != after {
		s.client.SendFrame(FrameIndicator, after)
	}
}

// handleMessage applies one inbound device frame.
func (s *voiceSession) handleMessage(ctx context.Context, raw []byte) {
	var frame inboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		s.client.SendFrame(FrameError, ErrorData{Message: "Invalid frame"})
		return
	}

	var err error
	switch frame.Type {
	case FrameListen:
		err = s.capture.Start(ctx)
	case FrameStop:
		err = s.capture.Stop(ctx)
	default:
		err = s.capture.HandleEvent(ctx, capture.Event{
			Kind: capture.EventKind(frame.Type),
			Text: frame.Text,
			Code: frame.Code,
		})
	}

	if err != nil {
		s.cfg.Logger.Debug("VoiceSession", "Frame rejected", map[string]interface{}{
			"device_id": s.client.DeviceID,
			"type":      frame.Type,
			"error":     err.Error(),
		})
	}
}

// ServeVoice runs a voice session on conn until the device disconnects.
// An extraction in flight at disconnect still completes and merges.
func ServeVoice(hub *Hub, conn *websocket.Conn, deviceID string, cfg VoiceConfig) {
	client := NewClient(hub, conn, deviceID)
	if !hub.Register(client) {
		conn.Close()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	session := newVoiceSession(client, cfg)
	go func() { _ = session.gate.Run(ctx) }()
	go client.writePump()

	client.readPump(func(msg []byte) {
		session.handleMessage(ctx, msg)
	})
}
