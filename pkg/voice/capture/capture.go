// Package capture drives a streaming speech-recognition engine for one
// speaker and forwards its lifecycle to the utterance gate.
package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"voicetask/internal/pkg/logger"
	"voicetask/pkg/voice/gate"
)

const moduleName = "Capture"

const DefaultLocale = "en-US"

// Engine is the speech-recognition engine boundary. Start asks the engine to
// open a session; its callbacks come back through Capture.HandleEvent.
type Engine interface {
	Start(ctx context.Context, locale string) error
	Stop(ctx context.Context) error
}

// Sink receives gate events. *gate.Gate satisfies it.
type Sink interface {
	Submit(ctx context.Context, ev gate.Event) gate.Decision
}

// Observer is notified of UI-facing changes. Calls happen on the goroutine
// that invoked Start, Stop or HandleEvent.
type Observer interface {
	ListeningChanged(listening bool)
	Transcript(text string, final bool)
	Failed(err error)
}

type EventKind string

const (
	EventStart   EventKind = "start"
	EventPartial EventKind = "partial"
	EventResult  EventKind = "result"
	EventEnd     EventKind = "end"
	EventError   EventKind = "error"
)

// Event is one engine callback.
type Event struct {
	Kind EventKind
	Text string
	// Code is the engine error code for EventError.
	Code string
}

var ErrEngine = errors.New("speech engine error")

// SessionStartError means the engine could not open a session, e.g. the
// microphone permission was denied or the engine was busy.
type SessionStartError struct {
	Locale string
	Err    error
}

func (e *SessionStartError) Error() string {
	return fmt.Sprintf("start capture session (%s): %v", e.Locale, e.Err)
}

func (e *SessionStartError) Unwrap() error {
	return e.Err
}

type session struct {
	started             bool
	lastFinalTranscript string
}

type Capture struct {
	engine   Engine
	sink     Sink
	observer Observer
	locale   string
	logger   logger.ILogger

	mu        sync.Mutex
	session   *session
	listening bool
}

func New(engine Engine, sink Sink, observer Observer, locale string, log logger.ILogger) *Capture {
	if locale == "" {
		locale = DefaultLocale
	}
	return &Capture{
		engine:   engine,
		sink:     sink,
		observer: observer,
		locale:   locale,
		logger:   log,
	}
}

func (c *Capture) Listening() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listening
}

// LastFinalTranscript returns the last result of the active session, or ""
// when no session is open.
func (c *Capture) LastFinalTranscript() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return ""
	}
	return c.session.lastFinalTranscript
}

// Start opens a session in the configured locale. Starting while a session
// is open is a no-op.
func (c *Capture) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.session != nil {
		c.mu.Unlock()
		return nil
	}
	c.session = &session{}
	c.mu.Unlock()
	c.setListening(true)

	if err := c.engine.Start(ctx, c.locale); err != nil {
		return c.failStart(err)
	}

	c.logger.Info(moduleName, "Session requested", map[string]interface{}{
		"locale": c.locale,
	})
	return nil
}

// Stop closes the open session. Stopping with no session is a no-op.
func (c *Capture) Stop(ctx context.Context) error {
	c.mu.Lock()
	s := c.session
	c.session = nil
	c.mu.Unlock()
	if s == nil {
		return nil
	}

	err := c.engine.Stop(ctx)
	c.sink.Submit(ctx, gate.Event{Kind: gate.EventSessionEnd})
	c.setListening(false)

	if err != nil {
		c.logger.Warn(moduleName, "Engine stop failed", map[string]interface{}{
			"error": err.Error(),
		})
		return fmt.Errorf("stop capture session: %w", err)
	}
	return nil
}

// HandleEvent applies one engine callback. Results are forwarded even after
// the session ended since engines may deliver them after end.
func (c *Capture) HandleEvent(ctx context.Context, ev Event) error {
	switch ev.Kind {
	case EventStart:
		c.mu.Lock()
		s := c.session
		if s != nil {
			s.started = true
		}
		c.mu.Unlock()
		if s == nil {
			return nil
		}
		c.sink.Submit(ctx, gate.Event{Kind: gate.EventSessionStart})
		return nil

	case EventPartial:
		c.observer.Transcript(ev.Text, false)
		return nil

	case EventResult:
		c.mu.Lock()
		if c.session != nil {
			c.session.lastFinalTranscript = ev.Text
		}
		c.mu.Unlock()
		c.observer.Transcript(ev.Text, true)
		decision := c.sink.Submit(ctx, gate.Event{Kind: gate.EventResult, Text: ev.Text})
		c.logger.Debug(moduleName, "Result forwarded", map[string]interface{}{
			"decision": string(decision),
		})
		return nil

	case EventEnd:
		if !c.endSession() {
			return nil
		}
		c.sink.Submit(ctx, gate.Event{Kind: gate.EventSessionEnd})
		c.setListening(false)
		return nil

	case EventError:
		return c.handleError(ctx, ev)
	}
	return fmt.Errorf("unknown capture event %q", ev.Kind)
}

func (c *Capture) handleError(ctx context.Context, ev Event) error {
	c.mu.Lock()
	s := c.session
	c.mu.Unlock()
	if s == nil {
		return nil
	}

	cause := fmt.Errorf("%w: %s", ErrEngine, ev.Code)
	if !s.started {
		return c.failStart(cause)
	}

	c.endSession()
	c.sink.Submit(ctx, gate.Event{Kind: gate.EventSessionEnd})
	c.setListening(false)
	c.logger.Warn(moduleName, "Session aborted", map[string]interface{}{
		"code": ev.Code,
	})
	c.observer.Failed(cause)
	return cause
}

func (c *Capture) failStart(cause error) error {
	c.endSession()
	c.setListening(false)

	err := &SessionStartError{Locale: c.locale, Err: cause}
	c.logger.Warn(moduleName, "Session start failed", map[string]interface{}{
		"locale": c.locale,
		"error":  cause.Error(),
	})
	c.observer.Failed(err)
	return err
}

// endSession drops the open session and reports whether there was one.
func (c *Capture) endSession() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	had := c.session != nil
	c.session = nil
	return had
}

func (c *Capture) setListening(v bool) {
	c.mu.Lock()
	changed := c.listening != v
	c.listening = v
	c.mu.Unlock()
	if changed {
		c.observer.ListeningChanged(v)
	}
}
