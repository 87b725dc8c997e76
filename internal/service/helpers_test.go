package service

import (
	"context"
	"errors"
	"sync"

	"voicetask/internal/entity"
	"voicetask/pkg/events"
)

type publishedMessage struct {
	topic   string
	payload []byte
}

type recordingPublisher struct {
	mu       sync.Mutex
	messages []publishedMessage
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, publishedMessage{topic: topic, payload: payload})
	return nil
}

func (p *recordingPublisher) topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.messages))
	for i, m := range p.messages {
		out[i] = m.topic
	}
	return out
}

type recordingEvents struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingEvents) Publish(_ context.Context, evt events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

func (r *recordingEvents) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.EventType()
	}
	return out
}

var errStoreDown = errors.New("store unavailable")

// brokenStore fails every call.
type brokenStore struct{}

func (brokenStore) Get(context.Context, string) (*entity.Record, error) {
	return nil, errStoreDown
}

func (brokenStore) Put(context.Context, string, []byte, uint64) (uint64, error) {
	return 0, errStoreDown
}
