package events

import (
	"context"
	"sync"
)

// Typing indicator event types.
const (
	ChatTypingStart = "ChatTypingStart"
	ChatTypingStop  = "ChatTypingStop"
)

type Payload struct {
	ChatID string `json:"chatId"`
	UserID string `json:"userId"`
}

type Event struct {
	Type    string  `json:"type"`
	Payload Payload `json:"payload"`
}

// Sink receives events emitted during a generation.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	// Err, when set, is returned from every Publish after recording.
	Err error
}

func (r *Recorder) Publish(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.Err
}

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Types lists the published event types in order.
func (r *Recorder) Types() []string {
	events := r.Events()
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.Type
	}
	return out
}
