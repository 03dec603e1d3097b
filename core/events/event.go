package events

import (
	"sync"

	"rewardhub/core/types"
)

// Event represents a structured state change emitted by the ledger.
type Event interface {
	EventType() string
}

// Emitter broadcasts events to downstream subscribers (e.g. websocket clients,
// the journal).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter is a helper that satisfies the Emitter interface while discarding
// all events. It is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// EmitterFunc adapts a plain function to the Emitter interface.
type EmitterFunc func(Event)

// Emit implements the Emitter interface.
func (f EmitterFunc) Emit(evt Event) {
	if f != nil {
		f(evt)
	}
}

// Multi fans a single event out to every configured emitter in order.
type Multi []Emitter

// Emit implements the Emitter interface.
func (m Multi) Emit(evt Event) {
	for _, emitter := range m {
		if emitter != nil {
			emitter.Emit(evt)
		}
	}
}

// Flatten converts evt into its wire representation. Events that do not carry
// attributes are reported with their type only.
func Flatten(evt Event) *types.Event {
	if evt == nil {
		return nil
	}
	switch v := evt.(type) {
	case *types.Event:
		return v.Clone()
	case interface{ Event() *types.Event }:
		return v.Event().Clone()
	default:
		return &types.Event{Type: evt.EventType(), Attributes: map[string]string{}}
	}
}

// Recorder keeps every emitted event in memory. It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Emit implements the Emitter interface.
func (r *Recorder) Emit(evt Event) {
	r.mu.Lock()
	r.events = append(r.events, evt)
	r.mu.Unlock()
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Count returns how many recorded events have the supplied type.
func (r *Recorder) Count(eventType string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, evt := range r.events {
		if evt.EventType() == eventType {
			n++
		}
	}
	return n
}
