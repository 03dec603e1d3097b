package events

import (
	"log/slog"
	"sync"

	"rewardhub/core/types"
	"rewardhub/observability"
)

// Hub fans committed events out to live subscribers. Slow subscribers lose
// events rather than blocking the ledger.
type Hub struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]chan *types.Event
	logger *slog.Logger
}

// NewHub constructs an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[uint64]chan *types.Event), logger: slog.Default()}
}

// Subscribe registers a new subscriber with the provided buffer size. The
// returned cancel function closes the channel and must be called once.
func (h *Hub) Subscribe(buffer int) (<-chan *types.Event, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan *types.Event, buffer)
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Subscribers reports the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Emit implements Emitter.
func (h *Hub) Emit(evt Event) {
	flat := Flatten(evt)
	if flat == nil {
		return
	}
	observability.Events().RecordEvent(flat.Type)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, ch := range h.subs {
		select {
		case ch <- flat.Clone():
		default:
			observability.Events().RecordDrop()
			h.logger.Warn("event subscriber lagging, dropping event", slog.Uint64("subscriber", id), slog.String("type", flat.Type))
		}
	}
}
