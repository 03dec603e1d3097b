package types

// Event represents a typed event emitted during state transitions.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// EventType allows a raw event to travel through emitters directly.
func (e *Event) EventType() string {
	if e == nil {
		return ""
	}
	return e.Type
}

// Clone returns a deep copy so subscribers cannot mutate a shared payload.
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}
	attrs := make(map[string]string, len(e.Attributes))
	for k, v := range e.Attributes {
		attrs[k] = v
	}
	return &Event{Type: e.Type, Attributes: attrs}
}
