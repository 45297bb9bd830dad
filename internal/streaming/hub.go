package streaming

import "context"

// StreamEvent is a real-time event emitted on every Flow Store mutation.
type StreamEvent struct {
	EventType string `json:"event_type"`
	EntityID  string `json:"entity_id,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// EventFilter specifies which events a subscriber wants to receive.
type EventFilter struct {
	EventTypes []string `json:"event_types,omitempty"`
}

// EventHub provides pub/sub for real-time store events.
type EventHub interface {
	Publish(ctx context.Context, event StreamEvent) error
	Subscribe(ctx context.Context, filter EventFilter) (<-chan StreamEvent, func(), error)
}
