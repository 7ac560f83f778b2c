package events

import (
	"context"
	"time"
)

const (
	// ChannelBroadcasts carries broadcast lifecycle events for other
	// services (push notifiers, socket gateways) to react to.
	ChannelBroadcasts = "convo:broadcasts"

	TypeBroadcastCompleted = "broadcast.completed"
)

type Event struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload"`
	Timestamp int64       `json:"timestamp"`
}

func New(eventType string, payload interface{}) Event {
	return Event{Type: eventType, Payload: payload, Timestamp: time.Now().UnixMilli()}
}

type Publisher interface {
	Publish(ctx context.Context, channel string, event Event) error
}
