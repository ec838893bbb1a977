package messaging

import (
	"context"
)

// Broker defines the interface for message brokers
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

// ChannelFor maps an event type onto its pub/sub channel.
func ChannelFor(eventType string) string {
	return "sem.events." + eventType
}
