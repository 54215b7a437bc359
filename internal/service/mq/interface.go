package mq

import "context"

// Message is a transport-neutral bus message.
type Message struct {
	ID       string // stream entry id or partition/offset
	Topic    string
	Key      string // partition key, e.g. the member uid
	Payload  []byte // JSON
	Metadata map[string]string
}

// Producer publishes messages.
type Producer interface {
	// Publish sends payload to topic. An empty key lets the broker pick the partition.
	Publish(ctx context.Context, topic string, key string, payload []byte) error
	Close() error
}

// Handler processes one message. A non-nil error leaves the message unacknowledged.
type Handler func(msg *Message) error

// Consumer delivers messages of one topic to a handler.
type Consumer interface {
	// Subscribe blocks until ctx is cancelled.
	Subscribe(ctx context.Context, topic string, handler Handler) error
	Close() error
}
