// Package kafka publishes and consumes docking job events with segmentio/kafka-go.
package kafka

import (
	"context"
	"time"
)

// Message is a consumed record.
type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
}

// ProducerMessage is a record to publish.
type ProducerMessage struct {
	Topic     string
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
}

// MessageHandler processes one consumed message. A returned error triggers
// the consumer's retry policy.
type MessageHandler func(ctx context.Context, msg *Message) error

// Publisher is the producer side used by application services.
type Publisher interface {
	Publish(ctx context.Context, msg *ProducerMessage) error
	Close() error
}

//Personal.AI order the ending
