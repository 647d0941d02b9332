package kafka

import (
	"context"

	"markethub-be/internal/events"

	"github.com/segmentio/kafka-go"
)

// Publisher adapts the buffered producer to the events port. Messages
// are keyed by event type so consumers see per-type ordering.
type Publisher struct {
	producer *Producer
}

func NewPublisher(producer *Producer) *Publisher {
	return &Publisher{producer: producer}
}

func (p *Publisher) Publish(ctx context.Context, event events.Envelope) {
	p.producer.Enqueue([]byte(event.EventType), MustMarshal(event),
		kafka.Header{Key: "event_id", Value: []byte(event.EventID)},
		kafka.Header{Key: "event_type", Value: []byte(event.EventType)},
	)
}
