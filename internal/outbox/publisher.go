package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"example.com/habitboard/internal/events"
)

// Kafka headers attached to every record.
const (
	HeaderEventType   = "event_type"
	HeaderContentType = "content_type"
)

// Publisher writes events straight to Kafka. It serves changes that cannot share a
// transaction with the outbox table, such as spreadsheet writes.
type Publisher struct {
	producer messageWriter
}

// NewPublisher constructs a Publisher.
func NewPublisher(producer messageWriter) *Publisher {
	return &Publisher{producer: producer}
}

// Publish encodes payload as JSON and writes it to the topic of eventType.
func (p *Publisher) Publish(ctx context.Context, eventType, key string, payload any) error {
	topic := events.TopicFor(eventType)
	if topic == "" {
		return fmt.Errorf("unknown event type: %s", eventType)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", eventType, err)
	}
	err = p.producer.WriteMessages(ctx, topic, newRecord(eventType, key, body))
	recordDirectPublish(topic, err)
	return err
}

func newRecord(eventType, key string, payload []byte) kafka.Message {
	return kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Time:  time.Now().UTC(),
		Headers: []kafka.Header{
			{Key: HeaderEventType, Value: []byte(eventType)},
			{Key: HeaderContentType, Value: []byte("application/json")},
		},
	}
}
