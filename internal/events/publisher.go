package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/excellence-awards/nomination-flow/internal/models"
)

// Publisher emits nomination flow state changes to Kafka, keyed by
// nomination id so consumers see transitions for one nomination in order.
type Publisher struct {
	writer *kafka.Writer
}

func NewPublisher(brokers string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers),
			Topic:    "nomination.state.changed",
			Balancer: &kafka.LeastBytes{},
		},
	}
}

func (p *Publisher) Publish(ctx context.Context, nominationID string, from, to models.FlowState) error {
	event := map[string]interface{}{
		"nomination_id":  nominationID,
		"state":          to,
		"previous_state": from,
		"timestamp":      time.Now(),
	}
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(nominationID),
		Value: eventJSON,
	})
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
