package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"shop-console/internal/infra/rabbitmq"

	"github.com/segmentio/kafka-go"
)

// MessageWriter is the part of *kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Publisher struct {
	Writer MessageWriter
}

var _ rabbitmq.PublisherInterface = (*Publisher)(nil)

func NewWriter(broker, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(broker),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
}

func NewPublisher(w MessageWriter) *Publisher {
	return &Publisher{Writer: w}
}

// Publish writes the event keyed by its type so events of one kind stay
// ordered within a partition.
func (p *Publisher) Publish(ctx context.Context, routingKey string, data any) error {
	env := rabbitmq.NewEnvelope(routingKey, data)
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	log.Printf("Publishing %s (%s) to kafka", routingKey, env.ID)
	return p.Writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(routingKey),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(routingKey)},
		},
	})
}

func (p *Publisher) Close() error {
	return p.Writer.Close()
}
