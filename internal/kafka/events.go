package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Novip1906/todo-api/internal/config"
	"github.com/Novip1906/todo-api/internal/models"
)

// EventProducer publishes task lifecycle events keyed by owner, so one
// user's events stay ordered within a partition.
type EventProducer struct {
	producer    *producer
	eventsTopic string
}

func NewEventProducer(kafkaCfg *config.Kafka) *EventProducer {
	return &EventProducer{
		producer:    newProducer(kafkaCfg),
		eventsTopic: kafkaCfg.Topic,
	}
}

func (e *EventProducer) SendEvent(ctx context.Context, message *models.EventMessage) error {
	jsonData, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal task event: %w", err)
	}

	err = e.producer.SendMessage(
		ctx,
		e.eventsTopic,
		[]byte(message.UserId),
		jsonData,
	)
	if err != nil {
		return fmt.Errorf("failed to send task event: %w", err)
	}

	return nil
}

func (e *EventProducer) Close() error {
	return e.producer.Close()
}
