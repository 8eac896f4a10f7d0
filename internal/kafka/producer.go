package kafka

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Novip1906/todo-api/internal/config"
	"github.com/Novip1906/todo-api/internal/contextkeys"
)

const requestIDHeader = "request_id"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type producer struct {
	writer messageWriter
}

func newProducer(kafkaCfg *config.Kafka) *producer {
	return &producer{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(kafkaCfg.Brokers...),
			Balancer:               &kafka.Hash{},
			BatchSize:              1,
			BatchTimeout:           10 * time.Millisecond,
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
			Async:                  false,
		},
	}
}

func (p *producer) SendMessage(ctx context.Context, topic string, key, value []byte) error {
	msg := kafka.Message{
		Topic: topic,
		Key:   key,
		Value: value,
	}
	if id, ok := contextkeys.GetRequestID(ctx); ok {
		msg.Headers = append(msg.Headers, kafka.Header{Key: requestIDHeader, Value: []byte(id)})
	}
	return p.writer.WriteMessages(ctx, msg)
}

func requestID(msg kafka.Message) string {
	for _, h := range msg.Headers {
		if h.Key == requestIDHeader {
			return string(h.Value)
		}
	}
	return ""
}

func (p *producer) Close() error {
	return p.writer.Close()
}
