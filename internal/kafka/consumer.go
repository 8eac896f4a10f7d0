package kafka

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Novip1906/todo-api/internal/config"
	"github.com/Novip1906/todo-api/internal/contextkeys"
	"github.com/Novip1906/todo-api/pkg/logging"
)

type MessageHandler interface {
	HandleMessage(ctx context.Context, message []byte) error
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Consumer reads one topic as part of a consumer group and hands every
// message to a handler, retrying failed messages a bounded number of times.
type Consumer struct {
	reader     messageReader
	handler    MessageHandler
	topic      string
	maxRetries int
	retryDelay time.Duration
	wg         sync.WaitGroup
	log        *slog.Logger
}

func NewConsumer(kafkaCfg config.Kafka, handler MessageHandler, maxRetries int, log *slog.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     kafkaCfg.Brokers,
		GroupID:     kafkaCfg.GroupId,
		Topic:       kafkaCfg.Topic,
		MaxAttempts: 3,
		MaxWait:     10 * time.Second,
		Logger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			log.Debug("[KAFKA] "+msg, args...)
		}),
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			log.Error("[KAFKA-ERROR] "+msg, args...)
		}),
	})
	return newConsumer(reader, kafkaCfg.Topic, handler, maxRetries, log)
}

func newConsumer(reader messageReader, topic string, handler MessageHandler, maxRetries int, log *slog.Logger) *Consumer {
	return &Consumer{
		reader:     reader,
		handler:    handler,
		topic:      topic,
		maxRetries: maxRetries,
		retryDelay: time.Second,
		log:        log.With(slog.String("topic", topic)),
	}
}

func (c *Consumer) Start(ctx context.Context) {
	c.wg.Add(1)
	go c.consume(ctx)
	c.log.Info("consumer started")
}

func (c *Consumer) consume(ctx context.Context) {
	defer c.wg.Done()

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.log.Info("stopping consumer")
				return
			}
			c.log.Error("read message", logging.Err(err))
			continue
		}

		c.handleWithRetry(ctx, msg)
	}
}

func (c *Consumer) handleWithRetry(ctx context.Context, msg kafka.Message) bool {
	log := c.log
	if id := requestID(msg); id != "" {
		log = log.With(slog.String("request_id", id))
		ctx = contextkeys.WithRequestID(ctx, id)
	}
	ctx = contextkeys.WithLogger(ctx, log)

	var lastErr error

	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		err := c.handler.HandleMessage(ctx, msg.Value)
		if err == nil {
			log.Debug("message processed", "partition", msg.Partition, "offset", msg.Offset)
			return true
		}

		lastErr = err
		log.Warn("failed to process message, retrying",
			"attempt", attempt,
			"maxRetries", c.maxRetries,
			logging.Err(err))

		if attempt < c.maxRetries {
			select {
			case <-ctx.Done():
				return false
			case <-time.After(time.Duration(attempt) * c.retryDelay):
			}
		}
	}

	log.Error("failed to process message after all retries",
		"partition", msg.Partition,
		"offset", msg.Offset,
		logging.Err(lastErr))
	return false
}

// Stop closes the reader and waits for the consume loop. ctx passed to Start
// must already be cancelled.
func (c *Consumer) Stop() error {
	err := c.reader.Close()
	c.wg.Wait()
	c.log.Info("consumer stopped")
	return err
}
