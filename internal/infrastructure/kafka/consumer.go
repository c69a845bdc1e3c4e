package kafka

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/example/ec-storefront/internal/logging"
)

type MessageHandler func(ctx context.Context, key, value []byte) error

// messageReader is the subset of *kafka.Reader the consumer uses
type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Consumer reads a topic as part of a consumer group
type Consumer struct {
	reader       messageReader
	log          *logrus.Entry
	retryBackoff time.Duration
}

func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{
		reader:       reader,
		log:          logging.Component("kafka-consumer").WithField("topic", topic),
		retryBackoff: time.Second,
	}
}

// Consume hands every message to handler until ctx is cancelled. Handler
// errors are logged and the message is skipped.
func (c *Consumer) Consume(ctx context.Context, handler MessageHandler) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.WithError(err).Warn("error reading message")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.retryBackoff):
			}
			continue
		}

		if err := handler(ctx, msg.Key, msg.Value); err != nil {
			c.log.WithError(err).WithField("offset", msg.Offset).Error("error handling message")
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
