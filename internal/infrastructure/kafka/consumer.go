package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/mavi-boutique/internal/infrastructure/store"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type MessageHandler func(ctx context.Context, key, value []byte) error

// EventHandler receives decoded store events.
type EventHandler func(ctx context.Context, event store.Event) error

// messageReader is the part of *kafka.Reader the consumer needs.
type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type Consumer struct {
	reader  messageReader
	log     *zap.Logger
	backoff time.Duration
}

func NewConsumer(brokers []string, topic, groupID string, log *zap.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
		MaxWait:  500 * time.Millisecond,
	})
	return newConsumer(reader, log)
}

func newConsumer(reader messageReader, log *zap.Logger) *Consumer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Consumer{reader: reader, log: log, backoff: time.Second}
}

// Consume reads until ctx is done. Handler errors are logged and the
// message is skipped.
func (c *Consumer) Consume(ctx context.Context, handler MessageHandler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Warn("error reading message", zap.Error(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.backoff):
			}
			continue
		}

		if err := handler(ctx, msg.Key, msg.Value); err != nil {
			c.log.Error("error handling message",
				zap.String("key", string(msg.Key)),
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
		}
	}
}

// ConsumeEvents decodes each message as a store event before handing it on.
func (c *Consumer) ConsumeEvents(ctx context.Context, handler EventHandler) error {
	return c.Consume(ctx, func(ctx context.Context, _, value []byte) error {
		var event store.Event
		if err := json.Unmarshal(value, &event); err != nil {
			return fmt.Errorf("decode event: %w", err)
		}
		return handler(ctx, event)
	})
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
