package kafka

import (
	"context"
	"errors"
	"fmt"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageHandler processes one message.
type MessageHandler func(ctx context.Context, msg kafkago.Message) error

// Consumer reads one topic as part of a consumer group.
type Consumer struct {
	reader *kafkago.Reader
	logger *zap.Logger
}

// NewConsumer creates a Consumer for topic in groupID.
func NewConsumer(brokers []string, groupID, topic string, logger *zap.Logger) *Consumer {
	return &Consumer{
		reader: kafkago.NewReader(kafkago.ReaderConfig{
			Brokers:     brokers,
			GroupID:     groupID,
			Topic:       topic,
			MinBytes:    1,
			MaxBytes:    10e6,
			StartOffset: kafkago.LastOffset,
		}),
		logger: logger,
	}
}

// Consume blocks, calling handler for each message until ctx is cancelled.
// Handler failures are logged and the message is skipped.
func (c *Consumer) Consume(ctx context.Context, handler MessageHandler) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return ctx.Err()
			}
			return fmt.Errorf("fetch message: %w", err)
		}

		if err := handler(ctx, msg); err != nil {
			c.logger.Warn("message handler failed",
				zap.String("topic", msg.Topic),
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.logger.Error("commit failed", zap.Int64("offset", msg.Offset), zap.Error(err))
		}
	}
}

// Close closes the reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
