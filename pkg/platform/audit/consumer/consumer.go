// Package consumer materializes streamed audit events into the category
// tables. It sits downstream of the outbox relay; delivery is at-least-once,
// so every handler must be idempotent on the event ID.
package consumer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Message is one audit event as it arrives off the stream.
type Message struct {
	Key   []byte
	Value []byte
}

// Handler processes a single message. Returning an error leaves the offset
// uncommitted so the message is redelivered; malformed messages should be
// logged and swallowed instead.
type Handler interface {
	Handle(ctx context.Context, msg *Message) error
}

// Consumer runs a consumer group over the audit topic and feeds each record
// to the handler.
type Consumer struct {
	client  *kgo.Client
	handler Handler
	logger  *slog.Logger
}

// New joins the given consumer group on the audit topic.
func New(brokers []string, topic, group string, handler Handler, logger *slog.Logger) (*Consumer, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ConsumerGroup(group),
		kgo.ConsumeTopics(topic),
		kgo.DisableAutoCommit(),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer: %w", err)
	}
	return &Consumer{client: client, handler: handler, logger: logger}, nil
}

// Run polls until the context is cancelled. Offsets are committed per batch
// after every record in the batch has been handled.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		fetches := c.client.PollFetches(ctx)
		if err := ctx.Err(); err != nil {
			return err
		}
		if errs := fetches.Errors(); len(errs) > 0 {
			for _, fe := range errs {
				c.logger.Error("audit consumer fetch error",
					"topic", fe.Topic,
					"partition", fe.Partition,
					"error", fe.Err,
				)
			}
			continue
		}

		var handleErr error
		fetches.EachRecord(func(record *kgo.Record) {
			if handleErr != nil {
				return
			}
			msg := &Message{Key: record.Key, Value: record.Value}
			if err := c.handler.Handle(ctx, msg); err != nil {
				handleErr = err
			}
		})
		if handleErr != nil {
			c.logger.Error("audit consumer handler failed, batch will be redelivered",
				"error", handleErr,
			)
			continue
		}

		if err := c.client.CommitUncommittedOffsets(ctx); err != nil {
			c.logger.Error("audit consumer commit failed", "error", err)
		}
	}
}

// Close leaves the group and releases the client.
func (c *Consumer) Close() {
	c.client.Close()
}
