package pubsub

import (
	"context"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/angelmondragon/moviestore/pkg/db/models"
)

const fallbackPublishTimeout = 15 * time.Second

// EventsTopic publishes outbox rows to the storefront events topic and waits
// for the server acknowledgement of each message.
type EventsTopic struct {
	publisher *pubsub.Publisher
	timeout   time.Duration
	ordered   bool
}

// Events returns the events topic handle. Callers must Stop it on shutdown to
// flush buffered messages.
func (c *Client) Events() *EventsTopic {
	if c == nil || c.client == nil {
		return nil
	}
	p := c.client.Publisher(c.topic)
	p.EnableMessageOrdering = c.cfg.OrderedDelivery
	timeout := c.cfg.PublishTimeout
	if timeout <= 0 {
		timeout = fallbackPublishTimeout
	}
	return &EventsTopic{publisher: p, timeout: timeout, ordered: c.cfg.OrderedDelivery}
}

// Publish blocks until the message is acknowledged and returns its server id.
// A failed ordered publish pauses its key, so the key is resumed here and the
// outbox row retried on a later poll.
func (t *EventsTopic) Publish(ctx context.Context, msg *pubsub.Message) (string, error) {
	if t == nil || t.publisher == nil {
		return "", errNotConnected
	}
	if !t.ordered {
		msg.OrderingKey = ""
	}
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	id, err := t.publisher.Publish(ctx, msg).Get(ctx)
	if err != nil && msg.OrderingKey != "" {
		t.publisher.ResumePublish(msg.OrderingKey)
	}
	return id, err
}

// Stop flushes pending messages and releases the publisher goroutines.
func (t *EventsTopic) Stop() {
	if t == nil || t.publisher == nil {
		return
	}
	t.publisher.Stop()
}

// EventMessage wraps an outbox row for the events topic. The payload is
// forwarded verbatim and events of one aggregate share an ordering key.
func EventMessage(row models.OutboxEvent, eventID string) *pubsub.Message {
	aggregateID := row.AggregateID.String()
	return &pubsub.Message{
		Data:        row.Payload,
		OrderingKey: string(row.AggregateType) + "/" + aggregateID,
		Attributes: map[string]string{
			"event_id":       eventID,
			"event_type":     string(row.EventType),
			"aggregate_type": string(row.AggregateType),
			"aggregate_id":   aggregateID,
			"created_at":     row.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	}
}
