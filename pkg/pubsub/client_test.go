package pubsub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/moviestore/pkg/config"
	"github.com/angelmondragon/moviestore/pkg/db/models"
	"github.com/angelmondragon/moviestore/pkg/enums"
)

func TestTopicPath(t *testing.T) {
	assert.Equal(t, "projects/demo-project/topics/moviestore-events", topicPath("demo-project", "moviestore-events"))
	assert.Equal(t, "projects/other/topics/t", topicPath("demo-project", "projects/other/topics/t"))
	assert.Empty(t, topicPath("demo-project", "  "))
	assert.Empty(t, topicPath("", "t"))
}

func TestNewClientValidatesConfig(t *testing.T) {
	_, err := NewClient(context.Background(), config.GCPConfig{}, config.PubSubConfig{EventsTopic: "t"}, nil)
	assert.ErrorIs(t, err, errProjectIDRequired)

	_, err = NewClient(context.Background(), config.GCPConfig{ProjectID: "demo"}, config.PubSubConfig{}, nil)
	assert.ErrorIs(t, err, errNoTopic)
}

func TestUninitializedClient(t *testing.T) {
	var c *Client
	assert.Nil(t, c.Events())
	assert.ErrorIs(t, c.Ping(context.Background()), errNotConnected)
	assert.NoError(t, c.Close())

	var topic *EventsTopic
	_, err := topic.Publish(context.Background(), &pubsub.Message{})
	assert.ErrorIs(t, err, errNotConnected)
	topic.Stop()
}

func TestEventMessage(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 30, 0, 0, time.FixedZone("CET", 3600))
	row := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderPlaced,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{"version":1,"eventId":"evt-1","data":{}}`),
		CreatedAt:     created,
	}

	msg := EventMessage(row, "evt-1")
	require.NotNil(t, msg)

	assert.JSONEq(t, string(row.Payload), string(msg.Data))
	assert.Equal(t, "order/"+row.AggregateID.String(), msg.OrderingKey)
	assert.Equal(t, map[string]string{
		"event_id":       "evt-1",
		"event_type":     "order_placed",
		"aggregate_type": "order",
		"aggregate_id":   row.AggregateID.String(),
		"created_at":     "2026-03-01T11:30:00Z",
	}, msg.Attributes)
}
