// Package pubsub owns the storefront's Google Cloud Pub/Sub connection: the
// events topic lookup at boot and the ordered publisher the outbox relay uses.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/moviestore/pkg/config"
	"github.com/angelmondragon/moviestore/pkg/logger"
)

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errNoTopic           = errors.New("pubsub events topic is required")
	errNotConnected      = errors.New("pubsub client not initialized")
)

// Client wraps the Pub/Sub v2 client together with the resolved events topic.
type Client struct {
	client *pubsub.Client
	topic  string
	cfg    config.PubSubConfig
}

// NewClient connects to Pub/Sub and refuses to start when the events topic is
// missing, so a misconfigured relay fails at boot instead of on first publish.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	project := strings.TrimSpace(gcp.ProjectID)
	if project == "" {
		return nil, errProjectIDRequired
	}
	topic := topicPath(project, cfg.EventsTopic)
	if topic == "" {
		return nil, errNoTopic
	}

	psClient, err := pubsub.NewClient(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("connect pubsub: %w", err)
	}

	c := &Client{client: psClient, topic: topic, cfg: cfg}
	if err := c.lookupTopic(ctx); err != nil {
		_ = psClient.Close()
		return nil, err
	}

	if logg != nil {
		ctx = logg.WithFields(ctx, map[string]any{
			"topic":            topic,
			"ordered_delivery": cfg.OrderedDelivery,
		})
		logg.Info(ctx, "pubsub events topic ready")
	}
	return c, nil
}

func (c *Client) lookupTopic(ctx context.Context) error {
	_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: c.topic})
	switch {
	case err == nil:
		return nil
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("events topic %q not found", c.topic)
	default:
		return fmt.Errorf("look up events topic %q: %w", c.topic, err)
	}
}

// Ping re-checks the events topic; the relay calls it before each batch.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errNotConnected
	}
	return c.lookupTopic(ctx)
}

// Close releases the underlying gRPC connections.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// topicPath accepts either a bare topic id or a full resource name.
func topicPath(project, topic string) string {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return ""
	}
	if strings.HasPrefix(topic, "projects/") && strings.Contains(topic, "/topics/") {
		return topic
	}
	project = strings.TrimSpace(project)
	if project == "" {
		return ""
	}
	return "projects/" + project + "/topics/" + topic
}
