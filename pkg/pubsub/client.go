// Package pubsub wraps the Pub/Sub v2 client with config-driven resource
// naming. Short IDs in config are qualified with the project; full resource
// names pass through untouched.
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

	"github.com/tefamart/tefamart-backend/pkg/config"
	"github.com/tefamart/tefamart-backend/pkg/logger"
)

var errProjectIDRequired = errors.New("gcp project id is required")

type Client struct {
	client    *pubsub.Client
	projectID string
	cfg       config.PubSubConfig
}

// NewClient dials Pub/Sub and, when a subscription is configured, fails fast
// if it does not exist. Topics are not checked here; publishing reports its
// own errors.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	project := strings.TrimSpace(gcp.ProjectID)
	if project == "" {
		return nil, errProjectIDRequired
	}

	inner, err := pubsub.NewClient(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	c := &Client{client: inner, projectID: project, cfg: cfg}
	if sub := strings.TrimSpace(cfg.EventsSubscription); sub != "" {
		if err := c.checkSubscription(ctx, sub); err != nil {
			_ = inner.Close()
			return nil, err
		}
	}

	if logg != nil {
		logg.Info(ctx, "pubsub client initialized")
	}
	return c, nil
}

func (c *Client) checkSubscription(ctx context.Context, name string) error {
	full := c.resourceName("subscriptions", name)
	if full == "" {
		return fmt.Errorf("subscription %q not configured", name)
	}

	req := &pubsubpb.GetSubscriptionRequest{Subscription: full}
	if _, err := c.client.SubscriptionAdminClient.GetSubscription(ctx, req); err != nil {
		// v2 surfaces gRPC status codes.
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("subscription %q does not exist", name)
		}
		return fmt.Errorf("checking subscription %q: %w", name, err)
	}
	return nil
}

// Publisher returns a publisher handle for the given topic ID or full
// resource name, or nil when the name cannot be resolved.
func (c *Client) Publisher(name string) *pubsub.Publisher {
	if c == nil || c.client == nil {
		return nil
	}
	if full := c.resourceName("topics", name); full != "" {
		return c.client.Publisher(full)
	}
	return nil
}

// EventsPublisher returns the publisher for the configured domain event topic.
func (c *Client) EventsPublisher() *pubsub.Publisher {
	return c.Publisher(c.cfg.EventsTopic)
}

// EventsSubscription returns the subscriber for the configured domain event
// subscription.
func (c *Client) EventsSubscription() *pubsub.Subscriber {
	if c == nil || c.client == nil {
		return nil
	}
	if full := c.resourceName("subscriptions", c.cfg.EventsSubscription); full != "" {
		return c.client.Subscriber(full)
	}
	return nil
}

// Ping verifies connectivity by re-checking the configured subscription.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil {
		return errors.New("pubsub client not initialized")
	}
	if sub := strings.TrimSpace(c.cfg.EventsSubscription); sub != "" {
		return c.checkSubscription(ctx, sub)
	}
	return nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// resourceName qualifies a short ID into projects/<id>/<kind>/<name>. Names
// that already carry the projects/ prefix for the right kind pass through.
func (c *Client) resourceName(kind, name string) string {
	if c == nil {
		return ""
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if strings.HasPrefix(name, "projects/") && strings.Contains(name, "/"+kind+"/") {
		return name
	}
	if c.projectID == "" {
		return ""
	}
	return fmt.Sprintf("projects/%s/%s/%s", c.projectID, kind, name)
}
