package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/tombamento-backend/pkg/config"
	"github.com/angelmondragon/tombamento-backend/pkg/logger"
)

var (
	errProjectIDRequired    = errors.New("gcp project id is required")
	errSubscriptionRequired = errors.New("pubsub ledger subscription is required")
	errNotInitialized       = errors.New("pubsub client not initialized")
)

// Client holds the Pub/Sub connection used by the ledger snapshot worker.
type Client struct {
	client    *pubsub.Client
	projectID string
	ledgerSub string
}

// NewClient connects to Pub/Sub and fails fast when the ledger subscription
// is missing, so a misconfigured worker never starts receiving.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	if projectID == "" {
		return nil, errProjectIDRequired
	}
	c := &Client{projectID: projectID}
	ledgerSub := c.resourceName(cfg.LedgerSubscription)
	if ledgerSub == "" {
		return nil, errSubscriptionRequired
	}
	c.ledgerSub = ledgerSub

	var opts []option.ClientOption
	if gcp.CredentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(gcp.CredentialsJSON)))
	}
	raw, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	c.client = raw

	if err := c.Ping(ctx); err != nil {
		_ = raw.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "subscription", ledgerSub), "pubsub client initialized")
	}
	return c, nil
}

// LedgerSubscription returns the subscriber receiving ledger upload notifications.
func (c *Client) LedgerSubscription() *pubsub.Subscriber {
	if c == nil || c.client == nil || c.ledgerSub == "" {
		return nil
	}
	return c.client.Subscriber(c.ledgerSub)
}

// Ping checks that the ledger subscription still exists.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errNotInitialized
	}
	_, err := c.client.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{
		Subscription: c.ledgerSub,
	})
	switch {
	case err == nil:
		return nil
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("subscription %s does not exist", c.ledgerSub)
	default:
		return fmt.Errorf("checking subscription %s: %w", c.ledgerSub, err)
	}
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// resourceName expands a short subscription id into its full resource path.
func (c *Client) resourceName(name string) string {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return ""
	case strings.HasPrefix(name, "projects/") && strings.Contains(name, "/subscriptions/"):
		return name
	case c.projectID == "":
		return ""
	default:
		return "projects/" + c.projectID + "/subscriptions/" + name
	}
}
