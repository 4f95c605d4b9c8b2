package pubsub

import (
	"context"
	"errors"
	"testing"

	"github.com/angelmondragon/tombamento-backend/pkg/config"
)

func TestResourceName(t *testing.T) {
	c := &Client{projectID: "audit-prod"}

	tests := []struct {
		in   string
		want string
	}{
		{"tmb-ledger-snapshots", "projects/audit-prod/subscriptions/tmb-ledger-snapshots"},
		{" tmb-ledger-snapshots ", "projects/audit-prod/subscriptions/tmb-ledger-snapshots"},
		{"projects/other/subscriptions/x", "projects/other/subscriptions/x"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := c.resourceName(tt.in); got != tt.want {
			t.Fatalf("resourceName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	if got := (&Client{}).resourceName("x"); got != "" {
		t.Fatalf("expected empty name without project, got %q", got)
	}
}

func TestNewClientValidatesConfig(t *testing.T) {
	ctx := context.Background()
	if _, err := NewClient(ctx, config.GCPConfig{}, config.PubSubConfig{LedgerSubscription: "x"}, nil); !errors.Is(err, errProjectIDRequired) {
		t.Fatalf("expected project id error, got %v", err)
	}
	if _, err := NewClient(ctx, config.GCPConfig{ProjectID: "p"}, config.PubSubConfig{LedgerSubscription: " "}, nil); !errors.Is(err, errSubscriptionRequired) {
		t.Fatalf("expected subscription error, got %v", err)
	}
}

func TestNilClientHandles(t *testing.T) {
	var c *Client
	if c.LedgerSubscription() != nil {
		t.Fatalf("expected nil subscriber from nil client")
	}
	if err := c.Ping(context.Background()); !errors.Is(err, errNotInitialized) {
		t.Fatalf("expected not initialized error, got %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
}
