// Package consumer refreshes the ledger snapshot when Cloud Storage reports a
// new version of the snapshot object through Pub/Sub.
package consumer

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/angelmondragon/tombamento-backend/internal/ledger"
	pkgerrors "github.com/angelmondragon/tombamento-backend/pkg/errors"
	"github.com/angelmondragon/tombamento-backend/pkg/logger"
)

const (
	objectFinalizeEvent  = "OBJECT_FINALIZE"
	payloadFormatJSONAPI = "JSON_API_V1"
	consumerName         = "ledger-snapshot"
)

type refresher interface {
	Refresh(ctx context.Context) (*ledger.RefreshResult, error)
}

// processedTracker shares imported generations between worker replicas.
type processedTracker interface {
	CheckAndMarkProcessed(ctx context.Context, consumer, eventID string) (bool, error)
	Delete(ctx context.Context, consumer, eventID string) error
}

// Target names the snapshot object the consumer reacts to.
type Target struct {
	Bucket string
	Object string
}

// Consumer processes GCS OBJECT_FINALIZE notifications for the ledger snapshot.
type Consumer struct {
	refresher    refresher
	subscription *pubsub.Subscriber
	target       Target
	tracker      processedTracker
	logg         *logger.Logger

	mu             sync.Mutex
	lastGeneration int64
}

// NewConsumer constructs a consumer that watches the provided subscription.
// tracker may be nil, in which case duplicates are only detected in process.
func NewConsumer(refresher refresher, subscription *pubsub.Subscriber, target Target, tracker processedTracker, logg *logger.Logger) (*Consumer, error) {
	if refresher == nil {
		return nil, errors.New("ledger refresher is required")
	}
	if subscription == nil {
		return nil, errors.New("ledger subscription is required")
	}
	if strings.TrimSpace(target.Object) == "" {
		return nil, errors.New("ledger snapshot object is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Consumer{
		refresher:    refresher,
		subscription: subscription,
		target:       target,
		tracker:      tracker,
		logg:         logg,
	}, nil
}

// Run processes messages until the context is canceled or the subscription errors.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	attrs := parseAttributes(msg.Attributes)
	fields := buildLogFields(msg.ID, attrs, nil)
	logCtx := c.logg.WithFields(ctx, fields)
	if attrs.EventType != objectFinalizeEvent {
		c.logg.Info(logCtx, "skipping non-finalize event")
		return processResult{ack: true}
	}
	if attrs.PayloadFormat != payloadFormatJSONAPI {
		c.logg.Warn(logCtx, "unsupported payload format")
		return processResult{ack: true}
	}

	payload, err := decodePayload(msg.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to decode payload", err)
		return processResult{ack: true}
	}

	var object gcsPayload
	if err := json.Unmarshal(payload, &object); err != nil {
		fields["payload_len"] = len(payload)
		c.logg.Error(c.logg.WithFields(ctx, fields), "failed to unmarshal payload", err)
		return processResult{ack: true}
	}
	if strings.TrimSpace(object.Name) == "" {
		c.logg.Error(logCtx, "payload missing gcs object name", fmt.Errorf("empty name"))
		return processResult{ack: true}
	}

	fields = buildLogFields(msg.ID, attrs, &object)
	logCtx = c.logg.WithFields(ctx, fields)

	if !c.matches(attrs, object) {
		c.logg.Info(logCtx, "object is not the ledger snapshot")
		return processResult{ack: true}
	}

	generation := parseGeneration(object.Generation)
	if c.seen(generation) {
		c.logg.Info(logCtx, "snapshot generation already imported")
		return processResult{ack: true}
	}

	eventID := fmt.Sprintf("%s/%s#%d", firstNonEmpty(object.Bucket, attrs.BucketID), object.Name, generation)
	claimed := false
	if c.tracker != nil && generation != 0 {
		already, err := c.tracker.CheckAndMarkProcessed(logCtx, consumerName, eventID)
		if err != nil {
			c.logg.Error(logCtx, "failed to check imported generations", err)
			return processResult{nack: true}
		}
		if already {
			c.markSeen(generation)
			c.logg.Info(logCtx, "snapshot generation already imported by another worker")
			return processResult{ack: true}
		}
		claimed = true
	}

	result, err := c.refresher.Refresh(logCtx)
	if err != nil {
		if claimed {
			if delErr := c.tracker.Delete(context.WithoutCancel(logCtx), consumerName, eventID); delErr != nil {
				c.logg.Error(logCtx, "failed to release imported generation marker", delErr)
			}
		}
		return c.handleRefreshError(logCtx, err)
	}
	c.markSeen(generation)

	fields["snapshot_id"] = result.SnapshotID.String()
	fields["records"] = result.Records
	c.logg.Info(c.logg.WithFields(ctx, fields), "ledger snapshot refreshed from notification")
	return processResult{ack: true}
}

func (c *Consumer) matches(attrs gcsAttributes, object gcsPayload) bool {
	bucket := firstNonEmpty(object.Bucket, attrs.BucketID)
	if c.target.Bucket != "" && bucket != c.target.Bucket {
		return false
	}
	return object.Name == c.target.Object
}

func (c *Consumer) seen(generation int64) bool {
	if generation == 0 {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return generation <= c.lastGeneration
}

func (c *Consumer) markSeen(generation int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if generation > c.lastGeneration {
		c.lastGeneration = generation
	}
}

// handleRefreshError nacks failures a redelivery can fix and acks the rest.
func (c *Consumer) handleRefreshError(ctx context.Context, err error) processResult {
	c.logg.Error(ctx, "ledger refresh failed", err)
	if isTransientError(err) {
		return processResult{nack: true}
	}
	return processResult{ack: true}
}

func buildLogFields(messageID string, attrs gcsAttributes, payload *gcsPayload) map[string]any {
	fields := map[string]any{
		"message_id": messageID,
		"event_type": attrs.EventType,
		"bucket":     firstNonEmpty(attrs.BucketID, gcsBucket(payload)),
	}
	if payload != nil {
		fields["gcs_key"] = payload.Name
		fields["generation"] = payload.Generation
	}
	return fields
}

func gcsBucket(p *gcsPayload) string {
	if p == nil {
		return ""
	}
	return p.Bucket
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func parseAttributes(attrs map[string]string) gcsAttributes {
	return gcsAttributes{
		EventType:     attrs["eventType"],
		BucketID:      attrs["bucketId"],
		ObjectID:      attrs["objectId"],
		PayloadFormat: attrs["payloadFormat"],
	}
}

type gcsAttributes struct {
	EventType     string
	BucketID      string
	ObjectID      string
	PayloadFormat string
}

type gcsPayload struct {
	Name        string `json:"name"`
	Bucket      string `json:"bucket"`
	Generation  string `json:"generation"`
	ContentType string `json:"contentType"`
	Size        string `json:"size"`
}

func parseGeneration(s string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func decodePayload(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("payload empty")
	}
	if decoded, err := base64.StdEncoding.DecodeString(string(data)); err == nil {
		return decoded, nil
	}
	return data, nil
}

func isTransientError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return pkgerrors.IsRetryable(err)
}
