package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/angelmondragon/tombamento-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/tombamento-backend/pkg/errors"
	"github.com/angelmondragon/tombamento-backend/pkg/logger"
)

const pingTimeout = 5 * time.Second

// ObjectInfo is the subset of object attributes the ledger refresher needs.
type ObjectInfo struct {
	Bucket     string
	Name       string
	Generation int64
	Size       int64
	Updated    time.Time
}

// Client reads snapshot objects from Cloud Storage.
type Client struct {
	client     *storage.Client
	pingBucket string
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// NewClient builds a storage client. Explicit JSON credentials win over
// application default credentials. pingBucket is used by Ping and may be empty.
func NewClient(ctx context.Context, gcp config.GCPConfig, pingBucket string, logg *logger.Logger) (*Client, error) {
	var opts []option.ClientOption
	if gcp.CredentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(gcp.CredentialsJSON)))
	}

	sc, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}

	if logg != nil {
		logg.Info(ctx, "gcs client initialized")
	}
	return &Client{client: sc, pingBucket: strings.TrimSpace(pingBucket)}, nil
}

// Open streams the object at bucket/name. The caller closes the reader.
func (c *Client) Open(ctx context.Context, bucket, name string) (io.ReadCloser, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("gcs client not initialized")
	}
	reader, err := c.client.Bucket(bucket).Object(name).NewReader(ctx)
	if err != nil {
		return nil, mapError(err, bucket, name)
	}
	return reader, nil
}

// Stat returns the object's attributes.
func (c *Client) Stat(ctx context.Context, bucket, name string) (ObjectInfo, error) {
	if c == nil || c.client == nil {
		return ObjectInfo{}, errors.New("gcs client not initialized")
	}
	attrs, err := c.client.Bucket(bucket).Object(name).Attrs(ctx)
	if err != nil {
		return ObjectInfo{}, mapError(err, bucket, name)
	}
	return ObjectInfo{
		Bucket:     attrs.Bucket,
		Name:       attrs.Name,
		Generation: attrs.Generation,
		Size:       attrs.Size,
		Updated:    attrs.Updated,
	}, nil
}

// Ping checks that the configured bucket is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errors.New("gcs client not initialized")
	}
	if c.pingBucket == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if _, err := c.client.Bucket(c.pingBucket).Attrs(ctx); err != nil {
		return mapError(err, c.pingBucket, "")
	}
	return nil
}

// Close releases the underlying client.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func mapError(err error, bucket, name string) error {
	details := map[string]any{"bucket": bucket}
	if name != "" {
		details["object"] = name
	}
	switch {
	case errors.Is(err, storage.ErrObjectNotExist), errors.Is(err, storage.ErrBucketNotExist):
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "snapshot object not found").WithDetails(details)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cloud storage request failed").WithDetails(details)
	}
}
