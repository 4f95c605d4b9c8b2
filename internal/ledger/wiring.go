package ledger

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/angelmondragon/tombamento-backend/pkg/config"
	"github.com/angelmondragon/tombamento-backend/pkg/enums"
	"github.com/angelmondragon/tombamento-backend/pkg/logger"
	"github.com/angelmondragon/tombamento-backend/pkg/storage/gcs"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// storeFactory opens the object store backing a gcs ledger source.
type storeFactory func(ctx context.Context) (ObjectStore, io.Closer, error)

// BuildRefresher wires a refresher for the configured snapshot source. The
// returned closer releases the cloud storage client when one was opened.
func BuildRefresher(ctx context.Context, cfg *config.Config, repo Repository, gauge snapshotGauge, logg *logger.Logger) (*Refresher, io.Closer, error) {
	return buildRefresher(ctx, cfg, repo, gauge, logg, func(ctx context.Context) (ObjectStore, io.Closer, error) {
		client, err := gcs.NewClient(ctx, cfg.GCP, cfg.Ledger.Bucket, logg)
		if err != nil {
			return nil, nil, err
		}
		return client, client, nil
	})
}

func buildRefresher(ctx context.Context, cfg *config.Config, repo Repository, gauge snapshotGauge, logg *logger.Logger, openStore storeFactory) (*Refresher, io.Closer, error) {
	var (
		store  ObjectStore
		closer io.Closer = nopCloser{}
	)
	kind, _ := enums.ParseLedgerSnapshotSource(strings.ToLower(strings.TrimSpace(cfg.Ledger.Source)))
	if kind == enums.LedgerSnapshotSourceGCS {
		s, c, err := openStore(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("opening ledger object store: %w", err)
		}
		store, closer = s, c
	}

	source, err := NewSource(cfg.Ledger, store)
	if err != nil {
		_ = closer.Close()
		return nil, nil, err
	}
	refresher, err := NewRefresher(repo, source, cfg.Ledger.Sheet, gauge, logg)
	if err != nil {
		_ = closer.Close()
		return nil, nil, err
	}
	return refresher, closer, nil
}
