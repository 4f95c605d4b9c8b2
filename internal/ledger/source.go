package ledger

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/angelmondragon/tombamento-backend/pkg/config"
	"github.com/angelmondragon/tombamento-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tombamento-backend/pkg/errors"
	"github.com/angelmondragon/tombamento-backend/pkg/storage/gcs"
)

// SourceInfo describes the snapshot a Source handed out.
type SourceInfo struct {
	Kind       enums.LedgerSnapshotSource
	Location   string
	Generation int64
	Size       int64
	ModifiedAt time.Time
}

// Source yields the current ledger workbook. The caller closes the reader.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, SourceInfo, error)
}

// FileSource reads the workbook from the local filesystem.
type FileSource struct {
	Path string
}

func (s FileSource) Open(ctx context.Context) (io.ReadCloser, SourceInfo, error) {
	info := SourceInfo{Kind: enums.LedgerSnapshotSourceFile, Location: s.Path}
	if err := ctx.Err(); err != nil {
		return nil, info, err
	}
	f, err := os.Open(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, info, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "ledger file not found").
				WithDetails(map[string]any{"path": s.Path})
		}
		return nil, info, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "open ledger file")
	}
	if stat, err := f.Stat(); err == nil {
		info.Size = stat.Size()
		info.ModifiedAt = stat.ModTime()
	}
	return f, info, nil
}

// ObjectStore is the part of the Cloud Storage client the GCS source uses.
type ObjectStore interface {
	Open(ctx context.Context, bucket, name string) (io.ReadCloser, error)
	Stat(ctx context.Context, bucket, name string) (gcs.ObjectInfo, error)
}

// GCSSource reads the workbook from a Cloud Storage object.
type GCSSource struct {
	Store  ObjectStore
	Bucket string
	Object string
}

func (s GCSSource) Open(ctx context.Context) (io.ReadCloser, SourceInfo, error) {
	info := SourceInfo{Kind: enums.LedgerSnapshotSourceGCS, Location: fmt.Sprintf("gs://%s/%s", s.Bucket, s.Object)}
	if s.Store == nil {
		return nil, info, pkgerrors.New(pkgerrors.CodeDependency, "cloud storage client not configured")
	}
	attrs, err := s.Store.Stat(ctx, s.Bucket, s.Object)
	if err != nil {
		return nil, info, err
	}
	info.Generation = attrs.Generation
	info.Size = attrs.Size
	info.ModifiedAt = attrs.Updated

	reader, err := s.Store.Open(ctx, s.Bucket, s.Object)
	if err != nil {
		return nil, info, err
	}
	return reader, info, nil
}

// NewSource picks the snapshot source named by cfg. store is only consulted
// for the gcs source.
func NewSource(cfg config.LedgerConfig, store ObjectStore) (Source, error) {
	kind, err := enums.ParseLedgerSnapshotSource(strings.ToLower(strings.TrimSpace(cfg.Source)))
	if err != nil {
		return nil, err
	}
	switch kind {
	case enums.LedgerSnapshotSourceFile:
		if strings.TrimSpace(cfg.FilePath) == "" {
			return nil, fmt.Errorf("ledger file path required")
		}
		return FileSource{Path: cfg.FilePath}, nil
	case enums.LedgerSnapshotSourceGCS:
		if store == nil {
			return nil, fmt.Errorf("cloud storage client required for gcs ledger source")
		}
		if cfg.Bucket == "" || cfg.Object == "" {
			return nil, fmt.Errorf("ledger bucket and object required")
		}
		return GCSSource{Store: store, Bucket: cfg.Bucket, Object: cfg.Object}, nil
	default:
		return nil, fmt.Errorf("unsupported ledger source %q", kind)
	}
}
