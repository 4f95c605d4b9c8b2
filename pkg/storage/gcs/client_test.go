package gcs

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/storage"

	pkgerrors "github.com/angelmondragon/tombamento-backend/pkg/errors"
)

func TestMapErrorClassifiesMissingObjects(t *testing.T) {
	err := mapError(storage.ErrObjectNotExist, "snapshots", "ledger.xlsx")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	details, ok := typed.Details().(map[string]any)
	if !ok || details["object"] != "ledger.xlsx" || details["bucket"] != "snapshots" {
		t.Fatalf("unexpected details %#v", typed.Details())
	}
	if !errors.Is(err, storage.ErrObjectNotExist) {
		t.Fatalf("expected cause to be preserved")
	}

	if typed := pkgerrors.As(mapError(storage.ErrBucketNotExist, "b", "")); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected missing bucket to map to not found")
	}
}

func TestMapErrorDependencyAndContext(t *testing.T) {
	if typed := pkgerrors.As(mapError(errors.New("503"), "b", "o")); typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error")
	}
	if err := mapError(context.Canceled, "b", "o"); !errors.Is(err, context.Canceled) || pkgerrors.As(err) != nil {
		t.Fatalf("expected context errors to pass through, got %v", err)
	}
}

func TestUninitializedClient(t *testing.T) {
	var c *Client
	if _, err := c.Open(context.Background(), "b", "o"); err == nil {
		t.Fatalf("expected error from nil client")
	}
	if err := c.Ping(context.Background()); err == nil {
		t.Fatalf("expected error from nil client")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close on nil client should be a no-op: %v", err)
	}
}
