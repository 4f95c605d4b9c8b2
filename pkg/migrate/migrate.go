// Package migrate applies the goose SQL migrations under DefaultDir.
package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pressly/goose/v3"
)

// DefaultDir is relative to the repository root, where the binaries run.
const DefaultDir = "pkg/migrate/migrations"

var dialects = map[string]goose.Dialect{
	"postgres": goose.DialectPostgres,
	"sqlite":   goose.DialectSQLite3,
	"sqlite3":  goose.DialectSQLite3,
}

// newProvider builds a goose provider over db. Callers must not Close the
// provider: it closes db, which stays owned by the caller.
func newProvider(db *sql.DB, dialect, dir string) (*goose.Provider, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	if dir == "" {
		return nil, fmt.Errorf("dir is required")
	}
	d, ok := dialects[strings.ToLower(strings.TrimSpace(dialect))]
	if !ok {
		return nil, fmt.Errorf("unsupported migration dialect %q", dialect)
	}
	return goose.NewProvider(d, db, os.DirFS(dir))
}

// Run executes up, down, status or version and returns one report line per
// migration applied, rolled back or listed.
func Run(ctx context.Context, db *sql.DB, dialect, dir, command string) ([]string, error) {
	provider, err := newProvider(db, dialect, dir)
	if err != nil {
		return nil, err
	}

	switch command {
	case "up":
		results, err := provider.Up(ctx)
		if err != nil {
			return nil, fmt.Errorf("goose up: %w", err)
		}
		return describeResults(results), nil
	case "down":
		result, err := provider.Down(ctx)
		if err != nil {
			return nil, fmt.Errorf("goose down: %w", err)
		}
		return describeResults([]*goose.MigrationResult{result}), nil
	case "status":
		statuses, err := provider.Status(ctx)
		if err != nil {
			return nil, fmt.Errorf("goose status: %w", err)
		}
		lines := make([]string, 0, len(statuses))
		for _, s := range statuses {
			applied := "-"
			if !s.AppliedAt.IsZero() {
				applied = s.AppliedAt.UTC().Format(time.RFC3339)
			}
			lines = append(lines, fmt.Sprintf("%-8s %-25s %s", s.State, applied, filepath.Base(s.Source.Path)))
		}
		return lines, nil
	case "version":
		version, err := provider.GetDBVersion(ctx)
		if err != nil {
			return nil, fmt.Errorf("goose version: %w", err)
		}
		return []string{strconv.FormatInt(version, 10)}, nil
	default:
		return nil, fmt.Errorf("unknown migration command %q", command)
	}
}

// MigrateToVersion moves the schema up or down until targetVersion is the
// newest applied migration.
func MigrateToVersion(ctx context.Context, db *sql.DB, dialect, dir string, targetVersion string) ([]string, error) {
	target, err := strconv.ParseInt(strings.TrimSpace(targetVersion), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", targetVersion, err)
	}
	provider, err := newProvider(db, dialect, dir)
	if err != nil {
		return nil, err
	}

	current, err := provider.GetDBVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("get db version: %w", err)
	}

	var results []*goose.MigrationResult
	switch {
	case current == target:
		return nil, nil
	case current < target:
		results, err = provider.UpTo(ctx, target)
	default:
		results, err = provider.DownTo(ctx, target)
	}
	if err != nil {
		return nil, fmt.Errorf("goose migrate to %d: %w", target, err)
	}
	return describeResults(results), nil
}

func describeResults(results []*goose.MigrationResult) []string {
	lines := make([]string, 0, len(results))
	for _, r := range results {
		if r == nil || r.Source == nil {
			continue
		}
		lines = append(lines, fmt.Sprintf("%-4s %s (%s)", r.Direction, filepath.Base(r.Source.Path), r.Duration.Round(time.Millisecond)))
	}
	return lines
}
