package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/tombamento-backend/internal/ledger"
	"github.com/angelmondragon/tombamento-backend/pkg/logger"
)

const ledgerRefreshJobName = "ledger-refresh"

type ledgerRefresher interface {
	Refresh(ctx context.Context) (*ledger.RefreshResult, error)
}

// LedgerRefreshJobParams wire the ledger refresh job.
type LedgerRefreshJobParams struct {
	Logger    *logger.Logger
	Refresher ledgerRefresher
}

// LedgerRefreshJob re-imports the ledger snapshot from its configured source.
type LedgerRefreshJob struct {
	logg      *logger.Logger
	refresher ledgerRefresher
}

func NewLedgerRefreshJob(params LedgerRefreshJobParams) (*LedgerRefreshJob, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Refresher == nil {
		return nil, fmt.Errorf("ledger refresher required")
	}
	return &LedgerRefreshJob{logg: params.Logger, refresher: params.Refresher}, nil
}

func (j *LedgerRefreshJob) Name() string { return ledgerRefreshJobName }

func (j *LedgerRefreshJob) Run(ctx context.Context) error {
	result, err := j.refresher.Refresh(ctx)
	if err != nil {
		return err
	}
	ctx = j.logg.WithFields(ctx, map[string]any{
		"snapshot_id": result.SnapshotID.String(),
		"records":     result.Records,
		"skipped":     result.Skipped,
		"duplicates":  result.Duplicates,
		"generation":  result.Generation,
	})
	j.logg.Info(ctx, "ledger snapshot refreshed by schedule")
	return nil
}
