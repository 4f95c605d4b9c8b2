package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	pkgerrors "github.com/angelmondragon/tombamento-backend/pkg/errors"
	"github.com/angelmondragon/tombamento-backend/pkg/logger"
)

// maxReportedRowErrors bounds how many row problems a refresh reports back.
const maxReportedRowErrors = 50

type snapshotGauge interface {
	SetLedgerRecords(n int)
}

// RefreshResult summarizes one snapshot import.
type RefreshResult struct {
	SnapshotID uuid.UUID `json:"snapshot_id"`
	Source     string    `json:"source"`
	Sheet      string    `json:"sheet"`
	Generation int64     `json:"generation,omitempty"`
	Rows       int       `json:"rows"`
	Records    int       `json:"records"`
	Skipped    int       `json:"skipped"`
	Duplicates int       `json:"duplicates"`
	RowErrors  []string  `json:"row_errors,omitempty"`
	ImportedAt time.Time `json:"imported_at"`
}

// Refresher replaces the stored ledger with the workbook its source yields.
type Refresher struct {
	repo    Repository
	source  Source
	sheet   string
	gauge   snapshotGauge
	logg    *logger.Logger
	now     func() time.Time
	running sync.Mutex
}

// NewRefresher wires a refresher. gauge may be nil.
func NewRefresher(repo Repository, source Source, sheet string, gauge snapshotGauge, logg *logger.Logger) (*Refresher, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if source == nil {
		return nil, fmt.Errorf("ledger source required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Refresher{
		repo:   repo,
		source: source,
		sheet:  sheet,
		gauge:  gauge,
		logg:   logg,
		now:    time.Now,
	}, nil
}

// Refresh fetches, parses and stores the current snapshot. Concurrent calls
// run one after another. A workbook without a single usable record, header
// only or all rows broken, is rejected and the stored ledger is kept.
func (r *Refresher) Refresh(ctx context.Context) (*RefreshResult, error) {
	r.running.Lock()
	defer r.running.Unlock()

	reader, info, err := r.source.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	ctx = r.logg.WithFields(ctx, map[string]any{
		"ledger_source":   info.Kind,
		"ledger_location": info.Location,
	})

	parsed, err := ParseWorkbook(reader, r.sheet)
	if err != nil {
		return nil, err
	}
	if len(parsed.Records) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ledger snapshot has no usable rows").
			WithDetails(map[string]any{"rows": parsed.Rows, "errors": rowErrorStrings(parsed.RowErrors)})
	}

	snapshotID := uuid.New()
	importedAt := r.now().UTC()
	for i := range parsed.Records {
		parsed.Records[i].SnapshotID = snapshotID
		parsed.Records[i].ImportedAt = importedAt
	}

	if err := r.repo.ReplaceSnapshot(ctx, parsed.Records); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store ledger snapshot")
	}
	if r.gauge != nil {
		r.gauge.SetLedgerRecords(len(parsed.Records))
	}

	result := &RefreshResult{
		SnapshotID: snapshotID,
		Source:     info.Location,
		Sheet:      parsed.Sheet,
		Generation: info.Generation,
		Rows:       parsed.Rows,
		Records:    len(parsed.Records),
		Skipped:    parsed.Skipped,
		Duplicates: parsed.Duplicates,
		RowErrors:  rowErrorStrings(parsed.RowErrors),
		ImportedAt: importedAt,
	}

	ctx = r.logg.WithFields(ctx, map[string]any{
		"snapshot_id": snapshotID.String(),
		"records":     result.Records,
		"skipped":     result.Skipped,
		"duplicates":  result.Duplicates,
		"row_errors":  len(multierr.Errors(parsed.RowErrors)),
	})
	if parsed.RowErrors != nil {
		r.logg.Warn(ctx, "ledger snapshot imported with row errors")
	} else {
		r.logg.Info(ctx, "ledger snapshot imported")
	}
	return result, nil
}

func rowErrorStrings(err error) []string {
	errs := multierr.Errors(err)
	if len(errs) == 0 {
		return nil
	}
	if len(errs) > maxReportedRowErrors {
		errs = errs[:maxReportedRowErrors]
	}
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Error())
	}
	return out
}
