package reconciliation

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/tombamento-backend/internal/inventory"
	"github.com/angelmondragon/tombamento-backend/internal/ledger"
	"github.com/angelmondragon/tombamento-backend/internal/matching"
	"github.com/angelmondragon/tombamento-backend/internal/patterns"
	"github.com/angelmondragon/tombamento-backend/pkg/config"
	"github.com/angelmondragon/tombamento-backend/pkg/db/models"
	"github.com/angelmondragon/tombamento-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tombamento-backend/pkg/errors"
	"github.com/angelmondragon/tombamento-backend/pkg/logger"
)

// Service drives interactive and bulk reconciliation of untagged inventory
// against the ledger snapshot.
type Service interface {
	StartSession(ctx context.Context, input StartSessionInput) (*SessionDTO, error)
	EndSession(ctx context.Context, sessionID uuid.UUID) error
	Suggest(ctx context.Context, sessionID, inventoryID uuid.UUID) (*Suggestion, error)
	Propose(ctx context.Context, input ProposeInput) (*PendingLink, error)
	Confirm(ctx context.Context, input ConfirmInput) (*ConfirmResult, error)
	MatchBatch(ctx context.Context, input BatchInput) (*BatchOutcome, error)
}

type matchingObserver interface {
	ObserveRanking(duration time.Duration, topScore float64)
	IncBatchRow(matchType string)
}

type service struct {
	cfg       config.MatchingConfig
	inventory inventory.Service
	ledger    ledger.Service
	patterns  patterns.Service
	pending   PendingStore
	observer  matchingObserver
	logg      *logger.Logger
	sessions  *registry
	now       func() time.Time
}

// NewService wires the reconciliation service. observer may be nil.
func NewService(
	cfg config.MatchingConfig,
	inventorySvc inventory.Service,
	ledgerSvc ledger.Service,
	patternSvc patterns.Service,
	pending PendingStore,
	observer matchingObserver,
	logg *logger.Logger,
) (Service, error) {
	if inventorySvc == nil {
		return nil, fmt.Errorf("inventory service required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if patternSvc == nil {
		return nil, fmt.Errorf("patterns service required")
	}
	if pending == nil {
		return nil, fmt.Errorf("pending store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.PatternCapacity <= 0 {
		cfg.PatternCapacity = matching.DefaultPatternCapacity
	}
	if cfg.SuggestionLimit <= 0 {
		cfg.SuggestionLimit = 10
	}
	return &service{
		cfg:       cfg,
		inventory: inventorySvc,
		ledger:    ledgerSvc,
		patterns:  patternSvc,
		pending:   pending,
		observer:  observer,
		logg:      logg,
		sessions:  newRegistry(),
		now:       time.Now,
	}, nil
}

func (s *service) StartSession(ctx context.Context, input StartSessionInput) (*SessionDTO, error) {
	unit := strings.TrimSpace(input.Unit)
	if unit == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit is required")
	}

	memory, err := s.patterns.Hydrate(ctx, s.cfg.PatternCapacity)
	if err != nil {
		return nil, err
	}

	session := &Session{
		ID:        uuid.New(),
		Unit:      unit,
		ItemType:  strings.TrimSpace(input.ItemType),
		Operator:  strings.TrimSpace(input.Operator),
		Memory:    memory,
		StartedAt: s.now().UTC(),
	}
	s.sessions.put(session)

	ctx = s.logg.WithSessionID(ctx, session.ID.String())
	ctx = s.logg.WithFields(ctx, map[string]any{"unit": unit, "patterns": memory.Len()})
	s.logg.Info(ctx, "reconciliation session started")

	dto := toSessionDTO(session)
	return &dto, nil
}

func (s *service) EndSession(ctx context.Context, sessionID uuid.UUID) error {
	if !s.sessions.remove(sessionID) {
		return sessionNotFound(sessionID)
	}
	ctx = s.logg.WithSessionID(ctx, sessionID.String())
	if err := s.pending.Drop(ctx, sessionID); err != nil {
		s.logg.Error(ctx, "failed to drop pending links", err)
	}
	s.logg.Info(ctx, "reconciliation session ended")
	return nil
}

func (s *service) session(id uuid.UUID) (*Session, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	session, ok := s.sessions.get(id)
	if !ok {
		return nil, sessionNotFound(id)
	}
	return session, nil
}

func sessionNotFound(id uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "reconciliation session not found").
		WithDetails(map[string]any{"session_id": id})
}

// Suggest ranks the session unit's available ledger entries for one record.
// Tags already assigned to any record or pending in the session are never
// offered.
func (s *service) Suggest(ctx context.Context, sessionID, inventoryID uuid.UUID) (*Suggestion, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	record, err := s.untaggedRecord(ctx, inventoryID)
	if err != nil {
		return nil, err
	}

	pending, err := s.pendingTags(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	pool, truncated, err := s.candidatePool(ctx, session.Unit, pending)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	ranking := matching.RankCandidates(inventory.ToMatchItem(*record), pool, session.Memory,
		matching.WithLimit(s.cfg.SuggestionLimit))
	if s.observer != nil {
		s.observer.ObserveRanking(time.Since(started), ranking.TopScore)
	}

	suggestion := &Suggestion{
		SessionID:  session.ID,
		Item:       inventory.FromModel(*record),
		Candidates: make([]CandidateDTO, len(ranking.Candidates)),
		TopScore:   ranking.TopScore,
		PoolSize:   len(pool),
		Truncated:  truncated,
	}
	for i, c := range ranking.Candidates {
		suggestion.Candidates[i] = toCandidateDTO(c)
	}
	for tag, owner := range pending {
		if owner == record.ID {
			suggestion.PendingTag = tag
			break
		}
	}
	return suggestion, nil
}

// candidatePool returns the unit's available ledger entries minus consumed
// tags, capped at the configured pool size.
func (s *service) candidatePool(ctx context.Context, unit string, pending map[string]uuid.UUID) ([]matching.LedgerCandidate, bool, error) {
	records, err := s.ledger.ListAvailable(ctx, unit)
	if err != nil {
		return nil, false, err
	}
	assigned, err := s.inventory.AssignedTags(ctx)
	if err != nil {
		return nil, false, err
	}

	pool := make([]matching.LedgerCandidate, 0, len(records))
	truncated := false
	for _, record := range records {
		tag := matching.NormalizeAssetTag(record.AssetTag)
		if _, used := assigned[tag]; used {
			continue
		}
		if _, held := pending[tag]; held {
			continue
		}
		if s.cfg.MaxPoolSize > 0 && len(pool) >= s.cfg.MaxPoolSize {
			truncated = true
			break
		}
		pool = append(pool, ledger.ToCandidate(record))
	}
	return pool, truncated, nil
}

func (s *service) pendingTags(ctx context.Context, sessionID uuid.UUID) (map[string]uuid.UUID, error) {
	tags, err := s.pending.Tags(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pending links")
	}
	return tags, nil
}

func (s *service) untaggedRecord(ctx context.Context, inventoryID uuid.UUID) (*models.InventoryRecord, error) {
	record, err := s.inventory.Get(ctx, inventoryID)
	if err != nil {
		return nil, err
	}
	if !matching.IsUntaggedAssetTag(record.Tag()) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "inventory record already has an asset tag").
			WithDetails(map[string]any{"inventory_id": record.ID, "asset_tag": record.Tag()})
	}
	return record, nil
}

// Propose reserves a ledger tag for a record within the session. A record
// holds at most one pending tag; proposing another releases the previous one.
func (s *service) Propose(ctx context.Context, input ProposeInput) (*PendingLink, error) {
	session, err := s.session(input.SessionID)
	if err != nil {
		return nil, err
	}
	entry, err := s.ledger.Get(ctx, input.AssetTag)
	if err != nil {
		return nil, err
	}
	tag := entry.AssetTag
	if !ledger.IsAvailable(entry.AvailabilityStatus) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "ledger entry is not available").
			WithDetails(map[string]any{"asset_tag": tag, "status": entry.AvailabilityStatus})
	}
	record, err := s.untaggedRecord(ctx, input.InventoryID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUnassigned(ctx, tag); err != nil {
		return nil, err
	}

	owner, ok, err := s.pending.Reserve(ctx, session.ID, tag, record.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve asset tag")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "asset tag is pending for another record").
			WithDetails(map[string]any{"asset_tag": tag, "inventory_id": owner})
	}

	link := &PendingLink{
		SessionID:        session.ID,
		InventoryID:      record.ID,
		AssetTag:         tag,
		LedgerDescriptor: ledger.ToCandidate(*entry).Descriptor(),
	}

	held, err := s.pendingTags(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	var stale []string
	for _, other := range heldBy(held, record.ID) {
		if other != tag {
			stale = append(stale, other)
		}
	}
	if len(stale) > 0 {
		if err := s.pending.Release(ctx, session.ID, stale...); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release previous proposal")
		}
		link.Replaced = strings.Join(stale, ",")
	}
	return link, nil
}

// heldBy lists the pending tags owned by inventoryID, plus extra.
func heldBy(pending map[string]uuid.UUID, inventoryID uuid.UUID, extra ...string) []string {
	tags := append([]string(nil), extra...)
	for tag, holder := range pending {
		if holder == inventoryID && !slices.Contains(tags, tag) {
			tags = append(tags, tag)
		}
	}
	return tags
}

func (s *service) ensureUnassigned(ctx context.Context, tag string) error {
	assigned, err := s.inventory.AssignedTags(ctx)
	if err != nil {
		return err
	}
	if _, used := assigned[tag]; used {
		return pkgerrors.New(pkgerrors.CodeConflict, "asset tag already assigned").
			WithDetails(map[string]any{"asset_tag": tag})
	}
	return nil
}

// Confirm assigns the tag, then records the pairing as a pattern. The
// pattern joins session memory even when persisting it fails. Every tag the
// record held as pending in the session is released, not only the confirmed
// one.
func (s *service) Confirm(ctx context.Context, input ConfirmInput) (*ConfirmResult, error) {
	session, err := s.session(input.SessionID)
	if err != nil {
		return nil, err
	}
	if input.ConfirmedAt.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "confirmation time is required")
	}
	if math.IsNaN(input.Score) || input.Score < 0 || input.Score > 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "score must be between 0 and 1").
			WithDetails(map[string]any{"score": input.Score})
	}

	entry, err := s.ledger.Get(ctx, input.AssetTag)
	if err != nil {
		return nil, err
	}
	tag := entry.AssetTag

	pending, err := s.pendingTags(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	if owner, held := pending[tag]; held && owner != input.InventoryID {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "asset tag is pending for another record").
			WithDetails(map[string]any{"asset_tag": tag, "inventory_id": owner})
	}

	record, err := s.untaggedRecord(ctx, input.InventoryID)
	if err != nil {
		return nil, err
	}
	item := inventory.ToMatchItem(*record)
	candidate := ledger.ToCandidate(*entry)

	assign := inventory.AssignTagInput{AssetTag: tag}
	if input.UseLedgerText {
		assign.Description = entry.Description
		assign.Supplier = entry.SupplierName
	}
	updated, err := s.inventory.AssignTag(ctx, record.ID, assign)
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithSessionID(ctx, session.ID.String())
	ctx = s.logg.WithFields(ctx, map[string]any{
		"inventory_id": record.ID.String(),
		"asset_tag":    tag,
	})
	if input.ConfirmedBy != "" {
		ctx = s.logg.WithOperator(ctx, input.ConfirmedBy)
	}

	pattern := matching.Pattern{
		AssetTag:         tag,
		SystemDescriptor: item.SystemDescriptor(),
		LedgerDescriptor: candidate.Descriptor(),
		SystemSupplier:   record.Supplier,
		LedgerSupplier:   entry.SupplierName,
		Unit:             session.Unit,
		ItemType:         record.ItemType,
		Score:            input.Score,
		ConfirmedAt:      input.ConfirmedAt.UTC(),
	}
	session.Memory.Append(pattern)

	result := &ConfirmResult{
		Record:           inventory.FromModel(*updated),
		AssetTag:         tag,
		Patterns:         session.Memory.Len(),
		PatternPersisted: true,
	}
	link := patterns.FromPattern(record.ID, input.ConfirmedBy, pattern)
	if err := s.patterns.Record(ctx, &link); err != nil {
		result.PatternPersisted = false
		s.logg.Error(ctx, "failed to persist confirmed link", err)
	}
	if err := s.pending.Release(ctx, session.ID, heldBy(pending, record.ID, tag)...); err != nil {
		s.logg.Error(ctx, "failed to release pending link", err)
	}

	s.logg.Info(ctx, "reconciliation link confirmed")
	return result, nil
}

// MatchBatch classifies pasted rows against the unit's untagged records.
func (s *service) MatchBatch(ctx context.Context, input BatchInput) (*BatchOutcome, error) {
	unit := strings.TrimSpace(input.Unit)
	if unit == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit is required")
	}
	if len(input.Rows) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one row is required")
	}
	if s.cfg.MaxPoolSize > 0 && len(input.Rows) > s.cfg.MaxPoolSize {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "too many rows").
			WithDetails(map[string]any{"rows": len(input.Rows), "max": s.cfg.MaxPoolSize})
	}

	records, err := s.inventory.ListUntagged(ctx, unit, input.ItemType)
	if err != nil {
		return nil, err
	}
	if s.cfg.MaxPoolSize > 0 && len(records) > s.cfg.MaxPoolSize {
		records = records[:s.cfg.MaxPoolSize]
	}
	items := make([]matching.Item, len(records))
	for i, record := range records {
		items[i] = inventory.ToMatchItem(record)
	}

	results := matching.MatchBatch(input.Rows, items)
	outcome := &BatchOutcome{
		Unit:     unit,
		PoolSize: len(records),
		Rows:     make([]BatchRowResult, len(results)),
	}
	for i, res := range results {
		row := input.Rows[res.RowIndex]
		out := BatchRowResult{
			RowIndex:    res.RowIndex,
			Description: row.Description,
			AssetTag:    matching.NormalizeAssetTag(row.AssetTag),
			MatchType:   res.MatchType,
			Status:      res.Status,
			Score:       res.Score,
		}
		if res.Matched() {
			id := records[res.PoolIndex].ID
			out.InventoryID = &id
			out.Matched = records[res.PoolIndex].Description
			outcome.Matched++
		}
		switch res.MatchType {
		case enums.MatchTypeAmbiguous:
			outcome.Ambiguous++
		case enums.MatchTypeNotFound:
			outcome.NotFound++
		}
		if s.observer != nil {
			s.observer.IncBatchRow(res.MatchType.String())
		}
		outcome.Rows[i] = out
	}

	if input.Commit {
		errs := s.commitBatch(ctx, outcome)
		for _, err := range multierr.Errors(errs) {
			outcome.Errors = append(outcome.Errors, err.Error())
		}
		ctx = s.logg.WithUnit(ctx, unit)
		ctx = s.logg.WithFields(ctx, map[string]any{
			"rows":      len(outcome.Rows),
			"matched":   outcome.Matched,
			"committed": outcome.Committed,
			"failed":    len(outcome.Errors),
		})
		if input.ConfirmedBy != "" {
			ctx = s.logg.WithOperator(ctx, input.ConfirmedBy)
		}
		if errs != nil {
			s.logg.Warn(ctx, "batch match committed with errors")
		} else {
			s.logg.Info(ctx, "batch match committed")
		}
	}
	return outcome, nil
}

// commitBatch assigns each matched row's pasted tag. Rows without a usable
// tag are left uncommitted; one failure does not stop the others.
func (s *service) commitBatch(ctx context.Context, outcome *BatchOutcome) error {
	var errs error
	for i := range outcome.Rows {
		row := &outcome.Rows[i]
		if row.InventoryID == nil {
			continue
		}
		if matching.IsUntaggedAssetTag(row.AssetTag) {
			row.Error = "row has no asset tag"
			continue
		}
		if _, err := s.inventory.AssignTag(ctx, *row.InventoryID, inventory.AssignTagInput{AssetTag: row.AssetTag}); err != nil {
			row.Error = err.Error()
			errs = multierr.Append(errs, fmt.Errorf("row %d (%s): %w", row.RowIndex+1, row.AssetTag, err))
			continue
		}
		row.Committed = true
		outcome.Committed++
	}
	return errs
}
