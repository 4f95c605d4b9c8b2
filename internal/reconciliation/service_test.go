package reconciliation

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/tombamento-backend/internal/matching"
	"github.com/angelmondragon/tombamento-backend/internal/patterns"
	"github.com/angelmondragon/tombamento-backend/pkg/db/models"
	"github.com/angelmondragon/tombamento-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tombamento-backend/pkg/errors"
	"github.com/angelmondragon/tombamento-backend/pkg/logger"
	"github.com/angelmondragon/tombamento-backend/pkg/pagination"
)

var confirmedAt = time.Date(2025, 3, 2, 9, 30, 0, 0, time.UTC)

// seedArmarioScenario stores two cabinets in the ledger plus entries that
// must never be offered, and a learned pattern favoring the metal cabinet.
func seedArmarioScenario(t *testing.T, f *fixture) models.InventoryRecord {
	t.Helper()
	f.seedLedger(t, "100", "Armário de madeira", "Escola A", "")
	f.seedLedger(t, "200", "Armário metálico mod. Y", "Escola A", "Ativo")
	f.seedLedger(t, "300", "Armário de aço", "Escola A", "Baixado")
	f.seedLedger(t, "400", "Armário de aço cinza", "Escola A", "")
	f.seedLedger(t, "500", "Armário de aço cinza", "Escola B", "")
	f.seedInventory(t, models.InventoryRecord{Description: "Armário antigo", Unit: "Escola A", AssetTag: strPtr("400")})

	require.NoError(t, f.db.Create(&models.ConfirmedLink{
		InventoryID:      uuid.New(),
		AssetTag:         "50",
		SystemDescriptor: "Armário de aço",
		LedgerDescriptor: "Armário metálico mod. X",
		Unit:             "Escola A",
		Score:            0.9,
		ConfirmedAt:      confirmedAt.Add(-24 * time.Hour),
	}).Error)

	return f.seedInventory(t, models.InventoryRecord{Description: "Armário de aço Cinza", Unit: "Escola A", AssetTag: strPtr("S/T")})
}

func startSession(t *testing.T, f *fixture) *SessionDTO {
	t.Helper()
	session, err := f.svc.StartSession(context.Background(), StartSessionInput{Unit: "Escola A", Operator: "auditora"})
	require.NoError(t, err)
	return session
}

func candidateTags(s *Suggestion) []string {
	tags := make([]string, len(s.Candidates))
	for i, c := range s.Candidates {
		tags[i] = c.AssetTag
	}
	return tags
}

func TestStartSessionHydratesPatterns(t *testing.T) {
	f := newFixture(t)
	seedArmarioScenario(t, f)

	session := startSession(t, f)
	assert.NotEqual(t, uuid.Nil, session.ID)
	assert.Equal(t, "Escola A", session.Unit)
	assert.Equal(t, 1, session.Patterns)

	_, err := f.svc.StartSession(context.Background(), StartSessionInput{Unit: "  "})
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestSuggestRanksAvailableUnconsumedCandidates(t *testing.T) {
	f := newFixture(t)
	record := seedArmarioScenario(t, f)
	session := startSession(t, f)
	ctx := context.Background()

	suggestion, err := f.svc.Suggest(ctx, session.ID, record.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"200", "100"}, candidateTags(suggestion))
	assert.Equal(t, 2, suggestion.PoolSize)
	assert.False(t, suggestion.Truncated)
	assert.Greater(t, suggestion.Candidates[0].BonusScore, 0.0)
	assert.Equal(t, suggestion.Candidates[0].Score, suggestion.TopScore)
	for _, c := range suggestion.Candidates {
		assert.GreaterOrEqual(t, c.Score, 0.0)
		assert.LessOrEqual(t, c.Score, 1.0)
	}

	_, err = f.svc.Propose(ctx, ProposeInput{SessionID: session.ID, InventoryID: record.ID, AssetTag: "0200"})
	require.NoError(t, err)

	again, err := f.svc.Suggest(ctx, session.ID, record.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"100"}, candidateTags(again))
	assert.Equal(t, "200", again.PendingTag)

	assert.Len(t, f.observer.rankings, 2)
}

func TestSuggestRejectsUnknownSessionAndTaggedRecord(t *testing.T) {
	f := newFixture(t)
	record := seedArmarioScenario(t, f)
	session := startSession(t, f)
	ctx := context.Background()

	_, err := f.svc.Suggest(ctx, uuid.New(), record.ID)
	requireCode(t, err, pkgerrors.CodeNotFound)

	_, err = f.svc.Suggest(ctx, uuid.Nil, record.ID)
	requireCode(t, err, pkgerrors.CodeValidation)

	tagged := f.seedInventory(t, models.InventoryRecord{Description: "Mesa", Unit: "Escola A", AssetTag: strPtr("999")})
	_, err = f.svc.Suggest(ctx, session.ID, tagged.ID)
	requireCode(t, err, pkgerrors.CodeStateConflict)

	_, err = f.svc.Suggest(ctx, session.ID, uuid.New())
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestSuggestCapsPool(t *testing.T) {
	f := newFixture(t)
	record := seedArmarioScenario(t, f)
	f.svc.(*service).cfg.MaxPoolSize = 1
	session := startSession(t, f)

	suggestion, err := f.svc.Suggest(context.Background(), session.ID, record.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, suggestion.PoolSize)
	assert.True(t, suggestion.Truncated)
	assert.Equal(t, []string{"100"}, candidateTags(suggestion))
}

func TestProposeConflicts(t *testing.T) {
	f := newFixture(t)
	record := seedArmarioScenario(t, f)
	other := f.seedInventory(t, models.InventoryRecord{Description: "Armário", Unit: "Escola A"})
	session := startSession(t, f)
	ctx := context.Background()

	link, err := f.svc.Propose(ctx, ProposeInput{SessionID: session.ID, InventoryID: record.ID, AssetTag: "200"})
	require.NoError(t, err)
	assert.Equal(t, "200", link.AssetTag)
	assert.Equal(t, "Armário metálico mod. Y", link.LedgerDescriptor)

	// Proposing the same pair again is accepted.
	_, err = f.svc.Propose(ctx, ProposeInput{SessionID: session.ID, InventoryID: record.ID, AssetTag: "200"})
	require.NoError(t, err)

	_, err = f.svc.Propose(ctx, ProposeInput{SessionID: session.ID, InventoryID: other.ID, AssetTag: "200"})
	requireCode(t, err, pkgerrors.CodeConflict)

	_, err = f.svc.Propose(ctx, ProposeInput{SessionID: session.ID, InventoryID: other.ID, AssetTag: "400"})
	requireCode(t, err, pkgerrors.CodeConflict)

	_, err = f.svc.Propose(ctx, ProposeInput{SessionID: session.ID, InventoryID: other.ID, AssetTag: "300"})
	requireCode(t, err, pkgerrors.CodeStateConflict)

	_, err = f.svc.Propose(ctx, ProposeInput{SessionID: session.ID, InventoryID: other.ID, AssetTag: "999"})
	requireCode(t, err, pkgerrors.CodeNotFound)

	_, err = f.svc.Propose(ctx, ProposeInput{SessionID: session.ID, InventoryID: other.ID, AssetTag: "S/T"})
	requireCode(t, err, pkgerrors.CodeValidation)

	replaced, err := f.svc.Propose(ctx, ProposeInput{SessionID: session.ID, InventoryID: record.ID, AssetTag: "100"})
	require.NoError(t, err)
	assert.Equal(t, "200", replaced.Replaced)

	_, err = f.svc.Propose(ctx, ProposeInput{SessionID: session.ID, InventoryID: other.ID, AssetTag: "200"})
	require.NoError(t, err)
}

func TestPendingTagsAreScopedToSession(t *testing.T) {
	f := newFixture(t)
	record := seedArmarioScenario(t, f)
	first := startSession(t, f)
	second := startSession(t, f)
	ctx := context.Background()

	_, err := f.svc.Propose(ctx, ProposeInput{SessionID: first.ID, InventoryID: record.ID, AssetTag: "200"})
	require.NoError(t, err)

	suggestion, err := f.svc.Suggest(ctx, second.ID, record.ID)
	require.NoError(t, err)
	assert.Contains(t, candidateTags(suggestion), "200")
}

func TestConfirmAssignsTagAndLearnsPattern(t *testing.T) {
	f := newFixture(t)
	record := seedArmarioScenario(t, f)
	session := startSession(t, f)
	ctx := context.Background()

	_, err := f.svc.Propose(ctx, ProposeInput{SessionID: session.ID, InventoryID: record.ID, AssetTag: "200"})
	require.NoError(t, err)

	result, err := f.svc.Confirm(ctx, ConfirmInput{
		SessionID:     session.ID,
		InventoryID:   record.ID,
		AssetTag:      "200.0",
		Score:         0.74,
		UseLedgerText: true,
		ConfirmedBy:   "auditora",
		ConfirmedAt:   confirmedAt,
	})
	require.NoError(t, err)
	assert.Equal(t, "200", result.AssetTag)
	assert.Equal(t, "200", result.Record.AssetTag)
	assert.Equal(t, "Armário metálico mod. Y", result.Record.Description)
	assert.Equal(t, 2, result.Patterns)
	assert.True(t, result.PatternPersisted)

	stored := f.reload(t, record.ID)
	assert.Equal(t, "200", stored.Tag())

	var links []models.ConfirmedLink
	require.NoError(t, f.db.Order("confirmed_at DESC").Find(&links).Error)
	require.Len(t, links, 2)
	assert.Equal(t, "200", links[0].AssetTag)
	assert.Equal(t, "Armário de aço Cinza", links[0].SystemDescriptor)
	assert.Equal(t, "Armário metálico mod. Y", links[0].LedgerDescriptor)
	assert.Equal(t, "auditora", links[0].ConfirmedBy)
	assert.True(t, links[0].ConfirmedAt.Equal(confirmedAt))

	pending, err := f.hashes.HGetAll(ctx, f.hashes.PendingKey(session.ID.String()))
	require.NoError(t, err)
	assert.Empty(t, pending)

	// A second record cannot take the confirmed tag.
	other := f.seedInventory(t, models.InventoryRecord{Description: "Armário", Unit: "Escola A"})
	_, err = f.svc.Confirm(ctx, ConfirmInput{SessionID: session.ID, InventoryID: other.ID, AssetTag: "200", ConfirmedAt: confirmedAt})
	requireCode(t, err, pkgerrors.CodeConflict)
}

func TestConfirmReleasesEveryTagHeldByTheRecord(t *testing.T) {
	f := newFixture(t)
	record := seedArmarioScenario(t, f)
	other := f.seedInventory(t, models.InventoryRecord{Description: "Armário", Unit: "Escola A"})
	session := startSession(t, f)
	ctx := context.Background()

	_, err := f.svc.Propose(ctx, ProposeInput{SessionID: session.ID, InventoryID: record.ID, AssetTag: "100"})
	require.NoError(t, err)

	// Confirmed straight from the suggestion list, never proposed.
	_, err = f.svc.Confirm(ctx, ConfirmInput{SessionID: session.ID, InventoryID: record.ID, AssetTag: "200", ConfirmedAt: confirmedAt})
	require.NoError(t, err)

	pending, err := f.hashes.HGetAll(ctx, f.hashes.PendingKey(session.ID.String()))
	require.NoError(t, err)
	assert.Empty(t, pending)

	suggestion, err := f.svc.Suggest(ctx, session.ID, other.ID)
	require.NoError(t, err)
	assert.Contains(t, candidateTags(suggestion), "100")
	assert.NotContains(t, candidateTags(suggestion), "200")

	_, err = f.svc.Propose(ctx, ProposeInput{SessionID: session.ID, InventoryID: other.ID, AssetTag: "100"})
	require.NoError(t, err)
}

func TestHeldByListsOnlyTheOwnersTags(t *testing.T) {
	owner, someone := uuid.New(), uuid.New()
	pending := map[string]uuid.UUID{"100": owner, "200": someone, "300": owner}

	assert.ElementsMatch(t, []string{"100", "300"}, heldBy(pending, owner))
	assert.ElementsMatch(t, []string{"300", "100"}, heldBy(pending, owner, "300"))
	assert.ElementsMatch(t, []string{"900"}, heldBy(pending, uuid.New(), "900"))
	assert.Empty(t, heldBy(nil, owner))
}

func TestConfirmValidation(t *testing.T) {
	f := newFixture(t)
	record := seedArmarioScenario(t, f)
	other := f.seedInventory(t, models.InventoryRecord{Description: "Armário", Unit: "Escola A"})
	session := startSession(t, f)
	ctx := context.Background()

	base := ConfirmInput{SessionID: session.ID, InventoryID: record.ID, AssetTag: "100", Score: 0.5, ConfirmedAt: confirmedAt}

	in := base
	in.ConfirmedAt = time.Time{}
	_, err := f.svc.Confirm(ctx, in)
	requireCode(t, err, pkgerrors.CodeValidation)

	in = base
	in.Score = 1.5
	_, err = f.svc.Confirm(ctx, in)
	requireCode(t, err, pkgerrors.CodeValidation)

	in = base
	in.SessionID = uuid.New()
	_, err = f.svc.Confirm(ctx, in)
	requireCode(t, err, pkgerrors.CodeNotFound)

	_, err = f.svc.Propose(ctx, ProposeInput{SessionID: session.ID, InventoryID: other.ID, AssetTag: "100"})
	require.NoError(t, err)
	_, err = f.svc.Confirm(ctx, base)
	requireCode(t, err, pkgerrors.CodeConflict)

	assert.Equal(t, "S/T", f.reload(t, record.ID).Tag())
}

type failingPatterns struct {
	memory *matching.PatternMemory
}

func (p *failingPatterns) Record(ctx context.Context, link *models.ConfirmedLink) error {
	return pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("db down"), "persist confirmed link")
}

func (p *failingPatterns) Hydrate(ctx context.Context, capacity int) (*matching.PatternMemory, error) {
	return p.memory, nil
}

func (p *failingPatterns) List(ctx context.Context, params patterns.ListParams) (*pagination.Page[patterns.LinkDTO], error) {
	return &pagination.Page[patterns.LinkDTO]{}, nil
}

func TestConfirmKeepsPatternInMemoryWhenPersistFails(t *testing.T) {
	stub := &failingPatterns{memory: matching.NewPatternMemory(300)}
	f := newFixtureWithPatterns(t, stub)
	record := seedArmarioScenario(t, f)
	session := startSession(t, f)

	result, err := f.svc.Confirm(context.Background(), ConfirmInput{
		SessionID:   session.ID,
		InventoryID: record.ID,
		AssetTag:    "100",
		Score:       0.6,
		ConfirmedAt: confirmedAt,
	})
	require.NoError(t, err)
	assert.False(t, result.PatternPersisted)
	assert.Equal(t, 1, stub.memory.Len())
	assert.Equal(t, "100", stub.memory.Snapshot()[0].AssetTag)
	assert.Equal(t, "100", f.reload(t, record.ID).Tag())
}

func TestSessionsAreLocalToTheServiceInstance(t *testing.T) {
	f := newFixture(t)
	record := seedArmarioScenario(t, f)
	session := startSession(t, f)

	// A second instance shares the pending store but not the registry.
	peer, err := NewService(testMatchingConfig, f.inventory, f.ledger, f.patterns, f.pending, nil,
		logger.New(logger.Options{ServiceName: "peer", Output: io.Discard}))
	require.NoError(t, err)

	_, err = peer.Suggest(context.Background(), session.ID, record.ID)
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestEndSessionDropsPendingLinks(t *testing.T) {
	f := newFixture(t)
	record := seedArmarioScenario(t, f)
	session := startSession(t, f)
	ctx := context.Background()

	_, err := f.svc.Propose(ctx, ProposeInput{SessionID: session.ID, InventoryID: record.ID, AssetTag: "200"})
	require.NoError(t, err)

	require.NoError(t, f.svc.EndSession(ctx, session.ID))
	pending, err := f.hashes.HGetAll(ctx, f.hashes.PendingKey(session.ID.String()))
	require.NoError(t, err)
	assert.Empty(t, pending)

	_, err = f.svc.Suggest(ctx, session.ID, record.ID)
	requireCode(t, err, pkgerrors.CodeNotFound)
	requireCode(t, f.svc.EndSession(ctx, session.ID), pkgerrors.CodeNotFound)
}

func seedBatchPool(t *testing.T, f *fixture) (chair, table models.InventoryRecord) {
	t.Helper()
	chair = f.seedInventory(t, models.InventoryRecord{Description: "Cadeira giratória", Unit: "Escola A", Location: "Sala 1", ConditionState: enums.ConditionStateBom})
	table = f.seedInventory(t, models.InventoryRecord{Description: "Mesa", Unit: "Escola A", Location: "Sala 2"})
	f.seedInventory(t, models.InventoryRecord{Description: "Mesa", Unit: "Escola B", Location: "Sala 2"})
	return chair, table
}

func TestMatchBatchCommit(t *testing.T) {
	f := newFixture(t)
	chair, table := seedBatchPool(t, f)

	outcome, err := f.svc.MatchBatch(context.Background(), BatchInput{
		Unit: "Escola A",
		Rows: []matching.PastedRow{
			{Description: "Cadeira giratória", AssetTag: "0500", Location: "Sala 1", Condition: "Bom"},
			{Description: "Mesa", AssetTag: "S/T", Location: "Sala 2"},
			{Description: "Quadro branco", AssetTag: "600"},
		},
		Commit:      true,
		ConfirmedBy: "auditora",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, outcome.PoolSize)
	assert.Equal(t, 2, outcome.Matched)
	assert.Equal(t, 1, outcome.NotFound)
	assert.Equal(t, 1, outcome.Committed)
	assert.Empty(t, outcome.Errors)

	require.Len(t, outcome.Rows, 3)
	assert.Equal(t, enums.MatchTypePerfect, outcome.Rows[0].MatchType)
	require.NotNil(t, outcome.Rows[0].InventoryID)
	assert.Equal(t, chair.ID, *outcome.Rows[0].InventoryID)
	assert.True(t, outcome.Rows[0].Committed)
	assert.Equal(t, "500", outcome.Rows[0].AssetTag)

	assert.Equal(t, enums.MatchTypeHigh, outcome.Rows[1].MatchType)
	assert.False(t, outcome.Rows[1].Committed)
	assert.Equal(t, "row has no asset tag", outcome.Rows[1].Error)

	assert.Equal(t, enums.MatchTypeNotFound, outcome.Rows[2].MatchType)
	assert.Nil(t, outcome.Rows[2].InventoryID)

	assert.Equal(t, "500", f.reload(t, chair.ID).Tag())
	assert.Equal(t, "", f.reload(t, table.ID).Tag())
	assert.Equal(t, 1, f.observer.batchRows["perfect"])
	assert.Equal(t, 1, f.observer.batchRows["not_found"])
}

func TestMatchBatchPreviewDoesNotWrite(t *testing.T) {
	f := newFixture(t)
	chair, _ := seedBatchPool(t, f)

	outcome, err := f.svc.MatchBatch(context.Background(), BatchInput{
		Unit: "Escola A",
		Rows: []matching.PastedRow{{Description: "Cadeira giratória", AssetTag: "500", Location: "Sala 1"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.Matched)
	assert.Zero(t, outcome.Committed)
	assert.False(t, outcome.Rows[0].Committed)
	assert.Equal(t, "", f.reload(t, chair.ID).Tag())
}

func TestMatchBatchAggregatesCommitFailures(t *testing.T) {
	f := newFixture(t)
	seedBatchPool(t, f)
	f.seedInventory(t, models.InventoryRecord{Description: "Armário", Unit: "Escola B", AssetTag: strPtr("700")})

	outcome, err := f.svc.MatchBatch(context.Background(), BatchInput{
		Unit: "Escola A",
		Rows: []matching.PastedRow{
			{Description: "Cadeira giratória", AssetTag: "700", Location: "Sala 1"},
			{Description: "Mesa", AssetTag: "701", Location: "Sala 2"},
		},
		Commit: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.Committed)
	require.Len(t, outcome.Errors, 1)
	assert.Contains(t, outcome.Errors[0], "row 1 (700)")
	assert.NotEmpty(t, outcome.Rows[0].Error)
	assert.True(t, outcome.Rows[1].Committed)
}

func TestMatchBatchValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.MatchBatch(ctx, BatchInput{Rows: []matching.PastedRow{{Description: "Mesa"}}})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = f.svc.MatchBatch(ctx, BatchInput{Unit: "Escola A"})
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(testMatchingConfig, nil, nil, nil, nil, nil, nil)
	assert.Error(t, err)
}
