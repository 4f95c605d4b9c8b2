package reconciliation

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/tombamento-backend/internal/inventory"
	"github.com/angelmondragon/tombamento-backend/internal/ledger"
	"github.com/angelmondragon/tombamento-backend/internal/patterns"
	"github.com/angelmondragon/tombamento-backend/pkg/config"
	"github.com/angelmondragon/tombamento-backend/pkg/db/dbtest"
	"github.com/angelmondragon/tombamento-backend/pkg/db/models"
	"github.com/angelmondragon/tombamento-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tombamento-backend/pkg/errors"
	"github.com/angelmondragon/tombamento-backend/pkg/logger"
)

// memoryHashStore is an in-process stand-in for the Redis hash commands.
type memoryHashStore struct {
	mu      sync.Mutex
	hashes  map[string]map[string]string
	expires map[string]time.Duration
}

func newMemoryHashStore() *memoryHashStore {
	return &memoryHashStore{
		hashes:  make(map[string]map[string]string),
		expires: make(map[string]time.Duration),
	}
}

func (m *memoryHashStore) PendingKey(sessionID string) string {
	return "tmb:pending:" + sessionID
}

func (m *memoryHashStore) HSetNX(ctx context.Context, key, field string, value any) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	hash, ok := m.hashes[key]
	if !ok {
		hash = make(map[string]string)
		m.hashes[key] = hash
	}
	if _, exists := hash[field]; exists {
		return false, nil
	}
	hash[field] = fmt.Sprint(value)
	return true, nil
}

func (m *memoryHashStore) HGet(ctx context.Context, key, field string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.hashes[key][field]
	if !ok {
		return "", goredis.Nil
	}
	return v, nil
}

func (m *memoryHashStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.hashes[key]))
	for k, v := range m.hashes[key] {
		out[k] = v
	}
	return out, nil
}

func (m *memoryHashStore) HDel(ctx context.Context, key string, fields ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range fields {
		delete(m.hashes[key], f)
	}
	return nil
}

func (m *memoryHashStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expires[key] = ttl
	return nil
}

func (m *memoryHashStore) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.hashes, k)
		delete(m.expires, k)
	}
	return nil
}

type recordingObserver struct {
	mu        sync.Mutex
	rankings  []float64
	batchRows map[string]int
}

func (o *recordingObserver) ObserveRanking(d time.Duration, topScore float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rankings = append(o.rankings, topScore)
}

func (o *recordingObserver) IncBatchRow(matchType string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.batchRows == nil {
		o.batchRows = make(map[string]int)
	}
	o.batchRows[matchType]++
}

type fixture struct {
	db        *gorm.DB
	svc       Service
	hashes    *memoryHashStore
	observer  *recordingObserver
	inventory inventory.Service
	ledger    ledger.Service
	patterns  patterns.Service
	pending   PendingStore
}

var testMatchingConfig = config.MatchingConfig{
	PatternCapacity: 300,
	MaxPoolSize:     5000,
	SuggestionLimit: 10,
	PendingTTL:      time.Hour,
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithPatterns(t, nil)
}

// newFixtureWithPatterns builds the service on an in-memory database.
// patternSvc overrides the database-backed patterns service when set.
func newFixtureWithPatterns(t *testing.T, patternSvc patterns.Service) *fixture {
	t.Helper()
	db := dbtest.Open(t)

	inventorySvc, err := inventory.NewService(inventory.NewRepository(db), dbtest.TxRunner{DB: db})
	require.NoError(t, err)
	ledgerSvc, err := ledger.NewService(ledger.NewRepository(db), nil)
	require.NoError(t, err)
	if patternSvc == nil {
		patternSvc, err = patterns.NewService(patterns.NewRepository(db))
		require.NoError(t, err)
	}

	hashes := newMemoryHashStore()
	pending, err := NewRedisPendingStore(hashes, time.Hour)
	require.NoError(t, err)

	observer := &recordingObserver{}
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	svc, err := NewService(testMatchingConfig, inventorySvc, ledgerSvc, patternSvc, pending, observer, logg)
	require.NoError(t, err)

	return &fixture{
		db:        db,
		svc:       svc,
		hashes:    hashes,
		observer:  observer,
		inventory: inventorySvc,
		ledger:    ledgerSvc,
		patterns:  patternSvc,
		pending:   pending,
	}
}

func strPtr(s string) *string { return &s }

func (f *fixture) seedInventory(t *testing.T, record models.InventoryRecord) models.InventoryRecord {
	t.Helper()
	if record.ConditionState == "" {
		record.ConditionState = enums.ConditionStateRegular
	}
	require.NoError(t, f.db.Create(&record).Error)
	return record
}

func (f *fixture) seedLedger(t *testing.T, tag, description, unit, status string) {
	t.Helper()
	require.NoError(t, f.db.Create(&models.LedgerRecord{
		AssetTag:           tag,
		Description:        description,
		Unit:               unit,
		AvailabilityStatus: status,
		SnapshotID:         uuid.New(),
		ImportedAt:         time.Now().UTC(),
	}).Error)
}

func (f *fixture) reload(t *testing.T, id uuid.UUID) models.InventoryRecord {
	t.Helper()
	var record models.InventoryRecord
	require.NoError(t, f.db.Where("id = ?", id).First(&record).Error)
	return record
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected typed error, got %v", err)
	assert.Equal(t, code, typed.Code())
}
