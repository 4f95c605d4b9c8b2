package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/tombamento-backend/pkg/db/dbtest"
	"github.com/angelmondragon/tombamento-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/tombamento-backend/pkg/errors"
)

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected typed error, got %v", err)
	assert.Equal(t, code, typed.Code())
}

func ledgerRowPtr(tag, description string) *models.LedgerRecord {
	row := ledgerRow(tag, description, "A", "")
	return &row
}

type stubRefresher struct {
	calls int
	err   error
}

func (s *stubRefresher) Refresh(ctx context.Context) (*RefreshResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &RefreshResult{Records: 3}, nil
}

func TestServiceGet(t *testing.T) {
	db := dbtest.Open(t)
	svc, err := NewService(NewRepository(db), nil)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, db.Create(ledgerRowPtr("150", "Mesa")).Error)

	record, err := svc.Get(ctx, "150.0")
	require.NoError(t, err)
	assert.Equal(t, "Mesa", record.Description)

	_, err = svc.Get(ctx, "999")
	requireCode(t, err, pkgerrors.CodeNotFound)

	_, err = svc.Get(ctx, "S/T")
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestServiceRefresh(t *testing.T) {
	svc, err := NewService(NewRepository(nil), nil)
	require.NoError(t, err)
	_, err = svc.Refresh(context.Background())
	requireCode(t, err, pkgerrors.CodeDependency)

	stub := &stubRefresher{}
	svc, err = NewService(NewRepository(nil), stub)
	require.NoError(t, err)
	result, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, result.Records)

	stub.err = errors.New("boom")
	_, err = svc.Refresh(context.Background())
	assert.EqualError(t, err, "boom")
	assert.Equal(t, 2, stub.calls)
}

func TestNewServiceRequiresRepository(t *testing.T) {
	_, err := NewService(nil, nil)
	assert.Error(t, err)
}

func TestToCandidate(t *testing.T) {
	c := ToCandidate(models.LedgerRecord{AssetTag: "7", Description: "Mesa", Species: "Mobiliário", SupplierName: "Alfa"})
	assert.Equal(t, "Mesa Mobiliário Alfa", c.Descriptor())
	assert.Equal(t, "7", c.AssetTag)
}

func TestFromModelFlagsAvailability(t *testing.T) {
	dto := FromModel(models.LedgerRecord{AssetTag: "9", Description: "Mesa", AvailabilityStatus: "Baixado"})
	assert.False(t, dto.Available)
	assert.Equal(t, "9", dto.AssetTag)

	assert.True(t, FromModel(models.LedgerRecord{AssetTag: "10"}).Available)
}
