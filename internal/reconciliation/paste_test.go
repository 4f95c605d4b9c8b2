package reconciliation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/angelmondragon/tombamento-backend/internal/matching"
)

func TestParsePastedRows(t *testing.T) {
	text := "Descrição\tTombamento\tLocal\tEstado\r\n" +
		"Cadeira giratória\t0150\tSala 1\tbom (Doação Secretaria X)\r\n" +
		"\r\n" +
		"Mesa\tS/T\tSala 2\t\r\n" +
		"\t151\tSala 3\tNovo\n" +
		"Projetor;152;Auditório;Avariado\n" +
		"Quadro branco"

	rows, err := ParsePastedRows(text)
	require.Len(t, rows, 4)
	assert.Equal(t, matching.PastedRow{Description: "Cadeira giratória", AssetTag: "0150", Location: "Sala 1", Condition: "Bom"}, rows[0])
	assert.Equal(t, matching.PastedRow{Description: "Mesa", AssetTag: "S/T", Location: "Sala 2"}, rows[1])
	assert.Equal(t, matching.PastedRow{Description: "Projetor", AssetTag: "152", Location: "Auditório", Condition: "Avariado"}, rows[2])
	assert.Equal(t, matching.PastedRow{Description: "Quadro branco"}, rows[3])

	errs := multierr.Errors(err)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "line 5")
}

func TestParsePastedRowsWithoutHeader(t *testing.T) {
	rows, err := ParsePastedRows("Estante\t10\tBiblioteca\tRegular\nArmário\t11")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Estante", rows[0].Description)
	assert.Equal(t, "Regular", rows[0].Condition)
	assert.Equal(t, "11", rows[1].AssetTag)
	assert.Empty(t, rows[1].Location)
}

func TestParsePastedRowsEmpty(t *testing.T) {
	rows, err := ParsePastedRows(" \n\n")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestCleanPastedRowsMatchesTextCleanup(t *testing.T) {
	fromText, err := ParsePastedRows("Cadeira\t 0150 \tSala 1\tbom (Doação Secretaria X)")
	require.NoError(t, err)

	fromJSON, err := CleanPastedRows([]matching.PastedRow{
		{Description: " Cadeira ", AssetTag: "0150 ", Location: " Sala 1", Condition: "bom (Doação Secretaria X)"},
	})
	require.NoError(t, err)
	assert.Equal(t, fromText, fromJSON)
	assert.Equal(t, "Bom", fromJSON[0].Condition)
}

func TestCleanPastedRowsSkipsBlankDescriptions(t *testing.T) {
	rows, err := CleanPastedRows([]matching.PastedRow{
		{Description: "Mesa", Condition: "péssimo"},
		{Description: "   ", AssetTag: "10"},
		{Description: "Estante"},
	})
	require.Len(t, rows, 2)
	assert.Equal(t, "Mesa", rows[0].Description)
	assert.Empty(t, rows[1].Condition)

	errs := multierr.Errors(err)
	require.Len(t, errs, 1)
	assert.Equal(t, "row 2: description is empty", errs[0].Error())
}
