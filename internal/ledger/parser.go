package ledger

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/multierr"

	"github.com/angelmondragon/tombamento-backend/internal/matching"
	"github.com/angelmondragon/tombamento-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/tombamento-backend/pkg/errors"
)

type column int

const (
	colAssetTag column = iota
	colDescription
	colSpecies
	colSupplier
	colUnit
	colStatus
	colInvoiceNumber
	colRegistrationDate
	colInvoiceValue
	columnCount
)

var columnNames = [columnCount]string{
	"tombamento", "descrição", "espécie", "fornecedor", "unidade",
	"situação", "nota fiscal", "data", "valor",
}

// ParseResult is a decoded ledger workbook. RowErrors aggregates problems in
// individual rows; rows with a usable asset tag are kept even when another
// cell failed to parse.
type ParseResult struct {
	Sheet      string
	Records    []models.LedgerRecord
	Rows       int
	Skipped    int
	Duplicates int
	RowErrors  error
}

// ParseWorkbook reads ledger rows from sheet of the xlsx in r. When sheet is
// empty or absent from the workbook the first sheet is used. Columns are
// located by header text, so their order does not matter.
func ParseWorkbook(r io.Reader, sheet string) (*ParseResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "ledger file is not a readable xlsx workbook")
	}
	defer f.Close()

	sheet = resolveSheet(f, sheet)
	if sheet == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ledger workbook has no sheets")
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unable to read ledger sheet").
			WithDetails(map[string]any{"sheet": sheet})
	}
	if len(rows) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ledger sheet is empty").
			WithDetails(map[string]any{"sheet": sheet})
	}

	index, err := mapHeader(rows[0])
	if err != nil {
		return nil, err
	}

	result := &ParseResult{Sheet: sheet}
	position := make(map[string]int)
	for i, row := range rows[1:] {
		line := i + 2
		if isBlankRow(row) {
			continue
		}
		result.Rows++

		record, rowErr := parseRow(row, index)
		for _, cellErr := range multierr.Errors(rowErr) {
			result.RowErrors = multierr.Append(result.RowErrors, fmt.Errorf("row %d: %w", line, cellErr))
		}
		if record == nil {
			result.Skipped++
			continue
		}

		if at, seen := position[record.AssetTag]; seen {
			result.Records[at] = *record
			result.Duplicates++
			continue
		}
		position[record.AssetTag] = len(result.Records)
		result.Records = append(result.Records, *record)
	}
	return result, nil
}

func resolveSheet(f *excelize.File, sheet string) string {
	sheets := f.GetSheetList()
	for _, name := range sheets {
		if strings.EqualFold(name, strings.TrimSpace(sheet)) {
			return name
		}
	}
	if len(sheets) == 0 {
		return ""
	}
	return sheets[0]
}

func mapHeader(header []string) ([columnCount]int, error) {
	var index [columnCount]int
	for i := range index {
		index[i] = -1
	}
	for i, cell := range header {
		col, ok := classifyHeader(cell)
		if ok && index[col] < 0 {
			index[col] = i
		}
	}

	var missing []string
	for _, col := range []column{colAssetTag, colDescription} {
		if index[col] < 0 {
			missing = append(missing, columnNames[col])
		}
	}
	if len(missing) > 0 {
		return index, pkgerrors.New(pkgerrors.CodeValidation, "ledger header is missing required columns").
			WithDetails(map[string]any{"missing": missing, "header": header})
	}
	return index, nil
}

// classifyHeader checks date, value and invoice first since their headers
// often mention "tombamento" too.
func classifyHeader(cell string) (column, bool) {
	h := matching.NormalizeText(cell)
	switch {
	case h == "":
		return 0, false
	case strings.HasPrefix(h, "data"):
		return colRegistrationDate, true
	case strings.HasPrefix(h, "valor"):
		return colInvoiceValue, true
	case strings.Contains(h, "nota fiscal") || h == "nf" || h == "n.f.":
		return colInvoiceNumber, true
	case strings.Contains(h, "tombamento") || h == "tombo" || h == "patrimonio":
		return colAssetTag, true
	case strings.Contains(h, "descricao"):
		return colDescription, true
	case strings.Contains(h, "especie"):
		return colSpecies, true
	case strings.Contains(h, "fornecedor"):
		return colSupplier, true
	case strings.Contains(h, "unidade"):
		return colUnit, true
	case strings.Contains(h, "situacao") || h == "status":
		return colStatus, true
	}
	return 0, false
}

func parseRow(row []string, index [columnCount]int) (*models.LedgerRecord, error) {
	cell := func(col column) string {
		i := index[col]
		if i < 0 || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	tag := matching.NormalizeAssetTag(cell(colAssetTag))
	if matching.IsUntaggedAssetTag(tag) {
		return nil, fmt.Errorf("missing asset tag")
	}

	record := &models.LedgerRecord{
		AssetTag:           tag,
		Description:        cell(colDescription),
		Species:            cell(colSpecies),
		SupplierName:       cell(colSupplier),
		Unit:               cell(colUnit),
		AvailabilityStatus: cell(colStatus),
		InvoiceNumber:      matching.NormalizeAssetTag(cell(colInvoiceNumber)),
	}

	var errs error
	if raw := cell(colRegistrationDate); raw != "" {
		date, err := parseDate(raw)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("asset tag %s: %w", tag, err))
		} else {
			record.RegistrationDate = &date
		}
	}
	if raw := cell(colInvoiceValue); raw != "" {
		value, err := parseValue(raw)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("asset tag %s: %w", tag, err))
		} else {
			record.InvoiceValue = value
		}
	}
	return record, errs
}

var dateLayouts = []string{"02/01/2006", "2/1/2006", "2006-01-02", "02-01-2006", "02/01/06"}

// parseDate accepts dd/mm/yyyy, ISO dates and Excel serial numbers.
func parseDate(raw string) (time.Time, error) {
	if serial, err := strconv.ParseFloat(raw, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid date serial %q: %w", raw, err)
		}
		return t.UTC(), nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", raw)
}

// parseValue accepts raw numbers ("1234.5") and Brazilian currency text
// ("R$ 1.234,56").
func parseValue(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "R$"))
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	s = strings.ReplaceAll(s, " ", "")
	value, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid value %q", raw)
	}
	if value.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative value %q", raw)
	}
	return value.Round(2), nil
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
