package reconciliation

import (
	"fmt"
	"strings"

	"go.uber.org/multierr"

	"github.com/angelmondragon/tombamento-backend/internal/matching"
)

// pasteColumns is the expected column order of pasted rows.
const pasteColumns = 4

// ParsePastedRows splits text copied from a spreadsheet into rows of
// description, asset tag, location and condition. Cells are tab separated;
// lines without a tab fall back to ";". A leading header line is skipped.
// Lines without a description are reported in the error and left out, so the
// error never means the returned rows are unusable.
func ParsePastedRows(text string) ([]matching.PastedRow, error) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var (
		rows    []matching.PastedRow
		errs    error
		started bool
	)
	for i, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		cells := splitPastedLine(line)
		if !started {
			started = true
			if isPasteHeader(cells) {
				continue
			}
		}

		row := matching.PastedRow{Description: cells[0]}
		if len(cells) > 1 {
			row.AssetTag = cells[1]
		}
		if len(cells) > 2 {
			row.Location = cells[2]
		}
		if len(cells) > 3 {
			row.Condition = cells[3]
		}
		row, ok := cleanPastedRow(row)
		if !ok {
			errs = multierr.Append(errs, fmt.Errorf("line %d: description is empty", i+1))
			continue
		}
		rows = append(rows, row)
	}
	return rows, errs
}

// CleanPastedRows applies the cell cleanup of ParsePastedRows to rows that
// arrive already split, such as a JSON body. Rows without a description are
// reported and left out.
func CleanPastedRows(in []matching.PastedRow) ([]matching.PastedRow, error) {
	var (
		rows []matching.PastedRow
		errs error
	)
	for i, row := range in {
		row, ok := cleanPastedRow(row)
		if !ok {
			errs = multierr.Append(errs, fmt.Errorf("row %d: description is empty", i+1))
			continue
		}
		rows = append(rows, row)
	}
	return rows, errs
}

// cleanPastedRow trims every cell and reduces the condition note to its
// canonical state name. ok is false when no description is left.
func cleanPastedRow(row matching.PastedRow) (matching.PastedRow, bool) {
	row.Description = strings.TrimSpace(row.Description)
	row.AssetTag = strings.TrimSpace(row.AssetTag)
	row.Location = strings.TrimSpace(row.Location)
	row.Condition = strings.TrimSpace(row.Condition)
	if row.Condition != "" {
		row.Condition = matching.ParseConditionAndOrigin(row.Condition).State.String()
	}
	return row, row.Description != ""
}

func splitPastedLine(line string) []string {
	sep := "\t"
	if !strings.Contains(line, sep) && strings.Contains(line, ";") {
		sep = ";"
	}
	cells := strings.Split(line, sep)
	if len(cells) > pasteColumns {
		cells = cells[:pasteColumns]
	}
	for i := range cells {
		cells[i] = strings.TrimSpace(cells[i])
	}
	return cells
}

func isPasteHeader(cells []string) bool {
	first := matching.NormalizeText(cells[0])
	if strings.HasPrefix(first, "descricao") || first == "item" || first == "bem" {
		return true
	}
	if len(cells) > 1 {
		second := matching.NormalizeText(cells[1])
		return strings.Contains(second, "tombamento") || second == "tombo"
	}
	return false
}
