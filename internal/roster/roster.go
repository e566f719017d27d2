// Package roster reads the recipient spreadsheet and normalizes each row into
// a Record ready for rendering.
package roster

import (
	"strings"

	"github.com/unidoc/unioffice/spreadsheet"
	"github.com/unidoc/unioffice/spreadsheet/reference"

	"certforge/internal/errcode"
)

// Column headers every roster must provide.
const (
	ColumnName     = "Name"
	ColumnCourse   = "Course"
	ColumnPosition = "Position"
	ColumnEvent    = "Event"
)

// Unknown replaces optional values that are missing from a row.
const Unknown = "Unknown"

// RequiredColumns lists the headers in the order they are reported when missing.
var RequiredColumns = []string{ColumnName, ColumnCourse, ColumnPosition, ColumnEvent}

// Record is one validated roster row.
type Record struct {
	Name     string
	Course   string
	Position string
	Event    string
}

// Load parses the first sheet of the workbook at path. The first row is the
// header row; every following row becomes a Record unless its Name is blank.
func Load(path string) ([]Record, error) {
	wb, err := spreadsheet.Open(path)
	if err != nil {
		return nil, &errcode.DataFormatError{Msg: "Error reading Excel file", Err: err}
	}

	sheets := wb.Sheets()
	if len(sheets) == 0 {
		return nil, &errcode.DataFormatError{Missing: append([]string(nil), RequiredColumns...)}
	}

	table := readTable(sheets[0])
	return buildRecords(table)
}

// table is the row-oriented view of a sheet: header names plus rows keyed by
// header name. Cells outside the header are ignored.
type table struct {
	header []string
	rows   []map[string]string
}

func readTable(sheet spreadsheet.Sheet) table {
	var t table
	rows := sheet.Rows()
	if len(rows) == 0 {
		return t
	}

	columns := make(map[uint32]string)
	for _, cell := range rows[0].Cells() {
		col, err := cell.Column()
		if err != nil {
			continue
		}
		name := strings.TrimSpace(cell.GetFormattedValue())
		if name == "" {
			continue
		}
		columns[reference.ColumnToIndex(col)] = name
		t.header = append(t.header, name)
	}

	for _, row := range rows[1:] {
		values := make(map[string]string, len(columns))
		for _, cell := range row.Cells() {
			col, err := cell.Column()
			if err != nil {
				continue
			}
			name, ok := columns[reference.ColumnToIndex(col)]
			if !ok {
				continue
			}
			values[name] = cell.GetFormattedValue()
		}
		t.rows = append(t.rows, values)
	}
	return t
}

func buildRecords(t table) ([]Record, error) {
	kept := make([]map[string]string, 0, len(t.rows))
	for _, row := range t.rows {
		if strings.TrimSpace(row[ColumnName]) == "" {
			continue
		}
		kept = append(kept, row)
	}

	if missing := missingColumns(t.header); len(missing) > 0 {
		return nil, &errcode.DataFormatError{Missing: missing}
	}

	records := make([]Record, 0, len(kept))
	for _, row := range kept {
		records = append(records, Record{
			Name:     row[ColumnName],
			Course:   orUnknown(row[ColumnCourse]),
			Position: normalizePosition(row[ColumnPosition]),
			Event:    orUnknown(row[ColumnEvent]),
		})
	}
	return records, nil
}

func missingColumns(header []string) []string {
	present := make(map[string]struct{}, len(header))
	for _, h := range header {
		present[h] = struct{}{}
	}
	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := present[col]; !ok {
			missing = append(missing, col)
		}
	}
	return missing
}

func orUnknown(v string) string {
	if strings.TrimSpace(v) == "" {
		return Unknown
	}
	return v
}

func normalizePosition(raw string) string {
	pos := strings.TrimSpace(raw)
	if pos == "" {
		return Unknown
	}
	if isDigits(pos) {
		return OrdinalString(pos)
	}
	return pos
}
