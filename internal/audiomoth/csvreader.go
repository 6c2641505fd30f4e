package audiomoth

/*------------------------------------------------------------------
 *
 * Purpose:	L1 header-driven streaming CSV column extractor, used only
 *		by Sync to load the companion PPS CSV (spec §4.6).
 *
 * Description:	The caller supplies an ordered list of column names and a
 *		parser callback per column. The reader records the header
 *		row's column-to-index map once, then appends parsed values
 *		to per-column ordered sequences. Rows whose cell count
 *		does not match the header count are skipped silently,
 *		mirroring cmd/log2gpx's tolerant CSV walk in the teacher.
 *
 *---------------------------------------------------------------*/

import (
	"encoding/csv"
	"io"
)

// ColumnParser converts one CSV cell to a typed value, returning ok=false
// to signal the cell should be treated as absent/zero for this row.
type ColumnParser func(cell string) (interface{}, bool)

// Column describes one column this reader should extract.
type Column struct {
	Name   string
	Parser ColumnParser
}

// CSVReader is the generic reader. Columns are accumulated into
// Values[columnName] in row order.
type CSVReader struct {
	Columns []Column
	Values  map[string][]interface{}
	RowCount int
}

// NewCSVReader builds a reader for the given ordered column list.
func NewCSVReader(columns []Column) *CSVReader {
	var values = make(map[string][]interface{}, len(columns))
	for _, c := range columns {
		values[c.Name] = nil
	}

	return &CSVReader{Columns: columns, Values: values}
}

// Read streams r, reading the header row once and then every data row,
// skipping rows whose cell count doesn't match the header.
func (cr *CSVReader) Read(r io.Reader) error {
	var reader = csv.NewReader(r)
	reader.FieldsPerRecord = -1 // we validate per-row ourselves

	var header, err = reader.Read()
	if err == io.EOF {
		return newErr(ErrInsufficientEvents, "CSV has no header row")
	}
	if err != nil {
		return wrapErr(ErrInputReadFailed, err, "reading CSV header")
	}

	var indexByName = make(map[string]int, len(header))
	for i, name := range header {
		indexByName[name] = i
	}

	var columnIndex = make([]int, len(cr.Columns))
	for i, c := range cr.Columns {
		var idx, ok = indexByName[c.Name]
		if !ok {
			return newErr(ErrInvalidArgument, "CSV missing required column %q", c.Name)
		}
		columnIndex[i] = idx
	}

	var headerWidth = len(header)

	for {
		var row, readErr = reader.Read()
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return wrapErr(ErrInputReadFailed, readErr, "reading CSV row")
		}

		if len(row) != headerWidth {
			continue // silently skipped, per spec §4.6
		}

		for i, c := range cr.Columns {
			var cell = row[columnIndex[i]]
			var value, ok = c.Parser(cell)
			if !ok {
				value = nil
			}
			cr.Values[c.Name] = append(cr.Values[c.Name], value)
		}

		cr.RowCount++
	}

	return nil
}

// Ints returns column name's values as []int64, treating unparsed/nil
// cells as 0.
func (cr *CSVReader) Ints(name string) []int64 {
	var raw = cr.Values[name]
	var out = make([]int64, len(raw))
	for i, v := range raw {
		if n, ok := v.(int64); ok {
			out[i] = n
		}
	}
	return out
}

// Strings returns column name's values as []string.
func (cr *CSVReader) Strings(name string) []string {
	var raw = cr.Values[name]
	var out = make([]string, len(raw))
	for i, v := range raw {
		if s, ok := v.(string); ok {
			out[i] = s
		}
	}
	return out
}
