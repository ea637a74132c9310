package tables

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ColumnMissingError reports a reference table missing a required column.
type ColumnMissingError struct {
	Table  string
	Column string
}

func (e *ColumnMissingError) Error() string {
	return fmt.Sprintf("tables: %s is missing required column %q", e.Table, e.Column)
}

// RowParseError reports one bad data row. Loaders collect these rather than
// stopping at the first one, the same way the notation parser resumes at
// the next line after a LineParseError.
type RowParseError struct {
	Table string
	Row   int // 1-based, header excluded
	Err   error
}

func (e *RowParseError) Error() string {
	return fmt.Sprintf("tables: %s row %d: %v", e.Table, e.Row, e.Err)
}

// row is one parsed record keyed by header name.
type row map[string]string

// readTSV parses a tab-separated reader into a header index and data rows.
func readTSV(r io.Reader) (header map[string]int, rows []row, err error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("tables: read tsv: %w", err)
	}
	if len(records) == 0 {
		return map[string]int{}, nil, nil
	}

	header = make(map[string]int, len(records[0]))
	for i, col := range records[0] {
		header[strings.TrimSpace(col)] = i
	}

	for _, rec := range records[1:] {
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		rr := make(row, len(header))
		for name, idx := range header {
			if idx < len(rec) {
				rr[name] = strings.TrimSpace(rec[idx])
			}
		}
		rows = append(rows, rr)
	}
	return header, rows, nil
}

func requireColumns(table string, header map[string]int, cols ...string) error {
	for _, c := range cols {
		if _, ok := header[c]; !ok {
			return &ColumnMissingError{Table: table, Column: c}
		}
	}
	return nil
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseIntField(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
