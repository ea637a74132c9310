package tables

import (
	"io"

	"github.com/gamelan-notation/notation2midi/internal/score"
)

// TagsTable maps a notation-line tag string to one or more concrete
// positions.
type TagsTable struct {
	byTag map[string][]score.Position
}

// Lookup returns the positions a tag resolves to.
func (t *TagsTable) Lookup(tag string) ([]score.Position, bool) {
	ps, ok := t.byTag[tag]
	return ps, ok
}

// LoadTags parses a tags.tsv reference table. The positions column is a
// comma-separated list.
func LoadTags(r io.Reader) (*TagsTable, []error) {
	const table = "tags"
	var errs []error

	header, rows, err := readTSV(r)
	if err != nil {
		return nil, []error{err}
	}
	if err := requireColumns(table, header, "tag", "positions"); err != nil {
		return nil, []error{err}
	}

	tt := &TagsTable{byTag: make(map[string][]score.Position, len(rows))}
	for i, rr := range rows {
		var positions []score.Position
		for _, p := range splitList(rr["positions"]) {
			positions = append(positions, score.Position(p))
		}
		if len(positions) == 0 {
			errs = append(errs, &RowParseError{Table: table, Row: i + 1, Err: &ColumnMissingError{Table: table, Column: "positions"}})
			continue
		}
		tt.byTag[rr["tag"]] = positions
	}
	return tt, errs
}
