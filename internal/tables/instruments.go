package tables

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gamelan-notation/notation2midi/internal/score"
)

// InstrumentEntry is one (instrument-group, position) row: the instrument
// type and its nominal and extended pitch ranges.
type InstrumentEntry struct {
	Group          string
	Position       score.Position
	InstrumentType string
	Range          []score.PitchOctave
	ExtendedRange  []score.PitchOctave
}

// InRange reports whether po lies in the nominal range.
func (e InstrumentEntry) InRange(po score.PitchOctave) bool {
	return containsPO(e.Range, po)
}

// InExtendedRange reports whether po lies in the extended range.
func (e InstrumentEntry) InExtendedRange(po score.PitchOctave) bool {
	return containsPO(e.ExtendedRange, po)
}

func containsPO(list []score.PitchOctave, po score.PitchOctave) bool {
	for _, x := range list {
		if x == po {
			return true
		}
	}
	return false
}

// InstrumentsTable indexes instrument entries by position.
type InstrumentsTable struct {
	byPosition map[score.Position]InstrumentEntry
	byGroup    map[string][]score.Position
}

// Lookup returns the instrument entry bound to a position.
func (t *InstrumentsTable) Lookup(p score.Position) (InstrumentEntry, bool) {
	e, ok := t.byPosition[p]
	return e, ok
}

// PositionsInGroup lists every position declared for an instrument group, in
// table order. Score completion uses this to fill the positions a gongan's
// staves left unmentioned.
func (t *InstrumentsTable) PositionsInGroup(group string) []score.Position {
	return append([]score.Position{}, t.byGroup[group]...)
}

// LoadInstruments parses an instruments.tsv reference table. Range columns
// hold semicolon-separated "PITCH:octave" pairs in ascending order, e.g.
// "DING:0;DONG:0;DENG:0;DUNG:0;DANG:0;DING:1".
func LoadInstruments(r io.Reader) (*InstrumentsTable, []error) {
	const table = "instruments"
	var errs []error

	header, rows, err := readTSV(r)
	if err != nil {
		return nil, []error{err}
	}
	required := []string{"instrument_group", "position", "instrument_type", "range", "extended_range"}
	if err := requireColumns(table, header, required...); err != nil {
		return nil, []error{err}
	}

	it := &InstrumentsTable{
		byPosition: make(map[score.Position]InstrumentEntry, len(rows)),
		byGroup:    make(map[string][]score.Position),
	}
	for i, rr := range rows {
		rowNum := i + 1
		rng, err := parseRangeList(rr["range"])
		if err != nil {
			errs = append(errs, &RowParseError{Table: table, Row: rowNum, Err: fmt.Errorf("range: %w", err)})
			continue
		}
		ext, err := parseRangeList(rr["extended_range"])
		if err != nil {
			errs = append(errs, &RowParseError{Table: table, Row: rowNum, Err: fmt.Errorf("extended_range: %w", err)})
			continue
		}
		entry := InstrumentEntry{
			Group:          rr["instrument_group"],
			Position:       score.Position(rr["position"]),
			InstrumentType: rr["instrument_type"],
			Range:          rng,
			ExtendedRange:  ext,
		}
		it.byPosition[entry.Position] = entry
		it.byGroup[entry.Group] = append(it.byGroup[entry.Group], entry.Position)
	}
	return it, errs
}

func parseRangeList(s string) ([]score.PitchOctave, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var out []score.PitchOctave
	for _, item := range strings.Split(s, ";") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		pitch, octStr, ok := strings.Cut(item, ":")
		if !ok {
			return nil, fmt.Errorf("invalid pitch:octave pair %q", item)
		}
		oct, err := strconv.Atoi(strings.TrimSpace(octStr))
		if err != nil {
			return nil, fmt.Errorf("invalid octave in %q: %w", item, err)
		}
		out = append(out, score.PitchOctave{Pitch: score.Pitch(strings.ToUpper(strings.TrimSpace(pitch))), Octave: oct})
	}
	return out, nil
}
