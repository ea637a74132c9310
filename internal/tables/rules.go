package tables

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gamelan-notation/notation2midi/internal/score"
)

// Transform is one shared-notation resolution strategy.
type Transform string

const (
	TransformSamePitch              Transform = "SAME_PITCH"
	TransformSamePitchExtendedRange Transform = "SAME_PITCH_EXTENDED_RANGE"
	TransformKempyung               Transform = "KEMPYUNG"
)

// GroupRules is one instrument group's kempyung-pair table and ordered
// shared-notation transform list.
type GroupRules struct {
	Kempyung   map[score.PitchOctave]score.PitchOctave
	SharedRules []Transform
}

// RulesTable indexes GroupRules by instrument group.
type RulesTable struct {
	byGroup map[string]GroupRules
}

// Lookup returns the rules for an instrument group.
func (t *RulesTable) Lookup(group string) (GroupRules, bool) {
	r, ok := t.byGroup[group]
	return r, ok
}

// KempyungEquivalent looks up the kempyung-equivalent pitch/octave, if
// declared for the group.
func (g GroupRules) KempyungEquivalent(po score.PitchOctave) (score.PitchOctave, bool) {
	eq, ok := g.Kempyung[po]
	return eq, ok
}

// LoadRules parses a rules.tsv reference table.
func LoadRules(r io.Reader) (*RulesTable, []error) {
	const table = "rules"
	var errs []error

	header, rows, err := readTSV(r)
	if err != nil {
		return nil, []error{err}
	}
	if err := requireColumns(table, header, "instrument_group", "kempyung_pairs", "shared_rules"); err != nil {
		return nil, []error{err}
	}

	rt := &RulesTable{byGroup: make(map[string]GroupRules, len(rows))}
	for i, rr := range rows {
		rowNum := i + 1
		kempyung, err := parseKempyungPairs(rr["kempyung_pairs"])
		if err != nil {
			errs = append(errs, &RowParseError{Table: table, Row: rowNum, Err: fmt.Errorf("kempyung_pairs: %w", err)})
			continue
		}
		var shared []Transform
		for _, t := range splitList(rr["shared_rules"]) {
			shared = append(shared, Transform(strings.ToUpper(t)))
		}
		rt.byGroup[rr["instrument_group"]] = GroupRules{
			Kempyung:    kempyung,
			SharedRules: shared,
		}
	}
	return rt, errs
}

// parseKempyungPairs parses "DONG:1>DUNG:1;DENG:1>DANG:1" into a map.
func parseKempyungPairs(s string) (map[score.PitchOctave]score.PitchOctave, error) {
	s = strings.TrimSpace(s)
	m := make(map[score.PitchOctave]score.PitchOctave)
	if s == "" {
		return m, nil
	}
	for _, pair := range strings.Split(s, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		lhs, rhs, ok := strings.Cut(pair, ">")
		if !ok {
			return nil, fmt.Errorf("invalid kempyung pair %q, expected LHS>RHS", pair)
		}
		from, err := parsePitchOctave(lhs)
		if err != nil {
			return nil, err
		}
		to, err := parsePitchOctave(rhs)
		if err != nil {
			return nil, err
		}
		m[from] = to
	}
	return m, nil
}

func parsePitchOctave(s string) (score.PitchOctave, error) {
	pitch, octStr, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return score.PitchOctave{}, fmt.Errorf("invalid pitch:octave %q", s)
	}
	oct, err := strconv.Atoi(strings.TrimSpace(octStr))
	if err != nil {
		return score.PitchOctave{}, fmt.Errorf("invalid octave in %q: %w", s, err)
	}
	return score.PitchOctave{Pitch: score.Pitch(strings.ToUpper(strings.TrimSpace(pitch))), Octave: oct}, nil
}
