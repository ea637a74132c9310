package tables

import (
	"fmt"
	"io"
	"strings"

	"github.com/gamelan-notation/notation2midi/internal/score"
)

// SymbolKind tags a font-table row, modelling the symbol atom as a tagged
// variant rather than by inheritance.
type SymbolKind string

const (
	SymbolNote           SymbolKind = "NOTE"
	SymbolModifier       SymbolKind = "MODIFIER"
	SymbolRest           SymbolKind = "REST"
	SymbolPatternMarker  SymbolKind = "PATTERN_MARKER"
)

// FontEntry is one row of the font table: the Unicode symbol's musical
// meaning or modifier kind, relative octave, stroke, and duration
// fractions.
type FontEntry struct {
	Symbol      rune
	Kind        SymbolKind
	Pitch       score.Pitch
	Modifier    score.Modifier
	OctaveDelta int
	Stroke      score.Stroke
	Duration    score.Frac
	RestAfter   score.Frac
	Combining   bool
}

// FontTable indexes font entries by their Unicode symbol for O(1) decoder
// lookups.
type FontTable struct {
	Version string
	entries map[rune]FontEntry
}

// Lookup returns the font entry for r, or ok=false if r is not in the
// table.
func (t *FontTable) Lookup(r rune) (FontEntry, bool) {
	e, ok := t.entries[r]
	return e, ok
}

// ReverseNote finds the base symbol whose table row exactly matches a
// decoded note or rest's pitch, octave delta, stroke, duration and
// rest_after, for use by the notation-text writer.
func (t *FontTable) ReverseNote(kind SymbolKind, pitch score.Pitch, octaveDelta int, stroke score.Stroke, duration, restAfter score.Frac) (rune, bool) {
	for r, e := range t.entries {
		if e.Kind != kind || e.Pitch != pitch || e.OctaveDelta != octaveDelta || e.Stroke != stroke {
			continue
		}
		if e.Duration.Cmp(duration) != 0 || e.RestAfter.Cmp(restAfter) != 0 {
			continue
		}
		return r, true
	}
	return 0, false
}

// ReverseModifier finds the combining symbol for a modifier.
func (t *FontTable) ReverseModifier(m score.Modifier) (rune, bool) {
	for r, e := range t.entries {
		if e.Kind == SymbolModifier && e.Modifier == m {
			return r, true
		}
	}
	return 0, false
}

// LoadFont parses a font.tsv reference table.
func LoadFont(r io.Reader, version string) (*FontTable, []error) {
	const table = "font"
	var errs []error

	header, rows, err := readTSV(r)
	if err != nil {
		return nil, []error{err}
	}
	required := []string{"symbol", "kind", "pitch", "octave_delta", "stroke", "duration", "rest_after", "combining"}
	if err := requireColumns(table, header, required...); err != nil {
		return nil, []error{err}
	}

	ft := &FontTable{Version: version, entries: make(map[rune]FontEntry, len(rows))}
	for i, rr := range rows {
		rowNum := i + 1
		symStr := rr["symbol"]
		runes := []rune(symStr)
		if len(runes) != 1 {
			errs = append(errs, &RowParseError{Table: table, Row: rowNum, Err: fmt.Errorf("symbol column must be exactly one rune, got %q", symStr)})
			continue
		}

		dur, err := parseFrac(rr["duration"])
		if err != nil {
			errs = append(errs, &RowParseError{Table: table, Row: rowNum, Err: fmt.Errorf("duration: %w", err)})
			continue
		}
		restAfter, err := parseFrac(rr["rest_after"])
		if err != nil {
			errs = append(errs, &RowParseError{Table: table, Row: rowNum, Err: fmt.Errorf("rest_after: %w", err)})
			continue
		}
		octDelta, err := parseIntField(rr["octave_delta"])
		if err != nil {
			errs = append(errs, &RowParseError{Table: table, Row: rowNum, Err: fmt.Errorf("octave_delta: %w", err)})
			continue
		}

		entry := FontEntry{
			Symbol:      runes[0],
			Kind:        SymbolKind(strings.ToUpper(rr["kind"])),
			OctaveDelta: octDelta,
			Stroke:      score.Stroke(strings.ToUpper(rr["stroke"])),
			Duration:    dur,
			RestAfter:   restAfter,
			Combining:   strings.EqualFold(rr["combining"], "true") || rr["combining"] == "1",
		}
		switch entry.Kind {
		case SymbolNote, SymbolRest:
			entry.Pitch = score.Pitch(strings.ToUpper(rr["pitch"]))
		case SymbolModifier:
			entry.Modifier = score.Modifier(strings.ToUpper(rr["pitch"]))
		case SymbolPatternMarker:
			// pitch column unused; modifier-like marker name lives there too
			entry.Modifier = score.Modifier(strings.ToUpper(rr["pitch"]))
		default:
			errs = append(errs, &RowParseError{Table: table, Row: rowNum, Err: fmt.Errorf("unknown kind %q", rr["kind"])})
			continue
		}

		ft.entries[entry.Symbol] = entry
	}
	return ft, errs
}

func parseFrac(s string) (score.Frac, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return score.Zero(), nil
	}
	num, den := s, "1"
	if i := strings.IndexByte(s, '/'); i >= 0 {
		num, den = s[:i], s[i+1:]
	}
	var n, d int64
	if _, err := fmt.Sscanf(num, "%d", &n); err != nil {
		return score.Zero(), fmt.Errorf("invalid fraction %q", s)
	}
	if _, err := fmt.Sscanf(den, "%d", &d); err != nil {
		return score.Zero(), fmt.Errorf("invalid fraction %q", s)
	}
	if d == 0 {
		return score.Zero(), fmt.Errorf("zero denominator in %q", s)
	}
	return score.NewFrac(n, d), nil
}
