package tables

import (
	"strings"
	"testing"

	"github.com/gamelan-notation/notation2midi/internal/score"
)

const fontTSV = "symbol\tkind\tpitch\toctave_delta\tstroke\tduration\trest_after\tcombining\n" +
	"o\tNOTE\tDONG\t0\tOPEN\t1\t0\tfalse\n" +
	"-\tREST\tREST\t0\tOPEN\t0\t1\tfalse\n" +
	"'\tMODIFIER\tOCTAVE_UP\t0\tOPEN\t0\t0\ttrue\n"

func TestLoadFontAndLookup(t *testing.T) {
	ft, errs := LoadFont(strings.NewReader(fontTSV), "v1")
	for _, e := range errs {
		t.Errorf("unexpected load error: %v", e)
	}

	entry, ok := ft.Lookup('o')
	if !ok {
		t.Fatalf("expected symbol 'o' to be present")
	}
	if entry.Kind != SymbolNote || entry.Pitch != score.PitchDong {
		t.Errorf("entry = %+v, want NOTE/DONG", entry)
	}

	if _, ok := ft.Lookup('?'); ok {
		t.Errorf("did not expect an entry for an undeclared symbol")
	}
}

func TestFontReverseNoteRoundTrip(t *testing.T) {
	ft, errs := LoadFont(strings.NewReader(fontTSV), "v1")
	for _, e := range errs {
		t.Fatalf("unexpected load error: %v", e)
	}

	r, ok := ft.ReverseNote(SymbolNote, score.PitchDong, 0, score.StrokeOpen, score.NewFrac(1, 1), score.Zero())
	if !ok || r != 'o' {
		t.Errorf("ReverseNote = %q, %v, want 'o', true", r, ok)
	}

	if _, ok := ft.ReverseNote(SymbolNote, score.PitchDang, 0, score.StrokeOpen, score.NewFrac(1, 1), score.Zero()); ok {
		t.Errorf("did not expect a reverse match for an undeclared note shape")
	}
}

func TestFontReverseModifier(t *testing.T) {
	ft, errs := LoadFont(strings.NewReader(fontTSV), "v1")
	for _, e := range errs {
		t.Fatalf("unexpected load error: %v", e)
	}

	r, ok := ft.ReverseModifier(score.ModOctaveUp)
	if !ok || r != '\'' {
		t.Errorf("ReverseModifier(OCTAVE_UP) = %q, %v, want '\\'', true", r, ok)
	}
}
