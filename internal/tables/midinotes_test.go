package tables

import (
	"strings"
	"testing"

	"github.com/gamelan-notation/notation2midi/internal/score"
)

const midinotesTSV = "instrument_group\tinstrument_type\tpositions\tpitch\toctave\tstroke\tmidi_note\tbank\tprogram\n" +
	"gangsa\tkantilan\tpolos,sangsih\tDONG\t0\tOPEN\t64\t0\t10\n" +
	"gangsa\tkantilan\t\tDONG\t0\tMUTED\t65\t0\t10\n"

func TestMIDINotesLookupExactThenFallback(t *testing.T) {
	mt, errs := LoadMIDINotes(strings.NewReader(midinotesTSV))
	for _, e := range errs {
		t.Fatalf("unexpected load error: %v", e)
	}

	note, ok := mt.Lookup("gangsa", "kantilan", "polos", score.PitchOctave{Pitch: score.PitchDong, Octave: 0}, score.StrokeOpen)
	if !ok || note != 64 {
		t.Errorf("Lookup(polos, OPEN) = %d, %v, want 64, true", note, ok)
	}

	note, ok = mt.Lookup("gangsa", "kantilan", "polos", score.PitchOctave{Pitch: score.PitchDong, Octave: 0}, score.StrokeMuted)
	if !ok || note != 65 {
		t.Errorf("Lookup(polos, MUTED fallback) = %d, %v, want 65, true", note, ok)
	}

	if _, ok := mt.Lookup("gangsa", "kantilan", "polos", score.PitchOctave{Pitch: score.PitchDang, Octave: 0}, score.StrokeOpen); ok {
		t.Errorf("did not expect a match for an undeclared pitch")
	}
}

func TestMIDINotesPresetFallsBackToPositionAgnosticRow(t *testing.T) {
	mt, errs := LoadMIDINotes(strings.NewReader(midinotesTSV))
	for _, e := range errs {
		t.Fatalf("unexpected load error: %v", e)
	}
	preset, ok := mt.Preset("gangsa", "kantilan", "reyong1")
	if !ok {
		t.Fatalf("expected a fallback preset for an unlisted position")
	}
	if preset.Program != 10 {
		t.Errorf("preset.Program = %d, want 10", preset.Program)
	}
}
