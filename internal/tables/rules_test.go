package tables

import (
	"strings"
	"testing"

	"github.com/gamelan-notation/notation2midi/internal/score"
)

func TestLoadRulesKempyungAndSharedRules(t *testing.T) {
	tsv := "instrument_group\tkempyung_pairs\tshared_rules\n" +
		"gangsa\tDONG:0>DANG:0;DENG:0>DUNG:1\tSAME_PITCH,KEMPYUNG\n"

	rt, errs := LoadRules(strings.NewReader(tsv))
	for _, e := range errs {
		t.Errorf("unexpected load error: %v", e)
	}

	rules, ok := rt.Lookup("gangsa")
	if !ok {
		t.Fatalf("expected gangsa group to be present")
	}

	got, ok := rules.KempyungEquivalent(score.PitchOctave{Pitch: score.PitchDong, Octave: 0})
	if !ok || got != (score.PitchOctave{Pitch: score.PitchDang, Octave: 0}) {
		t.Errorf("Kempyung(DONG:0) = %+v, %v, want DANG:0, true", got, ok)
	}

	got, ok = rules.KempyungEquivalent(score.PitchOctave{Pitch: score.PitchDeng, Octave: 0})
	if !ok || got != (score.PitchOctave{Pitch: score.PitchDung, Octave: 1}) {
		t.Errorf("Kempyung(DENG:0) = %+v, %v, want DUNG:1, true", got, ok)
	}

	if _, ok := rules.KempyungEquivalent(score.PitchOctave{Pitch: score.PitchDung, Octave: 0}); ok {
		t.Errorf("did not expect a kempyung entry for an undeclared pitch")
	}

	if len(rules.SharedRules) != 2 || rules.SharedRules[0] != TransformSamePitch || rules.SharedRules[1] != TransformKempyung {
		t.Errorf("SharedRules = %v, want [SAME_PITCH KEMPYUNG]", rules.SharedRules)
	}
}

func TestLoadRulesRejectsMalformedPair(t *testing.T) {
	tsv := "instrument_group\tkempyung_pairs\tshared_rules\n" +
		"gangsa\tDONG-0\tSAME_PITCH\n"

	_, errs := LoadRules(strings.NewReader(tsv))
	if len(errs) == 0 {
		t.Fatalf("expected an error for a malformed kempyung pair")
	}
}

func TestLoadRulesMissingColumn(t *testing.T) {
	tsv := "instrument_group\tshared_rules\n" + "gangsa\tSAME_PITCH\n"
	_, errs := LoadRules(strings.NewReader(tsv))
	if len(errs) != 1 {
		t.Fatalf("expected exactly one column-missing error, got %v", errs)
	}
}
