package validate

import (
	"strings"
	"testing"

	"github.com/gamelan-notation/notation2midi/internal/score"
	"github.com/gamelan-notation/notation2midi/internal/tables"
)

const testInstrumentsTSV = "instrument_group\tposition\tinstrument_type\trange\textended_range\n" +
	"gangsa\tpolos\tkantilan\tDING:0;DONG:0;DENG:0;DUNG:0;DANG:0\tDING:0;DONG:0;DENG:0;DUNG:0;DANG:0;DING:1\n" +
	"gangsa\tsangsih\tkantilan\tDING:0;DONG:0;DENG:0;DUNG:0;DANG:0\tDING:0;DONG:0;DENG:0;DUNG:0;DANG:0;DING:1\n"

const testRulesTSV = "instrument_group\tkempyung_pairs\tshared_rules\n" +
	"gangsa\tDONG:0>DANG:0\tSAME_PITCH\n"

func loadTestTables(t *testing.T) (*tables.InstrumentsTable, *tables.RulesTable) {
	t.Helper()
	instruments, errs := tables.LoadInstruments(strings.NewReader(testInstrumentsTSV))
	for _, e := range errs {
		t.Fatalf("instruments: %v", e)
	}
	rules, errs := tables.LoadRules(strings.NewReader(testRulesTSV))
	for _, e := range errs {
		t.Fatalf("rules: %v", e)
	}
	return instruments, rules
}

func oneBeatGongan(polos, sangsih score.Note) score.Gongan {
	return score.Gongan{
		Type: score.GonganRegular,
		Beats: []score.Beat{
			{Measures: map[score.Position][]score.Measure{
				"polos":   {{Position: "polos", Notes: []score.Note{polos}, Pass: score.DefaultPass()}},
				"sangsih": {{Position: "sangsih", Notes: []score.Note{sangsih}, Pass: score.DefaultPass()}},
			}},
		},
		Autokempyung: []score.AutokempyungDirective{
			{On: true, Positions: []score.Position{"polos", "sangsih"}},
		},
	}
}

func TestValidateFlagsBeatLengthMismatch(t *testing.T) {
	instruments, rules := loadTestTables(t)
	g := oneBeatGongan(
		score.Note{Pitch: score.PitchDong, Duration: score.NewFrac(1, 1)},
		score.Note{Pitch: score.PitchDang, Duration: score.NewFrac(1, 2)},
	)
	sc := score.Score{Gongans: []score.Gongan{g}}

	_, c := Validate("test.not", sc, instruments, rules, "gangsa")
	found := false
	for _, e := range c.Errors() {
		if e.Code == "BeatLengthMismatch" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a BeatLengthMismatch error, got %v", c.Errors())
	}
}

func TestValidateKempyungMismatchReportsError(t *testing.T) {
	instruments, rules := loadTestTables(t)
	g := oneBeatGongan(
		score.Note{Pitch: score.PitchDong, Duration: score.NewFrac(1, 1)},
		score.Note{Pitch: score.PitchDeng, Duration: score.NewFrac(1, 1)}, // wrong: should be DANG
	)
	sc := score.Score{Gongans: []score.Gongan{g}}

	_, c := Validate("test.not", sc, instruments, rules, "gangsa")
	found := false
	for _, e := range c.Errors() {
		if e.Code == "KempyungMismatch" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a KempyungMismatch error, got %v", c.Errors())
	}
}

func TestValidateAutocorrectsKempyungAsWarningNotError(t *testing.T) {
	instruments, rules := loadTestTables(t)
	g := oneBeatGongan(
		score.Note{Pitch: score.PitchDong, Duration: score.NewFrac(1, 1)},
		score.Note{Pitch: score.PitchDeng, Duration: score.NewFrac(1, 1)},
	)
	sc := score.Score{
		Gongans:  []score.Gongan{g},
		Settings: score.ProcessSettings{AutocorrectKempyung: true},
	}

	out, c := Validate("test.not", sc, instruments, rules, "gangsa")
	for _, e := range c.Errors() {
		if e.Code == "KempyungMismatch" {
			t.Errorf("autocorrection should not produce a hard error: %v", e)
		}
	}
	foundWarning := false
	for _, w := range c.Warnings() {
		if w.Code == "KempyungMismatch" {
			foundWarning = true
		}
	}
	if !foundWarning {
		t.Errorf("expected a KempyungMismatch warning, got %v", c.Warnings())
	}

	sangsih, ok := out.Gongans[0].Beats[0].Position("sangsih")
	if !ok {
		t.Fatalf("expected a sangsih measure")
	}
	fixed := sangsih.Notes[0]
	if fixed.Pitch != score.PitchDang {
		t.Errorf("sangsih note should be corrected to DANG, got %s", fixed.Pitch)
	}
}

func TestValidateInstrumentRangeOutOfBounds(t *testing.T) {
	instruments, rules := loadTestTables(t)
	g := score.Gongan{
		Type: score.GonganRegular,
		Beats: []score.Beat{
			{Measures: map[score.Position][]score.Measure{
				"polos": {{Position: "polos", Notes: []score.Note{
					{Pitch: score.PitchDing, Octave: 5, Duration: score.NewFrac(1, 1)},
				}, Pass: score.DefaultPass()}},
			}},
		},
	}
	sc := score.Score{Gongans: []score.Gongan{g}}

	_, c := Validate("test.not", sc, instruments, rules, "gangsa")
	found := false
	for _, e := range c.Errors() {
		if e.Code == "NoteOutOfRange" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a NoteOutOfRange error, got %v", c.Errors())
	}
}
