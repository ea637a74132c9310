package binding

import (
	"strings"
	"testing"

	"github.com/gamelan-notation/notation2midi/internal/score"
	"github.com/gamelan-notation/notation2midi/internal/tables"
)

const bindInstrumentsTSV = "instrument_group\tposition\tinstrument_type\trange\textended_range\n" +
	"gangsa\tpolos\tkantilan\tDONG:0;DENG:0;DANG:0\tDONG:0;DENG:0;DANG:0;DONG:1\n" +
	"gangsa\tsangsih\tkantilan\tDONG:0;DENG:0;DANG:0\tDONG:0;DENG:0;DANG:0;DONG:1\n"

const bindTagsTSV = "tag\tpositions\n" +
	"gangsa\tpolos,sangsih\n" +
	"polos\tpolos\n"

const bindRulesTSV = "instrument_group\tkempyung_pairs\tshared_rules\n" +
	"gangsa\tDONG:0>DANG:0\tSAME_PITCH,KEMPYUNG\n"

func bindTables(t *testing.T) (*tables.InstrumentsTable, *tables.TagsTable, *tables.RulesTable) {
	t.Helper()
	instruments, errs := tables.LoadInstruments(strings.NewReader(bindInstrumentsTSV))
	for _, e := range errs {
		t.Fatalf("instruments: %v", e)
	}
	tags, errs := tables.LoadTags(strings.NewReader(bindTagsTSV))
	for _, e := range errs {
		t.Fatalf("tags: %v", e)
	}
	rules, errs := tables.LoadRules(strings.NewReader(bindRulesTSV))
	for _, e := range errs {
		t.Fatalf("rules: %v", e)
	}
	return instruments, tags, rules
}

func oneTagBeat(tag string, notes ...score.Note) score.Beat {
	return score.Beat{Measures: map[score.Position][]score.Measure{
		score.Position(tag): {{Position: score.Position(tag), Notes: notes}},
	}}
}

func TestBindSinglePositionTagPassesThrough(t *testing.T) {
	instruments, tags, rules := bindTables(t)
	sc := score.Score{Gongans: []score.Gongan{
		{Beats: []score.Beat{oneTagBeat("polos", score.Note{Pitch: score.PitchDong, Stroke: score.StrokeOpen, Duration: score.One()})}},
	}}

	out, c := Bind("test.not", sc, "gangsa", tags, instruments, rules)
	if c.HasErrors() {
		t.Fatalf("unexpected errors: %v", c.Errors())
	}
	m, ok := out.Gongans[0].Beats[0].Position("polos")
	if !ok {
		t.Fatalf("expected a polos measure")
	}
	if len(m.Notes) != 1 || m.Notes[0].Pitch != score.PitchDong {
		t.Errorf("notes = %+v, want DONG", m.Notes)
	}
}

func TestBindSharedTagSamePitchForBothPositions(t *testing.T) {
	instruments, tags, rules := bindTables(t)
	sc := score.Score{Gongans: []score.Gongan{
		{Beats: []score.Beat{oneTagBeat("gangsa", score.Note{Pitch: score.PitchDeng, Stroke: score.StrokeOpen, Duration: score.One()})}},
	}}

	out, c := Bind("test.not", sc, "gangsa", tags, instruments, rules)
	if c.HasErrors() {
		t.Fatalf("unexpected errors: %v", c.Errors())
	}
	polos, ok := out.Gongans[0].Beats[0].Position("polos")
	if !ok || polos.Notes[0].Pitch != score.PitchDeng {
		t.Errorf("polos = %+v, want DENG present", polos)
	}
	sangsih, ok := out.Gongans[0].Beats[0].Position("sangsih")
	if !ok || sangsih.Notes[0].Pitch != score.PitchDeng {
		t.Errorf("sangsih = %+v, want DENG present", sangsih)
	}
}

func TestBindSharedTagBindsBothPositionsWhenKempyungListed(t *testing.T) {
	instruments, tags, rules := bindTables(t)
	// DONG:0 is in range for both polos and sangsih directly, so the
	// SAME_PITCH transform applies to both even though KEMPYUNG is listed.
	sc := score.Score{Gongans: []score.Gongan{
		{Beats: []score.Beat{oneTagBeat("gangsa", score.Note{Pitch: score.PitchDong, Stroke: score.StrokeOpen, Duration: score.One()})}},
	}}

	out, c := Bind("test.not", sc, "gangsa", tags, instruments, rules)
	if c.HasErrors() {
		t.Fatalf("unexpected errors: %v", c.Errors())
	}
	// Both positions carry DONG in range, so SAME_PITCH wins for both; this
	// case mainly exercises that the resolver runs without error when the
	// transform list names KEMPYUNG explicitly.
	if _, ok := out.Gongans[0].Beats[0].Position("polos"); !ok {
		t.Errorf("expected a bound polos measure")
	}
	if _, ok := out.Gongans[0].Beats[0].Position("sangsih"); !ok {
		t.Errorf("expected a bound sangsih measure")
	}
}

func TestBindUnknownTagReportsError(t *testing.T) {
	instruments, tags, rules := bindTables(t)
	sc := score.Score{Gongans: []score.Gongan{
		{Beats: []score.Beat{oneTagBeat("nosuchtag", score.Note{Pitch: score.PitchDong, Duration: score.One()})}},
	}}

	_, c := Bind("test.not", sc, "gangsa", tags, instruments, rules)
	found := false
	for _, e := range c.Errors() {
		if e.Code == "UnknownTag" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected an UnknownTag error, got %v", c.Errors())
	}
}

func TestBindUnmappableSharedNotationFallsBackToRest(t *testing.T) {
	instruments, tags, rules := bindTables(t)
	// DUNG has no kempyung pair and is out of both positions' ranges, so no
	// transform in the list succeeds; Bind must fall back to a rest rather
	// than drop the beat's duration.
	sc := score.Score{Gongans: []score.Gongan{
		{Beats: []score.Beat{oneTagBeat("gangsa", score.Note{Pitch: score.PitchDung, Stroke: score.StrokeOpen, Duration: score.One()})}},
	}}

	out, c := Bind("test.not", sc, "gangsa", tags, instruments, rules)
	found := false
	for _, e := range c.Errors() {
		if e.Code == "UnmappableSharedNotation" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an UnmappableSharedNotation error, got %v", c.Errors())
	}
	for _, pos := range []score.Position{"polos", "sangsih"} {
		m, ok := out.Gongans[0].Beats[0].Position(pos)
		if !ok {
			t.Fatalf("expected a %s measure even on fallback", pos)
		}
		if len(m.Notes) != 1 || !m.Notes[0].IsRest() {
			t.Errorf("%s notes = %+v, want a single rest", pos, m.Notes)
		}
	}
}
