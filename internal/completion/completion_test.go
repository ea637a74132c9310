package completion

import (
	"strings"
	"testing"

	"github.com/gamelan-notation/notation2midi/internal/score"
	"github.com/gamelan-notation/notation2midi/internal/tables"
)

const completionInstrumentsTSV = "instrument_group\tposition\tinstrument_type\trange\textended_range\n" +
	"gangsa\tpolos\tkantilan\tDING:0;DONG:0;DENG:0;DUNG:0;DANG:0\tDING:0;DONG:0;DENG:0;DUNG:0;DANG:0;DING:1\n" +
	"gangsa\tsangsih\tkantilan\tDING:0;DONG:0;DENG:0;DUNG:0;DANG:0\tDING:0;DONG:0;DENG:0;DUNG:0;DANG:0;DING:1\n"

func loadCompletionInstruments(t *testing.T) *tables.InstrumentsTable {
	t.Helper()
	it, errs := tables.LoadInstruments(strings.NewReader(completionInstrumentsTSV))
	for _, e := range errs {
		t.Fatalf("instruments: %v", e)
	}
	return it
}

func TestCompleteFillsEmptyMeasuresWithRests(t *testing.T) {
	instruments := loadCompletionInstruments(t)
	g := score.Gongan{
		Type: score.GonganRegular,
		Beats: []score.Beat{
			{Measures: map[score.Position][]score.Measure{
				"polos": {{Position: "polos", Notes: []score.Note{{Pitch: score.PitchDong, Duration: score.NewFrac(1, 1)}}, Pass: score.DefaultPass()}},
			}},
		},
	}
	sc := score.Score{Gongans: []score.Gongan{g}, Settings: score.ProcessSettings{InstrumentGroup: "gangsa"}}

	out, c := Complete("test.not", sc, instruments)
	if c.HasErrors() {
		t.Fatalf("unexpected errors: %v", c.Errors())
	}

	sangsih, ok := out.Gongans[0].Beats[0].Position("sangsih")
	if !ok {
		t.Fatalf("expected sangsih to be filled in")
	}
	if len(sangsih.Notes) != 1 || !sangsih.Notes[0].IsRest() {
		t.Errorf("expected sangsih to be filled with a single rest, got %+v", sangsih.Notes)
	}
	if sangsih.Notes[0].RestAfter.Cmp(score.NewFrac(1, 1)) != 0 {
		t.Errorf("filled rest should span the established beat length, got %s", sangsih.Notes[0].RestAfter)
	}
}

func TestCompleteOctavateOutOfRangeReportsStructuralError(t *testing.T) {
	instruments := loadCompletionInstruments(t)
	g := score.Gongan{
		Type: score.GonganRegular,
		Beats: []score.Beat{
			{Measures: map[score.Position][]score.Measure{
				"polos": {{Position: "polos", Notes: []score.Note{{Pitch: score.PitchDing, Octave: 1, Duration: score.NewFrac(1, 1)}}, Pass: score.DefaultPass()}},
			}},
		},
		Octavate: []score.OctavateDirective{
			{Instrument: "polos", Octaves: 1},
		},
	}
	sc := score.Score{Gongans: []score.Gongan{g}, Settings: score.ProcessSettings{InstrumentGroup: "gangsa"}}

	_, c := Complete("test.not", sc, instruments)
	found := false
	for _, e := range c.Errors() {
		if e.Code == "OctavateOutOfRange" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected an OctavateOutOfRange error, got %v", c.Errors())
	}
}

func TestCompleteKempliTogglesPerBeat(t *testing.T) {
	instruments := loadCompletionInstruments(t)
	g := score.Gongan{
		Type: score.GonganRegular,
		Beats: []score.Beat{
			{Measures: map[score.Position][]score.Measure{}},
			{Measures: map[score.Position][]score.Measure{}},
		},
		Kempli: []score.KempliDirective{
			{On: true, Beats: score.BeatSelector{Beats: []int{2}}},
		},
	}
	sc := score.Score{Gongans: []score.Gongan{g}, Settings: score.ProcessSettings{InstrumentGroup: "gangsa"}}

	out, c := Complete("test.not", sc, instruments)
	if c.HasErrors() {
		t.Fatalf("unexpected errors: %v", c.Errors())
	}
	if out.Gongans[0].Beats[0].KempliOn {
		t.Errorf("beat 1 should not have kempli on")
	}
	if !out.Gongans[0].Beats[1].KempliOn {
		t.Errorf("beat 2 should have kempli on")
	}
}

func TestCompletePartMarksFirstBeat(t *testing.T) {
	instruments := loadCompletionInstruments(t)
	g := score.Gongan{
		Type:  score.GonganRegular,
		Beats: []score.Beat{{Measures: map[score.Position][]score.Measure{}}},
		Part:  &score.PartDirective{Name: "pengawak"},
	}
	sc := score.Score{Gongans: []score.Gongan{g}, Settings: score.ProcessSettings{InstrumentGroup: "gangsa"}}

	out, _ := Complete("test.not", sc, instruments)
	if out.Gongans[0].Beats[0].Part != "pengawak" {
		t.Errorf("Part = %q, want pengawak", out.Gongans[0].Beats[0].Part)
	}
}
