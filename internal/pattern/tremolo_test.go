package pattern

import (
	"testing"

	"github.com/gamelan-notation/notation2midi/internal/score"
	"github.com/gamelan-notation/notation2midi/internal/tables"
)

func testSettings() score.ProcessSettings {
	return score.ProcessSettings{
		NotesPerQuarterNote:  4,
		BaseNotesPerBeat:     1,
		AcceleratingPattern:  []int{1, 1, 1, 1},
		AcceleratingVelocity: []uint8{40, 60, 80, 100},
	}
}

func TestExpandTremoloSumsToOriginalDuration(t *testing.T) {
	n := score.Note{Pitch: score.PitchDong, Duration: score.NewFrac(1, 1), RestAfter: score.NewFrac(1, 4)}
	out := expandTremolo(n, testSettings())

	if len(out) != 4 {
		t.Fatalf("expected 4 repetitions, got %d", len(out))
	}
	total := score.Zero()
	for _, rep := range out {
		total = total.Add(rep.TotalDuration())
	}
	want := n.TotalDuration()
	if total.Cmp(want) != 0 {
		t.Errorf("expanded total = %s, want %s", total, want)
	}
	if out[len(out)-1].RestAfter.Cmp(n.RestAfter) != 0 {
		t.Errorf("only the final repetition should carry the trailing rest")
	}
	for _, rep := range out[:len(out)-1] {
		if !rep.RestAfter.IsZero() {
			t.Errorf("non-final repetition should have no rest")
		}
	}
}

func TestExpandAcceleratingSingleScalesProportionally(t *testing.T) {
	n := score.Note{Pitch: score.PitchDing, Duration: score.NewFrac(1, 1)}
	out, err := expandAcceleratingSingle(n, testSettings())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 4 {
		t.Fatalf("expected 4 notes, got %d", len(out))
	}
	total := score.Zero()
	for i, rep := range out {
		total = total.Add(rep.Duration)
		if rep.Velocity != testSettings().AcceleratingVelocity[i] {
			t.Errorf("note %d velocity = %d, want %d", i, rep.Velocity, testSettings().AcceleratingVelocity[i])
		}
	}
	if total.Cmp(n.Duration) != 0 {
		t.Errorf("scaled durations sum to %s, want %s", total, n.Duration)
	}
}

func TestExpandAcceleratingPairAlternatesAndEndsOnSecond(t *testing.T) {
	n1 := score.Note{Pitch: score.PitchDing, Duration: score.NewFrac(1, 2)}
	n2 := score.Note{Pitch: score.PitchDong, Duration: score.NewFrac(1, 2), RestAfter: score.NewFrac(1, 4)}
	out, err := expandAcceleratingPair(n1, n2, testSettings())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 4 {
		t.Fatalf("expected 4 notes, got %d", len(out))
	}
	for i, rep := range out {
		wantPitch := n1.Pitch
		if i%2 == 1 {
			wantPitch = n2.Pitch
		}
		if rep.Pitch != wantPitch {
			t.Errorf("note %d pitch = %s, want %s", i, rep.Pitch, wantPitch)
		}
	}
	if out[len(out)-1].RestAfter.Cmp(n2.RestAfter) != 0 {
		t.Errorf("trailing rest should come from the second base note")
	}
}

func TestExpandAcceleratingPairRejectsOddPattern(t *testing.T) {
	settings := testSettings()
	settings.AcceleratingPattern = []int{1, 1, 1}
	settings.AcceleratingVelocity = []uint8{1, 2, 3}
	_, err := expandAcceleratingPair(score.Note{}, score.Note{}, settings)
	if err == nil {
		t.Fatalf("expected an error for an odd-length pattern")
	}
}

func TestExpandNorotAlternatesWithKempyungNeighbor(t *testing.T) {
	n := score.Note{Pitch: score.PitchDong, Octave: 0, Duration: score.NewFrac(1, 1)}
	rules := tables.GroupRules{
		Kempyung: map[score.PitchOctave]score.PitchOctave{
			{Pitch: score.PitchDong, Octave: 0}: {Pitch: score.PitchDang, Octave: 0},
		},
	}
	out := expandNorot(n, testSettings(), rules)
	if len(out) != 4 {
		t.Fatalf("expected 4 notes, got %d", len(out))
	}
	for i, rep := range out {
		if i%2 == 0 {
			if rep.Pitch != score.PitchDong {
				t.Errorf("note %d = %s, want base pitch DONG", i, rep.Pitch)
			}
		} else if rep.Pitch != score.PitchDang {
			t.Errorf("note %d = %s, want kempyung neighbor DANG", i, rep.Pitch)
		}
	}
}

func TestExpandNorotFallsBackToTremoloWithoutKempyungEntry(t *testing.T) {
	n := score.Note{Pitch: score.PitchDeng, Octave: 0, Duration: score.NewFrac(1, 1)}
	out := expandNorot(n, testSettings(), tables.GroupRules{Kempyung: map[score.PitchOctave]score.PitchOctave{}})
	for _, rep := range out {
		if rep.Pitch != score.PitchDeng {
			t.Errorf("expected fallback tremolo to stay on the base pitch, got %s", rep.Pitch)
		}
	}
}
