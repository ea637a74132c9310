package pattern

import (
	"fmt"

	"github.com/gamelan-notation/notation2midi/internal/score"
	"github.com/gamelan-notation/notation2midi/internal/tables"
)

// expandTremolo implements fixed-frequency tremolo expansion
// "Tremolo (fixed frequency)"): notes_per_quarternote * base_notes_per_beat
// * duration evenly spaced repetitions of the base pitch, summing to the
// original note's duration.
func expandTremolo(n score.Note, settings score.ProcessSettings) []score.Note {
	factor := settings.NotesPerQuarterNote * settings.BaseNotesPerBeat
	if factor <= 0 {
		factor = 1
	}
	count := n.Duration.MulInt(int64(factor)).Int()
	if count <= 0 {
		count = 1
	}
	perNote := n.Duration.Mul(score.NewFrac(1, int64(count)))

	out := make([]score.Note, count)
	for i := 0; i < count; i++ {
		rep := n
		rep.Duration = perNote
		rep.RestAfter = score.Zero()
		rep.Modifiers = nil
		out[i] = rep
	}
	out[count-1].RestAfter = n.RestAfter
	return out
}

// expandAcceleratingSingle implements the one-base-note case of
// "Accelerating tremolo": emit the note once per pattern
// entry, scaled so the total matches the base note's duration.
func expandAcceleratingSingle(n score.Note, settings score.ProcessSettings) ([]score.Note, error) {
	pattern, velocities, err := accelTables(settings)
	if err != nil {
		return nil, err
	}
	durations := scalePattern(pattern, n.Duration)

	out := make([]score.Note, len(pattern))
	for i := range pattern {
		rep := n
		rep.Duration = durations[i]
		rep.RestAfter = score.Zero()
		rep.Modifiers = nil
		rep.Velocity = velocities[i]
		out[i] = rep
	}
	out[len(out)-1].RestAfter = n.RestAfter
	return out, nil
}

// expandAcceleratingPair implements the two-base-note case: alternate
// N1, N2, N1, N2, ... for the full pattern length, which must be even so
// the sequence ends on N2.
func expandAcceleratingPair(n1, n2 score.Note, settings score.ProcessSettings) ([]score.Note, error) {
	pattern, velocities, err := accelTables(settings)
	if err != nil {
		return nil, err
	}
	if len(pattern)%2 != 0 {
		return nil, fmt.Errorf("accelerating tremolo pattern length must be even to end on the second note, got %d", len(pattern))
	}
	total := n1.Duration.Add(n2.Duration)
	durations := scalePattern(pattern, total)

	out := make([]score.Note, len(pattern))
	for i := range pattern {
		base := n1
		if i%2 == 1 {
			base = n2
		}
		rep := base
		rep.Duration = durations[i]
		rep.RestAfter = score.Zero()
		rep.Modifiers = nil
		rep.Velocity = velocities[i]
		out[i] = rep
	}
	out[len(out)-1].RestAfter = n2.RestAfter
	return out, nil
}

func accelTables(settings score.ProcessSettings) ([]int, []uint8, error) {
	pattern := settings.AcceleratingPattern
	velocities := settings.AcceleratingVelocity
	if len(pattern) == 0 || len(velocities) == 0 {
		return nil, nil, fmt.Errorf("accelerating tremolo tables are not configured")
	}
	if len(pattern) != len(velocities) {
		return nil, nil, fmt.Errorf("accelerating_pattern and accelerating_velocity must be equal length, got %d and %d", len(pattern), len(velocities))
	}
	if len(pattern)%2 != 0 {
		return nil, nil, fmt.Errorf("accelerating_pattern must have even length, got %d", len(pattern))
	}
	return pattern, velocities, nil
}

// scalePattern distributes total across pattern's relative tick weights.
func scalePattern(pattern []int, total score.Frac) []score.Frac {
	sum := int64(0)
	for _, p := range pattern {
		sum += int64(p)
	}
	out := make([]score.Frac, len(pattern))
	for i, p := range pattern {
		out[i] = total.Mul(score.NewFrac(int64(p), sum))
	}
	return out
}

// expandNorot follows the same pattern-elaboration contract as tremolo: it
// alternates the note with its kempyung neighbor at tremolo subdivision,
// falling back to a same-pitch tremolo when the position has no kempyung
// pairing.
func expandNorot(n score.Note, settings score.ProcessSettings, rules tables.GroupRules) []score.Note {
	neighbor, ok := rules.KempyungEquivalent(score.PitchOctave{Pitch: n.Pitch, Octave: n.Octave})
	if !ok {
		return expandTremolo(n, settings)
	}
	factor := settings.NotesPerQuarterNote * settings.BaseNotesPerBeat
	if factor <= 0 {
		factor = 1
	}
	count := n.Duration.MulInt(int64(factor)).Int()
	if count <= 0 {
		count = 1
	}
	perNote := n.Duration.Mul(score.NewFrac(1, int64(count)))

	out := make([]score.Note, count)
	for i := 0; i < count; i++ {
		rep := n
		rep.Duration = perNote
		rep.RestAfter = score.Zero()
		rep.Modifiers = nil
		if i%2 == 1 {
			rep.Pitch, rep.Octave = neighbor.Pitch, neighbor.Octave
		}
		out[i] = rep
	}
	out[count-1].RestAfter = n.RestAfter
	return out
}
