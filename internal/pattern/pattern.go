// Package pattern implements stage 5: pattern elaboration. Shorthand
// modifiers (tremolo, accelerating tremolo, norot) are expanded into
// concrete note sequences, and shorthand instruments' beats are padded to
// the nominal beat length.
package pattern

import (
	"github.com/gamelan-notation/notation2midi/internal/errlog"
	"github.com/gamelan-notation/notation2midi/internal/score"
	"github.com/gamelan-notation/notation2midi/internal/tables"
)

// Elaborate is stage 5. rules supplies the kempyung table norot expansion
// reuses.
func Elaborate(file string, sc score.Score, groupRules tables.GroupRules) (score.Score, *errlog.Collector) {
	c := errlog.New("elaborate")
	out := sc.Clone()
	settings := out.Settings

	for gi := range out.Gongans {
		for bi := range out.Gongans[gi].Beats {
			beat := out.Gongans[gi].Beats[bi]
			nominal := nominalBeatLength(beat)

			for pos, variants := range beat.Measures {
				loc := errlog.Location{File: file, Gongan: gi + 1, Beat: bi + 1, Position: string(pos)}
				for vi, measure := range variants {
					expanded, err := expandNotes(measure.Notes, settings, groupRules)
					if err != nil {
						c.Add(errlog.KindStructural, "MalformedDirective", loc, "%v", err)
						continue
					}
					measure.Notes = expanded

					if settings.ShorthandPositions[pos] {
						measure.Notes = padToNominal(measure.Notes, nominal)
					}
					variants[vi] = measure
				}
				beat.Measures[pos] = variants
			}
			out.Gongans[gi].Beats[bi] = beat
		}
	}

	return out, c
}

// nominalBeatLength is the longest fully-specified measure in the beat;
// shorthand positions are padded out to match it.
func nominalBeatLength(beat score.Beat) score.Frac {
	longest := score.Zero()
	for _, variants := range beat.Measures {
		for _, m := range variants {
			if d := m.TotalDuration(); d.Cmp(longest) > 0 {
				longest = d
			}
		}
	}
	if longest.IsZero() {
		return score.One()
	}
	return longest
}

func expandNotes(notes []score.Note, settings score.ProcessSettings, rules tables.GroupRules) ([]score.Note, error) {
	var out []score.Note
	for i := 0; i < len(notes); i++ {
		n := notes[i]
		switch {
		case n.HasModifier(score.ModAcceleratingTremolo):
			if i+1 < len(notes) && notes[i+1].HasModifier(score.ModAcceleratingTremolo) {
				reps, err := expandAcceleratingPair(n, notes[i+1], settings)
				if err != nil {
					return nil, err
				}
				out = append(out, reps...)
				i++
				continue
			}
			reps, err := expandAcceleratingSingle(n, settings)
			if err != nil {
				return nil, err
			}
			out = append(out, reps...)
		case n.HasModifier(score.ModTremolo):
			out = append(out, expandTremolo(n, settings)...)
		case n.HasModifier(score.ModNorot):
			out = append(out, expandNorot(n, settings, rules)...)
		default:
			out = append(out, n)
		}
	}
	return out, nil
}

// padToNominal appends a rest or extends the last note's sustain to reach
// nominal, following the font-table rest_after convention: a note whose
// RestAfter is already non-zero gets a trailing rest; one with none gets
// its sustain extended.
func padToNominal(notes []score.Note, nominal score.Frac) []score.Note {
	if len(notes) == 0 {
		return []score.Note{score.Rest(nominal)}
	}
	total := score.Zero()
	for _, n := range notes {
		total = total.Add(n.TotalDuration())
	}
	diff := nominal.Add(total.Mul(score.NewFrac(-1, 1)))
	if diff.Cmp(score.Zero()) <= 0 {
		return notes
	}
	last := notes[len(notes)-1]
	if last.RestAfter.IsZero() && !last.IsRest() {
		last.Duration = last.Duration.Add(diff)
		notes[len(notes)-1] = last
		return notes
	}
	return append(notes, score.Rest(diff))
}
