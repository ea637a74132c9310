package binding

import (
	"github.com/gamelan-notation/notation2midi/internal/errlog"
	"github.com/gamelan-notation/notation2midi/internal/score"
	"github.com/gamelan-notation/notation2midi/internal/tables"
)

// Bind is stage 4: it resolves each tag-keyed measure to one or more
// concrete positions via the tag-to-positions table, running the
// shared-notation rules engine whenever a tag names more than one position.
func Bind(file string, sc score.Score, instrumentGroup string, tags *tables.TagsTable, instruments *tables.InstrumentsTable, rules *tables.RulesTable) (score.Score, *errlog.Collector) {
	c := errlog.New("bind")
	out := sc.Clone()

	groupRules, _ := rules.Lookup(instrumentGroup)

	for gi := range out.Gongans {
		for bi := range out.Gongans[gi].Beats {
			beat := out.Gongans[gi].Beats[bi]
			resolved := map[score.Position][]score.Measure{}

			for tag, variants := range beat.Measures {
				loc := errlog.Location{File: file, Gongan: gi + 1, Beat: bi + 1, Position: string(tag)}
				positions, ok := tags.Lookup(string(tag))
				if !ok {
					c.Add(errlog.KindResolution, "UnknownTag", loc, "tag %q is not in the tag-to-positions table", tag)
					continue
				}

				for _, measure := range variants {
					if len(positions) == 1 {
						m := measure
						m.Position = positions[0]
						resolved[positions[0]] = append(resolved[positions[0]], m)
						continue
					}

					for _, target := range positions {
						targetEntry, ok := instruments.Lookup(target)
						if !ok {
							c.Add(errlog.KindResolution, "UnknownPosition", loc, "position %q has no instruments-table entry", target)
							continue
						}
						bound, ok := resolveSharedNotation(measure, targetEntry, groupRules)
						if !ok {
							c.Add(errlog.KindResolution, "UnmappableSharedNotation", loc, "tag %q has no valid transform for position %q", tag, target)
							bound = score.Measure{
								Position: target,
								Notes:    []score.Note{score.Rest(measure.TotalDuration())},
								Pass:     measure.Pass,
							}
						}
						bound.Position = target
						bound.Suppress = measure.Suppress
						resolved[target] = append(resolved[target], bound)
					}
				}
			}

			out.Gongans[gi].Beats[bi].Measures = resolved
		}
	}

	return out, c
}

// resolveSharedNotation applies the ordered transform list for the target
// position, first success wins.
func resolveSharedNotation(measure score.Measure, target tables.InstrumentEntry, rules tables.GroupRules) (score.Measure, bool) {
	transforms := rules.SharedRules
	if len(transforms) == 0 {
		transforms = []tables.Transform{tables.TransformSamePitch, tables.TransformSamePitchExtendedRange, tables.TransformKempyung}
	}
	for _, t := range transforms {
		switch t {
		case tables.TransformSamePitch:
			if m, ok := tryRangeMatch(measure, target, false); ok {
				return m, true
			}
		case tables.TransformSamePitchExtendedRange:
			if m, ok := tryRangeMatch(measure, target, true); ok {
				return m, true
			}
		case tables.TransformKempyung:
			if m, ok := tryKempyung(measure, target, rules); ok {
				return m, true
			}
		}
	}
	return score.Measure{}, false
}

// tryRangeMatch implements SAME_PITCH / SAME_PITCH_EXTENDED_RANGE: every
// note must already lie in (or be octave-adjustable into) the target's
// range.
func tryRangeMatch(measure score.Measure, target tables.InstrumentEntry, extended bool) (score.Measure, bool) {
	inRange := target.InRange
	if extended {
		inRange = target.InExtendedRange
	}
	notes := make([]score.Note, len(measure.Notes))
	for i, n := range measure.Notes {
		if n.IsRest() {
			notes[i] = n
			continue
		}
		po := score.PitchOctave{Pitch: n.Pitch, Octave: n.Octave}
		switch {
		case inRange(po):
			notes[i] = n
		case inRange(score.PitchOctave{Pitch: n.Pitch, Octave: n.Octave + 1}):
			n.Octave++
			notes[i] = n
		case inRange(score.PitchOctave{Pitch: n.Pitch, Octave: n.Octave - 1}):
			n.Octave--
			notes[i] = n
		default:
			return score.Measure{}, false
		}
	}
	out := measure
	out.Notes = notes
	return out, true
}

// tryKempyung implements KEMPYUNG: replace every note's pitch/octave with
// its kempyung equivalent, then require the result to lie in the target's
// nominal range.
func tryKempyung(measure score.Measure, target tables.InstrumentEntry, rules tables.GroupRules) (score.Measure, bool) {
	notes := make([]score.Note, len(measure.Notes))
	for i, n := range measure.Notes {
		if n.IsRest() {
			notes[i] = n
			continue
		}
		eq, ok := rules.KempyungEquivalent(score.PitchOctave{Pitch: n.Pitch, Octave: n.Octave})
		if !ok {
			return score.Measure{}, false
		}
		if !target.InRange(eq) {
			return score.Measure{}, false
		}
		n.Pitch, n.Octave = eq.Pitch, eq.Octave
		notes[i] = n
	}
	out := measure
	out.Notes = notes
	return out, true
}
