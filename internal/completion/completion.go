// Package completion implements stage 6: score completion. Every beat gains
// a measure for every position of the instrument group and every metadata
// directive attached during construction is materialized onto the score
// structure it governs.
package completion

import (
	"github.com/gamelan-notation/notation2midi/internal/errlog"
	"github.com/gamelan-notation/notation2midi/internal/score"
	"github.com/gamelan-notation/notation2midi/internal/tables"
)

// Complete is stage 6.
func Complete(file string, sc score.Score, instruments *tables.InstrumentsTable) (score.Score, *errlog.Collector) {
	c := errlog.New("complete")
	out := sc.Clone()

	positions := instruments.PositionsInGroup(out.Settings.InstrumentGroup)

	fillEmptyMeasures(&out, positions)

	if out.Settings.BeatAtEnd {
		rewriteBeatAtEnd(&out, positions)
		for gi := range out.Gongans {
			out.Gongans[gi].BeatAtEnd = true
		}
	}

	for gi := range out.Gongans {
		g := &out.Gongans[gi]
		loc := errlog.Location{File: file, Gongan: gi + 1}

		for _, oct := range g.Octavate {
			applyOctavate(&out, gi, oct, instruments, c, loc)
		}
		for _, sup := range g.Suppress {
			applySuppress(g, sup)
		}
		for _, kem := range g.Kempli {
			applyKempli(&out, gi, kem)
		}
		if g.Part != nil && len(g.Beats) > 0 {
			g.Beats[0].Part = g.Part.Name
		}
	}

	return out, c
}

// fillEmptyMeasures gives every position of the instrument group a measure
// in every beat, defaulting to a rest spanning the beat's established
// length.
func fillEmptyMeasures(sc *score.Score, positions []score.Position) {
	for gi := range sc.Gongans {
		for bi := range sc.Gongans[gi].Beats {
			beat := &sc.Gongans[gi].Beats[bi]
			length := beatLength(*beat)
			for _, p := range positions {
				if _, ok := beat.Measures[p]; ok {
					continue
				}
				if beat.Measures == nil {
					beat.Measures = map[score.Position][]score.Measure{}
				}
				beat.Measures[p] = []score.Measure{{
					Position: p,
					Notes:    []score.Note{score.Rest(length)},
					Pass:     score.DefaultPass(),
				}}
			}
		}
	}
}

// beatLength is the total duration already established by the beat's bound
// measures, falling back to one base note if the beat is entirely empty.
func beatLength(b score.Beat) score.Frac {
	longest := score.Zero()
	for _, variants := range b.Measures {
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

// rewriteBeatAtEnd rotates every position's notes right by one beat across
// the whole score, so the gong stroke written at the end of a gongan's
// staves ends up on the first beat of the following gongan. Grounded on the
// original implementation's _move_beat_to_start: the trailing one-base-note
// span of each beat is carried forward into the next beat's start.
func rewriteBeatAtEnd(sc *score.Score, positions []score.Position) {
	type coord struct{ gi, bi int }
	var flat []coord
	for gi := range sc.Gongans {
		for bi := range sc.Gongans[gi].Beats {
			flat = append(flat, coord{gi, bi})
		}
	}
	if len(flat) == 0 {
		return
	}

	last := sc.Gongans[flat[len(flat)-1].gi]
	if len(last.Beats) > 0 {
		trailing := score.Gongan{Type: last.Type, Beats: []score.Beat{{Measures: map[score.Position][]score.Measure{}}}}
		sc.Gongans = append(sc.Gongans, trailing)
		flat = append(flat, coord{len(sc.Gongans) - 1, 0})
	}

	for _, p := range positions {
		carry := []score.Note{}
		for _, cd := range flat {
			beat := &sc.Gongans[cd.gi].Beats[cd.bi]
			variants, ok := beat.Measures[p]
			if !ok || len(variants) == 0 {
				continue
			}
			// Only the position's default (all-passes) stream is rotated;
			// pass-restricted exception variants at the same position pass
			// through untouched, since there is no single lock-step ordering
			// across gongan boundaries for more than one concurrent stream.
			vi := primaryVariantIndex(variants)
			m := variants[vi]
			notes := m.Notes
			toCarry, remaining := splitTrailingOneUnit(notes)
			m.Notes = append(append([]score.Note{}, carry...), remaining...)
			if len(m.Notes) == 0 {
				m.Notes = []score.Note{score.Rest(score.Zero())}
			}
			variants[vi] = m
			carry = toCarry
		}
	}
}

// primaryVariantIndex picks the all-passes variant of a position's measure
// list, or its first entry when every variant is pass-restricted.
func primaryVariantIndex(variants []score.Measure) int {
	for i, m := range variants {
		if m.Pass.All {
			return i
		}
	}
	return 0
}

// splitTrailingOneUnit peels notes off the end of notes, accumulating until
// their total duration reaches one base note, and returns (carried,
// remaining) with carried in original order.
func splitTrailingOneUnit(notes []score.Note) (carried, remaining []score.Note) {
	total := score.Zero()
	i := len(notes)
	for i > 0 && total.Cmp(score.One()) < 0 {
		i--
		total = total.Add(notes[i].TotalDuration())
	}
	return append([]score.Note{}, notes[i:]...), append([]score.Note{}, notes[:i]...)
}

// applyOctavate shifts every note of the named instrument by the given
// signed octave delta, within the scope's gongans, reporting
// OctavateOutOfRange when a shifted note leaves the position's extended
// range.
func applyOctavate(sc *score.Score, gonganIndex int, d score.OctavateDirective, instruments *tables.InstrumentsTable, c *errlog.Collector, loc errlog.Location) {
	entry, ok := instruments.Lookup(d.Instrument)
	if !ok {
		c.Add(errlog.KindResolution, "UnknownPosition", loc, "OCTAVATE: position %q has no instruments-table entry", d.Instrument)
		return
	}

	gongans := []int{gonganIndex}
	if d.ScopeScore {
		gongans = make([]int, len(sc.Gongans))
		for i := range sc.Gongans {
			gongans[i] = i
		}
	}

	for _, gi := range gongans {
		g := &sc.Gongans[gi]
		for bi := range g.Beats {
			beat := &g.Beats[bi]
			variants, ok := beat.Measures[d.Instrument]
			if !ok {
				continue
			}
			for vi, m := range variants {
				notes := make([]score.Note, len(m.Notes))
				for ni, n := range m.Notes {
					if n.IsRest() {
						notes[ni] = n
						continue
					}
					shifted := n
					shifted.Octave += d.Octaves
					po := score.PitchOctave{Pitch: shifted.Pitch, Octave: shifted.Octave}
					if !entry.InExtendedRange(po) {
						c.Add(errlog.KindStructural, "OctavateOutOfRange",
							errlog.Location{File: loc.File, Gongan: gi + 1, Beat: bi + 1, Position: string(d.Instrument)},
							"OCTAVATE: %s octave %d shifted by %d leaves the extended range", n.Pitch, n.Octave, d.Octaves)
						notes[ni] = n
						continue
					}
					notes[ni] = shifted
				}
				m.Notes = notes
				variants[vi] = m
			}
			beat.Measures[d.Instrument] = variants
		}
	}
}

// applySuppress marks matching measures silent for MIDI emission without
// discarding their notation.
func applySuppress(g *score.Gongan, d score.SuppressDirective) {
	for bi := range g.Beats {
		if !d.Beats.Matches(bi + 1) {
			continue
		}
		beat := &g.Beats[bi]
		for _, p := range d.Positions {
			variants, ok := beat.Measures[p]
			if !ok {
				continue
			}
			for vi, m := range variants {
				if !d.Passes.All && !d.Passes.Matches(passOf(m)) {
					continue
				}
				m.Suppress = true
				variants[vi] = m
			}
			beat.Measures[p] = variants
		}
	}
}

func passOf(m score.Measure) int {
	if m.Pass.All {
		return 1
	}
	return m.Pass.From
}

// applyKempli turns the implicit kempli track on/off for the named beats.
func applyKempli(sc *score.Score, gonganIndex int, d score.KempliDirective) {
	gongans := []int{gonganIndex}
	if d.ScopeScore {
		gongans = make([]int, len(sc.Gongans))
		for i := range sc.Gongans {
			gongans[i] = i
		}
	}
	for _, gi := range gongans {
		g := &sc.Gongans[gi]
		for bi := range g.Beats {
			if d.Beats.Matches(bi + 1) {
				g.Beats[bi].KempliOn = d.On
			}
		}
	}
}
