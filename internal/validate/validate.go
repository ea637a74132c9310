// Package validate implements stage 7: score validation and autocorrection.
// It never mutates measures except for the one sanctioned autocorrection:
// replacing a mismatched sangsih note with its kempyung equivalent when
// autocorrect_kempyung is enabled.
package validate

import (
	"github.com/gamelan-notation/notation2midi/internal/errlog"
	"github.com/gamelan-notation/notation2midi/internal/score"
	"github.com/gamelan-notation/notation2midi/internal/tables"
)

// Validate is stage 7. instrumentGroup selects the rules used for the
// kempyung-pair check.
func Validate(file string, sc score.Score, instruments *tables.InstrumentsTable, rules *tables.RulesTable, instrumentGroup string) (score.Score, *errlog.Collector) {
	c := errlog.New("validate")
	out := sc.Clone()
	groupRules, _ := rules.Lookup(instrumentGroup)

	for gi := range out.Gongans {
		g := &out.Gongans[gi]
		if g.Type != score.GonganRegular {
			continue
		}
		ignoreScore := out.ValidationIgnoreScore
		ignoreGongan := gonganIgnore(*g)

		for bi := range g.Beats {
			beat := &g.Beats[bi]
			loc := errlog.Location{File: file, Gongan: gi + 1, Beat: bi + 1}

			checkBeatLength(beat, loc, ignoreScore, ignoreGongan, c)
			checkInstrumentRange(beat, loc, instruments, ignoreScore, ignoreGongan, c, out.Settings.DetailedValidationLogging)
		}

		checkStaveLength(*g, gi, file, ignoreScore, ignoreGongan, c)
		checkKempyung(g, gi, file, groupRules, ignoreScore, ignoreGongan, out.Settings.AutocorrectKempyung, c)
	}

	return out, c
}

func gonganIgnore(g score.Gongan) map[score.ValidationCheck]bool {
	out := map[score.ValidationCheck]bool{}
	for _, v := range g.Validation {
		if v.Beats.All {
			for k, on := range v.Ignore {
				if on {
					out[k] = true
				}
			}
		}
	}
	return out
}

func suppressed(check score.ValidationCheck, ignoreScore, ignoreGongan map[score.ValidationCheck]bool) bool {
	return ignoreScore[check] || ignoreGongan[check]
}

// checkBeatLength implements invariant I1: every bound position's measure
// in a beat must sum to the same total duration.
func checkBeatLength(beat *score.Beat, loc errlog.Location, ignoreScore, ignoreGongan map[score.ValidationCheck]bool, c *errlog.Collector) {
	if suppressed(score.CheckBeatLength, ignoreScore, ignoreGongan) {
		return
	}
	var expected score.Frac
	first := true
	for pos, variants := range beat.Measures {
		for _, m := range variants {
			d := m.TotalDuration()
			if first {
				expected = d
				first = false
				continue
			}
			if d.Cmp(expected) != 0 {
				c.Add(errlog.KindStructural, "BeatLengthMismatch", errlog.Location{File: loc.File, Gongan: loc.Gongan, Beat: loc.Beat, Position: string(pos)},
					"beat duration %s does not match expected %s", d, expected)
			}
		}
	}
	if first {
		c.Add(errlog.KindStructural, "BeatLengthMismatch", loc, "beat has no measures")
	}
}

// checkStaveLength requires every position to have the same number of beats
// within a gongan.
func checkStaveLength(g score.Gongan, gonganIndex int, file string, ignoreScore, ignoreGongan map[score.ValidationCheck]bool, c *errlog.Collector) {
	if suppressed(score.CheckStaveLength, ignoreScore, ignoreGongan) {
		return
	}
	loc := errlog.Location{File: file, Gongan: gonganIndex + 1}
	if len(g.Beats) == 0 {
		c.Add(errlog.KindStructural, "StaveLengthMismatch", loc, "gongan has no beats")
		return
	}
	counts := map[score.Position]int{}
	for _, beat := range g.Beats {
		for pos := range beat.Measures {
			counts[pos]++
		}
	}
	for pos, n := range counts {
		if n != len(g.Beats) {
			c.Add(errlog.KindStructural, "StaveLengthMismatch", errlog.Location{File: file, Gongan: gonganIndex + 1, Position: string(pos)},
				"position has %d beats, gongan has %d", n, len(g.Beats))
		}
	}
}

// checkInstrumentRange implements invariant I2: every note lies in its
// position's extended range.
func checkInstrumentRange(beat *score.Beat, loc errlog.Location, instruments *tables.InstrumentsTable, ignoreScore, ignoreGongan map[score.ValidationCheck]bool, c *errlog.Collector, detailed bool) {
	if suppressed(score.CheckInstrumentRange, ignoreScore, ignoreGongan) {
		return
	}
	for pos, variants := range beat.Measures {
		entry, ok := instruments.Lookup(pos)
		if !ok {
			continue
		}
		for _, m := range variants {
			for _, n := range m.Notes {
				if n.IsRest() {
					continue
				}
				po := score.PitchOctave{Pitch: n.Pitch, Octave: n.Octave}
				if !entry.InExtendedRange(po) {
					noteLoc := errlog.Location{File: loc.File, Gongan: loc.Gongan, Beat: loc.Beat, Position: string(pos)}
					c.Add(errlog.KindStructural, "NoteOutOfRange", noteLoc, "%s octave %d is outside %s's extended range", n.Pitch, n.Octave, pos)
				} else if detailed && !entry.InRange(po) {
					c.Warn(errlog.KindStructural, "NoteOutOfRange", errlog.Location{File: loc.File, Gongan: loc.Gongan, Beat: loc.Beat, Position: string(pos)},
						"%s octave %d is outside %s's nominal range but within extended range", n.Pitch, n.Octave, pos)
				}
			}
		}
	}
}

// checkKempyung implements the fourth structural check: for a declared
// polos/sangsih pair, each beat's sangsih note must be the kempyung
// equivalent of the polos note at the same index. When autocorrect_kempyung
// is on, the mismatch is silently repaired and reported as a warning,
// never an error.
func checkKempyung(g *score.Gongan, gonganIndex int, file string, rules tables.GroupRules, ignoreScore, ignoreGongan map[score.ValidationCheck]bool, autocorrect bool, c *errlog.Collector) {
	if suppressed(score.CheckKempyung, ignoreScore, ignoreGongan) {
		return
	}
	pairs := kempyungPairs(*g)
	for bi := range g.Beats {
		beat := &g.Beats[bi]
		for polosPos, sangsihPos := range pairs {
			polosVariants, ok1 := beat.Measures[polosPos]
			sangsihVariants, ok2 := beat.Measures[sangsihPos]
			if !ok1 || !ok2 {
				continue
			}
			loc := errlog.Location{File: file, Gongan: gonganIndex + 1, Beat: bi + 1, Position: string(sangsihPos)}
			for _, idx := range kempyungVariantPairs(polosVariants, sangsihVariants) {
				checkKempyungNotes(polosVariants[idx.polos], &sangsihVariants[idx.sangsih], loc, rules, autocorrect, c)
			}
			beat.Measures[sangsihPos] = sangsihVariants
		}
	}
}

// checkKempyungNotes runs the per-note kempyung comparison between one
// polos/sangsih measure-variant pair, autocorrecting sangsih in place when
// enabled.
func checkKempyungNotes(polos score.Measure, sangsih *score.Measure, loc errlog.Location, rules tables.GroupRules, autocorrect bool, c *errlog.Collector) {
	for i := range polos.Notes {
		if i >= len(sangsih.Notes) {
			break
		}
		pn := polos.Notes[i]
		sn := sangsih.Notes[i]
		if pn.IsRest() || sn.IsRest() {
			continue
		}
		expected, ok := rules.KempyungEquivalent(score.PitchOctave{Pitch: pn.Pitch, Octave: pn.Octave})
		if !ok {
			continue
		}
		if sn.Pitch == expected.Pitch && sn.Octave == expected.Octave {
			continue
		}
		if autocorrect {
			fixed := sn
			fixed.Pitch, fixed.Octave = expected.Pitch, expected.Octave
			sangsih.Notes[i] = fixed
			c.Warn(errlog.KindStructural, "KempyungMismatch", loc, "beat %d: corrected sangsih %s octave %d to kempyung equivalent %s octave %d", i+1, sn.Pitch, sn.Octave, expected.Pitch, expected.Octave)
			continue
		}
		c.Add(errlog.KindStructural, "KempyungMismatch", loc, "beat %d: sangsih %s octave %d is not the kempyung equivalent of polos %s octave %d", i+1, sn.Pitch, sn.Octave, pn.Pitch, pn.Octave)
	}
}

type kempyungVariantIndex struct{ polos, sangsih int }

// kempyungVariantPairs matches polos/sangsih measure-variant indices for
// the cross-check: index-wise when both positions carry the same number of
// variants, otherwise only their default (all-passes) variant, since a
// pass-restricted exception variant on one position has no guaranteed
// counterpart on the other.
func kempyungVariantPairs(polos, sangsih []score.Measure) []kempyungVariantIndex {
	if len(polos) == len(sangsih) {
		out := make([]kempyungVariantIndex, len(polos))
		for i := range polos {
			out[i] = kempyungVariantIndex{i, i}
		}
		return out
	}
	pi, pok := defaultVariantIndex(polos)
	si, sok := defaultVariantIndex(sangsih)
	if !pok || !sok {
		return nil
	}
	return []kempyungVariantIndex{{pi, si}}
}

func defaultVariantIndex(variants []score.Measure) (int, bool) {
	if len(variants) == 0 {
		return 0, false
	}
	for i, m := range variants {
		if m.Pass.All {
			return i, true
		}
	}
	return 0, true
}

// kempyungPairs derives which positions form a polos/sangsih pair in this
// gongan from AUTOKEMPYUNG directives naming exactly two positions.
func kempyungPairs(g score.Gongan) map[score.Position]score.Position {
	out := map[score.Position]score.Position{}
	for _, d := range g.Autokempyung {
		if !d.On || len(d.Positions) != 2 {
			continue
		}
		out[d.Positions[0]] = d.Positions[1]
	}
	return out
}
