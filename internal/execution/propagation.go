package execution

import (
	"golang.org/x/exp/maps"

	"github.com/gamelan-notation/notation2midi/internal/score"
)

// tempoTracker carries the effective tempo across steps and snapshots the
// ramp-start tempo the first time each TEMPO directive's span is entered,
// so a linear ramp always interpolates from the value in effect just
// before the directive took hold.
type tempoTracker struct {
	current   int
	snapshots map[[2]int]int // (gongan index, directive index) -> tempo at first_beat
}

func newTempoTracker() *tempoTracker {
	return &tempoTracker{current: 0, snapshots: map[[2]int]int{}}
}

// effective returns the tempo in force at (gonganIndex, beat, pass), applying
// every TEMPO directive on the gongan that matches this step; when more than
// one matches, the last one declared on the gongan wins.
func (t *tempoTracker) effective(g score.Gongan, gonganIndex, beat, pass int) int {
	winner := -1
	for i := len(g.Tempo) - 1; i >= 0; i-- {
		if directiveMatches(g.Tempo[i].FirstBeat, g.Tempo[i].BeatCount, g.Tempo[i].Passes, beat, pass) {
			winner = i
			break
		}
	}
	if winner < 0 {
		return t.current
	}
	d := g.Tempo[winner]
	key := [2]int{gonganIndex, winner}
	if beat == d.FirstBeat {
		if _, seen := t.snapshots[key]; !seen {
			t.snapshots[key] = t.current
		}
	}
	start, ok := t.snapshots[key]
	if !ok {
		start = t.current
	}
	t.current = interpolate(start, d.Value, d.FirstBeat, d.BeatCount, beat)
	return t.current
}

// dynamicsTracker mirrors tempoTracker per position.
type dynamicsTracker struct {
	current   map[score.Position]uint8
	snapshots map[[3]int]uint8 // (gongan index, directive index, position hash) -> velocity at first_beat
	posIndex  map[score.Position]int
	nextIndex int
	table     map[string]uint8
}

func newDynamicsTracker(table map[string]uint8) *dynamicsTracker {
	return &dynamicsTracker{
		current:   map[score.Position]uint8{},
		snapshots: map[[3]int]uint8{},
		posIndex:  map[score.Position]int{},
		table:     table,
	}
}

func (t *dynamicsTracker) indexOf(p score.Position) int {
	if i, ok := t.posIndex[p]; ok {
		return i
	}
	i := t.nextIndex
	t.nextIndex++
	t.posIndex[p] = i
	return i
}

func (t *dynamicsTracker) effective(g score.Gongan, beat, pass int) map[score.Position]uint8 {
	out := maps.Clone(t.current)
	applied := map[score.Position]bool{}

	for i := len(g.Dynamics) - 1; i >= 0; i-- {
		d := g.Dynamics[i]
		if !directiveMatches(d.FirstBeat, d.BeatCount, d.Passes, beat, pass) {
			continue
		}
		target, ok := t.table[d.Value]
		if !ok {
			continue
		}
		positions := d.Positions
		if len(positions) == 0 {
			for p := range t.current {
				positions = append(positions, p)
			}
		}
		for _, p := range positions {
			if applied[p] {
				continue
			}
			applied[p] = true
			startKey := [3]int{t.indexOf(p), i, d.FirstBeat}
			if beat == d.FirstBeat {
				if _, seen := t.snapshots[startKey]; !seen {
					t.snapshots[startKey] = t.current[p]
				}
			}
			start, ok := t.snapshots[startKey]
			if !ok {
				start = t.current[p]
			}
			v := uint8(interpolate(int(start), int(target), d.FirstBeat, d.BeatCount, beat))
			t.current[p] = v
			out[p] = v
		}
	}
	return out
}

// directiveMatches reports whether a TEMPO/DYNAMICS-style directive applies
// to the given beat and pass.
func directiveMatches(firstBeat, beatCount int, passes score.PassSelector, beat, pass int) bool {
	if !passes.Matches(pass) {
		return false
	}
	if beatCount == 0 {
		return beat >= firstBeat
	}
	return beat >= firstBeat && beat <= firstBeat+beatCount-1
}

// interpolate implements the linear ramp from start (at firstBeat) to value
// (at firstBeat+beatCount-1); beats outside the span use the endpoints.
func interpolate(start, value, firstBeat, beatCount, beat int) int {
	if beatCount <= 1 {
		if beat >= firstBeat {
			return value
		}
		return start
	}
	lastBeat := firstBeat + beatCount - 1
	if beat <= firstBeat {
		return start
	}
	if beat >= lastBeat {
		return value
	}
	span := lastBeat - firstBeat
	t := beat - firstBeat
	return start + (value-start)*t/span
}
