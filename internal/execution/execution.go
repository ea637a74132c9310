// Package execution implements stage 8: execution linearization. It walks
// the score in notational order, resolving GOTO/REPEAT/SEQUENCE control
// flow into a flat, ordered Execution, and propagates tempo and dynamics
// along the way.
package execution

import (
	"github.com/gamelan-notation/notation2midi/internal/errlog"
	"github.com/gamelan-notation/notation2midi/internal/score"
)

const maxSteps = 200000

// Linearize is stage 8.
func Linearize(file string, sc score.Score) (score.Execution, *errlog.Collector) {
	c := errlog.New("execution")
	var exec score.Execution

	if len(sc.Gongans) == 0 {
		return exec, c
	}

	order, err := gonganOrder(sc)
	if err != nil {
		c.Add(errlog.KindExecution, "GotoTargetInUnbound", errlog.Location{File: file}, "%v", err)
		return exec, c
	}

	next := nextGonganFunc(order)

	visitCount := map[[2]int]int{}
	tempoState := newTempoTracker()
	dynState := newDynamicsTracker(sc.Settings.DynamicsMap)

	activeRepeatGongan := -1
	activeRepeatRemaining := 0

	g, b := order[0], 0
	var lastKey [3]int
	haveLast := false

	for step := 0; step < maxSteps; step++ {
		if g < 0 || g >= len(sc.Gongans) {
			break
		}
		gongan := sc.Gongans[g]
		if b < 0 || b >= len(gongan.Beats) {
			break
		}

		key := [2]int{g, b}
		visitCount[key]++
		pass := visitCount[key]

		triple := [3]int{g, b, pass}
		if haveLast && lastKey == triple {
			c.Add(errlog.KindExecution, "DivergentFlow", errlog.Location{File: file, Gongan: g + 1, Beat: b + 1}, "beat re-emitted with the same pass with no intervening progress")
			break
		}
		lastKey = triple
		haveLast = true

		tempo := tempoState.effective(gongan, g, b+1, pass)
		velocity := dynState.effective(gongan, b+1, pass)

		es := score.ExecutionStep{
			Gongan:   g + 1,
			Beat:     b + 1,
			Pass:     pass,
			TempoBPM: tempo,
			Velocity: velocity,
		}
		if gongan.Part != nil && b == 0 {
			es.Part = gongan.Part.Name
		}
		if b == len(gongan.Beats)-1 {
			for _, w := range gongan.Wait {
				if w.Passes.Matches(pass) {
					es.WaitAfter += w.Seconds
				}
			}
		}
		exec.Steps = append(exec.Steps, es)

		if activeRepeatGongan != g {
			activeRepeatGongan = -1
			activeRepeatRemaining = 0
			if gongan.Repeat != nil {
				activeRepeatGongan = g
				activeRepeatRemaining = gongan.Repeat.Count - 1
			}
		}

		jumped := false
		for _, gt := range gongan.Goto {
			fromBeat := gt.FromBeat
			if fromBeat < 0 {
				fromBeat = len(gongan.Beats)
			}
			if fromBeat != b+1 {
				continue
			}
			if !gt.Passes.Matches(pass) {
				continue
			}
			target, ok := sc.Labels[gt.Label]
			if !ok {
				c.Add(errlog.KindResolution, "UndefinedLabelReference", errlog.Location{File: file, Gongan: g + 1, Beat: b + 1}, "GOTO: undefined label %q", gt.Label)
				return exec, c
			}
			g, b = target.Gongan, target.Beat
			jumped = true
			break
		}
		if jumped {
			continue
		}

		if b == len(gongan.Beats)-1 {
			if activeRepeatGongan == g && activeRepeatRemaining > 0 {
				activeRepeatRemaining--
				b = 0
				continue
			}
			ng := next(g)
			if ng < 0 {
				break
			}
			g, b = ng, 0
			continue
		}
		b++
	}

	return exec, c
}

// gonganOrder resolves the SEQUENCE directive (if any) into a gongan-index
// ordering; an empty Sequence means the default forward walk.
func gonganOrder(sc score.Score) ([]int, error) {
	if len(sc.Sequence) == 0 {
		order := make([]int, len(sc.Gongans))
		for i := range order {
			order[i] = i
		}
		return order, nil
	}
	order := make([]int, 0, len(sc.Sequence))
	for _, label := range sc.Sequence {
		ref, ok := sc.Labels[label]
		if !ok {
			return nil, errUndefinedSequenceLabel(label)
		}
		order = append(order, ref.Gongan)
	}
	return order, nil
}

type errUndefinedSequenceLabel string

func (e errUndefinedSequenceLabel) Error() string {
	return "SEQUENCE: undefined label " + string(e)
}

// nextGonganFunc builds a lookup from a gongan index to the next gongan
// index in the resolved order, or -1 at the end.
func nextGonganFunc(order []int) func(int) int {
	pos := map[int]int{}
	for i, g := range order {
		pos[g] = i
	}
	return func(g int) int {
		i, ok := pos[g]
		if !ok || i+1 >= len(order) {
			return -1
		}
		return order[i+1]
	}
}
