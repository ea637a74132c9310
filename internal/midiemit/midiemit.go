// Package midiemit implements stage 9: MIDI emission. It
// walks the linearized execution once per position, writing NOTE_ON/NOTE_OFF
// pairs with deltas derived from each note's duration and rest_after, plus a
// track 0 carrying tempo and marker meta-events.
package midiemit

import (
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/gamelan-notation/notation2midi/internal/errlog"
	"github.com/gamelan-notation/notation2midi/internal/score"
	"github.com/gamelan-notation/notation2midi/internal/tables"
)

// releaseTailTicks extends the last sounding note of a non-looping piece by
// a natural-release tail.
const releaseTailTicks = 12

// Emit is stage 9. instrumentGroup, instrumentType-per-position and the
// midinotes table together resolve each note to a concrete MIDI key and
// program, following the fallback rules in tables.MIDINotesTable.
func Emit(file string, sc score.Score, exec score.Execution, instruments *tables.InstrumentsTable, midinotes *tables.MIDINotesTable) (*smf.SMF, *errlog.Collector) {
	c := errlog.New("midiemit")
	settings := sc.Settings

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(settings.PPQ)

	positions := instruments.PositionsInGroup(settings.InstrumentGroup)

	track0 := buildTrack0(sc, exec, settings, c, file)
	s.Add(track0)

	for posIdx, pos := range positions {
		entry, ok := instruments.Lookup(pos)
		if !ok {
			c.Add(errlog.KindResolution, "UnknownPosition", errlog.Location{File: file, Position: string(pos)}, "position has no instruments-table entry")
			continue
		}
		track, err := buildPositionTrack(sc, exec, pos, posIdx, entry, settings, midinotes)
		if err != nil {
			c.Add(errlog.KindExecution, "OutputFileWriteError", errlog.Location{File: file, Position: string(pos)}, "%v", err)
			continue
		}
		s.Add(track)
	}

	return s, c
}

func buildTrack0(sc score.Score, exec score.Execution, settings score.ProcessSettings, c *errlog.Collector, file string) smf.Track {
	var track smf.Track
	track.Add(0, smf.MetaTrackSequenceName("tempo/markers"))

	lastTempo := -1
	pending := secondsToTicks(settings.SilenceSecondsBeforeStart, settings)
	for _, step := range exec.Steps {
		if step.WaitBefore > 0 {
			pending += quarterSecondTicks(step.WaitBefore, settings)
		}
		if step.TempoBPM > 0 && step.TempoBPM != lastTempo {
			track.Add(pending, smf.MetaTempo(float64(step.TempoBPM)))
			pending = 0
			lastTempo = step.TempoBPM
		}
		if step.Part != "" {
			track.Add(pending, smf.MetaMarker(step.Part))
			pending = 0
		}
		beat, ok := beatAt(sc, step.Gongan, step.Beat)
		if ok {
			pending += uint32(beatTicks(beat, settings))
		}
		if step.WaitAfter > 0 {
			pending += quarterSecondTicks(step.WaitAfter, settings)
		}
	}
	pending += secondsToTicks(settings.SilenceSecondsAfterEnd, settings)
	track.Close(pending)
	return track
}

func buildPositionTrack(sc score.Score, exec score.Execution, pos score.Position, posIndex int, entry tables.InstrumentEntry, settings score.ProcessSettings, midinotes *tables.MIDINotesTable) (smf.Track, error) {
	var track smf.Track
	channel := uint8(posIndex % 16)
	track.Add(0, smf.MetaTrackSequenceName(string(pos)))

	preset, ok := midinotes.Preset(settings.InstrumentGroup, entry.InstrumentType, pos)
	if ok {
		track.Add(0, midi.ControlChange(channel, 0, preset.Bank))
		track.Add(0, midi.ProgramChange(channel, preset.Program))
	}

	pending := secondsToTicks(settings.SilenceSecondsBeforeStart, settings)
	lastOff := -1

	for _, step := range exec.Steps {
		if step.WaitBefore > 0 {
			pending += quarterSecondTicks(step.WaitBefore, settings)
		}
		beat, ok := beatAt(sc, step.Gongan, step.Beat)
		if !ok {
			continue
		}
		m, ok := beat.ForPass(pos, step.Pass)
		if !ok {
			continue
		}
		velocity := step.Velocity[pos]
		if velocity == 0 {
			velocity = 90
			if mf, ok := settings.DynamicsMap["mf"]; ok {
				velocity = mf
			}
		}
		if m.Suppress {
			pending += uint32(beatTicks(beat, settings))
			continue
		}
		for _, n := range m.Notes {
			dur := n.Duration.Ticks(settings.BaseNoteTicks)
			rest := n.RestAfter.Ticks(settings.BaseNoteTicks)
			if n.IsRest() || dur == 0 {
				pending += uint32(dur + rest)
				continue
			}
			po := score.PitchOctave{Pitch: n.Pitch, Octave: n.Octave}
			key, ok := midinotes.Lookup(settings.InstrumentGroup, entry.InstrumentType, pos, po, n.Stroke)
			if !ok {
				pending += uint32(dur + rest)
				continue
			}
			v := n.Velocity
			if v == 0 {
				v = velocity
			}
			track.Add(pending, midi.NoteOn(channel, key, v))
			track.Add(uint32(dur), midi.NoteOff(channel, key))
			pending = uint32(rest)
			lastOff = len(track) - 1
		}
		if step.WaitAfter > 0 {
			pending += quarterSecondTicks(step.WaitAfter, settings)
		}
	}

	if !exec.Loops && lastOff >= 0 {
		track[lastOff].Delta += releaseTailTicks
		if pending > releaseTailTicks {
			pending -= releaseTailTicks
		} else {
			pending = 0
		}
	}

	trailing := secondsToTicks(settings.SilenceSecondsAfterEnd, settings)
	track.Close(pending + trailing)
	return track, nil
}

func beatAt(sc score.Score, gonganOneBased, beatOneBased int) (score.Beat, bool) {
	gi := gonganOneBased - 1
	if gi < 0 || gi >= len(sc.Gongans) {
		return score.Beat{}, false
	}
	bi := beatOneBased - 1
	beats := sc.Gongans[gi].Beats
	if bi < 0 || bi >= len(beats) {
		return score.Beat{}, false
	}
	return beats[bi], true
}

// beatTicks is the tick span of a beat's longest measure, used to advance
// track 0's cursor and to skip suppressed measures on a position track.
func beatTicks(b score.Beat, settings score.ProcessSettings) int {
	longest := 0
	for _, variants := range b.Measures {
		for _, m := range variants {
			if t := m.TotalDuration().Ticks(settings.BaseNoteTicks); t > longest {
				longest = t
			}
		}
	}
	return longest
}

func secondsToTicks(seconds float64, settings score.ProcessSettings) uint32 {
	if seconds <= 0 {
		return 0
	}
	return quarterSecondTicks(seconds, settings)
}

// quarterSecondTicks converts a silence duration in seconds to ticks,
// rounded to the nearest quarter-second, at a nominal 120 BPM reference
// tempo (one quarter note per half second).
func quarterSecondTicks(seconds float64, settings score.ProcessSettings) uint32 {
	quarters := roundToQuarter(seconds) * 2
	return uint32(quarters * float64(settings.PPQ))
}

func roundToQuarter(seconds float64) float64 {
	const step = 0.25
	return float64(int(seconds/step+0.5)) * step
}
