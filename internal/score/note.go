package score

// Pitch enumerates the five-tone (pentatonic) pitch degrees used by
// Balinese gamelan notation, plus the sentinel REST pitch used by rest
// notes. Concrete semitone/MIDI mapping is supplied by the MIDI notes
// reference table (internal/tables), not hardcoded here: the same pitch
// name means a different MIDI note per instrument group and octave.
type Pitch string

const (
	PitchDing Pitch = "DING"
	PitchDong Pitch = "DONG"
	PitchDeng Pitch = "DENG"
	PitchDung Pitch = "DUNG"
	PitchDang Pitch = "DANG"
	PitchRest Pitch = "REST"
)

// Stroke is the articulation class of a note: it selects a MIDI note
// variant and, for emission, a release hint. Values are data-driven by the
// font table; these constants cover the ones the elaborator and validator
// need to reason about directly.
type Stroke string

const (
	StrokeOpen        Stroke = "OPEN"
	StrokeMuted       Stroke = "MUTED"
	StrokeAbbreviated Stroke = "ABBREVIATED"
)

// Modifier is a combining-diacritic annotation attached to a base symbol by
// the parser's symbol decoder.
type Modifier string

const (
	ModTremolo             Modifier = "TREMOLO"
	ModAcceleratingTremolo Modifier = "ACCELERATING_TREMOLO"
	ModNorot               Modifier = "NOROT"
	ModOctaveUp            Modifier = "OCTAVE_UP"
	ModOctaveDown          Modifier = "OCTAVE_DOWN"
)

// Note is one musical atom: a pitch at an octave with a stroke, an audible
// duration, and a trailing rest, both as fractions of one base note.
//
// Invariant: Duration.Add(RestAfter) must not exceed One() for a note that
// has not been touched by a duration-multiplying modifier (tremolo,
// acceleration); pattern elaboration is the only stage allowed to break
// this locally, and only within an expansion that still sums to the
// original note's total span.
type Note struct {
	Pitch     Pitch
	Octave    int
	Stroke    Stroke
	Duration  Frac
	RestAfter Frac
	Modifiers []Modifier
	Velocity  uint8 // 0 means "use the beat's prevailing dynamic"
}

// IsRest reports whether the note is silence.
func (n Note) IsRest() bool {
	return n.Pitch == PitchRest
}

// Rest returns a rest note spanning the given fraction of a base note.
func Rest(span Frac) Note {
	return Note{Pitch: PitchRest, Duration: Zero(), RestAfter: span}
}

// HasModifier reports whether m is among the note's modifiers.
func (n Note) HasModifier(m Modifier) bool {
	for _, x := range n.Modifiers {
		if x == m {
			return true
		}
	}
	return false
}

// TotalDuration returns Duration+RestAfter, the note's full time span.
func (n Note) TotalDuration() Frac {
	return n.Duration.Add(n.RestAfter)
}

// PitchOctave is the (pitch, octave) pair used as a lookup key against
// instrument ranges and the kempyung table.
type PitchOctave struct {
	Pitch  Pitch
	Octave int
}
