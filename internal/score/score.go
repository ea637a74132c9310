// Package score defines the core, immutable score data model:
// Note, Measure, Beat, Gongan, Score, and Execution. Each pipeline stage
// from stage 3 onward produces a new Score value; earlier values are never
// mutated.
package score

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Position names a musical voice (e.g. "gangsa_polos", "reyong_1"). The
// instruments table binds a position to an instrument type and pitch range.
type Position string

// GonganType distinguishes the three structural kinds of section.
type GonganType string

const (
	GonganRegular  GonganType = "regular"
	GonganKebyar   GonganType = "kebyar"
	GonganGineman  GonganType = "gineman"
)

// PassSelector identifies which pass(es) of a beat a Measure or directive
// applies to. DefaultPass (All=true) means "all passes".
type PassSelector struct {
	All  bool
	From int
	To   int // From==To for a single pass; ignored once Set is non-nil

	// Set holds the exact pass numbers for a sparse, non-contiguous list
	// (e.g. passes=[1,3]). Nil means the contiguous [From,To] range applies.
	Set map[int]bool
}

// DefaultPass matches every pass.
func DefaultPass() PassSelector { return PassSelector{All: true} }

// SinglePass matches exactly one pass number.
func SinglePass(p int) PassSelector { return PassSelector{From: p, To: p} }

// PassSet matches exactly the given pass numbers, contiguous or not.
func PassSet(passes []int) PassSelector {
	set := make(map[int]bool, len(passes))
	from, to := passes[0], passes[0]
	for _, p := range passes {
		set[p] = true
		if p < from {
			from = p
		}
		if p > to {
			to = p
		}
	}
	return PassSelector{From: from, To: to, Set: set}
}

// Matches reports whether pass p satisfies the selector.
func (s PassSelector) Matches(p int) bool {
	if s.All {
		return true
	}
	if s.Set != nil {
		return s.Set[p]
	}
	return p >= s.From && p <= s.To
}

// Measure is the ordered sequence of notes assigned to one (position, beat)
// cell.
type Measure struct {
	Position Position
	Notes    []Note
	Pass     PassSelector

	// Suppress marks the measure as silent for MIDI emission (from a
	// SUPPRESS directive) without discarding its notation.
	Suppress bool
	// ValidationIgnore lists the checks this measure is
	// exempt from, via a VALIDATION directive scoped to its gongan/beat.
	ValidationIgnore map[ValidationCheck]bool
}

// ValidationCheck names one of the four structural checks.
type ValidationCheck string

const (
	CheckBeatLength      ValidationCheck = "beat-duration"
	CheckStaveLength     ValidationCheck = "stave-length"
	CheckInstrumentRange ValidationCheck = "instrument-range"
	CheckKempyung        ValidationCheck = "kempyung"
)

// TotalDuration sums the measure's notes' total spans.
func (m Measure) TotalDuration() Frac {
	total := Zero()
	for _, n := range m.Notes {
		total = total.Add(n.TotalDuration())
	}
	return total
}

// Clone returns a deep-enough copy of the measure (notes slice copied) so
// later stages never alias an earlier stage's slice backing array.
func (m Measure) Clone() Measure {
	out := m
	out.Notes = slices.Clone(m.Notes)
	if m.ValidationIgnore != nil {
		out.ValidationIgnore = maps.Clone(m.ValidationIgnore)
	}
	return out
}

// Beat is one coordinate within a Gongan: every bound position's measure
// variant(s), keyed by position. A position ordinarily carries a single
// all-passes measure, but a stave line restricted to a pass range (e.g.
// "tag:2-3") adds an alternative variant alongside it; execution and
// emission pick the variant matching the active pass via ForPass. Grounded
// on the original implementation's beat.staves/beat.exceptions mechanism,
// keyed by (position, pass). After stage 6 (completion) every position of
// the instrument group has at least one variant.
type Beat struct {
	Measures map[Position][]Measure

	// KempliOn reflects the scope-resolved KEMPLI directive state at this
	// beat.
	KempliOn bool
	// Part is set when a PART directive names this beat (always the first
	// beat of its gongan).
	Part string
}

// Position looks up the position's default measure: its all-passes variant,
// or its first variant if every one is pass-restricted. Stages that are not
// pass-aware (binding, pattern elaboration, validation) use this; emission
// uses ForPass instead. Returns ok=false if p has no measure (only possible
// before stage 6 completion).
func (b Beat) Position(p Position) (Measure, bool) {
	variants, ok := b.Measures[p]
	if !ok || len(variants) == 0 {
		return Measure{}, false
	}
	for _, m := range variants {
		if m.Pass.All {
			return m, true
		}
	}
	return variants[0], true
}

// ForPass returns the measure variant bound to p that governs the given
// execution pass, preferring a variant with an explicit pass restriction
// over the position's all-passes fallback.
func (b Beat) ForPass(p Position, pass int) (Measure, bool) {
	variants, ok := b.Measures[p]
	if !ok || len(variants) == 0 {
		return Measure{}, false
	}
	var fallback *Measure
	for i := range variants {
		v := variants[i]
		if !v.Pass.Matches(pass) {
			continue
		}
		if v.Pass.All {
			fallback = &variants[i]
			continue
		}
		return v, true
	}
	if fallback != nil {
		return *fallback, true
	}
	return Measure{}, false
}

// Clone deep-copies the beat's measure map, including every pass variant.
func (b Beat) Clone() Beat {
	out := b
	out.Measures = make(map[Position][]Measure, len(b.Measures))
	for p, variants := range b.Measures {
		cloned := make([]Measure, len(variants))
		for i, m := range variants {
			cloned[i] = m.Clone()
		}
		out.Measures[p] = cloned
	}
	return out
}

// TempoDirective is an attached TEMPO metadata directive.
type TempoDirective struct {
	Value      int
	FirstBeat  int
	BeatCount  int
	Passes     PassSelector
	SeenOrder  int // not set or read; on overlap the last directive declared on the gongan wins
}

// DynamicsDirective is an attached DYNAMICS metadata directive.
type DynamicsDirective struct {
	Value     string // pp, p, mp, mf, f, ff
	Positions []Position
	FirstBeat int
	BeatCount int
	Passes    PassSelector
	SeenOrder int
}

// GotoDirective is an attached GOTO metadata directive.
type GotoDirective struct {
	Label    string
	FromBeat int
	Passes   PassSelector
}

// RepeatDirective is an attached REPEAT metadata directive.
type RepeatDirective struct {
	Count int
}

// WaitDirective is an attached WAIT metadata directive.
type WaitDirective struct {
	Seconds float64
	After   bool
	Passes  PassSelector
}

// OctavateDirective is an attached OCTAVATE metadata directive, applied
// during completion.
type OctavateDirective struct {
	Instrument Position
	Octaves    int
	ScopeScore bool // scope=SCORE instead of the default GONGAN
}

// BeatSelector identifies which beat(s) of a gongan a directive applies to.
type BeatSelector struct {
	All   bool
	Beats []int // 1-based beat indices
}

// AllBeats matches every beat.
func AllBeats() BeatSelector { return BeatSelector{All: true} }

// Matches reports whether beat b (1-based) satisfies the selector.
func (s BeatSelector) Matches(b int) bool {
	if s.All {
		return true
	}
	for _, x := range s.Beats {
		if x == b {
			return true
		}
	}
	return false
}

// SuppressDirective is an attached SUPPRESS metadata directive.
type SuppressDirective struct {
	Positions []Position
	Beats     BeatSelector
	Passes    PassSelector
}

// KempliDirective is an attached KEMPLI metadata directive.
type KempliDirective struct {
	On         bool
	Beats      BeatSelector
	ScopeScore bool
}

// PartDirective is an attached PART metadata directive.
type PartDirective struct {
	Name string
}

// ValidationDirective is an attached VALIDATION metadata directive.
type ValidationDirective struct {
	Ignore     map[ValidationCheck]bool
	Beats      BeatSelector
	ScopeScore bool
}

// AutokempyungDirective is an attached AUTOKEMPYUNG metadata directive.
type AutokempyungDirective struct {
	On         bool
	Positions  []Position
	ScopeScore bool
}

// Gongan is a musical section: an ordered list of Beats plus its type and
// the metadata directives attached to it.
type Gongan struct {
	Type  GonganType
	Beats []Beat

	Tempo    []TempoDirective
	Dynamics []DynamicsDirective
	Goto     []GotoDirective
	Repeat   *RepeatDirective
	Wait     []WaitDirective

	Octavate     []OctavateDirective
	Suppress     []SuppressDirective
	Kempli       []KempliDirective
	Part         *PartDirective
	Validation   []ValidationDirective
	Autokempyung []AutokempyungDirective

	// BeatAtEnd reflects whether this gongan was flagged for beat-at-end
	// rewriting during completion.
	BeatAtEnd bool
}

// NumBeats returns len(Beats).
func (g Gongan) NumBeats() int { return len(g.Beats) }

// LabelRef names a (gongan, beat) coordinate. Labels are stored as a flat
// name->coordinate map on Score, never as back-pointers embedded in the
// graph.
type LabelRef struct {
	Gongan int
	Beat   int
}

// ProcessSettings carries score-wide, process-level configuration
// materialized from RunConfig and the reference tables.
type ProcessSettings struct {
	PPQ           int
	BaseNoteTicks int
	FontVersion   string
	InstrumentGroup string

	// DynamicsMap maps dynamics names (pp..ff) to MIDI velocities.
	DynamicsMap map[string]uint8

	// AcceleratingPattern/AcceleratingVelocity are the accelerating tremolo
	// duration and velocity tables.
	AcceleratingPattern  []int
	AcceleratingVelocity []uint8

	// NotesPerQuarterNote and BaseNotesPerBeat feed the fixed-frequency
	// tremolo expansion formula.
	NotesPerQuarterNote int
	BaseNotesPerBeat    int

	AutocorrectKempyung bool
	DetailedValidationLogging bool

	// BeatAtEnd selects the notation convention where the gong stroke is
	// written at the end of a gongan's staves; completion compensates by
	// rotating each measure's notes right by one beat.
	BeatAtEnd bool

	SilenceSecondsBeforeStart float64
	SilenceSecondsAfterEnd    float64

	// ShorthandPositions lists the positions allowed to omit rests and
	// extensions, padded out by pattern elaboration.
	ShorthandPositions map[Position]bool
}

// Score is the ordered list of Gongans plus the label table and process
// settings. Every pipeline stage from construction
// onward returns a new Score value.
type Score struct {
	Gongans []Gongan
	Labels  map[string]LabelRef
	Settings ProcessSettings

	// Sequence, if non-empty, is the linear ordering of gongan labels
	// declared by a SEQUENCE directive in the unbound metadata block.
	// Each entry is resolved against Labels by the execution linearizer.
	Sequence []string

	// ValidationIgnoreScore lists checks suppressed score-wide by a
	// VALIDATION directive with scope=SCORE.
	ValidationIgnoreScore map[ValidationCheck]bool
}

// Gongan returns the gongan at index i (0-based) or ok=false if out of
// range.
func (s Score) Gongan(i int) (Gongan, bool) {
	if i < 0 || i >= len(s.Gongans) {
		return Gongan{}, false
	}
	return s.Gongans[i], true
}

// Clone deep-copies gongans/beats/measures and the label table so that a
// later stage's mutation (autocorrection) never touches the artifact an
// earlier stage produced.
func (s Score) Clone() Score {
	out := s
	out.Gongans = make([]Gongan, len(s.Gongans))
	for gi, g := range s.Gongans {
		ng := g
		ng.Beats = make([]Beat, len(g.Beats))
		for bi, b := range g.Beats {
			ng.Beats[bi] = b.Clone()
		}
		ng.Tempo = slices.Clone(g.Tempo)
		ng.Dynamics = slices.Clone(g.Dynamics)
		ng.Goto = slices.Clone(g.Goto)
		ng.Wait = slices.Clone(g.Wait)
		ng.Octavate = slices.Clone(g.Octavate)
		ng.Suppress = slices.Clone(g.Suppress)
		ng.Kempli = slices.Clone(g.Kempli)
		ng.Validation = slices.Clone(g.Validation)
		ng.Autokempyung = slices.Clone(g.Autokempyung)
		out.Gongans[gi] = ng
	}
	out.Labels = maps.Clone(s.Labels)
	out.Sequence = slices.Clone(s.Sequence)
	return out
}

// ExecutionStep is one (gongan, beat, pass) triple in the linearized
// execution.
type ExecutionStep struct {
	Gongan int
	Beat   int
	Pass   int

	TempoBPM int
	// Velocity is keyed by position; absent positions use the prevailing
	// default dynamic (mf) for that step.
	Velocity map[Position]uint8

	// Part, if non-empty, is the PART marker name to emit at this step.
	Part string
	// WaitBefore/WaitAfter are silences (seconds) inserted by WAIT
	// directives, rounded to the nearest quarter-second by the emitter.
	WaitBefore float64
	WaitAfter  float64
}

// Execution is the ordered sequence produced by stage 8.
type Execution struct {
	Steps []ExecutionStep
	// Loops records whether the score is flagged to loop (no natural end),
	// used by the emitter to decide whether to add a release tail.
	Loops bool
}
