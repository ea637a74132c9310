// Package binding implements stages 3 and 4 of the pipeline: score
// construction (raw notation -> a Score with tag-keyed, generic-pitch
// measures) and position binding (tag-keyed measures -> position-keyed
// measures, resolving shared notation through the rules engine).
package binding

import (
	"fmt"
	"strings"

	"golang.org/x/exp/slices"

	"github.com/gamelan-notation/notation2midi/internal/errlog"
	"github.com/gamelan-notation/notation2midi/internal/rawnotation"
	"github.com/gamelan-notation/notation2midi/internal/score"
	"github.com/gamelan-notation/notation2midi/internal/tables"
)

// staveVariant is one stave line's contribution to a tag: its pass
// restriction (score.DefaultPass() for an unqualified tag) and its
// per-beat notes. A tag with more than one stave line in a gongan — each
// carrying a different "tag:from-to" pass suffix — accumulates one
// staveVariant per line instead of the last one overwriting the rest.
type staveVariant struct {
	pass  score.PassSelector
	beats [][]score.Note
}

// Construct is stage 3: it walks the RawNotation tree and produces a Score
// whose measures are still keyed by notation tag rather than by resolved
// position.
func Construct(file string, raw *rawnotation.RawNotation, font *tables.FontTable, settings score.ProcessSettings) (score.Score, *errlog.Collector) {
	c := errlog.New("construct")
	sc := score.Score{
		Labels:   map[string]score.LabelRef{},
		Settings: settings,
	}

	for _, line := range raw.Unbound {
		if line.Kind != rawnotation.LineMetadata {
			continue
		}
		if line.Metadata.Keyword == "SEQUENCE" {
			sc.Sequence = params(line.Metadata.Params).list("value", "value")
		}
		if line.Metadata.Keyword == "VALIDATION" {
			applyScoreValidation(&sc, params(line.Metadata.Params), c, file, line.Metadata.Line)
		}
	}

	for gi, rg := range raw.Gongans {
		g := score.Gongan{Type: score.GonganRegular}
		variantsByTag := map[string][]staveVariant{}
		maxBeats := 0

		for _, line := range rg.Lines {
			loc := errlog.Location{File: file, Gongan: gi + 1}
			switch line.Kind {
			case rawnotation.LineStave:
				st := line.Stave
				notes := make([][]score.Note, len(st.Beats))
				for bi, symbols := range st.Beats {
					ns, err := buildNotes(symbols, font)
					if err != nil {
						c.Add(errlog.KindParse, "MalformedDirective", errlog.Location{File: file, Line: st.Line, Gongan: gi + 1, Beat: bi + 1}, "%v", err)
						continue
					}
					notes[bi] = ns
				}
				variantsByTag[st.Tag] = append(variantsByTag[st.Tag], staveVariant{
					pass:  passSpecToSelector(st.Pass),
					beats: notes,
				})
				if len(notes) > maxBeats {
					maxBeats = len(notes)
				}
			case rawnotation.LineMetadata:
				applyMetadataToGongan(&sc, &g, gi, line.Metadata, c, loc)
			case rawnotation.LineComment:
				// preserved by internal/scoretonotation for round-tripping;
				// not represented in the typed score.
			}
		}

		g.Beats = make([]score.Beat, maxBeats)
		for bi := 0; bi < maxBeats; bi++ {
			measures := map[score.Position][]score.Measure{}
			for tag, variants := range variantsByTag {
				var ms []score.Measure
				for _, v := range variants {
					if bi >= len(v.beats) {
						continue
					}
					ms = append(ms, score.Measure{
						Position: score.Position(tag),
						Notes:    slices.Clone(v.beats[bi]),
						Pass:     v.pass,
					})
				}
				if len(ms) > 0 {
					measures[score.Position(tag)] = ms
				}
			}
			g.Beats[bi] = score.Beat{Measures: measures}
		}

		if maxBeats == 0 {
			c.Add(errlog.KindStructural, "StaveLengthMismatch", errlog.Location{File: file, Gongan: gi + 1}, "gongan has no stave lines")
		}

		sc.Gongans = append(sc.Gongans, g)
	}

	return sc, c
}

func passSpecToSelector(p rawnotation.PassSpec) score.PassSelector {
	if p.All {
		return score.DefaultPass()
	}
	return score.PassSelector{From: p.From, To: p.To}
}

// buildNotes reduces a beat's decoded symbol stream into concrete Notes,
// attaching each base symbol's combining modifiers to the note it follows.
func buildNotes(symbols []rawnotation.SymbolRune, font *tables.FontTable) ([]score.Note, error) {
	var notes []score.Note
	for _, sym := range symbols {
		entry, ok := font.Lookup(sym.Base)
		if !ok {
			return nil, fmt.Errorf("UnknownSymbolError: unknown base symbol %q", sym.Base)
		}
		var n score.Note
		switch entry.Kind {
		case tables.SymbolNote:
			n = score.Note{
				Pitch:     entry.Pitch,
				Octave:    entry.OctaveDelta,
				Stroke:    entry.Stroke,
				Duration:  entry.Duration,
				RestAfter: entry.RestAfter,
			}
		case tables.SymbolRest:
			n = score.Note{
				Pitch:     score.PitchRest,
				Duration:  score.Zero(),
				RestAfter: entry.RestAfter,
			}
		default:
			return nil, fmt.Errorf("UnknownSymbolError: base symbol %q is not a note or rest", sym.Base)
		}

		for _, mr := range sym.Modifiers {
			modEntry, ok := font.Lookup(mr)
			if !ok {
				return nil, fmt.Errorf("UnknownSymbolError: unknown modifier %q", mr)
			}
			switch modEntry.Modifier {
			case score.ModOctaveUp:
				n.Octave += modEntry.OctaveDelta
				if n.Octave == entry.OctaveDelta {
					n.Octave++
				}
			case score.ModOctaveDown:
				n.Octave -= modEntry.OctaveDelta
				if n.Octave == entry.OctaveDelta {
					n.Octave--
				}
			default:
				n.Modifiers = append(n.Modifiers, modEntry.Modifier)
			}
		}
		notes = append(notes, n)
	}
	return notes, nil
}

// applyMetadataToGongan dispatches one metadata directive into the typed
// fields of the Gongan under construction, or into the Score-level label
// table for LABEL directives.
func applyMetadataToGongan(sc *score.Score, g *score.Gongan, gonganIndex int, md *rawnotation.RawMetadata, c *errlog.Collector, loc errlog.Location) {
	p := params(md.Params)
	switch md.Keyword {
	case "GONGAN":
		t := strings.ToLower(p.str("type", "type", "regular"))
		switch t {
		case "regular":
			g.Type = score.GonganRegular
		case "kebyar":
			g.Type = score.GonganKebyar
		case "gineman":
			g.Type = score.GonganGineman
		default:
			c.Add(errlog.KindParse, "MalformedDirective", loc, "GONGAN: unknown type %q", t)
		}

	case "TEMPO":
		value, err := p.intVal("value", "value", 0)
		if err != nil {
			c.Add(errlog.KindParse, "MalformedDirective", loc, "%v", err)
			return
		}
		firstBeat, _ := p.intVal("first_beat", "first_beat", 1)
		beatCount, _ := p.intVal("beat_count", "beat_count", 0)
		passes, err := p.passSelector("passes", "passes")
		if err != nil {
			c.Add(errlog.KindParse, "MalformedDirective", loc, "%v", err)
			return
		}
		g.Tempo = append(g.Tempo, score.TempoDirective{Value: value, FirstBeat: firstBeat, BeatCount: beatCount, Passes: passes})

	case "DYNAMICS":
		value := p.str("value", "value", "")
		if value == "" {
			c.Add(errlog.KindParse, "MalformedDirective", loc, "DYNAMICS: value is required")
			return
		}
		firstBeat, _ := p.intVal("first_beat", "first_beat", 1)
		beatCount, _ := p.intVal("beat_count", "beat_count", 0)
		passes, err := p.passSelector("passes", "passes")
		if err != nil {
			c.Add(errlog.KindParse, "MalformedDirective", loc, "%v", err)
			return
		}
		g.Dynamics = append(g.Dynamics, score.DynamicsDirective{
			Value: value, Positions: p.positions("positions", "positions"),
			FirstBeat: firstBeat, BeatCount: beatCount, Passes: passes,
		})

	case "GOTO":
		label := p.str("label", "label", "")
		if label == "" {
			c.Add(errlog.KindParse, "MalformedDirective", loc, "GOTO: label is required")
			return
		}
		fromBeat, _ := p.intVal("from_beat", "from_beat", -1)
		passes, err := p.passSelector("passes", "passes")
		if err != nil {
			c.Add(errlog.KindParse, "MalformedDirective", loc, "%v", err)
			return
		}
		g.Goto = append(g.Goto, score.GotoDirective{Label: label, FromBeat: fromBeat, Passes: passes})

	case "KEMPLI":
		status := strings.ToLower(p.str("status", "status", ""))
		if status != "on" && status != "off" {
			c.Add(errlog.KindParse, "MalformedDirective", loc, "KEMPLI: status must be on/off, got %q", status)
			return
		}
		beats, err := p.beatSelector("beats", "beats")
		if err != nil {
			c.Add(errlog.KindParse, "MalformedDirective", loc, "%v", err)
			return
		}
		scope := strings.ToUpper(p.str("scope", "scope", "GONGAN"))
		g.Kempli = append(g.Kempli, score.KempliDirective{On: status == "on", Beats: beats, ScopeScore: scope == "SCORE"})

	case "AUTOKEMPYUNG":
		status := strings.ToLower(p.str("status", "status", ""))
		if status != "on" && status != "off" {
			c.Add(errlog.KindParse, "MalformedDirective", loc, "AUTOKEMPYUNG: status must be on/off, got %q", status)
			return
		}
		scope := strings.ToUpper(p.str("scope", "scope", "GONGAN"))
		g.Autokempyung = append(g.Autokempyung, score.AutokempyungDirective{
			On: status == "on", Positions: p.positions("positions", "positions"), ScopeScore: scope == "SCORE",
		})

	case "LABEL":
		name := p.str("name", "name", "")
		if name == "" {
			c.Add(errlog.KindParse, "MalformedDirective", loc, "LABEL: name is required")
			return
		}
		beat, _ := p.intVal("beat", "beat", 1)
		if _, exists := sc.Labels[name]; exists {
			c.Add(errlog.KindResolution, "DuplicateLabel", loc, "label %q already defined", name)
			return
		}
		sc.Labels[name] = score.LabelRef{Gongan: gonganIndex, Beat: beat - 1}

	case "OCTAVATE":
		instrument := p.str("instrument", "instrument", "")
		if instrument == "" {
			c.Add(errlog.KindParse, "MalformedDirective", loc, "OCTAVATE: instrument is required")
			return
		}
		octaves, err := p.intVal("octaves", "octaves", 0)
		if err != nil {
			c.Add(errlog.KindParse, "MalformedDirective", loc, "%v", err)
			return
		}
		scope := strings.ToUpper(p.str("scope", "scope", "GONGAN"))
		g.Octavate = append(g.Octavate, score.OctavateDirective{Instrument: score.Position(instrument), Octaves: octaves, ScopeScore: scope == "SCORE"})

	case "PART":
		name := p.str("name", "name", "")
		if name == "" {
			c.Add(errlog.KindParse, "MalformedDirective", loc, "PART: name is required")
			return
		}
		g.Part = &score.PartDirective{Name: name}

	case "REPEAT":
		count, err := p.intVal("count", "count", -1)
		if err != nil {
			c.Add(errlog.KindParse, "MalformedDirective", loc, "%v", err)
			return
		}
		if count <= 0 {
			c.Add(errlog.KindExecution, "RepeatCountInvalid", loc, "REPEAT: count must be positive, got %d", count)
			return
		}
		g.Repeat = &score.RepeatDirective{Count: count}

	case "SEQUENCE":
		c.Add(errlog.KindParse, "MalformedDirective", loc, "SEQUENCE is only allowed in the unbound metadata block")

	case "SUPPRESS":
		positions := p.positions("positions", "positions")
		if len(positions) == 0 {
			c.Add(errlog.KindParse, "MalformedDirective", loc, "SUPPRESS: positions is required")
			return
		}
		beats, err := p.beatSelector("beats", "beats")
		if err != nil {
			c.Add(errlog.KindParse, "MalformedDirective", loc, "%v", err)
			return
		}
		passes, err := p.passSelector("passes", "passes")
		if err != nil {
			c.Add(errlog.KindParse, "MalformedDirective", loc, "%v", err)
			return
		}
		g.Suppress = append(g.Suppress, score.SuppressDirective{Positions: positions, Beats: beats, Passes: passes})

	case "VALIDATION":
		applyGonganValidation(g, p, c, loc)

	case "WAIT":
		seconds, err := p.floatVal("seconds", "seconds", 0)
		if err != nil {
			c.Add(errlog.KindParse, "MalformedDirective", loc, "%v", err)
			return
		}
		after, err := p.boolVal("after", "after", true)
		if err != nil {
			c.Add(errlog.KindParse, "MalformedDirective", loc, "%v", err)
			return
		}
		if !after {
			c.Add(errlog.KindExecution, "UnsupportedDirective", loc, "WAIT: after=false is not supported")
			return
		}
		passes, err := p.passSelector("passes", "passes")
		if err != nil {
			c.Add(errlog.KindParse, "MalformedDirective", loc, "%v", err)
			return
		}
		g.Wait = append(g.Wait, score.WaitDirective{Seconds: seconds, After: after, Passes: passes})

	default:
		c.Add(errlog.KindParse, "MalformedDirective", loc, "unknown metadata keyword %q", md.Keyword)
	}
}

func applyGonganValidation(g *score.Gongan, p params, c *errlog.Collector, loc errlog.Location) {
	ignore := parseValidationIgnore(p)
	beats, err := p.beatSelector("beats", "beats")
	if err != nil {
		c.Add(errlog.KindParse, "MalformedDirective", loc, "%v", err)
		return
	}
	scope := strings.ToUpper(p.str("scope", "scope", "GONGAN"))
	g.Validation = append(g.Validation, score.ValidationDirective{Ignore: ignore, Beats: beats, ScopeScore: scope == "SCORE"})
}

func applyScoreValidation(sc *score.Score, p params, c *errlog.Collector, file string, line int) {
	ignore := parseValidationIgnore(p)
	if sc.ValidationIgnoreScore == nil {
		sc.ValidationIgnoreScore = map[score.ValidationCheck]bool{}
	}
	for k, v := range ignore {
		sc.ValidationIgnoreScore[k] = v
	}
}

func parseValidationIgnore(p params) map[score.ValidationCheck]bool {
	out := map[score.ValidationCheck]bool{}
	for _, v := range p.list("ignore", "ignore") {
		out[score.ValidationCheck(v)] = true
	}
	return out
}
