// Package scoretonotation writes a Score back out as notation text,
// supporting save_corrected_to_file and round-trip law R1:
// score_to_notation(score_construction(parse(x))) reproduces x modulo
// whitespace and comment placement when no autocorrection has run.
//
// Unbound-block lines and comments are copied from the RawNotation tree.
// Each gongan's metadata is regenerated from the typed Gongan and covers
// only GONGAN (non-regular type), TEMPO (value, first_beat, beat_count),
// DYNAMICS (value) and REPEAT/PART; other gongan directives, and the other
// parameters of these, are not written, so for notation that uses them the
// output does not reproduce x.
package scoretonotation

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/gamelan-notation/notation2midi/internal/rawnotation"
	"github.com/gamelan-notation/notation2midi/internal/score"
	"github.com/gamelan-notation/notation2midi/internal/tables"
)

// Write renders sc (the tag-keyed Score produced by construction, or a
// corrected descendant of it) as notation text. raw supplies the comment
// lines and unbound-block ordering to preserve; font supplies the reverse
// symbol lookup.
func Write(raw *rawnotation.RawNotation, sc score.Score, font *tables.FontTable) (string, error) {
	var b strings.Builder

	for _, line := range raw.Unbound {
		writeRawLine(&b, line)
	}

	for gi, rg := range raw.Gongans {
		if gi >= len(sc.Gongans) {
			break
		}
		g := sc.Gongans[gi]
		writeGonganMetadata(&b, g)

		tags := stableTags(rg)
		for _, tag := range tags {
			if err := writeStave(&b, g, score.Position(tag), font); err != nil {
				return "", err
			}
		}
		for _, line := range rg.Lines {
			if line.Kind == rawnotation.LineComment {
				writeRawLine(&b, line)
			}
		}
		b.WriteString("\n")
	}

	return b.String(), nil
}

// stableTags returns the stave tags of a raw gongan in first-seen order, so
// re-serialization preserves the original column order.
func stableTags(rg rawnotation.RawGongan) []string {
	seen := map[string]bool{}
	var out []string
	for _, line := range rg.Lines {
		if line.Kind != rawnotation.LineStave {
			continue
		}
		if !seen[line.Stave.Tag] {
			seen[line.Stave.Tag] = true
			out = append(out, line.Stave.Tag)
		}
	}
	return out
}

func writeRawLine(b *strings.Builder, line rawnotation.RawLine) {
	switch line.Kind {
	case rawnotation.LineComment:
		b.WriteString("# ")
		b.WriteString(line.Comment.Text)
		b.WriteString("\n")
	case rawnotation.LineMetadata:
		writeMetadataLine(b, line.Metadata.Keyword, line.Metadata.Params)
	}
}

func writeMetadataLine(b *strings.Builder, keyword string, params map[string]string) {
	b.WriteString("{")
	b.WriteString(keyword)
	if len(params) > 0 {
		var keys []string
		for k := range params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var parts []string
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%s", k, params[k]))
		}
		b.WriteString(" ")
		b.WriteString(strings.Join(parts, ", "))
	}
	b.WriteString("}\n")
}

func writeGonganMetadata(b *strings.Builder, g score.Gongan) {
	if g.Type != score.GonganRegular {
		writeMetadataLine(b, "GONGAN", map[string]string{"type": strings.ToLower(string(g.Type))})
	}
	for _, t := range g.Tempo {
		writeMetadataLine(b, "TEMPO", map[string]string{
			"value": strconv.Itoa(t.Value), "first_beat": strconv.Itoa(t.FirstBeat), "beat_count": strconv.Itoa(t.BeatCount),
		})
	}
	for _, d := range g.Dynamics {
		writeMetadataLine(b, "DYNAMICS", map[string]string{"value": d.Value})
	}
	if g.Repeat != nil {
		writeMetadataLine(b, "REPEAT", map[string]string{"count": strconv.Itoa(g.Repeat.Count)})
	}
	if g.Part != nil {
		writeMetadataLine(b, "PART", map[string]string{"name": g.Part.Name})
	}
}

// writeStave re-encodes one position's notes across every beat of the
// gongan back into font symbols, tab-separated. A position carrying more
// than one pass-qualified measure variant (a construction-time exception,
// see internal/binding/construct.go) is written back as one stave line per
// variant index, each tagged with its own pass suffix, matching the
// "tag:from-to" stave-line grammar those variants were parsed from.
func writeStave(b *strings.Builder, g score.Gongan, pos score.Position, font *tables.FontTable) error {
	streams := maxVariantCount(g, pos)
	for vi := 0; vi < streams; vi++ {
		b.WriteString(tagWithPassSuffix(string(pos), streamPass(g, pos, vi)))
		for _, beat := range g.Beats {
			variants := beat.Measures[pos]
			if vi >= len(variants) {
				b.WriteString("\t")
				continue
			}
			b.WriteString("\t")
			syms, err := encodeNotes(variants[vi].Notes, font)
			if err != nil {
				return err
			}
			b.WriteString(syms)
		}
		b.WriteString("\n")
	}
	return nil
}

// maxVariantCount is the number of stave lines position pos needs across
// the whole gongan, i.e. the largest measure-variant count seen at any beat.
func maxVariantCount(g score.Gongan, pos score.Position) int {
	max := 0
	for _, beat := range g.Beats {
		if n := len(beat.Measures[pos]); n > max {
			max = n
		}
	}
	return max
}

// streamPass reports the pass restriction of variant index vi, taken from
// whichever beat first carries that many variants.
func streamPass(g score.Gongan, pos score.Position, vi int) score.PassSelector {
	for _, beat := range g.Beats {
		if variants := beat.Measures[pos]; vi < len(variants) {
			return variants[vi].Pass
		}
	}
	return score.DefaultPass()
}

func tagWithPassSuffix(tag string, pass score.PassSelector) string {
	if pass.All {
		return tag
	}
	if pass.From == pass.To {
		return fmt.Sprintf("%s:%d", tag, pass.From)
	}
	return fmt.Sprintf("%s:%d-%d", tag, pass.From, pass.To)
}

func encodeNotes(notes []score.Note, font *tables.FontTable) (string, error) {
	var b strings.Builder
	for _, n := range notes {
		kind := tables.SymbolNote
		if n.IsRest() {
			kind = tables.SymbolRest
		}
		r, ok := font.ReverseNote(kind, n.Pitch, n.Octave, n.Stroke, n.Duration, n.RestAfter)
		if !ok {
			return "", fmt.Errorf("scoretonotation: no font symbol for %s octave %d stroke %s", n.Pitch, n.Octave, n.Stroke)
		}
		b.WriteRune(r)
		for _, mod := range n.Modifiers {
			mr, ok := font.ReverseModifier(mod)
			if ok {
				b.WriteRune(mr)
			}
		}
	}
	return b.String(), nil
}
