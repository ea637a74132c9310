package rawnotation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/gamelan-notation/notation2midi/internal/errlog"
	"github.com/gamelan-notation/notation2midi/internal/tables"
)

var rxPassSpec = regexp.MustCompile(`^(.*):(\d+)(-(\d+))?$`)
var rxDirectiveHead = regexp.MustCompile(`^([A-Za-z_]+)\s*(.*)$`)

// Parse turns the raw text of a notation file into a RawNotation tree,
// collecting every error it finds along the way rather than stopping at
// the first bad line; the caller decides whether to abort before the
// next stage.
func Parse(file, content string, font *tables.FontTable) (*RawNotation, *errlog.Collector) {
	c := errlog.New("parse")
	lines := splitLines(content)

	groups := groupIntoGongans(lines)

	rn := &RawNotation{}
	start := 0
	if len(groups) > 0 && !groupHasStave(groups[0]) {
		rn.Unbound = parseLines(file, groups[0], font, c)
		start = 1
	}
	for _, g := range groups[start:] {
		rn.Gongans = append(rn.Gongans, RawGongan{Lines: parseLines(file, g, font, c)})
	}
	return rn, c
}

type rawTextLine struct {
	num  int
	text string
}

func splitLines(content string) []rawTextLine {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	parts := strings.Split(content, "\n")
	out := make([]rawTextLine, len(parts))
	for i, p := range parts {
		out[i] = rawTextLine{num: i + 1, text: p}
	}
	return out
}

// groupIntoGongans splits the line list into maximal runs of non-empty
// lines, dropping the separating blank runs.
func groupIntoGongans(lines []rawTextLine) [][]rawTextLine {
	var groups [][]rawTextLine
	var cur []rawTextLine
	for _, l := range lines {
		if strings.TrimSpace(l.text) == "" {
			if len(cur) > 0 {
				groups = append(groups, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, l)
	}
	if len(cur) > 0 {
		groups = append(groups, cur)
	}
	return groups
}

// groupHasStave reports whether any line in the group looks like a stave
// line (i.e. not a metadata or comment line), used to detect the leading
// unbound block.
func groupHasStave(group []rawTextLine) bool {
	for _, l := range group {
		if classify(l.text) == LineStave {
			return true
		}
	}
	return false
}

func classify(text string) LineKind {
	trimmed := strings.TrimLeft(text, " ")
	fields := strings.SplitN(text, "\t", 2)
	first := fields[0]
	switch {
	case first == "metadata", strings.HasPrefix(strings.TrimSpace(text), "{"):
		return LineMetadata
	case first == "comment":
		return LineComment
	case strings.HasPrefix(trimmed, "#") || (len(fields) > 1 && strings.HasPrefix(strings.TrimSpace(fields[1]), "#") && first == ""):
		return LineComment
	default:
		return LineStave
	}
}

func parseLines(file string, group []rawTextLine, font *tables.FontTable, c *errlog.Collector) []RawLine {
	var out []RawLine
	for _, l := range group {
		rl, err := parseLine(file, l, font)
		if err != nil {
			c.Add(errlog.KindParse, "LineParseError", errlog.Location{File: file, Line: l.num}, "%v", err)
			continue
		}
		out = append(out, rl)
	}
	return out
}

func parseLine(file string, l rawTextLine, font *tables.FontTable) (RawLine, error) {
	switch classify(l.text) {
	case LineMetadata:
		return parseMetadataLine(file, l)
	case LineComment:
		return parseCommentLine(l), nil
	default:
		return parseStaveLine(file, l, font)
	}
}

func parseCommentLine(l rawTextLine) RawLine {
	text := l.text
	if idx := strings.Index(text, "#"); idx >= 0 {
		text = text[idx+1:]
	} else if idx := strings.Index(text, "\t"); idx >= 0 {
		text = text[idx+1:]
	}
	return RawLine{Kind: LineComment, Comment: &RawComment{Text: strings.TrimSpace(text), Line: l.num}}
}

func parseMetadataLine(file string, l rawTextLine) (RawLine, error) {
	text := l.text
	if strings.HasPrefix(text, "metadata") {
		text = strings.TrimPrefix(text, "metadata")
	}
	text = strings.TrimLeft(text, "\t ")

	open := strings.Index(text, "{")
	close := strings.LastIndex(text, "}")
	if open < 0 || close < 0 || close < open {
		return RawLine{}, fmt.Errorf("UnterminatedMetadata: missing { or }")
	}
	body := strings.TrimSpace(text[open+1 : close])

	md, err := parseDirectiveBody(body)
	if err != nil {
		return RawLine{}, err
	}
	md.Line = l.num
	return RawLine{Kind: LineMetadata, Metadata: &md}, nil
}

// parseDirectiveBody parses `<KEYWORD> [k=v[, k=v]*]` into a keyword and a
// param map. A bracketed value (a list) is kept intact even though it
// contains commas.
func parseDirectiveBody(body string) (RawMetadata, error) {
	m := rxDirectiveHead.FindStringSubmatch(body)
	if m == nil {
		return RawMetadata{}, fmt.Errorf("MalformedDirective: empty directive body")
	}
	keyword := strings.ToUpper(m[1])
	rest := strings.TrimSpace(m[2])

	params := map[string]string{}
	for _, part := range splitTopLevelCommas(rest) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, val, ok := strings.Cut(part, "=")
		if !ok {
			// positional value with the keyword's default param name,
			// resolved by the caller (score construction) against the
			// directive schema.
			params[""] = strings.TrimSpace(part)
			continue
		}
		params[strings.TrimSpace(key)] = strings.TrimSpace(val)
	}
	return RawMetadata{Keyword: keyword, Params: params}, nil
}

// splitTopLevelCommas splits on commas that are not inside [...] brackets.
func splitTopLevelCommas(s string) []string {
	var out []string
	depth := 0
	start := 0
	for i, r := range s {
		switch r {
		case '[':
			depth++
		case ']':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	out = append(out, s[start:])
	return out
}

func parseStaveLine(file string, l rawTextLine, font *tables.FontTable) (RawLine, error) {
	fields := strings.Split(l.text, "\t")
	if len(fields) < 1 || strings.TrimSpace(fields[0]) == "" {
		return RawLine{}, fmt.Errorf("LineParseError: empty position tag")
	}

	tagField := strings.TrimSpace(fields[0])
	tag, pass, err := parsePassSpec(tagField)
	if err != nil {
		return RawLine{}, err
	}

	stave := &RawStave{Tag: tag, Pass: pass, Line: l.num}
	for _, beatText := range fields[1:] {
		if strings.TrimSpace(beatText) == "" {
			stave.Beats = append(stave.Beats, nil)
			continue
		}
		symbols, err := decodeBeat(l.num, beatText, font)
		if err != nil {
			return RawLine{}, err
		}
		stave.Beats = append(stave.Beats, symbols)
	}
	return RawLine{Kind: LineStave, Stave: stave}, nil
}

// parsePassSpec splits "tag:3" or "tag:2-4" from a plain tag. An open-ended
// range like "tag:1-" is explicitly rejected.
func parsePassSpec(field string) (string, PassSpec, error) {
	if strings.HasSuffix(field, "-") {
		if idx := strings.LastIndex(field, ":"); idx >= 0 {
			return "", PassSpec{}, fmt.Errorf("MalformedDirective: open-ended pass range %q is not supported", field)
		}
	}
	m := rxPassSpec.FindStringSubmatch(field)
	if m == nil {
		return field, PassSpec{All: true}, nil
	}
	tag := m[1]
	from, err := strconv.Atoi(m[2])
	if err != nil {
		return "", PassSpec{}, fmt.Errorf("MalformedDirective: invalid pass number in %q", field)
	}
	to := from
	if m[4] != "" {
		to, err = strconv.Atoi(m[4])
		if err != nil {
			return "", PassSpec{}, fmt.Errorf("MalformedDirective: invalid pass range in %q", field)
		}
	}
	return tag, PassSpec{From: from, To: to}, nil
}

// decodeBeat scans the unicode stream of one beat group: each
// non-combining character starts a new symbol; subsequent combining
// characters attach to it as modifiers.
func decodeBeat(line int, text string, font *tables.FontTable) ([]SymbolRune, error) {
	var out []SymbolRune
	col := 0
	for _, r := range text {
		col++
		if unicode.IsSpace(r) {
			continue
		}
		entry, ok := font.Lookup(r)
		if !ok {
			return nil, fmt.Errorf("UnknownSymbolError: unknown symbol %q at line %d col %d", r, line, col)
		}
		if entry.Combining && len(out) > 0 {
			out[len(out)-1].Modifiers = append(out[len(out)-1].Modifiers, r)
			continue
		}
		out = append(out, SymbolRune{Base: r, Line: line, Col: col})
	}
	return out, nil
}
