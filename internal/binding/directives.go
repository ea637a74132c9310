package binding

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gamelan-notation/notation2midi/internal/score"
)

// params wraps a raw metadata param map with lookups that understand the
// "first positional argument has a default name" rule.
type params map[string]string

func (p params) get(key, positionalDefault string) (string, bool) {
	if v, ok := p[key]; ok {
		return v, true
	}
	if positionalDefault == key {
		if v, ok := p[""]; ok {
			return v, true
		}
	}
	return "", false
}

func (p params) str(key, defaultName, fallback string) string {
	v, ok := p.get(key, defaultName)
	if !ok {
		return fallback
	}
	return v
}

func (p params) intVal(key, defaultName string, fallback int) (int, error) {
	v, ok := p.get(key, defaultName)
	if !ok {
		return fallback, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("MalformedDirective: %s=%q is not an integer", key, v)
	}
	return n, nil
}

func (p params) floatVal(key, defaultName string, fallback float64) (float64, error) {
	v, ok := p.get(key, defaultName)
	if !ok {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, fmt.Errorf("MalformedDirective: %s=%q is not a number", key, v)
	}
	return f, nil
}

func (p params) boolVal(key, defaultName string, fallback bool) (bool, error) {
	v, ok := p.get(key, defaultName)
	if !ok {
		return fallback, nil
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	default:
		return false, fmt.Errorf("MalformedDirective: %s=%q is not a boolean", key, v)
	}
}

// stringList parses "[a, b, c]" or a bare "a" into a string slice.
func stringList(v string) []string {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "[")
	v = strings.TrimSuffix(v, "]")
	if v == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

func (p params) list(key, defaultName string) []string {
	v, ok := p.get(key, defaultName)
	if !ok {
		return nil
	}
	return stringList(v)
}

// passSelector parses a "passes=[1,2]" / "passes=all" param into a
// PassSelector. Absent means "all passes".
func (p params) passSelector(key, defaultName string) (score.PassSelector, error) {
	v, ok := p.get(key, defaultName)
	if !ok || strings.EqualFold(strings.TrimSpace(v), "all") {
		return score.DefaultPass(), nil
	}
	items := stringList(v)
	if len(items) == 0 {
		return score.DefaultPass(), nil
	}
	nums := make([]int, 0, len(items))
	for _, it := range items {
		n, err := strconv.Atoi(it)
		if err != nil {
			return score.PassSelector{}, fmt.Errorf("MalformedDirective: invalid pass number %q", it)
		}
		nums = append(nums, n)
	}
	if len(nums) == 1 {
		return score.SinglePass(nums[0]), nil
	}
	// PassSet keeps the exact membership, so a sparse list like [1,3] never
	// matches pass 2.
	return score.PassSet(nums), nil
}

// beatSelector parses a "beats=[1,3]" / "beats=all" param into a
// BeatSelector.
func (p params) beatSelector(key, defaultName string) (score.BeatSelector, error) {
	v, ok := p.get(key, defaultName)
	if !ok || strings.EqualFold(strings.TrimSpace(v), "all") {
		return score.AllBeats(), nil
	}
	var beats []int
	for _, it := range stringList(v) {
		n, err := strconv.Atoi(it)
		if err != nil {
			return score.BeatSelector{}, fmt.Errorf("MalformedDirective: invalid beat number %q", it)
		}
		beats = append(beats, n)
	}
	return score.BeatSelector{Beats: beats}, nil
}

func (p params) positions(key, defaultName string) []score.Position {
	var out []score.Position
	for _, s := range p.list(key, defaultName) {
		out = append(out, score.Position(s))
	}
	return out
}
