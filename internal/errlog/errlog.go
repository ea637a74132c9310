// Package errlog provides the stage-scoped error accumulator used by every
// pipeline agent. Agents collect as many domain errors as they can before
// returning so a single run surfaces the full set of problems in one pass,
// instead of failing at the first one.
package errlog

import (
	"fmt"
	"strings"
)

// Kind buckets an error into the taxonomy from the error handling design:
// Parse, Resolution, Structural, Execution, IO.
type Kind string

const (
	KindParse      Kind = "parse"
	KindResolution Kind = "resolution"
	KindStructural Kind = "structural"
	KindExecution  Kind = "execution"
	KindIO         Kind = "io"
)

// Location pinpoints where an error occurred. Zero fields are omitted when
// formatting. File/Line/Column describe a notation-text position; Gongan/
// Beat/Position describe a structural position within the score.
type Location struct {
	File   string
	Line   int
	Column int

	Gongan   int
	Beat     int
	Position string
}

func (l Location) String() string {
	var parts []string
	if l.File != "" {
		if l.Line > 0 {
			parts = append(parts, fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column))
		} else {
			parts = append(parts, l.File)
		}
	}
	if l.Gongan > 0 {
		parts = append(parts, fmt.Sprintf("gongan %d", l.Gongan))
	}
	if l.Beat > 0 {
		parts = append(parts, fmt.Sprintf("beat %d", l.Beat))
	}
	if l.Position != "" {
		parts = append(parts, fmt.Sprintf("position %s", l.Position))
	}
	return strings.Join(parts, " ")
}

// Entry is one collected error or warning.
type Entry struct {
	Kind     Kind
	Code     string
	Location Location
	Message  string
	Warning  bool
}

func (e Entry) Error() string {
	loc := e.Location.String()
	if loc == "" {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, loc, e.Message)
}

// Collector accumulates entries for the duration of a single pipeline stage.
// It is never handed to a later stage; each stage starts its own Collector.
type Collector struct {
	Stage    string
	errors   []Entry
	warnings []Entry
}

// New returns a Collector scoped to the named stage.
func New(stage string) *Collector {
	return &Collector{Stage: stage}
}

// Add records a hard error. The stage may keep running afterwards to
// exhaustively enumerate further problems.
func (c *Collector) Add(kind Kind, code string, loc Location, format string, args ...any) {
	c.errors = append(c.errors, Entry{
		Kind:     kind,
		Code:     code,
		Location: loc,
		Message:  fmt.Sprintf(format, args...),
	})
}

// Warn records an autocorrection or advisory warning. Warnings never abort
// the pipeline.
func (c *Collector) Warn(kind Kind, code string, loc Location, format string, args ...any) {
	c.warnings = append(c.warnings, Entry{
		Kind:     kind,
		Code:     code,
		Location: loc,
		Message:  fmt.Sprintf(format, args...),
		Warning:  true,
	})
}

// Errors returns the accumulated hard errors in insertion order.
func (c *Collector) Errors() []Entry { return append([]Entry{}, c.errors...) }

// Warnings returns the accumulated warnings in insertion order.
func (c *Collector) Warnings() []Entry { return append([]Entry{}, c.warnings...) }

// HasErrors reports whether the stage should abort the pipeline.
func (c *Collector) HasErrors() bool { return len(c.errors) > 0 }

// Err collapses the collector into a single error suitable for returning
// from a stage boundary, or nil if there were no hard errors.
func (c *Collector) Err() error {
	if !c.HasErrors() {
		return nil
	}
	return &StageError{Stage: c.Stage, Entries: c.Errors()}
}

// StageError wraps every hard error collected during one stage.
type StageError struct {
	Stage   string
	Entries []Entry
}

func (e *StageError) Error() string {
	lines := make([]string, 0, len(e.Entries)+1)
	lines = append(lines, fmt.Sprintf("%s: %d error(s)", e.Stage, len(e.Entries)))
	for _, entry := range e.Entries {
		lines = append(lines, "  "+entry.Error())
	}
	return strings.Join(lines, "\n")
}
