// Package gamelog wraps charmbracelet/log with the stage-scoped logger
// shape every pipeline agent receives.
package gamelog

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// Logger is a thin wrapper that tags every line with the current pipeline
// stage and, when detailed validation logging is requested, lowers the
// level to Debug so per-note autocorrection messages are shown.
type Logger struct {
	*log.Logger
}

// New creates a console logger writing to w (os.Stderr in production runs).
func New(w io.Writer, detailed bool) *Logger {
	if w == nil {
		w = os.Stderr
	}
	lvl := log.InfoLevel
	if detailed {
		lvl = log.DebugLevel
	}
	l := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Level:           lvl,
	})
	return &Logger{Logger: l}
}

// Stage returns a child logger tagged with the given stage name.
func (l *Logger) Stage(name string) *Logger {
	return &Logger{Logger: l.Logger.With("stage", name)}
}
