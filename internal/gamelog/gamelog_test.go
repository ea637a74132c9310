package gamelog

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewDefaultsToInfoLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, false)
	l.Debug("should not appear")
	l.Info("should appear")
	out := buf.String()
	if strings.Contains(out, "should not appear") {
		t.Errorf("debug line leaked at default level: %q", out)
	}
	if !strings.Contains(out, "should appear") {
		t.Errorf("info line missing: %q", out)
	}
}

func TestNewDetailedLowersToDebugLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, true)
	l.Debug("autocorrect detail")
	if !strings.Contains(buf.String(), "autocorrect detail") {
		t.Errorf("expected debug line to appear when detailed logging is on, got %q", buf.String())
	}
}

func TestStageTagsSubsequentLines(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, false)
	staged := l.Stage("validate")
	staged.Info("checked beat length")
	out := buf.String()
	if !strings.Contains(out, "stage=validate") {
		t.Errorf("expected stage=validate in output, got %q", out)
	}
}

func TestNewFallsBackToStderrOnNilWriter(t *testing.T) {
	l := New(nil, false)
	if l == nil || l.Logger == nil {
		t.Fatalf("expected a non-nil logger")
	}
}
