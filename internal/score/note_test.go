package score

import "testing"

func TestRest(t *testing.T) {
	r := Rest(NewFrac(1, 2))
	if !r.IsRest() {
		t.Errorf("Rest() should report IsRest")
	}
	if !r.Duration.IsZero() {
		t.Errorf("Rest() should have zero audible duration")
	}
	if r.RestAfter.Cmp(NewFrac(1, 2)) != 0 {
		t.Errorf("Rest() should carry the requested span as RestAfter")
	}
}

func TestNoteTotalDuration(t *testing.T) {
	n := Note{Duration: NewFrac(1, 4), RestAfter: NewFrac(1, 4)}
	if got := n.TotalDuration(); got.Cmp(NewFrac(1, 2)) != 0 {
		t.Errorf("TotalDuration = %s, want 1/2", got)
	}
}

func TestHasModifier(t *testing.T) {
	n := Note{Modifiers: []Modifier{ModTremolo, ModOctaveUp}}
	if !n.HasModifier(ModTremolo) {
		t.Errorf("expected ModTremolo present")
	}
	if n.HasModifier(ModNorot) {
		t.Errorf("did not expect ModNorot present")
	}
}
