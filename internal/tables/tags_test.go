package tables

import (
	"strings"
	"testing"

	"github.com/gamelan-notation/notation2midi/internal/score"
)

const tagsTSV = "tag\tpositions\n" +
	"gangsa\tpolos,sangsih\n" +
	"reyong\treyong1,reyong2,reyong3,reyong4\n"

func TestLoadTagsResolvesToMultiplePositions(t *testing.T) {
	tt, errs := LoadTags(strings.NewReader(tagsTSV))
	for _, e := range errs {
		t.Fatalf("unexpected load error: %v", e)
	}
	positions, ok := tt.Lookup("gangsa")
	if !ok {
		t.Fatalf("expected tag %q to resolve", "gangsa")
	}
	want := []score.Position{"polos", "sangsih"}
	if len(positions) != len(want) {
		t.Fatalf("positions = %v, want %v", positions, want)
	}
	for i := range want {
		if positions[i] != want[i] {
			t.Errorf("positions[%d] = %q, want %q", i, positions[i], want[i])
		}
	}
}

func TestLoadTagsUnknownTagLookupFails(t *testing.T) {
	tt, errs := LoadTags(strings.NewReader(tagsTSV))
	for _, e := range errs {
		t.Fatalf("unexpected load error: %v", e)
	}
	if _, ok := tt.Lookup("nosuchtag"); ok {
		t.Errorf("did not expect a match for an undeclared tag")
	}
}

func TestLoadTagsRejectsEmptyPositionsColumn(t *testing.T) {
	tsv := "tag\tpositions\n" + "orphan\t\n"
	_, errs := LoadTags(strings.NewReader(tsv))
	if len(errs) == 0 {
		t.Fatalf("expected an error for an empty positions column")
	}
}
