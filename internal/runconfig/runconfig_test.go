package runconfig

import "testing"

func validConfig() RunConfig {
	cfg := Default()
	cfg.PieceName = "test-piece"
	cfg.NotationDir = "notation"
	cfg.FontVersion = "v1"
	cfg.Tables = TablePaths{
		Font:        "font.tsv",
		Instruments: "instruments.tsv",
		Tags:        "tags.tsv",
		Rules:       "rules.tsv",
		MIDINotes:   "midinotes.tsv",
	}
	return cfg
}

func TestValidateAcceptsWellFormedConfig(t *testing.T) {
	if errs := Validate(validConfig()); len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
}

func TestValidateRequiresPieceNameForRunSingle(t *testing.T) {
	cfg := validConfig()
	cfg.PieceName = ""
	errs := Validate(cfg)
	if len(errs) == 0 {
		t.Fatalf("expected an error for a missing piece_name")
	}
}

func TestValidateAllowsMissingPieceNameForRunAll(t *testing.T) {
	cfg := validConfig()
	cfg.RunType = RunAll
	cfg.PieceName = ""
	if errs := Validate(cfg); len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
}

func TestValidateRequiresOutputDirWhenSavingMIDI(t *testing.T) {
	cfg := validConfig()
	cfg.SaveMIDIFile = true
	errs := Validate(cfg)
	found := false
	for _, e := range errs {
		if e.Error() == "runconfig: output_dir is required when save_midifile is set" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected an output_dir error, got %v", errs)
	}
}

func TestValidateRejectsNonPositivePPQAndBaseNoteTicks(t *testing.T) {
	cfg := validConfig()
	cfg.PPQ = 0
	cfg.BaseNoteTicks = -1
	errs := Validate(cfg)
	if len(errs) < 2 {
		t.Fatalf("expected at least 2 errors, got %v", errs)
	}
}

func TestValidateReportsEveryMissingTablePath(t *testing.T) {
	cfg := validConfig()
	cfg.Tables = TablePaths{}
	errs := Validate(cfg)
	if len(errs) != 5 {
		t.Fatalf("expected 5 missing-table errors, got %d: %v", len(errs), errs)
	}
}

func TestValidateRejectsUnknownRunType(t *testing.T) {
	cfg := validConfig()
	cfg.RunType = "NOT_A_RUNTYPE"
	errs := Validate(cfg)
	found := false
	for _, e := range errs {
		if e.Error() == `runconfig: unknown runtype "NOT_A_RUNTYPE"` {
			found = true
		}
	}
	if !found {
		t.Errorf("expected an unknown-runtype error, got %v", errs)
	}
}
