// Package runconfig models the process-level RunConfig and its
// settings-validation stage. Loading is YAML-based.
package runconfig

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RunType selects whether the pipeline processes one piece or the whole
// repertoire.
type RunType string

const (
	RunSingle RunType = "RUN_SINGLE"
	RunAll    RunType = "RUN_ALL"
)

// TablePaths locates the tab-separated reference tables.
type TablePaths struct {
	Font        string `yaml:"font"`
	Instruments string `yaml:"instruments"`
	Tags        string `yaml:"tags"`
	Rules       string `yaml:"rules"`
	MIDINotes   string `yaml:"midi_notes"`
}

// RunConfig is the typed input to stage 1 (settings validation) and stage 2
// (notation parse).
type RunConfig struct {
	RunType    RunType `yaml:"runtype"`
	PieceName  string  `yaml:"piece_name"`
	NotationDir string `yaml:"notation_dir"`
	OutputDir  string  `yaml:"output_dir"`

	IsProductionRun          bool `yaml:"is_production_run"`
	Autocorrect              bool `yaml:"autocorrect"`
	SaveCorrectedToFile      bool `yaml:"save_corrected_to_file"`
	SaveMIDIFile             bool `yaml:"save_midifile"`
	SavePDFNotation          bool `yaml:"save_pdf_notation"`
	DetailedValidationLogging bool `yaml:"detailed_validation_logging"`

	FontVersion string     `yaml:"font_version"`
	Tables      TablePaths `yaml:"tables"`

	PPQ           int `yaml:"ppq"`
	BaseNoteTicks int `yaml:"base_note_ticks"`

	SilenceSecondsBeforeStart float64 `yaml:"silence_seconds_before_start"`
	SilenceSecondsAfterEnd    float64 `yaml:"silence_seconds_after_end"`

	// BeatAtEnd selects the notation convention where the gong stroke (GIR)
	// is written at the end of a gongan's staves instead of its start;
	// completion rotates notes right by one beat to compensate.
	BeatAtEnd bool `yaml:"beat_at_end"`

	AutocorrectKempyung bool `yaml:"autocorrect_kempyung"`

	DynamicsMap map[string]uint8 `yaml:"dynamics_map"`

	AcceleratingPattern  []int   `yaml:"accelerating_pattern"`
	AcceleratingVelocity []uint8 `yaml:"accelerating_velocity"`

	NotesPerQuarterNote int `yaml:"notes_per_quarternote"`
	BaseNotesPerBeat    int `yaml:"base_notes_per_beat"`

	InstrumentGroup    string   `yaml:"instrument_group"`
	ShorthandPositions []string `yaml:"shorthand_positions"`
}

// Default returns the configuration's baseline values, overridden by
// whatever the YAML document supplies.
func Default() RunConfig {
	return RunConfig{
		RunType:             RunSingle,
		PPQ:                 96,
		BaseNoteTicks:       24,
		SilenceSecondsAfterEnd: 2,
		NotesPerQuarterNote: 4,
		BaseNotesPerBeat:    1,
	}
}

// Load reads and parses a YAML run configuration file.
func Load(path string) (RunConfig, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("runconfig: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("runconfig: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Validate is stage 1 of the pipeline: a pure function over RunConfig that
// returns every problem found, rather than stopping at the first one.
func Validate(cfg RunConfig) []error {
	var errs []error
	switch cfg.RunType {
	case RunSingle, RunAll:
	default:
		errs = append(errs, fmt.Errorf("runconfig: unknown runtype %q", cfg.RunType))
	}
	if cfg.RunType == RunSingle && cfg.PieceName == "" {
		errs = append(errs, fmt.Errorf("runconfig: piece_name is required for RUN_SINGLE"))
	}
	if cfg.NotationDir == "" {
		errs = append(errs, fmt.Errorf("runconfig: notation_dir is required"))
	}
	if cfg.SaveMIDIFile && cfg.OutputDir == "" {
		errs = append(errs, fmt.Errorf("runconfig: output_dir is required when save_midifile is set"))
	}
	if cfg.PPQ <= 0 {
		errs = append(errs, fmt.Errorf("runconfig: ppq must be positive, got %d", cfg.PPQ))
	}
	if cfg.BaseNoteTicks <= 0 {
		errs = append(errs, fmt.Errorf("runconfig: base_note_ticks must be positive, got %d", cfg.BaseNoteTicks))
	}
	if cfg.FontVersion == "" {
		errs = append(errs, fmt.Errorf("runconfig: font_version is required"))
	}
	for name, p := range map[string]string{
		"font":        cfg.Tables.Font,
		"instruments": cfg.Tables.Instruments,
		"tags":        cfg.Tables.Tags,
		"rules":       cfg.Tables.Rules,
		"midi_notes":  cfg.Tables.MIDINotes,
	} {
		if p == "" {
			errs = append(errs, fmt.Errorf("runconfig: tables.%s path is required", name))
		}
	}
	return errs
}
