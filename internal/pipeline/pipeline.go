// Package pipeline wires the nine pipeline stages into a single Agent
// sequence. Each agent declares its input/output types
// through its own function signature; the pipeline aborts before handing a
// stage-scoped error collector's failures on to the next stage.
package pipeline

import (
	"fmt"
	"os"

	"github.com/gamelan-notation/notation2midi/internal/binding"
	"github.com/gamelan-notation/notation2midi/internal/completion"
	"github.com/gamelan-notation/notation2midi/internal/errlog"
	"github.com/gamelan-notation/notation2midi/internal/execution"
	"github.com/gamelan-notation/notation2midi/internal/gamelog"
	"github.com/gamelan-notation/notation2midi/internal/midiemit"
	"github.com/gamelan-notation/notation2midi/internal/pattern"
	"github.com/gamelan-notation/notation2midi/internal/rawnotation"
	"github.com/gamelan-notation/notation2midi/internal/runconfig"
	"github.com/gamelan-notation/notation2midi/internal/score"
	"github.com/gamelan-notation/notation2midi/internal/scoretonotation"
	"github.com/gamelan-notation/notation2midi/internal/tables"
	"github.com/gamelan-notation/notation2midi/internal/validate"

	"gitlab.com/gomidi/midi/v2/smf"
)

// Result is the pipeline's terminal artifact plus everything a caller might
// want to persist along the way.
type Result struct {
	Score       score.Score
	Execution   score.Execution
	MIDI        *smf.SMF
	Notation    string
	AllWarnings []errlog.Entry
}

// Run drives all nine stages in order, aborting at the first stage boundary
// that produced a hard error.
func Run(cfg runconfig.RunConfig, notationPath string, tbl *tables.All, log *gamelog.Logger) (Result, error) {
	if errs := runconfig.Validate(cfg); len(errs) > 0 {
		return Result{}, joinErrors("settings validation", errs)
	}

	content, err := os.ReadFile(notationPath)
	if err != nil {
		return Result{}, fmt.Errorf("InputFileMissing: %w", err)
	}

	settings := settingsFromConfig(cfg)

	raw, c := rawnotation.Parse(notationPath, string(content), tbl.Font)
	if err := abort(log, c); err != nil {
		return Result{}, err
	}

	sc, c := binding.Construct(notationPath, raw, tbl.Font, settings)
	if err := abort(log, c); err != nil {
		return Result{}, err
	}
	constructed := sc.Clone()

	sc, c = binding.Bind(notationPath, sc, settings.InstrumentGroup, tbl.Tags, tbl.Instruments, tbl.Rules)
	if err := abort(log, c); err != nil {
		return Result{}, err
	}

	groupRules, _ := tbl.Rules.Lookup(settings.InstrumentGroup)
	sc, c = pattern.Elaborate(notationPath, sc, groupRules)
	if err := abort(log, c); err != nil {
		return Result{}, err
	}

	sc, c = completion.Complete(notationPath, sc, tbl.Instruments)
	if err := abort(log, c); err != nil {
		return Result{}, err
	}

	sc, c = validate.Validate(notationPath, sc, tbl.Instruments, tbl.Rules, settings.InstrumentGroup)
	warnings := c.Warnings()
	if err := abort(log, c); err != nil {
		return Result{}, err
	}

	exec, c := execution.Linearize(notationPath, sc)
	if err := abort(log, c); err != nil {
		return Result{}, err
	}

	var mid *smf.SMF
	if cfg.SaveMIDIFile {
		mid, c = midiemit.Emit(notationPath, sc, exec, tbl.Instruments, tbl.MIDINotes)
		if err := abort(log, c); err != nil {
			return Result{}, err
		}
	}

	var notationText string
	if cfg.SaveCorrectedToFile {
		notationText, err = scoretonotation.Write(raw, constructed, tbl.Font)
		if err != nil {
			log.Warnf("scoretonotation: %v", err)
		}
	}

	return Result{Score: sc, Execution: exec, MIDI: mid, Notation: notationText, AllWarnings: warnings}, nil
}

func abort(log *gamelog.Logger, c *errlog.Collector) error {
	for _, w := range c.Warnings() {
		log.Warnf("%s: %s", c.Stage, w.Error())
	}
	if !c.HasErrors() {
		return nil
	}
	for _, e := range c.Errors() {
		log.Errorf("%s: %s", c.Stage, e.Error())
	}
	return c.Err()
}

func joinErrors(stage string, errs []error) error {
	msg := stage + ":"
	for _, e := range errs {
		msg += "\n  " + e.Error()
	}
	return fmt.Errorf("%s", msg)
}

// settingsFromConfig materializes the score-wide ProcessSettings from the
// run configuration.
func settingsFromConfig(cfg runconfig.RunConfig) score.ProcessSettings {
	shorthand := map[score.Position]bool{}
	for _, p := range cfg.ShorthandPositions {
		shorthand[score.Position(p)] = true
	}
	return score.ProcessSettings{
		PPQ:                       cfg.PPQ,
		BaseNoteTicks:             cfg.BaseNoteTicks,
		FontVersion:               cfg.FontVersion,
		InstrumentGroup:           cfg.InstrumentGroup,
		DynamicsMap:               cfg.DynamicsMap,
		AcceleratingPattern:       cfg.AcceleratingPattern,
		AcceleratingVelocity:      cfg.AcceleratingVelocity,
		NotesPerQuarterNote:       cfg.NotesPerQuarterNote,
		BaseNotesPerBeat:          cfg.BaseNotesPerBeat,
		AutocorrectKempyung:       cfg.AutocorrectKempyung,
		DetailedValidationLogging: cfg.DetailedValidationLogging,
		BeatAtEnd:                 cfg.BeatAtEnd,
		ShorthandPositions:        shorthand,
		SilenceSecondsBeforeStart: cfg.SilenceSecondsBeforeStart,
		SilenceSecondsAfterEnd:    cfg.SilenceSecondsAfterEnd,
	}
}
