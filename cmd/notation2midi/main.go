package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gamelan-notation/notation2midi/internal/gamelog"
	"github.com/gamelan-notation/notation2midi/internal/pipeline"
	"github.com/gamelan-notation/notation2midi/internal/runconfig"
	"github.com/gamelan-notation/notation2midi/internal/tables"

	"gitlab.com/gomidi/midi/v2/smf"
)

func main() {
	configPath := flag.String("config", "", "path to the run configuration YAML file")
	notationPath := flag.String("notation", "", "path to the notation file to transcribe (overrides piece_name/notation_dir)")
	outPath := flag.String("out", "", "output MIDI file path (overrides output_dir/piece_name)")
	flag.Parse()

	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "-config is required")
		os.Exit(1)
	}

	cfg, err := runconfig.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := gamelog.New(os.Stderr, cfg.DetailedValidationLogging)

	tbl, terrs := tables.LoadAll(cfg.Tables.Font, cfg.Tables.Instruments, cfg.Tables.Tags, cfg.Tables.Rules, cfg.Tables.MIDINotes, cfg.FontVersion)
	if len(terrs) > 0 {
		for _, e := range terrs {
			log.Errorf("tables: %v", e)
		}
		os.Exit(1)
	}

	notation := *notationPath
	if notation == "" {
		notation = filepath.Join(cfg.NotationDir, cfg.PieceName)
	}

	result, err := pipeline.Run(cfg, notation, tbl, log)
	if err != nil {
		log.Errorf("pipeline aborted: %v", err)
		os.Exit(1)
	}

	if cfg.SaveMIDIFile && result.MIDI != nil {
		out := *outPath
		if out == "" {
			out = filepath.Join(cfg.OutputDir, cfg.PieceName+".mid")
		}
		if err := writeMIDI(result.MIDI, out); err != nil {
			log.Errorf("OutputFileWriteError: %v", err)
			os.Exit(1)
		}
		log.Infof("wrote %s", out)
	}

	if cfg.SaveCorrectedToFile && result.Notation != "" {
		correctedPath := filepath.Join(cfg.OutputDir, cfg.PieceName+".corrected.txt")
		if err := os.WriteFile(correctedPath, []byte(result.Notation), 0o644); err != nil {
			log.Errorf("OutputFileWriteError: %v", err)
			os.Exit(1)
		}
		log.Infof("wrote %s", correctedPath)
	}

	for _, w := range result.AllWarnings {
		log.Warnf("%s", w.Error())
	}

	log.Infof("pipeline completed cleanly")
}

func writeMIDI(s *smf.SMF, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return s.WriteFile(path)
}
