package tables

import (
	"fmt"
	"os"
)

// All bundles the five loaded reference tables, the typed input every later
// stage's binding/elaboration/emission code looks things up in.
type All struct {
	Font        *FontTable
	Instruments *InstrumentsTable
	Tags        *TagsTable
	Rules       *RulesTable
	MIDINotes   *MIDINotesTable
}

// LoadAll reads every reference table from disk, collecting errors from all
// five files before returning rather than stopping at the first failure.
func LoadAll(fontPath, instrumentsPath, tagsPath, rulesPath, midiNotesPath, fontVersion string) (*All, []error) {
	var errs []error
	all := &All{}

	if f, err := os.Open(fontPath); err != nil {
		errs = append(errs, fmt.Errorf("tables: open font table: %w", err))
	} else {
		defer f.Close()
		font, ferrs := LoadFont(f, fontVersion)
		all.Font = font
		errs = append(errs, ferrs...)
	}

	if f, err := os.Open(instrumentsPath); err != nil {
		errs = append(errs, fmt.Errorf("tables: open instruments table: %w", err))
	} else {
		defer f.Close()
		instruments, ferrs := LoadInstruments(f)
		all.Instruments = instruments
		errs = append(errs, ferrs...)
	}

	if f, err := os.Open(tagsPath); err != nil {
		errs = append(errs, fmt.Errorf("tables: open tags table: %w", err))
	} else {
		defer f.Close()
		tags, ferrs := LoadTags(f)
		all.Tags = tags
		errs = append(errs, ferrs...)
	}

	if f, err := os.Open(rulesPath); err != nil {
		errs = append(errs, fmt.Errorf("tables: open rules table: %w", err))
	} else {
		defer f.Close()
		rules, ferrs := LoadRules(f)
		all.Rules = rules
		errs = append(errs, ferrs...)
	}

	if f, err := os.Open(midiNotesPath); err != nil {
		errs = append(errs, fmt.Errorf("tables: open midi notes table: %w", err))
	} else {
		defer f.Close()
		midiNotes, ferrs := LoadMIDINotes(f)
		all.MIDINotes = midiNotes
		errs = append(errs, ferrs...)
	}

	return all, errs
}
