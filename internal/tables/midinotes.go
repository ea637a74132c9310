package tables

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gamelan-notation/notation2midi/internal/score"
)

// Preset is the PROGRAM_CHANGE payload for one instrument
// preamble).
type Preset struct {
	Bank    uint8
	Program uint8
}

// MIDINoteKey identifies one midinotes.tsv row's lookup dimensions.
type MIDINoteKey struct {
	Group          string
	InstrumentType string
	Position       score.Position // empty means "any position of this type"
	Pitch          score.Pitch
	Octave         int
	Stroke         score.Stroke
}

type midiNoteRow struct {
	key    MIDINoteKey
	note   uint8
	preset Preset
}

// MIDINotesTable resolves (group, instrument type, position, pitch, octave,
// stroke) to a concrete MIDI note number and the instrument's preset.
type MIDINotesTable struct {
	rows []midiNoteRow
}

// Lookup finds the MIDI note number for the given coordinates. It first
// tries an exact position match, then falls back to the position-agnostic
// row for the same instrument type.
func (t *MIDINotesTable) Lookup(group, instrumentType string, position score.Position, po score.PitchOctave, stroke score.Stroke) (uint8, bool) {
	var fallback *midiNoteRow
	for i := range t.rows {
		r := &t.rows[i]
		if r.key.Group != group || r.key.InstrumentType != instrumentType {
			continue
		}
		if r.key.Pitch != po.Pitch || r.key.Octave != po.Octave || r.key.Stroke != stroke {
			continue
		}
		if r.key.Position == position {
			return r.note, true
		}
		if r.key.Position == "" {
			fallback = r
		}
	}
	if fallback != nil {
		return fallback.note, true
	}
	return 0, false
}

// Preset returns the PROGRAM_CHANGE preset for the given instrument.
func (t *MIDINotesTable) Preset(group, instrumentType string, position score.Position) (Preset, bool) {
	var fallback *midiNoteRow
	for i := range t.rows {
		r := &t.rows[i]
		if r.key.Group != group || r.key.InstrumentType != instrumentType {
			continue
		}
		if r.key.Position == position {
			return r.preset, true
		}
		if r.key.Position == "" {
			fallback = r
		}
	}
	if fallback != nil {
		return fallback.preset, true
	}
	return Preset{}, false
}

// LoadMIDINotes parses a midinotes.tsv reference table.
func LoadMIDINotes(r io.Reader) (*MIDINotesTable, []error) {
	const table = "midinotes"
	var errs []error

	header, rows, err := readTSV(r)
	if err != nil {
		return nil, []error{err}
	}
	required := []string{"instrument_group", "instrument_type", "positions", "pitch", "octave", "stroke", "midi_note", "bank", "program"}
	if err := requireColumns(table, header, required...); err != nil {
		return nil, []error{err}
	}

	mt := &MIDINotesTable{}
	for i, rr := range rows {
		rowNum := i + 1
		octave, err := strconv.Atoi(strings.TrimSpace(rr["octave"]))
		if err != nil {
			errs = append(errs, &RowParseError{Table: table, Row: rowNum, Err: fmt.Errorf("octave: %w", err)})
			continue
		}
		note, err := strconv.Atoi(strings.TrimSpace(rr["midi_note"]))
		if err != nil || note < 0 || note > 127 {
			errs = append(errs, &RowParseError{Table: table, Row: rowNum, Err: fmt.Errorf("midi_note: invalid value %q", rr["midi_note"])})
			continue
		}
		bank, _ := strconv.Atoi(strings.TrimSpace(rr["bank"]))
		program, _ := strconv.Atoi(strings.TrimSpace(rr["program"]))

		positions := splitList(rr["positions"])
		if len(positions) == 0 {
			positions = []string{""}
		}
		for _, p := range positions {
			mt.rows = append(mt.rows, midiNoteRow{
				key: MIDINoteKey{
					Group:          rr["instrument_group"],
					InstrumentType: rr["instrument_type"],
					Position:       score.Position(p),
					Pitch:          score.Pitch(strings.ToUpper(rr["pitch"])),
					Octave:         octave,
					Stroke:         score.Stroke(strings.ToUpper(rr["stroke"])),
				},
				note:   uint8(note),
				preset: Preset{Bank: uint8(bank), Program: uint8(program)},
			})
		}
	}
	return mt, errs
}
