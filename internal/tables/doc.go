// Package tables loads the five read-only reference tables:
// font, instruments, tag-to-positions, rules, and MIDI notes. Each is a
// tab-separated file with a header row; loaders validate the required
// columns and collect row-level errors instead of failing on the first bad
// row, the same discipline the parser uses for notation lines.
//
// Column layouts:
//
//	font.tsv:        symbol	kind	pitch	octave_delta	stroke	duration	rest_after	combining
//	instruments.tsv: instrument_group	position	instrument_type	range	extended_range
//	tags.tsv:        tag	positions
//	rules.tsv:       instrument_group	kempyung_pairs	shared_rules
//	midinotes.tsv:   instrument_group	instrument_type	positions	pitch	octave	stroke	midi_note	bank	program
package tables
