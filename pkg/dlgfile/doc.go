// Package dlgfile reads and writes Vampire: The Masquerade - Bloodlines
// dialogue files, plus a JSON interchange form of the same data.
//
// # Format
//
// A .dlg file is line oriented. Each dialogue line consists of thirteen
// brace-delimited fields, optionally separated by whitespace:
//
//	{index}{male}{female}{next}{condition}{action}{u01}...{u06}{malkavian}
//
// The next field holds the jump target of a player reply, or '#' (or
// nothing) for NPC lines. Because '}' terminates a field, the format stores
// literal '}' as ']'; the codec translates in both directions. Lines that do
// not match the shape, or whose index or next field is not numeric, are
// skipped rather than failing the whole file, since shipped game files
// contain headers and junk lines.
//
// # Encodings
//
// Game files come in several encodings and carry no declaration. [Read]
// tries, in order: utf-8-sig, cp1251, utf-16-le, utf-16-be, latin-1. The
// first decode that produces no replacement characters wins, and its name is
// returned so the file can be written back the same way. [Write] accepts any
// of those names plus plain utf-8 (used after JSON import, where byte
// fidelity to an original .dlg no longer applies).
//
// # JSON Interchange
//
// [WriteJSON] and [ReadJSON] convert rows to and from the vtmb_dlg_2.0
// document shape: a metadata header and a flat node array. The node DTO
// carries bson tags as well, so the same shape serves the MongoDB-backed
// library store. Malformed node entries are skipped on import, and the
// legacy nesting {"clan": {"malkavian": ...}} is still understood.
//
// # Atomic Writes
//
// [Export] and [ExportJSON] write to a sibling temp file and rename it over
// the target, so a crash mid-save never truncates an existing file.
package dlgfile
