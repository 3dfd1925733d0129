// Package dialogue models Vampire: The Masquerade - Bloodlines branching
// dialogue files as a graph of NPC lines and player replies.
//
// # Overview
//
// A .dlg file is an ordered list of lines. Each line either belongs to the
// NPC (no jump target) or is a player reply that leads to another NPC line.
// Two relations give the list its graph structure:
//
//   - leads-to: a reply's Next field names the NPC line the conversation
//     jumps to after the reply is chosen
//   - answers: a reply's ParentLine names the NPC line it is an answer to
//
// The leads-to relation is authored data; the answers relation is derived
// from file order, since the format groups replies under the NPC line they
// belong to. File order is therefore meaningful and this package preserves
// it everywhere.
//
// # Basic Usage
//
// Build a [Table] from rows parsed out of a file, then query it:
//
//	t, err := dialogue.NewTable(rows)
//	if err != nil {
//	    return err
//	}
//	comps := dialogue.Components(t.Rows())
//	row, ok := t.Get(42)
//
// A [Table] enforces index uniqueness and keeps an index lookup in sync with
// the ordered row list. Structural edits (insert, remove, renumber) go
// through Table methods so both views stay consistent.
//
// # Parent Inference
//
// Two inference modes exist and they are deliberately different:
//
//   - [InferParents] recomputes every ParentLine from file order,
//     overwriting whatever was there. NPC lines get nil.
//   - [FillMissingParents] only assigns rows whose ParentLine is nil and
//     never touches explicit values.
//
// The layered layout uses the first mode, connectivity and the forest
// layout use the second. Callers that persist rows to JSON normalize with
// [InferParents] first so the stored parent field matches file order.
//
// # Cycles and Broken References
//
// Dialogue graphs are not acyclic: loops back to earlier NPC lines are how
// the format expresses repeatable conversation hubs. Every traversal in
// this package carries a visited set and terminates on arbitrary input.
// References that point at missing indices are reported by [Analyze] as
// warnings, never errors; game data in the wild contains them.
//
// # Concurrency
//
// Table instances are not safe for concurrent use. Callers must serialize
// access, which matches the single-editor model of the application.
package dialogue
