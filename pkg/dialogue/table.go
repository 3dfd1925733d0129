package dialogue

import (
	"errors"
	"strconv"
	"strings"
)

var (
	// ErrInvalidIndex is returned by [Table.Renumber] and the structural
	// edit methods when the requested index is negative. Zero is a legal
	// index: shipped files use it, and every index a table can hold must
	// survive a delete-then-undo round trip.
	ErrInvalidIndex = errors.New("row index must not be negative")

	// ErrDuplicateIndex is returned by [NewTable], [Table.Append],
	// [Table.InsertAt], and [Table.Renumber] when a row index would occur
	// twice. Row indices must be unique within a table.
	ErrDuplicateIndex = errors.New("duplicate row index")

	// ErrUnknownIndex is returned by methods that look up a row by index
	// when no row with that index exists.
	ErrUnknownIndex = errors.New("unknown row index")

	// ErrUnknownVariant is returned by [Row.SetVariant] for keys outside
	// [VariantKeys].
	ErrUnknownVariant = errors.New("unknown variant key")

	// ErrBadShift is returned by [Table.ShiftFrom] when the shift would
	// collide indices, make one negative, or (for negative deltas)
	// move values into a gap that is not provably free, which would make
	// the shift impossible to revert exactly.
	ErrBadShift = errors.New("shift would corrupt row numbering")
)

// Table is an ordered collection of dialogue rows with index lookup.
// File order is preserved: it drives parent inference and is part of the
// storage round-trip contract. The zero value is not usable; use [NewTable].
//
// Table is not safe for concurrent use without external synchronization.
type Table struct {
	rows []Row
	pos  map[int]int // index -> position in rows
}

// NewTable builds a table from rows, preserving their order. The input is
// deep-copied. Returns ErrDuplicateIndex if two rows share an index.
func NewTable(rows []Row) (*Table, error) {
	t := &Table{rows: CloneRows(rows), pos: make(map[int]int, len(rows))}
	for i, r := range t.rows {
		if _, dup := t.pos[r.Index]; dup {
			return nil, ErrDuplicateIndex
		}
		t.pos[r.Index] = i
	}
	return t, nil
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Rows returns a deep copy of all rows in file order.
func (t *Table) Rows() []Row { return CloneRows(t.rows) }

// Clone returns an independent copy of the table.
func (t *Table) Clone() *Table {
	c, _ := NewTable(t.rows)
	return c
}

// Get returns a copy of the row with the given index.
func (t *Table) Get(index int) (Row, bool) {
	i, ok := t.pos[index]
	if !ok {
		return Row{}, false
	}
	return t.rows[i].Clone(), true
}

// Contains reports whether a row with the given index exists.
func (t *Table) Contains(index int) bool {
	_, ok := t.pos[index]
	return ok
}

// PositionOf returns the file-order position of the row with the given
// index.
func (t *Table) PositionOf(index int) (int, bool) {
	i, ok := t.pos[index]
	return i, ok
}

// At returns a copy of the row at the given file-order position.
func (t *Table) At(position int) (Row, bool) {
	if position < 0 || position >= len(t.rows) {
		return Row{}, false
	}
	return t.rows[position].Clone(), true
}

// Indices returns all row indices in file order.
func (t *Table) Indices() []int {
	out := make([]int, len(t.rows))
	for i, r := range t.rows {
		out[i] = r.Index
	}
	return out
}

// Append adds rows at the end. Validates the whole batch before mutating:
// indices must be non-negative, unique within the batch, and absent from
// the table.
func (t *Table) Append(rows ...Row) error {
	return t.InsertAt(len(t.rows), rows...)
}

// InsertAt adds rows at the given file-order position, which is clamped to
// the valid range. Validates the whole batch before mutating: indices must
// be non-negative, unique within the batch, and absent from the table.
func (t *Table) InsertAt(position int, rows ...Row) error {
	seen := make(map[int]bool, len(rows))
	for _, r := range rows {
		if r.Index < 0 {
			return ErrInvalidIndex
		}
		if seen[r.Index] || t.Contains(r.Index) {
			return ErrDuplicateIndex
		}
		seen[r.Index] = true
	}
	if position < 0 {
		position = 0
	}
	if position > len(t.rows) {
		position = len(t.rows)
	}
	t.rows = append(t.rows[:position], append(CloneRows(rows), t.rows[position:]...)...)
	t.rebuildPos()
	return nil
}

// Remove deletes the rows with the given indices, preserving the order of
// the survivors. Validates that every index exists before mutating.
func (t *Table) Remove(indices ...int) error {
	drop := make(map[int]bool, len(indices))
	for _, idx := range indices {
		if !t.Contains(idx) {
			return ErrUnknownIndex
		}
		drop[idx] = true
	}
	kept := t.rows[:0]
	for _, r := range t.rows {
		if !drop[r.Index] {
			kept = append(kept, r)
		}
	}
	t.rows = kept
	t.rebuildPos()
	return nil
}

// Replace overwrites the row that shares row.Index with the given content.
// The index itself does not change; use [Table.Renumber] for that.
func (t *Table) Replace(row Row) error {
	i, ok := t.pos[row.Index]
	if !ok {
		return ErrUnknownIndex
	}
	t.rows[i] = row.Clone()
	return nil
}

// Renumber changes a row's index and repoints every Next and ParentLine in
// the table that named the old index, keeping the graph consistent. A
// no-op when both indices are equal. Returns ErrInvalidIndex if newIndex
// is negative, ErrUnknownIndex if oldIndex is absent, or
// ErrDuplicateIndex if newIndex is already in use.
//
// This is an O(N) operation over the row list.
func (t *Table) Renumber(oldIndex, newIndex int) error {
	if oldIndex == newIndex {
		return nil
	}
	if newIndex < 0 {
		return ErrInvalidIndex
	}
	i, ok := t.pos[oldIndex]
	if !ok {
		return ErrUnknownIndex
	}
	if t.Contains(newIndex) {
		return ErrDuplicateIndex
	}

	t.rows[i].Index = newIndex
	delete(t.pos, oldIndex)
	t.pos[newIndex] = i

	for j := range t.rows {
		if t.rows[j].Next != nil && *t.rows[j].Next == oldIndex {
			t.rows[j].Next = Ref(newIndex)
		}
		if t.rows[j].ParentLine != nil && *t.rows[j].ParentLine == oldIndex {
			t.rows[j].ParentLine = Ref(newIndex)
		}
	}
	return nil
}

// ShiftFrom adds delta to every row index, Next, and ParentLine value that
// is >= start, as one atomic batch. This is how space is made for inserting
// a reply between two adjacent indices.
//
// Validation happens before any mutation. Positive deltas are always safe.
// Negative deltas additionally require the target gap [start+delta, start)
// to be free of row indices and of Next/ParentLine values: only then is the
// inverse shift exact, which the undo machinery depends on.
func (t *Table) ShiftFrom(start, delta int) error {
	if delta == 0 {
		return ErrBadShift
	}
	if delta < 0 {
		lo, hi := start+delta, start
		for _, r := range t.rows {
			if inRange(r.Index, lo, hi) {
				return ErrBadShift
			}
			if r.Next != nil && inRange(*r.Next, lo, hi) {
				return ErrBadShift
			}
			if r.ParentLine != nil && inRange(*r.ParentLine, lo, hi) {
				return ErrBadShift
			}
		}
	}
	for _, r := range t.rows {
		if r.Index >= start && r.Index+delta < 0 {
			return ErrBadShift
		}
	}

	for j := range t.rows {
		if t.rows[j].Index >= start {
			t.rows[j].Index += delta
		}
		if t.rows[j].Next != nil && *t.rows[j].Next >= start {
			t.rows[j].Next = Ref(*t.rows[j].Next + delta)
		}
		if t.rows[j].ParentLine != nil && *t.rows[j].ParentLine >= start {
			t.rows[j].ParentLine = Ref(*t.rows[j].ParentLine + delta)
		}
	}
	t.rebuildPos()
	return nil
}

// NextFreeIndex returns the smallest unused index greater than the current
// maximum, or 1 for an empty table.
func (t *Table) NextFreeIndex() int {
	max := 0
	for _, r := range t.rows {
		if r.Index > max {
			max = r.Index
		}
	}
	i := max + 1
	for t.Contains(i) {
		i++
	}
	return i
}

// Find locates the first matching row: an all-digit query matches by index,
// anything else is a case-insensitive substring match against the row's
// display text (Male, falling back to Female when Male is empty).
func (t *Table) Find(query string) (Row, bool) {
	q := strings.TrimSpace(query)
	if q == "" {
		return Row{}, false
	}
	if isDigits(q) {
		idx, err := strconv.Atoi(q)
		if err != nil {
			return Row{}, false
		}
		return t.Get(idx)
	}
	ql := strings.ToLower(q)
	for _, r := range t.rows {
		text := r.Male
		if text == "" {
			text = r.Female
		}
		if strings.Contains(strings.ToLower(text), ql) {
			return r.Clone(), true
		}
	}
	return Row{}, false
}

// InferParents recomputes ParentLine for all rows from file order.
// See [InferParents].
func (t *Table) InferParents() { InferParents(t.rows) }

// FillMissingParents assigns ParentLine only where it is nil.
// See [FillMissingParents].
func (t *Table) FillMissingParents() { FillMissingParents(t.rows) }

// Visible returns a deep copy of the rows filtered for display.
// See [VisibleRows].
func (t *Table) Visible(showSeparators bool) []Row {
	return VisibleRows(t.Rows(), showSeparators)
}

func (t *Table) rebuildPos() {
	t.pos = make(map[int]int, len(t.rows))
	for i, r := range t.rows {
		t.pos[r.Index] = i
	}
}

func inRange(v, lo, hi int) bool { return v >= lo && v < hi }

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}
