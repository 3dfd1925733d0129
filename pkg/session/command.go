package session

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/avfe/dlg4vtmb/pkg/dialogue"
	apperrors "github.com/avfe/dlg4vtmb/pkg/errors"
	"github.com/avfe/dlg4vtmb/pkg/layout"
)

// Command is one reversible mutation of a session's rows and positions.
// The variant set is closed: apply and revert are unexported, so only the
// commands defined in this package satisfy the interface. Every variant
// validates before it mutates, and a failed apply leaves the session
// untouched.
type Command interface {
	// Name is a short label for undo menus, logs, and the HTTP API.
	Name() string

	apply(s *Session) error
	revert(s *Session) error
}

// AddNodes inserts a batch of rows at one file-order position and records
// their initial scene positions. The batch is validated as a whole: every
// index must be non-negative and new, and every Next and ParentLine must
// resolve inside the table, inside the batch, or be nil. Rows missing from
// Positions start at the origin.
type AddNodes struct {
	Rows      []dialogue.Row
	Positions map[int]layout.Point

	// At is the file-order position to insert at; -1 appends.
	At int
}

func (c *AddNodes) Name() string { return fmt.Sprintf("add %d node(s)", len(c.Rows)) }

func (c *AddNodes) apply(s *Session) error {
	if len(c.Rows) == 0 {
		return apperrors.New(apperrors.ErrCodeInvalidInput, "empty node batch")
	}
	batch := make(map[int]bool, len(c.Rows))
	for _, r := range c.Rows {
		if r.Index < 0 {
			return apperrors.New(apperrors.ErrCodeInvalidInput, "index %d is negative", r.Index)
		}
		if batch[r.Index] || s.table.Contains(r.Index) {
			return apperrors.New(apperrors.ErrCodeDuplicateIndex, "index %d already in use", r.Index)
		}
		batch[r.Index] = true
	}
	for _, r := range c.Rows {
		for _, ref := range []*int{r.Next, r.ParentLine} {
			if ref != nil && !batch[*ref] && !s.table.Contains(*ref) {
				return apperrors.New(apperrors.ErrCodeBadReference,
					"row %d references missing index %d", r.Index, *ref)
			}
		}
	}

	at := c.At
	if at < 0 {
		at = s.table.Len()
	}
	if err := s.table.InsertAt(at, c.Rows...); err != nil {
		return coded(err)
	}
	for _, r := range c.Rows {
		s.setPosition(r.Index, c.Positions[r.Index])
	}
	return nil
}

func (c *AddNodes) revert(s *Session) error {
	indices := make([]int, len(c.Rows))
	for i, r := range c.Rows {
		indices[i] = r.Index
	}
	if err := s.table.Remove(indices...); err != nil {
		return coded(err)
	}
	for _, idx := range indices {
		s.removePosition(idx)
	}
	return nil
}

// RemoveNodes deletes rows by index. Apply captures each removed row
// together with its file-order slot and scene position, so revert can
// reinsert everything exactly where it was; the derived answer and
// leads-to edges regenerate from the restored fields on their own.
type RemoveNodes struct {
	Indices []int

	removed []removedRow
}

type removedRow struct {
	row    dialogue.Row
	at     int
	pos    layout.Point
	hasPos bool
}

func (c *RemoveNodes) Name() string { return fmt.Sprintf("delete %d node(s)", len(c.Indices)) }

func (c *RemoveNodes) apply(s *Session) error {
	if len(c.Indices) == 0 {
		return apperrors.New(apperrors.ErrCodeInvalidInput, "empty index list")
	}
	seen := make(map[int]bool, len(c.Indices))
	for _, idx := range c.Indices {
		if seen[idx] {
			return apperrors.New(apperrors.ErrCodeDuplicateIndex, "index %d listed twice", idx)
		}
		seen[idx] = true
		if !s.table.Contains(idx) {
			return apperrors.New(apperrors.ErrCodeIndexNotFound, "no row with index %d", idx)
		}
	}

	c.removed = c.removed[:0]
	for _, idx := range c.Indices {
		row, _ := s.table.Get(idx)
		at, _ := s.table.PositionOf(idx)
		pos, hasPos := s.positions[idx]
		c.removed = append(c.removed, removedRow{row: row, at: at, pos: pos, hasPos: hasPos})
	}
	if err := s.table.Remove(c.Indices...); err != nil {
		return coded(err)
	}
	for _, idx := range c.Indices {
		s.removePosition(idx)
	}
	return nil
}

func (c *RemoveNodes) revert(s *Session) error {
	// Reinserting in ascending slot order lands every row back on its
	// original slot: all rows that belong before it are already in place.
	byAt := slices.Clone(c.removed)
	slices.SortFunc(byAt, func(a, b removedRow) int { return a.at - b.at })
	inserted := make([]int, 0, len(byAt))
	for _, rm := range byAt {
		if err := s.table.InsertAt(rm.at, rm.row); err != nil {
			// Unwind the restored prefix so a failed revert leaves the
			// rows deleted, never half restored.
			if len(inserted) > 0 {
				if uerr := s.table.Remove(inserted...); uerr != nil {
					return apperrors.Wrap(apperrors.ErrCodeInternal, uerr,
						"unwinding partial restore after: %v", err)
				}
			}
			return coded(err)
		}
		inserted = append(inserted, rm.row.Index)
	}
	for _, rm := range c.removed {
		if rm.hasPos {
			s.setPosition(rm.row.Index, rm.pos)
		}
	}
	return nil
}

// EditNode replaces every field of one row, including possibly its index.
// On an index change the rest of the table follows atomically: every Next
// and ParentLine naming the old index is repointed to the new one, and the
// scene position moves with the row. Text fields may not contain '}',
// which the .dlg format reserves as a field terminator.
type EditNode struct {
	Old dialogue.Row
	New dialogue.Row
}

func (c *EditNode) Name() string { return fmt.Sprintf("edit node #%d", c.Old.Index) }

func (c *EditNode) apply(s *Session) error {
	if field, ok := illegalText(c.New); ok {
		return apperrors.New(apperrors.ErrCodeIllegalText, "%s contains '}'", field)
	}
	return editRow(s, c.Old, c.New)
}

// revert runs the inverse edit through the same path. The text check is
// skipped: the old row was accepted into the table once already, and undo
// of a valid apply must not fail.
func (c *EditNode) revert(s *Session) error { return editRow(s, c.New, c.Old) }

func editRow(s *Session, from, to dialogue.Row) error {
	if !s.table.Contains(from.Index) {
		return apperrors.New(apperrors.ErrCodeIndexNotFound, "no row with index %d", from.Index)
	}
	if to.Index != from.Index {
		if to.Index < 0 {
			return apperrors.New(apperrors.ErrCodeInvalidInput, "index %d is negative", to.Index)
		}
		if s.table.Contains(to.Index) {
			return apperrors.New(apperrors.ErrCodeDuplicateIndex, "index %d already in use", to.Index)
		}
	}
	for _, ref := range []*int{to.Next, to.ParentLine} {
		if ref == nil || *ref == to.Index || *ref == from.Index {
			continue
		}
		if !s.table.Contains(*ref) {
			return apperrors.New(apperrors.ErrCodeBadReference,
				"row %d references missing index %d", to.Index, *ref)
		}
	}

	if to.Index != from.Index {
		if err := s.table.Renumber(from.Index, to.Index); err != nil {
			return coded(err)
		}
		s.movePosition(from.Index, to.Index)
		// The row's own references may still name the retired index.
		if to.Next != nil && *to.Next == from.Index {
			to.Next = dialogue.Ref(to.Index)
		}
		if to.ParentLine != nil && *to.ParentLine == from.Index {
			to.ParentLine = dialogue.Ref(to.Index)
		}
	}
	if err := s.table.Replace(to); err != nil {
		return coded(err)
	}
	return nil
}

// Relink rewires one row's jump target. Nil is legal on either side:
// nil to value turns an NPC line into a reply, value to nil turns a reply
// back into an NPC line. OldNext must match the row's current target,
// which keeps the revert exact.
type Relink struct {
	Index   int
	OldNext *int
	NewNext *int
}

func (c *Relink) Name() string {
	if c.NewNext == nil {
		return fmt.Sprintf("relink #%d -> none", c.Index)
	}
	return fmt.Sprintf("relink #%d -> %d", c.Index, *c.NewNext)
}

func (c *Relink) apply(s *Session) error {
	row, ok := s.table.Get(c.Index)
	if !ok {
		return apperrors.New(apperrors.ErrCodeIndexNotFound, "no row with index %d", c.Index)
	}
	if !refEqual(row.Next, c.OldNext) {
		return apperrors.New(apperrors.ErrCodeInvalidInput,
			"row %d target changed since the relink was built", c.Index)
	}
	return relinkRow(s, c.Index, c.NewNext)
}

func (c *Relink) revert(s *Session) error { return relinkRow(s, c.Index, c.OldNext) }

func relinkRow(s *Session, index int, next *int) error {
	row, ok := s.table.Get(index)
	if !ok {
		return apperrors.New(apperrors.ErrCodeIndexNotFound, "no row with index %d", index)
	}
	if next != nil && *next != index && !s.table.Contains(*next) {
		return apperrors.New(apperrors.ErrCodeBadReference,
			"row %d references missing index %d", index, *next)
	}
	if next == nil {
		row.Next = nil
	} else {
		row.Next = dialogue.Ref(*next)
	}
	return coded(s.table.Replace(row))
}

// Move rewrites one row's scene position. The prior position is not
// checked against OldPos: drags capture it when they start, and collision
// nudges may have run in between.
type Move struct {
	Index  int
	OldPos layout.Point
	NewPos layout.Point
}

func (c *Move) Name() string { return fmt.Sprintf("move node #%d", c.Index) }

func (c *Move) apply(s *Session) error {
	if !s.table.Contains(c.Index) {
		return apperrors.New(apperrors.ErrCodeIndexNotFound, "no row with index %d", c.Index)
	}
	s.setPosition(c.Index, c.NewPos)
	return nil
}

func (c *Move) revert(s *Session) error {
	s.setPosition(c.Index, c.OldPos)
	return nil
}

// RenumberShift adds Delta to every row index, Next, and ParentLine at or
// above Start, as one atomic batch, and moves the affected position-table
// keys along. This is how space is made for inserting a reply between two
// adjacent indices.
type RenumberShift struct {
	Start int
	Delta int
}

func (c *RenumberShift) Name() string {
	return fmt.Sprintf("renumber from %d by %+d", c.Start, c.Delta)
}

func (c *RenumberShift) apply(s *Session) error {
	if err := s.table.ShiftFrom(c.Start, c.Delta); err != nil {
		return coded(err)
	}
	s.shiftPositions(c.Start, c.Delta)
	return nil
}

// revert shifts the moved band back down. A positive apply leaves the
// vacated band [Start, Start+Delta) empty, so the inverse shift passes the
// same gap validation the forward one did.
func (c *RenumberShift) revert(s *Session) error {
	if err := s.table.ShiftFrom(c.Start+c.Delta, -c.Delta); err != nil {
		return coded(err)
	}
	s.shiftPositions(c.Start+c.Delta, -c.Delta)
	return nil
}

// Macro groups commands into one undo step. Apply runs the parts in order
// and unwinds the already applied prefix when a later part fails, so a
// macro lands whole or not at all. Revert runs in reverse order.
type Macro struct {
	Label string
	Cmds  []Command
}

func (c *Macro) Name() string {
	if c.Label != "" {
		return c.Label
	}
	return fmt.Sprintf("%d-step macro", len(c.Cmds))
}

func (c *Macro) apply(s *Session) error {
	for i, cmd := range c.Cmds {
		if err := cmd.apply(s); err != nil {
			for j := i - 1; j >= 0; j-- {
				if uerr := c.Cmds[j].revert(s); uerr != nil {
					return apperrors.Wrap(apperrors.ErrCodeInternal, uerr,
						"unwinding macro %q after: %v", c.Name(), err)
				}
			}
			return err
		}
	}
	return nil
}

func (c *Macro) revert(s *Session) error {
	for i := len(c.Cmds) - 1; i >= 0; i-- {
		if err := c.Cmds[i].revert(s); err != nil {
			return err
		}
	}
	return nil
}

// coded maps the dialogue package's sentinel errors onto the structured
// codes the CLI and HTTP layers key on.
func coded(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, dialogue.ErrDuplicateIndex):
		return apperrors.Wrap(apperrors.ErrCodeDuplicateIndex, err, "duplicate row index")
	case errors.Is(err, dialogue.ErrUnknownIndex):
		return apperrors.Wrap(apperrors.ErrCodeIndexNotFound, err, "unknown row index")
	case errors.Is(err, dialogue.ErrBadShift):
		return apperrors.Wrap(apperrors.ErrCodeBadShift, err, "renumber shift rejected")
	case errors.Is(err, dialogue.ErrInvalidIndex):
		return apperrors.Wrap(apperrors.ErrCodeInvalidInput, err, "invalid row index")
	default:
		return apperrors.Wrap(apperrors.ErrCodeInternal, err, "table operation failed")
	}
}

// illegalText returns the first text field of the row containing '}'.
func illegalText(r dialogue.Row) (string, bool) {
	checks := []struct{ name, value string }{
		{"male text", r.Male},
		{"female text", r.Female},
		{"condition", r.Condition},
		{"action", r.Action},
	}
	for _, key := range dialogue.VariantKeys {
		v, _ := r.Variant(key)
		checks = append(checks, struct{ name, value string }{key, v})
	}
	for _, c := range checks {
		if strings.Contains(c.value, "}") {
			return c.name, true
		}
	}
	return "", false
}

func refEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
