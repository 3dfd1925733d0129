package session

import (
	"fmt"

	"github.com/avfe/dlg4vtmb/pkg/dialogue"
	apperrors "github.com/avfe/dlg4vtmb/pkg/errors"
	"github.com/avfe/dlg4vtmb/pkg/layout"
)

// Placeholder texts for freshly inserted nodes.
const (
	newLineText  = "New NPC"
	newReplyText = "New PC"
)

func newLineRow(index int) dialogue.Row {
	return dialogue.Row{Index: index, Male: newLineText}
}

func newReplyRow(index, parent int) dialogue.Row {
	return dialogue.Row{
		Index:      index,
		Male:       newReplyText,
		Next:       dialogue.Ref(parent),
		ParentLine: dialogue.Ref(parent),
	}
}

// AddLineAt appends a fresh NPC line at the given scene position and
// returns its index.
func (s *Session) AddLineAt(pt layout.Point) (int, error) {
	idx := s.table.NextFreeIndex()
	err := s.Apply(&AddNodes{
		Rows:      []dialogue.Row{newLineRow(idx)},
		Positions: map[int]layout.Point{idx: pt},
		At:        -1,
	})
	if err != nil {
		return 0, err
	}
	return idx, nil
}

// AddReplyTo appends a fresh reply leading to the given NPC line and
// returns its index.
func (s *Session) AddReplyTo(npcIndex int, pt layout.Point) (int, error) {
	target, ok := s.table.Get(npcIndex)
	if !ok {
		return 0, apperrors.New(apperrors.ErrCodeIndexNotFound, "no row with index %d", npcIndex)
	}
	if target.IsReply() {
		return 0, apperrors.New(apperrors.ErrCodeInvalidInput,
			"row %d is a reply; replies lead to NPC lines", npcIndex)
	}
	idx := s.table.NextFreeIndex()
	err := s.Apply(&AddNodes{
		Rows:      []dialogue.Row{newReplyRow(idx, npcIndex)},
		Positions: map[int]layout.Point{idx: pt},
		At:        -1,
	})
	if err != nil {
		return 0, err
	}
	return idx, nil
}

// InsertReplyUnder adds a player reply to an NPC line's reply block,
// claiming an index that keeps the file's numbering tidy. Three strategies
// run in order: recycle the blank separator row that closes the block,
// claim a free index between this block and the next line, or shift every
// following index up by one to make room. Whichever fires, the result is
// one undo step, and the new reply sits just below its parent. Returns the
// index the reply landed on.
func (s *Session) InsertReplyUnder(npcIndex int) (int, error) {
	target, ok := s.table.Get(npcIndex)
	if !ok {
		return 0, apperrors.New(apperrors.ErrCodeIndexNotFound, "no row with index %d", npcIndex)
	}
	if target.IsReply() {
		return 0, apperrors.New(apperrors.ErrCodeInvalidInput,
			"row %d is a reply; reply blocks hang under NPC lines", npcIndex)
	}

	// The reply block runs from the line to the next non-reply row.
	pos, _ := s.table.PositionOf(npcIndex)
	end := s.table.Len()
	for i := pos + 1; i < s.table.Len(); i++ {
		row, _ := s.table.At(i)
		if !row.IsReply() {
			end = i
			break
		}
	}

	parentPos, _ := s.Position(npcIndex)
	gaps := s.gaps.WithDefaults()
	newPos := layout.Point{X: parentPos.X, Y: parentPos.Y + max(60, float64(gaps.VGap)*0.8)}
	label := fmt.Sprintf("add reply under #%d", npcIndex)

	// A blank separator closing the block already owns a well-placed
	// index; turn it into the reply instead of minting a new row.
	if end < s.table.Len() {
		sep, _ := s.table.At(end)
		if sep.IsEmptySeparator() {
			recycled := sep.Clone()
			recycled.Male = newReplyText
			recycled.Female = ""
			recycled.Condition = ""
			recycled.Action = ""
			recycled.Next = dialogue.Ref(npcIndex)
			recycled.ParentLine = dialogue.Ref(npcIndex)
			oldPos, _ := s.Position(sep.Index)
			err := s.Apply(&Macro{Label: label, Cmds: []Command{
				&EditNode{Old: sep, New: recycled},
				&Move{Index: sep.Index, OldPos: oldPos, NewPos: newPos},
			}})
			if err != nil {
				return 0, err
			}
			return sep.Index, nil
		}
	}

	used := make(map[int]bool, s.table.Len())
	maxIdx := 0
	for _, idx := range s.table.Indices() {
		used[idx] = true
		if idx > maxIdx {
			maxIdx = idx
		}
	}
	upper := maxIdx + 100000
	if end < s.table.Len() {
		nextLine, _ := s.table.At(end)
		upper = nextLine.Index
	}
	newIdx := 0
	for v := npcIndex + 1; v < upper; v++ {
		if !used[v] {
			newIdx = v
			break
		}
	}

	if newIdx != 0 {
		err := s.Apply(&Macro{Label: label, Cmds: []Command{
			&AddNodes{
				Rows:      []dialogue.Row{newReplyRow(newIdx, npcIndex)},
				Positions: map[int]layout.Point{newIdx: newPos},
				At:        end,
			},
		}})
		if err != nil {
			return 0, err
		}
		return newIdx, nil
	}

	// No free index below the next line: shift the tail up one and take
	// the slot that opens.
	startShift := maxIdx + 1
	if end < s.table.Len() {
		nextLine, _ := s.table.At(end)
		startShift = nextLine.Index
	}
	newIdx = startShift
	err := s.Apply(&Macro{Label: label, Cmds: []Command{
		&RenumberShift{Start: startShift, Delta: 1},
		&AddNodes{
			Rows:      []dialogue.Row{newReplyRow(newIdx, npcIndex)},
			Positions: map[int]layout.Point{newIdx: newPos},
			At:        end,
		},
	}})
	if err != nil {
		return 0, err
	}
	return newIdx, nil
}

// InsertLineFor adds a fresh NPC line and rewires the given reply to lead
// to it, as one undo step. The line lands below the reply in vertical
// orientation and to its right in horizontal. Returns the new line's
// index.
func (s *Session) InsertLineFor(replyIndex int) (int, error) {
	reply, ok := s.table.Get(replyIndex)
	if !ok {
		return 0, apperrors.New(apperrors.ErrCodeIndexNotFound, "no row with index %d", replyIndex)
	}
	if !reply.IsReply() {
		return 0, apperrors.New(apperrors.ErrCodeInvalidInput,
			"row %d is an NPC line; answers attach to replies", replyIndex)
	}

	gaps := s.gaps.WithDefaults()
	base, _ := s.Position(replyIndex)
	var pt layout.Point
	if s.orientation == layout.Horizontal {
		pt = layout.Point{X: base.X + float64(gaps.HGap)*1.2, Y: base.Y}
	} else {
		pt = layout.Point{X: base.X, Y: base.Y + float64(gaps.VGap)*1.2}
	}

	newIdx := s.table.NextFreeIndex()
	err := s.Apply(&Macro{Label: "add NPC answer", Cmds: []Command{
		&AddNodes{
			Rows:      []dialogue.Row{newLineRow(newIdx)},
			Positions: map[int]layout.Point{newIdx: pt},
			At:        -1,
		},
		&Relink{Index: replyIndex, OldNext: reply.Next, NewNext: dialogue.Ref(newIdx)},
	}})
	if err != nil {
		return 0, err
	}
	return newIdx, nil
}

// ImportRows merges externally produced rows (clipboard paste, another
// document) into this one as a single undoable batch. Incoming indices are
// remapped onto free ones; Next and ParentLine references that stay inside
// the batch follow the remap, references out of the batch must already
// resolve here. Repeated imports fan out diagonally so copies do not
// stack. Returns the indices the rows landed on, in batch order.
func (s *Session) ImportRows(rows []dialogue.Row, positions map[int]layout.Point) ([]int, error) {
	if len(rows) == 0 {
		return nil, apperrors.New(apperrors.ErrCodeInvalidInput, "no rows to import")
	}

	taken := make(map[int]bool, s.table.Len()+len(rows))
	maxIdx := 0
	for _, idx := range s.table.Indices() {
		taken[idx] = true
		if idx > maxIdx {
			maxIdx = idx
		}
	}
	mapping := make(map[int]int, len(rows))
	next := maxIdx + 1
	for _, r := range rows {
		if _, dup := mapping[r.Index]; dup {
			return nil, apperrors.New(apperrors.ErrCodeDuplicateIndex,
				"import repeats index %d", r.Index)
		}
		for taken[next] {
			next++
		}
		mapping[r.Index] = next
		taken[next] = true
	}

	bump := float64(40 * (s.pasteBump % 5))
	s.pasteBump++

	newRows := make([]dialogue.Row, len(rows))
	newPos := make(map[int]layout.Point, len(rows))
	indices := make([]int, len(rows))
	for i, r := range rows {
		nr := r.Clone()
		nr.Index = mapping[r.Index]
		if nr.Next != nil {
			if m, ok := mapping[*nr.Next]; ok {
				nr.Next = dialogue.Ref(m)
			}
		}
		if nr.ParentLine != nil {
			if m, ok := mapping[*nr.ParentLine]; ok {
				nr.ParentLine = dialogue.Ref(m)
			}
		}
		newRows[i] = nr
		p := positions[r.Index]
		newPos[nr.Index] = layout.Point{X: p.X + bump, Y: p.Y + bump}
		indices[i] = nr.Index
	}

	if err := s.Apply(&AddNodes{Rows: newRows, Positions: newPos, At: -1}); err != nil {
		return nil, err
	}
	return indices, nil
}
