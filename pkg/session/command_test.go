package session

import (
	"testing"

	"github.com/avfe/dlg4vtmb/pkg/dialogue"
	apperrors "github.com/avfe/dlg4vtmb/pkg/errors"
	"github.com/avfe/dlg4vtmb/pkg/layout"
)

func npc(index int, text string) dialogue.Row {
	return dialogue.Row{Index: index, Male: text}
}

func reply(index int, text string, next int) dialogue.Row {
	return dialogue.Row{Index: index, Male: text, Next: dialogue.Ref(next)}
}

func newSession(t *testing.T, rows ...dialogue.Row) *Session {
	t.Helper()
	s, err := New(rows)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return s
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestAddNodesApplyAndRevert(t *testing.T) {
	s := newSession(t, npc(1, "A"), reply(2, "r", 1))

	cmd := &AddNodes{
		Rows:      []dialogue.Row{npc(5, "B"), reply(6, "x", 5)},
		Positions: map[int]layout.Point{5: {X: 10, Y: 20}},
		At:        -1,
	}
	if err := s.Apply(cmd); err != nil {
		t.Fatalf("Apply(AddNodes) error: %v", err)
	}
	if got := s.Indices(); !equalInts(got, []int{1, 2, 5, 6}) {
		t.Errorf("Indices() = %v, want [1 2 5 6]", got)
	}
	if p, ok := s.Position(5); !ok || p != (layout.Point{X: 10, Y: 20}) {
		t.Errorf("Position(5) = %v, %v, want {10 20}, true", p, ok)
	}
	if p, ok := s.Position(6); !ok || p != (layout.Point{}) {
		t.Errorf("Position(6) = %v, %v, want origin, true", p, ok)
	}

	if _, err := s.Undo(); err != nil {
		t.Fatalf("Undo() error: %v", err)
	}
	if got := s.Indices(); !equalInts(got, []int{1, 2}) {
		t.Errorf("Indices() after undo = %v, want [1 2]", got)
	}
	if _, ok := s.Position(5); ok {
		t.Error("Position(5) survived undo")
	}
}

func TestAddNodesInsertPosition(t *testing.T) {
	s := newSession(t, npc(1, "A"), npc(2, "B"))
	err := s.Apply(&AddNodes{Rows: []dialogue.Row{npc(5, "C")}, At: 1})
	if err != nil {
		t.Fatalf("Apply(AddNodes) error: %v", err)
	}
	if got := s.Indices(); !equalInts(got, []int{1, 5, 2}) {
		t.Errorf("Indices() = %v, want [1 5 2]", got)
	}
}

func TestAddNodesValidation(t *testing.T) {
	tests := []struct {
		name string
		rows []dialogue.Row
		code apperrors.Code
	}{
		{"empty batch", nil, apperrors.ErrCodeInvalidInput},
		{"negative index", []dialogue.Row{npc(-1, "x")}, apperrors.ErrCodeInvalidInput},
		{"collides with table", []dialogue.Row{npc(1, "x")}, apperrors.ErrCodeDuplicateIndex},
		{"collides within batch", []dialogue.Row{npc(7, "a"), npc(7, "b")}, apperrors.ErrCodeDuplicateIndex},
		{"dangling next", []dialogue.Row{reply(7, "x", 99)}, apperrors.ErrCodeBadReference},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSession(t, npc(1, "A"), reply(2, "r", 1))
			err := s.Apply(&AddNodes{Rows: tt.rows, At: -1})
			if !apperrors.Is(err, tt.code) {
				t.Fatalf("Apply() error = %v, want code %s", err, tt.code)
			}
			if s.Len() != 2 || s.CanUndo() {
				t.Errorf("failed apply mutated state: len=%d canUndo=%v", s.Len(), s.CanUndo())
			}
		})
	}
}

func TestAddNodesBatchInternalReference(t *testing.T) {
	s := newSession(t, npc(1, "A"))
	err := s.Apply(&AddNodes{
		Rows: []dialogue.Row{npc(7, "B"), reply(8, "x", 7)},
		At:   -1,
	})
	if err != nil {
		t.Fatalf("Apply() error = %v, want batch-internal reference accepted", err)
	}
}

func TestRemoveNodesRoundTrip(t *testing.T) {
	s := newSession(t, npc(1, "A"), reply(2, "a", 1), reply(3, "b", 1), npc(4, "B"))
	if err := s.Apply(&Move{Index: 2, NewPos: layout.Point{X: 5, Y: 6}}); err != nil {
		t.Fatalf("Apply(Move) error: %v", err)
	}

	if err := s.Apply(&RemoveNodes{Indices: []int{2, 4}}); err != nil {
		t.Fatalf("Apply(RemoveNodes) error: %v", err)
	}
	if got := s.Indices(); !equalInts(got, []int{1, 3}) {
		t.Errorf("Indices() = %v, want [1 3]", got)
	}
	if _, ok := s.Position(2); ok {
		t.Error("Position(2) survived removal")
	}

	if _, err := s.Undo(); err != nil {
		t.Fatalf("Undo() error: %v", err)
	}
	if got := s.Indices(); !equalInts(got, []int{1, 2, 3, 4}) {
		t.Errorf("Indices() after undo = %v, want [1 2 3 4]", got)
	}
	if p, ok := s.Position(2); !ok || p != (layout.Point{X: 5, Y: 6}) {
		t.Errorf("Position(2) after undo = %v, %v, want {5 6}, true", p, ok)
	}
	if _, ok := s.Position(4); ok {
		t.Error("Position(4) appeared out of nowhere: row 4 was never placed")
	}
	if row, _ := s.Row(2); row.Male != "a" || row.Next == nil || *row.Next != 1 {
		t.Errorf("Row(2) after undo = %+v, want original reply", row)
	}
}

func TestRemoveNodesUndoRestoresIndexZero(t *testing.T) {
	// Shipped files number from zero, so every loadable index must survive
	// a delete-then-undo round trip.
	s := newSession(t, npc(0, "start"), reply(1, "r", 0))

	if err := s.Apply(&RemoveNodes{Indices: []int{0, 1}}); err != nil {
		t.Fatalf("Apply(RemoveNodes) error: %v", err)
	}
	if got := s.Indices(); !equalInts(got, nil) {
		t.Errorf("Indices() = %v, want empty", got)
	}

	if _, err := s.Undo(); err != nil {
		t.Fatalf("Undo() error: %v", err)
	}
	if got := s.Indices(); !equalInts(got, []int{0, 1}) {
		t.Errorf("Indices() after undo = %v, want [0 1]", got)
	}
	if row, ok := s.Row(0); !ok || row.Male != "start" {
		t.Errorf("Row(0) after undo = %+v, %v, want original row", row, ok)
	}
}

func TestRemoveNodesRevertAllOrNothing(t *testing.T) {
	s := newSession(t, npc(1, "A"), npc(2, "B"), npc(3, "C"))
	cmd := &RemoveNodes{Indices: []int{1, 2}}
	if err := s.Apply(cmd); err != nil {
		t.Fatalf("Apply(RemoveNodes) error: %v", err)
	}
	// Reoccupy index 2 so the second reinsert must fail.
	if err := s.Apply(&AddNodes{Rows: []dialogue.Row{npc(2, "usurper")}, At: -1}); err != nil {
		t.Fatalf("Apply(AddNodes) error: %v", err)
	}

	err := cmd.revert(s)
	if !apperrors.Is(err, apperrors.ErrCodeDuplicateIndex) {
		t.Fatalf("revert() error = %v, want code %s", err, apperrors.ErrCodeDuplicateIndex)
	}
	// A failed revert leaves the rows deleted, never half restored.
	if got := s.Indices(); !equalInts(got, []int{3, 2}) {
		t.Errorf("Indices() after failed revert = %v, want [3 2]", got)
	}
}

func TestRemoveNodesValidation(t *testing.T) {
	tests := []struct {
		name    string
		indices []int
		code    apperrors.Code
	}{
		{"empty list", nil, apperrors.ErrCodeInvalidInput},
		{"unknown index", []int{9}, apperrors.ErrCodeIndexNotFound},
		{"listed twice", []int{1, 1}, apperrors.ErrCodeDuplicateIndex},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSession(t, npc(1, "A"), reply(2, "r", 1))
			err := s.Apply(&RemoveNodes{Indices: tt.indices})
			if !apperrors.Is(err, tt.code) {
				t.Fatalf("Apply() error = %v, want code %s", err, tt.code)
			}
			if s.Len() != 2 || s.CanUndo() {
				t.Errorf("failed apply mutated state: len=%d canUndo=%v", s.Len(), s.CanUndo())
			}
		})
	}
}

func TestEditNodeFieldsRoundTrip(t *testing.T) {
	s := newSession(t, npc(1, "A"), reply(2, "r", 1))
	old, _ := s.Row(2)
	edited := old.Clone()
	edited.Male = "hello"
	edited.Condition = "IsDead(npc)"

	if err := s.Apply(&EditNode{Old: old, New: edited}); err != nil {
		t.Fatalf("Apply(EditNode) error: %v", err)
	}
	if row, _ := s.Row(2); row.Male != "hello" || row.Condition != "IsDead(npc)" {
		t.Errorf("Row(2) = %+v, want edited fields", row)
	}

	if _, err := s.Undo(); err != nil {
		t.Fatalf("Undo() error: %v", err)
	}
	if row, _ := s.Row(2); row.Male != "r" || row.Condition != "" {
		t.Errorf("Row(2) after undo = %+v, want original fields", row)
	}
}

func TestEditNodeRenumberCascades(t *testing.T) {
	rows := []dialogue.Row{npc(1, "A"), reply(2, "a", 1), reply(3, "b", 4), npc(4, "B")}
	rows[2].ParentLine = dialogue.Ref(1)
	s := newSession(t, rows...)
	if err := s.Apply(&Move{Index: 4, NewPos: layout.Point{X: 9, Y: 9}}); err != nil {
		t.Fatalf("Apply(Move) error: %v", err)
	}

	old, _ := s.Row(4)
	edited := old.Clone()
	edited.Index = 40
	edited.Male = "B2"
	if err := s.Apply(&EditNode{Old: old, New: edited}); err != nil {
		t.Fatalf("Apply(EditNode) error: %v", err)
	}

	if s.Contains(4) {
		t.Error("Contains(4) = true after renumber to 40")
	}
	if row, ok := s.Row(40); !ok || row.Male != "B2" {
		t.Fatalf("Row(40) = %+v, %v, want renamed row", row, ok)
	}
	if row, _ := s.Row(3); row.Next == nil || *row.Next != 40 {
		t.Errorf("Row(3).Next = %v, want repointed to 40", row.Next)
	}
	if p, ok := s.Position(40); !ok || p != (layout.Point{X: 9, Y: 9}) {
		t.Errorf("Position(40) = %v, %v, want moved key", p, ok)
	}

	if _, err := s.Undo(); err != nil {
		t.Fatalf("Undo() error: %v", err)
	}
	if row, ok := s.Row(4); !ok || row.Male != "B" {
		t.Errorf("Row(4) after undo = %+v, %v, want original", row, ok)
	}
	if row, _ := s.Row(3); row.Next == nil || *row.Next != 4 {
		t.Errorf("Row(3).Next after undo = %v, want 4", row.Next)
	}
	if _, ok := s.Position(40); ok {
		t.Error("Position(40) survived undo")
	}
}

func TestEditNodeOwnReferenceFollowsRenumber(t *testing.T) {
	s := newSession(t, npc(1, "A"), reply(2, "r", 1))
	old, _ := s.Row(2)
	edited := old.Clone()
	edited.Index = 20
	edited.Next = dialogue.Ref(2) // names the index being retired

	if err := s.Apply(&EditNode{Old: old, New: edited}); err != nil {
		t.Fatalf("Apply(EditNode) error: %v", err)
	}
	if row, _ := s.Row(20); row.Next == nil || *row.Next != 20 {
		t.Errorf("Row(20).Next = %v, want 20 (followed its own renumber)", row.Next)
	}
}

func TestEditNodeValidation(t *testing.T) {
	base := func() []dialogue.Row {
		return []dialogue.Row{npc(1, "A"), reply(2, "r", 1), npc(4, "B")}
	}
	tests := []struct {
		name string
		edit func(old dialogue.Row) dialogue.Row
		code apperrors.Code
	}{
		{"index collision", func(old dialogue.Row) dialogue.Row {
			e := old.Clone()
			e.Index = 4
			return e
		}, apperrors.ErrCodeDuplicateIndex},
		{"negative index", func(old dialogue.Row) dialogue.Row {
			e := old.Clone()
			e.Index = -1
			return e
		}, apperrors.ErrCodeInvalidInput},
		{"brace in text", func(old dialogue.Row) dialogue.Row {
			e := old.Clone()
			e.Female = "oops}"
			return e
		}, apperrors.ErrCodeIllegalText},
		{"brace in variant", func(old dialogue.Row) dialogue.Row {
			e := old.Clone()
			e.Malkavian = "the moon} speaks"
			return e
		}, apperrors.ErrCodeIllegalText},
		{"dangling next", func(old dialogue.Row) dialogue.Row {
			e := old.Clone()
			e.Next = dialogue.Ref(99)
			return e
		}, apperrors.ErrCodeBadReference},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSession(t, base()...)
			old, _ := s.Row(2)
			err := s.Apply(&EditNode{Old: old, New: tt.edit(old)})
			if !apperrors.Is(err, tt.code) {
				t.Fatalf("Apply() error = %v, want code %s", err, tt.code)
			}
			if row, _ := s.Row(2); row.Male != "r" {
				t.Errorf("Row(2) = %+v, want untouched", row)
			}
			if s.CanUndo() {
				t.Error("failed edit was recorded")
			}
		})
	}
}

func TestEditNodeMissingTarget(t *testing.T) {
	s := newSession(t, npc(1, "A"))
	err := s.Apply(&EditNode{Old: npc(9, "ghost"), New: npc(9, "ghost2")})
	if !apperrors.Is(err, apperrors.ErrCodeIndexNotFound) {
		t.Errorf("Apply() error = %v, want INDEX_NOT_FOUND", err)
	}
}

func TestRelinkRoundTrip(t *testing.T) {
	s := newSession(t, npc(1, "A"), reply(2, "r", 1), npc(4, "B"))

	if err := s.Apply(&Relink{Index: 2, OldNext: dialogue.Ref(1), NewNext: dialogue.Ref(4)}); err != nil {
		t.Fatalf("Apply(Relink) error: %v", err)
	}
	if row, _ := s.Row(2); row.Next == nil || *row.Next != 4 {
		t.Errorf("Row(2).Next = %v, want 4", row.Next)
	}

	if _, err := s.Undo(); err != nil {
		t.Fatalf("Undo() error: %v", err)
	}
	if row, _ := s.Row(2); row.Next == nil || *row.Next != 1 {
		t.Errorf("Row(2).Next after undo = %v, want 1", row.Next)
	}

	if _, err := s.Redo(); err != nil {
		t.Fatalf("Redo() error: %v", err)
	}
	if row, _ := s.Row(2); row.Next == nil || *row.Next != 4 {
		t.Errorf("Row(2).Next after redo = %v, want 4", row.Next)
	}
}

func TestRelinkTogglesRowKind(t *testing.T) {
	s := newSession(t, npc(1, "A"), npc(4, "B"))

	if err := s.Apply(&Relink{Index: 4, OldNext: nil, NewNext: dialogue.Ref(1)}); err != nil {
		t.Fatalf("Apply(Relink) error: %v", err)
	}
	if row, _ := s.Row(4); !row.IsReply() {
		t.Error("Row(4).IsReply() = false, want reply after gaining a target")
	}

	if _, err := s.Undo(); err != nil {
		t.Fatalf("Undo() error: %v", err)
	}
	if row, _ := s.Row(4); row.IsReply() {
		t.Error("Row(4).IsReply() = true after undo, want NPC line again")
	}
}

func TestRelinkValidation(t *testing.T) {
	tests := []struct {
		name string
		cmd  *Relink
		code apperrors.Code
	}{
		{"unknown row", &Relink{Index: 9, NewNext: dialogue.Ref(1)}, apperrors.ErrCodeIndexNotFound},
		{"stale old target", &Relink{Index: 2, OldNext: dialogue.Ref(4), NewNext: nil}, apperrors.ErrCodeInvalidInput},
		{"dangling new target", &Relink{Index: 2, OldNext: dialogue.Ref(1), NewNext: dialogue.Ref(99)}, apperrors.ErrCodeBadReference},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSession(t, npc(1, "A"), reply(2, "r", 1))
			err := s.Apply(tt.cmd)
			if !apperrors.Is(err, tt.code) {
				t.Fatalf("Apply() error = %v, want code %s", err, tt.code)
			}
			if row, _ := s.Row(2); row.Next == nil || *row.Next != 1 {
				t.Errorf("Row(2).Next = %v, want untouched 1", row.Next)
			}
		})
	}
}

func TestMoveRoundTrip(t *testing.T) {
	s := newSession(t, npc(1, "A"))

	cmd := &Move{Index: 1, OldPos: layout.Point{}, NewPos: layout.Point{X: 7, Y: 8}}
	if err := s.Apply(cmd); err != nil {
		t.Fatalf("Apply(Move) error: %v", err)
	}
	if p, _ := s.Position(1); p != (layout.Point{X: 7, Y: 8}) {
		t.Errorf("Position(1) = %v, want {7 8}", p)
	}

	if _, err := s.Undo(); err != nil {
		t.Fatalf("Undo() error: %v", err)
	}
	if p, ok := s.Position(1); !ok || p != (layout.Point{}) {
		t.Errorf("Position(1) after undo = %v, %v, want origin", p, ok)
	}

	if err := s.Apply(&Move{Index: 9, NewPos: layout.Point{X: 1, Y: 1}}); !apperrors.Is(err, apperrors.ErrCodeIndexNotFound) {
		t.Errorf("Apply(Move) on unknown row error = %v, want INDEX_NOT_FOUND", err)
	}
}

func TestRenumberShiftRoundTrip(t *testing.T) {
	rows := []dialogue.Row{npc(1, "A"), reply(2, "a", 1), reply(3, "b", 4), npc(4, "B")}
	rows[2].ParentLine = dialogue.Ref(1)
	s := newSession(t, rows...)
	if err := s.Apply(&Move{Index: 3, NewPos: layout.Point{X: 2, Y: 3}}); err != nil {
		t.Fatalf("Apply(Move) error: %v", err)
	}

	if err := s.Apply(&RenumberShift{Start: 3, Delta: 10}); err != nil {
		t.Fatalf("Apply(RenumberShift) error: %v", err)
	}
	if got := s.Indices(); !equalInts(got, []int{1, 2, 13, 14}) {
		t.Errorf("Indices() = %v, want [1 2 13 14]", got)
	}
	if row, _ := s.Row(13); row.Next == nil || *row.Next != 14 {
		t.Errorf("Row(13).Next = %v, want 14", row.Next)
	}
	if row, _ := s.Row(2); row.Next == nil || *row.Next != 1 {
		t.Errorf("Row(2).Next = %v, want 1 (below the shift start)", row.Next)
	}
	if p, ok := s.Position(13); !ok || p != (layout.Point{X: 2, Y: 3}) {
		t.Errorf("Position(13) = %v, %v, want shifted key", p, ok)
	}

	if _, err := s.Undo(); err != nil {
		t.Fatalf("Undo() error: %v", err)
	}
	if got := s.Indices(); !equalInts(got, []int{1, 2, 3, 4}) {
		t.Errorf("Indices() after undo = %v, want [1 2 3 4]", got)
	}
	if p, ok := s.Position(3); !ok || p != (layout.Point{X: 2, Y: 3}) {
		t.Errorf("Position(3) after undo = %v, %v, want restored key", p, ok)
	}

	if _, err := s.Redo(); err != nil {
		t.Fatalf("Redo() error: %v", err)
	}
	if got := s.Indices(); !equalInts(got, []int{1, 2, 13, 14}) {
		t.Errorf("Indices() after redo = %v, want [1 2 13 14]", got)
	}
}

func TestRenumberShiftRejected(t *testing.T) {
	s := newSession(t, npc(1, "A"), npc(2, "B"), npc(10, "C"))

	if err := s.Apply(&RenumberShift{Start: 2, Delta: 0}); !apperrors.Is(err, apperrors.ErrCodeBadShift) {
		t.Errorf("zero delta error = %v, want BAD_SHIFT", err)
	}
	if err := s.Apply(&RenumberShift{Start: 10, Delta: -9}); !apperrors.Is(err, apperrors.ErrCodeBadShift) {
		t.Errorf("occupied gap error = %v, want BAD_SHIFT", err)
	}
	if got := s.Indices(); !equalInts(got, []int{1, 2, 10}) {
		t.Errorf("Indices() = %v, want untouched [1 2 10]", got)
	}
	if s.CanUndo() {
		t.Error("failed shift was recorded")
	}
}

func TestMacroAppliesWholeOrNotAtAll(t *testing.T) {
	s := newSession(t, npc(1, "A"), reply(2, "r", 1), npc(4, "B"))

	bad := &Macro{Label: "doomed", Cmds: []Command{
		&Relink{Index: 2, OldNext: dialogue.Ref(1), NewNext: dialogue.Ref(4)},
		&AddNodes{Rows: []dialogue.Row{npc(1, "dup")}, At: -1},
	}}
	err := s.Apply(bad)
	if !apperrors.Is(err, apperrors.ErrCodeDuplicateIndex) {
		t.Fatalf("Apply(bad macro) error = %v, want DUPLICATE_INDEX", err)
	}
	if row, _ := s.Row(2); row.Next == nil || *row.Next != 1 {
		t.Errorf("Row(2).Next = %v, want 1: applied prefix was not unwound", row.Next)
	}
	if s.CanUndo() {
		t.Error("failed macro was recorded")
	}

	good := &Macro{Label: "wire reply to new line", Cmds: []Command{
		&AddNodes{Rows: []dialogue.Row{npc(9, "C")}, At: -1},
		&Relink{Index: 2, OldNext: dialogue.Ref(1), NewNext: dialogue.Ref(9)},
	}}
	if err := s.Apply(good); err != nil {
		t.Fatalf("Apply(good macro) error: %v", err)
	}
	if name := s.History().UndoName(); name != "wire reply to new line" {
		t.Errorf("UndoName() = %q, want macro label", name)
	}

	if _, err := s.Undo(); err != nil {
		t.Fatalf("Undo() error: %v", err)
	}
	if s.Contains(9) {
		t.Error("Contains(9) = true: macro undo left the added row behind")
	}
	if row, _ := s.Row(2); row.Next == nil || *row.Next != 1 {
		t.Errorf("Row(2).Next after macro undo = %v, want 1", row.Next)
	}
}
