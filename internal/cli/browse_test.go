package cli

import (
	"strings"
	"testing"

	"github.com/avfe/dlg4vtmb/pkg/dialogue"
)

func testRows() []dialogue.Row {
	return []dialogue.Row{
		{Index: 1, Male: "Hello there"},
		{Index: 2, Male: "A reply", Next: dialogue.Ref(4), ParentLine: dialogue.Ref(1)},
		{Index: 3, Male: "Another reply", Next: dialogue.Ref(4), ParentLine: dialogue.Ref(1)},
		{Index: 4, Male: "Goodbye"},
	}
}

func TestBrowseFilterByText(t *testing.T) {
	m := newBrowseModel("test.dlg", testRows())

	m.applyFilter("reply")
	if len(m.visible) != 2 {
		t.Fatalf("filter %q matched %d rows, want 2", "reply", len(m.visible))
	}
	for _, pos := range m.visible {
		if !strings.Contains(strings.ToLower(m.rows[pos].Male), "reply") {
			t.Errorf("row #%d should not match %q", m.rows[pos].Index, "reply")
		}
	}
}

func TestBrowseFilterByIndex(t *testing.T) {
	m := newBrowseModel("test.dlg", testRows())

	m.applyFilter("4")
	if len(m.visible) != 1 {
		t.Fatalf("filter %q matched %d rows, want 1", "4", len(m.visible))
	}
	if got := m.rows[m.visible[0]].Index; got != 4 {
		t.Errorf("filter %q matched row #%d, want #4", "4", got)
	}
}

func TestBrowseFilterClearRestoresAll(t *testing.T) {
	m := newBrowseModel("test.dlg", testRows())

	m.applyFilter("reply")
	m.applyFilter("")
	if len(m.visible) != 4 {
		t.Errorf("cleared filter shows %d rows, want 4", len(m.visible))
	}
	if m.cursor != 0 {
		t.Errorf("cursor = %d after filter change, want 0", m.cursor)
	}
}

func TestBrowseFilterCaseInsensitive(t *testing.T) {
	m := newBrowseModel("test.dlg", testRows())

	m.applyFilter("GOODBYE")
	if len(m.visible) != 1 {
		t.Errorf("filter %q matched %d rows, want 1", "GOODBYE", len(m.visible))
	}
}

func TestBrowseLineMarksReplies(t *testing.T) {
	rows := testRows()

	npc := browseLine(rows[0], 80)
	if !strings.Contains(npc, "npc") {
		t.Errorf("browseLine(NPC) = %q, should contain %q", npc, "npc")
	}

	reply := browseLine(rows[1], 80)
	if !strings.Contains(reply, "pc") || !strings.Contains(reply, "4") {
		t.Errorf("browseLine(reply) = %q, should name the jump target", reply)
	}
}
