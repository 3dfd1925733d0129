package layout

import (
	"testing"

	"github.com/avfe/dlg4vtmb/pkg/dialogue"
)

// npc builds an NPC line for tests.
func npc(index int, text string) dialogue.Row {
	return dialogue.Row{Index: index, Male: text}
}

// reply builds a player reply that leads to next.
func reply(index int, text string, next int) dialogue.Row {
	return dialogue.Row{Index: index, Male: text, Next: dialogue.Ref(next)}
}

func TestOrderedLayersScenario(t *testing.T) {
	// NPC 1 with two replies: 2 jumps back to 1, 3 jumps on to NPC 4.
	// The jump back must not re-layer node 1, and node 4 lands below
	// the replies rather than beside node 1.
	rows := []dialogue.Row{
		npc(1, "Hello"),
		reply(2, "Again", 1),
		reply(3, "Onward", 4),
		npc(4, "Farewell"),
	}

	layers := OrderedLayers(rows)
	if len(layers) != 3 {
		t.Fatalf("OrderedLayers() produced %d layers, want 3: %v", len(layers), layers)
	}
	if !equalInts(layers[0], []int{1}) {
		t.Errorf("layer 0 = %v, want [1]", layers[0])
	}
	if !equalInts(layers[1], []int{2, 3}) {
		t.Errorf("layer 1 = %v, want [2 3]", layers[1])
	}
	if !equalInts(layers[2], []int{4}) {
		t.Errorf("layer 2 = %v, want [4]", layers[2])
	}
}

func TestLayeredScenarioPositions(t *testing.T) {
	rows := []dialogue.Row{
		npc(1, "Hello"),
		reply(2, "Again", 1),
		reply(3, "Onward", 4),
		npc(4, "Farewell"),
	}

	got := Layered(rows, nil, Config{})
	want := map[int]Point{
		1: {X: -180, Y: 0},
		2: {X: -360, Y: 200},
		3: {X: 0, Y: 200},
		4: {X: -180, Y: 400},
	}
	for idx, w := range want {
		if got[idx] != w {
			t.Errorf("position[%d] = %+v, want %+v", idx, got[idx], w)
		}
	}
	if len(got) != len(want) {
		t.Errorf("Layered() positioned %d rows, want %d", len(got), len(want))
	}
}

func TestLayeredComponentOffsets(t *testing.T) {
	rows := []dialogue.Row{
		npc(1, "First"),
		reply(2, "On", 3),
		npc(3, "End of first"),
		npc(10, "Second"),
		reply(11, "On", 12),
		npc(12, "End of second"),
	}

	got := Layered(rows, nil, Config{})

	// First component is centered on offset 0, the second on
	// maxLayerWidth + 4 gaps = 360 + 240 = 600.
	want := map[int]Point{
		1:  {X: -180, Y: 0},
		2:  {X: -180, Y: 200},
		3:  {X: -180, Y: 400},
		10: {X: 420, Y: 0},
		11: {X: 420, Y: 200},
		12: {X: 420, Y: 400},
	}
	for idx, w := range want {
		if got[idx] != w {
			t.Errorf("position[%d] = %+v, want %+v", idx, got[idx], w)
		}
	}
}

func TestLayeredTotalityWithCyclesAndOrphans(t *testing.T) {
	rows := []dialogue.Row{
		reply(9, "orphan", 99),
		npc(1, "A"),
		reply(2, "to B", 3),
		npc(3, "B"),
		reply(4, "back to A", 1),
		{Index: 5}, // separator
	}

	got := Layered(rows, nil, Config{})
	if len(got) != len(rows) {
		t.Fatalf("Layered() positioned %d rows, want %d", len(got), len(rows))
	}
	for _, r := range rows {
		if _, ok := got[r.Index]; !ok {
			t.Errorf("row %d received no position", r.Index)
		}
	}
}

func TestLayeredBarycenterReducesCrossings(t *testing.T) {
	// Two roots whose replies jump to two shared NPC hubs. Discovery
	// order puts hub 50 left of hub 60, which crosses four edge pairs;
	// the barycenter sweep swaps them, leaving two.
	rows := []dialogue.Row{
		npc(1, "First root"),
		reply(2, "to fifty", 50),
		reply(3, "to sixty", 60),
		npc(4, "Second root"),
		reply(5, "to sixty", 60),
		reply(6, "to fifty", 50),
		reply(7, "to fifty too", 50),
		npc(50, "Hub fifty"),
		npc(60, "Hub sixty"),
	}
	succ := dialogue.FlowSuccessors(rows)

	work := dialogue.CloneRows(rows)
	dialogue.InferParents(work)
	_, raw := newFlow(work).assignLayers()
	before := CountCrossings(raw, succ)

	after := CountCrossings(OrderedLayers(rows), succ)

	if before != 4 {
		t.Errorf("crossings before ordering = %d, want 4", before)
	}
	if after != 2 {
		t.Errorf("crossings after ordering = %d, want 2", after)
	}
}

func TestLayeredHonorsCallerComponents(t *testing.T) {
	rows := []dialogue.Row{
		npc(1, "Hello"),
		reply(2, "Again", 1),
		reply(3, "Onward", 4),
		npc(4, "Farewell"),
	}

	auto := Layered(rows, nil, Config{})
	explicit := Layered(rows, dialogue.Components(rows), Config{})

	if len(auto) != len(explicit) {
		t.Fatalf("explicit components positioned %d rows, auto %d", len(explicit), len(auto))
	}
	for idx, p := range auto {
		if explicit[idx] != p {
			t.Errorf("position[%d] = %+v with explicit components, %+v with nil", idx, explicit[idx], p)
		}
	}
}

func TestLayeredEmpty(t *testing.T) {
	if got := Layered(nil, nil, Config{}); len(got) != 0 {
		t.Errorf("Layered(nil) = %v, want empty", got)
	}
}

func TestLayeredDoesNotMutateInput(t *testing.T) {
	rows := []dialogue.Row{
		npc(1, "Hello"),
		reply(2, "Hi", 1),
	}
	Layered(rows, nil, Config{})
	if rows[1].ParentLine != nil {
		t.Errorf("input rows gained ParentLine = %d", *rows[1].ParentLine)
	}
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
