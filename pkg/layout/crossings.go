package layout

import (
	"maps"
	"slices"
)

// CountCrossings sums the edge crossings between every consecutive pair of
// ordered layers. layers maps a layer number to its row indices in left to
// right order (see [OrderedLayers]); succ is the directed flow adjacency
// (see [dialogue.FlowSuccessors]). A missing layer counts as empty.
func CountCrossings(layers map[int][]int, succ map[int][]int) int {
	levels := slices.Sorted(maps.Keys(layers))
	total := 0
	for i := 0; i < len(levels)-1; i++ {
		lvl := levels[i]
		total += CountLayerCrossings(succ, layers[lvl], layers[lvl+1])
	}
	return total
}

// CountLayerCrossings counts the edge crossings between two adjacent
// ordered layers in O(E log V), E being the edges between them and V the
// size of the lower layer.
//
// Edges (u1,v1) and (u2,v2) cross iff u1 sits left of u2 while v1 sits
// right of v2; with edges sorted by source position this reduces to
// counting inversions over target positions, which a Fenwick tree does
// without the naive quadratic pass. Returns 0 when either layer is empty.
func CountLayerCrossings(succ map[int][]int, upper, lower []int) int {
	if len(upper) == 0 || len(lower) == 0 {
		return 0
	}

	lowerPos := make(map[int]int, len(lower))
	for i, idx := range lower {
		lowerPos[idx] = i
	}

	type edge struct {
		from, to int // positions in upper and lower order
	}
	edges := make([]edge, 0, len(upper)*2)
	for i, idx := range upper {
		for _, target := range succ[idx] {
			if pos, ok := lowerPos[target]; ok {
				edges = append(edges, edge{i, pos})
			}
		}
	}
	if len(edges) < 2 {
		return 0
	}

	slices.SortFunc(edges, func(a, b edge) int {
		if a.from != b.from {
			return a.from - b.from
		}
		return a.to - b.to
	})

	tree := make([]int, len(lower)+1)
	crossings, seen := 0, 0
	for _, e := range edges {
		// Edges already seen with a target at or left of e.to do not
		// cross it; the remainder do.
		atOrLeft := 0
		for q := e.to + 1; q > 0; q -= q & (-q) {
			atOrLeft += tree[q]
		}
		crossings += seen - atOrLeft

		seen++
		for q := e.to + 1; q < len(tree); q += q & (-q) {
			tree[q]++
		}
	}
	return crossings
}
