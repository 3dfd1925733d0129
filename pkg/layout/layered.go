package layout

import (
	"maps"
	"math"
	"slices"

	"github.com/avfe/dlg4vtmb/pkg/dialogue"
)

// flow is the row graph both engines traverse: rows by index, replies
// grouped under the line they answer, and replies grouped by jump target,
// all in file order.
type flow struct {
	rows     []dialogue.Row
	byIndex  map[int]dialogue.Row
	children map[int][]int
	incoming map[int][]int
}

func newFlow(rows []dialogue.Row) *flow {
	f := &flow{
		rows:     rows,
		byIndex:  make(map[int]dialogue.Row, len(rows)),
		children: make(map[int][]int),
		incoming: make(map[int][]int),
	}
	for _, r := range rows {
		f.byIndex[r.Index] = r
	}
	for _, r := range rows {
		if r.ParentLine != nil {
			f.children[*r.ParentLine] = append(f.children[*r.ParentLine], r.Index)
		}
		if r.Next != nil {
			f.incoming[*r.Next] = append(f.incoming[*r.Next], r.Index)
		}
	}
	return f
}

func (f *flow) exists(idx int) bool {
	_, ok := f.byIndex[idx]
	return ok
}

// Layered computes the Sugiyama-style banded layout: layers stacked top to
// bottom, components side by side. components must partition the row
// indices (pass the connectivity analyzer's result, or nil to compute it
// here). Returns a position for every input row and never mutates rows.
//
// # Algorithm
//
//  1. Recompute parent links from file order, unconditionally.
//  2. Assign layers breadth-first: conversation roots (see
//     [dialogue.FlowRoots]) seed layer 0; an NPC line's replies and a
//     reply's jump target land one layer below their discoverer. The first
//     assignment wins. Rows left unassigned seed their own pass at layer 0,
//     so layering is total.
//  3. Reduce crossings with [BarycenterIterations] stable sweeps: each
//     layer re-sorts by the mean position of each node's neighbors in the
//     layer above (a reply follows its parent; any other node follows the
//     replies jumping to it; no neighbors means barycenter 0).
//  4. Emit coordinates per component: y grows with the layer distance from
//     the component's top layer, each layer row is centered on the
//     component's X offset, and the offset advances by the component's
//     widest layer plus four horizontal gaps.
//
// # Cycles
//
// First-assignment-wins layering and the visited discipline in every
// traversal bound the work on cyclic graphs; a jump back to an already
// layered line simply stops that branch.
func Layered(rows []dialogue.Row, components [][]int, cfg Config) map[int]Point {
	cfg = cfg.WithDefaults()
	positions := make(map[int]Point, len(rows))
	if len(rows) == 0 {
		return positions
	}

	work := dialogue.CloneRows(rows)
	dialogue.InferParents(work)
	f := newFlow(work)

	if components == nil {
		components = dialogue.Components(work)
	}

	layerOf, layers := f.assignLayers()
	f.sortLayers(layers, f.layeredNeighbors)

	offsetX := 0.0
	for _, comp := range components {
		if len(comp) == 0 {
			continue
		}
		member := make(map[int]bool, len(comp))
		compLevels := make(map[int]bool)
		minLevel := math.MaxInt
		for _, idx := range comp {
			lvl, ok := layerOf[idx]
			if !ok {
				continue
			}
			member[idx] = true
			compLevels[lvl] = true
			minLevel = min(minLevel, lvl)
		}

		maxWidth := 0.0
		for _, lvl := range slices.Sorted(maps.Keys(compLevels)) {
			var ordered []int
			for _, idx := range layers[lvl] {
				if member[idx] {
					ordered = append(ordered, idx)
				}
			}
			y := float64(lvl-minLevel) * cfg.cellH()
			layerWidth := float64(len(ordered)) * cfg.cellW()
			maxWidth = max(maxWidth, layerWidth)
			startX := offsetX - layerWidth/2
			for i, idx := range ordered {
				positions[idx] = Point{X: startX + float64(i)*cfg.cellW(), Y: y}
			}
		}
		offsetX += maxWidth + float64(cfg.HGap)*4
	}
	return positions
}

// OrderedLayers returns the layer assignment the layered engine would use
// for rows, after barycenter ordering: layer number to row indices in left
// to right order. Exposed for crossing diagnostics; pair it with
// [dialogue.FlowSuccessors] and [CountCrossings].
func OrderedLayers(rows []dialogue.Row) map[int][]int {
	work := dialogue.CloneRows(rows)
	dialogue.InferParents(work)
	f := newFlow(work)
	_, layers := f.assignLayers()
	f.sortLayers(layers, f.layeredNeighbors)
	return layers
}

// assignLayers runs the breadth-first layering over the whole graph and
// returns the layer per index plus the indices per layer in discovery
// order.
func (f *flow) assignLayers() (map[int]int, map[int][]int) {
	layerOf := make(map[int]int, len(f.rows))
	layers := make(map[int][]int)

	type item struct {
		idx, lvl int
	}
	var queue []item
	drain := func() {
		for len(queue) > 0 {
			it := queue[0]
			queue = queue[1:]
			if _, seen := layerOf[it.idx]; seen {
				continue
			}
			layerOf[it.idx] = it.lvl
			layers[it.lvl] = append(layers[it.lvl], it.idx)

			r := f.byIndex[it.idx]
			if r.Next == nil {
				for _, ch := range f.children[it.idx] {
					queue = append(queue, item{ch, it.lvl + 1})
				}
			} else if f.exists(*r.Next) {
				queue = append(queue, item{*r.Next, it.lvl + 1})
			}
		}
	}

	for _, root := range dialogue.FlowRoots(f.rows) {
		queue = append(queue, item{root, 0})
	}
	drain()

	// Rows no root reaches (orphan replies, disconnected loops) start
	// their own pass so the layering stays total.
	for _, r := range f.rows {
		if _, seen := layerOf[r.Index]; !seen {
			queue = append(queue, item{r.Index, 0})
			drain()
		}
	}
	return layerOf, layers
}

// neighborsFunc selects the layer-above neighbor candidates of a row for
// barycenter ordering. The engines differ only here.
type neighborsFunc func(r dialogue.Row) []int

// layeredNeighbors: a reply follows the line it answers; everything else
// follows the replies jumping to it.
func (f *flow) layeredNeighbors(r dialogue.Row) []int {
	if r.IsReply() && r.ParentLine != nil {
		return []int{*r.ParentLine}
	}
	return f.incoming[r.Index]
}

// forestNeighbors: like layeredNeighbors, but a reply with no parent stays
// put instead of chasing stray incoming references.
func (f *flow) forestNeighbors(r dialogue.Row) []int {
	if r.IsReply() {
		if r.ParentLine != nil {
			return []int{*r.ParentLine}
		}
		return nil
	}
	return f.incoming[r.Index]
}

// sortLayers runs the barycenter sweeps over layers in ascending order,
// re-sorting each layer in place. Sorting is stable, so ties keep their
// discovery order, and a layer re-sorted early in a sweep feeds updated
// positions to the layer below it within the same sweep.
func (f *flow) sortLayers(layers map[int][]int, neighbors neighborsFunc) {
	levels := slices.Sorted(maps.Keys(layers))
	for range BarycenterIterations {
		for _, lvl := range levels {
			prev := layers[lvl-1]
			prevPos := make(map[int]int, len(prev))
			for i, idx := range prev {
				prevPos[idx] = i
			}

			bary := make(map[int]float64, len(layers[lvl]))
			for _, idx := range layers[lvl] {
				var sum float64
				var cnt int
				for _, n := range neighbors(f.byIndex[idx]) {
					if p, ok := prevPos[n]; ok {
						sum += float64(p)
						cnt++
					}
				}
				if cnt > 0 {
					bary[idx] = sum / float64(cnt)
				}
			}
			slices.SortStableFunc(layers[lvl], func(a, b int) int {
				switch {
				case bary[a] < bary[b]:
					return -1
				case bary[a] > bary[b]:
					return 1
				default:
					return 0
				}
			})
		}
	}
}
