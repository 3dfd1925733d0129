package layout

import (
	"maps"
	"math"
	"slices"

	"github.com/avfe/dlg4vtmb/pkg/dialogue"
)

// Orientation selects which way the forest layout grows. The zero value
// reads as [Vertical].
type Orientation string

const (
	// Vertical puts roots at the top; layers grow downward.
	Vertical Orientation = "vertical"
	// Horizontal puts roots at the left; layers grow rightward.
	Horizontal Orientation = "horizontal"
)

// Forest computes the tree-per-root layout: every conversation root heads
// its own component laid out independently, and the components are packed
// into a roughly square grid. Returns a position for every input row and
// never mutates rows.
//
// Layering and ordering work as in [Layered], with two differences: each
// root's breadth-first pass is scoped to its own component (a subtree
// shared between two roots joins whichever root reaches it first), and
// parent links are only filled where missing, so explicitly authored tree
// shapes survive.
//
// # Grid Packing
//
// Components get a bounding-box estimate of
// (widest layer)x(layer count) cells. The grid uses round(sqrt(count))
// columns; components fill it row by row in discovery order, each grid row
// as tall as its tallest component. Within its slot every layer is centered
// on the component's width. Orientation swaps which axis carries the layer
// progression; the box estimate keeps cell width on the secondary axis
// either way.
func Forest(rows []dialogue.Row, orientation Orientation, cfg Config) map[int]Point {
	cfg = cfg.WithDefaults()
	positions := make(map[int]Point, len(rows))
	if len(rows) == 0 {
		return positions
	}

	work := dialogue.CloneRows(rows)
	dialogue.FillMissingParents(work)
	f := newFlow(work)

	visited := make(map[int]bool, len(work))
	bfs := func(root int) map[int][]int {
		layers := make(map[int][]int)
		type item struct {
			idx, lvl int
		}
		queue := []item{{root, 0}}
		visited[root] = true
		for len(queue) > 0 {
			it := queue[0]
			queue = queue[1:]
			layers[it.lvl] = append(layers[it.lvl], it.idx)

			r := f.byIndex[it.idx]
			if r.Next == nil {
				for _, ch := range f.children[it.idx] {
					if !visited[ch] {
						visited[ch] = true
						queue = append(queue, item{ch, it.lvl + 1})
					}
				}
			} else if f.exists(*r.Next) && !visited[*r.Next] {
				visited[*r.Next] = true
				queue = append(queue, item{*r.Next, it.lvl + 1})
			}
		}
		return layers
	}

	// One component per root, then one per row nothing reached, so no row
	// is ever dropped.
	var comps []map[int][]int
	for _, root := range dialogue.FlowRoots(work) {
		if !visited[root] {
			comps = append(comps, bfs(root))
		}
	}
	for _, r := range work {
		if !visited[r.Index] {
			comps = append(comps, bfs(r.Index))
		}
	}

	for _, layers := range comps {
		f.sortLayers(layers, f.forestNeighbors)
	}

	boxes := make([]Size, len(comps))
	for i, layers := range comps {
		if len(layers) == 0 {
			boxes[i] = Size{W: cfg.cellW(), H: cfg.cellH()}
			continue
		}
		maxPerLayer := 0
		minLvl, maxLvl := math.MaxInt, math.MinInt
		for lvl, nodes := range layers {
			maxPerLayer = max(maxPerLayer, len(nodes))
			minLvl = min(minLvl, lvl)
			maxLvl = max(maxLvl, lvl)
		}
		boxes[i] = Size{
			W: float64(maxPerLayer) * cfg.cellW(),
			H: float64(maxLvl-minLvl+1) * cfg.cellH(),
		}
	}

	cols := max(1, int(math.Round(math.Sqrt(float64(len(comps))))))
	marginX := float64(cfg.HGap) * 4
	marginY := float64(cfg.VGap) * 3

	rowPrimary := 0.0
	for start := 0; start < len(comps); start += cols {
		end := min(start+cols, len(comps))

		rowHeight := 0.0
		for i := start; i < end; i++ {
			rowHeight = max(rowHeight, boxes[i].H)
		}

		curSecondary := 0.0
		for i := start; i < end; i++ {
			layers := comps[i]
			compW := boxes[i].W

			minLvl := 0
			if len(layers) > 0 {
				minLvl = math.MaxInt
				for lvl := range layers {
					minLvl = min(minLvl, lvl)
				}
			}
			for _, lvl := range slices.Sorted(maps.Keys(layers)) {
				nodes := layers[lvl]
				span := float64(len(nodes)) * cfg.cellW()
				startSecondary := curSecondary + (compW-span)/2
				for j, idx := range nodes {
					secondary := startSecondary + float64(j)*cfg.cellW()
					primary := rowPrimary + float64(lvl-minLvl)*cfg.cellH()
					if orientation == Horizontal {
						positions[idx] = Point{X: primary, Y: secondary}
					} else {
						positions[idx] = Point{X: secondary, Y: primary}
					}
				}
			}
			curSecondary += compW + marginX
		}
		rowPrimary += rowHeight + marginY
	}
	return positions
}
