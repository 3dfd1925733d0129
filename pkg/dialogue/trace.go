package dialogue

import "slices"

// Default bounds for [TraceUpstream]. Dialogue graphs are cyclic, so the
// walk is capped both in depth and in the number of emitted paths.
const (
	DefaultTraceDepth = 20
	DefaultTracePaths = 200
)

// TraceOptions bounds an upstream trace. Zero values select the defaults.
type TraceOptions struct {
	MaxDepth int
	MaxPaths int
}

// TraceUpstream collects conversation paths that reach the target row,
// walking the answers and leads-to relations backwards: which replies lead
// to this line, and which lines do those replies answer. Each returned path
// is a sequence of row indices from the furthest discovered ancestor down
// to the target.
//
// Parents are recomputed from file order before tracing, matching what the
// editor shows. A target with no parent yields the single path [target].
// When a walk revisits a line already on its path, the path is emitted as
// is rather than extended, so cycles terminate. Returns ErrUnknownIndex if
// the target does not exist.
func TraceUpstream(rows []Row, target int, opts TraceOptions) ([][]int, error) {
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultTraceDepth
	}
	maxPaths := opts.MaxPaths
	if maxPaths <= 0 {
		maxPaths = DefaultTracePaths
	}

	work := CloneRows(rows)
	InferParents(work)

	byIndex := make(map[int]Row, len(work))
	for _, r := range work {
		byIndex[r.Index] = r
	}
	start, ok := byIndex[target]
	if !ok {
		return nil, ErrUnknownIndex
	}
	if start.ParentLine == nil {
		return [][]int{{target}}, nil
	}

	// Replies in file order; incoming lookups preserve this order.
	var replies []Row
	for _, r := range work {
		if r.Next != nil {
			replies = append(replies, r)
		}
	}
	incoming := func(npc int) []int {
		var out []int
		for _, r := range replies {
			if *r.Next == npc {
				out = append(out, r.Index)
			}
		}
		return out
	}

	type frame struct {
		path  []int
		npc   int
		depth int
	}

	var paths [][]int
	stack := []frame{{path: []int{*start.ParentLine, target}, npc: *start.ParentLine}}
	for len(stack) > 0 && len(paths) < maxPaths {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		pcs := incoming(f.npc)
		if len(pcs) == 0 || f.depth >= maxDepth {
			paths = append(paths, f.path)
			continue
		}
		for _, pc := range pcs {
			parent := byIndex[pc].ParentLine
			switch {
			case parent == nil:
				paths = append(paths, prepend(f.path, pc))
			case slices.Contains(f.path, *parent):
				paths = append(paths, f.path)
			default:
				stack = append(stack, frame{
					path:  prepend(f.path, *parent, pc),
					npc:   *parent,
					depth: f.depth + 1,
				})
			}
		}
	}
	return paths, nil
}

func prepend(path []int, head ...int) []int {
	out := make([]int, 0, len(head)+len(path))
	out = append(out, head...)
	return append(out, path...)
}
