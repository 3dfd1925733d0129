package dialogue

import "fmt"

// WarningKind classifies a structural finding.
type WarningKind string

// Structural warning kinds. These describe oddities that game data in the
// wild actually contains; they are reported, never treated as errors.
const (
	// WarnDanglingNext: a reply's Next names an index that does not exist.
	WarnDanglingNext WarningKind = "dangling_next"
	// WarnDanglingParent: a row's ParentLine names an index that does not exist.
	WarnDanglingParent WarningKind = "dangling_parent"
	// WarnCycle: the conversation flow loops back to an earlier line.
	WarnCycle WarningKind = "cycle"
	// WarnUnreachable: no conversation path from a root reaches the line.
	WarnUnreachable WarningKind = "unreachable"
)

// Warning is one structural finding tied to a row.
type Warning struct {
	Kind   WarningKind
	Index  int
	Detail string
}

func (w Warning) String() string {
	return fmt.Sprintf("#%d %s: %s", w.Index, w.Kind, w.Detail)
}

// Analyze inspects rows for structural oddities: dangling references,
// leads-to cycles, and lines unreachable from any conversation root.
// Parents are filled best-effort first (the input is not modified).
//
// Cycle detection walks the directed conversation flow (an NPC line to its
// replies, a reply to its jump target) with three-color depth-first search
// and reports the row where a back edge was found. Reachability starts
// from NPC lines with no incoming leads-to edge, or from the first NPC
// line when every one of them has an incoming edge.
func Analyze(rows []Row) []Warning {
	if len(rows) == 0 {
		return nil
	}
	work := CloneRows(rows)
	FillMissingParents(work)

	exists := make(map[int]bool, len(work))
	for _, r := range work {
		exists[r.Index] = true
	}
	children := childrenByParent(work)

	var warnings []Warning

	for _, r := range work {
		if r.Next != nil && !exists[*r.Next] {
			warnings = append(warnings, Warning{
				Kind:   WarnDanglingNext,
				Index:  r.Index,
				Detail: fmt.Sprintf("leads to missing line #%d", *r.Next),
			})
		}
		if r.ParentLine != nil && !exists[*r.ParentLine] {
			warnings = append(warnings, Warning{
				Kind:   WarnDanglingParent,
				Index:  r.Index,
				Detail: fmt.Sprintf("answers missing line #%d", *r.ParentLine),
			})
		}
	}

	flow := flowSuccessorsOf(work, exists, children)
	succ := func(idx int) []int { return flow[idx] }

	const (
		white = iota
		gray
		black
	)
	color := make(map[int]int, len(work))
	var dfs func(idx int)
	dfs = func(idx int) {
		color[idx] = gray
		for _, next := range succ(idx) {
			switch color[next] {
			case white:
				dfs(next)
			case gray:
				warnings = append(warnings, Warning{
					Kind:   WarnCycle,
					Index:  idx,
					Detail: fmt.Sprintf("flow loops back to line #%d", next),
				})
			}
		}
		color[idx] = black
	}
	for _, r := range work {
		if color[r.Index] == white {
			dfs(r.Index)
		}
	}

	roots := FlowRoots(work)
	if len(roots) > 0 {
		reached := make(map[int]bool, len(work))
		queue := append([]int(nil), roots...)
		for _, root := range roots {
			reached[root] = true
		}
		for len(queue) > 0 {
			idx := queue[0]
			queue = queue[1:]
			for _, next := range succ(idx) {
				if !reached[next] {
					reached[next] = true
					queue = append(queue, next)
				}
			}
		}
		for _, r := range work {
			if !reached[r.Index] {
				warnings = append(warnings, Warning{
					Kind:   WarnUnreachable,
					Index:  r.Index,
					Detail: "no conversation path reaches this line",
				})
			}
		}
	}

	return warnings
}

// FlowSuccessors returns the directed conversation-flow adjacency: an NPC
// line points to the replies answering it (file order), a reply points to
// its Next target when that row exists. Missing parents are filled
// best-effort first; the input is not modified.
func FlowSuccessors(rows []Row) map[int][]int {
	work := CloneRows(rows)
	FillMissingParents(work)

	exists := make(map[int]bool, len(work))
	for _, r := range work {
		exists[r.Index] = true
	}
	return flowSuccessorsOf(work, exists, childrenByParent(work))
}

func flowSuccessorsOf(rows []Row, exists map[int]bool, children map[int][]int) map[int][]int {
	out := make(map[int][]int, len(rows))
	for _, r := range rows {
		if r.Next != nil {
			if exists[*r.Next] {
				out[r.Index] = []int{*r.Next}
			}
			continue
		}
		out[r.Index] = children[r.Index]
	}
	return out
}

// FlowRoots returns the conversation entry points: NPC lines that no reply
// leads to, in file order. When every NPC line has an incoming leads-to
// edge (a fully looped conversation), the first NPC line in file order is
// returned as the sole root. Returns nil when there are no NPC lines.
func FlowRoots(rows []Row) []int {
	incoming := make(map[int]int)
	for _, r := range rows {
		if !r.IsReply() {
			incoming[r.Index] = 0
		}
	}
	for _, r := range rows {
		if r.Next != nil {
			if _, ok := incoming[*r.Next]; ok {
				incoming[*r.Next]++
			}
		}
	}

	var roots []int
	for _, r := range rows {
		if !r.IsReply() && incoming[r.Index] == 0 {
			roots = append(roots, r.Index)
		}
	}
	if len(roots) == 0 {
		for _, r := range rows {
			if !r.IsReply() {
				return []int{r.Index}
			}
		}
	}
	return roots
}
