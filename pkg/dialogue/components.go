package dialogue

// Components partitions rows into weakly-connected components: two rows
// belong to the same component when a chain of answer edges (ParentLine)
// and leads-to edges (Next) connects them, with edge direction ignored.
// Every row lands in exactly one component.
//
// Missing parents are filled in first (best-effort, explicit values are
// kept; the input slice is not modified). Components are emitted in the
// order their first row appears in the file, and rows inside a component
// are listed in breadth-first discovery order.
//
// Traversal carries a visited set, so cyclic leads-to chains terminate.
func Components(rows []Row) [][]int {
	if len(rows) == 0 {
		return nil
	}
	work := CloneRows(rows)
	FillMissingParents(work)
	return componentsOf(work)
}

// componentsOf runs the partition on rows whose parents are already
// resolved. Callers own the slice.
func componentsOf(rows []Row) [][]int {
	exists := make(map[int]bool, len(rows))
	for _, r := range rows {
		exists[r.Index] = true
	}

	// Undirected adjacency. Edges to indices that name no row are
	// dropped rather than traversed.
	adj := make(map[int][]int, len(rows))
	addEdge := func(a, b int) {
		adj[a] = append(adj[a], b)
		adj[b] = append(adj[b], a)
	}
	for _, r := range rows {
		if r.ParentLine != nil && exists[*r.ParentLine] && *r.ParentLine != r.Index {
			addEdge(r.Index, *r.ParentLine)
		}
		if r.Next != nil && exists[*r.Next] && *r.Next != r.Index {
			addEdge(r.Index, *r.Next)
		}
	}

	visited := make(map[int]bool, len(rows))
	var components [][]int

	for _, seed := range rows {
		if visited[seed.Index] {
			continue
		}
		visited[seed.Index] = true
		comp := []int{}
		queue := []int{seed.Index}
		for len(queue) > 0 {
			idx := queue[0]
			queue = queue[1:]
			comp = append(comp, idx)
			for _, nb := range adj[idx] {
				if !visited[nb] {
					visited[nb] = true
					queue = append(queue, nb)
				}
			}
		}
		components = append(components, comp)
	}
	return components
}

// childrenByParent indexes rows under their ParentLine in file order.
func childrenByParent(rows []Row) map[int][]int {
	out := make(map[int][]int)
	for _, r := range rows {
		if r.ParentLine != nil {
			out[*r.ParentLine] = append(out[*r.ParentLine], r.Index)
		}
	}
	return out
}
