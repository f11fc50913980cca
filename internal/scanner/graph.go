package scanner

import "github.com/lcgerke/lattice/internal/domain"

// Graph is the stack graph derived from all metadata records: nodes are
// tracked branches plus the trunk, edges point from child to parent. A
// valid graph is a forest rooted at the trunk.
type Graph struct {
	Trunk    domain.BranchName
	Parent   map[domain.BranchName]domain.BranchName
	Children map[domain.BranchName][]domain.BranchName
}

// BuildGraph constructs a Graph from the trunk and the tracked branches'
// structural metadata views.
func BuildGraph(trunk domain.BranchName, metadata map[domain.BranchName]domain.Structural) *Graph {
	g := &Graph{
		Trunk:    trunk,
		Parent:   make(map[domain.BranchName]domain.BranchName, len(metadata)),
		Children: make(map[domain.BranchName][]domain.BranchName),
	}
	for branch, m := range metadata {
		g.Parent[branch] = m.Parent
		g.Children[m.Parent] = append(g.Children[m.Parent], branch)
	}
	return g
}

// FindCycle returns the first cycle discovered (as an ordered branch
// list) while walking every tracked branch's parent chain, or nil if the
// graph is acyclic.
func (g *Graph) FindCycle() []domain.BranchName {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[domain.BranchName]int)

	var path []domain.BranchName
	var walk func(domain.BranchName) []domain.BranchName
	walk = func(b domain.BranchName) []domain.BranchName {
		if b == g.Trunk {
			return nil
		}
		switch state[b] {
		case visiting:
			// found a cycle: slice path from b's first occurrence
			for i, p := range path {
				if p == b {
					return append(append([]domain.BranchName{}, path[i:]...), b)
				}
			}
			return []domain.BranchName{b}
		case done:
			return nil
		}
		state[b] = visiting
		path = append(path, b)
		parent, ok := g.Parent[b]
		if ok {
			if cyc := walk(parent); cyc != nil {
				return cyc
			}
		}
		path = path[:len(path)-1]
		state[b] = done
		return nil
	}

	for branch := range g.Parent {
		if state[branch] == unvisited {
			if cyc := walk(branch); cyc != nil {
				return cyc
			}
		}
	}
	return nil
}

// TopologicalOrder returns scope in bottom-up order (parents before
// children, trunk-adjacent first) restricted to the branches in scope:
// for each branch, its parent appears earlier unless the parent is trunk.
func (g *Graph) TopologicalOrder(scope []domain.BranchName) []domain.BranchName {
	inScope := make(map[domain.BranchName]bool, len(scope))
	for _, b := range scope {
		inScope[b] = true
	}

	var depth func(domain.BranchName, map[domain.BranchName]bool) int
	depth = func(b domain.BranchName, seen map[domain.BranchName]bool) int {
		if b == g.Trunk || seen[b] {
			return 0
		}
		seen[b] = true
		parent, ok := g.Parent[b]
		if !ok {
			return 0
		}
		return 1 + depth(parent, seen)
	}

	depths := make(map[domain.BranchName]int, len(scope))
	for _, b := range scope {
		depths[b] = depth(b, map[domain.BranchName]bool{})
	}

	ordered := make([]domain.BranchName, len(scope))
	copy(ordered, scope)
	// stable insertion sort by depth keeps a deterministic tie-break
	// order matching the caller's original scope ordering.
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0 && depths[ordered[j-1]] > depths[ordered[j]]; j-- {
			ordered[j-1], ordered[j] = ordered[j], ordered[j-1]
		}
	}
	return ordered
}
