package graph

import (
	"sort"
)

// Order returns a topological order of the resolved graph: every node
// appears after all of its dependencies. Among nodes whose dependencies are
// all already ordered, the one with the smallest identity is emitted first,
// so two equal graphs produce the same order regardless of insertion
// sequence. Fails with CyclicDependencyError naming the nodes on a cycle.
func (g *Graph) Order() ([]Identity, error) {
	if err := g.ResolveReferences(); err != nil {
		return nil, err
	}

	inDegree := make(map[Identity]int, len(g.nodes))
	for id := range g.nodes {
		inDegree[id] = len(g.deps[id])
	}

	var ready []Identity
	for id, deg := range inDegree {
		if deg == 0 {
			ready = append(ready, id)
		}
	}

	order := make([]Identity, 0, len(g.nodes))
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return ready[i].String() < ready[j].String() })
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)

		for from, targets := range g.deps {
			if _, ok := targets[next]; !ok {
				continue
			}
			inDegree[from]--
			if inDegree[from] == 0 {
				ready = append(ready, from)
			}
		}
	}

	if len(order) != len(g.nodes) {
		return nil, &CyclicDependencyError{Cycle: g.findCycle(inDegree)}
	}
	return order, nil
}

// findCycle walks dependency edges within the still-unordered remainder
// until a node repeats, then trims the walk to the cycle itself. Nodes that
// are merely downstream of a cycle are not named.
func (g *Graph) findCycle(inDegree map[Identity]int) []Identity {
	remaining := make(map[Identity]struct{})
	for id, deg := range inDegree {
		if deg > 0 {
			remaining[id] = struct{}{}
		}
	}

	var start Identity
	first := true
	for id := range remaining {
		if first || id.String() < start.String() {
			start, first = id, false
		}
	}

	seen := make(map[Identity]int)
	var path []Identity
	cur := start
	for {
		if at, ok := seen[cur]; ok {
			cycle := append([]Identity(nil), path[at:]...)
			rotateToSmallest(cycle)
			return cycle
		}
		seen[cur] = len(path)
		path = append(path, cur)

		// Follow the smallest unordered dependency; one always exists,
		// otherwise the node would have reached zero in-degree.
		var next Identity
		found := false
		for dep := range g.deps[cur] {
			if _, ok := remaining[dep]; !ok {
				continue
			}
			if !found || dep.String() < next.String() {
				next, found = dep, true
			}
		}
		if !found {
			return path
		}
		cur = next
	}
}

func rotateToSmallest(cycle []Identity) {
	if len(cycle) == 0 {
		return
	}
	min := 0
	for i := range cycle {
		if cycle[i].String() < cycle[min].String() {
			min = i
		}
	}
	rotated := append(append([]Identity(nil), cycle[min:]...), cycle[:min]...)
	copy(cycle, rotated)
}
