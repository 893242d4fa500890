package graph

import (
	"sort"
)

// Graph is the complete set of declared nodes plus derived dependency
// edges. Construction is two-phase: Add every node, then ResolveReferences
// once to prune conditionally-excluded nodes, verify that every edge has a
// live target, and materialize the implicit edges that references imply.
type Graph struct {
	nodes    map[Identity]*Node
	deps     map[Identity]map[Identity]struct{}
	resolved bool
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[Identity]*Node),
		deps:  make(map[Identity]map[Identity]struct{}),
	}
}

// Add registers a node. Fails with DuplicateIdentityError if the kind+name
// pair already exists.
func (g *Graph) Add(n *Node) error {
	if _, exists := g.nodes[n.Identity]; exists {
		return &DuplicateIdentityError{Identity: n.Identity}
	}
	g.nodes[n.Identity] = n
	g.resolved = false
	return nil
}

// Node looks up a node by identity. Excluded nodes are gone after
// ResolveReferences.
func (g *Graph) Node(id Identity) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Len reports the number of nodes currently in the graph.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Identities returns every node identity in ascending order.
func (g *Graph) Identities() []Identity {
	ids := make([]Identity, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// ResolveReferences prunes nodes whose conditional flag is false, then
// scans every explicit dependency and every property reference of the
// remaining nodes. An edge whose target is absent or was pruned fails with
// DanglingReferenceError; otherwise the edge is recorded in the node's
// dependency set. Idempotent: a second call on an unchanged graph is a
// no-op.
func (g *Graph) ResolveReferences() error {
	if g.resolved {
		return nil
	}

	pruned := make(map[Identity]struct{})
	for id, n := range g.nodes {
		if !n.Enabled {
			pruned[id] = struct{}{}
		}
	}
	for id := range pruned {
		delete(g.nodes, id)
	}

	deps := make(map[Identity]map[Identity]struct{}, len(g.nodes))
	check := func(from, to Identity, output string) error {
		if _, ok := g.nodes[to]; !ok {
			_, wasExcluded := pruned[to]
			return &DanglingReferenceError{From: from, To: to, Output: output, Excluded: wasExcluded}
		}
		if deps[from] == nil {
			deps[from] = make(map[Identity]struct{})
		}
		deps[from][to] = struct{}{}
		return nil
	}

	for id, n := range g.nodes {
		for _, dep := range n.DependsOn {
			if err := check(id, dep, ""); err != nil {
				return err
			}
		}
		for _, v := range n.Properties {
			for _, ref := range v.References() {
				if err := check(id, ref.Target, ref.Output); err != nil {
					return err
				}
			}
		}
	}

	g.deps = deps
	g.resolved = true
	return nil
}

// Dependencies returns the resolved dependency set of id in ascending
// order. Empty before ResolveReferences.
func (g *Graph) Dependencies(id Identity) []Identity {
	return sortedSet(g.deps[id])
}

// Dependents returns every node whose dependency set contains id, in
// ascending order.
func (g *Graph) Dependents(id Identity) []Identity {
	set := make(map[Identity]struct{})
	for from, targets := range g.deps {
		if _, ok := targets[id]; ok {
			set[from] = struct{}{}
		}
	}
	return sortedSet(set)
}

func sortedSet(set map[Identity]struct{}) []Identity {
	if len(set) == 0 {
		return nil
	}
	ids := make([]Identity, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}
