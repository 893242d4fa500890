package graph

import (
	"fmt"
	"strings"
)

// DOT renders the resolved graph as Graphviz DOT text. Edges point from a
// node to its dependencies. Output is deterministic.
func (g *Graph) DOT() string {
	var b strings.Builder
	b.WriteString("digraph anneal {\n")
	b.WriteString("  rankdir=LR;\n")

	ids := g.Identities()
	aliases := make(map[Identity]string, len(ids))
	for i, id := range ids {
		alias := fmt.Sprintf("n%d", i)
		aliases[id] = alias
		fmt.Fprintf(&b, "  %s [label=\"%s\"];\n", alias, escapeDOT(id.String()))
	}
	for _, id := range ids {
		for _, dep := range g.Dependencies(id) {
			fmt.Fprintf(&b, "  %s -> %s;\n", aliases[id], aliases[dep])
		}
	}
	b.WriteString("}\n")
	return b.String()
}

func escapeDOT(s string) string {
	return strings.ReplaceAll(s, "\"", "\\\"")
}
