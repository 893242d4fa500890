package graph

import (
	"fmt"
	"strings"
)

// Identity uniquely names a declared resource: its kind plus its name.
type Identity struct {
	Kind string
	Name string
}

func (id Identity) String() string {
	return id.Kind + "." + id.Name
}

// ParseIdentity parses "kind.name" into an Identity. The name itself may
// contain dots; only the first dot separates kind from name.
func ParseIdentity(s string) (Identity, error) {
	kind, name, ok := strings.Cut(s, ".")
	if !ok || kind == "" || name == "" {
		return Identity{}, fmt.Errorf("invalid identity %q: want kind.name", s)
	}
	return Identity{Kind: kind, Name: name}, nil
}

// Node is one declared resource: an identity, its desired-state properties,
// explicit dependencies, and a conditional-inclusion flag. A node whose
// Enabled flag is false is pruned from the graph before ordering and never
// reaches a provider.
type Node struct {
	Identity   Identity
	Properties map[string]Value
	DependsOn  []Identity

	// Enabled gates inclusion. Pruning happens at graph construction,
	// never as a runtime skip decision.
	Enabled bool

	// Sensitive lists property names whose values must never surface in
	// report output or error detail.
	Sensitive []string
}

// NewNode returns an enabled node with an empty property set.
func NewNode(kind, name string) *Node {
	return &Node{
		Identity:   Identity{Kind: kind, Name: name},
		Properties: make(map[string]Value),
		Enabled:    true,
	}
}

// Set assigns one desired property and returns the node for chaining.
func (n *Node) Set(name string, v Value) *Node {
	if n.Properties == nil {
		n.Properties = make(map[string]Value)
	}
	n.Properties[name] = v
	return n
}

// DependOn appends explicit dependencies.
func (n *Node) DependOn(ids ...Identity) *Node {
	n.DependsOn = append(n.DependsOn, ids...)
	return n
}

// IsSensitive reports whether the named property was declared sensitive.
func (n *Node) IsSensitive(property string) bool {
	for _, s := range n.Sensitive {
		if s == property {
			return true
		}
	}
	return false
}
