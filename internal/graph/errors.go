package graph

import (
	"fmt"
	"strings"
)

// DuplicateIdentityError means the same kind+name pair was added twice.
type DuplicateIdentityError struct {
	Identity Identity
}

func (e *DuplicateIdentityError) Error() string {
	return fmt.Sprintf("duplicate resource identity: %s", e.Identity)
}

// DanglingReferenceError means a node points at a target that is absent
// from the graph or excluded by its conditional flag. Output is empty when
// the edge came from an explicit dependency entry rather than a reference.
type DanglingReferenceError struct {
	From     Identity
	To       Identity
	Output   string
	Excluded bool
}

func (e *DanglingReferenceError) Error() string {
	what := "explicit dependency"
	if e.Output != "" {
		what = fmt.Sprintf("reference to output %q", e.Output)
	}
	why := "not in the graph"
	if e.Excluded {
		why = "excluded by its condition"
	}
	return fmt.Sprintf("dangling %s: %s -> %s (%s)", what, e.From, e.To, why)
}

// CyclicDependencyError names the nodes on a dependency cycle.
type CyclicDependencyError struct {
	Cycle []Identity
}

func (e *CyclicDependencyError) Error() string {
	if len(e.Cycle) == 0 {
		return "dependency cycle detected"
	}
	parts := make([]string, 0, len(e.Cycle)+1)
	for _, id := range e.Cycle {
		parts = append(parts, id.String())
	}
	parts = append(parts, e.Cycle[0].String())
	return "dependency cycle detected: " + strings.Join(parts, " -> ")
}
