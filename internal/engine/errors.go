package engine

import (
	"fmt"
	"time"

	"github.com/anneal-io/anneal/internal/graph"
)

// ProviderError wraps a fetch, apply, or poll failure for one node. It
// fails that node and its transitive dependents; unrelated subgraphs keep
// going. The message carries identity and operation only, never property
// values.
type ProviderError struct {
	Identity graph.Identity
	Op       string // "fetch", "apply", "poll", "delete"
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s failed: %v", e.Identity, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// TimeoutError means a node's poll loop exhausted its configured budget.
// Always surfaced wrapped in a ProviderError.
type TimeoutError struct {
	Identity graph.Identity
	Budget   time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("operation did not complete within %s", e.Budget)
}

// UnresolvedOutputError means a node was scheduled before its referenced
// output existed. This indicates an ordering bug inside the engine and is
// fatal to the whole run.
type UnresolvedOutputError struct {
	Node   graph.Identity
	Target graph.Identity
	Output string
}

func (e *UnresolvedOutputError) Error() string {
	return fmt.Sprintf("%s: output %q of %s is not resolved; ordering invariant violated",
		e.Node, e.Output, e.Target)
}
