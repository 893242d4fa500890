// Package provider defines the seam between the reconciliation engine and
// a remote control plane. The engine never inspects provider payloads
// beyond the maps exchanged here; everything request/response shaped lives
// behind the Client interface.
package provider

import (
	"context"
	"errors"

	"github.com/anneal-io/anneal/internal/graph"
)

// ErrNotFound is returned by Fetch when the resource does not exist
// remotely. It is the one provider error the engine treats as a normal
// outcome rather than a failure.
var ErrNotFound = errors.New("resource not found")

// Observed is the remote state of one resource.
type Observed struct {
	// Properties mirror the desired-state fields as the control plane
	// stores them; the engine compares these against resolved desired
	// properties to decide whether a write is needed.
	Properties map[string]any

	// Outputs are provider-assigned fields: identifiers, endpoints,
	// generated secrets. They become the node's output binding when the
	// engine reuses observed state.
	Outputs map[string]any
}

// OperationHandle identifies one in-flight long-running operation. Opaque
// to the engine; the provider that issued it is the only consumer.
type OperationHandle struct {
	ID   string
	Kind string
}

// PollState is the status of a long-running operation.
type PollState int

const (
	PollPending PollState = iota
	PollSucceeded
	PollFailed
)

// PollResult is one observation of a long-running operation. Outputs is
// populated on PollSucceeded, Err on PollFailed.
type PollResult struct {
	State   PollState
	Outputs map[string]any
	Err     error
}

// Client is the control-plane surface for one or more resource kinds.
//
// Apply may return before the remote operation completes; the engine then
// polls the returned handle until a terminal PollResult. Delete is used
// only by the caller-invoked rollback pass.
type Client interface {
	Fetch(ctx context.Context, id graph.Identity) (*Observed, error)
	Apply(ctx context.Context, id graph.Identity, desired map[string]any) (OperationHandle, error)
	Poll(ctx context.Context, handle OperationHandle) (PollResult, error)
	Delete(ctx context.Context, id graph.Identity) error
}
