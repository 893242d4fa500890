// Package sim is an in-memory provider client for tests, demos, and dry
// runs. Behavior is scripted per kind: how many polls an apply takes,
// whether it fails, and which outputs it emits.
package sim

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/anneal-io/anneal/internal/graph"
	"github.com/anneal-io/anneal/internal/provider"
)

// Behavior scripts responses for one kind. The zero value applies
// immediately with generated outputs.
type Behavior struct {
	// PollsUntilDone is how many Poll calls return Pending before the
	// operation succeeds.
	PollsUntilDone int

	// FailApply makes Apply itself return an error.
	FailApply bool

	// FailPoll makes the operation end Failed on its first terminal poll.
	FailPoll bool

	// Message is the failure detail used with FailApply or FailPoll.
	Message string

	// Outputs are merged over the generated ones on success.
	Outputs map[string]any
}

type operation struct {
	id        graph.Identity
	desired   map[string]any
	remaining int
	fail      bool
	message   string
	outputs   map[string]any
}

// Provider implements provider.Client against an in-memory remote.
type Provider struct {
	mu        sync.Mutex
	behaviors map[string]Behavior
	remote    map[graph.Identity]*provider.Observed
	ops       map[string]*operation
	calls     map[string]map[graph.Identity]int
}

func New() *Provider {
	return &Provider{
		behaviors: make(map[string]Behavior),
		remote:    make(map[graph.Identity]*provider.Observed),
		ops:       make(map[string]*operation),
		calls:     make(map[string]map[graph.Identity]int),
	}
}

// SetBehavior scripts one kind. The empty kind is the fallback.
func (p *Provider) SetBehavior(kind string, b Behavior) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.behaviors[kind] = b
}

// Seed installs a pre-existing remote resource.
func (p *Provider) Seed(id graph.Identity, observed provider.Observed) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.remote[id] = &provider.Observed{
		Properties: copyMap(observed.Properties),
		Outputs:    copyMap(observed.Outputs),
	}
}

// Calls reports how many times op ("fetch", "apply", "poll", "delete") was
// invoked for id.
func (p *Provider) Calls(op string, id graph.Identity) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[op][id]
}

// TotalCalls reports how many times op was invoked across all identities.
func (p *Provider) TotalCalls(op string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	total := 0
	for _, n := range p.calls[op] {
		total += n
	}
	return total
}

func (p *Provider) record(op string, id graph.Identity) {
	if p.calls[op] == nil {
		p.calls[op] = make(map[graph.Identity]int)
	}
	p.calls[op][id]++
}

func (p *Provider) behavior(kind string) Behavior {
	if b, ok := p.behaviors[kind]; ok {
		return b
	}
	return p.behaviors[""]
}

func (p *Provider) Fetch(ctx context.Context, id graph.Identity) (*provider.Observed, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("fetch", id)

	obs, ok := p.remote[id]
	if !ok {
		return nil, provider.ErrNotFound
	}
	return &provider.Observed{
		Properties: copyMap(obs.Properties),
		Outputs:    copyMap(obs.Outputs),
	}, nil
}

func (p *Provider) Apply(ctx context.Context, id graph.Identity, desired map[string]any) (provider.OperationHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("apply", id)

	b := p.behavior(id.Kind)
	if b.FailApply {
		return provider.OperationHandle{}, simError(b, id, "apply rejected")
	}

	outputs := map[string]any{
		"id": fmt.Sprintf("%s-%s-%s", id.Kind, id.Name, uuid.NewString()[:8]),
	}
	for k, v := range b.Outputs {
		outputs[k] = v
	}

	handle := provider.OperationHandle{ID: uuid.NewString(), Kind: id.Kind}
	p.ops[handle.ID] = &operation{
		id:        id,
		desired:   copyMap(desired),
		remaining: b.PollsUntilDone,
		fail:      b.FailPoll,
		message:   b.Message,
		outputs:   outputs,
	}
	return handle, nil
}

func (p *Provider) Poll(ctx context.Context, handle provider.OperationHandle) (provider.PollResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	op, ok := p.ops[handle.ID]
	if !ok {
		return provider.PollResult{}, fmt.Errorf("unknown operation %s", handle.ID)
	}
	p.record("poll", op.id)

	if op.remaining > 0 {
		op.remaining--
		return provider.PollResult{State: provider.PollPending}, nil
	}

	delete(p.ops, handle.ID)
	if op.fail {
		return provider.PollResult{
			State: provider.PollFailed,
			Err:   simError(p.behavior(op.id.Kind), op.id, "operation failed"),
		}, nil
	}

	p.remote[op.id] = &provider.Observed{
		Properties: copyMap(op.desired),
		Outputs:    copyMap(op.outputs),
	}
	return provider.PollResult{
		State:   provider.PollSucceeded,
		Outputs: copyMap(op.outputs),
	}, nil
}

func (p *Provider) Delete(ctx context.Context, id graph.Identity) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("delete", id)

	if _, ok := p.remote[id]; !ok {
		return provider.ErrNotFound
	}
	delete(p.remote, id)
	return nil
}

// Exists reports whether id is present in the simulated remote.
func (p *Provider) Exists(id graph.Identity) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.remote[id]
	return ok
}

func simError(b Behavior, id graph.Identity, fallback string) error {
	msg := b.Message
	if msg == "" {
		msg = fallback
	}
	return fmt.Errorf("%s: %s", id, msg)
}

func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
