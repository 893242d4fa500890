package engine

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/anneal-io/anneal/internal/graph"
	"github.com/anneal-io/anneal/internal/logging"
	"github.com/anneal-io/anneal/internal/provider"
)

// Reconcile converges remote state onto the graph and returns the run's
// report. Construction-time errors (duplicate identity, dangling reference,
// cycle, unbound kind) abort before any provider call. A returned error
// alongside a report means the run itself was aborted by an engine
// invariant violation; per-node provider failures are reported through the
// records, not the error.
func (e *Engine) Reconcile(ctx context.Context, g *graph.Graph) (*Report, error) {
	return e.ReconcileWithCallback(ctx, g, nil)
}

// ReconcileWithCallback is Reconcile with progress events.
func (e *Engine) ReconcileWithCallback(ctx context.Context, g *graph.Graph, cb Callback) (*Report, error) {
	order, err := g.Order()
	if err != nil {
		return nil, err
	}

	// Bind every kind to a client up front so a missing registration
	// aborts before anything is scheduled.
	clients := make(map[graph.Identity]provider.Client, len(order))
	roots := 0
	for _, id := range order {
		c, err := e.registry.Get(id.Kind)
		if err != nil {
			return nil, err
		}
		clients[id] = c
		if len(g.Dependencies(id)) == 0 {
			roots++
		}
	}

	opts := e.opts.withDefaults(roots)
	report := newReport(uuid.NewString(), g, order)
	logging.Info("run starting",
		"run_id", report.RunID, "nodes", len(order), "parallelism", opts.Parallelism)

	r := &run{
		graph:   g,
		report:  report,
		clients: clients,
		opts:    opts,
		cb:      cb,
		sem:     make(chan struct{}, opts.Parallelism),
	}
	r.cond = sync.NewCond(&r.mu)

	// Wake dependency waiters when the run is cancelled.
	stop := context.AfterFunc(ctx, r.cond.Broadcast)
	defer stop()

	var wg sync.WaitGroup
	for _, id := range order {
		wg.Add(1)
		go func(id graph.Identity) {
			defer wg.Done()
			r.node(ctx, id)
		}(id)
	}
	wg.Wait()

	report.Duration = time.Since(report.Started)
	logging.Info("run finished",
		"run_id", report.RunID, "succeeded", report.Succeeded(), "duration", report.Duration)

	r.mu.Lock()
	fatal := r.fatal
	r.mu.Unlock()
	if fatal != nil {
		return report, fatal
	}
	return report, nil
}

// run is the shared state of one reconciliation. records are guarded by mu
// until terminal; each node's record has a single writer, the goroutine
// applying that node.
type run struct {
	graph   *graph.Graph
	report  *Report
	clients map[graph.Identity]provider.Client
	opts    Options
	cb      Callback

	mu    sync.Mutex
	cond  *sync.Cond
	fatal error

	sem chan struct{}
}

func (r *run) acquire() { r.sem <- struct{}{} }
func (r *run) release() { <-r.sem }

func (r *run) emit(ev Event) {
	if r.cb != nil {
		r.cb(ev)
	}
}

// node drives one node from Pending to a terminal status. It blocks until
// every dependency is terminal, then applies.
func (r *run) node(ctx context.Context, id graph.Identity) {
	deps := r.graph.Dependencies(id)

	r.mu.Lock()
	for {
		if r.fatal != nil || ctx.Err() != nil {
			r.mu.Unlock()
			r.finish(id, StatusCancelled, nil, nil, 0)
			return
		}

		waiting := false
		for _, dep := range deps {
			switch r.report.records[dep].Status {
			case StatusApplied:
			case StatusFailed, StatusSkipped:
				// Failure propagates downstream; the node never
				// becomes Applying.
				r.mu.Unlock()
				r.finish(id, StatusSkipped, nil, nil, 0)
				return
			case StatusCancelled:
				r.mu.Unlock()
				r.finish(id, StatusCancelled, nil, nil, 0)
				return
			default:
				waiting = true
			}
		}
		if !waiting {
			break
		}
		r.cond.Wait()
	}
	r.report.records[id].Status = StatusApplying
	r.mu.Unlock()
	r.emit(Event{Identity: id, Status: StatusApplying})

	start := time.Now()
	status, outputs, err := r.apply(ctx, id)
	r.finish(id, status, outputs, err, time.Since(start))
}

// finish records a terminal status and wakes dependency waiters.
func (r *run) finish(id graph.Identity, status Status, outputs map[string]any, err error, elapsed time.Duration) {
	r.mu.Lock()
	var unresolved *UnresolvedOutputError
	if errors.As(err, &unresolved) && r.fatal == nil {
		r.fatal = err
	}
	rec := r.report.records[id]
	rec.Status = status
	rec.Outputs = outputs
	rec.Err = err
	rec.Duration = elapsed
	r.cond.Broadcast()
	r.mu.Unlock()

	if err != nil {
		logging.Warn("node finished", "node", id.String(), "status", string(status), "error", err)
	} else {
		logging.Debug("node finished", "node", id.String(), "status", string(status))
	}
	r.emit(Event{Identity: id, Status: status, Duration: elapsed, Err: err})
}

// apply runs the per-node algorithm: substitute references, fetch and
// compare, then apply and poll to completion. Pool slots are held only
// around provider calls, never across poll waits.
func (r *run) apply(ctx context.Context, id graph.Identity) (Status, map[string]any, error) {
	node, ok := r.graph.Node(id)
	if !ok {
		return StatusFailed, nil, &UnresolvedOutputError{Node: id, Target: id}
	}

	desired, err := r.resolveProperties(node)
	if err != nil {
		return StatusFailed, nil, err
	}

	client := r.clients[id]
	nodeCtx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	r.acquire()
	observed, err := client.Fetch(nodeCtx, id)
	if err != nil && !errors.Is(err, provider.ErrNotFound) {
		r.release()
		return r.failure(ctx, nodeCtx, id, "fetch", err)
	}
	if observed != nil && propertiesEqual(desired, observed.Properties) {
		r.release()
		logging.Debug("observed state matches desired, no write", "node", id.String())
		return StatusApplied, observed.Outputs, nil
	}

	handle, err := client.Apply(nodeCtx, id, desired)
	r.release()
	if err != nil {
		return r.failure(ctx, nodeCtx, id, "apply", err)
	}

	delay := r.opts.PollInitial
	for {
		select {
		case <-ctx.Done():
			return StatusCancelled, nil, nil
		case <-nodeCtx.Done():
			// Both channels fire together when the run is cancelled;
			// failure classifies cancellation before the deadline.
			return r.failure(ctx, nodeCtx, id, "poll", nodeCtx.Err())
		case <-time.After(delay):
		}

		r.acquire()
		res, err := client.Poll(nodeCtx, handle)
		r.release()
		if err != nil {
			return r.failure(ctx, nodeCtx, id, "poll", err)
		}
		switch res.State {
		case provider.PollSucceeded:
			return StatusApplied, res.Outputs, nil
		case provider.PollFailed:
			return StatusFailed, nil, &ProviderError{Identity: id, Op: "poll", Err: res.Err}
		}

		// Cancellation lets the check just made finish, then stops.
		if ctx.Err() != nil {
			return StatusCancelled, nil, nil
		}
		delay = nextDelay(delay, r.opts.PollMax)
	}
}

// failure classifies a provider call error: run cancellation wins, then the
// per-node deadline, then the provider error itself.
func (r *run) failure(ctx, nodeCtx context.Context, id graph.Identity, op string, err error) (Status, map[string]any, error) {
	if ctx.Err() != nil {
		return StatusCancelled, nil, nil
	}
	if errors.Is(nodeCtx.Err(), context.DeadlineExceeded) {
		return StatusFailed, nil, &ProviderError{
			Identity: id, Op: op,
			Err: &TimeoutError{Identity: id, Budget: r.opts.Timeout},
		}
	}
	return StatusFailed, nil, &ProviderError{Identity: id, Op: op, Err: err}
}

// resolveProperties materializes the node's desired properties with every
// reference replaced by the referenced node's output binding. The targets
// are exactly the node's dependencies, all observed terminal before
// scheduling, so their records are immutable here.
func (r *run) resolveProperties(node *graph.Node) (map[string]any, error) {
	out := make(map[string]any, len(node.Properties))
	for name, v := range node.Properties {
		resolved, err := r.resolveValue(node.Identity, v)
		if err != nil {
			return nil, err
		}
		out[name] = resolved
	}
	return out, nil
}

func (r *run) resolveValue(node graph.Identity, v graph.Value) (any, error) {
	if ref, ok := v.Ref(); ok {
		rec, ok := r.report.records[ref.Target]
		if !ok || rec.Status != StatusApplied {
			return nil, &UnresolvedOutputError{Node: node, Target: ref.Target, Output: ref.Output}
		}
		val, ok := rec.Outputs[ref.Output]
		if !ok {
			return nil, &UnresolvedOutputError{Node: node, Target: ref.Target, Output: ref.Output}
		}
		return val, nil
	}

	switch lit := v.Literal().(type) {
	case []graph.Value:
		out := make([]any, len(lit))
		for i, elem := range lit {
			resolved, err := r.resolveValue(node, elem)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	case map[string]graph.Value:
		out := make(map[string]any, len(lit))
		for k, elem := range lit {
			resolved, err := r.resolveValue(node, elem)
			if err != nil {
				return nil, err
			}
			out[k] = resolved
		}
		return out, nil
	default:
		return lit, nil
	}
}

// propertiesEqual reports whether observed state already satisfies the
// desired properties. Every desired field must match semantically; extra
// observed fields are provider-assigned and ignored.
func propertiesEqual(desired, observed map[string]any) bool {
	for k, dv := range desired {
		ov, ok := observed[k]
		if !ok || !reflect.DeepEqual(normalize(dv), normalize(ov)) {
			return false
		}
	}
	return true
}

// normalize round-trips a value through JSON so that equivalent values of
// different dynamic types (int vs float64, []string vs []any) compare equal.
func normalize(v any) any {
	b, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return v
	}
	return out
}
