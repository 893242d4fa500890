// Package engine walks a resolved resource graph and converges remote
// state onto it: reference substitution, fetch-and-compare idempotence,
// long-running-operation polling, and failure propagation along dependency
// edges.
package engine

import (
	"time"

	"github.com/anneal-io/anneal/internal/graph"
	"github.com/anneal-io/anneal/internal/provider"
)

const (
	// DefaultTimeout is the per-node budget for apply plus polling.
	DefaultTimeout = 30 * time.Minute

	// DefaultPollInitial and DefaultPollMax bound the poll backoff
	// schedule: initial delay, doubling, capped.
	DefaultPollInitial = 2 * time.Second
	DefaultPollMax     = 30 * time.Second

	// maxDefaultParallelism caps the pool size derived from the number
	// of root nodes when no explicit parallelism is configured.
	maxDefaultParallelism = 8
)

// Options tune one engine instance.
type Options struct {
	// Parallelism is the worker pool size. Zero derives it from the
	// number of independent root nodes, capped.
	Parallelism int

	PollInitial time.Duration
	PollMax     time.Duration

	// Timeout bounds each node's apply-and-poll span.
	Timeout time.Duration
}

func (o Options) withDefaults(roots int) Options {
	if o.Parallelism <= 0 {
		o.Parallelism = roots
		if o.Parallelism > maxDefaultParallelism {
			o.Parallelism = maxDefaultParallelism
		}
		if o.Parallelism < 1 {
			o.Parallelism = 1
		}
	}
	if o.PollInitial <= 0 {
		o.PollInitial = DefaultPollInitial
	}
	if o.PollMax <= 0 {
		o.PollMax = DefaultPollMax
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return o
}

// Event is one progress notification during a run.
type Event struct {
	Identity graph.Identity
	Status   Status
	Duration time.Duration
	Err      error
}

// Callback receives progress events if set. Called from worker goroutines.
type Callback func(Event)

// Engine reconciles graphs against provider clients.
type Engine struct {
	registry *provider.Registry
	opts     Options
}

func New(registry *provider.Registry, opts Options) *Engine {
	return &Engine{
		registry: registry,
		opts:     opts,
	}
}
