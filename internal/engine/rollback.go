package engine

import (
	"context"
	"errors"

	"github.com/anneal-io/anneal/internal/graph"
	"github.com/anneal-io/anneal/internal/logging"
	"github.com/anneal-io/anneal/internal/provider"
)

// Rollback deletes every node the report marked Applied, in reverse
// dependency order, best-effort: a delete failure is collected and the
// pass keeps going. Never invoked by Reconcile itself; a later failure
// does not undo earlier applies unless the caller asks for it.
func (e *Engine) Rollback(ctx context.Context, g *graph.Graph, report *Report) error {
	return e.deletePass(ctx, g, func(id graph.Identity) bool {
		rec, ok := report.Record(id)
		return ok && rec.Status == StatusApplied
	})
}

// Destroy deletes every node of the graph in reverse dependency order,
// best-effort. Resources already absent remotely are not errors.
func (e *Engine) Destroy(ctx context.Context, g *graph.Graph) error {
	return e.deletePass(ctx, g, func(graph.Identity) bool { return true })
}

func (e *Engine) deletePass(ctx context.Context, g *graph.Graph, include func(graph.Identity) bool) error {
	order, err := g.Order()
	if err != nil {
		return err
	}

	var errs []error
	for i := len(order) - 1; i >= 0; i-- {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		id := order[i]
		if !include(id) {
			continue
		}
		client, err := e.registry.Get(id.Kind)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		logging.Info("deleting", "node", id.String())
		if err := client.Delete(ctx, id); err != nil && !errors.Is(err, provider.ErrNotFound) {
			errs = append(errs, &ProviderError{Identity: id, Op: "delete", Err: err})
		}
	}
	return errors.Join(errs...)
}
