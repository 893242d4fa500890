package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anneal-io/anneal/internal/graph"
	"github.com/anneal-io/anneal/providers/sim"
)

func TestRollback_DeletesAppliedOnly(t *testing.T) {
	p := scenarioProvider()
	p.SetBehavior("certificate", sim.Behavior{FailApply: true})
	eng := newTestEngine(p, testOptions())

	g := scenarioGraph(t)
	report, err := eng.Reconcile(context.Background(), g)
	require.NoError(t, err)
	require.False(t, report.Succeeded())

	require.NoError(t, eng.Rollback(context.Background(), g, report))

	// Applied roots were deleted; the failed node and its dependents
	// were never created, so nothing was deleted for them.
	assert.False(t, p.Exists(graph.Identity{Kind: "keyvault", Name: "main"}))
	assert.False(t, p.Exists(graph.Identity{Kind: "identity", Name: "app"}))
	assert.Zero(t, p.Calls("delete", graph.Identity{Kind: "certificate", Name: "signing"}))
	assert.Zero(t, p.Calls("delete", graph.Identity{Kind: "appregistration", Name: "web"}))
}

func TestDestroy_ReverseOrderBestEffort(t *testing.T) {
	p := scenarioProvider()
	eng := newTestEngine(p, testOptions())

	g := scenarioGraph(t)
	_, err := eng.Reconcile(context.Background(), g)
	require.NoError(t, err)

	require.NoError(t, eng.Destroy(context.Background(), g))
	for _, id := range g.Identities() {
		assert.False(t, p.Exists(id), id.String())
	}

	// A second destroy finds nothing and still succeeds.
	assert.NoError(t, eng.Destroy(context.Background(), g))
}
