package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anneal-io/anneal/internal/engine"
	"github.com/anneal-io/anneal/internal/graph"
	"github.com/anneal-io/anneal/internal/provider"
	"github.com/anneal-io/anneal/providers/sim"
)

func runReport(t *testing.T, fail bool) *engine.Report {
	t.Helper()
	p := sim.New()
	if fail {
		p.SetBehavior("keyvault", sim.Behavior{FailApply: true, Message: "quota exceeded"})
	}
	registry := provider.NewRegistry()
	registry.RegisterDefault(p)
	eng := engine.New(registry, engine.Options{
		Parallelism: 2,
		PollInitial: time.Millisecond,
		PollMax:     2 * time.Millisecond,
		Timeout:     time.Second,
	})

	g := graph.New()
	kv := graph.NewNode("keyvault", "main")
	cert := graph.NewNode("certificate", "signing")
	cert.DependOn(kv.Identity)
	require.NoError(t, g.Add(kv))
	require.NoError(t, g.Add(cert))

	report, err := eng.Reconcile(context.Background(), g)
	require.NoError(t, err)
	return report
}

func TestStore_RecordAndList(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	ok := runReport(t, false)
	failed := runReport(t, true)
	require.NoError(t, store.RecordRun(ctx, ok))
	require.NoError(t, store.RecordRun(ctx, failed))

	runs, err := store.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	byID := make(map[string]Run, len(runs))
	for _, r := range runs {
		byID[r.ID] = r
	}
	assert.True(t, byID[ok.RunID].Succeeded)
	assert.False(t, byID[failed.RunID].Succeeded)
	assert.Equal(t, 2, byID[ok.RunID].Nodes)
}

func TestStore_RunNodes(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	report := runReport(t, true)
	require.NoError(t, store.RecordRun(ctx, report))

	nodes, err := store.RunNodes(ctx, report.RunID)
	require.NoError(t, err)
	require.Len(t, nodes, 2)

	byIdentity := make(map[string]NodeResult, len(nodes))
	for _, n := range nodes {
		byIdentity[n.Identity] = n
	}
	assert.Equal(t, "failed", byIdentity["keyvault.main"].Status)
	assert.Contains(t, byIdentity["keyvault.main"].Error, "quota exceeded")
	assert.Equal(t, "skipped", byIdentity["certificate.signing"].Status)
	assert.Empty(t, byIdentity["certificate.signing"].Error)
}

func TestStore_DuplicateRunRejected(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	report := runReport(t, false)
	require.NoError(t, store.RecordRun(ctx, report))
	assert.Error(t, store.RecordRun(ctx, report))
}

func TestOpen_CreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "history.db")
	store, err := Open(path)
	require.NoError(t, err)
	assert.NoError(t, store.Close())
}
