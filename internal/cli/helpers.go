package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/anneal-io/anneal/internal/config"
	"github.com/anneal-io/anneal/internal/engine"
	"github.com/anneal-io/anneal/internal/graph"
	"github.com/anneal-io/anneal/internal/manifest"
	"github.com/anneal-io/anneal/internal/provider"
	"github.com/anneal-io/anneal/providers/azure"
	"github.com/anneal-io/anneal/providers/sim"
)

// buildRegistry wires the configured provider client behind the registry.
func buildRegistry(cfg config.Config) (*provider.Registry, error) {
	registry := provider.NewRegistry()

	switch cfg.Provider.Type {
	case "", "sim":
		registry.RegisterDefault(sim.New())
	case "azure":
		kinds := make(map[string]azure.Kind, len(cfg.Provider.Azure.Kinds))
		for kind, spec := range cfg.Provider.Azure.Kinds {
			kinds[kind] = azure.Kind{
				ResourceType: spec.ResourceType,
				APIVersion:   spec.APIVersion,
			}
		}
		client, err := azure.New(azure.Options{
			SubscriptionID: cfg.Provider.Azure.SubscriptionID,
			ResourceGroup:  cfg.Provider.Azure.ResourceGroup,
			Location:       cfg.Provider.Azure.Location,
			Kinds:          kinds,
		})
		if err != nil {
			return nil, err
		}
		registry.RegisterDefault(client)
	default:
		return nil, fmt.Errorf("unknown provider type %q", cfg.Provider.Type)
	}

	return registry, nil
}

// loadGraph loads and resolves a manifest. Construction-time errors
// (duplicates, danglers, cycles) surface here, before anything runs.
func loadGraph(path string) (*graph.Graph, error) {
	g, err := manifest.Load(path)
	if err != nil {
		return nil, err
	}
	if err := g.ResolveReferences(); err != nil {
		return nil, err
	}
	return g, nil
}

// renderReport prints the per-node trace and the run verdict.
func renderReport(report *engine.Report) {
	fmt.Println()
	for _, rec := range report.Records() {
		fmt.Printf("  %-40s %-10s %s\n", rec.Identity, rec.Status, rec.Duration.Round(time.Millisecond))
		if rec.Err != nil {
			fmt.Printf("      %v\n", rec.Err)
		}
	}

	counts := make(map[engine.Status]int)
	for _, rec := range report.Records() {
		counts[rec.Status]++
	}
	var parts []string
	for _, status := range []engine.Status{
		engine.StatusApplied, engine.StatusFailed, engine.StatusSkipped, engine.StatusCancelled,
	} {
		if counts[status] > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", counts[status], status))
		}
	}

	fmt.Println()
	if report.Succeeded() {
		fmt.Printf("Run %s succeeded: %s\n", report.RunID, strings.Join(parts, ", "))
	} else {
		fmt.Printf("Run %s FAILED: %s\n", report.RunID, strings.Join(parts, ", "))
	}
}
