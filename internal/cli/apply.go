package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/anneal-io/anneal/internal/engine"
	"github.com/anneal-io/anneal/internal/history"
	"github.com/anneal-io/anneal/internal/logging"
)

var (
	applyManifest  string
	applyNoHistory bool
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Reconcile remote state onto the manifest",
	Long: `Load the manifest, order its resources by dependency, and apply each one
through the configured provider. Resources whose observed state already
matches the manifest are not written.`,
	RunE: runApply,
}

func init() {
	applyCmd.Flags().StringVarP(&applyManifest, "file", "f", "anneal.yaml", "manifest to apply")
	applyCmd.Flags().BoolVar(&applyNoHistory, "no-history", false, "skip recording the run")
}

func runApply(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	g, err := loadGraph(applyManifest)
	if err != nil {
		return err
	}
	registry, err := buildRegistry(cfg)
	if err != nil {
		return err
	}

	// First interrupt cancels dispatch; in-flight polls wind down.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng := engine.New(registry, cfg.Engine.Options())
	fmt.Printf("Applying %d resource(s) from %s\n", g.Len(), applyManifest)

	report, err := eng.ReconcileWithCallback(ctx, g, func(ev engine.Event) {
		switch ev.Status {
		case engine.StatusApplying:
			fmt.Printf("  %s: applying...\n", ev.Identity)
		case engine.StatusApplied:
			fmt.Printf("  %s: applied (%s)\n", ev.Identity, ev.Duration.Round(time.Millisecond))
		case engine.StatusFailed:
			fmt.Printf("  %s: failed: %v\n", ev.Identity, ev.Err)
		}
	})
	if err != nil {
		return err
	}

	renderReport(report)

	if !applyNoHistory {
		if err := recordRun(cfg.History.Path, report); err != nil {
			logging.Warn("recording run history failed", "error", err)
		}
	}

	if !report.Succeeded() {
		return fmt.Errorf("run %s finished with failures", report.RunID)
	}
	return nil
}

func recordRun(path string, report *engine.Report) error {
	store, err := history.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.RecordRun(context.Background(), report)
}
