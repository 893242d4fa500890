package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/anneal-io/anneal/internal/engine"
)

var (
	destroyManifest    string
	destroyAutoApprove bool
)

var destroyCmd = &cobra.Command{
	Use:   "destroy",
	Short: "Delete the manifest's resources in reverse dependency order",
	Long: `Best-effort teardown: every resource of the manifest is deleted in
reverse dependency order. Resources already absent are ignored; a delete
failure is reported but does not stop the pass.`,
	RunE: runDestroy,
}

func init() {
	destroyCmd.Flags().StringVarP(&destroyManifest, "file", "f", "anneal.yaml", "manifest to destroy")
	destroyCmd.Flags().BoolVar(&destroyAutoApprove, "auto-approve", false, "skip interactive confirmation")
}

func runDestroy(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	g, err := loadGraph(destroyManifest)
	if err != nil {
		return err
	}
	registry, err := buildRegistry(cfg)
	if err != nil {
		return err
	}

	if !destroyAutoApprove {
		fmt.Printf("This will delete %d resource(s). Continue? (y/n): ", g.Len())
		var response string
		fmt.Scanln(&response)
		if response != "y" && response != "yes" {
			fmt.Println("Destroy cancelled.")
			return nil
		}
	}

	eng := engine.New(registry, cfg.Engine.Options())
	if err := eng.Destroy(cmd.Context(), g); err != nil {
		return fmt.Errorf("destroy finished with errors: %w", err)
	}
	fmt.Println("Destroy complete.")
	return nil
}
