package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var graphManifest string

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Print the resolved dependency graph as Graphviz DOT",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := loadConfig(); err != nil {
			return err
		}
		g, err := loadGraph(graphManifest)
		if err != nil {
			return err
		}
		fmt.Print(g.DOT())
		return nil
	},
}

func init() {
	graphCmd.Flags().StringVarP(&graphManifest, "file", "f", "anneal.yaml", "manifest to render")
}
