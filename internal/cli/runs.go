package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/anneal-io/anneal/internal/history"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent runs from the local history",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		store, err := history.Open(cfg.History.Path)
		if err != nil {
			return err
		}
		defer store.Close()

		runs, err := store.ListRuns(cmd.Context(), runsLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("No recorded runs.")
			return nil
		}

		fmt.Printf("%-36s  %-20s  %-9s  %-6s  %s\n", "RUN", "STARTED", "RESULT", "NODES", "DURATION")
		for _, r := range runs {
			result := "ok"
			if !r.Succeeded {
				result = "failed"
			}
			fmt.Printf("%-36s  %-20s  %-9s  %-6d  %s\n",
				r.ID,
				r.StartedAt.Local().Format("2006-01-02 15:04:05"),
				result,
				r.Nodes,
				r.Duration.Round(time.Millisecond),
			)
		}
		return nil
	},
}

func init() {
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "number of runs to list")
}
