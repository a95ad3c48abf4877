package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/quizquotidien/quizgen/internal/storage/sqlite"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past generate and clean runs",
	Long: `List recorded runs newest first, or show the rejected questions of one run.

Examples:
  quizgen history
  quizgen history --job clean --limit 5
  quizgen history --run 5f0c...`,
	Run: func(cmd *cobra.Command, args []string) {
		job, _ := cmd.Flags().GetString("job")
		limit, _ := cmd.Flags().GetInt("limit")
		runID, _ := cmd.Flags().GetString("run")
		ctx := context.Background()

		h, err := openHistory(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if h == nil {
			fmt.Fprintln(os.Stderr, "Error: run history is disabled (history.path is empty)")
			os.Exit(1)
		}
		defer h.Close()

		if runID != "" {
			rejections, err := h.GetRejections(ctx, runID)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				h.Close()
				os.Exit(1)
			}
			printRejections(os.Stdout, runID, rejections)
			return
		}

		runs, err := h.ListRuns(ctx, sqlite.RunFilter{Job: job, Limit: limit})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			h.Close()
			os.Exit(1)
		}
		printRuns(os.Stdout, runs, cfg.Location())
	},
}

func init() {
	historyCmd.Flags().String("job", "", "Only show runs of this job (generate or clean)")
	historyCmd.Flags().Int("limit", 20, "Maximum number of runs to show")
	historyCmd.Flags().String("run", "", "Show the rejected questions of one run")
	rootCmd.AddCommand(historyCmd)
}
