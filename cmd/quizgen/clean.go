package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/quizquotidien/quizgen/internal/jobs"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove duplicate questions from the stored bank",
	Long: `Scan the active questions in order and remove every question that is an
exact or near duplicate of one kept before it. The first occurrence wins.

Examples:
  quizgen clean
  quizgen clean --dry-run`,
	Run: func(cmd *cobra.Command, args []string) {
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		a, err := newApp(cfg, false)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer a.Close()

		report, err := a.runner.Clean(context.Background(), jobs.CleanOptions{DryRun: dryRun})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			a.Close()
			os.Exit(1)
		}
		printCleanReport(os.Stdout, report)
	},
}

func init() {
	cleanCmd.Flags().Bool("dry-run", false, "Report duplicates without writing the bank")
	rootCmd.AddCommand(cleanCmd)
}
