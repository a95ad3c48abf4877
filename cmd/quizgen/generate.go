package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/quizquotidien/quizgen/internal/jobs"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate new questions and add the unique ones to the bank",
	Long: `Ask the model for a batch of questions, drop duplicates of the stored
questions and commit the survivors.

Examples:
  # Generate and commit
  quizgen generate

  # See what would be added without writing anything
  quizgen generate --dry-run`,
	Run: func(cmd *cobra.Command, args []string) {
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		a, err := newApp(cfg, true)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer a.Close()

		report, err := a.runner.Generate(context.Background(), jobs.GenerateOptions{DryRun: dryRun})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			a.Close()
			os.Exit(1)
		}
		printGenerateReport(os.Stdout, report)
	},
}

func init() {
	generateCmd.Flags().Bool("dry-run", false, "Run everything except the commit and cache purge")
	rootCmd.AddCommand(generateCmd)
}
