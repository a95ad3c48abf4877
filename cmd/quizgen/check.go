package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quizquotidien/quizgen/internal/deduplication"
	"github.com/quizquotidien/quizgen/internal/repl"
	"github.com/quizquotidien/quizgen/internal/types"
)

var checkCmd = &cobra.Command{
	Use:   "check [question]",
	Short: "Check whether a question duplicates one in the bank",
	Long: `Check a question text against the stored bank with the generation filter.
Exits with status 2 when the text is a duplicate.

Examples:
  quizgen check "Quelle est la capitale de l'Australie ?"
  quizgen check --interactive`,
	Run: func(cmd *cobra.Command, args []string) {
		interactive, _ := cmd.Flags().GetBool("interactive")
		ctx := context.Background()

		store, err := openStorage(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if interactive {
			r, err := repl.New(&repl.Config{
				Store:        store,
				Dedup:        cfg.Generation.Dedup(),
				CheckArchive: cfg.Generation.CheckArchive,
			})
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: failed to create REPL: %v\n", err)
				os.Exit(1)
			}
			if err := r.Run(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		}

		if len(args) == 0 {
			fmt.Fprintln(os.Stderr, "Error: a question text is required (or use --interactive)")
			os.Exit(1)
		}
		text := strings.Join(args, " ")

		snap, err := store.Load(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: loading question bank: %v\n", err)
			os.Exit(1)
		}
		corpus := snap.Bank.Questions
		if cfg.Generation.CheckArchive {
			corpus = append(append([]types.Question{}, snap.Bank.ArchivedQuestions...), corpus...)
		}

		rej := deduplication.Check(text, corpus, cfg.Generation.Dedup())
		printCheckResult(os.Stdout, text, rej)
		if rej != nil {
			os.Exit(2)
		}
	},
}

func init() {
	checkCmd.Flags().BoolP("interactive", "i", false, "Start an interactive checking shell")
	rootCmd.AddCommand(checkCmd)
}
