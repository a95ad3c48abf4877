package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/quizquotidien/quizgen/internal/jobs"
	"github.com/quizquotidien/quizgen/internal/types"
)

func printGenerateReport(w io.Writer, r *jobs.GenerateReport) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	fmt.Fprintf(w, "\n%s\n", cyan("=== Génération ==="))
	fmt.Fprintf(w, "%s %s\n\n", statusIcon(r.Committed, r.DryRun), r.Message)

	fmt.Fprintf(w, "  Générées:        %d\n", r.TotalGenerated)
	fmt.Fprintf(w, "  Ajoutées:        %s\n", green(r.Added))
	fmt.Fprintf(w, "  Doublons exacts: %s\n", yellow(r.DuplicatesAvoided))
	fmt.Fprintf(w, "  Similaires:      %s\n", yellow(r.SimilarAvoided))
	fmt.Fprintf(w, "  Intra-lot:       %s\n", yellow(r.IntraBatchAvoided))
	fmt.Fprintf(w, "  Comparaisons:    %d\n", r.ComparisonsMade)
	if r.Committed || r.DryRun {
		fmt.Fprintf(w, "  Pool actif:      %d (archive %d, supprimées %d)\n", r.TotalInDatabase, r.ArchivedCount, r.Dropped)
		fmt.Fprintf(w, "  Version:         %d\n", r.Version)
	}

	if len(r.Samples) > 0 {
		fmt.Fprintf(w, "\n%s\n", cyan("Exemples ajoutés:"))
		for _, s := range r.Samples {
			if s.Category != "" {
				fmt.Fprintf(w, "  + %s %s\n", s.Question, gray("["+s.Category+"]"))
			} else {
				fmt.Fprintf(w, "  + %s\n", s.Question)
			}
		}
	}
	if len(r.DuplicatesExamples) > 0 || len(r.SimilarExamples) > 0 || len(r.IntraBatchExamples) > 0 {
		fmt.Fprintf(w, "\n%s\n", cyan("Exemples rejetés:"))
		for _, d := range r.DuplicatesExamples {
			fmt.Fprintf(w, "  = %s\n    %s\n", d.Question, gray("doublon de: "+d.DuplicateOf))
		}
		for _, s := range r.SimilarExamples {
			fmt.Fprintf(w, "  ≈ %s\n    %s\n", s.Question, gray(fmt.Sprintf("%d%% similaire à: %s", s.Similarity, s.SimilarTo)))
		}
		for _, d := range r.IntraBatchExamples {
			fmt.Fprintf(w, "  = %s\n    %s\n", d.Question, gray("répétée dans le lot: "+d.DuplicateOf))
		}
	}
	fmt.Fprintln(w)
}

func printCleanReport(w io.Writer, r *jobs.CleanReport) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	fmt.Fprintf(w, "\n%s\n", cyan("=== Nettoyage ==="))
	fmt.Fprintf(w, "%s %s\n\n", statusIcon(r.Committed, r.DryRun), r.Message)

	fmt.Fprintf(w, "  Avant:           %d\n", r.OriginalCount)
	fmt.Fprintf(w, "  Après:           %d\n", r.CleanedCount)
	fmt.Fprintf(w, "  Doublons exacts: %s\n", yellow(r.DuplicatesRemoved))
	fmt.Fprintf(w, "  Similaires:      %s\n", yellow(r.SimilarRemoved))
	fmt.Fprintf(w, "  Comparaisons:    %d\n", r.ComparisonsMade)

	if len(r.DuplicatesExamples) > 0 || len(r.SimilarExamples) > 0 {
		fmt.Fprintf(w, "\n%s\n", cyan("Exemples supprimés:"))
		for _, d := range r.DuplicatesExamples {
			fmt.Fprintf(w, "  = #%d %s\n    %s\n", d.Index, d.Question, gray("doublon de: "+d.DuplicateOf))
		}
		for _, s := range r.SimilarExamples {
			fmt.Fprintf(w, "  ≈ #%d %s\n    %s\n", s.Index, s.Question, gray(fmt.Sprintf("%d%% similaire à: %s", s.Similarity, s.SimilarTo)))
		}
	}
	fmt.Fprintln(w)
}

func printCheckResult(w io.Writer, text string, rej *types.Rejection) {
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	switch {
	case rej == nil:
		fmt.Fprintf(w, "%s unique: %s\n", green("✓"), text)
	case rej.Reason == types.ReasonExactDuplicate:
		fmt.Fprintf(w, "%s exact duplicate of #%d: %s\n", red("✗"), rej.MatchedIndex, rej.Matched.Text)
	default:
		fmt.Fprintf(w, "%s %d%% similar to #%d: %s\n", yellow("≈"), rej.Percent(), rej.MatchedIndex, rej.Matched.Text)
	}
}

func printRuns(w io.Writer, runs []*types.Run, loc *time.Location) {
	if len(runs) == 0 {
		gray := color.New(color.FgHiBlack).SprintFunc()
		fmt.Fprintf(w, "%s\n", gray("No runs recorded"))
		return
	}

	cyan := color.New(color.FgCyan).SprintFunc()
	for _, run := range runs {
		fmt.Fprintf(w, "%s %s %s %s\n",
			runIcon(run),
			run.StartedAt.In(loc).Format("2006-01-02 15:04"),
			cyan(fmt.Sprintf("%-8s", run.Job)),
			run.ID)
		fmt.Fprintf(w, "    %s\n", runSummary(run))
	}
}

func printRejections(w io.Writer, runID string, rejections []types.RunRejection) {
	if len(rejections) == 0 {
		fmt.Fprintf(w, "No rejected questions for run %s\n", runID)
		return
	}
	gray := color.New(color.FgHiBlack).SprintFunc()
	for _, rej := range rejections {
		detail := string(rej.Reason) + ": " + rej.Matched
		if rej.Reason == types.ReasonNearDuplicate {
			detail = fmt.Sprintf("%s %d%%: %s", rej.Reason, rej.Percent, rej.Matched)
		}
		fmt.Fprintf(w, "  %s\n    %s\n", rej.Candidate, gray(detail))
	}
}

// runSummary is the one-line detail of a run, e.g.
// "v12 | 15 generated | 11 accepted | 3 exact | 1 near | 1.2s".
func runSummary(run *types.Run) string {
	var parts []string
	if run.Version > 0 {
		parts = append(parts, fmt.Sprintf("v%d", run.Version))
	}
	switch run.Job {
	case types.JobGenerate:
		parts = append(parts,
			fmt.Sprintf("%d generated", run.Generated),
			fmt.Sprintf("%d accepted", run.Accepted))
	case types.JobClean:
		parts = append(parts, fmt.Sprintf("%d removed", run.Removed))
	}
	if n := run.ExactDuplicates; n > 0 {
		parts = append(parts, fmt.Sprintf("%d exact", n))
	}
	if n := run.NearDuplicates; n > 0 {
		parts = append(parts, fmt.Sprintf("%d near", n))
	}
	if n := run.IntraBatchDuplicates; n > 0 {
		parts = append(parts, fmt.Sprintf("%d intra-batch", n))
	}
	if run.DryRun {
		parts = append(parts, "dry run")
	}
	parts = append(parts, run.Duration().Round(100*time.Millisecond).String())
	if !run.Succeeded() {
		parts = append(parts, "error: "+run.Error)
	}
	return strings.Join(parts, " | ")
}

func runIcon(run *types.Run) string {
	switch {
	case !run.Succeeded():
		return color.New(color.FgRed).Sprint("✗")
	case run.Committed:
		return color.New(color.FgGreen).Sprint("●")
	default:
		return color.New(color.FgHiBlack).Sprint("○")
	}
}

func statusIcon(committed, dryRun bool) string {
	switch {
	case committed:
		return color.New(color.FgGreen).Sprint("✓")
	case dryRun:
		return color.New(color.FgYellow).Sprint("◌")
	default:
		return color.New(color.FgHiBlack).Sprint("○")
	}
}
