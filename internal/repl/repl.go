// Package repl is an interactive shell for checking question texts against
// the stored bank before adding them by hand.
package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"

	"github.com/quizquotidien/quizgen/internal/deduplication"
	"github.com/quizquotidien/quizgen/internal/storage"
	"github.com/quizquotidien/quizgen/internal/types"
)

// errExit ends the loop from a command.
var errExit = errors.New("exit")

// REPL represents the interactive shell
type REPL struct {
	store        storage.Storage
	cfg          deduplication.Config
	checkArchive bool
	out          io.Writer

	rl       *readline.Instance
	ctx      context.Context
	corpus   []types.Question
	commands map[string]CommandHandler
}

// CommandHandler handles a specific command
type CommandHandler func(args []string) error

// Config holds REPL configuration
type Config struct {
	Store storage.Storage
	// Dedup is the filter configuration texts are checked with.
	Dedup deduplication.Config
	// CheckArchive adds archived questions to the corpus.
	CheckArchive bool
	// Out defaults to stdout.
	Out io.Writer
}

// New creates a new REPL instance
func New(cfg *Config) (*REPL, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("storage is required")
	}
	if err := cfg.Dedup.Validate(); err != nil {
		return nil, err
	}
	out := cfg.Out
	if out == nil {
		out = os.Stdout
	}

	r := &REPL{
		store:        cfg.Store,
		cfg:          cfg.Dedup,
		checkArchive: cfg.CheckArchive,
		out:          out,
		ctx:          context.Background(),
		commands:     make(map[string]CommandHandler),
	}
	r.registerCommands()
	return r, nil
}

// Run loads the bank and starts the REPL loop
func (r *REPL) Run(ctx context.Context) error {
	r.ctx = ctx
	if err := r.load(); err != nil {
		return err
	}

	cyan := color.New(color.FgCyan).SprintFunc()
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            cyan("quizgen> "),
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()
	r.rl = rl

	r.printWelcome()

	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			} else if errors.Is(err, io.EOF) {
				fmt.Fprintln(r.out, "\nAu revoir !")
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if err := r.processInput(line); err != nil {
			if errors.Is(err, errExit) {
				return nil
			}
			red := color.New(color.FgRed).SprintFunc()
			fmt.Fprintf(r.out, "%s %v\n", red("Error:"), err)
		}
	}
}

// processInput runs a command, or checks the line as a question text.
func (r *REPL) processInput(line string) error {
	if strings.HasPrefix(line, ":") {
		parts := strings.Fields(strings.TrimPrefix(line, ":"))
		if len(parts) == 0 {
			return nil
		}
		handler, ok := r.commands[parts[0]]
		if !ok {
			return fmt.Errorf("unknown command :%s (try :help)", parts[0])
		}
		return handler(parts[1:])
	}
	r.check(line)
	return nil
}

func (r *REPL) registerCommands() {
	r.commands["help"] = r.cmdHelp
	r.commands["?"] = r.cmdHelp
	r.commands["exit"] = r.cmdExit
	r.commands["quit"] = r.cmdExit
	r.commands["reload"] = r.cmdReload
	r.commands["threshold"] = r.cmdThreshold
	r.commands["stats"] = r.cmdStats
}

// load reads the corpus from storage.
func (r *REPL) load() error {
	snap, err := r.store.Load(r.ctx)
	if err != nil {
		return fmt.Errorf("loading question bank: %w", err)
	}
	r.corpus = snap.Bank.Questions
	if r.checkArchive {
		r.corpus = append(append([]types.Question{}, snap.Bank.ArchivedQuestions...), snap.Bank.Questions...)
	}
	return nil
}

func (r *REPL) check(text string) {
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	rej := deduplication.Check(text, r.corpus, r.cfg)
	switch {
	case rej == nil:
		fmt.Fprintf(r.out, "%s unique\n", green("✓"))
	case rej.Reason == types.ReasonExactDuplicate:
		fmt.Fprintf(r.out, "%s exact duplicate of #%d: %s\n", red("✗"), rej.MatchedIndex, rej.Matched.Text)
	default:
		fmt.Fprintf(r.out, "%s %d%% similar to #%d: %s\n", yellow("≈"), rej.Percent(), rej.MatchedIndex, rej.Matched.Text)
	}
}

func (r *REPL) printWelcome() {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	fmt.Fprintf(r.out, "\n%s\n", cyan("quizgen duplicate checker"))
	fmt.Fprintf(r.out, "%d questions loaded from %s (%s)\n", len(r.corpus), r.store.Location(), r.cfg)
	fmt.Fprintln(r.out, "Type a question to check it, :help for commands, :exit to quit")
	fmt.Fprintln(r.out)
}

func (r *REPL) cmdHelp(args []string) error {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	fmt.Fprintf(r.out, "\n%s\n\n", cyan("Available Commands:"))

	commands := []struct {
		name string
		desc string
	}{
		{":help, :?", "Show this help message"},
		{":reload", "Reload the question bank from storage"},
		{":threshold [x]", "Show or set the similarity threshold (0 to 1)"},
		{":stats", "Show corpus size and filter settings"},
		{":exit, :quit", "Exit the REPL"},
	}
	for _, cmd := range commands {
		fmt.Fprintf(r.out, "  %-16s %s\n", green(cmd.name), cmd.desc)
	}
	fmt.Fprintln(r.out)
	return nil
}

func (r *REPL) cmdExit(args []string) error {
	fmt.Fprintln(r.out, "Au revoir !")
	return errExit
}

func (r *REPL) cmdReload(args []string) error {
	if err := r.load(); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "%d questions loaded\n", len(r.corpus))
	return nil
}

func (r *REPL) cmdThreshold(args []string) error {
	if len(args) == 0 {
		fmt.Fprintf(r.out, "threshold %.2f\n", r.cfg.SimilarityThreshold)
		return nil
	}
	v, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("invalid threshold %q: %w", args[0], err)
	}
	next := r.cfg
	next.SimilarityThreshold = v
	if err := next.Validate(); err != nil {
		return err
	}
	r.cfg = next
	fmt.Fprintf(r.out, "threshold set to %.2f\n", v)
	return nil
}

func (r *REPL) cmdStats(args []string) error {
	fmt.Fprintf(r.out, "%d questions in corpus\n", len(r.corpus))
	fmt.Fprintf(r.out, "filter: %s\n", r.cfg)
	return nil
}
