package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/quizquotidien/quizgen/internal/scheduler"
	"github.com/quizquotidien/quizgen/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP trigger and the job scheduler",
	Long: `Serve the HTTP trigger endpoints and run the cron schedule until
interrupted. Both share one runner, so jobs never overlap.

Endpoints:
  GET|POST /api/generate-questions[?dry_run=true]
  GET|POST /api/clean-duplicates[?dry_run=true]
  GET      /healthz`,
	Run: func(cmd *cobra.Command, args []string) {
		noHTTP, _ := cmd.Flags().GetBool("no-http")
		noSchedule, _ := cmd.Flags().GetBool("no-schedule")
		if noHTTP && noSchedule {
			fmt.Fprintln(os.Stderr, "Error: nothing to serve with both --no-http and --no-schedule")
			os.Exit(1)
		}

		a, err := newApp(cfg, true)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		g, ctx := errgroup.WithContext(ctx)

		if !noHTTP {
			srv := server.New(a.runner, server.Config{
				Addr:          cfg.Server.Addr,
				Secret:        cfg.Server.Secret,
				RatePerMinute: cfg.Server.RatePerMinute,
				Burst:         cfg.Server.Burst,
				GinMode:       cfg.Server.GinMode,
			}, log.With().Str("component", "server").Logger())
			if cfg.Server.Secret == "" {
				log.Warn().Msg("CRON_SECRET is not set, trigger endpoints are unauthenticated")
			}
			g.Go(func() error { return srv.Run(ctx) })
		}

		if !noSchedule {
			schedCfg := scheduler.Config{
				Generate:  cfg.Schedule.Generate,
				Clean:     cfg.Schedule.Clean,
				Location:  cfg.Location(),
				Retention: retention(cfg),
			}
			if a.history != nil {
				schedCfg.Prune = a.history
			}
			sched, err := scheduler.New(a.runner, schedCfg, log.With().Str("component", "scheduler").Logger())
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				a.Close()
				os.Exit(1)
			}
			g.Go(func() error { return sched.Run(ctx) })
		}

		if err := g.Wait(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			a.Close()
			os.Exit(1)
		}
		log.Info().Msg("stopped")
	},
}

func init() {
	serveCmd.Flags().Bool("no-http", false, "Only run the scheduler")
	serveCmd.Flags().Bool("no-schedule", false, "Only run the HTTP trigger")
	rootCmd.AddCommand(serveCmd)
}
