package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/conorfennell/knolsched/internal/config"
	"github.com/conorfennell/knolsched/internal/sched"
	"github.com/conorfennell/knolsched/internal/storage"
)

var (
	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "knolsched",
	Short: "A spaced repetition scheduler for markdown notes",
	Long: `knolsched keeps a collection of notes and schedules their cards
with learning steps, growing review intervals and daily limits.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(cmd.Flags()); err != nil {
			return err
		}
		logger, err = config.NewLogger(cfg.Log, os.Stderr)
		if err != nil {
			return err
		}
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	config.Register(rootCmd.PersistentFlags())
}

// Execute runs the command line.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
		os.Exit(1)
	}
}

// openDB opens the configured collection database.
func openDB(ctx context.Context) (*storage.DB, error) {
	return storage.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
}

// openScheduler opens the collection and a scheduler on the configured
// deck. The caller closes the returned database.
func openScheduler(ctx context.Context) (*storage.DB, *sched.Scheduler, error) {
	db, err := openDB(ctx)
	if err != nil {
		return nil, nil, err
	}
	s, err := sched.New(ctx, db, sched.Config{Logger: logger})
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to open collection: %w", err)
	}
	if cfg.Scheduler.Deck != "" {
		d, err := s.DeckByName(ctx, cfg.Scheduler.Deck)
		if err == nil {
			err = s.SelectDeck(ctx, d.ID)
		}
		if err != nil {
			db.Close()
			return nil, nil, err
		}
	}
	return db, s, nil
}
