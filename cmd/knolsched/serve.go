package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/conorfennell/knolsched/internal/rollover"
	"github.com/conorfennell/knolsched/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a review session over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, s, err := openScheduler(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		srv := web.NewServer(s, db, logger)
		job := rollover.New(srv, cfg.Rollover.Interval, logger)
		if err := job.Start(); err != nil {
			return err
		}
		defer job.Stop()

		httpServer := &http.Server{
			Addr:              cfg.Server.Listen,
			Handler:           srv,
			ReadHeaderTimeout: 10 * time.Second,
		}
		errc := make(chan error, 1)
		go func() {
			logger.Info("listening", "addr", cfg.Server.Listen, "driver", db.Driver())
			errc <- httpServer.ListenAndServe()
		}()

		select {
		case err := <-errc:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		case <-ctx.Done():
		}
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
