package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/conorfennell/knolsched/internal/sched"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an empty collection",
	Long: `Create the collection tables, the Default deck and the default
options. The current time and UTC offset fix where days begin.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		now := time.Now()
		opts, err := cfg.Scheduler.Options(now.Unix(), sched.OffsetMinutesWest(now))
		if err != nil {
			return err
		}
		created, err := db.InitCollection(ctx, opts)
		if err != nil {
			return err
		}
		if !created {
			fmt.Println(mutedStyle.Render("Collection already exists: " + cfg.Database.DSN))
			return nil
		}
		logger.Info("collection created", "dsn", cfg.Database.DSN, "version", opts.SchedVersion)
		fmt.Println("Created collection " + titleStyle.Render(cfg.Database.DSN))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
