package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conorfennell/knolsched/internal/sched"
)

var countsCmd = &cobra.Command{
	Use:   "counts",
	Short: "Show the new, learning and review cards left today",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, s, err := openScheduler(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		sess := &sched.SessionState{}
		counts, err := s.Counts(ctx, sess)
		if err != nil {
			return err
		}
		fmt.Println(renderCounts(counts))
		if !countsByDeck {
			return nil
		}
		perDeck, err := s.NewCountsByDeck(ctx, sess)
		if err != nil {
			return err
		}
		nodes, err := s.DueTree(ctx, false)
		if err != nil {
			return err
		}
		fmt.Print(renderNewByDeck(nodes, perDeck))
		return nil
	},
}

var (
	countsByDeck bool
	treeCounts   bool
)

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Show the deck tree",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, s, err := openScheduler(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		nodes, err := s.DueTree(ctx, treeCounts)
		if err != nil {
			return err
		}
		fmt.Print(renderTree(nodes, treeCounts))
		return nil
	},
}

var etaCmd = &cobra.Command{
	Use:   "eta",
	Short: "Estimate the minutes needed to finish today's cards",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, s, err := openScheduler(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		counts, err := s.Counts(ctx, &sched.SessionState{})
		if err != nil {
			return err
		}
		minutes, err := s.ETA(ctx, counts)
		if err != nil {
			return err
		}
		fmt.Printf("%s cards, about %s minutes.\n", renderCounts(counts), titleStyle.Render(fmt.Sprint(minutes)))
		return nil
	},
}

var (
	extendNew int
	extendRev int
)

var extendCmd = &cobra.Command{
	Use:   "extend",
	Short: "Raise today's limits of the current deck",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, s, err := openScheduler(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := s.ExtendLimits(ctx, extendNew, extendRev); err != nil {
			return err
		}
		counts, err := s.Counts(ctx, &sched.SessionState{})
		if err != nil {
			return err
		}
		fmt.Println(renderCounts(counts))
		return nil
	},
}

func init() {
	countsCmd.Flags().BoolVar(&countsByDeck, "by-deck", false, "list the new cards each deck contributes")
	treeCmd.Flags().BoolVar(&treeCounts, "counts", true, "include due counts")
	extendCmd.Flags().IntVar(&extendNew, "new", 0, "extra new cards for today")
	extendCmd.Flags().IntVar(&extendRev, "reviews", 0, "extra reviews for today")
	rootCmd.AddCommand(countsCmd, treeCmd, etaCmd, extendCmd)
}
