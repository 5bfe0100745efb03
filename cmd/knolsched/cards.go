package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/conorfennell/knolsched/internal/domain"
	"github.com/conorfennell/knolsched/internal/sched"
)

// parseIDs reads card or note ids given as arguments.
func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		id, err := strconv.ParseInt(a, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q", a)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// cardsCommand builds a command that applies fn to the ids given as
// arguments and reports them with done.
func cardsCommand(use, short, done string, fn func(context.Context, *sched.Scheduler, []int64) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " ID...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			db, s, err := openScheduler(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := fn(ctx, s, ids); err != nil {
				return err
			}
			fmt.Printf("%d %s.\n", len(ids), done)
			return nil
		},
	}
}

var (
	buryManual  bool
	unburyScope string
	dueDays     string
)

var buryCmd = cardsCommand("bury", "Hide cards until tomorrow", "cards buried",
	func(ctx context.Context, s *sched.Scheduler, ids []int64) error {
		return s.Bury(ctx, ids, buryManual)
	})

var buryNoteCmd = cardsCommand("bury-note", "Hide every card of notes until tomorrow", "notes buried",
	func(ctx context.Context, s *sched.Scheduler, ids []int64) error {
		for _, id := range ids {
			if err := s.BuryNote(ctx, id); err != nil {
				return err
			}
		}
		return nil
	})

var suspendCmd = cardsCommand("suspend", "Suspend cards", "cards suspended",
	func(ctx context.Context, s *sched.Scheduler, ids []int64) error {
		return s.Suspend(ctx, ids)
	})

var unsuspendCmd = cardsCommand("unsuspend", "Return suspended cards to their queues", "cards unsuspended",
	func(ctx context.Context, s *sched.Scheduler, ids []int64) error {
		return s.Unsuspend(ctx, ids)
	})

var forgetCmd = cardsCommand("forget", "Reset cards to new", "cards reset",
	func(ctx context.Context, s *sched.Scheduler, ids []int64) error {
		return s.Forget(ctx, ids)
	})

var setDueCmd = cardsCommand("set-due", "Make cards due in a number of days", "cards rescheduled",
	func(ctx context.Context, s *sched.Scheduler, ids []int64) error {
		return s.SetDueDate(ctx, ids, dueDays)
	})

var unburyCmd = &cobra.Command{
	Use:   "unbury [DECK]",
	Short: "Return buried cards of a deck",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		scope, err := domain.ParseBuryScope(unburyScope)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		db, s, err := openScheduler(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		did := s.Options().CurrentDeck
		if len(args) == 1 {
			d, err := s.DeckByName(ctx, args[0])
			if err != nil {
				return err
			}
			did = d.ID
		}
		return s.Unbury(ctx, did, scope)
	},
}

func init() {
	buryCmd.Flags().BoolVar(&buryManual, "manual", true, "bury as a user action rather than as siblings")
	unburyCmd.Flags().StringVar(&unburyScope, "scope", "all", "all, manual or siblings")
	setDueCmd.Flags().StringVar(&dueDays, "days", "0", `days from today, a range such as "3-7", "!" also sets the interval`)
	rootCmd.AddCommand(buryCmd, buryNoteCmd, unburyCmd, suspendCmd, unsuspendCmd, forgetCmd, setDueCmd)
}
