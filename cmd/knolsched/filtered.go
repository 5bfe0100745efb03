package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conorfennell/knolsched/internal/domain"
	"github.com/conorfennell/knolsched/internal/sched"
)

var filteredCmd = &cobra.Command{
	Use:   "filtered",
	Short: "Manage filtered decks",
}

var (
	filterSearch  string
	filterKind    string
	filterOrder   string
	filterLimit   int
	filterResched bool
	filterPreview int
)

var filteredCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create a filtered deck and fill it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := domain.ParseFilterKind(filterKind)
		if err != nil {
			return err
		}
		order, err := domain.ParseFilterOrder(filterOrder)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		db, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		d, err := db.CreateFilteredDeck(ctx, args[0], domain.FilterSpec{
			Terms:        []domain.FilterTerm{{Deck: filterSearch, Kind: kind, Limit: filterLimit, Order: order}},
			Resched:      filterResched,
			PreviewDelay: filterPreview,
		})
		if err != nil {
			return err
		}
		s, err := sched.New(ctx, db, sched.Config{Logger: logger})
		if err != nil {
			return err
		}
		n, err := s.RebuildFilteredDeck(ctx, d.ID)
		if err != nil {
			return err
		}
		fmt.Printf("Created %s with %d cards.\n", titleStyle.Render(d.Name), n)
		return nil
	},
}

var filteredRebuildCmd = &cobra.Command{
	Use:   "rebuild NAME",
	Short: "Return a filtered deck's cards and gather them again",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, s, err := openScheduler(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		d, err := s.DeckByName(ctx, args[0])
		if err != nil {
			return err
		}
		n, err := s.RebuildFilteredDeck(ctx, d.ID)
		if err != nil {
			return err
		}
		fmt.Printf("%s now holds %d cards.\n", titleStyle.Render(d.Name), n)
		return nil
	},
}

var filteredEmptyCmd = &cobra.Command{
	Use:   "empty NAME",
	Short: "Return a filtered deck's cards to their home decks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, s, err := openScheduler(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		d, err := s.DeckByName(ctx, args[0])
		if err != nil {
			return err
		}
		if err := s.EmptyFilteredDeck(ctx, d.ID); err != nil {
			return err
		}
		fmt.Printf("Emptied %s.\n", titleStyle.Render(d.Name))
		return nil
	},
}

func init() {
	f := filteredCreateCmd.Flags()
	f.StringVar(&filterSearch, "search-deck", "", "deck whose subtree is searched, empty for all decks")
	f.StringVar(&filterKind, "kind", "due", "cards to gather: any, due, new or review")
	f.StringVar(&filterOrder, "order", "random", "gathering order")
	f.IntVar(&filterLimit, "limit", 100, "maximum number of cards")
	f.BoolVar(&filterResched, "resched", true, "let answers in the deck change scheduling")
	f.IntVar(&filterPreview, "preview-delay", 10, "minutes before a failed preview card returns")
	filteredCmd.AddCommand(filteredCreateCmd, filteredRebuildCmd, filteredEmptyCmd)
	rootCmd.AddCommand(filteredCmd)
}
