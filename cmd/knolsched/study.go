package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/conorfennell/knolsched/internal/domain"
	"github.com/conorfennell/knolsched/internal/sched"
)

var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Show the next card to study",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, s, err := openScheduler(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		var sess sched.SessionState
		card, err := s.NextCard(ctx, &sess)
		if err != nil {
			return err
		}
		if card == nil {
			fmt.Println("Congratulations! You have finished for now.")
			return nil
		}
		note, err := db.GetNote(ctx, card.NoteID)
		if err != nil {
			return err
		}
		counts, err := s.CountsWith(ctx, &sess, card)
		if err != nil {
			return err
		}

		front, back := note.Front, note.Back
		if card.Ord == 1 {
			front, back = back, front
		}
		body := titleStyle.Render(front) + "\n\n" + back
		if note.Context != "" {
			body += "\n\n" + mutedStyle.Render(note.Context)
		}
		fmt.Println(renderCounts(counts))
		fmt.Println(cardStyle.Render(body))

		var buttons []string
		for r := domain.Again; r <= domain.Easy; r++ {
			if s.AnswerButtons(card) == 2 && r != domain.Again && r != domain.Easy {
				continue
			}
			secs, err := s.NextInterval(ctx, card, r)
			if err != nil {
				return err
			}
			buttons = append(buttons, fmt.Sprintf("%s %s", r, mutedStyle.Render(humanInterval(secs))))
		}
		fmt.Printf("card %d: %s\n", card.ID, strings.Join(buttons, "  "))
		return nil
	},
}

var (
	answerCard   int64
	answerRating string
)

var answerCmd = &cobra.Command{
	Use:   "answer",
	Short: "Answer a card",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rating, err := domain.ParseRating(answerRating)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		db, s, err := openScheduler(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		card, err := db.GetCard(ctx, answerCard)
		if err != nil {
			return err
		}
		out, err := s.Answer(ctx, &sched.SessionState{}, card, rating)
		if err != nil {
			return err
		}
		if out.Leech {
			fmt.Println(errorStyle.Render("Card is a leech."))
		}
		switch card.Queue {
		case domain.QueueLearning, domain.QueuePreview:
			fmt.Printf("Card %d is due again in %s.\n", card.ID, humanInterval(card.Due-time.Now().Unix()))
		case domain.QueueReview, domain.QueueDayLearning:
			fmt.Printf("Card %d is due in %d days.\n", card.ID, card.Due-int64(s.Today()))
		default:
			fmt.Printf("Card %d is now %s.\n", card.ID, card.Queue)
		}
		return nil
	},
}

func init() {
	answerCmd.Flags().Int64Var(&answerCard, "card", 0, "id of the card to answer")
	answerCmd.Flags().StringVar(&answerRating, "rating", "good", "again, hard, good or easy")
	answerCmd.MarkFlagRequired("card")
	rootCmd.AddCommand(nextCmd, answerCmd)
}
