package sched

import (
	"context"
	"fmt"

	"github.com/conorfennell/knolsched/internal/domain"
)

// filteredStart is the due position of the first card moved into a
// filtered deck; positions stay negative so every gathered card is due.
const filteredStart = -100000

func (s *Scheduler) filteredDeck(did int64) (*domain.Deck, error) {
	d := s.decks.deck(did)
	if d == nil {
		return nil, fmt.Errorf("%w: %d", ErrDeckNotFound, did)
	}
	if !d.IsFiltered() {
		return nil, fmt.Errorf("%w: %s", ErrNotFiltered, d.Name)
	}
	return d, nil
}

// RebuildFilteredDeck empties the filtered deck did, gathers cards for it
// again and selects it for study. It returns the number of cards gathered;
// when none matched the deck is left empty and ErrFilteredDeckEmpty is
// returned.
func (s *Scheduler) RebuildFilteredDeck(ctx context.Context, did int64) (int, error) {
	if err := s.prepare(ctx); err != nil {
		return 0, err
	}
	d, err := s.filteredDeck(did)
	if err != nil {
		return 0, err
	}
	var n int
	err = s.store.WithTx(ctx, func(tx Store) error {
		if err := s.emptyFiltered(ctx, tx, did); err != nil {
			return err
		}
		ids, err := s.gatherFiltered(ctx, tx, d)
		if err != nil {
			return err
		}
		n = len(ids)
		if n == 0 {
			return nil
		}
		if err := s.moveToFiltered(ctx, tx, d, ids); err != nil {
			return err
		}
		return tx.SetConfig(ctx, domain.KeyCurrentDeck, did)
	})
	s.invalidate()
	if err != nil {
		s.DeferReset()
		return 0, err
	}
	if n == 0 {
		return 0, fmt.Errorf("%w: %s", ErrFilteredDeckEmpty, d.Name)
	}
	s.opts.CurrentDeck = did
	s.log.Info("rebuilt filtered deck", "deck", d.Name, "cards", n)
	return n, nil
}

// EmptyFilteredDeck returns every card of the filtered deck did to its
// home deck.
func (s *Scheduler) EmptyFilteredDeck(ctx context.Context, did int64) error {
	if err := s.prepare(ctx); err != nil {
		return err
	}
	if _, err := s.filteredDeck(did); err != nil {
		return err
	}
	err := s.store.WithTx(ctx, func(tx Store) error {
		return s.emptyFiltered(ctx, tx, did)
	})
	s.invalidate()
	if err != nil {
		s.DeferReset()
	}
	return err
}

func (s *Scheduler) emptyFiltered(ctx context.Context, tx Store, did int64) error {
	refs, err := tx.QueryCards(ctx, domain.CardQuery{DeckIDs: []int64{did}})
	if err != nil {
		return fmt.Errorf("failed to list filtered deck %d: %w", did, err)
	}
	if len(refs) == 0 {
		return nil
	}
	now := s.clock.NowUnix()
	err = tx.UpdateCards(ctx, refIDs(refs), func(c *domain.Card) {
		if c.Queue != domain.QueueSuspended {
			c.Queue = c.RestoredQueue()
		}
		if c.OriginalDue > 0 {
			c.Due = c.OriginalDue
		}
		if c.OriginalDeckID != 0 {
			c.DeckID = c.OriginalDeckID
		}
		c.OriginalDue = 0
		c.OriginalDeckID = 0
		c.Mod = now
		c.Usn = -1
	})
	if err != nil {
		return fmt.Errorf("failed to empty filtered deck %d: %w", did, err)
	}
	return nil
}

// gatherFiltered runs each search term of d in turn and returns the
// matching card ids without duplicates.
func (s *Scheduler) gatherFiltered(ctx context.Context, tx Store, d *domain.Deck) ([]int64, error) {
	seen := make(map[int64]bool)
	var ids []int64
	for _, term := range d.Filter.Terms {
		dids, err := s.searchDecks(term.Deck)
		if err != nil {
			return nil, err
		}
		found, err := tx.SearchCards(ctx, term, dids, s.today)
		if err != nil {
			return nil, fmt.Errorf("failed to search cards for %s: %w", d.Name, err)
		}
		for _, id := range found {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids, nil
}

// searchDecks returns the normal decks a filter term searches.
func (s *Scheduler) searchDecks(name string) ([]int64, error) {
	var candidates []*domain.Deck
	if name == "" {
		candidates = s.decks.sorted
	} else {
		root := s.decks.byName[name]
		if root == nil {
			return nil, fmt.Errorf("%w: %q", ErrDeckNotFound, name)
		}
		candidates = append([]*domain.Deck{root}, s.decks.children(root.ID)...)
	}
	var dids []int64
	for _, d := range candidates {
		if !d.IsFiltered() {
			dids = append(dids, d.ID)
		}
	}
	return dids, nil
}

// moveToFiltered rehomes the cards into d, remembering their deck and due.
// Decks that do not reschedule show every card as a review.
func (s *Scheduler) moveToFiltered(ctx context.Context, tx Store, d *domain.Deck, ids []int64) error {
	pos := make(map[int64]int64, len(ids))
	for i, id := range ids {
		pos[id] = filteredStart + int64(i)
	}
	now := s.clock.NowUnix()
	err := tx.UpdateCards(ctx, ids, func(c *domain.Card) {
		c.OriginalDeckID = c.DeckID
		c.OriginalDue = c.Due
		c.DeckID = d.ID
		if c.Due > 0 {
			c.Due = pos[c.ID]
		}
		if !d.Filter.Resched {
			c.Queue = domain.QueueReview
		}
		c.Mod = now
		c.Usn = -1
	})
	if err != nil {
		return fmt.Errorf("failed to move cards into %s: %w", d.Name, err)
	}
	return nil
}
