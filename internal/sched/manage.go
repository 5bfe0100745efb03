package sched

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/conorfennell/knolsched/internal/domain"
)

// updateCards runs fn over ids in one transaction and drops the caches.
func (s *Scheduler) updateCards(ctx context.Context, ids []int64, fn func(*domain.Card)) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.prepare(ctx); err != nil {
		return err
	}
	now := s.clock.NowUnix()
	err := s.store.WithTx(ctx, func(tx Store) error {
		return tx.UpdateCards(ctx, ids, func(c *domain.Card) {
			fn(c)
			c.Mod = now
			c.Usn = -1
		})
	})
	s.dropFromQueues(ids...)
	s.invalidate()
	if err != nil {
		s.DeferReset()
		return fmt.Errorf("failed to update cards: %w", err)
	}
	return nil
}

// Bury hides cards until the next day. Manual burying is kept apart from
// the burying of siblings so each can be undone on its own.
func (s *Scheduler) Bury(ctx context.Context, ids []int64, manual bool) error {
	q := domain.QueueSiblingBuried
	if manual {
		q = domain.QueueManuallyBuried
	}
	return s.updateCards(ctx, ids, func(c *domain.Card) {
		c.Queue = q
	})
}

// BuryNote manually buries every card of a note.
func (s *Scheduler) BuryNote(ctx context.Context, noteID int64) error {
	cards, err := s.store.CardsOfNote(ctx, noteID)
	if err != nil {
		return fmt.Errorf("failed to list cards of note %d: %w", noteID, err)
	}
	if len(cards) == 0 {
		return fmt.Errorf("%w: %d", ErrNoteNotFound, noteID)
	}
	ids := make([]int64, len(cards))
	for i, c := range cards {
		ids[i] = c.ID
	}
	return s.Bury(ctx, ids, true)
}

// Unbury restores the buried cards of did and its subdecks that scope
// selects.
func (s *Scheduler) Unbury(ctx context.Context, did int64, scope domain.BuryScope) error {
	if err := s.prepare(ctx); err != nil {
		return err
	}
	if s.decks.deck(did) == nil {
		return fmt.Errorf("%w: %d", ErrDeckNotFound, did)
	}
	refs, err := s.store.QueryCards(ctx, domain.CardQuery{
		DeckIDs: s.decks.subtreeIDs(did),
		Queues:  scope.Queues(),
	})
	if err != nil {
		return fmt.Errorf("failed to find buried cards: %w", err)
	}
	return s.updateCards(ctx, refIDs(refs), func(c *domain.Card) {
		c.Queue = c.RestoredQueue()
	})
}

// HaveBuried reports whether the selected deck has buried cards.
func (s *Scheduler) HaveBuried(ctx context.Context) (bool, error) {
	if err := s.prepare(ctx); err != nil {
		return false, err
	}
	n, err := s.store.CountCards(ctx, domain.CardQuery{
		DeckIDs: s.activeDecks(),
		Queues:  domain.UnburyAll.Queues(),
		Limit:   1,
	})
	if err != nil {
		return false, fmt.Errorf("failed to count buried cards: %w", err)
	}
	return n > 0, nil
}

// Suspend takes cards out of study until they are unsuspended. Cards in
// filtered decks go back to their home deck first.
func (s *Scheduler) Suspend(ctx context.Context, ids []int64) error {
	return s.updateCards(ctx, ids, func(c *domain.Card) {
		if c.InFilteredDeck() {
			c.Queue = c.RestoredQueue()
			if c.OriginalDue > 0 {
				c.Due = c.OriginalDue
			}
			removeFromFiltered(c)
		}
		c.Queue = domain.QueueSuspended
	})
}

// Unsuspend puts suspended cards back into the queue their type implies.
func (s *Scheduler) Unsuspend(ctx context.Context, ids []int64) error {
	return s.updateCards(ctx, ids, func(c *domain.Card) {
		if c.Queue == domain.QueueSuspended {
			c.Queue = c.RestoredQueue()
		}
	})
}

// ParseDueSpec parses a day range such as "0", "3-7" or "1-5!". A trailing
// "!" also sets the interval to the chosen number of days.
func ParseDueSpec(spec string) (lo, hi int, setIvl bool, err error) {
	spec = strings.TrimSpace(spec)
	if strings.HasSuffix(spec, "!") {
		setIvl = true
		spec = strings.TrimSuffix(spec, "!")
	}
	first, second, isRange := strings.Cut(spec, "-")
	if lo, err = strconv.Atoi(strings.TrimSpace(first)); err != nil {
		return 0, 0, false, fmt.Errorf("%w: %q", ErrInvalidDueSpec, spec)
	}
	hi = lo
	if isRange {
		if hi, err = strconv.Atoi(strings.TrimSpace(second)); err != nil {
			return 0, 0, false, fmt.Errorf("%w: %q", ErrInvalidDueSpec, spec)
		}
	}
	if lo < 0 || hi < lo {
		return 0, 0, false, fmt.Errorf("%w: %q", ErrInvalidDueSpec, spec)
	}
	return lo, hi, setIvl, nil
}

// SetDueDate makes cards review cards due a random number of days from
// today within spec's range.
func (s *Scheduler) SetDueDate(ctx context.Context, ids []int64, spec string) error {
	lo, hi, setIvl, err := ParseDueSpec(spec)
	if err != nil {
		return err
	}
	return s.updateCards(ctx, ids, func(c *domain.Card) {
		days := lo + s.rng.Intn(hi-lo+1)
		removeFromFiltered(c)
		isReview := c.Type == domain.TypeReview || c.Type == domain.TypeRelearning
		if setIvl || !isReview {
			c.Interval = max(1, days)
		}
		if c.Factor == 0 {
			c.Factor = s.confForCard(c).New.InitialFactor
		}
		c.Due = int64(s.today + days)
		c.Type = domain.TypeReview
		c.Queue = domain.QueueReview
		c.Left = 0
	})
}

// Forget turns cards back into new cards placed after every existing new
// card, in the order given.
func (s *Scheduler) Forget(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	top, err := s.store.MaxNewPosition(ctx)
	if err != nil {
		return fmt.Errorf("failed to find last new position: %w", err)
	}
	pos := make(map[int64]int64, len(ids))
	for i, id := range ids {
		pos[id] = top + 1 + int64(i)
	}
	return s.updateCards(ctx, ids, func(c *domain.Card) {
		removeFromFiltered(c)
		c.Type = domain.TypeNew
		c.Queue = domain.QueueNew
		c.Due = pos[c.ID]
		c.Interval = 0
		c.Factor = 0
		c.Left = 0
	})
}

// ExtendLimits raises today's new and review limits of the selected deck,
// its parents and its subdecks.
func (s *Scheduler) ExtendLimits(ctx context.Context, newCards, reviews int) error {
	if err := s.prepare(ctx); err != nil {
		return err
	}
	did := s.opts.CurrentDeck
	if s.decks.deck(did) == nil {
		did = domain.DefaultDeckID
	}
	ids := s.decks.ancestorIDs(did)
	for _, c := range s.decks.children(did) {
		ids = append(ids, c.ID)
	}
	for _, id := range ids {
		d := s.decks.deck(id)
		if d == nil {
			continue
		}
		d.NewToday = domain.DayCounter{Day: s.today, Count: d.NewToday.For(s.today) - newCards}
		d.RevToday = domain.DayCounter{Day: s.today, Count: d.RevToday.For(s.today) - reviews}
		s.decks.markDirty(id)
	}
	s.invalidate()
	return s.saveDirtyDecks(ctx, s.store)
}
