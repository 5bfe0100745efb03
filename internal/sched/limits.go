package sched

import (
	"context"
	"fmt"

	"github.com/conorfennell/knolsched/internal/domain"
)

// newLimitSingle is the new-card budget left today for one deck, ignoring
// its parents.
func (s *Scheduler) newLimitSingle(d *domain.Deck, sess *SessionState, considerCurrent bool) int {
	if d.IsFiltered() {
		return s.cfg.ReportLimit
	}
	conf := s.decks.conf(d.ID)
	lim := max(0, conf.New.PerDay-d.NewToday.For(s.today))
	if considerCurrent && sess.currentIn(domain.QueueNew, d.ID) {
		lim--
	}
	return max(0, lim)
}

// revLimitSingle is the review budget left today for one deck, ignoring
// its parents.
func (s *Scheduler) revLimitSingle(d *domain.Deck, sess *SessionState, considerCurrent bool) int {
	if d.IsFiltered() {
		return s.cfg.ReportLimit
	}
	conf := s.decks.conf(d.ID)
	lim := max(0, conf.Rev.PerDay-d.RevToday.For(s.today))
	if considerCurrent && sess.currentIn(domain.QueueReview, d.ID) {
		lim--
	}
	return max(0, lim)
}

// deckLimit applies single to did and every parent and returns the
// smallest result.
func (s *Scheduler) deckLimit(did int64, single func(*domain.Deck) int) int {
	d := s.decks.deck(did)
	if d == nil {
		return 0
	}
	lim := single(d)
	if d.IsFiltered() {
		return lim
	}
	for _, p := range s.decks.parents(did) {
		lim = min(lim, single(p))
	}
	return lim
}

// RemainingNew returns how many more new cards deck did may show today.
func (s *Scheduler) RemainingNew(ctx context.Context, did int64, sess *SessionState, considerCurrent bool) (int, error) {
	if err := s.prepare(ctx); err != nil {
		return 0, err
	}
	if s.decks.deck(did) == nil {
		return 0, fmt.Errorf("%w: %d", ErrDeckNotFound, did)
	}
	return s.remainingNew(did, sess, considerCurrent), nil
}

// RemainingReview returns how many more reviews deck did may show today.
func (s *Scheduler) RemainingReview(ctx context.Context, did int64, sess *SessionState, considerCurrent bool) (int, error) {
	if err := s.prepare(ctx); err != nil {
		return 0, err
	}
	if s.decks.deck(did) == nil {
		return 0, fmt.Errorf("%w: %d", ErrDeckNotFound, did)
	}
	return s.remainingReview(did, sess, considerCurrent), nil
}

func (s *Scheduler) remainingNew(did int64, sess *SessionState, considerCurrent bool) int {
	return s.deckLimit(did, func(d *domain.Deck) int {
		return s.newLimitSingle(d, sess, considerCurrent)
	})
}

func (s *Scheduler) remainingReview(did int64, sess *SessionState, considerCurrent bool) int {
	return s.deckLimit(did, func(d *domain.Deck) int {
		return s.revLimitSingle(d, sess, considerCurrent)
	})
}

// currentRevLimit is the review budget of the selected deck.
func (s *Scheduler) currentRevLimit(sess *SessionState) int {
	did := s.opts.CurrentDeck
	if s.decks.deck(did) == nil {
		did = domain.DefaultDeckID
	}
	return s.remainingReview(did, sess, true)
}

// walkingCount distributes each parent's budget over its subdecks in
// active-deck order. limit gives a deck's own budget and count the number
// of cards found in a deck given a cap. It returns the total and the
// per-deck counts.
func (s *Scheduler) walkingCount(
	ctx context.Context,
	limit func(*domain.Deck) int,
	count func(did int64, lim int) (int, error),
) (int, map[int64]int, error) {
	total := 0
	perDeck := make(map[int64]int)
	// remaining budget of each deck seen so far
	pcounts := make(map[int64]int)
	for _, did := range s.activeDecks() {
		if err := ctx.Err(); err != nil {
			return 0, nil, fmt.Errorf("count interrupted: %w", err)
		}
		d := s.decks.deck(did)
		if d == nil {
			continue
		}
		lim := limit(d)
		if lim == 0 {
			continue
		}
		parents := s.decks.parents(did)
		for _, p := range parents {
			if _, ok := pcounts[p.ID]; !ok {
				pcounts[p.ID] = limit(p)
			}
			lim = min(pcounts[p.ID], lim)
		}
		cnt := 0
		if lim > 0 {
			var err error
			if cnt, err = count(did, lim); err != nil {
				return 0, nil, err
			}
		}
		for _, p := range parents {
			pcounts[p.ID] -= cnt
		}
		pcounts[did] = lim - cnt
		perDeck[did] = cnt
		total += cnt
	}
	return total, perDeck, nil
}

func (s *Scheduler) countNew(ctx context.Context, sess *SessionState) (int, error) {
	total, _, err := s.walkingCount(ctx,
		func(d *domain.Deck) int { return s.newLimitSingle(d, sess, true) },
		func(did int64, lim int) (int, error) {
			n, err := s.store.CountCards(ctx, domain.CardQuery{
				DeckIDs:   []int64{did},
				Queues:    []domain.Queue{domain.QueueNew},
				ExcludeID: sess.currentID(),
				Limit:     lim,
			})
			if err != nil {
				return 0, fmt.Errorf("failed to count new cards: %w", err)
			}
			return n, nil
		})
	return total, err
}

func (s *Scheduler) countRev(ctx context.Context, sess *SessionState) (int, error) {
	if s.rules.WalkReviewCounts {
		total, _, err := s.walkingCount(ctx,
			func(d *domain.Deck) int { return s.revLimitSingle(d, sess, true) },
			func(did int64, lim int) (int, error) {
				return s.countDueReviews(ctx, []int64{did}, sess, lim)
			})
		return total, err
	}
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("count interrupted: %w", err)
	}
	lim := s.currentRevLimit(sess)
	if lim == 0 {
		return 0, nil
	}
	return s.countDueReviews(ctx, s.activeDecks(), sess, lim)
}

func (s *Scheduler) countDueReviews(ctx context.Context, dids []int64, sess *SessionState, lim int) (int, error) {
	n, err := s.store.CountCards(ctx, domain.CardQuery{
		DeckIDs:   dids,
		Queues:    []domain.Queue{domain.QueueReview},
		DueFilter: domain.DueAtMost,
		Due:       int64(s.today),
		ExcludeID: sess.currentID(),
		Limit:     lim,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count reviews: %w", err)
	}
	return n, nil
}

// countLrn counts cards, not steps: intraday learning cards inside the
// learn-ahead window, day-learning cards due today and preview cards.
func (s *Scheduler) countLrn(ctx context.Context, sess *SessionState) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("count interrupted: %w", err)
	}
	active := s.activeDecks()
	queries := []domain.CardQuery{
		{Queues: []domain.Queue{domain.QueueLearning}, DueFilter: domain.DueBefore, Due: s.lrnCutoff},
		{Queues: []domain.Queue{domain.QueueDayLearning}, DueFilter: domain.DueAtMost, Due: int64(s.today)},
		{Queues: []domain.Queue{domain.QueuePreview}},
	}
	total := 0
	for _, q := range queries {
		q.DeckIDs = active
		q.ExcludeID = sess.currentID()
		n, err := s.store.CountCards(ctx, q)
		if err != nil {
			return 0, fmt.Errorf("failed to count learning cards: %w", err)
		}
		total += n
	}
	return total, nil
}

// NewCountsByDeck returns the new cards each active deck contributes to
// today's count once parent budgets are shared out.
func (s *Scheduler) NewCountsByDeck(ctx context.Context, sess *SessionState) (map[int64]int, error) {
	if err := s.prepare(ctx); err != nil {
		return nil, err
	}
	_, perDeck, err := s.walkingCount(ctx,
		func(d *domain.Deck) int { return s.newLimitSingle(d, sess, true) },
		func(did int64, lim int) (int, error) {
			return s.store.CountCards(ctx, domain.CardQuery{
				DeckIDs:   []int64{did},
				Queues:    []domain.Queue{domain.QueueNew},
				ExcludeID: sess.currentID(),
				Limit:     lim,
			})
		})
	return perDeck, err
}
