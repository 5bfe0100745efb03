package sched

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/conorfennell/knolsched/internal/domain"
)

// daySeeded returns a random source that repeats for the whole day.
func (s *Scheduler) daySeeded() *rand.Rand {
	return rand.New(rand.NewSource(int64(s.today)))
}

func (s *Scheduler) resetNewQueue() {
	s.newDids = append([]int64(nil), s.activeDecks()...)
	s.newQueue.Clear()
	s.updateNewCardModulus()
}

func (s *Scheduler) resetRevQueue() {
	s.revDids = append([]int64(nil), s.activeDecks()...)
	s.revQueue.Clear()
}

func (s *Scheduler) resetLrnQueue() {
	s.lrnQueue.Clear()
}

func (s *Scheduler) resetLrnDayQueue() {
	s.lrnDids = append([]int64(nil), s.activeDecks()...)
	s.lrnDayQueue.Clear()
}

// siblingExclusion fills the id/note exclusions of q for the current card.
func siblingExclusion(q *domain.CardQuery, sess *SessionState, allowSibling bool) {
	if allowSibling {
		q.ExcludeID = sess.currentID()
	} else {
		q.ExcludeNoteID = sess.currentNoteID()
	}
}

// fillNew loads the next batch of new cards, trying one deck at a time.
// Siblings of the current card are skipped unless nothing else is left.
func (s *Scheduler) fillNew(ctx context.Context, sess *SessionState, allowSibling bool) (bool, error) {
	if !s.newQueue.IsEmpty() {
		return true, nil
	}
	if s.haveCounts && s.counts.New == 0 {
		return false, nil
	}
	for len(s.newDids) > 0 {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		did := s.newDids[0]
		lim := min(s.cfg.QueueLimit, s.remainingNew(did, sess, true))
		if lim > 0 {
			q := domain.CardQuery{
				DeckIDs: []int64{did},
				Queues:  []domain.Queue{domain.QueueNew},
				Order:   domain.OrderByDueOrd,
				Limit:   lim,
			}
			siblingExclusion(&q, sess, allowSibling)
			refs, err := s.store.QueryCards(ctx, q)
			if err != nil {
				return false, fmt.Errorf("failed to fill new queue: %w", err)
			}
			for _, r := range refs {
				s.newQueue.Add(r)
			}
			if !s.newQueue.IsEmpty() {
				s.log.Debug("filled new queue", "deck", did, "cards", s.newQueue.Len())
				return true, nil
			}
		}
		s.newDids = s.newDids[1:]
	}
	if s.haveCounts && s.counts.New != 0 {
		if !allowSibling {
			s.resetNewQueue()
			return s.fillNew(ctx, sess, true)
		}
		// The count includes cards buried or answered since it was taken.
		s.haveCounts = false
	}
	return false, nil
}

// fillRev loads the next batch of reviews due today across the active
// decks. Cards due on the same day are shuffled with a per-day seed;
// filtered decks keep their gathered order.
func (s *Scheduler) fillRev(ctx context.Context, sess *SessionState, allowSibling bool) (bool, error) {
	if !s.revQueue.IsEmpty() {
		return true, nil
	}
	if s.haveCounts && s.counts.Review == 0 {
		return false, nil
	}
	if s.rules.WalkReviewCounts {
		return s.fillRevByDeck(ctx, sess, allowSibling)
	}
	lim := min(s.cfg.QueueLimit, s.currentRevLimit(sess))
	if lim > 0 {
		q := domain.CardQuery{
			DeckIDs:   s.activeDecks(),
			Queues:    []domain.Queue{domain.QueueReview},
			DueFilter: domain.DueAtMost,
			Due:       int64(s.today),
			Order:     domain.OrderByDue,
			Limit:     lim,
		}
		siblingExclusion(&q, sess, allowSibling)
		refs, err := s.store.QueryCards(ctx, q)
		if err != nil {
			return false, fmt.Errorf("failed to fill review queue: %w", err)
		}
		s.shuffleSameDay(refs)
		for _, r := range refs {
			s.revQueue.Add(r)
		}
		if !s.revQueue.IsEmpty() {
			s.log.Debug("filled review queue", "cards", s.revQueue.Len())
			return true, nil
		}
	}
	if s.haveCounts && s.counts.Review != 0 {
		if !allowSibling {
			s.resetRevQueue()
			return s.fillRev(ctx, sess, true)
		}
		s.haveCounts = false
	}
	return false, nil
}

// fillRevByDeck fills the review queue one deck at a time, each deck
// limited by its own budget and those of its parents.
func (s *Scheduler) fillRevByDeck(ctx context.Context, sess *SessionState, allowSibling bool) (bool, error) {
	for len(s.revDids) > 0 {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		did := s.revDids[0]
		lim := min(s.cfg.QueueLimit, s.remainingReview(did, sess, true))
		if lim > 0 {
			q := domain.CardQuery{
				DeckIDs:   []int64{did},
				Queues:    []domain.Queue{domain.QueueReview},
				DueFilter: domain.DueAtMost,
				Due:       int64(s.today),
				Order:     domain.OrderByDue,
				Limit:     lim,
			}
			siblingExclusion(&q, sess, allowSibling)
			refs, err := s.store.QueryCards(ctx, q)
			if err != nil {
				return false, fmt.Errorf("failed to fill review queue: %w", err)
			}
			for _, r := range refs {
				s.revQueue.Add(r)
			}
			if !s.revQueue.IsEmpty() {
				if d := s.decks.deck(did); d != nil && !d.IsFiltered() {
					s.revQueue.Shuffle(s.daySeeded())
				}
				// a short batch means the deck is exhausted
				if len(refs) < lim {
					s.revDids = s.revDids[1:]
				}
				s.log.Debug("filled review queue", "deck", did, "cards", s.revQueue.Len())
				return true, nil
			}
		}
		s.revDids = s.revDids[1:]
	}
	if s.haveCounts && s.counts.Review != 0 {
		if !allowSibling {
			s.resetRevQueue()
			return s.fillRevByDeck(ctx, sess, true)
		}
		s.haveCounts = false
	}
	return false, nil
}

// shuffleSameDay permutes runs of cards sharing a due day, leaving cards
// of filtered decks in place.
func (s *Scheduler) shuffleSameDay(refs []domain.CardRef) {
	r := s.daySeeded()
	for start := 0; start < len(refs); {
		end := start + 1
		for end < len(refs) && refs[end].Due == refs[start].Due {
			end++
		}
		var idx []int
		for i := start; i < end; i++ {
			if d := s.decks.deck(refs[i].DeckID); d == nil || !d.IsFiltered() {
				idx = append(idx, i)
			}
		}
		r.Shuffle(len(idx), func(i, j int) {
			refs[idx[i]], refs[idx[j]] = refs[idx[j]], refs[idx[i]]
		})
		start = end
	}
}

// updateLrnCutoff moves the learning window forward and reports whether
// it moved. It only moves when forced or after at least a minute.
func (s *Scheduler) updateLrnCutoff(force bool) bool {
	next := s.clock.NowUnix() + int64(s.opts.LearnAheadSecs)
	if next-s.lrnCutoff > 60 || force {
		s.lrnCutoff = next
		return true
	}
	return false
}

// maybeResetLrn recounts and reloads learning cards when the learning
// window has moved.
func (s *Scheduler) maybeResetLrn(ctx context.Context, sess *SessionState, force bool) error {
	if !s.updateLrnCutoff(force) {
		return nil
	}
	n, err := s.countLrn(ctx, sess)
	if err != nil {
		return err
	}
	s.counts.Learn = n
	s.resetLrnQueue()
	return nil
}

// fillLrn loads intraday learning and preview cards inside the learn-ahead
// window, sorted by due time.
func (s *Scheduler) fillLrn(ctx context.Context, sess *SessionState) (bool, error) {
	if s.haveCounts && s.counts.Learn == 0 {
		return false, nil
	}
	if !s.lrnQueue.IsEmpty() {
		return true, nil
	}
	cutoff := s.clock.NowUnix() + int64(s.opts.LearnAheadSecs)
	refs, err := s.store.QueryCards(ctx, domain.CardQuery{
		DeckIDs:   s.activeDecks(),
		Queues:    []domain.Queue{domain.QueueLearning, domain.QueuePreview},
		DueFilter: domain.DueBefore,
		Due:       cutoff,
		ExcludeID: sess.currentID(),
		Order:     domain.OrderByDue,
		Limit:     s.cfg.ReportLimit,
	})
	if err != nil {
		return false, fmt.Errorf("failed to fill learning queue: %w", err)
	}
	s.lrnQueue.Load(refs)
	return !s.lrnQueue.IsEmpty(), nil
}

// fillLrnDay loads day-learning cards due today one deck at a time,
// shuffled with a per-day seed.
func (s *Scheduler) fillLrnDay(ctx context.Context, sess *SessionState) (bool, error) {
	if s.haveCounts && s.counts.Learn == 0 {
		return false, nil
	}
	if !s.lrnDayQueue.IsEmpty() {
		return true, nil
	}
	for len(s.lrnDids) > 0 {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		did := s.lrnDids[0]
		refs, err := s.store.QueryCards(ctx, domain.CardQuery{
			DeckIDs:   []int64{did},
			Queues:    []domain.Queue{domain.QueueDayLearning},
			DueFilter: domain.DueAtMost,
			Due:       int64(s.today),
			ExcludeID: sess.currentID(),
			Limit:     s.cfg.QueueLimit,
		})
		if err != nil {
			return false, fmt.Errorf("failed to fill day learning queue: %w", err)
		}
		for _, r := range refs {
			s.lrnDayQueue.Add(r)
		}
		if !s.lrnDayQueue.IsEmpty() {
			s.lrnDayQueue.Shuffle(s.daySeeded())
			// a short batch means the deck is exhausted
			if len(refs) < s.cfg.QueueLimit {
				s.lrnDids = s.lrnDids[1:]
			}
			return true, nil
		}
		s.lrnDids = s.lrnDids[1:]
	}
	return false, nil
}
