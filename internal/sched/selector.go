package sched

import (
	"context"
	"fmt"

	"github.com/conorfennell/knolsched/internal/domain"
)

// NextCard returns the card to show next, or nil when the session is
// finished. The card becomes the current card of sess; a nil sess tracks
// no current card.
func (s *Scheduler) NextCard(ctx context.Context, sess *SessionState) (*domain.Card, error) {
	if err := s.prepare(ctx); err != nil {
		return nil, err
	}
	if !s.haveCounts {
		if err := s.resetCounts(ctx, sess); err != nil {
			return nil, err
		}
	}
	if !s.haveQueues {
		s.resetQueues()
	}
	card, err := s.getCard(ctx, sess)
	if err != nil {
		return nil, err
	}
	if card == nil && !s.haveCounts {
		// a relaxed refill found the counts stale
		if err := s.resetCounts(ctx, sess); err != nil {
			return nil, err
		}
		s.resetQueues()
		if card, err = s.getCard(ctx, sess); err != nil {
			return nil, err
		}
	}
	if card == nil {
		sess.Discard()
		return nil, nil
	}
	s.reps++
	s.decrementCount(card)
	s.setCurrent(sess, card)
	return card, nil
}

func (s *Scheduler) decrementCount(card *domain.Card) {
	k := CountIdx(card)
	if s.counts.Get(k) > 0 {
		s.counts.Change(k, -1)
	}
}

// setCurrent records card in the session and takes it and its siblings
// out of the new and review queues.
func (s *Scheduler) setCurrent(sess *SessionState, card *domain.Card) {
	s.dropFromQueues(card.ID)
	s.dropNoteFromQueues(card.NoteID)
	if sess == nil {
		return
	}
	sess.Current = &CurrentCard{
		ID:     card.ID,
		NoteID: card.NoteID,
		DeckID: card.DeckID,
		Queue:  card.Queue,
	}
	sess.CurrentAncestors = s.decks.ancestorIDs(card.DeckID)
	sess.ShownAt = s.clock.Now()
}

func (s *Scheduler) dropFromQueues(ids ...int64) {
	for _, id := range ids {
		s.newQueue.Remove(id)
		s.revQueue.Remove(id)
		s.lrnDayQueue.Remove(id)
		s.lrnQueue.Remove(id)
	}
}

func (s *Scheduler) dropNoteFromQueues(nid int64) {
	s.newQueue.RemoveNote(nid)
	s.revQueue.RemoveNote(nid)
}

// getCard tries each source in priority order.
func (s *Scheduler) getCard(ctx context.Context, sess *SessionState) (*domain.Card, error) {
	steps := []func() (*domain.Card, error){
		func() (*domain.Card, error) { return s.getLrnCard(ctx, sess, false) },
		func() (*domain.Card, error) {
			if s.timeForNewCard() {
				return s.getNewCard(ctx, sess)
			}
			return nil, nil
		},
		func() (*domain.Card, error) {
			if s.dayLearnFirst() {
				return s.getLrnDayCard(ctx, sess)
			}
			return nil, nil
		},
		func() (*domain.Card, error) { return s.getRevCard(ctx, sess) },
		func() (*domain.Card, error) {
			if !s.dayLearnFirst() {
				return s.getLrnDayCard(ctx, sess)
			}
			return nil, nil
		},
		func() (*domain.Card, error) { return s.getNewCard(ctx, sess) },
		func() (*domain.Card, error) { return s.getLrnCard(ctx, sess, true) },
	}
	for _, step := range steps {
		card, err := step()
		if err != nil || card != nil {
			return card, err
		}
	}
	return nil, nil
}

func (s *Scheduler) dayLearnFirst() bool {
	return s.rules.DayLearnFirst && s.opts.DayLearnFirst
}

// getLrnCard returns the first learning card due now, or due within the
// learn-ahead window when collapse is set.
func (s *Scheduler) getLrnCard(ctx context.Context, sess *SessionState, collapse bool) (*domain.Card, error) {
	if err := s.maybeResetLrn(ctx, sess, collapse && s.counts.Learn == 0); err != nil {
		return nil, err
	}
	ok, err := s.fillLrn(ctx, sess)
	if err != nil || !ok {
		return nil, err
	}
	cutoff := s.clock.NowUnix()
	if collapse {
		cutoff += int64(s.opts.LearnAheadSecs)
	}
	if s.lrnQueue.FirstDue() >= cutoff {
		return nil, nil
	}
	ref, _ := s.lrnQueue.Pop()
	return s.loadCard(ctx, ref.ID)
}

func (s *Scheduler) getLrnDayCard(ctx context.Context, sess *SessionState) (*domain.Card, error) {
	ok, err := s.fillLrnDay(ctx, sess)
	if err != nil || !ok {
		return nil, err
	}
	ref, _ := s.lrnDayQueue.Pop()
	return s.loadCard(ctx, ref.ID)
}

func (s *Scheduler) getNewCard(ctx context.Context, sess *SessionState) (*domain.Card, error) {
	ok, err := s.fillNew(ctx, sess, false)
	if err != nil || !ok {
		return nil, err
	}
	ref, _ := s.newQueue.Pop()
	return s.loadCard(ctx, ref.ID)
}

func (s *Scheduler) getRevCard(ctx context.Context, sess *SessionState) (*domain.Card, error) {
	ok, err := s.fillRev(ctx, sess, false)
	if err != nil || !ok {
		return nil, err
	}
	ref, _ := s.revQueue.Pop()
	return s.loadCard(ctx, ref.ID)
}

func (s *Scheduler) loadCard(ctx context.Context, id int64) (*domain.Card, error) {
	card, err := s.store.GetCard(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load card %d: %w", id, err)
	}
	return card, nil
}

// timeForNewCard reports whether a new card should be shown before
// reviews at this point of the session.
func (s *Scheduler) timeForNewCard() bool {
	if s.haveCounts && s.counts.New == 0 {
		return false
	}
	switch s.opts.NewSpread {
	case domain.NewCardsLast:
		return false
	case domain.NewCardsFirst:
		return true
	}
	return s.newCardModulus != 0 && s.reps != 0 && s.reps%s.newCardModulus == 0
}

// updateNewCardModulus spaces new cards evenly among reviews.
func (s *Scheduler) updateNewCardModulus() {
	s.newCardModulus = 0
	if s.opts.NewSpread != domain.NewCardsDistribute || s.counts.New == 0 {
		return
	}
	m := (s.counts.New + s.counts.Review) / s.counts.New
	if s.counts.Review != 0 {
		m = max(2, m)
	}
	s.newCardModulus = m
}
