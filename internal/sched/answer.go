package sched

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/conorfennell/knolsched/internal/domain"
)

// LeechTag is added to the note of a card that became a leech.
const LeechTag = "leech"

// Outcome describes the effects of an answer beyond the card itself.
type Outcome struct {
	// Leech is set when the answer made the card a leech.
	Leech bool
	// Log is the review-log entry written for the answer.
	Log domain.ReviewLogEntry
}

// answer carries the state of one Answer call.
type answer struct {
	s      *Scheduler
	tx     Store
	card   *domain.Card
	rating domain.Rating
	now    int64
	taken  time.Duration
	leech  bool
	log    *domain.ReviewLogEntry
}

// Answer applies rating to card, persists the card together with one
// review-log entry and updates card in place once everything is saved.
// The session's current card is discarded.
func (s *Scheduler) Answer(ctx context.Context, sess *SessionState, card *domain.Card, rating domain.Rating) (Outcome, error) {
	if !rating.IsValid() {
		return Outcome{}, fmt.Errorf("%w: %d", ErrInvalidRating, int(rating))
	}
	if err := s.prepare(ctx); err != nil {
		return Outcome{}, err
	}
	var taken time.Duration
	if sess.currentID() == card.ID {
		taken = sess.elapsed(s.clock.Now(), s.confForCard(card).MaxTaken)
	}
	sess.Discard()

	c := *card
	a := &answer{s: s, card: &c, rating: rating, now: s.clock.NowUnix(), taken: taken}
	buried := 0
	err := s.store.WithTx(ctx, func(tx Store) error {
		a.tx = tx
		var err error
		if buried, err = s.burySiblings(ctx, tx, &c); err != nil {
			return err
		}
		if err := a.apply(ctx); err != nil {
			return err
		}
		s.updateStats(&c, statTime, int(taken.Milliseconds()))
		c.Mod = a.now
		c.Usn = -1
		if err := tx.SaveCard(ctx, &c); err != nil {
			return fmt.Errorf("failed to save card %d: %w", c.ID, err)
		}
		if err := s.appendLog(ctx, tx, a.log); err != nil {
			return err
		}
		return s.saveDirtyDecks(ctx, tx)
	})
	if err != nil {
		s.DeferReset()
		return Outcome{}, err
	}
	if buried > 0 {
		s.haveCounts = false
	}
	*card = c
	if a.leech {
		s.leeched[c.ID] = true
	}
	return Outcome{Leech: a.leech, Log: *a.log}, nil
}

// IsLeechNotification reports, once, whether the last answer to card made
// it a leech.
func (s *Scheduler) IsLeechNotification(card *domain.Card) bool {
	if s.leeched[card.ID] {
		delete(s.leeched, card.ID)
		return true
	}
	return false
}

// IsLeech reports whether a card with the given lapse count becomes a leech
// on its latest lapse. It fires at the threshold and then every half
// threshold.
func IsLeech(lapses, threshold int) bool {
	if threshold <= 0 || lapses < threshold {
		return false
	}
	return (lapses-threshold)%max(threshold/2, 1) == 0
}

// AnswerButtons returns how many ratings the card accepts: 2 while
// previewing, 4 otherwise.
func (s *Scheduler) AnswerButtons(card *domain.Card) int {
	if s.decks != nil && s.previewing(card) {
		return 2
	}
	return 4
}

func (a *answer) apply(ctx context.Context) error {
	s, c := a.s, a.card
	if s.previewing(c) {
		return a.answerPreview()
	}
	c.Reps++
	if c.Queue == domain.QueueNew {
		c.Queue = domain.QueueLearning
		c.Type = domain.TypeLearning
		c.Left = s.startingLeft(c)
		s.updateStats(c, statNew, 1)
	}
	switch c.Queue {
	case domain.QueueLearning, domain.QueueDayLearning:
		if err := a.answerLrn(); err != nil {
			return err
		}
	case domain.QueueReview:
		if err := a.answerRev(ctx); err != nil {
			return err
		}
		s.updateStats(c, statRev, 1)
	default:
		return fmt.Errorf("%w: card %d is in queue %s", ErrInvalidQueue, c.ID, c.Queue)
	}
	// the snapshot only matters until the first answer
	if c.OriginalDue > 0 {
		c.OriginalDue = 0
	}
	return nil
}

func (a *answer) logEntry(ivl, lastIvl int, kind domain.ReviewKind) {
	a.log = &domain.ReviewLogEntry{
		CardID:       a.card.ID,
		Usn:          -1,
		Ease:         a.rating,
		Interval:     ivl,
		LastInterval: lastIvl,
		Factor:       a.card.Factor,
		TimeTaken:    int(a.taken.Milliseconds()),
		Kind:         kind,
	}
}

// answerPreview handles cards of filtered decks that do not reschedule.
// Failing shows the card again after the preview delay; passing puts it
// back exactly as it was before the deck was built.
func (a *answer) answerPreview() error {
	s, c := a.s, a.card
	ivl := c.Interval
	switch a.rating {
	case domain.Again:
		delay := s.previewDelay(c)
		c.Queue = domain.QueuePreview
		c.Due = a.now + delay
		s.counts.Learn++
		if s.lrnQueue.IsFilled() && c.Due < a.now+int64(s.opts.LearnAheadSecs) {
			s.lrnQueue.Insert(domain.CardRef{ID: c.ID, NoteID: c.NoteID, DeckID: c.DeckID, Due: c.Due, Queue: c.Queue})
		}
		ivl = -int(delay)
	default:
		restorePreviewCard(c)
		removeFromFiltered(c)
	}
	a.logEntry(ivl, c.Interval, domain.ReviewKindFiltered)
	return nil
}

func restorePreviewCard(c *domain.Card) {
	c.Queue = c.RestoredQueue()
	c.Due = c.OriginalDue
}

func removeFromFiltered(c *domain.Card) {
	if c.InFilteredDeck() {
		c.DeckID = c.OriginalDeckID
		c.OriginalDue = 0
		c.OriginalDeckID = 0
	}
}

// appendLog writes entry with a unique millisecond id, bumping the id past
// the last one issued on collision.
func (s *Scheduler) appendLog(ctx context.Context, store ReviewLogStore, entry *domain.ReviewLogEntry) error {
	for attempt := 1; attempt <= s.cfg.LogRetries; attempt++ {
		entry.ID = max(s.clock.NowMillis(), s.lastLogID+1)
		s.lastLogID = entry.ID
		err := store.AppendReviewLog(ctx, *entry)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrDuplicateReviewLog) {
			return fmt.Errorf("failed to write review log: %w", err)
		}
		s.log.Debug("review log id taken", "id", entry.ID, "attempt", attempt)
	}
	return fmt.Errorf("%w: card %d after %d attempts", ErrReviewLogConflict, entry.CardID, s.cfg.LogRetries)
}

type stat int

const (
	statNew stat = iota
	statRev
	statLrn
	statTime
)

// updateStats adds n to a today-counter of the card's deck and its parents.
func (s *Scheduler) updateStats(c *domain.Card, kind stat, n int) {
	ids := s.decks.ancestorIDs(c.DeckID)
	for _, did := range ids {
		d := s.decks.deck(did)
		if d == nil {
			continue
		}
		var counter *domain.DayCounter
		switch kind {
		case statNew:
			counter = &d.NewToday
		case statRev:
			counter = &d.RevToday
		case statLrn:
			counter = &d.LrnToday
		default:
			counter = &d.TimeToday
		}
		if counter.Day != s.today {
			*counter = domain.DayCounter{Day: s.today}
		}
		counter.Count += n
		s.decks.markDirty(did)
	}
}

// burySiblings takes the card's siblings out of the queues and buries
// them until tomorrow when the deck options ask for it.
func (s *Scheduler) burySiblings(ctx context.Context, tx Store, c *domain.Card) (int, error) {
	conf := s.confForCard(c)
	refs, err := tx.QueryCards(ctx, domain.CardQuery{
		NoteID:    c.NoteID,
		ExcludeID: c.ID,
		Queues:    []domain.Queue{domain.QueueNew, domain.QueueReview},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to find siblings of card %d: %w", c.ID, err)
	}
	var toBury []int64
	for _, r := range refs {
		switch r.Queue {
		case domain.QueueReview:
			if r.Due > int64(s.today) {
				continue
			}
			if conf.Rev.Bury {
				toBury = append(toBury, r.ID)
			}
			s.revQueue.Remove(r.ID)
		case domain.QueueNew:
			if conf.New.Bury {
				toBury = append(toBury, r.ID)
			}
			s.newQueue.Remove(r.ID)
		}
	}
	if len(toBury) == 0 {
		return 0, nil
	}
	err = tx.UpdateCards(ctx, toBury, func(sib *domain.Card) {
		sib.Queue = domain.QueueSiblingBuried
		sib.Mod = s.clock.NowUnix()
		sib.Usn = -1
	})
	if err != nil {
		return 0, fmt.Errorf("failed to bury siblings of card %d: %w", c.ID, err)
	}
	return len(toBury), nil
}

// confForCard returns the configuration of the card's home deck.
func (s *Scheduler) confForCard(c *domain.Card) *domain.DeckConfig {
	return s.decks.conf(c.HomeDeckID())
}

// previewing reports whether c sits in a filtered deck that does not
// reschedule.
func (s *Scheduler) previewing(c *domain.Card) bool {
	d := s.decks.deck(c.DeckID)
	return d != nil && d.IsFiltered() && !d.Filter.Resched
}

// previewDelay returns the preview delay of the card's filtered deck in
// seconds; default 10 minutes.
func (s *Scheduler) previewDelay(c *domain.Card) int64 {
	if d := s.decks.deck(c.DeckID); d != nil && d.IsFiltered() && d.Filter.PreviewDelay > 0 {
		return int64(d.Filter.PreviewDelay) * 60
	}
	return 600
}
