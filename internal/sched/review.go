package sched

import (
	"context"
	"fmt"

	"github.com/conorfennell/knolsched/internal/domain"
)

const minFactor = 1300

// factorAdditions nudge the ease of a review card per passing rating.
var factorAdditions = map[domain.Rating]int{
	domain.Hard: -150,
	domain.Good: 0,
	domain.Easy: 150,
}

// answerRev reschedules a review card. Reviews taken in a filtered deck
// before the card was due are early reviews.
func (a *answer) answerRev(ctx context.Context) error {
	s, c := a.s, a.card
	early := c.InFilteredDeck() && c.OriginalDue > int64(s.today)
	kind := domain.ReviewKindReview
	if early {
		kind = domain.ReviewKindFiltered
	}
	lastIvl := c.Interval
	var delay int64
	if a.rating == domain.Again {
		var err error
		if delay, err = a.rescheduleLapse(ctx); err != nil {
			return err
		}
	} else {
		s.rescheduleRev(c, a.rating, early)
	}
	ivl := c.Interval
	if delay != 0 {
		ivl = -int(delay)
	}
	a.logEntry(ivl, lastIvl, kind)
	return nil
}

// rescheduleLapse handles a forgotten review card and returns the
// relearning delay in seconds, or 0 when it went straight back to review.
func (a *answer) rescheduleLapse(ctx context.Context) (int64, error) {
	s, c := a.s, a.card
	conf := s.confForCard(c).Lapse
	c.Lapses++
	c.Factor = max(minFactor, c.Factor-200)

	leech, err := a.checkLeech(ctx, conf)
	if err != nil {
		return 0, err
	}
	suspended := leech && c.Queue == domain.QueueSuspended

	if len(conf.Delays) > 0 && !suspended {
		if s.rules.RelearningType {
			c.Type = domain.TypeRelearning
		} else {
			s.updateRevIvlOnFail(c)
		}
		return s.moveToFirstStep(c, conf.Delays), nil
	}
	s.updateRevIvlOnFail(c)
	s.rescheduleAsRev(c, false)
	if suspended {
		c.Queue = domain.QueueSuspended
	}
	return 0, nil
}

// checkLeech tags the note and applies the leech action when the card's
// lapse count crosses the leech threshold.
func (a *answer) checkLeech(ctx context.Context, conf domain.LapseConfig) (bool, error) {
	c := a.card
	if !IsLeech(c.Lapses, conf.LeechFails) {
		return false, nil
	}
	if err := a.tx.AddNoteTag(ctx, c.NoteID, LeechTag); err != nil {
		return false, fmt.Errorf("failed to tag leech %d: %w", c.ID, err)
	}
	if conf.LeechAction == domain.LeechSuspend {
		if c.OriginalDue != 0 {
			c.Due = c.OriginalDue
		}
		if c.OriginalDeckID != 0 {
			c.DeckID = c.OriginalDeckID
		}
		c.OriginalDue = 0
		c.OriginalDeckID = 0
		c.Queue = domain.QueueSuspended
	}
	a.leech = true
	a.s.log.Info("card became a leech", "card", c.ID, "lapses", c.Lapses, "action", conf.LeechAction)
	return true, nil
}

func (s *Scheduler) updateRevIvlOnFail(c *domain.Card) {
	c.Interval = lapseIvl(c.Interval, s.confForCard(c).Lapse)
}

// lapseIvl shrinks an interval after a lapse, keeping at least the
// configured minimum.
func lapseIvl(ivl int, conf domain.LapseConfig) int {
	return max(1, conf.MinInt, int(float64(ivl)*conf.Mult))
}

func (s *Scheduler) rescheduleRev(c *domain.Card, rating domain.Rating, early bool) {
	if early {
		c.Interval = s.earlyReviewIvl(c, rating)
	} else {
		c.Interval = s.nextRevIvl(c, rating, true)
	}
	c.Factor = max(minFactor, c.Factor+factorAdditions[rating])
	c.Due = int64(s.today + c.Interval)
	removeFromFiltered(c)
}

// daysLate returns how many days past its due day a review card is.
func (s *Scheduler) daysLate(c *domain.Card) int {
	due := c.Due
	if c.InFilteredDeck() {
		due = c.OriginalDue
	}
	return max(0, s.today-int(due))
}

// nextRevIvl computes the interval for a passing rating. Each rating's
// interval is at least one day longer than the previous rating's.
func (s *Scheduler) nextRevIvl(c *domain.Card, rating domain.Rating, fuzz bool) int {
	conf := s.confForCard(c).Rev
	late := s.daysLate(c)
	fct := float64(c.Factor) / 1000

	var hard int
	if s.rules.HardIncludesLateness {
		hard = s.constrainedIvl(float64(c.Interval+late/4)*1.2, conf, c.Interval, fuzz)
	} else {
		hardMin := 0
		if conf.HardFactor > 1 {
			hardMin = c.Interval
		}
		hard = s.constrainedIvl(float64(c.Interval)*conf.HardFactor, conf, hardMin, fuzz)
	}
	if rating == domain.Hard {
		return hard
	}
	good := s.constrainedIvl(float64(c.Interval+late/2)*fct, conf, hard, fuzz)
	if rating == domain.Good {
		return good
	}
	return s.constrainedIvl(float64(c.Interval+late)*fct*conf.Ease4, conf, good, fuzz)
}

// constrainedIvl scales ivl by the interval factor, optionally fuzzes it,
// keeps it above prev and caps it at the maximum interval.
func (s *Scheduler) constrainedIvl(ivl float64, conf domain.ReviewConfig, prev int, fuzz bool) int {
	n := int(ivl * conf.IvlFct)
	if fuzz && !conf.NoFuzz {
		n = s.fuzzedIvl(n)
	}
	n = max(n, prev+1, 1)
	return min(n, conf.MaxIvl)
}

// earlyReviewIvl computes the interval of a card reviewed in a filtered
// deck before it was due, based on the time actually elapsed.
func (s *Scheduler) earlyReviewIvl(c *domain.Card, rating domain.Rating) int {
	conf := s.confForCard(c).Rev
	elapsed := float64(c.Interval - int(c.OriginalDue-int64(s.today)))
	factor := 1.0
	minNewIvl := 1.0
	easyBonus := 1.0
	switch rating {
	case domain.Hard:
		factor = conf.HardFactor
		minNewIvl = factor / 2
	case domain.Good:
		factor = float64(c.Factor) / 1000
	default:
		factor = float64(c.Factor) / 1000
		easyBonus = conf.Ease4 - (conf.Ease4-1)/2
	}
	ivl := max(elapsed*factor, 1)
	ivl = max(float64(c.Interval)*minNewIvl, ivl) * easyBonus
	return s.constrainedIvl(ivl, conf, 0, false)
}

// NextInterval returns the number of seconds until card would be due
// again if answered with rating, without fuzz.
func (s *Scheduler) NextInterval(ctx context.Context, card *domain.Card, rating domain.Rating) (int64, error) {
	if err := s.prepare(ctx); err != nil {
		return 0, err
	}
	c := *card
	if s.previewing(&c) {
		if rating == domain.Again {
			return s.previewDelay(&c), nil
		}
		return 0, nil
	}
	switch c.Queue {
	case domain.QueueNew, domain.QueueLearning, domain.QueueDayLearning:
		return s.nextLrnIvl(&c, rating), nil
	}
	if rating == domain.Again {
		conf := s.confForCard(&c).Lapse
		if len(conf.Delays) > 0 {
			return int64(conf.Delays[0] * 60), nil
		}
		return int64(lapseIvl(c.Interval, conf)) * secondsPerDay, nil
	}
	var ivl int
	if c.InFilteredDeck() && c.OriginalDue > int64(s.today) {
		ivl = s.earlyReviewIvl(&c, rating)
	} else {
		ivl = s.nextRevIvl(&c, rating, false)
	}
	return int64(ivl) * secondsPerDay, nil
}

func (s *Scheduler) nextLrnIvl(c *domain.Card, rating domain.Rating) int64 {
	if c.Queue == domain.QueueNew {
		c.Left = s.startingLeft(c)
	}
	delays := s.lrnDelays(c)
	switch rating {
	case domain.Again:
		return delayForGrade(delays, len(delays))
	case domain.Hard:
		return delayForRepeatingGrade(delays, c.Left)
	case domain.Easy:
		return int64(s.graduatingIvl(c, true, false)) * secondsPerDay
	}
	left := c.StepsLeft() - 1
	if left <= 0 {
		return int64(s.graduatingIvl(c, false, false)) * secondsPerDay
	}
	return delayForGrade(delays, left)
}
