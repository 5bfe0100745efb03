package sched

import "github.com/conorfennell/knolsched/internal/domain"

// answerLrn moves a (re)learning card through its steps or graduates it.
func (a *answer) answerLrn() error {
	s, c := a.s, a.card
	delays := s.lrnDelays(c)
	kind := domain.ReviewKindLearn
	if c.Type == domain.TypeReview || c.Type == domain.TypeRelearning {
		kind = domain.ReviewKindRelearn
	}
	lastLeft := c.Left
	leaving := false
	switch a.rating {
	case domain.Easy:
		s.rescheduleAsRev(c, true)
		leaving = true
	case domain.Good:
		if c.StepsLeft()-1 <= 0 {
			s.rescheduleAsRev(c, false)
			leaving = true
		} else {
			s.moveToNextStep(c, delays)
		}
	case domain.Hard:
		s.repeatStep(c, delays)
	default:
		s.moveToFirstStep(c, delays)
	}
	ivl := c.Interval
	switch {
	case leaving:
	case a.rating == domain.Hard:
		ivl = -int(delayForRepeatingGrade(delays, c.Left))
	default:
		ivl = -int(delayForGrade(delays, c.Left))
	}
	a.logEntry(ivl, -int(delayForGrade(delays, lastLeft)), kind)
	return nil
}

// lrnDelays returns the step list in minutes a card learns with.
func (s *Scheduler) lrnDelays(c *domain.Card) []float64 {
	conf := s.confForCard(c)
	if c.Type == domain.TypeReview || c.Type == domain.TypeRelearning {
		return conf.Lapse.Delays
	}
	return conf.New.Delays
}

// startingLeft packs the step count and the steps that fit before the day
// cutoff into the left field.
func (s *Scheduler) startingLeft(c *domain.Card) int {
	delays := s.lrnDelays(c)
	tot := len(delays)
	return tot + s.leftToday(delays, tot)*1000
}

// leftToday returns how many of the last left steps can be completed
// before the day cutoff, at least 1.
func (s *Scheduler) leftToday(delays []float64, left int) int {
	now := s.clock.NowUnix()
	offset := min(left, len(delays))
	ok := 0
	for i := 0; i < offset; i++ {
		now += int64(delays[len(delays)-offset+i] * 60)
		if now > s.dayCutoff {
			break
		}
		ok = i
	}
	return ok + 1
}

// delayForGrade returns the delay in seconds of the step selected by left.
// An empty step list counts as a single one-minute step.
func delayForGrade(delays []float64, left int) int64 {
	left = left % 1000
	if len(delays) == 0 {
		return 60
	}
	i := len(delays) - left
	if i < 0 || i >= len(delays) {
		i = 0
	}
	return int64(delays[i] * 60)
}

// delayForRepeatingGrade is the delay for hard: halfway between the
// current step and the next one, or 1.5x the step when there is only one.
func delayForRepeatingGrade(delays []float64, left int) int64 {
	delay1 := delayForGrade(delays, left)
	var delay2 int64
	if len(delays) > 1 {
		delay2 = delayForGrade(delays, left-1)
	} else {
		delay2 = delay1 * 2
	}
	return (delay1 + max(delay1, delay2)) / 2
}

func (s *Scheduler) moveToFirstStep(c *domain.Card, delays []float64) int64 {
	c.Left = s.startingLeft(c)
	if c.Type == domain.TypeRelearning {
		s.updateRevIvlOnFail(c)
	}
	return s.rescheduleLrnCard(c, delayForGrade(delays, c.Left))
}

func (s *Scheduler) moveToNextStep(c *domain.Card, delays []float64) {
	left := c.StepsLeft() - 1
	c.Left = left + s.leftToday(delays, left)*1000
	s.rescheduleLrnCard(c, delayForGrade(delays, c.Left))
}

func (s *Scheduler) repeatStep(c *domain.Card, delays []float64) {
	s.rescheduleLrnCard(c, delayForRepeatingGrade(delays, c.Left))
}

// rescheduleLrnCard sets the due time of a learning card delay seconds
// from now. Cards that would be due after the day cutoff move to the
// day-learning queue instead.
func (s *Scheduler) rescheduleLrnCard(c *domain.Card, delay int64) int64 {
	now := s.clock.NowUnix()
	c.Due = now + delay
	if c.Due < s.dayCutoff {
		maxExtra := min(300, int(float64(delay)*0.25))
		fuzz := s.rng.Intn(max(maxExtra, 1))
		c.Due = min(s.dayCutoff-1, c.Due+int64(fuzz))
		c.Queue = domain.QueueLearning
		if c.Due < now+int64(s.opts.LearnAheadSecs) {
			s.counts.Learn++
			// don't show the same card straight away when nothing else is left
			if !s.lrnQueue.IsEmpty() && s.counts.Review == 0 && s.counts.New == 0 {
				c.Due = max(c.Due, s.lrnQueue.FirstDue()+1)
			}
			if s.lrnQueue.IsFilled() {
				s.lrnQueue.Insert(domain.CardRef{ID: c.ID, NoteID: c.NoteID, DeckID: c.DeckID, Due: c.Due, Queue: c.Queue})
			}
		}
	} else {
		ahead := (c.Due-s.dayCutoff)/secondsPerDay + 1
		c.Due = int64(s.today) + ahead
		c.Queue = domain.QueueDayLearning
	}
	return delay
}

// rescheduleAsRev graduates a learning card. Lapsed cards keep their
// interval, plus a day when answered easy.
func (s *Scheduler) rescheduleAsRev(c *domain.Card, early bool) {
	if c.Type == domain.TypeReview || c.Type == domain.TypeRelearning {
		if early {
			c.Interval++
		}
		c.Due = int64(s.today + c.Interval)
	} else {
		conf := s.confForCard(c)
		c.Interval = s.graduatingIvl(c, early, true)
		c.Due = int64(s.today + c.Interval)
		c.Factor = conf.New.InitialFactor
	}
	c.Type = domain.TypeReview
	c.Queue = domain.QueueReview
	removeFromFiltered(c)
}

// graduatingIvl returns the first review interval of a learning card.
func (s *Scheduler) graduatingIvl(c *domain.Card, early, fuzz bool) int {
	if c.Type == domain.TypeReview || c.Type == domain.TypeRelearning {
		if early {
			return c.Interval + 1
		}
		return c.Interval
	}
	conf := s.confForCard(c)
	ideal := conf.New.Ints[0]
	if early {
		ideal = conf.New.Ints[1]
	}
	if fuzz && !conf.Rev.NoFuzz {
		ideal = s.fuzzedIvl(ideal)
	}
	return ideal
}
