package sched

import (
	"context"
	"fmt"
	"math"

	"github.com/conorfennell/knolsched/internal/domain"
)

const (
	etaHistoryDays    = 10
	etaDefaultTimeMS  = 20000
	etaMinRelearnRate = 0.05
)

// etaRates are the success rates and average answer times, in
// milliseconds, of the last days of reviews.
type etaRates struct {
	newRate, newTime     float64
	revRate, revTime     float64
	relrnRate, relrnTime float64
}

// ETA estimates the minutes needed to work through counts. Each failed
// answer is assumed to come back once as a relearning step, and those
// steps fail again at the relearning rate. The rates are read from the
// review log once and kept until the next reset.
func (s *Scheduler) ETA(ctx context.Context, counts Counts) (int, error) {
	if err := s.prepare(ctx); err != nil {
		return 0, err
	}
	if s.eta == nil {
		r, err := s.loadETARates(ctx)
		if err != nil {
			return 0, err
		}
		s.eta = r
	}
	return estimateMinutes(*s.eta, counts), nil
}

func (s *Scheduler) loadETARates(ctx context.Context) (*etaRates, error) {
	since := (s.dayCutoff - etaHistoryDays*secondsPerDay) * 1000
	stats, err := s.store.ReviewStats(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to read review stats: %w", err)
	}
	var rev, revTime, revN float64
	r := &etaRates{}
	for _, st := range stats {
		switch st.Kind {
		case domain.ReviewKindLearn:
			r.newRate, r.newTime = st.SuccessRate, st.AvgTimeMS
		case domain.ReviewKindRelearn:
			r.relrnRate, r.relrnTime = st.SuccessRate, st.AvgTimeMS
		case domain.ReviewKindReview, domain.ReviewKindFiltered:
			n := float64(st.Count)
			rev += st.SuccessRate * n
			revTime += st.AvgTimeMS * n
			revN += n
		}
	}
	if revN > 0 {
		r.revRate, r.revTime = rev/revN, revTime/revN
	}
	for _, t := range []*float64{&r.newTime, &r.revTime, &r.relrnTime} {
		if *t == 0 {
			*t = etaDefaultTimeMS
		}
	}
	for _, rate := range []*float64{&r.newRate, &r.revRate, &r.relrnRate} {
		if *rate == 0 {
			*rate = 1
		}
	}
	return r, nil
}

func estimateMinutes(r etaRates, c Counts) int {
	total := r.newTime*float64(c.New) + r.relrnTime*float64(c.Learn) + r.revTime*float64(c.Review)

	toRelrn := c.New
	toRelrn += int(math.Ceil((1 - r.relrnRate) * float64(c.Learn)))
	toRelrn += int(math.Ceil((1 - r.revRate) * float64(c.Review)))

	rate := max(r.relrnRate, etaMinRelearnRate)
	future := 0
	for {
		failures := int((1 - rate) * float64(toRelrn))
		future += failures
		toRelrn = failures
		if toRelrn <= 1 {
			break
		}
	}
	total += r.relrnTime * float64(future)
	return int(math.Round(total / 60000))
}
