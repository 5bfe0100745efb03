package sched

import (
	"context"
	"fmt"

	"github.com/conorfennell/knolsched/internal/domain"
)

// DueNode is one deck of the due tree. New and Learn include the deck's
// subdecks; Review is counted over the whole subtree against the deck's
// own review budget.
type DueNode struct {
	DeckID   int64      `json:"id"`
	Name     string     `json:"name"`
	Basename string     `json:"basename"`
	Filtered bool       `json:"filtered,omitempty"`
	New      int        `json:"new"`
	Learn    int        `json:"learn"`
	Review   int        `json:"review"`
	Children []*DueNode `json:"children,omitempty"`
}

// dueLimits is what a parent passes down while counting.
type dueLimits struct {
	newLim int
	revLim int
}

// DueTree returns every deck arranged as a tree. With includeCounts the
// nodes carry today's due counts, capped by each deck's daily limits;
// without it only the structure is returned.
func (s *Scheduler) DueTree(ctx context.Context, includeCounts bool) ([]*DueNode, error) {
	if err := s.prepare(ctx); err != nil {
		return nil, err
	}
	nodes := make(map[string]*DueNode, len(s.decks.sorted))
	var roots []*DueNode
	lims := make(map[string]dueLimits)
	for _, d := range s.decks.sorted {
		n := &DueNode{DeckID: d.ID, Name: d.Name, Basename: d.Basename(), Filtered: d.IsFiltered()}
		if includeCounts {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("due tree interrupted: %w", err)
			}
			lim, err := s.countDeck(ctx, d, n, lims)
			if err != nil {
				return nil, err
			}
			lims[d.Name] = lim
		}
		nodes[d.Name] = n
		if p := nodes[d.ParentName()]; p != nil {
			p.Children = append(p.Children, n)
		} else {
			roots = append(roots, n)
		}
	}
	if includeCounts {
		for _, n := range roots {
			s.sumChildren(n)
		}
	}
	return roots, nil
}

// countDeck fills in the counts of a single deck, without its subdecks
// except for reviews, and returns the limits its children inherit.
func (s *Scheduler) countDeck(ctx context.Context, d *domain.Deck, n *DueNode, lims map[string]dueLimits) (dueLimits, error) {
	lim := dueLimits{
		newLim: s.newLimitSingle(d, nil, false),
		revLim: s.revLimitSingle(d, nil, false),
	}
	if p, ok := lims[d.ParentName()]; ok {
		lim.newLim = min(lim.newLim, p.newLim)
		lim.revLim = min(lim.revLim, p.revLim)
	}
	var err error
	if lim.newLim > 0 {
		n.New, err = s.store.CountCards(ctx, domain.CardQuery{
			DeckIDs: []int64{d.ID},
			Queues:  []domain.Queue{domain.QueueNew},
			Limit:   lim.newLim,
		})
		if err != nil {
			return lim, fmt.Errorf("failed to count new cards of %s: %w", d.Name, err)
		}
	}
	lrnCutoff := s.clock.NowUnix() + int64(s.opts.LearnAheadSecs)
	for _, q := range []domain.CardQuery{
		{Queues: []domain.Queue{domain.QueueLearning}, DueFilter: domain.DueBefore, Due: lrnCutoff},
		{Queues: []domain.Queue{domain.QueueDayLearning}, DueFilter: domain.DueAtMost, Due: int64(s.today)},
		{Queues: []domain.Queue{domain.QueuePreview}},
	} {
		q.DeckIDs = []int64{d.ID}
		q.Limit = s.cfg.ReportLimit
		cnt, err := s.store.CountCards(ctx, q)
		if err != nil {
			return lim, fmt.Errorf("failed to count learning cards of %s: %w", d.Name, err)
		}
		n.Learn += cnt
	}
	if lim.revLim > 0 {
		n.Review, err = s.store.CountCards(ctx, domain.CardQuery{
			DeckIDs:   s.decks.subtreeIDs(d.ID),
			Queues:    []domain.Queue{domain.QueueReview},
			DueFilter: domain.DueAtMost,
			Due:       int64(s.today),
			Limit:     min(lim.revLim, s.cfg.ReportLimit),
		})
		if err != nil {
			return lim, fmt.Errorf("failed to count reviews of %s: %w", d.Name, err)
		}
	}
	return lim, nil
}

// sumChildren adds the new and learning counts of n's subtree to n and
// caps the new count at the deck's remaining budget.
func (s *Scheduler) sumChildren(n *DueNode) {
	for _, c := range n.Children {
		s.sumChildren(c)
		n.New += c.New
		n.Learn += c.Learn
	}
	if d := s.decks.deck(n.DeckID); d != nil && !d.IsFiltered() {
		n.New = max(0, min(n.New, s.newLimitSingle(d, nil, false)))
	}
}
