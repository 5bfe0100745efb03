package sched_test

import (
	"errors"
	"testing"

	"github.com/conorfennell/knolsched/internal/domain"
	"github.com/conorfennell/knolsched/internal/sched"
)

func TestBuryAndUnbury(t *testing.T) {
	f := newFixture(t)
	a := f.note(domain.DefaultDeckID, "a", 1)[0]
	f.note(domain.DefaultDeckID, "b", 1)
	s := f.start(nil)
	f.wantCounts(sched.Counts{New: 2})

	if err := s.Bury(f.ctx, []int64{a.ID}, true); err != nil {
		t.Fatalf("Bury() returned an unexpected error: %v", err)
	}
	f.wantCounts(sched.Counts{New: 1})
	if got := f.card(a.ID).Queue; got != domain.QueueManuallyBuried {
		t.Fatalf("Expected queue to be manually buried, but got %v", got)
	}
	if buried, err := s.HaveBuried(f.ctx); err != nil || !buried {
		t.Fatalf("Expected HaveBuried() to be true, but got %v (err %v)", buried, err)
	}

	if err := s.Unbury(f.ctx, domain.DefaultDeckID, domain.UnburySiblings); err != nil {
		t.Fatal(err)
	}
	if got := f.card(a.ID).Queue; got != domain.QueueManuallyBuried {
		t.Errorf("Expected the sibling scope to keep manually buried cards, but got queue %v", got)
	}
	if err := s.Unbury(f.ctx, domain.DefaultDeckID, domain.UnburyManual); err != nil {
		t.Fatal(err)
	}
	if got := f.card(a.ID).Queue; got != domain.QueueNew {
		t.Errorf("Expected queue after unbury to be new, but got %v", got)
	}
	if buried, _ := s.HaveBuried(f.ctx); buried {
		t.Error("Expected no buried cards after unburying")
	}
	f.wantCounts(sched.Counts{New: 2})

	if err := s.Unbury(f.ctx, 999, domain.UnburyAll); !errors.Is(err, sched.ErrDeckNotFound) {
		t.Errorf("Expected Unbury(unknown deck) error to be ErrDeckNotFound, but got %v", err)
	}
}

func TestBuriedCardsReturnNextDay(t *testing.T) {
	f := newFixture(t)
	cards := f.note(domain.DefaultDeckID, "a", 2)
	s := f.start(nil)
	if err := s.BuryNote(f.ctx, cards[0].NoteID); err != nil {
		t.Fatalf("BuryNote() returned an unexpected error: %v", err)
	}
	f.wantCounts(sched.Counts{})
	for _, c := range cards {
		if got := f.card(c.ID).Queue; got != domain.QueueManuallyBuried {
			t.Errorf("Expected card %d to be manually buried, but got %v", c.ID, got)
		}
	}
	if err := s.BuryNote(f.ctx, 999); !errors.Is(err, sched.ErrNoteNotFound) {
		t.Errorf("Expected BuryNote(unknown note) error to be ErrNoteNotFound, but got %v", err)
	}

	f.advance(day)
	f.wantCounts(sched.Counts{New: 2})
	for _, c := range cards {
		if got := f.card(c.ID).Queue; got != domain.QueueNew {
			t.Errorf("Expected card %d to be new after rollover, but got %v", c.ID, got)
		}
	}
}

func TestSuspendAndUnsuspend(t *testing.T) {
	f := newFixture(t)
	c := f.note(domain.DefaultDeckID, "a", 1)[0]
	r := f.review(domain.DefaultDeckID, "b", 5, 0)
	s := f.start(nil)
	f.wantCounts(sched.Counts{New: 1, Review: 1})

	if err := s.Suspend(f.ctx, []int64{c.ID, r.ID}); err != nil {
		t.Fatalf("Suspend() returned an unexpected error: %v", err)
	}
	f.wantCounts(sched.Counts{})
	if f.next() != nil {
		t.Fatal("Expected NextCard() to skip suspended cards, but got one")
	}

	if err := s.Unsuspend(f.ctx, []int64{c.ID, r.ID}); err != nil {
		t.Fatalf("Unsuspend() returned an unexpected error: %v", err)
	}
	if got := f.card(c.ID).Queue; got != domain.QueueNew {
		t.Errorf("Expected new card queue to be new, but got %v", got)
	}
	if got := f.card(r.ID).Queue; got != domain.QueueReview {
		t.Errorf("Expected review card queue to be review, but got %v", got)
	}
	f.wantCounts(sched.Counts{New: 1, Review: 1})
}

func TestSuspendLeavesFilteredDeck(t *testing.T) {
	f := newFixture(t)
	r := f.review(domain.DefaultDeckID, "a", 5, 0)
	cram, err := f.db.CreateFilteredDeck(f.ctx, "Cram", domain.FilterSpec{
		Terms:   []domain.FilterTerm{{Kind: domain.FilterAny, Limit: 10}},
		Resched: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	s := f.start(nil)
	if _, err := s.RebuildFilteredDeck(f.ctx, cram.ID); err != nil {
		t.Fatal(err)
	}
	if err := s.Suspend(f.ctx, []int64{r.ID}); err != nil {
		t.Fatal(err)
	}
	got := f.card(r.ID)
	if got.DeckID != domain.DefaultDeckID || got.InFilteredDeck() || got.Due != 0 {
		t.Errorf("Expected suspended card to be it back home with its due, but got %+v", got)
	}
	if got.Queue != domain.QueueSuspended {
		t.Errorf("Expected queue to be suspended, but got %v", got.Queue)
	}
}

func TestSetDueDate(t *testing.T) {
	testCases := []struct {
		name     string
		review   bool
		spec     string
		wantDue  int64
		wantIvl  int
		wantFact int
	}{
		{name: "new card today", spec: "0", wantDue: 0, wantIvl: 1, wantFact: 2500},
		{name: "new card in a week", spec: "7", wantDue: 7, wantIvl: 7, wantFact: 2500},
		{name: "review keeps interval", review: true, spec: "3", wantDue: 3, wantIvl: 10, wantFact: 2500},
		{name: "review sets interval", review: true, spec: "3-3!", wantDue: 3, wantIvl: 3, wantFact: 2500},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			var c domain.Card
			if tc.review {
				c = f.review(domain.DefaultDeckID, "a", 10, 20)
			} else {
				c = f.note(domain.DefaultDeckID, "a", 1)[0]
			}
			s := f.start(nil)
			if err := s.SetDueDate(f.ctx, []int64{c.ID}, tc.spec); err != nil {
				t.Fatalf("SetDueDate() returned an unexpected error: %v", err)
			}
			got := f.card(c.ID)
			if got.Type != domain.TypeReview || got.Queue != domain.QueueReview {
				t.Errorf("Expected type/queue to be review, but got %v/%v", got.Type, got.Queue)
			}
			if got.Due != tc.wantDue || got.Interval != tc.wantIvl || got.Factor != tc.wantFact {
				t.Errorf("Expected due/ivl/factor to be %d/%d/%d, but got %d/%d/%d",
					tc.wantDue, tc.wantIvl, tc.wantFact, got.Due, got.Interval, got.Factor)
			}
		})
	}
}

func TestSetDueDateRange(t *testing.T) {
	f := newFixture(t)
	c := f.note(domain.DefaultDeckID, "a", 1)[0]
	s := f.start(nil)
	if err := s.SetDueDate(f.ctx, []int64{c.ID}, "2-4"); err != nil {
		t.Fatal(err)
	}
	if got := f.card(c.ID).Due; got < 2 || got > 4 {
		t.Errorf("Expected due to be within 2-4, but got %d", got)
	}
	if err := s.SetDueDate(f.ctx, []int64{c.ID}, "5-2"); !errors.Is(err, sched.ErrInvalidDueSpec) {
		t.Errorf("Expected SetDueDate(5-2) error to be ErrInvalidDueSpec, but got %v", err)
	}
}

func TestForget(t *testing.T) {
	f := newFixture(t)
	f.note(domain.DefaultDeckID, "first", 1)
	r1 := f.review(domain.DefaultDeckID, "a", 10, 3)
	r2 := f.review(domain.DefaultDeckID, "b", 20, 4)
	s := f.start(nil)

	if err := s.Forget(f.ctx, []int64{r2.ID, r1.ID}); err != nil {
		t.Fatalf("Forget() returned an unexpected error: %v", err)
	}
	for id, due := range map[int64]int64{r2.ID: 2, r1.ID: 3} {
		got := f.card(id)
		if got.Type != domain.TypeNew || got.Queue != domain.QueueNew {
			t.Errorf("Expected card %d to be new, but got type/queue %v/%v", id, got.Type, got.Queue)
		}
		if got.Due != due || got.Interval != 0 || got.Factor != 0 {
			t.Errorf("Expected card %d due/ivl/factor to be %d/0/0, but got %d/%d/%d", id, due, got.Due, got.Interval, got.Factor)
		}
	}
	f.wantCounts(sched.Counts{New: 3})
}

func TestExtendLimits(t *testing.T) {
	f := newFixture(t)
	f.conf(func(c *domain.DeckConfig) { c.New.PerDay = 1 })
	for _, front := range []string{"a", "b", "c"} {
		f.note(domain.DefaultDeckID, front, 1)
	}
	s := f.start(nil)
	f.answer(f.next(), domain.Easy)
	f.wantCounts(sched.Counts{})

	if err := s.ExtendLimits(f.ctx, 2, 0); err != nil {
		t.Fatalf("ExtendLimits() returned an unexpected error: %v", err)
	}
	n, err := s.RemainingNew(f.ctx, domain.DefaultDeckID, nil, false)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("Expected RemainingNew() to be 2, but got %d", n)
	}
	f.wantCounts(sched.Counts{New: 2})
}

func TestDueTree(t *testing.T) {
	f := newFixture(t)
	f.conf(func(c *domain.DeckConfig) { c.New.PerDay = 2 })
	a := f.deck("A")
	b := f.deck("A::B")
	f.note(a, "a1", 1)
	f.note(b, "b1", 1)
	f.note(b, "b2", 1)
	f.review(b, "r", 5, 0)
	s := f.start(nil)

	tree, err := s.DueTree(f.ctx, true)
	if err != nil {
		t.Fatalf("DueTree() returned an unexpected error: %v", err)
	}
	if len(tree) != 2 || tree[0].Name != "A" || tree[1].Name != "Default" {
		t.Fatalf("Expected roots to be A and Default, but got %+v", tree)
	}
	nodeA := tree[0]
	if nodeA.New != 2 || nodeA.Review != 1 || nodeA.Learn != 0 {
		t.Errorf("Expected A counts to be 2/0/1, but got %d/%d/%d", nodeA.New, nodeA.Learn, nodeA.Review)
	}
	if len(nodeA.Children) != 1 {
		t.Fatalf("Expected A to have 1 child, but got %d", len(nodeA.Children))
	}
	nodeB := nodeA.Children[0]
	if nodeB.Name != "A::B" || nodeB.Basename != "B" || nodeB.DeckID != b {
		t.Errorf("Expected child A::B (B, %d), but got %+v", b, nodeB)
	}
	if nodeB.New != 2 || nodeB.Review != 1 {
		t.Errorf("Expected B counts to be 2/0/1, but got %d/%d/%d", nodeB.New, nodeB.Learn, nodeB.Review)
	}
	if tree[1].New != 0 {
		t.Errorf("Expected Default new to be 0, but got %d", tree[1].New)
	}

	bare, err := s.DueTree(f.ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if bare[0].New != 0 || len(bare[0].Children) != 1 {
		t.Errorf("Expected DueTree(false) root to carry no counts, but got %+v", bare[0])
	}
}

func TestETA(t *testing.T) {
	t.Run("no history", func(t *testing.T) {
		f := newFixture(t)
		s := f.start(nil)
		got, err := s.ETA(f.ctx, sched.Counts{New: 3, Review: 6})
		if err != nil {
			t.Fatal(err)
		}
		if got != 3 {
			t.Errorf("Expected ETA() to be 3, but got %d", got)
		}
	})
	t.Run("failures come back", func(t *testing.T) {
		f := newFixture(t)
		ms := f.now.UnixMilli()
		entries := []domain.ReviewLogEntry{
			{Ease: domain.Good, TimeTaken: 30000, Kind: domain.ReviewKindReview},
			{Ease: domain.Again, TimeTaken: 30000, Kind: domain.ReviewKindReview},
			{Ease: domain.Good, TimeTaken: 10000, Kind: domain.ReviewKindRelearn},
			{Ease: domain.Again, TimeTaken: 10000, Kind: domain.ReviewKindRelearn},
		}
		for i, e := range entries {
			e.ID = ms - int64(i)
			e.CardID = 1
			if err := f.db.AppendReviewLog(f.ctx, e); err != nil {
				t.Fatal(err)
			}
		}
		s := f.start(nil)
		got, err := s.ETA(f.ctx, sched.Counts{Review: 10})
		if err != nil {
			t.Fatal(err)
		}
		if got != 6 {
			t.Errorf("Expected ETA() to be 6, but got %d", got)
		}
	})
}
