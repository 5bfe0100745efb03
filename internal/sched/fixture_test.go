package sched_test

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"testing"
	"time"

	"github.com/conorfennell/knolsched/internal/domain"
	"github.com/conorfennell/knolsched/internal/sched"
	"github.com/conorfennell/knolsched/internal/storage"
)

// created is the collection creation time used by every engine test. The
// first day starts at 04:00 UTC the same day.
var created = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	t    *testing.T
	ctx  context.Context
	db   *storage.DB
	now  time.Time
	s    *sched.Scheduler
	sess *sched.SessionState
}

// newFixture opens an empty collection. Call start once the data is in
// place.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db, err := storage.Open(ctx, storage.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("Open() returned an unexpected error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if _, err := db.InitCollection(ctx, domain.DefaultOptions(created.Unix(), 0)); err != nil {
		t.Fatalf("InitCollection() returned an unexpected error: %v", err)
	}
	return &fixture{t: t, ctx: ctx, db: db, now: created, sess: &sched.SessionState{}}
}

func (f *fixture) start(rules *sched.Rules) *sched.Scheduler {
	f.t.Helper()
	s, err := sched.New(f.ctx, f.db, sched.Config{
		Rules:  rules,
		Now:    func() time.Time { return f.now },
		Rand:   rand.New(rand.NewSource(1)),
		Logger: slog.New(slog.DiscardHandler),
	})
	if err != nil {
		f.t.Fatalf("sched.New() returned an unexpected error: %v", err)
	}
	f.s = s
	return s
}

func (f *fixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func (f *fixture) conf(fn func(*domain.DeckConfig)) {
	f.t.Helper()
	c := domain.DefaultDeckConfig()
	fn(c)
	if err := f.db.SaveDeckConfig(f.ctx, c); err != nil {
		f.t.Fatalf("SaveDeckConfig() returned an unexpected error: %v", err)
	}
}

// deckConf gives deck did a configuration group of its own.
func (f *fixture) deckConf(did int64, fn func(*domain.DeckConfig)) {
	f.t.Helper()
	c := domain.DefaultDeckConfig()
	c.ID = 0
	c.Name = fmt.Sprintf("Deck %d", did)
	fn(c)
	if err := f.db.SaveDeckConfig(f.ctx, c); err != nil {
		f.t.Fatalf("SaveDeckConfig() returned an unexpected error: %v", err)
	}
	if err := f.db.SetDeckConfig(f.ctx, did, c.ID); err != nil {
		f.t.Fatalf("SetDeckConfig() returned an unexpected error: %v", err)
	}
}

// option stores a collection option; call it before start.
func (f *fixture) option(key string, value any) {
	f.t.Helper()
	if err := f.db.SetConfig(f.ctx, key, value); err != nil {
		f.t.Fatalf("SetConfig(%s) returned an unexpected error: %v", key, err)
	}
}

func (f *fixture) deck(name string) int64 {
	f.t.Helper()
	d, err := f.db.CreateDeck(f.ctx, name)
	if err != nil {
		f.t.Fatalf("CreateDeck(%q) returned an unexpected error: %v", name, err)
	}
	return d.ID
}

// note adds a note with the given number of sibling cards to deck did.
func (f *fixture) note(did int64, front string, cards int) []domain.Card {
	f.t.Helper()
	n := &domain.Note{Checksum: front, Front: front, Back: front + "?"}
	out, err := f.db.AddNote(f.ctx, n, did, cards, f.now.Unix())
	if err != nil {
		f.t.Fatalf("AddNote(%q) returned an unexpected error: %v", front, err)
	}
	return out
}

// review adds a review card with the given interval due on day due.
func (f *fixture) review(did int64, front string, ivl int, due int64) domain.Card {
	f.t.Helper()
	c := f.note(did, front, 1)[0]
	f.update(c.ID, func(c *domain.Card) {
		c.Type = domain.TypeReview
		c.Queue = domain.QueueReview
		c.Interval = ivl
		c.Factor = 2500
		c.Due = due
		c.Reps = 3
	})
	return f.card(c.ID)
}

func (f *fixture) update(id int64, fn func(*domain.Card)) {
	f.t.Helper()
	if err := f.db.UpdateCards(f.ctx, []int64{id}, fn); err != nil {
		f.t.Fatalf("UpdateCards() returned an unexpected error: %v", err)
	}
}

func (f *fixture) card(id int64) domain.Card {
	f.t.Helper()
	c, err := f.db.GetCard(f.ctx, id)
	if err != nil {
		f.t.Fatalf("GetCard(%d) returned an unexpected error: %v", id, err)
	}
	return *c
}

func (f *fixture) next() *domain.Card {
	f.t.Helper()
	c, err := f.s.NextCard(f.ctx, f.sess)
	if err != nil {
		f.t.Fatalf("NextCard() returned an unexpected error: %v", err)
	}
	return c
}

func (f *fixture) answer(c *domain.Card, r domain.Rating) sched.Outcome {
	f.t.Helper()
	out, err := f.s.Answer(f.ctx, f.sess, c, r)
	if err != nil {
		f.t.Fatalf("Answer(%d, %v) returned an unexpected error: %v", c.ID, r, err)
	}
	return out
}

func (f *fixture) counts() sched.Counts {
	f.t.Helper()
	c, err := f.s.Counts(f.ctx, f.sess)
	if err != nil {
		f.t.Fatalf("Counts() returned an unexpected error: %v", err)
	}
	return c
}

func (f *fixture) wantCounts(want sched.Counts) {
	f.t.Helper()
	if got := f.counts(); got != want {
		f.t.Errorf("Expected Counts() to be %v, but got %v", want, got)
	}
}
