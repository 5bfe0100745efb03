package sched

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/conorfennell/knolsched/internal/domain"
)

// Config tunes a Scheduler. Zero values select the defaults.
type Config struct {
	// Rules overrides the rule set stored with the collection.
	Rules *Rules
	// Now is the time source; defaults to time.Now.
	Now func() time.Time
	// Rand drives interval and learning-step fuzz.
	Rand   *rand.Rand
	Logger *slog.Logger
	// QueueLimit is the refill batch size; default 50.
	QueueLimit int
	// ReportLimit stands in for "no limit" in filtered decks; default 99999.
	ReportLimit int
	// LogRetries bounds review-log id collisions; default 5.
	LogRetries int
}

func (c *Config) setDefaults() {
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Rand == nil {
		c.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.QueueLimit <= 0 {
		c.QueueLimit = 50
	}
	if c.ReportLimit <= 0 {
		c.ReportLimit = 99999
	}
	if c.LogRetries <= 0 {
		c.LogRetries = 5
	}
}

// Scheduler is the study engine of one collection. It is not safe for
// concurrent use.
type Scheduler struct {
	store Store
	cfg   Config
	rules Rules
	clock *Clock
	rng   *rand.Rand
	log   *slog.Logger

	opts  domain.Options
	decks *deckIndex

	today     int
	dayCutoff int64

	haveCounts bool
	haveQueues bool
	counts     Counts
	reps       int

	newCardModulus int
	lrnCutoff      int64

	newQueue    *CardQueue
	revQueue    *CardQueue
	lrnDayQueue *CardQueue
	lrnQueue    LrnQueue
	newDids     []int64
	revDids     []int64
	lrnDids     []int64

	lastLogID int64
	leeched   map[int64]bool
	eta       *etaRates
}

// New loads the collection options and deck tree from store and returns a
// scheduler for it.
func New(ctx context.Context, store Store, cfg Config) (*Scheduler, error) {
	cfg.setDefaults()
	s := &Scheduler{
		store:       store,
		cfg:         cfg,
		rng:         cfg.Rand,
		log:         cfg.Logger,
		newQueue:    NewCardQueue(),
		revQueue:    NewCardQueue(),
		lrnDayQueue: NewCardQueue(),
		leeched:     make(map[int64]bool),
	}
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	if cfg.Rules != nil {
		s.rules = *cfg.Rules
	} else {
		s.rules = RulesFor(s.opts.SchedVersion)
	}
	if err := s.updateCutoff(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Rules returns the active rule set.
func (s *Scheduler) Rules() Rules { return s.rules }

// Options returns the collection options the scheduler is working with.
func (s *Scheduler) Options() domain.Options { return s.opts }

// Today returns the current day number.
func (s *Scheduler) Today() int { return s.today }

// DayCutoff returns the epoch second at which today ends.
func (s *Scheduler) DayCutoff() int64 { return s.dayCutoff }

func (s *Scheduler) load(ctx context.Context) error {
	opts, err := LoadOptions(ctx, s.store)
	if err != nil {
		return err
	}
	decks, err := s.store.Decks(ctx)
	if err != nil {
		return fmt.Errorf("failed to load decks: %w", err)
	}
	confs, err := s.store.DeckConfigs(ctx)
	if err != nil {
		return fmt.Errorf("failed to load deck configs: %w", err)
	}
	s.opts = opts
	s.decks = newDeckIndex(decks, confs)
	s.clock = NewClock(s.cfg.Now, opts.CreatedAt, opts.Rollover, opts.CreationOffset)
	return nil
}

// LoadOptions reads the collection options, falling back to defaults for
// missing keys.
func LoadOptions(ctx context.Context, store ConfigStore) (domain.Options, error) {
	opts := domain.DefaultOptions(0, 0)
	fields := []struct {
		key string
		dst any
	}{
		{domain.KeyCreated, &opts.CreatedAt},
		{domain.KeyCreationOffset, &opts.CreationOffset},
		{domain.KeyRollover, &opts.Rollover},
		{domain.KeyLearnAhead, &opts.LearnAheadSecs},
		{domain.KeyNewSpread, &opts.NewSpread},
		{domain.KeyDayLearnFirst, &opts.DayLearnFirst},
		{domain.KeyCurrentDeck, &opts.CurrentDeck},
		{domain.KeyLastUnburied, &opts.LastUnburied},
		{domain.KeySchedVersion, &opts.SchedVersion},
	}
	for _, f := range fields {
		if _, err := store.GetConfig(ctx, f.key, f.dst); err != nil {
			return opts, fmt.Errorf("failed to read option %s: %w", f.key, err)
		}
	}
	return opts, nil
}

// Reset reloads decks and options from storage and drops every cache.
// Call it after changing cards, decks or configuration outside the
// scheduler.
func (s *Scheduler) Reset(ctx context.Context) error {
	s.invalidate()
	if err := s.load(ctx); err != nil {
		return err
	}
	return s.updateCutoff(ctx)
}

// DeferReset drops every cache; the next call reloads from storage.
func (s *Scheduler) DeferReset() {
	s.invalidate()
	s.decks = nil
}

func (s *Scheduler) invalidate() {
	s.haveCounts = false
	s.haveQueues = false
	s.eta = nil
}

// prepare reloads state dropped by DeferReset and applies a pending day
// rollover.
func (s *Scheduler) prepare(ctx context.Context) error {
	if s.decks == nil {
		if err := s.load(ctx); err != nil {
			return err
		}
		return s.updateCutoff(ctx)
	}
	return s.CheckDay(ctx)
}

// CheckDay rolls the scheduler over to a new day once the day cutoff has
// passed.
func (s *Scheduler) CheckDay(ctx context.Context) error {
	if s.clock.NowUnix() < s.dayCutoff {
		return nil
	}
	s.invalidate()
	return s.updateCutoff(ctx)
}

// updateCutoff recomputes today, resets stale deck counters and unburies
// cards once per day.
func (s *Scheduler) updateCutoff(ctx context.Context) error {
	prev := s.today
	s.today = s.clock.Today()
	s.dayCutoff = s.clock.DayCutoff()
	if prev != s.today {
		s.log.Info("day rollover", "today", s.today, "cutoff", s.dayCutoff)
	}
	for _, d := range s.decks.sorted {
		for _, c := range []*domain.DayCounter{&d.NewToday, &d.RevToday, &d.LrnToday, &d.TimeToday} {
			if c.Day != s.today {
				*c = domain.DayCounter{Day: s.today}
				s.decks.markDirty(d.ID)
			}
		}
	}
	if err := s.saveDirtyDecks(ctx, s.store); err != nil {
		return err
	}
	if s.opts.LastUnburied < s.today {
		n, err := s.unburyAll(ctx)
		if err != nil {
			return err
		}
		s.opts.LastUnburied = s.today
		if err := s.store.SetConfig(ctx, domain.KeyLastUnburied, s.today); err != nil {
			return fmt.Errorf("failed to save last unburied day: %w", err)
		}
		if n > 0 {
			s.log.Info("unburied cards", "count", n, "today", s.today)
		}
	}
	return nil
}

func (s *Scheduler) saveDirtyDecks(ctx context.Context, store DeckStore) error {
	for did := range s.decks.dirty {
		d := s.decks.deck(did)
		if d == nil {
			continue
		}
		if err := store.SaveDeck(ctx, d); err != nil {
			return fmt.Errorf("failed to save deck %d: %w", did, err)
		}
	}
	clear(s.decks.dirty)
	return nil
}

func (s *Scheduler) unburyAll(ctx context.Context) (int, error) {
	refs, err := s.store.QueryCards(ctx, domain.CardQuery{
		Queues: []domain.Queue{domain.QueueSiblingBuried, domain.QueueManuallyBuried},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to find buried cards: %w", err)
	}
	if len(refs) == 0 {
		return 0, nil
	}
	err = s.store.UpdateCards(ctx, refIDs(refs), func(c *domain.Card) {
		c.Queue = c.RestoredQueue()
	})
	if err != nil {
		return 0, fmt.Errorf("failed to unbury cards: %w", err)
	}
	return len(refs), nil
}

// SelectDeck makes did the deck studied by NextCard.
func (s *Scheduler) SelectDeck(ctx context.Context, did int64) error {
	if err := s.prepare(ctx); err != nil {
		return err
	}
	if s.decks.deck(did) == nil {
		return fmt.Errorf("%w: %d", ErrDeckNotFound, did)
	}
	if err := s.store.SetConfig(ctx, domain.KeyCurrentDeck, did); err != nil {
		return fmt.Errorf("failed to select deck: %w", err)
	}
	s.opts.CurrentDeck = did
	s.invalidate()
	return nil
}

// DeckByName returns the deck with the given full name.
func (s *Scheduler) DeckByName(ctx context.Context, name string) (*domain.Deck, error) {
	if err := s.prepare(ctx); err != nil {
		return nil, err
	}
	d := s.decks.byName[name]
	if d == nil {
		return nil, fmt.Errorf("%w: %q", ErrDeckNotFound, name)
	}
	return d, nil
}

func (s *Scheduler) activeDecks() []int64 {
	return s.decks.active(s.opts.CurrentDeck)
}

// Counts returns the cards left today in the selected deck, excluding the
// session's current card.
func (s *Scheduler) Counts(ctx context.Context, sess *SessionState) (Counts, error) {
	if err := s.prepare(ctx); err != nil {
		return Counts{}, err
	}
	if !s.haveCounts {
		if err := s.resetCounts(ctx, sess); err != nil {
			return Counts{}, err
		}
	}
	return s.counts, nil
}

// CountsWith returns Counts with card added back, for displaying the
// counts while card is on screen.
func (s *Scheduler) CountsWith(ctx context.Context, sess *SessionState, card *domain.Card) (Counts, error) {
	c, err := s.Counts(ctx, sess)
	if err != nil {
		return c, err
	}
	c.Change(CountIdx(card), 1)
	return c, nil
}

// CountIdx returns the count a card in its current queue belongs to.
func CountIdx(card *domain.Card) QueueKind {
	switch card.Queue {
	case domain.QueueLearning, domain.QueueDayLearning, domain.QueuePreview:
		return KindLearn
	case domain.QueueNew:
		return KindNew
	default:
		return KindReview
	}
}

func (s *Scheduler) resetCounts(ctx context.Context, sess *SessionState) error {
	s.updateLrnCutoff(true)
	newCount, err := s.countNew(ctx, sess)
	if err != nil {
		return err
	}
	lrnCount, err := s.countLrn(ctx, sess)
	if err != nil {
		return err
	}
	revCount, err := s.countRev(ctx, sess)
	if err != nil {
		return err
	}
	s.counts = Counts{New: newCount, Learn: lrnCount, Review: revCount}
	s.haveCounts = true
	return nil
}

func (s *Scheduler) resetQueues() {
	s.resetLrnQueue()
	s.resetNewQueue()
	s.resetRevQueue()
	s.resetLrnDayQueue()
	s.haveQueues = true
}

func refIDs(refs []domain.CardRef) []int64 {
	ids := make([]int64, len(refs))
	for i, r := range refs {
		ids[i] = r.ID
	}
	return ids
}
