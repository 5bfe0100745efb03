package sched

import (
	"context"

	"github.com/conorfennell/knolsched/internal/domain"
)

// CardStore reads and writes cards.
type CardStore interface {
	GetCard(ctx context.Context, id int64) (*domain.Card, error)
	QueryCards(ctx context.Context, q domain.CardQuery) ([]domain.CardRef, error)
	// CardsOfNote returns every card of a note in template order.
	CardsOfNote(ctx context.Context, noteID int64) ([]domain.Card, error)
	CountCards(ctx context.Context, q domain.CardQuery) (int, error)
	SaveCard(ctx context.Context, card *domain.Card) error
	// UpdateCards applies fn to each listed card and saves the result.
	UpdateCards(ctx context.Context, ids []int64, fn func(*domain.Card)) error
	// SearchCards returns the ids of cards matching a filter term among the
	// given decks, excluding suspended, buried and already filtered cards.
	SearchCards(ctx context.Context, term domain.FilterTerm, deckIDs []int64, today int) ([]int64, error)
	// MaxNewPosition returns the highest due position of new cards.
	MaxNewPosition(ctx context.Context) (int64, error)
	AddNoteTag(ctx context.Context, noteID int64, tag string) error
	NoteHasTag(ctx context.Context, noteID int64, tag string) (bool, error)
}

// DeckStore reads and writes decks and their configuration groups.
type DeckStore interface {
	Decks(ctx context.Context) ([]domain.Deck, error)
	SaveDeck(ctx context.Context, deck *domain.Deck) error
	DeckConfigs(ctx context.Context) ([]domain.DeckConfig, error)
}

// ReviewLogStore appends and aggregates review-log entries.
type ReviewLogStore interface {
	// AppendReviewLog returns domain.ErrDuplicateReviewLog if entry.ID is
	// already used.
	AppendReviewLog(ctx context.Context, entry domain.ReviewLogEntry) error
	ReviewStats(ctx context.Context, sinceMS int64) ([]domain.KindStats, error)
}

// ConfigStore holds collection-wide options as JSON values.
type ConfigStore interface {
	GetConfig(ctx context.Context, key string, dst any) (bool, error)
	SetConfig(ctx context.Context, key string, value any) error
}

// Store is everything the scheduler needs from storage.
type Store interface {
	CardStore
	DeckStore
	ReviewLogStore
	ConfigStore
	// WithTx runs fn with a Store whose writes commit together.
	WithTx(ctx context.Context, fn func(Store) error) error
}
