package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/conorfennell/knolsched/internal/domain"
)

// ErrDeckExists is returned when creating a deck whose name is taken.
var ErrDeckExists = errors.New("deck already exists")

// deckRow is the table layout of a deck.
type deckRow struct {
	ID        int64  `db:"id"`
	Name      string `db:"name"`
	ConfID    int64  `db:"conf_id"`
	NewDay    int    `db:"new_day"`
	NewCount  int    `db:"new_count"`
	RevDay    int    `db:"rev_day"`
	RevCount  int    `db:"rev_count"`
	LrnDay    int    `db:"lrn_day"`
	LrnCount  int    `db:"lrn_count"`
	TimeDay   int    `db:"time_day"`
	TimeCount int    `db:"time_count"`
	Filter    string `db:"filter"`
}

func (r deckRow) deck() (domain.Deck, error) {
	d := domain.Deck{
		ID:        r.ID,
		Name:      r.Name,
		ConfID:    r.ConfID,
		NewToday:  domain.DayCounter{Day: r.NewDay, Count: r.NewCount},
		RevToday:  domain.DayCounter{Day: r.RevDay, Count: r.RevCount},
		LrnToday:  domain.DayCounter{Day: r.LrnDay, Count: r.LrnCount},
		TimeToday: domain.DayCounter{Day: r.TimeDay, Count: r.TimeCount},
	}
	if r.Filter != "" {
		d.Filter = &domain.FilterSpec{}
		if err := json.Unmarshal([]byte(r.Filter), d.Filter); err != nil {
			return d, fmt.Errorf("failed to decode filter of deck %q: %w", r.Name, err)
		}
	}
	return d, nil
}

func newDeckRow(d *domain.Deck) (deckRow, error) {
	r := deckRow{
		ID:        d.ID,
		Name:      d.Name,
		ConfID:    d.ConfID,
		NewDay:    d.NewToday.Day,
		NewCount:  d.NewToday.Count,
		RevDay:    d.RevToday.Day,
		RevCount:  d.RevToday.Count,
		LrnDay:    d.LrnToday.Day,
		LrnCount:  d.LrnToday.Count,
		TimeDay:   d.TimeToday.Day,
		TimeCount: d.TimeToday.Count,
	}
	if d.Filter != nil {
		b, err := json.Marshal(d.Filter)
		if err != nil {
			return r, fmt.Errorf("failed to encode filter of deck %q: %w", d.Name, err)
		}
		r.Filter = string(b)
	}
	return r, nil
}

const deckColumns = `id, name, conf_id, new_day, new_count, rev_day, rev_count, lrn_day, lrn_count, time_day, time_count, filter`

// Decks returns every deck.
func (db *DB) Decks(ctx context.Context) ([]domain.Deck, error) {
	var rows []deckRow
	if err := sqlx.SelectContext(ctx, db.q, &rows, `SELECT `+deckColumns+` FROM decks ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to list decks: %w", err)
	}
	decks := make([]domain.Deck, 0, len(rows))
	for _, r := range rows {
		d, err := r.deck()
		if err != nil {
			return nil, err
		}
		decks = append(decks, d)
	}
	return decks, nil
}

// DeckByName returns the deck with the given full name.
func (db *DB) DeckByName(ctx context.Context, name string) (*domain.Deck, error) {
	var r deckRow
	err := sqlx.GetContext(ctx, db.q, &r, db.q.Rebind(`SELECT `+deckColumns+` FROM decks WHERE name = ?`), name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("deck", name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get deck %q: %w", name, err)
	}
	d, err := r.deck()
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// SaveDeck writes the deck's name, configuration, counters and filter.
func (db *DB) SaveDeck(ctx context.Context, deck *domain.Deck) error {
	r, err := newDeckRow(deck)
	if err != nil {
		return err
	}
	res, err := sqlx.NamedExecContext(ctx, db.q, `
		UPDATE decks SET
			name = :name, conf_id = :conf_id,
			new_day = :new_day, new_count = :new_count,
			rev_day = :rev_day, rev_count = :rev_count,
			lrn_day = :lrn_day, lrn_count = :lrn_count,
			time_day = :time_day, time_count = :time_count,
			filter = :filter
		WHERE id = :id`, r)
	if err != nil {
		return fmt.Errorf("failed to save deck %q: %w", deck.Name, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notFound("deck", deck.ID)
	}
	return nil
}

func (db *DB) insertDeck(ctx context.Context, deck *domain.Deck) error {
	id, err := db.nextID(ctx, "decks")
	if err != nil {
		return err
	}
	deck.ID = id
	r, err := newDeckRow(deck)
	if err != nil {
		return err
	}
	_, err = sqlx.NamedExecContext(ctx, db.q, `
		INSERT INTO decks (`+deckColumns+`)
		VALUES (:id, :name, :conf_id, :new_day, :new_count, :rev_day, :rev_count,
			:lrn_day, :lrn_count, :time_day, :time_count, :filter)`, r)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %q", ErrDeckExists, deck.Name)
	}
	if err != nil {
		return fmt.Errorf("failed to insert deck %q: %w", deck.Name, err)
	}
	return nil
}

// CreateDeck returns the normal deck called name, creating it and any
// missing parents with the default configuration.
func (db *DB) CreateDeck(ctx context.Context, name string) (*domain.Deck, error) {
	name = cleanDeckName(name)
	if name == "" {
		return nil, fmt.Errorf("deck name is empty")
	}
	var out *domain.Deck
	err := db.inTx(ctx, func(tx *DB) error {
		parts := strings.Split(name, domain.DeckSeparator)
		for i := range parts {
			path := strings.Join(parts[:i+1], domain.DeckSeparator)
			d, err := tx.DeckByName(ctx, path)
			if err == nil {
				if d.IsFiltered() {
					return fmt.Errorf("%w: filtered deck %q cannot have subdecks", ErrDeckExists, path)
				}
				out = d
				continue
			}
			if !errors.Is(err, domain.ErrNotFound) {
				return err
			}
			d = &domain.Deck{Name: path, ConfID: domain.DefaultConfID}
			if err := tx.insertDeck(ctx, d); err != nil {
				return err
			}
			out = d
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CreateFilteredDeck creates a filtered deck called name gathering cards
// with spec. Its parents must be normal decks and are created if missing.
func (db *DB) CreateFilteredDeck(ctx context.Context, name string, spec domain.FilterSpec) (*domain.Deck, error) {
	name = cleanDeckName(name)
	if len(spec.Terms) == 0 {
		return nil, fmt.Errorf("filtered deck %q needs at least one search term", name)
	}
	d := &domain.Deck{Name: name, ConfID: domain.DefaultConfID, Filter: &spec}
	err := db.inTx(ctx, func(tx *DB) error {
		if parent := domain.ParentDeckName(name); parent != "" {
			if _, err := tx.CreateDeck(ctx, parent); err != nil {
				return err
			}
		}
		if _, err := tx.DeckByName(ctx, name); err == nil {
			return fmt.Errorf("%w: %q", ErrDeckExists, name)
		}
		return tx.insertDeck(ctx, d)
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

// SetDeckConfig points a deck at configuration group confID.
func (db *DB) SetDeckConfig(ctx context.Context, did, confID int64) error {
	res, err := db.q.ExecContext(ctx, db.q.Rebind(`UPDATE decks SET conf_id = ? WHERE id = ?`), confID, did)
	if err != nil {
		return fmt.Errorf("failed to set config of deck %d: %w", did, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notFound("deck", did)
	}
	return nil
}

// cleanDeckName trims every path segment and drops empty ones.
func cleanDeckName(name string) string {
	var parts []string
	for _, p := range strings.Split(name, domain.DeckSeparator) {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, domain.DeckSeparator)
}

// DeckConfigs returns every configuration group.
func (db *DB) DeckConfigs(ctx context.Context) ([]domain.DeckConfig, error) {
	var rows []struct {
		ID   int64  `db:"id"`
		Name string `db:"name"`
		Body string `db:"body"`
	}
	if err := sqlx.SelectContext(ctx, db.q, &rows, `SELECT id, name, body FROM deck_configs ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to list deck configs: %w", err)
	}
	confs := make([]domain.DeckConfig, 0, len(rows))
	for _, r := range rows {
		var c domain.DeckConfig
		if err := json.Unmarshal([]byte(r.Body), &c); err != nil {
			return nil, fmt.Errorf("failed to decode deck config %q: %w", r.Name, err)
		}
		c.ID, c.Name = r.ID, r.Name
		confs = append(confs, c)
	}
	return confs, nil
}

// SaveDeckConfig validates and stores conf, allocating an id when it has
// none.
func (db *DB) SaveDeckConfig(ctx context.Context, conf *domain.DeckConfig) error {
	if err := conf.Validate(); err != nil {
		return err
	}
	return db.inTx(ctx, func(tx *DB) error {
		if conf.ID == 0 {
			id, err := tx.nextID(ctx, "deck_configs")
			if err != nil {
				return err
			}
			conf.ID = id
		}
		body, err := json.Marshal(conf)
		if err != nil {
			return fmt.Errorf("failed to encode deck config %q: %w", conf.Name, err)
		}
		_, err = tx.q.ExecContext(ctx, tx.q.Rebind(`
			INSERT INTO deck_configs (id, name, body) VALUES (?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET name = excluded.name, body = excluded.body`),
			conf.ID, conf.Name, string(body))
		if err != nil {
			return fmt.Errorf("failed to save deck config %q: %w", conf.Name, err)
		}
		return nil
	})
}
