package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/conorfennell/knolsched/internal/domain"
)

// GetConfig decodes the JSON value stored under key into dst and reports
// whether the key was set.
func (db *DB) GetConfig(ctx context.Context, key string, dst any) (bool, error) {
	var raw string
	err := sqlx.GetContext(ctx, db.q, &raw, db.q.Rebind(`SELECT value FROM col_config WHERE name = ?`), key)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read config %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return true, fmt.Errorf("failed to decode config %s: %w", key, err)
	}
	return true, nil
}

// SetConfig stores value under key as JSON.
func (db *DB) SetConfig(ctx context.Context, key string, value any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode config %s: %w", key, err)
	}
	_, err = db.q.ExecContext(ctx, db.q.Rebind(`
		INSERT INTO col_config (name, value) VALUES (?, ?)
		ON CONFLICT (name) DO UPDATE SET value = excluded.value`), key, string(b))
	if err != nil {
		return fmt.Errorf("failed to write config %s: %w", key, err)
	}
	return nil
}

// InitCollection writes opts, the default configuration group and the
// default deck into an empty database. It reports false and changes
// nothing when the collection already exists.
func (db *DB) InitCollection(ctx context.Context, opts domain.Options) (bool, error) {
	var created int64
	ok, err := db.GetConfig(ctx, domain.KeyCreated, &created)
	if err != nil {
		return false, err
	}
	if ok {
		return false, nil
	}
	err = db.inTx(ctx, func(tx *DB) error {
		values := []struct {
			key   string
			value any
		}{
			{domain.KeyCreated, opts.CreatedAt},
			{domain.KeyCreationOffset, opts.CreationOffset},
			{domain.KeyRollover, opts.Rollover},
			{domain.KeyLearnAhead, opts.LearnAheadSecs},
			{domain.KeyNewSpread, opts.NewSpread},
			{domain.KeyDayLearnFirst, opts.DayLearnFirst},
			{domain.KeyCurrentDeck, opts.CurrentDeck},
			{domain.KeyLastUnburied, opts.LastUnburied},
			{domain.KeySchedVersion, opts.SchedVersion},
		}
		for _, v := range values {
			if err := tx.SetConfig(ctx, v.key, v.value); err != nil {
				return err
			}
		}
		if err := tx.SaveDeckConfig(ctx, domain.DefaultDeckConfig()); err != nil {
			return err
		}
		def, err := tx.CreateDeck(ctx, "Default")
		if err != nil {
			return err
		}
		if def.ID != domain.DefaultDeckID {
			return fmt.Errorf("default deck got id %d", def.ID)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return true, nil
}
