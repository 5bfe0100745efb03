package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/conorfennell/knolsched/internal/domain"
)

// AddNote stores note and creates the given number of new cards for it in
// deck did, one per template ordinal. Siblings share the next free new
// position.
func (db *DB) AddNote(ctx context.Context, note *domain.Note, did int64, cards int, now int64) ([]domain.Card, error) {
	if cards < 1 {
		return nil, fmt.Errorf("note %q needs at least one card", note.Checksum)
	}
	var out []domain.Card
	err := db.inTx(ctx, func(tx *DB) error {
		id, err := tx.nextID(ctx, "notes")
		if err != nil {
			return err
		}
		note.ID = id
		note.Mod = now
		_, err = sqlx.NamedExecContext(ctx, tx.q, `
			INSERT INTO notes (id, checksum, front, back, context, tags, mtime)
			VALUES (:id, :checksum, :front, :back, :context, :tags, :mtime)`, note)
		if err != nil {
			return fmt.Errorf("failed to insert note %q: %w", note.Checksum, err)
		}
		pos, err := tx.MaxNewPosition(ctx)
		if err != nil {
			return err
		}
		cid, err := tx.nextID(ctx, "cards")
		if err != nil {
			return err
		}
		for ord := 0; ord < cards; ord++ {
			c := domain.Card{
				ID:     cid + int64(ord),
				NoteID: note.ID,
				DeckID: did,
				Ord:    ord,
				Mod:    now,
				Usn:    -1,
				Type:   domain.TypeNew,
				Queue:  domain.QueueNew,
				Due:    pos + 1,
			}
			if err := tx.insertCard(ctx, &c); err != nil {
				return err
			}
			out = append(out, c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetNote loads a note by id.
func (db *DB) GetNote(ctx context.Context, id int64) (*domain.Note, error) {
	var n domain.Note
	err := sqlx.GetContext(ctx, db.q, &n,
		db.q.Rebind(`SELECT id, checksum, front, back, context, tags, mtime FROM notes WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("note", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get note %d: %w", id, err)
	}
	return &n, nil
}

// FindNoteByChecksum returns the note with the given content hash.
func (db *DB) FindNoteByChecksum(ctx context.Context, checksum string) (*domain.Note, error) {
	var n domain.Note
	err := sqlx.GetContext(ctx, db.q, &n,
		db.q.Rebind(`SELECT id, checksum, front, back, context, tags, mtime FROM notes WHERE checksum = ? ORDER BY id LIMIT 1`), checksum)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("note", checksum)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find note %s: %w", checksum, err)
	}
	return &n, nil
}

// AddNoteTag adds tag to the note's space-separated tag list unless it is
// already there, ignoring case.
func (db *DB) AddNoteTag(ctx context.Context, noteID int64, tag string) error {
	return db.inTx(ctx, func(tx *DB) error {
		n, err := tx.GetNote(ctx, noteID)
		if err != nil {
			return err
		}
		tags := strings.Fields(n.Tags)
		if hasTag(tags, tag) {
			return nil
		}
		tags = append(tags, tag)
		_, err = tx.q.ExecContext(ctx, tx.q.Rebind(`UPDATE notes SET tags = ? WHERE id = ?`),
			strings.Join(tags, " "), noteID)
		if err != nil {
			return fmt.Errorf("failed to tag note %d: %w", noteID, err)
		}
		return nil
	})
}

// NoteHasTag reports whether the note carries tag, ignoring case.
func (db *DB) NoteHasTag(ctx context.Context, noteID int64, tag string) (bool, error) {
	n, err := db.GetNote(ctx, noteID)
	if err != nil {
		return false, err
	}
	return hasTag(strings.Fields(n.Tags), tag), nil
}

func hasTag(tags []string, tag string) bool {
	return slices.ContainsFunc(tags, func(t string) bool {
		return strings.EqualFold(t, tag)
	})
}
