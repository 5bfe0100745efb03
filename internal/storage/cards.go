package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/conorfennell/knolsched/internal/domain"
)

const cardColumns = `id, nid, did, ord, mtime, usn, type, queue, due, ivl, factor, reps, lapses, left_steps, odue, odid`

// GetCard loads a card by id.
func (db *DB) GetCard(ctx context.Context, id int64) (*domain.Card, error) {
	var c domain.Card
	err := sqlx.GetContext(ctx, db.q, &c, db.q.Rebind(`SELECT `+cardColumns+` FROM cards WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("card", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get card %d: %w", id, err)
	}
	return &c, nil
}

// where renders the filter part of q.
func where(q domain.CardQuery) (string, []any) {
	var conds []string
	var args []any
	if len(q.DeckIDs) > 0 {
		conds = append(conds, "did IN (?)")
		args = append(args, q.DeckIDs)
	}
	if len(q.Queues) > 0 {
		conds = append(conds, "queue IN (?)")
		args = append(args, q.Queues)
	}
	if q.NoteID != 0 {
		conds = append(conds, "nid = ?")
		args = append(args, q.NoteID)
	}
	if q.ExcludeID != 0 {
		conds = append(conds, "id != ?")
		args = append(args, q.ExcludeID)
	}
	if q.ExcludeNoteID != 0 {
		conds = append(conds, "nid != ?")
		args = append(args, q.ExcludeNoteID)
	}
	switch q.DueFilter {
	case domain.DueBefore:
		conds = append(conds, "due < ?")
		args = append(args, q.Due)
	case domain.DueAtMost:
		conds = append(conds, "due <= ?")
		args = append(args, q.Due)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func orderBy(o domain.CardOrder) string {
	switch o {
	case domain.OrderByDue:
		return " ORDER BY due, id"
	case domain.OrderByDueOrd:
		return " ORDER BY due, ord, id"
	default:
		return " ORDER BY id"
	}
}

// QueryCards returns the cards matching q.
func (db *DB) QueryCards(ctx context.Context, q domain.CardQuery) ([]domain.CardRef, error) {
	cond, args := where(q)
	query := `SELECT id, nid, did, due, queue FROM cards` + cond + orderBy(q.Order)
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}
	query, args, err := db.in(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to build card query: %w", err)
	}
	var refs []domain.CardRef
	if err := sqlx.SelectContext(ctx, db.q, &refs, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query cards: %w", err)
	}
	return refs, nil
}

// CountCards counts the cards matching q, stopping at q.Limit when set.
func (db *DB) CountCards(ctx context.Context, q domain.CardQuery) (int, error) {
	cond, args := where(q)
	query := `SELECT COUNT(*) FROM cards` + cond
	if q.Limit > 0 {
		query = `SELECT COUNT(*) FROM (SELECT 1 FROM cards` + cond + ` LIMIT ?) AS sub`
		args = append(args, q.Limit)
	}
	query, args, err := db.in(query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to build card count: %w", err)
	}
	var n int
	if err := sqlx.GetContext(ctx, db.q, &n, query, args...); err != nil {
		return 0, fmt.Errorf("failed to count cards: %w", err)
	}
	return n, nil
}

// SaveCard writes every scheduling field of card.
func (db *DB) SaveCard(ctx context.Context, card *domain.Card) error {
	res, err := sqlx.NamedExecContext(ctx, db.q, `
		UPDATE cards SET
			nid = :nid, did = :did, ord = :ord, mtime = :mtime, usn = :usn,
			type = :type, queue = :queue, due = :due, ivl = :ivl, factor = :factor,
			reps = :reps, lapses = :lapses, left_steps = :left_steps,
			odue = :odue, odid = :odid
		WHERE id = :id`, card)
	if err != nil {
		return fmt.Errorf("failed to save card %d: %w", card.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to save card %d: %w", card.ID, err)
	}
	if n == 0 {
		return notFound("card", card.ID)
	}
	return nil
}

func (db *DB) insertCard(ctx context.Context, card *domain.Card) error {
	_, err := sqlx.NamedExecContext(ctx, db.q, `
		INSERT INTO cards (`+cardColumns+`)
		VALUES (:id, :nid, :did, :ord, :mtime, :usn, :type, :queue, :due, :ivl,
			:factor, :reps, :lapses, :left_steps, :odue, :odid)`, card)
	if err != nil {
		return fmt.Errorf("failed to insert card %d: %w", card.ID, err)
	}
	return nil
}

// UpdateCards loads the listed cards, applies fn to each and saves them.
func (db *DB) UpdateCards(ctx context.Context, ids []int64, fn func(*domain.Card)) error {
	if len(ids) == 0 {
		return nil
	}
	return db.inTx(ctx, func(tx *DB) error {
		cards, err := tx.cardsByID(ctx, ids)
		if err != nil {
			return err
		}
		for i := range cards {
			fn(&cards[i])
			if err := tx.SaveCard(ctx, &cards[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (db *DB) cardsByID(ctx context.Context, ids []int64) ([]domain.Card, error) {
	query, args, err := db.in(`SELECT `+cardColumns+` FROM cards WHERE id IN (?) ORDER BY id`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build card lookup: %w", err)
	}
	var cards []domain.Card
	if err := sqlx.SelectContext(ctx, db.q, &cards, query, args...); err != nil {
		return nil, fmt.Errorf("failed to load cards: %w", err)
	}
	return cards, nil
}

// CardsOfNote returns every card generated from a note, in template order.
func (db *DB) CardsOfNote(ctx context.Context, noteID int64) ([]domain.Card, error) {
	var cards []domain.Card
	err := sqlx.SelectContext(ctx, db.q, &cards,
		db.q.Rebind(`SELECT `+cardColumns+` FROM cards WHERE nid = ? ORDER BY ord`), noteID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cards of note %d: %w", noteID, err)
	}
	return cards, nil
}

// MaxNewPosition returns the highest due position of new cards, 0 when
// there are none.
func (db *DB) MaxNewPosition(ctx context.Context) (int64, error) {
	var pos int64
	err := sqlx.GetContext(ctx, db.q, &pos,
		db.q.Rebind(`SELECT COALESCE(MAX(due), 0) FROM cards WHERE type = ?`), domain.TypeNew)
	if err != nil {
		return 0, fmt.Errorf("failed to get max new position: %w", err)
	}
	return pos, nil
}

// SearchCards returns the ids of cards in deckIDs matching term. Suspended,
// buried and already filtered cards never match.
func (db *DB) SearchCards(ctx context.Context, term domain.FilterTerm, deckIDs []int64, today int) ([]int64, error) {
	if len(deckIDs) == 0 {
		return nil, nil
	}
	conds := []string{"did IN (?)", "odid = 0", "queue >= 0"}
	args := []any{deckIDs}
	switch term.Kind {
	case domain.FilterDue:
		conds = append(conds, "((queue IN (?) AND due <= ?) OR queue = ?)")
		args = append(args, []domain.Queue{domain.QueueReview, domain.QueueDayLearning}, today, domain.QueueLearning)
	case domain.FilterNew:
		conds = append(conds, "type = ?")
		args = append(args, domain.TypeNew)
	case domain.FilterReview:
		conds = append(conds, "type IN (?)")
		args = append(args, []domain.CardType{domain.TypeReview, domain.TypeRelearning})
	}
	query := `SELECT id FROM cards WHERE ` + strings.Join(conds, " AND ")
	order, orderArgs := filterOrder(term.Order, today)
	query += " ORDER BY " + order
	args = append(args, orderArgs...)
	if term.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, term.Limit)
	}
	query, args, err := db.in(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to build search: %w", err)
	}
	var ids []int64
	if err := sqlx.SelectContext(ctx, db.q, &ids, query, args...); err != nil {
		return nil, fmt.Errorf("failed to search cards: %w", err)
	}
	return ids, nil
}

func filterOrder(o domain.FilterOrder, today int) (string, []any) {
	switch o {
	case domain.OrderRandom:
		return "RANDOM()", nil
	case domain.OrderSmallInterval:
		return "ivl, id", nil
	case domain.OrderBigInterval:
		return "ivl DESC, id", nil
	case domain.OrderMostLapses:
		return "lapses DESC, id", nil
	case domain.OrderAdded:
		return "nid, ord", nil
	case domain.OrderLatestAdded:
		return "nid DESC, ord", nil
	case domain.OrderDue:
		return "type, due, id", nil
	case domain.OrderDuePriority:
		// overdue reviews first, most overdue relative to their interval
		return "(CASE WHEN queue = ? AND due <= ? THEN ivl * 1.0 / (? - due + 0.001) ELSE 100000 + due END), id",
			[]any{domain.QueueReview, today, today}
	default:
		return "COALESCE((SELECT MAX(r.id) FROM revlog r WHERE r.cid = cards.id), 0), id", nil
	}
}
