package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/conorfennell/knolsched/internal/domain"
)

// AppendReviewLog inserts entry. An id that is already used yields
// domain.ErrDuplicateReviewLog and leaves the log untouched.
func (db *DB) AppendReviewLog(ctx context.Context, entry domain.ReviewLogEntry) error {
	res, err := sqlx.NamedExecContext(ctx, db.q, `
		INSERT INTO revlog (id, cid, usn, ease, ivl, last_ivl, factor, taken_ms, kind)
		VALUES (:id, :cid, :usn, :ease, :ivl, :last_ivl, :factor, :taken_ms, :kind)
		ON CONFLICT (id) DO NOTHING`, entry)
	if isUniqueViolation(err) {
		return fmt.Errorf("review log %d: %w", entry.ID, domain.ErrDuplicateReviewLog)
	}
	if err != nil {
		return fmt.Errorf("failed to append review log for card %d: %w", entry.CardID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to append review log for card %d: %w", entry.CardID, err)
	}
	if n == 0 {
		return fmt.Errorf("review log %d: %w", entry.ID, domain.ErrDuplicateReviewLog)
	}
	return nil
}

// ReviewLog returns the entries of a card, oldest first.
func (db *DB) ReviewLog(ctx context.Context, cardID int64) ([]domain.ReviewLogEntry, error) {
	var entries []domain.ReviewLogEntry
	err := sqlx.SelectContext(ctx, db.q, &entries, db.q.Rebind(`
		SELECT id, cid, usn, ease, ivl, last_ivl, factor, taken_ms, kind
		FROM revlog WHERE cid = ? ORDER BY id`), cardID)
	if err != nil {
		return nil, fmt.Errorf("failed to read review log of card %d: %w", cardID, err)
	}
	return entries, nil
}

// ReviewStats aggregates the entries logged after sinceMS per kind: how
// many there are, the share answered better than again and the average
// answer time.
func (db *DB) ReviewStats(ctx context.Context, sinceMS int64) ([]domain.KindStats, error) {
	var stats []domain.KindStats
	err := sqlx.SelectContext(ctx, db.q, &stats, db.q.Rebind(`
		SELECT kind,
			COUNT(*) AS cnt,
			AVG(CASE WHEN ease > 1 THEN 1.0 ELSE 0.0 END) AS success,
			AVG(taken_ms * 1.0) AS avg_ms
		FROM revlog WHERE id > ?
		GROUP BY kind ORDER BY kind`), sinceMS)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate review log: %w", err)
	}
	return stats, nil
}
